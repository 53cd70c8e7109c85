package decoder

import "sort"

// insert adds h to stack, recombining it with any hypothesis that already
// shares its recombinationKey: the better-scoring one is kept as the stack
// entry, the other survives only as its Alt link (spec.md §4.5,
// "Recombine: hypotheses ... are merged, keeping the higher-scoring one").
func insert(stack []*Hypothesis, h *Hypothesis) []*Hypothesis {
	key := h.recombinationKey()
	for i, existing := range stack {
		if existing.recombinationKey() != key {
			continue
		}
		if h.Score > existing.Score {
			h.Alt = existing
			stack[i] = h
		} else {
			h.Alt = existing.Alt
			existing.Alt = h
		}
		return stack
	}
	return append(stack, h)
}

// prune enforces the stack's two bounds in place, per spec.md §4.5:
// a histogram cap on the number of surviving hypotheses, and a beam
// threshold dropping anything too far behind the best combined score.
func prune(stack []*Hypothesis, histogramSize int, beamThreshold float64) []*Hypothesis {
	if len(stack) == 0 {
		return stack
	}

	sort.Slice(stack, func(i, j int) bool {
		if stack[i].combined() != stack[j].combined() {
			return stack[i].combined() > stack[j].combined()
		}
		return stack[i].order < stack[j].order
	})

	best := stack[0].combined()
	cut := len(stack)
	for i, h := range stack {
		if h.combined() < best-beamThreshold {
			cut = i
			break
		}
	}
	if cut > histogramSize {
		cut = histogramSize
	}
	return stack[:cut]
}
