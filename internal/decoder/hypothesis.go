package decoder

import "github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/lm"

// coverage is a bitset over source token positions. Bit i set means token i
// has already been translated by some hypothesis on the path. A uint64
// bitset caps sentences at 64 tokens; Params rejects anything longer before
// the decoder ever builds a hypothesis.
type coverage uint64

func (c coverage) isSet(i int) bool { return c&(1<<uint(i)) != 0 }

func (c coverage) withSpan(begin, end int) coverage {
	for i := begin; i <= end; i++ {
		c |= 1 << uint(i)
	}
	return c
}

func (c coverage) overlaps(begin, end int) bool {
	for i := begin; i <= end; i++ {
		if c.isSet(i) {
			return true
		}
	}
	return false
}

func (c coverage) popcount() int {
	n := 0
	for c != 0 {
		c &= c - 1
		n++
	}
	return n
}

// Hypothesis is one partial (or complete) translation on the search
// lattice: a covered-positions bitset, the trailing target word history
// needed to score the next LM extension, and a back pointer to the
// hypothesis it was expanded from.
type Hypothesis struct {
	coverage       coverage
	lastWords      []lm.WordID
	lastCoveredEnd int // rightmost source position covered so far, -1 if none

	Score      float64 // accumulated model score (log-domain, higher is better)
	FutureCost float64 // estimated score of translating what's left uncovered

	TargetText string // the phrase text this hypothesis added, "" for the root
	Back       *Hypothesis
	Alt        *Hypothesis // recombined-away alternative (lattice link); stack_load does not count it

	order int // insertion sequence number, used as a stable tie-break
}

// combined is the value pruning and ranking compare hypotheses by: the
// score accrued so far plus the estimated cost of finishing the sentence.
func (h *Hypothesis) combined() float64 { return h.Score + h.FutureCost }

// recombinationKey identifies hypotheses that are interchangeable from this
// point forward: same coverage, same LM-relevant trailing history. Only one
// representative per key needs to survive in a stack.
func (h *Hypothesis) recombinationKey() recombKey {
	var k recombKey
	k.coverage = h.coverage
	n := len(h.lastWords)
	if n > cap(k.words) {
		n = cap(k.words)
	}
	copy(k.words[:], h.lastWords[len(h.lastWords)-n:])
	k.n = n
	return k
}

type recombKey struct {
	coverage coverage
	words    [lm.MaxLevel - 1]lm.WordID
	n        int
}

// extract walks the back-pointer chain from a completed hypothesis to the
// root and returns the target phrases in left-to-right order.
func extract(h *Hypothesis) []string {
	var parts []string
	for cur := h; cur != nil && cur.Back != nil; cur = cur.Back {
		parts = append(parts, cur.TargetText)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return parts
}
