// Package decoder implements the sentence decoder (C5): it takes one
// tokenized source sentence, consults the TM/RM/LM, and runs a multi-stack
// beam search to produce the best-scoring target sentence, per spec.md
// §4.5.
package decoder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/lm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/rm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/tm"
)

// ErrSentenceTooLong is returned when a sentence exceeds
// Params.MaxWordsPerSentence, the "too_long" failure spec.md §7 names.
var ErrSentenceTooLong = fmt.Errorf("decoder: sentence exceeds max words per sentence")

// TranslationModel is what the decoder needs from the TM.
type TranslationModel interface {
	LookupSpan(ctx context.Context, uid phrase.UID) (tm.SourceEntry, bool)
}

// ReorderingModel is what the decoder needs from the RM.
type ReorderingModel interface {
	Precompute(ctx context.Context, pairs []rm.UIDPair) (map[rm.UIDPair]rm.Reordering, error)
}

// Decoder translates sentences using a fixed LM/TM/RM and search Params.
// A Decoder is safe for concurrent use: Translate holds no shared mutable
// state beyond the models, which are themselves read-only after load.
type Decoder struct {
	LM     lm.QueryProxy
	TM     TranslationModel
	RM     ReorderingModel
	Params Params
}

// New creates a Decoder, validating Params up front.
func New(lmProxy lm.QueryProxy, tmModel TranslationModel, rmModel ReorderingModel, params Params) (*Decoder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{LM: lmProxy, TM: tmModel, RM: rmModel, Params: params}, nil
}

// Result is the outcome of translating one sentence.
type Result struct {
	TargetSentence string
	// StackLoad holds the post-prune size of each of the N+1 search
	// stacks, in coverage-count order, for instrumentation/testing.
	StackLoad []int
	// Stopped reports whether a stop flag cut the search short; when true
	// TargetSentence falls back to the source sentence unmodified.
	Stopped bool
}

// Translate runs bootstrap, RM precompute, and the stack search over one
// whitespace-tokenized sentence. If stop reports true at any phase
// boundary, Translate aborts the search and returns the source sentence
// verbatim, per spec.md §4.5's "stop-flag checked at phase boundaries".
func (d *Decoder) Translate(ctx context.Context, sentence string, stop *atomic.Bool) (Result, error) {
	tokens := strings.Fields(sentence)
	n := len(tokens)
	if n == 0 {
		return Result{TargetSentence: "", StackLoad: []int{0}}, nil
	}
	if n > d.Params.MaxWordsPerSentence {
		return Result{}, ErrSentenceTooLong
	}

	if stop != nil && stop.Load() {
		return Result{TargetSentence: sentence, Stopped: true}, nil
	}

	data, pairs, futureCosts, err := d.bootstrap(ctx, tokens)
	if err != nil {
		return Result{}, fmt.Errorf("decoder bootstrap: %w", err)
	}

	if stop != nil && stop.Load() {
		return Result{TargetSentence: sentence, Stopped: true}, nil
	}

	reorderings, err := d.RM.Precompute(ctx, pairs)
	if err != nil {
		return Result{}, fmt.Errorf("decoder rm precompute: %w", err)
	}

	if stop != nil && stop.Load() {
		return Result{TargetSentence: sentence, Stopped: true}, nil
	}

	stacks, stackLoad, stopped := d.search(data, reorderings, futureCosts, n, stop)
	if stopped {
		return Result{TargetSentence: sentence, StackLoad: stackLoad, Stopped: true}, nil
	}

	best := bestOf(stacks[n])
	if best == nil {
		// No hypothesis reached full coverage (e.g. a gap no span covers):
		// fall back to the source sentence rather than fail the request.
		return Result{TargetSentence: sentence, StackLoad: stackLoad}, nil
	}

	return Result{
		TargetSentence: strings.Join(extract(best), " "),
		StackLoad:      stackLoad,
	}, nil
}

// bootstrap populates the triangular data map with every span up to
// MaxSourcePhraseLen words, collects the TM-source/target uid pairs the RM
// needs to precompute, and estimates each position's best-case future cost
// from its best single-word translation score (spec.md §4.5, "Bootstrap").
func (d *Decoder) bootstrap(ctx context.Context, tokens []string) (*DataMap, []rm.UIDPair, []float64, error) {
	n := len(tokens)
	data := NewDataMap(n)
	var pairs []rm.UIDPair
	futureCosts := make([]float64, n)
	for i := range futureCosts {
		futureCosts[i] = lm.ZeroLogProbWeight
	}

	charOffset := 0
	charBegin := make([]int, n)
	charEnd := make([]int, n)
	for i, tok := range tokens {
		charBegin[i] = charOffset
		charOffset += len(tok)
		charEnd[i] = charOffset
		charOffset++ // separating space
	}

	for begin := 0; begin < n; begin++ {
		maxEnd := begin + d.Params.MaxSourcePhraseLen - 1
		if maxEnd > n-1 {
			maxEnd = n - 1
		}
		for end := begin; end <= maxEnd; end++ {
			select {
			case <-ctx.Done():
				return nil, nil, nil, ctx.Err()
			default:
			}

			uid := phrase.OfTokens(tokens, begin, end)
			entry, found := d.TM.LookupSpan(ctx, uid)
			data.Set(begin, end, Cell{
				BeginChar: charBegin[begin],
				EndChar:   charEnd[end],
				PhraseUID: uid,
				Entry:     entry,
				Found:     found,
			})
			if !found {
				continue
			}
			for _, tr := range entry.Translations {
				pairs = append(pairs, rm.UIDPair{Source: uid, Target: phrase.OfPhrase(tr.TargetPhrase)})
				if begin == end && tr.Score > futureCosts[begin] {
					futureCosts[begin] = tr.Score
				}
			}
		}
	}

	return data, pairs, futureCosts, nil
}

// futureCostRemaining sums the per-position best-case cost of every source
// token not yet covered, the estimate pruning ranks incomplete hypotheses
// by (spec.md §4.5, "future-cost caching").
func futureCostRemaining(cov coverage, n int, futureCosts []float64) float64 {
	var sum float64
	for i := 0; i < n; i++ {
		if !cov.isSet(i) {
			sum += futureCosts[i]
		}
	}
	return sum
}

// search runs the N+1 stack beam search described in spec.md §4.5: stacks
// are indexed by coverage count, a stack is pruned exactly once (right
// before it is expanded, by which point every hypothesis that could ever
// reach it has arrived, since expansion only ever inserts into a
// strictly-higher-count stack).
func (d *Decoder) search(data *DataMap, reorderings map[rm.UIDPair]rm.Reordering, futureCosts []float64, n int, stop *atomic.Bool) ([][]*Hypothesis, []int, bool) {
	stacks := make([][]*Hypothesis, n+1)
	var nextOrder int
	root := &Hypothesis{
		coverage:       0,
		lastCoveredEnd: -1,
		FutureCost:     futureCostRemaining(0, n, futureCosts),
		order:          nextOrder,
	}
	nextOrder++
	stacks[0] = []*Hypothesis{root}

	for count := 0; count <= n; count++ {
		if stop != nil && stop.Load() {
			return stacks, stackLoadOf(stacks), true
		}

		stacks[count] = prune(stacks[count], d.Params.HistogramSize, d.Params.BeamThreshold)
		if count == n {
			break
		}

		for _, h := range stacks[count] {
			for begin := 0; begin < n; begin++ {
				if h.coverage.isSet(begin) {
					continue
				}
				maxEnd := begin + d.Params.MaxSourcePhraseLen - 1
				if maxEnd > n-1 {
					maxEnd = n - 1
				}
				for end := begin; end <= maxEnd; end++ {
					if h.coverage.overlaps(begin, end) {
						break
					}
					cell, ok := data.Get(begin, end)
					if !ok || !cell.Found {
						continue
					}
					if distortion(h.lastCoveredEnd, begin) > d.Params.DistortionLimit {
						continue
					}

					for _, tr := range cell.Entry.Translations {
						nh := d.expand(h, begin, end, cell.PhraseUID, tr, reorderings, futureCosts, n, nextOrder)
						nextOrder++
						dest := nh.coverage.popcount()
						stacks[dest] = insert(stacks[dest], nh)
					}
				}
			}
		}
	}

	return stacks, stackLoadOf(stacks), false
}

// distortion is the phrase-based jump penalty: how far the new span's
// start is from the position immediately following what's already covered.
func distortion(lastCoveredEnd, begin int) int {
	d := begin - (lastCoveredEnd + 1)
	if d < 0 {
		return -d
	}
	return d
}

// expand builds the hypothesis that results from translating span
// [begin,end] as tr, appended to h: it scores the newly revealed LM grams,
// looks up the reordering orientation relative to h's last covered
// position, and folds in both along with the TM's own feature score.
func (d *Decoder) expand(h *Hypothesis, begin, end int, sourceUID phrase.UID, tr tm.TargetTranslation, reorderings map[rm.UIDPair]rm.Reordering, futureCosts []float64, n, order int) *Hypothesis {
	newWords := tokenize(tr.TargetPhrase, d.LM)

	lmScore, _ := scoreAppend(d.LM, h.lastWords, newWords)

	targetUID := phrase.OfPhrase(tr.TargetPhrase)
	reorderScore := 0.0
	if ro, ok := reorderings[rm.UIDPair{Source: sourceUID, Target: targetUID}]; ok {
		switch {
		case begin == h.lastCoveredEnd+1:
			reorderScore = ro.Monotone
		case end == h.lastCoveredEnd-1:
			reorderScore = ro.Swap
		default:
			reorderScore = ro.Discontinuous
		}
	}

	newCoverage := h.coverage.withSpan(begin, end)
	newLastCoveredEnd := h.lastCoveredEnd
	if end > newLastCoveredEnd {
		newLastCoveredEnd = end
	}

	combinedHistory := append(append([]lm.WordID{}, h.lastWords...), newWords...)
	if len(combinedHistory) > lm.MaxLevel-1 {
		combinedHistory = combinedHistory[len(combinedHistory)-(lm.MaxLevel-1):]
	}

	return &Hypothesis{
		coverage:       newCoverage,
		lastWords:      combinedHistory,
		lastCoveredEnd: newLastCoveredEnd,
		Score:          h.Score + tr.Score + lmScore + reorderScore,
		FutureCost:     futureCostRemaining(newCoverage, n, futureCosts),
		TargetText:     tr.TargetPhrase,
		Back:           h,
		order:          order,
	}
}

// scoreAppend scores only the m-grams that include at least one word from
// newWords: Execute(context+newWords) includes the grams already accounted
// for when context was first appended, so their score is subtracted back
// out.
func scoreAppend(proxy lm.QueryProxy, context, newWords []lm.WordID) (float64, error) {
	full := append(append([]lm.WordID{}, context...), newWords...)
	fullScore, err := proxy.Execute(full)
	if err != nil {
		return 0, err
	}
	if len(context) == 0 {
		return fullScore, nil
	}
	ctxScore, err := proxy.Execute(context)
	if err != nil {
		return 0, err
	}
	return fullScore - ctxScore, nil
}

func tokenize(phraseText string, proxy lm.QueryProxy) []lm.WordID {
	fields := strings.Fields(phraseText)
	ids := make([]lm.WordID, len(fields))
	for i, f := range fields {
		ids[i] = proxy.GetWordID(f)
	}
	return ids
}

func bestOf(stack []*Hypothesis) *Hypothesis {
	var best *Hypothesis
	for _, h := range stack {
		if best == nil || h.Score > best.Score || (h.Score == best.Score && h.order < best.order) {
			best = h
		}
	}
	return best
}

func stackLoadOf(stacks [][]*Hypothesis) []int {
	load := make([]int, len(stacks))
	for i, s := range stacks {
		load[i] = len(s)
	}
	return load
}

// debugHistogram renders a stack's coverage/score pairs for diagnostics;
// unused in production paths but kept small and dependency-free for tests
// that want a human-readable snapshot.
func debugHistogram(stack []*Hypothesis) string {
	var b strings.Builder
	for i, h := range stack {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(int(h.coverage)))
		b.WriteString(":")
		b.WriteString(strconv.FormatFloat(h.Score, 'f', 2, 64))
	}
	return b.String()
}
