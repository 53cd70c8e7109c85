package lm

import (
	"fmt"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
)

// QueryProxy is the language-neutral capability set a decoder needs from
// whatever trie variant is configured, per the Design Note in spec.md §9:
// "a single lm_query capability set {get_unknown_prob, get_word_id,
// execute(query)}". TrieLM and UnigramFallbackLM both implement it.
type QueryProxy interface {
	GetUnknownProb() float64
	GetWordID(token string) WordID
	Execute(words []WordID) (float64, error)
}

// MGramQuery is one sliding m-gram query walking a word sequence,
// accumulating the hash of every sub-window it touches so that
// consecutive windows sharing a begin index never recompute their hash
// from scratch (spec.md §4.3, "Hash reuse"). A fresh MGramQuery should be
// used per Execute call (or reset via Reset) — callers that want one
// instance reused across an entire sentence decode (as the original's
// lm_trie_query_proxy is) can call Reset between calls.
type MGramQuery struct {
	trie *TrieLM

	// hashRows[begin] holds the cached hash of window [begin, end] at
	// index end-begin; maxEnd[begin] is the highest end for which that
	// row is populated.
	hashRows map[int][]phrase.UID
	maxEnd   map[int]int

	recomputeCount int
}

// NewMGramQuery creates a query bound to trie.
func NewMGramQuery(trie *TrieLM) *MGramQuery {
	q := &MGramQuery{trie: trie}
	q.Reset()
	return q
}

// Reset clears the hash cache, e.g. between sentences.
func (q *MGramQuery) Reset() {
	q.hashRows = make(map[int][]phrase.UID)
	q.maxEnd = make(map[int]int)
	q.recomputeCount = 0
}

// RecomputeCount returns how many times Hash had to rebuild a window from
// scratch instead of extending a cached row by one word — the
// instrumentation counter spec.md §8 asks for.
func (q *MGramQuery) RecomputeCount() int {
	return q.recomputeCount
}

// Hash returns the content hash of words[begin:end+1], reusing the cached
// hash of words[begin:end] (i.e. window [begin,end-1]) whenever it is
// available.
func (q *MGramQuery) Hash(words []WordID, begin, end int) phrase.UID {
	row, ok := q.hashRows[begin]
	if ok {
		if offset := end - begin; offset < len(row) && row[offset] != 0 {
			return row[offset]
		}
		if me, ok2 := q.maxEnd[begin]; ok2 && me == end-1 {
			h := phrase.Combine(row[me-begin], wordHash(words[end]))
			row = ensureCap(row, end-begin+1)
			row[end-begin] = h
			q.hashRows[begin] = row
			q.maxEnd[begin] = end
			return h
		}
	}

	// No adjacent cached prefix: build the whole row for this begin from
	// scratch, one combine at a time, and record it as a single
	// recompute event.
	q.recomputeCount++
	row = ensureCap(nil, end-begin+1)
	h := wordHash(words[begin])
	row[0] = h
	for e := begin + 1; e <= end; e++ {
		h = phrase.Combine(h, wordHash(words[e]))
		row[e-begin] = h
	}
	q.hashRows[begin] = row
	q.maxEnd[begin] = end
	return row[end-begin]
}

func ensureCap(row []phrase.UID, n int) []phrase.UID {
	if len(row) >= n {
		return row
	}
	grown := make([]phrase.UID, n)
	copy(grown, row)
	return grown
}

// probOfGram returns the back-off log-probability of words[begin:end+1].
// Unknown words short-circuit to the fixed unknown payload. Otherwise an
// exact trie hit is used directly; on a miss the standard back-off
// recursion applies: prob(h w) = backoff(h) + prob(w) where h is the
// (end-begin)-word history and w is the gram with its first word dropped.
func (q *MGramQuery) probOfGram(words []WordID, begin, end int) float64 {
	for i := begin; i <= end; i++ {
		if words[i] == UnknownWordID {
			return unknownPayload.LogProb
		}
	}

	level := levelAt(end - begin)
	h := q.Hash(words, begin, end)
	if payload, ok := q.trie.lookup(level, h); ok {
		return payload.LogProb
	}

	if begin == end {
		// Unseen unigram: fall back to the fixed unknown payload.
		return unknownPayload.LogProb
	}

	// Back off: drop the rightmost word from the context, and recurse on
	// the (end-begin)-length suffix gram.
	var backoff float64
	if ctxPayload, ok := q.trie.lookup(level-1, q.Hash(words, begin, end-1)); ok {
		backoff = ctxPayload.BackOff
	}
	return backoff + q.probOfGram(words, begin+1, end)
}

// Execute runs the full sliding query over words, per spec.md §4.3: for a
// fixed begin (0) it first scores the growing m-grams ending at
// 0,1,...,MaxLevel-1, then slides the MaxLevel-wide window forward one
// word at a time across the rest of words, summing every emitted
// log-probability into the joint score.
func (q *MGramQuery) Execute(words []WordID) (float64, error) {
	n := len(words)
	if n == 0 {
		return 0, fmt.Errorf("cannot query an empty word sequence")
	}

	var sum float64

	// Ramp-up: m-grams [0,0], [0,1], ..., [0,min(MaxLevel,n)-1].
	rampEnd := MaxLevel - 1
	if rampEnd > n-1 {
		rampEnd = n - 1
	}
	for end := 0; end <= rampEnd; end++ {
		sum += q.probOfGram(words, 0, end)
	}

	// Slide: for end = MaxLevel .. n-1, window [end-MaxLevel+1, end].
	for end := MaxLevel; end < n; end++ {
		begin := end - MaxLevel + 1
		sum += q.probOfGram(words, begin, end)
	}

	return sum, nil
}

// Execute implements QueryProxy for TrieLM by running one throwaway
// MGramQuery, so no hash is reused from one call to the next. Callers that
// want hash reuse across many calls should build their own MGramQuery via
// NewMGramQuery and call its Execute/Reset directly instead.
func (t *TrieLM) Execute(words []WordID) (float64, error) {
	return NewMGramQuery(t).Execute(words)
}
