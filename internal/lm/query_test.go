package lm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestTrie() (*TrieLM, *WordIndex) {
	idx := NewWordIndex()
	tok := func(s string) WordID { return idx.Add(s) }

	trie := NewTrieLM(idx)
	the, cat, sat, on, mat := tok("the"), tok("cat"), tok("sat"), tok("on"), tok("mat")

	_ = trie.AddEntry([]WordID{the}, Payload{LogProb: -1.0, BackOff: -0.1})
	_ = trie.AddEntry([]WordID{cat}, Payload{LogProb: -2.0, BackOff: -0.2})
	_ = trie.AddEntry([]WordID{sat}, Payload{LogProb: -2.5, BackOff: -0.3})
	_ = trie.AddEntry([]WordID{on}, Payload{LogProb: -1.5, BackOff: -0.1})
	_ = trie.AddEntry([]WordID{mat}, Payload{LogProb: -2.2, BackOff: 0})

	_ = trie.AddEntry([]WordID{the, cat}, Payload{LogProb: -0.5, BackOff: -0.05})
	_ = trie.AddEntry([]WordID{cat, sat}, Payload{LogProb: -0.6, BackOff: -0.05})

	trie.Freeze()
	return trie, idx
}

func TestHashReuseWithinRampUp(t *testing.T) {
	trie, idx := buildTestTrie()
	words := []WordID{idx.GetWordID("the"), idx.GetWordID("cat"), idx.GetWordID("sat")}

	q := NewMGramQuery(trie)
	q.Hash(words, 0, 0)
	q.Hash(words, 0, 1)
	q.Hash(words, 0, 2)

	// Each step extends the previous row by exactly one combine; none of
	// these three calls should count as a from-scratch recompute beyond
	// the very first row creation.
	assert.Equal(t, 1, q.RecomputeCount())
}

func TestHashIndependentOfCallOrderMatchesFromScratch(t *testing.T) {
	trie, idx := buildTestTrie()
	words := []WordID{idx.GetWordID("the"), idx.GetWordID("cat"), idx.GetWordID("sat")}

	q2 := NewMGramQuery(trie)
	fromScratch := q2.Hash(words, 0, 2)

	q3 := NewMGramQuery(trie)
	q3.Hash(words, 0, 0)
	q3.Hash(words, 0, 1)
	stepped := q3.Hash(words, 0, 2)

	assert.Equal(t, fromScratch, stepped)
}

func TestExecuteSlidingWindowSumsAllGrams(t *testing.T) {
	trie, idx := buildTestTrie()
	words := []WordID{idx.GetWordID("the"), idx.GetWordID("cat"), idx.GetWordID("sat")}

	q := NewMGramQuery(trie)
	got, err := q.Execute(words)
	require.NoError(t, err)

	// n=3 < MaxLevel=5, so Execute is pure ramp-up: grams [0,0],[0,1],[0,2].
	q2 := NewMGramQuery(trie)
	want := q2.probOfGram(words, 0, 0) + q2.probOfGram(words, 0, 1) + q2.probOfGram(words, 0, 2)

	assert.InDelta(t, want, got, 1e-9)
}

func TestExecuteRejectsEmptySequence(t *testing.T) {
	trie, _ := buildTestTrie()
	q := NewMGramQuery(trie)
	_, err := q.Execute(nil)
	require.Error(t, err)
}

func TestUnknownWordUsesFixedPayload(t *testing.T) {
	trie, _ := buildTestTrie()
	q := NewMGramQuery(trie)
	words := []WordID{UnknownWordID}
	got, err := q.Execute(words)
	require.NoError(t, err)
	assert.Equal(t, UnknownWordLogProb, got)
}

func TestBackOffRecursionUsedOnMiss(t *testing.T) {
	trie, idx := buildTestTrie()
	// "on mat" has no bigram entry, so probOfGram must back off to
	// backoff("on") + prob("mat").
	on, mat := idx.GetWordID("on"), idx.GetWordID("mat")
	words := []WordID{on, mat}

	q := NewMGramQuery(trie)
	got := q.probOfGram(words, 0, 1)

	onPayload, ok := trie.lookup(1, wordHash(on))
	require.True(t, ok)
	matPayload, ok := trie.lookup(1, wordHash(mat))
	require.True(t, ok)

	want := onPayload.BackOff + matPayload.LogProb
	assert.InDelta(t, want, got, 1e-9)
}
