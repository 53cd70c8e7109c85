package decoder

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/lm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/rm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/tm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixture() (*lm.UnigramFallbackLM, *tm.Model, *rm.Model) {
	idx := lm.NewWordIndex()
	lmModel := lm.NewUnigramFallbackLM(idx)
	lmModel.SetUnigramProb("le", -0.3)
	lmModel.SetUnigramProb("chat", -0.4)
	lmModel.SetUnigramProb("the", -0.3)
	lmModel.SetUnigramProb("cat", -0.4)

	tmModel := tm.NewModel()
	tmModel.AddEntry("the", []tm.TargetTranslation{{TargetPhrase: "le", Score: -1.0}})
	tmModel.AddEntry("cat", []tm.TargetTranslation{{TargetPhrase: "chat", Score: -1.0}})
	// The two-word phrase translation scores much better than the two
	// single-word translations combined, so the search should prefer it.
	tmModel.AddEntry("the cat", []tm.TargetTranslation{{TargetPhrase: "le chat", Score: -0.1}})

	rmModel := rm.NewModel()
	return lmModel, tmModel, rmModel
}

func TestTranslatePrefersHigherScoringSpan(t *testing.T) {
	lmModel, tmModel, rmModel := buildFixture()
	d, err := New(lmModel, tmModel, rmModel, DefaultParams())
	require.NoError(t, err)

	result, err := d.Translate(context.Background(), "the cat", nil)
	require.NoError(t, err)
	assert.Equal(t, "le chat", result.TargetSentence)
	assert.False(t, result.Stopped)
}

func TestStackLoadHasOneEntryPerCoverageCount(t *testing.T) {
	lmModel, tmModel, rmModel := buildFixture()
	d, err := New(lmModel, tmModel, rmModel, DefaultParams())
	require.NoError(t, err)

	result, err := d.Translate(context.Background(), "the cat", nil)
	require.NoError(t, err)
	assert.Len(t, result.StackLoad, 3) // n=2 tokens => stacks 0,1,2
}

func TestTranslateRejectsSentenceLongerThanMax(t *testing.T) {
	lmModel, tmModel, rmModel := buildFixture()
	params := DefaultParams()
	params.MaxWordsPerSentence = 1
	d, err := New(lmModel, tmModel, rmModel, params)
	require.NoError(t, err)

	_, err = d.Translate(context.Background(), "the cat", nil)
	assert.ErrorIs(t, err, ErrSentenceTooLong)
}

func TestTranslateFallsBackToSourceWhenStopped(t *testing.T) {
	lmModel, tmModel, rmModel := buildFixture()
	d, err := New(lmModel, tmModel, rmModel, DefaultParams())
	require.NoError(t, err)

	var stop atomic.Bool
	stop.Store(true)

	result, err := d.Translate(context.Background(), "the cat", &stop)
	require.NoError(t, err)
	assert.True(t, result.Stopped)
	assert.Equal(t, "the cat", result.TargetSentence)
}

func TestTranslateWithNoKnownPhraseFallsBackToSource(t *testing.T) {
	lmModel, tmModel, rmModel := buildFixture()
	d, err := New(lmModel, tmModel, rmModel, DefaultParams())
	require.NoError(t, err)

	result, err := d.Translate(context.Background(), "unknown words here", nil)
	require.NoError(t, err)
	assert.Equal(t, "unknown words here", result.TargetSentence)
}

func TestTranslateEmptySentenceReturnsEmpty(t *testing.T) {
	lmModel, tmModel, rmModel := buildFixture()
	d, err := New(lmModel, tmModel, rmModel, DefaultParams())
	require.NoError(t, err)

	result, err := d.Translate(context.Background(), "   ", nil)
	require.NoError(t, err)
	assert.Equal(t, "", result.TargetSentence)
}

func TestCoverageHelpers(t *testing.T) {
	var c coverage
	c = c.withSpan(1, 2)
	assert.True(t, c.isSet(1))
	assert.True(t, c.isSet(2))
	assert.False(t, c.isSet(0))
	assert.True(t, c.overlaps(0, 1))
	assert.False(t, c.overlaps(3, 4))
	assert.Equal(t, 2, c.popcount())
}

func TestPhraseUIDUsedForBootstrapSpans(t *testing.T) {
	// Sanity: OfTokens over [0,1] must equal OfPhrase of the joined span,
	// since bootstrap relies on that equivalence to hit TM entries keyed by
	// phrase text.
	tokens := []string{"the", "cat"}
	assert.Equal(t, phrase.OfPhrase("the cat"), phrase.OfTokens(tokens, 0, 1))
}
