package phrase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleTokenUID(t *testing.T) {
	got := OfToken("dog")
	want := Combine(Undefined, OfToken("dog"))
	assert.Equal(t, want, got, "single token uid must equal combine(UNDEFINED, hash(token))")
}

func TestIncrementalMatchesFromScratch(t *testing.T) {
	tokens := []string{"the", "quick", "brown", "fox", "jumps"}

	for end := 0; end < len(tokens); end++ {
		fromScratch := OfTokens(tokens, 0, end)

		// Build incrementally, extending one token at a time from [0, end-1].
		var incremental UID
		if end == 0 {
			incremental = OfToken(tokens[0])
		} else {
			incremental = OfTokens(tokens, 0, end-1)
			incremental = Combine(incremental, OfToken(tokens[end]))
		}

		require.Equal(t, fromScratch, incremental, "mismatch at end=%d", end)
	}
}

func TestSentinelsNeverProducedByHash(t *testing.T) {
	samples := []string{"a", "the", "zzz", "", "dog", "cat", "xyzzy123"}
	for _, s := range samples {
		uid := OfToken(s)
		assert.NotEqual(t, Undefined, uid)
		assert.NotEqual(t, Unknown, uid)
		assert.GreaterOrEqual(t, uint64(uid), uint64(MinValid))
	}
}

func TestCombineNotCommutative(t *testing.T) {
	a := OfToken("hello")
	b := OfToken("world")
	assert.NotEqual(t, Combine(a, b), Combine(b, a))
}

func TestOfPhraseMatchesOfTokens(t *testing.T) {
	phrase := "hello brave new world"
	tokens := []string{"hello", "brave", "new", "world"}
	assert.Equal(t, OfTokens(tokens, 0, len(tokens)-1), OfPhrase(phrase))
}
