package rm

import (
	"context"
	"testing"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrecomputeResolvesKnownPairs(t *testing.T) {
	m := NewModel()
	pair := UIDPair{Source: phrase.OfPhrase("le chat"), Target: phrase.OfPhrase("the cat")}
	m.AddEntry(pair, Reordering{Monotone: -0.1, Swap: -2.0, Discontinuous: -3.0})

	got, err := m.Precompute(context.Background(), []UIDPair{pair})
	require.NoError(t, err)
	assert.Contains(t, got, pair)
	assert.Equal(t, -0.1, got[pair].Monotone)
}

func TestPrecomputeSkipsUnknownPairsWithoutError(t *testing.T) {
	m := NewModel()
	pair := UIDPair{Source: phrase.OfPhrase("a"), Target: phrase.OfPhrase("b")}

	got, err := m.Precompute(context.Background(), []UIDPair{pair})
	require.NoError(t, err)
	assert.NotContains(t, got, pair)
}

func TestPrecomputeStopsOnCancellation(t *testing.T) {
	m := NewModel()
	pair := UIDPair{Source: phrase.OfPhrase("a"), Target: phrase.OfPhrase("b")}
	m.AddEntry(pair, Reordering{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Precompute(ctx, []UIDPair{pair})
	require.Error(t, err)
}

func TestStubModelIsDeterministic(t *testing.T) {
	var s StubModel
	pair := UIDPair{Source: phrase.OfPhrase("x"), Target: phrase.OfPhrase("y")}
	r1, ok1 := s.Get(pair)
	r2, ok2 := s.Get(pair)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, r1, r2)
}
