// Package rm implements the reordering model (RM) query interface (C4):
// given the set of source-target uid pairs the TM produced, precompute
// each pair's reordering features once so the decoder's search phase can
// consult them without further lookups, per spec.md §4.4.
package rm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
)

// Reordering holds the distortion-related feature scores for one
// source-target phrase pair: monotone, swap, and discontinuous
// orientation log-probabilities, the standard MSD reordering features.
type Reordering struct {
	Monotone       float64
	Swap           float64
	Discontinuous  float64
}

// UIDPair identifies one source-target phrase pair.
type UIDPair struct {
	Source phrase.UID
	Target phrase.UID
}

// Model is the read-only-after-load RM.
type Model struct {
	mu      sync.RWMutex
	entries map[UIDPair]Reordering
}

// NewModel creates an empty RM.
func NewModel() *Model {
	return &Model{entries: make(map[UIDPair]Reordering)}
}

// AddEntry registers the reordering features for one phrase pair.
func (m *Model) AddEntry(pair UIDPair, r Reordering) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[pair] = r
}

// Precompute resolves every pair up front, the way spec.md §4.4 requires
// ("the RM for the set of source-target uid pairs, so the RM can
// precompute its per-pair orderings once"). Once ctx is cancelled it stops
// and returns the pairs resolved so far together with an error wrapping
// ctx.Err(); the decoder fails the sentence with that error.
func (m *Model) Precompute(ctx context.Context, pairs []UIDPair) (map[UIDPair]Reordering, error) {
	out := make(map[UIDPair]Reordering, len(pairs))
	for _, p := range pairs {
		select {
		case <-ctx.Done():
			return out, fmt.Errorf("rm precompute cancelled: %w", ctx.Err())
		default:
		}
		if r, ok := m.get(p); ok {
			out[p] = r
		}
	}
	return out, nil
}

func (m *Model) get(p UIDPair) (Reordering, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.entries[p]
	return r, ok
}

// Get exposes a single-pair lookup for callers that don't need the batch
// Precompute path. The decoder's search phase does not call it; it reads
// the map Precompute returned.
func (m *Model) Get(p UIDPair) (Reordering, bool) {
	return m.get(p)
}

// StubModel is a deterministic reordering source that needs no trained
// data: its Get returns the same fixed scores for every pair, rather than
// the random-sleep + identity short-circuit the original's RM stub used
// (spec.md §9 Design Note says to treat the decoder's RM consumption as
// authoritative and ignore that stub). It has no Precompute method, so it
// is not a decoder.ReorderingModel; cmd/translator-server uses an empty
// Model when no RM file is configured.
type StubModel struct{}

// Get returns a fixed, mildly monotone-preferring reordering for any
// pair, so stack search has a deterministic signal to rank hypotheses by
// without requiring a trained model.
func (StubModel) Get(UIDPair) (Reordering, bool) {
	return Reordering{Monotone: -0.1, Swap: -1.5, Discontinuous: -2.5}, true
}
