// Package tm implements the translation model (TM) query interface (C4):
// per-sentence batch lookup of source-phrase entries and their candidate
// target translations with feature scores, grounded on spec.md §4.4 and
// on original_source's tm_source_entry / tm_target_entry split (the
// trans_entry handle returned opaquely to the decoder).
package tm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
)

// TargetTranslation is one candidate target phrase for a source phrase,
// with its model feature score (already log-combined, as the decoder
// treats it as a single additive term).
type TargetTranslation struct {
	TargetPhrase string
	Score        float64
}

// SourceEntry is the opaque handle a decoder gets back after submitting a
// source span: it is sufficient to enumerate every known target
// translation of that phrase.
type SourceEntry struct {
	SourceUID    phrase.UID
	Translations []TargetTranslation
}

// Model is the read-only-after-load TM. Lookups are pure: identical
// inputs always produce identical outputs (spec.md §4.4).
type Model struct {
	mu      sync.RWMutex
	entries map[phrase.UID]SourceEntry
}

// NewModel creates an empty TM.
func NewModel() *Model {
	return &Model{entries: make(map[phrase.UID]SourceEntry)}
}

// AddEntry registers the known target translations for one source phrase.
func (m *Model) AddEntry(sourcePhrase string, translations []TargetTranslation) {
	uid := phrase.OfPhrase(sourcePhrase)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[uid] = SourceEntry{SourceUID: uid, Translations: translations}
}

// LookupSpan asks the TM to populate a source entry for one contiguous
// span's phrase uid, per spec.md §4.4 ("for each it ... asks the TM to
// populate a source entry handle"). A span with no known translations
// returns ok=false and a zero SourceEntry, as does any call made after ctx
// is cancelled.
func (m *Model) LookupSpan(ctx context.Context, uid phrase.UID) (SourceEntry, bool) {
	select {
	case <-ctx.Done():
		return SourceEntry{}, false
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[uid]
	return e, ok
}

// LookupSpans performs LookupSpan for every uid in order. Once ctx is
// cancelled it stops and returns the entries found so far together with an
// error wrapping ctx.Err().
func (m *Model) LookupSpans(ctx context.Context, uids []phrase.UID) (map[phrase.UID]SourceEntry, error) {
	out := make(map[phrase.UID]SourceEntry, len(uids))
	for _, uid := range uids {
		select {
		case <-ctx.Done():
			return out, fmt.Errorf("tm lookup cancelled: %w", ctx.Err())
		default:
		}
		if e, ok := m.LookupSpan(ctx, uid); ok {
			out[uid] = e
		}
	}
	return out, nil
}
