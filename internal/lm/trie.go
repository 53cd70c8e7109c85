package lm

import (
	"fmt"
	"sync"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
)

// trieKey identifies one m-gram entry: its order (level) and the content
// hash of its word sequence.
type trieKey struct {
	level int
	hash  phrase.UID
}

// TrieLM is a trie-backed, read-only-after-load m-gram language model
// (C3): a word index plus, per m-gram up to MaxLevel, a {log-probability,
// back-off weight} payload, grounded on spec.md §4.3 and on the family of
// interchangeable trie variants in
// original_source/inc/server/lm/proxy/lm_trie_query_proxy_local.hpp (here
// collapsed into a single map-backed implementation — see DESIGN.md).
type TrieLM struct {
	words *WordIndex

	mu      sync.RWMutex
	entries map[trieKey]Payload
	loaded  bool
}

// NewTrieLM creates an empty, mutable trie. Call AddEntry to populate it and
// Freeze once loading is complete; queries are only valid after Freeze.
func NewTrieLM(words *WordIndex) *TrieLM {
	return &TrieLM{
		words:   words,
		entries: make(map[trieKey]Payload),
	}
}

// wordHash computes the trie's internal hash of one word id, using the
// same Combine mixer as the phrase uid scheme (spec.md §4.3: "the
// commutative-free 64-bit mix ... that the phrase-uid function also
// uses").
func wordHash(w WordID) phrase.UID {
	return phrase.Combine(phrase.Undefined, phrase.UID(uint64(uint32(w))))
}

// AddEntry inserts (or overwrites) the payload for the m-gram formed by
// the given word ids. len(wordIDs) must be between 1 and MaxLevel.
func (t *TrieLM) AddEntry(wordIDs []WordID, payload Payload) error {
	if len(wordIDs) < 1 || len(wordIDs) > MaxLevel {
		return fmt.Errorf("m-gram length %d out of range [1,%d]", len(wordIDs), MaxLevel)
	}

	h := wordHash(wordIDs[0])
	for _, w := range wordIDs[1:] {
		h = phrase.Combine(h, wordHash(w))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[trieKey{level: len(wordIDs), hash: h}] = payload
	return nil
}

// Freeze marks the trie as loaded. A load failure before Freeze is fatal
// at startup per spec.md §4.3; callers should call os.Exit after logging,
// not attempt further queries.
func (t *TrieLM) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded = true
}

// lookup resolves the payload for a precomputed hash at the given level.
func (t *TrieLM) lookup(level int, hash phrase.UID) (Payload, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.entries[trieKey{level: level, hash: hash}]
	return p, ok
}

// GetUnknownProb returns the fixed unknown-word payload's log-probability.
func (t *TrieLM) GetUnknownProb() float64 {
	return unknownPayload.LogProb
}

// GetWordID resolves token through the word index.
func (t *TrieLM) GetWordID(token string) WordID {
	return t.words.GetWordID(token)
}
