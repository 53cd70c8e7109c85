package lm

import "strings"

// UnigramFallbackLM is a minimal QueryProxy implementation scoring a
// sequence as the independent sum of unigram log-probabilities, with no
// back-off or context. It is grounded on original_source's
// lm_slow_query_proxy being one of several interchangeable trie variants
// selectable by configuration (spec.md §9 Design Note); this variant
// exists for tests and for small deployments that don't need a full
// trie, not as a stand-in for the real back-off model.
type UnigramFallbackLM struct {
	words *WordIndex
	probs map[WordID]float64
}

// NewUnigramFallbackLM creates a model over the given word index.
func NewUnigramFallbackLM(words *WordIndex) *UnigramFallbackLM {
	return &UnigramFallbackLM{words: words, probs: make(map[WordID]float64)}
}

// SetUnigramProb sets the log-probability of a single token.
func (m *UnigramFallbackLM) SetUnigramProb(token string, logProb float64) {
	id := m.words.Add(token)
	m.probs[id] = logProb
}

// GetUnknownProb implements QueryProxy.
func (m *UnigramFallbackLM) GetUnknownProb() float64 {
	return UnknownWordLogProb
}

// GetWordID implements QueryProxy.
func (m *UnigramFallbackLM) GetWordID(token string) WordID {
	return m.words.GetWordID(strings.ToLower(token))
}

// Execute implements QueryProxy by summing independent unigram
// log-probabilities; words with no entry use the unknown payload.
func (m *UnigramFallbackLM) Execute(words []WordID) (float64, error) {
	var sum float64
	for _, w := range words {
		if p, ok := m.probs[w]; ok {
			sum += p
		} else {
			sum += UnknownWordLogProb
		}
	}
	return sum, nil
}
