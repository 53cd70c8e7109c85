package decoder

import "fmt"

// Params configures one Decoder. Defaults resolve the stack-search Open
// Question from spec.md §9: HistogramSize=100 and BeamThreshold=6.0 are the
// values original_source's multi_stack.hpp documents as its defaults.
type Params struct {
	MaxWordsPerSentence int
	MaxSourcePhraseLen  int
	DistortionLimit     int
	HistogramSize       int
	BeamThreshold       float64
}

// DefaultParams returns the resolved defaults.
func DefaultParams() Params {
	return Params{
		MaxWordsPerSentence: 64,
		MaxSourcePhraseLen:  7,
		DistortionLimit:     6,
		HistogramSize:       100,
		BeamThreshold:       6.0,
	}
}

// Validate rejects configurations the search implementation cannot honor.
func (p Params) Validate() error {
	if p.MaxWordsPerSentence <= 0 || p.MaxWordsPerSentence > 64 {
		return fmt.Errorf("decoder: max_words_per_sentence must be in (0,64], got %d", p.MaxWordsPerSentence)
	}
	if p.MaxSourcePhraseLen <= 0 {
		return fmt.Errorf("decoder: max_source_phrase_len must be positive, got %d", p.MaxSourcePhraseLen)
	}
	if p.HistogramSize <= 0 {
		return fmt.Errorf("decoder: histogram_size must be positive, got %d", p.HistogramSize)
	}
	return nil
}
