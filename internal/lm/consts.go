package lm

// WordID is a stable per-process vocabulary word identifier.
type WordID int32

// UndefinedWordID is the sentinel for an unmapped slot.
const UndefinedWordID WordID = -1

// UnknownWordID is the id the word index returns for an out-of-vocabulary
// token.
const UnknownWordID WordID = 0

// MaxLevel is LM_MAX_LEVEL: the highest m-gram order the trie stores.
// Queries never request a window wider than this.
const MaxLevel = 5

// ZeroLogProbWeight is ZERO_LOG_PROB_WEIGHT: the representation of a
// zero-probability event. It participates in sums like any other weight;
// the model (not the query layer) is responsible for smoothing it away.
const ZeroLogProbWeight = -100.0

// UnknownWordLogProb is the fixed payload used whenever a queried word is
// not in the vocabulary.
const UnknownWordLogProb = -99.0

// Payload is the per-m-gram trie entry: a log-probability and a back-off
// weight used when extending the context by one more word to the right.
type Payload struct {
	LogProb float64
	BackOff float64
}

// unknownPayload is returned for any m-gram containing an unknown word.
var unknownPayload = Payload{LogProb: UnknownWordLogProb, BackOff: 0}

// levelTable is the precomputed table from spec.md §4.3: level never
// depends on begin, only on the window offset end-begin, so the query hot
// path in probOfGram looks level up here instead of recomputing
// end-begin+1 itself on every call.
var levelTable [MaxLevel]int

func init() {
	for offset := 0; offset < MaxLevel; offset++ {
		levelTable[offset] = offset + 1
	}
}

// levelAt returns end-begin+1 via the precomputed table, given the window
// offset end-begin (must be < MaxLevel).
func levelAt(offset int) int { return levelTable[offset] }
