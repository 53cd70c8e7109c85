package decoder

import (
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/tm"
)

// Cell is one entry of the triangular data map: the span's character
// offsets, its content uid, and whatever the TM returned for it.
type Cell struct {
	BeginChar int
	EndChar   int
	PhraseUID phrase.UID
	Entry     tm.SourceEntry
	Found     bool
}

// DataMap is the triangular [i][j] map for i<=j<N from spec.md §3: one
// cell per contiguous source span up to MaxSourcePhraseLen words.
type DataMap struct {
	n     int
	cells map[[2]int]Cell
}

// NewDataMap creates an empty map over a sentence of n tokens.
func NewDataMap(n int) *DataMap {
	return &DataMap{n: n, cells: make(map[[2]int]Cell)}
}

// Set stores the cell for span [begin,end].
func (d *DataMap) Set(begin, end int, c Cell) {
	d.cells[[2]int{begin, end}] = c
}

// Get returns the cell for span [begin,end], if it was ever submitted.
func (d *DataMap) Get(begin, end int) (Cell, bool) {
	c, ok := d.cells[[2]int{begin, end}]
	return c, ok
}

// N returns the sentence length in tokens.
func (d *DataMap) N() int { return d.n }
