// Package bow defines the sparse bag-of-words vector shared by the
// vocabulary, corpus and topic packages.
package bow

import "sort"

// Entry is one token id and its occurrence count within a document.
type Entry struct {
	ID    int
	Count int
}

// Vector is a sparse count vector with entries sorted by ascending ID, each
// ID appearing at most once and every Count positive.
type Vector []Entry

// Total returns the sum of counts, which equals the number of in-vocabulary
// tokens of the document.
func (v Vector) Total() int {
	n := 0
	for _, e := range v {
		n += e.Count
	}
	return n
}

func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// Dense expands v into a slice of length dim. Entries with ID >= dim are
// ignored.
func (v Vector) Dense(dim int) []float64 {
	out := make([]float64, dim)
	for _, e := range v {
		if e.ID < dim {
			out[e.ID] = float64(e.Count)
		}
	}
	return out
}

// Count builds a vector from tokens, mapping each through lookup. Tokens for
// which lookup reports false are dropped.
func Count(tokens []string, lookup func(token string) (int, bool)) Vector {
	counts := make(map[int]int, len(tokens))
	for _, tok := range tokens {
		if id, ok := lookup(tok); ok {
			counts[id]++
		}
	}
	v := make(Vector, 0, len(counts))
	for id, c := range counts {
		v = append(v, Entry{ID: id, Count: c})
	}
	sort.Slice(v, func(i, j int) bool { return v[i].ID < v[j].ID })
	return v
}
