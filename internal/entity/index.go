// Package entity maps opaque entity ids (venues) to the corpus position of
// their aggregate document. The index is built from an explicit ordered id
// list, persisted next to the corpus, and that same list drives the
// aggregate document stream, so positions cannot drift.
package entity

import (
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Ordering is the deterministic total order applied to entity ids before
// positions are assigned.
type Ordering int

const (
	// Lexicographic sorts ids by byte order.
	Lexicographic Ordering = iota
	// AsGiven keeps the caller's order, which must itself be deterministic.
	AsGiven
)

func ParseOrdering(name string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lexicographic", "sorted":
		return Lexicographic, nil
	case "as-given", "asgiven", "given":
		return AsGiven, nil
	default:
		return 0, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown entity ordering %q", name)
	}
}

func (o Ordering) String() string {
	switch o {
	case Lexicographic:
		return "lexicographic"
	case AsGiven:
		return "as-given"
	default:
		return "unknown"
	}
}

// Index is an immutable id <-> position mapping.
type Index struct {
	ids      []string
	pos      map[string]int
	ordering Ordering
}

// Build assigns position i to the i-th id under ordering. Ids must be
// non-empty, unique and free of tabs and newlines.
func Build(ids []string, ordering Ordering) (*Index, error) {
	ordered := append([]string(nil), ids...)
	switch ordering {
	case Lexicographic:
		sort.Strings(ordered)
	case AsGiven:
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown entity ordering %d", int(ordering))
	}

	ix := &Index{
		ids:      ordered,
		pos:      make(map[string]int, len(ordered)),
		ordering: ordering,
	}
	for i, id := range ordered {
		if id == "" || strings.ContainsAny(id, "\t\n\r") {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "entity id %q at %d is empty or contains a separator", id, i)
		}
		if _, dup := ix.pos[id]; dup {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "duplicate entity id %q", id)
		}
		ix.pos[id] = i
	}
	return ix, nil
}

// Resolve returns the corpus position of id.
func (ix *Index) Resolve(id string) (int, error) {
	p, ok := ix.pos[id]
	if !ok {
		return 0, apperrors.Newf(apperrors.ErrUnknownEntity, "entity %q", id)
	}
	return p, nil
}

// ID returns the entity at position p.
func (ix *Index) ID(p int) (string, bool) {
	if p < 0 || p >= len(ix.ids) {
		return "", false
	}
	return ix.ids[p], true
}

// IDs returns the ids in position order. This is the order the aggregate
// document stream must follow.
func (ix *Index) IDs() []string {
	return append([]string(nil), ix.ids...)
}

func (ix *Index) Len() int { return len(ix.ids) }

func (ix *Index) Ordering() Ordering { return ix.ordering }

// Verify fails with ErrOrderingMismatch unless the index has exactly one
// entry per corpus document.
func (ix *Index) Verify(corpusLen int) error {
	if len(ix.ids) != corpusLen {
		return apperrors.Newf(apperrors.ErrOrderingMismatch,
			"entity index has %d entries but corpus has %d documents", len(ix.ids), corpusLen)
	}
	return nil
}
