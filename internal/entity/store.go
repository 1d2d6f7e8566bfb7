package entity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Store is the read side of the check-in database. Implementations return
// snapshots; the corpus build never writes through it.
type Store interface {
	// EntityIDs lists every entity that has an aggregate document.
	EntityIDs(ctx context.Context) ([]string, error)
	// TopEntities lists at most n entities by descending document count,
	// ties broken by ascending id.
	TopEntities(ctx context.Context, n int) ([]string, error)
	// AggregateText concatenates all texts attached to id, one per line, in
	// a stable order.
	AggregateText(ctx context.Context, id string) (string, error)
}

// Namer is implemented by stores that know display names for their ids.
type Namer interface {
	Names(ctx context.Context, ids []string) (map[string]string, error)
}

// AggregateSource yields one aggregate document per entity of an Index, in
// position order. It re-queries the store on every pass.
type AggregateSource struct {
	store Store
	index *Index
}

func NewAggregateSource(store Store, index *Index) *AggregateSource {
	return &AggregateSource{store: store, index: index}
}

func (s *AggregateSource) Each(ctx context.Context, fn func(doc string) error) error {
	for i, id := range s.index.ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := s.store.AggregateText(ctx, id)
		if err != nil {
			return fmt.Errorf("aggregating entity %q at position %d: %w", id, i, err)
		}
		if err := fn(text); err != nil {
			return err
		}
	}
	return nil
}

func (s *AggregateSource) Restartable() bool { return true }

// BuildFromStore lists every entity of store and indexes it under ordering.
func BuildFromStore(ctx context.Context, store Store, ordering Ordering) (*Index, error) {
	ids, err := store.EntityIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	ix, err := Build(ids, ordering)
	if err != nil {
		return nil, err
	}
	slog.Default().With("component", "entity").Info("entity index built",
		"entities", ix.Len(),
		"ordering", ordering.String(),
	)
	return ix, nil
}

// JoinTexts is the aggregation rule shared by the store implementations.
func JoinTexts(texts []string) string {
	return strings.Join(texts, "\n")
}
