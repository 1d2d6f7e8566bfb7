// Package topics is the boundary to the externally trained topic model. The
// model itself is a black box; this package adapts it, serves precomputed
// vectors, and caches lookups per corpus position.
package topics

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
)

// Model infers a length-NumTopics distribution for a bag-of-words vector. It
// must be deterministic for a fixed model snapshot.
type Model interface {
	InferTopics(ctx context.Context, doc bow.Vector) ([]float64, error)
	NumTopics() int
}

// Lookup returns the topic vector of a corpus position.
type Lookup interface {
	TopicsAt(ctx context.Context, pos int) ([]float64, error)
	NumTopics() int
}

// Func adapts a plain function to Model.
type Func struct {
	K  int
	Fn func(ctx context.Context, doc bow.Vector) ([]float64, error)
}

func (f Func) InferTopics(ctx context.Context, doc bow.Vector) ([]float64, error) {
	return f.Fn(ctx, doc)
}

func (f Func) NumTopics() int { return f.K }

// Inferred runs a Model over the vectors of a corpus view.
type Inferred struct {
	Model  Model
	Corpus corpus.View
}

func (in Inferred) TopicsAt(ctx context.Context, pos int) ([]float64, error) {
	doc, err := in.Corpus.At(pos)
	if err != nil {
		return nil, err
	}
	theta, err := in.Model.InferTopics(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("inferring topics for position %d: %w", pos, err)
	}
	return theta, nil
}

func (in Inferred) NumTopics() int { return in.Model.NumTopics() }
