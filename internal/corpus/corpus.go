// Package corpus projects a document stream through a finished vocabulary
// into bag-of-words vectors and persists them in segment form.
package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/segment"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/source"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/vocab"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// View is an index-addressable sequence of bag-of-words vectors. Position i
// is the i-th document the source yielded at build time.
type View interface {
	Len() int
	At(i int) (bow.Vector, error)
}

// Corpus is an in-memory View.
type Corpus struct {
	vectors   []bow.Vector
	vocabSize int
}

// New wraps vectors, which must not be modified afterwards.
func New(vectors []bow.Vector, vocabSize int) *Corpus {
	return &Corpus{vectors: vectors, vocabSize: vocabSize}
}

func (c *Corpus) Len() int { return len(c.vectors) }

func (c *Corpus) At(i int) (bow.Vector, error) {
	if i < 0 || i >= len(c.vectors) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "position %d outside corpus of %d", i, len(c.vectors))
	}
	return c.vectors[i], nil
}

func (c *Corpus) VocabSize() int { return c.vocabSize }

// Project re-tokenizes every document of src and maps it through v. Tokens
// pruned from v are dropped. A nil vocabulary is rejected so the corpus pass
// can only follow a completed vocabulary pass.
func Project(ctx context.Context, src source.Source, tok vocab.Tokenizer, v *vocab.Vocabulary) (*Corpus, error) {
	if v == nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "corpus projection requires a built vocabulary")
	}
	var vectors []bow.Vector
	err := src.Each(ctx, func(doc string) error {
		vectors = append(vectors, v.Doc2Bow(tok.Tokenize(doc)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return New(vectors, v.Size()), nil
}

// Save writes c as a segment at path.
func (c *Corpus) Save(path string) error {
	if err := segment.Write(path, c.vectors, c.vocabSize); err != nil {
		return fmt.Errorf("saving corpus: %w", err)
	}
	return nil
}

// Stored is a View backed by a segment file.
type Stored struct {
	r *segment.Reader
}

// Open opens a saved corpus and verifies its checksum. Vectors are decoded
// on demand.
func Open(path string) (*Stored, error) {
	r, err := segment.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	if err := r.Verify(); err != nil {
		r.Close()
		return nil, err
	}
	return &Stored{r: r}, nil
}

func (s *Stored) Len() int { return s.r.Len() }

func (s *Stored) At(i int) (bow.Vector, error) { return s.r.At(i) }

func (s *Stored) VocabSize() int { return s.r.VocabSize() }

func (s *Stored) Close() error { return s.r.Close() }

// Equal reports whether a and b hold identical vectors at every position.
func Equal(a, b View) (bool, error) {
	if a.Len() != b.Len() {
		return false, nil
	}
	for i := 0; i < a.Len(); i++ {
		va, err := a.At(i)
		if err != nil {
			return false, err
		}
		vb, err := b.At(i)
		if err != nil {
			return false, err
		}
		if !va.Equal(vb) {
			return false, nil
		}
	}
	return true, nil
}
