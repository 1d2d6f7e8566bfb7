// Package vocab builds the pruned, compacted token dictionary from one pass
// over a document stream.
package vocab

import (
	"context"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Tokenizer is the subset of *tokenizer.Tokenizer the builder needs.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Options controls pruning after the document-frequency pass.
type Options struct {
	// NoBelow drops tokens found in fewer documents. Zero means 2.
	NoBelow int
	// NoAbove drops tokens found in more than this fraction of documents.
	// Values <= 0 or >= 1 disable the upper cutoff.
	NoAbove float64
	// KeepN keeps only the KeepN most frequent survivors. Zero keeps all.
	KeepN int
}

func DefaultOptions() Options {
	return Options{NoBelow: 2, NoAbove: 1.0}
}

func (o Options) withDefaults() Options {
	if o.NoBelow <= 0 {
		o.NoBelow = 2
	}
	return o
}

// Vocabulary is an immutable token <-> id mapping with ids in [0, Size()).
type Vocabulary struct {
	tokens  []string
	ids     map[string]int
	docFreq []int
	numDocs int
	rawSize int
}

// Stats summarises a build for logging and metrics.
type Stats struct {
	Documents int
	RawTokens int
	Kept      int
}

// Build tokenizes every document of src once, counting each distinct token
// once per document, then prunes and compacts the result. Surviving tokens
// get ids in lexicographic order, so a fixed input always yields the same
// mapping. src must be restartable because the corpus pass reads it again;
// this is checked before any document is read.
func Build(ctx context.Context, src source.Source, tok Tokenizer, opts Options) (*Vocabulary, error) {
	if !src.Restartable() {
		return nil, apperrors.New(apperrors.ErrStreamNotRestartable, "vocabulary pass needs a restartable source; materialize it first")
	}
	opts = opts.withDefaults()

	df := make(map[string]int)
	numDocs := 0
	seen := make(map[string]struct{})
	err := src.Each(ctx, func(doc string) error {
		numDocs++
		clear(seen)
		for _, t := range tok.Tokenize(doc) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromDocFreq(df, numDocs, opts), nil
}

func fromDocFreq(df map[string]int, numDocs int, opts Options) *Vocabulary {
	maxDF := numDocs
	if opts.NoAbove > 0 && opts.NoAbove < 1 {
		maxDF = int(opts.NoAbove * float64(numDocs))
	}

	kept := make([]string, 0, len(df))
	for t, n := range df {
		if n < opts.NoBelow || n > maxDF {
			continue
		}
		kept = append(kept, t)
	}

	if opts.KeepN > 0 && len(kept) > opts.KeepN {
		sort.Slice(kept, func(i, j int) bool {
			if df[kept[i]] != df[kept[j]] {
				return df[kept[i]] > df[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:opts.KeepN]
	}
	sort.Strings(kept)

	v := &Vocabulary{
		tokens:  kept,
		ids:     make(map[string]int, len(kept)),
		docFreq: make([]int, len(kept)),
		numDocs: numDocs,
		rawSize: len(df),
	}
	for id, t := range kept {
		v.ids[t] = id
		v.docFreq[id] = df[t]
	}
	return v
}

func (v *Vocabulary) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

func (v *Vocabulary) Size() int { return len(v.tokens) }

// DocFreq returns the number of build documents containing the token with
// the given id, or 0 for an unknown id.
func (v *Vocabulary) DocFreq(id int) int {
	if id < 0 || id >= len(v.docFreq) {
		return 0
	}
	return v.docFreq[id]
}

// NumDocs is the number of documents seen during the build pass.
func (v *Vocabulary) NumDocs() int { return v.numDocs }

// Stats reports the build pass. RawTokens is 0 for a loaded vocabulary.
func (v *Vocabulary) Stats() Stats {
	return Stats{Documents: v.numDocs, RawTokens: v.rawSize, Kept: len(v.tokens)}
}

// Tokens returns the tokens ordered by id.
func (v *Vocabulary) Tokens() []string {
	return append([]string(nil), v.tokens...)
}

// Doc2Bow maps tokens to a bag-of-words vector, dropping pruned tokens.
func (v *Vocabulary) Doc2Bow(tokens []string) bow.Vector {
	return bow.Count(tokens, v.ID)
}
