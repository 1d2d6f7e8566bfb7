package project

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/source"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/vocab"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/metrics"
)

// Project is a loaded build. Position i of Corpus is the aggregate document
// of Index.ID(i).
type Project struct {
	Layout     Layout
	Manifest   Manifest
	Vocabulary *vocab.Vocabulary
	Corpus     corpus.View
	Index      *entity.Index

	closer func() error
}

// Close releases the corpus file, if one is open.
func (p *Project) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// Options configures Build and LoadOrBuild.
type Options struct {
	Ordering   entity.Ordering
	Vocabulary vocab.Options
	// Rebuild ignores an existing build in LoadOrBuild.
	Rebuild   bool
	Metrics   *metrics.Metrics
	Publisher kafka.Publisher
}

// CorpusBuilt is published after a build is committed.
type CorpusBuilt struct {
	BuildID   string    `json:"build_id"`
	Variant   string    `json:"variant"`
	Dir       string    `json:"dir"`
	Documents int       `json:"documents"`
	VocabSize int       `json:"vocab_size"`
	CreatedAt time.Time `json:"created_at"`
}

// Build indexes every entity of store, aggregates one document per entity,
// reads them once, runs both corpus passes over that snapshot and persists
// the result. Any previous manifest is removed before the first file is
// replaced and the new one is written after the last, so an interrupted
// build is never reloaded.
func Build(ctx context.Context, layout Layout, store entity.Store, tok vocab.Tokenizer, opts Options) (*Project, error) {
	buildID := ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String()
	ctx = logger.WithBuildID(ctx, buildID)
	log := logger.FromContext(ctx).With("component", "project", "variant", layout.Variant)

	index, err := entity.BuildFromStore(ctx, store, opts.Ordering)
	if err != nil {
		return nil, fmt.Errorf("building entity index: %w", err)
	}
	log.Info("entity index built", "entities", index.Len(), "ordering", index.Ordering())

	// The store is live; both passes must see the same snapshot.
	docs, err := source.Materialize(ctx, entity.NewAggregateSource(store, index))
	if err != nil {
		return nil, fmt.Errorf("reading aggregate documents: %w", err)
	}
	v, c, err := corpus.NewPipeline(tok, opts.Vocabulary, opts.Metrics).Run(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := index.Verify(c.Len()); err != nil {
		return nil, err
	}

	if err := removeManifest(layout.ManifestPath()); err != nil {
		return nil, err
	}
	if err := v.Save(layout.DictionaryPath()); err != nil {
		return nil, err
	}
	if err := c.Save(layout.CorpusPath()); err != nil {
		return nil, err
	}
	if err := index.Save(layout.EntitiesPath()); err != nil {
		return nil, err
	}
	vo := opts.Vocabulary
	m := Manifest{
		BuildID:   buildID,
		Variant:   layout.Variant,
		Documents: c.Len(),
		VocabSize: v.Size(),
		Entities:  index.Len(),
		Ordering:  index.Ordering().String(),
		NoBelow:   vo.NoBelow,
		NoAbove:   vo.NoAbove,
		KeepN:     vo.KeepN,
		CreatedAt: time.Now().UTC(),
	}
	if err := writeManifest(layout.ManifestPath(), m); err != nil {
		return nil, err
	}
	log.Info("corpus build committed",
		"dir", layout.Dir,
		"documents", m.Documents,
		"vocab_size", m.VocabSize,
	)

	if opts.Publisher != nil {
		event := kafka.Event{
			Key: buildID,
			Value: CorpusBuilt{
				BuildID:   buildID,
				Variant:   layout.Variant,
				Dir:       layout.Dir,
				Documents: m.Documents,
				VocabSize: m.VocabSize,
				CreatedAt: m.CreatedAt,
			},
		}
		if err := opts.Publisher.Publish(ctx, event); err != nil {
			log.Error("failed to publish corpus build event", "error", err)
		}
	}

	return &Project{
		Layout:     layout,
		Manifest:   m,
		Vocabulary: v,
		Corpus:     c,
		Index:      index,
	}, nil
}

// Open reloads a committed build. Every file is checked against the
// manifest and the index against the corpus length before it is returned.
func Open(layout Layout, ordering entity.Ordering) (*Project, error) {
	m, err := readManifest(layout.ManifestPath())
	if err != nil {
		return nil, err
	}
	if m.Variant != layout.Variant {
		return nil, apperrors.Newf(apperrors.ErrOrderingMismatch,
			"manifest built with tokenizer %q, requested %q", m.Variant, layout.Variant)
	}

	v, err := vocab.Load(layout.DictionaryPath())
	if err != nil {
		return nil, err
	}
	if v.Size() != m.VocabSize {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile,
			"dictionary holds %d tokens, manifest records %d", v.Size(), m.VocabSize)
	}

	index, err := entity.Load(layout.EntitiesPath(), ordering)
	if err != nil {
		return nil, err
	}

	stored, err := corpus.Open(layout.CorpusPath())
	if err != nil {
		return nil, err
	}
	if stored.Len() != m.Documents || stored.VocabSize() != m.VocabSize {
		stored.Close()
		return nil, apperrors.Newf(apperrors.ErrCorruptFile,
			"corpus holds %d documents over %d tokens, manifest records %d over %d",
			stored.Len(), stored.VocabSize(), m.Documents, m.VocabSize)
	}
	if err := index.Verify(stored.Len()); err != nil {
		stored.Close()
		return nil, err
	}

	return &Project{
		Layout:     layout,
		Manifest:   m,
		Vocabulary: v,
		Corpus:     stored,
		Index:      index,
		closer:     stored.Close,
	}, nil
}

// LoadOrBuild opens the committed build at layout, building it first when
// none exists or opts.Rebuild is set.
func LoadOrBuild(ctx context.Context, layout Layout, store entity.Store, tok vocab.Tokenizer, opts Options) (*Project, error) {
	if !opts.Rebuild {
		p, err := Open(layout, opts.Ordering)
		if err == nil {
			slog.Info("loaded existing corpus build",
				"component", "project",
				"build_id", p.Manifest.BuildID,
				"dir", layout.Dir,
				"documents", p.Manifest.Documents,
			)
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return Build(ctx, layout, store, tok, opts)
}
