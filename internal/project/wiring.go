package project

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/vocab"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity/pgstore"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity/sqlitestore"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/postgres"
)

// Store is a check-in database usable both for import and for builds.
type Store interface {
	entity.Store
	entity.Namer
	InsertCheckins(ctx context.Context, checkins []entity.Checkin) (int, error)
}

// OpenStore opens the configured entity backend. The returned func closes
// it.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.Entities.Backend {
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store, err := pgstore.New(ctx, client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	default:
		store, err := sqlitestore.Open(ctx, cfg.Entities.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
}

// NewTokenizer builds the configured tokenizer, adding the terms of the
// optional stoplist file to the language stopwords.
func NewTokenizer(cfg config.TokenizerConfig) (*tokenizer.Tokenizer, error) {
	variant, err := tokenizer.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	opts := tokenizer.Options{
		Variant:         variant,
		Language:        cfg.Language,
		CustomStopwords: cfg.CustomStopwords,
		SkipReSplit:     !cfg.ReSplit,
		DropURLs:        cfg.DropURLs,
	}
	if cfg.StoplistPath != "" {
		sl, err := config.LoadStoplist(cfg.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("loading stoplist: %w", err)
		}
		opts.ExtraStopwords = sl.Terms
	}
	return tokenizer.New(opts)
}

func VocabularyOptions(cfg config.VocabularyConfig) vocab.Options {
	return vocab.Options{
		NoBelow: cfg.NoBelow,
		NoAbove: cfg.NoAbove,
		KeepN:   cfg.KeepN,
	}
}

// LayoutFor returns the layout of the configured project and tokenizer.
func LayoutFor(cfg *config.Config, variant tokenizer.Variant) Layout {
	return NewLayout(cfg.Corpus.DataDir, cfg.Corpus.Project, variant.String())
}
