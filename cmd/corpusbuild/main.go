package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/project"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/metrics"
)

const importBatchSize = 500

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	importPath := flag.String("import", "", "check-in JSON lines file to load into the store before building")
	rebuild := flag.Bool("rebuild", false, "rebuild even if a committed build exists")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *rebuild {
		cfg.Corpus.Rebuild = true
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting corpus build",
		"project", cfg.Corpus.Project,
		"variant", cfg.Tokenizer.Variant,
		"backend", cfg.Entities.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *importPath); err != nil {
		slog.Error("corpus build failed", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus build finished")
}

func run(ctx context.Context, cfg *config.Config, importPath string) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := metrics.Registry()
		m = metrics.NewWithRegistry(reg)
		srv, err := metrics.Listen(cfg.Metrics.Port, reg)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	tok, err := project.NewTokenizer(cfg.Tokenizer)
	if err != nil {
		return err
	}
	ordering, err := entity.ParseOrdering(cfg.Entities.Ordering)
	if err != nil {
		return err
	}

	store, closeStore, err := project.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening entity store: %w", err)
	}
	defer closeStore()

	if importPath != "" {
		if err := importCheckins(ctx, store, importPath); err != nil {
			return err
		}
	}

	var publisher kafka.Publisher = kafka.Discard{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = kafka.To(producer, cfg.Kafka.Topics.CorpusBuilt)
	}

	layout := project.LayoutFor(cfg, tok.Variant())
	p, err := project.LoadOrBuild(ctx, layout, store, tok, project.Options{
		Ordering:   ordering,
		Vocabulary: project.VocabularyOptions(cfg.Vocabulary),
		Rebuild:    cfg.Corpus.Rebuild,
		Metrics:    m,
		Publisher:  publisher,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	slog.Info("corpus ready",
		"build_id", p.Manifest.BuildID,
		"dir", layout.Dir,
		"documents", p.Manifest.Documents,
		"vocab_size", p.Manifest.VocabSize,
		"entities", p.Manifest.Entities,
	)
	return nil
}

func importCheckins(ctx context.Context, store project.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening check-in file: %w", err)
	}
	defer f.Close()

	batch := make([]entity.Checkin, 0, importBatchSize)
	inserted := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.InsertCheckins(ctx, batch)
		if err != nil {
			return fmt.Errorf("inserting check-ins: %w", err)
		}
		inserted += n
		batch = batch[:0]
		return nil
	}

	loaded, skipped, err := entity.DecodeCheckins(ctx, f, func(c entity.Checkin) error {
		batch = append(batch, c)
		if len(batch) == importBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	slog.Info("check-ins imported",
		"path", path,
		"decoded", loaded,
		"skipped", skipped,
		"inserted", inserted,
	)
	return nil
}
