package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/distance"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/project"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/topics"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	top := flag.Int("top", 0, "number of entities to compare (default entities.topN)")
	wordTopics := flag.String("word-topics", "", "word-topic model file; infers vectors instead of reading topics.tablePath")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *top > 0 {
		cfg.Entities.TopN = *top
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *wordTopics, os.Stdout); err != nil {
		slog.Error("similarity run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, wordTopicsPath string, out io.Writer) error {
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

	p, err := project.Open(project.LayoutFor(cfg, tok.Variant()), ordering)
	if err != nil {
		return fmt.Errorf("loading corpus build (run corpusbuild first): %w", err)
	}
	defer p.Close()
	ctx = logger.WithBuildID(ctx, p.Manifest.BuildID)

	store, closeStore, err := project.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening entity store: %w", err)
	}
	defer closeStore()

	var lookup topics.Lookup
	if wordTopicsPath != "" {
		model, err := topics.LoadWordTopics(wordTopicsPath)
		if err != nil {
			return err
		}
		lookup = topics.Inferred{Model: model, Corpus: p.Corpus}
	} else {
		if cfg.Topics.TablePath == "" {
			return apperrors.New(apperrors.ErrInvalidConfig, "topics.tablePath or -word-topics is required")
		}
		table, err := topics.LoadTable(cfg.Topics.TablePath)
		if err != nil {
			return err
		}
		if err := table.Verify(p.Corpus.Len()); err != nil {
			return fmt.Errorf("topic table %s: %w", cfg.Topics.TablePath, err)
		}
		lookup = table
	}

	cacheOpts := topics.CacheOptions{
		BuildID: p.Manifest.BuildID,
		Size:    cfg.Topics.CacheSize,
		TTL:     cfg.Topics.CacheTTL,
		Metrics: m,
	}
	if cfg.Topics.UseRedis {
		rc, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, using in-process topic cache only", "error", err)
		} else {
			defer rc.Close()
			cacheOpts.Remote = rc
		}
	}
	cache := topics.NewCache(lookup, cacheOpts)

	var publisher kafka.Publisher = kafka.Discard{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = kafka.To(producer, cfg.Kafka.Topics.SimilarityResults)
	}

	svc := similarity.New(store, p.Index, p.Corpus.Len(), cache, similarity.Options{
		Distance: distance.Options{
			Workers:      cfg.Distance.Workers,
			Strict:       cfg.Distance.Strict,
			SumTolerance: cfg.Distance.SumTolerance,
		},
		Publisher: publisher,
		Metrics:   m,
	})

	report, err := svc.CompareEntities(ctx, cfg.Entities.TopN)
	if err != nil {
		return err
	}
	if err := distance.Format(out, report.Result); err != nil {
		return err
	}
	for _, id := range report.Result.Labels {
		if name, ok := report.Names[id]; ok {
			fmt.Fprintf(out, "%s\t%s\n", id, name)
		}
	}
	for _, id := range report.Unknown {
		fmt.Fprintf(out, "unknown %s\n", id)
	}
	hits, misses := cache.Stats()
	slog.Info("similarity run complete",
		"compared", report.Result.Len(),
		"cache_hits", hits,
		"cache_misses", misses,
	)
	return nil
}
