// Package similarity ties the entity index, the topic lookup and the
// distance engine together: it resolves the most active entities to corpus
// positions, fetches their topic vectors and reports pairwise distances.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/distance"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/topics"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/metrics"
)

// Options configures a Service. Distance.Labels and Distance.Dim are set
// per call and ignored here.
type Options struct {
	Distance distance.Options
	// Model is required by CompareDocuments only.
	Model     topics.Model
	Publisher kafka.Publisher
	Metrics   *metrics.Metrics
}

type Service struct {
	store     entity.Store
	index     *entity.Index
	corpusLen int
	lookup    topics.Lookup
	opts      Options
	logger    *slog.Logger
}

// New returns a Service over a loaded build. corpusLen is the length of the
// corpus the index and lookup refer to.
func New(store entity.Store, index *entity.Index, corpusLen int, lookup topics.Lookup, opts Options) *Service {
	opts.Distance.Metrics = opts.Metrics
	return &Service{
		store:     store,
		index:     index,
		corpusLen: corpusLen,
		lookup:    lookup,
		opts:      opts,
		logger:    logger.WithComponent("similarity"),
	}
}

// Report is the outcome of CompareEntities. Row i of Result belongs to
// entity Result.Labels[i].
type Report struct {
	Result *distance.Result
	// Names maps entity ids to display names when the store provides them.
	Names map[string]string
	// Unknown lists requested ids with no corpus position.
	Unknown []string
}

// ResultEvent is published for every completed comparison.
type ResultEvent struct {
	BuildID   string      `json:"build_id,omitempty"`
	Entities  []string    `json:"entities"`
	Distances [][]float64 `json:"distances"`
	Excluded  []string    `json:"excluded,omitempty"`
	Unknown   []string    `json:"unknown,omitempty"`
}

// CompareEntities computes the distance matrix of the n entities with the
// most associated documents. The index is checked against the corpus
// before anything is resolved. Unknown ids are skipped and reported in
// Unknown; entities whose topic vector cannot be fetched are listed in
// Result.Excluded unless the distance options are strict.
func (s *Service) CompareEntities(ctx context.Context, n int) (*Report, error) {
	if err := s.index.Verify(s.corpusLen); err != nil {
		return nil, err
	}
	log := s.logger
	if id, ok := logger.BuildID(ctx); ok {
		log = log.With("build_id", id)
	}

	ids, err := s.store.TopEntities(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("listing top entities: %w", err)
	}

	report := &Report{}
	var (
		labels  []string
		vectors [][]float64
		failed  []distance.Exclusion
	)
	for _, id := range ids {
		pos, err := s.index.Resolve(id)
		if err != nil {
			if apperrors.IsFatal(err) {
				return nil, err
			}
			log.Warn("skipping entity without corpus position", "entity_id", id)
			s.opts.Metrics.UnknownEntity()
			report.Unknown = append(report.Unknown, id)
			continue
		}
		theta, err := s.lookup.TopicsAt(ctx, pos)
		if err != nil {
			if ctx.Err() != nil || s.opts.Distance.Strict {
				return nil, fmt.Errorf("topic vector for entity %q: %w", id, err)
			}
			log.Warn("excluding entity without topic vector", "entity_id", id, "position", pos, "error", err)
			failed = append(failed, distance.Exclusion{Index: -1, Label: id, Err: err})
			continue
		}
		labels = append(labels, id)
		vectors = append(vectors, theta)
	}

	if namer, ok := s.store.(entity.Namer); ok && len(labels) > 0 {
		names, err := namer.Names(ctx, labels)
		if err != nil {
			log.Warn("entity names unavailable", "error", err)
		} else {
			report.Names = names
		}
	}

	res, err := s.matrix(ctx, vectors, labels, s.lookup.NumTopics())
	if err != nil {
		return nil, err
	}
	res.Excluded = append(failed, res.Excluded...)
	report.Result = res
	log.Info("entity comparison complete",
		"requested", n,
		"compared", res.Len(),
		"excluded", len(res.Excluded),
		"unknown", len(report.Unknown),
	)
	s.publish(ctx, res, report.Unknown)
	return report, nil
}

// CompareDocuments infers topics for each bag-of-words vector with the
// configured model and returns their distance matrix, labelled by index.
func (s *Service) CompareDocuments(ctx context.Context, docs []bow.Vector) (*distance.Result, error) {
	if s.opts.Model == nil {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "document comparison requires a topic model")
	}
	vectors := make([][]float64, len(docs))
	labels := make([]string, len(docs))
	for i, doc := range docs {
		theta, err := s.opts.Model.InferTopics(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("inferring topics for document %d: %w", i, err)
		}
		vectors[i] = theta
		labels[i] = strconv.Itoa(i)
	}
	res, err := s.matrix(ctx, vectors, labels, s.opts.Model.NumTopics())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res, nil)
	return res, nil
}

func (s *Service) matrix(ctx context.Context, vectors [][]float64, labels []string, dim int) (*distance.Result, error) {
	opts := s.opts.Distance
	opts.Labels = labels
	opts.Dim = dim
	return distance.Matrix(ctx, vectors, opts)
}

func (s *Service) publish(ctx context.Context, res *distance.Result, unknown []string) {
	if s.opts.Publisher == nil {
		return
	}
	event := ResultEvent{
		Entities:  res.Labels,
		Distances: make([][]float64, res.Len()),
		Unknown:   unknown,
	}
	event.BuildID, _ = logger.BuildID(ctx)
	for i := range event.Distances {
		row := make([]float64, res.Len())
		for j := range row {
			row[j] = res.At(i, j)
		}
		event.Distances[i] = row
	}
	for _, ex := range res.Excluded {
		event.Excluded = append(event.Excluded, ex.Label)
	}
	if err := s.opts.Publisher.Publish(ctx, kafka.Event{Key: event.BuildID, Value: event}); err != nil {
		s.logger.Error("failed to publish similarity results", "error", err)
	}
}
