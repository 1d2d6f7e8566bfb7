package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/source"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/vocab"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/metrics"
)

const (
	passVocabulary = "vocabulary"
	passCorpus     = "corpus"
)

// Pipeline runs the vocabulary pass and then the corpus pass over the same
// source with one tokenizer.
type Pipeline struct {
	tok     vocab.Tokenizer
	opts    vocab.Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPipeline returns a pipeline. m may be nil.
func NewPipeline(tok vocab.Tokenizer, opts vocab.Options, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		tok:     tok,
		opts:    opts,
		metrics: m,
		logger:  logger.WithComponent("corpus"),
	}
}

// Run builds the vocabulary and corpus. A single-use src is rejected before
// the first pass; callers wanting to use one must Materialize it.
func (p *Pipeline) Run(ctx context.Context, src source.Source) (*vocab.Vocabulary, *Corpus, error) {
	if !src.Restartable() {
		return nil, nil, apperrors.New(apperrors.ErrStreamNotRestartable, "corpus build makes two passes over its source")
	}
	log := p.logger
	if id, ok := logger.BuildID(ctx); ok {
		log = log.With("build_id", id)
	}

	start := time.Now()
	v, err := vocab.Build(ctx, src, p.tok, p.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("vocabulary pass: %w", err)
	}
	p.metrics.Pass(passVocabulary, time.Since(start))
	p.recordSkipped(passVocabulary, src)
	st := v.Stats()
	p.metrics.Vocabulary(st.RawTokens, st.Kept)
	log.Info("vocabulary pass complete",
		"documents", st.Documents,
		"raw_tokens", st.RawTokens,
		"kept_tokens", st.Kept,
		"elapsed", time.Since(start),
	)

	start = time.Now()
	c, err := Project(ctx, src, p.tok, v)
	if err != nil {
		return nil, nil, fmt.Errorf("corpus pass: %w", err)
	}
	p.metrics.Pass(passCorpus, time.Since(start))
	p.recordSkipped(passCorpus, src)
	empty := 0
	for _, vec := range c.vectors {
		if len(vec) == 0 {
			empty++
		}
		p.metrics.Document(passCorpus, false)
	}
	p.metrics.Corpus(c.Len())
	if c.Len() != st.Documents {
		return nil, nil, apperrors.Newf(apperrors.ErrOrderingMismatch,
			"source yielded %d documents on the vocabulary pass and %d on the corpus pass", st.Documents, c.Len())
	}
	log.Info("corpus pass complete",
		"documents", c.Len(),
		"empty_documents", empty,
		"elapsed", time.Since(start),
	)
	return v, c, nil
}

func (p *Pipeline) recordSkipped(pass string, src source.Source) {
	s, ok := src.(interface{ Skipped() int })
	if !ok {
		return
	}
	if n := s.Skipped(); n > 0 {
		p.metrics.Skipped(pass, n)
		p.logger.Warn("source skipped documents", "pass", pass, "skipped", n)
	}
}
