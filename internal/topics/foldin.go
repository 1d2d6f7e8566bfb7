package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

const (
	foldInIterations = 50
	foldInTolerance  = 1e-6
)

// WordTopics folds new documents into a trained topic-word matrix. Each
// topic row is a distribution over vocabulary ids. Inference holds the
// topics fixed and iterates the document mixture to a fixed point under a
// symmetric Dirichlet prior Alpha.
type WordTopics struct {
	Alpha  float64     `json:"alpha"`
	Topics [][]float64 `json:"topics"`
}

// LoadWordTopics reads a JSON snapshot {"alpha": a, "topics": [[...], ...]}.
func LoadWordTopics(path string) (*WordTopics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topic model: %w", err)
	}
	var m WordTopics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: %v", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *WordTopics) validate() error {
	if len(m.Topics) == 0 {
		return apperrors.New(apperrors.ErrInvalidInput, "topic model has no topics")
	}
	if m.Alpha < 0 || math.IsNaN(m.Alpha) {
		return apperrors.Newf(apperrors.ErrInvalidInput, "alpha %v must be >= 0", m.Alpha)
	}
	v := len(m.Topics[0])
	for k, row := range m.Topics {
		if len(row) != v {
			return apperrors.Newf(apperrors.ErrInvalidInput, "topic %d has %d words, want %d", k, len(row), v)
		}
		for _, p := range row {
			if p < 0 || math.IsNaN(p) {
				return apperrors.Newf(apperrors.ErrInvalidInput, "topic %d has a negative or NaN weight", k)
			}
		}
	}
	return nil
}

func (m *WordTopics) NumTopics() int { return len(m.Topics) }

// InferTopics returns the document's topic mixture. Ids outside the model's
// vocabulary are ignored; an empty document gets the uniform mixture.
func (m *WordTopics) InferTopics(ctx context.Context, doc bow.Vector) ([]float64, error) {
	k := len(m.Topics)
	if k == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "topic model has no topics")
	}
	theta := make([]float64, k)
	for i := range theta {
		theta[i] = 1 / float64(k)
	}

	vocabSize := len(m.Topics[0])
	words := make(bow.Vector, 0, len(doc))
	for _, e := range doc {
		if e.ID < vocabSize {
			words = append(words, e)
		}
	}
	if len(words) == 0 {
		return theta, nil
	}

	next := make([]float64, k)
	resp := make([]float64, k)
	for iter := 0; iter < foldInIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range next {
			next[i] = m.Alpha
		}
		for _, e := range words {
			for j := range resp {
				resp[j] = theta[j] * m.Topics[j][e.ID]
			}
			norm := floats.Sum(resp)
			if norm == 0 {
				continue
			}
			floats.AddScaled(next, float64(e.Count)/norm, resp)
		}
		total := floats.Sum(next)
		if total == 0 {
			return theta, nil
		}
		floats.Scale(1/total, next)
		delta := floats.Distance(theta, next, 1)
		copy(theta, next)
		if delta < foldInTolerance {
			break
		}
	}
	return theta, nil
}
