package distance

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/metrics"
)

// Options controls a matrix computation.
type Options struct {
	// Dim is the required vector length. Zero takes the length of the first
	// vector.
	Dim int
	// SumTolerance, when positive, rejects vectors whose sum strays further
	// than this from 1.
	SumTolerance float64
	// Strict aborts on the first invalid vector instead of excluding it.
	Strict bool
	// Workers bounds the goroutines computing rows. Zero means GOMAXPROCS.
	Workers int
	// Labels name the input vectors; missing labels default to the index.
	Labels  []string
	Metrics *metrics.Metrics
}

// Exclusion records an input vector left out of the matrix. Index is -1
// when the vector could not be obtained at all.
type Exclusion struct {
	Index int
	Label string
	Err   error
}

// Result is a distance matrix over the valid inputs, in input order.
type Result struct {
	// Matrix is nil when no input survived validation.
	Matrix *mat.SymDense
	// Labels and Indices describe matrix row i: its label and its position
	// in the input slice.
	Labels   []string
	Indices  []int
	Excluded []Exclusion
}

// Len returns the matrix dimension.
func (r *Result) Len() int { return len(r.Indices) }

// At returns the distance between rows i and j.
func (r *Result) At(i, j int) float64 { return r.Matrix.At(i, j) }

// Matrix computes all pairwise Hellinger distances between the valid
// vectors. Square roots are taken once per vector; only the upper triangle
// is evaluated, each row on its own goroutine, and mirrored.
func Matrix(ctx context.Context, vectors [][]float64, opts Options) (*Result, error) {
	start := time.Now()
	logger := slog.Default().With("component", "distance")

	dim := opts.Dim
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}

	res := &Result{}
	roots := make([][]float64, 0, len(vectors))
	for i, v := range vectors {
		label := labelAt(opts.Labels, i)
		if err := Validate(v, dim, opts.SumTolerance); err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("vector %d (%s): %w", i, label, err)
			}
			logger.Warn("excluding invalid topic vector", "index", i, "label", label, "error", err)
			res.Excluded = append(res.Excluded, Exclusion{Index: i, Label: label, Err: err})
			continue
		}
		res.Labels = append(res.Labels, label)
		res.Indices = append(res.Indices, i)
		roots = append(roots, sqrtAll(v))
	}

	n := len(roots)
	if n == 0 {
		opts.Metrics.Matrix(0, len(res.Excluded), time.Since(start))
		return res, nil
	}

	data := make([]float64, n*n)
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < n; j++ {
				d := hellingerSqrt(roots[i], roots[j])
				data[i*n+j] = d
				data[j*n+i] = d
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing distance matrix: %w", err)
	}
	res.Matrix = mat.NewSymDense(n, data)

	opts.Metrics.Matrix(n*(n+1)/2, len(res.Excluded), time.Since(start))
	logger.Debug("distance matrix computed",
		"size", n,
		"excluded", len(res.Excluded),
		"elapsed", time.Since(start),
	)
	return res, nil
}

func labelAt(labels []string, i int) string {
	if i < len(labels) && labels[i] != "" {
		return labels[i]
	}
	return fmt.Sprintf("%d", i)
}
