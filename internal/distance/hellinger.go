// Package distance computes Hellinger distances between topic
// distributions and assembles them into symmetric matrices.
package distance

import (
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// overshoot is the rounding slack above 1 that is clamped back to 1.
const overshoot = 1e-9

// Hellinger returns sqrt(sum((sqrt(p_k) - sqrt(q_k))^2)) / sqrt(2). p and q
// must have equal length and finite, non-negative entries.
func Hellinger(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, apperrors.Newf(apperrors.ErrInvalidDistribution, "length %d vs %d", len(p), len(q))
	}
	if err := Validate(p, len(p), 0); err != nil {
		return 0, err
	}
	if err := Validate(q, len(q), 0); err != nil {
		return 0, err
	}
	return hellingerSqrt(sqrtAll(p), sqrtAll(q)), nil
}

// Validate checks that p has length dim and finite, non-negative entries.
// A positive sumTolerance additionally requires |sum(p) - 1| <= sumTolerance.
func Validate(p []float64, dim int, sumTolerance float64) error {
	if len(p) != dim {
		return apperrors.Newf(apperrors.ErrInvalidDistribution, "length %d, want %d", len(p), dim)
	}
	sum := 0.0
	for k, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.Newf(apperrors.ErrInvalidDistribution, "component %d is %v", k, v)
		}
		if v < 0 {
			return apperrors.Newf(apperrors.ErrInvalidDistribution, "component %d is negative (%v)", k, v)
		}
		sum += v
	}
	if sumTolerance > 0 && math.Abs(sum-1) > sumTolerance {
		return apperrors.Newf(apperrors.ErrInvalidDistribution, "sums to %v", sum)
	}
	return nil
}

func sqrtAll(p []float64) []float64 {
	out := make([]float64, len(p))
	for k, v := range p {
		out[k] = math.Sqrt(v)
	}
	return out
}

// hellingerSqrt takes vectors already passed through sqrtAll.
func hellingerSqrt(sp, sq []float64) float64 {
	sum := 0.0
	for k := range sp {
		d := sp[k] - sq[k]
		sum += d * d
	}
	h := math.Sqrt(sum) / math.Sqrt2
	if h > 1 && h <= 1+overshoot {
		h = 1
	}
	return h
}
