package blocker

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cognicore/psl/pkg/psl/internalerr"
)

var (
	// generationsTotal counts GenerateTerms calls by result.
	// Labels: "success", "shape", "unsupported_constraint", "over_constrained", "canceled", "other"
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "psl_blocker_generations_total",
		Help: "Total constraint-blocker generations by result",
	}, []string{"result"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "psl_blocker_generation_duration_seconds",
		Help:    "Constraint-blocker generation duration",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	})

	blocksPerGeneration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "psl_blocker_blocks",
		Help:    "Blocks produced per successful generation",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, internalerr.ErrShape):
		return "shape"
	case errors.Is(err, internalerr.ErrUnsupportedConstraint):
		return "unsupported_constraint"
	case errors.Is(err, internalerr.ErrOverConstrainedAtom):
		return "over_constrained"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
