// Package distance provides the distance and norm capabilities used for
// centroid training.
//
// Elkan's accelerated k-means relies on the triangle inequality, so the
// training distance for a metric is a true metric: plain L2 for Euclidean
// indexes, and angular distance (rather than the raw similarity) for
// cosine and inner-product indexes. Spherical metrics additionally require
// unit vectors; see NormRequired.
package distance

import (
	"fmt"
	"math"

	"github.com/hupe1980/ivfgo/internal/math32"
)

// Metric represents the distance metric an index is built for.
type Metric int

const (
	MetricL2 Metric = iota
	MetricCosine
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricCosine:
		return "Cosine"
	case MetricDot:
		return "Dot"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return math32.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return math32.SquaredL2(a, b)
}

// L2 calculates the L2 (Euclidean) distance between two vectors.
func L2(a, b []float32) float32 {
	return float32(math.Sqrt(float64(math32.SquaredL2(a, b))))
}

// Angular calculates the angular distance between two unit vectors,
// normalized to [0, 1]. Unlike cosine similarity it satisfies the
// triangle inequality.
func Angular(a, b []float32) float32 {
	sim := float64(math32.Dot(a, b))

	// Guard against rounding outside acos' domain.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}

	return float32(math.Acos(sim) / math.Pi)
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(math32.Dot(v, v))))
}

// NormalizeInPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeInPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := math32.Dot(v, v)
	if norm2 == 0 {
		return false
	}
	math32.ScaleInPlace(v, 1/float32(math.Sqrt(float64(norm2))))
	return true
}

// KmeansProvider returns the training distance function for the given
// metric. The returned function is a true metric (commutative, satisfies
// the triangle inequality), which Elkan's algorithm depends on.
func KmeansProvider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return L2, nil
	case MetricCosine, MetricDot:
		return Angular, nil
	default:
		return nil, fmt.Errorf("unsupported metric for kmeans: %v", m)
	}
}

// NormRequired reports whether the metric clusters on the unit sphere and
// therefore requires normalized centroids.
func NormRequired(m Metric) bool {
	return m == MetricCosine || m == MetricDot
}
