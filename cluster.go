package ivfgo

import (
	"context"
	"fmt"

	"github.com/hupe1980/ivfgo/distance"
)

// VectorKind discriminates the concrete vector representation of a set.
type VectorKind int

const (
	// KindFloat32 is the only representation the engine currently supports.
	KindFloat32 VectorKind = iota
	// KindFloat16 is reserved for half-precision vectors.
	KindFloat16
	// KindBinary is reserved for bit vectors.
	KindBinary
)

func (k VectorKind) String() string {
	switch k {
	case KindFloat32:
		return "float32"
	case KindFloat16:
		return "float16"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Cluster computes centers.Cap() representative centers from the sample
// set and fills the center set in place. Spherical k-means is used for
// inner product and cosine metrics.
//
// The center set must be empty on entry. When the sample count does not
// exceed the requested center count, the deduplicated samples are reused
// as centers directly and the remainder is padded with random vectors;
// otherwise the full clustering loop runs. The produced centers are
// validated unconditionally.
func Cluster(ctx context.Context, samples, centers *VectorSet, kind VectorKind, metric distance.Metric, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if kind != KindFloat32 {
		return &ErrUnsupportedVectorKind{Kind: kind}
	}

	if samples.Len() > 0 && samples.Dim() != centers.Dim() {
		return &ErrDimensionMismatch{Expected: centers.Dim(), Actual: samples.Dim()}
	}

	distFn, err := distance.KmeansProvider(metric)
	if err != nil {
		return err
	}
	normRequired := distance.NormRequired(metric)

	logger := o.logger.WithDimension(centers.Dim()).WithCenters(centers.Cap()).WithSamples(samples.Len())

	if err := o.controller.AcquireBuild(ctx); err != nil {
		return err
	}
	defer o.controller.ReleaseBuild()

	if samples.Len() <= centers.Cap() {
		logger.Debug("clustering via quick path")
		err = quickCenters(samples, centers, normRequired, o.rng)
	} else {
		logger.Debug("clustering via elkan kmeans")
		err = elkanKmeans(ctx, samples, centers, distFn, normRequired, o, logger)
	}
	if err != nil {
		return err
	}

	return checkCenters(centers, metric)
}
