package ivfgo

import (
	"math"

	"github.com/hupe1980/ivfgo/distance"
)

// checkCenters verifies the produced center set. Every failure here means
// a defect in seeding or the clustering loop, not bad input, so all
// errors are InternalError.
func checkCenters(centers *VectorSet, metric distance.Metric) error {
	if centers.Len() != centers.Cap() {
		return internalErrorf("not enough centers: have %d, want %d", centers.Len(), centers.Cap())
	}

	// Ensure no NaN or infinite values.
	for i := 0; i < centers.Len(); i++ {
		for _, v := range centers.At(i) {
			if math.IsNaN(float64(v)) {
				return internalErrorf("NaN detected in center %d", i)
			}
			if math.IsInf(float64(v), 0) {
				return internalErrorf("infinite value detected in center %d", i)
			}
		}
	}

	// Ensure no duplicate centers. The centers are returned as a set, so
	// sorting in place is fine.
	centers.sortInPlace()

	for i := 1; i < centers.Len(); i++ {
		if vectorsBitEqual(centers.At(i), centers.At(i-1)) {
			return internalErrorf("duplicate centers detected")
		}
	}

	// Ensure no zero vectors under metrics that normalize.
	if distance.NormRequired(metric) {
		for i := 0; i < centers.Len(); i++ {
			if distance.Norm(centers.At(i)) == 0 {
				return internalErrorf("zero norm detected in center %d", i)
			}
		}
	}

	return nil
}
