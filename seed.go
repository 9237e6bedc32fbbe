package ivfgo

import (
	"context"
	"math"
	"math/rand"

	"github.com/hupe1980/ivfgo/distance"
)

// seedCenters picks the initial centers with kmeans++: each new center is
// drawn from the samples with probability proportional to the squared
// distance from the already-chosen centers.
//
// As a side effect it fills lowerBound (row-major, numSamples rows of
// numCenters columns) with the exact distance from every sample to every
// center at the time that center was chosen, which the clustering loop
// uses as its initial bound table. The final round only finalizes bounds
// and chooses no center.
//
// https://theory.stanford.edu/~sergei/papers/kMeansPP-soda.pdf
func seedCenters(ctx context.Context, samples, centers *VectorSet, lowerBound []float32, distFn distance.Func, rng *rand.Rand) error {
	numCenters := centers.Cap()
	numSamples := samples.Len()

	// weight[j] tracks the squared distance from sample j to its nearest
	// chosen center so far.
	weight := make([]float32, numSamples)
	for j := range weight {
		weight[j] = math.MaxFloat32
	}

	// Choose an initial center uniformly at random.
	centers.Append(samples.At(rng.Intn(numSamples)))

	for i := 0; i < numCenters; i++ {
		// Can take a while, so ensure we can interrupt.
		if err := ctx.Err(); err != nil {
			return err
		}

		var sum float64

		for j := 0; j < numSamples; j++ {
			// Only need to compute distance for the newest center.
			d := distFn(samples.At(j), centers.At(i))

			lowerBound[j*numCenters+i] = d

			// Distance squared for the weighted probability distribution.
			d *= d
			if d < weight[j] {
				weight[j] = d
			}

			sum += float64(weight[j])
		}

		// The last round only computes bounds.
		if i+1 == numCenters {
			break
		}

		// Choose the next center using the weighted probability
		// distribution; ties and rounding overrun fall through to the
		// last sample.
		choice := sum * rng.Float64()

		var j int
		for j = 0; j < numSamples-1; j++ {
			choice -= float64(weight[j])
			if choice <= 0 {
				break
			}
		}

		centers.Append(samples.At(j))
	}

	return nil
}
