package ivfgo

import (
	"math/rand"
	"sort"

	"github.com/hupe1980/ivfgo/distance"
)

// quickCenters handles the degenerate case where the sample count does
// not exceed the requested center count: the distinct samples become
// centers directly and the remaining slots are padded with uniform random
// vectors, normalized when the metric clusters on the unit sphere.
func quickCenters(samples, centers *VectorSet, normRequired bool, rng *rand.Rand) error {
	// Copy existing vectors while avoiding duplicates. The sample set is
	// read-only, so order an index permutation instead of the set itself.
	if samples.Len() > 0 {
		order := make([]int, samples.Len())
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			return compareVectors(samples.At(order[a]), samples.At(order[b])) < 0
		})

		for i, idx := range order {
			vec := samples.At(idx)
			if i == 0 || !vectorsBitEqual(vec, samples.At(order[i-1])) {
				centers.Append(vec)
			}
		}
	}

	// Fill remaining with random data.
	for centers.Len() < centers.Cap() {
		vec := centers.next()
		for j := range vec {
			vec[j] = rng.Float32()
		}

		// Normalization is only needed for the random centers; copied
		// samples are already unit vectors under spherical metrics.
		if normRequired {
			distance.NormalizeInPlace(vec)
		}
	}

	return nil
}
