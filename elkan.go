package ivfgo

import (
	"context"
	"math"
	"math/rand"

	"github.com/hupe1980/ivfgo/distance"
	"github.com/hupe1980/ivfgo/internal/arena"
	"github.com/hupe1980/ivfgo/internal/conv"
	"github.com/hupe1980/ivfgo/internal/math32"
	"github.com/hupe1980/ivfgo/resource"
)

// elkanState holds the scratch state of one clustering call. All tables
// live in a single arena backed by an anonymous mapping; close releases
// everything at once.
//
// Bound tables are flat and row-major (sample*numCenters+center) for
// cache locality.
type elkanState struct {
	samples *VectorSet
	centers *VectorSet

	distFn       distance.Func
	normRequired bool

	numSamples int
	numCenters int
	dim        int

	scratch  *arena.Scratch
	ctrl     *resource.Controller
	reserved int64

	// newCenters accumulates the per-cluster component sums, then the
	// means, of the next iteration's centers (numCenters rows of dim).
	newCenters   []float32
	centerCounts []int32

	// closestCenters[j] is the current assignment of sample j;
	// upperBound[j] an upper bound on its distance to that center.
	closestCenters []int32
	upperBound     []float32

	// lowerBound[j*numCenters+c] is a lower bound on the distance from
	// sample j to center c. halfCDist holds half the pairwise
	// inter-center distances; s[c] the minimum half-distance from c to
	// any other center.
	lowerBound []float32
	halfCDist  []float32
	s          []float32

	// newCDist[c] is the distance center c moved in the current
	// iteration, used to keep the bounds valid.
	newCDist []float32
}

// elkanKmeans refines the center set in place with Elkan's accelerated
// kmeans. It requires the distance function to satisfy the triangle
// inequality: plain L2 (not squared) for Euclidean indexes, angular
// distance for inner product and cosine.
//
// https://www.aaai.org/Papers/ICML/2003/ICML03-022.pdf
func elkanKmeans(ctx context.Context, samples, centers *VectorSet, distFn distance.Func, normRequired bool, o *options, logger *Logger) error {
	e, err := newElkanState(samples, centers, distFn, normRequired, o.controller, logger)
	if err != nil {
		return err
	}
	defer e.close()

	// Pick initial centers.
	if err := seedCenters(ctx, samples, centers, e.lowerBound, distFn, o.rng); err != nil {
		return err
	}

	// Assign each sample to its closest initial center; the seeding
	// bounds already hold the exact distances.
	e.initAssignments()

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		// Can take a while, so ensure we can interrupt. Pace doubles as
		// the throttle for background builds.
		if err := e.ctrl.Pace(ctx, e.numSamples); err != nil {
			return err
		}

		e.computeCenterDistances()

		// In the first iteration the upper bounds are exact, so the lazy
		// recomputation can be skipped.
		changes := e.assign(iteration != 0)

		e.updateMeans(o.rng)
		e.updateBounds()
		e.commitCenters()

		logger.Debug("kmeans iteration", "iteration", iteration, "changes", changes)

		if changes == 0 && iteration != 0 {
			break
		}
	}

	return nil
}

func newElkanState(samples, centers *VectorSet, distFn distance.Func, normRequired bool, ctrl *resource.Controller, logger *Logger) (*elkanState, error) {
	numSamples := samples.Len()
	numCenters := centers.Cap()
	dim := centers.Dim()

	// Ensure the flat table indexing cannot overflow.
	if numCenters > 0 && numCenters > math.MaxInt/numCenters {
		return nil, internalErrorf("indexing overflow detected: %d centers", numCenters)
	}
	lowerBoundLen64 := int64(numSamples) * int64(numCenters)
	lowerBoundLen, err := conv.Int64ToInt(lowerBoundLen64)
	if err != nil {
		return nil, internalErrorf("indexing overflow detected: %d samples x %d centers", numSamples, numCenters)
	}

	// Calculate allocation sizes. Bounds use float32 instead of float64
	// to save memory.
	var (
		newCentersSize   = int64(numCenters) * int64(dim) * 4
		centerCountsSize = int64(numCenters) * 4
		closestSize      = int64(numSamples) * 4
		lowerBoundSize   = lowerBoundLen64 * 4
		upperBoundSize   = int64(numSamples) * 4
		sSize            = int64(numCenters) * 4
		halfCDistSize    = int64(numCenters) * int64(numCenters) * 4
		newCDistSize     = int64(numCenters) * 4
	)

	scratchSize := newCentersSize + centerCountsSize + closestSize + lowerBoundSize +
		upperBoundSize + sSize + halfCDistSize + newCDistSize

	// The budget covers everything one call keeps resident, including the
	// caller-owned sample and center buffers.
	totalSize := scratchSize + samples.sizeBytes() + centers.sizeBytes()

	// Check memory requirements before allocating anything.
	if err := ctrl.ReserveMemory(totalSize); err != nil {
		return nil, err
	}

	// Headroom for the arena's per-allocation alignment padding.
	arenaSize, err := conv.Int64ToInt(scratchSize + 8*8)
	if err != nil {
		ctrl.ReleaseMemory(totalSize)
		return nil, internalErrorf("scratch size overflow: %d bytes", scratchSize)
	}

	scratch, err := arena.NewScratch(arenaSize)
	if err != nil {
		ctrl.ReleaseMemory(totalSize)
		return nil, err
	}

	e := &elkanState{
		samples:      samples,
		centers:      centers,
		distFn:       distFn,
		normRequired: normRequired,
		numSamples:   numSamples,
		numCenters:   numCenters,
		dim:          dim,
		scratch:      scratch,
		ctrl:         ctrl,
		reserved:     totalSize,
	}

	alloc := func(dst *[]float32, n int) {
		if err != nil {
			return
		}
		*dst, err = scratch.AllocFloat32Slice(n)
	}
	allocInt := func(dst *[]int32, n int) {
		if err != nil {
			return
		}
		*dst, err = scratch.AllocInt32Slice(n)
	}

	alloc(&e.newCenters, numCenters*dim)
	allocInt(&e.centerCounts, numCenters)
	allocInt(&e.closestCenters, numSamples)
	alloc(&e.lowerBound, lowerBoundLen)
	alloc(&e.upperBound, numSamples)
	alloc(&e.s, numCenters)
	alloc(&e.halfCDist, numCenters*numCenters)
	alloc(&e.newCDist, numCenters)
	if err != nil {
		e.close()
		return nil, err
	}

	logger.Debug("allocated clustering scratch",
		"estimated_bytes", totalSize,
		"scratch_bytes", scratch.Used(),
	)

	return e, nil
}

// close releases the scratch state. Safe to call more than once.
func (e *elkanState) close() {
	_ = e.scratch.Close()
	e.ctrl.ReleaseMemory(e.reserved)
	e.reserved = 0
}

// initAssignments assigns every sample to its closest seeded center using
// the exact distances the seeding wrote into the bound table.
func (e *elkanState) initAssignments() {
	for j := 0; j < e.numSamples; j++ {
		minDistance := float32(math.MaxFloat32)
		closest := 0

		for c := 0; c < e.numCenters; c++ {
			d := e.lowerBound[j*e.numCenters+c]
			if d < minDistance {
				minDistance = d
				closest = c
			}
		}

		e.upperBound[j] = minDistance
		e.closestCenters[j] = int32(closest)
	}
}

// computeCenterDistances recomputes half the pairwise inter-center
// distances and, for every center, the minimum half-distance to any other
// center. Storing the half up front avoids the 0.5 multiplications in the
// inner assignment loop.
func (e *elkanState) computeCenterDistances() {
	for a := 0; a < e.numCenters; a++ {
		vec := e.centers.At(a)

		for b := a + 1; b < e.numCenters; b++ {
			d := 0.5 * e.distFn(vec, e.centers.At(b))
			e.halfCDist[a*e.numCenters+b] = d
			e.halfCDist[b*e.numCenters+a] = d
		}
	}

	for a := 0; a < e.numCenters; a++ {
		minDistance := float32(math.MaxFloat32)

		for b := 0; b < e.numCenters; b++ {
			if a == b {
				continue
			}
			if d := e.halfCDist[a*e.numCenters+b]; d < minDistance {
				minDistance = d
			}
		}

		e.s[a] = minDistance
	}
}

// assign reevaluates every sample's closest center, skipping candidates
// whose bounds prove they cannot win. recomputeExact marks the upper
// bounds as stale: the first time a sample actually needs its current
// distance, it is recomputed exactly and both bounds tighten.
// Returns the number of reassignments.
func (e *elkanState) assign(recomputeExact bool) int {
	nc := e.numCenters
	changes := 0

	for j := 0; j < e.numSamples; j++ {
		cx := int(e.closestCenters[j])

		// The current center is provably still optimal for the whole
		// sample when u(x) <= s(c(x)).
		if e.upperBound[j] <= e.s[cx] {
			continue
		}

		rj := recomputeExact

		for c := 0; c < nc; c++ {
			if c == cx {
				continue
			}
			if e.upperBound[j] <= e.lowerBound[j*nc+c] {
				continue
			}
			if e.upperBound[j] <= e.halfCDist[cx*nc+c] {
				continue
			}

			vec := e.samples.At(j)

			// Tighten the upper bound to the exact current-center
			// distance the first time any candidate survives pruning.
			var dxcx float32
			if rj {
				dxcx = e.distFn(vec, e.centers.At(cx))

				// d(x,c(x)) is also a valid lower bound for c(x).
				e.lowerBound[j*nc+cx] = dxcx
				e.upperBound[j] = dxcx

				rj = false
			} else {
				dxcx = e.upperBound[j]
			}

			// Only compute the exact candidate distance when the
			// tightened bound still fails to prune.
			if dxcx > e.lowerBound[j*nc+c] || dxcx > e.halfCDist[cx*nc+c] {
				dxc := e.distFn(vec, e.centers.At(c))

				e.lowerBound[j*nc+c] = dxc

				if dxc < dxcx {
					cx = c
					e.closestCenters[j] = int32(c)
					e.upperBound[j] = dxc
					changes++
				}
			}
		}
	}

	return changes
}

// updateMeans computes the next centers as the mean of each cluster's
// members. Clusters that lost all their samples are reseeded with a fresh
// random vector; a smarter reseeding (e.g. splitting the largest cluster)
// would silently change convergence behavior, so the simple policy stays.
func (e *elkanState) updateMeans(rng *rand.Rand) {
	for c := 0; c < e.numCenters; c++ {
		math32.Zero(e.newCenterAt(c))
		e.centerCounts[c] = 0
	}

	for j := 0; j < e.numSamples; j++ {
		cx := int(e.closestCenters[j])
		math32.AddInPlace(e.newCenterAt(cx), e.samples.At(j))
		e.centerCounts[cx]++
	}

	for c := 0; c < e.numCenters; c++ {
		acc := e.newCenterAt(c)

		if count := e.centerCounts[c]; count > 0 {
			// Large clusters can overflow the float32 accumulators; clamp
			// infinite sums to the representable maximum before dividing.
			for i := range acc {
				if math.IsInf(float64(acc[i]), 0) {
					if acc[i] > 0 {
						acc[i] = math.MaxFloat32
					} else {
						acc[i] = -math.MaxFloat32
					}
				}
			}

			math32.ScaleInPlace(acc, 1/float32(count))
		} else {
			for i := range acc {
				acc[i] = rng.Float32()
			}
		}

		if e.normRequired {
			distance.NormalizeInPlace(acc)
		}
	}
}

// updateBounds keeps the bound tables valid across the center move: every
// lower bound shrinks by the distance its center traveled (floored at
// zero), every upper bound grows by the distance the sample's own center
// traveled.
func (e *elkanState) updateBounds() {
	for c := 0; c < e.numCenters; c++ {
		e.newCDist[c] = e.distFn(e.centers.At(c), e.newCenterAt(c))
	}

	for j := 0; j < e.numSamples; j++ {
		row := e.lowerBound[j*e.numCenters : (j+1)*e.numCenters]

		for c := range row {
			d := row[c] - e.newCDist[c]
			if d < 0 {
				d = 0
			}
			row[c] = d
		}

		e.upperBound[j] += e.newCDist[e.closestCenters[j]]
	}
}

// commitCenters replaces the centers with the freshly computed means.
func (e *elkanState) commitCenters() {
	for c := 0; c < e.numCenters; c++ {
		copy(e.centers.At(c), e.newCenterAt(c))
	}
}

func (e *elkanState) newCenterAt(c int) []float32 {
	return e.newCenters[c*e.dim : (c+1)*e.dim]
}
