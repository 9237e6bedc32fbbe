package ivfgo

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/ivfgo/distance"
	"github.com/hupe1980/ivfgo/resource"
	"github.com/hupe1980/ivfgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteAssign returns the exact nearest center for every sample.
func bruteAssign(samples, centers *VectorSet, distFn distance.Func) []int {
	assignments := make([]int, samples.Len())
	for j := 0; j < samples.Len(); j++ {
		best := 0
		bestDist := float32(math.MaxFloat32)
		for c := 0; c < centers.Len(); c++ {
			if d := distFn(samples.At(j), centers.At(c)); d < bestDist {
				bestDist = d
				best = c
			}
		}
		assignments[j] = best
	}
	return assignments
}

// sse returns the total within-cluster squared distance under exact
// assignments.
func sse(samples, centers *VectorSet) float64 {
	var total float64
	for j := 0; j < samples.Len(); j++ {
		min := math.MaxFloat64
		for c := 0; c < centers.Len(); c++ {
			if d := float64(distance.SquaredL2(samples.At(j), centers.At(c))); d < min {
				min = d
			}
		}
		total += min
	}
	return total
}

func TestElkanConvergesOnSeparatedClusters(t *testing.T) {
	// Scenario: 1000 samples, 10 well-separated clusters, fixed seed.
	vecs := testutil.NewRNG(42).ClusteredVectors(1000, 8, 10, 0.2)
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(10, 8)

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricL2,
		WithRand(testutil.NewRNG(7).Source()))
	require.NoError(t, err)
	require.Equal(t, 10, centers.Len())

	distFn, err := distance.KmeansProvider(distance.MetricL2)
	require.NoError(t, err)

	// The result is a fixed point of Lloyd's algorithm: recomputing the
	// means under the exact assignment reproduces the centers.
	assignments := bruteAssign(samples, centers, distFn)
	dim := samples.Dim()
	means := make([][]float64, centers.Len())
	counts := make([]int, centers.Len())
	for c := range means {
		means[c] = make([]float64, dim)
	}
	for j, c := range assignments {
		counts[c]++
		for i, v := range samples.At(j) {
			means[c][i] += float64(v)
		}
	}
	for c := range means {
		require.Positive(t, counts[c], "center %d has no members", c)
		for i := range means[c] {
			assert.InDelta(t, means[c][i]/float64(counts[c]), float64(centers.At(c)[i]), 0.02)
		}
	}

	// Every generator cluster is represented by exactly one center.
	for g := 0; g < 10; g++ {
		groupMean := make([]float32, dim)
		n := 0
		for j := g; j < len(vecs); j += 10 {
			for i, v := range vecs[j] {
				groupMean[i] += v
			}
			n++
		}
		for i := range groupMean {
			groupMean[i] /= float32(n)
		}

		best := float32(math.MaxFloat32)
		for c := 0; c < centers.Len(); c++ {
			if d := distFn(groupMean, centers.At(c)); d < best {
				best = d
			}
		}
		assert.Less(t, best, float32(1.0), "cluster %d has no nearby center", g)
	}
}

func TestElkanBoundInvariants(t *testing.T) {
	vecs := testutil.NewRNG(3).ClusteredVectors(150, 6, 5, 0.5)
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(5, 6)

	distFn, err := distance.KmeansProvider(distance.MetricL2)
	require.NoError(t, err)

	e, err := newElkanState(samples, centers, distFn, false, nil, NoopLogger())
	require.NoError(t, err)
	defer e.close()

	rng := testutil.NewRNG(17).Source()
	require.NoError(t, seedCenters(context.Background(), samples, centers, e.lowerBound, distFn, rng))
	e.initAssignments()

	const eps = 1e-3
	for iteration := 0; iteration < 5; iteration++ {
		// At the start of every iteration the lower bounds never exceed
		// the true distance and the upper bounds never undershoot it.
		for j := 0; j < e.numSamples; j++ {
			for c := 0; c < e.numCenters; c++ {
				d := distFn(samples.At(j), centers.At(c))
				assert.LessOrEqual(t, e.lowerBound[j*e.numCenters+c], d+eps,
					"iteration %d sample %d center %d", iteration, j, c)
			}

			dcx := distFn(samples.At(j), centers.At(int(e.closestCenters[j])))
			assert.GreaterOrEqual(t, e.upperBound[j]+eps, dcx,
				"iteration %d sample %d", iteration, j)
		}

		e.computeCenterDistances()
		e.assign(iteration != 0)
		e.updateMeans(rng)
		e.updateBounds()
		e.commitCenters()
	}
}

func TestElkanMonotonicSSE(t *testing.T) {
	vecs := testutil.NewRNG(5).ClusteredVectors(400, 4, 4, 0.3)
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(4, 4)

	distFn, err := distance.KmeansProvider(distance.MetricL2)
	require.NoError(t, err)

	e, err := newElkanState(samples, centers, distFn, false, nil, NoopLogger())
	require.NoError(t, err)
	defer e.close()

	rng := testutil.NewRNG(23).Source()
	require.NoError(t, seedCenters(context.Background(), samples, centers, e.lowerBound, distFn, rng))
	e.initAssignments()

	prev := sse(samples, centers)
	for iteration := 0; iteration < 10; iteration++ {
		e.computeCenterDistances()
		e.assign(iteration != 0)
		e.updateMeans(rng)
		e.updateBounds()
		e.commitCenters()

		// A randomly reseeded empty cluster may legitimately raise the
		// total; monotonicity only holds for pure Lloyd iterations.
		reseeded := false
		for _, count := range e.centerCounts {
			if count == 0 {
				reseeded = true
			}
		}

		current := sse(samples, centers)
		if !reseeded {
			assert.LessOrEqual(t, current, prev*1.001+1e-6, "iteration %d", iteration)
		}
		prev = current
	}
}

func TestElkanAllSamplesIdentical(t *testing.T) {
	// All-zero-variance input: one center becomes the sample, the rest
	// are reseeded randomly from the empty-cluster path.
	vec := []float32{0.3, 0.7, 0.1, 0.9}
	vecs := make([][]float32, 50)
	for i := range vecs {
		vecs[i] = vec
	}
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(4, 4)

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricL2,
		WithRand(testutil.NewRNG(9).Source()))
	require.NoError(t, err)
	require.Equal(t, 4, centers.Len())

	// One center is the (mean of the) repeated sample.
	found := false
	for c := 0; c < centers.Len(); c++ {
		match := true
		for i, v := range centers.At(c) {
			if math.Abs(float64(v-vec[i])) > 1e-5 {
				match = false
				break
			}
		}
		if match {
			found = true
			break
		}
	}
	assert.True(t, found, "no center matches the repeated sample")
}

func TestElkanMemoryBudgetExceeded(t *testing.T) {
	// The requirement is rejected up front, before any scratch state is
	// allocated.
	const (
		numSamples = 100000
		numCenters = 1000
		dim        = 8
	)

	samples := NewVectorSet(numSamples, dim)
	testutil.NewRNG(1).FillUniform(samples.data)
	samples.length = numSamples

	centers := NewVectorSet(numCenters, dim)

	ctrl := resource.NewController(resource.Config{MemoryBudgetBytes: 32 * 1024 * 1024})

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricL2,
		WithController(ctrl),
		WithRand(testutil.NewRNG(2).Source()))
	require.Error(t, err)

	var exceeded *resource.ErrMemoryBudgetExceeded
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, int64(32*1024*1024), exceeded.BudgetBytes)
	assert.Greater(t, exceeded.RequiredBytes, exceeded.BudgetBytes)

	// Nothing stays reserved after the rejection.
	assert.Equal(t, int64(0), ctrl.MemoryUsage())
}

func TestElkanWithControllerReleasesMemory(t *testing.T) {
	vecs := testutil.NewRNG(4).ClusteredVectors(200, 4, 4, 0.3)
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(4, 4)

	ctrl := resource.NewController(resource.Config{
		MemoryBudgetBytes: 64 * 1024 * 1024,
		PaceOpsPerSec:     10_000_000,
	})

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricL2,
		WithController(ctrl),
		WithRand(testutil.NewRNG(8).Source()))
	require.NoError(t, err)
	assert.Equal(t, int64(0), ctrl.MemoryUsage())
}

func TestElkanCancellation(t *testing.T) {
	vecs := testutil.NewRNG(6).ClusteredVectors(100, 4, 4, 0.3)
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(4, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Cluster(ctx, samples, centers, KindFloat32, distance.MetricL2,
		WithRand(testutil.NewRNG(2).Source()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestElkanIndexingOverflow(t *testing.T) {
	samples := NewVectorSet(2, 1)
	samples.Append([]float32{0})
	samples.Append([]float32{1})
	centers := &VectorSet{dim: 1, maxLen: math.MaxInt / 2}

	distFn, err := distance.KmeansProvider(distance.MetricL2)
	require.NoError(t, err)

	_, err = newElkanState(samples, centers, distFn, false, nil, NoopLogger())
	require.Error(t, err)

	var internal *InternalError
	require.ErrorAs(t, err, &internal)
	assert.Contains(t, err.Error(), "overflow")
}

func TestElkanSphericalCentersAreUnit(t *testing.T) {
	vecs := testutil.NewRNG(12).UnitVectors(200, 8)
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(5, 8)

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricCosine,
		WithRand(testutil.NewRNG(13).Source()))
	require.NoError(t, err)

	for c := 0; c < centers.Len(); c++ {
		assert.InDelta(t, 1.0, float64(distance.Norm(centers.At(c))), 1e-3)
	}
}
