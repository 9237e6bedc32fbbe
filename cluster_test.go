package ivfgo

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/hupe1980/ivfgo/distance"
	"github.com/hupe1980/ivfgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterUnsupportedKind(t *testing.T) {
	samples := VectorSetOf([][]float32{{1, 2}})
	centers := NewVectorSet(1, 2)

	for _, kind := range []VectorKind{KindFloat16, KindBinary, VectorKind(42)} {
		err := Cluster(context.Background(), samples, centers, kind, distance.MetricL2)
		require.Error(t, err)

		var unsupported *ErrUnsupportedVectorKind
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, kind, unsupported.Kind)
	}
}

func TestClusterDimensionMismatch(t *testing.T) {
	samples := VectorSetOf([][]float32{{1, 2, 3}})
	centers := NewVectorSet(1, 2)

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricL2)
	require.Error(t, err)

	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)
}

func TestClusterUnsupportedMetric(t *testing.T) {
	samples := VectorSetOf([][]float32{{1, 2}})
	centers := NewVectorSet(1, 2)

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.Metric(99))
	assert.Error(t, err)
}

func TestClusterPostconditions(t *testing.T) {
	for _, metric := range []distance.Metric{distance.MetricL2, distance.MetricCosine} {
		rng := testutil.NewRNG(21)

		var vecs [][]float32
		if metric == distance.MetricL2 {
			vecs = rng.ClusteredVectors(300, 6, 6, 0.4)
		} else {
			vecs = rng.UnitVectors(300, 6)
		}

		samples := VectorSetOf(vecs)
		centers := NewVectorSet(6, 6)

		err := Cluster(context.Background(), samples, centers, KindFloat32, metric,
			WithRand(rng.Source()))
		require.NoError(t, err, "metric %s", metric)

		// Complete, distinct, finite; the validator enforced this, but the
		// properties hold for the returned set either way.
		require.Equal(t, centers.Cap(), centers.Len())
		for i := 1; i < centers.Len(); i++ {
			assert.False(t, vectorsBitEqual(centers.At(i), centers.At(i-1)))
		}
		if distance.NormRequired(metric) {
			for i := 0; i < centers.Len(); i++ {
				assert.Positive(t, distance.Norm(centers.At(i)))
			}
		}
	}
}

func TestClusterMaxIterationsOption(t *testing.T) {
	vecs := testutil.NewRNG(31).ClusteredVectors(100, 4, 4, 0.4)
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(4, 4)

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricL2,
		WithRand(testutil.NewRNG(32).Source()),
		WithMaxIterations(1))
	require.NoError(t, err)
	assert.Equal(t, 4, centers.Len())
}

func TestClusterDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	vecs := testutil.NewRNG(41).ClusteredVectors(100, 4, 4, 0.4)
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(4, 4)

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricL2,
		WithRand(testutil.NewRNG(42).Source()),
		WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "kmeans iteration")
	assert.Contains(t, out, "changes")
}

func TestClusterQuickPathDispatch(t *testing.T) {
	// numSamples == numCenters dispatches to the quick path: the samples
	// themselves come back as centers.
	vecs := [][]float32{{0, 0}, {10, 10}}
	samples := VectorSetOf(vecs)
	centers := NewVectorSet(2, 2)

	err := Cluster(context.Background(), samples, centers, KindFloat32, distance.MetricL2,
		WithRand(testutil.NewRNG(51).Source()))
	require.NoError(t, err)
	assert.True(t, containsVector(centers, []float32{0, 0}))
	assert.True(t, containsVector(centers, []float32{10, 10}))
}
