// Package math32 provides float32 vector kernels used by the distance
// package and the clustering loop.
package math32

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}

	return ret
}

// SquaredL2 calculates the squared L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		distance += (a[i] - b[i]) * (a[i] - b[i])
	}

	return distance
}

// ScaleInPlace multiplies all elements of a by scalar.
//
// This is primarily used by distance normalization and the centroid
// mean update.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// AddInPlace adds b to a element-wise.
//
// Used by the centroid accumulators during the mean update.
func AddInPlace(a, b []float32) {
	for i := range a {
		a[i] += b[i]
	}
}

// Zero sets all elements of a to zero.
func Zero(a []float32) {
	for i := range a {
		a[i] = 0
	}
}
