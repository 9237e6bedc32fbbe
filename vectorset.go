package ivfgo

import (
	"math"
	"sort"
)

// VectorSet is a fixed-capacity collection of float32 vectors stored in a
// single flat, row-major buffer. A set distinguishes its current length
// (populated vectors) from its capacity (the final required count); center
// sets grow monotonically from empty while seeding fills them.
type VectorSet struct {
	data   []float32
	dim    int
	length int
	maxLen int
}

// NewVectorSet creates an empty VectorSet with the given capacity and
// dimensionality.
func NewVectorSet(maxLen, dim int) *VectorSet {
	return &VectorSet{
		data:   make([]float32, maxLen*dim),
		dim:    dim,
		maxLen: maxLen,
	}
}

// VectorSetOf creates a fully-populated VectorSet copying the given
// vectors. All vectors must have the same length.
func VectorSetOf(vectors [][]float32) *VectorSet {
	if len(vectors) == 0 {
		return &VectorSet{}
	}

	s := NewVectorSet(len(vectors), len(vectors[0]))
	for _, v := range vectors {
		s.Append(v)
	}
	return s
}

// Len returns the number of populated vectors.
func (s *VectorSet) Len() int { return s.length }

// Cap returns the capacity of the set.
func (s *VectorSet) Cap() int { return s.maxLen }

// Dim returns the vector dimensionality.
func (s *VectorSet) Dim() int { return s.dim }

// At returns the i-th vector slot. i must be < Cap; slots at index >= Len
// are valid memory but not yet populated.
func (s *VectorSet) At(i int) []float32 {
	return s.data[i*s.dim : (i+1)*s.dim : (i+1)*s.dim]
}

// Append copies vec into the next free slot.
func (s *VectorSet) Append(vec []float32) {
	copy(s.At(s.length), vec)
	s.length++
}

// next returns the next free slot and marks it populated. The caller
// fills it in place.
func (s *VectorSet) next() []float32 {
	vec := s.At(s.length)
	s.length++
	return vec
}

// sizeBytes returns the size of the backing buffer in bytes.
func (s *VectorSet) sizeBytes() int64 {
	return int64(s.maxLen) * int64(s.dim) * 4
}

// sortInPlace orders the populated vectors by total vector order.
func (s *VectorSet) sortInPlace() {
	sort.Sort(&vectorSetSorter{s: s, tmp: make([]float32, s.dim)})
}

type vectorSetSorter struct {
	s   *VectorSet
	tmp []float32
}

func (v *vectorSetSorter) Len() int { return v.s.length }

func (v *vectorSetSorter) Less(i, j int) bool {
	return compareVectors(v.s.At(i), v.s.At(j)) < 0
}

func (v *vectorSetSorter) Swap(i, j int) {
	copy(v.tmp, v.s.At(i))
	copy(v.s.At(i), v.s.At(j))
	copy(v.s.At(j), v.tmp)
}

// compareVectors orders vectors lexicographically by component value.
func compareVectors(a, b []float32) int {
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// vectorsBitEqual reports whether two vectors are bit-for-bit identical.
// Stricter than value comparison: 0 and -0 compare equal but are not
// bit-equal, matching binary duplicate detection.
func vectorsBitEqual(a, b []float32) bool {
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}
