package ivfgo

import "fmt"

// ErrUnsupportedVectorKind indicates a vector representation the engine
// does not support. Only KindFloat32 is currently handled.
type ErrUnsupportedVectorKind struct {
	Kind VectorKind
}

func (e *ErrUnsupportedVectorKind) Error() string {
	return fmt.Sprintf("unsupported vector kind: %s", e.Kind)
}

// ErrDimensionMismatch indicates that the sample and center sets disagree
// on vector dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// InternalError indicates an algorithmic defect rather than bad input:
// post-condition checks on the produced centers failing, or indexing
// overflow inside the clustering loop. Never retried.
type InternalError struct {
	msg string
}

func (e *InternalError) Error() string {
	return "ivfgo: " + e.msg + " (please report a bug)"
}

func internalErrorf(format string, args ...any) *InternalError {
	return &InternalError{msg: fmt.Sprintf(format, args...)}
}
