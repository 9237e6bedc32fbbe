//go:build windows

package mmap

// Windows has no anonymous mmap equivalent we need here; a plain heap
// allocation keeps the API identical and lets the GC reclaim it on Close.
func mapAnon(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), nil, nil
}
