//go:build !cuda

package gpubackend

import "errors"

// newCUDABackend is the no-op stand-in linked into binaries built without
// the "cuda" tag; Select always falls back to the CPU backend.
func newCUDABackend() (Backend, error) {
	return nil, errors.New("gpubackend: built without cuda support")
}
