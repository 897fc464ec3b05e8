// Package embedding turns raw image bytes into face embedding vectors.
//
// The inference model lives in a separate process (an InsightFace-style
// sidecar); this package holds the client for it and the Provider boundary
// that the rest of the system depends on. Providers are constructed
// explicitly and injected — there is no process-wide model singleton.
package embedding

import "context"

// Provider extracts one embedding vector per face detected in an image.
// An image with no detectable faces yields an empty slice and no error.
// Errors are transient (model unavailable, bad image) and should be
// surfaced as "no faces found" rather than crash the caller.
type Provider interface {
	Extract(ctx context.Context, imageBytes []byte) ([][]float32, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, imageBytes []byte) ([][]float32, error)

// Extract implements Provider.
func (f ProviderFunc) Extract(ctx context.Context, imageBytes []byte) ([][]float32, error) {
	return f(ctx, imageBytes)
}
