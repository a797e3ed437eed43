//go:build !cgo

package extract

import (
	"context"

	"abicompat/internal/model"
)

// Extractor parses headers.
// This is a stub implementation when CGO is not available.
type Extractor struct{}

// New creates an extractor.
// Returns nil when CGO is not available.
func New(opts Options) *Extractor {
	return nil
}

// IsAvailable returns whether header extraction is available.
func IsAvailable() bool {
	return false
}

// ExtractFile reads and parses one header.
func (e *Extractor) ExtractFile(ctx context.Context, file string) ([]model.RawDeclaration, error) {
	return nil, ErrNoCGO
}

// ExtractSource parses header source.
func (e *Extractor) ExtractSource(ctx context.Context, file string, source []byte) ([]model.RawDeclaration, error) {
	return nil, ErrNoCGO
}
