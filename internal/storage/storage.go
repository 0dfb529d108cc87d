// Package storage defines where downloaded document artifacts live.
package storage

import "context"

// BlobStore writes document artifacts and answers existence checks so the
// download stage can skip work already done by a previous run.
type BlobStore interface {
	// PutObject writes data under path, creating parent directories or
	// their equivalent, and returns the artifact's location.
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
	// Exists reports whether an artifact is already present at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Location returns the location PutObject would report for path,
	// without writing anything.
	Location(path string) string
}
