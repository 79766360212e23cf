package core

import (
	"context"
	"io"
)

// BlobStorage stores binary objects (uploaded images) and serves them from a public URL.
type BlobStorage interface {
	// Put stores the content of r under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Delete removes the object stored under key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// KeyFromURL returns the key of the object served at url.
	KeyFromURL(url string) (string, error)
}
