package storage

import "context"

// ObjectStore is the durable home for design images. Implementations own
// the shape of their download URLs, so translating a URL back to an
// object path lives here and not in the design service.
type ObjectStore interface {
	// Put writes data at path, overwriting any existing object.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// DownloadURL resolves a durable, publicly fetchable URL for the
	// object at path.
	DownloadURL(ctx context.Context, path string) (string, error)

	// Delete removes the object at path.
	Delete(ctx context.Context, path string) error

	// PathFromURL recovers the object path from a download URL this
	// store produced.
	PathFromURL(rawURL string) (string, error)

	// ListPrefix returns all object paths under prefix.
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
}
