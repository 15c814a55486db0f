package ports

import "context"

// BlobStore persists encrypted artifacts under content-derived locators
type BlobStore interface {
	Put(ctx context.Context, data []byte, name string) (string, error)
	Get(ctx context.Context, locator string) ([]byte, error)
}
