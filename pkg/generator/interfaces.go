package generator

import (
	"context"
	"io"
)

// ContentStore persists generated version content
type ContentStore interface {
	// Put stores the content read from r under key and returns the URI the
	// content can be fetched from afterwards.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}

// Fetcher reads content referenced by a URI
type Fetcher interface {
	// Fetch opens the content at location. The caller closes the reader.
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// ContentDeleter is implemented by stores that can remove content again. The
// generator uses it to discard the content of objects it failed to write.
type ContentDeleter interface {
	// Delete removes the content behind a location returned by Put.
	Delete(ctx context.Context, location string) error
}

// StoreFetcher is implemented by stores that can read back what they wrote.
type StoreFetcher interface {
	ContentStore
	Fetcher
}

// SchemeStore is a StoreFetcher whose locations use a dedicated URI scheme,
// e.g. "s3" or "memory". The generator registers it for fetching.
type SchemeStore interface {
	StoreFetcher
	Scheme() string
}
