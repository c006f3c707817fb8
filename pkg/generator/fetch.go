package generator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// SchemeFetcher dispatches to a Fetcher registered for the location's URI
// scheme. Locations without a scheme are treated as local paths.
type SchemeFetcher struct {
	fetchers map[string]Fetcher
}

// NewSchemeFetcher creates a fetcher for file, http and https locations.
func NewSchemeFetcher() *SchemeFetcher {
	httpFetcher := &HTTPFetcher{Client: http.DefaultClient}
	return &SchemeFetcher{
		fetchers: map[string]Fetcher{
			"":      FileFetcher{},
			"file":  FileFetcher{},
			"http":  httpFetcher,
			"https": httpFetcher,
		},
	}
}

// Register adds or replaces the fetcher for scheme.
func (f *SchemeFetcher) Register(scheme string, fetcher Fetcher) {
	f.fetchers[strings.ToLower(scheme)] = fetcher
}

// Fetch opens location with the fetcher registered for its scheme.
func (f *SchemeFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	fetcher, ok := f.fetchers[schemeOf(location)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, location)
	}
	return fetcher.Fetch(ctx, location)
}

// schemeOf returns the lower-cased URI scheme, or "" for plain paths
// (including Windows drive letters).
func schemeOf(location string) string {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) < 2 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// FileFetcher opens file: URIs and plain paths.
type FileFetcher struct{}

// Fetch opens the local file behind location.
func (FileFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	path, err := LocalPath(location)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// HTTPFetcher downloads http and https locations.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch issues a GET for location. Non-200 responses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", location, resp.Status)
	}
	return resp.Body, nil
}

// FileURI returns the absolute file: URI of path.
func FileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String(), nil
}

// LocalPath converts a file: URI or plain path to a filesystem path.
func LocalPath(location string) (string, error) {
	switch schemeOf(location) {
	case "":
		return location, nil
	case "file":
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("invalid file uri %s: %w", location, err)
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if len(path) > 2 && path[0] == '/' && path[2] == ':' {
			path = path[1:]
		}
		return filepath.FromSlash(path), nil
	}
	return "", fmt.Errorf("%w: %s is not a local path", ErrUnsupportedScheme, location)
}
