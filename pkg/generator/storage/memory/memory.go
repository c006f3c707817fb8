package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tendant/foxml-generator/pkg/generator"
)

// Scheme is the URI scheme of locations returned by the memory backend
const Scheme = "memory"

// Backend is an in-memory implementation of the generator.SchemeStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var (
	_ generator.SchemeStore    = (*Backend)(nil)
	_ generator.ContentDeleter = (*Backend)(nil)
)

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// Scheme returns "memory"
func (b *Backend) Scheme() string {
	return Scheme
}

// Put stores content under key and returns memory:///key
func (b *Backend) Put(ctx context.Context, key string, reader io.Reader) (string, error) {
	if key == "" {
		return "", errors.New("key is required")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = data
	return Scheme + ":///" + key, nil
}

// Fetch returns the content behind a memory:/// location
func (b *Backend) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	key, ok := strings.CutPrefix(location, Scheme+":///")
	if !ok {
		return nil, fmt.Errorf("not a memory location: %s", location)
	}
	data, err := b.Get(key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Get returns a copy of the content stored under key
func (b *Backend) Get(key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[key]
	if !exists {
		return nil, errors.New("object not found")
	}
	return bytes.Clone(data), nil
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// Delete removes the content behind a memory:/// location
func (b *Backend) Delete(ctx context.Context, location string) error {
	key, ok := strings.CutPrefix(location, Scheme+":///")
	if !ok {
		return fmt.Errorf("not a memory location: %s", location)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; !exists {
		return errors.New("object not found")
	}
	delete(b.objects, key)
	return nil
}
