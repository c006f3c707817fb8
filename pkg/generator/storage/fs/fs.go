package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/foxml-generator/pkg/generator"
)

// Backend is a filesystem implementation of the generator.StoreFetcher and
// generator.ContentDeleter interfaces
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Directory receiving the content files
}

var (
	_ generator.StoreFetcher   = (*Backend)(nil)
	_ generator.ContentDeleter = (*Backend)(nil)
)

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	abs, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	return &Backend{baseDir: abs}, nil
}

// BaseDir returns the absolute directory content is written to
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// Put writes the content to a file named key below the base directory and
// returns its file: URI
func (b *Backend) Put(ctx context.Context, key string, reader io.Reader) (string, error) {
	filePath, err := b.path(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return generator.FileURI(filePath)
}

// Fetch opens a file: URI or a path
func (b *Backend) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	return generator.FileFetcher{}.Fetch(ctx, location)
}

// Delete removes the file behind a location returned by Put
func (b *Backend) Delete(ctx context.Context, location string) error {
	filePath, err := generator.LocalPath(location)
	if err != nil {
		return err
	}
	if !b.contains(filePath) {
		return fmt.Errorf("location %s is outside the base directory", location)
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.New("object not found")
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (b *Backend) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("key is required")
	}
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(key))
	if !b.contains(filePath) {
		return "", fmt.Errorf("key %q escapes base directory", key)
	}
	return filePath, nil
}

// contains reports whether filePath is a file below the base directory
func (b *Backend) contains(filePath string) bool {
	return strings.HasPrefix(filepath.Clean(filePath), b.baseDir+string(filepath.Separator))
}
