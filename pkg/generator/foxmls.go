package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tendant/foxml-generator/pkg/foxml"
)

// ErrUnsupportedCompression indicates an unknown output compression
var ErrUnsupportedCompression = errors.New("unsupported compression")

// Compression selects how FOXML output files are encoded.
type Compression string

// Compression constants
const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression parses a compression name; "" means none.
func ParseCompression(s string) (Compression, error) {
	c := Compression(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		c = CompressionNone
	}
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCompression, s)
	}
	return c, nil
}

// Valid reports whether c is a known compression.
func (c Compression) Valid() bool {
	switch c {
	case CompressionNone, CompressionGzip, CompressionZstd:
		return true
	}
	return false
}

// Extension returns the file name suffix for output files.
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".xml.gz"
	case CompressionZstd:
		return ".xml.zst"
	}
	return ".xml"
}

// WriteFOXML serializes obj to a new testfoxml-*.xml file in dir and returns
// its path. With embed set, the object's managed datastreams are written by
// value. A partially written file is removed on failure.
func (g *Generator) WriteFOXML(ctx context.Context, obj *foxml.Object, dir string, embed bool) (path string, err error) {
	file, err := os.CreateTemp(dir, "testfoxml-*"+g.compression.Extension())
	if err != nil {
		return "", &GenerationError{Op: "create foxml file", Path: dir, Err: err}
	}
	path = file.Name()
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &GenerationError{Op: "close foxml file", Path: path, Err: cerr}
		}
		if err != nil {
			os.Remove(path)
			path = ""
		}
	}()

	out, err := g.compressor(file)
	if err != nil {
		return path, &GenerationError{Op: "compress foxml", Path: path, Err: err}
	}

	writer := foxml.NewWriter(g.fetcher)
	if embed {
		writer.SetManagedDatastreamsToEmbed(obj.DatastreamIDs()...)
	}
	if err := writer.WriteObject(ctx, obj, out); err != nil {
		out.Close()
		return path, &GenerationError{Op: "write foxml", Path: path, Err: err}
	}
	if err := out.Close(); err != nil {
		return path, &GenerationError{Op: "compress foxml", Path: path, Err: err}
	}

	g.logger.Debug("wrote foxml", "pid", obj.PID, "path", path)
	return path, nil
}

// FOXMLFromRandomData generates an object from random data and writes it to
// dir. If the FOXML cannot be written, the stored random content is deleted
// when the store supports it.
func (g *Generator) FOXMLFromRandomData(ctx context.Context, n int, size int64, dir string, cg foxml.ControlGroup) (string, error) {
	obj, err := g.ObjectFromRandomData(ctx, n, size, cg)
	if err != nil {
		return "", err
	}
	path, err := g.WriteFOXML(ctx, obj, dir, false)
	if err != nil {
		g.discardContent(ctx, obj.Datastreams()...)
		return "", err
	}
	return path, nil
}

// InlineFOXMLFromRandomData generates a managed object whose random content
// is embedded in the FOXML as base64.
func (g *Generator) InlineFOXMLFromRandomData(ctx context.Context, n int, size int64, dir string) (string, error) {
	obj, err := g.InlineObjectFromRandomData(n, size)
	if err != nil {
		return "", err
	}
	return g.WriteFOXML(ctx, obj, dir, true)
}

// FOXMLFromURI generates an object referencing uri and writes it to dir.
func (g *Generator) FOXMLFromURI(ctx context.Context, uri, dir string, cg foxml.ControlGroup) (string, error) {
	obj, err := g.ObjectFromURI(ctx, uri, cg)
	if err != nil {
		return "", err
	}
	return g.WriteFOXML(ctx, obj, dir, false)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (g *Generator) compressor(w io.Writer) (io.WriteCloser, error) {
	switch g.compression {
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w)
	}
	return nopWriteCloser{w}, nil
}
