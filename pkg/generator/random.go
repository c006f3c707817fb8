package generator

import (
	"encoding/base64"
	"fmt"
	"io"
	"math/rand"
)

const (
	// ChunkSize is the stride used when producing random content.
	ChunkSize = 4096

	// DefaultMaxInlineSize bounds random content generated in memory.
	DefaultMaxInlineSize int64 = 64 << 20
)

type randomReader struct {
	rnd       *rand.Rand
	remaining int64
}

// NewRandomReader returns a reader producing exactly size pseudo-random bytes,
// at most ChunkSize per Read.
func NewRandomReader(rnd *rand.Rand, size int64) io.Reader {
	return &randomReader{rnd: rnd, remaining: size}
}

func (r *randomReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := len(p)
	if n > ChunkSize {
		n = ChunkSize
	}
	if int64(n) > r.remaining {
		n = int(r.remaining)
	}
	r.rnd.Read(p[:n])
	r.remaining -= int64(n)
	return n, nil
}

// WriteRandom writes size pseudo-random bytes to w in ChunkSize strides; the
// last chunk holds the remainder.
func WriteRandom(w io.Writer, rnd *rand.Rand, size int64) (int64, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	buf := make([]byte, min(size, ChunkSize))
	var written int64
	for written < size {
		n := int(min(size-written, ChunkSize))
		rnd.Read(buf[:n])
		m, err := w.Write(buf[:n])
		written += int64(m)
		if err != nil {
			return written, fmt.Errorf("failed to write random content: %w", err)
		}
	}
	return written, nil
}

// RandomBytes returns size pseudo-random bytes held in memory. Sizes above
// limit are rejected before anything is allocated.
func RandomBytes(rnd *rand.Rand, size, limit int64) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if size > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrContentTooLarge, size, limit)
	}
	buf := make([]byte, size)
	for off := int64(0); off < size; off += ChunkSize {
		rnd.Read(buf[off:min(off+ChunkSize, size)])
	}
	return buf, nil
}

// RandomBase64 returns size pseudo-random bytes, base64 encoded. The limit
// applies to the encoded length.
func RandomBase64(rnd *rand.Rand, size, limit int64) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	encoded := int64(base64.StdEncoding.EncodedLen(int(min(size, limit+1))))
	if size > limit || encoded > limit {
		return nil, fmt.Errorf("%w: %d bytes encode beyond %d", ErrContentTooLarge, size, limit)
	}
	raw, err := RandomBytes(rnd, size, limit)
	if err != nil {
		return nil, err
	}
	out := make([]byte, encoded)
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}
