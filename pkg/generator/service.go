package generator

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// DefaultOwnerID is the owner assigned to generated objects.
const DefaultOwnerID = "testOwner"

// Generator builds fixture objects and writes them as FOXML.
// A Generator is not safe for concurrent use: it owns its random source.
type Generator struct {
	rnd           *rand.Rand
	store         ContentStore
	fetcher       Fetcher
	now           func() time.Time
	ownerID       string
	maxInlineSize int64
	compression   Compression
	logger        *slog.Logger
}

// Option represents a functional option for configuring the generator
type Option func(*Generator)

// WithContentStore sets where random version content is written
func WithContentStore(store ContentStore) Option {
	return func(g *Generator) {
		g.store = store
	}
}

// WithFetcher replaces the fetcher used for external sources and embedding
func WithFetcher(fetcher Fetcher) Option {
	return func(g *Generator) {
		g.fetcher = fetcher
	}
}

// WithSeed seeds a private random source
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rnd = rand.New(rand.NewSource(seed))
	}
}

// WithRand sets the random source
func WithRand(rnd *rand.Rand) Option {
	return func(g *Generator) {
		g.rnd = rnd
	}
}

// WithClock sets the time source for created/modified dates
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithOwner sets the owner ID of generated objects
func WithOwner(ownerID string) Option {
	return func(g *Generator) {
		g.ownerID = ownerID
	}
}

// WithMaxInlineSize bounds content held in memory for inline embedding
func WithMaxInlineSize(size int64) Option {
	return func(g *Generator) {
		g.maxInlineSize = size
	}
}

// WithCompression sets the compression applied to FOXML output files
func WithCompression(c Compression) Option {
	return func(g *Generator) {
		g.compression = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New creates a new generator with the given options
func New(options ...Option) (*Generator, error) {
	g := &Generator{
		ownerID:       DefaultOwnerID,
		maxInlineSize: DefaultMaxInlineSize,
		compression:   CompressionNone,
	}

	for _, option := range options {
		option(g)
	}

	if g.store == nil {
		return nil, errors.New("content store is required")
	}
	if g.maxInlineSize <= 0 {
		return nil, errors.New("max inline size must be positive")
	}
	if !g.compression.Valid() {
		return nil, ErrUnsupportedCompression
	}
	if g.rnd == nil {
		g.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.now == nil {
		g.now = func() time.Time { return time.Now().UTC() }
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.fetcher == nil {
		sf := NewSchemeFetcher()
		if ss, ok := g.store.(SchemeStore); ok {
			sf.Register(ss.Scheme(), ss)
		}
		g.fetcher = sf
	}

	return g, nil
}

// Fetcher returns the fetcher used for external sources.
func (g *Generator) Fetcher() Fetcher {
	return g.fetcher
}
