// Package generator fabricates FOXML test fixtures.
//
// A Generator builds repository objects holding a single datastream whose
// versions carry either pseudo-random content or content taken from external
// sources (files, http URLs, S3 objects), and hands them to a foxml.Writer.
//
// Random content is written through a ContentStore (filesystem, memory or
// S3 implementations live under storage/). External sources are read through
// a Fetcher, selected by URI scheme.
//
// The random source is owned by the Generator. Use WithSeed to produce
// repeatable fixtures.
package generator
