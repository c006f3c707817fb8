package generator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileTypePatterns turns a comma separated file type list such as
// "jpg,jp2,png" into doublestar patterns. Entries that already contain a
// glob or a path separator are used as given. "" and "*" match every file.
func FileTypePatterns(fileTypes string) []string {
	var patterns []string
	for _, t := range strings.Split(fileTypes, ",") {
		t = strings.TrimSpace(t)
		switch {
		case t == "" || t == "*":
			return []string{"**"}
		case strings.ContainsAny(t, "*?[{/"):
			patterns = append(patterns, t)
		default:
			patterns = append(patterns, "**/*."+strings.TrimPrefix(t, "."))
		}
	}
	if len(patterns) == 0 {
		return []string{"**"}
	}
	return patterns
}

// CollectSources walks dir recursively and returns file: URIs of the regular
// files matching fileTypes, in lexical order.
func CollectSources(dir, fileTypes string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", dir)
	}

	patterns := FileTypePatterns(fileTypes)
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid file type pattern %q", p)
		}
	}

	var sources []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				uri, err := FileURI(path)
				if err != nil {
					return err
				}
				sources = append(sources, uri)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect sources in %s: %w", dir, err)
	}
	return sources, nil
}
