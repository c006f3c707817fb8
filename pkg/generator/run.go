package generator

import (
	"context"
	"fmt"
	"os"

	"github.com/tendant/foxml-generator/pkg/foxml"
)

// Plan describes one generation run.
type Plan struct {
	// Count is the number of FOXML files generated from random data
	Count int

	// Versions is the number of versions per datastream (random data only)
	Versions int

	// Random selects random content; otherwise Sources are used
	Random bool

	// Size is the content size in bytes of every random version
	Size int64

	// TargetDir receives the FOXML files; created if missing
	TargetDir string

	// ControlGroup is the storage mode of the generated datastreams
	ControlGroup foxml.ControlGroup

	// InlineBase64 embeds managed random content in the FOXML
	InlineBase64 bool

	// Sources are the external content URIs, one FOXML per source
	Sources []string
}

// RunResult lists the FOXML files written by Run.
type RunResult struct {
	Files []string
}

// Run executes plan. It stops at the first failure; the result still lists
// the files written before it.
func (g *Generator) Run(ctx context.Context, plan Plan) (*RunResult, error) {
	result := &RunResult{}

	if plan.TargetDir == "" {
		return result, fmt.Errorf("target directory is required")
	}
	if err := os.MkdirAll(plan.TargetDir, 0755); err != nil {
		return result, &GenerationError{Op: "create target directory", Path: plan.TargetDir, Err: err}
	}
	cg := plan.ControlGroup
	if cg == "" {
		cg = foxml.ControlGroupManaged
	}

	if !plan.Random {
		for _, src := range plan.Sources {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			path, err := g.FOXMLFromURI(ctx, src, plan.TargetDir, cg)
			if err != nil {
				return result, err
			}
			result.Files = append(result.Files, path)
			g.logger.Info("generated foxml", "source", src, "path", path)
		}
		return result, nil
	}

	versions := plan.Versions
	if versions == 0 {
		versions = 1
	}
	inline := cg == foxml.ControlGroupManaged && plan.InlineBase64
	if inline && plan.Size > g.maxInlineSize {
		return result, fmt.Errorf("%w: %d bytes exceeds %d", ErrContentTooLarge, plan.Size, g.maxInlineSize)
	}

	for i := 0; i < plan.Count; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		var (
			path string
			err  error
		)
		if inline {
			path, err = g.InlineFOXMLFromRandomData(ctx, versions, plan.Size, plan.TargetDir)
		} else {
			path, err = g.FOXMLFromRandomData(ctx, versions, plan.Size, plan.TargetDir, cg)
		}
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, path)
		g.logger.Debug("generated foxml", "index", i+1, "count", plan.Count, "path", path)
	}
	return result, nil
}
