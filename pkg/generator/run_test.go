package generator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/foxml-generator/pkg/foxml"
	"github.com/tendant/foxml-generator/pkg/generator"
)

func TestRunRandom(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	gen, store := newTestGenerator(t)

	result, err := gen.Run(context.Background(), generator.Plan{
		Count:        4,
		Versions:     2,
		Random:       true,
		Size:         1000,
		TargetDir:    target,
		ControlGroup: foxml.ControlGroupManaged,
	})
	require.NoError(t, err)
	assert.Len(t, result.Files, 4)
	assert.Equal(t, 8, store.Len())

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	for _, f := range result.Files {
		doc := readFOXML(t, f)
		assert.Len(t, doc.Datastreams[0].Versions, 2)
	}
}

func TestRunDefaultsToOneVersion(t *testing.T) {
	gen, _ := newTestGenerator(t)
	result, err := gen.Run(context.Background(), generator.Plan{Count: 1, Random: true, Size: 10, TargetDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	doc := readFOXML(t, result.Files[0])
	assert.Equal(t, "M", doc.Datastreams[0].ControlGroup)
	assert.Len(t, doc.Datastreams[0].Versions, 1)
}

func TestRunInline(t *testing.T) {
	t.Run("Embedded", func(t *testing.T) {
		gen, store := newTestGenerator(t)
		result, err := gen.Run(context.Background(), generator.Plan{
			Count: 2, Random: true, Size: 100, TargetDir: t.TempDir(),
			ControlGroup: foxml.ControlGroupManaged, InlineBase64: true,
		})
		require.NoError(t, err)
		assert.Len(t, result.Files, 2)
		assert.Zero(t, store.Len())
		assert.NotNil(t, readFOXML(t, result.Files[0]).Datastreams[0].Versions[0].Binary)
	})

	t.Run("TooLargeWritesNothing", func(t *testing.T) {
		target := t.TempDir()
		gen, _ := newTestGenerator(t, generator.WithMaxInlineSize(99))
		result, err := gen.Run(context.Background(), generator.Plan{
			Count: 2, Random: true, Size: 100, TargetDir: target,
			ControlGroup: foxml.ControlGroupManaged, InlineBase64: true,
		})
		assert.ErrorIs(t, err, generator.ErrContentTooLarge)
		assert.Empty(t, result.Files)
		entries, err := os.ReadDir(target)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestRunSources(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.xml": "<a/>", "b.xml": "<b/>", "c.xml": "<c/>"})
	sources, err := generator.CollectSources(dir, "xml")
	require.NoError(t, err)

	gen, store := newTestGenerator(t)
	result, err := gen.Run(context.Background(), generator.Plan{
		Random:       false,
		TargetDir:    t.TempDir(),
		ControlGroup: foxml.ControlGroupInlineXML,
		Sources:      sources,
		Count:        100,
	})
	require.NoError(t, err)
	assert.Len(t, result.Files, 3)
	assert.Zero(t, store.Len())
}

func TestRunStopsAtFirstError(t *testing.T) {
	gen, _ := newTestGenerator(t)
	result, err := gen.Run(context.Background(), generator.Plan{
		Random:       false,
		TargetDir:    t.TempDir(),
		ControlGroup: foxml.ControlGroupInlineXML,
		Sources:      []string{"file:///does/not/exist.xml", "file:///also/missing.xml"},
	})
	assert.ErrorIs(t, err, generator.ErrFetchFailed)
	assert.Empty(t, result.Files)
}

func TestRunCanceled(t *testing.T) {
	gen, _ := newTestGenerator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := gen.Run(ctx, generator.Plan{Count: 3, Random: true, Size: 1, TargetDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Files)
}

func TestRunRequiresTarget(t *testing.T) {
	gen, _ := newTestGenerator(t)
	_, err := gen.Run(context.Background(), generator.Plan{Count: 1, Random: true})
	assert.Error(t, err)
}

func TestRunStopsAtMalformedInlineXML(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.xml": "<a/>", "b.txt": "plain & simple", "c.xml": "<c/>"})
	sources, err := generator.CollectSources(dir, "*")
	require.NoError(t, err)

	target := t.TempDir()
	gen, _ := newTestGenerator(t)
	result, err := gen.Run(context.Background(), generator.Plan{
		TargetDir:    target,
		ControlGroup: foxml.ControlGroupInlineXML,
		Sources:      sources,
	})
	assert.ErrorIs(t, err, foxml.ErrInvalidInlineXML)
	assert.Len(t, result.Files, 1)

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
