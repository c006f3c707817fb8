package questionnaire

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/foxml-generator/pkg/generator/config"
)

func answers(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestRunDefaults(t *testing.T) {
	s, p := newSession(answers("", "", "", "", "", ""))
	settings, err := Run(p, config.Defaults())
	require.NoError(t, err)

	defaults := config.Defaults()
	assert.True(t, settings.Random)
	assert.Equal(t, defaults.NumFiles, settings.NumFiles)
	assert.Equal(t, defaults.SizeKB, settings.SizeKB)
	assert.Equal(t, defaults.TargetDirectory, settings.TargetDirectory)
	assert.Equal(t, "MANAGED", settings.ControlGroup)
	assert.False(t, settings.InlineBase64)
	assert.Empty(t, s.errOut.String())
	assert.NoError(t, settings.Validate())
}

func TestRunRandom(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	s, p := newSession(answers("y", "5", "2", target, "M", "yes"))
	settings, err := Run(p, config.Defaults())
	require.NoError(t, err)

	assert.Equal(t, 5, settings.NumFiles)
	assert.Equal(t, int64(2), settings.SizeKB)
	assert.Equal(t, target, settings.TargetDirectory)
	assert.Equal(t, "MANAGED", settings.ControlGroup)
	assert.True(t, settings.InlineBase64)

	out := s.out.String()
	assert.Contains(t, out, "Use random data?")
	assert.Contains(t, out, "Inline content as base64?")
	assert.NotContains(t, out, "Input directory")
}

func TestRunOffersBaseValues(t *testing.T) {
	input := t.TempDir()
	base := config.Defaults()
	base.Random = false
	base.InputDirectory = input
	base.InputFileTypes = "tif"
	base.TargetDirectory = t.TempDir()
	base.ControlGroup = "EXTERNAL"
	base.Seed = 42

	s, p := newSession(answers("", "", "", "", ""))
	settings, err := Run(p, base)
	require.NoError(t, err)

	assert.False(t, settings.Random)
	assert.Equal(t, input, settings.InputDirectory)
	assert.Equal(t, "tif", settings.InputFileTypes)
	assert.Equal(t, base.TargetDirectory, settings.TargetDirectory)
	assert.Equal(t, "EXTERNAL", settings.ControlGroup)
	assert.Equal(t, int64(42), settings.Seed)

	out := s.out.String()
	assert.Contains(t, out, "Use random data? [no]")
	assert.Contains(t, out, "Input directory ["+input+"]")
	assert.Contains(t, out, "Input file types, comma separated [tif]")
	assert.Contains(t, out, "Control group <M,I,E,R> [E]")
}

func TestRunAnswersOverrideBase(t *testing.T) {
	base := config.Defaults()
	base.NumFiles = 9
	base.InlineBase64 = true

	_, p := newSession(answers("", "2", "", "", "", "no"))
	settings, err := Run(p, base)
	require.NoError(t, err)

	assert.Equal(t, 2, settings.NumFiles)
	assert.Equal(t, base.SizeKB, settings.SizeKB)
	assert.False(t, settings.InlineBase64)
}

func TestValidationErrorsAreLowerCase(t *testing.T) {
	for _, err := range []error{errNotReadable, errNotWritable, errNegative} {
		msg := err.Error()
		assert.Equal(t, strings.ToLower(msg[:1]), msg[:1], msg)
	}
}

func TestRunInvalidControlGroup(t *testing.T) {
	target := t.TempDir()
	s, p := newSession(answers("yes", "1", "1", target, "Q", "E"))
	settings, err := Run(p, config.Defaults())
	require.NoError(t, err)

	assert.Equal(t, "EXTERNAL", settings.ControlGroup)
	assert.Equal(t, 2, strings.Count(s.out.String(), "Control group <M,I,E,R>"))
	assert.Contains(t, s.errOut.String(), "Unable to parse input 'Q'. Please try again")
	assert.Equal(t, 1, s.pauses)
	assert.NotContains(t, s.out.String(), "Inline content as base64?")
}

func TestRunInvalidControlGroupThenEOF(t *testing.T) {
	_, p := newSession(answers("yes", "1", "1", t.TempDir(), "Q"))
	settings, err := Run(p, config.Defaults())
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Empty(t, settings.ControlGroup)
}

func TestRunExternalSources(t *testing.T) {
	input := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(input, "a.jpg"), []byte("a"), 0644))
	missing := filepath.Join(input, "missing")
	target := filepath.Join(t.TempDir(), "out")

	s, p := newSession(answers("no", missing, input, "jpg,png", target, "I"))
	settings, err := Run(p, config.Defaults())
	require.NoError(t, err)

	assert.False(t, settings.Random)
	assert.Equal(t, input, settings.InputDirectory)
	assert.Equal(t, "jpg,png", settings.InputFileTypes)
	assert.Equal(t, "INLINE_XML", settings.ControlGroup)
	assert.False(t, settings.InlineBase64)
	assert.Contains(t, s.errOut.String(), "Directory does not exist or is not readable")
	assert.Equal(t, 1, s.pauses)
	assert.NoError(t, settings.Validate())
}

func TestRunTargetNotWritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	target := t.TempDir()

	s, p := newSession(answers("yes", "1", "1", file, target, "R"))
	settings, err := Run(p, config.Defaults())
	require.NoError(t, err)

	assert.Equal(t, target, settings.TargetDirectory)
	assert.Equal(t, "REDIRECT", settings.ControlGroup)
	assert.Contains(t, s.errOut.String(), "Directory is not writeable")
}
