// Package questionnaire collects generator settings interactively.
package questionnaire

import (
	"errors"
	"fmt"
	"os"

	"github.com/tendant/foxml-generator/pkg/foxml"
	"github.com/tendant/foxml-generator/pkg/generator/config"
)

var (
	errNotReadable = errors.New("directory does not exist or is not readable")
	errNotWritable = errors.New("directory is not writeable")
	errNegative    = errors.New("value must not be negative")
)

// Run asks the generator questions in order. base supplies the defaults
// offered at every prompt and the settings that are not asked for; answers
// take precedence over it. Nothing is returned until every question is
// answered.
func Run(p *Prompter, base config.Settings) (config.Settings, error) {
	s := base
	var err error

	s.Random, err = Ask(p, Question[bool]{
		Text:    fmt.Sprintf("Use random data? [%s]: ", yesNo(s.Random)),
		Default: s.Random,
		Parse:   ParseBool,
	})
	if err != nil {
		return config.Settings{}, err
	}

	if s.Random {
		s.NumFiles, err = Ask(p, Question[int]{
			Text:     fmt.Sprintf("Number of files to generate [%d]: ", s.NumFiles),
			Default:  s.NumFiles,
			Parse:    ParseInt,
			Validate: nonNegative[int],
		})
		if err != nil {
			return config.Settings{}, err
		}
		s.SizeKB, err = Ask(p, Question[int64]{
			Text:     fmt.Sprintf("Size of every file in KB [%d]: ", s.SizeKB),
			Default:  s.SizeKB,
			Parse:    ParseInt64,
			Validate: nonNegative[int64],
		})
		if err != nil {
			return config.Settings{}, err
		}
	} else {
		inputDir := s.InputDirectory
		if inputDir == "" {
			inputDir = os.TempDir()
		}
		s.InputDirectory, err = Ask(p, Question[string]{
			Text:     fmt.Sprintf("Input directory [%s]: ", inputDir),
			Default:  inputDir,
			Parse:    ParseString,
			Validate: readableDir,
		})
		if err != nil {
			return config.Settings{}, err
		}
		fileTypes := s.InputFileTypes
		if fileTypes == "" {
			fileTypes = "*"
		}
		s.InputFileTypes, err = Ask(p, Question[string]{
			Text:    fmt.Sprintf("Input file types, comma separated [%s]: ", fileTypes),
			Default: fileTypes,
			Parse:   ParseString,
		})
		if err != nil {
			return config.Settings{}, err
		}
	}

	s.TargetDirectory, err = Ask(p, Question[string]{
		Text:     fmt.Sprintf("Target directory [%s]: ", s.TargetDirectory),
		Default:  s.TargetDirectory,
		Parse:    ParseString,
		Validate: writableDirOrMissing,
	})
	if err != nil {
		return config.Settings{}, err
	}

	defaultCG, err := foxml.ParseControlGroup(s.ControlGroup)
	if err != nil {
		defaultCG = foxml.ControlGroupManaged
	}
	cg, err := Ask(p, Question[foxml.ControlGroup]{
		Text:    fmt.Sprintf("Control group <M,I,E,R> [%s]: ", letter(defaultCG)),
		Default: defaultCG,
		Parse:   ParseControlGroup,
	})
	if err != nil {
		return config.Settings{}, err
	}
	s.ControlGroup = cg.Name()

	if cg == foxml.ControlGroupManaged && s.Random {
		s.InlineBase64, err = Ask(p, Question[bool]{
			Text:    fmt.Sprintf("Inline content as base64? [%s]: ", yesNo(s.InlineBase64)),
			Default: s.InlineBase64,
			Parse:   ParseBool,
		})
		if err != nil {
			return config.Settings{}, err
		}
	} else {
		s.InlineBase64 = false
	}

	return s, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// letter returns the prompt letter of a control group; inline XML is "I".
func letter(cg foxml.ControlGroup) string {
	if cg == foxml.ControlGroupInlineXML {
		return "I"
	}
	return string(cg)
}

func nonNegative[T int | int64](v T) error {
	if v < 0 {
		return errNegative
	}
	return nil
}

func readableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return errNotReadable
	}
	f, err := os.Open(dir)
	if err != nil {
		return errNotReadable
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !isEOF(err) {
		return errNotReadable
	}
	return nil
}

func writableDirOrMissing(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil || !info.IsDir() {
		return errNotWritable
	}
	tmp, err := os.CreateTemp(dir, ".foxml-generator-*")
	if err != nil {
		return errNotWritable
	}
	name := tmp.Name()
	tmp.Close()
	os.Remove(name)
	return nil
}
