package questionnaire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/foxml-generator/pkg/foxml"
)

// DefaultPause is how long a rejected answer stays on screen before the
// question is asked again.
const DefaultPause = 500 * time.Millisecond

// ErrNoInput indicates the input ended before a question was answered
var ErrNoInput = errors.New("no more input")

// errUnparsable marks answers the parser could not understand
var errUnparsable = errors.New("unparsable input")

type state int

const (
	stateAsk state = iota
	stateValidate
	stateReject
	stateAccept
)

// Prompter asks questions on out and reads answers line by line from in.
// Rejections are reported on errOut.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	pause  func()
}

// PrompterOption configures a Prompter
type PrompterOption func(*Prompter)

// WithPause replaces the wait after a rejected answer
func WithPause(pause func()) PrompterOption {
	return func(p *Prompter) {
		p.pause = pause
	}
}

// NewPrompter creates a prompter over the given streams
func NewPrompter(in io.Reader, out, errOut io.Writer, opts ...PrompterOption) *Prompter {
	p := &Prompter{
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		pause:  func() { time.Sleep(DefaultPause) },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Question describes one prompt. An empty answer selects Default. Validate
// is optional and runs on parsed and default values alike.
type Question[T any] struct {
	Text     string
	Default  T
	Parse    func(string) (T, error)
	Validate func(T) error
}

// Ask runs a question until an answer is accepted:
// Ask -> Validate -> (Accept | Reject -> Ask).
func Ask[T any](p *Prompter, q Question[T]) (T, error) {
	var (
		zero  T
		value T
		input string
		err   error
	)
	st := stateAsk
	for {
		switch st {
		case stateAsk:
			fmt.Fprint(p.out, q.Text)
			input, err = p.readLine()
			if err != nil {
				return zero, err
			}
			st = stateValidate

		case stateValidate:
			if input == "" {
				value = q.Default
			} else if value, err = q.Parse(input); err != nil {
				err = errUnparsable
				st = stateReject
				continue
			}
			if q.Validate != nil {
				if err = q.Validate(value); err != nil {
					st = stateReject
					continue
				}
			}
			st = stateAccept

		case stateReject:
			if errors.Is(err, errUnparsable) {
				fmt.Fprintf(p.errOut, "Unable to parse input '%s'. Please try again\n", input)
			} else {
				fmt.Fprintf(p.errOut, "%s. Please try again\n", capitalize(err.Error()))
			}
			p.pause()
			st = stateAsk

		case stateAccept:
			return value, nil
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ParseString accepts any answer
func ParseString(s string) (string, error) {
	return s, nil
}

// ParseInt parses a decimal integer
func ParseInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParseInt64 parses a decimal 64-bit integer
func ParseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// ParseBool understands yes/y/true and no/n/false in any case
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "true":
		return true, nil
	case "no", "n", "false":
		return false, nil
	}
	return false, fmt.Errorf("not a yes/no answer: %q", s)
}

// ParseControlGroup understands M, I (or X), E and R
func ParseControlGroup(s string) (foxml.ControlGroup, error) {
	return foxml.ParseControlGroup(s)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
