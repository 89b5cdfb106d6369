package schema

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
)

// Command vector errors.
var (
	// ErrEmptyCommand indicates a command vector with no elements.
	ErrEmptyCommand = errors.New("command vector is empty")

	// ErrNotExecutable indicates a first element that cannot name a program.
	ErrNotExecutable = errors.New("not a plausible executable")

	// ErrCommandType indicates a command value that is not a string sequence.
	ErrCommandType = errors.New("command must be a sequence of strings")
)

// ErrInvalidGlob indicates a malformed ignore pattern.
var ErrInvalidGlob = errors.New("invalid glob pattern")

// ValidationError describes why a value failed a check.
type ValidationError struct {
	// Path is the dot-separated path to the invalid value.
	Path string

	// Value is the invalid value (may be nil).
	Value any

	// Err is the underlying sentinel.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v: %q", e.Path, e.Err, fmt.Sprint(e.Value))
}

// Unwrap returns the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CheckCommand reports whether argv can launch an external process.
// The first element must name a program: non-empty, free of control
// characters and surrounding space, not an option, and not a directory.
// The filesystem is not consulted.
func CheckCommand(argv []string) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}
	exe := argv[0]
	switch {
	case strings.TrimSpace(exe) == "":
		return ErrEmptyCommand
	case exe != strings.TrimSpace(exe),
		strings.HasPrefix(exe, "-"),
		strings.HasSuffix(exe, "/"),
		strings.ContainsFunc(exe, unicode.IsControl):
		return ErrNotExecutable
	}
	switch path.Base(exe) {
	case ".", "..":
		return ErrNotExecutable
	}
	for _, arg := range argv[1:] {
		if strings.ContainsRune(arg, 0) {
			return ErrNotExecutable
		}
	}
	return nil
}

// CheckPattern reports whether p is a usable ignore glob.
func CheckPattern(p string) error {
	if strings.TrimSpace(p) == "" {
		return ErrInvalidGlob
	}
	if _, err := path.Match(p, ""); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGlob, err)
	}
	return nil
}
