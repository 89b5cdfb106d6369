// Package loader reads configuration layers from files, drop-in
// directories and the environment.
//
// Documents may be TOML, YAML or JSON with comments. Each source decodes
// into a nested map and wraps it in an immutable layer.Layer. A source
// that does not exist returns an error matching ErrNotExist so callers can
// skip it silently.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Loader errors.
var (
	// ErrNotExist indicates the source is absent.
	ErrNotExist = errors.New("configuration source does not exist")

	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")

	// ErrIncludeDepth indicates nested includes beyond the limit.
	ErrIncludeDepth = errors.New("include depth exceeded")

	// ErrIncludeNotFound indicates an included document that is missing.
	// Unlike ErrNotExist it fails the including layer.
	ErrIncludeNotFound = errors.New("included document does not exist")

	// ErrIncludeCycle indicates a document that includes itself, directly
	// or through other documents.
	ErrIncludeCycle = errors.New("include cycle")
)

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// ReadDir lists a directory sorted by file name.
	ReadDir(path string) ([]fs.DirEntry, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadDir lists a directory sorted by file name.
func (OSFS) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Format identifies a document syntax.
type Format uint8

const (
	// FormatUnknown is returned for unrecognized extensions.
	FormatUnknown Format = iota
	// FormatTOML is TOML.
	FormatTOML
	// FormatYAML is YAML.
	FormatYAML
	// FormatJSON is JSON; comments and trailing commas are allowed.
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// FormatFor returns the format implied by a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	case ".json", ".jsonc":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// Decode parses data in the given format. source names the document in
// errors.
func Decode(format Format, source string, data []byte) (map[string]any, error) {
	var (
		doc map[string]any
		err error
	)
	switch format {
	case FormatTOML:
		doc, err = decodeTOML(source, data)
	case FormatYAML:
		doc, err = decodeYAML(source, data)
	case FormatJSON:
		doc, err = decodeJSON(source, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, source)
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Format  Format
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func notExist(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	return fmt.Errorf("reading %s: %w", path, err)
}
