package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dshills/keyconf/internal/config/layer"
)

// IncludeKey lists further documents merged beneath the including one.
const IncludeKey = "@include"

// DefaultMaxIncludeDepth bounds nested includes.
const DefaultMaxIncludeDepth = 8

// FileOption configures a FileSource or DirSource.
type FileOption func(*fileOptions)

type fileOptions struct {
	fs       FileSystem
	format   Format
	root     string
	maxDepth int
}

func newFileOptions(opts []FileOption) fileOptions {
	o := fileOptions{fs: DefaultFS(), maxDepth: DefaultMaxIncludeDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithFS reads through a custom file system.
func WithFS(fsys FileSystem) FileOption {
	return func(o *fileOptions) {
		o.fs = fsys
	}
}

// WithFormat forces a format instead of inferring it from the extension.
func WithFormat(f Format) FileOption {
	return func(o *fileOptions) {
		o.format = f
	}
}

// WithRoot nests each document under the given domain, so a theme file
// holding bare slots ("background = ...") becomes theme.background.
func WithRoot(domain string) FileOption {
	return func(o *fileOptions) {
		o.root = domain
	}
}

// WithMaxIncludeDepth bounds nested includes.
func WithMaxIncludeDepth(depth int) FileOption {
	return func(o *fileOptions) {
		o.maxDepth = depth
	}
}

// FileSource loads one layer from a single document.
type FileSource struct {
	path   string
	source layer.Source
	opts   fileOptions
}

// NewFileSource creates a source for the document at path.
func NewFileSource(path string, source layer.Source, opts ...FileOption) *FileSource {
	return &FileSource{path: path, source: source, opts: newFileOptions(opts)}
}

// Path returns the document path.
func (s *FileSource) Path() string {
	return s.path
}

// LoadLayer reads and decodes the document. A missing file returns an
// error matching ErrNotExist.
func (s *FileSource) LoadLayer(ctx context.Context, name string) (*layer.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.opts.fs.Stat(s.path)
	if err != nil {
		return nil, notExist(s.path, err)
	}

	doc, err := s.opts.load(s.path, nil)
	if err != nil {
		return nil, err
	}
	return layer.New(name, s.source, layer.DefaultPriority(s.source), s.opts.nest(doc)).
		WithOrigin(s.path, info.ModTime()), nil
}

// load decodes path and merges its includes beneath it. chain lists the
// documents whose includes are being resolved, outermost first. Only the
// outermost document's absence matches ErrNotExist.
func (o fileOptions) load(path string, chain []string) (map[string]any, error) {
	path = filepath.Clean(path)
	if slices.Contains(chain, path) {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, strings.Join(append(slices.Clone(chain), path), " -> "))
	}
	if len(chain) >= o.maxDepth {
		return nil, fmt.Errorf("%w for %s", ErrIncludeDepth, path)
	}
	data, err := o.fs.ReadFile(path)
	if err != nil {
		if len(chain) > 0 && errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIncludeNotFound, path)
		}
		return nil, notExist(path, err)
	}

	format := o.format
	if format == FormatUnknown {
		format = FormatFor(path)
	}
	doc, err := Decode(format, path, data)
	if err != nil {
		return nil, err
	}

	includes, ok := doc[IncludeKey]
	if !ok {
		return doc, nil
	}
	delete(doc, IncludeKey)

	var list []string
	switch v := includes.(type) {
	case string:
		list = []string{v}
	case []string:
		list = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s: %s must be a string or list of strings", path, IncludeKey)
			}
			list = append(list, s)
		}
	default:
		return nil, fmt.Errorf("%s: %s must be a string or list of strings, got %T", path, IncludeKey, includes)
	}

	// Included documents sit beneath the including one, earlier includes
	// beneath later ones.
	base := make(map[string]any)
	dir := filepath.Dir(path)
	inner := append(slices.Clone(chain), path)
	for _, inc := range list {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(dir, inc)
		}
		sub, err := o.load(incPath, inner)
		if errors.Is(err, ErrIncludeCycle) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", incPath, err)
		}
		base = layer.MergeDocuments(base, sub)
	}
	return layer.MergeDocuments(base, doc), nil
}

func (o fileOptions) nest(doc map[string]any) map[string]any {
	if o.root == "" {
		return doc
	}
	return map[string]any{o.root: doc}
}

// DirSource loads one layer from a drop-in directory. Every supported
// document in the directory is decoded and merged in file-name order, so
// "20-keys.toml" overrides "10-base.toml" and appends ("patterns+") from
// both accumulate.
type DirSource struct {
	dir    string
	source layer.Source
	opts   fileOptions
}

// NewDirSource creates a source for the drop-in directory dir.
func NewDirSource(dir string, source layer.Source, opts ...FileOption) *DirSource {
	return &DirSource{dir: dir, source: source, opts: newFileOptions(opts)}
}

// Path returns the directory path.
func (s *DirSource) Path() string {
	return s.dir
}

// Files returns the documents that would be merged, in merge order.
func (s *DirSource) Files() ([]string, error) {
	entries, err := s.opts.fs.ReadDir(s.dir)
	if err != nil {
		return nil, notExist(s.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		if s.opts.format == FormatUnknown && FormatFor(e.Name()) == FormatUnknown {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	return files, nil
}

// LoadLayer merges the directory's documents. A missing or empty
// directory returns an error matching ErrNotExist. Any document that fails
// to decode fails the whole layer.
func (s *DirSource) LoadLayer(ctx context.Context, name string) (*layer.Layer, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s has no documents", ErrNotExist, s.dir)
	}

	merged := make(map[string]any)
	var modTime time.Time
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.opts.load(f, nil)
		if err != nil {
			return nil, err
		}
		merged = layer.MergeDocuments(merged, doc)
		if info, err := s.opts.fs.Stat(f); err == nil && info.ModTime().After(modTime) {
			modTime = info.ModTime()
		}
	}
	return layer.New(name, s.source, layer.DefaultPriority(s.source), s.opts.nest(merged)).
		WithOrigin(s.dir, modTime), nil
}
