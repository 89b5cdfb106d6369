// Package layer provides configuration layers and the merger that combines
// them into a resolved snapshot.
//
// A layer is an immutable, named, prioritized document. Higher priority
// layers override values from lower priority layers.
package layer

import (
	"slices"
	"sort"
	"time"

	"github.com/dshills/keyconf/internal/config/keymap"
)

// Layer represents a single configuration layer. Its document is deep
// copied on construction and only exposed through read accessors.
type Layer struct {
	name     string
	priority int
	source   Source
	origin   string
	modTime  time.Time
	data     map[string]any
}

// New creates a layer. The data is deep copied.
func New(name string, source Source, priority int, data map[string]any) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{
		name:     name,
		priority: priority,
		source:   source,
		data:     cloneMap(data),
		modTime:  time.Now(),
	}
}

// WithOrigin returns a copy of the layer that records where it came from.
func (l *Layer) WithOrigin(origin string, modTime time.Time) *Layer {
	c := *l
	c.origin = origin
	if !modTime.IsZero() {
		c.modTime = modTime
	}
	return &c
}

// WithPriority returns a copy of the layer with a different priority.
func (l *Layer) WithPriority(priority int) *Layer {
	c := *l
	c.priority = priority
	return &c
}

// Name identifies the layer ("defaults", "theme", "user").
func (l *Layer) Name() string { return l.name }

// Priority determines merge order (higher overrides lower).
func (l *Layer) Priority() int { return l.priority }

// Source indicates what kind of source produced the layer.
func (l *Layer) Source() Source { return l.source }

// Origin is the file path or description of the layer's source.
func (l *Layer) Origin() string { return l.origin }

// ModTime is when the source was last modified.
func (l *Layer) ModTime() time.Time { return l.modTime }

// Data returns a deep copy of the layer document.
func (l *Layer) Data() map[string]any {
	return cloneMap(l.data)
}

// Get returns the value at a dotted path.
func (l *Layer) Get(path string) (any, bool) {
	v, ok := GetByPath(l.data, path)
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Keys returns the flattened leaf paths of the document, sorted.
func (l *Layer) Keys() []string {
	flat := FlattenMap(l.data)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Source indicates where a configuration layer came from.
type Source uint8

const (
	// SourceBuiltin represents built-in default configuration.
	SourceBuiltin Source = iota
	// SourceTheme represents a theme document.
	SourceTheme
	// SourceUser represents the user's configuration file.
	SourceUser
	// SourceWorkspace represents project configuration.
	SourceWorkspace
	// SourceEnv represents environment variables.
	SourceEnv
	// SourceArgs represents command-line arguments.
	SourceArgs
	// SourceProgram represents layers built in code by the host.
	SourceProgram
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceTheme:
		return "theme"
	case SourceUser:
		return "user"
	case SourceWorkspace:
		return "workspace"
	case SourceEnv:
		return "environment"
	case SourceArgs:
		return "arguments"
	case SourceProgram:
		return "program"
	default:
		return "unknown"
	}
}

// cloneMap creates a deep copy of a map.
func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}

	return dst
}

// cloneSlice creates a deep copy of a slice.
func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}

	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = cloneValue(val)
	}

	return dst
}

// cloneValue creates a deep copy of a value.
func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		return cloneSlice(v)
	case []string:
		return slices.Clone(v)
	case keymap.Action:
		return keymap.Action{Kind: v.Kind, Name: v.Name, Args: cloneMap(v.Args), Proc: v.Proc}
	default:
		return val
	}
}
