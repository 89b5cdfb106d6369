// Package snapshot holds the resolved configuration: the immutable result
// of one resolution pass.
//
// A Config is never modified after it is built. Reloading produces a new
// Config; readers holding the old one keep a consistent view.
package snapshot

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/keyconf/internal/config/diag"
	"github.com/dshills/keyconf/internal/config/keymap"
	"github.com/dshills/keyconf/internal/config/theme"
)

// LayerInfo describes a layer that took part in a resolution pass.
type LayerInfo struct {
	Name     string
	Priority int
	Origin   string
	Failed   bool
}

// Config is a resolved configuration snapshot.
type Config struct {
	id         uuid.UUID
	generation uint64
	created    time.Time

	// settings is keyed by full dotted path. Keymap bindings live in
	// keymap; resolved theme slots are theme.Color values.
	settings   map[string]any
	provenance map[string]string

	keymap  *keymap.Table
	palette *theme.Palette

	layers      []LayerInfo
	diagnostics []diag.Diagnostic

	// disabled holds plugin integrations switched off by validation,
	// keyed by the integration path within the plugins domain.
	disabled map[string]bool
}

// Empty returns a snapshot with no settings.
func Empty() *Config {
	return NewBuilder().Build()
}

// ID returns the unique snapshot identifier.
func (c *Config) ID() uuid.UUID { return c.id }

// Generation returns the reload generation that produced the snapshot.
func (c *Config) Generation() uint64 { return c.generation }

// Created returns when the snapshot was built.
func (c *Config) Created() time.Time { return c.created }

// Get returns the value at path. A path naming a subtree returns the
// subtree as a nested map.
func (c *Config) Get(path string) (any, bool) {
	if v, ok := c.settings[path]; ok {
		return cloneValue(v), true
	}
	sub := c.subtree(path)
	if len(sub) == 0 {
		return nil, false
	}
	return sub, true
}

// Has reports whether path is set, directly or as a subtree.
func (c *Config) Has(path string) bool {
	_, ok := c.Get(path)
	return ok
}

// Keys returns every leaf path, sorted.
func (c *Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.settings))
}

// Settings returns a copy of the flattened settings.
func (c *Config) Settings() map[string]any {
	out := make(map[string]any, len(c.settings))
	for k, v := range c.settings {
		out[k] = cloneValue(v)
	}
	return out
}

// Domain returns the nested settings of one domain.
func (c *Config) Domain(domain string) map[string]any {
	return c.subtree(domain)
}

// Provenance returns the name of the layer that supplied path.
func (c *Config) Provenance(path string) (string, bool) {
	l, ok := c.provenance[path]
	return l, ok
}

// Keymap returns the resolved binding table.
func (c *Config) Keymap() *keymap.Table { return c.keymap }

// LookupBinding returns the action bound to chord in mode.
func (c *Config) LookupBinding(chord string, mode keymap.Mode) (keymap.Action, bool) {
	return c.keymap.Lookup(chord, mode)
}

// Palette returns the resolved theme colors.
func (c *Config) Palette() *theme.Palette { return c.palette }

// Color returns a resolved theme slot.
func (c *Config) Color(slot string) (theme.Color, bool) {
	return c.palette.Color(slot)
}

// Layers returns the layers of the pass in merge order.
func (c *Config) Layers() []LayerInfo {
	return slices.Clone(c.layers)
}

// Diagnostics returns the diagnostics recorded while producing the
// snapshot.
func (c *Config) Diagnostics() []diag.Diagnostic {
	return slices.Clone(c.diagnostics)
}

// subtree collects all settings under prefix into a nested map.
func (c *Config) subtree(prefix string) map[string]any {
	out := make(map[string]any)
	pfx := prefix + "."
	for k, v := range c.settings {
		if rest, ok := strings.CutPrefix(k, pfx); ok {
			setNested(out, rest, cloneValue(v))
		}
	}
	return out
}

// setNested stores value at a dotted path inside m, creating maps.
func setNested(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := m
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}
