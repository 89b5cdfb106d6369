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

// Builder assembles a Config. It is not safe for concurrent use.
type Builder struct {
	generation  uint64
	settings    map[string]any
	provenance  map[string]string
	keymap      *keymap.Table
	palette     *theme.Palette
	layers      []LayerInfo
	diagnostics []diag.Diagnostic
	disabled    map[string]bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		settings:   make(map[string]any),
		provenance: make(map[string]string),
		disabled:   make(map[string]bool),
	}
}

// Rebuild returns a builder seeded with the contents of c. Building it
// yields a new snapshot with a fresh ID; c is unchanged.
func (c *Config) Rebuild() *Builder {
	b := NewBuilder()
	b.generation = c.generation
	for k, v := range c.settings {
		b.settings[k] = cloneValue(v)
	}
	maps.Copy(b.provenance, c.provenance)
	maps.Copy(b.disabled, c.disabled)
	b.keymap = c.keymap
	b.palette = c.palette
	b.layers = slices.Clone(c.layers)
	b.diagnostics = slices.Clone(c.diagnostics)
	return b
}

// Set stores value at path, recording the layer that supplied it.
func (b *Builder) Set(path string, value any, layer string) *Builder {
	b.settings[path] = value
	if layer != "" {
		b.provenance[path] = layer
	} else {
		delete(b.provenance, path)
	}
	return b
}

// Delete removes path.
func (b *Builder) Delete(path string) *Builder {
	delete(b.settings, path)
	delete(b.provenance, path)
	return b
}

// DeleteTree removes path and every path below it.
func (b *Builder) DeleteTree(path string) *Builder {
	prefix := path + "."
	for k := range b.settings {
		if k == path || strings.HasPrefix(k, prefix) {
			b.Delete(k)
		}
	}
	return b
}

// Value returns the value currently stored at path.
func (b *Builder) Value(path string) (any, bool) {
	v, ok := b.settings[path]
	return v, ok
}

// SetGeneration sets the reload generation.
func (b *Builder) SetGeneration(gen uint64) *Builder {
	b.generation = gen
	return b
}

// SetKeymap sets the binding table.
func (b *Builder) SetKeymap(t *keymap.Table) *Builder {
	b.keymap = t
	return b
}

// SetPalette sets the theme palette.
func (b *Builder) SetPalette(p *theme.Palette) *Builder {
	b.palette = p
	return b
}

// SetColor stores a resolved theme slot in both the palette and the
// settings.
func (b *Builder) SetColor(slot string, c theme.Color, layer string) *Builder {
	b.palette = b.palette.With(slot, c)
	return b.Set("theme."+slot, c, layer)
}

// AddLayer records a layer that took part in the pass.
func (b *Builder) AddLayer(info LayerInfo) *Builder {
	b.layers = append(b.layers, info)
	return b
}

// AddDiagnostics appends diagnostics.
func (b *Builder) AddDiagnostics(ds ...diag.Diagnostic) *Builder {
	b.diagnostics = append(b.diagnostics, ds...)
	return b
}

// SetDiagnostics replaces the diagnostics.
func (b *Builder) SetDiagnostics(ds []diag.Diagnostic) *Builder {
	b.diagnostics = slices.Clone(ds)
	return b
}

// DisableIntegration switches off a plugin integration. id is the
// integration path within the plugins domain ("lsp.servers.gopls").
func (b *Builder) DisableIntegration(id string) *Builder {
	b.disabled[strings.TrimPrefix(id, "plugins.")] = true
	return b
}

// Build returns the immutable snapshot. The builder may be reused;
// later changes do not affect the returned Config.
func (b *Builder) Build() *Config {
	c := &Config{
		id:          uuid.New(),
		generation:  b.generation,
		created:     time.Now(),
		settings:    make(map[string]any, len(b.settings)),
		provenance:  maps.Clone(b.provenance),
		keymap:      b.keymap,
		palette:     b.palette,
		layers:      slices.Clone(b.layers),
		diagnostics: slices.Clone(b.diagnostics),
		disabled:    maps.Clone(b.disabled),
	}
	for k, v := range b.settings {
		c.settings[k] = cloneValue(v)
	}
	if c.keymap == nil {
		c.keymap = keymap.NewBuilder().Build()
	}
	if c.palette == nil {
		c.palette = theme.NewPalette(nil)
	}
	return c
}
