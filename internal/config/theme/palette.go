package theme

import (
	"maps"
	"slices"
)

// Kind classifies a theme by its background.
type Kind string

const (
	// KindDark is a theme with a dark background.
	KindDark Kind = "dark"
	// KindLight is a theme with a light background.
	KindLight Kind = "light"
)

// BackgroundSlot is the slot that decides the theme kind.
const BackgroundSlot = "background"

// Palette is an immutable table of resolved slot colors.
type Palette struct {
	colors map[string]Color
	kind   Kind
}

// NewPalette creates a palette from resolved colors. The map is copied.
func NewPalette(colors map[string]Color) *Palette {
	p := &Palette{colors: maps.Clone(colors), kind: KindDark}
	if p.colors == nil {
		p.colors = make(map[string]Color)
	}
	if bg, ok := p.colors[BackgroundSlot]; ok && bg.IsLight() {
		p.kind = KindLight
	}
	return p
}

// Color returns the color of a slot.
func (p *Palette) Color(slot string) (Color, bool) {
	if p == nil {
		return Color{}, false
	}
	c, ok := p.colors[slot]
	return c, ok
}

// RGBA returns the components of a slot's color.
func (p *Palette) RGBA(slot string) (r, g, b, a uint8, ok bool) {
	c, ok := p.Color(slot)
	return c.R, c.G, c.B, c.A, ok
}

// Slots returns all slot names, sorted.
func (p *Palette) Slots() []string {
	if p == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(p.colors))
}

// Len returns the number of slots.
func (p *Palette) Len() int {
	if p == nil {
		return 0
	}
	return len(p.colors)
}

// Kind returns dark or light based on the background luminance.
func (p *Palette) Kind() Kind {
	if p == nil {
		return KindDark
	}
	return p.kind
}

// With returns a copy of the palette with slot set to c.
func (p *Palette) With(slot string, c Color) *Palette {
	var colors map[string]Color
	if p != nil {
		colors = maps.Clone(p.colors)
	}
	if colors == nil {
		colors = make(map[string]Color)
	}
	colors[slot] = c
	return NewPalette(colors)
}

// Map returns a copy of all slot colors.
func (p *Palette) Map() map[string]Color {
	if p == nil {
		return map[string]Color{}
	}
	return maps.Clone(p.colors)
}
