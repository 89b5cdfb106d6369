// Package theme resolves theme slot values into normalized RGBA colors.
//
// A slot value is one of:
//
//   - a hex color: "#RGB", "#RGBA", "#RRGGBB", "#RRGGBBAA", with or without "#"
//   - a reference to another slot: "@foreground", "@syntax.keyword"
//   - a derivation table: {base = "@background", lighten = 0.1, alpha = 0.5}
//
// References and derivations are resolved after all layers are merged, so a
// user layer that changes the background also moves every slot derived
// from it.
package theme

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color errors
var (
	ErrInvalidColor  = errors.New("invalid color")
	ErrInvalidDerive = errors.New("invalid color derivation")
	ErrDanglingRef   = errors.New("reference to undefined slot")
	ErrCycle         = errors.New("slot reference cycle")
)

// Color is a normalized, non-premultiplied RGBA color.
type Color struct {
	R, G, B, A uint8
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

// FromColor converts any color.Color.
func FromColor(c color.Color) Color {
	if tc, ok := c.(Color); ok {
		return tc
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B, A: n.A}
}

// ParseColor parses a hex color. The leading "#" is optional and the
// shorthand forms are expanded, so "abc" and "#AABBCC" are the same color.
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(hex) {
	case 3, 4:
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	c, err := colorful.Hex("#" + hex[:6])
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	alpha := uint64(0xff)
	if len(hex) == 8 {
		alpha, err = strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
	}

	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b, A: uint8(alpha)}, nil
}

// MustParseColor is ParseColor for literals.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns "#rrggbb", or "#rrggbbaa" when the color is not opaque.
func (c Color) Hex() string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// String returns the hex form.
func (c Color) String() string {
	return c.Hex()
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColorful(cf colorful.Color, alpha uint8) Color {
	r, g, b := cf.Clamped().RGB255()
	return Color{R: r, G: g, B: b, A: alpha}
}

// Lighten raises HSL lightness by amount (0..1).
func (c Color) Lighten(amount float64) Color {
	h, s, l := c.colorful().Hsl()
	return fromColorful(colorful.Hsl(h, s, clamp01(l+amount)), c.A)
}

// Darken lowers HSL lightness by amount (0..1).
func (c Color) Darken(amount float64) Color {
	h, s, l := c.colorful().Hsl()
	return fromColorful(colorful.Hsl(h, s, clamp01(l-amount)), c.A)
}

// WithAlpha returns the color with opacity alpha (0..1).
func (c Color) WithAlpha(alpha float64) Color {
	c.A = uint8(math.Round(clamp01(alpha) * 255))
	return c
}

// Blend mixes c toward other by t (0..1) in Lab space.
func (c Color) Blend(other Color, t float64) Color {
	return fromColorful(c.colorful().BlendLab(other.colorful(), clamp01(t)), c.A)
}

// Luminance returns the relative luminance (0 black, 1 white).
func (c Color) Luminance() float64 {
	r, g, b := c.colorful().LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// IsLight reports whether text on this color should be dark.
func (c Color) IsLight() bool {
	return c.Luminance() > 0.5
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
