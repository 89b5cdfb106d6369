package theme

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// Derivation table keys.
const (
	deriveBase    = "base"
	deriveLighten = "lighten"
	deriveDarken  = "darken"
	deriveAlpha   = "alpha"
)

// SlotError reports a slot that could not be resolved.
type SlotError struct {
	Slot string
	Err  error
}

// Error implements error.
func (e *SlotError) Error() string {
	return fmt.Sprintf("theme slot %s: %v", e.Slot, e.Err)
}

// Unwrap returns the underlying error.
func (e *SlotError) Unwrap() error {
	return e.Err
}

// IsDerivation reports whether v is a derivation table. Derivation tables
// are leaves of the theme document rather than nested slots.
func IsDerivation(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[deriveBase]
	return ok
}

// Check validates the syntax of a slot value without resolving
// references. It is applied per layer so a malformed value never
// displaces a lower layer's valid one.
func Check(v any) error {
	switch val := v.(type) {
	case Color, color.Color:
		return nil
	case string:
		if ref, ok := refName(val); ok {
			if ref == "" {
				return fmt.Errorf("%w: empty reference", ErrInvalidColor)
			}
			return nil
		}
		_, err := ParseColor(val)
		return err
	case map[string]any:
		_, err := parseDerivation(val)
		return err
	default:
		return fmt.Errorf("%w: unsupported value of type %T", ErrInvalidColor, v)
	}
}

// Resolve turns merged slot values into concrete colors. Slots that fail
// (bad syntax, dangling reference, cycle) are omitted from the palette and
// reported, one error per slot, sorted by slot.
func Resolve(raw map[string]any) (*Palette, []*SlotError) {
	r := &resolver{
		raw:    raw,
		done:   make(map[string]Color, len(raw)),
		failed: make(map[string]error),
		active: make(map[string]bool),
	}

	slots := make([]string, 0, len(raw))
	for slot := range raw {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		_, _ = r.resolve(slot)
	}

	var errs []*SlotError
	for _, slot := range slots {
		if err, ok := r.failed[slot]; ok {
			errs = append(errs, &SlotError{Slot: slot, Err: err})
		}
	}
	return NewPalette(r.done), errs
}

type resolver struct {
	raw    map[string]any
	done   map[string]Color
	failed map[string]error
	active map[string]bool
}

func (r *resolver) resolve(slot string) (Color, error) {
	if c, ok := r.done[slot]; ok {
		return c, nil
	}
	if err, ok := r.failed[slot]; ok {
		return Color{}, err
	}
	if r.active[slot] {
		return Color{}, fmt.Errorf("%w through %s", ErrCycle, slot)
	}

	v, ok := r.raw[slot]
	if !ok {
		return Color{}, fmt.Errorf("%w %q", ErrDanglingRef, slot)
	}

	r.active[slot] = true
	c, err := r.value(v)
	delete(r.active, slot)

	if err != nil {
		r.failed[slot] = err
		return Color{}, err
	}
	r.done[slot] = c
	return c, nil
}

func (r *resolver) value(v any) (Color, error) {
	switch val := v.(type) {
	case Color:
		return val, nil
	case color.Color:
		return FromColor(val), nil
	case string:
		if ref, ok := refName(val); ok {
			return r.resolve(ref)
		}
		return ParseColor(val)
	case map[string]any:
		d, err := parseDerivation(val)
		if err != nil {
			return Color{}, err
		}
		base, err := r.value(d.base)
		if err != nil {
			return Color{}, err
		}
		return d.apply(base), nil
	default:
		return Color{}, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidColor, v)
	}
}

type derivation struct {
	base    string
	lighten float64
	darken  float64
	alpha   float64
	hasA    bool
}

func (d derivation) apply(c Color) Color {
	if d.lighten != 0 {
		c = c.Lighten(d.lighten)
	}
	if d.darken != 0 {
		c = c.Darken(d.darken)
	}
	if d.hasA {
		c = c.WithAlpha(d.alpha)
	}
	return c
}

func parseDerivation(m map[string]any) (derivation, error) {
	var d derivation

	base, ok := m[deriveBase].(string)
	if !ok || base == "" {
		return d, fmt.Errorf("%w: base must be a color or slot reference", ErrInvalidDerive)
	}
	if _, isRef := refName(base); !isRef {
		if _, err := ParseColor(base); err != nil {
			return d, fmt.Errorf("%w: base %q", ErrInvalidDerive, base)
		}
	}
	d.base = base

	for k, v := range m {
		if k == deriveBase {
			continue
		}
		f, ok := toAmount(v)
		if !ok {
			return d, fmt.Errorf("%w: %s must be a number between 0 and 1", ErrInvalidDerive, k)
		}
		switch k {
		case deriveLighten:
			d.lighten = f
		case deriveDarken:
			d.darken = f
		case deriveAlpha:
			d.alpha, d.hasA = f, true
		default:
			return d, fmt.Errorf("%w: unknown key %q", ErrInvalidDerive, k)
		}
	}
	return d, nil
}

func toAmount(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	return f, f >= 0 && f <= 1
}

// refName returns the slot named by a "@slot" reference.
func refName(s string) (string, bool) {
	if !strings.HasPrefix(s, "@") {
		return "", false
	}
	return strings.TrimSpace(s[1:]), true
}

// IsReference reports whether a slot value refers to another slot.
func IsReference(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, ok = refName(s)
	return ok
}
