package snapshot

import (
	"strings"

	"github.com/tidwall/sjson"

	"github.com/dshills/keyconf/internal/config/theme"
)

// MarshalJSON renders the snapshot as a JSON document: identity, nested
// settings, bindings, theme colors, layers and diagnostics. Keys are
// emitted in sorted order so equal snapshots render identically.
func (c *Config) MarshalJSON() ([]byte, error) {
	doc := `{}`
	var err error

	set := func(value any, segments ...string) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, joinPath(segments...), value)
	}

	set(c.id.String(), "id")
	set(c.generation, "generation")

	for _, k := range c.Keys() {
		set(jsonValue(c.settings[k]), append([]string{"settings"}, strings.Split(k, ".")...)...)
	}

	for _, b := range c.keymap.Bindings() {
		entry := map[string]any{
			"kind":  b.Action.Kind.String(),
			"name":  b.Action.Name,
			"layer": b.Layer,
		}
		if len(b.Action.Args) > 0 {
			entry["args"] = b.Action.Args
		}
		set(entry, "keymap", b.Mode.String(), b.Chord)
	}

	set(string(c.palette.Kind()), "theme", "kind")
	for _, slot := range c.palette.Slots() {
		col, _ := c.palette.Color(slot)
		set(col.Hex(), "theme", "colors", slot)
	}

	set([]any{}, "layers")
	for _, l := range c.layers {
		set(map[string]any{
			"name":     l.Name,
			"priority": l.Priority,
			"origin":   l.Origin,
			"failed":   l.Failed,
		}, "layers", "-1")
	}

	set([]any{}, "diagnostics")
	for _, d := range c.diagnostics {
		entry := map[string]any{
			"kind":     d.Kind.String(),
			"severity": d.Severity.String(),
			"path":     d.Path(),
			"layer":    d.Layer,
			"message":  d.Message,
		}
		if d.HasFallback {
			entry["fallback"] = jsonValue(d.Fallback)
		}
		set(entry, "diagnostics", "-1")
	}

	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case theme.Color:
		return val.Hex()
	default:
		return v
	}
}

// joinPath builds an sjson path from literal segments. "-1" is passed
// through as the append index.
func joinPath(segments ...string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		if s == "-1" {
			parts[i] = s
			continue
		}
		parts[i] = escapeSegment(s)
	}
	return strings.Join(parts, ".")
}

func escapeSegment(s string) string {
	var b strings.Builder
	numeric := s != ""
	for _, r := range s {
		if r < '0' || r > '9' {
			numeric = false
		}
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	if numeric {
		return ":" + b.String()
	}
	return b.String()
}
