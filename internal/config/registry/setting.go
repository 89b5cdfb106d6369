// Package registry provides the schema registry for keyconf.
//
// The registry is the single source of truth for which keys are legal in
// each configuration domain, what type their values must have, and what
// value applies when no layer sets them.
package registry

import (
	"image/color"
	"math"
	"strings"
)

// Known configuration domains. The first segment of every key-path names
// one of these.
const (
	DomainEditor  = "editor"
	DomainKeymap  = "keymap"
	DomainTheme   = "theme"
	DomainPlugins = "plugins"
	DomainIgnore  = "ignore"
)

// Type is the expected runtime type of a setting value.
type Type uint8

const (
	// TypeAny accepts every value.
	TypeAny Type = iota
	// TypeString represents a string value.
	TypeString
	// TypeBool represents a boolean value.
	TypeBool
	// TypeInt represents an integer value.
	TypeInt
	// TypeFloat represents a floating-point value.
	TypeFloat
	// TypeColor represents a theme color.
	TypeColor
	// TypeStrings represents an ordered sequence of strings.
	TypeStrings
	// TypeCommand represents an external-process command vector.
	TypeCommand
	// TypeMapping represents a nested mapping.
	TypeMapping
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeAny:
		return "any"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeColor:
		return "color"
	case TypeStrings:
		return "strings"
	case TypeCommand:
		return "command"
	case TypeMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// IsSequence reports whether values of this type are ordered sequences.
func (t Type) IsSequence() bool {
	return t == TypeStrings || t == TypeCommand
}

// Coerce normalizes v to the canonical Go representation for t.
// Integers become int, numbers become float64 for TypeFloat, and string
// sequences become []string. The second result is false when v cannot
// represent a value of type t; v is then returned unchanged.
func (t Type) Coerce(v any) (any, bool) {
	switch t {
	case TypeAny:
		return v, true
	case TypeString:
		_, ok := v.(string)
		return v, ok
	case TypeBool:
		_, ok := v.(bool)
		return v, ok
	case TypeInt:
		if i, ok := toInt(v); ok {
			return i, true
		}
		return v, false
	case TypeFloat:
		if f, ok := toFloat(v); ok {
			return f, true
		}
		return v, false
	case TypeColor:
		_, ok := v.(color.Color)
		return v, ok
	case TypeStrings, TypeCommand:
		if s, ok := toStrings(v); ok {
			return s, true
		}
		return v, false
	case TypeMapping:
		_, ok := v.(map[string]any)
		return v, ok
	default:
		return v, false
	}
}

// Accepts reports whether v already is, or can be normalized to, type t.
func (t Type) Accepts(v any) bool {
	_, ok := t.Coerce(v)
	return ok
}

// Setting declares one legal key.
type Setting struct {
	// Domain is the configuration domain ("editor", "theme", ...).
	Domain string

	// Key is the dotted key within the domain. A "*" segment matches
	// exactly one segment of a concrete key.
	Key string

	// Type is the expected value type.
	Type Type

	// Default applies when no layer sets the key. Nil means no default.
	Default any

	// Required marks keys that must resolve to a valid value.
	Required bool

	// Fallback is substituted when a required key is missing or invalid.
	Fallback any

	// Description is human-readable documentation.
	Description string
}

// Path returns the full dotted path of the setting.
func (s Setting) Path() string {
	return s.Domain + "." + s.Key
}

// IsPattern reports whether the key contains wildcard segments.
func (s Setting) IsPattern() bool {
	for _, seg := range strings.Split(s.Key, ".") {
		if seg == "*" {
			return true
		}
	}
	return false
}

// matches reports whether the setting's key pattern matches key.
func (s Setting) matches(key string) bool {
	want := strings.Split(s.Key, ".")
	got := strings.Split(key, ".")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}

// wildcards counts "*" segments; fewer means more specific.
func (s Setting) wildcards() int {
	n := 0
	for _, seg := range strings.Split(s.Key, ".") {
		if seg == "*" {
			n++
		}
	}
	return n
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case float32:
		return toInt(float64(n))
	case float64:
		// JSON numbers decode as float64; accept only integral values.
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		if i, ok := toInt(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

func toStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out, true
	case []any:
		out := make([]string, len(s))
		for i, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = str
		}
		return out, true
	default:
		return nil, false
	}
}
