package schema

import (
	"encoding/json"
	"strings"

	"github.com/dshills/keyconf/internal/config/registry"
)

// Draft is the JSON Schema dialect emitted by Export.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is the subset of JSON Schema needed to describe the registry to
// editors that offer completion for configuration files.
type Schema struct {
	// SchemaVersion is the dialect ($schema). Set on the root only.
	SchemaVersion string `json:"$schema,omitempty"`

	// Title is a descriptive title.
	Title string `json:"title,omitempty"`

	// Description provides documentation.
	Description string `json:"description,omitempty"`

	// Type is the JSON type.
	Type SchemaType `json:"type,omitempty"`

	// Properties defines object properties.
	Properties map[string]*Schema `json:"properties,omitempty"`

	// PatternProperties maps a property-name regex to its schema. Wildcard
	// registry segments become "^.+$".
	PatternProperties map[string]*Schema `json:"patternProperties,omitempty"`

	// Items defines the schema for array elements.
	Items *Schema `json:"items,omitempty"`

	// MinItems for arrays.
	MinItems *int `json:"minItems,omitempty"`

	// Pattern is a regex for strings.
	Pattern string `json:"pattern,omitempty"`

	// Default is the default value.
	Default any `json:"default,omitempty"`

	// Required lists required property names.
	Required []string `json:"required,omitempty"`
}

// SchemaType represents one or more JSON types.
type SchemaType struct {
	Types []string
}

// MarshalJSON outputs a single type as a string and several as an array.
func (t SchemaType) MarshalJSON() ([]byte, error) {
	if len(t.Types) == 1 {
		return json.Marshal(t.Types[0])
	}
	return json.Marshal(t.Types)
}

// IsEmpty returns true if no types are defined.
func (t SchemaType) IsEmpty() bool {
	return len(t.Types) == 0
}

func typeOf(types ...string) SchemaType {
	return SchemaType{Types: types}
}

// colorPattern accepts hex colors with or without "#" and slot references.
const colorPattern = `^(#?([0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|@[A-Za-z0-9_.]+)$`

const anyName = "^.+$"

// Export describes every registered setting as a JSON Schema document.
// The keymap domain is described structurally since its keys are chords.
func Export(reg *registry.Registry) *Schema {
	root := &Schema{
		SchemaVersion: Draft,
		Title:         "keyconf configuration",
		Type:          typeOf("object"),
		Properties:    make(map[string]*Schema),
	}
	for _, domain := range reg.Domains() {
		d := &Schema{Type: typeOf("object")}
		root.Properties[domain] = d
		if domain == registry.DomainKeymap {
			d.Properties = keymapProperties()
			continue
		}
		for _, key := range reg.AllKeys(domain) {
			s, _ := reg.Lookup(domain, key)
			insert(d, strings.Split(key, "."), s)
		}
	}
	return root
}

// insert places the setting schema at the nested position named by segs.
func insert(parent *Schema, segs []string, s registry.Setting) {
	for i, seg := range segs {
		last := i == len(segs)-1
		var child *Schema
		if seg == "*" {
			if parent.PatternProperties == nil {
				parent.PatternProperties = make(map[string]*Schema)
			}
			child = parent.PatternProperties[anyName]
			if child == nil || last {
				child = mergeInto(child, last, s)
				parent.PatternProperties[anyName] = child
			}
		} else {
			if parent.Properties == nil {
				parent.Properties = make(map[string]*Schema)
			}
			child = parent.Properties[seg]
			if child == nil || last {
				child = mergeInto(child, last, s)
				parent.Properties[seg] = child
			}
			if last && s.Required {
				parent.Required = append(parent.Required, seg)
			}
		}
		parent = child
	}
}

func mergeInto(existing *Schema, leaf bool, s registry.Setting) *Schema {
	if !leaf {
		return &Schema{Type: typeOf("object")}
	}
	out := settingSchema(s)
	if existing != nil {
		out.Properties = existing.Properties
		out.PatternProperties = existing.PatternProperties
	}
	return out
}

func settingSchema(s registry.Setting) *Schema {
	out := &Schema{Description: s.Description}
	switch s.Type {
	case registry.TypeString:
		out.Type = typeOf("string")
	case registry.TypeBool:
		out.Type = typeOf("boolean")
	case registry.TypeInt:
		out.Type = typeOf("integer")
	case registry.TypeFloat:
		out.Type = typeOf("number")
	case registry.TypeColor:
		out.Type = typeOf("string", "object")
		out.Pattern = colorPattern
	case registry.TypeStrings:
		out.Type = typeOf("array")
		out.Items = &Schema{Type: typeOf("string")}
	case registry.TypeCommand:
		one := 1
		out.Type = typeOf("array")
		out.Items = &Schema{Type: typeOf("string")}
		out.MinItems = &one
	case registry.TypeMapping:
		out.Type = typeOf("object")
	}
	switch def := s.Default.(type) {
	case nil:
	case string, bool, int, float64, []string:
		out.Default = def
	}
	return out
}

func keymapProperties() map[string]*Schema {
	binding := &Schema{
		Type:        typeOf("string", "object"),
		Description: "Command name, or a table with command, args, procedure and overwrite",
	}
	return map[string]*Schema{
		"direct": {
			Type:              typeOf("object"),
			Description:       "Chord to action bindings",
			PatternProperties: map[string]*Schema{anyName: binding},
		},
		"contextual": {
			Type:              typeOf("object"),
			Description:       "Chord to procedure bindings consulted before direct bindings",
			PatternProperties: map[string]*Schema{anyName: binding},
		},
	}
}
