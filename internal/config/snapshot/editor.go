package snapshot

import "github.com/dshills/keyconf/internal/config/registry"

// Editor provides type-safe access to editor settings. It is a copy;
// mutating it does not modify the snapshot.
type Editor struct {
	// FontFamily is the font family for the text buffer.
	FontFamily string

	// FontSize is the font size in points.
	FontSize int

	// LineHeight is the line height multiplier.
	LineHeight float64

	// TabSize is the number of spaces a tab is equal to.
	TabSize int

	// InsertSpaces inserts spaces when pressing Tab.
	InsertSpaces bool

	// SoftWrap wraps long lines at the viewport edge.
	SoftWrap bool

	// FormatOnSave formats the buffer before writing it.
	FormatOnSave bool

	// TrimTrailingWhitespace strips trailing whitespace on save.
	TrimTrailingWhitespace bool
}

// editorDefaults backs Editor for paths a snapshot does not hold.
var editorDefaults = registry.NewWithDefaults().Defaults()

func editorDefault[T any](key string) T {
	v, _ := editorDefaults[registry.DomainEditor+"."+key].(T)
	return v
}

// Editor returns the editor section. Missing or mistyped values read as
// the registered defaults.
func (c *Config) Editor() Editor {
	flag := func(key string) bool {
		return c.BoolOr("editor."+key, editorDefault[bool](key))
	}
	return Editor{
		FontFamily:             c.StringOr("editor.font_family", editorDefault[string]("font_family")),
		FontSize:               c.IntOr("editor.font_size", editorDefault[int]("font_size")),
		LineHeight:             c.FloatOr("editor.line_height", editorDefault[float64]("line_height")),
		TabSize:                c.IntOr("editor.tab_size", editorDefault[int]("tab_size")),
		InsertSpaces:           flag("insert_spaces"),
		SoftWrap:               flag("soft_wrap"),
		FormatOnSave:           flag("format_on_save"),
		TrimTrailingWhitespace: flag("trim_trailing_whitespace"),
	}
}
