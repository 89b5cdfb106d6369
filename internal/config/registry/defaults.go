package registry

// DefaultForeground is substituted for a required color when neither the
// setting nor the palette provides anything better.
const DefaultForeground = "#BBBBBB"

// RegisterDefaults registers the built-in keyconf schema.
func (r *Registry) RegisterDefaults() {
	// Editor settings
	r.mustRegister(Setting{Domain: DomainEditor, Key: "font_family", Type: TypeString, Default: "JetBrains Mono",
		Description: "Font family for the text buffer"})
	r.mustRegister(Setting{Domain: DomainEditor, Key: "font_size", Type: TypeInt, Default: 14,
		Description: "Font size in points"})
	r.mustRegister(Setting{Domain: DomainEditor, Key: "line_height", Type: TypeFloat, Default: 1.4,
		Description: "Line height multiplier"})
	r.mustRegister(Setting{Domain: DomainEditor, Key: "tab_size", Type: TypeInt, Default: 4,
		Description: "Number of spaces a tab is equal to"})
	r.mustRegister(Setting{Domain: DomainEditor, Key: "insert_spaces", Type: TypeBool, Default: true,
		Description: "Insert spaces when pressing Tab"})
	r.mustRegister(Setting{Domain: DomainEditor, Key: "soft_wrap", Type: TypeBool, Default: false,
		Description: "Wrap long lines at the viewport edge"})
	r.mustRegister(Setting{Domain: DomainEditor, Key: "format_on_save", Type: TypeBool, Default: false,
		Description: "Run the formatter before writing a buffer"})
	r.mustRegister(Setting{Domain: DomainEditor, Key: "trim_trailing_whitespace", Type: TypeBool, Default: true,
		Description: "Strip trailing whitespace on save"})

	// Theme slots. Syntax slots follow the foreground unless a theme sets them.
	r.mustRegister(Setting{Domain: DomainTheme, Key: "background", Type: TypeColor, Default: "#2B2B2B",
		Required: true, Fallback: "#2B2B2B", Description: "Editor background"})
	r.mustRegister(Setting{Domain: DomainTheme, Key: "foreground", Type: TypeColor, Default: "#A9B7C6",
		Required: true, Fallback: DefaultForeground, Description: "Default text color"})
	for _, slot := range essentialSyntaxSlots {
		r.mustRegister(Setting{Domain: DomainTheme, Key: slot, Type: TypeColor, Default: "@foreground",
			Required: true, Description: "Syntax highlight color"})
	}
	r.mustRegister(Setting{Domain: DomainTheme, Key: "selection", Type: TypeColor,
		Default: map[string]any{"base": "@background", "lighten": 0.15}, Description: "Selection background"})
	r.mustRegister(Setting{Domain: DomainTheme, Key: "line_highlight", Type: TypeColor,
		Default: map[string]any{"base": "@background", "lighten": 0.05}, Description: "Active line background"})
	for slot, def := range diagnosticSlots {
		r.mustRegister(Setting{Domain: DomainTheme, Key: slot, Type: TypeColor, Default: def,
			Required: true, Fallback: def, Description: "Diagnostic color"})
	}

	// Ignore patterns
	r.mustRegister(Setting{Domain: DomainIgnore, Key: "patterns", Type: TypeStrings,
		Default:     []string{".git", "node_modules", ".DS_Store"},
		Description: "Glob patterns excluded from file listings and search"})

	// Plugins
	r.mustRegister(Setting{Domain: DomainPlugins, Key: "*.enabled", Type: TypeBool,
		Description: "Whether the plugin integration is active"})
	r.mustRegister(Setting{Domain: DomainPlugins, Key: "lsp.servers.*.enabled", Type: TypeBool,
		Description: "Whether the language server is started"})
	r.mustRegister(Setting{Domain: DomainPlugins, Key: "lsp.servers.*.command", Type: TypeCommand,
		Description: "Language server launch command vector"})
	r.mustRegister(Setting{Domain: DomainPlugins, Key: "lsp.servers.*.args", Type: TypeStrings,
		Description: "Extra arguments appended to the launch command"})
	r.mustRegister(Setting{Domain: DomainPlugins, Key: "lsp.servers.*.languages", Type: TypeStrings,
		Description: "Languages served by the language server"})
	r.mustRegister(Setting{Domain: DomainPlugins, Key: "lsp.servers.*.initialization_options", Type: TypeMapping,
		Description: "Options passed verbatim in the initialize request"})
}

// essentialSyntaxSlots must always resolve so every token gets a color.
var essentialSyntaxSlots = []string{
	"syntax.comment",
	"syntax.keyword",
	"syntax.string",
	"syntax.number",
	"syntax.constant",
	"syntax.function",
	"syntax.type",
	"syntax.variable",
	"syntax.operator",
	"syntax.tag",
	"syntax.attribute",
	"syntax.property",
}

var diagnosticSlots = map[string]any{
	"diagnostic.error":   "#FF6B68",
	"diagnostic.warning": "#E0A44E",
	"diagnostic.info":    "#589DF6",
	"diagnostic.hint":    "#8C8C8C",
}

// mustRegister registers a built-in setting. Built-in declarations are
// fixed, so a failure here is a programming error and is recorded as a
// conflict rather than panicking.
func (r *Registry) mustRegister(s Setting) {
	_ = r.RegisterSetting(s)
}
