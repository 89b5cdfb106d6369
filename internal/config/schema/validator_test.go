package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/keyconf/internal/config/diag"
	"github.com/dshills/keyconf/internal/config/registry"
	"github.com/dshills/keyconf/internal/config/snapshot"
	"github.com/dshills/keyconf/internal/config/theme"
)

func testRegistry() *registry.Registry {
	r := registry.New()
	_ = r.Register(registry.DomainEditor, "tab_size", registry.TypeInt, 4)
	_ = r.Register(registry.DomainEditor, "font_family", registry.TypeString, "Menlo")
	_ = r.Register(registry.DomainIgnore, "patterns", registry.TypeStrings, []string{".git"})
	_ = r.Register(registry.DomainPlugins, "*.enabled", registry.TypeBool, nil)
	_ = r.Register(registry.DomainPlugins, "lsp.servers.*.command", registry.TypeCommand, nil)
	_ = r.Register(registry.DomainPlugins, "lsp.servers.*.initialization_options", registry.TypeMapping, nil)
	return r
}

func kinds(ds []diag.Diagnostic) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Kind.String() + " " + d.Path()
	}
	return out
}

func TestValidate_Clean(t *testing.T) {
	cfg := snapshot.NewBuilder().
		Set("editor.tab_size", 2, "user").
		Set("editor.font_family", "Menlo", "defaults").
		Set("ignore.patterns", []string{".git", "*.tmp"}, "defaults").
		Set("plugins.lsp.servers.gopls.command", []string{"gopls", "serve"}, "user").
		Set("plugins.lsp.servers.gopls.initialization_options.usePlaceholders", true, "user").
		Build()

	if ds := NewValidator(testRegistry()).Validate(cfg); len(ds) != 0 {
		t.Errorf("unexpected diagnostics: %v", ds)
	}
}

func TestValidate_UnknownKey(t *testing.T) {
	cfg := snapshot.NewBuilder().
		Set("plugins.foo.bar", []any{"x", 1}, "user").
		Set("colors.accent", "#fff", "user").
		Build()

	ds := NewValidator(testRegistry()).Validate(cfg)
	want := []string{"unknown-key colors.accent", "unknown-key plugins.foo.bar"}
	if diff := cmp.Diff(want, kinds(ds)); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	for _, d := range ds {
		if d.Severity != diag.SeverityInfo || d.Layer != "user" {
			t.Errorf("%s: severity %s layer %q, want info from user", d.Path(), d.Severity, d.Layer)
		}
	}
}

func TestValidate_TypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		path string
		val  any
		want string
	}{
		{"string for int", "editor.tab_size", "four", "editor.tab_size"},
		{"fractional int", "editor.tab_size", 2.5, "editor.tab_size"},
		{"table for scalar", "editor.tab_size.width", 2, "editor.tab_size"},
		{"int for string", "editor.font_family", 3, "editor.font_family"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := snapshot.NewBuilder().Set(tt.path, tt.val, "user").Build()
			ds := NewValidator(testRegistry()).Validate(cfg)
			if len(ds) != 1 {
				t.Fatalf("diagnostics = %v, want one", ds)
			}
			d := ds[0]
			if d.Kind != diag.KindTypeMismatch || d.Severity != diag.SeverityWarning || d.Path() != tt.want {
				t.Errorf("got %s", d)
			}
			if !d.HasFallback {
				t.Error("type mismatch should carry the registered default")
			}
		})
	}
}

func TestValidate_MismatchWithoutDefault(t *testing.T) {
	cfg := snapshot.NewBuilder().Set("plugins.git.enabled", "yes", "user").Build()

	ds := NewValidator(testRegistry()).Validate(cfg)
	if len(ds) != 1 || ds[0].Kind != diag.KindTypeMismatch {
		t.Fatalf("diagnostics = %v", ds)
	}
	if ds[0].HasFallback {
		t.Errorf("fallback = %v, want none", ds[0].Fallback)
	}
}

func TestValidate_MissingRequiredColor(t *testing.T) {
	r := registry.New()
	_ = r.RegisterSetting(registry.Setting{Domain: registry.DomainTheme, Key: "background",
		Type: registry.TypeColor, Required: true, Fallback: "#2B2B2B"})
	_ = r.RegisterSetting(registry.Setting{Domain: registry.DomainTheme, Key: "foreground",
		Type: registry.TypeColor, Required: true})
	_ = r.RegisterSetting(registry.Setting{Domain: registry.DomainTheme, Key: "syntax.keyword",
		Type: registry.TypeColor, Required: true})
	_ = r.RegisterSetting(registry.Setting{Domain: registry.DomainTheme, Key: "cursor",
		Type: registry.TypeColor})

	fg := theme.MustParseColor("#a9b7c6")
	tests := []struct {
		name    string
		palette map[string]theme.Color
		want    map[string]string
	}{
		{
			name:    "syntax slot follows foreground",
			palette: map[string]theme.Color{"background": theme.MustParseColor("#000"), "foreground": fg},
			want:    map[string]string{"syntax.keyword": "#a9b7c6"},
		},
		{
			name:    "nothing resolved",
			palette: nil,
			want: map[string]string{
				"background":     "#2b2b2b",
				"foreground":     "#bbbbbb",
				"syntax.keyword": "#bbbbbb",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := snapshot.NewBuilder().SetPalette(theme.NewPalette(tt.palette)).Build()
			ds := NewValidator(r).Validate(cfg)

			got := make(map[string]string)
			for _, d := range ds {
				if d.Kind != diag.KindMissingRequiredColor || d.Severity != diag.SeverityWarning {
					t.Errorf("unexpected %s", d)
					continue
				}
				got[d.Key] = d.Fallback.(theme.Color).Hex()
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("fallbacks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_InvalidCommand(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantKey string
	}{
		{
			name:    "empty vector",
			set:     map[string]any{"plugins.lsp.servers.gopls.command": []string{}},
			wantKey: "lsp.servers.gopls.command",
		},
		{
			name:    "blank executable",
			set:     map[string]any{"plugins.lsp.servers.pyright.command": []string{"  ", "--stdio"}},
			wantKey: "lsp.servers.pyright.command",
		},
		{
			name:    "not strings",
			set:     map[string]any{"plugins.lsp.servers.gopls.command": []any{"gopls", 3}},
			wantKey: "lsp.servers.gopls.command",
		},
		{
			name:    "unregistered plugin command",
			set:     map[string]any{"plugins.fmt.command": []any{"-w"}, "plugins.fmt.args": []any{}},
			wantKey: "fmt.command",
		},
		{
			name: "disabled integration is skipped",
			set: map[string]any{
				"plugins.lsp.servers.gopls.command": []string{},
				"plugins.lsp.enabled":               false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := snapshot.NewBuilder()
			for k, v := range tt.set {
				b.Set(k, v, "user")
			}
			ds := diag.Filter(NewValidator(testRegistry()).Validate(b.Build()), diag.KindInvalidCommand)

			if tt.wantKey == "" {
				if len(ds) != 0 {
					t.Errorf("diagnostics = %v, want none", ds)
				}
				return
			}
			if len(ds) != 1 {
				t.Fatalf("diagnostics = %v, want one", ds)
			}
			if ds[0].Key != tt.wantKey || ds[0].Severity != diag.SeverityError {
				t.Errorf("got %s", ds[0])
			}
		})
	}
}

func TestValidate_InvalidPattern(t *testing.T) {
	cfg := snapshot.NewBuilder().
		Set("ignore.patterns", []string{".git", "[abc", "*.log", ""}, "workspace").
		Build()

	ds := NewValidator(testRegistry()).Validate(cfg)
	if len(ds) != 2 {
		t.Fatalf("diagnostics = %v, want two", ds)
	}
	for _, d := range ds {
		if d.Kind != diag.KindInvalidPattern || d.Layer != "workspace" {
			t.Errorf("got %s", d)
		}
		if diff := cmp.Diff([]string{".git", "*.log"}, d.Fallback); diff != "" {
			t.Errorf("fallback mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestValidate_SchemaConflict(t *testing.T) {
	r := testRegistry()
	if err := r.Register(registry.DomainEditor, "tab_size", registry.TypeString, "4"); !errors.Is(err, registry.ErrConflictingType) {
		t.Fatalf("Register = %v", err)
	}

	ds := NewValidator(r).Validate(snapshot.Empty())
	if len(ds) != 1 || ds[0].Kind != diag.KindSchemaConflict || ds[0].Severity != diag.SeverityError {
		t.Fatalf("diagnostics = %v", ds)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	cfg := snapshot.NewBuilder().
		Set("plugins.zeta.x", 1, "user").
		Set("plugins.alpha.y", 2, "user").
		Set("editor.tab_size", "x", "user").
		Set("ignore.patterns", []string{"[", "]["}, "user").
		Set("plugins.lsp.servers.a.command", []string{}, "user").
		Build()

	v := NewValidator(testRegistry())
	first := v.Validate(cfg)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, v.Validate(cfg)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestNewValidator_NilRegistry(t *testing.T) {
	cfg := snapshot.NewBuilder().Set("editor.tab_size", 4, "user").Build()
	ds := NewValidator(nil).Validate(cfg)
	if len(ds) != 1 || ds[0].Kind != diag.KindUnknownKey {
		t.Errorf("diagnostics = %v", ds)
	}
	if got := NewValidator(nil).Validate(nil); len(got) != 0 {
		t.Errorf("nil snapshot diagnostics = %v", got)
	}
}
