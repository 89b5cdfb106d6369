package snapshot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/dshills/keyconf/internal/config/diag"
	"github.com/dshills/keyconf/internal/config/keymap"
	"github.com/dshills/keyconf/internal/config/theme"
)

func testConfig() *Config {
	kb := keymap.NewBuilder()
	kb.Install(keymap.Binding{Chord: "cmd+up", Action: keymap.Command("editor.move_to_beginning", nil), Layer: "defaults"})
	kb.Install(keymap.Binding{Chord: "ctrl+.", Action: keymap.Command("editor.quick_fix", nil), Layer: "user"})

	return NewBuilder().
		SetGeneration(3).
		Set("editor.font_size", 16, "user").
		Set("editor.tab_size", 4, "defaults").
		Set("editor.font_family", "Fira Code", "user").
		Set("ignore.patterns", []string{".git", "dist"}, "user").
		Set("plugins.lsp.servers.gopls.command", []string{"gopls", "serve"}, "user").
		Set("plugins.lsp.servers.pyright.command", []string{"pyright-langserver"}, "user").
		Set("plugins.lsp.servers.pyright.enabled", false, "user").
		Set("plugins.foo.bar", "baz", "user").
		SetKeymap(kb.Build()).
		SetColor("background", theme.MustParseColor("#2b2b2b"), "defaults").
		AddLayer(LayerInfo{Name: "defaults", Priority: 0}).
		AddLayer(LayerInfo{Name: "user", Priority: 100, Origin: "/home/u/.config/keyconf/config.toml"}).
		AddDiagnostics(diag.Diagnostic{Kind: diag.KindUnknownKey, Severity: diag.SeverityInfo, Domain: "plugins", Key: "foo.bar", Layer: "user"}).
		Build()
}

func TestConfig_Get(t *testing.T) {
	c := testConfig()

	if v, ok := c.Get("editor.font_size"); !ok || v != 16 {
		t.Errorf("Get(editor.font_size) = %v, %v", v, ok)
	}

	sub, ok := c.Get("plugins.lsp.servers.gopls")
	if !ok {
		t.Fatal("subtree not found")
	}
	want := map[string]any{"command": []string{"gopls", "serve"}}
	if diff := cmp.Diff(want, sub); diff != "" {
		t.Errorf("subtree mismatch (-want +got):\n%s", diff)
	}

	if _, ok := c.Get("editor.nosuch"); ok {
		t.Error("unset path reported as present")
	}

	if layer, _ := c.Provenance("editor.font_size"); layer != "user" {
		t.Errorf("Provenance = %q, want user", layer)
	}
}

func TestConfig_Immutable(t *testing.T) {
	b := NewBuilder().Set("ignore.patterns", []string{"a"}, "user")
	c := b.Build()

	b.Set("ignore.patterns", []string{"b"}, "user")
	got := c.IgnorePatterns()
	got[0] = "mutated"

	if diff := cmp.Diff([]string{"a"}, c.IgnorePatterns()); diff != "" {
		t.Errorf("snapshot changed (-want +got):\n%s", diff)
	}

	r := c.Rebuild().Set("editor.tab_size", 2, "user").Build()
	if c.Has("editor.tab_size") {
		t.Error("Rebuild mutated the original")
	}
	if r.ID() == c.ID() {
		t.Error("rebuilt snapshot shares the original's ID")
	}
}

func TestConfig_TypedAccessors(t *testing.T) {
	c := testConfig()

	if n, err := c.GetInt("editor.font_size"); err != nil || n != 16 {
		t.Errorf("GetInt = %d, %v", n, err)
	}
	if f, err := c.GetFloat("editor.font_size"); err != nil || f != 16 {
		t.Errorf("GetFloat widening = %v, %v", f, err)
	}
	if _, err := c.GetBool("editor.font_family"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("GetBool on string err = %v, want ErrTypeMismatch", err)
	}
	var te *TypeError
	if _, err := c.GetString("editor.font_size"); !errors.As(err, &te) || te.Expected != "string" {
		t.Errorf("GetString on int err = %v", err)
	}
	if _, err := c.GetString("nosuch"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if got := c.IntOr("nosuch", 7); got != 7 {
		t.Errorf("IntOr = %d, want 7", got)
	}

	ed := c.Editor()
	if ed.FontSize != 16 || ed.FontFamily != "Fira Code" || ed.TabSize != 4 {
		t.Errorf("Editor() = %+v", ed)
	}
}

func TestConfig_EditorDefaults(t *testing.T) {
	c := NewBuilder().
		Set("editor.tab_size", 2, "user").
		Set("editor.font_size", "large", "user").
		Build()

	want := Editor{
		FontFamily:             "JetBrains Mono",
		FontSize:               14,
		LineHeight:             1.4,
		TabSize:                2,
		InsertSpaces:           true,
		TrimTrailingWhitespace: true,
	}
	if diff := cmp.Diff(want, c.Editor()); diff != "" {
		t.Errorf("Editor() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig_Plugins(t *testing.T) {
	c := testConfig()

	if diff := cmp.Diff([]string{"foo", "lsp"}, c.PluginIDs()); diff != "" {
		t.Errorf("PluginIDs mismatch (-want +got):\n%s", diff)
	}
	foo, ok := c.Plugin("foo")
	if !ok || foo["bar"] != "baz" {
		t.Errorf("Plugin(foo) = %v, %v", foo, ok)
	}

	want := map[string][]string{"lsp.servers.gopls": {"gopls", "serve"}}
	if diff := cmp.Diff(want, c.Commands()); diff != "" {
		t.Errorf("Commands mismatch (-want +got):\n%s", diff)
	}

	d := c.Rebuild().DisableIntegration("plugins.lsp.servers.gopls").Build()
	if d.IntegrationEnabled("lsp.servers.gopls") {
		t.Error("disabled integration reported enabled")
	}
	if len(d.Commands()) != 0 {
		t.Errorf("Commands of disabled integrations = %v", d.Commands())
	}
	if diff := cmp.Diff([]string{"lsp.servers.gopls"}, d.Disabled()); diff != "" {
		t.Errorf("Disabled mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig_BindingsAndColors(t *testing.T) {
	c := testConfig()

	act, ok := c.LookupBinding("Cmd-Up", keymap.Direct)
	if !ok || act.Name != "editor.move_to_beginning" {
		t.Errorf("LookupBinding = %v, %v", act, ok)
	}

	bg, ok := c.Color("background")
	if !ok || bg.Hex() != "#2b2b2b" {
		t.Errorf("Color(background) = %v, %v", bg, ok)
	}
	if v, _ := c.Get("theme.background"); v != bg {
		t.Errorf("theme.background setting = %v, want %v", v, bg)
	}
}

func TestConfig_MarshalJSON(t *testing.T) {
	c := testConfig()

	data, err := c.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	doc := string(data)
	if !gjson.Valid(doc) {
		t.Fatalf("invalid JSON: %s", doc)
	}

	checks := map[string]string{
		"id":                                           c.ID().String(),
		"generation":                                   "3",
		"settings.editor.font_size":                    "16",
		"settings.plugins.lsp.servers.gopls.command.0": "gopls",
		"keymap.direct.cmd+up.name":                    "editor.move_to_beginning",
		`keymap.direct.ctrl+\..layer`:                  "user",
		"theme.kind":                                   "dark",
		"theme.colors.background":                      "#2b2b2b",
		"settings.theme.background":                    "#2b2b2b",
		"layers.1.name":                                "user",
		"diagnostics.0.kind":                           "unknown-key",
		"diagnostics.0.path":                           "plugins.foo.bar",
	}
	for path, want := range checks {
		if got := gjson.Get(doc, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}

	again, _ := c.MarshalJSON()
	if string(again) != doc {
		t.Error("MarshalJSON is not deterministic")
	}
}

func TestEmpty(t *testing.T) {
	c := Empty()
	if len(c.Keys()) != 0 || c.Keymap().Len() != 0 || c.Palette().Len() != 0 {
		t.Error("Empty snapshot is not empty")
	}
	if _, ok := c.LookupBinding("cmd+up", keymap.Direct); ok {
		t.Error("Empty snapshot has bindings")
	}
}
