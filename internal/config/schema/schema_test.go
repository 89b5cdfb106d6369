package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/keyconf/internal/config/registry"
)

func TestCheckCommand(t *testing.T) {
	tests := []struct {
		argv []string
		want error
	}{
		{[]string{"gopls"}, nil},
		{[]string{"/usr/local/bin/rust-analyzer"}, nil},
		{[]string{"./bin/server", "--stdio"}, nil},
		{nil, ErrEmptyCommand},
		{[]string{""}, ErrEmptyCommand},
		{[]string{" gopls"}, ErrNotExecutable},
		{[]string{"--stdio"}, ErrNotExecutable},
		{[]string{"/usr/bin/"}, ErrNotExecutable},
		{[]string{".."}, ErrNotExecutable},
		{[]string{"go\npls"}, ErrNotExecutable},
		{[]string{"gopls", "a\x00b"}, ErrNotExecutable},
	}

	for _, tt := range tests {
		if err := CheckCommand(tt.argv); !errors.Is(err, tt.want) {
			t.Errorf("CheckCommand(%q) = %v, want %v", tt.argv, err, tt.want)
		}
	}
}

func TestCheckPattern(t *testing.T) {
	for _, p := range []string{".git", "*.log", "build/*", "[a-z]*.tmp", "file?.txt"} {
		if err := CheckPattern(p); err != nil {
			t.Errorf("CheckPattern(%q) = %v", p, err)
		}
	}
	for _, p := range []string{"", "  ", "[abc", "a[", `bad\`} {
		if err := CheckPattern(p); !errors.Is(err, ErrInvalidGlob) {
			t.Errorf("CheckPattern(%q) = %v, want ErrInvalidGlob", p, err)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Path: "plugins.x.command", Value: []string{}, Err: ErrEmptyCommand}
	if !errors.Is(err, ErrEmptyCommand) {
		t.Error("ValidationError should unwrap to its sentinel")
	}
	if got := (&ValidationError{Path: "p", Err: ErrCommandType}).Error(); got != "p: command must be a sequence of strings" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIntegrationOf(t *testing.T) {
	tests := map[string]string{
		"lsp.servers.gopls.command": "lsp.servers.gopls",
		"fmt.command":               "fmt",
		"command":                   "command",
	}
	for in, want := range tests {
		if got := IntegrationOf(in); got != want {
			t.Errorf("IntegrationOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExport(t *testing.T) {
	data, err := json.Marshal(Export(registry.NewWithDefaults()))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	doc := gjson.ParseBytes(data)

	const server = "properties.plugins.properties.lsp.properties.servers.patternProperties.^.+$"
	checks := map[string]string{
		"$schema": Draft,
		"properties.editor.properties.tab_size.type":                    "integer",
		"properties.editor.properties.tab_size.default":                 "4",
		"properties.ignore.properties.patterns.items.type":              "string",
		"properties.theme.properties.syntax.properties.keyword.pattern": colorPattern,
		"properties.keymap.properties.direct.type":                      "object",
		server + ".properties.command.minItems":                         "1",
	}
	for path, want := range checks {
		if got := doc.Get(gjsonPath(path)).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}

	if !doc.Get("properties.theme.required").IsArray() {
		t.Error("theme.required missing")
	}
	types := doc.Get("properties.theme.properties.background.type").Array()
	if len(types) != 2 {
		t.Errorf("color type = %v, want string or object", types)
	}
}

// gjsonPath escapes the characters of the "^.+$" pattern name.
func gjsonPath(p string) string {
	const name = "^.+$"
	out := ""
	for i := 0; i < len(p); i++ {
		if len(p)-i >= len(name) && p[i:i+len(name)] == name {
			out += `^\.+$`
			i += len(name) - 1
			continue
		}
		out += string(p[i])
	}
	return out
}
