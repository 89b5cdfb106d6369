// Package schema validates a merged configuration snapshot against the
// setting registry.
//
// Validation is pure: it reads a snapshot and returns diagnostics in a
// deterministic order. Diagnostics that carry a fallback tell the caller
// which value to substitute; the validator itself never changes the
// snapshot.
package schema

import (
	"fmt"
	"image/color"
	"maps"
	"slices"
	"strings"

	"github.com/dshills/keyconf/internal/config/diag"
	"github.com/dshills/keyconf/internal/config/registry"
	"github.com/dshills/keyconf/internal/config/snapshot"
	"github.com/dshills/keyconf/internal/config/theme"
)

const commandLeaf = "command"

// Validator checks snapshots against a registry.
type Validator struct {
	reg *registry.Registry
}

// NewValidator creates a validator for the given registry. A nil registry
// treats every key as unknown.
func NewValidator(reg *registry.Registry) *Validator {
	if reg == nil {
		reg = registry.New()
	}
	return &Validator{reg: reg}
}

// Validate runs every check and returns the diagnostics sorted by path.
// Calling it twice on the same snapshot yields the same result.
func (v *Validator) Validate(cfg *snapshot.Config) []diag.Diagnostic {
	var ds diag.List
	v.checkRegistry(&ds)
	if cfg != nil {
		settings := cfg.Settings()
		paths := slices.Sorted(maps.Keys(settings))
		v.checkKeys(&ds, cfg, settings, paths)
		v.checkColors(&ds, cfg)
		v.checkCommands(&ds, cfg, settings, paths)
		v.checkPatterns(&ds, cfg, settings)
	}
	out := ds.Items()
	diag.Sort(out)
	return out
}

func (v *Validator) checkRegistry(ds *diag.List) {
	for _, c := range v.reg.Conflicts() {
		ds.Addf(diag.KindSchemaConflict, diag.SeverityError, c.Domain, c.Key, "", "%s", c)
	}
}

// checkKeys reports unknown keys and values of the wrong type. Theme slots
// are checked through the palette instead.
func (v *Validator) checkKeys(ds *diag.List, cfg *snapshot.Config, settings map[string]any, paths []string) {
	reported := make(map[string]bool)
	for _, p := range paths {
		domain, key, _ := strings.Cut(p, ".")
		if domain == registry.DomainTheme {
			continue
		}
		layer, _ := cfg.Provenance(p)

		if s, ok := v.reg.Lookup(domain, key); ok {
			if s.Type == registry.TypeCommand || s.Type.Accepts(settings[p]) {
				continue
			}
			ds.Add(mismatch(s, domain, key, layer, settings[p]))
			continue
		}

		// A leaf below a registered key: fine inside a mapping, a type
		// mismatch of the enclosing key otherwise.
		if anc, s, ok := v.ancestor(domain, key); ok {
			if s.Type == registry.TypeMapping || s.Type == registry.TypeAny {
				continue
			}
			if !reported[domain+"."+anc] {
				reported[domain+"."+anc] = true
				ds.Add(mismatch(s, domain, anc, layer, cfg.Domain(domain+"."+anc)))
			}
			continue
		}

		if !v.reg.HasDomain(domain) {
			ds.Addf(diag.KindUnknownKey, diag.SeverityInfo, domain, key, layer,
				"unknown domain %q; value retained", domain)
			continue
		}
		ds.Addf(diag.KindUnknownKey, diag.SeverityInfo, domain, key, layer, "unknown key; value retained")
	}
}

// ancestor returns the nearest registered key enclosing key.
func (v *Validator) ancestor(domain, key string) (string, registry.Setting, bool) {
	for i := strings.LastIndex(key, "."); i > 0; i = strings.LastIndex(key[:i], ".") {
		if s, ok := v.reg.Lookup(domain, key[:i]); ok {
			return key[:i], s, true
		}
	}
	return "", registry.Setting{}, false
}

func mismatch(s registry.Setting, domain, key, layer string, got any) diag.Diagnostic {
	d := diag.Diagnostic{
		Kind:     diag.KindTypeMismatch,
		Severity: diag.SeverityWarning,
		Domain:   domain,
		Key:      key,
		Layer:    layer,
		Message:  fmt.Sprintf("expected %s, got %s", s.Type, describe(got)),
	}
	if s.Default != nil {
		d = d.WithFallback(s.Default)
	}
	return d
}

// checkColors reports required theme slots that did not resolve. The
// fallback is the setting's own fallback, else the foreground for syntax
// slots, else the default foreground.
func (v *Validator) checkColors(ds *diag.List, cfg *snapshot.Config) {
	resolved := cfg.Palette().Map()
	for _, s := range v.reg.Required(registry.DomainTheme) {
		if _, ok := resolved[s.Key]; ok {
			continue
		}
		fb := colorFallback(s, resolved)
		resolved[s.Key] = fb
		ds.Add(diag.Diagnostic{
			Kind:     diag.KindMissingRequiredColor,
			Severity: diag.SeverityWarning,
			Domain:   registry.DomainTheme,
			Key:      s.Key,
			Message:  "required color is missing or invalid",
		}.WithFallback(fb))
	}
}

func colorFallback(s registry.Setting, resolved map[string]theme.Color) theme.Color {
	switch fb := s.Fallback.(type) {
	case theme.Color:
		return fb
	case color.Color:
		return theme.FromColor(fb)
	case string:
		if c, err := theme.ParseColor(fb); err == nil {
			return c
		}
	}
	if strings.HasPrefix(s.Key, "syntax.") {
		if fg, ok := resolved["foreground"]; ok {
			return fg
		}
	}
	return theme.MustParseColor(registry.DefaultForeground)
}

// checkCommands reports unusable command vectors of enabled integrations.
func (v *Validator) checkCommands(ds *diag.List, cfg *snapshot.Config, settings map[string]any, paths []string) {
	for _, p := range paths {
		key, ok := strings.CutPrefix(p, registry.DomainPlugins+".")
		if !ok || !v.isCommand(key) {
			continue
		}
		id := IntegrationOf(key)
		if !cfg.IntegrationEnabled(id) {
			continue
		}

		var err error
		if argv, ok := asStrings(settings[p]); !ok {
			err = ErrCommandType
		} else {
			err = CheckCommand(argv)
		}
		if err == nil {
			continue
		}
		layer, _ := cfg.Provenance(p)
		ds.Addf(diag.KindInvalidCommand, diag.SeverityError, registry.DomainPlugins, key, layer,
			"%v; integration %q disabled", &ValidationError{Path: p, Value: settings[p], Err: err}, id)
	}
}

func (v *Validator) isCommand(key string) bool {
	if key == commandLeaf || strings.HasSuffix(key, "."+commandLeaf) {
		return true
	}
	s, ok := v.reg.Lookup(registry.DomainPlugins, key)
	return ok && s.Type == registry.TypeCommand
}

// IntegrationOf returns the integration id owning a plugin command key:
// "lsp.servers.gopls.command" belongs to "lsp.servers.gopls".
func IntegrationOf(key string) string {
	if i := strings.LastIndex(key, "."); i > 0 {
		return key[:i]
	}
	return key
}

// checkPatterns reports ignore globs that cannot be matched. Each
// diagnostic's fallback is the pattern list without the bad entries.
func (v *Validator) checkPatterns(ds *diag.List, cfg *snapshot.Config, settings map[string]any) {
	const key = "patterns"
	p := registry.DomainIgnore + "." + key
	patterns, ok := asStrings(settings[p])
	if !ok {
		return
	}

	valid := make([]string, 0, len(patterns))
	var bad []error
	for i, pat := range patterns {
		if err := CheckPattern(pat); err != nil {
			bad = append(bad, fmt.Errorf("pattern %d %q: %w", i, pat, err))
			continue
		}
		valid = append(valid, pat)
	}

	layer, _ := cfg.Provenance(p)
	for _, err := range bad {
		ds.Add(diag.Diagnostic{
			Kind:     diag.KindInvalidPattern,
			Severity: diag.SeverityWarning,
			Domain:   registry.DomainIgnore,
			Key:      key,
			Layer:    layer,
			Message:  err.Error() + "; pattern dropped",
		}.WithFallback(slices.Clone(valid)))
	}
}

// describe names the type of a configuration value.
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "float"
	case []string, []any:
		return "sequence"
	case map[string]any:
		return "mapping"
	case color.Color:
		return "color"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func asStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return slices.Clone(s), true
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
