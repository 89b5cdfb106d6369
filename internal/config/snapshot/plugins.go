package snapshot

import (
	"maps"
	"slices"
	"strings"
)

const (
	pluginsPrefix = "plugins."
	ignorePath    = "ignore.patterns"
)

// Plugins returns the plugin settings keyed by plugin id. Unknown keys are
// retained verbatim.
func (c *Config) Plugins() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for id, v := range c.subtree("plugins") {
		if m, ok := v.(map[string]any); ok {
			out[id] = m
		} else {
			out[id] = map[string]any{"": v}
		}
	}
	return out
}

// PluginIDs returns the configured plugin ids, sorted.
func (c *Config) PluginIDs() []string {
	ids := make(map[string]struct{})
	for k := range c.settings {
		rest, ok := strings.CutPrefix(k, pluginsPrefix)
		if !ok {
			continue
		}
		id, _, _ := strings.Cut(rest, ".")
		ids[id] = struct{}{}
	}
	return slices.Sorted(maps.Keys(ids))
}

// Plugin returns the settings of one plugin.
func (c *Config) Plugin(id string) (map[string]any, bool) {
	m := c.subtree("plugins." + id)
	return m, len(m) > 0
}

// IntegrationEnabled reports whether a plugin integration is active.
// id is a path within the plugins domain: "lsp" or "lsp.servers.gopls".
// An integration is off when validation disabled it or any enclosing
// "enabled" flag is false.
func (c *Config) IntegrationEnabled(id string) bool {
	parts := strings.Split(id, ".")
	for i := 1; i <= len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		if c.disabled[prefix] {
			return false
		}
		if b, ok := c.settings[pluginsPrefix+prefix+".enabled"].(bool); ok && !b {
			return false
		}
	}
	return true
}

// Disabled returns the integrations switched off by validation, sorted.
func (c *Config) Disabled() []string {
	return slices.Sorted(maps.Keys(c.disabled))
}

// Commands returns the launch command vectors of enabled integrations,
// keyed by integration id ("lsp.servers.gopls"). A command vector is any
// plugin setting whose last segment is "command" and whose value is a
// string sequence.
func (c *Config) Commands() map[string][]string {
	out := make(map[string][]string)
	for k, v := range c.settings {
		rest, ok := strings.CutPrefix(k, pluginsPrefix)
		if !ok {
			continue
		}
		id, ok := strings.CutSuffix(rest, ".command")
		if !ok {
			continue
		}
		argv, ok := toStrings(v)
		if !ok || !c.IntegrationEnabled(id) {
			continue
		}
		out[id] = argv
	}
	return out
}

// IgnorePatterns returns the resolved ignore globs.
func (c *Config) IgnorePatterns() []string {
	p, err := c.GetStrings(ignorePath)
	if err != nil {
		return nil
	}
	return p
}

func toStrings(v any) ([]string, bool) {
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
