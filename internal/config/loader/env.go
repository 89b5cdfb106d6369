package loader

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/keyconf/internal/config/layer"
)

// DefaultEnvPrefix prefixes the environment variables read by EnvSource.
const DefaultEnvPrefix = "KEYCONF_"

// EnvSeparator separates path segments in a variable name. A single
// underscore stays part of the key: KEYCONF_EDITOR__FONT_SIZE is
// editor.font_size.
const EnvSeparator = "__"

// EnvSource loads a layer from environment variables.
type EnvSource struct {
	prefix  string            // Environment variable prefix (e.g., "KEYCONF_")
	mapping map[string]string // Env var -> config path
	environ func() []string
}

// NewEnvSource creates an environment source. The prefix should include
// the trailing underscore.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix:  prefix,
		mapping: make(map[string]string),
		environ: os.Environ,
	}
}

// AddMapping maps a variable that does not follow the naming scheme to a
// configuration path.
func (s *EnvSource) AddMapping(envVar, configPath string) {
	s.mapping[envVar] = configPath
}

// RemoveMapping removes an environment variable mapping.
func (s *EnvSource) RemoveMapping(envVar string) {
	delete(s.mapping, envVar)
}

// Load reads the matching variables into a nested map.
// Empty string values are treated as valid values, not as unset.
func (s *EnvSource) Load() map[string]any {
	doc := make(map[string]any)
	vars := s.environ()
	sort.Strings(vars)
	for _, kv := range vars {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		path, mapped := s.mapping[name]
		if !mapped {
			if !strings.HasPrefix(name, s.prefix) {
				continue
			}
			path = s.envToPath(name)
		}
		if path == "" {
			continue
		}
		layer.SetByPath(doc, path, ParseValue(value))
	}
	return doc
}

// LoadLayer returns the environment layer. When no variable matches it
// returns an error matching ErrNotExist.
func (s *EnvSource) LoadLayer(ctx context.Context, name string) (*layer.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := s.Load()
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: no %s* variables", ErrNotExist, s.prefix)
	}
	return layer.New(name, layer.SourceEnv, layer.PriorityEnv, doc).
		WithOrigin("environment", time.Time{}), nil
}

// envToPath converts KEYCONF_EDITOR__TAB_SIZE to editor.tab_size.
func (s *EnvSource) envToPath(env string) string {
	name := strings.TrimPrefix(env, s.prefix)
	parts := strings.Split(name, EnvSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return ""
		}
		out = append(out, strings.ToLower(p))
	}
	return strings.Join(out, ".")
}

// ParseValue converts a textual value into the most specific type:
// bool, int64, float64, a JSON array or object, or the string itself.
func ParseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	// Only values with a decimal point are floats.
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		if gjson.Valid(s) {
			return jsonValue(gjson.Parse(s))
		}
	}

	return s
}

// ParseOverrides converts "path=value" pairs, as given on a command line,
// into a nested map. Later pairs win.
func ParseOverrides(pairs []string) (map[string]any, error) {
	doc := make(map[string]any)
	for _, pair := range pairs {
		path, value, ok := strings.Cut(pair, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
			return nil, fmt.Errorf("invalid override %q: want path=value", pair)
		}
		layer.SetByPath(doc, path, ParseValue(value))
	}
	return doc, nil
}
