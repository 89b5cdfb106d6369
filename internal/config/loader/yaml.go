package loader

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

func decodeYAML(source string, data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, yamlError(source, err)
	}
	if raw == nil {
		return nil, nil
	}
	doc, ok := normalizeYAML(raw).(map[string]any)
	if !ok {
		return nil, &ParseError{
			Path:    source,
			Format:  FormatYAML,
			Message: fmt.Sprintf("document root must be a mapping, got %T", raw),
		}
	}
	return doc, nil
}

func yamlError(source string, err error) error {
	perr := &ParseError{Path: source, Format: FormatYAML, Message: err.Error(), Err: err}
	msg := err.Error()
	var terr *yaml.TypeError
	if errors.As(err, &terr) && len(terr.Errors) > 0 {
		msg = terr.Errors[0]
		perr.Message = strings.Join(terr.Errors, "; ")
	}
	msg = strings.TrimPrefix(msg, "yaml: ")
	var line int
	if _, scanErr := fmt.Sscanf(msg, "line %d:", &line); scanErr == nil {
		perr.Line = line
	}
	return perr
}

// normalizeYAML converts mappings with non-string keys into
// map[string]any so every decoder yields the same shapes.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeYAML(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalizeYAML(item)
		}
		return t
	default:
		return v
	}
}
