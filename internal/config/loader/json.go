package loader

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
)

// decodeJSON accepts JSON with comments and trailing commas, as editor
// settings files commonly contain.
func decodeJSON(source string, data []byte) (map[string]any, error) {
	clean := jsonc.ToJSON(data)
	if strings.TrimSpace(string(clean)) == "" {
		return nil, nil
	}
	if !gjson.ValidBytes(clean) {
		return nil, &ParseError{Path: source, Format: FormatJSON, Message: "invalid JSON"}
	}
	root := gjson.ParseBytes(clean)
	if !root.IsObject() {
		return nil, &ParseError{
			Path:    source,
			Format:  FormatJSON,
			Message: fmt.Sprintf("document root must be an object, got %s", root.Type),
		}
	}
	doc, _ := jsonValue(root).(map[string]any)
	return doc, nil
}

// jsonValue converts a gjson result. Integral numbers without a fraction
// or exponent decode as int64, matching the TOML decoder.
func jsonValue(r gjson.Result) any {
	switch {
	case r.IsObject():
		out := make(map[string]any)
		r.ForEach(func(k, v gjson.Result) bool {
			out[k.String()] = jsonValue(v)
			return true
		})
		return out
	case r.IsArray():
		items := r.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = jsonValue(item)
		}
		return out
	}

	switch r.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		return r.Str
	case gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			return r.Int()
		}
		return r.Float()
	default:
		return nil
	}
}
