package snapshot

import (
	"errors"
	"fmt"
	"math"
)

// Accessor errors
var (
	// ErrNotFound indicates the path is not set.
	ErrNotFound = errors.New("setting not found")

	// ErrTypeMismatch indicates the value has a different type.
	ErrTypeMismatch = errors.New("type mismatch")
)

// TypeError is returned when a typed accessor finds a value of another type.
type TypeError struct {
	// Path is the setting path.
	Path string
	// Expected is the expected type name.
	Expected string
	// Actual is the actual type name.
	Actual string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type error for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

func (c *Config) lookup(path string) (any, error) {
	v, ok := c.settings[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return v, nil
}

func typeErr(path, expected string, v any) error {
	return &TypeError{Path: path, Expected: expected, Actual: fmt.Sprintf("%T", v)}
}

// GetString returns a string setting.
func (c *Config) GetString(path string) (string, error) {
	v, err := c.lookup(path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeErr(path, "string", v)
	}
	return s, nil
}

// GetBool returns a boolean setting.
func (c *Config) GetBool(path string) (bool, error) {
	v, err := c.lookup(path)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeErr(path, "bool", v)
	}
	return b, nil
}

// GetInt returns an integer setting.
func (c *Config) GetInt(path string) (int, error) {
	v, err := c.lookup(path)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	}
	return 0, typeErr(path, "integer", v)
}

// GetFloat returns a floating-point setting. Integers are widened.
func (c *Config) GetFloat(path string) (float64, error) {
	v, err := c.lookup(path)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, typeErr(path, "float", v)
	}
}

// GetStrings returns a string sequence setting.
func (c *Config) GetStrings(path string) ([]string, error) {
	v, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	out, ok := toStrings(v)
	if !ok {
		return nil, typeErr(path, "[]string", v)
	}
	return out, nil
}

// StringOr returns the string at path or def.
func (c *Config) StringOr(path, def string) string {
	if s, err := c.GetString(path); err == nil {
		return s
	}
	return def
}

// BoolOr returns the bool at path or def.
func (c *Config) BoolOr(path string, def bool) bool {
	if b, err := c.GetBool(path); err == nil {
		return b
	}
	return def
}

// IntOr returns the int at path or def.
func (c *Config) IntOr(path string, def int) int {
	if n, err := c.GetInt(path); err == nil {
		return n
	}
	return def
}

// FloatOr returns the float at path or def.
func (c *Config) FloatOr(path string, def float64) float64 {
	if f, err := c.GetFloat(path); err == nil {
		return f
	}
	return def
}
