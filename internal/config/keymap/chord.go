// Package keymap models resolved key bindings: normalized key chords, the
// Action variant they trigger, and the immutable binding table the host's
// input loop queries on every key event.
//
// # Chord Specifications
//
// Chords accept the notations used by common editors:
//
//   - Plus-separated: "cmd+up", "Ctrl+Shift+P"
//   - Hyphen-separated: "cmd-up", "ctrl-shift-p"
//   - Multi-stroke sequences separated by spaces: "ctrl+k ctrl+s"
//
// Every chord is normalized to lowercase, "+"-separated form with modifiers
// in the fixed order ctrl, alt, shift, cmd, fn, so "Cmd-Up" and "cmd+up"
// name the same binding.
package keymap

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Parse errors
var (
	ErrEmptyChord        = errors.New("empty key chord")
	ErrInvalidChord      = errors.New("invalid key chord")
	ErrUnknownModifier   = errors.New("unknown modifier")
	ErrUnknownKeyName    = errors.New("unknown key name")
	ErrDuplicateModifier = errors.New("duplicate modifier")
)

// Modifier represents keyboard modifier keys.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModCtrl indicates the Control key.
	ModCtrl Modifier = 1 << (iota - 1)

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModShift indicates the Shift key.
	ModShift

	// ModCmd indicates the Command/Super/Windows key.
	ModCmd

	// ModFn indicates the Fn key.
	ModFn
)

// modifierOrder is the canonical rendering order.
var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModCmd, "cmd"},
	{ModFn, "fn"},
}

// modifierNames maps accepted spellings (lowercase) to modifiers.
var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"shift":   ModShift,
	"cmd":     ModCmd,
	"command": ModCmd,
	"meta":    ModCmd,
	"super":   ModCmd,
	"win":     ModCmd,
	"fn":      ModFn,
}

// String renders the modifiers in canonical order joined by "+".
func (m Modifier) String() string {
	var parts []string
	for _, o := range modifierOrder {
		if m&o.mod != 0 {
			parts = append(parts, o.name)
		}
	}
	return strings.Join(parts, "+")
}

// keyAliases maps accepted named-key spellings to their canonical name.
var keyAliases = map[string]string{
	"enter":     "enter",
	"return":    "enter",
	"cr":        "enter",
	"escape":    "escape",
	"esc":       "escape",
	"tab":       "tab",
	"space":     "space",
	"backspace": "backspace",
	"bs":        "backspace",
	"delete":    "delete",
	"del":       "delete",
	"insert":    "insert",
	"ins":       "insert",
	"home":      "home",
	"end":       "end",
	"pageup":    "pageup",
	"pgup":      "pageup",
	"pagedown":  "pagedown",
	"pgdown":    "pagedown",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"plus":      "+",
	"minus":     "-",
}

// NormalizeChord parses a chord specification and returns its canonical
// form. Multi-stroke sequences are normalized stroke by stroke.
func NormalizeChord(spec string) (string, error) {
	strokes := strings.Fields(spec)
	if len(strokes) == 0 {
		return "", ErrEmptyChord
	}

	out := make([]string, len(strokes))
	for i, s := range strokes {
		n, err := normalizeStroke(s)
		if err != nil {
			return "", fmt.Errorf("%w: %q", err, spec)
		}
		out[i] = n
	}
	return strings.Join(out, " "), nil
}

// MustNormalizeChord is NormalizeChord for chords known to be valid.
func MustNormalizeChord(spec string) string {
	n, err := NormalizeChord(spec)
	if err != nil {
		panic(err)
	}
	return n
}

// normalizeStroke normalizes a single stroke like "Cmd-Shift-P".
func normalizeStroke(stroke string) (string, error) {
	modPart, keyPart := splitStroke(stroke)

	var mods Modifier
	if modPart != "" {
		for _, name := range strings.FieldsFunc(modPart, isSeparator) {
			mod, ok := modifierNames[strings.ToLower(name)]
			if !ok {
				return "", fmt.Errorf("%w %q", ErrUnknownModifier, name)
			}
			if mods&mod != 0 {
				return "", fmt.Errorf("%w %q", ErrDuplicateModifier, name)
			}
			mods |= mod
		}
	}

	key, err := normalizeKey(keyPart)
	if err != nil {
		return "", err
	}

	if mods == ModNone {
		return key, nil
	}
	return mods.String() + "+" + key, nil
}

// splitStroke separates the modifier prefix from the key. The key itself
// may be "+" or "-" ("ctrl+-", "cmd-+").
func splitStroke(stroke string) (mods, key string) {
	if len(stroke) <= 1 {
		return "", stroke
	}

	last := stroke[len(stroke)-1]
	if isSeparator(rune(last)) && isSeparator(rune(stroke[len(stroke)-2])) {
		return stroke[:len(stroke)-2], stroke[len(stroke)-1:]
	}

	idx := strings.LastIndexFunc(stroke, isSeparator)
	if idx <= 0 {
		return "", stroke
	}
	return stroke[:idx], stroke[idx+1:]
}

// normalizeKey returns the canonical key name.
func normalizeKey(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidChord
	}

	lower := strings.ToLower(key)
	if name, ok := keyAliases[lower]; ok {
		return name, nil
	}
	if isFunctionKey(lower) {
		return lower, nil
	}
	if utf8.RuneCountInString(key) == 1 {
		return lower, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKeyName, key)
}

// isFunctionKey reports whether name is f1 through f24.
func isFunctionKey(name string) bool {
	if len(name) < 2 || name[0] != 'f' {
		return false
	}
	n := 0
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n >= 1 && n <= 24 && name[1] != '0'
}

func isSeparator(r rune) bool {
	return r == '+' || r == '-'
}
