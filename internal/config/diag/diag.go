// Package diag defines the structured, non-fatal reports produced while
// resolving configuration layers.
//
// A Diagnostic never stops a resolution pass. It names the smallest scope
// that was affected (one key, one layer or one plugin) and, where the engine
// substituted a value, carries that fallback so hosts can explain what
// actually took effect.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity orders diagnostics by how much of the configuration they disable.
type Severity uint8

const (
	// SeverityInfo reports something worth knowing that changes nothing.
	SeverityInfo Severity = iota
	// SeverityWarning reports a value that was replaced by a fallback.
	SeverityWarning
	// SeverityError reports a feature that was disabled.
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Kind categorizes a diagnostic.
type Kind uint8

const (
	// KindLayerLoadFailure indicates a layer could not be read or parsed.
	KindLayerLoadFailure Kind = iota
	// KindBindingConflict indicates two layers bound the same chord.
	KindBindingConflict
	// KindBindingShadowed indicates a chord is bound in both modes.
	KindBindingShadowed
	// KindCoercionFailure indicates a value could not be converted during merge.
	KindCoercionFailure
	// KindUnknownKey indicates a key absent from the schema registry.
	KindUnknownKey
	// KindTypeMismatch indicates a value of the wrong type.
	KindTypeMismatch
	// KindMissingRequiredColor indicates a required theme slot is absent or invalid.
	KindMissingRequiredColor
	// KindInvalidCommand indicates an unusable external command vector.
	KindInvalidCommand
	// KindInvalidPattern indicates an ignore pattern that is not a valid glob.
	KindInvalidPattern
	// KindSchemaConflict indicates a key registered twice with different types.
	KindSchemaConflict
)

// String returns the hyphenated kind name used in output.
func (k Kind) String() string {
	switch k {
	case KindLayerLoadFailure:
		return "layer-load-failure"
	case KindBindingConflict:
		return "binding-conflict"
	case KindBindingShadowed:
		return "binding-shadowed"
	case KindCoercionFailure:
		return "type-coercion-failure"
	case KindUnknownKey:
		return "unknown-key"
	case KindTypeMismatch:
		return "type-mismatch"
	case KindMissingRequiredColor:
		return "missing-required-color"
	case KindInvalidCommand:
		return "invalid-command"
	case KindInvalidPattern:
		return "invalid-pattern"
	case KindSchemaConflict:
		return "schema-conflict"
	default:
		return "unknown"
	}
}

// Diagnostic is a single report about the configuration.
type Diagnostic struct {
	// Kind categorizes the problem.
	Kind Kind

	// Severity says how much was disabled.
	Severity Severity

	// Domain is the configuration domain ("theme", "keymap", ...).
	Domain string

	// Key is the key within the domain. Empty for layer-wide problems.
	Key string

	// Layer names the layer the problem was found in, if any.
	Layer string

	// Message is a human-readable description.
	Message string

	// Fallback is the value substituted for the offending one.
	// Only meaningful when HasFallback is true.
	Fallback any

	// HasFallback reports whether Fallback was applied.
	HasFallback bool
}

// Path returns the full dotted path ("theme.background").
func (d Diagnostic) Path() string {
	switch {
	case d.Domain == "":
		return d.Key
	case d.Key == "":
		return d.Domain
	default:
		return d.Domain + "." + d.Key
	}
}

// String formats the diagnostic on one line.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", d.Severity, d.Kind)
	if p := d.Path(); p != "" {
		fmt.Fprintf(&b, " %s", p)
	}
	if d.Layer != "" {
		fmt.Fprintf(&b, " (layer %s)", d.Layer)
	}
	fmt.Fprintf(&b, ": %s", d.Message)
	if d.HasFallback {
		fmt.Fprintf(&b, " (using %v)", d.Fallback)
	}
	return b.String()
}

// WithFallback returns a copy of d carrying the substituted value.
func (d Diagnostic) WithFallback(v any) Diagnostic {
	d.Fallback = v
	d.HasFallback = true
	return d
}

// Sort orders diagnostics by path, then kind, then layer, then message.
// Sorting is stable so equal diagnostics keep their discovery order.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if pa, pb := a.Path(), b.Path(); pa != pb {
			return pa < pb
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		return a.Message < b.Message
	})
}

// List accumulates diagnostics during a pass.
type List struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
}

// Addf appends a diagnostic built from its parts.
func (l *List) Addf(kind Kind, sev Severity, domain, key, layer, format string, args ...any) {
	l.Add(Diagnostic{
		Kind:     kind,
		Severity: sev,
		Domain:   domain,
		Key:      key,
		Layer:    layer,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends every diagnostic in ds.
func (l *List) Merge(ds []Diagnostic) {
	l.items = append(l.items, ds...)
}

// Len returns the number of diagnostics collected.
func (l *List) Len() int {
	return len(l.items)
}

// Items returns a copy of the collected diagnostics.
func (l *List) Items() []Diagnostic {
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

// Count returns how many diagnostics have at least the given severity.
func Count(ds []Diagnostic, min Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity >= min {
			n++
		}
	}
	return n
}

// Filter returns the diagnostics of the given kind.
func Filter(ds []Diagnostic, kind Kind) []Diagnostic {
	var out []Diagnostic
	for _, d := range ds {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
