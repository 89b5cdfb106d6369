package keymap

import (
	"fmt"
	"sort"
)

// Mode is the binding mode.
type Mode uint8

const (
	// Direct bindings map a chord unconditionally to an action.
	Direct Mode = iota
	// Contextual bindings map a chord to a procedure that may decline it.
	Contextual
)

// String returns "direct" or "contextual".
func (m Mode) String() string {
	if m == Contextual {
		return "contextual"
	}
	return "direct"
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "direct":
		return Direct, nil
	case "contextual":
		return Contextual, nil
	default:
		return Direct, fmt.Errorf("unknown binding mode %q", s)
	}
}

// Binding is one resolved key binding.
type Binding struct {
	Chord     string
	Mode      Mode
	Action    Action
	Overwrite bool
	Layer     string
}

// Conflict describes a binding that displaced a different one.
type Conflict struct {
	Existing    Binding
	Replacement Binding
}

// String describes the conflict.
func (c Conflict) String() string {
	return fmt.Sprintf("%s binding %q: %s from layer %q replaced %s from layer %q",
		c.Replacement.Mode, c.Replacement.Chord,
		c.Replacement.Action, c.Replacement.Layer,
		c.Existing.Action, c.Existing.Layer)
}

// Builder accumulates bindings layer by layer. It is not safe for
// concurrent use; a resolution pass owns its builder.
type Builder struct {
	modes [2]map[string]Binding
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{modes: [2]map[string]Binding{
		make(map[string]Binding),
		make(map[string]Binding),
	}}
}

// Install adds b, which must carry a normalized chord. The binding is
// always installed; a displaced binding is reported as a conflict when
// the actions differ and the rebind was not permitted. Direct rebinds are
// permitted by the overwrite flag. Contextual chords allow only one
// handler, so any different handler is a conflict.
func (bld *Builder) Install(b Binding) (Conflict, bool) {
	if b.Mode > Contextual {
		b.Mode = Direct
	}
	table := bld.modes[b.Mode]
	existing, ok := table[b.Chord]
	table[b.Chord] = b

	if !ok || existing.Action.Equal(b.Action) {
		return Conflict{}, false
	}
	if b.Mode == Direct && b.Overwrite {
		return Conflict{}, false
	}
	return Conflict{Existing: existing, Replacement: b}, true
}

// Remove deletes a binding.
func (bld *Builder) Remove(chord string, mode Mode) {
	delete(bld.modes[mode], chord)
}

// Build returns the immutable table. The builder may continue to be used;
// later changes do not affect the returned table.
func (bld *Builder) Build() *Table {
	t := &Table{}
	for m := range bld.modes {
		t.modes[m] = make(map[string]Binding, len(bld.modes[m]))
		for k, v := range bld.modes[m] {
			t.modes[m][k] = v
		}
	}
	return t
}

// Table is an immutable set of resolved bindings. It is safe for
// concurrent use.
type Table struct {
	modes [2]map[string]Binding
}

// Lookup returns the action bound to chord in mode. The chord is
// normalized first, so "Cmd-Up" finds a "cmd+up" binding.
func (t *Table) Lookup(chord string, mode Mode) (Action, bool) {
	b, ok := t.Binding(chord, mode)
	return b.Action, ok
}

// Binding returns the full binding for chord in mode.
func (t *Table) Binding(chord string, mode Mode) (Binding, bool) {
	if t == nil || mode > Contextual {
		return Binding{}, false
	}
	norm, err := NormalizeChord(chord)
	if err != nil {
		return Binding{}, false
	}
	b, ok := t.modes[mode][norm]
	return b, ok
}

// Bindings returns all bindings ordered by mode, then chord.
func (t *Table) Bindings() []Binding {
	if t == nil {
		return nil
	}
	out := make([]Binding, 0, t.Len())
	for m := range t.modes {
		for _, b := range t.modes[m] {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mode != out[j].Mode {
			return out[i].Mode < out[j].Mode
		}
		return out[i].Chord < out[j].Chord
	})
	return out
}

// Shadowed returns the chords bound in both modes, sorted.
func (t *Table) Shadowed() []string {
	if t == nil {
		return nil
	}
	var out []string
	for chord := range t.modes[Contextual] {
		if _, ok := t.modes[Direct][chord]; ok {
			out = append(out, chord)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of bindings across both modes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.modes[Direct]) + len(t.modes[Contextual])
}

// Dispatch resolves a key event. A contextual handler runs first; if it
// declines, the direct binding runs. Direct procedures are invoked in
// place and direct commands are handed to exec. A nil exec reports
// commands as NotHandled.
func (t *Table) Dispatch(chord string, exec func(Action) Outcome) Outcome {
	norm, err := NormalizeChord(chord)
	if err != nil {
		return NotHandled
	}
	chord = norm

	if act, ok := t.Lookup(chord, Contextual); ok {
		if act.Run(chord) == Handled {
			return Handled
		}
	}

	act, ok := t.Lookup(chord, Direct)
	if !ok {
		return NotHandled
	}
	if act.Kind == ActionProcedure {
		return act.Run(chord)
	}
	if exec == nil {
		return NotHandled
	}
	return exec(act)
}
