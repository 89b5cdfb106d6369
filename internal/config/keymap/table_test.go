package keymap

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAction(t *testing.T) {
	called := ""
	procs := map[string]Procedure{
		"smart_return": func(chord string) Outcome {
			called = chord
			return Handled
		},
	}

	tests := []struct {
		name          string
		in            any
		wantKind      ActionKind
		wantName      string
		wantOverwrite bool
		wantErr       error
	}{
		{"string command", "editor.save", ActionCommand, "editor.save", false, nil},
		{"command table", map[string]any{"command": "editor.select_next", "overwrite": true}, ActionCommand, "editor.select_next", true, nil},
		{"procedure table", map[string]any{"procedure": "smart_return"}, ActionProcedure, "smart_return", false, nil},
		{"unknown procedure", map[string]any{"procedure": "nope"}, ActionProcedure, "nope", false, nil},
		{"both kinds", map[string]any{"procedure": "a", "command": "b"}, ActionNone, "", false, ErrAmbiguousKind},
		{"neither kind", map[string]any{"overwrite": true}, ActionNone, "", false, ErrInvalidAction},
		{"bad overwrite", map[string]any{"command": "a", "overwrite": "yes"}, ActionNone, "", false, ErrInvalidAction},
		{"bad args", map[string]any{"command": "a", "args": 3}, ActionNone, "", false, ErrInvalidAction},
		{"empty string", "", ActionNone, "", false, ErrInvalidAction},
		{"number", 42, ActionNone, "", false, ErrInvalidAction},
		{"inline func", func(string) Outcome { return NotHandled }, ActionProcedure, "", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, overwrite, err := ParseAction(tt.in, procs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if act.Kind != tt.wantKind || act.Name != tt.wantName || overwrite != tt.wantOverwrite {
				t.Errorf("got %v/%q overwrite=%v, want %v/%q overwrite=%v",
					act.Kind, act.Name, overwrite, tt.wantKind, tt.wantName, tt.wantOverwrite)
			}
		})
	}

	act, _, _ := ParseAction(map[string]any{"procedure": "smart_return"}, procs)
	if got := act.Run("enter"); got != Handled || called != "enter" {
		t.Errorf("Run = %v (called %q), want handled (enter)", got, called)
	}

	unresolved, _, _ := ParseAction(map[string]any{"procedure": "nope"}, procs)
	if got := unresolved.Run("enter"); got != NotHandled {
		t.Errorf("unresolved procedure Run = %v, want not-handled", got)
	}
}

func TestAction_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Action
		want bool
	}{
		{"same command", Command("a", nil), Command("a", nil), true},
		{"different command", Command("a", nil), Command("b", nil), false},
		{"same args", Command("a", map[string]any{"n": 1}), Command("a", map[string]any{"n": 1}), true},
		{"different args", Command("a", map[string]any{"n": 1}), Command("a", map[string]any{"n": 2}), false},
		{"empty and nil args", Command("a", map[string]any{}), Command("a", nil), true},
		{"same procedure name", Proc("p", nil), Proc("p", nil), true},
		{"inline procedures", Proc("", nil), Proc("", nil), false},
		{"command vs procedure", Command("p", nil), Proc("p", nil), false},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%s: Equal = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBuilder_DirectConflict(t *testing.T) {
	b := NewBuilder()

	if _, conflict := b.Install(Binding{Chord: "cmd+up", Action: Command("editor.move_to_beginning", nil), Layer: "defaults"}); conflict {
		t.Fatal("first install reported a conflict")
	}

	c, conflict := b.Install(Binding{Chord: "cmd+up", Action: Command("editor.page_up", nil), Layer: "user"})
	if !conflict {
		t.Fatal("rebind without overwrite should conflict")
	}
	if c.Existing.Layer != "defaults" || c.Replacement.Layer != "user" {
		t.Errorf("conflict layers = %q -> %q", c.Existing.Layer, c.Replacement.Layer)
	}

	tbl := b.Build()
	act, ok := tbl.Lookup("cmd+up", Direct)
	if !ok || act.Name != "editor.page_up" {
		t.Errorf("Lookup = %v, %v; want the user binding", act, ok)
	}
}

func TestBuilder_DirectOverwrite(t *testing.T) {
	b := NewBuilder()
	b.Install(Binding{Chord: "cmd+d", Action: Command("a", nil), Layer: "defaults"})

	if _, conflict := b.Install(Binding{Chord: "cmd+d", Action: Command("b", nil), Overwrite: true, Layer: "user"}); conflict {
		t.Error("overwrite rebind should not conflict")
	}
	if _, conflict := b.Install(Binding{Chord: "cmd+d", Action: Command("b", nil), Layer: "project"}); conflict {
		t.Error("identical rebind should not conflict")
	}
}

func TestBuilder_ContextualConflict(t *testing.T) {
	b := NewBuilder()
	b.Install(Binding{Chord: "enter", Mode: Contextual, Action: Proc("a", nil), Layer: "defaults"})

	_, conflict := b.Install(Binding{Chord: "enter", Mode: Contextual, Action: Proc("b", nil), Overwrite: true, Layer: "user"})
	if !conflict {
		t.Error("a second contextual handler conflicts even with overwrite")
	}

	act, _ := b.Build().Lookup("enter", Contextual)
	if act.Name != "b" {
		t.Errorf("contextual handler = %q, want the higher layer's", act.Name)
	}
}

func TestBuilder_BuildIsolated(t *testing.T) {
	b := NewBuilder()
	b.Install(Binding{Chord: "a", Action: Command("x", nil)})
	tbl := b.Build()

	b.Install(Binding{Chord: "b", Action: Command("y", nil)})
	b.Remove("a", Direct)

	if tbl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tbl.Len())
	}
	if _, ok := tbl.Lookup("a", Direct); !ok {
		t.Error("built table changed after builder mutation")
	}
}

func TestTable_LookupNormalizes(t *testing.T) {
	b := NewBuilder()
	b.Install(Binding{Chord: MustNormalizeChord("cmd+up"), Action: Command("top", nil)})
	tbl := b.Build()

	for _, chord := range []string{"cmd+up", "Cmd+Up", "cmd-up", "command-UP"} {
		if _, ok := tbl.Lookup(chord, Direct); !ok {
			t.Errorf("Lookup(%q) not found", chord)
		}
	}
	if _, ok := tbl.Lookup("cmd+up", Contextual); ok {
		t.Error("direct binding visible in contextual mode")
	}
	if _, ok := tbl.Lookup("not a chord!", Direct); ok {
		t.Error("invalid chord should not match")
	}
}

func TestTable_BindingsAndShadowed(t *testing.T) {
	b := NewBuilder()
	b.Install(Binding{Chord: "tab", Action: Command("indent", nil)})
	b.Install(Binding{Chord: "enter", Action: Command("newline", nil)})
	b.Install(Binding{Chord: "tab", Mode: Contextual, Action: Proc("complete", nil)})
	tbl := b.Build()

	var got []string
	for _, bind := range tbl.Bindings() {
		got = append(got, bind.Mode.String()+":"+bind.Chord)
	}
	want := []string{"direct:enter", "direct:tab", "contextual:tab"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Bindings mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"tab"}, tbl.Shadowed()); diff != "" {
		t.Errorf("Shadowed mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Dispatch(t *testing.T) {
	var log []string
	decline := func(chord string) Outcome {
		log = append(log, "decline:"+chord)
		return NotHandled
	}
	accept := func(chord string) Outcome {
		log = append(log, "accept:"+chord)
		return Handled
	}
	exec := func(a Action) Outcome {
		log = append(log, "exec:"+a.Name)
		return Handled
	}

	b := NewBuilder()
	b.Install(Binding{Chord: "enter", Mode: Contextual, Action: Proc("smart_return", decline)})
	b.Install(Binding{Chord: "enter", Action: Command("newline", nil)})
	b.Install(Binding{Chord: "tab", Mode: Contextual, Action: Proc("complete", accept)})
	b.Install(Binding{Chord: "tab", Action: Command("indent", nil)})
	tbl := b.Build()

	tests := []struct {
		chord string
		want  Outcome
		log   []string
	}{
		{"Return", Handled, []string{"decline:enter", "exec:newline"}},
		{"tab", Handled, []string{"accept:tab"}},
		{"ctrl+q", NotHandled, nil},
	}
	for _, tt := range tests {
		log = nil
		if got := tbl.Dispatch(tt.chord, exec); got != tt.want {
			t.Errorf("Dispatch(%q) = %v, want %v", tt.chord, got, tt.want)
		}
		if diff := cmp.Diff(tt.log, log); diff != "" {
			t.Errorf("Dispatch(%q) calls mismatch (-want +got):\n%s", tt.chord, diff)
		}
	}

	if got := tbl.Dispatch("enter", nil); got != NotHandled {
		t.Errorf("Dispatch with nil exec = %v, want not-handled", got)
	}
}
