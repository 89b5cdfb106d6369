package keymap

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
)

// Action errors
var (
	ErrInvalidAction = errors.New("invalid binding action")
	ErrAmbiguousKind = errors.New("binding sets both command and procedure")
)

// ActionKind identifies the Action variant.
type ActionKind uint8

const (
	// ActionNone is the zero Action.
	ActionNone ActionKind = iota
	// ActionCommand references a named editor command.
	ActionCommand
	// ActionProcedure references a host procedure that may decline the key.
	ActionProcedure
)

// String returns the kind name.
func (k ActionKind) String() string {
	switch k {
	case ActionCommand:
		return "command"
	case ActionProcedure:
		return "procedure"
	default:
		return "none"
	}
}

// Outcome is the result of running a procedure.
type Outcome uint8

const (
	// NotHandled lets default key processing continue.
	NotHandled Outcome = iota
	// Handled consumes the key event.
	Handled
)

// String returns "handled" or "not-handled".
func (o Outcome) String() string {
	if o == Handled {
		return "handled"
	}
	return "not-handled"
}

// Procedure is a host-provided key handler. It receives the normalized
// chord and decides whether it consumed the event.
type Procedure func(chord string) Outcome

// Action is what a key binding triggers: either a named command with
// optional arguments or a procedure reference.
type Action struct {
	Kind ActionKind

	// Name is the command name or the procedure name.
	Name string

	// Args are command arguments. Nil for procedures.
	Args map[string]any

	// Proc is the resolved procedure. It is nil for commands and for
	// procedure names the host never registered.
	Proc Procedure
}

// Command returns a command Action.
func Command(name string, args map[string]any) Action {
	return Action{Kind: ActionCommand, Name: name, Args: maps.Clone(args)}
}

// Proc returns a procedure Action.
func Proc(name string, fn Procedure) Action {
	return Action{Kind: ActionProcedure, Name: name, Proc: fn}
}

// IsZero reports whether the action is unset.
func (a Action) IsZero() bool {
	return a.Kind == ActionNone
}

// Equal reports whether two actions trigger the same behavior. Procedures
// compare by name; inline procedures without a name never compare equal.
func (a Action) Equal(b Action) bool {
	if a.Kind != b.Kind || a.Name != b.Name {
		return false
	}
	switch a.Kind {
	case ActionCommand:
		if len(a.Args) == 0 && len(b.Args) == 0 {
			return true
		}
		return reflect.DeepEqual(a.Args, b.Args)
	case ActionProcedure:
		return a.Name != ""
	default:
		return true
	}
}

// Run invokes a procedure action. Commands and unresolved procedures
// report NotHandled; executing commands is the host's job.
func (a Action) Run(chord string) Outcome {
	if a.Kind != ActionProcedure || a.Proc == nil {
		return NotHandled
	}
	return a.Proc(chord)
}

// String renders the action for diagnostics.
func (a Action) String() string {
	switch a.Kind {
	case ActionCommand:
		if len(a.Args) > 0 {
			return fmt.Sprintf("command %s %v", a.Name, a.Args)
		}
		return "command " + a.Name
	case ActionProcedure:
		if a.Name == "" {
			return "procedure <inline>"
		}
		return "procedure " + a.Name
	default:
		return "none"
	}
}

// ParseAction converts a document value into an Action.
//
// Accepted forms:
//
//	"editor.save"                                   named command
//	{ command = "editor.save", args = {...} }       command with arguments
//	{ procedure = "smart_return" }                  procedure by name
//	{ ..., overwrite = true }                       explicit rebind
//	Action / Procedure / func(string) Outcome       programmatic layers
//
// Procedure names are resolved against procs; an unknown name yields a
// procedure Action with a nil Proc.
func ParseAction(v any, procs map[string]Procedure) (act Action, overwrite bool, err error) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return Action{}, false, fmt.Errorf("%w: empty command name", ErrInvalidAction)
		}
		return Command(val, nil), false, nil
	case Action:
		if val.IsZero() {
			return Action{}, false, fmt.Errorf("%w: zero action", ErrInvalidAction)
		}
		return val, false, nil
	case Procedure:
		return Proc("", val), false, nil
	case func(string) Outcome:
		return Proc("", val), false, nil
	case map[string]any:
		return parseActionTable(val, procs)
	default:
		return Action{}, false, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidAction, v)
	}
}

func parseActionTable(m map[string]any, procs map[string]Procedure) (Action, bool, error) {
	var overwrite bool
	if raw, ok := m["overwrite"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return Action{}, false, fmt.Errorf("%w: overwrite must be a bool, got %T", ErrInvalidAction, raw)
		}
		overwrite = b
	}

	cmd, hasCmd := m["command"]
	proc, hasProc := m["procedure"]

	switch {
	case hasCmd && hasProc:
		return Action{}, false, ErrAmbiguousKind
	case hasCmd:
		name, ok := cmd.(string)
		if !ok || name == "" {
			return Action{}, false, fmt.Errorf("%w: command must be a non-empty string", ErrInvalidAction)
		}
		var args map[string]any
		if raw, ok := m["args"]; ok {
			args, ok = raw.(map[string]any)
			if !ok {
				return Action{}, false, fmt.Errorf("%w: args must be a table, got %T", ErrInvalidAction, raw)
			}
		}
		return Command(name, args), overwrite, nil
	case hasProc:
		name, ok := proc.(string)
		if !ok || name == "" {
			return Action{}, false, fmt.Errorf("%w: procedure must be a non-empty string", ErrInvalidAction)
		}
		return Proc(name, procs[name]), overwrite, nil
	default:
		return Action{}, false, fmt.Errorf("%w: table needs command or procedure", ErrInvalidAction)
	}
}
