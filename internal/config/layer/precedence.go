package layer

import "sort"

// Standard priority levels for configuration layers.
// Higher values override lower values during merging.
const (
	// PriorityBuiltin is the lowest priority for built-in defaults.
	PriorityBuiltin = 0

	// PriorityTheme is for theme documents.
	PriorityTheme = 50

	// PriorityUser is for the user's configuration file.
	PriorityUser = 100

	// PriorityWorkspace is for project settings.
	PriorityWorkspace = 200

	// PriorityEnv is for environment variable overrides.
	PriorityEnv = 500

	// PriorityArgs is for command-line argument overrides.
	PriorityArgs = 600

	// PriorityProgram is the highest priority for host overrides.
	PriorityProgram = 1000
)

// DefaultPriority returns the default priority for a given source.
func DefaultPriority(source Source) int {
	switch source {
	case SourceBuiltin:
		return PriorityBuiltin
	case SourceTheme:
		return PriorityTheme
	case SourceUser:
		return PriorityUser
	case SourceWorkspace:
		return PriorityWorkspace
	case SourceEnv:
		return PriorityEnv
	case SourceArgs:
		return PriorityArgs
	case SourceProgram:
		return PriorityProgram
	default:
		return PriorityBuiltin
	}
}

// StandardLayerNames defines standard names for configuration layers.
var StandardLayerNames = map[Source]string{
	SourceBuiltin:   "defaults",
	SourceTheme:     "theme",
	SourceUser:      "user",
	SourceWorkspace: "workspace",
	SourceEnv:       "environment",
	SourceArgs:      "arguments",
	SourceProgram:   "program",
}

// StandardLayerName returns the standard name for a source.
func StandardLayerName(source Source) string {
	if name, ok := StandardLayerNames[source]; ok {
		return name
	}
	return "unknown"
}

// Sort orders inputs by ascending priority. Inputs with equal priority
// keep their relative order.
func Sort(inputs []Input) {
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].Priority < inputs[j].Priority
	})
}
