// Package config resolves layered editor configuration into immutable
// snapshots.
//
// An Engine owns a schema registry and an ordered list of layer sources.
// Each reload loads every layer, merges them on top of the registry
// defaults, validates the result and substitutes fallbacks for anything
// that cannot be used. The finished snapshot is published atomically;
// readers never lock and never observe a half-built configuration.
//
// # Architecture
//
// Layers merge in ascending priority, later layers overriding earlier:
//
//	┌─────────────────────────────┐
//	│  Command line (--set)       │  ← Highest priority
//	├─────────────────────────────┤
//	│  Environment (KEYCONF_*)    │
//	├─────────────────────────────┤
//	│  Workspace / project        │  ← .keyconf/config.toml
//	├─────────────────────────────┤
//	│  User                       │  ← ~/.config/keyconf/*.toml
//	├─────────────────────────────┤
//	│  Theme                      │
//	├─────────────────────────────┤
//	│  Registry defaults          │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - registry: the schema of known domains, keys, types and defaults
//   - loader: layer sources for TOML, YAML, JSONC files, directories and
//     environment variables
//   - layer: layers and the merge pass
//   - keymap: chord normalization and the resolved binding table
//   - theme: colors, references, derivations and palettes
//   - schema: validation and JSON Schema export
//   - snapshot: the immutable resolved configuration
//   - notify: change delivery to observers
//   - watcher: file watching for live reload
//
// # Basic Usage
//
//	eng := config.New(registry.NewWithDefaults(),
//	    config.WithLayer("user", layer.PriorityUser,
//	        loader.NewFileSource(path, layer.SourceUser)),
//	    config.WithLayer("environment", layer.PriorityEnv,
//	        loader.NewEnvSource(loader.DefaultEnvPrefix)),
//	)
//	eng.Reload()
//
//	for _, d := range eng.LastDiagnostics() {
//	    log.Println(d)
//	}
//	tabSize := eng.Editor().TabSize
//	action, ok := eng.LookupBinding("cmd+s", keymap.Direct)
//
// # Reload Policy
//
// At most one pass runs at a time. Every trigger takes a generation
// number; a pass that is overtaken by a newer trigger, either while
// waiting for the pass lock or while running, does not publish. Rapid
// triggers therefore yield one snapshot reflecting the latest inputs.
//
// # Layer Versions
//
// A layer document may declare "version = \"1.0.0\"" at its root. Older
// documents are rewritten by the engine's Migrator before merging, so
// legacy camelCase editor keys keep working.
package config
