package config

import (
	"fmt"
	"sort"

	"github.com/dshills/keyconf/internal/config/layer"
)

// VersionKey is the root key a layer document uses to declare its
// format version. It is stripped before the layer is merged.
const VersionKey = "version"

// CurrentVersion is the layer format understood by this release.
var CurrentVersion = Version{Major: 1}

// Version represents a layer format version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses "major.minor.patch"; missing components are zero.
func ParseVersion(s string) (Version, error) {
	var v Version
	n, _ := fmt.Sscanf(s, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	if n == 0 || v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return v, nil
}

// String returns the version as a string.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare compares two versions.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
func (v Version) Compare(other Version) int {
	for _, d := range [3]int{v.Major - other.Major, v.Minor - other.Minor, v.Patch - other.Patch} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

// Migration rewrites a layer document from one format version to the
// next.
type Migration struct {
	// From is the source version.
	From Version

	// To is the target version.
	To Version

	// Description describes what the migration does.
	Description string

	// Apply rewrites data in place.
	Apply func(data map[string]any) error
}

// MigrationResult records one applied migration.
type MigrationResult struct {
	From        Version
	To          Version
	Description string
}

// Migrator brings layer documents written for older formats up to the
// current one. A Migrator is read-only once registered and may be shared
// between passes.
type Migrator struct {
	migrations []Migration
	current    Version
}

// NewMigrator creates a Migrator targeting current.
func NewMigrator(current Version) *Migrator {
	return &Migrator{current: current}
}

// Current returns the target version.
func (m *Migrator) Current() Version {
	return m.current
}

// Register adds migrations, keeping them ordered by source version.
func (m *Migrator) Register(migrations ...Migration) {
	m.migrations = append(m.migrations, migrations...)
	sort.SliceStable(m.migrations, func(i, j int) bool {
		return m.migrations[i].From.Compare(m.migrations[j].From) < 0
	})
}

// LayerVersion returns the format version declared by data. A document
// without a version key is version 0.0.0.
func LayerVersion(data map[string]any) (Version, error) {
	raw, ok := data[VersionKey]
	if !ok {
		return Version{}, nil
	}
	s, ok := raw.(string)
	if !ok {
		return Version{}, fmt.Errorf("%w: %v", ErrInvalidVersion, raw)
	}
	return ParseVersion(s)
}

// Migrate returns a copy of data rewritten to the current version with
// the version key removed, plus the migrations that ran.
func (m *Migrator) Migrate(data map[string]any) (map[string]any, []MigrationResult, error) {
	from, err := LayerVersion(data)
	if err != nil {
		return nil, nil, err
	}
	if from.Compare(m.current) > 0 {
		return nil, nil, fmt.Errorf("%w: %s > %s", ErrFutureVersion, from, m.current)
	}

	out := layer.DeepMerge(nil, data)
	delete(out, VersionKey)

	var results []MigrationResult
	for _, mig := range m.migrations {
		if mig.From.Compare(from) < 0 || mig.To.Compare(m.current) > 0 {
			continue
		}
		if err := mig.Apply(out); err != nil {
			return nil, results, &MigrationError{From: mig.From, To: mig.To, Description: mig.Description, Err: err}
		}
		results = append(results, MigrationResult{From: mig.From, To: mig.To, Description: mig.Description})
	}
	return out, results, nil
}

// DefaultMigrator returns a migrator that renames the camelCase editor
// keys of unversioned documents to their current names.
func DefaultMigrator() *Migrator {
	m := NewMigrator(CurrentVersion)
	v0, v1 := Version{}, Version{Major: 1}

	for _, r := range [][2]string{
		{"editor.tabSize", "editor.tab_size"},
		{"editor.fontSize", "editor.font_size"},
		{"editor.fontFamily", "editor.font_family"},
		{"editor.lineHeight", "editor.line_height"},
		{"editor.insertSpaces", "editor.insert_spaces"},
		{"editor.formatOnSave", "editor.format_on_save"},
		{"editor.trimTrailingWhitespace", "editor.trim_trailing_whitespace"},
		{"editor.wordWrap", "editor.soft_wrap"},
	} {
		m.Register(MigrationRename(v0, v1, r[0], r[1]))
	}
	m.Register(MigrationTransform(v0, v1, "editor.soft_wrap", "word wrap mode to boolean", wordWrap))
	return m
}

// wordWrap maps the "on"/"off" word wrap modes onto soft_wrap.
func wordWrap(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	switch s {
	case "off":
		return false, nil
	case "on", "wordWrapColumn", "bounded":
		return true, nil
	}
	return v, nil
}

// MigrationRename creates a migration that moves oldPath to newPath.
// A value already present at newPath wins.
func MigrationRename(from, to Version, oldPath, newPath string) Migration {
	return Migration{
		From:        from,
		To:          to,
		Description: fmt.Sprintf("rename %s to %s", oldPath, newPath),
		Apply: func(data map[string]any) error {
			value, found := layer.GetByPath(data, oldPath)
			if !found {
				return nil
			}
			if _, exists := layer.GetByPath(data, newPath); !exists {
				layer.SetByPath(data, newPath, value)
			}
			layer.DeleteByPath(data, oldPath)
			return nil
		},
	}
}

// MigrationTransform creates a migration that rewrites the value at path.
func MigrationTransform(from, to Version, path, description string, transform func(any) (any, error)) Migration {
	return Migration{
		From:        from,
		To:          to,
		Description: description,
		Apply: func(data map[string]any) error {
			value, found := layer.GetByPath(data, path)
			if !found {
				return nil
			}
			next, err := transform(value)
			if err != nil {
				return fmt.Errorf("transforming %s: %w", path, err)
			}
			layer.SetByPath(data, path, next)
			return nil
		},
	}
}

// MigrationDelete creates a migration that drops path.
func MigrationDelete(from, to Version, path, description string) Migration {
	return Migration{
		From:        from,
		To:          to,
		Description: description,
		Apply: func(data map[string]any) error {
			layer.DeleteByPath(data, path)
			return nil
		},
	}
}
