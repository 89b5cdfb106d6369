package layer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeepMerge(t *testing.T) {
	tests := []struct {
		name     string
		dst, src map[string]any
		want     map[string]any
	}{
		{"nil dst", nil, map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"nil src", map[string]any{"a": 1}, nil, map[string]any{"a": 1}},
		{"disjoint", map[string]any{"a": 1}, map[string]any{"b": 2}, map[string]any{"a": 1, "b": 2}},
		{"src wins", map[string]any{"a": 1}, map[string]any{"a": 2}, map[string]any{"a": 2}},
		{
			"nested",
			map[string]any{"editor": map[string]any{"tab_size": 4, "font_size": 12}},
			map[string]any{"editor": map[string]any{"tab_size": 2, "insert_spaces": true}},
			map[string]any{"editor": map[string]any{"tab_size": 2, "font_size": 12, "insert_spaces": true}},
		},
		{
			"scalar replaces mapping",
			map[string]any{"v": map[string]any{"a": 1}},
			map[string]any{"v": "s"},
			map[string]any{"v": "s"},
		},
		{
			"mapping replaces scalar",
			map[string]any{"v": "s"},
			map[string]any{"v": map[string]any{"a": 1}},
			map[string]any{"v": map[string]any{"a": 1}},
		},
		{
			"sequences replaced",
			map[string]any{"ignore": map[string]any{"patterns": []any{"a", "b"}}},
			map[string]any{"ignore": map[string]any{"patterns": []any{"c"}}},
			map[string]any{"ignore": map[string]any{"patterns": []any{"c"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, DeepMerge(tt.dst, tt.src)); diff != "" {
				t.Errorf("DeepMerge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeepMerge_CopiesSource(t *testing.T) {
	src := map[string]any{"ignore": map[string]any{"patterns": []any{"a"}}}
	got := DeepMerge(nil, src)

	got["ignore"].(map[string]any)["patterns"].([]any)[0] = "changed"
	if v, _ := GetByPath(src, "ignore.patterns"); v.([]any)[0] != "a" {
		t.Error("DeepMerge shares nested values with its source")
	}
}

func TestMergeDocuments(t *testing.T) {
	tests := []struct {
		name     string
		dst, src map[string]any
		want     map[string]any
	}{
		{
			"appends accumulate",
			map[string]any{"ignore": map[string]any{"patterns+": []any{"dist"}}},
			map[string]any{"ignore": map[string]any{"patterns+": []any{"build"}}},
			map[string]any{"ignore": map[string]any{"patterns+": []any{"dist", "build"}}},
		},
		{
			"string sequences",
			map[string]any{"patterns+": []string{"dist"}},
			map[string]any{"patterns+": []any{"build"}},
			map[string]any{"patterns+": []any{"dist", "build"}},
		},
		{
			"plain key drops earlier append",
			map[string]any{"patterns+": []any{"dist"}},
			map[string]any{"patterns": []any{".git"}},
			map[string]any{"patterns": []any{".git"}},
		},
		{
			"append onto scalar replaces",
			map[string]any{"patterns+": "dist"},
			map[string]any{"patterns+": []any{"build"}},
			map[string]any{"patterns+": []any{"build"}},
		},
		{
			"other keys override",
			map[string]any{"editor": map[string]any{"tab_size": 8, "soft_wrap": true}},
			map[string]any{"editor": map[string]any{"tab_size": 3}},
			map[string]any{"editor": map[string]any{"tab_size": 3, "soft_wrap": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, MergeDocuments(tt.dst, tt.src)); diff != "" {
				t.Errorf("MergeDocuments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetByPath(t *testing.T) {
	data := map[string]any{
		"editor": map[string]any{
			"tab_size": 4,
			"font":     map[string]any{"family": "mono"},
		},
		"simple": "string",
	}

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"editor.tab_size", 4, true},
		{"editor.font.family", "mono", true},
		{"simple", "string", true},
		{"missing", nil, false},
		{"editor.missing", nil, false},
		{"editor.tab_size.below_scalar", nil, false},
	}
	for _, tt := range tests {
		got, found := GetByPath(data, tt.path)
		if found != tt.found || got != tt.want {
			t.Errorf("GetByPath(%q) = %v, %v; want %v, %v", tt.path, got, found, tt.want, tt.found)
		}
	}

	if _, found := GetByPath(nil, "a.b"); found {
		t.Error("GetByPath(nil) found a value")
	}
}

func TestSetByPath(t *testing.T) {
	data := map[string]any{"editor": map[string]any{"tab_size": 4}, "theme": "dark"}

	SetByPath(data, "editor.tab_size", 2)
	SetByPath(data, "editor.insert_spaces", true)
	SetByPath(data, "theme.background", "#000")
	SetByPath(data, "a.b.c", 1)

	want := map[string]any{
		"editor": map[string]any{"tab_size": 2, "insert_spaces": true},
		"theme":  map[string]any{"background": "#000"},
		"a":      map[string]any{"b": map[string]any{"c": 1}},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("SetByPath mismatch (-want +got):\n%s", diff)
	}

	SetByPath(nil, "a", 1)
}

func TestDeleteByPath(t *testing.T) {
	data := map[string]any{
		"editor": map[string]any{"tab_size": 4, "insert_spaces": true},
	}

	if !DeleteByPath(data, "editor.tab_size") {
		t.Error("DeleteByPath(editor.tab_size) = false")
	}
	if DeleteByPath(data, "editor.tab_size") {
		t.Error("second delete reported a value")
	}
	if DeleteByPath(data, "missing.path") || DeleteByPath(nil, "a") {
		t.Error("deleted a missing path")
	}
	if diff := cmp.Diff(map[string]any{"editor": map[string]any{"insert_spaces": true}}, data); diff != "" {
		t.Errorf("after delete (-want +got):\n%s", diff)
	}
}

func TestFlattenMap(t *testing.T) {
	data := map[string]any{
		"editor": map[string]any{"tab_size": 4, "insert_spaces": true},
		"theme": map[string]any{
			"background": "#2b2b2b",
			"syntax":     map[string]any{"keyword": "#cc7832"},
		},
		"empty":  map[string]any{},
		"simple": "string",
	}

	want := map[string]any{
		"editor.tab_size":      4,
		"editor.insert_spaces": true,
		"theme.background":     "#2b2b2b",
		"theme.syntax.keyword": "#cc7832",
		"simple":               "string",
	}
	if diff := cmp.Diff(want, FlattenMap(data)); diff != "" {
		t.Errorf("FlattenMap mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenFunc_Leaf(t *testing.T) {
	data := map[string]any{
		"theme": map[string]any{
			"background": "#2b2b2b",
			"selection":  map[string]any{"base": "@background", "lighten": 0.1},
		},
	}

	flat := FlattenFunc(data, func(path string, m map[string]any) bool {
		_, ok := m["base"]
		return ok
	})

	want := map[string]any{
		"theme.background": "#2b2b2b",
		"theme.selection":  map[string]any{"base": "@background", "lighten": 0.1},
	}
	if diff := cmp.Diff(want, flat); diff != "" {
		t.Errorf("FlattenFunc mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffMaps(t *testing.T) {
	old := map[string]any{
		"editor.tab_size":      4,
		"editor.insert_spaces": true,
		"ignore.patterns":      []string{".git"},
		"removed":              "value",
	}
	next := map[string]any{
		"editor.tab_size":      2,
		"editor.insert_spaces": true,
		"ignore.patterns":      []string{".git", "dist"},
		"added":                "new",
	}

	added, modified, removed := DiffMaps(old, next)
	got := [][]string{added, modified, removed}
	want := [][]string{{"added"}, {"editor.tab_size", "ignore.patterns"}, {"removed"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DiffMaps mismatch (-want +got):\n%s", diff)
	}

	if a, m, r := DiffMaps(old, old); a != nil || m != nil || r != nil {
		t.Errorf("DiffMaps(old, old) = %v, %v, %v", a, m, r)
	}
}
