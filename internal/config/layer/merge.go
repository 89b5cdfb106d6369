package layer

import (
	"reflect"
	"slices"
	"strings"
)

// DeepMerge merges src into dst and returns dst. Nested mappings merge
// key by key; any other src value, sequences included, replaces the dst
// value with a copy. A nil dst is allocated.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		sub, srcIsMap := v.(map[string]any)
		cur, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = DeepMerge(cur, sub)
			continue
		}
		dst[k] = cloneValue(v)
	}
	return dst
}

// MergeDocuments merges src over dst like DeepMerge, for documents that
// make up one layer. Append keys ("patterns+") holding sequences in both
// concatenate, and a plain key in src drops dst's pending append to it.
func MergeDocuments(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		sub, srcIsMap := v.(map[string]any)
		cur, dstIsMap := dst[k].(map[string]any)
		switch {
		case srcIsMap && dstIsMap:
			dst[k] = MergeDocuments(cur, sub)
			continue
		case len(k) > len(AppendSuffix) && strings.HasSuffix(k, AppendSuffix):
			if base, ok := asSlice(dst[k]); ok {
				if add, ok := asSlice(v); ok {
					dst[k] = cloneValue(append(base, add...))
					continue
				}
			}
		default:
			delete(dst, k+AppendSuffix)
		}
		dst[k] = cloneValue(v)
	}
	return dst
}

// walk returns the mapping holding the last segment of path and that
// segment. With create set, missing or non-mapping intermediates are
// replaced by empty mappings; otherwise walk reports false.
func walk(data map[string]any, path string, create bool) (map[string]any, string, bool) {
	if data == nil {
		return nil, "", false
	}
	segs := strings.Split(path, ".")
	node := data
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			if !create {
				return nil, "", false
			}
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	return node, segs[len(segs)-1], true
}

// GetByPath returns the value at a dotted path.
func GetByPath(data map[string]any, path string) (any, bool) {
	node, key, ok := walk(data, path, false)
	if !ok {
		return nil, false
	}
	v, ok := node[key]
	return v, ok
}

// SetByPath stores value at a dotted path, creating intermediate mappings
// and replacing scalars in the way. A nil data is left alone.
func SetByPath(data map[string]any, path string, value any) {
	if node, key, ok := walk(data, path, true); ok {
		node[key] = value
	}
}

// DeleteByPath removes the value at a dotted path and reports whether
// there was one.
func DeleteByPath(data map[string]any, path string) bool {
	node, key, ok := walk(data, path, false)
	if !ok {
		return false
	}
	if _, found := node[key]; !found {
		return false
	}
	delete(node, key)
	return true
}

// FlattenMap maps every leaf of a nested document to its dotted path.
// Empty mappings disappear.
func FlattenMap(data map[string]any) map[string]any {
	return FlattenFunc(data, nil)
}

// FlattenFunc flattens data like FlattenMap, but a nested mapping for
// which leaf reports true is kept whole under its path.
func FlattenFunc(data map[string]any, leaf func(path string, m map[string]any) bool) map[string]any {
	out := make(map[string]any)
	var visit func(prefix string, m map[string]any)
	visit = func(prefix string, m map[string]any) {
		for k, v := range m {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok && (leaf == nil || !leaf(path, sub)) {
				visit(path, sub)
				continue
			}
			out[path] = v
		}
	}
	visit("", data)
	return out
}

// DiffMaps compares two flattened documents and returns the added,
// modified and removed paths, each sorted.
func DiffMaps(old, next map[string]any) (added, modified, removed []string) {
	for p, v := range next {
		prev, ok := old[p]
		switch {
		case !ok:
			added = append(added, p)
		case !reflect.DeepEqual(prev, v):
			modified = append(modified, p)
		}
	}
	for p := range old {
		if _, ok := next[p]; !ok {
			removed = append(removed, p)
		}
	}
	slices.Sort(added)
	slices.Sort(modified)
	slices.Sort(removed)
	return added, modified, removed
}
