package notify

import (
	"sort"

	"github.com/dshills/keyconf/internal/config/keymap"
	"github.com/dshills/keyconf/internal/config/layer"
	"github.com/dshills/keyconf/internal/config/snapshot"
)

// Diff returns the changes that turn prev into cur, sorted by path.
// A nil prev is treated as an empty snapshot.
func Diff(prev, cur *snapshot.Config) []Change {
	if prev == nil {
		prev = snapshot.Empty()
	}
	if cur == nil {
		cur = snapshot.Empty()
	}
	gen := cur.Generation()
	old, next := prev.Settings(), cur.Settings()

	added, modified, removed := layer.DiffMaps(old, next)
	var out []Change
	for _, p := range append(added, modified...) {
		src, _ := cur.Provenance(p)
		out = append(out, Change{Path: p, Type: ChangeSet, OldValue: old[p], NewValue: next[p], Layer: src, Generation: gen})
	}
	for _, p := range removed {
		src, _ := prev.Provenance(p)
		out = append(out, Change{Path: p, Type: ChangeDelete, OldValue: old[p], Layer: src, Generation: gen})
	}
	out = append(out, diffBindings(prev.Keymap(), cur.Keymap(), gen)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func diffBindings(prev, cur *keymap.Table, gen uint64) []Change {
	index := func(t *keymap.Table) map[string]keymap.Binding {
		m := make(map[string]keymap.Binding)
		for _, b := range t.Bindings() {
			m["keymap."+b.Mode.String()+"."+b.Chord] = b
		}
		return m
	}
	old, next := index(prev), index(cur)

	var out []Change
	for p, b := range next {
		ob, ok := old[p]
		if ok && ob.Action.Equal(b.Action) {
			continue
		}
		c := Change{Path: p, Type: ChangeSet, NewValue: b.Action, Layer: b.Layer, Generation: gen}
		if ok {
			c.OldValue = ob.Action
		}
		out = append(out, c)
	}
	for p, ob := range old {
		if _, ok := next[p]; !ok {
			out = append(out, Change{Path: p, Type: ChangeDelete, OldValue: ob.Action, Layer: ob.Layer, Generation: gen})
		}
	}
	return out
}

// Publish delivers the changes between prev and cur followed by one
// ChangeReload for cur's generation. It returns the number of setting
// and binding changes delivered.
func (n *Notifier) Publish(prev, cur *snapshot.Config) int {
	changes := Diff(prev, cur)
	batch := n.NewBatch()
	for _, c := range changes {
		batch.Add(c)
	}
	var gen uint64
	if cur != nil {
		gen = cur.Generation()
	}
	batch.Add(Change{Type: ChangeReload, Generation: gen})
	batch.Commit()
	return len(changes)
}
