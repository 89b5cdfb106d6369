package layer

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dshills/keyconf/internal/config/diag"
	"github.com/dshills/keyconf/internal/config/keymap"
	"github.com/dshills/keyconf/internal/config/registry"
	"github.com/dshills/keyconf/internal/config/snapshot"
	"github.com/dshills/keyconf/internal/config/theme"
)

// DefaultsLayer names the implicit lowest layer built from registry
// defaults.
const DefaultsLayer = "defaults"

// AppendSuffix marks a sequence key whose value is concatenated onto the
// lower layers' sequence instead of replacing it ("patterns+").
const AppendSuffix = "+"

// ErrNilLayer is reported for an input that carries neither a layer nor
// a load error.
var ErrNilLayer = errors.New("layer source returned no layer")

// Input is one entry of a merge: a loaded layer or a load failure.
type Input struct {
	Layer    *Layer
	Name     string
	Priority int
	Origin   string
	Err      error
}

// Loaded wraps a successfully loaded layer.
func Loaded(l *Layer) Input {
	return Input{Layer: l, Name: l.Name(), Priority: l.Priority(), Origin: l.Origin()}
}

// Failed records a layer that could not be loaded.
func Failed(name string, priority int, origin string, err error) Input {
	return Input{Name: name, Priority: priority, Origin: origin, Err: err}
}

// Merger combines layers into a resolved snapshot. A Merger holds no
// per-pass state and is safe for concurrent use.
type Merger struct {
	reg   *registry.Registry
	procs map[string]keymap.Procedure
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithProcedures sets the host procedures that contextual and procedure
// bindings are resolved against.
func WithProcedures(procs map[string]keymap.Procedure) MergerOption {
	return func(m *Merger) {
		m.procs = maps.Clone(procs)
	}
}

// NewMerger creates a merger for the given schema.
func NewMerger(reg *registry.Registry, opts ...MergerOption) *Merger {
	m := &Merger{reg: reg}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge combines inputs in ascending priority order on top of the registry
// defaults. It never fails: failed layers are skipped with a
// layer-load-failure diagnostic, and values that cannot be used are
// skipped with a type-coercion-failure diagnostic so the lower layers'
// value stays in effect.
func (m *Merger) Merge(inputs []Input) *snapshot.Config {
	ordered := slices.Clone(inputs)
	Sort(ordered)

	p := &pass{
		m:        m,
		settings: make(map[string]any),
		prov:     make(map[string]string),
		keys:     keymap.NewBuilder(),
	}
	b := snapshot.NewBuilder()

	p.applyDefaults()
	b.AddLayer(snapshot.LayerInfo{Name: DefaultsLayer, Priority: PriorityBuiltin, Origin: "schema registry"})

	for _, in := range ordered {
		info := snapshot.LayerInfo{Name: in.Name, Priority: in.Priority, Origin: in.Origin}
		if in.Err != nil || in.Layer == nil {
			err := in.Err
			if err == nil {
				err = ErrNilLayer
			}
			p.diags.Addf(diag.KindLayerLoadFailure, diag.SeverityError, "", "", in.Name,
				"layer %q skipped: %v", in.Name, err)
			info.Failed = true
			b.AddLayer(info)
			continue
		}
		p.apply(in.Name, in.Layer)
		b.AddLayer(info)
	}

	palette := p.resolveTheme()
	table := p.keys.Build()
	for _, chord := range table.Shadowed() {
		p.diags.Addf(diag.KindBindingShadowed, diag.SeverityInfo, registry.DomainKeymap, chord, "",
			"%q is bound in both modes; the contextual handler runs first", chord)
	}

	for k, v := range p.settings {
		b.Set(k, v, p.prov[k])
	}
	return b.SetKeymap(table).
		SetPalette(palette).
		AddDiagnostics(p.diags.Items()...).
		Build()
}

// pass is the mutable state of one Merge call.
type pass struct {
	m        *Merger
	settings map[string]any
	prov     map[string]string
	keys     *keymap.Builder
	diags    diag.List
}

func (p *pass) applyDefaults() {
	if p.m.reg == nil {
		return
	}
	for path, v := range p.m.reg.Defaults() {
		p.set(path, cloneValue(v), DefaultsLayer)
	}
}

func (p *pass) apply(name string, l *Layer) {
	doc := make(map[string]any, len(l.data))
	for k, v := range l.data {
		if k == registry.DomainKeymap {
			p.applyKeymap(name, v)
			continue
		}
		doc[k] = v
	}

	flat := FlattenFunc(doc, func(path string, m map[string]any) bool {
		return strings.HasPrefix(path, registry.DomainTheme+".") && theme.IsDerivation(m)
	})
	for _, path := range slices.Sorted(maps.Keys(flat)) {
		p.applyValue(name, path, flat[path])
	}
}

func (p *pass) applyValue(layerName, path string, v any) {
	if v == nil {
		return
	}

	appendMode := false
	if trimmed, ok := strings.CutSuffix(path, AppendSuffix); ok && trimmed != "" {
		path, appendMode = trimmed, true
	}
	domain, key, _ := strings.Cut(path, ".")
	if key == "" && p.isDomain(domain) {
		p.coercionFailure(domain, "", layerName, fmt.Errorf("%s must be a table, got %T", domain, v))
		return
	}

	if appendMode {
		joined, err := p.appendSequence(path, v)
		if err != nil {
			p.coercionFailure(domain, key, layerName, err)
			return
		}
		v = joined
	}

	cv, err := p.coerce(domain, key, v)
	if err != nil {
		p.coercionFailure(domain, key, layerName, err)
		return
	}
	p.set(path, cv, layerName)
}

// isDomain reports whether name is a built-in or registered domain. A
// domain root only ever holds a mapping.
func (p *pass) isDomain(name string) bool {
	switch name {
	case registry.DomainEditor, registry.DomainTheme, registry.DomainPlugins, registry.DomainIgnore:
		return true
	}
	return p.m.reg != nil && p.m.reg.HasDomain(name)
}

// coerce normalizes v for the registered type of domain.key. Theme values
// are syntax-checked here and resolved after all layers merge. A value of
// the wrong type for a registered key is stored as is; the validator
// reports it and the engine substitutes the default.
func (p *pass) coerce(domain, key string, v any) (any, error) {
	if domain == registry.DomainTheme {
		if err := theme.Check(v); err != nil {
			return nil, err
		}
		return cloneValue(v), nil
	}
	if p.m.reg == nil {
		return cloneValue(v), nil
	}
	s, ok := p.m.reg.Lookup(domain, key)
	if !ok {
		return cloneValue(v), nil
	}
	if c, ok := s.Type.Coerce(v); ok {
		return cloneValue(c), nil
	}
	return cloneValue(v), nil
}

func (p *pass) appendSequence(path string, v any) (any, error) {
	add, ok := asSlice(v)
	if !ok {
		return nil, fmt.Errorf("append value must be a sequence, got %T", v)
	}
	existing, ok := p.settings[path]
	if !ok {
		return add, nil
	}
	base, ok := asSlice(existing)
	if !ok {
		return nil, fmt.Errorf("cannot append to %T", existing)
	}
	return append(base, add...), nil
}

// set stores v at path. Any value below path and any scalar above it is
// removed, so a scalar replaces a mapping and a mapping replaces a scalar.
func (p *pass) set(path string, v any, layerName string) {
	prefix := path + "."
	for k := range p.settings {
		if strings.HasPrefix(k, prefix) {
			delete(p.settings, k)
			delete(p.prov, k)
		}
	}
	for i := strings.LastIndex(path, "."); i > 0; i = strings.LastIndex(path[:i], ".") {
		delete(p.settings, path[:i])
		delete(p.prov, path[:i])
	}
	p.settings[path] = v
	p.prov[path] = layerName
}

func (p *pass) coercionFailure(domain, key, layerName string, err error) {
	p.diags.Addf(diag.KindCoercionFailure, diag.SeverityWarning, domain, key, layerName,
		"%v; keeping the lower layer's value", err)
}

func (p *pass) applyKeymap(layerName string, v any) {
	modes, ok := v.(map[string]any)
	if !ok {
		p.coercionFailure(registry.DomainKeymap, "", layerName,
			fmt.Errorf("keymap must be a table of binding modes, got %T", v))
		return
	}

	for _, modeName := range slices.Sorted(maps.Keys(modes)) {
		mode, err := keymap.ParseMode(modeName)
		if err != nil {
			p.coercionFailure(registry.DomainKeymap, modeName, layerName, err)
			continue
		}
		bindings, ok := modes[modeName].(map[string]any)
		if !ok {
			p.coercionFailure(registry.DomainKeymap, modeName, layerName,
				fmt.Errorf("%s bindings must be a table, got %T", modeName, modes[modeName]))
			continue
		}
		for _, raw := range slices.Sorted(maps.Keys(bindings)) {
			p.applyBinding(layerName, mode, raw, bindings[raw])
		}
	}
}

func (p *pass) applyBinding(layerName string, mode keymap.Mode, raw string, v any) {
	chord, err := keymap.NormalizeChord(raw)
	if err != nil {
		p.coercionFailure(registry.DomainKeymap, mode.String()+"."+raw, layerName, err)
		return
	}
	key := mode.String() + "." + chord

	act, overwrite, err := keymap.ParseAction(v, p.m.procs)
	if err != nil {
		p.coercionFailure(registry.DomainKeymap, key, layerName, err)
		return
	}
	if mode == keymap.Contextual && act.Kind != keymap.ActionProcedure {
		p.coercionFailure(registry.DomainKeymap, key, layerName,
			fmt.Errorf("contextual binding needs a procedure, got %s", act))
		return
	}

	c, conflict := p.keys.Install(keymap.Binding{
		Chord:     chord,
		Mode:      mode,
		Action:    act,
		Overwrite: overwrite,
		Layer:     layerName,
	})
	if conflict {
		p.diags.Addf(diag.KindBindingConflict, diag.SeverityWarning, registry.DomainKeymap, key, layerName,
			"%s", c)
	}
}

// resolveTheme resolves slot references and derivations across the merged
// theme. Unresolvable slots are removed and reported.
func (p *pass) resolveTheme() *theme.Palette {
	prefix := registry.DomainTheme + "."
	raw := make(map[string]any)
	for k, v := range p.settings {
		if slot, ok := strings.CutPrefix(k, prefix); ok {
			raw[slot] = v
		}
	}

	palette, errs := theme.Resolve(raw)
	for _, e := range errs {
		path := prefix + e.Slot
		p.diags.Addf(diag.KindCoercionFailure, diag.SeverityWarning, registry.DomainTheme, e.Slot, p.prov[path],
			"%v", e.Err)
		delete(p.settings, path)
		delete(p.prov, path)
	}
	for _, slot := range palette.Slots() {
		c, _ := palette.Color(slot)
		p.settings[prefix+slot] = c
	}
	return palette
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return slices.Clone(s), true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}
