package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/keyconf/internal/config/diag"
	"github.com/dshills/keyconf/internal/config/keymap"
	"github.com/dshills/keyconf/internal/config/layer"
	"github.com/dshills/keyconf/internal/config/loader"
	"github.com/dshills/keyconf/internal/config/notify"
	"github.com/dshills/keyconf/internal/config/registry"
	"github.com/dshills/keyconf/internal/config/schema"
	"github.com/dshills/keyconf/internal/config/snapshot"
	"github.com/dshills/keyconf/internal/config/theme"
	"github.com/dshills/keyconf/internal/config/watcher"
)

// Source loads one configuration layer. Returning an error wrapping
// loader.ErrNotExist means the layer is absent and is skipped silently;
// any other error skips the layer with a layer-load-failure diagnostic.
type Source interface {
	LoadLayer(ctx context.Context, name string) (*layer.Layer, error)
}

// Executor runs a command action on behalf of Dispatch.
type Executor func(keymap.Action) keymap.Outcome

// layerSpec is a registered layer.
type layerSpec struct {
	name     string
	priority int
	source   Source
}

// origin returns the source's path, if it has one.
func (s layerSpec) origin() string {
	if p, ok := s.source.(interface{ Path() string }); ok {
		return p.Path()
	}
	return ""
}

// Engine resolves the registered layers into immutable snapshots. Readers
// call Snapshot and never block; reloads run one at a time and a reload
// that is overtaken by a newer trigger never publishes.
type Engine struct {
	reg       *registry.Registry
	merger    *layer.Merger
	validator *schema.Validator
	migrator  *Migrator
	layers    []layerSpec
	procs     map[string]keymap.Procedure
	exec      Executor
	notifier  *notify.Notifier
	logger    *slog.Logger

	current atomic.Pointer[snapshot.Config]

	// latest is the generation of the newest trigger.
	latest atomic.Uint64

	// passMu serializes resolution passes.
	passMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLayer registers a layer source. Layers merge in ascending
// priority; equal priorities keep registration order.
func WithLayer(name string, priority int, source Source) Option {
	return func(e *Engine) {
		e.layers = append(e.layers, layerSpec{name: name, priority: priority, source: source})
	}
}

// WithLogger sets the logger for pass events. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProcedures sets the host procedures that procedure and contextual
// bindings resolve against.
func WithProcedures(procs map[string]keymap.Procedure) Option {
	return func(e *Engine) {
		e.procs = maps.Clone(procs)
	}
}

// WithExecutor sets the function Dispatch hands command actions to.
func WithExecutor(exec Executor) Option {
	return func(e *Engine) {
		e.exec = exec
	}
}

// WithNotifier sets the notifier that receives the changes of every
// published snapshot.
func WithNotifier(n *notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithMigrator sets the migrator applied to every loaded layer. A nil
// migrator disables migration. The default is DefaultMigrator.
func WithMigrator(m *Migrator) Option {
	return func(e *Engine) {
		e.migrator = m
	}
}

// New creates an engine for the given schema. A nil registry uses the
// built-in defaults. The initial snapshot is built from the registry
// defaults alone; call Reload to load the registered layers.
func New(reg *registry.Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = registry.NewWithDefaults()
	}
	e := &Engine{
		reg:      reg,
		migrator: DefaultMigrator(),
		notifier: notify.New(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.merger = layer.NewMerger(reg, layer.WithProcedures(e.procs))
	e.validator = schema.NewValidator(reg)
	e.current.Store(e.resolve(nil, 0))
	return e
}

// Registry returns the schema the engine validates against.
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// Snapshot returns the current configuration. The result is immutable
// and remains valid after later reloads.
func (e *Engine) Snapshot() *snapshot.Config {
	return e.current.Load()
}

// LastDiagnostics returns the diagnostics of the current snapshot.
func (e *Engine) LastDiagnostics() []diag.Diagnostic {
	return e.Snapshot().Diagnostics()
}

// LookupBinding returns the action bound to chord in mode.
func (e *Engine) LookupBinding(chord string, mode keymap.Mode) (keymap.Action, bool) {
	return e.Snapshot().LookupBinding(chord, mode)
}

// Dispatch resolves a key event against the current keymap. The
// contextual handler runs first; if it declines, the direct binding runs.
func (e *Engine) Dispatch(chord string) keymap.Outcome {
	return e.Snapshot().Keymap().Dispatch(chord, e.exec)
}

// Editor returns the editor section of the current snapshot.
func (e *Engine) Editor() snapshot.Editor {
	return e.Snapshot().Editor()
}

// Subscribe registers an observer for published changes.
func (e *Engine) Subscribe(observer notify.Observer) *notify.Subscription {
	return e.notifier.Subscribe(observer)
}

// SubscribePath registers an observer for changes at or below path.
func (e *Engine) SubscribePath(path string, observer notify.Observer) *notify.Subscription {
	return e.notifier.SubscribePath(path, observer)
}

// Close shuts down the notifier.
func (e *Engine) Close() {
	e.notifier.Close()
}

// Reload runs a resolution pass. Problems are reported through
// LastDiagnostics, never returned.
func (e *Engine) Reload() {
	_ = e.ReloadContext(context.Background())
}

// ReloadContext runs a resolution pass and publishes its snapshot. It
// returns ErrSuperseded when a newer trigger arrived before the pass
// started or finished; the newer pass publishes instead. It returns the
// context's error if ctx is done before the layers are loaded.
//
// Observers are notified synchronously while the pass still holds the
// pass lock; an observer that triggers a reload must do so from another
// goroutine or through an asynchronous notifier.
func (e *Engine) ReloadContext(ctx context.Context) error {
	gen := e.latest.Add(1)

	e.passMu.Lock()
	defer e.passMu.Unlock()

	if gen != e.latest.Load() {
		e.logger.Debug("reload skipped", "generation", gen, "latest", e.latest.Load())
		return ErrSuperseded
	}

	start := time.Now()
	e.logger.Debug("reload started", "generation", gen, "layers", len(e.layers))

	inputs, err := e.load(ctx)
	if err != nil {
		e.logger.Warn("reload canceled", "generation", gen, "err", err)
		return err
	}
	cfg := e.resolve(inputs, gen)

	if gen != e.latest.Load() {
		e.logger.Debug("reload discarded", "generation", gen, "latest", e.latest.Load())
		return ErrSuperseded
	}

	prev := e.current.Swap(cfg)
	ds := cfg.Diagnostics()
	e.logger.Info("configuration published",
		"generation", gen,
		"snapshot", cfg.ID(),
		"layers", len(cfg.Layers()),
		"errors", diag.Count(ds, diag.SeverityError),
		"warnings", diag.Count(ds, diag.SeverityWarning)-diag.Count(ds, diag.SeverityError),
		"elapsed", time.Since(start))
	for _, d := range ds {
		e.logger.Debug("diagnostic", "kind", d.Kind, "severity", d.Severity, "path", d.Path(), "layer", d.Layer, "msg", d.Message)
	}

	e.notifier.Publish(prev, cfg)
	return nil
}

// load reads every registered layer. Absent layers are dropped; failed
// layers become failed inputs.
func (e *Engine) load(ctx context.Context) ([]layer.Input, error) {
	inputs := make([]layer.Input, 0, len(e.layers))
	for _, spec := range e.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, ok := e.loadOne(ctx, spec)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ok {
			inputs = append(inputs, in)
		}
	}
	return inputs, nil
}

func (e *Engine) loadOne(ctx context.Context, spec layerSpec) (layer.Input, bool) {
	fail := func(err error) (layer.Input, bool) {
		lerr := &LoadError{Layer: spec.name, Origin: spec.origin(), Err: err}
		e.logger.Info("layer skipped", "layer", spec.name, "err", lerr)
		return layer.Failed(spec.name, spec.priority, lerr.Origin, lerr), true
	}

	if spec.source == nil {
		return fail(ErrNilSource)
	}
	l, err := spec.source.LoadLayer(ctx, spec.name)
	switch {
	case errors.Is(err, loader.ErrNotExist):
		e.logger.Debug("layer absent", "layer", spec.name)
		return layer.Input{}, false
	case err != nil:
		return fail(err)
	case l == nil:
		return fail(layer.ErrNilLayer)
	}

	if e.migrator != nil {
		data, results, err := e.migrator.Migrate(l.Data())
		if err != nil {
			return fail(err)
		}
		for _, r := range results {
			e.logger.Debug("layer migrated", "layer", spec.name, "from", r.From, "to", r.To, "migration", r.Description)
		}
		l = layer.New(l.Name(), l.Source(), l.Priority(), data).WithOrigin(l.Origin(), l.ModTime())
	}
	return layer.Loaded(l.WithPriority(spec.priority)), true
}

// resolve merges inputs, validates the result and applies the
// validator's fallbacks. The returned snapshot carries the merge and
// validation diagnostics.
func (e *Engine) resolve(inputs []layer.Input, gen uint64) *snapshot.Config {
	merged := e.merger.Merge(inputs)
	found := e.validator.Validate(merged)

	b := merged.Rebuild()
	for _, d := range found {
		applyFallback(b, d)
	}

	all := append(merged.Diagnostics(), found...)
	diag.Sort(all)
	return b.SetGeneration(gen).SetDiagnostics(all).Build()
}

// applyFallback substitutes the value a diagnostic names.
func applyFallback(b *snapshot.Builder, d diag.Diagnostic) {
	switch d.Kind {
	case diag.KindTypeMismatch:
		b.DeleteTree(d.Path())
		if d.HasFallback {
			b.Set(d.Path(), d.Fallback, layer.DefaultsLayer)
		}
	case diag.KindMissingRequiredColor:
		if c, ok := d.Fallback.(theme.Color); ok && d.HasFallback {
			b.SetColor(d.Key, c, layer.DefaultsLayer)
		}
	case diag.KindInvalidCommand:
		b.DisableIntegration(schema.IntegrationOf(d.Key))
	case diag.KindInvalidPattern:
		if d.HasFallback {
			b.Set(d.Path(), d.Fallback, d.Layer)
		}
	}
}

// Watch registers every file-backed layer with w, reloads on each change
// batch and runs w until ctx is done. Layers whose location cannot be
// watched are logged and skipped.
func (e *Engine) Watch(ctx context.Context, w *watcher.Watcher) error {
	for _, spec := range e.layers {
		path := spec.origin()
		if path == "" {
			continue
		}
		if err := w.Watch(path); err != nil {
			e.logger.Warn("layer not watched", "layer", spec.name, "path", path, "err", err)
		}
	}

	w.OnChange(func(events []watcher.Event) {
		paths := make([]string, len(events))
		for i, ev := range events {
			paths[i] = ev.Path
		}
		e.logger.Info("configuration files changed", "files", paths)
		if err := e.ReloadContext(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			e.logger.Warn("reload failed", "err", err)
		}
	})
	return w.Run(ctx)
}
