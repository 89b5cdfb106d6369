package loader

import (
	"context"
	"time"

	"github.com/dshills/keyconf/internal/config/layer"
)

// StaticSource serves a layer built in code: command-line overrides, host
// defaults, or procedure bindings that cannot be written in a file.
type StaticSource struct {
	source layer.Source
	origin string
	data   map[string]any
}

// NewStaticSource wraps data. The data is copied when the layer is built.
func NewStaticSource(source layer.Source, origin string, data map[string]any) *StaticSource {
	return &StaticSource{source: source, origin: origin, data: data}
}

// LoadLayer returns the wrapped document. An empty document returns an
// error matching ErrNotExist.
func (s *StaticSource) LoadLayer(ctx context.Context, name string) (*layer.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.data) == 0 {
		return nil, ErrNotExist
	}
	return layer.New(name, s.source, layer.DefaultPriority(s.source), s.data).
		WithOrigin(s.origin, time.Time{}), nil
}
