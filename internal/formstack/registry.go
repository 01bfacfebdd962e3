package formstack

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
	"pkt.systems/pslog"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/logx"
)

// ErrUnknownFormType is logged when a form type has no registered loader.
var ErrUnknownFormType = errors.New("formstack: unknown form type")

// Loader produces the renderer for a form type. It may be slow.
type Loader[R any] func(ctx context.Context) (R, error)

// Registry resolves form types to renderers. Concurrent resolutions of the
// same type share one load; successful loads are memoised.
type Registry[R any] struct {
	mu       sync.RWMutex
	loaders  map[string]binding[R]
	resolved map[string]R
	gen      uint64
	group    singleflight.Group
	log      pslog.Logger
}

type binding[R any] struct {
	load Loader[R]
	gen  uint64
}

// NewRegistry constructs an empty registry.
func NewRegistry[R any](log pslog.Logger) *Registry[R] {
	return &Registry[R]{
		loaders:  make(map[string]binding[R]),
		resolved: make(map[string]R),
		log:      logx.OrDefault(log),
	}
}

// Register binds formType to loader, replacing any earlier binding.
func (r *Registry[R]) Register(formType string, loader Loader[R]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.loaders[formType] = binding[R]{load: loader, gen: r.gen}
	delete(r.resolved, formType)
}

// RegisterValue binds formType to an already-built renderer.
func (r *Registry[R]) RegisterValue(formType string, renderer R) {
	r.Register(formType, func(context.Context) (R, error) { return renderer, nil })
}

// Types lists the registered form types.
func (r *Registry[R]) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.loaders))
	for k := range r.loaders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the renderer for formType. It never returns an error: an
// unknown type, a failed load or a cancelled ctx all report false.
func (r *Registry[R]) Resolve(ctx context.Context, formType string) (R, bool) {
	var zero R
	r.mu.RLock()
	if v, ok := r.resolved[formType]; ok {
		r.mu.RUnlock()
		return v, true
	}
	b, ok := r.loaders[formType]
	r.mu.RUnlock()
	log := r.log.With("form", formType)
	if !ok || b.load == nil {
		log.Warn("formstack renderer unavailable", "err", ErrUnknownFormType)
		return zero, false
	}

	// Keyed by binding generation so a load for a replaced binding is never joined.
	key := fmt.Sprintf("%s#%d", formType, b.gen)
	ch := r.group.DoChan(key, func() (any, error) {
		v, err := b.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		// Only memoise if the binding was not replaced mid-load.
		if cur, ok := r.loaders[formType]; ok && cur.gen == b.gen {
			r.resolved[formType] = v
		}
		r.mu.Unlock()
		return v, nil
	})
	select {
	case <-ctx.Done():
		log.Debug("formstack renderer resolve abandoned", "err", ctx.Err())
		return zero, false
	case res := <-ch:
		if res.Err != nil {
			log.Warn("formstack renderer load failed", "err", fmt.Errorf("load %s: %w", formType, res.Err))
			return zero, false
		}
		v, ok := res.Val.(R)
		if !ok {
			return zero, false
		}
		if res.Shared {
			log.Trace("formstack renderer load shared")
		}
		return v, true
	}
}
