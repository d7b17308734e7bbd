package engines

import (
	"context"
	"fmt"
	"sort"
	"sync"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
)

// Warmer computes an engine's default-parameter result for one user/date
// with the cache bypassed, storing it on success.
type Warmer interface {
	Type() types.EngineType
	Warm(ctx context.Context, userID, date string) (bool, types.WhyNotShown)
}

type Registry struct {
	mu      sync.RWMutex
	warmers map[types.EngineType]Warmer
}

func NewRegistry(ws ...Warmer) (*Registry, error) {
	r := &Registry{warmers: make(map[types.EngineType]Warmer)}
	for _, w := range ws {
		if err := r.Register(w); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(w Warmer) error {
	if w == nil {
		return fmt.Errorf("nil warmer")
	}
	t := w.Type()
	if t == "" {
		return fmt.Errorf("warmer Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.warmers[t]; exists {
		return fmt.Errorf("warmer already registered for engine=%s", t)
	}
	r.warmers[t] = w
	return nil
}

func (r *Registry) Get(t types.EngineType) (Warmer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.warmers[t]
	return w, ok
}

// All returns the registered warmers in display order.
func (r *Registry) All() []Warmer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Warmer, 0, len(r.warmers))
	for _, w := range r.warmers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return order(out[i].Type()) < order(out[j].Type()) })
	return out
}

func (r *Registry) Types() []types.EngineType {
	ws := r.All()
	out := make([]types.EngineType, len(ws))
	for i, w := range ws {
		out[i] = w.Type()
	}
	return out
}

func order(t types.EngineType) int {
	for i, e := range types.AllEngines {
		if e == t {
			return i
		}
	}
	return len(types.AllEngines)
}
