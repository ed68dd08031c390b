// Package registry holds the set of invocable capabilities discovered at
// process start and resolves capability ids to executable handles.
package registry

import (
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pangents/orchestrator/types"
)

// Builder constructs one capability. Builders are collected at compile time
// and run once during Discover; a builder that fails is logged and skipped
// so the remaining capabilities still load.
type Builder func() (*types.Capability, error)

// Registry is a thread-safe mapping from capability id to executable handle.
// It is populated once by Discover and read-only afterwards.
type Registry struct {
	capabilities map[string]*types.Capability
	logger       *zap.Logger
	mu           sync.RWMutex
}

// New creates an empty Registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		capabilities: make(map[string]*types.Capability),
		logger:       logger.With(zap.String("component", "capability_registry")),
	}
}

// Discover runs every builder and registers the resulting capabilities.
// A builder returning an error, a nil capability, or an empty id is logged
// and skipped; discovery of the remainder continues. A duplicate id replaces
// the earlier registration with a warning.
func (r *Registry) Discover(builders []Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, build := range builders {
		cap, err := build()
		if err != nil {
			r.logger.Warn("capability failed to load, skipping", zap.Error(err))
			continue
		}
		if cap == nil || cap.ID == "" {
			r.logger.Warn("capability builder returned no usable capability, skipping")
			continue
		}
		if _, exists := r.capabilities[cap.ID]; exists {
			r.logger.Warn("duplicate capability id, replacing", zap.String("id", cap.ID))
		}
		r.capabilities[cap.ID] = cap
		r.logger.Info("capability registered",
			zap.String("id", cap.ID),
			zap.String("name", cap.Name),
			zap.Strings("tags", cap.Tags),
		)
	}

	r.logger.Info("capability discovery complete", zap.Int("count", len(r.capabilities)))
}

// Get resolves a capability id to its handle.
func (r *Registry) Get(id string) (*types.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.capabilities[id]
	return cap, ok
}

// List returns the metadata of all registered capabilities, sorted by id.
func (r *Registry) List() []types.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]types.Info, 0, len(r.capabilities))
	for _, cap := range r.capabilities {
		infos = append(infos, cap.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Schema returns the parameter schema of a capability.
func (r *Registry) Schema(id string) (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.capabilities[id]
	if !ok {
		return nil, false
	}
	return cap.Parameters, true
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.capabilities)
}
