package cluster

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Known is a cluster the registry has observed, with when it was last
// successfully resolved.
type Known struct {
	Ref        Ref       `json:"ref"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Registry tracks clusters observed through the stack probe. Purely a
// read-model for listing; resolution always goes back to the probe.
type Registry struct {
	mu       sync.RWMutex
	clusters map[string]*Known
	logger   *slog.Logger
}

// NewRegistry creates an empty cluster registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clusters: make(map[string]*Known),
		logger:   logger.With("component", "cluster-registry"),
	}
}

// Observe records a successful resolution of ref.
func (r *Registry) Observe(ref Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clusters[ref.Name]; !ok {
		r.logger.Info("cluster observed", "cluster", ref.Name, "scheduler", string(ref.Scheduler))
	}
	r.clusters[ref.Name] = &Known{Ref: ref, LastSeenAt: time.Now()}
}

// Forget removes a cluster whose stack turned out to be gone.
func (r *Registry) Forget(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clusters[name]; ok {
		delete(r.clusters, name)
		r.logger.Info("cluster forgotten", "cluster", name)
	}
}

// Lookup returns the last observed state of a cluster.
func (r *Registry) Lookup(name string) (Known, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.clusters[name]
	if !ok {
		return Known{}, false
	}
	return *k, true
}

// List returns all observed clusters ordered by name.
func (r *Registry) List() []Known {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Known, 0, len(r.clusters))
	for _, k := range r.clusters {
		result = append(result, *k)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ref.Name < result[j].Ref.Name
	})
	return result
}
