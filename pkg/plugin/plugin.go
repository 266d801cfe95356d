// Package plugin implements the typed plugin registry: one table per
// filesystem, keyed both by UUID (the fast path, persisted on disk) and by
// human-readable label (the slow path, used for admin lookups; a device's
// plugin records store the label for display, but Open resolves by UUID).
package plugin

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/raleighsl/raleighsl/pkg/metrics"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// Plugin is anything that embeds types.PluginHeader, which every concrete
// object/semantic/space/format/key plugin implementation does.
type Plugin interface {
	Header() types.PluginHeader
}

// Registry holds every plugin installed for one filesystem, partitioned by
// category so two plugins in different categories may freely share a
// label.
type Registry struct {
	mu sync.RWMutex

	byUUID  map[uuid.UUID]Plugin
	byLabel map[types.PluginCategory]map[string]Plugin
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byUUID:  make(map[uuid.UUID]Plugin),
		byLabel: make(map[types.PluginCategory]map[string]Plugin),
	}
}

// Install registers p. It fails if p's UUID is already registered globally,
// or its label is already registered within its own category.
func (r *Registry) Install(p Plugin) error {
	h := p.Header()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUUID[h.UUID]; exists {
		return fmt.Errorf("plugin: uuid %s: %w", h.UUID, types.PluginExists)
	}
	labels := r.byLabel[h.Category]
	if labels == nil {
		labels = make(map[string]Plugin)
		r.byLabel[h.Category] = labels
	}
	if _, exists := labels[h.Label]; exists {
		return fmt.Errorf("plugin: label %q in category %s: %w", h.Label, h.Category, types.PluginExists)
	}

	r.byUUID[h.UUID] = p
	labels[h.Label] = p
	metrics.PluginsRegistered.WithLabelValues(h.Category.String()).Set(float64(len(labels)))
	return nil
}

// Uninstall removes a previously installed plugin by UUID.
func (r *Registry) Uninstall(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.byUUID[id]
	if !exists {
		return fmt.Errorf("plugin: uuid %s: %w", id, types.PluginNotFound)
	}
	h := p.Header()
	delete(r.byUUID, id)
	delete(r.byLabel[h.Category], h.Label)
	metrics.PluginsRegistered.WithLabelValues(h.Category.String()).Set(float64(len(r.byLabel[h.Category])))
	return nil
}

// Lookup resolves a plugin by its persisted UUID — the fast path used when
// opening an existing filesystem or object.
func (r *Registry) Lookup(id uuid.UUID) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byUUID[id]
	return p, ok
}

// LookupByLabel resolves a plugin by category and human-readable label —
// the slow path, for callers that know a plugin by its label rather than
// its UUID.
func (r *Registry) LookupByLabel(category types.PluginCategory, label string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byLabel[category][label]
	return p, ok
}

// List returns every installed plugin in category.
func (r *Registry) List(category types.PluginCategory) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.byLabel[category]))
	for _, p := range r.byLabel[category] {
		out = append(out, p)
	}
	return out
}
