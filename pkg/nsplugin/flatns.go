// Package nsplugin provides the reference semantic, space, and format
// plugins a filesystem needs to actually open and run: FlatNamespace (a
// single-level name->OID table owning the next_oid counter per §3),
// BumpSpace (a monotonic device-space allocator), and NullFormat (a format
// plugin with no on-disk bookkeeping beyond the master block the façade
// already writes). None of these implement anything beyond what §4.6/§4.8
// require a filesystem to have installed before Create/Open can complete;
// richer namespaces (directories, B-tree key plugins) are out of core
// scope per §1 and are left to a real deployment to supply.
package nsplugin

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// FlatNamespace is a single flat name->OID table: no path hierarchy, no
// directories, just the minimal semantic layer a filesystem needs to bind
// caller-visible names to object identifiers. OID allocation is the
// namespace's own monotonic next_oid counter, matching §3's "Assigned by
// the semantic layer from its next_oid counter."
type FlatNamespace struct {
	plugin.Base

	nextOID atomic.Uint64

	mu      sync.RWMutex
	byName  map[string]types.OID
}

// NewFlatNamespace returns an empty namespace plugin with identity id/label.
// The caller supplies a fixed id rather than a fresh random one because a
// filesystem's semantic plugin must be resolvable by the same UUID across
// a Close/Open cycle.
func NewFlatNamespace(id uuid.UUID, label string) *FlatNamespace {
	return &FlatNamespace{
		Base:   plugin.Base{H: types.PluginHeader{UUID: id, Label: label, Category: types.PluginSemantic}},
		byName: make(map[string]types.OID),
	}
}

// Lookup resolves name to its bound OID.
func (ns *FlatNamespace) Lookup(name string) (types.OID, types.Errno) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	oid, ok := ns.byName[name]
	if !ok {
		return types.NilOID, types.ObjectNotFound
	}
	return oid, types.None
}

// Create allocates a fresh OID and binds it to name, failing if name is
// already bound.
func (ns *FlatNamespace) Create(name string) (types.OID, types.Errno) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, exists := ns.byName[name]; exists {
		return types.NilOID, types.ObjectExists
	}
	oid := types.OID(ns.nextOID.Add(1))
	ns.byName[name] = oid
	return oid, types.None
}

// Rename rebinds oldName's OID to newName, failing if oldName is unbound
// or newName is already taken.
func (ns *FlatNamespace) Rename(oldName, newName string) types.Errno {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	oid, ok := ns.byName[oldName]
	if !ok {
		return types.ObjectNotFound
	}
	if _, taken := ns.byName[newName]; taken {
		return types.ObjectExists
	}
	delete(ns.byName, oldName)
	ns.byName[newName] = oid
	return types.None
}

// Unlink removes name's binding and returns the OID it pointed to, leaving
// the underlying object itself untouched (the exec layer's Unlink closes
// it separately).
func (ns *FlatNamespace) Unlink(name string) (types.OID, types.Errno) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	oid, ok := ns.byName[name]
	if !ok {
		return types.NilOID, types.ObjectNotFound
	}
	delete(ns.byName, name)
	return oid, types.None
}

// Names returns every bound name, in no particular order.
func (ns *FlatNamespace) Names() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	out := make([]string, 0, len(ns.byName))
	for name := range ns.byName {
		out = append(out, name)
	}
	return out
}
