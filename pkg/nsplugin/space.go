package nsplugin

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// BumpSpace is a trivial space plugin: Alloc hands out monotonically
// increasing handles and never reclaims them. A real space plugin would
// track a free list over actual device offsets (the B-tree/format plugins
// named out of scope in §1); this one exists so the format/façade wiring
// in §4.8 has a concrete SpacePlugin to resolve without requiring a real
// block allocator, which is explicitly an external collaborator here.
type BumpSpace struct {
	plugin.Base

	next atomic.Uint64
}

// NewBumpSpace returns a space plugin with identity id/label.
func NewBumpSpace(id uuid.UUID, label string) *BumpSpace {
	return &BumpSpace{Base: plugin.Base{H: types.PluginHeader{UUID: id, Label: label, Category: types.PluginSpace}}}
}

// Alloc reserves length bytes, returning a handle that is unique for the
// lifetime of the space plugin but carries no addressing meaning beyond
// that — the backing storage.Device (bbolt) keys its own buffers by OID,
// not by this handle.
func (s *BumpSpace) Alloc(length uint64) (uint64, types.Errno) {
	if length == 0 {
		return 0, types.InvalidArgument
	}
	return s.next.Add(1), types.None
}

// Free is a no-op; BumpSpace never reclaims handles.
func (s *BumpSpace) Free(handle uint64) types.Errno { return types.None }
