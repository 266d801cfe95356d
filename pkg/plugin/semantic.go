package plugin

import "github.com/raleighsl/raleighsl/pkg/types"

// SemanticPlugin implements the naming layer: the mapping from a
// caller-visible path/key to an OID, and OID allocation. A filesystem has
// exactly one semantic plugin, resolved at Open by UUID from the plugin
// records the device holds.
type SemanticPlugin interface {
	Plugin

	// Lookup resolves name to the OID of an existing object.
	Lookup(name string) (types.OID, types.Errno)

	// Create allocates a fresh OID for name and binds it, failing with
	// types.ObjectExists if name is already bound.
	Create(name string) (types.OID, types.Errno)

	// Rename rebinds oldName's OID to newName.
	Rename(oldName, newName string) types.Errno

	// Unlink removes name's binding. It does not touch the underlying
	// object; the caller is responsible for also closing it via the
	// object plugin.
	Unlink(name string) (types.OID, types.Errno)
}

// SpacePlugin implements free-space/allocation bookkeeping for device
// buffers. A filesystem has exactly one, resolved at Open by UUID from the
// plugin records the device holds.
type SpacePlugin interface {
	Plugin

	// Alloc reserves length bytes of device space and returns an opaque
	// device-space handle the format plugin can resolve to an address.
	Alloc(length uint64) (handle uint64, errno types.Errno)

	// Free releases a previously allocated handle.
	Free(handle uint64) types.Errno
}

// FormatPlugin implements the on-disk layout convention for device
// buffers — how an object's buffer is actually placed on the block device
// via the space plugin's handles.
type FormatPlugin interface {
	Plugin

	// Format initializes an empty filesystem's on-disk layout, writing
	// whatever bookkeeping structures the format needs beyond the master
	// block itself (which the façade writes directly).
	Format() types.Errno
}

// KeyPlugin implements key encoding/ordering for semantic layers that key
// objects by structured data rather than flat byte strings.
type KeyPlugin interface {
	Plugin

	// Compare orders two encoded keys, returning <0, 0, >0 like bytes.Compare.
	Compare(a, b []byte) int
}
