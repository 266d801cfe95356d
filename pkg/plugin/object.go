package plugin

import "github.com/raleighsl/raleighsl/pkg/types"

// ObjectState is the opaque per-object handle an object plugin hands back
// from Create/Open and receives on every subsequent callback. The plugin
// decides what's inside; the exec layer never inspects it.
type ObjectState any

// ObjectPlugin implements the capability set for one kind of stored object
// (e.g. a flat byte blob, a counter, a B-tree). Read and Write execute on a
// dispatcher worker goroutine with the object's RWC lock held in the mode
// the operation's table entry requires (see the exec layer); both modes are
// shared, so several calls on one object can run at once. Commit and
// Rollback run on the goroutine that ends the transaction, and Create runs
// before the new object's lock is taken. Implementations therefore guard
// their own state (the reference plugins use a mutex).
type ObjectPlugin interface {
	Plugin

	// Create initializes fresh object state, given a request opaque to
	// the core (e.g. initial field values).
	Create(req any) (ObjectState, types.Errno)

	// Open reconstructs object state from a previously persisted device
	// buffer.
	Open(devbuf []byte) (ObjectState, types.Errno)

	// Read services a read request against the object's committed view.
	Read(st ObjectState, req any) (resp any, errno types.Errno)

	// Write stages a mutation into the transaction's view without
	// publishing it; Commit (below) makes staged writes visible.
	Write(st ObjectState, txnID types.OID, req any) (resp any, errno types.Errno)

	// Commit publishes every write staged under txnID and returns the
	// device buffer to persist.
	Commit(st ObjectState, txnID types.OID) (devbuf []byte, errno types.Errno)

	// Rollback discards every write staged under txnID.
	Rollback(st ObjectState, txnID types.OID) types.Errno

	// Close releases in-memory object state (e.g. on cache eviction or
	// unlink); it does not imply Commit.
	Close(st ObjectState) types.Errno
}
