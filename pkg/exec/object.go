package exec

import (
	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/task"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// Object is the in-memory handle for one stored object: its identity, its
// RWC lock, the object plugin that owns its semantics, and the opaque
// per-object state that plugin handed back from Create/Open. It satisfies
// txn.Object so the transaction manager can escalate its lock and drive its
// commit/rollback callbacks without importing pkg/exec.
type Object struct {
	oid   types.OID
	rwc   *task.RWCSem
	plug  plugin.ObjectPlugin
	state plugin.ObjectState
}

// OID returns the object's identity.
func (o *Object) OID() types.OID { return o.oid }

// RWC returns the object's lock.
func (o *Object) RWC() *task.RWCSem { return o.rwc }
