// Package txn implements the transaction manager: the monotone
// WAIT_COMMIT/DONT_COMMIT/COMMITTED/ROLLEDBACK state machine, per-object
// pending_txn_id arbitration, OID-sorted two-phase commit/rollback, and a
// periodic reaper that rolls back transactions abandoned past a liveness
// threshold.
package txn

import (
	"sort"
	"sync"
	"time"

	"github.com/raleighsl/raleighsl/pkg/task"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// State is a transaction's position in its one-way lifecycle.
type State int

const (
	WaitCommit State = iota
	DontCommit
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case WaitCommit:
		return "wait_commit"
	case DontCommit:
		return "dont_commit"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolledback"
	default:
		return "unknown"
	}
}

// terminal reports whether s is one the state machine never leaves.
func (s State) terminal() bool { return s == Committed || s == RolledBack }

// Object is the minimal view the transaction manager needs of an enlisted
// object: its id and its RWC lock. The pending-owner arbitration a write
// must win before it may stage a mutation lives in Manager (ClaimForWrite,
// ClearClaim), not on the object. pkg/exec's Object satisfies this.
type Object interface {
	OID() types.OID
	RWC() *task.RWCSem
}

// CommitFunc publishes every write txnID staged on obj; it returns the
// errno the plugin's Commit callback produced.
type CommitFunc func(obj Object, txnID types.OID) types.Errno

// RollbackFunc discards every write txnID staged on obj.
type RollbackFunc func(obj Object, txnID types.OID) types.Errno

// Transaction is one unit of isolation: a set of enlisted objects that
// commits or rolls back together. Fields mirror the reference
// implementation's raleighsl_transaction exactly in meaning: a monotonic
// id, an RWC lock of its own (Manager.Commit and Manager.Rollback do not
// acquire it, so they are not serialized by it), the enlisted object set, a
// last-modified time the reaper watches, and State.
type Transaction struct {
	ID  types.OID
	RWC *task.RWCSem

	mu      sync.Mutex
	objects map[types.OID]Object
	mtime   time.Time
	state   State
}

func newTransaction(id types.OID) *Transaction {
	return &Transaction{
		ID:      id,
		RWC:     task.NewRWCSem(),
		objects: make(map[types.OID]Object),
		mtime:   time.Now(),
		state:   WaitCommit,
	}
}

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// touch bumps mtime. Enlist sets mtime itself on every write it records.
func (t *Transaction) touch() {
	t.mu.Lock()
	t.mtime = time.Now()
	t.mu.Unlock()
}

// Mtime returns the transaction's last-modified time, for the reaper's
// threshold check.
func (t *Transaction) Mtime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mtime
}

// Enlist adds obj to the transaction's object set, implementing the
// per-object pending_txn_id arbitration described in the core design: the
// caller is expected to have already CAS'd obj's pending owner to this
// transaction's id (or found it already so) before calling Enlist — Enlist
// itself just records membership for commit/rollback's sake.
func (t *Transaction) Enlist(obj Object) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objects[obj.OID()] = obj
	t.mtime = time.Now()
}

// Enlisted reports whether oid is already part of this transaction.
func (t *Transaction) Enlisted(oid types.OID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.objects[oid]
	return ok
}

// sortedObjects returns the enlisted objects ordered by OID, the order
// commit and rollback both escalate locks in to avoid cross-transaction
// deadlock.
func (t *Transaction) sortedObjects() []Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Object, 0, len(t.objects))
	for _, o := range t.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OID() < out[j].OID() })
	return out
}
