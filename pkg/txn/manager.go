package txn

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/raleighsl/raleighsl/pkg/metrics"
	"github.com/raleighsl/raleighsl/pkg/task"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// Manager owns every live transaction for one filesystem, the per-object
// pending_txn_id arbitration table, and the id counter transactions are
// allocated from.
type Manager struct {
	log zerolog.Logger

	nextID atomic.Uint64

	mu       sync.RWMutex
	txns     map[types.OID]*Transaction
	pending  map[types.OID]types.OID // object OID -> claiming txn ID, 0 = unclaimed
}

// NewManager returns an empty transaction manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:     log.With().Str("component", "txn").Logger(),
		txns:    make(map[types.OID]*Transaction),
		pending: make(map[types.OID]types.OID),
	}
}

// Begin allocates a fresh transaction in WAIT_COMMIT.
func (m *Manager) Begin() *Transaction {
	id := types.OID(m.nextID.Add(1))
	txn := newTransaction(id)

	m.mu.Lock()
	m.txns[id] = txn
	m.mu.Unlock()
	return txn
}

// Lookup returns the transaction with the given id.
func (m *Manager) Lookup(id types.OID) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.txns[id]
	return t, ok
}

// ClaimForWrite implements the write-side of pending_txn_id arbitration
// (§4.5): if oid is unclaimed, it is atomically claimed for txnID and the
// call succeeds; if it is already claimed by txnID, it also succeeds (the
// same transaction writing twice); otherwise it fails and the caller must
// park on the object's RWC write queue until the claiming transaction
// commits or rolls back and clears the claim.
func (m *Manager) ClaimForWrite(oid, txnID types.OID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, claimed := m.pending[oid]
	if !claimed {
		m.pending[oid] = txnID
		return true
	}
	return owner == txnID
}

// ClearClaim releases oid's pending-txn claim, called once the claiming
// transaction has committed or rolled back that object.
func (m *Manager) ClearClaim(oid types.OID) {
	m.mu.Lock()
	delete(m.pending, oid)
	m.mu.Unlock()
}

// PendingOwner reports which transaction, if any, currently claims oid.
func (m *Manager) PendingOwner(oid types.OID) (types.OID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.pending[oid]
	return owner, ok
}

// forget drops a terminal transaction from the live table. The reference
// implementation leaves terminal transactions addressable for a grace
// period via the object cache's normal refcounting; here the caller (exec
// layer) is expected to stop referencing a transaction once it observes a
// terminal state, so dropping it immediately is safe and avoids an
// unbounded table.
func (m *Manager) forget(id types.OID) {
	m.mu.Lock()
	delete(m.txns, id)
	m.mu.Unlock()
}

// Commit executes the two-phase, OID-sorted commit dance: escalate every
// enlisted object to COMMIT, invoke commit on each, clear its pending claim
// and release, then transition the transaction to COMMITTED. If any
// object's commit callback fails, every object touched so far is left
// committed (a correctness requirement on plugins: see the module design
// notes) and the remaining enlisted objects are rolled back instead, with
// the transaction ending in DONT_COMMIT -> ROLLEDBACK.
func (m *Manager) Commit(t *Transaction, sub task.Submitter, commit CommitFunc, rollback RollbackFunc) types.Errno {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TxnCommitDuration)

	t.mu.Lock()
	if t.state.terminal() {
		state := t.state
		t.mu.Unlock()
		if state == Committed {
			return types.TransactionCommitted
		}
		return types.TransactionRolledBack
	}
	t.mu.Unlock()

	objects := t.sortedObjects()

	for i, obj := range objects {
		self := acquireSync(obj.RWC(), task.Commit)
		if errno := commit(obj, t.ID); !errno.Ok() {
			m.log.Error().Uint64("object_id", uint64(obj.OID())).Err(errno).Msg("commit callback failed; rolling back")
			obj.RWC().Release(task.Commit, self, true, sub)
			m.markDontCommit(t)
			m.rollbackFrom(t, objects[i:], sub, rollback)
			metrics.TxnRolledbackTotal.WithLabelValues("commit_failure").Inc()
			return errno
		}
		m.ClearClaim(obj.OID())
		obj.RWC().Release(task.Commit, self, true, sub)
	}

	t.mu.Lock()
	t.state = Committed
	t.mu.Unlock()
	m.forget(t.ID)
	metrics.TxnCommittedTotal.Inc()
	return types.None
}

// Rollback executes the analogous two-phase, OID-sorted rollback dance
// using the LOCK mode. A transaction already COMMITTED or ROLLEDBACK is
// left as it is, and the matching errno is returned, as in Commit.
func (m *Manager) Rollback(t *Transaction, sub task.Submitter, rollback RollbackFunc) types.Errno {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TxnRollbackDuration)

	t.mu.Lock()
	if t.state.terminal() {
		state := t.state
		t.mu.Unlock()
		if state == Committed {
			return types.TransactionCommitted
		}
		return types.TransactionRolledBack
	}
	t.mu.Unlock()

	m.markDontCommit(t)
	objects := t.sortedObjects()
	m.rollbackFrom(t, objects, sub, rollback)
	metrics.TxnRolledbackTotal.WithLabelValues("explicit").Inc()
	return types.None
}

func (m *Manager) markDontCommit(t *Transaction) {
	t.mu.Lock()
	if t.state == WaitCommit {
		t.state = DontCommit
	}
	t.mu.Unlock()
}

func (m *Manager) rollbackFrom(t *Transaction, objects []Object, sub task.Submitter, rollback RollbackFunc) {
	for _, obj := range objects {
		self := acquireSync(obj.RWC(), task.Lock)
		if errno := rollback(obj, t.ID); !errno.Ok() {
			m.log.Error().Uint64("object_id", uint64(obj.OID())).Err(errno).Msg("rollback callback failed")
		}
		m.ClearClaim(obj.OID())
		obj.RWC().Release(task.Lock, self, true, sub)
	}

	t.mu.Lock()
	t.state = RolledBack
	t.mu.Unlock()
	m.forget(t.ID)
}

// acquireSync blocks the calling goroutine until mode is held on rwc. Commit
// and Rollback run synchronously on the caller's own goroutine rather than
// as a task the dispatcher resumes, so they cannot return task.Parked and
// rely on a later redispatch the way pkg/exec's operations do; instead the
// acquiring task's Resume closes a channel the caller waits on, and the real
// dispatcher passed in as sub (the same Submitter RWCSem.Release drains
// waiters through) is what wakes it once a conflicting holder releases.
func acquireSync(rwc *task.RWCSem, mode task.Mode) *task.Task {
	self := task.New(nil)
	for {
		woken := make(chan struct{})
		self.Resume = func(t *task.Task) task.State {
			close(woken)
			return task.Done
		}
		if rwc.Acquire(mode, self) {
			return self
		}
		<-woken
	}
}

// Sweep returns every live transaction whose mtime is older than
// olderThan, for the reaper to roll back. It does not itself mutate state.
func (m *Manager) Sweep(olderThan func(*Transaction) bool) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stale []*Transaction
	for _, t := range m.txns {
		if t.State() == WaitCommit && olderThan(t) {
			stale = append(stale, t)
		}
	}
	return stale
}
