package exec

import (
	"github.com/raleighsl/raleighsl/pkg/metrics"
	"github.com/raleighsl/raleighsl/pkg/notify"
	"github.com/raleighsl/raleighsl/pkg/task"
	"github.com/raleighsl/raleighsl/pkg/txn"
	"github.com/raleighsl/raleighsl/pkg/types"
)

func timed(op string) func(errno types.Errno) {
	timer := metrics.NewTimer()
	return func(errno types.Errno) {
		timer.ObserveDurationVec(metrics.ExecOpDuration, op)
		metrics.ExecOpsTotal.WithLabelValues(op, errno.Error()).Inc()
	}
}

// Create allocates a fresh object bound to name: semantic LOCK, then the
// object plugin builds the new state, then LOCK on the new object itself
// while its first Commit is written to the device.
func (e *Executor) Create(name string, req any) (types.OID, types.Errno) {
	observe := timed("create")
	type result struct {
		oid   types.OID
		errno types.Errno
	}
	ch := make(chan result, 1)
	semAcquired := false

	t := task.New(nil)
	t.Resume = func(self *task.Task) task.State {
		if !semAcquired {
			if !e.semanticRWC.Acquire(task.Lock, self) {
				return task.Parked
			}
			semAcquired = true
		}

		oid, errno := e.semantic.Create(name)
		if !errno.Ok() {
			e.semanticRWC.Release(task.Lock, self, true, e.dispatcher)
			ch <- result{types.NilOID, errno}
			return task.Done
		}

		state, errno := e.objPlugin.Create(req)
		if !errno.Ok() {
			e.semanticRWC.Release(task.Lock, self, true, e.dispatcher)
			ch <- result{types.NilOID, errno}
			return task.Done
		}

		obj := &Object{oid: oid, rwc: task.NewRWCSem(), plug: e.objPlugin, state: state}
		obj.rwc.TryAcquire(task.Lock)
		entry, _ := e.objCache.TryInsert(oid, obj)
		e.objCache.Release(entry)

		buf, errno := e.objPlugin.Commit(state, 0)
		if errno.Ok() {
			if err := e.device.PutObjectBuf(oid, buf); err != nil {
				errno = types.NoSpace
			}
		}
		obj.rwc.Release(task.Lock, self, true, e.dispatcher)
		e.semanticRWC.Release(task.Lock, self, true, e.dispatcher)

		ch <- result{oid, errno}
		return task.Done
	}

	e.dispatcher.Submit(t)
	r := <-ch
	observe(r.errno)
	e.publish(notify.EventObjectCreated, r.oid, r.errno)
	return r.oid, r.errno
}

// Lookup resolves name under the semantic layer's READ lock.
func (e *Executor) Lookup(name string) (types.OID, types.Errno) {
	observe := timed("lookup")
	type result struct {
		oid   types.OID
		errno types.Errno
	}
	ch := make(chan result, 1)
	acquired := false

	t := task.New(nil)
	t.Resume = func(self *task.Task) task.State {
		if !acquired {
			if !e.semanticRWC.Acquire(task.Read, self) {
				return task.Parked
			}
			acquired = true
		}
		oid, errno := e.semantic.Lookup(name)
		e.semanticRWC.Release(task.Read, self, true, e.dispatcher)
		ch <- result{oid, errno}
		return task.Done
	}

	e.dispatcher.Submit(t)
	r := <-ch
	observe(r.errno)
	e.publish(notify.EventObjectRead, r.oid, r.errno)
	return r.oid, r.errno
}

// Rename rebinds oldName to newName under the semantic layer's LOCK.
func (e *Executor) Rename(oldName, newName string) types.Errno {
	observe := timed("rename")
	ch := make(chan types.Errno, 1)
	acquired := false

	t := task.New(nil)
	t.Resume = func(self *task.Task) task.State {
		if !acquired {
			if !e.semanticRWC.Acquire(task.Lock, self) {
				return task.Parked
			}
			acquired = true
		}
		errno := e.semantic.Rename(oldName, newName)
		e.semanticRWC.Release(task.Lock, self, true, e.dispatcher)
		ch <- errno
		return task.Done
	}

	e.dispatcher.Submit(t)
	errno := <-ch
	observe(errno)
	e.publish(notify.EventObjectRenamed, types.NilOID, errno)
	return errno
}

// Unlink removes name's binding (semantic LOCK) then closes the underlying
// object's in-memory state (object LOCK) and drops its device buffer.
func (e *Executor) Unlink(name string) types.Errno {
	observe := timed("unlink")
	ch := make(chan types.Errno, 1)
	semAcquired := false

	t := task.New(nil)
	t.Resume = func(self *task.Task) task.State {
		if !semAcquired {
			if !e.semanticRWC.Acquire(task.Lock, self) {
				return task.Parked
			}
			semAcquired = true
		}

		oid, errno := e.semantic.Unlink(name)
		if !errno.Ok() {
			e.semanticRWC.Release(task.Lock, self, true, e.dispatcher)
			ch <- errno
			return task.Done
		}

		if obj, entry, lerrno := e.loadObject(oid); lerrno.Ok() {
			obj.rwc.TryAcquire(task.Lock)
			errno = obj.plug.Close(obj.state)
			obj.rwc.Release(task.Lock, self, true, e.dispatcher)
			e.objCache.Release(entry)
			e.objCache.Remove(oid)
			_ = e.device.DeleteObjectBuf(oid)
		}

		e.semanticRWC.Release(task.Lock, self, true, e.dispatcher)
		ch <- errno
		return task.Done
	}

	e.dispatcher.Submit(t)
	errno := <-ch
	observe(errno)
	e.publish(notify.EventObjectUnlinked, types.NilOID, errno)
	return errno
}

// Read services a request against oid's committed view under object READ.
func (e *Executor) Read(oid types.OID, req any) (any, types.Errno) {
	observe := timed("read")
	type result struct {
		resp  any
		errno types.Errno
	}
	ch := make(chan result, 1)

	obj, entry, errno := e.loadObject(oid)
	if !errno.Ok() {
		observe(errno)
		e.publish(notify.EventObjectRead, oid, errno)
		return nil, errno
	}
	defer e.objCache.Release(entry)

	acquired := false
	t := task.New(nil)
	t.Resume = func(self *task.Task) task.State {
		if !acquired {
			if !obj.rwc.Acquire(task.Read, self) {
				return task.Parked
			}
			acquired = true
		}
		resp, errno := obj.plug.Read(obj.state, req)
		obj.rwc.Release(task.Read, self, true, e.dispatcher)
		ch <- result{resp, errno}
		return task.Done
	}

	e.dispatcher.Submit(t)
	r := <-ch
	observe(r.errno)
	e.publish(notify.EventObjectRead, oid, r.errno)
	return r.resp, r.errno
}

// Write stages a mutation against oid under tx, taking object WRITE and the
// pending-txn arbitration from §4.5: tx must claim oid before its write is
// accepted. If another live transaction already owns the claim, the task
// parks on the object's RWC write queue instead of failing outright; the
// owner's commit or rollback clears the claim and, via its own RWC release,
// wakes every task parked there to retry the claim, so no write is lost.
func (e *Executor) Write(oid types.OID, tx *txn.Transaction, req any) (any, types.Errno) {
	observe := timed("write")
	type result struct {
		resp  any
		errno types.Errno
	}
	ch := make(chan result, 1)

	obj, entry, errno := e.loadObject(oid)
	if !errno.Ok() {
		observe(errno)
		e.publish(notify.EventObjectWritten, oid, errno)
		return nil, errno
	}
	defer e.objCache.Release(entry)

	claimed := false
	acquired := false
	t := task.New(nil)
	t.Resume = func(self *task.Task) task.State {
		if !claimed {
			if !e.txns.ClaimForWrite(oid, tx.ID) {
				obj.rwc.Park(task.Write, self)
				return task.Parked
			}
			claimed = true
			tx.Enlist(obj)
		}
		if !acquired {
			if !obj.rwc.Acquire(task.Write, self) {
				return task.Parked
			}
			acquired = true
		}
		resp, errno := obj.plug.Write(obj.state, tx.ID, req)
		obj.rwc.Release(task.Write, self, true, e.dispatcher)
		ch <- result{resp, errno}
		return task.Done
	}

	e.dispatcher.Submit(t)
	r := <-ch
	observe(r.errno)
	e.publish(notify.EventObjectWritten, oid, r.errno)
	return r.resp, r.errno
}

// TxnCommit publishes every write tx staged, OID-sorted, object COMMIT per
// object.
func (e *Executor) TxnCommit(tx *txn.Transaction) types.Errno {
	observe := timed("txn_commit")
	errno := e.txns.Commit(tx, e.dispatcher, e.CommitObject, e.RollbackObject)
	observe(errno)
	e.publish(notify.EventTxnCommitted, types.NilOID, errno)
	return errno
}

// TxnRollback discards every write tx staged, OID-sorted, object LOCK per
// object.
func (e *Executor) TxnRollback(tx *txn.Transaction) types.Errno {
	observe := timed("txn_rollback")
	errno := e.txns.Rollback(tx, e.dispatcher, e.RollbackObject)
	observe(errno)
	e.publish(notify.EventTxnRolledBack, types.NilOID, errno)
	return errno
}

// CommitObject is the txn.CommitFunc bridging the transaction manager's
// generic Object view back to the concrete plugin callback and device
// write.
func (e *Executor) CommitObject(o txn.Object, txnID types.OID) types.Errno {
	obj, ok := o.(*Object)
	if !ok {
		return types.CorruptedMasterBlock
	}
	buf, errno := obj.plug.Commit(obj.state, txnID)
	if !errno.Ok() {
		return errno
	}
	if err := e.device.PutObjectBuf(obj.oid, buf); err != nil {
		return types.NoSpace
	}
	return types.None
}

// RollbackObject is the txn.RollbackFunc counterpart, shared by TxnRollback,
// the commit-failure path, and the reaper — none of them need a per-call
// closure since txnID is now an argument rather than captured state.
func (e *Executor) RollbackObject(o txn.Object, txnID types.OID) types.Errno {
	obj, ok := o.(*Object)
	if !ok {
		return types.CorruptedMasterBlock
	}
	return obj.plug.Rollback(obj.state, txnID)
}

// SyncObject flushes oid's current plugin state back to its device buffer
// outside of any transaction, used by Filesystem.Sync to checkpoint the
// whole cache.
func (e *Executor) SyncObject(oid types.OID) error {
	obj, entry, errno := e.loadObject(oid)
	if !errno.Ok() {
		if errno == types.ObjectNotFound {
			return nil
		}
		return errno
	}
	defer e.objCache.Release(entry)

	buf, errno := obj.plug.Commit(obj.state, 0)
	if !errno.Ok() {
		return errno
	}
	if err := e.device.PutObjectBuf(obj.oid, buf); err != nil {
		return err
	}
	return nil
}
