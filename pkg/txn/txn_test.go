package txn_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raleighsl/raleighsl/pkg/task"
	"github.com/raleighsl/raleighsl/pkg/txn"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// fakeSubmitter discards every resubmission; the synchronous tests here
// never actually park (nothing else is contending for the objects under
// test), so nothing is ever handed to it.
type fakeSubmitter struct{}

func (fakeSubmitter) SubmitMany(lists ...*task.Task) {}

// fakeObject is the minimal txn.Object the manager needs.
type fakeObject struct {
	oid types.OID
	rwc *task.RWCSem
}

func newFakeObject(oid types.OID) *fakeObject {
	return &fakeObject{oid: oid, rwc: task.NewRWCSem()}
}

func (f *fakeObject) OID() types.OID      { return f.oid }
func (f *fakeObject) RWC() *task.RWCSem   { return f.rwc }

func newManager() *txn.Manager {
	return txn.NewManager(zerolog.Nop())
}

func TestBeginStartsInWaitCommit(t *testing.T) {
	m := newManager()
	tx := m.Begin()
	assert.Equal(t, txn.WaitCommit, tx.State())
}

func TestEnlistTracksMembership(t *testing.T) {
	m := newManager()
	tx := m.Begin()
	obj := newFakeObject(1)

	assert.False(t, tx.Enlisted(1))
	tx.Enlist(obj)
	assert.True(t, tx.Enlisted(1))
}

func TestClaimForWriteArbitratesOwnership(t *testing.T) {
	m := newManager()

	assert.True(t, m.ClaimForWrite(1, 100), "first claim succeeds")
	assert.True(t, m.ClaimForWrite(1, 100), "same owner re-claiming succeeds")
	assert.False(t, m.ClaimForWrite(1, 200), "a different transaction must wait")

	m.ClearClaim(1)
	assert.True(t, m.ClaimForWrite(1, 200), "claim is free again once cleared")
}

func TestCommitPublishesAndClearsClaims(t *testing.T) {
	m := newManager()
	tx := m.Begin()

	o1, o2 := newFakeObject(5), newFakeObject(2)
	require.True(t, m.ClaimForWrite(o1.OID(), tx.ID))
	require.True(t, m.ClaimForWrite(o2.OID(), tx.ID))
	tx.Enlist(o1)
	tx.Enlist(o2)

	var order []types.OID
	commit := func(obj txn.Object, txnID types.OID) types.Errno {
		order = append(order, obj.OID())
		return types.None
	}
	rollback := func(obj txn.Object, txnID types.OID) types.Errno { return types.None }

	errno := m.Commit(tx, fakeSubmitter{}, commit, rollback)
	assert.True(t, errno.Ok())
	assert.Equal(t, txn.Committed, tx.State())
	assert.Equal(t, []types.OID{2, 5}, order, "commit must visit enlisted objects in OID order")

	_, claimed := m.PendingOwner(2)
	assert.False(t, claimed)
	_, claimed = m.PendingOwner(5)
	assert.False(t, claimed)

	_, live := m.Lookup(tx.ID)
	assert.False(t, live, "a terminal transaction is forgotten")
}

func TestCommitFailureRollsBackRemainingObjects(t *testing.T) {
	m := newManager()
	tx := m.Begin()

	good, bad := newFakeObject(1), newFakeObject(2)
	tx.Enlist(good)
	tx.Enlist(bad)

	var rolledBack []types.OID
	commit := func(obj txn.Object, txnID types.OID) types.Errno {
		if obj.OID() == 2 {
			return types.NoSpace
		}
		return types.None
	}
	rollback := func(obj txn.Object, txnID types.OID) types.Errno {
		rolledBack = append(rolledBack, obj.OID())
		return types.None
	}

	errno := m.Commit(tx, fakeSubmitter{}, commit, rollback)
	assert.False(t, errno.Ok())
	assert.Equal(t, types.NoSpace, errno)
	assert.Equal(t, txn.RolledBack, tx.State())
	assert.Equal(t, []types.OID{2}, rolledBack, "only the object that failed (and anything after it) rolls back")
}

func TestExplicitRollbackDiscardsEveryObject(t *testing.T) {
	m := newManager()
	tx := m.Begin()

	o1, o2 := newFakeObject(3), newFakeObject(1)
	tx.Enlist(o1)
	tx.Enlist(o2)

	var order []types.OID
	rollback := func(obj txn.Object, txnID types.OID) types.Errno {
		order = append(order, obj.OID())
		return types.None
	}

	errno := m.Rollback(tx, fakeSubmitter{}, rollback)
	assert.True(t, errno.Ok())
	assert.Equal(t, txn.RolledBack, tx.State())
	assert.Equal(t, []types.OID{1, 3}, order)
}

func TestSweepOnlyReturnsStaleWaitCommitTransactions(t *testing.T) {
	m := newManager()
	fresh := m.Begin()
	stale := m.Begin()

	results := m.Sweep(func(tx *txn.Transaction) bool {
		return tx == stale
	})

	require.Len(t, results, 1)
	assert.Equal(t, stale.ID, results[0].ID)
	assert.NotEqual(t, fresh.ID, results[0].ID)
}

func TestReaperRollsBackAbandonedTransactions(t *testing.T) {
	m := newManager()
	tx := m.Begin()
	obj := newFakeObject(9)
	tx.Enlist(obj)

	rollback := func(txn.Object, types.OID) types.Errno { return types.None }
	reaper := txn.NewReaper(m, fakeSubmitter{}, rollback, txn.ReaperConfig{
		Interval: time.Millisecond,
		MaxAge:   time.Millisecond,
	})

	reaper.Start()
	defer reaper.Stop()

	require.Eventually(t, func() bool {
		return tx.State() == txn.RolledBack
	}, time.Second, time.Millisecond, "reaper should roll back the stale transaction")
}
