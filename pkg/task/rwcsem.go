package task

import "sync"

// Mode is one of the RWC semaphore's four operation types.
type Mode int

const (
	Read Mode = iota
	Write
	Commit
	Lock
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	case Commit:
		return "commit"
	case Lock:
		return "lock"
	default:
		return "unknown"
	}
}

// Submitter is anything that can accept a few short FIFO chains of woken
// tasks (Release passes up to five) and splice them into its scheduling
// structure atomically.
// pkg/dispatch.Dispatcher implements this; RWCSem depends only on the
// interface so the two packages don't import each other.
type Submitter interface {
	SubmitMany(lists ...*Task)
}

// RWCSem is the four-mode Read/Write/Commit/Lock semaphore guarding one
// object or transaction. Read and Write holders may coexist with each
// other (writers stage into their own transaction's view without
// blocking readers of the pre-write state); Commit and Lock are each
// fully exclusive against every other mode, including themselves.
//
// The reference implementation splits this into an atomic state word plus
// a separately spin-locked set of wait queues; here a single mutex guards
// both the counts and the queues, since Go gives no benefit to splitting
// them and a single mutex is simpler to reason about correctly.
type RWCSem struct {
	mu sync.Mutex

	readCount  int
	writeCount int
	commitHeld bool
	lockHeld   bool

	readq   Queue
	writeq  Queue
	commitq Queue
	lockq   Queue
}

// NewRWCSem returns a ready-to-use, fully-released semaphore.
func NewRWCSem() *RWCSem { return &RWCSem{} }

func (s *RWCSem) canAcquireLocked(mode Mode) bool {
	switch mode {
	case Read:
		return !s.commitHeld && !s.lockHeld
	case Write:
		return !s.commitHeld && !s.lockHeld
	case Commit:
		return s.readCount == 0 && s.writeCount == 0 && !s.commitHeld && !s.lockHeld
	case Lock:
		return s.readCount == 0 && s.writeCount == 0 && !s.commitHeld && !s.lockHeld
	default:
		return false
	}
}

func (s *RWCSem) acquireLocked(mode Mode) {
	switch mode {
	case Read:
		s.readCount++
	case Write:
		s.writeCount++
	case Commit:
		s.commitHeld = true
	case Lock:
		s.lockHeld = true
	}
}

func (s *RWCSem) releaseLocked(mode Mode) {
	switch mode {
	case Read:
		s.readCount--
	case Write:
		s.writeCount--
	case Commit:
		s.commitHeld = false
	case Lock:
		s.lockHeld = false
	}
}

func (s *RWCSem) queueFor(mode Mode) *Queue {
	switch mode {
	case Read:
		return &s.readq
	case Write:
		return &s.writeq
	case Commit:
		return &s.commitq
	default:
		return &s.lockq
	}
}

// TryAcquire attempts to take mode without parking. It reports whether the
// mode was granted.
func (s *RWCSem) TryAcquire(mode Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canAcquireLocked(mode) {
		s.acquireLocked(mode)
		return true
	}
	return false
}

// Acquire attempts to take mode for t. If the mode cannot be granted
// immediately, t is parked on the matching wait queue and Acquire returns
// false; the caller must treat this as "stop running, task.Parked" and rely
// on a future Release to resubmit t. If it returns true, the mode is held
// and the caller may proceed.
func (s *RWCSem) Acquire(mode Mode, t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canAcquireLocked(mode) {
		s.acquireLocked(mode)
		return true
	}
	s.queueFor(mode).Push(t)
	return false
}

// Park enqueues t on mode's wait queue without attempting to acquire mode
// itself. It is for callers blocked on a condition external to the
// semaphore's own state (e.g. transaction pending-claim arbitration) that
// must still be woken the next time a Release drains mode's queue.
func (s *RWCSem) Park(mode Mode, t *Task) {
	s.mu.Lock()
	s.queueFor(mode).Push(t)
	s.mu.Unlock()
}

// Release gives up mode. Any wait queues whose mode is now compatible with
// the resulting state are drained and handed to sub as up to four task
// chains, in {read, write, commit, lock} order, mirroring the reference
// implementation's z_global_add_ntasks(4, ...) wake splice. If isComplete
// is false, selfTask (the task that just released, typically because it
// yielded rather than finished) is included as a fifth chain ahead of the
// woken ones.
func (s *RWCSem) Release(mode Mode, selfTask *Task, isComplete bool, sub Submitter) {
	var wake [4]*Task

	s.mu.Lock()
	s.releaseLocked(mode)
	if !s.readq.Empty() && s.canAcquireLocked(Read) {
		wake[0] = s.readq.Drain()
	}
	if !s.writeq.Empty() && s.canAcquireLocked(Write) {
		wake[1] = s.writeq.Drain()
	}
	if !s.commitq.Empty() && s.canAcquireLocked(Commit) {
		wake[2] = s.commitq.Drain()
	}
	if !s.lockq.Empty() && s.canAcquireLocked(Lock) {
		wake[3] = s.lockq.Drain()
	}
	s.mu.Unlock()

	if isComplete {
		sub.SubmitMany(wake[0], wake[1], wake[2], wake[3])
	} else {
		sub.SubmitMany(selfTask, wake[0], wake[1], wake[2], wake[3])
	}
}
