// Package task implements the resumable task descriptor, its FIFO and
// ordered queues, and the four-mode RWC semaphore that the run-queue and
// dispatcher layers schedule around. A Task never blocks an OS thread: it
// parks by returning Parked from its Resume function and is re-submitted by
// whatever resource it was waiting on once that resource can admit it.
package task

// State is what a worker should do with a Task after Resume returns.
type State int

const (
	// Done means the task finished; it is not re-admitted anywhere.
	Done State = iota
	// Parked means the task suspended waiting on a resource; the resource
	// itself is responsible for re-submitting it later.
	Parked
	// Yielded means the task voluntarily gave up its quantum and should be
	// re-admitted to the run queue it came from.
	Yielded
)

// Func is a task's resumable body. It is called once per scheduling turn
// and must not block; it returns the state the worker should transition the
// task to.
type Func func(t *Task) State

// Task is the unit the scheduler moves around. SeqID is zero until a run
// queue numbers the task on Add, in monotonically increasing order; it is
// used both as the FIFO tie-breaker and, combined with VTime, as the fair
// run queue's sort key.
//
// queueLink and treeLink are kept as two distinct fields rather than one
// aliased node: the reference implementation overlays a single sys_node
// across the FIFO queue and the AVL tree to save two words per task. That
// trick is dropped here in favor of clarity — see the module's design notes.
type Task struct {
	SeqID  uint64
	VTime  uint64
	Resume Func

	Barrier   bool
	Autoclean bool

	// UData is small, caller-owned scratch space threaded through Resume
	// calls.
	UData any

	queueLink *Task // intrusive next-pointer for FIFO task queues
	treeLink  *taskTreeNode
}

// New creates a task with the given resume function. SeqID/VTime are left
// zero; the run queue the task is added to assigns what its ordering needs.
func New(fn Func) *Task {
	return &Task{Resume: fn}
}
