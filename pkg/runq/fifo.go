package runq

import "github.com/raleighsl/raleighsl/pkg/task"

// FIFO is the plain first-in-first-out discipline. A task with SeqID == 0
// is fresh: it gets the next seqid and joins the tail of the plain queue.
// A task with a nonzero SeqID is re-entering after a suspension and goes
// into a seqid-ordered pending tree, which Fetch always drains before the
// fresh queue — this preserves a re-admitted task's original submission
// order relative to tasks that arrived after it first suspended.
type FIFO struct {
	pending *task.Tree
	queue   task.Queue
	seqid   uint64
}

// NewFIFO returns an empty FIFO run queue.
func NewFIFO() *FIFO {
	return &FIFO{pending: task.NewTree()}
}

func (q *FIFO) Add(t *task.Task) {
	if t.SeqID == 0 {
		q.seqid++
		t.SeqID = q.seqid
		q.queue.Push(t)
	} else {
		q.pending.Insert(t)
	}
}

// Readd is identical to Add for FIFO: a re-admitted task always carries a
// nonzero seqid by the time it gets here, so it lands in the pending tree.
func (q *FIFO) Readd(t *task.Task) { q.Add(t) }

func (q *FIFO) Fetch() *task.Task {
	if t := q.pending.Min(); t != nil {
		return t
	}
	return q.queue.Pop()
}

func (q *FIFO) Len() int { return q.pending.Len() + q.queue.Len() }

func (q *FIFO) Fini() {}
