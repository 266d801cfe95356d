package runq

import "github.com/raleighsl/raleighsl/pkg/task"

// Fair is the vtime-accounted discipline: every task lives in a tree keyed
// by (vtime, seqid), Fetch always removes the minimum, and that task's
// vtime is then incremented by one before it next competes — the fair
// scheduler's accounting tick. Tasks that have accumulated less vtime (run
// less) sort ahead of ones that have run more, and seqid breaks ties
// between peers at the same vtime so equal-vtime tasks still come out FIFO.
type Fair struct {
	tree  *task.Tree
	seqid uint64
}

// NewFair returns an empty fair run queue.
func NewFair() *Fair {
	return &Fair{tree: task.NewTree()}
}

func (q *Fair) Add(t *task.Task) {
	if t.SeqID == 0 {
		q.seqid++
		t.SeqID = q.seqid
	}
	q.tree.Insert(t)
}

// Readd puts a yielded task straight back into the tree; its vtime already
// reflects the quantum it just consumed, so no special-casing is needed.
func (q *Fair) Readd(t *task.Task) { q.tree.Insert(t) }

func (q *Fair) Fetch() *task.Task {
	t := q.tree.Min()
	if t == nil {
		return nil
	}
	t.VTime++
	return t
}

func (q *Fair) Len() int { return q.tree.Len() }

func (q *Fair) Fini() {}
