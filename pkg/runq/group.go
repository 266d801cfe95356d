package runq

import "github.com/raleighsl/raleighsl/pkg/task"

// Group is the barrier discipline: a nested run queue with two inner task
// queues — main for ordinary tasks, pending for tasks queued up behind an
// active barrier — and two counters, running (tasks currently dispatched
// from this group that haven't finished) and barrier (nonzero while a
// barrier task is outstanding). A task tagged Barrier blocks every Fetch
// after it until all tasks this group has already handed out (running) have
// been reported done through TaskDone; tasks submitted while a barrier is
// outstanding queue in
// pending instead of main so they can't race ahead of it.
type Group struct {
	main    task.Queue
	pending task.Queue

	running int
	barrier int
}

// NewGroup returns an empty group/barrier run queue.
func NewGroup() *Group { return &Group{} }

func (q *Group) Add(t *task.Task) {
	if q.barrier > 0 {
		q.pending.Push(t)
		return
	}
	q.main.Push(t)
}

// Readd re-admits a yielded task exactly as Add does: at the tail of main,
// or of pending while a barrier is outstanding; it is not placed ahead of
// tasks already queued. Barrier state is unaffected: a task that yields
// hasn't finished, so running stays charged.
func (q *Group) Readd(t *task.Task) { q.Add(t) }

func (q *Group) Fetch() *task.Task {
	if q.barrier > 0 && q.running > 0 {
		// A barrier task is outstanding and earlier tasks it must wait
		// behind are still running: nothing may be fetched yet.
		return nil
	}
	t := q.main.Pop()
	if t == nil {
		return nil
	}
	if t.Barrier {
		q.barrier++
	}
	q.running++
	return t
}

// TaskDone must be called exactly once for every task Fetch returned, once
// that task has actually completed (not merely yielded). When the
// outstanding barrier's task finishes, pending tasks are spliced back into
// main so they can be fetched again. This is distinct from the RunQueue
// vtable's Fini, which releases the discipline itself.
func (q *Group) TaskDone(t *task.Task) {
	q.running--
	if t.Barrier {
		q.barrier--
		if q.barrier == 0 {
			task.Chain(q.pending.Drain(), func(p *task.Task) { q.main.Push(p) })
		}
	}
}

func (q *Group) Len() int { return q.main.Len() + q.pending.Len() }

// Fini releases the discipline's resources. Group holds none beyond its
// queues, so this is a no-op; task completion bookkeeping is TaskDone.
func (q *Group) Fini() {}
