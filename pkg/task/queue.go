package task

// Queue is an intrusive singly-linked FIFO of tasks, used both as the
// per-mode wait queues inside RWCSem and as the plain run-queue discipline
// in pkg/runq. Zero value is an empty, ready-to-use queue.
type Queue struct {
	head *Task
	tail *Task
	size int
}

// Len reports the number of tasks currently queued.
func (q *Queue) Len() int { return q.size }

// Empty reports whether the queue has no tasks.
func (q *Queue) Empty() bool { return q.head == nil }

// Push appends t to the tail of the queue.
func (q *Queue) Push(t *Task) {
	t.queueLink = nil
	if q.tail == nil {
		q.head, q.tail = t, t
	} else {
		q.tail.queueLink = t
		q.tail = t
	}
	q.size++
}

// Pop removes and returns the task at the head of the queue, or nil if
// empty.
func (q *Queue) Pop() *Task {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.queueLink
	if q.head == nil {
		q.tail = nil
	}
	t.queueLink = nil
	q.size--
	return t
}

// Peek returns the head task without removing it.
func (q *Queue) Peek() *Task { return q.head }

// Drain removes every task from q and returns the head of the resulting
// chain (tasks remain linked to each other via their queueLink), mirroring
// the reference implementation's "drain" primitive used when a wait queue
// is woken in bulk. The queue is left empty.
func (q *Queue) Drain() *Task {
	head := q.head
	q.head, q.tail, q.size = nil, nil, 0
	return head
}

// Chain walks a linked list of tasks produced by Drain, invoking fn on each
// in order.
func Chain(head *Task, fn func(*Task)) {
	for t := head; t != nil; {
		next := t.queueLink
		fn(t)
		t = next
	}
}
