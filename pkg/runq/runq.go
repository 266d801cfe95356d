// Package runq implements the pluggable run-queue disciplines that sit
// between the object/transaction wait queues (pkg/task) and the global
// dispatcher (pkg/dispatch). Every discipline satisfies the same RunQueue
// interface, so the dispatcher, and higher-level run queues composing
// lower-level ones, never need to know which discipline they're driving.
package runq

import "github.com/raleighsl/raleighsl/pkg/task"

// RunQueue is the vtable every discipline implements: Add admits a fresh or
// re-submitted task, Readd re-admits a task at the head of its class
// (used when a task yields mid-quantum rather than completing), Fetch
// removes the next task to run or returns nil if the queue has nothing
// runnable right now, and Fini releases any resources the discipline holds.
type RunQueue interface {
	Add(t *task.Task)
	Readd(t *task.Task)
	Fetch() *task.Task
	Len() int
	Fini()
}

// Priority is an opaque scheduling weight the composing layer may use to
// pick among peer run queues; the disciplines in this package don't
// interpret it themselves.
type Priority uint8
