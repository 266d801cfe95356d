// Package dispatch implements the global worker pool: a small set of
// goroutines that pull tasks off a root run queue, run each to its next
// suspension point, and re-admit or drop it depending on the state the task
// returns. It is the concrete Submitter pkg/task.RWCSem wakes waiters
// through.
package dispatch

import (
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/raleighsl/raleighsl/pkg/metrics"
	"github.com/raleighsl/raleighsl/pkg/runq"
	"github.com/raleighsl/raleighsl/pkg/task"
)

func defaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Config controls pool sizing.
type Config struct {
	// Workers is the number of goroutines pulling from the root run
	// queue. Zero means runtime.NumCPU().
	Workers int
}

// Dispatcher owns the root run queue and the pool of goroutines draining
// it. Submission is safe for concurrent use by many callers (exec-layer
// tasks, RWC semaphore wake splices, the transaction reaper).
type Dispatcher struct {
	log zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	root    runq.RunQueue
	workers int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// New builds a Dispatcher over root, the top-level run queue discipline
// (typically a runq.FIFO or runq.RoundRobin composing per-tenant groups).
func New(cfg Config, root runq.RunQueue, log zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers()
	}
	d := &Dispatcher{
		log:    log.With().Str("component", "dispatch").Logger(),
		root:   root,
		stopCh: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	d.workers = cfg.Workers
	return d
}

// Start launches the worker pool. Calling Start while the pool is already
// running is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	n := d.workers
	d.mu.Unlock()

	d.log.Info().Int("workers", n).Msg("starting dispatcher")
	for i := 0; i < n; i++ {
		d.wg.Add(1)
		go d.runWorker(i)
	}
}

// Stop signals every worker to exit once its current task (if any)
// completes, and waits for them to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	close(d.stopCh)
	d.cond.Broadcast()
	d.wg.Wait()
	d.log.Info().Msg("dispatcher stopped")
}

func (d *Dispatcher) runWorker(id int) {
	defer d.wg.Done()
	log := d.log.With().Int("worker", id).Logger()

	for {
		t := d.fetch()
		if t == nil {
			return
		}
		d.execute(t, log)
	}
}

// fetch blocks until a task is available or Stop is called, returning nil
// in the latter case.
func (d *Dispatcher) fetch() *task.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if t := d.root.Fetch(); t != nil {
			metrics.RunQueueDepth.Set(float64(d.root.Len()))
			return t
		}
		select {
		case <-d.stopCh:
			return nil
		default:
		}
		d.cond.Wait()
	}
}

func (d *Dispatcher) execute(t *task.Task, log zerolog.Logger) {
	metrics.DispatcherTasksActive.Inc()
	defer metrics.DispatcherTasksActive.Dec()

	state, panicked := d.safeResume(t)
	if panicked {
		metrics.DispatcherTaskPanics.Inc()
		log.Error().Msg("task panicked; dropping")
		return
	}

	switch state {
	case task.Done:
		metrics.DispatcherTasksCompleted.Inc()
	case task.Yielded:
		d.Submit(t)
	case task.Parked:
		// The resource the task parked on owns resubmission; nothing to
		// do here.
	}
}

// safeResume calls t.Resume, recovering a panic so one misbehaving task
// (or plugin callback) can't take down a worker goroutine.
func (d *Dispatcher) safeResume(t *task.Task) (state task.State, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
		}
	}()
	return t.Resume(t), false
}

// Submit admits a single task into the root run queue.
func (d *Dispatcher) Submit(t *task.Task) {
	if t == nil {
		return
	}
	d.mu.Lock()
	d.root.Add(t)
	d.mu.Unlock()
	d.cond.Signal()
}

// SubmitMany implements task.Submitter: it splices up to several short
// task chains (as produced by RWCSem.Release's wait-queue drain) into the
// root run queue under a single lock acquisition.
func (d *Dispatcher) SubmitMany(lists ...*task.Task) {
	d.mu.Lock()
	any := false
	for _, head := range lists {
		task.Chain(head, func(t *task.Task) {
			d.root.Add(t)
			any = true
		})
	}
	d.mu.Unlock()
	if any {
		d.cond.Broadcast()
	}
}
