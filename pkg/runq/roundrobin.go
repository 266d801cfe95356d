package runq

import "github.com/raleighsl/raleighsl/pkg/task"

// RoundRobin composes a fixed set of peer run queues (e.g. per-tenant
// groups) and fetches up to Quantum tasks from the current peer before
// rotating to the next one. A peer with nothing runnable is skipped
// without consuming any of the quantum.
type RoundRobin struct {
	peers   []RunQueue
	Quantum int

	cur     int
	fetched int
}

// NewRoundRobin returns a round-robin discipline over peers, taking up to
// quantum tasks from each before rotating.
func NewRoundRobin(quantum int, peers ...RunQueue) *RoundRobin {
	return &RoundRobin{peers: peers, Quantum: quantum}
}

// AddPeer appends another run queue to the rotation.
func (q *RoundRobin) AddPeer(rq RunQueue) { q.peers = append(q.peers, rq) }

// Add is not meaningful on the composing queue itself: tasks are added to
// one of the peers directly. It panics to surface a wiring mistake early.
func (q *RoundRobin) Add(t *task.Task) {
	panic("runq: RoundRobin.Add called directly; add to a peer instead")
}

func (q *RoundRobin) Readd(t *task.Task) { q.Add(t) }

func (q *RoundRobin) Fetch() *task.Task {
	if len(q.peers) == 0 {
		return nil
	}
	for attempts := 0; attempts < len(q.peers); attempts++ {
		if q.fetched >= q.Quantum {
			q.rotate()
		}
		peer := q.peers[q.cur]
		if peer.Len() == 0 {
			q.rotate()
			continue
		}
		if t := peer.Fetch(); t != nil {
			q.fetched++
			return t
		}
		q.rotate()
	}
	return nil
}

func (q *RoundRobin) rotate() {
	q.cur = (q.cur + 1) % len(q.peers)
	q.fetched = 0
}

func (q *RoundRobin) Len() int {
	n := 0
	for _, p := range q.peers {
		n += p.Len()
	}
	return n
}

func (q *RoundRobin) Fini() {
	for _, p := range q.peers {
		p.Fini()
	}
}
