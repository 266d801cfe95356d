package cache

import "github.com/raleighsl/raleighsl/pkg/types"

// listNode is one node of the recency-ordered doubly-linked list shared by
// the LRU and MRU policies. front is the most-recently-touched end.
type listNode struct {
	entry      *Entry
	prev, next *listNode
}

// recencyList is the intrusive doubly-linked list both LRU and MRU build
// on; they differ only in which end Reclaim takes victims from.
type recencyList struct {
	front, back *listNode
	n           int
}

func (l *recencyList) pushFront(e *Entry) {
	node := &listNode{entry: e}
	e.policyLink = node
	if l.front == nil {
		l.front, l.back = node, node
	} else {
		node.next = l.front
		l.front.prev = node
		l.front = node
	}
	l.n++
}

func (l *recencyList) unlink(node *listNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.front = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.back = node.prev
	}
	node.prev, node.next = nil, nil
	l.n--
}

// moveToFront repositions an already-linked node as most-recently-touched.
func (l *recencyList) moveToFront(node *listNode) {
	if l.front == node {
		return
	}
	l.unlink(node)
	l.pushFrontNode(node)
}

func (l *recencyList) pushFrontNode(node *listNode) {
	node.prev, node.next = nil, nil
	if l.front == nil {
		l.front, l.back = node, node
	} else {
		node.next = l.front
		l.front.prev = node
		l.front = node
	}
	l.n++
}

// removeEntry detaches e's node from the list, if tracked.
func (l *recencyList) removeEntry(e *Entry) {
	if e.policyLink == nil {
		return
	}
	l.unlink(e.policyLink)
	e.policyLink = nil
}

// dumpDirection returns OIDs in the order eviction would consume them:
// with fromFront (LRU) it walks from l.back toward l.front, otherwise (MRU)
// from l.front toward l.back.
func dumpDirection(l *recencyList, fromFront bool) []types.OID {
	out := make([]types.OID, 0, l.n)
	if fromFront {
		for node := l.back; node != nil; node = node.prev {
			out = append(out, node.entry.OID)
		}
	} else {
		for node := l.front; node != nil; node = node.next {
			out = append(out, node.entry.OID)
		}
	}
	return out
}

// LRU evicts the least-recently-touched entry first: Reclaim takes victims
// from the back of the recency list (the end Update doesn't move).
type LRU struct {
	list recencyList
}

// NewLRU returns an empty LRU eviction policy.
func NewLRU() *LRU { return &LRU{} }

func (p *LRU) Create(e *Entry) { p.list.pushFront(e) }
func (p *LRU) Update(e *Entry) { p.list.moveToFront(e.policyLink) }
func (p *LRU) Remove(e *Entry) { p.list.removeEntry(e) }

func (p *LRU) Reclaim(n int, pred EvictPredicate) []types.OID {
	var victims []types.OID
	node := p.list.back
	for node != nil && len(victims) < n {
		prev := node.prev
		if pred == nil || pred(node.entry) {
			p.list.unlink(node)
			node.entry.policyLink = nil
			victims = append(victims, node.entry.OID)
		}
		node = prev
	}
	return victims
}

func (p *LRU) Dump() []types.OID { return dumpDirection(&p.list, true) }

// MRU evicts the most-recently-touched entry first: Reclaim takes victims
// from the front of the recency list.
type MRU struct {
	list recencyList
}

// NewMRU returns an empty MRU eviction policy.
func NewMRU() *MRU { return &MRU{} }

func (p *MRU) Create(e *Entry) { p.list.pushFront(e) }
func (p *MRU) Update(e *Entry) { p.list.moveToFront(e.policyLink) }
func (p *MRU) Remove(e *Entry) { p.list.removeEntry(e) }

func (p *MRU) Reclaim(n int, pred EvictPredicate) []types.OID {
	var victims []types.OID
	node := p.list.front
	for node != nil && len(victims) < n {
		next := node.next
		if pred == nil || pred(node.entry) {
			p.list.unlink(node)
			node.entry.policyLink = nil
			victims = append(victims, node.entry.OID)
		}
		node = next
	}
	return victims
}

func (p *MRU) Dump() []types.OID { return dumpDirection(&p.list, false) }
