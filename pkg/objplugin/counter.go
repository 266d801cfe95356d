// Package objplugin provides reference object plugins exercising the
// pkg/plugin.ObjectPlugin capability set end to end: Counter, a single
// signed 64-bit accumulator, and KV, a flat string-keyed byte-value store.
// Both stage writes per transaction id exactly as §4.5 describes and
// publish their committed state as the device buffer pkg/exec persists.
package objplugin

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"

	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// CounterDelta is the request Counter.Write expects: the signed amount to
// add once the owning transaction commits.
type CounterDelta int64

type counterState struct {
	mu     sync.Mutex
	value  int64
	staged map[types.OID]int64
}

// Counter is the trivial object plugin named in the core design notes: a
// signed 64-bit counter starting at 0 that Write stages a delta against and
// Commit publishes.
type Counter struct {
	plugin.Base
}

// NewCounter returns a Counter plugin with a fresh identity. label lets a
// caller install more than one distinctly-named counter plugin (e.g. for
// different units of measure) in the same registry.
func NewCounter(label string) *Counter {
	return NewCounterWithUUID(uuid.New(), label)
}

// NewCounterWithUUID is NewCounter with a caller-chosen identity, needed
// whenever a plugin must be resolvable by the same UUID across a Close/
// Open cycle (e.g. cmd/raleighsl's demo filesystem).
func NewCounterWithUUID(id uuid.UUID, label string) *Counter {
	return &Counter{Base: plugin.Base{H: types.PluginHeader{
		UUID:     id,
		Label:    label,
		Category: types.PluginObject,
	}}}
}

// Create returns a zeroed counter; req is ignored.
func (c *Counter) Create(req any) (plugin.ObjectState, types.Errno) {
	return &counterState{staged: make(map[types.OID]int64)}, types.None
}

// Open decodes an 8-byte little-endian value previously written by Commit.
func (c *Counter) Open(devbuf []byte) (plugin.ObjectState, types.Errno) {
	if len(devbuf) != 8 {
		return nil, types.CorruptedMasterBlock
	}
	return &counterState{
		value:  int64(binary.LittleEndian.Uint64(devbuf)),
		staged: make(map[types.OID]int64),
	}, types.None
}

// Read returns the counter's last-committed value; req is ignored.
func (c *Counter) Read(st plugin.ObjectState, req any) (any, types.Errno) {
	cs := st.(*counterState)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.value, types.None
}

// Write stages delta (a CounterDelta, or a plain int64) against txnID
// without publishing it.
func (c *Counter) Write(st plugin.ObjectState, txnID types.OID, req any) (any, types.Errno) {
	var delta int64
	switch v := req.(type) {
	case CounterDelta:
		delta = int64(v)
	case int64:
		delta = v
	default:
		return nil, types.WrongPluginType
	}

	cs := st.(*counterState)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.staged[txnID] += delta
	return nil, types.None
}

// Commit publishes txnID's staged delta into the counter's value and
// returns the new device buffer.
func (c *Counter) Commit(st plugin.ObjectState, txnID types.OID) ([]byte, types.Errno) {
	cs := st.(*counterState)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.value += cs.staged[txnID]
	delete(cs.staged, txnID)

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(cs.value))
	return buf, types.None
}

// Rollback discards txnID's staged delta.
func (c *Counter) Rollback(st plugin.ObjectState, txnID types.OID) types.Errno {
	cs := st.(*counterState)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.staged, txnID)
	return types.None
}

// Close is a no-op; Counter keeps no resources beyond its in-memory state.
func (c *Counter) Close(st plugin.ObjectState) types.Errno { return types.None }
