package objplugin

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// KVOp is the request KV.Write expects: set Key to Value, or delete Key if
// Delete is true.
type KVOp struct {
	Key    string
	Value  []byte
	Delete bool
}

// KVGet is the request KV.Read expects.
type KVGet struct {
	Key string
}

type kvState struct {
	mu      sync.Mutex
	entries map[string][]byte
	staged  map[types.OID][]KVOp
}

// KV is a flat string-keyed byte-value store, committed to its device
// buffer as JSON — the same marshaling convention the storage layer uses
// for its own bookkeeping records.
type KV struct {
	plugin.Base
}

// NewKV returns a KV plugin with a fresh identity.
func NewKV(label string) *KV {
	return NewKVWithUUID(uuid.New(), label)
}

// NewKVWithUUID is NewKV with a caller-chosen identity, needed whenever a
// plugin must be resolvable by the same UUID across a Close/Open cycle.
func NewKVWithUUID(id uuid.UUID, label string) *KV {
	return &KV{Base: plugin.Base{H: types.PluginHeader{
		UUID:     id,
		Label:    label,
		Category: types.PluginObject,
	}}}
}

func (k *KV) Create(req any) (plugin.ObjectState, types.Errno) {
	return &kvState{entries: make(map[string][]byte), staged: make(map[types.OID][]KVOp)}, types.None
}

func (k *KV) Open(devbuf []byte) (plugin.ObjectState, types.Errno) {
	entries := make(map[string][]byte)
	if len(devbuf) > 0 {
		if err := json.Unmarshal(devbuf, &entries); err != nil {
			return nil, types.CorruptedMasterBlock
		}
	}
	return &kvState{entries: entries, staged: make(map[types.OID][]KVOp)}, types.None
}

// Read looks req.Key up in the committed entry set; req.(KVGet) is
// required.
func (k *KV) Read(st plugin.ObjectState, req any) (any, types.Errno) {
	get, ok := req.(KVGet)
	if !ok {
		return nil, types.WrongPluginType
	}
	ks := st.(*kvState)
	ks.mu.Lock()
	defer ks.mu.Unlock()

	val, ok := ks.entries[get.Key]
	if !ok {
		return nil, types.ObjectNotFound
	}
	out := append([]byte(nil), val...)
	return out, types.None
}

// Write stages req.(KVOp) against txnID without publishing it.
func (k *KV) Write(st plugin.ObjectState, txnID types.OID, req any) (any, types.Errno) {
	op, ok := req.(KVOp)
	if !ok {
		return nil, types.WrongPluginType
	}
	ks := st.(*kvState)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.staged[txnID] = append(ks.staged[txnID], op)
	return nil, types.None
}

// Commit applies every op staged under txnID, in order, and returns the
// resulting JSON-encoded entry set.
func (k *KV) Commit(st plugin.ObjectState, txnID types.OID) ([]byte, types.Errno) {
	ks := st.(*kvState)
	ks.mu.Lock()
	defer ks.mu.Unlock()

	for _, op := range ks.staged[txnID] {
		if op.Delete {
			delete(ks.entries, op.Key)
			continue
		}
		ks.entries[op.Key] = op.Value
	}
	delete(ks.staged, txnID)

	buf, err := json.Marshal(ks.entries)
	if err != nil {
		return nil, types.NoMemory
	}
	return buf, types.None
}

// Rollback discards every op staged under txnID.
func (k *KV) Rollback(st plugin.ObjectState, txnID types.OID) types.Errno {
	ks := st.(*kvState)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	delete(ks.staged, txnID)
	return types.None
}

// Close is a no-op.
func (k *KV) Close(st plugin.ObjectState) types.Errno { return types.None }
