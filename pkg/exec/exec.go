// Package exec implements the eight core filesystem operations — create,
// lookup, rename, unlink, read, write, and the two transaction terminators
// — as cooperative tasks submitted to the global dispatcher. Each operation
// takes the locks its table entry specifies, invokes the semantic and/or
// object plugin callbacks, and publishes exactly one notify.Event with the
// final errno once it reaches task.Done.
package exec

import (
	"github.com/rs/zerolog"

	"github.com/raleighsl/raleighsl/pkg/cache"
	"github.com/raleighsl/raleighsl/pkg/log"
	"github.com/raleighsl/raleighsl/pkg/notify"
	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/storage"
	"github.com/raleighsl/raleighsl/pkg/task"
	"github.com/raleighsl/raleighsl/pkg/txn"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// Dispatcher is the subset of pkg/dispatch.Dispatcher the exec layer needs:
// Submit to admit a freshly built task, and SubmitMany (task.Submitter) so
// it can also be passed straight through to pkg/txn and pkg/task.RWCSem,
// which resubmit woken tasks through the same pool.
type Dispatcher interface {
	task.Submitter
	Submit(t *task.Task)
}

// Config wires an Executor to the filesystem it serves.
type Config struct {
	Dispatcher Dispatcher
	Cache      *cache.Cache
	Txns       *txn.Manager
	Device     storage.Device
	Semantic   plugin.SemanticPlugin
	Object     plugin.ObjectPlugin
	Notifier   *notify.Broker
}

// Executor runs the eight exec-layer entry points against one open
// filesystem. Every operation is safe for concurrent use.
type Executor struct {
	log zerolog.Logger

	dispatcher Dispatcher
	objCache   *cache.Cache
	txns       *txn.Manager
	device     storage.Device
	semantic   plugin.SemanticPlugin
	objPlugin  plugin.ObjectPlugin
	notifier   *notify.Broker

	semanticRWC *task.RWCSem
}

// New returns an Executor over cfg. The semantic plugin gets its own RWC
// lock, independent of any single object's, since create/rename/unlink must
// serialize against each other and against lookup at the naming layer
// regardless of which object they ultimately touch.
func New(cfg Config) *Executor {
	return &Executor{
		log:         log.WithComponent("exec"),
		dispatcher:  cfg.Dispatcher,
		objCache:    cfg.Cache,
		txns:        cfg.Txns,
		device:      cfg.Device,
		semantic:    cfg.Semantic,
		objPlugin:   cfg.Object,
		notifier:    cfg.Notifier,
		semanticRWC: task.NewRWCSem(),
	}
}

// publish emits a completion event if a notifier is configured; the CLI and
// metrics layers can run without one.
func (e *Executor) publish(typ notify.EventType, oid types.OID, errno types.Errno) {
	if e.notifier == nil {
		return
	}
	e.notifier.Publish(&notify.Event{
		Type:  typ,
		OID:   oid,
		Errno: errno,
	})
}

// loadObject resolves oid to its in-memory Object, materializing it from
// the device's persisted buffer through the object plugin's Open callback
// on a cache miss. The caller must Release the returned entry.
func (e *Executor) loadObject(oid types.OID) (*Object, *cache.Entry, types.Errno) {
	if entry, ok := e.objCache.Lookup(oid); ok {
		obj, ok := entry.Value.(*Object)
		if !ok {
			e.objCache.Release(entry)
			return nil, nil, types.CorruptedMasterBlock
		}
		return obj, entry, types.None
	}

	buf, ok, err := e.device.GetObjectBuf(oid)
	if err != nil || !ok {
		return nil, nil, types.ObjectNotFound
	}
	state, errno := e.objPlugin.Open(buf)
	if !errno.Ok() {
		return nil, nil, errno
	}
	obj := &Object{oid: oid, rwc: task.NewRWCSem(), plug: e.objPlugin, state: state}
	entry, inserted := e.objCache.TryInsert(oid, obj)
	if !inserted {
		// Lost the race against a concurrent loader; use the winner's copy.
		obj = entry.Value.(*Object)
	}
	return obj, entry, types.None
}
