// Package raleighsl is the filesystem façade (C8): it owns the plugin
// registry, object cache, transaction manager, dispatcher, device handle,
// and master block for one open filesystem, and is the entry point a
// caller (the CLI, an embedding application) uses to create or open one and
// run operations against it.
package raleighsl

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/raleighsl/raleighsl/pkg/cache"
	"github.com/raleighsl/raleighsl/pkg/dispatch"
	"github.com/raleighsl/raleighsl/pkg/exec"
	"github.com/raleighsl/raleighsl/pkg/log"
	"github.com/raleighsl/raleighsl/pkg/notify"
	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/runq"
	"github.com/raleighsl/raleighsl/pkg/storage"
	"github.com/raleighsl/raleighsl/pkg/task"
	"github.com/raleighsl/raleighsl/pkg/txn"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// Config controls a filesystem's internal sizing; every field has a
// reasonable zero value.
type Config struct {
	// Workers is the dispatcher's worker pool size. Zero means
	// runtime.NumCPU().
	Workers int

	// CachePolicy builds the object cache's eviction policy. Nil means
	// cache.NewLRU().
	CachePolicy cache.Policy

	// ReaperInterval/ReaperMaxAge configure the transaction reaper. Zero
	// means the reaper's own defaults (10s / 30s).
	ReaperInterval time.Duration
	ReaperMaxAge   time.Duration

	Logger zerolog.Logger
}

// Filesystem is one open RaleighSL-style object store: a device, the
// plugins bound to it, and the engine machinery (cache, transactions,
// dispatcher, exec layer) operating over them.
type Filesystem struct {
	log zerolog.Logger

	device   storage.Device
	registry *plugin.Registry

	format   plugin.FormatPlugin
	space    plugin.SpacePlugin
	semantic plugin.SemanticPlugin
	object   plugin.ObjectPlugin

	objCache   *cache.Cache
	txns       *txn.Manager
	dispatcher *dispatch.Dispatcher
	notifier   *notify.Broker
	reaper     *txn.Reaper
	exec       *exec.Executor

	mu     sync.Mutex
	master types.MasterBlock
	closed bool
}

// Create writes a fresh master block to device, installs format/space/
// semantic/object into a new plugin registry, initializes the format
// layer, and returns a ready-to-use Filesystem.
func Create(device storage.Device, formatID uint32, label string, format plugin.FormatPlugin, space plugin.SpacePlugin, semantic plugin.SemanticPlugin, object plugin.ObjectPlugin, cfg Config) (*Filesystem, error) {
	registry := plugin.New()
	for _, p := range []plugin.Plugin{format, space, semantic, object} {
		if err := registry.Install(p); err != nil {
			return nil, fmt.Errorf("raleighsl: installing plugin %q: %w", p.Header().Label, err)
		}
	}

	mb := types.NewMasterBlock(formatID, uuid.New(), label)
	if err := device.WriteMasterBlock(&mb); err != nil {
		return nil, fmt.Errorf("raleighsl: writing master block: %w", err)
	}
	for _, p := range []plugin.Plugin{format, space, semantic, object} {
		h := p.Header()
		if err := device.RecordPlugin(storage.PluginRecord{UUID: h.UUID, Label: h.Label, Category: h.Category}); err != nil {
			return nil, fmt.Errorf("raleighsl: recording plugin %q: %w", h.Label, err)
		}
	}

	if errno := format.Format(); !errno.Ok() {
		return nil, fmt.Errorf("raleighsl: formatting device: %w", errno)
	}

	return newFilesystem(device, registry, mb, format, space, semantic, object, cfg), nil
}

// Open validates device's master block, re-resolves the format/space/
// semantic/object plugins it recorded from registry by UUID, and returns a
// Filesystem ready to accept exec operations.
func Open(device storage.Device, registry *plugin.Registry, cfg Config) (*Filesystem, error) {
	mb, err := device.ReadMasterBlock()
	if err != nil {
		return nil, fmt.Errorf("raleighsl: reading master block: %w", err)
	}
	if !mb.Valid() {
		return nil, types.BadMasterMagic
	}

	recs, err := device.InstalledPlugins()
	if err != nil {
		return nil, fmt.Errorf("raleighsl: listing installed plugins: %w", err)
	}

	var format plugin.FormatPlugin
	var space plugin.SpacePlugin
	var semantic plugin.SemanticPlugin
	var object plugin.ObjectPlugin

	for _, rec := range recs {
		p, ok := registry.Lookup(rec.UUID)
		if !ok {
			return nil, fmt.Errorf("raleighsl: plugin %s (%s) not registered: %w", rec.UUID, rec.Label, types.PluginNotFound)
		}
		switch rec.Category {
		case types.PluginFormat:
			format, ok = p.(plugin.FormatPlugin)
		case types.PluginSpace:
			space, ok = p.(plugin.SpacePlugin)
		case types.PluginSemantic:
			semantic, ok = p.(plugin.SemanticPlugin)
		case types.PluginObject:
			object, ok = p.(plugin.ObjectPlugin)
		}
		if !ok {
			return nil, fmt.Errorf("raleighsl: plugin %s recorded as %s has the wrong type: %w", rec.UUID, rec.Category, types.WrongPluginType)
		}
	}
	if format == nil || space == nil || semantic == nil || object == nil {
		return nil, fmt.Errorf("raleighsl: device is missing a required plugin category: %w", types.PluginNotAvailable)
	}

	return newFilesystem(device, registry, mb, format, space, semantic, object, cfg), nil
}

func newFilesystem(device storage.Device, registry *plugin.Registry, mb types.MasterBlock, format plugin.FormatPlugin, space plugin.SpacePlugin, semantic plugin.SemanticPlugin, object plugin.ObjectPlugin, cfg Config) *Filesystem {
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled && logger.Len() == 0 {
		logger = log.WithComponent("raleighsl")
	}

	policy := cfg.CachePolicy
	if policy == nil {
		policy = cache.NewLRU()
	}

	objCache := cache.New(policy)
	txns := txn.NewManager(logger)
	notifier := notify.NewBroker()
	notifier.Start()

	root := runq.NewFIFO()
	dispatcher := dispatch.New(dispatch.Config{Workers: cfg.Workers}, root, logger)
	dispatcher.Start()

	executor := exec.New(exec.Config{
		Dispatcher: dispatcher,
		Cache:      objCache,
		Txns:       txns,
		Device:     device,
		Semantic:   semantic,
		Object:     object,
		Notifier:   notifier,
	})

	reaper := txn.NewReaper(txns, dispatcher, executor.RollbackObject, txn.ReaperConfig{
		Interval: cfg.ReaperInterval,
		MaxAge:   cfg.ReaperMaxAge,
	})
	reaper.Start()

	return &Filesystem{
		log:        logger,
		device:     device,
		registry:   registry,
		format:     format,
		space:      space,
		semantic:   semantic,
		object:     object,
		objCache:   objCache,
		txns:       txns,
		dispatcher: dispatcher,
		notifier:   notifier,
		reaper:     reaper,
		exec:       executor,
		master:     mb,
	}
}

// Exec returns the executor driving this filesystem's eight operations.
func (fs *Filesystem) Exec() *exec.Executor { return fs.exec }

// Begin starts a new transaction against this filesystem.
func (fs *Filesystem) Begin() *txn.Transaction { return fs.txns.Begin() }

// MasterBlock returns the filesystem's master block as currently known
// in-memory (not re-read from device).
func (fs *Filesystem) MasterBlock() types.MasterBlock {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.master
}

// Sync flushes every cached object's plugin state back to the device. It
// does not itself commit or roll back any open transaction. An object whose
// plugin reports types.NotImplemented is skipped; any other error stops the
// sync.
func (fs *Filesystem) Sync() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, oid := range fs.objCache.Dump() {
		if err := fs.exec.SyncObject(oid); err != nil {
			if errors.Is(err, types.NotImplemented) {
				continue
			}
			return fmt.Errorf("raleighsl: syncing object %d: %w", oid, err)
		}
	}
	return nil
}

// Close flushes through Sync, then tears down the dispatcher, reaper, and
// notifier in reverse order of construction, and closes the device.
func (fs *Filesystem) Close() error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true
	fs.mu.Unlock()

	if err := fs.Sync(); err != nil {
		fs.log.Error().Err(err).Msg("sync failed during close")
	}

	fs.reaper.Stop()
	fs.dispatcher.Stop()
	fs.notifier.Stop()
	return fs.device.Close()
}
