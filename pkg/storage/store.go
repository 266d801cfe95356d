package storage

import (
	"github.com/google/uuid"

	"github.com/raleighsl/raleighsl/pkg/types"
)

// Device is the block-device plugin contract the root filesystem façade
// opens against. It owns exactly three things: the fixed master block, the
// per-object device buffers plugins stage their on-disk state into, and a
// durable mirror of which plugin UUIDs have been installed (so a reopened
// filesystem can re-resolve them without re-registering every plugin by
// hand).
type Device interface {
	// WriteMasterBlock persists mb at the device's fixed master block
	// location, overwriting any previous value.
	WriteMasterBlock(mb *types.MasterBlock) error

	// ReadMasterBlock reads back the device's master block. It returns
	// types.BadMasterMagic if none has ever been written.
	ReadMasterBlock() (types.MasterBlock, error)

	// PutObjectBuf stores the device-resident buffer for oid, replacing
	// any previous value.
	PutObjectBuf(oid types.OID, buf []byte) error

	// GetObjectBuf retrieves the device-resident buffer for oid. ok is
	// false if no buffer has been stored for oid.
	GetObjectBuf(oid types.OID) (buf []byte, ok bool, err error)

	// DeleteObjectBuf removes the device-resident buffer for oid, if any.
	DeleteObjectBuf(oid types.OID) error

	// InstalledPlugins returns the records (UUID, label, category) of the
	// plugins this device has recorded as installed, in no particular order.
	InstalledPlugins() ([]PluginRecord, error)

	// RecordPlugin durably notes that a plugin identified by uuid/label/
	// category has been installed, so Open can re-resolve it later.
	RecordPlugin(rec PluginRecord) error

	// ForgetPlugin removes a previously recorded plugin.
	ForgetPlugin(id uuid.UUID) error

	Close() error
}

// PluginRecord is the durable, on-disk trace of an installed plugin.
type PluginRecord struct {
	UUID     uuid.UUID
	Label    string
	Category types.PluginCategory
}
