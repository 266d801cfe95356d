package types

import (
	"time"

	"github.com/google/uuid"
)

// OID is a 64-bit monotonically assigned object identifier. Zero is
// reserved and never assigned to a real object; it is used as a sentinel
// for "no pending transaction" and "no object".
type OID uint64

// NilOID is the reserved zero identifier.
const NilOID OID = 0

// PluginCategory names one of the five pluggable capability sets a
// filesystem resolves by UUID at Open time.
type PluginCategory int

const (
	PluginObject PluginCategory = iota
	PluginSemantic
	PluginSpace
	PluginFormat
	PluginKey
)

func (c PluginCategory) String() string {
	switch c {
	case PluginObject:
		return "object"
	case PluginSemantic:
		return "semantic"
	case PluginSpace:
		return "space"
	case PluginFormat:
		return "format"
	case PluginKey:
		return "key"
	default:
		return "unknown"
	}
}

// PluginHeader is the common header every plugin implementation embeds.
// UUID is persisted on disk in the device's installed-plugin records and is
// what Open resolves plugins by; Label is a human-readable name for the
// registry's slow-path lookup. The plugin records store Label next to the
// UUID for display, but no lookup on Open uses it.
type PluginHeader struct {
	UUID     uuid.UUID
	Label    string
	Category PluginCategory
}

// MasterBlockSize is the fixed, packed on-disk size of MasterBlock.
const MasterBlockSize = 64

// MasterMagic is the 12-byte magic stamped at the head of every master
// block, matching the reference implementation byte-for-byte.
var MasterMagic = [12]byte{'R', '4', 'l', '3', 'i', 'g', 'H', 'f', 'S', '-', 'v', '5'}

// MasterQMagic is the trailing 8-byte end-magic.
const MasterQMagic uint64 = 0xf5ba5028cb6afc76

// MasterBlock is the 64-byte packed, little-endian header written at a
// fixed offset on every device a filesystem is created on. Field order
// matches the reference layout: magic, format, ctime, uuid, label, qmagic.
type MasterBlock struct {
	Magic   [12]byte
	Format  uint32
	Ctime   uint64
	UUID    [16]byte
	Label   [16]byte
	QMagic  uint64
}

// NewMasterBlock builds a fresh, valid master block for a filesystem
// created with the given format id, filesystem uuid and label.
func NewMasterBlock(formatID uint32, fsUUID uuid.UUID, label string) MasterBlock {
	mb := MasterBlock{
		Magic:  MasterMagic,
		Format: formatID,
		Ctime:  uint64(time.Now().Unix()),
		QMagic: MasterQMagic,
	}
	copy(mb.UUID[:], fsUUID[:])
	copy(mb.Label[:], label)
	return mb
}

// Valid checks both magics.
func (mb *MasterBlock) Valid() bool {
	return mb.Magic == MasterMagic && mb.QMagic == MasterQMagic
}
