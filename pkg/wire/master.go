package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/raleighsl/raleighsl/pkg/types"
)

// EncodeMasterBlock packs mb into its fixed 64-byte little-endian layout.
func EncodeMasterBlock(mb *types.MasterBlock) []byte {
	buf := make([]byte, types.MasterBlockSize)
	off := 0
	copy(buf[off:], mb.Magic[:])
	off += len(mb.Magic)
	binary.LittleEndian.PutUint32(buf[off:], mb.Format)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], mb.Ctime)
	off += 8
	copy(buf[off:], mb.UUID[:])
	off += len(mb.UUID)
	copy(buf[off:], mb.Label[:])
	off += len(mb.Label)
	binary.LittleEndian.PutUint64(buf[off:], mb.QMagic)
	off += 8
	if off != types.MasterBlockSize {
		panic(fmt.Sprintf("wire: master block layout drifted: wrote %d of %d bytes", off, types.MasterBlockSize))
	}
	return buf
}

// DecodeMasterBlock unpacks a 64-byte buffer into a MasterBlock. It returns
// types.BadMasterMagic if either magic fails to validate.
func DecodeMasterBlock(buf []byte) (types.MasterBlock, types.Errno) {
	var mb types.MasterBlock
	if len(buf) < types.MasterBlockSize {
		return mb, types.CorruptedMasterBlock
	}
	off := 0
	copy(mb.Magic[:], buf[off:off+len(mb.Magic)])
	off += len(mb.Magic)
	mb.Format = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	mb.Ctime = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	copy(mb.UUID[:], buf[off:off+len(mb.UUID)])
	off += len(mb.UUID)
	copy(mb.Label[:], buf[off:off+len(mb.Label)])
	off += len(mb.Label)
	mb.QMagic = binary.LittleEndian.Uint64(buf[off:])

	if !mb.Valid() {
		return mb, types.BadMasterMagic
	}
	return mb, types.None
}
