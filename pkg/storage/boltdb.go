package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/raleighsl/raleighsl/pkg/types"
	"github.com/raleighsl/raleighsl/pkg/wire"
)

var (
	bucketMaster  = []byte("master")
	bucketDevbufs = []byte("devbufs")
	bucketPlugins = []byte("plugins")

	masterKey = []byte("master")
)

// BoltDevice implements Device on top of a single bbolt file: one bucket
// holds the fixed-size master block under a single key, one holds the
// per-object device buffers keyed by big-endian OID, and one mirrors the
// set of installed plugins so Open can re-resolve them.
type BoltDevice struct {
	db *bolt.DB
}

// NewBoltDevice opens (creating if needed) a bbolt-backed device file under
// dataDir.
func NewBoltDevice(dataDir string) (*BoltDevice, error) {
	dbPath := filepath.Join(dataDir, "raleighsl.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open device: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketMaster, bucketDevbufs, bucketPlugins} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltDevice{db: db}, nil
}

func (d *BoltDevice) Close() error {
	return d.db.Close()
}

func (d *BoltDevice) WriteMasterBlock(mb *types.MasterBlock) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMaster).Put(masterKey, wire.EncodeMasterBlock(mb))
	})
}

func (d *BoltDevice) ReadMasterBlock() (types.MasterBlock, error) {
	var mb types.MasterBlock
	var errno types.Errno
	err := d.db.View(func(tx *bolt.Tx) error {
		buf := tx.Bucket(bucketMaster).Get(masterKey)
		if buf == nil {
			errno = types.BadMasterMagic
			return nil
		}
		mb, errno = wire.DecodeMasterBlock(buf)
		return nil
	})
	if err != nil {
		return mb, err
	}
	if !errno.Ok() {
		return mb, errno
	}
	return mb, nil
}

func (d *BoltDevice) PutObjectBuf(oid types.OID, buf []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDevbufs).Put(oidKey(oid), buf)
	})
}

func (d *BoltDevice) GetObjectBuf(oid types.OID) ([]byte, bool, error) {
	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDevbufs).Get(oidKey(oid))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, out != nil, err
}

func (d *BoltDevice) DeleteObjectBuf(oid types.OID) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDevbufs).Delete(oidKey(oid))
	})
}

func (d *BoltDevice) InstalledPlugins() ([]PluginRecord, error) {
	var out []PluginRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlugins).ForEach(func(k, v []byte) error {
			var rec PluginRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode plugin record %x: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

func (d *BoltDevice) RecordPlugin(rec PluginRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlugins).Put(rec.UUID[:], data)
	})
}

func (d *BoltDevice) ForgetPlugin(id uuid.UUID) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlugins).Delete(id[:])
	})
}

func oidKey(oid types.OID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(oid))
	return buf
}
