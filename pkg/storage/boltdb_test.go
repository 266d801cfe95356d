package storage_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raleighsl/raleighsl/pkg/storage"
	"github.com/raleighsl/raleighsl/pkg/types"
)

func openDevice(t *testing.T) *storage.BoltDevice {
	t.Helper()
	dev, err := storage.NewBoltDevice(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestMasterBlockRoundTrip(t *testing.T) {
	dev := openDevice(t)

	mb := types.NewMasterBlock(1, uuid.New(), "testfs")
	require.NoError(t, dev.WriteMasterBlock(&mb))

	got, err := dev.ReadMasterBlock()
	require.NoError(t, err)
	assert.Equal(t, mb, got)
}

func TestReadMasterBlockBeforeWriteFails(t *testing.T) {
	dev := openDevice(t)

	_, err := dev.ReadMasterBlock()
	assert.ErrorIs(t, err, types.BadMasterMagic)
}

func TestObjectBufCRUD(t *testing.T) {
	dev := openDevice(t)
	oid := types.OID(42)

	_, ok, err := dev.GetObjectBuf(oid)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dev.PutObjectBuf(oid, []byte("hello")))
	buf, ok, err := dev.GetObjectBuf(oid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), buf)

	require.NoError(t, dev.DeleteObjectBuf(oid))
	_, ok, err = dev.GetObjectBuf(oid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPluginRecordRoundTrip(t *testing.T) {
	dev := openDevice(t)
	rec := storage.PluginRecord{
		UUID:     uuid.New(),
		Label:    "counter",
		Category: types.PluginObject,
	}
	require.NoError(t, dev.RecordPlugin(rec))

	all, err := dev.InstalledPlugins()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, rec, all[0])

	require.NoError(t, dev.ForgetPlugin(rec.UUID))
	all, err = dev.InstalledPlugins()
	require.NoError(t, err)
	assert.Empty(t, all)
}
