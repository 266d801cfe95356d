package objplugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raleighsl/raleighsl/pkg/objplugin"
	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/types"
)

func TestCounterCreateWriteCommitRead(t *testing.T) {
	c := objplugin.NewCounter("counter")

	st, errno := c.Create(nil)
	require.True(t, errno.Ok())

	val, errno := c.Read(st, nil)
	require.True(t, errno.Ok())
	assert.Equal(t, int64(0), val)

	_, errno = c.Write(st, types.OID(1), objplugin.CounterDelta(1))
	require.True(t, errno.Ok())

	buf, errno := c.Commit(st, types.OID(1))
	require.True(t, errno.Ok())

	val, errno = c.Read(st, nil)
	require.True(t, errno.Ok())
	assert.Equal(t, int64(1), val)

	reopened, errno := c.Open(buf)
	require.True(t, errno.Ok())
	val, errno = c.Read(reopened, nil)
	require.True(t, errno.Ok())
	assert.Equal(t, int64(1), val, "device buffer round-trips the committed value")
}

func TestCounterRollbackDiscardsStagedDelta(t *testing.T) {
	c := objplugin.NewCounter("counter")
	st, _ := c.Create(nil)

	_, errno := c.Write(st, types.OID(9), objplugin.CounterDelta(100))
	require.True(t, errno.Ok())

	errno = c.Rollback(st, types.OID(9))
	require.True(t, errno.Ok())

	_, errno = c.Commit(st, types.OID(9))
	require.True(t, errno.Ok())

	val, _ := c.Read(st, nil)
	assert.Equal(t, int64(0), val)
}

func TestKVSetGetAndDelete(t *testing.T) {
	kv := objplugin.NewKV("kv")
	st, _ := kv.Create(nil)

	_, errno := kv.Write(st, types.OID(1), objplugin.KVOp{Key: "a", Value: []byte("1")})
	require.True(t, errno.Ok())
	buf, errno := kv.Commit(st, types.OID(1))
	require.True(t, errno.Ok())

	val, errno := kv.Read(st, objplugin.KVGet{Key: "a"})
	require.True(t, errno.Ok())
	assert.Equal(t, []byte("1"), val)

	reopened, errno := kv.Open(buf)
	require.True(t, errno.Ok())
	val, errno = kv.Read(reopened, objplugin.KVGet{Key: "a"})
	require.True(t, errno.Ok())
	assert.Equal(t, []byte("1"), val)

	_, errno = kv.Write(st, types.OID(2), objplugin.KVOp{Key: "a", Delete: true})
	require.True(t, errno.Ok())
	_, errno = kv.Commit(st, types.OID(2))
	require.True(t, errno.Ok())

	_, errno = kv.Read(st, objplugin.KVGet{Key: "a"})
	assert.Equal(t, types.ObjectNotFound, errno)
}

// TestRegistryDistinguishesCounterAndKV mirrors the plugin-lookup scenario:
// install two object plugins with distinct UUIDs and labels, then resolve
// each both ways, and confirm a duplicate label is rejected.
func TestRegistryDistinguishesCounterAndKV(t *testing.T) {
	reg := plugin.New()
	counter := objplugin.NewCounter("counter")
	kv := objplugin.NewKV("kv")

	require.NoError(t, reg.Install(counter))
	require.NoError(t, reg.Install(kv))

	byUUID, ok := reg.Lookup(counter.Header().UUID)
	require.True(t, ok)
	assert.Same(t, counter, byUUID)

	byLabel, ok := reg.LookupByLabel(types.PluginObject, "counter")
	require.True(t, ok)
	assert.Same(t, counter, byLabel)

	_, ok = reg.LookupByLabel(types.PluginObject, "absent")
	assert.False(t, ok)

	dup := objplugin.NewCounter("counter")
	err := reg.Install(dup)
	assert.Error(t, err)
	assert.ErrorIs(t, err, types.PluginExists)
}
