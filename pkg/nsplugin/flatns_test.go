package nsplugin_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raleighsl/raleighsl/pkg/nsplugin"
	"github.com/raleighsl/raleighsl/pkg/types"
)

func TestFlatNamespaceCreateLookupUnlink(t *testing.T) {
	ns := nsplugin.NewFlatNamespace(uuid.New(), "flat")

	oid, errno := ns.Create("/c")
	require.True(t, errno.Ok())
	assert.NotEqual(t, types.NilOID, oid)

	_, errno = ns.Create("/c")
	assert.Equal(t, types.ObjectExists, errno)

	got, errno := ns.Lookup("/c")
	require.True(t, errno.Ok())
	assert.Equal(t, oid, got)

	unlinked, errno := ns.Unlink("/c")
	require.True(t, errno.Ok())
	assert.Equal(t, oid, unlinked)

	_, errno = ns.Lookup("/c")
	assert.Equal(t, types.ObjectNotFound, errno)
}

func TestFlatNamespaceRename(t *testing.T) {
	ns := nsplugin.NewFlatNamespace(uuid.New(), "flat")
	oid, _ := ns.Create("/old")

	errno := ns.Rename("/old", "/new")
	require.True(t, errno.Ok())

	got, errno := ns.Lookup("/new")
	require.True(t, errno.Ok())
	assert.Equal(t, oid, got)

	_, errno = ns.Lookup("/old")
	assert.Equal(t, types.ObjectNotFound, errno)
}

func TestFlatNamespaceOIDsAreMonotoneAndNeverZero(t *testing.T) {
	ns := nsplugin.NewFlatNamespace(uuid.New(), "flat")

	a, _ := ns.Create("/a")
	b, _ := ns.Create("/b")
	assert.NotEqual(t, types.NilOID, a)
	assert.Less(t, uint64(a), uint64(b))
}

func TestBumpSpaceAllocIsMonotoneAndRejectsZeroLength(t *testing.T) {
	sp := nsplugin.NewBumpSpace(uuid.New(), "bump")

	h1, errno := sp.Alloc(16)
	require.True(t, errno.Ok())
	h2, errno := sp.Alloc(16)
	require.True(t, errno.Ok())
	assert.Less(t, h1, h2)

	_, errno = sp.Alloc(0)
	assert.Equal(t, types.InvalidArgument, errno)

	assert.True(t, sp.Free(h1).Ok())
}

func TestNullFormatFormatSucceeds(t *testing.T) {
	f := nsplugin.NewNullFormat(uuid.New(), "null")
	assert.True(t, f.Format().Ok())
}
