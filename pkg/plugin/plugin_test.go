package plugin_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// fakeObjectPlugin is a minimal plugin.Plugin standing in for a real
// object plugin; the registry only ever looks at its Header.
type fakeObjectPlugin struct {
	plugin.Base
}

func newFake(label string) *fakeObjectPlugin {
	return &fakeObjectPlugin{Base: plugin.Base{H: types.PluginHeader{
		UUID:     uuid.New(),
		Label:    label,
		Category: types.PluginObject,
	}}}
}

// TestLookupByLabelAndUUIDAgree is scenario S6: after installing two
// object plugins with distinct UUIDs and labels, both lookup paths
// resolve to the same handle, an absent label returns nothing, and
// reinstalling an already-loaded label/uuid fails distinctly from None.
func TestLookupByLabelAndUUIDAgree(t *testing.T) {
	r := plugin.New()

	counter := newFake("counter")
	kv := newFake("kv")

	require.NoError(t, r.Install(counter))
	require.NoError(t, r.Install(kv))

	byLabel, ok := r.LookupByLabel(types.PluginObject, "counter")
	require.True(t, ok)
	assert.Same(t, counter, byLabel)

	byUUID, ok := r.Lookup(counter.Header().UUID)
	require.True(t, ok)
	assert.Same(t, counter, byUUID)

	_, ok = r.LookupByLabel(types.PluginObject, "absent")
	assert.False(t, ok)

	err := r.Install(newFake("counter"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.PluginExists)
}

func TestInstallRejectsDuplicateUUID(t *testing.T) {
	r := plugin.New()
	p := newFake("counter")
	require.NoError(t, r.Install(p))

	dup := &fakeObjectPlugin{Base: plugin.Base{H: types.PluginHeader{
		UUID:     p.Header().UUID,
		Label:    "kv",
		Category: types.PluginObject,
	}}}
	err := r.Install(dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.PluginExists)
}

// TestLabelsUniqueOnlyWithinCategory mirrors §3's plugin invariant: labels
// are unique per plugin type, so a semantic and an object plugin may share
// a label without conflict.
func TestLabelsUniqueOnlyWithinCategory(t *testing.T) {
	r := plugin.New()

	obj := newFake("primary")
	sem := &fakeObjectPlugin{Base: plugin.Base{H: types.PluginHeader{
		UUID:     uuid.New(),
		Label:    "primary",
		Category: types.PluginSemantic,
	}}}

	require.NoError(t, r.Install(obj))
	require.NoError(t, r.Install(sem))

	byLabel, ok := r.LookupByLabel(types.PluginObject, "primary")
	require.True(t, ok)
	assert.Same(t, obj, byLabel)

	byLabel, ok = r.LookupByLabel(types.PluginSemantic, "primary")
	require.True(t, ok)
	assert.Same(t, sem, byLabel)
}

func TestUninstallRemovesBothIndexes(t *testing.T) {
	r := plugin.New()
	p := newFake("counter")
	require.NoError(t, r.Install(p))

	require.NoError(t, r.Uninstall(p.Header().UUID))

	_, ok := r.Lookup(p.Header().UUID)
	assert.False(t, ok)
	_, ok = r.LookupByLabel(types.PluginObject, "counter")
	assert.False(t, ok)

	err := r.Uninstall(p.Header().UUID)
	assert.ErrorIs(t, err, types.PluginNotFound)
}
