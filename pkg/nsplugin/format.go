package nsplugin

import (
	"github.com/google/uuid"

	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// NullFormat is a format plugin with no on-disk bookkeeping of its own:
// the master block the façade writes directly is the entire on-device
// layout this module specifies (§6), so Format has nothing further to lay
// down. A real format plugin would carve the device into block-layout
// regions for the space plugin to allocate from; that's the block-device
// abstraction §1 names as an external collaborator.
type NullFormat struct {
	plugin.Base
}

// NewNullFormat returns a format plugin with identity id/label.
func NewNullFormat(id uuid.UUID, label string) *NullFormat {
	return &NullFormat{Base: plugin.Base{H: types.PluginHeader{UUID: id, Label: label, Category: types.PluginFormat}}}
}

// Format is a no-op; the master block write in raleighsl.Create is this
// filesystem's entire on-disk format.
func (f *NullFormat) Format() types.Errno { return types.None }
