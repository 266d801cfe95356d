package plugin

import "github.com/raleighsl/raleighsl/pkg/types"

// Base embeds into a concrete plugin type to satisfy Plugin without every
// implementation repeating the same accessor.
type Base struct {
	H types.PluginHeader
}

// Header returns the embedded header.
func (b Base) Header() types.PluginHeader { return b.H }
