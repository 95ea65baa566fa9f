package bind_group_provider

import "github.com/Carmen-Shannon/oxy-skin/engine/skinning"

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a mesh's BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Mesh     skinning.MeshID
	Binding  int
	Offset   uint64
	Data     []byte
}

// End returns the byte offset just past the written range.
func (w BufferWrite) End() uint64 {
	return w.Offset + uint64(len(w.Data))
}

// StreamWrite describes a per-vertex stream upload into a mesh provider's vertex buffer slot.
type StreamWrite struct {
	Provider BindGroupProvider
	Slot     int
	Mesh     skinning.MeshID
	Data     []byte
}
