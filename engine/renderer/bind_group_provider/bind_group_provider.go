// Package bind_group_provider holds the GPU buffers that back skinning data and stages writes to them
// until the render thread flushes them to a wgpu queue.
package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed.

	// buffers holds the storage buffers for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// bufferSizes holds the allocated byte size of each storage buffer.
	bufferSizes map[int]uint64
	// vertexBuffers holds the per-vertex stream buffers for this provider, keyed by vertex buffer slot.
	vertexBuffers map[int]*wgpu.Buffer
	// vertexBufferSizes holds the allocated byte size of each vertex stream buffer.
	vertexBufferSizes map[int]uint64
}

// BindGroupProvider defines the interface for components that own GPU buffers for skinning.
// A skinned mesh's constants live in storage buffers keyed by binding index, while its joint index
// and weight streams live in vertex buffers keyed by slot.
//
// Usage pattern:
//  1. A SkinningUploader creates one provider per mesh it stages data for
//  2. On the render thread, flushing the uploader creates or grows the buffers and writes the data
//  3. The renderer binds Buffer(binding) in its own bind group and draws after Apply
//  4. Releasing the uploader releases every provider it created
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Buffer returns the storage buffer for a binding, or nil if not allocated.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// BufferSize returns the allocated size in bytes of the storage buffer for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size in bytes, 0 if not allocated
	BufferSize(binding int) uint64

	// VertexBuffer returns the vertex stream buffer for a slot, or nil if not allocated.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer or nil
	VertexBuffer(slot int) *wgpu.Buffer

	// VertexBufferSize returns the allocated size in bytes of the vertex buffer for a slot.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//
	// Returns:
	//   - uint64: the size in bytes, 0 if not allocated
	VertexBufferSize(slot int) uint64

	// SetBuffer replaces the storage buffer for a binding, releasing the previous one.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the new buffer
	//   - size: the buffer size in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// SetVertexBuffer replaces the vertex stream buffer for a slot, releasing the previous one.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//   - buf: the new buffer
	//   - size: the buffer size in bytes
	SetVertexBuffer(slot int, buf *wgpu.Buffer, size uint64)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new, empty BindGroupProvider.
//
// Parameters:
//   - label: the debug label used for every GPU resource this provider creates
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{
		label:             label,
		buffers:           make(map[int]*wgpu.Buffer),
		bufferSizes:       make(map[int]uint64),
		vertexBuffers:     make(map[int]*wgpu.Buffer),
		vertexBufferSizes: make(map[int]uint64),
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	return p.bufferSizes[binding]
}

func (p *bindGroupProvider) VertexBuffer(slot int) *wgpu.Buffer {
	return p.vertexBuffers[slot]
}

func (p *bindGroupProvider) VertexBufferSize(slot int) uint64 {
	return p.vertexBufferSizes[slot]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
	p.bufferSizes[binding] = size
}

func (p *bindGroupProvider) SetVertexBuffer(slot int, buf *wgpu.Buffer, size uint64) {
	if old := p.vertexBuffers[slot]; old != nil && old != buf {
		old.Release()
	}
	p.vertexBuffers[slot] = buf
	p.vertexBufferSizes[slot] = size
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.bufferSizes, i)
	}
	for i, buf := range p.vertexBuffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.vertexBuffers, i)
		delete(p.vertexBufferSizes, i)
	}
}
