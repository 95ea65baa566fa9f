package animator

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

// SkinningBackendType identifies how an Animator applies its skinning matrices.
type SkinningBackendType int

const (
	// BackendTypeGPU uploads skinning matrices as vertex-shader constants.
	BackendTypeGPU SkinningBackendType = iota

	// BackendTypeCPU blends vertices on the CPU and pushes them to a VertexSink.
	BackendTypeCPU
)

// String implements fmt.Stringer.
func (t SkinningBackendType) String() string {
	if t == BackendTypeCPU {
		return "cpu"
	}
	return "gpu"
}

// ConstantUploader receives vertex-shader constants and joint vertex streams from the GPU
// backend. Implementations usually stage the data and submit it later on the render thread.
// For each mesh the backend calls SetVertexConstants and then ActivateJointStreams, so the
// constants always belong to the mesh named by the call that follows them.
type ConstantUploader interface {
	// SetVertexConstants uploads numRegisters registers of data starting at registerOffset.
	SetVertexConstants(registerOffset int, data []float32, numRegisters int)

	// ActivateJointStreams binds the mesh's joint index and weight streams starting at
	// streamOffset. indices are the per-vertex joint indices already encoded as register offsets.
	ActivateJointStreams(streamOffset int, mesh *skinning.MeshSkin, indices []int)
}

// VertexSink receives CPU-skinned vertices.
type VertexSink interface {
	// UpdateVertexData replaces the mesh's render vertices. The slice is owned by the animator
	// and is overwritten on the next blend, so implementations must copy or upload it immediately.
	UpdateVertexData(id skinning.MeshID, vertices []float32)
}

// skinningBackend applies an animator's current pose to one mesh's render state.
type skinningBackend interface {
	// Type reports which backend this is.
	Type() SkinningBackendType

	// SetRenderState pushes the skinning data for mesh.
	SetRenderState(a *animator, mesh *skinning.MeshSkin, constantOffset, streamOffset int) error
}
