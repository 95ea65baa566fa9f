package animator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

// gpuSkinningBackend uploads full or condensed matrices through a ConstantUploader.
type gpuSkinningBackend struct {
	uploader ConstantUploader

	// registerIndices caches each mesh's uncondensed per-vertex register offsets.
	registerIndices map[skinning.MeshID][]int
}

var _ skinningBackend = &gpuSkinningBackend{}

// newGPUSkinningBackend creates the GPU backend.
//
// Parameters:
//   - uploader: the constant uploader, may be nil until SetRenderState is called
//
// Returns:
//   - *gpuSkinningBackend: the backend
func newGPUSkinningBackend(uploader ConstantUploader) *gpuSkinningBackend {
	return &gpuSkinningBackend{
		uploader:        uploader,
		registerIndices: make(map[skinning.MeshID][]int),
	}
}

func (b *gpuSkinningBackend) Type() SkinningBackendType {
	return BackendTypeGPU
}

func (b *gpuSkinningBackend) SetRenderState(a *animator, mesh *skinning.MeshSkin, constantOffset, streamOffset int) error {
	if b.uploader == nil {
		return ErrNoUploader
	}

	if a.useCondensed(constantOffset) {
		data, err := a.CondensedMatrices(mesh)
		if err != nil {
			return fmt.Errorf("condensed matrices for mesh %q: %w", mesh.ID(), err)
		}
		b.uploader.SetVertexConstants(constantOffset, data, a.layout.RegisterCount(mesh.NumCondensedJoints()))
		b.uploader.ActivateJointStreams(streamOffset, mesh, mesh.CondensedJointIndices())
		return nil
	}

	data, err := a.GlobalMatrices()
	if err != nil {
		return fmt.Errorf("global matrices for mesh %q: %w", mesh.ID(), err)
	}
	indices, ok := b.registerIndices[mesh.ID()]
	if !ok || len(indices) != len(mesh.JointIndices()) {
		indices = mesh.JointRegisterIndices(a.layout)
		b.registerIndices[mesh.ID()] = indices
	}
	b.uploader.SetVertexConstants(constantOffset, data, a.layout.RegisterCount(a.skel.NumJoints()))
	b.uploader.ActivateJointStreams(streamOffset, mesh, indices)
	return nil
}
