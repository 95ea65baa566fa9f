package animator

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

// cpuSkinningBackend blends vertices on the CPU and hands them to a VertexSink.
// Joint streams are never activated.
type cpuSkinningBackend struct {
	sink VertexSink
}

var _ skinningBackend = &cpuSkinningBackend{}

func newCPUSkinningBackend(sink VertexSink) *cpuSkinningBackend {
	return &cpuSkinningBackend{sink: sink}
}

func (b *cpuSkinningBackend) Type() SkinningBackendType {
	return BackendTypeCPU
}

func (b *cpuSkinningBackend) SetRenderState(a *animator, mesh *skinning.MeshSkin, _, _ int) error {
	if b.sink == nil {
		return ErrNoVertexSink
	}
	s, err := a.SkinState(mesh)
	if err != nil {
		return err
	}
	b.sink.UpdateVertexData(mesh.ID(), s.Vertices())
	return nil
}
