package skinning

// SkinState is the CPU-path cache for one mesh: a blended vertex buffer plus a dirty flag.
// The buffer is allocated once and overwritten on every invalidated pass.
type SkinState struct {
	mesh     *MeshSkin
	vertices []float32
	dirty    bool
}

// NewSkinState creates the cache for a mesh. It starts dirty so the first read blends.
//
// Parameters:
//   - mesh: the mesh this state skins
//
// Returns:
//   - *SkinState: the new state
func NewSkinState(mesh *MeshSkin) *SkinState {
	v := make([]float32, len(mesh.VertexData()))
	copy(v, mesh.VertexData())
	return &SkinState{mesh: mesh, vertices: v, dirty: true}
}

// Mesh returns the mesh this state skins.
func (s *SkinState) Mesh() *MeshSkin {
	return s.mesh
}

// Dirty reports whether the blended vertices are stale.
func (s *SkinState) Dirty() bool {
	return s.dirty
}

// MarkDirty flags the blended vertices as stale. No work is done until Update.
func (s *SkinState) MarkDirty() {
	s.dirty = true
}

// Vertices returns the blended vertex buffer as of the last Update.
func (s *SkinState) Vertices() []float32 {
	return s.vertices
}

// Update re-blends the mesh when dirty and clears the flag.
//
// Parameters:
//   - matrices: the full per-joint matrix buffer
//   - layout: the constant layout providing the matrix stride
//
// Returns:
//   - bool: true if a blend pass ran
func (s *SkinState) Update(matrices []float32, layout ConstantLayout) bool {
	if !s.dirty {
		return false
	}
	s.vertices = Blend(matrices, s.mesh, s.vertices, layout)
	s.dirty = false
	return true
}
