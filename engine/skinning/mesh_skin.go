package skinning

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/common"
)

// ErrMeshData is returned when a mesh's vertex or joint buffers have inconsistent sizes.
var ErrMeshData = errors.New("skinning: inconsistent mesh data")

// Interleaved vertex record layout shared by raw and blended vertex buffers.
const (
	PositionOffset  = 0
	NormalOffset    = 3
	TangentOffset   = 6
	UVOffset        = 9
	SecondaryOffset = 11

	// VertexStride is the number of floats per vertex record.
	VertexStride = 13
)

// MeshID is a stable identifier for a mesh. Per-mesh caches are keyed by it rather than by
// pointer identity.
type MeshID string

// MeshSkin is the mesh-owned skin data: raw vertices plus per-vertex joint influences.
// It also caches the condensed joint lookup used by the GPU path for large skeletons.
type MeshSkin struct {
	id              MeshID
	vertexData      []float32
	jointsPerVertex int
	jointIndices    []int
	jointWeights    []float32

	condensedLookup  []int
	condensedIndices []int

	// generation counts condensed lookup rebuilds so cached copies can detect a stale table.
	generation uint64
}

// NewMeshSkin validates and wraps a mesh's skin data. The slices are retained, not copied.
//
// Parameters:
//   - id: stable mesh identifier
//   - vertexData: interleaved vertices, VertexStride floats each
//   - jointsPerVertex: maximum influences per vertex
//   - jointIndices: numVertices*jointsPerVertex joint indices
//   - jointWeights: numVertices*jointsPerVertex weights; a weight <= 0 ends a vertex's list
//
// Returns:
//   - *MeshSkin: the mesh skin
//   - error: an error wrapping ErrMeshData on size mismatch
func NewMeshSkin(id MeshID, vertexData []float32, jointsPerVertex int, jointIndices []int, jointWeights []float32) (*MeshSkin, error) {
	if jointsPerVertex <= 0 {
		return nil, fmt.Errorf("mesh %q: joints per vertex %d: %w", id, jointsPerVertex, ErrMeshData)
	}
	if len(vertexData)%VertexStride != 0 {
		return nil, fmt.Errorf("mesh %q: %d floats is not a multiple of stride %d: %w", id, len(vertexData), VertexStride, ErrMeshData)
	}
	m := &MeshSkin{
		id:              id,
		vertexData:      vertexData,
		jointsPerVertex: jointsPerVertex,
	}
	if err := m.SetJointData(jointIndices, jointWeights); err != nil {
		return nil, err
	}
	return m, nil
}

// ID returns the mesh identifier.
func (m *MeshSkin) ID() MeshID {
	return m.id
}

// NumVertices returns the number of vertex records.
func (m *MeshSkin) NumVertices() int {
	return len(m.vertexData) / VertexStride
}

// VertexData returns the raw, unskinned vertex buffer.
func (m *MeshSkin) VertexData() []float32 {
	return m.vertexData
}

// JointsPerVertex returns the maximum number of influences per vertex.
func (m *MeshSkin) JointsPerVertex() int {
	return m.jointsPerVertex
}

// JointIndices returns the per-vertex joint indices.
func (m *MeshSkin) JointIndices() []int {
	return m.jointIndices
}

// JointWeights returns the per-vertex joint weights.
func (m *MeshSkin) JointWeights() []float32 {
	return m.jointWeights
}

// SetJointData replaces the joint influences. The condensed lookup is dropped because the
// mesh's joint usage may have changed; it is rebuilt on the next condensation request.
//
// Parameters:
//   - jointIndices: numVertices*jointsPerVertex joint indices
//   - jointWeights: numVertices*jointsPerVertex weights
//
// Returns:
//   - error: an error wrapping ErrMeshData on size mismatch
func (m *MeshSkin) SetJointData(jointIndices []int, jointWeights []float32) error {
	want := m.NumVertices() * m.jointsPerVertex
	if len(jointIndices) != want || len(jointWeights) != want {
		return fmt.Errorf("mesh %q: %d indices / %d weights for %d influences: %w", m.id, len(jointIndices), len(jointWeights), want, ErrMeshData)
	}
	m.jointIndices = jointIndices
	m.jointWeights = jointWeights
	m.condensedLookup = nil
	m.condensedIndices = nil
	return nil
}

// CondenseIndexData builds the compacted joint lookup for this mesh. Every distinct joint
// index the mesh uses gets a slot in first-use order. The per-vertex indices are re-encoded as
// slot register offsets (slot*RegistersPerJoint) for the vertex shader.
//
// Parameters:
//   - layout: the constant layout used for register encoding
func (m *MeshSkin) CondenseIndexData(layout ConstantLayout) {
	slots := make(map[int]int)
	lookup := make([]int, 0, 16)
	indices := make([]int, len(m.jointIndices))

	for i, joint := range m.jointIndices {
		slot, ok := slots[joint]
		if !ok {
			slot = len(lookup)
			slots[joint] = slot
			lookup = append(lookup, joint)
		}
		indices[i] = slot * layout.RegistersPerJoint
	}

	m.condensedLookup = lookup
	m.condensedIndices = indices
	m.generation++
	common.Logger().Debug("condensed joint indices", "mesh", m.id, "joints", len(lookup))
}

// NumCondensedJoints returns the number of slots in the condensed lookup, or 0 when it has
// not been built yet.
func (m *MeshSkin) NumCondensedJoints() int {
	return len(m.condensedLookup)
}

// CondensedGeneration returns how many times the condensed lookup has been built. A change
// means matrices condensed against an earlier lookup are out of date.
func (m *MeshSkin) CondensedGeneration() uint64 {
	return m.generation
}

// CondensedLookup returns the compacted slot -> original joint index table.
func (m *MeshSkin) CondensedLookup() []int {
	return m.condensedLookup
}

// CondensedJointIndices returns the per-vertex indices re-encoded as condensed register offsets.
func (m *MeshSkin) CondensedJointIndices() []int {
	return m.condensedIndices
}

// JointRegisterIndices returns the per-vertex joint indices encoded as register offsets for
// the uncondensed GPU path.
//
// Parameters:
//   - layout: the constant layout used for register encoding
//
// Returns:
//   - []int: a new slice of register offsets
func (m *MeshSkin) JointRegisterIndices(layout ConstantLayout) []int {
	out := make([]int, len(m.jointIndices))
	for i, j := range m.jointIndices {
		out[i] = j * layout.RegistersPerJoint
	}
	return out
}
