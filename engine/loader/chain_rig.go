package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/clip"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ChainClipWave is the looping clip that swings every joint of a chain rig back and forth.
	ChainClipWave = "wave"

	// ChainClipBend is the static clip that curls the chain into an arc.
	ChainClipBend = "bend"

	chainJointsPerVertex = 2
	chainSegmentLength   = 1
	chainWaveDegrees     = 20
	chainBendDegrees     = 15
)

// ErrChainLength is returned when a chain rig is requested with fewer than one joint.
var ErrChainLength = errors.New("loader: chain rig needs at least one joint")

// NewChainRig builds a procedural rig: a vertical chain of joints one unit apart, a ribbon mesh
// with two vertices per joint, and the ChainClipWave and ChainClipBend clips.
// Benchmarks use it when no asset is available.
//
// Parameters:
//   - name: the rig name, also used as the mesh id prefix
//   - joints: the number of joints in the chain
//
// Returns:
//   - *Rig: the rig
//   - error: ErrChainLength, or a construction error
func NewChainRig(name string, joints int) (*Rig, error) {
	if joints < 1 {
		return nil, ErrChainLength
	}

	skelJoints := make([]skeleton.Joint, joints)
	for i := range skelJoints {
		skelJoints[i] = skeleton.Joint{
			Name:            fmt.Sprintf("%s_%d", name, i),
			ParentIndex:     i - 1,
			InverseBindPose: mgl32.Translate3D(0, -float32(i*chainSegmentLength), 0),
		}
	}
	skel, err := skeleton.NewSkeleton(skeleton.WithJoints(skelJoints))
	if err != nil {
		return nil, fmt.Errorf("chain rig %q: %w", name, err)
	}

	mesh, indices, err := chainMesh(name, joints)
	if err != nil {
		return nil, fmt.Errorf("chain rig %q: %w", name, err)
	}

	return &Rig{
		Name:            name,
		Skeleton:        skel,
		Meshes:          []*skinning.MeshSkin{mesh},
		Indices:         map[skinning.MeshID][]uint32{mesh.ID(): indices},
		Clips:           []*clip.Clip{chainWave(joints), chainBend(joints)},
		JointsPerVertex: chainJointsPerVertex,
	}, nil
}

// chainMesh builds the ribbon: vertices 2i and 2i+1 sit at height i, mostly bound to joint i and
// partly to its parent.
func chainMesh(name string, joints int) (*skinning.MeshSkin, []uint32, error) {
	n := joints * 2
	vertices := make([]float32, n*skinning.VertexStride)
	jointIndices := make([]int, n*chainJointsPerVertex)
	weights := make([]float32, n*chainJointsPerVertex)

	v := 0
	for i := range joints {
		y := float32(i * chainSegmentLength)
		parent := max(i-1, 0)
		for _, x := range []float32{-0.5, 0.5} {
			out := vertices[v*skinning.VertexStride:]
			copy(out[skinning.PositionOffset:], []float32{x, y, 0})
			copy(out[skinning.NormalOffset:], []float32{0, 0, 1})
			copy(out[skinning.TangentOffset:], []float32{1, 0, 0})
			copy(out[skinning.UVOffset:], []float32{x + 0.5, y / float32(max(joints-1, 1))})

			jointIndices[v*chainJointsPerVertex] = i
			jointIndices[v*chainJointsPerVertex+1] = parent
			if i == 0 {
				weights[v*chainJointsPerVertex] = 1
			} else {
				weights[v*chainJointsPerVertex] = 0.75
				weights[v*chainJointsPerVertex+1] = 0.25
			}
			v++
		}
	}

	indices := make([]uint32, 0, max(joints-1, 0)*6)
	for i := 0; i+1 < joints; i++ {
		a, b := uint32(i*2), uint32(i*2+1)
		c, d := a+2, b+2
		indices = append(indices, a, b, d, a, d, c)
	}

	mesh, err := skinning.NewMeshSkin(skinning.MeshID(name+"/0"), vertices, chainJointsPerVertex, jointIndices, weights)
	if err != nil {
		return nil, nil, err
	}
	return mesh, indices, nil
}

func chainWave(joints int) *clip.Clip {
	c := &clip.Clip{Name: ChainClipWave, Duration: 1, Loop: true}
	for i := range joints {
		// Alternate phase so neighbouring joints counter-swing.
		sign := float32(1)
		if i%2 == 1 {
			sign = -1
		}
		swing := mgl32.QuatRotate(mgl32.DegToRad(sign*chainWaveDegrees), mgl32.Vec3{0, 0, 1})
		c.Channels = append(c.Channels, clip.Channel{
			Joint:           i,
			TranslationKeys: chainTranslation(i),
			RotationKeys: []clip.QuatKey{
				{Time: 0, Value: mgl32.QuatIdent()},
				{Time: 0.5, Value: swing},
				{Time: 1, Value: mgl32.QuatIdent()},
			},
		})
	}
	return c
}

func chainBend(joints int) *clip.Clip {
	c := &clip.Clip{Name: ChainClipBend, Duration: 0, Loop: true}
	bend := mgl32.QuatRotate(mgl32.DegToRad(chainBendDegrees), mgl32.Vec3{0, 0, 1})
	for i := range joints {
		c.Channels = append(c.Channels, clip.Channel{
			Joint:           i,
			TranslationKeys: chainTranslation(i),
			RotationKeys:    []clip.QuatKey{{Time: 0, Value: bend}},
		})
	}
	return c
}

// chainTranslation keys joint i at its bind offset from the parent.
func chainTranslation(i int) []clip.VectorKey {
	if i == 0 {
		return []clip.VectorKey{{Time: 0}}
	}
	return []clip.VectorKey{{Time: 0, Value: mgl32.Vec3{0, chainSegmentLength, 0}}}
}
