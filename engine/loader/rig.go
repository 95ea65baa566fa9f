package loader

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/clip"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

// Rig is the CPU-side result of importing a skinned asset: one skeleton, the meshes bound to it
// and every animation clip that targets its joints.
type Rig struct {
	// Name is the asset name, taken from the first scene or the source path.
	Name string

	// Skeleton is the joint hierarchy in parent-before-child order.
	Skeleton *skeleton.Skeleton

	// Meshes are the skinned primitives, one MeshSkin per primitive.
	Meshes []*skinning.MeshSkin

	// Indices holds the triangle list for each mesh, keyed by mesh id.
	Indices map[skinning.MeshID][]uint32

	// Clips are the animations, with channels remapped onto skeleton joint indices.
	Clips []*clip.Clip

	// JointsPerVertex is the influence count shared by every mesh in the rig.
	JointsPerVertex int
}

// Clip finds a clip by name.
//
// Parameters:
//   - name: the clip name
//
// Returns:
//   - *clip.Clip: the clip, or nil if the rig has none by that name
func (r *Rig) Clip(name string) *clip.Clip {
	for _, c := range r.Clips {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// SetLoop sets the looping flag on every clip in the rig.
func (r *Rig) SetLoop(loop bool) {
	for _, c := range r.Clips {
		c.Loop = loop
	}
}

// NewAnimationSet builds an animation set for this rig with every clip registered under its name.
// Extra options are applied after the clips, so callers may add or replace animations.
//
// Parameters:
//   - options: additional AnimationSetOption values (layout, budget, CPU forcing, etc.)
//
// Returns:
//   - *animator.AnimationSet: the configured set
//   - error: error if the set's layout is invalid
func (r *Rig) NewAnimationSet(options ...animator.AnimationSetOption) (*animator.AnimationSet, error) {
	opts := make([]animator.AnimationSetOption, 0, len(r.Clips)+len(options))
	for _, c := range r.Clips {
		opts = append(opts, animator.WithAnimation(c.Name, clip.Factory(c)))
	}
	opts = append(opts, options...)
	return animator.NewAnimationSet(r.JointsPerVertex, opts...)
}
