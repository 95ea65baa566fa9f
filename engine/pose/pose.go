// Package pose holds per-joint rotation/translation poses and the hierarchical composer that
// turns a parent-relative pose into a model-space one.
package pose

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrPoseLength is returned when a pose does not have one entry per skeleton joint.
var ErrPoseLength = errors.New("pose: length does not match joint count")

// Space identifies the coordinate space a pose is expressed in.
type Space int

const (
	// SpaceLocal poses are relative to each joint's parent (or model space for roots).
	SpaceLocal Space = iota

	// SpaceModel poses are already expressed in model space and skip composition.
	SpaceModel
)

// String implements fmt.Stringer.
func (s Space) String() string {
	switch s {
	case SpaceLocal:
		return "local"
	case SpaceModel:
		return "model"
	default:
		return "unknown"
	}
}

// JointPose is the rotation and translation of a single joint.
type JointPose struct {
	// Rotation is a unit quaternion. It is trusted to be normalized.
	Rotation mgl32.Quat

	// Translation is the joint origin offset.
	Translation mgl32.Vec3
}

// IdentityJointPose returns the identity rotation with zero translation.
func IdentityJointPose() JointPose {
	return JointPose{Rotation: mgl32.QuatIdent()}
}

// Pose is an index-aligned list of joint poses, one per skeleton joint.
// The same type carries local (source) poses and global poses.
type Pose []JointPose

// NewPose allocates a pose of n identity entries.
//
// Parameters:
//   - n: the number of joints
//
// Returns:
//   - Pose: the identity pose
func NewPose(n int) Pose {
	p := make(Pose, n)
	for i := range p {
		p[i] = IdentityJointPose()
	}
	return p
}

// Resize returns p with exactly n entries. Existing entries are kept and any new slots are
// set to the identity pose. Storage is reused when it has enough capacity.
//
// Parameters:
//   - n: the required length
//
// Returns:
//   - Pose: the resized pose
func (p Pose) Resize(n int) Pose {
	old := len(p)
	if cap(p) >= n {
		p = p[:n]
	} else {
		grown := make(Pose, n)
		copy(grown, p)
		p = grown
	}
	for i := old; i < n; i++ {
		p[i] = IdentityJointPose()
	}
	return p
}
