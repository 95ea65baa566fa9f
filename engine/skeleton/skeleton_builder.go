package skeleton

import "github.com/go-gl/mathgl/mgl32"

// skeletonBuilder accumulates joints before validation.
type skeletonBuilder struct {
	joints []Joint
}

// SkeletonBuilderOption is a functional option used to describe joints for NewSkeleton.
type SkeletonBuilderOption func(*skeletonBuilder)

// NewSkeleton builds an immutable Skeleton from the joints described by the options, in order.
// Parent indices must refer to an earlier joint (or be negative for roots).
//
// Parameters:
//   - options: variadic joint options, applied in order
//
// Returns:
//   - *Skeleton: the validated skeleton
//   - error: ErrEmptySkeleton, ErrParentOrder or ErrDuplicateName on invalid input
func NewSkeleton(options ...SkeletonBuilderOption) (*Skeleton, error) {
	b := &skeletonBuilder{}
	for _, opt := range options {
		opt(b)
	}
	return newSkeleton(b.joints)
}

// WithJoint appends a single joint.
//
// Parameters:
//   - name: the joint name (may be empty)
//   - parentIndex: index of an earlier joint, or -1 for a root
//   - inverseBindPose: the joint's inverse bind pose matrix
//
// Returns:
//   - SkeletonBuilderOption: a function that appends the joint
func WithJoint(name string, parentIndex int, inverseBindPose mgl32.Mat4) SkeletonBuilderOption {
	return func(b *skeletonBuilder) {
		b.joints = append(b.joints, Joint{Name: name, ParentIndex: parentIndex, InverseBindPose: inverseBindPose})
	}
}

// WithJoints appends a prepared joint list, typically produced by a loader.
//
// Parameters:
//   - joints: joints in parent-before-child order
//
// Returns:
//   - SkeletonBuilderOption: a function that appends the joints
func WithJoints(joints []Joint) SkeletonBuilderOption {
	return func(b *skeletonBuilder) {
		b.joints = append(b.joints, joints...)
	}
}
