// Package skeleton describes the static joint hierarchy of a rig.
//
// A Skeleton is built once at rig-load time and never mutated afterwards, so a single
// instance can be shared by any number of animators without locking.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrEmptySkeleton is returned when a skeleton is built without joints.
	ErrEmptySkeleton = errors.New("skeleton: no joints")

	// ErrParentOrder is returned when a joint's parent index is not smaller than its own index.
	ErrParentOrder = errors.New("skeleton: parent must precede child")

	// ErrDuplicateName is returned when two joints share a non-empty name.
	ErrDuplicateName = errors.New("skeleton: duplicate joint name")
)

// Joint is a single entry of the joint hierarchy.
type Joint struct {
	// Name identifies the joint for lookups and animation targeting. May be empty.
	Name string

	// ParentIndex is the index of the parent joint, or -1 for roots.
	// It is always smaller than the joint's own index.
	ParentIndex int

	// InverseBindPose maps bind-pose model space into joint-local space (column-major).
	InverseBindPose mgl32.Mat4
}

// Skeleton is an immutable, topologically ordered sequence of joints.
type Skeleton struct {
	joints      []Joint
	nameToIndex map[string]int
	roots       []int
}

// newSkeleton validates the joint list and builds the immutable skeleton.
func newSkeleton(joints []Joint) (*Skeleton, error) {
	if len(joints) == 0 {
		return nil, ErrEmptySkeleton
	}

	s := &Skeleton{
		joints:      make([]Joint, len(joints)),
		nameToIndex: make(map[string]int, len(joints)),
	}
	copy(s.joints, joints)

	for i, j := range s.joints {
		if j.ParentIndex >= i {
			return nil, fmt.Errorf("joint %d (%q) has parent %d: %w", i, j.Name, j.ParentIndex, ErrParentOrder)
		}
		if j.ParentIndex < 0 {
			s.joints[i].ParentIndex = -1
			s.roots = append(s.roots, i)
		}
		if j.Name == "" {
			continue
		}
		if _, ok := s.nameToIndex[j.Name]; ok {
			return nil, fmt.Errorf("joint %d (%q): %w", i, j.Name, ErrDuplicateName)
		}
		s.nameToIndex[j.Name] = i
	}

	return s, nil
}

// NumJoints returns the number of joints in the skeleton.
func (s *Skeleton) NumJoints() int {
	return len(s.joints)
}

// Joint returns a copy of the joint at index i.
func (s *Skeleton) Joint(i int) Joint {
	return s.joints[i]
}

// ParentIndex returns the parent of joint i, or -1 for a root.
func (s *Skeleton) ParentIndex(i int) int {
	return s.joints[i].ParentIndex
}

// InverseBindPose returns the inverse bind pose matrix of joint i.
func (s *Skeleton) InverseBindPose(i int) mgl32.Mat4 {
	return s.joints[i].InverseBindPose
}

// JointIndex looks up a joint by name.
//
// Parameters:
//   - name: the joint name
//
// Returns:
//   - int: the joint index, or -1 when absent
//   - bool: true if the joint exists
func (s *Skeleton) JointIndex(name string) (int, bool) {
	i, ok := s.nameToIndex[name]
	if !ok {
		return -1, false
	}
	return i, true
}

// RootIndices returns the indices of every joint without a parent.
func (s *Skeleton) RootIndices() []int {
	out := make([]int, len(s.roots))
	copy(out, s.roots)
	return out
}
