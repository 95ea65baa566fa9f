package skeleton

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewSkeleton(t *testing.T) {
	s, err := NewSkeleton(
		WithJoint("root", -1, mgl32.Ident4()),
		WithJoint("spine", 0, mgl32.Translate3D(0, -1, 0)),
		WithJoint("head", 1, mgl32.Translate3D(0, -2, 0)),
		WithJoint("prop", -7, mgl32.Ident4()),
	)
	if err != nil {
		t.Fatalf("NewSkeleton: %v", err)
	}
	if s.NumJoints() != 4 {
		t.Fatalf("NumJoints = %d, want 4", s.NumJoints())
	}
	if s.ParentIndex(2) != 1 {
		t.Errorf("ParentIndex(2) = %d, want 1", s.ParentIndex(2))
	}
	if s.ParentIndex(3) != -1 {
		t.Errorf("negative parents should normalize to -1, got %d", s.ParentIndex(3))
	}
	if i, ok := s.JointIndex("head"); !ok || i != 2 {
		t.Errorf("JointIndex(head) = %d, %v", i, ok)
	}
	if _, ok := s.JointIndex("tail"); ok {
		t.Error("JointIndex(tail) should not exist")
	}
	if got := s.InverseBindPose(1); got != mgl32.Translate3D(0, -1, 0) {
		t.Errorf("InverseBindPose(1) = %v", got)
	}
	roots := s.RootIndices()
	if len(roots) != 2 || roots[0] != 0 || roots[1] != 3 {
		t.Errorf("RootIndices = %v, want [0 3]", roots)
	}
}

func TestNewSkeletonErrors(t *testing.T) {
	tests := []struct {
		name string
		opts []SkeletonBuilderOption
		want error
	}{
		{"empty", nil, ErrEmptySkeleton},
		{"self parent", []SkeletonBuilderOption{WithJoint("a", 0, mgl32.Ident4())}, ErrParentOrder},
		{"forward parent", []SkeletonBuilderOption{
			WithJoint("a", -1, mgl32.Ident4()),
			WithJoint("b", 2, mgl32.Ident4()),
			WithJoint("c", 0, mgl32.Ident4()),
		}, ErrParentOrder},
		{"duplicate", []SkeletonBuilderOption{
			WithJoint("a", -1, mgl32.Ident4()),
			WithJoint("a", 0, mgl32.Ident4()),
		}, ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSkeleton(tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSkeletonIsolatedFromInput(t *testing.T) {
	joints := []Joint{{Name: "a", ParentIndex: -1, InverseBindPose: mgl32.Ident4()}}
	s, err := NewSkeleton(WithJoints(joints))
	if err != nil {
		t.Fatal(err)
	}
	joints[0].Name = "mutated"
	if s.Joint(0).Name != "a" {
		t.Error("skeleton must not alias the caller's joint slice")
	}
}
