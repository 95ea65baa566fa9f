package loader

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
	"github.com/go-gl/mathgl/mgl32"
)

func TestNewChainRig(t *testing.T) {
	if _, err := NewChainRig("empty", 0); !errors.Is(err, ErrChainLength) {
		t.Errorf("NewChainRig(0) error = %v, want ErrChainLength", err)
	}

	rig, err := NewChainRig("chain", 4)
	if err != nil {
		t.Fatalf("NewChainRig: %v", err)
	}
	if got := rig.Skeleton.NumJoints(); got != 4 {
		t.Errorf("NumJoints = %d, want 4", got)
	}
	if len(rig.Meshes) != 1 || rig.Meshes[0].NumVertices() != 8 {
		t.Fatalf("meshes = %d, want one mesh of 8 vertices", len(rig.Meshes))
	}
	if got := len(rig.Indices[rig.Meshes[0].ID()]); got != 18 {
		t.Errorf("index count = %d, want 18", got)
	}
	for _, c := range rig.Clips {
		if err := c.Validate(rig.Skeleton.NumJoints()); err != nil {
			t.Errorf("clip %q: %v", c.Name, err)
		}
	}
}

func TestChainRigClips(t *testing.T) {
	rig, err := NewChainRig("chain", 3)
	if err != nil {
		t.Fatalf("NewChainRig: %v", err)
	}
	set, err := rig.NewAnimationSet()
	if err != nil {
		t.Fatalf("NewAnimationSet: %v", err)
	}

	t.Run("wave starts at bind pose", func(t *testing.T) {
		a, err := animator.NewAnimator(rig.Skeleton, set, animator.WithInitialAnimation(ChainClipWave))
		if err != nil {
			t.Fatalf("NewAnimator: %v", err)
		}
		matrices, err := a.GlobalMatrices()
		if err != nil {
			t.Fatalf("GlobalMatrices: %v", err)
		}
		identity := []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0}
		for j := range rig.Skeleton.NumJoints() {
			for k, v := range identity {
				if got := matrices[j*skinning.MatrixScalars+k]; mgl32.Abs(got-v) > eps {
					t.Fatalf("joint %d matrix = %v, want identity", j, matrices[j*skinning.MatrixScalars:(j+1)*skinning.MatrixScalars])
				}
			}
		}
	})

	t.Run("bend curls toward negative x", func(t *testing.T) {
		a, err := animator.NewAnimator(rig.Skeleton, set, animator.WithInitialAnimation(ChainClipBend))
		if err != nil {
			t.Fatalf("NewAnimator: %v", err)
		}
		global, err := a.GlobalPose()
		if err != nil {
			t.Fatalf("GlobalPose: %v", err)
		}
		tip := global[2].Translation
		if tip.X() >= 0 || tip.Y() <= 0 {
			t.Errorf("tip = %v, want x < 0 and y > 0", tip)
		}
		if l := tip.Len(); mgl32.Abs(l-2) < eps {
			t.Errorf("tip distance = %v, want the chain shortened by bending", l)
		}
	})
}
