package pose

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Compose combines a parent's model-space pose with a child's parent-relative pose.
// Rotations use the Hamilton product with the parent on the left. The child translation is
// rotated by the parent rotation and offset by the parent translation.
//
// Parameters:
//   - parent: the parent's global pose
//   - child: the child's local pose
//
// Returns:
//   - JointPose: the child's global pose
func Compose(parent, child JointPose) JointPose {
	return JointPose{
		Rotation:    parent.Rotation.Mul(child.Rotation),
		Translation: parent.Rotation.Rotate(child.Translation).Add(parent.Translation),
	}
}

// ComposeGlobal converts a local pose into a global pose in a single ascending pass.
// Parents always have smaller indices than their children, so global[parent] is final by the
// time joint i reads it. The global storage is reused and only grown when it is too short.
//
// Parameters:
//   - skel: the skeleton describing the hierarchy
//   - local: the parent-relative pose, one entry per joint
//   - global: destination storage (may be nil)
//
// Returns:
//   - Pose: the global pose, sharing storage with global when possible
//   - error: ErrPoseLength when local does not match the skeleton
func ComposeGlobal(skel *skeleton.Skeleton, local, global Pose) (Pose, error) {
	n := skel.NumJoints()
	if len(local) != n {
		return global, fmt.Errorf("local pose has %d entries for %d joints: %w", len(local), n, ErrPoseLength)
	}

	global = global.Resize(n)
	for i := 0; i < n; i++ {
		parent := skel.ParentIndex(i)
		if parent < 0 {
			global[i] = local[i]
			continue
		}
		global[i] = Compose(global[parent], local[i])
	}
	return global, nil
}

// CopyGlobal copies a pose that is already in model space into global storage.
//
// Parameters:
//   - skel: the skeleton, used for the length check
//   - model: the model-space pose
//   - global: destination storage (may be nil)
//
// Returns:
//   - Pose: the copied pose
//   - error: ErrPoseLength when model does not match the skeleton
func CopyGlobal(skel *skeleton.Skeleton, model, global Pose) (Pose, error) {
	n := skel.NumJoints()
	if len(model) != n {
		return global, fmt.Errorf("model pose has %d entries for %d joints: %w", len(model), n, ErrPoseLength)
	}
	global = global.Resize(n)
	copy(global, model)
	return global, nil
}

// BindPose derives the model-space bind pose from the skeleton's inverse bind poses.
// Inverse bind poses are assumed to be rigid, so any scale is folded into the rotation.
//
// Parameters:
//   - skel: the skeleton
//   - dst: destination storage (may be nil)
//
// Returns:
//   - Pose: the model-space bind pose
func BindPose(skel *skeleton.Skeleton, dst Pose) Pose {
	n := skel.NumJoints()
	dst = dst.Resize(n)
	for i := 0; i < n; i++ {
		bind := skel.InverseBindPose(i).Inv()
		dst[i] = JointPose{
			Rotation:    mgl32.Mat4ToQuat(bind).Normalize(),
			Translation: bind.Col(3).Vec3(),
		}
	}
	return dst
}

// BindLocalPose derives the parent-relative bind pose. Composing it with ComposeGlobal
// reproduces BindPose.
//
// Parameters:
//   - skel: the skeleton
//   - dst: destination storage (may be nil)
//
// Returns:
//   - Pose: the local bind pose
func BindLocalPose(skel *skeleton.Skeleton, dst Pose) Pose {
	global := BindPose(skel, nil)
	n := skel.NumJoints()
	dst = dst.Resize(n)
	for i := 0; i < n; i++ {
		parent := skel.ParentIndex(i)
		if parent < 0 {
			dst[i] = global[i]
			continue
		}
		inv := global[parent].Rotation.Conjugate()
		dst[i] = JointPose{
			Rotation:    inv.Mul(global[i].Rotation),
			Translation: inv.Rotate(global[i].Translation.Sub(global[parent].Translation)),
		}
	}
	return dst
}
