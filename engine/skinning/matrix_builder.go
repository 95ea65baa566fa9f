package skinning

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
)

// BuildMatrices writes one skinning matrix per joint into dst and returns it.
// Each matrix is R(global[i].Rotation) * InverseBindPose[i] with global[i].Translation added
// to the translation column, stored as 3 rows of 4 scalars at dst[i*MatrixStride:].
// Rotations are converted with the unit-quaternion formula and are not re-normalized.
// dst is only reallocated when it is too short.
//
// Parameters:
//   - skel: the skeleton providing inverse bind poses
//   - global: the model-space pose, one entry per joint
//   - dst: destination buffer (may be nil)
//   - layout: the constant layout providing the matrix stride
//
// Returns:
//   - []float32: the matrix buffer, exactly layout.BufferLen(skel.NumJoints()) long
func BuildMatrices(skel *skeleton.Skeleton, global pose.Pose, dst []float32, layout ConstantLayout) []float32 {
	n := skel.NumJoints()
	size := layout.BufferLen(n)
	if cap(dst) < size {
		dst = make([]float32, size)
	}
	dst = dst[:size]

	for i := 0; i < n; i++ {
		jp := global[i]
		m := jp.Rotation.Mat4().Mul4(skel.InverseBindPose(i))
		m[12] += jp.Translation[0]
		m[13] += jp.Translation[1]
		m[14] += jp.Translation[2]

		// column-major (row r, col c) lives at m[c*4+r]
		o := i * layout.MatrixStride
		dst[o+0], dst[o+1], dst[o+2], dst[o+3] = m[0], m[4], m[8], m[12]
		dst[o+4], dst[o+5], dst[o+6], dst[o+7] = m[1], m[5], m[9], m[13]
		dst[o+8], dst[o+9], dst[o+10], dst[o+11] = m[2], m[6], m[10], m[14]
		for k := MatrixScalars; k < layout.MatrixStride; k++ {
			dst[o+k] = 0
		}
	}
	return dst
}
