package skinning

// Blend skins every vertex of mesh on the CPU and writes the result into dst, which is
// returned. Positions are the weighted sum of each influencing joint's affine transform;
// normals and tangents use the linear part only. A weight <= 0 ends that vertex's influence
// list. Fields other than position, normal and tangent are copied from the raw buffer.
//
// Parameters:
//   - matrices: the full per-joint matrix buffer from BuildMatrices
//   - mesh: the mesh skin providing raw vertices and influences
//   - dst: destination buffer, reused when large enough
//   - layout: the constant layout providing the matrix stride
//
// Returns:
//   - []float32: the blended vertex buffer, same length as mesh.VertexData()
func Blend(matrices []float32, mesh *MeshSkin, dst []float32, layout ConstantLayout) []float32 {
	src := mesh.VertexData()
	if cap(dst) < len(src) {
		dst = make([]float32, len(src))
	}
	dst = dst[:len(src)]

	jpv := mesh.JointsPerVertex()
	indices := mesh.JointIndices()
	weights := mesh.JointWeights()
	stride := layout.MatrixStride

	for v, n := 0, mesh.NumVertices(); v < n; v++ {
		base := v * VertexStride
		vertX, vertY, vertZ := src[base+PositionOffset], src[base+PositionOffset+1], src[base+PositionOffset+2]
		normX, normY, normZ := src[base+NormalOffset], src[base+NormalOffset+1], src[base+NormalOffset+2]
		tangX, tangY, tangZ := src[base+TangentOffset], src[base+TangentOffset+1], src[base+TangentOffset+2]

		var vx, vy, vz, nx, ny, nz, tx, ty, tz float32

		j := v * jpv
		for k := 0; k < jpv; k++ {
			weight := weights[j+k]
			if weight <= 0 {
				break
			}
			o := indices[j+k] * stride
			m := matrices[o : o+MatrixScalars : o+MatrixScalars]
			m11, m12, m13, m14 := m[0], m[1], m[2], m[3]
			m21, m22, m23, m24 := m[4], m[5], m[6], m[7]
			m31, m32, m33, m34 := m[8], m[9], m[10], m[11]

			vx += weight * (m11*vertX + m12*vertY + m13*vertZ + m14)
			vy += weight * (m21*vertX + m22*vertY + m23*vertZ + m24)
			vz += weight * (m31*vertX + m32*vertY + m33*vertZ + m34)

			nx += weight * (m11*normX + m12*normY + m13*normZ)
			ny += weight * (m21*normX + m22*normY + m23*normZ)
			nz += weight * (m31*normX + m32*normY + m33*normZ)

			tx += weight * (m11*tangX + m12*tangY + m13*tangZ)
			ty += weight * (m21*tangX + m22*tangY + m23*tangZ)
			tz += weight * (m31*tangX + m32*tangY + m33*tangZ)
		}

		dst[base+PositionOffset], dst[base+PositionOffset+1], dst[base+PositionOffset+2] = vx, vy, vz
		dst[base+NormalOffset], dst[base+NormalOffset+1], dst[base+NormalOffset+2] = nx, ny, nz
		dst[base+TangentOffset], dst[base+TangentOffset+1], dst[base+TangentOffset+2] = tx, ty, tz
		copy(dst[base+UVOffset:base+VertexStride], src[base+UVOffset:base+VertexStride])
	}
	return dst
}
