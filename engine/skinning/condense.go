package skinning

// CondenseMatrices copies the matrices referenced by a mesh's condensed lookup table into a
// compact buffer, in lookup order. The result holds exactly len(lookup)*MatrixStride scalars
// and is uploaded in place of the full matrix buffer when a skeleton exceeds the register budget.
//
// The lookup table must already exist; callers build it with MeshSkin.CondenseIndexData.
//
// Parameters:
//   - full: the full per-joint matrix buffer from BuildMatrices
//   - lookup: compacted slot -> original joint index
//   - dst: destination buffer (may be nil)
//   - layout: the constant layout providing the matrix stride
//
// Returns:
//   - []float32: the condensed buffer
func CondenseMatrices(full []float32, lookup []int, dst []float32, layout ConstantLayout) []float32 {
	stride := layout.MatrixStride
	size := len(lookup) * stride
	if cap(dst) < size {
		dst = make([]float32, size)
	}
	dst = dst[:size]

	for slot, joint := range lookup {
		src := joint * stride
		copy(dst[slot*stride:(slot+1)*stride], full[src:src+stride])
	}
	return dst
}
