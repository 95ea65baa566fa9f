package skinning

// Budget describes the vertex-shader limits GPU skinning must fit into.
type Budget struct {
	// MaxVertexRegisters is the number of vertex constant registers available to a pass.
	MaxVertexRegisters int

	// MaxGPUJointsPerVertex is the largest influence count the skinning shader supports.
	MaxGPUJointsPerVertex int
}

// DefaultBudget returns a 128-register, 4-influence budget.
func DefaultBudget() Budget {
	return Budget{MaxVertexRegisters: 128, MaxGPUJointsPerVertex: 4}
}

// CompatibilityQuery carries everything GPUCompatible needs to know about a pass and a rig.
type CompatibilityQuery struct {
	// UsedRegisters is the number of vertex constant registers the pass already consumes.
	UsedRegisters int

	// NumJoints is the skeleton's joint count.
	NumJoints int

	// JointsPerVertex is the mesh influence count.
	JointsPerVertex int

	// Condensed reports whether matrices are uploaded through per-mesh condensation.
	Condensed bool

	// ForceCPU forces the CPU path regardless of the budget.
	ForceCPU bool
}

// GPUCompatible reports whether GPU skinning remains usable for the query. When it returns
// false the caller should fall back to CPU skinning.
//
// Parameters:
//   - q: the pass and rig description
//   - budget: the register and influence limits
//   - layout: the constant layout used to count joint registers
//
// Returns:
//   - bool: true if GPU skinning fits
func GPUCompatible(q CompatibilityQuery, budget Budget, layout ConstantLayout) bool {
	if q.ForceCPU {
		return false
	}
	if q.JointsPerVertex > budget.MaxGPUJointsPerVertex {
		return false
	}
	if q.Condensed {
		return true
	}
	return q.UsedRegisters+layout.RegisterCount(q.NumJoints) <= budget.MaxVertexRegisters
}

// NeedsCondensation reports whether a full matrix upload for numJoints would overflow the budget.
//
// Parameters:
//   - usedRegisters: registers already consumed by the pass
//   - numJoints: the skeleton's joint count
//   - budget: the register limits
//   - layout: the constant layout used to count joint registers
//
// Returns:
//   - bool: true if condensation is required
func NeedsCondensation(usedRegisters, numJoints int, budget Budget, layout ConstantLayout) bool {
	return usedRegisters+layout.RegisterCount(numJoints) > budget.MaxVertexRegisters
}
