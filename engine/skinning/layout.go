// Package skinning turns global joint poses into skinning matrices and applies them, either by
// preparing vertex-shader constants (full or condensed) or by blending vertices on the CPU.
package skinning

import (
	"errors"
	"fmt"
)

// ErrInvalidLayout is returned when a ConstantLayout's strides disagree.
var ErrInvalidLayout = errors.New("skinning: invalid constant layout")

// MatrixScalars is the number of scalars in one 3x4 skinning matrix.
const MatrixScalars = 12

// ConstantLayout describes how skinning matrices map onto vertex-shader constant registers.
// Register offsets (GPU index encoding) and flat buffer offsets are both derived from the same
// layout so the two can never drift apart.
type ConstantLayout struct {
	// ScalarsPerRegister is the number of floats in a single constant register.
	ScalarsPerRegister int

	// RegistersPerJoint is the number of constant registers occupied by one joint matrix.
	RegistersPerJoint int

	// MatrixStride is the number of floats between consecutive joints in a matrix buffer.
	MatrixStride int
}

// DefaultConstantLayout returns the 4-wide register, 3-registers-per-joint layout.
func DefaultConstantLayout() ConstantLayout {
	return ConstantLayout{
		ScalarsPerRegister: 4,
		RegistersPerJoint:  3,
		MatrixStride:       MatrixScalars,
	}
}

// Validate checks that MatrixStride equals RegistersPerJoint*ScalarsPerRegister and is wide
// enough to hold a 3x4 matrix.
//
// Returns:
//   - error: an error wrapping ErrInvalidLayout, or nil
func (l ConstantLayout) Validate() error {
	if l.ScalarsPerRegister <= 0 || l.RegistersPerJoint <= 0 {
		return fmt.Errorf("%w: non-positive register sizes %+v", ErrInvalidLayout, l)
	}
	if l.MatrixStride != l.RegistersPerJoint*l.ScalarsPerRegister {
		return fmt.Errorf("%w: stride %d != %d registers x %d scalars", ErrInvalidLayout, l.MatrixStride, l.RegistersPerJoint, l.ScalarsPerRegister)
	}
	if l.MatrixStride < MatrixScalars {
		return fmt.Errorf("%w: stride %d cannot hold a 3x4 matrix", ErrInvalidLayout, l.MatrixStride)
	}
	return nil
}

// RegisterCount returns the number of constant registers needed for n joint matrices.
func (l ConstantLayout) RegisterCount(n int) int {
	return n * l.RegistersPerJoint
}

// BufferLen returns the number of floats needed for n joint matrices.
func (l ConstantLayout) BufferLen(n int) int {
	return n * l.MatrixStride
}

// RegisterToBuffer converts a GPU register index into a flat buffer offset.
func (l ConstantLayout) RegisterToBuffer(register int) int {
	return register * l.ScalarsPerRegister
}
