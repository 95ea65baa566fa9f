package animator

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

// AnimationSetOption is a functional option for configuring an AnimationSet during construction.
type AnimationSetOption func(*AnimationSet)

// WithForceCPU starts the set on CPU skinning when force is true.
//
// Parameters:
//   - force: whether to skip GPU skinning entirely
//
// Returns:
//   - AnimationSetOption: a function that applies the option
func WithForceCPU(force bool) AnimationSetOption {
	return func(s *AnimationSet) {
		if force {
			s.usesCPU.Store(true)
		}
	}
}

// WithConstantLayout sets the constant register layout. It is validated by NewAnimationSet.
//
// Parameters:
//   - layout: the register layout
//
// Returns:
//   - AnimationSetOption: a function that applies the option
func WithConstantLayout(layout skinning.ConstantLayout) AnimationSetOption {
	return func(s *AnimationSet) {
		s.layout = layout
	}
}

// WithBudget sets the GPU register budget.
//
// Parameters:
//   - budget: the register and influence limits
//
// Returns:
//   - AnimationSetOption: a function that applies the option
func WithBudget(budget skinning.Budget) AnimationSetOption {
	return func(s *AnimationSet) {
		s.budget = budget
	}
}

// WithCondenseMode sets the condensation policy.
//
// Parameters:
//   - mode: CondenseAuto, CondenseOn or CondenseOff
//
// Returns:
//   - AnimationSetOption: a function that applies the option
func WithCondenseMode(mode CondenseMode) AnimationSetOption {
	return func(s *AnimationSet) {
		s.condense = mode
	}
}

// WithAnimation registers a state factory during construction.
//
// Parameters:
//   - name: the animation name
//   - factory: creates the animation's State
//
// Returns:
//   - AnimationSetOption: a function that applies the option
func WithAnimation(name string, factory StateFactory) AnimationSetOption {
	return func(s *AnimationSet) {
		s.AddAnimation(name, factory)
	}
}
