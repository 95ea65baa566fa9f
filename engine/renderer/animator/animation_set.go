package animator

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

// CondenseMode controls whether GPU skinning uploads a mesh's condensed matrix subset.
type CondenseMode int

const (
	// CondenseAuto condenses only when the full matrix set would overflow the register budget.
	CondenseAuto CondenseMode = iota

	// CondenseOn always uploads the condensed subset.
	CondenseOn

	// CondenseOff always uploads every joint matrix.
	CondenseOff
)

// String implements fmt.Stringer.
func (m CondenseMode) String() string {
	switch m {
	case CondenseAuto:
		return "auto"
	case CondenseOn:
		return "on"
	case CondenseOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseCondenseMode parses "auto", "on" or "off". The empty string is CondenseAuto.
//
// Parameters:
//   - s: the mode name
//
// Returns:
//   - CondenseMode: the parsed mode
//   - error: an error if s is not a known mode
func ParseCondenseMode(s string) (CondenseMode, error) {
	switch s {
	case "", "auto":
		return CondenseAuto, nil
	case "on":
		return CondenseOn, nil
	case "off":
		return CondenseOff, nil
	default:
		return CondenseAuto, fmt.Errorf("unknown condense mode %q", s)
	}
}

// AnimationSet is the shared collection of named animations for one rig, plus the skinning
// configuration every animator playing it must honor. A set can be shared by many animators;
// each animator instantiates its own States from the registered factories.
type AnimationSet struct {
	mu        sync.RWMutex
	factories map[string]StateFactory
	names     []string

	jointsPerVertex int
	layout          skinning.ConstantLayout
	budget          skinning.Budget
	condense        CondenseMode

	usesCPU atomic.Bool
}

// NewAnimationSet creates an empty AnimationSet.
//
// Parameters:
//   - jointsPerVertex: the influence count of the meshes this set animates
//   - options: variadic list of AnimationSetOption functions
//
// Returns:
//   - *AnimationSet: the new set
//   - error: an error if the constant layout is invalid
func NewAnimationSet(jointsPerVertex int, options ...AnimationSetOption) (*AnimationSet, error) {
	s := &AnimationSet{
		factories:       make(map[string]StateFactory),
		jointsPerVertex: jointsPerVertex,
		layout:          skinning.DefaultConstantLayout(),
		budget:          skinning.DefaultBudget(),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.layout.Validate(); err != nil {
		return nil, err
	}
	if jointsPerVertex > s.budget.MaxGPUJointsPerVertex {
		s.CancelGPUCompatibility()
	}
	return s, nil
}

// AddAnimation registers a state factory under name. Re-registering a name replaces the
// factory but keeps its original position in AnimationNames.
//
// Parameters:
//   - name: the animation name passed to Animator.Play
//   - factory: creates the animation's State for a skeleton
func (s *AnimationSet) AddAnimation(name string, factory StateFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.factories[name]; !ok {
		s.names = append(s.names, name)
	}
	s.factories[name] = factory
}

// HasAnimation reports whether name is registered.
func (s *AnimationSet) HasAnimation(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[name]
	return ok
}

// AnimationNames returns the registered names in registration order.
func (s *AnimationSet) AnimationNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *AnimationSet) factory(name string) (StateFactory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.factories[name]
	return f, ok
}

// JointsPerVertex returns the mesh influence count.
func (s *AnimationSet) JointsPerVertex() int {
	return s.jointsPerVertex
}

// Layout returns the constant register layout.
func (s *AnimationSet) Layout() skinning.ConstantLayout {
	return s.layout
}

// Budget returns the GPU register budget.
func (s *AnimationSet) Budget() skinning.Budget {
	return s.budget
}

// CondenseMode returns the condensation policy.
func (s *AnimationSet) CondenseMode() CondenseMode {
	return s.condense
}

// UsesCPU reports whether animators playing this set must skin on the CPU.
func (s *AnimationSet) UsesCPU() bool {
	return s.usesCPU.Load()
}

// CancelGPUCompatibility permanently switches the set to CPU skinning.
func (s *AnimationSet) CancelGPUCompatibility() {
	if !s.usesCPU.Swap(true) {
		common.Logger().Warn("gpu skinning cancelled", "jointsPerVertex", s.jointsPerVertex)
	}
}

// TestGPUCompatibility checks whether a pass can still skin this set on the GPU and cancels
// GPU use when it cannot.
//
// Parameters:
//   - usedRegisters: vertex constant registers the pass already consumes
//   - numJoints: the skeleton's joint count
//
// Returns:
//   - bool: true if GPU skinning remains usable
func (s *AnimationSet) TestGPUCompatibility(usedRegisters, numJoints int) bool {
	ok := skinning.GPUCompatible(skinning.CompatibilityQuery{
		UsedRegisters:   usedRegisters,
		NumJoints:       numJoints,
		JointsPerVertex: s.jointsPerVertex,
		Condensed:       s.condense != CondenseOff,
		ForceCPU:        s.UsesCPU(),
	}, s.budget, s.layout)
	if !ok {
		s.CancelGPUCompatibility()
	}
	return ok
}
