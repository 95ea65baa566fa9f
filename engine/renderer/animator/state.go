package animator

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
)

// State is a pose source the animator can play: a clip, a blend tree node or a transition.
// The animator treats it as opaque and only advances its clock and samples its pose.
type State interface {
	// Name returns the animation name the state was registered under.
	Name() string

	// Advance moves the state's clock forward by dt seconds.
	Advance(dt float32)

	// SetTime sets the state's clock.
	SetTime(t float32)

	// Time returns the state's clock.
	Time() float32

	// Pose samples the state into dst, one entry per joint, and returns it.
	// dst may be nil or short; implementations grow it as needed.
	Pose(dst pose.Pose) (pose.Pose, error)

	// Space reports whether Pose returns parent-relative or model-space joints.
	Space() pose.Space
}

// Transition is a State that blends between two other states and signals completion by
// closing Done. Its Advance moves only the blend progress; the animator advances From and
// To itself, once per frame each, so a state shared by nested transitions keeps real time.
type Transition interface {
	State

	// From returns the state being left, which may itself be a Transition.
	From() State

	// To returns the target state.
	To() State

	// Done is closed once the transition has fully reached its target.
	Done() <-chan struct{}
}

// StateFactory creates the State for one animation, bound to a skeleton. Each animator calls
// its factories lazily and keeps its own states.
type StateFactory func(skel *skeleton.Skeleton) (State, error)

// TransitionFactory creates a Transition from the currently active state to the target.
//
// Parameters:
//   - from: the state being left (possibly another Transition)
//   - to: the target state, already positioned at its start time
//   - absoluteTime: the animator's absolute clock
type TransitionFactory func(from, to State, absoluteTime float32) Transition

// PlaybackState reports what the animator's active node is doing.
type PlaybackState int

const (
	// PlaybackIdle means no animation has been played. The bind pose is used.
	PlaybackIdle PlaybackState = iota

	// PlaybackPlaying means a single state is active.
	PlaybackPlaying

	// PlaybackTransitioning means a Transition is active.
	PlaybackTransitioning
)

// String implements fmt.Stringer.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackIdle:
		return "idle"
	case PlaybackPlaying:
		return "playing"
	case PlaybackTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}
