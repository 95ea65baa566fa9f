package clip

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
)

// ClipState plays a Clip against a skeleton. It implements animator.State.
type ClipState struct {
	clip  *Clip
	bind  pose.Pose
	time  float32
	speed float32
}

var _ animator.State = &ClipState{}

// NewClipState validates the clip against the skeleton and creates a state at time 0.
//
// Parameters:
//   - c: the clip to play
//   - skel: the skeleton the clip animates
//
// Returns:
//   - *ClipState: the new state
//   - error: an error if the clip targets joints the skeleton does not have
func NewClipState(c *Clip, skel *skeleton.Skeleton) (*ClipState, error) {
	if err := c.Validate(skel.NumJoints()); err != nil {
		return nil, err
	}
	return &ClipState{
		clip:  c,
		bind:  pose.BindLocalPose(skel, nil),
		speed: 1,
	}, nil
}

// Factory returns an animator.StateFactory that creates ClipStates for c.
//
// Parameters:
//   - c: the clip
//
// Returns:
//   - animator.StateFactory: the factory
func Factory(c *Clip) animator.StateFactory {
	return func(skel *skeleton.Skeleton) (animator.State, error) {
		return NewClipState(c, skel)
	}
}

// Clip returns the clip being played.
func (s *ClipState) Clip() *Clip {
	return s.clip
}

// SetSpeed sets the playback speed multiplier (1 = normal, 0.5 = half speed).
func (s *ClipState) SetSpeed(speed float32) {
	s.speed = speed
}

func (s *ClipState) Name() string {
	return s.clip.Name
}

func (s *ClipState) Advance(dt float32) {
	s.time += dt * s.speed
}

func (s *ClipState) SetTime(t float32) {
	s.time = t
}

func (s *ClipState) Time() float32 {
	return s.time
}

func (s *ClipState) Pose(dst pose.Pose) (pose.Pose, error) {
	return s.clip.Sample(s.bind, s.time, dst), nil
}

func (s *ClipState) Space() pose.Space {
	return pose.SpaceLocal
}
