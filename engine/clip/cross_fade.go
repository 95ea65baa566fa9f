package clip

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/go-gl/mathgl/mgl32"
)

// CrossFade blends linearly from one state to another over a fixed duration and closes Done
// when the target is fully weighted. It implements animator.Transition.
type CrossFade struct {
	from, to animator.State

	duration, elapsed float32

	fromPose, toPose pose.Pose

	done   chan struct{}
	closed bool
}

var _ animator.Transition = &CrossFade{}

// NewCrossFade creates a cross-fade. A non-positive duration completes immediately.
//
// Parameters:
//   - from: the state being left
//   - to: the target state
//   - duration: the fade length in seconds
//
// Returns:
//   - *CrossFade: the transition
func NewCrossFade(from, to animator.State, duration float32) *CrossFade {
	c := &CrossFade{
		from:     from,
		to:       to,
		duration: duration,
		done:     make(chan struct{}),
	}
	if duration <= 0 {
		c.finish()
	}
	return c
}

// CrossFadeFactory returns an animator.TransitionFactory producing cross-fades of the
// given duration.
//
// Parameters:
//   - duration: the fade length in seconds
//
// Returns:
//   - animator.TransitionFactory: the factory
func CrossFadeFactory(duration float32) animator.TransitionFactory {
	return func(from, to animator.State, _ float32) animator.Transition {
		return NewCrossFade(from, to, duration)
	}
}

func (c *CrossFade) finish() {
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// Weight returns the target's blend weight in [0, 1].
func (c *CrossFade) Weight() float32 {
	if c.duration <= 0 {
		return 1
	}
	return mgl32.Clamp(c.elapsed/c.duration, 0, 1)
}

func (c *CrossFade) Name() string {
	return c.to.Name()
}

// Advance moves the fade only. The animator advances both sides.
func (c *CrossFade) Advance(dt float32) {
	c.elapsed += dt
	if c.elapsed >= c.duration {
		c.finish()
	}
}

func (c *CrossFade) From() animator.State {
	return c.from
}

func (c *CrossFade) To() animator.State {
	return c.to
}

func (c *CrossFade) SetTime(t float32) {
	c.to.SetTime(t)
}

func (c *CrossFade) Time() float32 {
	return c.to.Time()
}

func (c *CrossFade) Space() pose.Space {
	return c.to.Space()
}

func (c *CrossFade) Done() <-chan struct{} {
	return c.done
}

func (c *CrossFade) Pose(dst pose.Pose) (pose.Pose, error) {
	if c.from.Space() != c.to.Space() {
		return dst, fmt.Errorf("%s to %s: %w", c.from.Space(), c.to.Space(), ErrSpaceMismatch)
	}

	var err error
	if c.fromPose, err = c.from.Pose(c.fromPose); err != nil {
		return dst, err
	}
	if c.toPose, err = c.to.Pose(c.toPose); err != nil {
		return dst, err
	}
	if len(c.fromPose) != len(c.toPose) {
		return dst, fmt.Errorf("cross-fade %d to %d joints: %w", len(c.fromPose), len(c.toPose), pose.ErrPoseLength)
	}

	w := c.Weight()
	dst = dst.Resize(len(c.toPose))
	for i := range dst {
		a, b := c.fromPose[i], c.toPose[i]
		if a.Rotation.Dot(b.Rotation) < 0 {
			b.Rotation = b.Rotation.Scale(-1)
		}
		dst[i] = pose.JointPose{
			Rotation:    mgl32.QuatNlerp(a.Rotation, b.Rotation, w),
			Translation: a.Translation.Mul(1 - w).Add(b.Translation.Mul(w)),
		}
	}
	return dst, nil
}
