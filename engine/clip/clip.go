// Package clip provides keyframe animation clips and the pose sources that play them.
package clip

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrUnsortedKeys is returned when a channel's keyframes are not in ascending time order.
	ErrUnsortedKeys = errors.New("clip: keyframes not sorted by time")

	// ErrJointRange is returned when a channel targets a joint the skeleton does not have.
	ErrJointRange = errors.New("clip: channel joint out of range")

	// ErrSpaceMismatch is returned when a cross-fade blends poses from different spaces.
	ErrSpaceMismatch = errors.New("clip: cross-fade between different pose spaces")
)

// VectorKey stores a translation at a specific time.
type VectorKey struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the translation at this keyframe.
	Value mgl32.Vec3
}

// QuatKey stores a rotation at a specific time.
type QuatKey struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the unit quaternion at this keyframe.
	Value mgl32.Quat
}

// Channel contains the keyframes for a single joint.
type Channel struct {
	// Joint is the skeleton index this channel animates.
	Joint int

	// TranslationKeys are parent-relative translation keyframes.
	TranslationKeys []VectorKey

	// RotationKeys are parent-relative rotation keyframes.
	RotationKeys []QuatKey
}

// Clip is a single named animation (walk, run, attack, etc.).
type Clip struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in seconds.
	Duration float32

	// Loop wraps playback time around Duration instead of clamping at the last frame.
	Loop bool

	// Channels contains animation data for each animated joint.
	Channels []Channel
}

// Validate checks that every channel targets a joint below numJoints and that keyframes are
// sorted by time.
//
// Parameters:
//   - numJoints: the skeleton's joint count
//
// Returns:
//   - error: an error wrapping ErrJointRange or ErrUnsortedKeys, or nil
func (c *Clip) Validate(numJoints int) error {
	for i, ch := range c.Channels {
		if ch.Joint < 0 || ch.Joint >= numJoints {
			return fmt.Errorf("clip %q channel %d targets joint %d of %d: %w", c.Name, i, ch.Joint, numJoints, ErrJointRange)
		}
		for k := 1; k < len(ch.TranslationKeys); k++ {
			if ch.TranslationKeys[k].Time < ch.TranslationKeys[k-1].Time {
				return fmt.Errorf("clip %q channel %d translation key %d: %w", c.Name, i, k, ErrUnsortedKeys)
			}
		}
		for k := 1; k < len(ch.RotationKeys); k++ {
			if ch.RotationKeys[k].Time < ch.RotationKeys[k-1].Time {
				return fmt.Errorf("clip %q channel %d rotation key %d: %w", c.Name, i, k, ErrUnsortedKeys)
			}
		}
	}
	return nil
}

// LocalTime maps a playback clock onto the clip's timeline, wrapping for looping clips and
// clamping otherwise.
//
// Parameters:
//   - t: the playback time in seconds
//
// Returns:
//   - float32: a time in [0, Duration]
func (c *Clip) LocalTime(t float32) float32 {
	if c.Duration <= 0 {
		return 0
	}
	if c.Loop {
		t = float32(math.Mod(float64(t), float64(c.Duration)))
		if t < 0 {
			t += c.Duration
		}
		return t
	}
	return mgl32.Clamp(t, 0, c.Duration)
}

// Sample writes the clip's local pose at time t into dst. Joints without a channel, and
// channels without keys for a component, keep the corresponding bind value.
//
// Parameters:
//   - bind: the local bind pose, one entry per joint
//   - t: the playback time in seconds
//   - dst: destination storage (may be nil)
//
// Returns:
//   - pose.Pose: the sampled local pose
func (c *Clip) Sample(bind pose.Pose, t float32, dst pose.Pose) pose.Pose {
	dst = dst.Resize(len(bind))
	copy(dst, bind)

	lt := c.LocalTime(t)
	for _, ch := range c.Channels {
		jp := &dst[ch.Joint]
		if len(ch.TranslationKeys) > 0 {
			jp.Translation = sampleVector(ch.TranslationKeys, lt)
		}
		if len(ch.RotationKeys) > 0 {
			jp.Rotation = sampleQuat(ch.RotationKeys, lt)
		}
	}
	return dst
}

// keyInterval returns the keys bracketing t and the blend factor between them.
func keyInterval(n int, t float32, at func(int) float32) (int, int, float32) {
	next := sort.Search(n, func(i int) bool { return at(i) > t })
	switch {
	case next == 0:
		return 0, 0, 0
	case next == n:
		return n - 1, n - 1, 0
	}
	prev := next - 1
	span := at(next) - at(prev)
	if span <= 0 {
		return next, next, 0
	}
	return prev, next, (t - at(prev)) / span
}

func sampleVector(keys []VectorKey, t float32) mgl32.Vec3 {
	a, b, f := keyInterval(len(keys), t, func(i int) float32 { return keys[i].Time })
	if a == b {
		return keys[a].Value
	}
	return keys[a].Value.Mul(1 - f).Add(keys[b].Value.Mul(f))
}

func sampleQuat(keys []QuatKey, t float32) mgl32.Quat {
	a, b, f := keyInterval(len(keys), t, func(i int) float32 { return keys[i].Time })
	if a == b {
		return keys[a].Value
	}
	from, to := keys[a].Value, keys[b].Value
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return mgl32.QuatSlerp(from, to, f)
}
