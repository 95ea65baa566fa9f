package loader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/clip"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	doc *gltf.Document
}

// gltfAnimationExtractor defines the interface for extracting animation data from a decoded glTF document.
// It converts glTF animations into clip.Clip values with rotation and translation keyframes.
//
// The jointMapping parameter maps glTF node indices to joint indices in the topologically sorted skeleton,
// so channels target the right joints after reordering.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	// Scale and morph weight channels are not represented in a clip and are skipped.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//   - jointMapping: maps glTF node index to skeleton joint index
	//
	// Returns:
	//   - *clip.Clip: the extracted clip
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int, jointMapping map[uint32]int) (*clip.Clip, error)

	// ExtractAnimationsForSkeleton extracts every animation with at least one channel targeting a mapped joint.
	//
	// Parameters:
	//   - jointMapping: maps glTF node index to skeleton joint index
	//
	// Returns:
	//   - []*clip.Clip: the relevant clips in document order
	//   - error: error if extraction fails
	ExtractAnimationsForSkeleton(jointMapping map[uint32]int) ([]*clip.Clip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(doc *gltf.Document) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{doc: doc}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int, jointMapping map[uint32]int) (*clip.Clip, error) {
	if animIndex < 0 || animIndex >= len(e.doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}
	anim := e.doc.Animations[animIndex]
	name := common.Coalesce(anim.Name, fmt.Sprintf("animation_%d", animIndex))

	// One clip channel per joint, merging its translation and rotation tracks.
	channelMap := make(map[int]*clip.Channel)
	var maxTime float32

	for i, ch := range anim.Channels {
		if ch.Target.Node == nil || ch.Sampler == nil {
			continue
		}
		joint, ok := jointMapping[*ch.Target.Node]
		if !ok {
			continue
		}
		if ch.Target.Path != gltf.TRSTranslation && ch.Target.Path != gltf.TRSRotation {
			common.Logger().Debug("loader: skipping animation channel", "animation", name, "channel", i, "path", ch.Target.Path)
			continue
		}
		if int(*ch.Sampler) >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, *ch.Sampler)
		}
		sampler := anim.Samplers[*ch.Sampler]
		if sampler.Input == nil || sampler.Output == nil {
			return nil, fmt.Errorf("animation %q channel %d: sampler without input or output", name, i)
		}

		times, err := e.readTimes(*sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", name, i, err)
		}
		if len(times) > 0 && times[len(times)-1] > maxTime {
			maxTime = times[len(times)-1]
		}

		out, ok := channelMap[joint]
		if !ok {
			out = &clip.Channel{Joint: joint}
			channelMap[joint] = out
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation:
			values, err := e.readTranslations(*sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read translations: %w", name, i, err)
			}
			values = gltfSplineValues(values, len(times), sampler.Interpolation)
			keys := make([]clip.VectorKey, min(len(times), len(values)))
			for k := range keys {
				keys[k] = clip.VectorKey{Time: times[k], Value: values[k]}
			}
			out.TranslationKeys = keys

		case gltf.TRSRotation:
			values, err := e.readRotations(*sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read rotations: %w", name, i, err)
			}
			values = gltfSplineValues(values, len(times), sampler.Interpolation)
			keys := make([]clip.QuatKey, min(len(times), len(values)))
			for k := range keys {
				keys[k] = clip.QuatKey{Time: times[k], Value: values[k].Normalize()}
			}
			out.RotationKeys = keys
		}
	}

	channels := make([]clip.Channel, 0, len(channelMap))
	for _, ch := range channelMap {
		channels = append(channels, *ch)
	}
	sort.Slice(channels, func(a, b int) bool { return channels[a].Joint < channels[b].Joint })

	return &clip.Clip{
		Name:     name,
		Duration: maxTime,
		Channels: channels,
	}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimationsForSkeleton(jointMapping map[uint32]int) ([]*clip.Clip, error) {
	var clips []*clip.Clip

	for animIdx, anim := range e.doc.Animations {
		relevant := false
		for _, ch := range anim.Channels {
			if ch.Target.Node == nil {
				continue
			}
			if _, ok := jointMapping[*ch.Target.Node]; ok {
				relevant = true
				break
			}
		}
		if !relevant {
			continue
		}

		c, err := e.ExtractAnimation(animIdx, jointMapping)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", animIdx, err)
		}
		clips = append(clips, c)
	}

	return clips, nil
}

// readTimes reads a scalar float accessor of keyframe timestamps.
func (e *gltfAnimationExtractorImpl) readTimes(accessor uint32) ([]float32, error) {
	data, err := modeler.ReadAccessor(e.doc, e.doc.Accessors[accessor], nil)
	if err != nil {
		return nil, err
	}
	times, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("unsupported timestamp data %T", data)
	}
	return times, nil
}

// readTranslations reads a VEC3 float accessor.
func (e *gltfAnimationExtractorImpl) readTranslations(accessor uint32) ([]mgl32.Vec3, error) {
	data, err := modeler.ReadAccessor(e.doc, e.doc.Accessors[accessor], nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unsupported translation data %T", data)
	}
	out := make([]mgl32.Vec3, len(raw))
	for i, v := range raw {
		out[i] = mgl32.Vec3(v)
	}
	return out, nil
}

// readRotations reads a VEC4 rotation accessor stored as floats or as normalized signed integers.
// glTF stores quaternions as (x, y, z, w).
func (e *gltfAnimationExtractorImpl) readRotations(accessor uint32) ([]mgl32.Quat, error) {
	data, err := modeler.ReadAccessor(e.doc, e.doc.Accessors[accessor], nil)
	if err != nil {
		return nil, err
	}

	var raw [][4]float32
	switch v := data.(type) {
	case [][4]float32:
		raw = v
	case [][4]int8:
		raw = gltfDenormalize(v, 127)
	case [][4]int16:
		raw = gltfDenormalize(v, 32767)
	default:
		return nil, fmt.Errorf("unsupported rotation data %T", data)
	}

	out := make([]mgl32.Quat, len(raw))
	for i, q := range raw {
		out[i] = mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
	}
	return out, nil
}

// gltfDenormalize maps normalized signed integer components back to [-1, 1].
func gltfDenormalize[T int8 | int16](in [][4]T, scale float32) [][4]float32 {
	out := make([][4]float32, len(in))
	for i, v := range in {
		for c := range v {
			out[i][c] = max(float32(v[c])/scale, -1)
		}
	}
	return out
}

// gltfSplineValues drops cubic spline tangents, keeping one value per keyframe.
// Cubic spline output stores (in-tangent, value, out-tangent) triplets.
func gltfSplineValues[T any](values []T, keyCount int, interpolation gltf.Interpolation) []T {
	if interpolation != gltf.InterpolationCubicSpline || len(values) < keyCount*3 {
		return values
	}
	out := make([]T, keyCount)
	for k := range out {
		out[k] = values[k*3+1]
	}
	return out
}
