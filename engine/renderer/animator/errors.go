package animator

import "errors"

var (
	// ErrAnimationNotFound is returned by Play when the animation set has no state with the requested name.
	ErrAnimationNotFound = errors.New("animator: animation not found")

	// ErrNilSkeleton is returned when an animator is constructed without a skeleton.
	ErrNilSkeleton = errors.New("animator: nil skeleton")

	// ErrNilAnimationSet is returned when an animator is constructed without an animation set.
	ErrNilAnimationSet = errors.New("animator: nil animation set")

	// ErrNoUploader is returned when the GPU backend has no ConstantUploader to write to.
	ErrNoUploader = errors.New("animator: no constant uploader")

	// ErrNoVertexSink is returned when the CPU backend has no VertexSink to write to.
	ErrNoVertexSink = errors.New("animator: no vertex sink")
)
