package animator

// animatorConfig holds construction-only settings that are applied after the backend exists.
type animatorConfig struct {
	initial     string
	initialOpts []PlayOption
}

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator, *animatorConfig)

// WithConstantUploader is an option builder that sets the uploader used by GPU skinning.
//
// Parameters:
//   - u: the constant uploader
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the uploader option to an animator
func WithConstantUploader(u ConstantUploader) AnimatorBuilderOption {
	return func(a *animator, _ *animatorConfig) {
		a.uploader = u
	}
}

// WithVertexSink is an option builder that sets the sink used by CPU skinning.
//
// Parameters:
//   - s: the vertex sink
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the sink option to an animator
func WithVertexSink(s VertexSink) AnimatorBuilderOption {
	return func(a *animator, _ *animatorConfig) {
		a.sink = s
	}
}

// WithInitialAnimation is an option builder that plays an animation as soon as the Animator
// is constructed. NewAnimator fails if the animation cannot be played.
//
// Parameters:
//   - name: the animation name
//   - opts: play options for the initial animation
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the initial animation option
func WithInitialAnimation(name string, opts ...PlayOption) AnimatorBuilderOption {
	return func(_ *animator, c *animatorConfig) {
		c.initial = name
		c.initialOpts = opts
	}
}

// playOptions collects the PlayOption values for one Play call.
type playOptions struct {
	transition TransitionFactory
	timeOffset float32
	hasOffset  bool
}

// PlayOption is a functional option for a single Animator.Play call.
type PlayOption func(*playOptions)

// WithTransition blends into the new animation through a Transition created by factory.
// It is ignored when the animator is idle.
//
// Parameters:
//   - factory: creates the Transition from the active node to the target
//
// Returns:
//   - PlayOption: a function that applies the transition option
func WithTransition(factory TransitionFactory) PlayOption {
	return func(o *playOptions) {
		o.transition = factory
	}
}

// WithTimeOffset starts the new animation at t seconds instead of 0.
//
// Parameters:
//   - t: the start time in seconds
//
// Returns:
//   - PlayOption: a function that applies the time offset option
func WithTimeOffset(t float32) PlayOption {
	return func(o *playOptions) {
		o.timeOffset = t
		o.hasOffset = true
	}
}
