package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithRig is an option builder that pre-populates the rig cache, typically with a procedurally built rig.
//
// Parameters:
//   - key: the cache key for the rig
//   - rig: the rig to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the rig option to a loader
func WithRig(key string, rig *Rig) LoaderBuilderOption {
	return func(l *loader) {
		l.rigCache[key] = rig
	}
}
