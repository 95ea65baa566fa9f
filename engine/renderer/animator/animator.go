package animator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

// Stats counts the expensive passes an Animator has run.
type Stats struct {
	// GlobalRecomputes counts pose composition plus matrix building passes.
	GlobalRecomputes uint64

	// MeshBlends counts CPU vertex blend passes across all meshes.
	MeshBlends uint64

	// CondensedUpdates counts condensed matrix copies across all meshes.
	CondensedUpdates uint64
}

// condensedState caches one mesh's condensed matrix subset.
type condensedState struct {
	matrices   []float32
	dirty      bool
	generation uint64
}

// animator is the implementation of the Animator interface.
type animator struct {
	skel   *skeleton.Skeleton
	set    *AnimationSet
	layout skinning.ConstantLayout

	backend  skinningBackend
	uploader ConstantUploader
	sink     VertexSink

	states map[string]State

	active     State
	activeName string
	playback   PlaybackState

	// transition and pending track the in-flight transition and its completion signal.
	// target is the state the animator falls back to once pending closes.
	transition Transition
	pending    <-chan struct{}
	target     State

	absoluteTime float32

	// advanced collects the nodes already advanced during one Advance call.
	advanced map[State]struct{}

	local, global pose.Pose
	matrices      []float32
	globalDirty   bool

	skins     map[skinning.MeshID]*skinning.SkinState
	condensed map[skinning.MeshID]*condensedState

	stats Stats
}

// Animator drives one skinned instance: it plays named animations from an AnimationSet,
// composes the resulting pose against a shared Skeleton and applies it to meshes through a
// GPU or CPU skinning backend.
//
// All derived data is lazy. Play and Advance only set dirty flags; the global pose, the
// skinning matrices and each mesh's blended vertices are recomputed at most once per
// invalidation, the first time they are read. An Animator is not safe for concurrent use.
type Animator interface {
	// Skeleton returns the skeleton this animator poses.
	//
	// Returns:
	//   - *skeleton.Skeleton: the shared skeleton
	Skeleton() *skeleton.Skeleton

	// AnimationSet returns the set this animator plays from.
	//
	// Returns:
	//   - *AnimationSet: the shared animation set
	AnimationSet() *AnimationSet

	// Play makes the named animation active. Playing the already active animation is a no-op.
	// With WithTransition and an active node, a Transition from the current node is created
	// and the animator reverts to the target once the transition signals completion.
	//
	// Parameters:
	//   - name: the animation name
	//   - opts: variadic PlayOption values (WithTransition, WithTimeOffset)
	//
	// Returns:
	//   - error: an error wrapping ErrAnimationNotFound for unknown names, leaving state unchanged
	Play(name string, opts ...PlayOption) error

	// Advance moves the absolute clock and the active node forward by dt seconds and
	// invalidates all derived data when dt is nonzero.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)

	// Invalidate marks the global pose, matrices and every tracked mesh as dirty.
	Invalidate()

	// PlaybackState returns whether the animator is idle, playing or transitioning.
	//
	// Returns:
	//   - PlaybackState: the playback state
	PlaybackState() PlaybackState

	// ActiveAnimation returns the name of the most recently played animation, or "" when idle.
	//
	// Returns:
	//   - string: the active animation name
	ActiveAnimation() string

	// ActiveState returns the active node, which is a Transition while transitioning.
	//
	// Returns:
	//   - State: the active node, or nil when idle
	ActiveState() State

	// AbsoluteTime returns the sum of all Advance deltas.
	//
	// Returns:
	//   - float32: the absolute clock in seconds
	AbsoluteTime() float32

	// GlobalPose returns the model-space pose, recomputing it if dirty. The bind pose is
	// returned while idle. The slice is owned by the animator.
	//
	// Returns:
	//   - pose.Pose: the global pose
	//   - error: an error if the active node fails to produce a pose
	GlobalPose() (pose.Pose, error)

	// GlobalMatrices returns the full skinning matrix buffer, recomputing it if dirty.
	// The slice is owned by the animator.
	//
	// Returns:
	//   - []float32: MatrixStride scalars per joint
	//   - error: an error if the active node fails to produce a pose
	GlobalMatrices() ([]float32, error)

	// SkinState returns the mesh's CPU skin state, creating it on first use and blending
	// it if dirty.
	//
	// Parameters:
	//   - mesh: the mesh to skin
	//
	// Returns:
	//   - *skinning.SkinState: the up-to-date skin state
	//   - error: an error if the global matrices could not be computed
	SkinState(mesh *skinning.MeshSkin) (*skinning.SkinState, error)

	// CondensedMatrices returns the mesh's condensed matrix subset, building the mesh's
	// condensed lookup first when it does not exist yet.
	//
	// Parameters:
	//   - mesh: the mesh whose joint subset to copy
	//
	// Returns:
	//   - []float32: MatrixStride scalars per condensed slot
	//   - error: an error if the global matrices could not be computed
	CondensedMatrices(mesh *skinning.MeshSkin) ([]float32, error)

	// SetRenderState applies the current pose to mesh through the selected backend.
	//
	// Parameters:
	//   - mesh: the mesh being drawn
	//   - constantOffset: first vertex constant register for joint matrices
	//   - streamOffset: first vertex stream slot for joint indices and weights
	//
	// Returns:
	//   - error: an error if the backend lacks its collaborator or the pose fails
	SetRenderState(mesh *skinning.MeshSkin, constantOffset, streamOffset int) error

	// BackendType returns the currently selected skinning backend.
	//
	// Returns:
	//   - SkinningBackendType: BackendTypeGPU or BackendTypeCPU
	BackendType() SkinningBackendType

	// Stats returns the recompute counters.
	//
	// Returns:
	//   - Stats: a copy of the counters
	Stats() Stats
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator for a skeleton and animation set. The skinning backend
// is selected once here from AnimationSet.UsesCPU; it is switched to CPU later only when the
// set cancels GPU compatibility.
//
// Parameters:
//   - skel: the shared skeleton
//   - set: the shared animation set
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: the new animator, idle until Play is called
//   - error: an error if a required collaborator is missing or the initial animation fails
func NewAnimator(skel *skeleton.Skeleton, set *AnimationSet, options ...AnimatorBuilderOption) (Animator, error) {
	if skel == nil {
		return nil, ErrNilSkeleton
	}
	if set == nil {
		return nil, ErrNilAnimationSet
	}

	a := &animator{
		skel:        skel,
		set:         set,
		layout:      set.Layout(),
		states:      make(map[string]State),
		advanced:    make(map[State]struct{}),
		skins:       make(map[skinning.MeshID]*skinning.SkinState),
		condensed:   make(map[skinning.MeshID]*condensedState),
		globalDirty: true,
	}

	cfg := animatorConfig{}
	for _, opt := range options {
		opt(a, &cfg)
	}

	if set.UsesCPU() {
		a.backend = newCPUSkinningBackend(a.sink)
	} else {
		a.backend = newGPUSkinningBackend(a.uploader)
	}

	if cfg.initial != "" {
		if err := a.Play(cfg.initial, cfg.initialOpts...); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *animator) Skeleton() *skeleton.Skeleton {
	return a.skel
}

func (a *animator) AnimationSet() *AnimationSet {
	return a.set
}

// stateFor returns the animator's cached state for name, creating it from the set's factory.
func (a *animator) stateFor(name string) (State, error) {
	if s, ok := a.states[name]; ok {
		return s, nil
	}
	factory, ok := a.set.factory(name)
	if !ok {
		return nil, fmt.Errorf("play %q: %w", name, ErrAnimationNotFound)
	}
	s, err := factory(a.skel)
	if err != nil {
		return nil, fmt.Errorf("create state %q: %w", name, err)
	}
	a.states[name] = s
	return s, nil
}

func (a *animator) Play(name string, opts ...PlayOption) error {
	if a.playback != PlaybackIdle && name == a.activeName {
		return nil
	}

	target, err := a.stateFor(name)
	if err != nil {
		return err
	}

	po := playOptions{}
	for _, opt := range opts {
		opt(&po)
	}

	if po.hasOffset {
		target.SetTime(po.timeOffset)
	} else {
		target.SetTime(0)
	}

	if a.pending != nil {
		common.Logger().Warn("transition pre-empted", "from", a.activeName, "to", name)
	}

	if po.transition != nil && a.active != nil {
		tr := po.transition(a.active, target, a.absoluteTime)
		a.transition = tr
		a.pending = tr.Done()
		a.target = target
		a.active = tr
		a.playback = PlaybackTransitioning
	} else {
		a.transition = nil
		a.pending = nil
		a.target = nil
		a.active = target
		a.playback = PlaybackPlaying
	}
	a.activeName = name

	a.Invalidate()
	return nil
}

func (a *animator) Advance(dt float32) {
	a.absoluteTime += dt
	if a.active != nil {
		clear(a.advanced)
		a.advanceNode(a.active, dt)
	}

	if a.pending != nil {
		select {
		case <-a.pending:
			if a.active == State(a.transition) {
				a.active = a.target
				a.playback = PlaybackPlaying
				a.Invalidate()
			}
			a.transition = nil
			a.pending = nil
			a.target = nil
		default:
		}
	}

	if dt != 0 {
		a.Invalidate()
	}
}

// advanceNode advances node and, through transitions, every state below it. A state reached
// twice, as when a pre-empting transition wraps one that already holds it, moves once.
func (a *animator) advanceNode(node State, dt float32) {
	if _, ok := a.advanced[node]; ok {
		return
	}
	a.advanced[node] = struct{}{}
	node.Advance(dt)
	if tr, ok := node.(Transition); ok {
		a.advanceNode(tr.From(), dt)
		a.advanceNode(tr.To(), dt)
	}
}

func (a *animator) Invalidate() {
	a.globalDirty = true
	for _, s := range a.skins {
		s.MarkDirty()
	}
	for _, c := range a.condensed {
		c.dirty = true
	}
}

func (a *animator) PlaybackState() PlaybackState {
	return a.playback
}

func (a *animator) ActiveAnimation() string {
	return a.activeName
}

func (a *animator) ActiveState() State {
	return a.active
}

func (a *animator) AbsoluteTime() float32 {
	return a.absoluteTime
}

// refresh recomputes the global pose and the full matrix buffer when dirty.
func (a *animator) refresh() error {
	if !a.globalDirty {
		return nil
	}

	var err error
	switch {
	case a.active == nil:
		a.global = pose.BindPose(a.skel, a.global)
	default:
		a.local, err = a.active.Pose(a.local)
		if err != nil {
			return fmt.Errorf("sample %q: %w", a.activeName, err)
		}
		if a.active.Space() == pose.SpaceModel {
			a.global, err = pose.CopyGlobal(a.skel, a.local, a.global)
		} else {
			a.global, err = pose.ComposeGlobal(a.skel, a.local, a.global)
		}
		if err != nil {
			return fmt.Errorf("compose %q: %w", a.activeName, err)
		}
	}

	a.matrices = skinning.BuildMatrices(a.skel, a.global, a.matrices, a.layout)
	a.globalDirty = false
	a.stats.GlobalRecomputes++
	common.Logger().Debug("global pose recomputed", "animation", a.activeName, "joints", a.skel.NumJoints())
	return nil
}

func (a *animator) GlobalPose() (pose.Pose, error) {
	if err := a.refresh(); err != nil {
		return nil, err
	}
	return a.global, nil
}

func (a *animator) GlobalMatrices() ([]float32, error) {
	if err := a.refresh(); err != nil {
		return nil, err
	}
	return a.matrices, nil
}

func (a *animator) SkinState(mesh *skinning.MeshSkin) (*skinning.SkinState, error) {
	s, ok := a.skins[mesh.ID()]
	if !ok || s.Mesh() != mesh {
		s = skinning.NewSkinState(mesh)
		a.skins[mesh.ID()] = s
	}
	if !s.Dirty() {
		return s, nil
	}

	matrices, err := a.GlobalMatrices()
	if err != nil {
		return nil, err
	}
	if s.Update(matrices, a.layout) {
		a.stats.MeshBlends++
	}
	return s, nil
}

func (a *animator) CondensedMatrices(mesh *skinning.MeshSkin) ([]float32, error) {
	if mesh.NumCondensedJoints() == 0 {
		mesh.CondenseIndexData(a.layout)
	}

	c, ok := a.condensed[mesh.ID()]
	if !ok {
		c = &condensedState{dirty: true}
		a.condensed[mesh.ID()] = c
	}
	if !c.dirty && c.generation == mesh.CondensedGeneration() {
		return c.matrices, nil
	}

	matrices, err := a.GlobalMatrices()
	if err != nil {
		return nil, err
	}
	c.matrices = skinning.CondenseMatrices(matrices, mesh.CondensedLookup(), c.matrices, a.layout)
	c.dirty = false
	c.generation = mesh.CondensedGeneration()
	a.stats.CondensedUpdates++
	return c.matrices, nil
}

// useCondensed decides whether the GPU backend uploads the condensed subset.
func (a *animator) useCondensed(usedRegisters int) bool {
	switch a.set.CondenseMode() {
	case CondenseOn:
		return true
	case CondenseOff:
		return false
	default:
		return skinning.NeedsCondensation(usedRegisters, a.skel.NumJoints(), a.set.Budget(), a.layout)
	}
}

func (a *animator) SetRenderState(mesh *skinning.MeshSkin, constantOffset, streamOffset int) error {
	if a.backend.Type() == BackendTypeGPU && a.set.UsesCPU() {
		common.Logger().Debug("switching to cpu skinning", "animation", a.activeName)
		a.backend = newCPUSkinningBackend(a.sink)
	}
	return a.backend.SetRenderState(a, mesh, constantOffset, streamOffset)
}

func (a *animator) BackendType() SkinningBackendType {
	return a.backend.Type()
}

func (a *animator) Stats() Stats {
	return a.stats
}
