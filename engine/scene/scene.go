// Package scene drives a group of skinned instances through a frame: parallel pose preparation
// followed by a serial render-state pass.
package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

const (
	// DefaultWorkers is the default number of prepare-phase workers.
	DefaultWorkers = 4

	// DefaultQueueSize is the default capacity of the worker task queue.
	DefaultQueueSize = 256

	// DefaultIdleTimeout is the default worker idle timeout.
	DefaultIdleTimeout = time.Second
)

var (
	// ErrNilAnimator is returned when Add is called without an animator.
	ErrNilAnimator = errors.New("scene: nil animator")

	// ErrClosed is returned by Add and Update after Close.
	ErrClosed = errors.New("scene: closed")
)

// Scene owns a set of animated instances and updates them once per frame.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Add registers an animator with the meshes it skins.
	// Meshes shared between instances are condensed once here so the parallel
	// prepare phase never mutates them.
	//
	// Parameters:
	//   - a: the animator driving the instance
	//   - meshes: the meshes skinned by the animator
	//   - options: per-instance render state offsets
	//
	// Returns:
	//   - uint64: the instance ID
	//   - error: ErrNilAnimator or ErrClosed
	Add(a animator.Animator, meshes []*skinning.MeshSkin, options ...InstanceOption) (uint64, error)

	// Get returns the animator registered under id.
	Get(id uint64) (animator.Animator, bool)

	// Remove unregisters an instance.
	//
	// Returns:
	//   - bool: true if the instance existed
	Remove(id uint64) bool

	// Count returns the number of registered instances.
	Count() int

	// Clear removes every instance.
	Clear()

	// Update advances every instance by dt seconds.
	// Phase 1 runs on the worker pool: each animator advances and prepares its global
	// matrices, or its CPU-skinned vertices when the CPU backend is active.
	// Phase 2 runs serially on the caller's goroutine and pushes render state through
	// each animator's uploader or vertex sink.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - error: every instance failure joined together, nil if all succeeded
	Update(dt float32) error

	// Stats sums the counters of every registered animator.
	Stats() animator.Stats

	// Close stops the worker pool. The scene rejects Add and Update afterwards.
	Close()
}

type instance struct {
	id             uint64
	anim           animator.Animator
	meshes         []*skinning.MeshSkin
	constantOffset int
	streamOffset   int
}

type scene struct {
	mu *sync.RWMutex

	name      string
	instances map[uint64]*instance
	nextID    uint64
	closed    bool

	// order is rebuilt lazily so updates walk instances in ID order.
	order      []*instance
	orderDirty bool

	workers     int
	queueSize   int
	idleTimeout time.Duration
	pool        worker.DynamicWorkerPool
}

var _ Scene = &scene{}

// NewScene creates a Scene and starts its worker pool.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:          &sync.RWMutex{},
		name:        name,
		instances:   make(map[uint64]*instance),
		nextID:      1,
		workers:     DefaultWorkers,
		queueSize:   DefaultQueueSize,
		idleTimeout: DefaultIdleTimeout,
	}

	for _, option := range options {
		option(s)
	}

	// Options run first so WithWorkers and friends can override the defaults.
	s.pool = worker.NewDynamicWorkerPool(s.workers, s.queueSize, s.idleTimeout)
	common.Logger().Debug("scene created", "scene", name, "workers", s.workers, "queue", s.queueSize)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Add(a animator.Animator, meshes []*skinning.MeshSkin, options ...InstanceOption) (uint64, error) {
	if a == nil {
		return 0, ErrNilAnimator
	}

	inst := &instance{
		anim:   a,
		meshes: append([]*skinning.MeshSkin(nil), meshes...),
	}
	for _, option := range options {
		option(inst)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	set := a.AnimationSet()
	if set.CondenseMode() != animator.CondenseOff {
		for _, m := range inst.meshes {
			if m.NumCondensedJoints() == 0 {
				m.CondenseIndexData(set.Layout())
			}
		}
	}

	inst.id = s.nextID
	s.nextID++
	s.instances[inst.id] = inst
	s.orderDirty = true
	return inst.id, nil
}

func (s *scene) Get(id uint64) (animator.Animator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, false
	}
	return inst.anim, true
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[id]; !ok {
		return false
	}
	delete(s.instances, id)
	s.orderDirty = true
	return true
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.instances)
	s.order = s.order[:0]
	s.orderDirty = false
}

// ordered returns the instances sorted by ID. Caller must hold the write lock.
func (s *scene) ordered() []*instance {
	if !s.orderDirty {
		return s.order
	}
	s.order = s.order[:0]
	for _, inst := range s.instances {
		s.order = append(s.order, inst)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i].id < s.order[j].id })
	s.orderDirty = false
	return s.order
}

func (s *scene) Update(dt float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	instances := s.ordered()
	if len(instances) == 0 {
		return nil
	}

	// Phase 1: parallel prepare. Each task touches only its own animator.
	failed := make([]error, len(instances))
	var wg sync.WaitGroup
	for i, inst := range instances {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: int(inst.id),
			Do: func() (any, error) {
				defer wg.Done()
				failed[i] = prepare(inst, dt)
				return nil, failed[i]
			},
		})
	}
	wg.Wait()

	// Phase 2: serial render state.
	var errs []error
	for i, inst := range instances {
		if failed[i] != nil {
			errs = append(errs, fmt.Errorf("instance %d: %w", inst.id, failed[i]))
			continue
		}
		for _, m := range inst.meshes {
			if err := inst.anim.SetRenderState(m, inst.constantOffset, inst.streamOffset); err != nil {
				errs = append(errs, fmt.Errorf("instance %d mesh %q: %w", inst.id, m.ID(), err))
			}
		}
	}

	if len(errs) > 0 {
		common.Logger().Warn("scene update failed", "scene", s.name, "failures", len(errs))
	}
	return errors.Join(errs...)
}

// prepare runs the CPU-heavy part of a frame for one instance.
func prepare(inst *instance, dt float32) error {
	inst.anim.Advance(dt)

	if inst.anim.BackendType() == animator.BackendTypeCPU || inst.anim.AnimationSet().UsesCPU() {
		for _, m := range inst.meshes {
			if _, err := inst.anim.SkinState(m); err != nil {
				return fmt.Errorf("skin mesh %q: %w", m.ID(), err)
			}
		}
		return nil
	}

	_, err := inst.anim.GlobalMatrices()
	return err
}

func (s *scene) Stats() animator.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total animator.Stats
	for _, inst := range s.instances {
		st := inst.anim.Stats()
		total.GlobalRecomputes += st.GlobalRecomputes
		total.MeshBlends += st.MeshBlends
		total.CondensedUpdates += st.CondensedUpdates
	}
	return total
}

func (s *scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.pool.Stop()
}
