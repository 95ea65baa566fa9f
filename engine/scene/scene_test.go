package scene

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/clip"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
	"github.com/go-gl/mathgl/mgl32"
)

type recordingUploader struct {
	offsets []int
	streams []int
}

func (u *recordingUploader) SetVertexConstants(registerOffset int, _ []float32, _ int) {
	u.offsets = append(u.offsets, registerOffset)
}

func (u *recordingUploader) ActivateJointStreams(streamOffset int, _ *skinning.MeshSkin, _ []int) {
	u.streams = append(u.streams, streamOffset)
}

type recordingSink struct {
	updates map[skinning.MeshID]int
}

func (s *recordingSink) UpdateVertexData(id skinning.MeshID, _ []float32) {
	if s.updates == nil {
		s.updates = make(map[skinning.MeshID]int)
	}
	s.updates[id]++
}

func armSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	skel, err := skeleton.NewSkeleton(
		skeleton.WithJoint("root", -1, mgl32.Ident4()),
		skeleton.WithJoint("tip", 0, mgl32.Translate3D(0, -1, 0)),
	)
	if err != nil {
		t.Fatalf("NewSkeleton: %v", err)
	}
	return skel
}

func swing() *clip.Clip {
	return &clip.Clip{
		Name:     "swing",
		Duration: 1,
		Loop:     true,
		Channels: []clip.Channel{{
			Joint: 1,
			RotationKeys: []clip.QuatKey{
				{Time: 0, Value: mgl32.QuatIdent()},
				{Time: 1, Value: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})},
			},
		}},
	}
}

func armSet(t *testing.T, options ...animator.AnimationSetOption) *animator.AnimationSet {
	t.Helper()
	c := swing()
	options = append([]animator.AnimationSetOption{animator.WithAnimation(c.Name, clip.Factory(c))}, options...)
	set, err := animator.NewAnimationSet(2, options...)
	if err != nil {
		t.Fatalf("NewAnimationSet: %v", err)
	}
	return set
}

func armMesh(t *testing.T) *skinning.MeshSkin {
	t.Helper()
	m, err := skinning.NewMeshSkin("arm/0", make([]float32, 2*skinning.VertexStride), 2,
		[]int{0, 1, 1, 0}, []float32{0.5, 0.5, 1, 0})
	if err != nil {
		t.Fatalf("NewMeshSkin: %v", err)
	}
	return m
}

func newArm(t *testing.T, set *animator.AnimationSet, options ...animator.AnimatorBuilderOption) animator.Animator {
	t.Helper()
	options = append(options, animator.WithInitialAnimation("swing"))
	a, err := animator.NewAnimator(armSkeleton(t), set, options...)
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}
	return a
}

func TestSceneRegistry(t *testing.T) {
	s := NewScene("registry", WithWorkers(2))
	defer s.Close()

	if _, err := s.Add(nil, nil); !errors.Is(err, ErrNilAnimator) {
		t.Errorf("Add(nil) error = %v, want ErrNilAnimator", err)
	}

	set := armSet(t)
	a := newArm(t, set, animator.WithConstantUploader(&recordingUploader{}))
	b := newArm(t, set, animator.WithConstantUploader(&recordingUploader{}))

	idA, err := s.Add(a, []*skinning.MeshSkin{armMesh(t)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	idB, err := s.Add(b, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idA == idB || idA == 0 {
		t.Errorf("ids = %d, %d, want distinct nonzero", idA, idB)
	}
	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.Count())
	}
	if got, ok := s.Get(idA); !ok || got != a {
		t.Errorf("Get(%d) = %v, %v, want animator a", idA, got, ok)
	}

	if !s.Remove(idA) {
		t.Error("Remove returned false for a registered instance")
	}
	if s.Remove(idA) {
		t.Error("Remove returned true twice")
	}
	if _, ok := s.Get(idA); ok {
		t.Error("Get found a removed instance")
	}

	s.Clear()
	if s.Count() != 0 {
		t.Errorf("Count after Clear = %d, want 0", s.Count())
	}
}

func TestSceneUpdateGPU(t *testing.T) {
	const (
		instances = 8
		frames    = 5
	)

	s := NewScene("gpu", WithWorkers(3))
	defer s.Close()

	set := armSet(t)
	mesh := armMesh(t)
	uploaders := make([]*recordingUploader, instances)
	for i := range uploaders {
		uploaders[i] = &recordingUploader{}
		a := newArm(t, set, animator.WithConstantUploader(uploaders[i]))
		if _, err := s.Add(a, []*skinning.MeshSkin{mesh}, WithConstantOffset(i*6), WithStreamOffset(1)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	for range frames {
		if err := s.Update(1.0 / 60); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	for i, u := range uploaders {
		if len(u.offsets) != frames {
			t.Fatalf("uploader %d got %d constant uploads, want %d", i, len(u.offsets), frames)
		}
		if u.offsets[0] != i*6 || u.streams[0] != 1 {
			t.Errorf("uploader %d offsets = %d/%d, want %d/1", i, u.offsets[0], u.streams[0], i*6)
		}
	}

	stats := s.Stats()
	if stats.GlobalRecomputes != instances*frames {
		t.Errorf("GlobalRecomputes = %d, want %d", stats.GlobalRecomputes, instances*frames)
	}
	if stats.MeshBlends != 0 {
		t.Errorf("MeshBlends = %d, want 0 on the gpu path", stats.MeshBlends)
	}
}

func TestSceneUpdateCPU(t *testing.T) {
	s := NewScene("cpu")
	defer s.Close()

	set := armSet(t, animator.WithForceCPU(true))
	sink := &recordingSink{}
	mesh := armMesh(t)
	a := newArm(t, set, animator.WithVertexSink(sink))
	if _, err := s.Add(a, []*skinning.MeshSkin{mesh}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for range 3 {
		if err := s.Update(0.1); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	if sink.updates[mesh.ID()] != 3 {
		t.Errorf("sink updates = %d, want 3", sink.updates[mesh.ID()])
	}
	if a.BackendType() != animator.BackendTypeCPU {
		t.Errorf("backend = %v, want cpu", a.BackendType())
	}
	if got := s.Stats().MeshBlends; got != 3 {
		t.Errorf("MeshBlends = %d, want 3", got)
	}
}

func TestSceneUpdateJoinsErrors(t *testing.T) {
	s := NewScene("errors")
	defer s.Close()

	set := armSet(t)
	good := &recordingUploader{}
	if _, err := s.Add(newArm(t, set), []*skinning.MeshSkin{armMesh(t)}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(newArm(t, set, animator.WithConstantUploader(good)), []*skinning.MeshSkin{armMesh(t)}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err := s.Update(0.1)
	if !errors.Is(err, animator.ErrNoUploader) {
		t.Errorf("Update error = %v, want ErrNoUploader", err)
	}
	if len(good.offsets) != 1 {
		t.Errorf("healthy instance got %d uploads, want 1", len(good.offsets))
	}
}

func TestSceneAddCondensesSharedMeshes(t *testing.T) {
	tests := []struct {
		name      string
		mode      animator.CondenseMode
		condensed bool
	}{
		{"auto", animator.CondenseAuto, true},
		{"on", animator.CondenseOn, true},
		{"off", animator.CondenseOff, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScene(tt.name)
			defer s.Close()

			mesh := armMesh(t)
			a := newArm(t, armSet(t, animator.WithCondenseMode(tt.mode)), animator.WithConstantUploader(&recordingUploader{}))
			if _, err := s.Add(a, []*skinning.MeshSkin{mesh}); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if got := mesh.NumCondensedJoints() > 0; got != tt.condensed {
				t.Errorf("condensed = %v, want %v", got, tt.condensed)
			}
		})
	}
}

func TestSceneClosed(t *testing.T) {
	s := NewScene("closed")
	s.Close()
	s.Close()

	if _, err := s.Add(newArm(t, armSet(t)), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Add error = %v, want ErrClosed", err)
	}
	if err := s.Update(0.1); !errors.Is(err, ErrClosed) {
		t.Errorf("Update error = %v, want ErrClosed", err)
	}
}
