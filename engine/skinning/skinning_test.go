package skinning

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

// approx compares with an absolute tolerance; mgl32's relative check is too strict near zero.
func approx(a, b float32) bool {
	return mgl32.Abs(a-b) <= eps
}

func approxVec(a, b mgl32.Vec3) bool {
	return approx(a[0], b[0]) && approx(a[1], b[1]) && approx(a[2], b[2])
}

// rows flattens the top three rows of m into the 12-scalar row-major layout.
func rows(m mgl32.Mat4) []float32 {
	return []float32{
		m[0], m[4], m[8], m[12],
		m[1], m[5], m[9], m[13],
		m[2], m[6], m[10], m[14],
	}
}

// vertex packs one interleaved vertex record.
func vertex(pos, normal, tangent mgl32.Vec3, uv [4]float32) []float32 {
	v := make([]float32, VertexStride)
	copy(v[PositionOffset:], pos[:])
	copy(v[NormalOffset:], normal[:])
	copy(v[TangentOffset:], tangent[:])
	copy(v[UVOffset:], uv[:])
	return v
}

func vec(data []float32, offset int) mgl32.Vec3 {
	return mgl32.Vec3{data[offset], data[offset+1], data[offset+2]}
}

func TestConstantLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  ConstantLayout
		wantErr bool
	}{
		{"default", DefaultConstantLayout(), false},
		{"padded 4x4", ConstantLayout{ScalarsPerRegister: 4, RegistersPerJoint: 4, MatrixStride: 16}, false},
		{"stride mismatch", ConstantLayout{ScalarsPerRegister: 4, RegistersPerJoint: 3, MatrixStride: 16}, true},
		{"too narrow", ConstantLayout{ScalarsPerRegister: 4, RegistersPerJoint: 2, MatrixStride: 8}, true},
		{"zero", ConstantLayout{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidLayout) {
				t.Errorf("error %v does not wrap ErrInvalidLayout", err)
			}
		})
	}
}

func TestConstantLayoutOffsets(t *testing.T) {
	l := DefaultConstantLayout()
	if got := l.RegisterCount(5); got != 15 {
		t.Errorf("RegisterCount(5) = %d, want 15", got)
	}
	if got := l.BufferLen(5); got != 60 {
		t.Errorf("BufferLen(5) = %d, want 60", got)
	}
	// register offset 3 (joint 1) must land on the same scalar as joint 1's buffer offset
	if got := l.RegisterToBuffer(3); got != l.BufferLen(1) {
		t.Errorf("RegisterToBuffer(3) = %d, want %d", got, l.BufferLen(1))
	}
}

func TestBuildMatricesRestPoseIsIdentity(t *testing.T) {
	rootRot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	childRot := mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{1, 0, 0})
	local := pose.Pose{
		{Rotation: rootRot, Translation: mgl32.Vec3{1, 2, 3}},
		{Rotation: childRot, Translation: mgl32.Vec3{0, 4, 0}},
	}

	// derive bind-pose globals, then their inverses
	bind, err := pose.ComposeGlobal(mustChain(t, nil), local, nil)
	if err != nil {
		t.Fatalf("ComposeGlobal: %v", err)
	}
	ibp := make([]mgl32.Mat4, len(bind))
	for i, jp := range bind {
		ibp[i] = mgl32.Translate3D(jp.Translation.X(), jp.Translation.Y(), jp.Translation.Z()).Mul4(jp.Rotation.Mat4()).Inv()
	}
	skel := mustChain(t, ibp)

	global, err := pose.ComposeGlobal(skel, local, nil)
	if err != nil {
		t.Fatalf("ComposeGlobal: %v", err)
	}
	layout := DefaultConstantLayout()
	got := BuildMatrices(skel, global, nil, layout)
	if len(got) != 24 {
		t.Fatalf("len = %d, want 24", len(got))
	}
	want := rows(mgl32.Ident4())
	for j := 0; j < 2; j++ {
		for k := 0; k < MatrixScalars; k++ {
			if !approx(got[j*12+k], want[k]) {
				t.Fatalf("joint %d scalar %d = %v, want %v", j, k, got[j*12+k], want[k])
			}
		}
	}
}

func mustChain(t *testing.T, ibp []mgl32.Mat4) *skeleton.Skeleton {
	t.Helper()
	if ibp == nil {
		ibp = []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()}
	}
	opts := make([]skeleton.SkeletonBuilderOption, len(ibp))
	for i, m := range ibp {
		opts[i] = skeleton.WithJoint(string(rune('a'+i)), i-1, m)
	}
	s, err := skeleton.NewSkeleton(opts...)
	if err != nil {
		t.Fatalf("NewSkeleton: %v", err)
	}
	return s
}

func TestBuildMatricesAddsTranslationAndPadsStride(t *testing.T) {
	skel := mustChain(t, []mgl32.Mat4{mgl32.Translate3D(0, -1, 0)})
	global := pose.Pose{{Rotation: mgl32.QuatIdent(), Translation: mgl32.Vec3{5, 6, 7}}}
	layout := ConstantLayout{ScalarsPerRegister: 4, RegistersPerJoint: 4, MatrixStride: 16}

	dst := make([]float32, 16)
	for i := range dst {
		dst[i] = -1
	}
	got := BuildMatrices(skel, global, dst, layout)
	if &got[0] != &dst[0] {
		t.Error("BuildMatrices reallocated a large enough buffer")
	}
	if got[3] != 5 || got[7] != 5 || got[11] != 7 {
		t.Errorf("translation column = %v %v %v, want 5 5 7", got[3], got[7], got[11])
	}
	for k := 12; k < 16; k++ {
		if got[k] != 0 {
			t.Errorf("padding scalar %d = %v, want 0", k, got[k])
		}
	}
}

func TestCondenseIndexData(t *testing.T) {
	data := make([]float32, 3*VertexStride)
	mesh, err := NewMeshSkin("m", data, 2, []int{5, 2, 9, 5, 2, 2}, []float32{0.5, 0.5, 1, 0, 1, 0})
	if err != nil {
		t.Fatalf("NewMeshSkin: %v", err)
	}
	if mesh.NumCondensedJoints() != 0 {
		t.Fatal("condensed table should be built lazily")
	}
	mesh.CondenseIndexData(DefaultConstantLayout())

	wantLookup := []int{5, 2, 9}
	wantIdx := []int{0, 3, 6, 0, 3, 3}
	if mesh.NumCondensedJoints() != 3 {
		t.Fatalf("NumCondensedJoints = %d, want 3", mesh.NumCondensedJoints())
	}
	for i, w := range wantLookup {
		if mesh.CondensedLookup()[i] != w {
			t.Errorf("lookup[%d] = %d, want %d", i, mesh.CondensedLookup()[i], w)
		}
	}
	for i, w := range wantIdx {
		if mesh.CondensedJointIndices()[i] != w {
			t.Errorf("index[%d] = %d, want %d", i, mesh.CondensedJointIndices()[i], w)
		}
	}

	if err := mesh.SetJointData([]int{1, 1, 1, 1, 1, 1}, []float32{1, 0, 1, 0, 1, 0}); err != nil {
		t.Fatalf("SetJointData: %v", err)
	}
	if mesh.NumCondensedJoints() != 0 {
		t.Error("SetJointData should invalidate the condensed table")
	}
}

func TestCondenseMatrices(t *testing.T) {
	layout := DefaultConstantLayout()
	full := make([]float32, layout.BufferLen(10))
	for j := 0; j < 10; j++ {
		for k := 0; k < MatrixScalars; k++ {
			full[j*12+k] = float32(j*100 + k)
		}
	}
	got := CondenseMatrices(full, []int{2, 5, 9}, nil, layout)
	if len(got) != 36 {
		t.Fatalf("len = %d, want 36", len(got))
	}
	for slot, joint := range []int{2, 5, 9} {
		for k := 0; k < MatrixScalars; k++ {
			if got[slot*12+k] != float32(joint*100+k) {
				t.Fatalf("slot %d scalar %d = %v, want %v", slot, k, got[slot*12+k], joint*100+k)
			}
		}
	}
}

func TestNewMeshSkinErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []float32
		jpv     int
		indices []int
		weights []float32
	}{
		{"zero influences", make([]float32, VertexStride), 0, nil, nil},
		{"ragged vertices", make([]float32, VertexStride+1), 1, []int{0}, []float32{1}},
		{"short weights", make([]float32, 2*VertexStride), 1, []int{0, 0}, []float32{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMeshSkin("bad", tt.data, tt.jpv, tt.indices, tt.weights)
			if !errors.Is(err, ErrMeshData) {
				t.Errorf("err = %v, want ErrMeshData", err)
			}
		})
	}
}

func TestBlend(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}).Mat4()
	move := mgl32.Translate3D(2, 0, 0)
	layout := DefaultConstantLayout()

	matrices := append(append(rows(mgl32.Ident4()), rows(move)...), rows(move.Mul4(rot))...)

	pos := mgl32.Vec3{1, 0, 0}
	normal := mgl32.Vec3{0, 1, 0}
	tangent := mgl32.Vec3{1, 0, 0}
	uv := [4]float32{0.25, 0.75, 0.5, 0.5}

	tests := []struct {
		name        string
		indices     []int
		weights     []float32
		wantPos     mgl32.Vec3
		wantNormal  mgl32.Vec3
		wantTangent mgl32.Vec3
	}{
		{"full weight rotate and move", []int{2, 0}, []float32{1, 0}, mgl32.Vec3{2, 1, 0}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{"half and half", []int{0, 1}, []float32{0.5, 0.5}, mgl32.Vec3{2, 0, 0}, normal, tangent},
		{"translation leaves normal", []int{1, 0}, []float32{1, 0}, mgl32.Vec3{3, 0, 0}, normal, tangent},
		{"zero weight terminates", []int{0, 1}, []float32{1, 0}, pos, normal, tangent},
		{"negative weight terminates", []int{0, 2}, []float32{-1, 1}, mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := NewMeshSkin("v", vertex(pos, normal, tangent, uv), 2, tt.indices, tt.weights)
			if err != nil {
				t.Fatalf("NewMeshSkin: %v", err)
			}
			out := Blend(matrices, mesh, nil, layout)
			if got := vec(out, PositionOffset); !approxVec(got, tt.wantPos) {
				t.Errorf("position = %v, want %v", got, tt.wantPos)
			}
			if got := vec(out, NormalOffset); !approxVec(got, tt.wantNormal) {
				t.Errorf("normal = %v, want %v", got, tt.wantNormal)
			}
			if got := vec(out, TangentOffset); !approxVec(got, tt.wantTangent) {
				t.Errorf("tangent = %v, want %v", got, tt.wantTangent)
			}
			for k := 0; k < 4; k++ {
				if out[UVOffset+k] != uv[k] {
					t.Errorf("uv[%d] = %v, want %v", k, out[UVOffset+k], uv[k])
				}
			}
		})
	}
}

func TestSkinStateUpdatesOnlyWhenDirty(t *testing.T) {
	layout := DefaultConstantLayout()
	mesh, err := NewMeshSkin("s", vertex(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, [4]float32{}), 1, []int{0}, []float32{1})
	if err != nil {
		t.Fatalf("NewMeshSkin: %v", err)
	}
	s := NewSkinState(mesh)
	if !s.Dirty() {
		t.Fatal("new state should start dirty")
	}
	if got := vec(s.Vertices(), PositionOffset); got != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("initial vertices = %v, want raw copy", got)
	}

	matrices := rows(mgl32.Translate3D(1, 0, 0))
	if !s.Update(matrices, layout) {
		t.Fatal("Update should blend a dirty state")
	}
	buf := s.Vertices()
	if s.Update(rows(mgl32.Translate3D(9, 0, 0)), layout) {
		t.Error("Update should skip a clean state")
	}
	if got := vec(s.Vertices(), PositionOffset); got != (mgl32.Vec3{2, 1, 1}) {
		t.Errorf("position = %v, want {2 1 1}", got)
	}

	s.MarkDirty()
	s.Update(rows(mgl32.Translate3D(0, 2, 0)), layout)
	if &s.Vertices()[0] != &buf[0] {
		t.Error("blended buffer should be reused across updates")
	}
	if got := vec(s.Vertices(), PositionOffset); got != (mgl32.Vec3{1, 3, 1}) {
		t.Errorf("position = %v, want {1 3 1}", got)
	}
	if mesh.VertexData()[0] != 1 {
		t.Error("raw vertex data must not be modified")
	}
}

func TestGPUCompatible(t *testing.T) {
	layout := DefaultConstantLayout()
	budget := DefaultBudget()
	tests := []struct {
		name string
		q    CompatibilityQuery
		want bool
	}{
		{"fits", CompatibilityQuery{UsedRegisters: 8, NumJoints: 40, JointsPerVertex: 4}, true},
		{"exact fit", CompatibilityQuery{UsedRegisters: 8, NumJoints: 40, JointsPerVertex: 1}, true},
		{"over budget", CompatibilityQuery{UsedRegisters: 9, NumJoints: 40, JointsPerVertex: 4}, false},
		{"over budget condensed", CompatibilityQuery{UsedRegisters: 9, NumJoints: 40, JointsPerVertex: 4, Condensed: true}, true},
		{"too many influences", CompatibilityQuery{NumJoints: 2, JointsPerVertex: 5, Condensed: true}, false},
		{"forced cpu", CompatibilityQuery{NumJoints: 1, JointsPerVertex: 1, ForceCPU: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GPUCompatible(tt.q, budget, layout); got != tt.want {
				t.Errorf("GPUCompatible = %v, want %v", got, tt.want)
			}
		})
	}

	if NeedsCondensation(8, 40, budget, layout) {
		t.Error("40 joints with 8 used registers should fit")
	}
	if !NeedsCondensation(8, 41, budget, layout) {
		t.Error("41 joints with 8 used registers should not fit")
	}
}
