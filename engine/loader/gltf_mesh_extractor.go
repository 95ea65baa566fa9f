package loader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfJointsPerVertex is the influence count of a single JOINTS_0/WEIGHTS_0 attribute pair.
const gltfJointsPerVertex = 4

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	doc *gltf.Document
}

// gltfMeshExtractor defines the interface for extracting skinned mesh data from a decoded glTF document.
// It converts accessor data into the flat vertex layout consumed by skinning.MeshSkin.
type gltfMeshExtractor interface {
	// ExtractSkinnedMeshes extracts every primitive of every mesh instanced by a node bound to the skin.
	// Primitives without JOINTS_0/WEIGHTS_0 are skipped.
	//
	// Parameters:
	//   - skinIndex: the skin the meshes must be bound to
	//   - oldToNew: maps the skin's joint order to the sorted skeleton order
	//
	// Returns:
	//   - []*skinning.MeshSkin: one mesh per primitive
	//   - map[skinning.MeshID][]uint32: triangle indices per mesh
	//   - error: error if extraction fails
	ExtractSkinnedMeshes(skinIndex int, oldToNew []int) ([]*skinning.MeshSkin, map[skinning.MeshID][]uint32, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(doc *gltf.Document) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{doc: doc}
}

func (e *gltfMeshExtractorImpl) ExtractSkinnedMeshes(skinIndex int, oldToNew []int) ([]*skinning.MeshSkin, map[skinning.MeshID][]uint32, error) {
	var meshes []*skinning.MeshSkin
	indices := make(map[skinning.MeshID][]uint32)
	seen := make(map[uint32]bool)

	for _, node := range e.doc.Nodes {
		if node.Skin == nil || int(*node.Skin) != skinIndex || node.Mesh == nil {
			continue
		}
		meshIndex := *node.Mesh
		if seen[meshIndex] {
			continue
		}
		seen[meshIndex] = true
		if int(meshIndex) >= len(e.doc.Meshes) {
			return nil, nil, fmt.Errorf("node %q: mesh index %d out of range", node.Name, meshIndex)
		}

		mesh := e.doc.Meshes[meshIndex]
		meshName := common.Coalesce(mesh.Name, fmt.Sprintf("mesh_%d", meshIndex))
		for primIdx, prim := range mesh.Primitives {
			if !gltfIsSkinnedPrimitive(prim) {
				common.Logger().Debug("loader: skipping unskinned primitive", "mesh", meshName, "primitive", primIdx)
				continue
			}
			m, idx, err := e.extractPrimitive(prim, meshName, primIdx, oldToNew)
			if err != nil {
				return nil, nil, fmt.Errorf("mesh %q primitive %d: %w", meshName, primIdx, err)
			}
			meshes = append(meshes, m)
			indices[m.ID()] = idx
		}
	}

	return meshes, indices, nil
}

// extractPrimitive builds a MeshSkin from a single triangle primitive.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltf.Primitive, meshName string, primIndex int, oldToNew []int) (*skinning.MeshSkin, []uint32, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, nil, fmt.Errorf("unsupported primitive mode %d (only triangles supported)", prim.Mode)
	}

	posAccessor, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(e.doc, e.doc.Accessors[posAccessor], nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read positions: %w", err)
	}

	vertexCount := len(positions)
	vertices := make([]float32, vertexCount*skinning.VertexStride)
	for i, p := range positions {
		copy(vertices[i*skinning.VertexStride+skinning.PositionOffset:], p[:])
	}

	hasNormals := false
	if acc, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(e.doc, e.doc.Accessors[acc], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read normals: %w", err)
		}
		for i := 0; i < len(normals) && i < vertexCount; i++ {
			copy(vertices[i*skinning.VertexStride+skinning.NormalOffset:], normals[i][:])
		}
		hasNormals = true
	}

	// Tangent handedness (w) is dropped; the vertex layout only carries the direction.
	hasTangents := false
	if acc, ok := prim.Attributes[gltf.TANGENT]; ok {
		tangents, err := modeler.ReadTangent(e.doc, e.doc.Accessors[acc], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read tangents: %w", err)
		}
		for i := 0; i < len(tangents) && i < vertexCount; i++ {
			copy(vertices[i*skinning.VertexStride+skinning.TangentOffset:], tangents[i][:3])
		}
		hasTangents = true
	}

	for attr, offset := range map[string]int{gltf.TEXCOORD_0: skinning.UVOffset, gltf.TEXCOORD_1: skinning.SecondaryOffset} {
		acc, ok := prim.Attributes[attr]
		if !ok {
			continue
		}
		uvs, err := modeler.ReadTextureCoord(e.doc, e.doc.Accessors[acc], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", attr, err)
		}
		for i := 0; i < len(uvs) && i < vertexCount; i++ {
			copy(vertices[i*skinning.VertexStride+offset:], uvs[i][:])
		}
	}

	jointIndices, jointWeights, err := e.readInfluences(prim, vertexCount, oldToNew)
	if err != nil {
		return nil, nil, err
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(e.doc, e.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	// Normals must exist before tangents are orthonormalized against them.
	if !hasNormals && len(indices) >= 3 {
		generateNormals(vertices, indices)
	}
	if !hasTangents && len(indices) >= 3 {
		generateTangents(vertices, indices)
	}

	id := skinning.MeshID(fmt.Sprintf("%s/%d", meshName, primIndex))
	m, err := skinning.NewMeshSkin(id, vertices, gltfJointsPerVertex, jointIndices, jointWeights)
	if err != nil {
		return nil, nil, err
	}
	return m, indices, nil
}

// readInfluences reads JOINTS_0/WEIGHTS_0, remaps joints into skeleton order and sorts each vertex's
// influences by descending weight so that unused slots trail the used ones.
func (e *gltfMeshExtractorImpl) readInfluences(prim *gltf.Primitive, vertexCount int, oldToNew []int) ([]int, []float32, error) {
	joints, err := modeler.ReadJoints(e.doc, e.doc.Accessors[prim.Attributes[gltf.JOINTS_0]], nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read joints: %w", err)
	}
	weights, err := modeler.ReadWeights(e.doc, e.doc.Accessors[prim.Attributes[gltf.WEIGHTS_0]], nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read weights: %w", err)
	}
	if len(joints) < vertexCount || len(weights) < vertexCount {
		return nil, nil, fmt.Errorf("influence count %d/%d below vertex count %d", len(joints), len(weights), vertexCount)
	}

	jointIndices := make([]int, vertexCount*gltfJointsPerVertex)
	jointWeights := make([]float32, vertexCount*gltfJointsPerVertex)
	order := make([]int, gltfJointsPerVertex)

	for v := 0; v < vertexCount; v++ {
		for k := range order {
			order[k] = k
		}
		w := weights[v]
		sort.SliceStable(order, func(a, b int) bool { return w[order[a]] > w[order[b]] })

		for k, src := range order {
			old := int(joints[v][src])
			if old >= len(oldToNew) {
				return nil, nil, fmt.Errorf("vertex %d: joint %d out of range (%d joints)", v, old, len(oldToNew))
			}
			jointIndices[v*gltfJointsPerVertex+k] = oldToNew[old]
			jointWeights[v*gltfJointsPerVertex+k] = w[src]
		}
	}

	return jointIndices, jointWeights, nil
}

// gltfIsSkinnedPrimitive reports whether a primitive carries both skinning attributes.
func gltfIsSkinnedPrimitive(prim *gltf.Primitive) bool {
	_, hasJoints := prim.Attributes[gltf.JOINTS_0]
	_, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
	return hasJoints && hasWeights
}

// vertexVec3 reads three floats of vertex i at the given attribute offset.
func vertexVec3(vertices []float32, i, offset int) mgl32.Vec3 {
	base := i*skinning.VertexStride + offset
	return mgl32.Vec3{vertices[base], vertices[base+1], vertices[base+2]}
}

// setVertexVec3 writes three floats of vertex i at the given attribute offset.
func setVertexVec3(vertices []float32, i, offset int, v mgl32.Vec3) {
	copy(vertices[i*skinning.VertexStride+offset:], v[:])
}

// generateNormals computes smooth vertex normals when the primitive has no NORMAL attribute.
// Face normals are accumulated unnormalized, so larger triangles contribute more.
//
// Parameters:
//   - vertices: flat vertex data to write normals into
//   - indices: the triangle index buffer
func generateNormals(vertices []float32, indices []uint32) {
	n := len(vertices) / skinning.VertexStride
	accum := make([]mgl32.Vec3, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := int(indices[i]), int(indices[i+1]), int(indices[i+2])
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		p0 := vertexVec3(vertices, i0, skinning.PositionOffset)
		face := vertexVec3(vertices, i1, skinning.PositionOffset).Sub(p0).
			Cross(vertexVec3(vertices, i2, skinning.PositionOffset).Sub(p0))
		for _, idx := range [3]int{i0, i1, i2} {
			accum[idx] = accum[idx].Add(face)
		}
	}

	for i, a := range accum {
		if a.Len() < 1e-6 {
			setVertexVec3(vertices, i, skinning.NormalOffset, mgl32.Vec3{0, 1, 0})
			continue
		}
		setVertexVec3(vertices, i, skinning.NormalOffset, a.Normalize())
	}
}

// generateTangents derives per-vertex tangents from UV gradients and orthonormalizes them
// against the vertex normal. Vertices without usable UVs get a tangent perpendicular to the normal.
//
// Parameters:
//   - vertices: flat vertex data to write tangents into
//   - indices: the triangle index buffer
func generateTangents(vertices []float32, indices []uint32) {
	n := len(vertices) / skinning.VertexStride
	accum := make([]mgl32.Vec3, n)

	uv := func(i int) mgl32.Vec2 {
		base := i*skinning.VertexStride + skinning.UVOffset
		return mgl32.Vec2{vertices[base], vertices[base+1]}
	}

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := int(indices[i]), int(indices[i+1]), int(indices[i+2])
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		p0 := vertexVec3(vertices, i0, skinning.PositionOffset)
		edge1 := vertexVec3(vertices, i1, skinning.PositionOffset).Sub(p0)
		edge2 := vertexVec3(vertices, i2, skinning.PositionOffset).Sub(p0)
		duv1 := uv(i1).Sub(uv(i0))
		duv2 := uv(i2).Sub(uv(i0))

		det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
		if det == 0 {
			continue
		}
		t := edge1.Mul(duv2[1]).Sub(edge2.Mul(duv1[1])).Mul(1 / det)
		for _, idx := range [3]int{i0, i1, i2} {
			accum[idx] = accum[idx].Add(t)
		}
	}

	for i, t := range accum {
		normal := vertexVec3(vertices, i, skinning.NormalOffset)
		ortho := t.Sub(normal.Mul(normal.Dot(t)))
		if ortho.Len() < 1e-6 {
			ortho = fallbackTangent(normal)
		}
		setVertexVec3(vertices, i, skinning.TangentOffset, ortho.Normalize())
	}
}

// fallbackTangent picks any direction perpendicular to the normal.
func fallbackTangent(normal mgl32.Vec3) mgl32.Vec3 {
	axis := mgl32.Vec3{1, 0, 0}
	if mgl32.Abs(normal[0]) > 0.9 {
		axis = mgl32.Vec3{0, 1, 0}
	}
	return axis.Sub(normal.Mul(normal.Dot(axis)))
}
