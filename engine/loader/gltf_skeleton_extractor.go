package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	doc *gltf.Document

	// parents maps every node to its parent node, -1 for scene roots.
	parents []int
}

// gltfSkeletonExtractor defines the interface for extracting skeleton data from a decoded glTF document.
// It converts a glTF skin into a skeleton.Skeleton with topologically sorted joints.
type gltfSkeletonExtractor interface {
	// ExtractSkeletonWithMapping extracts a skeleton and returns the old-to-new joint index mapping.
	// The mapping translates skin joint order into sorted skeleton order and is needed to
	// remap mesh joint indices.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *skeleton.Skeleton: the extracted skeleton
	//   - []int: old joint index to new joint index
	//   - error: error if extraction fails
	ExtractSkeletonWithMapping(skinIndex int) (*skeleton.Skeleton, []int, error)

	// FindSkinForMesh finds which skin is bound to a node instancing the mesh.
	// Returns -1 if no skin is found.
	//
	// Parameters:
	//   - meshIndex: the mesh index to find a skin for
	//
	// Returns:
	//   - int: the skin index, or -1 if none
	FindSkinForMesh(meshIndex int) int
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(doc *gltf.Document) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{
		doc:     doc,
		parents: gltfNodeParents(doc),
	}
}

func (e *gltfSkeletonExtractorImpl) FindSkinForMesh(meshIndex int) int {
	for _, node := range e.doc.Nodes {
		if node.Mesh != nil && int(*node.Mesh) == meshIndex && node.Skin != nil {
			return int(*node.Skin)
		}
	}
	return -1
}

func (e *gltfSkeletonExtractorImpl) ExtractSkeletonWithMapping(skinIndex int) (*skeleton.Skeleton, []int, error) {
	if skinIndex < 0 || skinIndex >= len(e.doc.Skins) {
		return nil, nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}
	skin := e.doc.Skins[skinIndex]
	if len(skin.Joints) == 0 {
		return nil, nil, fmt.Errorf("skin %d: %w", skinIndex, skeleton.ErrEmptySkeleton)
	}

	for i, nodeIdx := range skin.Joints {
		if int(nodeIdx) >= len(e.doc.Nodes) {
			return nil, nil, fmt.Errorf("skin %d joint %d: node %d: %w", skinIndex, i, nodeIdx, ErrNodeIndex)
		}
	}

	inverseBindMatrices, err := e.inverseBindMatrices(skin)
	if err != nil {
		return nil, nil, fmt.Errorf("skin %d: %w", skinIndex, err)
	}

	joints := make([]skeleton.Joint, len(skin.Joints))
	nodeToJoint := make(map[int]int, len(skin.Joints))
	names := make(map[string]bool, len(skin.Joints))

	for i, nodeIdx := range skin.Joints {
		nodeToJoint[int(nodeIdx)] = i

		// Duplicate node names are legal in glTF but not in a skeleton.
		name := common.Coalesce(e.doc.Nodes[nodeIdx].Name, fmt.Sprintf("joint_%d", i))
		if names[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		names[name] = true

		joints[i] = skeleton.Joint{
			Name:            name,
			ParentIndex:     -1,
			InverseBindPose: inverseBindMatrices[i],
		}
	}

	// The nearest joint ancestor becomes the parent; intermediate non-joint nodes are skipped.
	var roots []int
	for i, nodeIdx := range skin.Joints {
		for p, steps := e.parents[nodeIdx], 0; p >= 0 && steps < len(e.parents); p, steps = e.parents[p], steps+1 {
			if parent, ok := nodeToJoint[p]; ok {
				joints[i].ParentIndex = parent
				break
			}
		}
		if joints[i].ParentIndex < 0 {
			roots = append(roots, i)
		}
	}

	sorted, oldToNew := gltfTopologicalSortJoints(joints, roots)

	skel, err := skeleton.NewSkeleton(skeleton.WithJoints(sorted))
	if err != nil {
		return nil, nil, fmt.Errorf("skin %d: %w", skinIndex, err)
	}
	return skel, oldToNew, nil
}

// inverseBindMatrices reads the skin's inverse bind matrices. Skins without the accessor get
// the inverse of each joint's world transform in the node hierarchy, so a rig exported without
// bind data deforms nothing in its rest pose. glTF 2.0 says such skins use identity matrices
// instead; assets that rely on that get a different bind pose here.
func (e *gltfSkeletonExtractorImpl) inverseBindMatrices(skin *gltf.Skin) ([]mgl32.Mat4, error) {
	out := make([]mgl32.Mat4, len(skin.Joints))

	if skin.InverseBindMatrices != nil {
		if int(*skin.InverseBindMatrices) >= len(e.doc.Accessors) {
			return nil, fmt.Errorf("inverse bind matrices: accessor %d out of range", *skin.InverseBindMatrices)
		}
		data, err := modeler.ReadAccessor(e.doc, e.doc.Accessors[*skin.InverseBindMatrices], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
		mats, ok := data.([][4][4]float32)
		if !ok {
			return nil, fmt.Errorf("inverse bind matrices: unsupported accessor data %T", data)
		}
		if len(mats) < len(skin.Joints) {
			return nil, fmt.Errorf("inverse bind matrices: %d matrices for %d joints", len(mats), len(skin.Joints))
		}
		for i := range out {
			// The accessor yields [row][col]; mgl32 stores columns.
			for c := 0; c < 4; c++ {
				for r := 0; r < 4; r++ {
					out[i][c*4+r] = mats[i][r][c]
				}
			}
		}
		return out, nil
	}

	world := make(map[int]mgl32.Mat4, len(skin.Joints))
	for i, nodeIdx := range skin.Joints {
		w, err := e.worldMatrix(int(nodeIdx), world)
		if err != nil {
			return nil, fmt.Errorf("joint %d: %w", i, err)
		}
		if w.Det() == 0 {
			return nil, fmt.Errorf("joint %d: singular bind transform", i)
		}
		out[i] = w.Inv()
	}
	return out, nil
}

// worldMatrix composes the node's local transform with all of its ancestors, memoizing into cache.
// A parent chain longer than the node count can only be a cycle and yields ErrNodeCycle.
func (e *gltfSkeletonExtractorImpl) worldMatrix(nodeIdx int, cache map[int]mgl32.Mat4) (mgl32.Mat4, error) {
	var chain []int
	world := mgl32.Ident4()
	for n := nodeIdx; n >= 0; n = e.parents[n] {
		if cached, ok := cache[n]; ok {
			world = cached
			break
		}
		if len(chain) >= len(e.doc.Nodes) {
			return mgl32.Mat4{}, fmt.Errorf("node %d: %w", nodeIdx, ErrNodeCycle)
		}
		chain = append(chain, n)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		world = world.Mul4(gltfNodeLocalMatrix(e.doc.Nodes[n]))
		cache[n] = world
	}
	return world, nil
}

// --- Helper Functions ---

// gltfNodeParents inverts the node child lists into a parent table.
func gltfNodeParents(doc *gltf.Document) []int {
	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, node := range doc.Nodes {
		for _, child := range node.Children {
			if int(child) < len(parents) {
				parents[child] = i
			}
		}
	}
	return parents
}

// gltfNodeLocalMatrix returns the node's local transform, preferring an explicit matrix over TRS.
// Zero rotation or scale values are treated as unset.
func gltfNodeLocalMatrix(node *gltf.Node) mgl32.Mat4 {
	if m := node.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return mgl32.Mat4(m)
	}

	rotation := node.Rotation
	if rotation == ([4]float32{}) {
		rotation = [4]float32{0, 0, 0, 1}
	}
	scale := node.Scale
	if scale == ([3]float32{}) {
		scale = [3]float32{1, 1, 1}
	}

	q := mgl32.Quat{W: rotation[3], V: mgl32.Vec3{rotation[0], rotation[1], rotation[2]}}
	return mgl32.Translate3D(node.Translation[0], node.Translation[1], node.Translation[2]).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}

// gltfTopologicalSortJoints orders joints breadth-first from the roots so that every parent precedes its
// children, and rewrites parent indices into the new order.
//
// Parameters:
//   - joints: joints in skin order with skin-order parent indices
//   - roots: indices of joints without a parent
//
// Returns:
//   - []skeleton.Joint: sorted joints with updated parent indices
//   - []int: old joint index to new joint index
func gltfTopologicalSortJoints(joints []skeleton.Joint, roots []int) ([]skeleton.Joint, []int) {
	children := make(map[int][]int)
	for i, j := range joints {
		if j.ParentIndex >= 0 {
			children[j.ParentIndex] = append(children[j.ParentIndex], i)
		}
	}

	sorted := make([]int, 0, len(joints))
	queue := append([]int(nil), roots...)
	for len(queue) > 0 {
		old := queue[0]
		queue = queue[1:]
		sorted = append(sorted, old)
		queue = append(queue, children[old]...)
	}

	// Joints caught in a parent cycle are never reached from a root; keep them so validation reports it.
	if len(sorted) < len(joints) {
		visited := make([]bool, len(joints))
		for _, idx := range sorted {
			visited[idx] = true
		}
		for i := range joints {
			if !visited[i] {
				sorted = append(sorted, i)
			}
		}
	}

	oldToNew := make([]int, len(joints))
	for newIdx, oldIdx := range sorted {
		oldToNew[oldIdx] = newIdx
	}

	out := make([]skeleton.Joint, len(joints))
	for newIdx, oldIdx := range sorted {
		j := joints[oldIdx]
		if j.ParentIndex >= 0 {
			j.ParentIndex = oldToNew[j.ParentIndex]
		}
		out[newIdx] = j
	}
	return out, oldToNew
}
