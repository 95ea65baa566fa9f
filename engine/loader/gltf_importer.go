package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-skin/common"

	"github.com/qmuntal/gltf"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter defines the interface for orchestrating a full glTF/GLB import.
// It decodes the document and runs the skeleton, mesh and animation extractors to produce a Rig.
type gltfImporter interface {
	// Import opens a glTF/GLB file and extracts a rig from it.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *Rig: the imported rig
	//   - error: error if import fails
	Import(path string) (*Rig, error)

	// ImportReader decodes a glTF JSON or GLB stream and extracts a rig from it.
	//
	// Parameters:
	//   - name: fallback rig name
	//   - r: the reader providing glTF/GLB data
	//   - dir: directory used to resolve relative buffer URIs
	//
	// Returns:
	//   - *Rig: the imported rig
	//   - error: error if import fails
	ImportReader(name string, r io.Reader, dir string) (*Rig, error)

	// ImportDocument extracts a rig from a decoded document.
	//
	// Parameters:
	//   - name: fallback rig name
	//   - doc: the decoded document
	//
	// Returns:
	//   - *Rig: the imported rig
	//   - error: error if import fails
	ImportDocument(name string, doc *gltf.Document) (*Rig, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(path string) (*Rig, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return imp.importDocument(doc, name)
}

func (imp *gltfImporterImpl) ImportReader(name string, r io.Reader, dir string) (*Rig, error) {
	var doc gltf.Document
	dec := gltf.NewDecoderFS(r, os.DirFS(common.Coalesce(dir, ".")))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", name, err)
	}
	return imp.importDocument(&doc, name)
}

func (imp *gltfImporterImpl) ImportDocument(name string, doc *gltf.Document) (*Rig, error) {
	if doc == nil {
		return nil, fmt.Errorf("%q: nil document", name)
	}
	return imp.importDocument(doc, name)
}

// importDocument extracts the first skinned mesh's skin, every mesh bound to it and the animations
// targeting its joints.
func (imp *gltfImporterImpl) importDocument(doc *gltf.Document, fallbackName string) (*Rig, error) {
	if len(doc.Skins) == 0 {
		return nil, fmt.Errorf("%q: %w", fallbackName, ErrNoSkin)
	}

	skeletonExtractor := newGLTFSkeletonExtractor(doc)
	meshExtractor := newGLTFMeshExtractor(doc)
	animationExtractor := newGLTFAnimationExtractor(doc)

	// Prefer the skin bound to the first skinned mesh; most assets carry a single skin.
	skinIndex := 0
	for i := range doc.Meshes {
		if si := skeletonExtractor.FindSkinForMesh(i); si >= 0 {
			skinIndex = si
			break
		}
	}

	skel, oldToNew, err := skeletonExtractor.ExtractSkeletonWithMapping(skinIndex)
	if err != nil {
		return nil, fmt.Errorf("skeleton extraction failed: %w", err)
	}

	meshes, indices, err := meshExtractor.ExtractSkinnedMeshes(skinIndex, oldToNew)
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	// skin.Joints[i] is the node of skin-order joint i; oldToNew[i] is its skeleton index.
	jointMapping := make(map[uint32]int, len(oldToNew))
	for oldIdx, nodeIdx := range doc.Skins[skinIndex].Joints {
		jointMapping[nodeIdx] = oldToNew[oldIdx]
	}

	clips, err := animationExtractor.ExtractAnimationsForSkeleton(jointMapping)
	if err != nil {
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}
	for _, c := range clips {
		if err := c.Validate(skel.NumJoints()); err != nil {
			return nil, fmt.Errorf("animation %q: %w", c.Name, err)
		}
	}

	rig := &Rig{
		Name:            gltfExtractRigName(doc, fallbackName),
		Skeleton:        skel,
		Meshes:          meshes,
		Indices:         indices,
		Clips:           clips,
		JointsPerVertex: gltfJointsPerVertex,
	}

	common.Logger().Info("loader: imported rig",
		"rig", rig.Name,
		"joints", skel.NumJoints(),
		"meshes", len(meshes),
		"clips", len(clips),
	)
	return rig, nil
}

// --- Helper Functions ---

// gltfExtractRigName derives a rig name from the default scene or falls back to the given name.
func gltfExtractRigName(doc *gltf.Document, fallbackName string) string {
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	return common.Coalesce(fallbackName, "unnamed_rig")
}
