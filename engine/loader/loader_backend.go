package loader

import (
	"io"

	"github.com/qmuntal/gltf"
)

// loaderBackend defines the generic interface for importing rigs from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a full rig import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Rig: the imported rig
	//   - error: error if loading fails
	Load(path string) (*Rig, error)

	// LoadReader imports a rig from a reader stream. Relative buffer URIs are resolved against dir.
	//
	// Parameters:
	//   - name: fallback rig name
	//   - r: the reader providing glTF or GLB data
	//   - dir: directory used to resolve external buffers
	//
	// Returns:
	//   - *Rig: the imported rig
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, dir string) (*Rig, error)

	// LoadDocument imports a rig from an already decoded document.
	//
	// Parameters:
	//   - name: fallback rig name
	//   - doc: the decoded document
	//
	// Returns:
	//   - *Rig: the imported rig
	//   - error: error if extraction fails
	LoadDocument(name string, doc *gltf.Document) (*Rig, error)
}
