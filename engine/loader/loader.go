// Package loader imports skinned rigs (skeleton, meshes and animation clips) from glTF 2.0 assets.
package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/qmuntal/gltf"
)

var (
	// ErrNoSkin is returned when an asset has no skin to build a skeleton from.
	ErrNoSkin = errors.New("loader: asset has no skin")

	// ErrUnsupportedFormat is returned when a file extension has no loader backend.
	ErrUnsupportedFormat = errors.New("loader: unsupported model format")

	// ErrNodeIndex is returned when a skin references a node the document does not have.
	ErrNodeIndex = errors.New("loader: node index out of range")

	// ErrNodeCycle is returned when the node hierarchy above a joint loops back on itself.
	ErrNodeCycle = errors.New("loader: node hierarchy contains a cycle")
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	rigCache map[string]*Rig

	backend loaderBackend
}

// Loader defines the public-facing interface for importing and caching rigs.
// It abstracts the file format behind a backend and keeps every loaded rig keyed by name.
// Rigs are shared: their skeletons are immutable, but callers must not mutate cached meshes
// from more than one goroutine.
type Loader interface {
	// Load imports a rig file and caches the result by path.
	// If the rig is already cached, the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb).
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *Rig: the loaded rig
	//   - error: error if loading fails
	Load(path string) (*Rig, error)

	// LoadReader imports a rig from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded rig
	//   - r: the reader providing glTF or GLB data
	//   - dir: directory used to resolve relative buffer URIs
	//
	// Returns:
	//   - *Rig: the loaded rig
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, dir string) (*Rig, error)

	// LoadDocument imports a rig from a decoded document and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded rig
	//   - doc: the decoded glTF document
	//
	// Returns:
	//   - *Rig: the loaded rig
	//   - error: error if extraction fails
	LoadDocument(name string, doc *gltf.Document) (*Rig, error)

	// Get retrieves a cached rig by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Rig: the cached rig or nil
	Get(name string) *Rig

	// Rigs returns a copy of the rig cache.
	//
	// Returns:
	//   - map[string]*Rig: all cached rigs keyed by name
	Rigs() map[string]*Rig
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:       sync.RWMutex{},
		rigCache: make(map[string]*Rig),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*Rig, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	rig, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, rig), nil
}

func (l *loader) LoadReader(name string, r io.Reader, dir string) (*Rig, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	rig, err := l.backend.LoadReader(name, r, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, rig), nil
}

func (l *loader) LoadDocument(name string, doc *gltf.Document) (*Rig, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	rig, err := l.backend.LoadDocument(name, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", name, err)
	}
	return l.store(name, rig), nil
}

func (l *loader) Get(name string) *Rig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rigCache[name]
}

func (l *loader) Rigs() map[string]*Rig {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Rig, len(l.rigCache))
	for k, v := range l.rigCache {
		result[k] = v
	}
	return result
}

// store caches a rig unless a concurrent load won the race, in which case the cached rig is returned.
func (l *loader) store(key string, rig *Rig) *Rig {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.rigCache[key]; ok {
		return cached
	}
	l.rigCache[key] = rig
	return rig
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
	}
}
