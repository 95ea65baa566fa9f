package bind_group_provider

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"

	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultConstantBinding is the storage buffer binding that receives joint matrices.
const DefaultConstantBinding = 0

// skinningUploader is the implementation of the SkinningUploader interface.
type skinningUploader struct {
	mu sync.Mutex

	label   string
	layout  skinning.ConstantLayout
	binding int

	// providers holds one provider per mesh, created the first time the mesh stages data.
	providers map[skinning.MeshID]BindGroupProvider

	// pending holds constant writes not yet claimed by an ActivateJointStreams call.
	pending []BufferWrite
	writes  []BufferWrite
	streams []StreamWrite

	// activeSlots are the vertex buffer slots each mesh's last flush wrote, bound by Apply.
	activeSlots map[skinning.MeshID][]int
}

// SkinningUploader stages the constants and joint streams produced by a GPU-skinning animator and
// writes them into per-mesh BindGroupProviders on flush, so meshes sharing one uploader keep
// separate buffers.
//
// The animator's GPU backend sets a mesh's constants and then activates that mesh's joint streams.
// Constants staged by SetVertexConstants belong to the mesh named by the next ActivateJointStreams.
//
// Constant registers map onto a storage buffer: register r starts at byte
// r * ScalarsPerRegister * 4. Joint streams occupy two consecutive vertex buffer slots: joint
// register indices (as floats) at the stream offset and weights at the slot after it.
type SkinningUploader interface {
	animator.ConstantUploader

	// Provider returns the provider that receives a mesh's staged data.
	//
	// Parameters:
	//   - mesh: the mesh id
	//
	// Returns:
	//   - BindGroupProvider: the mesh's provider, or nil if the mesh never staged data
	Provider(mesh skinning.MeshID) BindGroupProvider

	// StagedWrites returns the constant writes claimed by a mesh and waiting for the next flush.
	//
	// Returns:
	//   - []BufferWrite: the pending writes in call order
	StagedWrites() []BufferWrite

	// StagedStreams returns the vertex stream writes waiting for the next flush.
	//
	// Returns:
	//   - []StreamWrite: the pending stream writes in call order
	StagedStreams() []StreamWrite

	// Flush creates or grows each mesh provider's buffers as needed and writes every staged upload
	// to the queue. Staging is cleared on success. Constants never claimed by a mesh are dropped.
	//
	// Parameters:
	//   - device: the device used to allocate buffers
	//   - queue: the queue that receives the writes
	//
	// Returns:
	//   - error: error if a buffer cannot be created
	Flush(device *wgpu.Device, queue *wgpu.Queue) error

	// Apply binds the mesh's vertex streams written by the last flush on a render pass.
	//
	// Parameters:
	//   - pass: the render pass encoder
	//   - mesh: the mesh about to be drawn
	Apply(pass *wgpu.RenderPassEncoder, mesh skinning.MeshID)

	// Reset discards all staged writes without uploading them.
	Reset()

	// Release discards staged writes and releases every mesh provider's GPU buffers.
	Release()
}

var _ SkinningUploader = &skinningUploader{}

// NewSkinningUploader creates an uploader whose mesh providers are labelled after label.
//
// Parameters:
//   - label: the debug label prefix for every provider and buffer the uploader creates
//   - layout: the constant layout used to convert registers into byte offsets
//   - options: a variadic list of SkinningUploaderOption functions
//
// Returns:
//   - SkinningUploader: the uploader
//   - error: error wrapping skinning.ErrInvalidLayout if the layout is invalid
func NewSkinningUploader(label string, layout skinning.ConstantLayout, options ...SkinningUploaderOption) (SkinningUploader, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	u := &skinningUploader{
		label:       label,
		layout:      layout,
		binding:     DefaultConstantBinding,
		providers:   make(map[skinning.MeshID]BindGroupProvider),
		activeSlots: make(map[skinning.MeshID][]int),
	}
	for _, opt := range options {
		opt(u)
	}
	return u, nil
}

func (u *skinningUploader) Provider(mesh skinning.MeshID) BindGroupProvider {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.providers[mesh]
}

// providerFor returns the mesh's provider, creating it on first use. Callers hold u.mu.
func (u *skinningUploader) providerFor(mesh skinning.MeshID) BindGroupProvider {
	p, ok := u.providers[mesh]
	if !ok {
		p = NewBindGroupProvider(fmt.Sprintf("%s %s", u.label, mesh))
		u.providers[mesh] = p
	}
	return p
}

func (u *skinningUploader) SetVertexConstants(registerOffset int, data []float32, numRegisters int) {
	n := min(u.layout.RegisterToBuffer(numRegisters), len(data))
	staged := make([]float32, n)
	copy(staged, data[:n])

	u.mu.Lock()
	defer u.mu.Unlock()
	u.pending = append(u.pending, BufferWrite{
		Binding: u.binding,
		Offset:  uint64(u.layout.RegisterToBuffer(registerOffset) * 4),
		Data:    common.SliceToBytes(staged),
	})
}

func (u *skinningUploader) ActivateJointStreams(streamOffset int, mesh *skinning.MeshSkin, indices []int) {
	indexStream := make([]float32, len(indices))
	for i, idx := range indices {
		indexStream[i] = float32(idx)
	}
	weightStream := slices.Clone(mesh.JointWeights())

	u.mu.Lock()
	defer u.mu.Unlock()
	p := u.providerFor(mesh.ID())
	for _, w := range u.pending {
		w.Provider = p
		w.Mesh = mesh.ID()
		u.writes = append(u.writes, w)
	}
	u.pending = u.pending[:0]

	u.streams = append(u.streams,
		StreamWrite{Provider: p, Slot: streamOffset, Mesh: mesh.ID(), Data: common.SliceToBytes(indexStream)},
		StreamWrite{Provider: p, Slot: streamOffset + 1, Mesh: mesh.ID(), Data: common.SliceToBytes(weightStream)},
	)
}

func (u *skinningUploader) StagedWrites() []BufferWrite {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Clone(u.writes)
}

func (u *skinningUploader) StagedStreams() []StreamWrite {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Clone(u.streams)
}

func (u *skinningUploader) Flush(device *wgpu.Device, queue *wgpu.Queue) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.pending) > 0 {
		common.Logger().Warn("dropping constants staged without joint streams", "uploader", u.label, "writes", len(u.pending))
		u.pending = u.pending[:0]
	}

	constantSizes := make(map[skinning.MeshID]uint64)
	for _, w := range u.writes {
		constantSizes[w.Mesh] = max(constantSizes[w.Mesh], w.End())
	}
	for mesh, size := range constantSizes {
		p := u.providers[mesh]
		if size <= p.BufferSize(u.binding) {
			continue
		}
		buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.Label() + " Joint Constants",
			Size:  size,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create constant buffer for %q: %w", p.Label(), err)
		}
		p.SetBuffer(u.binding, buf, size)
	}
	for _, w := range u.writes {
		queue.WriteBuffer(w.Provider.Buffer(w.Binding), w.Offset, w.Data)
	}

	for _, s := range u.streams {
		if len(s.Data) > 0 {
			u.activeSlots[s.Mesh] = u.activeSlots[s.Mesh][:0]
		}
	}
	for _, s := range u.streams {
		size := uint64(len(s.Data))
		if size == 0 {
			continue
		}
		if size > s.Provider.VertexBufferSize(s.Slot) {
			buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Joint Stream %d", s.Provider.Label(), s.Slot),
				Size:  size,
				Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("create stream buffer %d for %q: %w", s.Slot, s.Provider.Label(), err)
			}
			s.Provider.SetVertexBuffer(s.Slot, buf, size)
		}
		queue.WriteBuffer(s.Provider.VertexBuffer(s.Slot), 0, s.Data)
		if !slices.Contains(u.activeSlots[s.Mesh], s.Slot) {
			u.activeSlots[s.Mesh] = append(u.activeSlots[s.Mesh], s.Slot)
		}
	}
	for _, slots := range u.activeSlots {
		slices.Sort(slots)
	}

	u.writes = u.writes[:0]
	u.streams = u.streams[:0]
	return nil
}

func (u *skinningUploader) Apply(pass *wgpu.RenderPassEncoder, mesh skinning.MeshID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p := u.providers[mesh]
	if p == nil {
		return
	}
	for _, slot := range u.activeSlots[mesh] {
		pass.SetVertexBuffer(uint32(slot), p.VertexBuffer(slot), 0, wgpu.WholeSize)
	}
}

func (u *skinningUploader) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pending = u.pending[:0]
	u.writes = u.writes[:0]
	u.streams = u.streams[:0]
}

func (u *skinningUploader) Release() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pending = u.pending[:0]
	u.writes = u.writes[:0]
	u.streams = u.streams[:0]
	for mesh, p := range u.providers {
		p.Release()
		delete(u.providers, mesh)
		delete(u.activeSlots, mesh)
	}
}
