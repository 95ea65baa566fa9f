package bind_group_provider

// SkinningUploaderOption is a functional option used to configure a SkinningUploader during construction.
type SkinningUploaderOption func(*skinningUploader)

// WithConstantBinding sets the storage buffer binding that receives joint matrices.
//
// Parameters:
//   - binding: the binding index
//
// Returns:
//   - SkinningUploaderOption: a function that sets the constant binding
func WithConstantBinding(binding int) SkinningUploaderOption {
	return func(u *skinningUploader) {
		u.binding = binding
	}
}
