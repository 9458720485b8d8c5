// Package vk mirrors the slice of the Vulkan API surface the emulation
// layer rewrites: descriptor-set layout bindings, write-descriptor
// updates and descriptor-pool sizes, plus the tensor extension
// structures the layer consumes before forwarding calls down the chain.
//
// The structs keep the field order of the C API so rewritten calls can
// be lowered back onto the wire unchanged. Pointer-plus-count pairs
// become slices; pNext chains become Next fields walked by FindType.
package vk

// Handles are opaque dispatchable/non-dispatchable object references.
// The layer never dereferences them, it only moves them between call
// argument structures.
type (
	Device        uint64
	Buffer        uint64
	BufferView    uint64
	Sampler       uint64
	ImageView     uint64
	DescriptorSet uint64
)

// WholeSize covers the remaining range of a buffer binding (VK_WHOLE_SIZE).
const WholeSize = ^uint64(0)

// DescriptorType identifies what a descriptor binding holds.
type DescriptorType uint32

const (
	DescriptorTypeSampler              DescriptorType = 0
	DescriptorTypeCombinedImageSampler DescriptorType = 1
	DescriptorTypeSampledImage         DescriptorType = 2
	DescriptorTypeStorageImage         DescriptorType = 3
	DescriptorTypeUniformTexelBuffer   DescriptorType = 4
	DescriptorTypeStorageTexelBuffer   DescriptorType = 5
	DescriptorTypeUniformBuffer        DescriptorType = 6
	DescriptorTypeStorageBuffer        DescriptorType = 7
	DescriptorTypeUniformBufferDynamic DescriptorType = 8
	DescriptorTypeStorageBufferDynamic DescriptorType = 9
	DescriptorTypeInputAttachment      DescriptorType = 10

	// DescriptorTypeTensorARM is the tensor binding type introduced by
	// the tensor extension. The baseline driver underneath the layer
	// does not recognize it; every occurrence must be substituted
	// before forwarding.
	DescriptorTypeTensorARM DescriptorType = 1000460002
)

// ImageLayout identifies an image's memory layout.
type ImageLayout uint32

const (
	ImageLayoutUndefined ImageLayout = 0
	ImageLayoutGeneral   ImageLayout = 1

	// ImageLayoutTensorAliasingARM is a layer-only layout used when an
	// image aliases tensor memory. It must never reach the driver.
	ImageLayoutTensorAliasingARM ImageLayout = 1000460000
)

// StructureType tags a wire structure for pNext-chain identification.
type StructureType uint32

const (
	StructureTypeWriteDescriptorSet                        StructureType = 35
	StructureTypeDescriptorSetLayoutCreateInfo             StructureType = 32
	StructureTypeDescriptorPoolCreateInfo                  StructureType = 33
	StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo StructureType = 1000161000
	StructureTypeWriteDescriptorSetTensorARM               StructureType = 1000460001
)

// ShaderStageFlags is a bitmask of pipeline stages a binding is visible to.
type ShaderStageFlags uint32

const (
	ShaderStageCompute ShaderStageFlags = 0x20
	ShaderStageAll     ShaderStageFlags = 0x7FFFFFFF
)

// DescriptorBindingFlags is a bitmask of per-binding behaviour flags.
type DescriptorBindingFlags uint32

// DescriptorBindingUpdateAfterBind allows descriptor updates after the
// set is bound. Synthesized buffer bindings do not support it.
const DescriptorBindingUpdateAfterBind DescriptorBindingFlags = 0x1

// Format identifies an element format (VkFormat).
type Format uint32

const (
	FormatUndefined Format = 0

	FormatR8Uint  Format = 13
	FormatR8Sint  Format = 14
	FormatR16Uint Format = 74
	FormatR16Sint Format = 75
	FormatR16F    Format = 76
	FormatR32Uint Format = 98
	FormatR32Sint Format = 99
	FormatR32F    Format = 100
	FormatR64Uint Format = 110
	FormatR64Sint Format = 111
	FormatR64F    Format = 112

	// FormatR8BoolARM is the boolean element format added by the
	// tensor extension.
	FormatR8BoolARM Format = 1000460000
)

// DescriptorSetLayoutBinding describes one binding slot in a set layout.
type DescriptorSetLayoutBinding struct {
	Binding           uint32
	DescriptorType    DescriptorType
	DescriptorCount   uint32
	StageFlags        ShaderStageFlags
	ImmutableSamplers []Sampler
}

// DescriptorSetLayoutBindingFlagsCreateInfo carries per-binding flags,
// parallel to the binding array of the layout create info.
type DescriptorSetLayoutBindingFlagsCreateInfo struct {
	SType        StructureType
	Next         any
	BindingFlags []DescriptorBindingFlags
}

// NextExtension implements Extension.
func (c *DescriptorSetLayoutBindingFlagsCreateInfo) NextExtension() any { return c.Next }

// DescriptorBufferInfo points a buffer-backed descriptor at a buffer range.
type DescriptorBufferInfo struct {
	Buffer Buffer
	Offset uint64
	Range  uint64
}

// DescriptorImageInfo points an image-backed descriptor at an image view.
type DescriptorImageInfo struct {
	Sampler     Sampler
	ImageView   ImageView
	ImageLayout ImageLayout
}

// WriteDescriptorSet describes one descriptor update.
type WriteDescriptorSet struct {
	SType           StructureType
	Next            any
	DstSet          DescriptorSet
	DstBinding      uint32
	DstArrayElement uint32
	DescriptorCount uint32
	DescriptorType  DescriptorType
	ImageInfo       []DescriptorImageInfo
	BufferInfo      []DescriptorBufferInfo
	TexelBufferView []BufferView
}

// NextExtension implements Extension.
func (w *WriteDescriptorSet) NextExtension() any { return w.Next }

// WriteDescriptorSetTensorARM is the extension structure attaching
// tensor views to a write that targets a tensor binding. TensorViews
// holds layer-created view objects; the layer casts them back to its
// own view type when substituting the write.
type WriteDescriptorSetTensorARM struct {
	SType       StructureType
	Next        any
	TensorViews []any
}

// NextExtension implements Extension.
func (w *WriteDescriptorSetTensorARM) NextExtension() any { return w.Next }

// DescriptorPoolSize reserves capacity for one descriptor type in a pool.
type DescriptorPoolSize struct {
	Type            DescriptorType
	DescriptorCount uint32
}

// Extension is implemented by every structure that can appear on an
// extension (pNext) chain.
type Extension interface {
	NextExtension() any
}

// FindType walks an extension chain and returns the first structure of
// type T, or false if the chain does not carry one.
func FindType[T Extension](chain any) (T, bool) {
	for chain != nil {
		if t, ok := chain.(T); ok {
			return t, true
		}
		ext, ok := chain.(Extension)
		if !ok {
			break
		}
		chain = ext.NextExtension()
	}
	var zero T
	return zero, false
}
