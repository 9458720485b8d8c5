// Package descriptor rewrites tensor resource bindings into the
// buffer-backed bindings the baseline driver understands.
//
// The layer intercepts descriptor-set layout creation, write-descriptor
// updates and descriptor-pool sizing before forwarding them down the
// dispatch chain. Every binding of the tensor descriptor type becomes a
// uniform buffer carrying the tensor's metadata; in dual-buffer mode a
// storage buffer at a fixed binding offset additionally carries the raw
// tensor payload, for backends that cannot alias tensor memory behind a
// single binding.
//
// Substitution is stateless across calls. Concurrent calls on distinct
// descriptor objects are safe; mutating the same descriptor set or pool
// concurrently requires external synchronization, exactly as the
// baseline API already demands.
package descriptor

import (
	"k8s.io/klog/v2"

	"github.com/arm/ai-ml-emulation-layer-for-vulkan/vk"
)

// Mode selects the backend substitution strategy. It is fixed at build
// configuration time, not per call.
type Mode uint8

const (
	// ModePrimary substitutes each tensor binding with a single
	// uniform buffer at the same slot.
	ModePrimary Mode = iota

	// ModeDualBuffer additionally binds the raw tensor payload as a
	// storage buffer at the original slot plus the binding offset.
	ModeDualBuffer
)

// DefaultBindingOffset is the default slot distance between a tensor's
// metadata binding and its dual-buffer payload binding. It must exceed
// the highest binding number application set layouts use.
const DefaultBindingOffset = 256

// TensorView resolves a layer-created tensor view to the buffers
// backing it. The memory allocation behind the buffers is owned by the
// surrounding layer.
type TensorView interface {
	// DescriptorBuffer returns the buffer holding the tensor's
	// metadata descriptor for the given device.
	DescriptorBuffer(dev vk.Device) vk.Buffer

	// TensorBuffer returns the buffer holding the raw tensor payload.
	TensorBuffer() vk.Buffer
}

// Options configures a Substitutor.
type Options struct {
	// Mode selects the backend substitution strategy.
	Mode Mode

	// BindingOffset is the dual-buffer payload binding offset. Zero
	// selects DefaultBindingOffset.
	BindingOffset uint32
}

// DefaultOptions returns the primary-mode configuration.
func DefaultOptions() Options {
	return Options{Mode: ModePrimary, BindingOffset: DefaultBindingOffset}
}

// Substitutor rewrites resource-binding requests. It holds only its
// configuration and is safe for concurrent use.
type Substitutor struct {
	mode   Mode
	offset uint32
}

// New creates a Substitutor with the given options.
func New(opts Options) *Substitutor {
	offset := opts.BindingOffset
	if offset == 0 {
		offset = DefaultBindingOffset
	}
	return &Substitutor{mode: opts.Mode, offset: offset}
}

// LayoutBindings rewrites a set layout's binding array, replacing every
// tensor binding with its buffer-backed substitute. The input slice is
// not modified; bindingInfo's flags are updated in place to drop
// update-after-bind from rewritten slots, since the synthesized buffer
// bindings do not support it.
func (s *Substitutor) LayoutBindings(bindings []vk.DescriptorSetLayoutBinding,
	bindingInfo *vk.DescriptorSetLayoutBindingFlagsCreateInfo) []vk.DescriptorSetLayoutBinding {

	out := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	copy(out, bindings)

	for i, b := range bindings {
		if b.DescriptorType != vk.DescriptorTypeTensorARM {
			continue
		}
		out[i].DescriptorType = vk.DescriptorTypeUniformBuffer

		if s.mode == ModeDualBuffer {
			out = append(out, vk.DescriptorSetLayoutBinding{
				Binding:         b.Binding + s.offset,
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				DescriptorCount: b.DescriptorCount,
				StageFlags:      b.StageFlags,
			})
		}

		if bindingInfo != nil && i < len(bindingInfo.BindingFlags) {
			bindingInfo.BindingFlags[i] &^= vk.DescriptorBindingUpdateAfterBind
		}
	}

	klog.V(3).Infof("layout substitution: %d bindings in, %d out", len(bindings), len(out))
	return out
}

// Writes rewrites a write-descriptor batch. Each write targeting a
// tensor binding expands into one buffer write per attached tensor
// view, preserving the destination set and incrementing the array
// element by the view index; dual-buffer mode emits a second write per
// view at the payload binding. Non-tensor writes pass through, except
// that the layer-only tensor-aliasing image layout is rewritten to the
// general layout.
//
// On error no writes are returned; a partially rewritten batch must
// never reach the driver.
func (s *Substitutor) Writes(dev vk.Device, writes []vk.WriteDescriptorSet) ([]vk.WriteDescriptorSet, error) {
	out := make([]vk.WriteDescriptorSet, 0, len(writes))

	for i := range writes {
		write := writes[i]
		if write.DescriptorType != vk.DescriptorTypeTensorARM {
			out = append(out, rewriteImageLayout(write))
			continue
		}

		tensorInfo, ok := vk.FindType[*vk.WriteDescriptorSetTensorARM](write.Next)
		if !ok {
			return nil, errorf(ErrMissingTensorInfo,
				"write descriptor for binding %d is missing tensor descriptor info", write.DstBinding)
		}

		for j, raw := range tensorInfo.TensorViews {
			view, ok := raw.(TensorView)
			if !ok {
				return nil, errorf(ErrInvalidTensorView,
					"tensor view %d of binding %d was not created by this layer", j, write.DstBinding)
			}

			out = append(out, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          write.DstSet,
				DstBinding:      write.DstBinding,
				DstArrayElement: write.DstArrayElement + uint32(j),
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				BufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: view.DescriptorBuffer(dev),
					Range:  vk.WholeSize,
				}},
			})

			if s.mode == ModeDualBuffer {
				out = append(out, vk.WriteDescriptorSet{
					SType:           vk.StructureTypeWriteDescriptorSet,
					DstSet:          write.DstSet,
					DstBinding:      write.DstBinding + s.offset,
					DstArrayElement: write.DstArrayElement + uint32(j),
					DescriptorCount: 1,
					DescriptorType:  vk.DescriptorTypeStorageBuffer,
					BufferInfo: []vk.DescriptorBufferInfo{{
						Buffer: view.TensorBuffer(),
						Range:  vk.WholeSize,
					}},
				})
			}
		}
	}

	return out, nil
}

// rewriteImageLayout clears the layer-only tensor-aliasing layout from
// an image write before it is forwarded.
func rewriteImageLayout(write vk.WriteDescriptorSet) vk.WriteDescriptorSet {
	if len(write.ImageInfo) == 0 || write.ImageInfo[0].ImageLayout != vk.ImageLayoutTensorAliasingARM {
		return write
	}
	infos := make([]vk.DescriptorImageInfo, len(write.ImageInfo))
	copy(infos, write.ImageInfo)
	for i := range infos {
		if infos[i].ImageLayout == vk.ImageLayoutTensorAliasingARM {
			infos[i].ImageLayout = vk.ImageLayoutGeneral
		}
	}
	write.ImageInfo = infos
	return write
}

// PoolSizes rewrites a descriptor pool's size list, removing tensor
// entries and folding their counts into the uniform buffer entry,
// creating it if absent. Dual-buffer mode folds the same count into the
// storage buffer entry as well. Folding matches by descriptor type
// only; the first match wins.
func (s *Substitutor) PoolSizes(poolSizes []vk.DescriptorPoolSize) []vk.DescriptorPoolSize {
	out := make([]vk.DescriptorPoolSize, 0, len(poolSizes))
	tensorCount := uint32(0)

	for _, size := range poolSizes {
		if size.Type == vk.DescriptorTypeTensorARM {
			tensorCount += size.DescriptorCount
			continue
		}
		out = append(out, size)
	}

	if tensorCount == 0 {
		return out
	}

	out = foldPoolSize(out, vk.DescriptorTypeUniformBuffer, tensorCount)
	if s.mode == ModeDualBuffer {
		out = foldPoolSize(out, vk.DescriptorTypeStorageBuffer, tensorCount)
	}
	return out
}

func foldPoolSize(sizes []vk.DescriptorPoolSize, t vk.DescriptorType, count uint32) []vk.DescriptorPoolSize {
	for i := range sizes {
		if sizes[i].Type == t {
			sizes[i].DescriptorCount += count
			return sizes
		}
	}
	return append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: count})
}
