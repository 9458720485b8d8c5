package graph

import (
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/compute"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/spirv"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/vk"
)

// tensorSlots caches the paired read/write tensor views a binding can
// expose for one operand id.
const tensorSlots = 2

// tensorType resolves the OpTypeTensorARM instruction referenced by id,
// looking through constants, variables, pointers, arrays and structs.
// For struct types, index selects the member (read or write view).
func (p *Pass) tensorType(id uint32, index uint32) (*spirv.Instruction, error) {
	in := p.module.Def(id)
	for in != nil {
		switch in.Opcode {
		case spirv.OpTypeTensorARM:
			return in, nil
		case spirv.OpTypePointer:
			in = p.module.Def(in.Arg(1))
		case spirv.OpTypeArray, spirv.OpTypeRuntimeArray:
			in = p.module.Def(in.Arg(0))
		case spirv.OpTypeStruct:
			in = p.module.Def(in.Arg(int(index)))
		default:
			rt := in.ResultType()
			if rt == 0 {
				return nil, errorf(ErrInvalidModule,
					"id %%%d (opcode %d) does not reference a tensor type", id, in.Opcode)
			}
			in = p.module.Def(rt)
		}
	}
	return nil, errorf(ErrInvalidModule, "id %%%d does not reference a tensor type", id)
}

// tensorShapeID returns the shape constant id of a tensor type, or 0
// when the type declares no static shape.
func tensorShapeID(tensorType *spirv.Instruction) uint32 {
	if len(tensorType.Args()) < 3 {
		return 0
	}
	return tensorType.Arg(2)
}

// vkFormat maps a scalar element type to its descriptor format.
func (p *Pass) vkFormat(in *spirv.Instruction) (vk.Format, error) {
	if in == nil {
		return vk.FormatUndefined, errorf(ErrUnsupportedConstant, "element type has no definition")
	}
	switch in.Opcode {
	case spirv.OpTypeInt:
		width := in.Arg(0)
		signed := in.Arg(1) != 0
		switch width {
		case 8:
			if signed {
				return vk.FormatR8Sint, nil
			}
			return vk.FormatR8Uint, nil
		case 16:
			if signed {
				return vk.FormatR16Sint, nil
			}
			return vk.FormatR16Uint, nil
		case 32:
			if signed {
				return vk.FormatR32Sint, nil
			}
			return vk.FormatR32Uint, nil
		case 64:
			if signed {
				return vk.FormatR64Sint, nil
			}
			return vk.FormatR64Uint, nil
		}
		return vk.FormatUndefined, errorf(ErrUnsupportedWidth, "unsupported integer width: %d", width)
	case spirv.OpTypeFloat:
		switch width := in.Arg(0); width {
		case 16:
			return vk.FormatR16F, nil
		case 32:
			return vk.FormatR32F, nil
		case 64:
			return vk.FormatR64F, nil
		default:
			return vk.FormatUndefined, errorf(ErrUnsupportedWidth, "unsupported float width: %d", width)
		}
	case spirv.OpTypeBool:
		return vk.FormatR8BoolARM, nil
	}
	return vk.FormatUndefined, errorf(ErrUnsupportedConstant,
		"no format for element type opcode %d", in.Opcode)
}

// makeTensor builds a descriptor from a tensor type instruction. The
// shape must resolve to concrete dimensions at translation time.
func (p *Pass) makeTensor(tensorType *spirv.Instruction) (*compute.TensorDescriptor, error) {
	format, err := p.vkFormat(p.module.Def(tensorType.Arg(0)))
	if err != nil {
		return nil, err
	}
	shapeID := tensorShapeID(tensorType)
	if shapeID == 0 {
		return nil, errorf(ErrDynamicShape,
			"tensor type %%%d has no static shape", tensorType.ResultID())
	}
	shape, err := ConstVector[int64](p, shapeID)
	if err != nil {
		return nil, err
	}
	return &compute.TensorDescriptor{Format: format, Shape: shape}, nil
}

// descriptorSetAndBinding reads the DescriptorSet and Binding
// decorations attached to id.
func (p *Pass) descriptorSetAndBinding(id uint32) (uint64, uint64, error) {
	set, okSet := p.module.DecorationLiteral(id, spirv.DecorationDescriptorSet)
	binding, okBinding := p.module.DecorationLiteral(id, spirv.DecorationBinding)
	if !okSet || !okBinding {
		return 0, 0, errorf(ErrMissingBinding, "missing binding info for id %%%d", id)
	}
	return uint64(set), uint64(binding), nil
}

// Tensor returns the descriptor cached for id, creating it from the
// id's tensor type on first reference. Index selects the read or write
// view slot.
func (p *Pass) Tensor(id uint32, index uint32) (*compute.TensorDescriptor, error) {
	if index >= tensorSlots {
		return nil, errorf(ErrInvalidModule, "tensor view index %d out of range", index)
	}
	if slots := p.tensorMap[id]; slots != nil && slots[index] != nil {
		return slots[index], nil
	}

	tensorType, err := p.tensorType(id, index)
	if err != nil {
		return nil, err
	}
	tensor, err := p.makeTensor(tensorType)
	if err != nil {
		return nil, err
	}
	p.storeTensor(id, index, tensor)
	return tensor, nil
}

// TensorByDecoration resolves the decorated resource id to its
// descriptor-set/binding location and tensor descriptor.
func (p *Pass) TensorByDecoration(id uint32, index uint32) (uint64, uint64, *compute.TensorDescriptor, error) {
	set, binding, err := p.descriptorSetAndBinding(id)
	if err != nil {
		return 0, 0, nil, err
	}
	tensor, err := p.Tensor(id, index)
	if err != nil {
		return 0, 0, nil, err
	}
	tensor.Set = set
	tensor.Binding = binding
	return set, binding, tensor, nil
}

// MapTensor aliases resultID to the descriptor cached for id, so later
// references through the result reuse the same instance.
func (p *Pass) MapTensor(resultID uint32, id uint32, index uint32) error {
	tensor, err := p.Tensor(id, index)
	if err != nil {
		return err
	}
	p.storeTensor(resultID, index, tensor)
	return nil
}

func (p *Pass) storeTensor(id uint32, index uint32, tensor *compute.TensorDescriptor) {
	slots := p.tensorMap[id]
	if slots == nil {
		slots = new([tensorSlots]*compute.TensorDescriptor)
		p.tensorMap[id] = slots
	}
	slots[index] = tensor
}

// CompositeTensor returns the composite (array-of-tensors) descriptor
// for id, building it lazily. The same id always yields the same
// instance within one pass.
func (p *Pass) CompositeTensor(id uint32) (*compute.TensorDescriptor, error) {
	if tensor := p.composites[id]; tensor != nil {
		return tensor, nil
	}
	tensor, err := p.makeCompositeTensor(id)
	if err != nil {
		return nil, err
	}
	p.composites[id] = tensor
	return tensor, nil
}

func (p *Pass) makeCompositeTensor(id uint32) (*compute.TensorDescriptor, error) {
	in := p.module.Def(id)
	if in == nil {
		return nil, errorf(ErrInvalidModule, "id %%%d has no definition", id)
	}
	ptr := p.module.Def(in.ResultType())
	if ptr == nil || ptr.Opcode != spirv.OpTypePointer {
		return nil, errorf(ErrInvalidModule, "composite tensor %%%d is not a resource variable", id)
	}
	arr := p.module.Def(ptr.Arg(1))
	if arr == nil || arr.Opcode != spirv.OpTypeArray {
		return nil, errorf(ErrInvalidModule, "composite tensor %%%d is not an array of tensors", id)
	}
	elemType := p.module.Def(arr.Arg(0))
	if elemType == nil || elemType.Opcode != spirv.OpTypeTensorARM {
		return nil, errorf(ErrInvalidModule, "composite tensor %%%d element is not a tensor", id)
	}
	length, err := ConstScalar[int64](p, arr.Arg(1), true)
	if err != nil {
		return nil, err
	}
	set, binding, err := p.descriptorSetAndBinding(id)
	if err != nil {
		return nil, err
	}

	subs := make([]*compute.TensorDescriptor, 0, length)
	for j := int64(0); j < length; j++ {
		sub, err := p.makeTensor(elemType)
		if err != nil {
			return nil, err
		}
		sub.Set = set
		sub.Binding = binding
		subs = append(subs, sub)
	}
	return &compute.TensorDescriptor{Set: set, Binding: binding, SubTensors: subs}, nil
}
