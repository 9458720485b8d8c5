package graph

import (
	"math"

	"github.com/x448/float16"

	"github.com/arm/ai-ml-emulation-layer-for-vulkan/spirv"
)

// Scalar is the set of numeric representations a constant can be
// decoded into.
type Scalar interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ConstScalar decodes the scalar constant defined by id into the
// requested representation.
//
// Signed integer sources are sign-extended. Unsigned sources are zero
// extended when unsigned semantics are requested, otherwise the low N
// bits are reinterpreted as a signed integer of the source width.
// Booleans decode to 0 or 1.
func ConstScalar[T Scalar](p *Pass, id uint32, unsigned bool) (T, error) {
	in := p.module.Def(id)
	if in == nil {
		return 0, errorf(ErrUnsupportedConstant, "id %%%d has no definition", id)
	}
	return constScalarInst[T](p, in, unsigned)
}

func constScalarInst[T Scalar](p *Pass, in *spirv.Instruction, unsigned bool) (T, error) {
	switch in.Opcode {
	case spirv.OpConstantTrue, spirv.OpSpecConstantTrue:
		return T(1), nil
	case spirv.OpConstantFalse, spirv.OpSpecConstantFalse:
		return T(0), nil
	case spirv.OpConstant, spirv.OpSpecConstant:
		return constLiteral[T](p, in, unsigned)
	}
	return 0, errorf(ErrUnsupportedConstant, "unsupported constant opcode %d for id %%%d",
		in.Opcode, in.ResultID())
}

func constLiteral[T Scalar](p *Pass, in *spirv.Instruction, unsigned bool) (T, error) {
	typeInst := p.module.Def(in.ResultType())
	if typeInst == nil {
		return 0, errorf(ErrUnsupportedConstant, "constant %%%d has unresolved type", in.ResultID())
	}

	words := in.Args()
	raw := uint64(0)
	if len(words) > 0 {
		raw = uint64(words[0])
	}
	if len(words) > 1 {
		raw |= uint64(words[1]) << 32
	}

	switch typeInst.Opcode {
	case spirv.OpTypeInt:
		width := typeInst.Arg(0)
		signed := typeInst.Arg(1) != 0

		switch width {
		case 8, 16, 32, 64:
		default:
			return 0, errorf(ErrUnsupportedWidth, "unsupported integer constant width: %d", width)
		}

		if signed {
			return T(signExtend(raw, width)), nil
		}
		if unsigned {
			return T(raw), nil
		}
		// Reinterpret the low bits as signed of the source width.
		switch width {
		case 8:
			return T(int8(raw)), nil
		case 16:
			return T(int16(raw)), nil
		case 32:
			return T(int32(raw)), nil
		default:
			return T(int64(raw)), nil
		}

	case spirv.OpTypeFloat:
		switch width := typeInst.Arg(0); width {
		case 16:
			return T(float16.Frombits(uint16(raw)).Float32()), nil
		case 32:
			return T(math.Float32frombits(uint32(raw))), nil
		case 64:
			return T(math.Float64frombits(raw)), nil
		default:
			return 0, errorf(ErrUnsupportedWidth, "unsupported constant float width: %d", width)
		}

	case spirv.OpTypeBool:
		if raw != 0 {
			return T(1), nil
		}
		return T(0), nil
	}

	return 0, errorf(ErrUnsupportedConstant, "unsupported constant type opcode %d", typeInst.Opcode)
}

// signExtend interprets the low width bits of raw as a signed integer.
func signExtend(raw uint64, width uint32) int64 {
	shift := 64 - width
	return int64(raw<<shift) >> shift
}

// ConstVector decodes the composite constant defined by id into a flat
// element sequence.
//
// Nested composites flatten depth-first, left to right. A replicated
// (splat) composite carries a single representative element; it
// expands to the element count implied by its tensor type's shape. A
// null constant of tensor type yields a zero vector of the shape's
// sole dimension.
func ConstVector[T Scalar](p *Pass, id uint32) ([]T, error) {
	in := p.module.Def(id)
	if in == nil {
		return nil, errorf(ErrUnsupportedConstant, "id %%%d has no definition", id)
	}

	if in.Opcode.IsCompositeConstant() {
		out, err := flattenComposite[T](p, in, nil)
		if err != nil {
			return nil, err
		}
		if !in.Opcode.IsReplicated() {
			return out, nil
		}

		// Splat: one representative element, replicated to the full
		// element count of the constant's tensor shape.
		if len(out) != 1 {
			return nil, errorf(ErrShapeMismatch,
				"replicated composite %%%d has %d components, want 1", id, len(out))
		}
		tensorType, err := p.tensorType(id, 0)
		if err != nil {
			return nil, errorf(ErrUnsupportedConstant,
				"replicated composite %%%d is not tensor typed", id)
		}
		dims, err := ConstVector[int64](p, tensorShapeID(tensorType))
		if err != nil {
			return nil, err
		}
		// A zero dimension expands to an empty vector.
		count := int64(1)
		for _, dim := range dims {
			count *= dim
		}
		if count < 0 {
			return nil, errorf(ErrShapeMismatch,
				"replicated composite %%%d expands to %d elements", id, count)
		}
		expanded := make([]T, count)
		for i := range expanded {
			expanded[i] = out[0]
		}
		return expanded, nil
	}

	if in.Opcode == spirv.OpConstantNull {
		// A tensor-typed null is a zero vector. The tensor must be
		// rank 1; the sole shape element is the vector length.
		tensorType := p.module.Def(in.ResultType())
		if tensorType == nil || tensorType.Opcode != spirv.OpTypeTensorARM {
			return nil, errorf(ErrUnsupportedConstant,
				"null constant %%%d is not tensor typed", id)
		}
		dims, err := ConstVector[int64](p, tensorShapeID(tensorType))
		if err != nil {
			return nil, err
		}
		if len(dims) != 1 {
			return nil, errorf(ErrShapeMismatch,
				"null tensor constant %%%d has rank %d, want 1", id, len(dims))
		}
		return make([]T, dims[0]), nil
	}

	return nil, errorf(ErrUnsupportedConstant,
		"id %%%d is not a composite constant (opcode %d)", id, in.Opcode)
}

func flattenComposite[T Scalar](p *Pass, in *spirv.Instruction, out []T) ([]T, error) {
	for _, compID := range in.Args() {
		comp := p.module.Def(compID)
		if comp == nil {
			return nil, errorf(ErrUnsupportedConstant,
				"composite component %%%d has no definition", compID)
		}
		if comp.Opcode.IsCompositeConstant() {
			var err error
			out, err = flattenComposite[T](p, comp, out)
			if err != nil {
				return nil, err
			}
			continue
		}
		v, err := constScalarInst[T](p, comp, false)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// BoolConstant decodes the boolean constant referenced by id.
func (p *Pass) BoolConstant(id uint32) (bool, error) {
	v, err := ConstScalar[int64](p, id, false)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
