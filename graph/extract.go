package graph

import (
	"fmt"
	"strings"

	"github.com/arm/ai-ml-emulation-layer-for-vulkan/compute"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/spirv"
)

// Graph is one extracted graph entry point: its declared inputs and
// outputs in declaration order, the resource bindings it touches, its
// private constant pool and its body instructions.
type Graph struct {
	// ID is the result id of the graph definition.
	ID uint32

	Name    string
	Inputs  []*compute.TensorDescriptor
	Outputs []*compute.TensorDescriptor

	Bindings  []compute.BindingSlot
	Constants []*compute.Constant

	// Body holds the instructions between the graph definition and its
	// end marker, in module order.
	Body []*spirv.Instruction
}

// extractGraph reconstructs the graph declared by an entry point
// instruction.
func (p *Pass) extractGraph(entry *spirv.Instruction) (*Graph, error) {
	ops := entry.Operands
	if len(ops) < 1 {
		return nil, errorf(ErrInvalidModule, "truncated graph entry point")
	}
	graphID := ops[0]
	name, n := spirv.LiteralString(ops[1:])
	ifaceIDs := ops[1+n:]

	graphDef := p.module.Def(graphID)
	if graphDef == nil || graphDef.Opcode != spirv.OpGraphARM {
		return nil, errorf(ErrInvalidModule, "entry point references %%%d which is not a graph", graphID)
	}

	inTypes, outTypes, err := p.graphType(graphDef)
	if err != nil {
		return nil, err
	}
	if len(ifaceIDs) != len(inTypes)+len(outTypes) {
		return nil, errorf(ErrInvalidModule,
			"graph %%%d declares %d tensors but entry point lists %d interface ids",
			graphID, len(inTypes)+len(outTypes), len(ifaceIDs))
	}

	g := &Graph{ID: graphID, Name: name}
	if err := p.resolveInterface(g, ifaceIDs, len(inTypes)); err != nil {
		return nil, err
	}
	if err := p.collectBody(g, graphDef); err != nil {
		return nil, err
	}

	if g.Name == "" {
		g.Name = p.graphLabel(g, graphID)
	}
	return g, nil
}

// graphType splits a graph definition's type into its declared input
// and output tensor types.
func (p *Pass) graphType(graphDef *spirv.Instruction) (inputs, outputs []*spirv.Instruction, err error) {
	typeInst := p.module.Def(graphDef.ResultType())
	if typeInst == nil || typeInst.Opcode != spirv.OpTypeGraphARM {
		return nil, nil, errorf(ErrInvalidModule,
			"graph %%%d has no graph type", graphDef.ResultID())
	}
	args := typeInst.Args()
	if len(args) < 1 {
		return nil, nil, errorf(ErrInvalidModule, "truncated graph type %%%d", typeInst.ResultID())
	}
	inCount := int(args[0])
	typeIDs := args[1:]
	if inCount > len(typeIDs) {
		return nil, nil, errorf(ErrInvalidModule,
			"graph type %%%d declares %d inputs but lists %d types",
			typeInst.ResultID(), inCount, len(typeIDs))
	}

	for i, id := range typeIDs {
		tt, err := p.tensorType(id, 0)
		if err != nil {
			return nil, nil, err
		}
		if i < inCount {
			inputs = append(inputs, tt)
		} else {
			outputs = append(outputs, tt)
		}
	}
	return inputs, outputs, nil
}

// resolveInterface resolves the entry point's interface variables into
// input/output descriptors and binding slots. The first inCount
// variables are inputs; declaration order is preserved.
func (p *Pass) resolveInterface(g *Graph, ifaceIDs []uint32, inCount int) error {
	for i, id := range ifaceIDs {
		// Inputs occupy the read view slot, outputs the write view slot.
		slot := uint32(0)
		if i >= inCount {
			slot = 1
		}

		if p.isTensorArrayVariable(id) {
			composite, err := p.CompositeTensor(id)
			if err != nil {
				return err
			}
			for j, sub := range composite.SubTensors {
				g.Bindings = append(g.Bindings, compute.BindingSlot{
					Set:        composite.Set,
					Binding:    composite.Binding,
					ArrayIndex: uint32(j),
					Tensor:     sub,
				})
			}
			if i < inCount {
				g.Inputs = append(g.Inputs, composite)
			} else {
				g.Outputs = append(g.Outputs, composite)
			}
			continue
		}

		set, binding, tensor, err := p.TensorByDecoration(id, slot)
		if err != nil {
			return err
		}
		g.Bindings = append(g.Bindings, compute.BindingSlot{
			Set:     set,
			Binding: binding,
			Tensor:  tensor,
		})
		if i < inCount {
			g.Inputs = append(g.Inputs, tensor)
		} else {
			g.Outputs = append(g.Outputs, tensor)
		}
	}
	return nil
}

// isTensorArrayVariable reports whether id is a resource variable whose
// pointee is an array of tensors.
func (p *Pass) isTensorArrayVariable(id uint32) bool {
	in := p.module.Def(id)
	if in == nil {
		return false
	}
	ptr := p.module.Def(in.ResultType())
	if ptr == nil || ptr.Opcode != spirv.OpTypePointer {
		return false
	}
	arr := p.module.Def(ptr.Arg(1))
	return arr != nil && arr.Opcode == spirv.OpTypeArray
}

// collectBody gathers the graph's body instructions, aliases graph
// input results to their input descriptors, and builds the graph's
// constant pool from every tensor constant its body references.
func (p *Pass) collectBody(g *Graph, graphDef *spirv.Instruction) error {
	start := -1
	for i := range p.module.Instructions {
		if &p.module.Instructions[i] == graphDef {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return errorf(ErrInvalidModule, "graph %%%d body not found", g.ID)
	}

	seen := make(map[uint32]bool)
	for i := start; i < len(p.module.Instructions); i++ {
		in := &p.module.Instructions[i]
		if in.Opcode == spirv.OpGraphEndARM {
			return nil
		}
		g.Body = append(g.Body, in)

		if in.Opcode == spirv.OpGraphInputARM {
			idx := int(in.Arg(0))
			if idx >= len(g.Inputs) {
				return errorf(ErrInvalidModule,
					"graph %%%d input index %d out of range", g.ID, idx)
			}
			p.storeTensor(in.ResultID(), 0, g.Inputs[idx])
			continue
		}

		for _, operand := range bodyOperandIDs(in) {
			if seen[operand] {
				continue
			}
			def := p.module.Def(operand)
			if def == nil || !def.Opcode.IsConstant() {
				continue
			}
			seen[operand] = true
			if err := p.poolConstant(g, operand, def); err != nil {
				return err
			}
		}
	}
	return errorf(ErrInvalidModule, "graph %%%d has no end marker", g.ID)
}

// bodyOperandIDs returns the operand words of a body instruction that
// can reference ids, skipping literal operands like extended
// instruction numbers and output indices.
func bodyOperandIDs(in *spirv.Instruction) []uint32 {
	switch in.Opcode {
	case spirv.OpExtInst:
		args := in.Args()
		if len(args) < 2 {
			return nil
		}
		return args[2:]
	case spirv.OpGraphSetOutputARM:
		if len(in.Operands) < 1 {
			return nil
		}
		return in.Operands[:1]
	default:
		return in.Args()
	}
}

// poolConstant adds a tensor-typed constant to the graph's pool.
// Scalar and shape constants are not pooled; lowering strategies
// resolve those on demand.
func (p *Pass) poolConstant(g *Graph, id uint32, def *spirv.Instruction) error {
	typeDef := p.module.Def(def.ResultType())
	if typeDef == nil || typeDef.Opcode != spirv.OpTypeTensorARM {
		return nil
	}
	tensor, err := p.Tensor(id, 0)
	if err != nil {
		return err
	}
	data, err := p.constData(id, tensor.Format)
	if err != nil {
		return err
	}
	g.Constants = append(g.Constants, &compute.Constant{ID: id, Tensor: tensor, Data: data})
	return nil
}

// graphLabel derives a display name for an unnamed graph: the module's
// debug name if present, the first debug-info string found in the body,
// or a translation-assigned label. Graph bodies lead with domain
// ext-insts, so the scan skips everything that is not a debug-info
// instruction instead of stopping at the first extended instruction.
func (p *Pass) graphLabel(g *Graph, graphID uint32) string {
	if name := p.module.Name(graphID); name != "" {
		return name
	}
	for _, in := range g.Body {
		if name := p.debugName(in); name != "" {
			return name
		}
	}
	return fmt.Sprintf("graph_%d", graphID)
}

// debugName extracts a name from a debug-info extended instruction.
// Instructions that are not ext-insts of a non-semantic set, or that
// carry no string operand, yield "".
func (p *Pass) debugName(in *spirv.Instruction) string {
	if in.Opcode != spirv.OpExtInst {
		return ""
	}
	args := in.Args()
	if len(args) < 2 {
		return ""
	}
	if !strings.HasPrefix(p.module.ExtImportName(args[0]), "NonSemantic.") {
		return ""
	}
	for _, operand := range args[2:] {
		if s := p.module.String(operand); s != "" {
			return s
		}
	}
	return ""
}
