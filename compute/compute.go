// Package compute defines the executable pipeline representation the
// graph translation passes populate.
//
// A GraphPipeline is the hand-off artifact between translation and the
// execution layer: it carries every graph declared by a module, the
// tensors each graph binds, and the module's decoded graph constants.
// The execution layer turns it into compute dispatches; this package
// only describes it.
package compute

import (
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/vk"
)

// TensorDescriptor describes one tensor resource: its element format,
// concrete shape and originating descriptor-set/binding location.
//
// All reference sites of the same underlying tensor share one
// descriptor instance; the translation pass guarantees referential
// stability for the lifetime of the enclosing pipeline.
type TensorDescriptor struct {
	Format  vk.Format
	Shape   []int64
	Set     uint64
	Binding uint64

	// SubTensors holds the constituents of a composite
	// (array-of-tensors) resource. Nil for a plain tensor.
	SubTensors []*TensorDescriptor
}

// IsComposite reports whether the descriptor aggregates sub-tensors.
func (t *TensorDescriptor) IsComposite() bool {
	return len(t.SubTensors) > 0
}

// ElementCount returns the product of all shape dimensions. A rank-0
// tensor counts one element.
func (t *TensorDescriptor) ElementCount() int64 {
	count := int64(1)
	for _, dim := range t.Shape {
		count *= dim
	}
	return count
}

// Rank returns the number of shape dimensions.
func (t *TensorDescriptor) Rank() int {
	return len(t.Shape)
}

// Constant is one decoded graph constant: the tensor it initializes
// and its element data, encoded little-endian in the tensor's element
// format.
type Constant struct {
	// ID is the graph-constant identifier declared by the module.
	ID uint32

	Tensor *TensorDescriptor
	Data   []byte
}

// BindingSlot associates a tensor with the (set, binding, array index)
// triple a graph references it through.
type BindingSlot struct {
	Set        uint64
	Binding    uint64
	ArrayIndex uint32
	Tensor     *TensorDescriptor
}

// GraphSegment is the translated form of one graph entry point.
type GraphSegment struct {
	// Name is the entry point name, or a translation-assigned label
	// when the module carries no usable debug name.
	Name string

	// Inputs and Outputs preserve the graph type's declaration order.
	Inputs  []*TensorDescriptor
	Outputs []*TensorDescriptor

	// Bindings lists every resource-binding slot the graph touches.
	Bindings []BindingSlot
}

// GraphPipeline is the translated, executable form of all graphs in a
// module. The translation pass populates it; the caller that requested
// translation owns it exclusively.
type GraphPipeline struct {
	Constants []*Constant
	Segments  []*GraphSegment
}

// AddConstant appends a decoded graph constant.
func (p *GraphPipeline) AddConstant(c *Constant) {
	p.Constants = append(p.Constants, c)
}

// AddSegment appends a translated graph.
func (p *GraphPipeline) AddSegment(s *GraphSegment) {
	p.Segments = append(p.Segments, s)
}

// ConstantByID returns the graph constant with the given identifier,
// or nil.
func (p *GraphPipeline) ConstantByID(id uint32) *Constant {
	for _, c := range p.Constants {
		if c.ID == id {
			return c
		}
	}
	return nil
}
