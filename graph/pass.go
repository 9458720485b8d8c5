// Package graph lowers graph entry points of a parsed SPIR-V module
// into the executable pipeline representation of the compute package.
//
// A Pass drives one full-module translation: graph constants first,
// then every graph in module order. Per-graph lowering is delegated to
// a Lowering strategy chosen at construction; the pass owns the shared
// decoding state (tensor and composite caches) for its lifetime and
// never shares it across passes, so independent module loads may
// translate concurrently.
package graph

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/arm/ai-ml-emulation-layer-for-vulkan/compute"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/spirv"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/vk"
)

// Lowering translates one extracted graph into the pipeline. Concrete
// strategies form a closed set chosen when the pass is constructed.
type Lowering interface {
	Lower(p *Pass, g *Graph) error
}

// LoweringFunc adapts a function to the Lowering interface.
type LoweringFunc func(p *Pass, g *Graph) error

// Lower implements Lowering.
func (f LoweringFunc) Lower(p *Pass, g *Graph) error { return f(p, g) }

// SegmentLowering is the default strategy: it emits one GraphSegment
// per graph, folding the graph's constant pool into the pipeline.
type SegmentLowering struct{}

// Lower implements Lowering.
func (SegmentLowering) Lower(p *Pass, g *Graph) error {
	segment := &compute.GraphSegment{
		Name:     g.Name,
		Inputs:   g.Inputs,
		Outputs:  g.Outputs,
		Bindings: g.Bindings,
	}
	for _, c := range g.Constants {
		p.Pipeline().AddConstant(c)
	}
	p.Pipeline().AddSegment(segment)
	return nil
}

// Pass is one module translation pass. It is not safe for concurrent
// use; run independent passes for independent modules instead.
type Pass struct {
	module   *spirv.Module
	pipeline *compute.GraphPipeline
	lowering Lowering

	// tensorMap caches, per operand id, the paired read/write tensor
	// descriptors of one binding.
	tensorMap  map[uint32]*[tensorSlots]*compute.TensorDescriptor
	composites map[uint32]*compute.TensorDescriptor
}

// NewPass creates a translation pass over module that populates
// pipeline using the given lowering strategy.
func NewPass(module *spirv.Module, pipeline *compute.GraphPipeline, lowering Lowering) *Pass {
	if lowering == nil {
		lowering = SegmentLowering{}
	}
	return &Pass{
		module:     module,
		pipeline:   pipeline,
		lowering:   lowering,
		tensorMap:  make(map[uint32]*[tensorSlots]*compute.TensorDescriptor),
		composites: make(map[uint32]*compute.TensorDescriptor),
	}
}

// Module returns the module under translation.
func (p *Pass) Module() *spirv.Module { return p.module }

// Pipeline returns the pipeline the pass populates.
func (p *Pass) Pipeline() *compute.GraphPipeline { return p.pipeline }

// Run performs the full-module pass: graph constants first, then every
// graph entry point in module order. A failed run leaves no usable
// pipeline; callers must discard it.
func (p *Pass) Run() error {
	if err := p.handleGraphConstants(); err != nil {
		return errors.Wrap(err, "graph constants")
	}
	if err := p.handleGraphs(); err != nil {
		return errors.Wrap(err, "graphs")
	}
	return nil
}

// handleGraphConstants decodes every module-scope graph constant into
// the pipeline's constant pool.
func (p *Pass) handleGraphConstants() error {
	for i := range p.module.Instructions {
		in := &p.module.Instructions[i]
		if in.Opcode != spirv.OpGraphConstantARM {
			continue
		}

		constID := in.Arg(0)
		tensorType, err := p.tensorType(in.ResultID(), 0)
		if err != nil {
			return err
		}
		tensor, err := p.makeTensor(tensorType)
		if err != nil {
			return err
		}
		p.storeTensor(in.ResultID(), 0, tensor)

		c := &compute.Constant{ID: constID, Tensor: tensor}
		// An initializer id after the constant id carries embedded
		// data; without one the data is supplied at pipeline creation.
		if args := in.Args(); len(args) > 1 {
			c.Data, err = p.constData(args[1], tensor.Format)
			if err != nil {
				return err
			}
		}
		klog.V(2).Infof("graph constant %d: format %d, %d shape dims, %d data bytes",
			constID, tensor.Format, len(tensor.Shape), len(c.Data))
		p.pipeline.AddConstant(c)
	}
	return nil
}

// handleGraphs extracts and lowers every graph entry point.
func (p *Pass) handleGraphs() error {
	for i := range p.module.Instructions {
		in := &p.module.Instructions[i]
		if in.Opcode != spirv.OpGraphEntryPointARM {
			continue
		}
		g, err := p.extractGraph(in)
		if err != nil {
			return err
		}
		klog.V(2).Infof("lowering graph %q: %d inputs, %d outputs, %d bindings",
			g.Name, len(g.Inputs), len(g.Outputs), len(g.Bindings))
		if err := p.lowering.Lower(p, g); err != nil {
			return errors.Wrapf(err, "lowering graph %q", g.Name)
		}
	}
	return nil
}

// constData decodes the constant id and re-encodes it little-endian in
// the given element format.
func (p *Pass) constData(id uint32, format vk.Format) ([]byte, error) {
	switch format {
	case vk.FormatR8Sint:
		vals, err := ConstVector[int8](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals))
		for i, v := range vals {
			out[i] = byte(v)
		}
		return out, nil
	case vk.FormatR8Uint, vk.FormatR8BoolARM:
		vals, err := ConstVector[uint8](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals))
		copy(out, vals)
		return out, nil
	case vk.FormatR16Sint:
		vals, err := ConstVector[int16](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals)*2)
		for i, v := range vals {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		}
		return out, nil
	case vk.FormatR16Uint:
		vals, err := ConstVector[uint16](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals)*2)
		for i, v := range vals {
			binary.LittleEndian.PutUint16(out[i*2:], v)
		}
		return out, nil
	case vk.FormatR32Sint:
		vals, err := ConstVector[int32](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		}
		return out, nil
	case vk.FormatR32Uint:
		vals, err := ConstVector[uint32](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.LittleEndian.PutUint32(out[i*4:], v)
		}
		return out, nil
	case vk.FormatR64Sint, vk.FormatR64Uint:
		vals, err := ConstVector[int64](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals)*8)
		for i, v := range vals {
			binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
		}
		return out, nil
	case vk.FormatR16F:
		vals, err := ConstVector[float32](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals)*2)
		for i, v := range vals {
			binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(v).Bits())
		}
		return out, nil
	case vk.FormatR32F:
		vals, err := ConstVector[float32](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out, nil
	case vk.FormatR64F:
		vals, err := ConstVector[float64](p, id)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(vals)*8)
		for i, v := range vals {
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
		}
		return out, nil
	}
	return nil, errorf(ErrUnsupportedConstant, "no data encoding for format %d", format)
}
