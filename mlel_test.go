package mlel

import (
	"encoding/binary"
	"testing"

	"github.com/arm/ai-ml-emulation-layer-for-vulkan/compute"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/graph"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/spirv"
	"github.com/arm/ai-ml-emulation-layer-for-vulkan/vk"
)

func encode(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// buildGraphModule assembles a module with a single graph: one f32
// [2,2] tensor input at set 0 binding 0 and a same-shaped output at
// binding 1.
func buildGraphModule(name string) []uint32 {
	b := spirv.NewModuleBuilder(spirv.Version1_3)

	i32 := b.AllocID()
	f32 := b.AllocID()
	rank := b.AllocID()
	dim := b.AllocID()
	shape := b.AllocID()
	shapeType := b.AllocID()
	tensorType := b.AllocID()
	b.Inst(spirv.OpTypeInt, i32, 32, 1)
	b.Inst(spirv.OpTypeFloat, f32, 32)
	b.Inst(spirv.OpConstant, i32, rank, 2)
	b.Inst(spirv.OpConstant, i32, dim, 2)
	b.Inst(spirv.OpTypeArray, shapeType, i32, rank)
	b.Inst(spirv.OpConstantComposite, shapeType, shape, dim, dim)
	b.Inst(spirv.OpTypeTensorARM, tensorType, f32, rank, shape)

	ptrType := b.AllocID()
	inVar := b.AllocID()
	outVar := b.AllocID()
	b.Inst(spirv.OpTypePointer, ptrType, uint32(spirv.StorageClassUniformConstant), tensorType)
	b.Inst(spirv.OpVariable, ptrType, inVar, uint32(spirv.StorageClassUniformConstant))
	b.Inst(spirv.OpVariable, ptrType, outVar, uint32(spirv.StorageClassUniformConstant))
	b.Inst(spirv.OpDecorate, inVar, uint32(spirv.DecorationDescriptorSet), 0)
	b.Inst(spirv.OpDecorate, inVar, uint32(spirv.DecorationBinding), 0)
	b.Inst(spirv.OpDecorate, outVar, uint32(spirv.DecorationDescriptorSet), 0)
	b.Inst(spirv.OpDecorate, outVar, uint32(spirv.DecorationBinding), 1)

	graphType := b.AllocID()
	graphID := b.AllocID()
	b.Inst(spirv.OpTypeGraphARM, graphType, 1, tensorType, tensorType)
	b.InstStr(spirv.OpGraphEntryPointARM, []uint32{graphID}, name, inVar, outVar)
	b.Inst(spirv.OpGraphARM, graphType, graphID)

	gi := b.AllocID()
	b.Inst(spirv.OpGraphInputARM, tensorType, gi, 0)
	b.Inst(spirv.OpGraphSetOutputARM, gi, 0)
	b.Inst(spirv.OpGraphEndARM)

	return b.Words()
}

func TestTranslate(t *testing.T) {
	bin := encode(buildGraphModule("identity"))

	pipeline, err := Translate(bin, DefaultOptions())
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(pipeline.Segments) != 1 {
		t.Fatalf("segments: got %d, want 1", len(pipeline.Segments))
	}
	segment := pipeline.Segments[0]
	if segment.Name != "identity" {
		t.Errorf("name: got %q, want %q", segment.Name, "identity")
	}
	if len(segment.Inputs) != 1 || len(segment.Outputs) != 1 {
		t.Fatalf("inputs/outputs: got %d/%d", len(segment.Inputs), len(segment.Outputs))
	}
	if segment.Inputs[0].Format != vk.FormatR32F {
		t.Errorf("input format: got %d, want R32F", segment.Inputs[0].Format)
	}
}

func TestTranslateWords(t *testing.T) {
	pipeline, err := TranslateWords(buildGraphModule("g"), DefaultOptions())
	if err != nil {
		t.Fatalf("TranslateWords: %v", err)
	}
	if len(pipeline.Segments) != 1 {
		t.Fatalf("segments: got %d, want 1", len(pipeline.Segments))
	}
}

func TestTranslateRejectsGarbage(t *testing.T) {
	if _, err := Translate([]byte{1, 2, 3, 4}, DefaultOptions()); err == nil {
		t.Fatal("truncated binary must be rejected")
	}
	if _, err := Translate(encode([]uint32{0xdeadbeef, 0, 0, 1, 0}), DefaultOptions()); err == nil {
		t.Fatal("bad magic must be rejected")
	}
}

func TestTranslateEmptyModule(t *testing.T) {
	b := spirv.NewModuleBuilder(spirv.Version1_3)
	pipeline, err := TranslateWords(b.Words(), DefaultOptions())
	if err != nil {
		t.Fatalf("TranslateWords: %v", err)
	}
	if len(pipeline.Segments) != 0 || len(pipeline.Constants) != 0 {
		t.Error("module without graphs must yield an empty pipeline")
	}
}

func TestTranslateCustomLowering(t *testing.T) {
	opts := DefaultOptions()
	opts.Lowering = graph.LoweringFunc(func(p *graph.Pass, g *graph.Graph) error {
		p.Pipeline().AddSegment(&compute.GraphSegment{Name: g.Name + "/lowered"})
		return nil
	})

	pipeline, err := TranslateWords(buildGraphModule("g"), opts)
	if err != nil {
		t.Fatalf("TranslateWords: %v", err)
	}
	if pipeline.Segments[0].Name != "g/lowered" {
		t.Errorf("custom lowering not applied: %q", pipeline.Segments[0].Name)
	}
}

func TestTranslateAll(t *testing.T) {
	binaries := [][]byte{
		encode(buildGraphModule("a")),
		encode(buildGraphModule("b")),
		encode(buildGraphModule("c")),
	}

	pipelines, err := TranslateAll(binaries, DefaultOptions())
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if len(pipelines) != 3 {
		t.Fatalf("pipelines: got %d, want 3", len(pipelines))
	}
	for i, want := range []string{"a", "b", "c"} {
		if pipelines[i].Segments[0].Name != want {
			t.Errorf("pipeline %d: got %q, want %q", i, pipelines[i].Segments[0].Name, want)
		}
	}
}

func TestTranslateAllPropagatesFailure(t *testing.T) {
	binaries := [][]byte{
		encode(buildGraphModule("ok")),
		{0xff, 0xff},
	}
	if _, err := TranslateAll(binaries, DefaultOptions()); err == nil {
		t.Fatal("batch with a broken module must fail")
	}
}

func TestNewSubstitutor(t *testing.T) {
	s := NewSubstitutor(DefaultOptions())
	out := s.PoolSizes([]vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeTensorARM, DescriptorCount: 5},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2},
	})
	if len(out) != 1 || out[0].DescriptorCount != 7 {
		t.Errorf("substitutor not wired: %+v", out)
	}
}
