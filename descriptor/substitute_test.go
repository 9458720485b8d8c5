package descriptor

import (
	"reflect"
	"testing"

	"github.com/arm/ai-ml-emulation-layer-for-vulkan/vk"
)

// fakeView is a test double for a layer-created tensor view.
type fakeView struct {
	descriptor vk.Buffer
	payload    vk.Buffer
}

func (v *fakeView) DescriptorBuffer(dev vk.Device) vk.Buffer { return v.descriptor }
func (v *fakeView) TensorBuffer() vk.Buffer                  { return v.payload }

func TestLayoutBindingsPassThrough(t *testing.T) {
	s := New(DefaultOptions())
	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		{Binding: 1, DescriptorType: vk.DescriptorTypeStorageImage, DescriptorCount: 2},
	}

	out := s.LayoutBindings(bindings, nil)
	if len(out) != len(bindings) {
		t.Fatalf("got %d bindings, want %d", len(out), len(bindings))
	}
	for i := range bindings {
		if !reflect.DeepEqual(out[i], bindings[i]) {
			t.Errorf("binding %d changed: got %+v, want %+v", i, out[i], bindings[i])
		}
	}
}

func TestLayoutBindingsSubstituteTensor(t *testing.T) {
	s := New(DefaultOptions())
	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeTensorARM, DescriptorCount: 1,
			StageFlags: vk.ShaderStageCompute},
		{Binding: 1, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
	}

	out := s.LayoutBindings(bindings, nil)
	if len(out) != 2 {
		t.Fatalf("got %d bindings, want 2", len(out))
	}
	if out[0].DescriptorType != vk.DescriptorTypeUniformBuffer {
		t.Errorf("tensor binding not rewritten: got type %d", out[0].DescriptorType)
	}
	if out[0].Binding != 0 || out[0].DescriptorCount != 1 || out[0].StageFlags != vk.ShaderStageCompute {
		t.Errorf("rewritten binding lost fields: %+v", out[0])
	}

	// The caller's slice must stay untouched.
	if bindings[0].DescriptorType != vk.DescriptorTypeTensorARM {
		t.Error("input slice was modified")
	}
}

func TestLayoutBindingsDualBuffer(t *testing.T) {
	s := New(Options{Mode: ModeDualBuffer})
	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: 3, DescriptorType: vk.DescriptorTypeTensorARM, DescriptorCount: 2,
			StageFlags: vk.ShaderStageCompute},
	}

	out := s.LayoutBindings(bindings, nil)
	if len(out) != 2 {
		t.Fatalf("got %d bindings, want 2", len(out))
	}
	extra := out[1]
	if extra.Binding != 3+DefaultBindingOffset {
		t.Errorf("payload binding: got %d, want %d", extra.Binding, 3+DefaultBindingOffset)
	}
	if extra.DescriptorType != vk.DescriptorTypeStorageBuffer {
		t.Errorf("payload type: got %d, want storage buffer", extra.DescriptorType)
	}
	if extra.DescriptorCount != 2 || extra.StageFlags != vk.ShaderStageCompute {
		t.Errorf("payload binding lost fields: %+v", extra)
	}
}

func TestLayoutBindingsClearUpdateAfterBind(t *testing.T) {
	s := New(DefaultOptions())
	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeTensorARM, DescriptorCount: 1},
		{Binding: 1, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1},
	}
	info := &vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType: vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingFlags: []vk.DescriptorBindingFlags{
			vk.DescriptorBindingUpdateAfterBind,
			vk.DescriptorBindingUpdateAfterBind,
		},
	}

	s.LayoutBindings(bindings, info)
	if info.BindingFlags[0] != 0 {
		t.Error("update-after-bind must be cleared on rewritten slots")
	}
	if info.BindingFlags[1] != vk.DescriptorBindingUpdateAfterBind {
		t.Error("flags of untouched slots must be preserved")
	}
}

func TestWritesExpandTensorViews(t *testing.T) {
	views := []any{
		&fakeView{descriptor: 101, payload: 201},
		&fakeView{descriptor: 102, payload: 202},
		&fakeView{descriptor: 103, payload: 203},
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          7,
		DstBinding:      2,
		DstArrayElement: 1,
		DescriptorCount: 3,
		DescriptorType:  vk.DescriptorTypeTensorARM,
		Next: &vk.WriteDescriptorSetTensorARM{
			SType:       vk.StructureTypeWriteDescriptorSetTensorARM,
			TensorViews: views,
		},
	}

	s := New(DefaultOptions())
	out, err := s.Writes(1, []vk.WriteDescriptorSet{write})
	if err != nil {
		t.Fatalf("Writes: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d writes, want 3", len(out))
	}
	for j, w := range out {
		if w.DescriptorType != vk.DescriptorTypeUniformBuffer {
			t.Errorf("write %d: type %d, want uniform buffer", j, w.DescriptorType)
		}
		if w.DstSet != 7 || w.DstBinding != 2 {
			t.Errorf("write %d: destination set=%d binding=%d", j, w.DstSet, w.DstBinding)
		}
		if w.DstArrayElement != uint32(1+j) {
			t.Errorf("write %d: array element %d, want %d", j, w.DstArrayElement, 1+j)
		}
		if w.DescriptorCount != 1 {
			t.Errorf("write %d: descriptor count %d, want 1", j, w.DescriptorCount)
		}
		if len(w.BufferInfo) != 1 || w.BufferInfo[0].Buffer != vk.Buffer(101+j) {
			t.Errorf("write %d: buffer info %+v", j, w.BufferInfo)
		}
		if w.BufferInfo[0].Range != vk.WholeSize {
			t.Errorf("write %d: range %d, want whole size", j, w.BufferInfo[0].Range)
		}
	}
}

func TestWritesDualBufferMode(t *testing.T) {
	write := vk.WriteDescriptorSet{
		DstSet:         4,
		DstBinding:     0,
		DescriptorType: vk.DescriptorTypeTensorARM,
		Next: &vk.WriteDescriptorSetTensorARM{
			TensorViews: []any{
				&fakeView{descriptor: 11, payload: 21},
				&fakeView{descriptor: 12, payload: 22},
				&fakeView{descriptor: 13, payload: 23},
			},
		},
	}

	s := New(Options{Mode: ModeDualBuffer})
	out, err := s.Writes(1, []vk.WriteDescriptorSet{write})
	if err != nil {
		t.Fatalf("Writes: %v", err)
	}
	if len(out) != 6 {
		t.Fatalf("got %d writes, want 6", len(out))
	}
	for j := 0; j < 3; j++ {
		meta, payload := out[j*2], out[j*2+1]
		if meta.DescriptorType != vk.DescriptorTypeUniformBuffer {
			t.Errorf("view %d: metadata write type %d", j, meta.DescriptorType)
		}
		if payload.DescriptorType != vk.DescriptorTypeStorageBuffer {
			t.Errorf("view %d: payload write type %d", j, payload.DescriptorType)
		}
		if payload.DstBinding != DefaultBindingOffset {
			t.Errorf("view %d: payload binding %d, want %d", j, payload.DstBinding, DefaultBindingOffset)
		}
		if meta.DstArrayElement != uint32(j) || payload.DstArrayElement != uint32(j) {
			t.Errorf("view %d: array elements %d/%d", j, meta.DstArrayElement, payload.DstArrayElement)
		}
		if payload.BufferInfo[0].Buffer != vk.Buffer(21+j) {
			t.Errorf("view %d: payload buffer %d", j, payload.BufferInfo[0].Buffer)
		}
	}
}

func TestWritesMissingTensorInfo(t *testing.T) {
	write := vk.WriteDescriptorSet{
		DstBinding:     5,
		DescriptorType: vk.DescriptorTypeTensorARM,
	}

	s := New(DefaultOptions())
	out, err := s.Writes(1, []vk.WriteDescriptorSet{write})
	if err == nil {
		t.Fatal("expected MissingTensorInfo error")
	}
	kind, ok := KindOf(err)
	if !ok || kind != ErrMissingTensorInfo {
		t.Fatalf("got %v, want MissingTensorInfo", err)
	}
	if out != nil {
		t.Error("no partial writes may be emitted on failure")
	}
}

func TestWritesInvalidTensorView(t *testing.T) {
	write := vk.WriteDescriptorSet{
		DescriptorType: vk.DescriptorTypeTensorARM,
		Next: &vk.WriteDescriptorSetTensorARM{
			TensorViews: []any{"not a view"},
		},
	}

	s := New(DefaultOptions())
	_, err := s.Writes(1, []vk.WriteDescriptorSet{write})
	kind, ok := KindOf(err)
	if !ok || kind != ErrInvalidTensorView {
		t.Fatalf("got %v, want InvalidTensorView", err)
	}
}

func TestWritesRewriteAliasingImageLayout(t *testing.T) {
	writes := []vk.WriteDescriptorSet{
		{
			DescriptorType: vk.DescriptorTypeStorageImage,
			ImageInfo: []vk.DescriptorImageInfo{
				{ImageView: 9, ImageLayout: vk.ImageLayoutTensorAliasingARM},
			},
		},
		{
			DescriptorType: vk.DescriptorTypeStorageImage,
			ImageInfo: []vk.DescriptorImageInfo{
				{ImageView: 10, ImageLayout: vk.ImageLayoutGeneral},
			},
		},
	}

	s := New(DefaultOptions())
	out, err := s.Writes(1, writes)
	if err != nil {
		t.Fatalf("Writes: %v", err)
	}
	if out[0].ImageInfo[0].ImageLayout != vk.ImageLayoutGeneral {
		t.Errorf("aliasing layout not rewritten: got %d", out[0].ImageInfo[0].ImageLayout)
	}
	if out[0].ImageInfo[0].ImageView != 9 {
		t.Error("image view must be preserved")
	}
	// The original write must keep its layout; only the forwarded copy
	// changes.
	if writes[0].ImageInfo[0].ImageLayout != vk.ImageLayoutTensorAliasingARM {
		t.Error("input write was modified")
	}
	if out[1].ImageInfo[0].ImageLayout != vk.ImageLayoutGeneral {
		t.Error("general layout write must pass through")
	}
}

func TestPoolSizesFolding(t *testing.T) {
	s := New(DefaultOptions())
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeTensorARM, DescriptorCount: 5},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2},
	}

	out := s.PoolSizes(sizes)
	if len(out) != 1 {
		t.Fatalf("got %d pool sizes, want 1", len(out))
	}
	if out[0].Type != vk.DescriptorTypeUniformBuffer || out[0].DescriptorCount != 7 {
		t.Errorf("got %+v, want uniform buffer x7", out[0])
	}
}

func TestPoolSizesCreateEntryWhenAbsent(t *testing.T) {
	s := New(DefaultOptions())
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeTensorARM, DescriptorCount: 3},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: 1},
	}

	out := s.PoolSizes(sizes)
	if len(out) != 2 {
		t.Fatalf("got %d pool sizes, want 2", len(out))
	}
	if out[1].Type != vk.DescriptorTypeUniformBuffer || out[1].DescriptorCount != 3 {
		t.Errorf("appended entry: got %+v", out[1])
	}
}

func TestPoolSizesDualBuffer(t *testing.T) {
	s := New(Options{Mode: ModeDualBuffer})
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeTensorARM, DescriptorCount: 4},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1},
	}

	out := s.PoolSizes(sizes)
	if len(out) != 2 {
		t.Fatalf("got %d pool sizes, want 2", len(out))
	}
	if out[0].Type != vk.DescriptorTypeStorageBuffer || out[0].DescriptorCount != 5 {
		t.Errorf("storage fold: got %+v", out[0])
	}
	if out[1].Type != vk.DescriptorTypeUniformBuffer || out[1].DescriptorCount != 4 {
		t.Errorf("uniform entry: got %+v", out[1])
	}
}

func TestPoolSizesNoTensors(t *testing.T) {
	s := New(DefaultOptions())
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeSampler, DescriptorCount: 2},
	}

	out := s.PoolSizes(sizes)
	if len(out) != 1 || out[0] != sizes[0] {
		t.Errorf("pool sizes without tensors must pass through: %+v", out)
	}
}

func BenchmarkWritesSubstitution(b *testing.B) {
	views := make([]any, 8)
	for i := range views {
		views[i] = &fakeView{descriptor: vk.Buffer(i), payload: vk.Buffer(100 + i)}
	}
	writes := []vk.WriteDescriptorSet{{
		DescriptorType: vk.DescriptorTypeTensorARM,
		Next:           &vk.WriteDescriptorSetTensorARM{TensorViews: views},
	}}
	s := New(DefaultOptions())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Writes(1, writes); err != nil {
			b.Fatal(err)
		}
	}
}
