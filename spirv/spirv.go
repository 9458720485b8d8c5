// Package spirv provides a read-only model of a parsed SPIR-V module
// for the graph translation passes.
//
// The layer receives shader modules as SPIR-V binaries. Parse decodes
// the word stream into an instruction list with id, decoration and
// debug-name indexes; the graph package walks that model to lower
// graph entry points into executable pipelines.
package spirv

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// SPIR-V magic number.
const MagicNumber = 0x07230203

// Opcode represents a SPIR-V opcode.
type Opcode uint16

// Core opcodes consumed by the translation passes.
const (
	OpNop           Opcode = 0
	OpSource        Opcode = 3
	OpName          Opcode = 5
	OpMemberName    Opcode = 6
	OpString        Opcode = 7
	OpExtension     Opcode = 10
	OpExtInstImport Opcode = 11
	OpExtInst       Opcode = 12
	OpMemoryModel   Opcode = 14
	OpEntryPoint    Opcode = 15
	OpExecutionMode Opcode = 16
	OpCapability    Opcode = 17

	OpTypeVoid         Opcode = 19
	OpTypeBool         Opcode = 20
	OpTypeInt          Opcode = 21
	OpTypeFloat        Opcode = 22
	OpTypeVector       Opcode = 23
	OpTypeMatrix       Opcode = 24
	OpTypeArray        Opcode = 28
	OpTypeRuntimeArray Opcode = 29
	OpTypeStruct       Opcode = 30
	OpTypePointer      Opcode = 32
	OpTypeFunction     Opcode = 33

	OpConstantTrue          Opcode = 41
	OpConstantFalse         Opcode = 42
	OpConstant              Opcode = 43
	OpConstantComposite     Opcode = 44
	OpConstantNull          Opcode = 46
	OpSpecConstantTrue      Opcode = 48
	OpSpecConstantFalse     Opcode = 49
	OpSpecConstant          Opcode = 50
	OpSpecConstantComposite Opcode = 51

	OpFunction    Opcode = 54
	OpFunctionEnd Opcode = 56
	OpVariable    Opcode = 59

	OpDecorate       Opcode = 71
	OpMemberDecorate Opcode = 72
)

// Tensor and graph extension opcodes.
const (
	OpTypeTensorARM Opcode = 4163

	OpTypeGraphARM       Opcode = 4180
	OpGraphConstantARM   Opcode = 4181
	OpGraphEntryPointARM Opcode = 4182
	OpGraphARM           Opcode = 4183
	OpGraphInputARM      Opcode = 4184
	OpGraphSetOutputARM  Opcode = 4185
	OpGraphEndARM        Opcode = 4186

	OpConstantCompositeReplicateEXT     Opcode = 4461
	OpSpecConstantCompositeReplicateEXT Opcode = 4462
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Decorations consumed by the translation passes.
const (
	DecorationBuiltIn       Decoration = 11
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassUniform         StorageClass = 2
	StorageClassStorageBuffer   StorageClass = 12
)

// layout describes where an instruction's result-type and result-id
// words sit. Only the opcodes the passes index are listed; everything
// else is carried through opaquely.
type layout struct {
	hasResultType bool
	hasResult     bool
}

var layouts = map[Opcode]layout{
	OpString:        {false, true},
	OpExtInstImport: {false, true},
	OpExtInst:       {true, true},

	OpTypeVoid:         {false, true},
	OpTypeBool:         {false, true},
	OpTypeInt:          {false, true},
	OpTypeFloat:        {false, true},
	OpTypeVector:       {false, true},
	OpTypeMatrix:       {false, true},
	OpTypeArray:        {false, true},
	OpTypeRuntimeArray: {false, true},
	OpTypeStruct:       {false, true},
	OpTypePointer:      {false, true},
	OpTypeFunction:     {false, true},
	OpTypeTensorARM:    {false, true},
	OpTypeGraphARM:     {false, true},

	OpConstantTrue:                      {true, true},
	OpConstantFalse:                     {true, true},
	OpConstant:                          {true, true},
	OpConstantComposite:                 {true, true},
	OpConstantNull:                      {true, true},
	OpSpecConstantTrue:                  {true, true},
	OpSpecConstantFalse:                 {true, true},
	OpSpecConstant:                      {true, true},
	OpSpecConstantComposite:             {true, true},
	OpConstantCompositeReplicateEXT:     {true, true},
	OpSpecConstantCompositeReplicateEXT: {true, true},

	OpVariable:         {true, true},
	OpGraphConstantARM: {true, true},
	OpGraphARM:         {true, true},
	OpGraphInputARM:    {true, true},
}

// IsConstant reports whether the opcode declares a module-scope constant.
func (op Opcode) IsConstant() bool {
	switch op {
	case OpConstantTrue, OpConstantFalse, OpConstant, OpConstantComposite,
		OpConstantNull, OpSpecConstantTrue, OpSpecConstantFalse,
		OpSpecConstant, OpSpecConstantComposite,
		OpConstantCompositeReplicateEXT, OpSpecConstantCompositeReplicateEXT:
		return true
	}
	return false
}

// IsCompositeConstant reports whether the opcode declares a composite
// constant, replicated or not.
func (op Opcode) IsCompositeConstant() bool {
	switch op {
	case OpConstantComposite, OpSpecConstantComposite,
		OpConstantCompositeReplicateEXT, OpSpecConstantCompositeReplicateEXT:
		return true
	}
	return false
}

// IsReplicated reports whether the opcode declares a splat composite: a
// single representative component standing for the full element count
// of the result type.
func (op Opcode) IsReplicated() bool {
	return op == OpConstantCompositeReplicateEXT || op == OpSpecConstantCompositeReplicateEXT
}
