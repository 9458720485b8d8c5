package spirv

// ModuleBuilder assembles a SPIR-V word stream instruction by
// instruction. It performs no validation; it exists so tools and tests
// can construct modules without an external assembler.
type ModuleBuilder struct {
	version Version
	nextID  uint32
	words   []uint32
}

// NewModuleBuilder creates a builder targeting the given SPIR-V version.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{version: version, nextID: 1}
}

// AllocID reserves and returns a fresh result id.
func (b *ModuleBuilder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Inst appends one instruction with the given operand words.
func (b *ModuleBuilder) Inst(op Opcode, operands ...uint32) {
	first := uint32(len(operands)+1)<<16 | uint32(op)
	b.words = append(b.words, first)
	b.words = append(b.words, operands...)
}

// InstStr appends one instruction whose trailing operand is a literal
// string, encoded nul-terminated after the leading operand words.
func (b *ModuleBuilder) InstStr(op Opcode, operands []uint32, literal string, trailing ...uint32) {
	all := append(append([]uint32{}, operands...), StringWords(literal)...)
	all = append(all, trailing...)
	b.Inst(op, all...)
}

// Words returns the assembled module, header included.
func (b *ModuleBuilder) Words() []uint32 {
	header := []uint32{
		MagicNumber,
		uint32(b.version.Major)<<16 | uint32(b.version.Minor)<<8,
		0, // unregistered generator
		b.nextID,
		0, // schema
	}
	return append(header, b.words...)
}
