package spirv

import "fmt"

// Instruction is one decoded SPIR-V instruction. Operands holds every
// word after the opcode word, including the result-type and result-id
// words when the opcode has them.
type Instruction struct {
	Opcode   Opcode
	Operands []uint32
}

// ResultType returns the instruction's result-type id, or 0 when the
// opcode has none.
func (in *Instruction) ResultType() uint32 {
	if layouts[in.Opcode].hasResultType && len(in.Operands) > 0 {
		return in.Operands[0]
	}
	return 0
}

// ResultID returns the instruction's result id, or 0 when the opcode
// has none.
func (in *Instruction) ResultID() uint32 {
	l := layouts[in.Opcode]
	if !l.hasResult {
		return 0
	}
	idx := 0
	if l.hasResultType {
		idx = 1
	}
	if idx < len(in.Operands) {
		return in.Operands[idx]
	}
	return 0
}

// Args returns the operands following the result-type and result-id
// words: the instruction's actual arguments.
func (in *Instruction) Args() []uint32 {
	l := layouts[in.Opcode]
	idx := 0
	if l.hasResultType {
		idx++
	}
	if l.hasResult {
		idx++
	}
	if idx > len(in.Operands) {
		return nil
	}
	return in.Operands[idx:]
}

// Arg returns argument i, or 0 when the instruction is shorter.
func (in *Instruction) Arg(i int) uint32 {
	args := in.Args()
	if i < len(args) {
		return args[i]
	}
	return 0
}

// DecorationEntry is one OpDecorate applied to a target id.
type DecorationEntry struct {
	Decoration Decoration
	Literals   []uint32
}

// Module is a parsed SPIR-V module. It is immutable once parsed; the
// translation passes hold read-only references to its instructions.
type Module struct {
	Version      Version
	Generator    uint32
	Bound        uint32
	Instructions []Instruction

	defs        map[uint32]*Instruction
	decorations map[uint32][]DecorationEntry
	names       map[uint32]string
	strings     map[uint32]string
	extImports  map[uint32]string
}

// Def returns the instruction that defines id, or nil if the module
// declares no such result.
func (m *Module) Def(id uint32) *Instruction {
	return m.defs[id]
}

// Decorations returns every OpDecorate entry attached to id.
func (m *Module) Decorations(id uint32) []DecorationEntry {
	return m.decorations[id]
}

// DecorationLiteral returns the first literal of the given decoration
// on id, and whether the decoration is present.
func (m *Module) DecorationLiteral(id uint32, d Decoration) (uint32, bool) {
	for _, entry := range m.decorations[id] {
		if entry.Decoration == d && len(entry.Literals) > 0 {
			return entry.Literals[0], true
		}
	}
	return 0, false
}

// Name returns the OpName debug name of id, or "".
func (m *Module) Name(id uint32) string {
	return m.names[id]
}

// String returns the OpString literal with the given result id, or "".
func (m *Module) String(id uint32) string {
	return m.strings[id]
}

// ExtImportName returns the name of the extended instruction set
// imported under id, or "".
func (m *Module) ExtImportName(id uint32) string {
	return m.extImports[id]
}

// index builds the per-id lookup tables after parsing.
func (m *Module) index() error {
	m.defs = make(map[uint32]*Instruction)
	m.decorations = make(map[uint32][]DecorationEntry)
	m.names = make(map[uint32]string)
	m.strings = make(map[uint32]string)
	m.extImports = make(map[uint32]string)

	for i := range m.Instructions {
		in := &m.Instructions[i]
		if id := in.ResultID(); id != 0 {
			if prev := m.defs[id]; prev != nil {
				return fmt.Errorf("result id %%%d defined twice", id)
			}
			m.defs[id] = in
		}
		switch in.Opcode {
		case OpDecorate:
			if len(in.Operands) < 2 {
				return fmt.Errorf("truncated OpDecorate")
			}
			target := in.Operands[0]
			m.decorations[target] = append(m.decorations[target], DecorationEntry{
				Decoration: Decoration(in.Operands[1]),
				Literals:   in.Operands[2:],
			})
		case OpName:
			if len(in.Operands) < 1 {
				return fmt.Errorf("truncated OpName")
			}
			m.names[in.Operands[0]] = DecodeString(in.Operands[1:])
		case OpString:
			m.strings[in.ResultID()] = DecodeString(in.Operands[1:])
		case OpExtInstImport:
			m.extImports[in.ResultID()] = DecodeString(in.Operands[1:])
		}
	}
	return nil
}

// DecodeString decodes a nul-terminated literal string from its
// little-endian word encoding.
func DecodeString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf)
			}
			buf = append(buf, b)
		}
	}
	return string(buf)
}

// LiteralString decodes a nul-terminated literal string and reports
// how many words it occupied, so callers can locate the operands that
// follow it.
func LiteralString(words []uint32) (string, int) {
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			if byte(w>>shift) == 0 {
				return DecodeString(words[:i+1]), i + 1
			}
		}
	}
	return DecodeString(words), len(words)
}

// StringWords encodes a literal string into its nul-terminated word
// form, the inverse of DecodeString.
func StringWords(s string) []uint32 {
	raw := append([]byte(s), 0)
	for len(raw)%4 != 0 {
		raw = append(raw, 0)
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = uint32(raw[i*4]) | uint32(raw[i*4+1])<<8 |
			uint32(raw[i*4+2])<<16 | uint32(raw[i*4+3])<<24
	}
	return words
}
