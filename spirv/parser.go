package spirv

import (
	"encoding/binary"
	"fmt"
)

// headerWords is the fixed SPIR-V header size in words: magic,
// version, generator, bound, schema.
const headerWords = 5

// Parse decodes a SPIR-V binary into a Module.
func Parse(data []byte) (*Module, error) {
	if len(data) < headerWords*4 {
		return nil, fmt.Errorf("spirv: binary too small (%d bytes)", len(data))
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("spirv: binary size %d is not word aligned", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return ParseWords(words)
}

// ParseWords decodes a SPIR-V word stream into a Module.
func ParseWords(words []uint32) (*Module, error) {
	if len(words) < headerWords {
		return nil, fmt.Errorf("spirv: module too small (%d words)", len(words))
	}
	if words[0] != MagicNumber {
		return nil, fmt.Errorf("spirv: invalid magic number 0x%08X", words[0])
	}

	m := &Module{
		Version: Version{
			Major: uint8(words[1] >> 16),
			Minor: uint8(words[1] >> 8),
		},
		Generator: words[2],
		Bound:     words[3],
	}

	offset := headerWords
	for offset < len(words) {
		first := words[offset]
		opcode := Opcode(first & 0xFFFF)
		wordCount := int(first >> 16)

		if wordCount == 0 || offset+wordCount > len(words) {
			return nil, fmt.Errorf("spirv: invalid word count %d at word offset %d", wordCount, offset)
		}

		m.Instructions = append(m.Instructions, Instruction{
			Opcode:   opcode,
			Operands: words[offset+1 : offset+wordCount],
		})
		offset += wordCount
	}

	if err := m.index(); err != nil {
		return nil, fmt.Errorf("spirv: %w", err)
	}
	return m, nil
}
