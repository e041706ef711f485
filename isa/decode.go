package isa

import "encoding/binary"

// Decode reads an aligned instruction from the start of buf (at least 2
// bytes, little-endian) and returns the decoded Instruction along with its
// length in bytes (2 or 4). buf must have at least 4 bytes available when
// the first halfword indicates a 32-bit instruction.
func Decode(buf []byte) (Instruction, int) {
	first := binary.LittleEndian.Uint16(buf[:2])
	if WordLength(first) == 2 {
		return Decode16(first), 2
	}
	word := binary.LittleEndian.Uint32(buf[:4])
	return Decode32(word), 4
}
