package bytecode

import "github.com/embive/embive-go/isa"

const (
	opcodeBits = 7
	opcodeMask = uint32(1<<opcodeBits) - 1
	regBits    = 5
	regMask    = uint32(1<<regBits) - 1
)

// regSlotsAsSource reports whether an RRI-layout opcode's two register
// slots hold (rs1, rs2) rather than (rd, rs1). Stores and branches write
// no destination register, so both their operands are sources.
func regSlotsAsSource(op isa.Op) bool {
	switch op {
	case isa.SB, isa.SH, isa.SW,
		isa.BEQ, isa.BNE, isa.BLT, isa.BGE, isa.BLTU, isa.BGEU:
		return true
	}
	return false
}

// Encode packs a decoded instruction into its Embive bytecode word. For
// JAL and the branch opcodes, in.Imm must already be the final bytecode-PC
// relative byte offset (computed by the transpiler's address remap), which
// is always a multiple of 4.
func Encode(in isa.Instruction) uint32 {
	op := uint32(in.Op)
	word := op & opcodeMask

	switch opLayout[in.Op] {
	case layoutNone:
		// no operand bits

	case layoutRRR:
		word |= (uint32(in.Rd) & regMask) << opcodeBits
		word |= (uint32(in.Rs1) & regMask) << (opcodeBits + regBits)
		word |= (uint32(in.Rs2) & regMask) << (opcodeBits + 2*regBits)

	case layoutRRI:
		slotA, slotB := uint32(in.Rd), uint32(in.Rs1)
		if regSlotsAsSource(in.Op) {
			slotA, slotB = uint32(in.Rs1), uint32(in.Rs2)
		}
		imm := in.Imm
		if pcRelative(in.Op) {
			imm /= 4
		}
		word |= (slotA & regMask) << opcodeBits
		word |= (slotB & regMask) << (opcodeBits + regBits)
		word |= uint32(imm) << (opcodeBits + 2*regBits)

	case layoutCSR:
		word |= (uint32(in.Rd) & regMask) << opcodeBits
		word |= (uint32(in.Rs1) & regMask) << (opcodeBits + regBits)
		word |= uint32(in.Csr) << (opcodeBits + 2*regBits)

	case layoutCSRI:
		word |= (uint32(in.Rd) & regMask) << opcodeBits
		word |= (uint32(in.Rs1) & regMask) << (opcodeBits + regBits) // uimm5
		word |= uint32(in.Csr) << (opcodeBits + 2*regBits)

	case layoutUJ:
		imm := in.Imm
		if pcRelative(in.Op) {
			imm /= 4
		} else {
			imm >>= 12 // LUI/AUIPC: store the 20-bit upper-immediate value itself
		}
		word |= (uint32(in.Rd) & regMask) << opcodeBits
		word |= uint32(imm) << (opcodeBits + regBits)
	}

	return word
}

// Decode unpacks a bytecode word back into an Instruction. This is the
// runtime fast path: one mask-and-shift per field, no allocation, no
// table beyond the opLayout lookup.
func Decode(word uint32) isa.Instruction {
	op := isa.Op(word & opcodeMask)
	if int(op) >= isa.Count {
		return isa.Instruction{}
	}

	switch opLayout[op] {
	case layoutNone:
		return isa.Instruction{Op: op}

	case layoutRRR:
		rd := uint8((word >> opcodeBits) & regMask)
		rs1 := uint8((word >> (opcodeBits + regBits)) & regMask)
		rs2 := uint8((word >> (opcodeBits + 2*regBits)) & regMask)
		return isa.Instruction{Op: op, Rd: rd, Rs1: rs1, Rs2: rs2}

	case layoutRRI:
		slotA := uint8((word >> opcodeBits) & regMask)
		slotB := uint8((word >> (opcodeBits + regBits)) & regMask)
		imm := int32(word) >> (opcodeBits + 2*regBits)
		if pcRelative(op) {
			imm *= 4
		}
		if regSlotsAsSource(op) {
			return isa.Instruction{Op: op, Rs1: slotA, Rs2: slotB, Imm: imm}
		}
		return isa.Instruction{Op: op, Rd: slotA, Rs1: slotB, Imm: imm}

	case layoutCSR:
		rd := uint8((word >> opcodeBits) & regMask)
		rs1 := uint8((word >> (opcodeBits + regBits)) & regMask)
		csr := uint16(word >> (opcodeBits + 2*regBits))
		return isa.Instruction{Op: op, Rd: rd, Rs1: rs1, Csr: csr}

	case layoutCSRI:
		rd := uint8((word >> opcodeBits) & regMask)
		uimm := uint8((word >> (opcodeBits + regBits)) & regMask)
		csr := uint16(word >> (opcodeBits + 2*regBits))
		return isa.Instruction{Op: op, Rd: rd, Rs1: uimm, Csr: csr}

	case layoutUJ:
		rd := uint8((word >> opcodeBits) & regMask)
		imm := int32(word) >> (opcodeBits + regBits)
		if pcRelative(op) {
			imm *= 4
		} else {
			imm <<= 12
		}
		return isa.Instruction{Op: op, Rd: rd, Imm: imm}
	}

	return isa.Instruction{}
}
