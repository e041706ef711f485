// Package bytecode packs a decoded isa.Instruction into the 32-bit
// little-endian Embive bytecode word, and unpacks it back at interpreter
// run time. The packing is total over valid decoded records and bijective
// per opcode: given a native record the bytecode word is unique, and given
// a bytecode word the execution semantics are fully determined by a single
// mask-and-shift per field.
//
// Because the upstream Rust reference's exact bit layout was not available
// to this repository (see DESIGN.md), this package declares format
// independence: it keeps the 'EMBV' magic but assigns its own opcode
// numbering and field layout, bumping the format version accordingly.
package bytecode

import "github.com/embive/embive-go/isa"

// layout identifies which of the small number of canonical field
// arrangements a given opcode uses.
type layout uint8

const (
	layoutNone layout = iota // no operands (FENCE, ECALL, EBREAK, MRET, WFI, FENCE.I)
	layoutRRR                // opcode, rd, rs1, rs2 — register triples (arithmetic, AMO)
	layoutRRI                // opcode, rd_or_rs1, rs1_or_rs2, imm15 — loads/stores/branches/op-imm
	layoutCSR                // opcode, rd, rs1, csr12 — Zicsr register form
	layoutCSRI               // opcode, rd, uimm5, csr12 — Zicsr immediate form
	layoutUJ                 // opcode, rd, imm20 — LUI/AUIPC/JAL
)

// pcRelative reports whether an opcode's immediate is a code-relative
// offset that the transpiler has remapped into bytecode-PC units and that
// must be stored divided by 4 (all bytecode instructions are 4-byte
// aligned, so such offsets are always a multiple of 4).
func pcRelative(op isa.Op) bool {
	switch op {
	case isa.JAL, isa.BEQ, isa.BNE, isa.BLT, isa.BGE, isa.BLTU, isa.BGEU:
		return true
	}
	return false
}

var opLayout = [isa.Count]layout{
	isa.LUI:      layoutUJ,
	isa.AUIPC:    layoutUJ,
	isa.JAL:      layoutUJ,
	isa.JALR:     layoutRRI,
	isa.BEQ:      layoutRRI,
	isa.BNE:      layoutRRI,
	isa.BLT:      layoutRRI,
	isa.BGE:      layoutRRI,
	isa.BLTU:     layoutRRI,
	isa.BGEU:     layoutRRI,
	isa.LB:       layoutRRI,
	isa.LH:       layoutRRI,
	isa.LW:       layoutRRI,
	isa.LBU:      layoutRRI,
	isa.LHU:      layoutRRI,
	isa.SB:       layoutRRI,
	isa.SH:       layoutRRI,
	isa.SW:       layoutRRI,
	isa.ADDI:     layoutRRI,
	isa.SLTI:     layoutRRI,
	isa.SLTIU:    layoutRRI,
	isa.XORI:     layoutRRI,
	isa.ORI:      layoutRRI,
	isa.ANDI:     layoutRRI,
	isa.SLLI:     layoutRRI,
	isa.SRLI:     layoutRRI,
	isa.SRAI:     layoutRRI,
	isa.ADD:      layoutRRR,
	isa.SUB:      layoutRRR,
	isa.SLL:      layoutRRR,
	isa.SLT:      layoutRRR,
	isa.SLTU:     layoutRRR,
	isa.XOR:      layoutRRR,
	isa.SRL:      layoutRRR,
	isa.SRA:      layoutRRR,
	isa.OR:       layoutRRR,
	isa.AND:      layoutRRR,
	isa.FENCE:    layoutNone,
	isa.FENCEI:   layoutNone,
	isa.ECALL:    layoutNone,
	isa.EBREAK:   layoutNone,
	isa.MRET:     layoutNone,
	isa.WFI:      layoutNone,
	isa.CSRRW:    layoutCSR,
	isa.CSRRS:    layoutCSR,
	isa.CSRRC:    layoutCSR,
	isa.CSRRWI:   layoutCSRI,
	isa.CSRRSI:   layoutCSRI,
	isa.CSRRCI:   layoutCSRI,
	isa.MUL:      layoutRRR,
	isa.MULH:     layoutRRR,
	isa.MULHSU:   layoutRRR,
	isa.MULHU:    layoutRRR,
	isa.DIV:      layoutRRR,
	isa.DIVU:     layoutRRR,
	isa.REM:      layoutRRR,
	isa.REMU:     layoutRRR,
	isa.LRW:      layoutRRR,
	isa.SCW:      layoutRRR,
	isa.AMOSWAPW: layoutRRR,
	isa.AMOADDW:  layoutRRR,
	isa.AMOXORW:  layoutRRR,
	isa.AMOANDW:  layoutRRR,
	isa.AMOORW:   layoutRRR,
	isa.AMOMINW:  layoutRRR,
	isa.AMOMAXW:  layoutRRR,
	isa.AMOMINUW: layoutRRR,
	isa.AMOMAXUW: layoutRRR,
}
