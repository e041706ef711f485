package isa

import "fmt"

// Disassemble renders a decoded Instruction as RISC-V assembly-like text,
// for debugger output and transpile-time diagnostics.
func Disassemble(in Instruction) string {
	switch in.Op {
	case Illegal:
		return "illegal"
	case LUI, AUIPC:
		return fmt.Sprintf("%s x%d, %d", in.Op, in.Rd, in.Imm>>12)
	case JAL:
		return fmt.Sprintf("jal x%d, %d", in.Rd, in.Imm)
	case JALR:
		return fmt.Sprintf("jalr x%d, %d(x%d)", in.Rd, in.Imm, in.Rs1)
	case BEQ, BNE, BLT, BGE, BLTU, BGEU:
		return fmt.Sprintf("%s x%d, x%d, %d", in.Op, in.Rs1, in.Rs2, in.Imm)
	case LB, LH, LW, LBU, LHU:
		return fmt.Sprintf("%s x%d, %d(x%d)", in.Op, in.Rd, in.Imm, in.Rs1)
	case SB, SH, SW:
		return fmt.Sprintf("%s x%d, %d(x%d)", in.Op, in.Rs2, in.Imm, in.Rs1)
	case SLLI, SRLI, SRAI:
		return fmt.Sprintf("%s x%d, x%d, %d", in.Op, in.Rd, in.Rs1, in.Imm)
	case ADDI, SLTI, SLTIU, XORI, ORI, ANDI:
		return fmt.Sprintf("%s x%d, x%d, %d", in.Op, in.Rd, in.Rs1, in.Imm)
	case ADD, SUB, SLL, SLT, SLTU, XOR, SRL, SRA, OR, AND,
		MUL, MULH, MULHSU, MULHU, DIV, DIVU, REM, REMU:
		return fmt.Sprintf("%s x%d, x%d, x%d", in.Op, in.Rd, in.Rs1, in.Rs2)
	case FENCE, FENCEI, ECALL, EBREAK, MRET, WFI:
		return in.Op.String()
	case CSRRW, CSRRS, CSRRC:
		return fmt.Sprintf("%s x%d, 0x%x, x%d", in.Op, in.Rd, in.Csr, in.Rs1)
	case CSRRWI, CSRRSI, CSRRCI:
		return fmt.Sprintf("%s x%d, 0x%x, %d", in.Op, in.Rd, in.Csr, in.Rs1)
	case LRW:
		return fmt.Sprintf("lr.w x%d, (x%d)", in.Rd, in.Rs1)
	case SCW, AMOSWAPW, AMOADDW, AMOXORW, AMOANDW, AMOORW, AMOMINW, AMOMAXW, AMOMINUW, AMOMAXUW:
		return fmt.Sprintf("%s x%d, x%d, (x%d)", in.Op, in.Rd, in.Rs2, in.Rs1)
	}
	return "illegal"
}
