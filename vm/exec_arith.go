package vm

import "github.com/embive/embive-go/isa"

// execImmArith handles ADDI/SLTI/SLTIU/XORI/ORI/ANDI/SLLI/SRLI/SRAI.
func (it *Interpreter) execImmArith(in isa.Instruction) (outcome, bool, error) {
	a := it.Regs.Get(in.Rs1)
	imm := in.Imm
	shamt := uint32(imm) & 0x1f

	var v uint32
	switch in.Op {
	case isa.ADDI:
		v = a + uint32(imm)
	case isa.SLTI:
		v = b2u(int32(a) < imm)
	case isa.SLTIU:
		v = b2u(a < uint32(imm))
	case isa.XORI:
		v = a ^ uint32(imm)
	case isa.ORI:
		v = a | uint32(imm)
	case isa.ANDI:
		v = a & uint32(imm)
	case isa.SLLI:
		v = a << shamt
	case isa.SRLI:
		v = a >> shamt
	case isa.SRAI:
		v = uint32(int32(a) >> shamt)
	}

	it.Regs.Set(in.Rd, v)
	return outcomeNext, false, nil
}

// execRegArith handles ADD/SUB/SLL/SLT/SLTU/XOR/SRL/SRA/OR/AND.
func (it *Interpreter) execRegArith(in isa.Instruction) (outcome, bool, error) {
	a := it.Regs.Get(in.Rs1)
	b := it.Regs.Get(in.Rs2)
	shamt := b & 0x1f

	var v uint32
	switch in.Op {
	case isa.ADD:
		v = a + b
	case isa.SUB:
		v = a - b
	case isa.SLL:
		v = a << shamt
	case isa.SLT:
		v = b2u(int32(a) < int32(b))
	case isa.SLTU:
		v = b2u(a < b)
	case isa.XOR:
		v = a ^ b
	case isa.SRL:
		v = a >> shamt
	case isa.SRA:
		v = uint32(int32(a) >> shamt)
	case isa.OR:
		v = a | b
	case isa.AND:
		v = a & b
	}

	it.Regs.Set(in.Rd, v)
	return outcomeNext, false, nil
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
