package vm

import "github.com/embive/embive-go/isa"

// execBranch handles BEQ/BNE/BLT/BGE/BLTU/BGEU. in.Imm is the signed
// byte offset from the branch's own address; a taken branch writes PC
// directly so Run does not also add 4.
func (it *Interpreter) execBranch(in isa.Instruction) (outcome, bool, error) {
	a := it.Regs.Get(in.Rs1)
	b := it.Regs.Get(in.Rs2)

	var taken bool
	switch in.Op {
	case isa.BEQ:
		taken = a == b
	case isa.BNE:
		taken = a != b
	case isa.BLT:
		taken = int32(a) < int32(b)
	case isa.BGE:
		taken = int32(a) >= int32(b)
	case isa.BLTU:
		taken = a < b
	case isa.BGEU:
		taken = a >= b
	}

	if !taken {
		return outcomeNext, false, nil
	}
	it.Regs.PC += uint32(in.Imm)
	return outcomeNext, true, nil
}
