package vm

import "github.com/embive/embive-go/isa"

// execUpperAndJump handles LUI, AUIPC, JAL, JALR. In.Imm already carries
// the fully sign-extended, unit-correct immediate (upper-20 already
// shifted left 12 for LUI/AUIPC; byte offsets for JAL/JALR) per the
// decoder's contract.
func (it *Interpreter) execUpperAndJump(in isa.Instruction) (outcome, bool, error) {
	switch in.Op {
	case isa.LUI:
		it.Regs.Set(in.Rd, uint32(in.Imm))
		return outcomeNext, false, nil

	case isa.AUIPC:
		it.Regs.Set(in.Rd, it.Regs.PC+uint32(in.Imm))
		return outcomeNext, false, nil

	case isa.JAL:
		link := it.Regs.PC + 4
		target := it.Regs.PC + uint32(in.Imm)
		it.Regs.Set(in.Rd, link)
		it.Regs.PC = target
		return outcomeNext, true, nil

	case isa.JALR:
		link := it.Regs.PC + 4
		target := (it.Regs.Get(in.Rs1) + uint32(in.Imm)) &^ 1
		it.Regs.Set(in.Rd, link)
		it.Regs.PC = target
		return outcomeNext, true, nil
	}
	return outcomeNext, false, nil
}
