package vm

import (
	"github.com/embive/embive-go/isa"
	"github.com/embive/embive-go/vmerr"
)

// outcome tells Run what to do after a handler returns: advance normally,
// or transition to one of the three non-Running exit states.
type outcome int

const (
	outcomeNext outcome = iota
	outcomeHalted
	outcomeCalled
	outcomeWaiting
)

// execute runs one decoded instruction. It returns the outcome, whether
// the handler already wrote PC (branches/jumps do; everything else lets
// Run add 4), and a fatal error if the instruction faulted.
func (it *Interpreter) execute(in isa.Instruction) (outcome, bool, error) {
	switch {
	case in.Op == isa.Illegal:
		return outcomeHalted, false, &vmerr.InvalidInstruction{Addr: it.Regs.PC}

	case in.Op >= isa.LUI && in.Op <= isa.JALR:
		return it.execUpperAndJump(in)

	case in.Op >= isa.BEQ && in.Op <= isa.BGEU:
		return it.execBranch(in)

	case in.Op >= isa.LB && in.Op <= isa.LHU:
		return it.execLoad(in)

	case in.Op >= isa.SB && in.Op <= isa.SW:
		return it.execStore(in)

	case in.Op >= isa.ADDI && in.Op <= isa.SRAI:
		return it.execImmArith(in)

	case in.Op >= isa.ADD && in.Op <= isa.AND:
		return it.execRegArith(in)

	case in.Op == isa.FENCE, in.Op == isa.FENCEI:
		return outcomeNext, false, nil // single-hart sandbox: no-op

	case in.Op == isa.ECALL, in.Op == isa.EBREAK, in.Op == isa.MRET, in.Op == isa.WFI:
		return it.execSystem(in)

	case in.Op >= isa.CSRRW && in.Op <= isa.CSRRCI:
		return it.execCSR(in)

	case in.Op >= isa.MUL && in.Op <= isa.REMU:
		return it.execMulDiv(in)

	case in.Op >= isa.LRW && in.Op <= isa.AMOMAXUW:
		return it.execAtomic(in)
	}

	return outcomeHalted, false, &vmerr.InvalidInstruction{Addr: it.Regs.PC}
}
