package vm

import "github.com/embive/embive-go/isa"

// execSystem handles ECALL, EBREAK, MRET, and WFI.
func (it *Interpreter) execSystem(in isa.Instruction) (outcome, bool, error) {
	switch in.Op {
	case isa.ECALL:
		// PC is left pointing at the ecall itself; Syscall() advances it
		// by 4 once the host has supplied a result, so a host that calls
		// Run again without calling Syscall simply re-issues the same
		// ecall (idempotent, if wasteful).
		return outcomeCalled, true, nil

	case isa.EBREAK:
		return outcomeHalted, true, nil

	case isa.MRET:
		it.Regs.PC = it.CSR.MEPC
		it.clearReservation()
		return outcomeNext, true, nil

	case isa.WFI:
		// The instruction is considered retired: PC advances normally
		// and Interrupt() resumes execution at the following address.
		return outcomeWaiting, false, nil
	}
	return outcomeNext, false, nil
}
