package vm

import (
	"github.com/embive/embive-go/cpu"
	"github.com/embive/embive-go/hostio"
	"github.com/embive/embive-go/vmerr"
)

// Syscall services a pending ecall: it must only be called while State()
// is Called. It reads the syscall ABI window, invokes cfg.SyscallFn,
// writes the result back into a0/a1, advances PC past the ecall, and
// returns the interpreter to Running so the next Run() call proceeds
// with the instruction after ecall. The host's SyscallFn can mutate RAM
// through the same Memory the guest sees, so the atomic reservation is
// cleared here too: it is a host-visible boundary, not just a store.
func (it *Interpreter) Syscall() error {
	if it.state != Called {
		return &vmerr.IllegalState{Op: "syscall", Expected: Called.String(), Actual: it.state.String()}
	}

	if it.cfg.SyscallFn == nil {
		return &vmerr.IllegalState{Op: "syscall", Expected: "a configured SyscallFn", Actual: "nil"}
	}

	nr, args := hostio.ReadCall(&it.Regs)
	result, guestErrCode, err := it.cfg.SyscallFn(nr, args, it.Mem)
	if err != nil {
		it.state = Halted
		return &vmerr.HostError{Cause: err}
	}

	hostio.WriteResult(&it.Regs, result, guestErrCode)
	it.Regs.PC += 4
	it.clearReservation()
	it.state = Running
	return nil
}

// Interrupt delivers a host-triggered external interrupt: it must only
// be called while State() is Waiting. It saves the resume address into
// mepc, sets the external-interrupt cause and pending bit, and — if the
// interrupt is enabled (mstatus.MIE and mie.MEIE both set) — redirects
// PC to mtvec; otherwise the interrupt is recorded as pending but
// execution simply resumes at the saved PC, matching a masked-interrupt
// wakeup from wfi.
func (it *Interpreter) Interrupt() error {
	if it.state != Waiting {
		return &vmerr.IllegalState{Op: "interrupt", Expected: Waiting.String(), Actual: it.state.String()}
	}

	it.CSR.MEPC = it.Regs.PC
	it.CSR.MCause = cpu.CauseExternalInterrupt
	it.CSR.MIP |= cpu.MIPMEIP

	enabled := it.CSR.MStatus&cpu.MStatusMIE != 0 && it.CSR.MIE&cpu.MIEMEIE != 0
	if enabled {
		it.Regs.PC = it.CSR.MTVec
	}

	it.clearReservation()
	it.state = Running
	return nil
}
