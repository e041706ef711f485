// Package hostio marshals syscall arguments and results across the
// guest/host boundary, following the standard RISC-V integer calling
// convention: a7 (x17) carries the syscall number, a0..a5 (x10..x15)
// carry up to SyscallArgs arguments, and on return a0 carries the result
// while a1 carries a guest-visible error code (0 on success).
package hostio

import (
	"github.com/embive/embive-go/cpu"
	"github.com/embive/embive-go/memory"
)

// SyscallArgs is the number of integer argument registers the ABI
// reserves for a syscall (a0..a5).
const SyscallArgs = 6

const (
	regA0 = 10
	regA7 = 17
)

// SyscallFunc is the host's handler for a guest ecall. It receives the
// syscall number, the argument window, and the guest memory façade (so
// e.g. a "write buffer" syscall can read guest memory directly). A
// non-nil error is a fatal host failure that aborts run() with
// vmerr.HostError; otherwise result/guestErrCode are written back to
// a0/a1 and execution continues.
type SyscallFunc func(nr uint32, args [SyscallArgs]uint32, mem memory.Memory) (result int32, guestErrCode uint32, err error)

// ReadCall extracts the syscall number and argument window from the
// register file per the ABI above.
func ReadCall(regs *cpu.Registers) (nr uint32, args [SyscallArgs]uint32) {
	nr = regs.Get(regA7)
	for i := 0; i < SyscallArgs; i++ {
		args[i] = regs.Get(uint8(regA0 + i))
	}
	return nr, args
}

// WriteResult stores a syscall's guest-visible result and error code
// into a0/a1.
func WriteResult(regs *cpu.Registers, result int32, guestErrCode uint32) {
	regs.Set(regA0, uint32(result))
	regs.Set(regA0+1, guestErrCode)
}
