// Package config aggregates the interpreter's construction-time tunables.
package config

import "github.com/embive/embive-go/hostio"

// Config is taken once at interpreter construction (spec.md §4.I) and is
// not mutated thereafter except through CSR writes executed by guest
// code.
type Config struct {
	// InstructionLimit bounds how many instructions a single run() call
	// executes; zero means unbounded.
	InstructionLimit uint64

	// SyscallFn handles guest ecalls. When it is nil, a guest ecall
	// still leaves the interpreter Called, and Syscall then returns an
	// IllegalState error without advancing PC.
	SyscallFn hostio.SyscallFunc

	// InterruptVector is mtvec's initial value.
	InterruptVector uint32

	// EntryPoint overrides the bytecode image header's entry point when
	// non-zero.
	EntryPoint uint32

	// StrictCSR, when true, makes an access to an unimplemented CSR
	// number a fault instead of the lenient "reads zero, accepts
	// writes" default. See DESIGN.md's Open Questions: the reference
	// implementation appears lenient, so lenient is the default here.
	StrictCSR bool
}
