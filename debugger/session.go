package debugger

import (
	"encoding/binary"

	"github.com/embive/embive-go/bytecode"
	"github.com/embive/embive-go/isa"
	"github.com/embive/embive-go/vm"
)

// Session wires a vm.Interpreter to a Breakpoints set and single-step
// control, the role the teacher's Debugger struct plays over its vm.VM.
type Session struct {
	VM          *vm.Interpreter
	Breakpoints *Breakpoints
	Running     bool
}

// NewSession wraps it, paused.
func NewSession(it *vm.Interpreter) *Session {
	return &Session{VM: it, Breakpoints: NewBreakpoints()}
}

// Step executes exactly one instruction and returns the resulting state.
func (s *Session) Step() (vm.State, error) {
	return s.VM.Step()
}

// ContinueUntilStopOrBreakpoint runs single steps until the interpreter
// leaves Running for a non-Running state, or the fetched PC carries an
// enabled breakpoint (checked before the step that would execute it).
//
// This single-steps rather than calling Run() with the configured
// instruction limit, trading throughput for the ability to stop exactly
// at a breakpoint — acceptable for an interactive debugger.
func (s *Session) ContinueUntilStopOrBreakpoint(pcOf func() uint32) (vm.State, error) {
	for {
		if s.Breakpoints.Hit(pcOf()) {
			return vm.Running, nil
		}
		state, err := s.VM.Step()
		if err != nil || state != vm.Running {
			return state, err
		}
	}
}

// DisasmLine is one disassembled bytecode word and its address.
type DisasmLine struct {
	Addr uint32
	Text string
}

// Disassemble reads count instructions' worth of bytecode starting at
// addr and renders them as assembly text, paired with their address.
func Disassemble(mem interface {
	Load(addr uint32, width int) ([]byte, error)
}, addr uint32, count int) []DisasmLine {
	out := make([]DisasmLine, 0, count)
	for i := 0; i < count; i++ {
		a := addr + uint32(i)*4
		buf, err := mem.Load(a, 4)
		if err != nil {
			break
		}
		word := binary.LittleEndian.Uint32(buf)
		in := bytecode.Decode(word)
		text := isa.Disassemble(in)
		out = append(out, DisasmLine{Addr: a, Text: text})
	}
	return out
}
