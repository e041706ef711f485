// Package vm implements the dispatch loop: fetch a bytecode word at PC,
// decode its dense opcode, execute the handler, advance PC, decrement the
// instruction budget, and return a state code to the host. It also owns
// the atomic reservation (A extension) and the host bridge (syscalls,
// interrupts).
package vm

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/embive/embive-go/bytecode"
	"github.com/embive/embive-go/config"
	"github.com/embive/embive-go/cpu"
	"github.com/embive/embive-go/memory"
	"github.com/embive/embive-go/vmerr"
)

// State is the guest-visible execution state the host observes after a
// run() call returns.
type State int

const (
	// Running means the instruction budget was exhausted; call run()
	// again to continue.
	Running State = iota
	// Called means the guest issued ecall; the host must service it
	// with Syscall before calling run() again.
	Called
	// Waiting means the guest issued wfi; the host must call Interrupt
	// before calling run() again (or simply not call run() again until
	// an external event warrants it).
	Waiting
	// Halted means the guest issued ebreak, or an unrecoverable trap
	// occurred. The interpreter will not make further progress.
	Halted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Called:
		return "called"
	case Waiting:
		return "waiting"
	case Halted:
		return "halted"
	}
	return "unknown"
}

// Reservation is the single-word reservation set used to emulate LR/SC
// under the A extension.
type Reservation struct {
	Addr  uint32
	Valid bool
}

// Interpreter is one VM instance. It is not goroutine-safe; the host must
// serialize all calls (Run, Syscall, Interrupt, register/CSR access)
// itself — see asyncrun for a cooperative wrapper.
type Interpreter struct {
	Regs cpu.Registers
	CSR  cpu.CSRFile
	Mem  memory.Memory

	cfg   config.Config
	image *bytecode.Image

	state       State
	reservation Reservation

	log *zap.Logger
}

// New constructs an interpreter bound to img's code and mem's RAM. PC and
// sp are initialized per spec.md §6: PC from cfg.EntryPoint if non-zero,
// else from the image header; sp at the top of RAM, aligned down to 16.
func New(img *bytecode.Image, mem memory.Memory, cfg config.Config, log *zap.Logger) *Interpreter {
	if log == nil {
		log = zap.NewNop()
	}
	it := &Interpreter{
		Mem:   mem,
		cfg:   cfg,
		image: img,
		state: Running,
		log:   log,
	}
	it.CSR.MTVec = cfg.InterruptVector

	entry := cfg.EntryPoint
	if entry == 0 {
		entry = img.Header.EntryPoint
	}
	it.Regs.PC = entry

	sp := mem.Size() + memory.RAMBase
	sp &^= 0xf
	it.Regs.Set(2, sp) // x2 = sp
	return it
}

// State reports the interpreter's current guest-visible state without
// running anything.
func (it *Interpreter) State() State { return it.state }

// fetch reads the 32-bit bytecode word at pc, which must be 4-aligned.
func (it *Interpreter) fetch(pc uint32) (uint32, error) {
	if pc&0x3 != 0 {
		return 0, &vmerr.MisalignedFetch{Addr: pc}
	}
	data, err := it.Mem.Load(pc, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// Run executes up to cfg.InstructionLimit instructions (unbounded if
// zero), returning the resulting state. See package doc and spec.md §4.F
// for the per-iteration algorithm.
func (it *Interpreter) Run() (State, error) {
	if it.state == Halted {
		return Halted, nil
	}

	limit := it.cfg.InstructionLimit
	var executed uint64
	for limit == 0 || executed < limit {
		state, err := it.stepOnce()
		if err != nil {
			return Halted, err
		}
		if state != Running {
			return state, nil
		}
		executed++
	}

	it.state = Running
	return Running, nil
}

// Step executes exactly one instruction regardless of cfg.InstructionLimit,
// for interactive single-stepping (see package debugger). It is a no-op
// returning Halted if the interpreter has already halted.
func (it *Interpreter) Step() (State, error) {
	if it.state == Halted {
		return Halted, nil
	}
	return it.stepOnce()
}

// stepOnce fetches, decodes, and executes one instruction, leaving
// it.state set to the outcome. The returned state is Running when the
// step completed normally and the caller should keep going.
func (it *Interpreter) stepOnce() (State, error) {
	word, err := it.fetch(it.Regs.PC)
	if err != nil {
		it.state = Halted
		it.log.Debug("fetch fault", zap.Uint32("pc", it.Regs.PC), zap.Error(err))
		return Halted, err
	}

	in := bytecode.Decode(word)
	outcome, wrotePC, err := it.execute(in)
	if err != nil {
		it.state = Halted
		it.log.Debug("execution fault", zap.Uint32("pc", it.Regs.PC), zap.Error(err))
		return Halted, err
	}

	if !wrotePC {
		it.Regs.PC += 4
	}
	it.Regs.ZeroX0()

	switch outcome {
	case outcomeHalted:
		it.state = Halted
		it.log.Debug("halted")
		return Halted, nil
	case outcomeCalled:
		it.state = Called
		return Called, nil
	case outcomeWaiting:
		it.state = Waiting
		return Waiting, nil
	}

	it.state = Running
	return Running, nil
}
