// Command embive-run is a CLI harness around the embive-go sandbox:
// transpile an RV32IMAC_Zicsr_Zifencei ELF, run it to completion (or to
// its instruction budget), and service a small fixed syscall ABI so
// simple guest programs can print output. It is not part of the
// sandbox's API surface — it exists to exercise it end to end, the way
// the teacher's flag-driven main.go drives its own vm.VM.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/embive/embive-go/config"
	"github.com/embive/embive-go/debugger"
	"github.com/embive/embive-go/hostio"
	"github.com/embive/embive-go/internal/obslog"
	"github.com/embive/embive-go/memory"
	"github.com/embive/embive-go/transpile"
	"github.com/embive/embive-go/vm"
)

// Syscall numbers this harness understands. A real embedder defines its
// own ABI; this is just enough to demo the loop.
const (
	sysWriteByte = 1 // a0 = byte to write to stdout
	sysExit      = 93
)

func main() {
	var (
		elfPath      = flag.String("elf", "", "path to the RV32IMAC ELF to transpile and run")
		ramSize      = flag.Uint("ram", 1<<20, "RAM region size in bytes")
		instrLimit   = flag.Uint64("max-instructions", 0, "instructions per run() call, 0 = unbounded")
		configPath   = flag.String("config", "", "optional TOML config file (defaults to "+configDefaultHint+")")
		useDebugger  = flag.Bool("debugger", false, "launch the interactive TUI debugger instead of running to completion")
	)
	flag.Parse()

	if *elfPath == "" {
		fmt.Fprintln(os.Stderr, "usage: embive-run -elf <path> [-debugger] [-max-instructions N] [-ram bytes]")
		os.Exit(2)
	}

	fileCfg, err := loadFileConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	// trace.enabled in the config file takes precedence; otherwise fall
	// back to the EMBIVE_DEBUG env-gated singleton.
	log := obslog.Get()
	if fileCfg.Trace.Enabled {
		log = obslog.New(true, fileCfg.Trace.Output)
	}

	f, err := os.Open(*elfPath)
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	result, err := transpile.Transpile(f)
	if err != nil {
		fatal(err)
	}

	ram := result.RAM
	if uint(len(ram)) < *ramSize {
		grown := make([]byte, *ramSize)
		copy(grown, ram)
		ram = grown
	}

	codeBytes := make([]byte, 4*len(result.Image.Words))
	for i, w := range result.Image.Words {
		bytecodeWordLE(codeBytes, i, w)
	}
	mem := memory.NewFlat(codeBytes, ram)

	limit := *instrLimit
	if fileCfg.Execution.InstructionLimit != 0 {
		limit = fileCfg.Execution.InstructionLimit
	}

	entryPoint, err := config.ParseUint32(fileCfg.Execution.EntryPoint)
	if err != nil {
		fatal(err)
	}
	interruptVector, err := config.ParseUint32(fileCfg.Execution.InterruptVector)
	if err != nil {
		fatal(err)
	}

	cfg := config.Config{
		InstructionLimit: limit,
		SyscallFn:        hostSyscall,
		EntryPoint:       entryPoint,
		InterruptVector:  interruptVector,
		StrictCSR:        fileCfg.Execution.StrictCSR,
	}

	it := vm.New(result.Image, mem, cfg, log)

	if *useDebugger {
		session := debugger.NewSession(it)
		tui := debugger.NewTUI(session)
		if err := tui.Run(); err != nil {
			fatal(err)
		}
		return
	}

	runToCompletion(it)
}

func runToCompletion(it *vm.Interpreter) {
	for {
		state, err := it.Run()
		if err != nil {
			fatal(err)
		}
		switch state {
		case vm.Halted:
			return
		case vm.Called:
			if err := it.Syscall(); err != nil {
				fatal(err)
			}
		case vm.Waiting:
			// No external interrupt source in this harness: a guest that
			// calls wfi with nothing to wake it up simply stops here.
			return
		case vm.Running:
			// instruction budget exhausted; loop again
		}
	}
}

func hostSyscall(nr uint32, args [hostio.SyscallArgs]uint32, mem memory.Memory) (int32, uint32, error) {
	switch nr {
	case sysWriteByte:
		fmt.Fprintf(os.Stdout, "%c", byte(args[0]))
		return 0, 0, nil
	case sysExit:
		os.Exit(int(int32(args[0])))
		return 0, 0, nil
	}
	return -1, 1, nil // unknown syscall: fail gracefully, don't abort the host
}

func bytecodeWordLE(buf []byte, i int, w uint32) {
	buf[4*i+0] = byte(w)
	buf[4*i+1] = byte(w >> 8)
	buf[4*i+2] = byte(w >> 16)
	buf[4*i+3] = byte(w >> 24)
}

func loadFileConfig(path string) (*config.FileConfig, error) {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.LoadFile(path)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "embive-run: %v\n", err)
	os.Exit(1)
}

const configDefaultHint = "$HOME/.config/embive/config.toml"
