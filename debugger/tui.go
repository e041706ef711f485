package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/embive/embive-go/vm"
)

// TUI is a minimal text interface over a Session: register and
// disassembly panels plus a command line, trimmed from the teacher's
// much larger multi-panel TUI (source view, stack view, watchpoints,
// GUI bridge) down to what this sandbox actually needs to inspect.
type TUI struct {
	Session *Session

	App             *tview.Application
	RegisterView    *tview.TextView
	DisassemblyView *tview.TextView
	CommandInput    *tview.InputField

	disasmBase uint32
}

// NewTUI builds the view tree around session, unstarted.
func NewTUI(session *Session) *TUI {
	t := &TUI{
		Session: session,
		App:     tview.NewApplication(),
	}

	t.RegisterView = tview.NewTextView().SetDynamicColors(true)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.DisassemblyView = tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.CommandInput = tview.NewInputField().SetLabel("> ")
	t.CommandInput.SetBorder(true).SetTitle(" Command (step/continue/break <addr>/quit) ")
	t.CommandInput.SetDoneFunc(t.handleCommand)

	top := tview.NewFlex().
		AddItem(t.RegisterView, 40, 0, false).
		AddItem(t.DisassemblyView, 0, 1, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, 0, 1, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.App.SetRoot(root, true).SetFocus(t.CommandInput)
	t.refresh()
	return t
}

// Run blocks until the user quits the TUI.
func (t *TUI) Run() error {
	return t.App.Run()
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	fields := strings.Fields(t.CommandInput.GetText())
	t.CommandInput.SetText("")
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "step", "s":
		t.step()
	case "continue", "c":
		t.cont()
	case "break", "b":
		if len(fields) == 2 {
			if addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 32); err == nil {
				t.Session.Breakpoints.Add(uint32(addr))
			}
		}
	case "quit", "q":
		t.App.Stop()
		return
	}
	t.refresh()
}

func (t *TUI) step() {
	state, err := t.Session.Step()
	t.reportState(state, err)
}

func (t *TUI) cont() {
	state, err := t.Session.ContinueUntilStopOrBreakpoint(func() uint32 { return t.Session.VM.Regs.PC })
	t.reportState(state, err)
}

func (t *TUI) reportState(state vm.State, err error) {
	if err != nil {
		fmt.Fprintf(t.RegisterView, "\n[red]error: %v[-]\n", err)
	}
	_ = state // surfaced via refresh()'s register dump, nothing extra to show here
}

func (t *TUI) refresh() {
	regs := &t.Session.VM.Regs
	t.RegisterView.Clear()
	fmt.Fprintf(t.RegisterView, "pc  = 0x%08x  state = %s\n", regs.PC, t.Session.VM.State())
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(t.RegisterView, "x%-2d=%08x x%-2d=%08x x%-2d=%08x x%-2d=%08x\n",
			i, regs.Get(uint8(i)), i+1, regs.Get(uint8(i+1)), i+2, regs.Get(uint8(i+2)), i+3, regs.Get(uint8(i+3)))
	}

	t.DisassemblyView.Clear()
	for _, line := range Disassemble(t.Session.VM.Mem, regs.PC, 20) {
		marker := "  "
		if t.Session.Breakpoints.Hit(line.Addr) {
			marker = "[red]B[-]"
		}
		fmt.Fprintf(t.DisassemblyView, "%s 0x%08x  %s\n", marker, line.Addr, line.Text)
	}
}
