package vm

import (
	"fmt"

	"github.com/embive/embive-go/isa"
	"github.com/embive/embive-go/vmerr"
)

// execCSR handles CSRRW/CSRRS/CSRRC and their *I uimm variants. Every
// variant first reads the CSR's old value into rd, then conditionally
// writes a new value, per the RISC-V Zicsr pseudocode: CSRR*W always
// writes; CSRR*S/C only write when the operand (rs1, or uimm for the *I
// forms) is non-zero, so a "read-only" probe (x0 source / 0 uimm) never
// mutates state.
func (it *Interpreter) execCSR(in isa.Instruction) (outcome, bool, error) {
	old, ok := it.CSR.Read(in.Csr)
	if !ok {
		if it.cfg.StrictCSR {
			return outcomeHalted, false, &vmerr.IllegalState{
				Op:       "csr",
				Expected: "implemented csr number",
				Actual:   fmt.Sprintf("0x%03x", in.Csr),
			}
		}
		old = 0 // lenient: unimplemented CSRs read as zero
	}

	var operand uint32
	switch in.Op {
	case isa.CSRRWI, isa.CSRRSI, isa.CSRRCI:
		operand = uint32(in.Rs1) // uimm, packed into the rs1 field by the decoder
	default:
		operand = it.Regs.Get(in.Rs1)
	}

	switch in.Op {
	case isa.CSRRW, isa.CSRRWI:
		it.CSR.Write(in.Csr, operand)
	case isa.CSRRS, isa.CSRRSI:
		if operand != 0 {
			it.CSR.SetBits(in.Csr, operand)
		}
	case isa.CSRRC, isa.CSRRCI:
		if operand != 0 {
			it.CSR.ClearBits(in.Csr, operand)
		}
	}

	it.Regs.Set(in.Rd, old)
	return outcomeNext, false, nil
}
