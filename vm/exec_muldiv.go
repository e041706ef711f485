package vm

import "github.com/embive/embive-go/isa"

// execMulDiv handles the M extension: MUL/MULH/MULHSU/MULHU and
// DIV/DIVU/REM/REMU. Division by zero and the INT_MIN/-1 overflow case
// never trap; they produce the fixed results the RISC-V spec mandates.
func (it *Interpreter) execMulDiv(in isa.Instruction) (outcome, bool, error) {
	a := it.Regs.Get(in.Rs1)
	b := it.Regs.Get(in.Rs2)

	var v uint32
	switch in.Op {
	case isa.MUL:
		v = a * b

	case isa.MULH:
		v = uint32((int64(int32(a)) * int64(int32(b))) >> 32)

	case isa.MULHSU:
		v = uint32((int64(int32(a)) * int64(uint64(b))) >> 32)

	case isa.MULHU:
		v = uint32((uint64(a) * uint64(b)) >> 32)

	case isa.DIV:
		sa, sb := int32(a), int32(b)
		switch {
		case sb == 0:
			v = 0xffff_ffff
		case sa == -0x8000_0000 && sb == -1:
			v = 0x8000_0000
		default:
			v = uint32(sa / sb)
		}

	case isa.DIVU:
		if b == 0 {
			v = 0xffff_ffff
		} else {
			v = a / b
		}

	case isa.REM:
		sa, sb := int32(a), int32(b)
		switch {
		case sb == 0:
			v = uint32(sa)
		case sa == -0x8000_0000 && sb == -1:
			v = 0
		default:
			v = uint32(sa % sb)
		}

	case isa.REMU:
		if b == 0 {
			v = a
		} else {
			v = a % b
		}
	}

	it.Regs.Set(in.Rd, v)
	return outcomeNext, false, nil
}
