package vm

import (
	"encoding/binary"

	"github.com/embive/embive-go/isa"
)

// execLoad handles LB/LH/LW/LBU/LHU. Misaligned-but-in-region accesses
// are permitted (see memory.Flat); only out-of-range accesses fault.
func (it *Interpreter) execLoad(in isa.Instruction) (outcome, bool, error) {
	addr := it.Regs.Get(in.Rs1) + uint32(in.Imm)

	var width int
	var signed bool
	switch in.Op {
	case isa.LB:
		width, signed = 1, true
	case isa.LH:
		width, signed = 2, true
	case isa.LW:
		width, signed = 4, true
	case isa.LBU:
		width, signed = 1, false
	case isa.LHU:
		width, signed = 2, false
	}

	buf, err := it.Mem.Load(addr, width)
	if err != nil {
		return outcomeHalted, false, err
	}

	var v uint32
	switch width {
	case 1:
		v = uint32(buf[0])
		if signed && buf[0]&0x80 != 0 {
			v |= 0xffff_ff00
		}
	case 2:
		h := binary.LittleEndian.Uint16(buf)
		v = uint32(h)
		if signed && h&0x8000 != 0 {
			v |= 0xffff_0000
		}
	case 4:
		v = binary.LittleEndian.Uint32(buf)
	}

	it.Regs.Set(in.Rd, v)
	return outcomeNext, false, nil
}

// execStore handles SB/SH/SW.
func (it *Interpreter) execStore(in isa.Instruction) (outcome, bool, error) {
	addr := it.Regs.Get(in.Rs1) + uint32(in.Imm)
	v := it.Regs.Get(in.Rs2)

	var width int
	switch in.Op {
	case isa.SB:
		width = 1
	case isa.SH:
		width = 2
	case isa.SW:
		width = 4
	}

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)

	if err := it.Mem.Store(addr, width, buf[:width]); err != nil {
		return outcomeHalted, false, err
	}
	it.clearReservation()
	return outcomeNext, false, nil
}
