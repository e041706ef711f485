package vm

import (
	"encoding/binary"

	"github.com/embive/embive-go/isa"
)

// execAtomic handles the A extension: LR.W, SC.W, and the AMO*.W
// read-modify-write family. All addresses come straight from rs1 (no
// immediate offset, per the A extension's encoding). Under this
// single-hart model the reservation set is just one address plus a
// valid flag (see reservation.go).
func (it *Interpreter) execAtomic(in isa.Instruction) (outcome, bool, error) {
	addr := it.Regs.Get(in.Rs1)

	if in.Op == isa.LRW {
		buf, err := it.Mem.Load(addr, 4)
		if err != nil {
			return outcomeHalted, false, err
		}
		it.Regs.Set(in.Rd, binary.LittleEndian.Uint32(buf))
		it.setReservation(addr)
		return outcomeNext, false, nil
	}

	if in.Op == isa.SCW {
		if !it.checkAndClearReservation(addr) {
			it.Regs.Set(in.Rd, 1) // failure
			return outcomeNext, false, nil
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, it.Regs.Get(in.Rs2))
		if err := it.Mem.Store(addr, 4, buf); err != nil {
			return outcomeHalted, false, err
		}
		it.Regs.Set(in.Rd, 0) // success
		return outcomeNext, false, nil
	}

	// AMO*.W: atomically load the old value, compute the new value from
	// rs2, store it, and return the old value in rd.
	buf, err := it.Mem.Load(addr, 4)
	if err != nil {
		return outcomeHalted, false, err
	}
	old := binary.LittleEndian.Uint32(buf)
	rhs := it.Regs.Get(in.Rs2)

	var neu uint32
	switch in.Op {
	case isa.AMOSWAPW:
		neu = rhs
	case isa.AMOADDW:
		neu = old + rhs
	case isa.AMOXORW:
		neu = old ^ rhs
	case isa.AMOANDW:
		neu = old & rhs
	case isa.AMOORW:
		neu = old | rhs
	case isa.AMOMINW:
		if int32(old) < int32(rhs) {
			neu = old
		} else {
			neu = rhs
		}
	case isa.AMOMAXW:
		if int32(old) > int32(rhs) {
			neu = old
		} else {
			neu = rhs
		}
	case isa.AMOMINUW:
		if old < rhs {
			neu = old
		} else {
			neu = rhs
		}
	case isa.AMOMAXUW:
		if old > rhs {
			neu = old
		} else {
			neu = rhs
		}
	}

	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, neu)
	if err := it.Mem.Store(addr, 4, out); err != nil {
		return outcomeHalted, false, err
	}
	it.clearReservation()
	it.Regs.Set(in.Rd, old)
	return outcomeNext, false, nil
}
