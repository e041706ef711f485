package transpile

import (
	"io"

	"github.com/embive/embive-go/bytecode"
	"github.com/embive/embive-go/isa"
	"github.com/embive/embive-go/vmerr"
)

// Result is a fully transpiled program: the bytecode image (code) and the
// initial RAM contents (data + zero-padded bss), ready to be handed to
// memory.NewFlat.
type Result struct {
	Image *bytecode.Image
	RAM   []byte
}

// decoded is one native instruction plus the native address it was found
// at, carried between the two transpilation passes.
type decoded struct {
	nativeAddr uint32
	in         isa.Instruction
}

// Transpile reads an RV32IMAC_Zicsr_Zifencei ELF executable from r and
// produces its bytecode image.
//
// Every native instruction — 16-bit compressed or 32-bit — occupies
// exactly one 4-byte bytecode word, regardless of its original width;
// this is what lets pass one build a dense nativeAddr -> bytecodeAddr
// table before pass two rewrites any PC-relative immediate. AUIPC-based
// absolute code-address materialization (auipc+jalr "far call" pairs) is
// not rewritten: see DESIGN.md.
func Transpile(r io.ReaderAt) (*Result, error) {
	src, err := loadELF(r)
	if err != nil {
		return nil, err
	}

	program, err := decodeAll(src.code, uint32(src.codeBase))
	if err != nil {
		return nil, err
	}

	addrTable := make(map[uint32]uint32, len(program))
	for i, d := range program {
		addrTable[d.nativeAddr] = uint32(i) * 4
	}

	words := make([]uint32, len(program))
	for i, d := range program {
		in := d.in
		if isPCRelative(in.Op) {
			targetNative := d.nativeAddr + uint32(in.Imm)
			bcTarget, ok := addrTable[targetNative]
			if !ok {
				return nil, &vmerr.SegmentOutOfBounds{Addr: targetNative}
			}
			in.Imm = int32(bcTarget) - int32(uint32(i)*4)
		}
		words[i] = bytecode.Encode(in)
	}

	entryBC, ok := addrTable[uint32(src.entry)]
	if !ok {
		return nil, &vmerr.SegmentOutOfBounds{Addr: uint32(src.entry)}
	}

	img := &bytecode.Image{
		Header: bytecode.Header{Version: bytecode.FormatVersion, EntryPoint: entryBC},
		Words:  words,
	}
	return &Result{Image: img, RAM: src.ram}, nil
}

// decodeAll walks code as a native instruction stream starting at
// codeBase, decoding one instruction at a time and advancing by its
// reported width (2 or 4 bytes).
func decodeAll(code []byte, codeBase uint32) ([]decoded, error) {
	// Pad so Decode can always safely read a trailing 4-byte word; any
	// instruction actually encoded in the padding is unreachable since
	// the loop bound below stops at the unpadded length.
	limit := len(code)
	padded := make([]byte, limit+4)
	copy(padded, code)

	var out []decoded
	off := 0
	for off < limit {
		addr := codeBase + uint32(off)
		in, width := isa.Decode(padded[off:])
		if in.Op == isa.Illegal {
			return nil, &vmerr.InvalidInstruction{Addr: addr}
		}
		out = append(out, decoded{nativeAddr: addr, in: in})
		off += width
	}
	return out, nil
}

func isPCRelative(op isa.Op) bool {
	switch op {
	case isa.JAL, isa.BEQ, isa.BNE, isa.BLT, isa.BGE, isa.BLTU, isa.BGEU:
		return true
	}
	return false
}
