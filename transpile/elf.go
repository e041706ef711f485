// Package transpile turns an RV32IMAC_Zicsr_Zifencei ELF executable into
// an Embive bytecode image: it parses the ELF with the standard library's
// debug/elf (grounded on the teacher pack's syifan-m2sim2/loader/elf.go,
// which does the analogous ARM64 PT_LOAD walk), decodes every native
// instruction, re-encodes it into the dense bytecode opcode space, and
// remaps every PC-relative branch/jump immediate through the resulting
// native-to-bytecode address table.
package transpile

import (
	"debug/elf"
	"io"

	"github.com/embive/embive-go/memory"
	"github.com/embive/embive-go/vmerr"
)

// loadedELF is the subset of a parsed ELF this package needs: the
// executable segment's bytes at their native virtual address, the
// initial RAM image (data+bss, zero-padded), and the native entry point.
type loadedELF struct {
	codeBase uint64
	code     []byte
	ram      []byte
	entry    uint64
}

func loadELF(r io.ReaderAt) (*loadedELF, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, &vmerr.ElfParse{Reason: "malformed ELF", Cause: err}
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, &vmerr.UnsupportedArchitecture{Reason: "not a 32-bit ELF"}
	}
	if f.Machine != elf.EM_RISCV {
		return nil, &vmerr.UnsupportedArchitecture{Reason: "not a RISC-V ELF"}
	}

	out := &loadedELF{entry: f.Entry}

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, p.Filesz)
		if p.Filesz > 0 {
			if _, err := p.ReadAt(data, 0); err != nil && err != io.EOF {
				return nil, &vmerr.ElfParse{Reason: "short segment read", Cause: err}
			}
		}
		full := make([]byte, p.Memsz) // zero-pads BSS past Filesz
		copy(full, data)

		switch {
		case p.Flags&elf.PF_X != 0:
			if out.code != nil {
				return nil, &vmerr.ElfParse{Reason: "multiple executable segments are not supported"}
			}
			out.codeBase = p.Vaddr
			out.code = full

		default:
			if uint64(p.Vaddr) < memory.RAMBase {
				return nil, &vmerr.SegmentOutOfBounds{Addr: uint32(p.Vaddr)}
			}
			out.ram = placeInRAM(out.ram, p.Vaddr, full)
		}
	}

	if out.code == nil {
		return nil, &vmerr.ElfParse{Reason: "no executable PT_LOAD segment found"}
	}
	return out, nil
}

// placeInRAM grows ram as needed and copies seg into it at the offset
// implied by vaddr, relative to memory.RAMBase.
func placeInRAM(ram []byte, vaddr uint64, seg []byte) []byte {
	off := vaddr - memory.RAMBase
	need := off + uint64(len(seg))
	if uint64(len(ram)) < need {
		grown := make([]byte, need)
		copy(grown, ram)
		ram = grown
	}
	copy(ram[off:], seg)
	return ram
}
