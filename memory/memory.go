// Package memory implements the sandbox's address space: a read-only code
// region populated from the transpiled bytecode image, and a read/write
// RAM region populated from the ELF's data/bss at transpile time. It holds
// no state beyond the two borrowed byte slices and performs no caching.
package memory

import "github.com/embive/embive-go/vmerr"

// RAMBase is the first address of the read/write RAM region.
const RAMBase = 0x8000_0000

// Memory is the interface the interpreter's dispatch loop uses to reach
// guest-addressable storage. A host may supply the default Flat
// implementation, a split arrangement, or an instrumented wrapper (see
// Instrumented) — the interpreter is written against this interface only,
// never against a concrete backend, so the hot loop never depends on a
// specific memory layout.
type Memory interface {
	// Load reads width bytes (1, 2, or 4) at addr and returns them
	// little-endian.
	Load(addr uint32, width int) ([]byte, error)
	// Store writes width little-endian bytes at addr.
	Store(addr uint32, width int, data []byte) error
	// Size reports the byte length of the RAM region, for stack
	// initialization (sp starts at the top of RAM, aligned down to 16).
	Size() uint32
}

// Flat is the default Memory implementation: one contiguous read-only
// code slice starting at address 0, and one contiguous read/write RAM
// slice starting at RAMBase.
type Flat struct {
	Code []byte
	RAM  []byte
}

// NewFlat builds a Flat memory from a code image and an initial RAM
// image (already containing data-segment bytes, zero-padded for bss).
func NewFlat(code, ram []byte) *Flat {
	return &Flat{Code: code, RAM: ram}
}

func (m *Flat) Size() uint32 { return uint32(len(m.RAM)) }

func (m *Flat) Load(addr uint32, width int) ([]byte, error) {
	if buf, ok := sliceWithin(m.Code, 0, addr, width); ok {
		out := make([]byte, width)
		copy(out, buf)
		return out, nil
	}
	if buf, ok := sliceWithin(m.RAM, RAMBase, addr, width); ok {
		out := make([]byte, width)
		copy(out, buf)
		return out, nil
	}
	return nil, &vmerr.AccessFault{Addr: addr, Width: width}
}

func (m *Flat) Store(addr uint32, width int, data []byte) error {
	if _, ok := sliceWithin(m.Code, 0, addr, width); ok {
		return &vmerr.AccessFault{Addr: addr, Width: width} // code region is read-only
	}
	if buf, ok := sliceWithin(m.RAM, RAMBase, addr, width); ok {
		copy(buf, data[:width])
		return nil
	}
	return &vmerr.AccessFault{Addr: addr, Width: width}
}

// sliceWithin returns the sub-slice of region (based at `base`) covering
// [addr, addr+width), or ok=false if that range is not wholly contained —
// including the case where addr+width overflows uint32 or crosses out the
// far end of the region.
func sliceWithin(region []byte, base uint32, addr uint32, width int) ([]byte, bool) {
	if addr < base {
		return nil, false
	}
	off := addr - base
	end := off + uint32(width)
	if end < off { // overflow
		return nil, false
	}
	if end > uint32(len(region)) {
		return nil, false
	}
	return region[off:end], true
}
