package bytecode

import (
	"encoding/binary"

	"github.com/embive/embive-go/vmerr"
)

// Magic identifies an Embive bytecode image.
var Magic = [4]byte{'E', 'M', 'B', 'V'}

// FormatVersion is bumped whenever the opcode numbering or field layout
// changes in a way that breaks compatibility with previously transpiled
// images.
const FormatVersion uint16 = 1

// HeaderSize is the size in bytes of Header's on-disk encoding.
const HeaderSize = 12

// Header is the fixed preamble of a bytecode image: magic, format
// version, a reserved field kept for alignment and future flags, and the
// translated entry point (a bytecode-PC byte address, always a multiple
// of 4).
type Header struct {
	Version    uint16
	Reserved   uint16
	EntryPoint uint32
}

// Image is a transpiled program: a header plus the 32-bit-word bytecode
// stream in source order.
type Image struct {
	Header Header
	Words  []uint32
}

// Marshal serializes the image to its on-disk little-endian byte form.
func (img *Image) Marshal() []byte {
	buf := make([]byte, HeaderSize+4*len(img.Words))
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], img.Header.Version)
	binary.LittleEndian.PutUint16(buf[6:8], img.Header.Reserved)
	binary.LittleEndian.PutUint32(buf[8:12], img.Header.EntryPoint)
	for i, w := range img.Words {
		binary.LittleEndian.PutUint32(buf[HeaderSize+4*i:], w)
	}
	return buf
}

// Unmarshal parses a bytecode image from its on-disk byte form, verifying
// the magic and format version.
func Unmarshal(buf []byte) (*Image, error) {
	if len(buf) < HeaderSize {
		return nil, &vmerr.BufferTooSmall{Need: HeaderSize, Have: len(buf)}
	}
	if string(buf[0:4]) != string(Magic[:]) {
		return nil, &vmerr.ElfParse{Reason: "bad bytecode image magic"}
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != FormatVersion {
		return nil, &vmerr.ElfParse{Reason: "unsupported bytecode format version"}
	}
	reserved := binary.LittleEndian.Uint16(buf[6:8])
	entry := binary.LittleEndian.Uint32(buf[8:12])

	body := buf[HeaderSize:]
	if len(body)%4 != 0 {
		return nil, &vmerr.BufferTooSmall{Need: len(body) + (4 - len(body)%4), Have: len(body)}
	}
	words := make([]uint32, len(body)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(body[4*i:])
	}
	return &Image{Header: Header{Version: version, Reserved: reserved, EntryPoint: entry}, Words: words}, nil
}
