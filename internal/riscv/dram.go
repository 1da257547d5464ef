// Package riscv implements an RV32IM + Zicsr + machine-mode-privileged
// instruction interpreter over a flat little-endian DRAM, with exception
// and interrupt trap delivery, used as the standalone reference execution
// model and as the "architecture" internal/task and internal/arch
// schedule against.
package riscv

import "encoding/binary"

const (
	// DRAMBase is the lowest address covered by DRAM.
	DRAMBase = uint32(0x10000)
	// DRAMSize is the number of bytes of DRAM.
	DRAMSize = uint32(32 * 1024)
	// DRAMEnd is the highest address covered by DRAM (inclusive).
	DRAMEnd = DRAMBase + DRAMSize
)

// Dram is flat, byte-addressable, little-endian memory. Bounds checking
// happens in Bus; Dram itself indexes addr-DRAMBase directly, exactly as
// the reference implementation does.
type Dram struct {
	bytes    []byte
	codeSize int
}

// NewDram allocates a zeroed DRAM.
func NewDram() *Dram {
	return &Dram{bytes: make([]byte, DRAMSize)}
}

// Initialize overwrites the low DRAM with binary and records its length
// as the code size.
func (d *Dram) Initialize(binary []byte) {
	n := copy(d.bytes, binary)
	d.codeSize = n
}

// CodeSize reports the length of the most recently initialized binary.
func (d *Dram) CodeSize() int { return d.codeSize }

// Read8/Read16/Read32 zero-extend a little-endian load of the given
// width.
func (d *Dram) Read8(addr uint32) uint32 {
	return uint32(d.bytes[addr-DRAMBase])
}

func (d *Dram) Read16(addr uint32) uint32 {
	i := addr - DRAMBase
	return uint32(binary.LittleEndian.Uint16(d.bytes[i : i+2]))
}

func (d *Dram) Read32(addr uint32) uint32 {
	i := addr - DRAMBase
	return binary.LittleEndian.Uint32(d.bytes[i : i+4])
}

// Write8/Write16/Write32 truncate val to the given width and store it
// little-endian.
func (d *Dram) Write8(addr uint32, val uint32) {
	d.bytes[addr-DRAMBase] = byte(val)
}

func (d *Dram) Write16(addr uint32, val uint32) {
	i := addr - DRAMBase
	binary.LittleEndian.PutUint16(d.bytes[i:i+2], uint16(val))
}

func (d *Dram) Write32(addr uint32, val uint32) {
	i := addr - DRAMBase
	binary.LittleEndian.PutUint32(d.bytes[i:i+4], val)
}
