package riscv

// Access widths accepted by Bus.Read/Bus.Write.
const (
	Byte     = 8
	Halfword = 16
	Word     = 32
)

// Bus is the flat system bus connecting the CPU to DRAM. Everything
// outside [DRAMBase, DRAMEnd] faults.
type Bus struct {
	dram *Dram
}

// NewBus creates a bus over a freshly allocated, zeroed DRAM.
func NewBus() *Bus {
	return &Bus{dram: NewDram()}
}

// InitializeDram loads binary into the bus's DRAM.
func (b *Bus) InitializeDram(binary []byte) {
	b.dram.Initialize(binary)
}

// Dram exposes the backing DRAM, for the CPU's fetch path and for tests.
func (b *Bus) Dram() *Dram { return b.dram }

func inDRAM(addr uint32) bool {
	return addr >= DRAMBase && addr <= DRAMEnd
}

// Read loads a size-bit value from addr, zero-extended into a uint32.
func (b *Bus) Read(addr uint32, size int) (uint32, error) {
	if !inDRAM(addr) {
		return 0, ErrLoadAccessFault
	}
	switch size {
	case Byte:
		return b.dram.Read8(addr), nil
	case Halfword:
		return b.dram.Read16(addr), nil
	case Word:
		return b.dram.Read32(addr), nil
	default:
		return 0, ErrLoadAccessFault
	}
}

// Write stores the low size bits of val to addr.
func (b *Bus) Write(addr uint32, val uint32, size int) error {
	if !inDRAM(addr) {
		return ErrStoreAMOAccessFault
	}
	switch size {
	case Byte:
		b.dram.Write8(addr, val)
	case Halfword:
		b.dram.Write16(addr, val)
	case Word:
		b.dram.Write32(addr, val)
	default:
		return ErrStoreAMOAccessFault
	}
	return nil
}
