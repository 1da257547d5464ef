package riscv

// Mode is the CPU's privilege level.
type Mode uint32

const (
	ModeUser    Mode = 0b00
	ModeMachine Mode = 0b11
	ModeDebug   Mode = 0b100
)

// Access widths, mirrored from Bus for callers that only import Cpu.
const (
	BYTE     = Byte
	HALFWORD = Halfword
	WORD     = Word
)

// Cpu is the RV32IM+Zicsr+privileged interpreter: 32 integer registers,
// a program counter, the CSR file, the current privilege mode, the
// system bus, a reservation set, and the idle (WFI) flag.
type Cpu struct {
	Xregs [32]uint32
	PC    uint32
	Csr   *Csr
	Mode  Mode
	Bus   *Bus

	reservationSet map[uint32]struct{}
	Idle           bool

	preInst uint32
}

// NewCpu creates a CPU with a fresh bus, CSR file, initial SP at
// DRAMBase+DRAMSize, initial mode Machine, initial pc 0.
func NewCpu() *Cpu {
	c := &Cpu{
		Csr:            NewCsr(),
		Mode:           ModeMachine,
		Bus:            NewBus(),
		reservationSet: make(map[uint32]struct{}),
	}
	c.Xregs[2] = DRAMBase + DRAMSize
	return c
}

// writeReg writes value to register index, discarding writes to x0.
func (c *Cpu) writeReg(index uint32, value uint32) {
	if index != 0 {
		c.Xregs[index] = value
	}
}

func (c *Cpu) readReg(index uint32) uint32 { return c.Xregs[index] }

// Reset restores the CPU to its initial state.
func (c *Cpu) Reset() {
	c.PC = 0
	c.Mode = ModeMachine
	c.Csr = NewCsr()
	for i := range c.Xregs {
		c.Xregs[i] = 0
	}
	c.Xregs[2] = DRAMBase + DRAMSize
	c.reservationSet = make(map[uint32]struct{})
	c.Idle = false
}

// DevicesIncrement advances the CSR TIME counter once per cycle.
func (c *Cpu) DevicesIncrement() { c.Csr.IncrementTime() }

// read loads a size-bit value from the bus, translating the effective
// privilege mode to mstatus.MPP around the access when MPRV is set.
func (c *Cpu) read(addr uint32, size int) (uint32, error) {
	previous := c.Mode
	if c.Csr.ReadMstatusMPRV() == 1 {
		c.Mode = mppToMode(c.Csr.ReadMstatusMPP())
	}
	val, err := c.Bus.Read(addr, size)
	if c.Csr.ReadMstatusMPRV() == 1 {
		c.Mode = previous
	}
	return val, err
}

// write stores a size-bit value to the bus with the same MPRV-aware mode
// translation as read, and invalidates addr from the reservation set
// (the sc-style behaviour; no lr/sc opcodes are decoded in this core, so
// the set is mutated defensively on every store).
func (c *Cpu) write(addr uint32, value uint32, size int) error {
	previous := c.Mode
	if c.Csr.ReadMstatusMPRV() == 1 {
		c.Mode = mppToMode(c.Csr.ReadMstatusMPP())
	}
	delete(c.reservationSet, addr)

	err := c.Bus.Write(addr, value, size)
	if c.Csr.ReadMstatusMPRV() == 1 {
		c.Mode = previous
	}
	return err
}

func mppToMode(mpp uint32) Mode {
	switch mpp {
	case 0b00:
		return ModeUser
	case 0b11:
		return ModeMachine
	default:
		return ModeDebug
	}
}

// Fetch loads the 32-bit instruction word at pc. A bus fault here is
// remapped to InstructionAccessFault.
func (c *Cpu) Fetch() (uint32, error) {
	val, err := c.Bus.Read(c.PC, Word)
	if err != nil {
		return 0, newException(ErrInstAccessFault, 0)
	}
	return val, nil
}

// Execute runs one fetch/decode/execute cycle. When Idle is true (set by
// wfi), it returns immediately without advancing pc. On success pc is
// advanced by 4 (branches/jumps pre-subtract 4 from their target so the
// unconditional advance below lands on the right place).
func (c *Cpu) Execute() (uint32, error) {
	if c.Idle {
		return 0, nil
	}

	inst, err := c.Fetch()
	if err != nil {
		return 0, err
	}
	if err := c.executeGeneral(inst); err != nil {
		return 0, err
	}
	c.PC += 4
	c.preInst = inst
	return inst, nil
}

// CheckPendingInterrupt exposes checkPendingInterrupt for the caller's
// step loop.
func (c *Cpu) CheckPendingInterrupt() (Interrupt, bool) { return c.checkPendingInterrupt() }

// TakeTrap delivers interrupt i.
func (c *Cpu) TakeTrap(i Interrupt) { c.takeTrap(i) }

// TakeException delivers exc and returns the resulting trap disposition.
func (c *Cpu) TakeException(exc *Exception) TrapDisposition {
	epc := exc.epc(c.PC)
	previousMode := c.Mode
	cause := exc.code()

	c.Mode = ModeMachine
	c.PC = c.Csr.Read(CSRMTVEC) &^ 1
	c.Csr.Write(CSRMEPC, epc&^1)
	c.Csr.Write(CSRMCAUSE, cause)
	c.Csr.Write(CSRMTVAL, exc.trapValue(epc))

	c.Csr.WriteMstatusMPIE(c.Csr.ReadMstatusMIE())
	c.Csr.WriteMstatusMIE(0)

	switch previousMode {
	case ModeUser:
		c.Csr.WriteMstatusMPP(uint32(ModeUser))
	case ModeMachine:
		c.Csr.WriteMstatusMPP(uint32(ModeMachine))
	default:
		panic("riscv: previous privilege mode is invalid")
	}

	return exc.disposition()
}
