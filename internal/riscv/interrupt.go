package riscv

// Interrupt kinds, numbered per the privileged architecture's cause table.
type Interrupt int

const (
	InterruptUserSoftware Interrupt = iota
	InterruptMachineSoftware
	InterruptUserTimer
	InterruptMachineTimer
	InterruptUserExternal
	InterruptMachineExternal
)

func (i Interrupt) code() uint32 {
	switch i {
	case InterruptUserSoftware:
		return 0
	case InterruptMachineSoftware:
		return 3
	case InterruptUserTimer:
		return 4
	case InterruptMachineTimer:
		return 7
	case InterruptUserExternal:
		return 8
	case InterruptMachineExternal:
		return 11
	default:
		panic("riscv: unknown interrupt kind")
	}
}

// checkPendingInterrupt selects the highest-priority interrupt pending in
// mip & mie, gated by mstatus.MIE when the current mode is Machine
// (interrupts are always globally enabled below Machine mode, e.g. after
// an mret into User mode).
// Priority on simultaneous pending: MExternal > MSoftware > MTimer. The
// selected MIP bit is cleared.
func (c *Cpu) checkPendingInterrupt() (Interrupt, bool) {
	if c.Mode == ModeMachine && c.Csr.ReadMstatusMIE() == 0 {
		return 0, false
	}

	pending := c.Csr.Read(CSRMIE) & c.Csr.Read(CSRMIP)

	switch {
	case pending&MEIPBit != 0:
		c.Csr.Write(CSRMIP, c.Csr.Read(CSRMIP)&^MEIPBit)
		return InterruptMachineExternal, true
	case pending&MSIPBit != 0:
		c.Csr.Write(CSRMIP, c.Csr.Read(CSRMIP)&^MSIPBit)
		return InterruptMachineSoftware, true
	case pending&MTIPBit != 0:
		c.Csr.Write(CSRMIP, c.Csr.Read(CSRMIP)&^MTIPBit)
		return InterruptMachineTimer, true
	default:
		return 0, false
	}
}

// takeTrap delivers i: identical bookkeeping to an exception's take_trap,
// except mcause has its top bit set, mtval is always 0, and the trap
// vector honours mtvec's vectored-mode bit (base+4*cause) instead of
// always trapping to base. Also clears Cpu.Idle so a WFI-stalled core
// wakes on any interrupt.
func (c *Cpu) takeTrap(i Interrupt) {
	c.Idle = false

	exceptionPC := c.PC
	previousMode := c.Mode
	cause := i.code()

	c.Mode = ModeMachine

	vector := uint32(0)
	if c.Csr.ReadBit(CSRMTVEC, 0) == 1 {
		vector = 4 * cause
	}
	c.PC = (c.Csr.Read(CSRMTVEC) &^ 1) + vector

	c.Csr.Write(CSRMEPC, exceptionPC&^1)
	c.Csr.Write(CSRMCAUSE, (1<<31)|cause)
	c.Csr.Write(CSRMTVAL, 0)

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
}
