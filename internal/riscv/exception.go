package riscv

import (
	"errors"
	"fmt"
)

// Exception sentinel kinds. Compare with errors.Is; Exception itself
// carries the code and any auxiliary value (faulting address / raw
// instruction word) a particular kind needs.
var (
	ErrInstAddrMisaligned    = errors.New("riscv: instruction address misaligned")
	ErrInstAccessFault       = errors.New("riscv: instruction access fault")
	ErrIllegalInstruction    = errors.New("riscv: illegal instruction")
	ErrBreakpoint            = errors.New("riscv: breakpoint")
	ErrLoadAddrMisaligned    = errors.New("riscv: load address misaligned")
	ErrLoadAccessFault       = errors.New("riscv: load access fault")
	ErrStoreAMOAddrMisaligned = errors.New("riscv: store/amo address misaligned")
	ErrStoreAMOAccessFault   = errors.New("riscv: store/amo access fault")
	ErrEnvCallU              = errors.New("riscv: environment call from U-mode")
	ErrEnvCallM              = errors.New("riscv: environment call from M-mode")
	ErrInstPageFault         = errors.New("riscv: instruction page fault")
	ErrLoadPageFault         = errors.New("riscv: load page fault")
	ErrStoreAMOPageFault     = errors.New("riscv: store/amo page fault")

	// ErrHalted names the state of a CPU that reached a Fatal trap
	// disposition. Execute does not return it; callers learn of a fatal
	// trap from TakeException returning TrapFatal.
	ErrHalted = errors.New("riscv: cpu halted on fatal trap")
)

// excCode maps each exception sentinel to its numeric code, per the
// privileged architecture's cause table.
var excCode = map[error]uint32{
	ErrInstAddrMisaligned:     0,
	ErrInstAccessFault:        1,
	ErrIllegalInstruction:     2,
	ErrBreakpoint:             3,
	ErrLoadAddrMisaligned:     4,
	ErrLoadAccessFault:        5,
	ErrStoreAMOAddrMisaligned: 6,
	ErrStoreAMOAccessFault:    7,
	ErrEnvCallU:               8,
	ErrEnvCallM:               11,
	ErrInstPageFault:          12,
	ErrLoadPageFault:          13,
	ErrStoreAMOPageFault:      15,
}

// TrapDisposition classifies how take_trap's caller should react.
type TrapDisposition int

const (
	// TrapContained is visible to, and handled by, software in the
	// execution environment. Unused by any exception in this core but
	// kept for completeness against the original's Trap enum.
	TrapContained TrapDisposition = iota
	// TrapRequested is an explicit request for an environment action
	// (ecall/ebreak).
	TrapRequested
	// TrapInvisible is handled transparently; execution resumes
	// normally.
	TrapInvisible
	// TrapFatal is a fatal failure; the emulator halts.
	TrapFatal
)

var excDisposition = map[error]TrapDisposition{
	ErrInstAddrMisaligned:     TrapFatal,
	ErrInstAccessFault:        TrapFatal,
	ErrIllegalInstruction:     TrapInvisible,
	ErrBreakpoint:             TrapRequested,
	ErrLoadAddrMisaligned:     TrapFatal,
	ErrLoadAccessFault:        TrapFatal,
	ErrStoreAMOAddrMisaligned: TrapFatal,
	ErrStoreAMOAccessFault:    TrapFatal,
	ErrEnvCallU:               TrapRequested,
	ErrEnvCallM:               TrapRequested,
	ErrInstPageFault:          TrapInvisible,
	ErrLoadPageFault:          TrapInvisible,
	ErrStoreAMOPageFault:      TrapInvisible,
}

// usesInstructionPC is the set of exceptions whose epc is the faulting
// instruction's own address rather than the next instruction.
var usesInstructionPC = map[error]bool{
	ErrBreakpoint:        true,
	ErrEnvCallU:          true,
	ErrEnvCallM:          true,
	ErrInstPageFault:     true,
	ErrLoadPageFault:     true,
	ErrStoreAMOPageFault: true,
}

// mtvalFromEPC is the set of exceptions whose mtval equals the computed
// epc value (the faulting PC, after the above adjustment).
var mtvalFromEPC = map[error]bool{
	ErrInstAddrMisaligned:     true,
	ErrInstAccessFault:        true,
	ErrBreakpoint:             true,
	ErrLoadAddrMisaligned:     true,
	ErrLoadAccessFault:        true,
	ErrStoreAMOAddrMisaligned: true,
	ErrStoreAMOAccessFault:    true,
}

// Exception is a returned error that also carries the auxiliary value
// (the faulting address for page faults, or the raw instruction word for
// an illegal instruction) some trap kinds need to compute mtval.
type Exception struct {
	Err error
	Aux uint32
}

func newException(err error, aux uint32) *Exception {
	return &Exception{Err: err, Aux: aux}
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%v (aux=%#x)", e.Err, e.Aux)
}

func (e *Exception) Unwrap() error { return e.Err }

func (e *Exception) code() uint32 { return excCode[e.Err] }

func (e *Exception) disposition() TrapDisposition { return excDisposition[e.Err] }

// epc computes the exception program counter: the faulting instruction's
// own address for breakpoints, ecalls and page faults, else pc+4.
func (e *Exception) epc(pc uint32) uint32 {
	if usesInstructionPC[e.Err] {
		return pc
	}
	return pc + 4
}

// trapValue computes mtval given the already-computed epc: the epc
// itself for fetch/misaligned/access faults, the stored auxiliary value
// for illegal-instruction and page faults, else 0.
func (e *Exception) trapValue(epc uint32) uint32 {
	switch {
	case mtvalFromEPC[e.Err]:
		return epc
	case errors.Is(e.Err, ErrIllegalInstruction):
		return e.Aux
	case errors.Is(e.Err, ErrInstPageFault), errors.Is(e.Err, ErrLoadPageFault), errors.Is(e.Err, ErrStoreAMOPageFault):
		return e.Aux
	default:
		return 0
	}
}
