package riscv

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(opcode, rd, funct3, rs1, imm uint32) uint32 {
	return (imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeB(opcode, funct3, rs1, rs2, imm uint32) uint32 {
	bit12 := (imm >> 12) & 0x1
	bit11 := (imm >> 11) & 0x1
	bits10_5 := (imm >> 5) & 0x3f
	bits4_1 := (imm >> 1) & 0xf
	return bit12<<31 | bits10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | bits4_1<<8 | bit11<<7 | opcode
}

func encodeU(opcode, rd, imm uint32) uint32 {
	return (imm & 0xfffff000) | rd<<7 | opcode
}

func assembleProgram(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

func newLoadedCpu(t *testing.T, words ...uint32) *Cpu {
	t.Helper()
	c := NewCpu()
	c.Bus.InitializeDram(assembleProgram(words...))
	c.PC = DRAMBase
	return c
}

func TestAddiSetsRegister(t *testing.T) {
	// addi x1, x0, 5
	c := newLoadedCpu(t, encodeI(0x13, 1, 0x0, 0, 5))

	_, err := c.Execute()
	require.NoError(t, err)
	require.Equal(t, uint32(5), c.Xregs[1])
	require.Equal(t, uint32(DRAMBase+4), c.PC)
}

func TestAddAccumulatesTwoImmediates(t *testing.T) {
	// addi x1, x0, 5; addi x2, x0, 10; add x3, x1, x2
	c := newLoadedCpu(t,
		encodeI(0x13, 1, 0x0, 0, 5),
		encodeI(0x13, 2, 0x0, 0, 10),
		encodeR(0x33, 3, 0x0, 1, 2, 0x00),
	)

	for i := 0; i < 3; i++ {
		_, err := c.Execute()
		require.NoError(t, err)
	}
	require.Equal(t, uint32(15), c.Xregs[3])
}

func TestSubUnderflowWraps(t *testing.T) {
	// addi x1, x0, 0; addi x2, x0, 1; sub x3, x1, x2
	c := newLoadedCpu(t,
		encodeI(0x13, 1, 0x0, 0, 0),
		encodeI(0x13, 2, 0x0, 0, 1),
		encodeR(0x33, 3, 0x0, 1, 2, 0x20),
	)

	for i := 0; i < 3; i++ {
		_, err := c.Execute()
		require.NoError(t, err)
	}
	require.Equal(t, uint32(0xffffffff), c.Xregs[3])
}

func TestBeqTakenBranchesToTarget(t *testing.T) {
	// addi x0,x0,0; addi x0,x0,0; beq x0,x0,12  (at offset 8, imm=12 -> pc=20)
	c := newLoadedCpu(t,
		encodeI(0x13, 0, 0x0, 0, 0),
		encodeI(0x13, 0, 0x0, 0, 0),
		encodeB(0x63, 0x0, 0, 0, 12),
	)

	for i := 0; i < 3; i++ {
		_, err := c.Execute()
		require.NoError(t, err)
	}
	require.Equal(t, uint32(DRAMBase+20), c.PC)
}

func TestBneNotTakenFallsThrough(t *testing.T) {
	c := newLoadedCpu(t, encodeB(0x63, 0x1, 0, 0, 12))

	_, err := c.Execute()
	require.NoError(t, err)
	require.Equal(t, uint32(DRAMBase+4), c.PC)
}

func TestAuipcAddsUpperImmToPC(t *testing.T) {
	// auipc x1, 0x10
	c := newLoadedCpu(t, encodeU(0x17, 1, 0x10<<12))

	_, err := c.Execute()
	require.NoError(t, err)
	require.Equal(t, uint32(DRAMBase+(0x10<<12)), c.Xregs[1])
}

func TestRegisterZeroAlwaysReadsZero(t *testing.T) {
	// addi x0, x0, 123 -- write to x0 must be discarded
	c := newLoadedCpu(t, encodeI(0x13, 0, 0x0, 0, 123))

	_, err := c.Execute()
	require.NoError(t, err)
	require.Equal(t, uint32(0), c.Xregs[0])
}

func TestDivByZeroReturnsAllOnesAndSetsDZ(t *testing.T) {
	// addi x1, x0, 5; div x2, x1, x0
	c := newLoadedCpu(t,
		encodeI(0x13, 1, 0x0, 0, 5),
		encodeR(0x33, 2, 0x4, 1, 0, 0x01),
	)

	for i := 0; i < 2; i++ {
		_, err := c.Execute()
		require.NoError(t, err)
	}
	require.Equal(t, uint32(0xffffffff), c.Xregs[2])
	require.Equal(t, uint32(1), c.Csr.ReadBit(CSRFCSR, 3))
}

func TestRemByZeroReturnsDividend(t *testing.T) {
	// addi x1, x0, 7; rem x2, x1, x0
	c := newLoadedCpu(t,
		encodeI(0x13, 1, 0x0, 0, 7),
		encodeR(0x33, 2, 0x6, 1, 0, 0x01),
	)

	for i := 0; i < 2; i++ {
		_, err := c.Execute()
		require.NoError(t, err)
	}
	require.Equal(t, uint32(7), c.Xregs[2])
}

func TestDivOverflowReturnsDividend(t *testing.T) {
	// x1 = INT_MIN, x2 = -1, div x3, x1, x2 -> dividend (overflow case)
	c := newLoadedCpu(t, encodeR(0x33, 3, 0x4, 1, 2, 0x01))
	c.Xregs[1] = 0x80000000
	c.Xregs[2] = 0xffffffff

	_, err := c.Execute()
	require.NoError(t, err)
	require.Equal(t, uint32(0x80000000), c.Xregs[3])
}

func TestMulhSignedHighBits(t *testing.T) {
	c := NewCpu()
	c.Xregs[1] = uint32(int32(-2))
	c.Xregs[2] = uint32(int32(-3))
	c.Bus.InitializeDram(assembleProgram(encodeR(0x33, 3, 0x1, 1, 2, 0x01)))
	c.PC = DRAMBase

	_, err := c.Execute()
	require.NoError(t, err)
	// (-2)*(-3) = 6, fits entirely in the low word, so the high word is 0.
	require.Equal(t, uint32(0), c.Xregs[3])
}

func TestEcallFromMachineModeRaisesEnvCallM(t *testing.T) {
	// ecall
	c := newLoadedCpu(t, encodeI(0x73, 0, 0x0, 0, 0x000))

	_, err := c.Execute()
	require.Error(t, err)

	exc, ok := err.(*Exception)
	require.True(t, ok)
	require.ErrorIs(t, exc, ErrEnvCallM)
}

func TestTakeExceptionSetsMepcToFaultingInstructionForEcall(t *testing.T) {
	c := newLoadedCpu(t, encodeI(0x73, 0, 0x0, 0, 0x000))

	_, err := c.Execute()
	require.Error(t, err)
	exc := err.(*Exception)

	disp := c.TakeException(exc)
	require.Equal(t, TrapRequested, disp)
	require.Equal(t, uint32(DRAMBase), c.Csr.Read(CSRMEPC))
}

func TestTakeExceptionSetsMepcToNextInstructionForIllegalInstruction(t *testing.T) {
	// an unused/undefined opcode -> illegal instruction
	c := newLoadedCpu(t, uint32(0x00000000))

	_, err := c.Execute()
	require.Error(t, err)
	exc := err.(*Exception)
	require.ErrorIs(t, exc, ErrIllegalInstruction)

	disp := c.TakeException(exc)
	require.Equal(t, TrapInvisible, disp)
	require.Equal(t, uint32(DRAMBase+4), c.Csr.Read(CSRMEPC))
}

func TestWfiSetsIdleAndExecuteThenNoOps(t *testing.T) {
	c := newLoadedCpu(t, encodeI(0x73, 0, 0x0, 0, 0x105))

	_, err := c.Execute()
	require.NoError(t, err)
	require.True(t, c.Idle)

	pcBefore := c.PC
	_, err = c.Execute()
	require.NoError(t, err)
	require.Equal(t, pcBefore, c.PC)
}

func TestMretRestoresModeAndPC(t *testing.T) {
	c := NewCpu()
	c.Csr.Write(CSRMEPC, DRAMBase+0x40)
	c.Csr.WriteMstatusMPP(uint32(ModeUser))
	c.Csr.WriteMstatusMPIE(1)

	c.Bus.InitializeDram(assembleProgram(encodeI(0x73, 0, 0x0, 0, 0x302)))
	c.PC = DRAMBase

	_, err := c.Execute()
	require.NoError(t, err)
	require.Equal(t, uint32(DRAMBase+0x40), c.PC)
	require.Equal(t, ModeUser, c.Mode)
	require.Equal(t, uint32(1), c.Csr.ReadMstatusMIE())
}

func TestTakeTrapHonoursVectoredMtvec(t *testing.T) {
	c := NewCpu()
	c.Csr.Write(CSRMTVEC, 0x1000|1) // vectored mode
	c.Csr.WriteMstatusMIE(1)        // Machine mode takes interrupts only with MIE set
	c.Csr.Write(CSRMIE, MTIPBit)
	c.Csr.Write(CSRMIP, MTIPBit)

	kind, ok := c.checkPendingInterrupt()
	require.True(t, ok)
	require.Equal(t, InterruptMachineTimer, kind)

	c.takeTrap(kind)
	require.Equal(t, uint32(0x1000+4*uint32(InterruptMachineTimer.code())), c.PC)
	require.Equal(t, uint32(0), c.Csr.Read(CSRMIP)&MTIPBit)
}

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	c := NewCpu()
	c.Bus.InitializeDram(make([]byte, 64))

	require.NoError(t, c.write(DRAMBase+8, 0xdeadbeef, Word))
	val, err := c.read(DRAMBase+8, Word)
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), val)
}
