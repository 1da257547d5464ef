package riscv

// Instruction field extraction, per the standard RV32 encoding.
func opcodeOf(inst uint32) uint32 { return inst & 0x7f }
func rdOf(inst uint32) uint32     { return (inst & 0xf80) >> 7 }
func funct3Of(inst uint32) uint32 { return (inst & 0x7000) >> 12 }
func rs1Of(inst uint32) uint32    { return (inst & 0xf8000) >> 15 }
func rs2Of(inst uint32) uint32    { return (inst & 0x1f00000) >> 20 }
func funct7Of(inst uint32) uint32 { return (inst & 0xfe000000) >> 25 }

func immIOf(inst uint32) uint32 {
	return uint32(int32(inst) >> 20)
}

func immSOf(inst uint32) uint32 {
	return uint32(int32(inst&0xfe000000)>>20) | ((inst >> 7) & 0x1f)
}

func immBOf(inst uint32) uint32 {
	imm := (uint32(int32(inst&0x80000000) >> 19)) |
		((inst & 0x80) << 4) |
		((inst >> 20) & 0x7e0) |
		((inst >> 7) & 0x1e)
	return imm
}

func immUOf(inst uint32) uint32 { return inst & 0xfffff000 }

func immJOf(inst uint32) uint32 {
	imm := (uint32(int32(inst&0x80000000) >> 11)) |
		(inst & 0xff000) |
		((inst >> 9) & 0x800) |
		((inst >> 20) & 0x7fe)
	return imm
}

// executeGeneral decodes and executes one instruction. pc is advanced by
// the caller (Execute); branch/jump/mret targets are adjusted by -4 here
// so that the caller's unconditional +4 lands on the intended address.
func (c *Cpu) executeGeneral(inst uint32) error {
	defer func() { c.Xregs[0] = 0 }()

	opcode := opcodeOf(inst)
	rd := rdOf(inst)
	rs1 := rs1Of(inst)
	rs2 := rs2Of(inst)
	funct3 := funct3Of(inst)
	funct7 := funct7Of(inst)

	switch opcode {
	case 0x03: // loads
		imm := immIOf(inst)
		addr := c.readReg(rs1) + imm
		var size int
		switch funct3 {
		case 0x0, 0x4:
			size = Byte
		case 0x1, 0x5:
			size = Halfword
		case 0x2:
			size = Word
		default:
			return newException(ErrIllegalInstruction, inst)
		}
		val, err := c.read(addr, size)
		if err != nil {
			return newException(ErrLoadAccessFault, addr)
		}
		switch funct3 {
		case 0x0:
			val = uint32(int32(int8(val)))
		case 0x1:
			val = uint32(int32(int16(val)))
		}
		c.writeReg(rd, val)
		return nil

	case 0x0f: // fence, fence.i: no-ops, no coherence model to enforce
		return nil

	case 0x13: // immediate ALU
		imm := immIOf(inst)
		v1 := c.readReg(rs1)
		switch funct3 {
		case 0x0: // addi
			c.writeReg(rd, v1+imm)
		case 0x1: // slli
			c.writeReg(rd, v1<<(imm&0x1f))
		case 0x2: // slti
			c.writeReg(rd, boolToU32(int32(v1) < int32(imm)))
		case 0x3: // sltiu
			c.writeReg(rd, boolToU32(v1 < imm))
		case 0x4: // xori
			c.writeReg(rd, v1^imm)
		case 0x5: // srli/srai
			shamt := imm & 0x1f
			if (imm>>5)&0x7f == 0x20 {
				c.writeReg(rd, uint32(int32(v1)>>shamt))
			} else {
				c.writeReg(rd, v1>>shamt)
			}
		case 0x6: // ori
			c.writeReg(rd, v1|imm)
		case 0x7: // andi
			c.writeReg(rd, v1&imm)
		}
		return nil

	case 0x17: // auipc
		c.writeReg(rd, c.PC+immUOf(inst))
		return nil

	case 0x23: // stores
		imm := immSOf(inst)
		addr := c.readReg(rs1) + imm
		val := c.readReg(rs2)
		var size int
		switch funct3 {
		case 0x0:
			size = Byte
		case 0x1:
			size = Halfword
		case 0x2:
			size = Word
		default:
			return newException(ErrIllegalInstruction, inst)
		}
		if err := c.write(addr, val, size); err != nil {
			return newException(ErrStoreAMOAccessFault, addr)
		}
		return nil

	case 0x33: // R-type RV32I + M extension
		v1 := c.readReg(rs1)
		v2 := c.readReg(rs2)
		switch {
		case funct7 == 0x00 && funct3 == 0x0: // add
			c.writeReg(rd, v1+v2)
		case funct7 == 0x01 && funct3 == 0x0: // mul
			c.writeReg(rd, v1*v2)
		case funct7 == 0x20 && funct3 == 0x0: // sub
			c.writeReg(rd, v1-v2)
		case funct7 == 0x00 && funct3 == 0x1: // sll
			c.writeReg(rd, v1<<(v2&0x1f))
		case funct7 == 0x01 && funct3 == 0x1: // mulh
			p := int64(int32(v1)) * int64(int32(v2))
			c.writeReg(rd, uint32(p>>32))
		case funct7 == 0x00 && funct3 == 0x2: // slt
			c.writeReg(rd, boolToU32(int32(v1) < int32(v2)))
		case funct7 == 0x01 && funct3 == 0x2: // mulhsu
			p := int64(int32(v1)) * int64(v2)
			c.writeReg(rd, uint32(p>>32))
		case funct7 == 0x00 && funct3 == 0x3: // sltu
			c.writeReg(rd, boolToU32(v1 < v2))
		case funct7 == 0x01 && funct3 == 0x3: // mulhu
			p := uint64(v1) * uint64(v2)
			c.writeReg(rd, uint32(p>>32))
		case funct7 == 0x00 && funct3 == 0x4: // xor
			c.writeReg(rd, v1^v2)
		case funct7 == 0x01 && funct3 == 0x4: // div
			c.writeReg(rd, c.div(v1, v2))
		case funct7 == 0x00 && funct3 == 0x5: // srl
			c.writeReg(rd, v1>>(v2&0x1f))
		case funct7 == 0x20 && funct3 == 0x5: // sra
			c.writeReg(rd, uint32(int32(v1)>>(v2&0x1f)))
		case funct7 == 0x01 && funct3 == 0x5: // divu
			c.writeReg(rd, c.divu(v1, v2))
		case funct7 == 0x00 && funct3 == 0x6: // or
			c.writeReg(rd, v1|v2)
		case funct7 == 0x01 && funct3 == 0x6: // rem
			c.writeReg(rd, c.rem(v1, v2))
		case funct7 == 0x00 && funct3 == 0x7: // and
			c.writeReg(rd, v1&v2)
		case funct7 == 0x01 && funct3 == 0x7: // remu
			c.writeReg(rd, c.remu(v1, v2))
		default:
			return newException(ErrIllegalInstruction, inst)
		}
		return nil

	case 0x37: // lui
		c.writeReg(rd, immUOf(inst))
		return nil

	case 0x63: // branches
		imm := immBOf(inst)
		v1 := c.readReg(rs1)
		v2 := c.readReg(rs2)
		taken := false
		switch funct3 {
		case 0x0: // beq
			taken = v1 == v2
		case 0x1: // bne
			taken = v1 != v2
		case 0x4: // blt
			taken = int32(v1) < int32(v2)
		case 0x5: // bge
			taken = int32(v1) >= int32(v2)
		case 0x6: // bltu
			taken = v1 < v2
		case 0x7: // bgeu
			taken = v1 >= v2
		default:
			return newException(ErrIllegalInstruction, inst)
		}
		if taken {
			c.PC = c.PC + imm - 4
		}
		return nil

	case 0x67: // jalr
		t := c.PC + 4
		target := (c.readReg(rs1) + immIOf(inst)) &^ 1
		c.PC = target - 4
		c.writeReg(rd, t)
		return nil

	case 0x6f: // jal
		c.writeReg(rd, c.PC+4)
		c.PC = c.PC + immJOf(inst) - 4
		return nil

	case 0x73: // system / CSR
		return c.executeSystem(inst, rd, rs1, funct3)

	default:
		return newException(ErrIllegalInstruction, inst)
	}
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// div/divu/rem/remu implement RV32M's documented zero-divisor and
// INT_MIN/-1 overflow edge cases. A zero divisor also sets FCSR's DZ bit.
func (c *Cpu) div(v1, v2 uint32) uint32 {
	if v2 == 0 {
		c.setFCSRDZ()
		return 0xffffffff
	}
	a, b := int32(v1), int32(v2)
	if a == -0x80000000 && b == -1 {
		return v1
	}
	return uint32(a / b)
}

func (c *Cpu) divu(v1, v2 uint32) uint32 {
	if v2 == 0 {
		c.setFCSRDZ()
		return 0xffffffff
	}
	return v1 / v2
}

func (c *Cpu) rem(v1, v2 uint32) uint32 {
	if v2 == 0 {
		c.setFCSRDZ()
		return v1
	}
	a, b := int32(v1), int32(v2)
	if a == -0x80000000 && b == -1 {
		return 0
	}
	return uint32(a % b)
}

func (c *Cpu) remu(v1, v2 uint32) uint32 {
	if v2 == 0 {
		c.setFCSRDZ()
		return v1
	}
	return v1 % v2
}

func (c *Cpu) setFCSRDZ() { c.Csr.WriteBit(CSRFCSR, 3, 1) }

// executeSystem handles ecall/ebreak/uret/mret/wfi/sfence.vma/hfence.*
// and the six CSR read-modify-write forms under opcode 0x73.
func (c *Cpu) executeSystem(inst uint32, rd, rs1, funct3 uint32) error {
	if funct3 == 0 {
		csrField := (inst >> 20) & 0xfff
		switch csrField {
		case 0x000: // ecall
			if c.Mode == ModeDebug {
				return newException(ErrIllegalInstruction, inst)
			}
			if c.Mode == ModeMachine {
				return newException(ErrEnvCallM, 0)
			}
			return newException(ErrEnvCallU, 0)
		case 0x001: // ebreak
			return newException(ErrBreakpoint, c.PC)
		case 0x002: // uret
			panic("riscv: uret is not implemented")
		case 0x302: // mret
			c.PC = c.Csr.Read(CSRMEPC) - 4
			mpp := c.Csr.ReadMstatusMPP()
			if mpp != uint32(ModeMachine) {
				c.Csr.WriteMstatusMPRV(0)
			}
			c.Mode = mppToMode(mpp)
			c.Csr.WriteMstatusMIE(c.Csr.ReadMstatusMPIE())
			c.Csr.WriteMstatusMPIE(1)
			c.Csr.WriteMstatusMPP(uint32(ModeUser))
			return nil
		case 0x105: // wfi
			c.Idle = true
			return nil
		default:
			// sfence.vma, hfence.bvma, hfence.gvma: no address
			// translation is modelled, so these are no-ops.
			return nil
		}
	}

	addr := uint16((inst >> 20) & 0xfff)
	old := c.Csr.Read(addr)
	switch funct3 {
	case 0x1: // csrrw
		c.Csr.Write(addr, c.readReg(rs1))
		c.writeReg(rd, old)
	case 0x2: // csrrs
		if rs1 != 0 {
			c.Csr.Write(addr, old|c.readReg(rs1))
		}
		c.writeReg(rd, old)
	case 0x3: // csrrc
		if rs1 != 0 {
			c.Csr.Write(addr, old&^c.readReg(rs1))
		}
		c.writeReg(rd, old)
	case 0x5: // csrrwi
		c.Csr.Write(addr, rs1)
		c.writeReg(rd, old)
	case 0x6: // csrrsi
		if rs1 != 0 {
			c.Csr.Write(addr, old|rs1)
		}
		c.writeReg(rd, old)
	case 0x7: // csrrci
		if rs1 != 0 {
			c.Csr.Write(addr, old&^rs1)
		}
		c.writeReg(rd, old)
	default:
		return newException(ErrIllegalInstruction, inst)
	}
	return nil
}
