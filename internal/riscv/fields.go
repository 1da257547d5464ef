package riscv

import "omphalos/internal/bitfield"

// RFields is the R-type instruction layout (add, sub, mul, div, ...):
// opcode[6:0] | rd[11:7] | funct3[14:12] | rs1[19:15] | rs2[24:20] |
// funct7[31:25]. Declaration order here matches the field order least
// significant bit first, so Pack/Unpack round-trip the raw word exactly.
type RFields struct {
	Opcode uint32 `bitfield:",7"`
	Rd     uint32 `bitfield:",5"`
	Funct3 uint32 `bitfield:",3"`
	Rs1    uint32 `bitfield:",5"`
	Rs2    uint32 `bitfield:",5"`
	Funct7 uint32 `bitfield:",7"`
}

// DecodeRFields unpacks inst's R-type fields. Valid for any instruction
// word regardless of its actual opcode — the caller decides whether the
// fields mean anything for that opcode.
func DecodeRFields(inst uint32) (RFields, error) {
	var f RFields
	err := bitfield.Unpack(uint64(inst), &f)
	return f, err
}

// Encode repacks f into a raw 32-bit instruction word.
func (f RFields) Encode() (uint32, error) {
	packed, err := bitfield.Pack(f, &bitfield.Config{NumBits: 32})
	if err != nil {
		return 0, err
	}
	return uint32(packed), nil
}
