package hart

// Decompression of the RVC 16-bit instruction set into their 32-bit
// equivalents, so the rest of the execution path only ever sees
// standard encodings. The opcode/funct3 bucket layout mirrors
// rvgo/fast/decompressor.go's switch, which enumerates every bucket
// but leaves the bodies as placeholders; those bodies are filled in
// here against the same opcode constants the interpreter's 32-bit
// switch already recognizes.

// isCompressed reports whether instr's low two bits are not both set,
// i.e. it is a 16-bit encoding rather than a 32-bit one.
func isCompressed(instr uint16) bool { return instr&3 != 3 }

func quadrant(instr uint16) uint16 { return instr & 3 }
func funct3C(instr uint16) uint16  { return instr >> 13 }

// cReg maps a 3-bit compressed register field to its full x8..x15
// register number, per the RVC register-aliasing table.
func cReg(field uint16) uint32 { return uint32(field) + 8 }

// decompress expands a 16-bit instruction into its 32-bit counterpart.
// ok is false for a reserved/unassigned encoding, which the caller
// turns into an illegal-instruction trap.
func decompress(instr uint16) (out uint32, ok bool) {
	q := quadrant(instr)
	f3 := funct3C(instr)
	rdRs2Full := uint32((instr >> 2) & 0x1F)
	rdRs1Short := cReg((instr >> 7) & 0x7)
	rs2Short := cReg((instr >> 2) & 0x7)

	switch q {
	case 0:
		switch f3 {
		case 0x0: // C.ADDI4SPN
			nzuimm := ((instr>>7)&0x30) | ((instr>>1)&0x3C0) | ((instr>>6)&1)<<2 | ((instr>>5)&1)<<3
			if nzuimm == 0 {
				return 0, false
			}
			return encodeI(0x13, rs2Short, 0, 2, int64(nzuimm)), true
		case 0x2: // C.LW
			off := ((instr>>10)&0x7)<<3 | ((instr>>6)&1)<<2 | ((instr>>5)&1)<<6
			return encodeI(0x03, rs2Short, 2, rdRs1Short, int64(off)), true
		case 0x3: // C.LD (RV64 only)
			off := ((instr>>10)&0x7)<<3 | ((instr>>5)&0x3)<<6
			return encodeI(0x03, rs2Short, 3, rdRs1Short, int64(off)), true
		case 0x5: // C.SW
			off := ((instr>>10)&0x7)<<3 | ((instr>>6)&1)<<2 | ((instr>>5)&1)<<6
			return encodeS(0x23, rs2Short, 2, rdRs1Short, int64(off)), true
		case 0x6: // C.SD (RV64 only)
			off := ((instr>>10)&0x7)<<3 | ((instr>>5)&0x3)<<6
			return encodeS(0x23, rs2Short, 3, rdRs1Short, int64(off)), true
		}
	case 1:
		switch f3 {
		case 0x0: // C.NOP / C.ADDI
			imm := cImm6(instr)
			return encodeI(0x13, rdRs2Full, 0, rdRs2Full, imm), true
		case 0x1: // C.ADDIW (RV64 only)
			imm := cImm6(instr)
			return encodeI(0x1B, rdRs2Full, 0, rdRs2Full, imm), true
		case 0x2: // C.LI
			imm := cImm6(instr)
			return encodeI(0x13, rdRs2Full, 0, 0, imm), true
		case 0x3: // C.ADDI16SP / C.LUI
			if rdRs2Full == 2 {
				v := uint32((instr>>6)&1)<<4 | uint32((instr>>2)&1)<<5 | uint32((instr>>5)&1)<<6 |
					uint32((instr>>3)&0x3)<<7 | uint32((instr>>12)&1)<<9
				nzimm := signExtend(v, 9)
				return encodeI(0x13, 2, 0, 2, nzimm), true
			}
			imm := cImm6(instr)
			return encodeU(0x37, rdRs2Full, imm<<12), true
		case 0x4: // C.SRLI/C.SRAI/C.ANDI/C.SUB/C.XOR/C.OR/C.AND + 32-bit variants
			return decompressC1Alu(instr, rdRs1Short)
		case 0x5: // C.J
			imm := cImmJ(instr)
			return encodeJ(0x6F, 0, imm), true
		case 0x6: // C.BEQZ
			imm := cImmB(instr)
			return encodeB(0x63, 0, rdRs1Short, 0, imm), true
		case 0x7: // C.BNEZ
			imm := cImmB(instr)
			return encodeB(0x63, 1, rdRs1Short, 0, imm), true
		}
	case 2:
		switch f3 {
		case 0x0: // C.SLLI
			shamt := (instr>>2)&0x1F | (instr>>7)&0x20
			return encodeI(0x13, rdRs2Full, 1, rdRs2Full, int64(shamt)), true
		case 0x2: // C.LWSP
			off := ((instr>>4)&0x7)<<2 | ((instr>>12)&1)<<5 | ((instr>>2)&0x3)<<6
			return encodeI(0x03, rdRs2Full, 2, 2, int64(off)), true
		case 0x3: // C.LDSP (RV64 only)
			off := ((instr>>5)&0x3)<<3 | ((instr>>12)&1)<<5 | ((instr>>2)&0x7)<<6
			return encodeI(0x03, rdRs2Full, 3, 2, int64(off)), true
		case 0x4: // C.JR/C.MV/C.EBREAK/C.JALR/C.ADD
			return decompressC2Misc(instr, rdRs2Full)
		case 0x6: // C.SWSP
			off := ((instr>>9)&0xF)<<2 | ((instr>>7)&0x3)<<6
			return encodeS(0x23, rdRs2Full, 2, 2, int64(off)), true
		case 0x7: // C.SDSP (RV64 only)
			off := ((instr>>10)&0x7)<<3 | ((instr>>7)&0x7)<<6
			return encodeS(0x23, rdRs2Full, 3, 2, int64(off)), true
		}
	}
	return 0, false
}

// cImm6 decodes the 6-bit signed immediate common to C.ADDI/C.LI/etc:
// bit 12 is the sign, bits 6:2 are the low five bits.
func cImm6(instr uint16) int64 {
	v := uint32((instr>>2)&0x1F) | uint32((instr>>12)&1)<<5
	return signExtend(v, 5)
}

func cImmJ(instr uint16) int64 {
	v := uint32((instr>>3)&0x7)<<1 | uint32((instr>>11)&1)<<4 | uint32((instr>>2)&1)<<5 |
		uint32((instr>>7)&1)<<6 | uint32((instr>>6)&1)<<7 | uint32((instr>>9)&0x3)<<8 |
		uint32((instr>>8)&1)<<10 | uint32((instr>>12)&1)<<11
	return signExtend(v, 11)
}

func cImmB(instr uint16) int64 {
	v := uint32((instr>>3)&0x3)<<1 | uint32((instr>>10)&0x3)<<3 | uint32((instr>>2)&1)<<5 |
		uint32((instr>>5)&0x3)<<6 | uint32((instr>>12)&1)<<8
	return signExtend(v, 8)
}

func decompressC1Alu(instr uint16, rdRs1 uint32) (uint32, bool) {
	switch (instr >> 10) & 0x3 {
	case 0x0: // C.SRLI
		shamt := (instr>>2)&0x1F | (instr>>7)&0x20
		return encodeI(0x13, rdRs1, 5, rdRs1, int64(shamt)), true
	case 0x1: // C.SRAI
		shamt := (instr>>2)&0x1F | (instr>>7)&0x20
		return encodeI(0x13, rdRs1, 5, rdRs1, int64(shamt)|0x400), true
	case 0x2: // C.ANDI
		return encodeI(0x13, rdRs1, 7, rdRs1, cImm6(instr)), true
	case 0x3:
		rs2 := cReg((instr >> 2) & 0x7)
		wide := instr&0x1000 != 0
		switch (instr >> 5) & 0x3 {
		case 0x0:
			if wide {
				return encodeR(0x3B, rdRs1, 0, rdRs1, rs2, 0x20), true // SUBW
			}
			return encodeR(0x33, rdRs1, 0, rdRs1, rs2, 0x20), true // SUB
		case 0x1:
			if wide {
				return encodeR(0x3B, rdRs1, 0, rdRs1, rs2, 0x00), true // ADDW
			}
			return encodeR(0x33, rdRs1, 4, rdRs1, rs2, 0x00), true // XOR
		case 0x2:
			return encodeR(0x33, rdRs1, 6, rdRs1, rs2, 0x00), true // OR
		case 0x3:
			return encodeR(0x33, rdRs1, 7, rdRs1, rs2, 0x00), true // AND
		}
	}
	return 0, false
}

func decompressC2Misc(instr uint16, rd uint32) (uint32, bool) {
	rs2 := uint32((instr >> 2) & 0x1F)
	big := instr&0x1000 != 0
	switch {
	case !big && rs2 == 0: // C.JR
		return encodeI(0x67, 0, 0, rd, 0), true
	case !big && rs2 != 0: // C.MV
		return encodeR(0x33, rd, 0, 0, rs2, 0), true
	case big && rd == 0 && rs2 == 0: // C.EBREAK
		return 0x00100073, true
	case big && rs2 == 0: // C.JALR
		return encodeI(0x67, 1, 0, rd, 0), true
	default: // C.ADD
		return encodeR(0x33, rd, 0, rd, rs2, 0), true
	}
}

// The encodeX helpers build a standard 32-bit instruction word from its
// fields, the inverse of the field parsers in decode.go.

func encodeR(opcode, rd, f3, rs1, rs2, f7 uint32) uint32 {
	return opcode | rd<<7 | f3<<12 | rs1<<15 | rs2<<20 | f7<<25
}

func encodeI(opcode, rd, f3, rs1 uint32, imm int64) uint32 {
	return opcode | rd<<7 | f3<<12 | rs1<<15 | uint32(imm&0xFFF)<<20
}

func encodeS(opcode, rs2, f3, rs1 uint32, imm int64) uint32 {
	u := uint32(imm) & 0xFFF
	return opcode | (u&0x1F)<<7 | f3<<12 | rs1<<15 | rs2<<20 | (u>>5)<<25
}

func encodeB(opcode, f3, rs1, rs2 uint32, imm int64) uint32 {
	u := uint32(imm) & 0x1FFF
	return opcode | ((u>>11)&1)<<7 | ((u>>1)&0xF)<<8 | f3<<12 | rs1<<15 | rs2<<20 | ((u>>5)&0x3F)<<25 | ((u>>12)&1)<<31
}

func encodeU(opcode, rd uint32, imm int64) uint32 {
	return opcode | rd<<7 | uint32(imm)&0xFFFFF000
}

func encodeJ(opcode, rd uint32, imm int64) uint32 {
	u := uint32(imm) & 0x1FFFFF
	return opcode | rd<<7 | ((u>>12)&0xFF)<<12 | ((u>>11)&1)<<20 | ((u>>1)&0x3FF)<<21 | ((u>>20)&1)<<31
}
