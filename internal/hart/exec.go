package hart

import (
	"encoding/binary"

	"github.com/ninja-bond/RVVM/internal/csr"
)

// Execute runs one already-fetched instruction, advancing the PC by
// width (4 for a standard encoding, 2 for a decompressed one) unless
// the instruction itself redirects control flow or traps. The opcode
// bucket layout mirrors rvgo/fast/vm.go's Step switch (same opcode
// constants, same funct3/funct7 sub-switches), generalized from that
// package's single-step Linux-syscall semantics to full privileged
// register/PC/trap semantics.
func (h *Hart) Execute(instr uint32, compressed bool) {
	width := uint64(4)
	if compressed {
		width = 2
	}
	opcode := opcodeOf(instr)
	rd := rdOf(instr)
	rs1 := rs1Of(instr)
	rs2 := rs2Of(instr)
	f3 := funct3Of(instr)
	f7 := funct7Of(instr)
	pc := h.pc
	nextPC := pc + width

	switch opcode {
	case 0x03: // loads
		addr := uint64(int64(h.Reg(rs1)) + immI(instr))
		var buf [8]byte
		var v uint64
		switch f3 {
		case 0: // LB
			if !h.readMem(addr, buf[:1]) {
				return
			}
			v = uint64(int64(int8(buf[0])))
		case 1: // LH
			if !h.readMem(addr, buf[:2]) {
				return
			}
			v = uint64(int64(int16(binary.LittleEndian.Uint16(buf[:2]))))
		case 2: // LW
			if !h.readMem(addr, buf[:4]) {
				return
			}
			v = uint64(int64(int32(binary.LittleEndian.Uint32(buf[:4]))))
		case 3: // LD
			if !h.readMem(addr, buf[:8]) {
				return
			}
			v = binary.LittleEndian.Uint64(buf[:8])
		case 4: // LBU
			if !h.readMem(addr, buf[:1]) {
				return
			}
			v = uint64(buf[0])
		case 5: // LHU
			if !h.readMem(addr, buf[:2]) {
				return
			}
			v = uint64(binary.LittleEndian.Uint16(buf[:2]))
		case 6: // LWU
			if !h.readMem(addr, buf[:4]) {
				return
			}
			v = uint64(binary.LittleEndian.Uint32(buf[:4]))
		}
		h.SetReg(rd, v)
	case 0x23: // stores
		addr := uint64(int64(h.Reg(rs1)) + immS(instr))
		v := h.Reg(rs2)
		var buf [8]byte
		switch f3 {
		case 0: // SB
			buf[0] = byte(v)
			if !h.writeMem(addr, buf[:1]) {
				return
			}
		case 1: // SH
			binary.LittleEndian.PutUint16(buf[:2], uint16(v))
			if !h.writeMem(addr, buf[:2]) {
				return
			}
		case 2: // SW
			binary.LittleEndian.PutUint32(buf[:4], uint32(v))
			if !h.writeMem(addr, buf[:4]) {
				return
			}
		case 3: // SD
			binary.LittleEndian.PutUint64(buf[:8], v)
			if !h.writeMem(addr, buf[:8]) {
				return
			}
		}
	case 0x63: // branches
		rs1v, rs2v := h.Reg(rs1), h.Reg(rs2)
		taken := false
		switch f3 {
		case 0: // BEQ
			taken = rs1v == rs2v
		case 1: // BNE
			taken = rs1v != rs2v
		case 4: // BLT
			taken = int64(rs1v) < int64(rs2v)
		case 5: // BGE
			taken = int64(rs1v) >= int64(rs2v)
		case 6: // BLTU
			taken = rs1v < rs2v
		case 7: // BGEU
			taken = rs1v >= rs2v
		}
		if taken {
			nextPC = uint64(int64(pc) + immB(instr))
		}
	case 0x13: // immediate arithmetic/logic
		v := h.Reg(rs1)
		imm := immI(instr)
		var out uint64
		switch f3 {
		case 0: // ADDI
			out = uint64(int64(v) + imm)
		case 1: // SLLI
			out = v << uint(imm&0x3F)
		case 2: // SLTI
			out = boolU64(int64(v) < imm)
		case 3: // SLTIU
			out = boolU64(v < uint64(imm))
		case 4: // XORI
			out = v ^ uint64(imm)
		case 5:
			shamt := uint(imm & 0x3F)
			if imm&0x400 != 0 { // SRAI
				out = uint64(int64(v) >> shamt)
			} else { // SRLI
				out = v >> shamt
			}
		case 6: // ORI
			out = v | uint64(imm)
		case 7: // ANDI
			out = v & uint64(imm)
		}
		h.SetReg(rd, out)
	case 0x1B: // 32-bit immediate arithmetic/logic (RV64 only)
		v := uint32(h.Reg(rs1))
		imm := immI(instr)
		var out int32
		switch f3 {
		case 0: // ADDIW
			out = int32(v) + int32(imm)
		case 1: // SLLIW
			out = int32(v << uint(imm&0x1F))
		case 5:
			shamt := uint(imm & 0x1F)
			if imm&0x400 != 0 {
				out = int32(v) >> shamt
			} else {
				out = int32(v >> shamt)
			}
		}
		h.SetReg(rd, uint64(int64(out)))
	case 0x33: // register arithmetic/logic
		if f7 == 1 {
			h.SetReg(rd, execM64(f3, h.Reg(rs1), h.Reg(rs2)))
			break
		}
		rs1v, rs2v := h.Reg(rs1), h.Reg(rs2)
		var out uint64
		switch f3 {
		case 0:
			if f7 == 0x20 {
				out = rs1v - rs2v
			} else {
				out = rs1v + rs2v
			}
		case 1:
			out = rs1v << (rs2v & 0x3F)
		case 2:
			out = boolU64(int64(rs1v) < int64(rs2v))
		case 3:
			out = boolU64(rs1v < rs2v)
		case 4:
			out = rs1v ^ rs2v
		case 5:
			if f7 == 0x20 {
				out = uint64(int64(rs1v) >> (rs2v & 0x3F))
			} else {
				out = rs1v >> (rs2v & 0x3F)
			}
		case 6:
			out = rs1v | rs2v
		case 7:
			out = rs1v & rs2v
		}
		h.SetReg(rd, out)
	case 0x3B: // 32-bit register arithmetic/logic (RV64 only)
		if f7 == 1 {
			h.SetReg(rd, execM32(f3, uint32(h.Reg(rs1)), uint32(h.Reg(rs2))))
			break
		}
		rs1v, rs2v := uint32(h.Reg(rs1)), uint32(h.Reg(rs2))
		var out int32
		switch f3 {
		case 0:
			if f7 == 0x20 {
				out = int32(rs1v - rs2v)
			} else {
				out = int32(rs1v + rs2v)
			}
		case 1:
			out = int32(rs1v << (rs2v & 0x1F))
		case 5:
			shamt := rs2v & 0x1F
			if f7 == 0x20 {
				out = int32(rs1v) >> shamt
			} else {
				out = int32(rs1v >> shamt)
			}
		}
		h.SetReg(rd, uint64(int64(out)))
	case 0x37: // LUI
		h.SetReg(rd, uint64(immU(instr)))
	case 0x17: // AUIPC
		h.SetReg(rd, uint64(int64(pc)+immU(instr)))
	case 0x6F: // JAL
		h.SetReg(rd, pc+width)
		nextPC = uint64(int64(pc) + immJ(instr))
	case 0x67: // JALR
		link := pc + width
		target := uint64(int64(h.Reg(rs1))+immI(instr)) &^ 1
		h.SetReg(rd, link)
		nextPC = target
	case 0x73: // SYSTEM
		if !h.execSystem(instr, f3, rd, rs1) {
			return // trap already delivered
		}
	case 0x2F: // A extension
		if !h.execAtomic(instr, f3, f7, rd, rs1, rs2) {
			return
		}
	case 0x0F: // FENCE/FENCE.I/FENCE.TSO
		// No pipeline to synchronize in an interpreter; all fence
		// variants are no-ops, per rvgo/fast/vm.go's same treatment.
	case 0x07, 0x27, 0x53: // F/D loads, stores, and FP ops
		// The floating-point register file and instruction set are
		// out of this core's scope; executing one as a no-op is
		// enough for guest code that merely probes for FPU presence
		// without depending on FP results.
	default:
		h.Trap(CauseIllegalInstruction, uint64(instr))
		return
	}
	h.pc = nextPC
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// execSystem handles ECALL/EBREAK, CSR instructions, and the
// privileged xRET/WFI/SFENCE.VMA encodings that share opcode 0x73.
// Returns false if it already delivered a trap or set PC itself (xRET);
// the caller must not touch PC further.
func (h *Hart) execSystem(instr uint32, f3, rd, rs1 uint32) bool {
	if f3 != 0 {
		return h.execCSR(instr, f3, rd, rs1)
	}
	imm12 := csrImm(instr)
	switch imm12 {
	case 0x000: // ECALL
		var cause uint64
		switch h.priv {
		case csr.User:
			cause = CauseECallFromU
		case csr.Supervisor:
			cause = CauseECallFromS
		default:
			cause = CauseECallFromM
		}
		h.Trap(cause, 0)
		return false
	case 0x001: // EBREAK
		h.Trap(CauseBreakpoint, h.pc)
		return false
	case 0x102: // SRET
		h.priv = h.csrBank.XPP(csr.Supervisor)
		h.csrBank.RestorePIE(csr.Supervisor)
		h.pc = h.csrBank.Trap(csr.Supervisor).EPC()
		return false // PC already set from epc, skip the nextPC write
	case 0x302: // MRET
		h.priv = h.csrBank.XPP(csr.Machine)
		h.csrBank.RestorePIE(csr.Machine)
		h.pc = h.csrBank.Trap(csr.Machine).EPC()
		return false
	case 0x105: // WFI
		// Parks the hot loop in hotLoop until Interrupt or RequestStop
		// wakes it, per spec.md §9's WFI note; does not trap.
		h.wfi = true
		return true
	default:
		if (imm12>>5)&0x7F == 0x09 { // SFENCE.VMA
			if rs1 == 0 {
				h.tlb.FlushAll()
			} else {
				h.tlb.FlushVA(h.Reg(rs1))
			}
			return true
		}
		h.Trap(CauseIllegalInstruction, uint64(instr))
		return false
	}
}

func (h *Hart) execCSR(instr uint32, f3, rd, rs1 uint32) bool {
	id := csrImm(instr)
	var value uint64
	if f3&4 != 0 {
		value = uint64(rs1) // *I variants: rs1 field is a 5-bit immediate
	} else {
		value = h.Reg(rs1)
	}
	var op csr.Op
	switch f3 & 3 {
	case 1:
		op = csr.OpSwap
	case 2:
		op = csr.OpSetBits
	case 3:
		op = csr.OpClearBits
	}
	// CSRRS/CSRRC(I) with rs1==x0 is a pure read: spec.md §4.3's
	// access check 1 still must not fail it, since opWrites(old, 0)
	// is zero for OpSetBits/OpClearBits already.
	old, ok := h.csrBank.Op(id, value, op)
	if !ok {
		h.Trap(CauseIllegalInstruction, uint64(instr))
		return false
	}
	h.SetReg(rd, old)
	// MISA's custom handler may have staged an XLEN switch; spec.md
	// §4.3 applies it "at next retirement boundary" — here, now.
	if h.pendingXLEN != 0 {
		h.xlen = h.pendingXLEN
		h.pendingXLEN = 0
		h.tlb.FlushAll()
	}
	return true
}
