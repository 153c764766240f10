package hart

import "encoding/binary"

// execAtomic implements the RV32A/RV64A extension (opcode 0x2F):
// LR/SC and the AMO family, grounded on rvgo/fast/vm.go's same
// acquire/release commentary (a no-op here, since this interpreter has
// no memory-op pipeline to order) and its op-to-destination mapping,
// generalized from that package's witness-friendly opMem closure to
// this core's plain read-modify-write on guest memory.
func (h *Hart) execAtomic(instr uint32, f3, f7 uint32, rd, rs1, rs2 uint32) bool {
	size := uint64(1) << f3 // f3 is 2 for .W, 3 for .D
	if size != 4 && size != 8 {
		h.Trap(CauseIllegalInstruction, uint64(instr))
		return false
	}
	addr := h.Reg(rs1)
	op := f7 >> 2

	switch op {
	case 0x02: // LR
		buf := make([]byte, size)
		if !h.readMem(addr, buf) {
			return false
		}
		h.SetReg(rd, signExtendLoad(buf))
		h.loadReservation = addr
		h.hasLoadReservation = true
		return true
	case 0x03: // SC
		success := uint64(1)
		if h.hasLoadReservation && h.loadReservation == addr {
			buf := make([]byte, size)
			putUint(buf, h.Reg(rs2))
			if !h.writeMem(addr, buf) {
				return false
			}
			success = 0
		}
		h.hasLoadReservation = false
		h.SetReg(rd, success)
		return true
	default:
		buf := make([]byte, size)
		if !h.readMem(addr, buf) {
			return false
		}
		old := signExtendLoad(buf)
		rs2v := h.Reg(rs2)
		if size == 4 {
			rs2v = uint64(int64(int32(rs2v)))
		}
		newVal := applyAMO(op, old, rs2v, size)
		outBuf := make([]byte, size)
		putUint(outBuf, newVal)
		if !h.writeMem(addr, outBuf) {
			return false
		}
		h.SetReg(rd, old)
		return true
	}
}

func signExtendLoad(buf []byte) uint64 {
	if len(buf) == 4 {
		return uint64(int64(int32(binary.LittleEndian.Uint32(buf))))
	}
	return binary.LittleEndian.Uint64(buf)
}

func putUint(buf []byte, v uint64) {
	if len(buf) == 4 {
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return
	}
	binary.LittleEndian.PutUint64(buf, v)
}

func applyAMO(op uint32, old, value uint64, size uint64) uint64 {
	switch op {
	case 0x00: // AMOADD
		return old + value
	case 0x01: // AMOSWAP
		return value
	case 0x04: // AMOXOR
		return old ^ value
	case 0x08: // AMOOR
		return old | value
	case 0x0C: // AMOAND
		return old & value
	case 0x10: // AMOMIN
		return amoExtreme(old, value, size, true, true)
	case 0x14: // AMOMAX
		return amoExtreme(old, value, size, true, false)
	case 0x18: // AMOMINU
		return amoExtreme(old, value, size, false, true)
	case 0x1C: // AMOMAXU
		return amoExtreme(old, value, size, false, false)
	default:
		return old
	}
}

func amoExtreme(old, value uint64, size uint64, signed, min bool) uint64 {
	var less bool
	if signed {
		less = int64(old) < int64(value)
	} else {
		less = old < value
	}
	if min == less {
		return old
	}
	return value
}
