package hart

import "github.com/holiman/uint256"

// execM64 implements the RV64M register-register multiply/divide
// opcodes (funct7=1 under opcode 0x33), grounded on rvgo/fast/vm.go's
// same funct3 dispatch, using holiman/uint256 for the widening
// multiplies exactly as that package does — the host's native int64
// multiply only yields the low 64 bits, so the upper-half variants
// need a 128-bit intermediate.
func execM64(f3 uint32, rs1v, rs2v uint64) uint64 {
	switch f3 {
	case 0: // MUL
		return rs1v * rs2v
	case 1: // MULH: signed x signed, upper 64 bits
		return mulhSigned(rs1v, rs2v)
	case 2: // MULHSU: signed x unsigned, upper 64 bits
		return mulhSignedUnsigned(rs1v, rs2v)
	case 3: // MULHU: unsigned x unsigned, upper 64 bits
		return mulhUnsigned(rs1v, rs2v)
	case 4: // DIV
		if rs2v == 0 {
			return ^uint64(0)
		}
		if rs1v == 1<<63 && rs2v == ^uint64(0) {
			return rs1v // overflow: most-negative / -1
		}
		return uint64(int64(rs1v) / int64(rs2v))
	case 5: // DIVU
		if rs2v == 0 {
			return ^uint64(0)
		}
		return rs1v / rs2v
	case 6: // REM
		if rs2v == 0 {
			return rs1v
		}
		if rs1v == 1<<63 && rs2v == ^uint64(0) {
			return 0
		}
		return uint64(int64(rs1v) % int64(rs2v))
	case 7: // REMU
		if rs2v == 0 {
			return rs1v
		}
		return rs1v % rs2v
	}
	return 0
}

// execM32 implements RV64M's *W 32-bit-result variants (funct7=1 under
// opcode 0x3B). MULW/DIVW/REMW only ever need a 32x32 multiply/divide,
// so no widening is needed here.
func execM32(f3 uint32, rs1v, rs2v uint32) uint64 {
	switch f3 {
	case 0: // MULW
		return uint64(int64(int32(rs1v * rs2v)))
	case 4: // DIVW
		if rs2v == 0 {
			return ^uint64(0)
		}
		if int32(rs1v) == -1<<31 && int32(rs2v) == -1 {
			return uint64(int64(int32(rs1v)))
		}
		return uint64(int64(int32(rs1v) / int32(rs2v)))
	case 5: // DIVUW
		if rs2v == 0 {
			return ^uint64(0)
		}
		return uint64(int64(int32(rs1v / rs2v)))
	case 6: // REMW
		if rs2v == 0 {
			return uint64(int64(int32(rs1v)))
		}
		if int32(rs1v) == -1<<31 && int32(rs2v) == -1 {
			return 0
		}
		return uint64(int64(int32(rs1v) % int32(rs2v)))
	case 7: // REMUW
		if rs2v == 0 {
			return uint64(int64(int32(rs1v)))
		}
		return uint64(int64(int32(rs1v % rs2v)))
	}
	return 0
}

func mulhUnsigned(a, b uint64) uint64 {
	prod := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return new(uint256.Int).Rsh(prod, 64).Uint64()
}

func mulhSigned(a, b uint64) uint64 {
	pa := signedToU256(int64(a))
	pb := signedToU256(int64(b))
	prod := new(uint256.Int).Mul(pa, pb)
	return new(uint256.Int).Rsh(prod, 64).Uint64()
}

func mulhSignedUnsigned(a, b uint64) uint64 {
	pa := signedToU256(int64(a))
	pb := uint256.NewInt(b)
	prod := new(uint256.Int).Mul(pa, pb)
	return new(uint256.Int).Rsh(prod, 64).Uint64()
}

// signedToU256 sign-extends a 64-bit signed value into a 256-bit two's
// complement representation so uint256.Int's unsigned multiply produces
// a correctly signed product.
func signedToU256(v int64) *uint256.Int {
	u := uint256.NewInt(uint64(v))
	if v < 0 {
		allOnes := new(uint256.Int).Not(uint256.NewInt(0))
		mask := new(uint256.Int).Lsh(allOnes, 64) // top 192 bits set
		u = new(uint256.Int).Or(u, mask)
	}
	return u
}
