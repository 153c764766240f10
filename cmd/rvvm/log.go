package rvvm

import (
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// Logger builds a structured logfmt logger over w at level lvl, exactly
// as rvgo/cmd/log.go wires log.NewLogger(log.LogfmtHandlerWithLevel(...))
// — SPEC_FULL.md §7's ambient-stack logging choice, carried unchanged
// from the teacher.
func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// HexU64 lazily formats a 64-bit value as a hex string for log fields
// such as pc/csr/tval, replacing the C source's %h trace conversion
// per spec.md §9's varargs-formatting design note.
type HexU64 uint64

func (v HexU64) String() string {
	return hexutil.Bytes([]byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}).String()
}

func (v HexU64) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
