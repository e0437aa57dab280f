package core

import (
	"testing"

	"github.com/kestrelvm/kestrel/pkg/a64"
)

// TestDecodeMovWideRouting checks that each move-wide form decodes to its
// own operation. The three share bits 28:23, so a match mask that omits
// the opc bits 30:29 would route MOVZ and MOVK to the MOVN case.
func TestDecodeMovWideRouting(t *testing.T) {
	tests := []struct {
		name string
		word uint32
		op   op
		rd   uint8
		imm  uint64
		off  int64
	}{
		{"movz", a64.EncodeMovz(0, 42, 0), opMovz, 0, 42, 0},
		{"movk", a64.EncodeMovk(3, 0xDEAD, 1), opMovk, 3, 0xDEAD, 16},
		{"movn", a64.EncodeMovn(4, 0, 0), opMovn, 4, 0, 0},
	}
	for _, tt := range tests {
		in := decode(tt.word)
		if in.op != tt.op {
			t.Errorf("decode(%s %#08x).op = %d, want %d", tt.name, tt.word, in.op, tt.op)
		}
		if in.rd != tt.rd || in.imm != tt.imm || in.off != tt.off {
			t.Errorf("decode(%s %#08x) = {rd:%d imm:%#x off:%d}, want {rd:%d imm:%#x off:%d}",
				tt.name, tt.word, in.rd, in.imm, in.off, tt.rd, tt.imm, tt.off)
		}
	}
}
