package a64

import "testing"

// TestEncodeGoldenWords checks encodings against independently assembled
// instruction words.
func TestEncodeGoldenWords(t *testing.T) {
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"MOVZ X0, #0", EncodeMovz(0, 0, 0), 0xD2800000},
		{"MOVZ X0, #42", EncodeMovz(0, 42, 0), 0xD2800540},
		{"MOVZ X1, #0", EncodeMovz(1, 0, 0), 0xD2800001},
		{"MOVZ X2, #2", EncodeMovz(2, 2, 0), 0xD2800042},
		{"MOVK X3, #0xDEAD, LSL 16", EncodeMovk(3, 0xDEAD, 1), 0xF2BBD5A3},
		{"ADD X1, X1, #1", EncodeAddSubImm(AddImm, 1, 1, 1), 0x91000421},
		{"ADD X0, X0, X2", EncodeAddSubReg(AddReg, 0, 0, 2), 0x8B020000},
		{"SUBS XZR, X1, #3", EncodeAddSubImm(SubsImm, 31, 1, 3), 0xF1000C3F},
		{"B .", EncodeB(0), 0x14000000},
		{"B.NE .-12", EncodeBCond(CondNE, -3), 0x54FFFFA1},
		{"CBZ X1, .+8", EncodeCbz(1, 2), 0xB4000041},
		{"STR W1, [X2]", EncodeLoadStore(Strw, 1, 2, 0), 0xB9000041},
		{"LDR X4, [X2, #8]", EncodeLoadStore(Ldrx, 4, 2, 8), 0xF9400444},
		{"LDRB W3, [X2]", EncodeLoadStore(Ldrb, 3, 2, 0), 0x39400043},
		{"LDXR X1, [X2]", EncodeLdxr(SizeX, 1, 2), 0xC85F7C41},
		{"STXR W3, X1, [X2]", EncodeStxr(SizeX, 3, 1, 2), 0xC8037C41},
		{"SVC #0", EncodeSvc(0), 0xD4000001},
		{"SVC #7", EncodeSvc(7), 0xD40000E1},
		{"BRK #0", EncodeBrk(0), 0xD4200000},
		{"MRS X0, CNTPCT_EL0", EncodeMrsCntpct(0), 0xD53BE020},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = 0x%08X, want 0x%08X", tt.name, tt.got, tt.want)
		}
	}
}

// TestEncodeBNegativeOffset checks backward-branch immediates mask
// correctly into the 26-bit field.
func TestEncodeBNegativeOffset(t *testing.T) {
	if got := EncodeB(-1); got != 0x17FFFFFF {
		t.Errorf("EncodeB(-1) = 0x%08X, want 0x17FFFFFF", got)
	}
	if got := EncodeB(-3); got != 0x17FFFFFD {
		t.Errorf("EncodeB(-3) = 0x%08X, want 0x17FFFFFD", got)
	}
}
