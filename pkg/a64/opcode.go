// Package a64 defines instruction-word encodings for the A64 subset the
// reference execution core understands, plus Encode helpers used to build
// test and driver programs.
//
// All encodings are the standard AArch64 ones; only the subset needed to
// exercise the guest environment is covered. Words are little-endian in
// guest memory, 4 bytes wide.
package a64

// Fixed instruction words.
const (
	// Nop is HINT #0.
	Nop = uint32(0xD503201F)

	// SpinBranch is an unconditional branch-to-self ("B ."), the idle
	// loop a program parks in when it is done.
	SpinBranch = uint32(0x14000000)

	// MrsCntpct reads the virtual cycle counter (MRS Xt, CNTPCT_EL0)
	// with Rt zero; OR in the destination register.
	MrsCntpct = uint32(0xD53BE020)
)

// Move-wide base encodings (64-bit, hw/imm16/Rd zero).
const (
	Movn = uint32(0x92800000) // MOVN Xd, #imm16, LSL #(hw*16)
	Movz = uint32(0xD2800000) // MOVZ Xd, #imm16, LSL #(hw*16)
	Movk = uint32(0xF2800000) // MOVK Xd, #imm16, LSL #(hw*16)
)

// Add/subtract immediate base encodings (64-bit).
const (
	AddImm  = uint32(0x91000000) // ADD  Xd, Xn, #imm12
	AddsImm = uint32(0xB1000000) // ADDS Xd, Xn, #imm12
	SubImm  = uint32(0xD1000000) // SUB  Xd, Xn, #imm12
	SubsImm = uint32(0xF1000000) // SUBS Xd, Xn, #imm12
)

// Add/subtract shifted-register base encodings (64-bit, LSL #0).
const (
	AddReg  = uint32(0x8B000000) // ADD  Xd, Xn, Xm
	AddsReg = uint32(0xAB000000) // ADDS Xd, Xn, Xm
	SubReg  = uint32(0xCB000000) // SUB  Xd, Xn, Xm
	SubsReg = uint32(0xEB000000) // SUBS Xd, Xn, Xm
)

// Branch base encodings.
const (
	B     = uint32(0x14000000) // B label
	BCond = uint32(0x54000000) // B.cond label
	Cbz   = uint32(0xB4000000) // CBZ Xt, label
	Cbnz  = uint32(0xB5000000) // CBNZ Xt, label
)

// Condition codes for B.cond.
const (
	CondEQ = 0x0
	CondNE = 0x1
	CondCS = 0x2
	CondCC = 0x3
	CondMI = 0x4
	CondPL = 0x5
	CondVS = 0x6
	CondVC = 0x7
	CondHI = 0x8
	CondLS = 0x9
	CondGE = 0xA
	CondLT = 0xB
	CondGT = 0xC
	CondLE = 0xD
	CondAL = 0xE
)

// Load/store unsigned-offset base encodings. The immediate offset is
// scaled by the access size.
const (
	Strb = uint32(0x39000000) // STRB Wt, [Xn, #imm]
	Ldrb = uint32(0x39400000) // LDRB Wt, [Xn, #imm]
	Strh = uint32(0x79000000) // STRH Wt, [Xn, #imm]
	Ldrh = uint32(0x79400000) // LDRH Wt, [Xn, #imm]
	Strw = uint32(0xB9000000) // STR  Wt, [Xn, #imm]
	Ldrw = uint32(0xB9400000) // LDR  Wt, [Xn, #imm]
	Strx = uint32(0xF9000000) // STR  Xt, [Xn, #imm]
	Ldrx = uint32(0xF9400000) // LDR  Xt, [Xn, #imm]
)

// Load/store exclusive base encodings. OR in the size class (SizeB..SizeX)
// shifted to bits 31:30.
const (
	Stxr = uint32(0x08007C00) // STXR Ws, Rt, [Xn]
	Ldxr = uint32(0x085F7C00) // LDXR Rt, [Xn]
)

// Access size classes (bits 31:30 of load/store encodings).
const (
	SizeB = 0
	SizeH = 1
	SizeW = 2
	SizeX = 3
)

// Exception-generation base encodings.
const (
	Svc = uint32(0xD4000001) // SVC #imm16
	Brk = uint32(0xD4200000) // BRK #imm16
)

// EncodeMovz encodes MOVZ Xd, #imm16, LSL #(hw*16).
func EncodeMovz(rd uint32, imm16 uint32, hw uint32) uint32 {
	return Movz | (hw&3)<<21 | (imm16&0xFFFF)<<5 | rd&0x1F
}

// EncodeMovk encodes MOVK Xd, #imm16, LSL #(hw*16).
func EncodeMovk(rd uint32, imm16 uint32, hw uint32) uint32 {
	return Movk | (hw&3)<<21 | (imm16&0xFFFF)<<5 | rd&0x1F
}

// EncodeMovn encodes MOVN Xd, #imm16, LSL #(hw*16).
func EncodeMovn(rd uint32, imm16 uint32, hw uint32) uint32 {
	return Movn | (hw&3)<<21 | (imm16&0xFFFF)<<5 | rd&0x1F
}

// EncodeAddSubImm encodes an add/subtract immediate from its base
// encoding (AddImm, AddsImm, SubImm, SubsImm).
func EncodeAddSubImm(base, rd, rn, imm12 uint32) uint32 {
	return base | (imm12&0xFFF)<<10 | (rn&0x1F)<<5 | rd&0x1F
}

// EncodeAddSubReg encodes an add/subtract shifted-register (LSL #0) from
// its base encoding (AddReg, AddsReg, SubReg, SubsReg).
func EncodeAddSubReg(base, rd, rn, rm uint32) uint32 {
	return base | (rm&0x1F)<<16 | (rn&0x1F)<<5 | rd&0x1F
}

// EncodeB encodes an unconditional branch with a word offset relative to
// the branch itself. EncodeB(0) is the branch-to-self spin.
func EncodeB(wordOffset int32) uint32 {
	return B | uint32(wordOffset)&0x03FFFFFF
}

// EncodeBCond encodes a conditional branch with a word offset relative to
// the branch itself.
func EncodeBCond(cond uint32, wordOffset int32) uint32 {
	return BCond | (uint32(wordOffset)&0x7FFFF)<<5 | cond&0xF
}

// EncodeCbz encodes CBZ Xt, label with a word offset.
func EncodeCbz(rt uint32, wordOffset int32) uint32 {
	return Cbz | (uint32(wordOffset)&0x7FFFF)<<5 | rt&0x1F
}

// EncodeCbnz encodes CBNZ Xt, label with a word offset.
func EncodeCbnz(rt uint32, wordOffset int32) uint32 {
	return Cbnz | (uint32(wordOffset)&0x7FFFF)<<5 | rt&0x1F
}

// EncodeLoadStore encodes an unsigned-offset load/store from its base
// encoding (Strb..Ldrx). byteOffset must be a multiple of the access size.
func EncodeLoadStore(base, rt, rn uint32, byteOffset uint32) uint32 {
	scale := base >> 30
	return base | (byteOffset>>scale&0xFFF)<<10 | (rn&0x1F)<<5 | rt&0x1F
}

// EncodeLdxr encodes LDXR Rt, [Xn] for the given size class.
func EncodeLdxr(size, rt, rn uint32) uint32 {
	return Ldxr | (size&3)<<30 | (rn&0x1F)<<5 | rt&0x1F
}

// EncodeStxr encodes STXR Ws, Rt, [Xn] for the given size class. Ws
// receives 0 on success, 1 on failure.
func EncodeStxr(size, rs, rt, rn uint32) uint32 {
	return Stxr | (size&3)<<30 | (rs&0x1F)<<16 | (rn&0x1F)<<5 | rt&0x1F
}

// EncodeSvc encodes SVC #imm16.
func EncodeSvc(imm16 uint32) uint32 {
	return Svc | (imm16&0xFFFF)<<5
}

// EncodeBrk encodes BRK #imm16.
func EncodeBrk(imm16 uint32) uint32 {
	return Brk | (imm16&0xFFFF)<<5
}

// EncodeMrsCntpct encodes MRS Xt, CNTPCT_EL0.
func EncodeMrsCntpct(rt uint32) uint32 {
	return MrsCntpct | rt&0x1F
}
