package core

import "github.com/kestrelvm/kestrel/pkg/a64"

// op identifies a decoded operation within the executed subset.
type op int

const (
	opUnknown op = iota
	opNop
	opMovn
	opMovz
	opMovk
	opAddSubImm
	opAddSubReg
	opB
	opBCond
	opCbz
	opCbnz
	opLoad
	opStore
	opLdxr
	opStxr
	opSvc
	opBrk
	opMrsCntpct
)

// instr is one decoded instruction. Which fields are meaningful depends
// on the operation; decode fills only what exec reads.
type instr struct {
	op   op
	rd   uint8 // destination / transfer register
	rn   uint8 // first operand / base register
	rm   uint8 // second operand register
	rs   uint8 // status register for STXR
	cond uint8
	size uint8  // access size class for loads/stores
	sub  bool   // subtract rather than add
	flag bool   // set NZCV
	imm  uint64 // immediate operand
	off  int64  // branch offset in words, relative to the instruction
}

// signExtend extends the low n bits of v to 64 bits.
func signExtend(v uint64, n uint) int64 {
	shift := 64 - n
	return int64(v<<shift) >> shift
}

// decode classifies a single instruction word. Words outside the subset
// decode to opUnknown; the core reports those through the event funnel
// rather than failing. Only 64-bit (sf=1) data-processing forms are in
// the subset.
func decode(w uint32) instr {
	switch {
	case w == a64.Nop:
		return instr{op: opNop}

	// Move wide: the opc bits 30:29 select MOVN/MOVZ/MOVK, so the match
	// mask must cover them along with sf and bits 28:23.
	case w&0xFF800000 == a64.Movn:
		return movWide(opMovn, w)
	case w&0xFF800000 == a64.Movz:
		return movWide(opMovz, w)
	case w&0xFF800000 == a64.Movk:
		return movWide(opMovk, w)

	// Add/subtract immediate, 64-bit.
	case w&0x9F000000 == 0x91000000:
		imm := uint64(w >> 10 & 0xFFF)
		if w>>22&1 == 1 {
			imm <<= 12
		}
		return instr{
			op:   opAddSubImm,
			rd:   uint8(w & 0x1F),
			rn:   uint8(w >> 5 & 0x1F),
			sub:  w>>30&1 == 1,
			flag: w>>29&1 == 1,
			imm:  imm,
		}

	// Add/subtract shifted register, 64-bit, LSL shifts only.
	case w&0x9F200000 == 0x8B000000 && w>>22&3 == 0:
		return instr{
			op:   opAddSubReg,
			rd:   uint8(w & 0x1F),
			rn:   uint8(w >> 5 & 0x1F),
			rm:   uint8(w >> 16 & 0x1F),
			sub:  w>>30&1 == 1,
			flag: w>>29&1 == 1,
			imm:  uint64(w >> 10 & 0x3F), // left-shift amount for rm
		}

	case w>>26 == 0x05:
		return instr{op: opB, off: signExtend(uint64(w&0x03FFFFFF), 26)}

	case w&0xFF000010 == a64.BCond:
		return instr{
			op:   opBCond,
			cond: uint8(w & 0xF),
			off:  signExtend(uint64(w>>5&0x7FFFF), 19),
		}

	case w>>24 == 0xB4:
		return instr{op: opCbz, rd: uint8(w & 0x1F), off: signExtend(uint64(w>>5&0x7FFFF), 19)}
	case w>>24 == 0xB5:
		return instr{op: opCbnz, rd: uint8(w & 0x1F), off: signExtend(uint64(w>>5&0x7FFFF), 19)}

	// Load/store register, unsigned immediate offset.
	case w>>24&0x3F == 0x39:
		size := uint8(w >> 30)
		opc := w >> 22 & 3
		in := instr{
			rd:   uint8(w & 0x1F),
			rn:   uint8(w >> 5 & 0x1F),
			size: size,
			imm:  uint64(w>>10&0xFFF) << size,
		}
		switch opc {
		case 0:
			in.op = opStore
			return in
		case 1:
			in.op = opLoad
			return in
		}
		return instr{op: opUnknown}

	// Load/store exclusive (LDXR/STXR forms only: o2=o1=o0=0, Rt2=11111).
	case w>>24&0x3F == 0x08 && w&0x00A08000 == 0 && w>>10&0x1F == 0x1F:
		size := uint8(w >> 30)
		if w>>22&1 == 1 {
			if w>>16&0x1F != 0x1F {
				return instr{op: opUnknown}
			}
			return instr{op: opLdxr, rd: uint8(w & 0x1F), rn: uint8(w >> 5 & 0x1F), size: size}
		}
		return instr{
			op:   opStxr,
			rd:   uint8(w & 0x1F),
			rn:   uint8(w >> 5 & 0x1F),
			rs:   uint8(w >> 16 & 0x1F),
			size: size,
		}

	case w&0xFFE0001F == a64.Svc:
		return instr{op: opSvc, imm: uint64(w >> 5 & 0xFFFF)}
	case w&0xFFE0001F == a64.Brk:
		return instr{op: opBrk, imm: uint64(w >> 5 & 0xFFFF)}

	case w&^uint32(0x1F) == a64.MrsCntpct:
		return instr{op: opMrsCntpct, rd: uint8(w & 0x1F)}
	}

	return instr{op: opUnknown}
}

func movWide(o op, w uint32) instr {
	return instr{
		op:  o,
		rd:  uint8(w & 0x1F),
		imm: uint64(w >> 5 & 0xFFFF),
		// hw shift, in bits
		off: int64((w >> 21 & 3) * 16),
	}
}
