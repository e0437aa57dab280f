// Package core implements the reference execution core that drives the
// guest environment.
//
// The core stands in for an external binary-translation engine: it owns
// the register file and program counter, and calls back into the guest
// environment for every instruction fetch, memory access, and tick
// update. It depends only on the guest.Callbacks capability set, never on
// a concrete environment type, so environments with different
// exclusive-write or event semantics can be substituted freely.
//
// Execution covers a small A64 subset (see package a64). One instruction
// costs one tick. A run ends when the tick budget reaches zero or the
// guest parks in a branch-to-self idle loop.
package core

import (
	"github.com/kestrelvm/kestrel/pkg/guest"
)

// NumRegs is the number of general-purpose registers (X0-X30).
const NumRegs = 31

// ZeroReg is the register index that reads as zero and discards writes.
// The subset does not model the stack pointer, so index 31 is always the
// zero register.
const ZeroReg = 31

// exclusiveMonitor tracks the address and value observed by the most
// recent load-exclusive, feeding the expected value of the next
// store-exclusive.
type exclusiveMonitor struct {
	active bool
	addr   uint64
	size   uint8
	value  uint64
}

// Core executes guest instructions against a guest environment.
type Core struct {
	env  guest.Callbacks
	regs [NumRegs]uint64
	pc   uint64

	// NZCV condition flags.
	n, z, c, v bool

	monitor exclusiveMonitor

	// decoded caches decode results by instruction word. Decoding is a
	// pure function of the word, so entries never need invalidation even
	// when the guest rewrites its own code.
	decoded map[uint32]instr
}

// New creates a core bound to an environment.
func New(env guest.Callbacks) *Core {
	return &Core{
		env:     env,
		decoded: make(map[uint32]instr),
	}
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint64) {
	c.pc = pc
}

// PC returns the program counter.
func (c *Core) PC() uint64 {
	return c.pc
}

// Reg returns register i; ZeroReg reads as zero.
func (c *Core) Reg(i int) uint64 {
	if i < 0 || i >= NumRegs {
		return 0
	}
	return c.regs[i]
}

// SetReg sets register i; writes to ZeroReg are discarded.
func (c *Core) SetReg(i int, v uint64) {
	if i < 0 || i >= NumRegs {
		return
	}
	c.regs[i] = v
}

// Run executes instructions until the tick budget is exhausted or the
// guest reaches a branch-to-self. Each executed instruction consumes one
// tick, reported to the environment as it happens.
func (c *Core) Run() {
	for c.env.RemainingTicks() > 0 {
		word := c.env.FetchInstructionWord(c.pc)

		in, ok := c.decoded[word]
		if !ok {
			in = decode(word)
			c.decoded[word] = in
		}

		halt := c.step(in)
		c.env.ConsumeTicks(1)
		if halt {
			return
		}
	}
}

// step executes one decoded instruction and reports whether the run
// should halt.
func (c *Core) step(in instr) bool {
	next := c.pc + guest.InstrWidth

	switch in.op {
	case opNop:

	case opMovz:
		c.SetReg(int(in.rd), in.imm<<uint(in.off))
	case opMovn:
		c.SetReg(int(in.rd), ^(in.imm << uint(in.off)))
	case opMovk:
		keep := c.Reg(int(in.rd)) &^ (uint64(0xFFFF) << uint(in.off))
		c.SetReg(int(in.rd), keep|in.imm<<uint(in.off))

	case opAddSubImm:
		c.addSub(in, in.imm)
	case opAddSubReg:
		c.addSub(in, c.Reg(int(in.rm))<<in.imm)

	case opB:
		if in.off == 0 {
			return true // idle loop
		}
		next = c.pc + uint64(in.off)*guest.InstrWidth
	case opBCond:
		if c.condHolds(in.cond) {
			if in.off == 0 {
				return true
			}
			next = c.pc + uint64(in.off)*guest.InstrWidth
		}
	case opCbz:
		if c.Reg(int(in.rd)) == 0 {
			if in.off == 0 {
				return true
			}
			next = c.pc + uint64(in.off)*guest.InstrWidth
		}
	case opCbnz:
		if c.Reg(int(in.rd)) != 0 {
			if in.off == 0 {
				return true
			}
			next = c.pc + uint64(in.off)*guest.InstrWidth
		}

	case opLoad:
		addr := c.Reg(int(in.rn)) + in.imm
		c.SetReg(int(in.rd), c.load(addr, in.size))
	case opStore:
		addr := c.Reg(int(in.rn)) + in.imm
		c.store(addr, in.size, c.Reg(int(in.rd)))

	case opLdxr:
		addr := c.Reg(int(in.rn))
		val := c.load(addr, in.size)
		c.SetReg(int(in.rd), val)
		c.monitor = exclusiveMonitor{active: true, addr: addr, size: in.size, value: val}
	case opStxr:
		addr := c.Reg(int(in.rn))
		status := uint64(1) // fail
		if c.monitor.active && c.monitor.addr == addr && c.monitor.size == in.size {
			if c.storeExclusive(addr, in.size, c.Reg(int(in.rd)), c.monitor.value) {
				status = 0
			}
		}
		c.monitor = exclusiveMonitor{}
		c.SetReg(int(in.rs), status)

	case opSvc:
		c.env.OnSystemCall(uint32(in.imm))
	case opBrk:
		c.env.OnException(c.pc, guest.ExcBreakpoint)

	case opMrsCntpct:
		c.SetReg(int(in.rd), c.env.VirtualCounter())

	default:
		c.env.OnUnsupportedInstruction(c.pc, 1)
	}

	c.pc = next
	return false
}

// addSub performs 64-bit add/subtract with optional flag setting.
func (c *Core) addSub(in instr, operand uint64) {
	a := c.Reg(int(in.rn))
	var result uint64
	if in.sub {
		result = a - operand
		if in.flag {
			c.n = result>>63 == 1
			c.z = result == 0
			c.c = a >= operand
			c.v = ((a^operand)&(a^result))>>63 == 1
		}
	} else {
		result = a + operand
		if in.flag {
			c.n = result>>63 == 1
			c.z = result == 0
			c.c = result < a
			c.v = (^(a^operand)&(a^result))>>63 == 1
		}
	}
	c.SetReg(int(in.rd), result)
}

// condHolds evaluates a B.cond condition against NZCV.
func (c *Core) condHolds(cond uint8) bool {
	switch cond {
	case 0x0: // EQ
		return c.z
	case 0x1: // NE
		return !c.z
	case 0x2: // CS
		return c.c
	case 0x3: // CC
		return !c.c
	case 0x4: // MI
		return c.n
	case 0x5: // PL
		return !c.n
	case 0x6: // VS
		return c.v
	case 0x7: // VC
		return !c.v
	case 0x8: // HI
		return c.c && !c.z
	case 0x9: // LS
		return !c.c || c.z
	case 0xA: // GE
		return c.n == c.v
	case 0xB: // LT
		return c.n != c.v
	case 0xC: // GT
		return !c.z && c.n == c.v
	case 0xD: // LE
		return c.z || c.n != c.v
	default: // AL
		return true
	}
}

func (c *Core) load(addr uint64, size uint8) uint64 {
	switch size {
	case 0:
		return uint64(c.env.ReadByte(addr))
	case 1:
		return uint64(c.env.ReadHalf(addr))
	case 2:
		return uint64(c.env.ReadWord(addr))
	default:
		return c.env.ReadDouble(addr)
	}
}

func (c *Core) store(addr uint64, size uint8, v uint64) {
	switch size {
	case 0:
		c.env.WriteByte(addr, uint8(v))
	case 1:
		c.env.WriteHalf(addr, uint16(v))
	case 2:
		c.env.WriteWord(addr, uint32(v))
	default:
		c.env.WriteDouble(addr, v)
	}
}

func (c *Core) storeExclusive(addr uint64, size uint8, v, expected uint64) bool {
	switch size {
	case 0:
		return c.env.WriteExclusiveByte(addr, uint8(v), uint8(expected))
	case 1:
		return c.env.WriteExclusiveHalf(addr, uint16(v), uint16(expected))
	case 2:
		return c.env.WriteExclusiveWord(addr, uint32(v), uint32(expected))
	default:
		return c.env.WriteExclusiveDouble(addr, v, expected)
	}
}
