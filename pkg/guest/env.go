package guest

import "fmt"

var _ Callbacks = (*Env)(nil)

// Options configures a new environment.
type Options struct {
	// CodeBase is the guest address of the first instruction word.
	CodeBase uint64

	// Code is the instruction words of the code region. The region is
	// fixed once execution starts and never shrinks during a run.
	Code []uint32

	// TickBudget is the initial execution budget.
	TickBudget uint64

	// Exclusive selects the exclusive-write policy.
	Exclusive ExclusivePolicy

	// Events selects the event policy.
	Events EventPolicy
}

// Env is the concrete guest environment. One instance serves exactly one
// run and is owned by a single caller; no operation blocks or locks.
type Env struct {
	codeBase uint64
	code     []uint32
	codeEnd  uint64 // codeBase + 4*len(code), exclusive

	// overlay records every explicitly written byte. It shadows all
	// reads, including reads of code addresses, and grows monotonically.
	overlay map[uint64]uint8

	codeModified bool
	ticks        uint64

	exclusive ExclusivePolicy
	events    EventPolicy

	log []Event
	err error // first strict-policy event, latched
}

// NewEnv validates the options and builds an environment. The only error
// paths are construction-time misconfiguration; the callback contract
// itself never fails.
func NewEnv(opts Options) (*Env, error) {
	if len(opts.Code) == 0 {
		return nil, ErrEmptyCode
	}

	span := uint64(len(opts.Code)) * InstrWidth
	end := opts.CodeBase + span
	if end < opts.CodeBase {
		return nil, fmt.Errorf("%w: base 0x%x, %d words", ErrCodeRangeWrap, opts.CodeBase, len(opts.Code))
	}

	return &Env{
		codeBase:  opts.CodeBase,
		code:      opts.Code,
		codeEnd:   end,
		overlay:   make(map[uint64]uint8),
		ticks:     opts.TickBudget,
		exclusive: opts.Exclusive,
		events:    opts.Events,
	}, nil
}

// InCode reports whether addr falls inside the code region.
func (e *Env) InCode(addr uint64) bool {
	return addr >= e.codeBase && addr < e.codeEnd
}

// FetchInstructionWord returns the word at a code address, assembled from
// byte reads so that overlay writes shadow the original code bytes. A
// fetch outside the code region returns SpinSentinel regardless of any
// overlay contents there.
func (e *Env) FetchInstructionWord(addr uint64) uint32 {
	if !e.InCode(addr) {
		return SpinSentinel
	}
	return e.ReadWord(addr)
}

// ReadByte returns the byte at addr. Overlay writes win; otherwise code
// bytes are served little-endian out of the word storage; otherwise the
// low 8 bits of the address are synthesized, giving never-written memory
// a deterministic, assertable value.
func (e *Env) ReadByte(addr uint64) uint8 {
	if v, ok := e.overlay[addr]; ok {
		return v
	}
	if e.InCode(addr) {
		off := addr - e.codeBase
		return uint8(e.code[off/InstrWidth] >> (8 * (off % InstrWidth)))
	}
	return uint8(addr)
}

// ReadHalf reads a 16-bit value composed from byte reads, little-endian.
func (e *Env) ReadHalf(addr uint64) uint16 {
	return uint16(e.ReadByte(addr)) | uint16(e.ReadByte(addr+1))<<8
}

// ReadWord reads a 32-bit value composed from halfword reads.
func (e *Env) ReadWord(addr uint64) uint32 {
	return uint32(e.ReadHalf(addr)) | uint32(e.ReadHalf(addr+2))<<16
}

// ReadDouble reads a 64-bit value composed from word reads.
func (e *Env) ReadDouble(addr uint64) uint64 {
	return uint64(e.ReadWord(addr)) | uint64(e.ReadWord(addr+4))<<32
}

// ReadVector reads a 128-bit value as two consecutive 64-bit reads.
func (e *Env) ReadVector(addr uint64) Vector {
	return Vector{e.ReadDouble(addr), e.ReadDouble(addr + 8)}
}

// WriteByte stores v in the overlay. A write landing inside the code
// region additionally latches the self-modification flag; the write is
// neither prevented nor rolled back.
func (e *Env) WriteByte(addr uint64, v uint8) {
	if e.InCode(addr) {
		e.codeModified = true
	}
	e.overlay[addr] = v
}

// WriteHalf writes a 16-bit value as byte writes, little-endian.
func (e *Env) WriteHalf(addr uint64, v uint16) {
	e.WriteByte(addr, uint8(v))
	e.WriteByte(addr+1, uint8(v>>8))
}

// WriteWord writes a 32-bit value as halfword writes.
func (e *Env) WriteWord(addr uint64, v uint32) {
	e.WriteHalf(addr, uint16(v))
	e.WriteHalf(addr+2, uint16(v>>16))
}

// WriteDouble writes a 64-bit value as word writes.
func (e *Env) WriteDouble(addr uint64, v uint64) {
	e.WriteWord(addr, uint32(v))
	e.WriteWord(addr+4, uint32(v>>32))
}

// WriteVector writes a 128-bit value as two consecutive 64-bit writes.
func (e *Env) WriteVector(addr uint64, v Vector) {
	e.WriteDouble(addr, v[0])
	e.WriteDouble(addr+8, v[1])
}

// WriteExclusiveByte performs a guarded byte write per the configured
// exclusive policy.
func (e *Env) WriteExclusiveByte(addr uint64, v, expected uint8) bool {
	if e.exclusive == ExclusiveCompare && e.ReadByte(addr) != expected {
		return false
	}
	e.WriteByte(addr, v)
	return true
}

// WriteExclusiveHalf performs a guarded halfword write.
func (e *Env) WriteExclusiveHalf(addr uint64, v, expected uint16) bool {
	if e.exclusive == ExclusiveCompare && e.ReadHalf(addr) != expected {
		return false
	}
	e.WriteHalf(addr, v)
	return true
}

// WriteExclusiveWord performs a guarded word write.
func (e *Env) WriteExclusiveWord(addr uint64, v, expected uint32) bool {
	if e.exclusive == ExclusiveCompare && e.ReadWord(addr) != expected {
		return false
	}
	e.WriteWord(addr, v)
	return true
}

// WriteExclusiveDouble performs a guarded doubleword write.
func (e *Env) WriteExclusiveDouble(addr uint64, v, expected uint64) bool {
	if e.exclusive == ExclusiveCompare && e.ReadDouble(addr) != expected {
		return false
	}
	e.WriteDouble(addr, v)
	return true
}

// WriteExclusiveVector performs a guarded 128-bit write.
func (e *Env) WriteExclusiveVector(addr uint64, v, expected Vector) bool {
	if e.exclusive == ExclusiveCompare && e.ReadVector(addr) != expected {
		return false
	}
	e.WriteVector(addr, v)
	return true
}

// ConsumeTicks subtracts n from the remaining budget, clamping at zero.
func (e *Env) ConsumeTicks(n uint64) {
	if n > e.ticks {
		e.ticks = 0
		return
	}
	e.ticks -= n
}

// RemainingTicks returns the current budget.
func (e *Env) RemainingTicks() uint64 {
	return e.ticks
}

// VirtualCounter returns the guest's notion of elapsed virtual time:
// VirtualCounterBase minus the remaining budget, so it increases as ticks
// are consumed and is deterministic across runs.
func (e *Env) VirtualCounter() uint64 {
	return VirtualCounterBase - e.ticks
}

// OnUnsupportedInstruction records an instruction the core could not
// translate. count is the number of instructions skipped or handed to a
// fallback path.
func (e *Env) OnUnsupportedInstruction(addr uint64, count uint64) {
	e.record(Event{Kind: EventUnsupportedInstruction, Addr: addr, Count: count})
}

// OnSystemCall records a guest system call.
func (e *Env) OnSystemCall(code uint32) {
	e.record(Event{Kind: EventSystemCall, Code: code})
}

// OnException records a guest exception.
func (e *Env) OnException(addr uint64, kind ExceptionKind) {
	e.record(Event{Kind: EventException, Addr: addr, Exception: kind})
}

func (e *Env) record(ev Event) {
	e.log = append(e.log, ev)
	if e.events == EventsStrict && e.err == nil {
		e.err = fmt.Errorf("strict event policy: %s", ev)
	}
}

// CodeModified reports whether any write has landed inside the code
// region. Once set it stays set for the rest of the run; the execution
// core queries it after a run to decide whether to re-translate.
func (e *Env) CodeModified() bool {
	return e.codeModified
}

// Events returns the interrupt log, in arrival order. The returned slice
// is the environment's own; callers inspect it after execution returns.
func (e *Env) Events() []Event {
	return e.log
}

// Err returns the latched strict-policy error, or nil. Always nil under
// EventsRecord.
func (e *Env) Err() error {
	return e.err
}

// CodeBase returns the guest address of the first instruction word.
func (e *Env) CodeBase() uint64 {
	return e.codeBase
}

// CodeLen returns the number of instruction words in the code region.
func (e *Env) CodeLen() int {
	return len(e.code)
}
