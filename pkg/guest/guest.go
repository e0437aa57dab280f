// Package guest implements the guest-memory and execution environment that
// backs Kestrel's binary-translation core.
//
// The environment stands in for a real operating environment. It owns four
// pieces of state for the duration of one run:
// - Code region: a dense, word-addressed window of guest instructions
// - Overlay: a sparse byte map recording every explicit write
// - Tick budget: the remaining permitted execution work
// - Interrupt log: out-of-band events reported by the execution core
//
// The execution core holds no memory state of its own; it calls back into
// the environment for every fetch, read, write, and tick update. The
// environment is purely reactive and single-threaded: exactly one caller,
// call-and-return, no locking.
package guest

import "errors"

// Instruction width in bytes. The code region is addressed in words of
// this size.
const InstrWidth = 4

// SpinSentinel is the instruction word returned for a fetch outside the
// code region: an unconditional branch-to-self. Guest code that runs off
// the known instruction window spins instead of crashing the host.
const SpinSentinel = uint32(0x14000000) // B .

// VirtualCounterBase anchors the virtual counter. The counter reads as
// this constant minus the remaining tick budget, so it increases as ticks
// are consumed.
const VirtualCounterBase = uint64(1) << 40

// Construction errors.
var (
	// ErrEmptyCode is returned when the code region has no words.
	ErrEmptyCode = errors.New("empty code region")

	// ErrCodeRangeWrap is returned when the code region wraps the address space.
	ErrCodeRangeWrap = errors.New("code region wraps address space")
)

// Vector is a 128-bit guest value as two little-endian 64-bit halves.
type Vector [2]uint64

// ExclusivePolicy selects how exclusive (guarded) writes behave.
type ExclusivePolicy int

const (
	// ExclusiveAlwaysSucceed performs the write unconditionally and reports
	// success, ignoring the expected value. Valid only for a single-actor
	// harness where nothing can race the write; this is a deliberate
	// simplification, not real compare-and-swap semantics.
	ExclusiveAlwaysSucceed ExclusivePolicy = iota

	// ExclusiveCompare compares the current memory value against the
	// expected value and fails, without writing, on mismatch.
	ExclusiveCompare
)

// EventPolicy selects how out-of-band events are treated.
type EventPolicy int

const (
	// EventsRecord appends events to the interrupt log and nothing more.
	EventsRecord EventPolicy = iota

	// EventsStrict still records every event and never aborts the run, but
	// latches an error for the first event, readable via Env.Err() after
	// execution returns.
	EventsStrict
)

// Callbacks is the capability set the execution core depends on. Any
// concrete environment implements it; the core never sees a concrete type,
// so an environment with different exclusive-write or event semantics can
// be substituted without touching core code.
type Callbacks interface {
	// FetchInstructionWord returns the instruction word at addr, or
	// SpinSentinel when addr is outside the code region. addr must be
	// word-aligned; misaligned fetch is the caller's contract to avoid.
	FetchInstructionWord(addr uint64) uint32

	// Byte and composed little-endian reads.
	ReadByte(addr uint64) uint8
	ReadHalf(addr uint64) uint16
	ReadWord(addr uint64) uint32
	ReadDouble(addr uint64) uint64
	ReadVector(addr uint64) Vector

	// Byte and composed little-endian writes.
	WriteByte(addr uint64, v uint8)
	WriteHalf(addr uint64, v uint16)
	WriteWord(addr uint64, v uint32)
	WriteDouble(addr uint64, v uint64)
	WriteVector(addr uint64, v Vector)

	// Exclusive (guarded) writes. The return value reports whether the
	// write took effect.
	WriteExclusiveByte(addr uint64, v, expected uint8) bool
	WriteExclusiveHalf(addr uint64, v, expected uint16) bool
	WriteExclusiveWord(addr uint64, v, expected uint32) bool
	WriteExclusiveDouble(addr uint64, v, expected uint64) bool
	WriteExclusiveVector(addr uint64, v, expected Vector) bool

	// Tick accounting.
	ConsumeTicks(n uint64)
	RemainingTicks() uint64
	VirtualCounter() uint64

	// Out-of-band event funnel. Informational sinks only: they never
	// alter memory or tick state and never abort the run.
	OnUnsupportedInstruction(addr uint64, count uint64)
	OnSystemCall(code uint32)
	OnException(addr uint64, kind ExceptionKind)
}
