package guest

import "fmt"

// ExceptionKind classifies guest exceptions reported through the funnel.
type ExceptionKind int

const (
	ExcUnknown ExceptionKind = iota
	ExcBreakpoint
	ExcUnalignedAccess
	ExcUndefined
)

// String returns a short name for the exception kind.
func (k ExceptionKind) String() string {
	switch k {
	case ExcBreakpoint:
		return "breakpoint"
	case ExcUnalignedAccess:
		return "unaligned-access"
	case ExcUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// EventKind classifies interrupt log entries.
type EventKind int

const (
	EventUnsupportedInstruction EventKind = iota
	EventSystemCall
	EventException
)

// String returns a short name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventUnsupportedInstruction:
		return "unsupported-instruction"
	case EventSystemCall:
		return "system-call"
	case EventException:
		return "exception"
	default:
		return "unknown"
	}
}

// Event is one interrupt log record. Which fields are meaningful depends
// on Kind: Addr and Count for unsupported instructions, Code for system
// calls, Addr and Exception for exceptions.
type Event struct {
	Kind      EventKind
	Addr      uint64
	Count     uint64
	Code      uint32
	Exception ExceptionKind
}

// String formats the event for logs and reports.
func (e Event) String() string {
	switch e.Kind {
	case EventUnsupportedInstruction:
		return fmt.Sprintf("unsupported-instruction pc=0x%x count=%d", e.Addr, e.Count)
	case EventSystemCall:
		return fmt.Sprintf("system-call code=%d", e.Code)
	case EventException:
		return fmt.Sprintf("exception pc=0x%x kind=%s", e.Addr, e.Exception)
	default:
		return fmt.Sprintf("event kind=%d", e.Kind)
	}
}
