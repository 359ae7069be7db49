package trace

import "time"

// Kind of an event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	// KindHeartbeat is emitted regardless of level.
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope orders events from coarse to fine; a Level admits a prefix of it.
type Scope uint8

const (
	// ScopeDriver: commands and pipeline stages.
	ScopeDriver Scope = iota + 1
	// ScopePass: classify and annotate.
	ScopePass
	// ScopeModule: one artifact or one source file.
	ScopeModule
	// ScopeFunction: per-function decisions, e.g. a cut cycle.
	ScopeFunction
)

var scopeNames = [...]string{
	ScopeDriver:   "driver",
	ScopePass:     "pass",
	ScopeModule:   "module",
	ScopeFunction: "function",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one record of the trace stream. SpanID is 0 for point events and
// heartbeats; Extra holds span counters and the "error" key of failed spans.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string
	Detail   string
	Extra    map[string]string
}

func (ev *Event) failed() bool {
	_, ok := ev.Extra[errorKey]
	return ok
}
