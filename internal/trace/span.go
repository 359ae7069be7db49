package trace

import (
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

func nextSeq() uint64 { return seq.Add(1) }

const errorKey = "error"

// Span is an open begin/end pair. Spans whose scope the level filters out
// get id 0 and emit nothing, unless they fail.
type Span struct {
	t       Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

// Begin opens a span under parent (0 for a top-level span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() {
		return &Span{t: Nop}
	}
	s := &Span{t: t, parent: parent, scope: scope, name: name, started: time.Now()}
	if !t.Level().ShouldEmit(scope) {
		return s
	}
	s.id = spanIDs.Add(1)
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return s
}

func (s *Span) event(k Kind, at time.Time, detail string) *Event {
	return &Event{
		Time:     at,
		Seq:      nextSeq(),
		Kind:     k,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
	}
}

func (s *Span) live() bool {
	return s != nil && s.t != nil && s.t.Enabled()
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	dur := time.Since(s.started)
	if s.id == 0 && s.extra[errorKey] == "" {
		return dur
	}
	ev := s.event(KindSpanEnd, time.Now(), detail)
	ev.Extra = s.extra
	s.t.Emit(ev)
	return dur
}

func (s *Span) set(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// Count attaches a counter to the end event.
func (s *Span) Count(key string, n int) *Span {
	return s.set(key, strconv.Itoa(n))
}

// Fail records err on the span. A failed span is emitted even at LevelError.
func (s *Span) Fail(err error) *Span {
	if err == nil {
		return s
	}
	return s.set(errorKey, err.Error())
}

// ID is 0 for spans that emit nothing.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      nextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}
