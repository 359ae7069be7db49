package trace

import "context"

// scoped is what a context carries: the tracer and the span new spans hang off.
type scoped struct {
	tracer Tracer
	parent uint64
}

type scopedKey struct{}

func load(ctx context.Context) scoped {
	if ctx != nil {
		if s, ok := ctx.Value(scopedKey{}).(scoped); ok {
			return s
		}
	}
	return scoped{tracer: Nop}
}

// WithTracer stores t in ctx. A nil t stores Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	s := load(ctx)
	s.tracer = t
	return context.WithValue(ctx, scopedKey{}, s)
}

// FromContext returns the stored tracer, or Nop.
func FromContext(ctx context.Context) Tracer {
	return load(ctx).tracer
}

// Parent returns the id of the enclosing span, 0 at the top.
func Parent(ctx context.Context) uint64 {
	return load(ctx).parent
}

// Enter makes s the parent of spans begun under the returned context.
// A nil or filtered span keeps the current parent.
func (s *Span) Enter(ctx context.Context) context.Context {
	if s.ID() == 0 {
		return ctx
	}
	sc := load(ctx)
	sc.parent = s.ID()
	return context.WithValue(ctx, scopedKey{}, sc)
}
