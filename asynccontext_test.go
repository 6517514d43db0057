package kernel

import (
	"context"
	"errors"
	"testing"
)

func TestAsyncContextProvideThenUse(t *testing.T) {
	requestID := NewAsyncContext[string]("asynccontext.requestID")

	base := AsyncExecContext{ctx: context.Background()}
	provided := requestID.Provide(base, "req-123")

	v, err := requestID.Use(provided)
	if err != nil || v != "req-123" {
		t.Fatalf("expected (req-123, nil), got (%q, %v)", v, err)
	}
}

func TestAsyncContextUseWithoutProvideIsContextError(t *testing.T) {
	requestID := NewAsyncContext[string]("asynccontext.unprovided")
	base := AsyncExecContext{ctx: context.Background()}

	_, err := requestID.Use(base)
	var ctxErr *ContextError
	if !errors.As(err, &ctxErr) {
		t.Fatalf("expected ContextError, got %v", err)
	}
	if ctxErr.ContextID != "asynccontext.unprovided" {
		t.Fatalf("expected ContextID asynccontext.unprovided, got %q", ctxErr.ContextID)
	}
}

func TestAsyncContextProvideDoesNotMutateParent(t *testing.T) {
	flag := NewAsyncContext[bool]("asynccontext.flag")
	parent := AsyncExecContext{ctx: context.Background()}

	_ = flag.Provide(parent, true)

	if _, err := flag.Use(parent); err == nil {
		t.Fatal("expected the original parent context to remain unaffected by Provide")
	}
}

func TestAsyncContextVisibleAcrossGoroutines(t *testing.T) {
	traceID := NewAsyncContext[string]("asynccontext.trace")
	parent := AsyncExecContext{ctx: context.Background()}
	provided := traceID.Provide(parent, "trace-xyz")

	result := make(chan string, 1)
	go func(ctx AsyncExecContext) {
		v, err := traceID.Use(ctx)
		if err != nil {
			result <- "error"
			return
		}
		result <- v
	}(provided)

	if got := <-result; got != "trace-xyz" {
		t.Fatalf("expected trace-xyz to cross the goroutine boundary, got %q", got)
	}
}
