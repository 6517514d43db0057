package extkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/noderun/kernel"
)

func TestRetrySucceedsWithinMaxAttempts(t *testing.T) {
	root := kernel.NewResource("retry.root", func(ctx kernel.ResourceInitContext, c struct{}, d kernel.Deps) (int, error) {
		return 1, nil
	})

	calls := 0
	retrying := Retry("retry.mw", WithMaxAttempts(3))
	task := kernel.NewTask("retry.flaky", func(ctx kernel.AsyncExecContext, input int, deps kernel.Deps) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return input, nil
	}, kernel.WithTaskMiddleware[int, int](retrying))

	rt, err := kernel.Run(context.Background(), root, kernel.WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	out, err := rt.RunTask(context.Background(), task, 5)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if out != 5 {
		t.Fatalf("expected 5, got %d", out)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestRetryExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	root := kernel.NewResource("retry.root2", func(ctx kernel.ResourceInitContext, c struct{}, d kernel.Deps) (int, error) {
		return 1, nil
	})

	attempts := 0
	lastErr := errors.New("still failing")
	retrying := Retry("retry.mw2", WithMaxAttempts(3))
	task := kernel.NewTask("retry.alwaysFails", func(ctx kernel.AsyncExecContext, input int, deps kernel.Deps) (int, error) {
		attempts++
		return 0, lastErr
	}, kernel.WithTaskMiddleware[int, int](retrying))

	rt, err := kernel.Run(context.Background(), root, kernel.WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	_, err = rt.RunTask(context.Background(), task, 1)
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected the last attempt's error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryRespectsRetryablePredicate(t *testing.T) {
	root := kernel.NewResource("retry.root3", func(ctx kernel.ResourceInitContext, c struct{}, d kernel.Deps) (int, error) {
		return 1, nil
	})

	fatal := errors.New("non-retryable")
	attempts := 0
	retrying := Retry("retry.mw3", WithMaxAttempts(5), WithRetryable(func(err error) bool {
		return false
	}))
	task := kernel.NewTask("retry.fatalOnFirst", func(ctx kernel.AsyncExecContext, input int, deps kernel.Deps) (int, error) {
		attempts++
		return 0, fatal
	}, kernel.WithTaskMiddleware[int, int](retrying))

	rt, err := kernel.Run(context.Background(), root, kernel.WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	_, err = rt.RunTask(context.Background(), task, 1)
	if !errors.Is(err, fatal) {
		t.Fatalf("expected the fatal error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected the retryable predicate to stop after 1 attempt, got %d", attempts)
	}
}

func TestRetryHonorsContextCancellationDuringBackoff(t *testing.T) {
	root := kernel.NewResource("retry.root4", func(ctx kernel.ResourceInitContext, c struct{}, d kernel.Deps) (int, error) {
		return 1, nil
	})

	retrying := Retry("retry.mw4", WithMaxAttempts(5), WithBackoff(func(attempt int) time.Duration {
		return 50 * time.Millisecond
	}))
	task := kernel.NewTask("retry.slow", func(ctx kernel.AsyncExecContext, input int, deps kernel.Deps) (int, error) {
		return 0, errors.New("keep failing")
	}, kernel.WithTaskMiddleware[int, int](retrying))

	rt, err := kernel.Run(context.Background(), root, kernel.WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = rt.RunTask(ctx, task, 1)
	if err == nil {
		t.Fatal("expected the context deadline to interrupt the retry loop")
	}
}

func TestRetryRecordsJournalKeys(t *testing.T) {
	root := kernel.NewResource("retry.root5", func(ctx kernel.ResourceInitContext, c struct{}, d kernel.Deps) (int, error) {
		return 1, nil
	})

	var observedAttempts []any
	var observedLastErr any
	failOnce := errors.New("one failure")
	retrying := Retry("retry.mw5", WithMaxAttempts(2))
	task := kernel.NewTask("retry.journal", func(ctx kernel.AsyncExecContext, input int, deps kernel.Deps) (int, error) {
		if v, ok := ctx.Journal().Get(kernel.JournalRetryAttempt); ok {
			observedAttempts = append(observedAttempts, v)
		}
		if v, ok := ctx.Journal().Get(kernel.JournalRetryLastError); ok {
			observedLastErr = v
		}
		if len(observedAttempts) < 2 {
			return 0, failOnce
		}
		return input, nil
	}, kernel.WithTaskMiddleware[int, int](retrying))

	rt, err := kernel.Run(context.Background(), root, kernel.WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	out, err := rt.RunTask(context.Background(), task, 9)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if out != 9 {
		t.Fatalf("expected 9, got %d", out)
	}
	if len(observedAttempts) != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", len(observedAttempts))
	}
	if observedLastErr == nil {
		t.Fatal("expected the last error to have been journaled after the first failure")
	}
}
