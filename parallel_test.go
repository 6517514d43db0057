package kernel

import (
	"context"
	"errors"
	"testing"
)

func TestParallelCollectsResultsInOrder(t *testing.T) {
	ctx := AsyncExecContext{ctx: context.Background()}
	jobs := []ParallelJob[int]{
		func(ctx AsyncExecContext) (int, error) { return 1, nil },
		func(ctx AsyncExecContext) (int, error) { return 2, nil },
		func(ctx AsyncExecContext) (int, error) { return 3, nil },
	}

	results, err := Parallel(ctx, ParallelFailFast, jobs...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 || results[0] != 1 || results[1] != 2 || results[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", results)
	}
}

func TestParallelFailFastReturnsFirstError(t *testing.T) {
	ctx := AsyncExecContext{ctx: context.Background()}
	boom := errors.New("boom")
	jobs := []ParallelJob[int]{
		func(ctx AsyncExecContext) (int, error) { return 0, boom },
		func(ctx AsyncExecContext) (int, error) { return 2, nil },
	}

	_, err := Parallel(ctx, ParallelFailFast, jobs...)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the job's error to propagate, got %v", err)
	}
}

func TestParallelCollectErrorsGathersEveryFailure(t *testing.T) {
	ctx := AsyncExecContext{ctx: context.Background()}
	err1 := errors.New("err1")
	err2 := errors.New("err2")
	jobs := []ParallelJob[int]{
		func(ctx AsyncExecContext) (int, error) { return 0, err1 },
		func(ctx AsyncExecContext) (int, error) { return 1, nil },
		func(ctx AsyncExecContext) (int, error) { return 0, err2 },
	}

	_, err := Parallel(ctx, ParallelCollectErrors, jobs...)
	if err == nil {
		t.Fatal("expected a non-nil aggregate error")
	}
	var multi *multiError
	if !errors.As(err, &multi) {
		t.Fatalf("expected a *multiError, got %T", err)
	}
	if len(multi.errs) != 2 {
		t.Fatalf("expected 2 collected errors, got %d", len(multi.errs))
	}
}

func TestParallelRecoversJobPanic(t *testing.T) {
	ctx := AsyncExecContext{ctx: context.Background()}
	jobs := []ParallelJob[int]{
		func(ctx AsyncExecContext) (int, error) {
			panic("job panicked")
		},
	}

	_, err := Parallel(ctx, ParallelFailFast, jobs...)
	if err == nil {
		t.Fatal("expected the panic to be recovered into an error")
	}
}
