package kernel

import (
	"context"
	"errors"
	"testing"
)

func TestTaskMiddlewaresForDedupsSpecificAndGlobal(t *testing.T) {
	shared := NewTaskMiddleware("pipeline.shared", func(ctx AsyncExecContext, input any, deps Deps, next func(any) (any, error)) (any, error) {
		return next(input)
	}, Everywhere())

	task := NewTask("pipeline.task", func(ctx AsyncExecContext, input int, deps Deps) (int, error) {
		return input, nil
	}, WithTaskMiddleware[int, int](shared))

	s := newStore()
	if err := s.register(task); err != nil {
		t.Fatalf("register task: %v", err)
	}
	if err := s.register(shared); err != nil {
		t.Fatalf("register middleware: %v", err)
	}

	tn := s.tasks[task.NodeID()].(taskNode)
	mws := taskMiddlewaresFor(s, tn, task.NodeID())
	if len(mws) != 1 {
		t.Fatalf("expected the globally-registered and task-attached copies to dedup to 1, got %d", len(mws))
	}
}

func TestBuildTaskRegistryResolvesDepsAndFoldsChain(t *testing.T) {
	root := NewResource("pipeline.root", func(ctx ResourceInitContext, c struct{}, d Deps) (int, error) {
		return 7, nil
	})
	task := NewTask("pipeline.double", func(ctx AsyncExecContext, input int, deps Deps) (int, error) {
		base := DepValue[int](deps, "root")
		return input * base, nil
	}, WithTaskDeps[int, int](Dependencies{"root": DepOn(root)}))

	rt, err := Run(context.Background(), root, WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	entry, ok := rt.tasks[task.NodeID()]
	if !ok {
		t.Fatal("expected task to be present in the built registry")
	}
	out, err := entry.chain(newAsyncExecContext(context.Background(), rt), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(int) != 21 {
		t.Fatalf("expected 21, got %v", out)
	}
}

func TestRunTaskByIDRejectsPhantomTask(t *testing.T) {
	root := NewResource("pipeline.root2", func(ctx ResourceInitContext, c struct{}, d Deps) (int, error) {
		return 1, nil
	})
	phantom := NewPhantomTask[int, int]("pipeline.phantom")

	rt, err := Run(context.Background(), root, WithNodes(phantom))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	_, err = rt.runTaskByID(context.Background(), phantom.NodeID(), 1)
	if err == nil {
		t.Fatal("expected an error running a phantom task")
	}
}

func TestTaskMiddlewaresForFiltersByTunnelPolicyWhitelist(t *testing.T) {
	kept := NewTaskMiddleware("pipeline.kept", func(ctx AsyncExecContext, input any, deps Deps, next func(any) (any, error)) (any, error) {
		return next(input)
	})
	dropped := NewTaskMiddleware("pipeline.dropped", func(ctx AsyncExecContext, input any, deps Deps, next func(any) (any, error)) (any, error) {
		return next(input)
	})

	remote := NewResource("pipeline.tunnelTarget", func(ctx ResourceInitContext, c struct{}, d Deps) (func(AsyncExecContext, any) (any, error), error) {
		return AdaptTunnel(func(ctx AsyncExecContext, input int) (int, error) {
			return input, nil
		}), nil
	}, WithResourceTags[struct{}, func(AsyncExecContext, any) (any, error)](TunnelPolicyTag.With(TunnelPolicy{Client: []string{"pipeline.kept"}})))

	task := NewTask("pipeline.tunneled", func(ctx AsyncExecContext, input int, deps Deps) (int, error) {
		return input, nil
	}, WithTunnel[int, int](remote), WithTaskMiddleware[int, int](kept, dropped))

	s := newStore()
	if err := s.register(remote); err != nil {
		t.Fatalf("register remote: %v", err)
	}
	if err := s.register(task); err != nil {
		t.Fatalf("register task: %v", err)
	}
	if err := s.register(kept); err != nil {
		t.Fatalf("register kept: %v", err)
	}
	if err := s.register(dropped); err != nil {
		t.Fatalf("register dropped: %v", err)
	}

	tn := s.tasks[task.NodeID()].(taskNode)
	mws := taskMiddlewaresFor(s, tn, task.NodeID())
	if len(mws) != 1 || mws[0].NodeID() != "pipeline.kept" {
		t.Fatalf("expected only the whitelisted middleware to survive, got %v", mws)
	}
}

func TestTunnelModeRemoteOnlyCallsTunnelResource(t *testing.T) {
	remote := NewResource("pipeline.remoteOnly", func(ctx ResourceInitContext, c struct{}, d Deps) (func(AsyncExecContext, any) (any, error), error) {
		return AdaptTunnel(func(ctx AsyncExecContext, input int) (int, error) {
			return input + 100, nil
		}), nil
	})
	task := NewPhantomTask[int, int]("pipeline.remoteOnlyTask", WithTunnel[int, int](remote))

	rt, err := Run(context.Background(), remote, WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	out, err := rt.runTaskByID(context.Background(), task.NodeID(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(int) != 105 {
		t.Fatalf("expected the tunnel resource's result 105, got %v", out)
	}
}

func TestTunnelModeLocalOnlyIgnoresTunnelResource(t *testing.T) {
	remote := NewResource("pipeline.localOnly", func(ctx ResourceInitContext, c struct{}, d Deps) (func(AsyncExecContext, any) (any, error), error) {
		return AdaptTunnel(func(ctx AsyncExecContext, input int) (int, error) {
			return -1, nil
		}), nil
	})
	task := NewTask("pipeline.localOnlyTask", func(ctx AsyncExecContext, input int, deps Deps) (int, error) {
		return input * 2, nil
	}, WithTunnel[int, int](remote, TunnelLocalOnly))

	rt, err := Run(context.Background(), remote, WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	out, err := rt.runTaskByID(context.Background(), task.NodeID(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(int) != 10 {
		t.Fatalf("expected the local body's result 10, got %v", out)
	}
}

func TestTunnelModeRemoteFirstFallsBackToLocalOnError(t *testing.T) {
	remote := NewResource("pipeline.remoteFirst", func(ctx ResourceInitContext, c struct{}, d Deps) (func(AsyncExecContext, any) (any, error), error) {
		return func(ctx AsyncExecContext, input any) (any, error) {
			return nil, errors.New("remote unavailable")
		}, nil
	})
	task := NewTask("pipeline.remoteFirstTask", func(ctx AsyncExecContext, input int, deps Deps) (int, error) {
		return input * 3, nil
	}, WithTunnel[int, int](remote, TunnelRemoteFirst))

	rt, err := Run(context.Background(), remote, WithNodes(task))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	out, err := rt.runTaskByID(context.Background(), task.NodeID(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(int) != 15 {
		t.Fatalf("expected the local fallback result 15, got %v", out)
	}
}

func TestRunTaskByIDUnknownTask(t *testing.T) {
	root := NewResource("pipeline.root3", func(ctx ResourceInitContext, c struct{}, d Deps) (int, error) {
		return 1, nil
	})
	rt, err := Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer rt.Dispose()

	_, err = rt.runTaskByID(context.Background(), "pipeline.nope", 1)
	if err == nil {
		t.Fatal("expected an error for an unknown task id")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
}
