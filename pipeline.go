package kernel

import (
	"context"
	"fmt"
)

// taskEntry is a task's boot-time-resolved invocation: its own deps
// already turned into a Deps map, and its middleware chain folded into a
// single callable wrapping the task body.
type taskEntry struct {
	node  taskNode
	chain func(ctx AsyncExecContext, input any) (any, error)
}

// buildTaskRegistry resolves every task's dependencies and folds its
// middleware chain, once, after every resource has been initialized.
func buildTaskRegistry(s *store, lm *lifecycleManager, rt *Runtime) (map[string]*taskEntry, error) {
	out := make(map[string]*taskEntry, len(s.tasks))
	for id, nd := range s.tasks {
		tn, ok := nd.(taskNode)
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("node %q is not a task", id)}
		}
		deps, err := resolveDeps(s, lm, rt, nd.nodeDeps())
		if err != nil {
			return nil, err
		}
		mws := taskMiddlewaresFor(s, tn, id)
		mwDeps, err := resolveMiddlewareDeps(s, lm, rt, mws)
		if err != nil {
			return nil, err
		}
		chain := foldTaskChain(mws, func(ctx AsyncExecContext, input any, d Deps) (any, error) {
			return tn.invoke(ctx, input, d)
		}, deps, mwDeps)
		out[id] = &taskEntry{node: tn, chain: chain}
	}
	return out, nil
}

// resolveMiddlewareDeps resolves each middleware's own Dependencies
// declaration (installed via WithMiddlewareDeps) into its own Deps map,
// keyed by middleware id, for foldTaskChain/foldResourceChain to pass to
// that middleware's run instead of the host's deps.
func resolveMiddlewareDeps(s *store, lm *lifecycleManager, rt *Runtime, mws []*TaskMiddleware) (map[string]Deps, error) {
	out := make(map[string]Deps, len(mws))
	for _, mw := range mws {
		d, err := resolveDeps(s, lm, rt, mw.nodeDeps())
		if err != nil {
			return nil, err
		}
		out[mw.NodeID()] = d
	}
	return out, nil
}

func taskMiddlewaresFor(s *store, tn taskNode, id string) []*TaskMiddleware {
	specific := tn.middlewareList()
	global := s.globalTaskMiddlewares()
	seen := map[string]bool{}
	var out []*TaskMiddleware
	for _, m := range specific {
		if !seen[m.NodeID()] {
			seen[m.NodeID()] = true
			out = append(out, m)
		}
	}
	for _, m := range global {
		if m.NodeID() == id {
			continue
		}
		if !seen[m.NodeID()] {
			seen[m.NodeID()] = true
			out = append(out, m)
		}
	}
	if tid := tn.tunnelResourceID(); tid != "" {
		if res, ok := s.resources[tid]; ok {
			if tg, ok := res.(tagged); ok {
				if policy, present := TunnelPolicyTag.Extract(tg.tagUsages()); present && len(policy.Client) > 0 {
					out = filterMiddlewareWhitelist(out, policy.Client)
				}
			}
		}
	}
	return out
}

// filterMiddlewareWhitelist keeps only the middlewares named in whitelist,
// for a tunneled task whose tunnel resource carries a TunnelPolicy
// restricting which local middlewares still wrap the call (the rest are
// assumed already applied on the remote side).
func filterMiddlewareWhitelist(mws []*TaskMiddleware, whitelist []string) []*TaskMiddleware {
	allowed := make(map[string]bool, len(whitelist))
	for _, id := range whitelist {
		allowed[id] = true
	}
	out := make([]*TaskMiddleware, 0, len(mws))
	for _, m := range mws {
		if allowed[m.NodeID()] {
			out = append(out, m)
		}
	}
	return out
}

// runTaskByID executes the already-built chain for taskID and returns the
// chain's result and error as they are, without wrapping.
func (rt *Runtime) runTaskByID(ctx context.Context, taskID string, input any) (any, error) {
	entry, ok := rt.tasks[taskID]
	if !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("unknown task %q", taskID)}
	}
	if entry.node.isPhantom() && !entry.node.isTunneled() {
		return nil, &ConfigError{Reason: fmt.Sprintf("task %q is phantom and cannot be run", taskID)}
	}
	execCtx := newAsyncExecContext(ctx, rt)
	out, err := entry.chain(execCtx, input)
	if rt.journalPool != nil {
		rt.journalPool.release(execCtx.journal)
	}
	return out, err
}
