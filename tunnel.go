package kernel

import "fmt"

// tunnelDepKey is the reserved Dependencies key WithTunnel installs a
// phantom (or mirrored) task's tunnel resource dependency under.
const tunnelDepKey = "kernel.tunnel"

// TunnelMode governs how a tunneled task reconciles its local run body (if
// any) against the tunnel resource's remote-standing call.
type TunnelMode int

const (
	// TunnelRemoteOnly calls only the tunnel resource; it is WithTunnel's
	// default, and with TunnelRemoteFirst one of the two modes a phantom
	// task can use.
	TunnelRemoteOnly TunnelMode = iota
	// TunnelLocalOnly ignores the tunnel resource and always runs the
	// local body (requires a non-phantom task).
	TunnelLocalOnly
	// TunnelMirror runs the local body for the return value, and also
	// calls the tunnel resource for its side effect, journaling (rather
	// than failing the call on) any tunnel error.
	TunnelMirror
	// TunnelRemoteFirst calls the tunnel resource first and falls back to
	// the local body only if the tunnel call errors; a phantom task returns
	// the tunnel error instead.
	TunnelRemoteFirst
)

// Well-known journal keys a tunneled task's invocation populates.
const (
	JournalTunnelCalled = "tunnel.called"
	JournalTunnelError  = "tunnel.error"
)

// TunnelPolicy configures a tunnel resource's interaction with the local
// middleware chain of any task it fulfills.
type TunnelPolicy struct {
	// Client whitelists the ids of local task middlewares that still wrap
	// a tunneled call; any task middleware not named here is skipped,
	// since the remote side is assumed to already apply its own
	// equivalent. A nil/empty Client applies every local middleware
	// unfiltered.
	Client []string
}

// TunnelPolicyTag attaches a TunnelPolicy to a resource meant to serve as
// other tasks' tunnel target. It must be registered (via WithNodes) at
// Run time like any other tag before a resource can carry it.
var TunnelPolicyTag = NewTag[TunnelPolicy]("kernel.tunnelPolicy")

// AdaptTunnel erases a typed remote-call function's input/output types so
// it can be stored as a tunnel resource's produced value and invoked by a
// phantom (or tunneled) task without the pipeline needing to know I/O.
func AdaptTunnel[I, O any](fn func(ctx AsyncExecContext, input I) (O, error)) func(ctx AsyncExecContext, input any) (any, error) {
	return func(ctx AsyncExecContext, input any) (any, error) {
		var zero O
		typed, ok := input.(I)
		if !ok && input != nil {
			return zero, &TaskInputValidationError{TaskID: "kernel.tunnel", Cause: fmt.Errorf("expected %T, got %T", zero, input)}
		}
		return fn(ctx, typed)
	}
}
