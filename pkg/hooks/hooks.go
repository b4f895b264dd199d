// Package hooks defines the external Hook collaborator: a pluggable,
// optional side-effect callback invoked before a request is dispatched
// (prerequest) and after its response arrives (test), with read/write
// access to the runtime variable scope. Script language evaluation
// itself is out of scope for the core; this package only defines the
// interface pkg/executor calls through, plus one concrete, opt-in
// implementation (YaegiHook) in yaegi.go.
package hooks

import (
	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/dispatch"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// Hook is the collaborator a caller supplies to run prerequest/test
// scripts. RunEvents hands each matching Event to the hook exactly once,
// so an implementation only ever evaluates the one event it was given,
// never req.Events as a whole. Implementations run on the worker
// executing the request they were invoked for.
type Hook interface {
	OnPreRequest(req *collection.Request, ev collection.Event, ctx *runctx.Context) error
	OnTest(req *collection.Request, ev collection.Event, resp *dispatch.Response, ctx *runctx.Context) error
}

// Error wraps a failure from a hook: recorded as a diagnostic unless
// StrictHooks is set, in which case it fails the request like any other
// error kind.
type Error struct {
	Listen collection.EventListen
	Cause  error
}

func (e *Error) Error() string {
	return "hook (" + string(e.Listen) + "): " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// NoopHook implements Hook by doing nothing; it is the default when a
// caller supplies no hooks at all, so pkg/executor never needs a nil
// check on the Hook field of its options.
type NoopHook struct{}

func (NoopHook) OnPreRequest(*collection.Request, collection.Event, *runctx.Context) error {
	return nil
}

func (NoopHook) OnTest(*collection.Request, collection.Event, *dispatch.Response, *runctx.Context) error {
	return nil
}

// RunEvents runs every Event of the given listen kind attached to req
// through hook, exactly once each, in source order. Scripts themselves
// are opaque text; it is hook's job to interpret the event it receives.
// This helper exists so pkg/executor has one call site regardless of how
// many prerequest/test events a Request carries.
func RunEvents(req *collection.Request, listen collection.EventListen, hook Hook, ctx *runctx.Context, resp *dispatch.Response) error {
	for _, ev := range req.Events {
		if ev.Listen != listen {
			continue
		}
		var err error
		switch listen {
		case collection.ListenPreRequest:
			err = hook.OnPreRequest(req, ev, ctx)
		case collection.ListenTest:
			err = hook.OnTest(req, ev, resp, ctx)
		}
		if err != nil {
			return &Error{Listen: listen, Cause: err}
		}
	}
	return nil
}
