package executor

import (
	"time"

	"github.com/blackcoderx/harrier/pkg/dispatch"
	"github.com/blackcoderx/harrier/pkg/hooks"
)

// Options configures one ExecuteRequest/ExecuteFolder/ExecuteCollection
// call. Construct via DefaultOptions. The zero value Options{} is
// NOT equivalent to DefaultOptions(): Options.normalized only fills in
// MaxRedirects, MaxParallelism and Hooks, whose zero values (0, 0, nil)
// can be told apart from an explicit choice. VerifyTLS and
// FollowRedirects are plain bools, so a caller building Options{} by hand
// gets false/false (TLS verification off, redirects not followed) rather
// than the intended true/true; there is no way to fill those in after the
// fact without also overriding a caller's deliberate "false". Always
// start from DefaultOptions() and override individual fields instead of
// composing an Options literal from scratch.
type Options struct {
	TimeoutMS       int
	FollowRedirects bool
	MaxRedirects    int
	VerifyTLS       bool
	Parallel        bool
	MaxParallelism  int
	StopOnError     bool
	StrictVariables bool
	StrictHooks     bool

	// RatePerSecond throttles dispatch rate in both sequential and
	// parallel modes without changing either mode's ordering guarantee.
	// 0 means unbounded.
	RatePerSecond float64

	Hooks hooks.Hook
}

// DefaultOptions is the canonical starting point for callers.
func DefaultOptions() Options {
	return Options{
		TimeoutMS:       30000,
		FollowRedirects: true,
		MaxRedirects:    10,
		VerifyTLS:       true,
		Parallel:        false,
		MaxParallelism:  8,
		StopOnError:     false,
		StrictVariables: false,
		StrictHooks:     false,
	}
}

// maxParallelSoftCap bounds a parallel run whose caller set no explicit
// limit.
const maxParallelSoftCap = 64

func (o Options) normalized() Options {
	out := o
	if out.MaxRedirects <= 0 {
		out.MaxRedirects = 10
	}
	if out.Parallel && out.MaxParallelism <= 0 {
		out.MaxParallelism = maxParallelSoftCap
	}
	if out.MaxParallelism <= 0 {
		out.MaxParallelism = 1
	}
	if out.Hooks == nil {
		out.Hooks = hooks.NoopHook{}
	}
	return out
}

func (o Options) dispatchOptions() dispatch.Options {
	d := dispatch.DefaultOptions()
	if o.TimeoutMS > 0 {
		d.Timeout = time.Duration(o.TimeoutMS) * time.Millisecond
	}
	d.FollowRedirects = o.FollowRedirects
	d.MaxRedirects = o.MaxRedirects
	d.VerifyTLS = o.VerifyTLS
	return d
}
