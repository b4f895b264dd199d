// Package executor implements the orchestration layer: it composes
// pkg/resolve, pkg/auth, pkg/prepare and pkg/dispatch into
// ExecuteRequest/ExecuteFolder/ExecuteCollection, sequential or
// parallel, with stop-on-error policy and structured failure reporting
// (pkg/result).
package executor

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/dispatch"
	"github.com/blackcoderx/harrier/pkg/hooks"
	"github.com/blackcoderx/harrier/pkg/prepare"
	"github.com/blackcoderx/harrier/pkg/resolve"
	"github.com/blackcoderx/harrier/pkg/result"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// Executor owns the Dispatcher's connection pool and runs requests
// against it. The zero value is not usable; construct
// with New.
type Executor struct {
	dispatcher *dispatch.Dispatcher
}

// New returns an Executor with a fresh Dispatcher connection pool.
func New() *Executor {
	return &Executor{dispatcher: dispatch.New()}
}

// Dispose does nothing: it does not close the Dispatcher's pooled
// connections. It is kept as a seam for callers and future transport
// swaps.
func (e *Executor) Dispose() {}

func resolverFor(opts Options) *resolve.Resolver {
	if opts.StrictVariables {
		return resolve.New(resolve.Strict)
	}
	return resolve.New(resolve.Lenient)
}

// ExecuteRequest runs the full single-request pipeline: prerequest
// hooks, preparation, dispatch, test hooks. No error unwinds out of this
// call; every failure is captured into the returned ExecutionResult.
func (e *Executor) ExecuteRequest(ctx context.Context, req *collection.Request, ancestors []*collection.Folder, collectionAuth *collection.Auth, rc *runctx.Context, ext *prepare.Extensions, opts Options) *result.ExecutionResult {
	opts = opts.normalized()
	startedAt := time.Now()
	resolver := resolverFor(opts)

	seedRequestScope(rc, req)

	var preHookErr error
	if err := hooks.RunEvents(req, collection.ListenPreRequest, opts.Hooks, rc, nil); err != nil {
		if opts.StrictHooks {
			return result.Failf(req.Name, result.ErrorHook, "hook", startedAt, err)
		}
		preHookErr = err
	}

	prepared, err := prepare.Prepare(req, ancestors, collectionAuth, rc, ext, resolver)
	if err != nil {
		kind, subsystem := result.ClassifyPrepareError(err)
		return result.Failf(req.Name, kind, subsystem, startedAt, err)
	}

	if err := emptyHostError(prepared); err != nil {
		return result.Failf(req.Name, result.ErrorBodyEncoding, "prepare", startedAt, err)
	}

	resp, derr := e.dispatcher.Dispatch(ctx, prepared.Wire, opts.dispatchOptions())
	if derr != nil {
		kind := result.ClassifyTransportError(derr)
		r := result.Failf(req.Name, kind, "dispatch", startedAt, derr)
		r.Wire = prepared.Wire
		r.Diagnostics = prepared.Undefined
		if preHookErr != nil {
			r.Diagnostics = append(append([]string(nil), prepared.Undefined...), preHookErr.Error())
		}
		return r
	}

	hookErr := hooks.RunEvents(req, collection.ListenTest, opts.Hooks, rc, resp)
	diagnostics := append([]string(nil), prepared.Undefined...)
	if preHookErr != nil {
		diagnostics = append(diagnostics, preHookErr.Error())
	}
	if hookErr != nil {
		if opts.StrictHooks {
			r := result.Failf(req.Name, result.ErrorHook, "hook", startedAt, hookErr)
			r.Wire = prepared.Wire
			r.Response = resp
			return r
		}
		diagnostics = append(diagnostics, hookErr.Error())
	}

	return &result.ExecutionResult{
		RequestRef:  req.Name,
		Success:     true,
		Response:    resp,
		Wire:        prepared.Wire,
		Diagnostics: diagnostics,
		DurationMS:  time.Since(startedAt).Milliseconds(),
		StartedAt:   startedAt,
	}
}

// emptyHostError guards against dispatching a URL whose host resolved to
// nothing: the failure belongs to preparation, not the transport layer.
// prepare.Prepare already renders the full URL string, so this is a
// post-hoc check rather than a change to pkg/prepare's own contract.
func emptyHostError(p *prepare.Result) error {
	if p == nil || p.Wire == nil {
		return nil
	}
	if hasEmptyHost(p.Wire.RequestURL()) {
		return &prepare.BodyEncodingError{Mode: "url", Reason: "resolved URL has an empty host"}
	}
	return nil
}

func hasEmptyHost(raw string) bool {
	// "://" with nothing (or only a path) after it before the next "/"
	// boundary means the host segment is empty.
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return false
	}
	rest := raw[idx+3:]
	if rest == "" {
		return true
	}
	end := strings.IndexAny(rest, "/?:")
	if end < 0 {
		end = len(rest)
	}
	return end == 0
}

// ExecuteFolder runs every Request under folder, depth-first pre-order,
// sharing rc across the run so runtime writes chain between requests in
// sequential mode. ancestors is folder's own ancestor chain (not
// including folder itself); collectionAuth is the owning Collection's
// auth for inheritance purposes.
func (e *Executor) ExecuteFolder(ctx context.Context, folder *collection.Folder, ancestors []*collection.Folder, collectionAuth *collection.Auth, rc *runctx.Context, opts Options) *result.CollectionExecutionResult {
	opts = opts.normalized()
	if opts.Parallel {
		return e.executeParallel(ctx, flatten(folder.Items, append(append([]*collection.Folder(nil), ancestors...), folder)), collectionAuth, rc, opts)
	}
	return e.executeSequential(ctx, folder.Items, ancestors, folder, collectionAuth, rc, opts)
}

// ExecuteCollection runs every Request in the Collection tree.
func (e *Executor) ExecuteCollection(ctx context.Context, c *collection.Collection, rc *runctx.Context, opts Options) *result.CollectionExecutionResult {
	opts = opts.normalized()
	if opts.Parallel {
		return e.executeParallel(ctx, flatten(c.Items, nil), c.Auth, rc, opts)
	}
	return e.executeSequential(ctx, c.Items, nil, nil, c.Auth, rc, opts)
}

// executeSequential walks items depth-first pre-order, pushing/popping
// folder scopes on rc as it descends/ascends.
// ancestors is the Folder chain above items' own container; self, if
// non-nil, is that container (used only to build each Request's full
// ancestor chain for auth resolution).
func (e *Executor) executeSequential(ctx context.Context, items []collection.Item, ancestors []*collection.Folder, self *collection.Folder, collectionAuth *collection.Auth, rc *runctx.Context, opts Options) *result.CollectionExecutionResult {
	start := time.Now()
	var results []*result.ExecutionResult
	stoppedEarly := false

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	fullAncestors := ancestors
	if self != nil {
		fullAncestors = append(append([]*collection.Folder(nil), ancestors...), self)
	}

	// The chain above items contributes its folder scopes too, so a run
	// started from a nested folder still sees that folder's (and its
	// ancestors') variables exactly as a whole-collection run would.
	for _, f := range fullAncestors {
		rc.PushFolder(variableMap(f.Variables), disabledMap(f.Variables))
	}
	defer func() {
		for range fullAncestors {
			rc.PopFolder()
		}
	}()

	var walk func(items []collection.Item, path []*collection.Folder) bool
	walk = func(items []collection.Item, path []*collection.Folder) bool {
		for _, it := range items {
			select {
			case <-ctx.Done():
				stoppedEarly = true
				return true
			default:
			}
			switch v := it.(type) {
			case *collection.Request:
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						stoppedEarly = true
						return true
					}
				}
				r := e.ExecuteRequest(ctx, v, path, collectionAuth, rc, nil, opts)
				results = append(results, r)
				if !r.Success && opts.StopOnError {
					stoppedEarly = true
					return true
				}
			case *collection.Folder:
				rc.PushFolder(variableMap(v.Variables), disabledMap(v.Variables))
				stop := walk(v.Items, append(path, v))
				rc.PopFolder()
				if stop {
					return true
				}
			}
		}
		return false
	}
	walk(items, fullAncestors)

	out := result.NewCollectionExecutionResult(results)
	out.StoppedEarly = stoppedEarly
	out.TotalTimeMS = time.Since(start).Milliseconds()
	return out
}

// flatNode is one request flattened for parallel dispatch: its own
// ancestor chain is baked in so folder scopes don't need to be pushed
// onto a shared, concurrently-read Context: dispatchOne pushes them onto
// each worker's own cloned Context instead.
type flatNode struct {
	req       *collection.Request
	ancestors []*collection.Folder
}

func flatten(items []collection.Item, ancestors []*collection.Folder) []flatNode {
	var out []flatNode
	var walk func(items []collection.Item, path []*collection.Folder)
	walk = func(items []collection.Item, path []*collection.Folder) {
		for _, it := range items {
			switch v := it.(type) {
			case *collection.Request:
				out = append(out, flatNode{req: v, ancestors: append([]*collection.Folder(nil), path...)})
			case *collection.Folder:
				walk(v.Items, append(path, v))
			}
		}
	}
	walk(items, ancestors)
	return out
}

// seedRequestScope pours a Request's own declared variables and its
// URL's path-variable defaults into ScopeRequest before
// preparation, the way executeSequential already PushFolders a Folder's
// variables. The scope is cleared first: in sequential mode the same
// Context is threaded through every request, and one request's variables
// must not bleed into the next.
func seedRequestScope(rc *runctx.Context, req *collection.Request) {
	rc.ClearScope(runctx.ScopeRequest)
	for _, v := range req.Variables {
		if !v.Enabled {
			continue
		}
		rc.Set(runctx.ScopeRequest, v.Key, v.Value)
	}
	for _, v := range req.URL.PathVars {
		if !v.Enabled {
			continue
		}
		rc.Set(runctx.ScopeRequest, v.Key, v.Value)
	}
}

func variableMap(vars []collection.Variable) map[string]string {
	m := make(map[string]string, len(vars))
	for _, v := range vars {
		m[v.Key] = v.Value
	}
	return m
}

func disabledMap(vars []collection.Variable) map[string]bool {
	m := make(map[string]bool, len(vars))
	for _, v := range vars {
		if !v.Enabled {
			m[v.Key] = true
		}
	}
	return m
}
