package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/result"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// executeParallel is the parallel mode: the request list is already
// flattened (folder scopes baked into each node's ancestors).
// An errgroup bounds concurrency at opts.MaxParallelism and carries
// context cancellation to every in-flight worker on the first
// StopOnError failure; each worker body runs under a conc panics.Catcher
// so a panicking hook turns into a failed ExecutionResult instead of
// taking the whole run down. Each worker gets a snapshot-plus-fresh-
// runtime clone of rc rather than the shared instance — writes never
// cross workers (the documented chained-variable trade-off). Result order
// is completion order, not tree order; every result carries StartedAt so
// callers can re-sort.
func (e *Executor) executeParallel(ctx context.Context, nodes []flatNode, collectionAuth *collection.Auth, rc *runctx.Context, opts Options) *result.CollectionExecutionResult {
	start := time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	var (
		mu      sync.Mutex
		stopped bool
		results []*result.ExecutionResult
	)
	record := func(r *result.ExecutionResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		if !r.Success && opts.StopOnError && !stopped {
			stopped = true
			cancel()
		}
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(opts.MaxParallelism)

	for _, n := range nodes {
		n := n
		g.Go(func() error {
			var catcher panics.Catcher
			catcher.Try(func() {
				record(e.dispatchOne(gctx, n, collectionAuth, rc, opts, limiter))
			})
			if recovered := catcher.Recovered(); recovered != nil {
				record(&result.ExecutionResult{
					RequestRef: n.req.Name,
					Success:    false,
					Error:      fmt.Sprintf("executor: %s: panic: %v", n.req.Name, recovered.Value),
					ErrorKind:  result.ErrorHook,
					StartedAt:  time.Now(),
				})
			}
			// Never fail the errgroup itself: StopOnError cancellation
			// is driven explicitly via cancel(), not by returning errors,
			// so already-enqueued workers still get a recorded result
			// instead of being dropped by errgroup's own first-error exit.
			return nil
		})
	}
	_ = g.Wait()

	out := result.NewCollectionExecutionResult(results)
	out.StoppedEarly = stopped
	out.TotalTimeMS = time.Since(start).Milliseconds()
	return out
}

// dispatchOne runs one flattened node's pipeline, honoring cancellation
// and the optional rate limiter before doing any work; a pending dispatch
// aborts immediately once cancellation trips.
func (e *Executor) dispatchOne(ctx context.Context, n flatNode, collectionAuth *collection.Auth, rc *runctx.Context, opts Options, limiter *rate.Limiter) *result.ExecutionResult {
	select {
	case <-ctx.Done():
		return &result.ExecutionResult{
			RequestRef: n.req.Name,
			Success:    false,
			Error:      "executor: " + n.req.Name + ": cancelled before dispatch",
			ErrorKind:  result.ErrorCancelled,
			StartedAt:  time.Now(),
		}
	default:
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return &result.ExecutionResult{
				RequestRef: n.req.Name,
				Success:    false,
				Error:      "executor: " + n.req.Name + ": cancelled: " + err.Error(),
				ErrorKind:  result.ErrorCancelled,
				StartedAt:  time.Now(),
			}
		}
	}

	// Folder scopes are baked into the worker's own clone here, at
	// flatten-granularity: the shared rc never sees a folder push, so it
	// never has to be made concurrency-safe for traversal.
	workerCtx := rc.CloneWithFreshRuntime()
	for _, f := range n.ancestors {
		workerCtx.PushFolder(variableMap(f.Variables), disabledMap(f.Variables))
	}
	return e.ExecuteRequest(ctx, n.req, n.ancestors, collectionAuth, workerCtx, nil, opts)
}
