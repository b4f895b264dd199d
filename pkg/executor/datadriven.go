package executor

import (
	"context"
	"time"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/prepare"
	"github.com/blackcoderx/harrier/pkg/result"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// ExecuteRequestWithRows runs req once per row of data, each row written
// into rc's runtime scope (where it stays after the call; a later row
// overwrites only the keys it carries) so `{{user_id}}`-style references
// in req resolve per-row without the caller needing to hand-build one
// Request per row. Row values are written to ScopeRuntime, not
// ScopeRequest: runtime outranks request in lookup precedence, so a row's
// values win even when a key collides with one of req's own declared
// Variables (which ExecuteRequest reseeds into ScopeRequest on every
// call). Rows run sequentially in order; runtime-scope writes from one
// row's test hook are visible to the next, the same chaining rule
// sequential collection runs follow.
func (e *Executor) ExecuteRequestWithRows(ctx context.Context, req *collection.Request, ancestors []*collection.Folder, collectionAuth *collection.Auth, rc *runctx.Context, rows []map[string]string, opts Options) *result.CollectionExecutionResult {
	opts = opts.normalized()
	start := time.Now()

	var results []*result.ExecutionResult
	stoppedEarly := false

	for _, row := range rows {
		for k, v := range row {
			rc.Set(runctx.ScopeRuntime, k, v)
		}

		var ext *prepare.Extensions
		r := e.ExecuteRequest(ctx, req, ancestors, collectionAuth, rc, ext, opts)
		results = append(results, r)
		if !r.Success && opts.StopOnError {
			stoppedEarly = true
			break
		}
	}

	out := result.NewCollectionExecutionResult(results)
	out.StoppedEarly = stoppedEarly
	out.TotalTimeMS = time.Since(start).Milliseconds()
	return out
}
