// Package result implements the result model: the per-request
// ExecutionResult and the aggregate CollectionExecutionResult, plus the
// error taxonomy each ExecutionResult's ErrorKind is drawn from.
//
// No error unwinds out of pkg/executor.ExecuteRequest; every failure from
// pkg/resolve, pkg/auth, pkg/prepare, or pkg/dispatch is captured here
// instead.
package result

import (
	"time"

	"github.com/blackcoderx/harrier/pkg/auth"
	"github.com/blackcoderx/harrier/pkg/dispatch"
	"github.com/blackcoderx/harrier/pkg/prepare"
	"github.com/blackcoderx/harrier/pkg/resolve"
)

// ErrorKind names the originating subsystem of a failed ExecutionResult,
// so a human-readable message can always name both the request and the
// subsystem that failed it.
type ErrorKind string

const (
	ErrorUndefinedVariable ErrorKind = "undefined_variable"
	ErrorCycleOrDepth      ErrorKind = "cycle_or_depth"
	ErrorAuthMissingParam  ErrorKind = "auth_missing_param"
	ErrorAuthUnsupported   ErrorKind = "auth_unsupported"
	ErrorBodyEncoding      ErrorKind = "body_encoding"
	ErrorTimeout           ErrorKind = "timeout"
	ErrorConnectionRefused ErrorKind = "connection_refused"
	ErrorDNSFailure        ErrorKind = "dns_failure"
	ErrorTLSFailure        ErrorKind = "tls_failure"
	ErrorTooManyRedirects  ErrorKind = "too_many_redirects"
	ErrorProtocol          ErrorKind = "protocol_error"
	ErrorCancelled         ErrorKind = "cancelled"
	ErrorHook              ErrorKind = "hook_error"
)

// ExecutionResult is produced for every attempted Request, including
// unresolvable-variable and transport errors.
type ExecutionResult struct {
	RequestRef  string
	Success     bool
	Response    *dispatch.Response
	Wire        *prepare.WireRequest
	Error       string
	ErrorKind   ErrorKind
	Diagnostics []string
	DurationMS  int64
	StartedAt   time.Time
}

// Failf builds a failed ExecutionResult, naming both the request and the
// originating subsystem in the message.
func Failf(requestRef string, kind ErrorKind, subsystem string, startedAt time.Time, err error) *ExecutionResult {
	return &ExecutionResult{
		RequestRef: requestRef,
		Success:    false,
		Error:      subsystem + ": " + requestRef + ": " + err.Error(),
		ErrorKind:  kind,
		DurationMS: time.Since(startedAt).Milliseconds(),
		StartedAt:  startedAt,
	}
}

// ClassifyPrepareError maps a pkg/resolve/pkg/auth/pkg/prepare error into
// its ErrorKind and originating-subsystem label.
func ClassifyPrepareError(err error) (ErrorKind, string) {
	switch e := err.(type) {
	case *resolve.Error:
		if e.Kind == resolve.KindCycleOrDepth {
			return ErrorCycleOrDepth, "variable resolution"
		}
		return ErrorUndefinedVariable, "variable resolution"
	case *auth.ConfigError:
		return ErrorAuthMissingParam, "auth"
	case *auth.UnsupportedError:
		return ErrorAuthUnsupported, "auth"
	case *prepare.BodyEncodingError:
		return ErrorBodyEncoding, "body encoding"
	default:
		return ErrorBodyEncoding, "prepare"
	}
}

// ClassifyTransportError maps a pkg/dispatch.TransportError into its
// ErrorKind.
func ClassifyTransportError(err error) ErrorKind {
	te, ok := err.(*dispatch.TransportError)
	if !ok {
		return ErrorProtocol
	}
	switch te.Kind {
	case dispatch.KindTimeout:
		return ErrorTimeout
	case dispatch.KindConnectionRefused:
		return ErrorConnectionRefused
	case dispatch.KindDNSFailure:
		return ErrorDNSFailure
	case dispatch.KindTLSFailure:
		return ErrorTLSFailure
	case dispatch.KindTooManyRedirects:
		return ErrorTooManyRedirects
	case dispatch.KindCancelled:
		return ErrorCancelled
	default:
		return ErrorProtocol
	}
}

// CollectionExecutionResult aggregates the ExecutionResults of one
// ExecuteFolder/ExecuteCollection run.
type CollectionExecutionResult struct {
	Results        []*ExecutionResult
	TotalRequests  int
	Successful     int
	Failed         int
	TotalTimeMS    int64
	StoppedEarly   bool
}

// NewCollectionExecutionResult tallies Successful/Failed/TotalRequests
// from results; callers set StoppedEarly and TotalTimeMS themselves since
// those depend on information (wall-clock span, early exit) the tally
// alone can't recover.
func NewCollectionExecutionResult(results []*ExecutionResult) *CollectionExecutionResult {
	out := &CollectionExecutionResult{Results: results, TotalRequests: len(results)}
	for _, r := range results {
		if r.Success {
			out.Successful++
		} else {
			out.Failed++
		}
	}
	return out
}
