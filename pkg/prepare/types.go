// Package prepare implements the request preparer: turning a
// collection.Request plus an ExecutionContext and optional per-call
// Extensions into a deterministic, idempotent wire request. Preparation
// never performs I/O.
package prepare

import (
	"net/textproto"
	"strings"
)

// Extensions carries per-call overrides applied during preparation without
// mutating the source tree. Substitutions replace
// existing entries by key; extensions add or merge.
type Extensions struct {
	URLSubstitutions    map[string]string // host/protocol/port overrides
	HeaderSubstitutions map[string]string
	HeaderExtensions    map[string]string
	ParamSubstitutions  map[string]string
	ParamExtensions     map[string]string
	BodySubstitutions   map[string]string
	BodyExtensions      map[string]string
	AuthSubstitutions   map[string]string

	// TimeoutMS overrides the executor/dispatcher timeout for this call
	// only; nil leaves the configured default in force.
	TimeoutMS *int
}

// reservedHeaders are never taken from the source request; the dispatcher
// (or its underlying transport) owns them.
var reservedHeaders = map[string]bool{
	"host":           true,
	"content-length": true,
}

func isReservedHeader(key string) bool {
	return reservedHeaders[strings.ToLower(key)]
}

// WireRequest is the fully prepared, ready-to-dispatch HTTP call:
// method, URL string, headers, optional body bytes and timeout.
// Header order is preserved for deterministic diagnostics/diffing; lookups
// are case-insensitive per HTTP semantics.
type WireRequest struct {
	WireMethod string
	URL        string
	Headers    []WireHeader
	Body       []byte
	Timeout    *int // milliseconds; nil means "use dispatcher default"

	query []wireQuery
}

// WireHeader is one rendered header, order-preserving.
type WireHeader struct {
	Key   string
	Value string
}

type wireQuery struct {
	Key   string
	Value string
}

// Method implements auth.Target.
func (w *WireRequest) Method() string { return w.WireMethod }

// RequestURL implements auth.Target; it returns the URL as currently
// rendered, including any query parameters added by auth application
// (apikey-in-query, oauth2 access_token-in-query) at the point it is
// called.
func (w *WireRequest) RequestURL() string { return w.URL }

// SetHeader implements auth.Target: case-insensitive overwrite, else
// append.
func (w *WireRequest) SetHeader(key, value string) {
	for i, h := range w.Headers {
		if textproto.CanonicalMIMEHeaderKey(h.Key) == textproto.CanonicalMIMEHeaderKey(key) {
			w.Headers[i].Value = value
			return
		}
	}
	w.Headers = append(w.Headers, WireHeader{Key: key, Value: value})
}

// AddQuery implements auth.Target: appends a query parameter and
// re-renders URL immediately so a subsequent RequestURL() call (e.g. an
// oauth1 signer that runs after an apikey-in-query auth, which cannot
// happen today but is defensive against future composition) sees it.
func (w *WireRequest) AddQuery(key, value string) {
	w.query = append(w.query, wireQuery{Key: key, Value: value})
	w.URL = renderURLWithQuery(w.URL, w.query)
}
