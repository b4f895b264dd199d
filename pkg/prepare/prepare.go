package prepare

import (
	"github.com/blackcoderx/harrier/pkg/auth"
	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/resolve"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// Result bundles the prepared wire request with the non-fatal diagnostics
// accumulated along the way.
type Result struct {
	Wire      *WireRequest
	Undefined []string
	Notices   []string
}

// Prepare runs the preparation pipeline: clone/substitute/resolve the
// URL, headers and body, resolve and apply the effective auth, and
// render the final wire request. It performs no I/O and is deterministic
// and idempotent for a fixed (req, ancestors, collectionAuth, ctx, ext).
func Prepare(req *collection.Request, ancestors []*collection.Folder, collectionAuth *collection.Auth, ctx *runctx.Context, ext *Extensions, resolver *resolve.Resolver) (*Result, error) {
	diag := &diagnostics{}

	u, err := buildURL(req.URL, ext, resolver, ctx, diag)
	if err != nil {
		return nil, err
	}

	headers, err := buildHeaders(req.Headers, ext, resolver, ctx, diag)
	if err != nil {
		return nil, err
	}

	bodyBytes, contentType, err := buildBody(req.Body, ext, resolver, ctx, diag)
	if err != nil {
		return nil, err
	}
	if contentType != "" && !hasHeader(headers, "Content-Type") {
		headers = append(headers, WireHeader{Key: "Content-Type", Value: contentType})
	}

	wire := &WireRequest{
		WireMethod: req.Method,
		URL:        u.render(),
		Headers:    headers,
		Body:       bodyBytes,
		query:      append([]wireQuery(nil), u.query...),
	}
	if ext != nil && ext.TimeoutMS != nil {
		wire.Timeout = ext.TimeoutMS
	}

	resolution := auth.Resolve(req, ancestors, collectionAuth)
	effectiveAuth := resolution.Auth
	if effectiveAuth != nil && ext != nil && len(ext.AuthSubstitutions) > 0 {
		effectiveAuth = substituteAuthParams(effectiveAuth, ext.AuthSubstitutions)
	}
	if err := auth.Apply(effectiveAuth, resolver, ctx, wire); err != nil {
		return nil, err
	}

	return &Result{Wire: wire, Undefined: diag.Undefined, Notices: diag.Notices}, nil
}

func hasHeader(headers []WireHeader, key string) bool {
	for _, h := range headers {
		if equalFold(h.Key, key) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// substituteAuthParams replaces auth parameter values before variable
// resolution, without mutating the source collection.Auth.
func substituteAuthParams(a *collection.Auth, subs map[string]string) *collection.Auth {
	params := make(map[string]string, len(a.Parameters))
	for k, v := range a.Parameters {
		params[k] = v
	}
	for k, v := range subs {
		params[k] = v
	}
	return &collection.Auth{Type: a.Type, Parameters: params}
}
