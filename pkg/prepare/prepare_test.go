package prepare

import (
	"strings"
	"testing"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/resolve"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

func baseRequest() *collection.Request {
	return &collection.Request{
		Name:   "get-thing",
		Method: "GET",
		URL: collection.URL{
			Protocol: "https",
			Host:     []string{"api", "example", "com"},
			Path:     []string{"things", ":id"},
			Query: []collection.QueryParam{
				{Key: "verbose", Value: "true"},
			},
		},
		Headers: []collection.Header{
			{Key: "X-A", Value: "one"},
		},
	}
}

func newTestResolver() *resolve.Resolver { return resolve.New(resolve.Lenient) }

func TestPrepareRendersURLWithPathVar(t *testing.T) {
	req := baseRequest()
	req.URL.Path[1] = ":id"
	ctx := runctx.New()
	ctx.Set(runctx.ScopeGlobal, "id", "42")

	res, err := Prepare(req, nil, nil, ctx, nil, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Wire.URL, "/things/42") {
		t.Fatalf("expected path var resolved, got %q", res.Wire.URL)
	}
	if !strings.Contains(res.Wire.URL, "verbose=true") {
		t.Fatalf("expected query preserved, got %q", res.Wire.URL)
	}
}

func TestPrepareHeaderExtensionOverwritesSubstitution(t *testing.T) {
	req := baseRequest()
	ctx := runctx.New()
	ext := &Extensions{
		HeaderSubstitutions: map[string]string{"X-A": "two"},
		HeaderExtensions:    map[string]string{"X-A": "three"},
	}

	res, err := Prepare(req, nil, nil, ctx, ext, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got string
	for _, h := range res.Wire.Headers {
		if h.Key == "X-A" {
			got = h.Value
		}
	}
	if got != "three" {
		t.Fatalf("expected extension to win over substitution, got %q", got)
	}
}

func TestPrepareDisabledQueryParamOmitted(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	req.URL.Query = append(req.URL.Query, collection.QueryParam{Key: "debug", Value: "1", Disabled: true})
	ctx := runctx.New()

	res, err := Prepare(req, nil, nil, ctx, nil, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.Wire.URL, "debug") {
		t.Fatalf("expected disabled query param omitted, got %q", res.Wire.URL)
	}
}

func TestPrepareReservedHeaderNeverFromSource(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	req.Headers = append(req.Headers, collection.Header{Key: "Host", Value: "evil.example"})
	ctx := runctx.New()

	res, err := Prepare(req, nil, nil, ctx, nil, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, h := range res.Wire.Headers {
		if strings.EqualFold(h.Key, "Host") {
			t.Fatalf("expected Host header never taken from source, got %+v", res.Wire.Headers)
		}
	}
}

func TestPrepareRawJSONBodySubstitution(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	req.Body = &collection.Body{Mode: collection.BodyRaw, Raw: `{"name":"old","age":1}`}
	ctx := runctx.New()
	ext := &Extensions{
		BodySubstitutions: map[string]string{"name": "new"},
		BodyExtensions:    map[string]string{"active": "true"},
	}

	res, err := Prepare(req, nil, nil, ctx, ext, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := string(res.Wire.Body)
	if !strings.Contains(body, `"name":"new"`) {
		t.Fatalf("expected substituted name, got %q", body)
	}
	if !strings.Contains(body, `"active":true`) {
		t.Fatalf("expected extension merged at root, got %q", body)
	}
}

func TestPrepareNonJSONRawBodyIgnoresExtensionsWithDiagnostic(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	req.Body = &collection.Body{Mode: collection.BodyRaw, Raw: "plain text {{x}}"}
	ctx := runctx.New()
	ctx.Set(runctx.ScopeGlobal, "x", "resolved")
	ext := &Extensions{BodyExtensions: map[string]string{"ignored": "yes"}}

	res, err := Prepare(req, nil, nil, ctx, ext, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Wire.Body) != "plain text resolved" {
		t.Fatalf("expected resolved raw text, got %q", res.Wire.Body)
	}
	if len(res.Notices) == 0 {
		t.Fatalf("expected a diagnostic noting extensions were ignored")
	}
}

func TestPrepareURLEncodedBody(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	req.Body = &collection.Body{
		Mode: collection.BodyURLEncoded,
		URLEncoded: []collection.KeyValue{
			{Key: "a", Value: "1"},
			{Key: "b", Value: "2", Disabled: true},
		},
	}
	ctx := runctx.New()

	res, err := Prepare(req, nil, nil, ctx, nil, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Wire.Body) != "a=1" {
		t.Fatalf("expected disabled entry dropped, got %q", res.Wire.Body)
	}
	if !hasHeader(res.Wire.Headers, "Content-Type") {
		t.Fatalf("expected Content-Type header set")
	}
}

func TestPrepareFormDataBodyIsRealMultipart(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	req.Body = &collection.Body{
		Mode: collection.BodyFormData,
		FormData: []collection.KeyValue{
			{Key: "a", Value: "1"},
			{Key: "b", Value: "2", Disabled: true},
		},
	}
	ctx := runctx.New()

	res, err := Prepare(req, nil, nil, ctx, nil, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var contentType string
	for _, h := range res.Wire.Headers {
		if h.Key == "Content-Type" {
			contentType = h.Value
		}
	}
	if !strings.HasPrefix(contentType, "multipart/form-data; boundary=") {
		t.Fatalf("expected multipart content type with boundary, got %q", contentType)
	}
	boundary := strings.TrimPrefix(contentType, "multipart/form-data; boundary=")
	if !strings.Contains(string(res.Wire.Body), boundary) {
		t.Fatalf("expected body to reference the declared boundary, got %q", res.Wire.Body)
	}
	if strings.Contains(string(res.Wire.Body), "\"b\"") {
		t.Fatalf("expected disabled entry dropped, got %q", res.Wire.Body)
	}
	if !strings.Contains(string(res.Wire.Body), "\"a\"") {
		t.Fatalf("expected enabled entry present, got %q", res.Wire.Body)
	}
}

func TestPrepareHeaderSubstitutionNeverAddsNewHeader(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	ctx := runctx.New()
	ext := &Extensions{HeaderSubstitutions: map[string]string{"X-New": "ignored"}}

	res, err := Prepare(req, nil, nil, ctx, ext, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, h := range res.Wire.Headers {
		if h.Key == "X-New" {
			t.Fatalf("expected substitution-only key to be ignored, got header %+v", h)
		}
	}
}

func TestPrepareAppliesEffectiveAuth(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	req.Auth = &collection.Auth{Type: collection.AuthBearer, Parameters: map[string]string{"token": "abc"}}
	ctx := runctx.New()

	res, err := Prepare(req, nil, nil, ctx, nil, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got string
	for _, h := range res.Wire.Headers {
		if h.Key == "Authorization" {
			got = h.Value
		}
	}
	if got != "Bearer abc" {
		t.Fatalf("expected bearer auth applied, got %q", got)
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	req := baseRequest()
	req.URL.Path = nil
	ctx := runctx.New()

	first, err := Prepare(req, nil, nil, ctx, nil, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Prepare(req, nil, nil, ctx, nil, newTestResolver())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Wire.URL != second.Wire.URL {
		t.Fatalf("expected idempotent URL, got %q vs %q", first.Wire.URL, second.Wire.URL)
	}
}
