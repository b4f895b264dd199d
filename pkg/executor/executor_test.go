package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/dispatch"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// serverURL turns an httptest.Server's address into the Protocol/Host/Port
// triple collection.URL expects; Raw is purely informational and is never
// consulted when rendering (see pkg/prepare/url.go), so tests must build
// requests from these structured fields instead.
func serverURL(t *testing.T, srv *httptest.Server, path ...string) collection.URL {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	host := strings.Split(u.Hostname(), ".")
	return collection.URL{
		Protocol: u.Scheme,
		Host:     host,
		Port:     u.Port(),
		Path:     path,
	}
}

func TestExecuteRequestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	req := &collection.Request{Name: "ping", Method: "GET", URL: serverURL(t, srv)}
	e := New()
	defer e.Dispose()

	r := e.ExecuteRequest(context.Background(), req, nil, nil, runctx.New(), nil, DefaultOptions())
	if !r.Success {
		t.Fatalf("expected success, got error %q (%s)", r.Error, r.ErrorKind)
	}
	if r.Response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", r.Response.StatusCode)
	}
}

func TestExecuteRequestUndefinedHostFails(t *testing.T) {
	req := &collection.Request{
		Name:   "broken",
		Method: "GET",
		URL:    collection.URL{Protocol: "http"},
	}
	e := New()
	defer e.Dispose()

	r := e.ExecuteRequest(context.Background(), req, nil, nil, runctx.New(), nil, DefaultOptions())
	if r.Success {
		t.Fatalf("expected failure for empty host")
	}
}

func TestExecuteCollectionSequentialOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &collection.Collection{
		Items: []collection.Item{
			&collection.Request{Name: "first", Method: "GET", URL: serverURL(t, srv)},
			&collection.Folder{
				Name: "group",
				Items: []collection.Item{
					&collection.Request{Name: "second", Method: "GET", URL: serverURL(t, srv)},
				},
			},
			&collection.Request{Name: "third", Method: "GET", URL: serverURL(t, srv)},
		},
	}

	e := New()
	defer e.Dispose()

	out := e.ExecuteCollection(context.Background(), c, runctx.New(), DefaultOptions())
	if out.TotalRequests != 3 || out.Failed != 0 {
		t.Fatalf("expected 3 successes, got %+v", out)
	}
	order := []string{out.Results[0].RequestRef, out.Results[1].RequestRef, out.Results[2].RequestRef}
	want := []string{"first", "second", "third"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected pre-order %v, got %v", want, order)
		}
	}
}

func TestExecuteCollectionStopOnError(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()

	c := &collection.Collection{
		Items: []collection.Item{
			&collection.Request{Name: "bad", Method: "GET", URL: collection.URL{Protocol: "http"}},
			&collection.Request{Name: "never-runs", Method: "GET", URL: serverURL(t, okSrv)},
		},
	}

	e := New()
	defer e.Dispose()

	opts := DefaultOptions()
	opts.StopOnError = true
	out := e.ExecuteCollection(context.Background(), c, runctx.New(), opts)
	if !out.StoppedEarly {
		t.Fatalf("expected StoppedEarly, got %+v", out)
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected only the failing request to have run, got %d results", len(out.Results))
	}
}

func TestExecuteCollectionParallelRunsEveryRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var items []collection.Item
	for i := 0; i < 6; i++ {
		items = append(items, &collection.Request{Name: "req", Method: "GET", URL: serverURL(t, srv)})
	}
	c := &collection.Collection{Items: items}

	e := New()
	defer e.Dispose()

	opts := DefaultOptions()
	opts.Parallel = true
	opts.MaxParallelism = 3
	out := e.ExecuteCollection(context.Background(), c, runctx.New(), opts)
	if out.TotalRequests != 6 || out.Failed != 0 {
		t.Fatalf("expected 6 successes, got %+v", out)
	}
}

func TestExecuteRequestSeedsItsOwnVariablesAndPathVarDefaults(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := serverURL(t, srv, "widgets", ":id")
	u.PathVars = []collection.Variable{{Key: "id", Value: "7", Enabled: true}}
	u.Query = []collection.QueryParam{{Key: "tag", Value: "{{tag}}"}}
	req := &collection.Request{
		Name:      "get widget",
		Method:    "GET",
		URL:       u,
		Variables: []collection.Variable{{Key: "tag", Value: "blue", Enabled: true}},
	}

	e := New()
	defer e.Dispose()
	r := e.ExecuteRequest(context.Background(), req, nil, nil, runctx.New(), nil, DefaultOptions())
	if !r.Success {
		t.Fatalf("expected success, got error %q (%s)", r.Error, r.ErrorKind)
	}
	if gotPath != "/widgets/7" {
		t.Fatalf("expected URL path-variable default substituted, got %q", gotPath)
	}
	if gotQuery != "tag=blue" {
		t.Fatalf("expected request's own variable substituted, got %q", gotQuery)
	}
}

func TestExecuteFolderVariablesScoped(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	folder := &collection.Folder{
		Name: "widgets",
		Variables: []collection.Variable{
			{Key: "id", Value: "99", Enabled: true},
		},
		Items: []collection.Item{
			&collection.Request{
				Name:   "get widget",
				Method: "GET",
				URL:    serverURL(t, srv, "widgets", ":id"),
			},
		},
	}

	e := New()
	defer e.Dispose()
	out := e.ExecuteFolder(context.Background(), folder, nil, nil, runctx.New(), DefaultOptions())
	if out.Failed != 0 {
		t.Fatalf("expected success, got %+v", out.Results[0])
	}
	if gotPath != "/widgets/99" {
		t.Fatalf("expected folder variable substituted into path, got %q", gotPath)
	}
}

// sessionHook writes session=xyz into the runtime scope from the test
// event of any request that carries one.
type sessionHook struct{}

func (sessionHook) OnPreRequest(*collection.Request, collection.Event, *runctx.Context) error {
	return nil
}

func (sessionHook) OnTest(req *collection.Request, _ collection.Event, _ *dispatch.Response, ctx *runctx.Context) error {
	ctx.Set(runctx.ScopeRuntime, "session", "xyz")
	return nil
}

func chainedCollection(t *testing.T, srv *httptest.Server) *collection.Collection {
	t.Helper()
	first := &collection.Request{
		Name:   "login",
		Method: "GET",
		URL:    serverURL(t, srv, "login"),
		Events: []collection.Event{{Listen: collection.ListenTest, Script: []string{"capture session"}}},
	}
	secondURL := serverURL(t, srv, "me")
	secondURL.Query = []collection.QueryParam{{Key: "s", Value: "{{session}}"}}
	second := &collection.Request{Name: "me", Method: "GET", URL: secondURL}
	return &collection.Collection{Items: []collection.Item{first, second}}
}

func TestSequentialRuntimeWritesChainBetweenRequests(t *testing.T) {
	var gotSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/me" {
			gotSession = r.URL.Query().Get("s")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := New()
	defer e.Dispose()

	opts := DefaultOptions()
	opts.Hooks = sessionHook{}
	out := e.ExecuteCollection(context.Background(), chainedCollection(t, srv), runctx.New(), opts)
	if out.Failed != 0 {
		t.Fatalf("expected clean run, got %+v", out)
	}
	if gotSession != "xyz" {
		t.Fatalf("expected runtime write from login's test hook visible to me, got %q", gotSession)
	}
}

func TestParallelWorkersDoNotShareRuntimeWrites(t *testing.T) {
	var gotSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/me" {
			gotSession = r.URL.Query().Get("s")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := New()
	defer e.Dispose()

	opts := DefaultOptions()
	opts.Hooks = sessionHook{}
	opts.Parallel = true
	opts.MaxParallelism = 2
	out := e.ExecuteCollection(context.Background(), chainedCollection(t, srv), runctx.New(), opts)
	if out.Failed != 0 {
		t.Fatalf("expected clean run (lenient leaves the literal), got %+v", out)
	}
	if gotSession != "{{session}}" {
		t.Fatalf("expected literal template under parallel isolation, got %q", gotSession)
	}
}
