package resolve

import (
	"regexp"
	"testing"

	"github.com/blackcoderx/harrier/pkg/runctx"
)

func TestResolveSimpleSubstitution(t *testing.T) {
	ctx := runctx.New()
	ctx.Set(runctx.ScopeGlobal, "host", "example.com")
	r := New(Lenient)

	got, diags, err := r.Resolve("https://{{host}}/ping", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/ping" {
		t.Fatalf("got %q", got)
	}
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
}

func TestResolvePrecedenceRuntimeOverGlobal(t *testing.T) {
	ctx := runctx.New()
	ctx.Set(runctx.ScopeGlobal, "env", "prod")
	ctx.Set(runctx.ScopeRuntime, "env", "staging")
	r := New(Lenient)

	got, _, err := r.Resolve("{{env}}", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "staging" {
		t.Fatalf("expected runtime scope to win, got %q", got)
	}
}

func TestResolveNestedIndirection(t *testing.T) {
	ctx := runctx.New()
	ctx.Set(runctx.ScopeGlobal, "a", "{{b}}")
	ctx.Set(runctx.ScopeGlobal, "b", "final")
	r := New(Lenient)

	got, _, err := r.Resolve("{{a}}", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "final" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveLenientUndefinedLeavesLiteral(t *testing.T) {
	ctx := runctx.New()
	r := New(Lenient)

	got, diags, err := r.Resolve("{{missing}}", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "{{missing}}" {
		t.Fatalf("expected literal left in place, got %q", got)
	}
	if len(diags) != 1 || diags[0] != "missing" {
		t.Fatalf("expected diagnostic for missing, got %v", diags)
	}
}

func TestResolveStrictUndefinedErrors(t *testing.T) {
	ctx := runctx.New()
	r := New(Strict)

	_, _, err := r.Resolve("{{missing}}", ctx)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindUndefined {
		t.Fatalf("expected undefined error, got %v", err)
	}
}

func TestResolveCycleDetected(t *testing.T) {
	ctx := runctx.New()
	ctx.Set(runctx.ScopeGlobal, "a", "{{b}}")
	ctx.Set(runctx.ScopeGlobal, "b", "{{a}}")
	r := New(Lenient)

	_, _, err := r.Resolve("{{a}}", ctx)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindCycleOrDepth {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestResolveDisabledEntrySkipped(t *testing.T) {
	ctx := runctx.New()
	ctx.Set(runctx.ScopeRuntime, "env", "staging")
	ctx.SetDisabled(runctx.ScopeRuntime, "env", true)
	ctx.Set(runctx.ScopeGlobal, "env", "prod")
	r := New(Lenient)

	got, _, err := r.Resolve("{{env}}", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "prod" {
		t.Fatalf("expected disabled runtime entry skipped in favor of global, got %q", got)
	}
}

func TestResolvePathVarBoundaryPreserved(t *testing.T) {
	ctx := runctx.New()
	ctx.Set(runctx.ScopeGlobal, "id", "42")
	r := New(Lenient)

	got, _, err := r.Resolve("/users/:id/orders", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/users/42/orders" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveBuiltinRandomIntRange(t *testing.T) {
	ctx := runctx.New()
	r := New(Lenient)
	intPattern := regexp.MustCompile(`^(\d{1,3}|1000)$`)

	got, _, err := r.Resolve("{{$randomInt}}", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !intPattern.MatchString(got) {
		t.Fatalf("expected integer string in 0..1000, got %q", got)
	}
}

func TestResolveBuiltinGuidReevaluatesEachReference(t *testing.T) {
	ctx := runctx.New()
	r := New(Lenient)

	got, _, err := r.Resolve("{{$guid}}-{{$guid}}", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	halves := regexp.MustCompile(`^(.+)-(.+)$`).FindStringSubmatch(got)
	if halves == nil || halves[1] == halves[2] {
		t.Fatalf("expected two distinct guids, got %q", got)
	}
}

func TestResolveIdempotent(t *testing.T) {
	ctx := runctx.New()
	ctx.Set(runctx.ScopeGlobal, "host", "example.com")
	r := New(Lenient)

	first, _, err := r.Resolve("https://{{host}}/x", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := r.Resolve(first, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("resolution not idempotent: %q vs %q", first, second)
	}
}
