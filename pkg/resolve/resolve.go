// Package resolve implements the template and variable resolver:
// `{{name}}` and path-form `:name` expansion over a layered runctx.Context,
// dynamic built-ins, precedence, and cycle/depth protection.
package resolve

import (
	"regexp"
	"strings"

	"github.com/blackcoderx/harrier/pkg/runctx"
)

// UndefinedPolicy selects what happens when a referenced variable has no
// value anywhere in scope.
type UndefinedPolicy int

const (
	// Lenient leaves the literal template in place and records the name
	// in Diagnostics. This is the default during preparation, matching
	// Postman's own tolerant behavior.
	Lenient UndefinedPolicy = iota
	// Strict fails resolution with Error{Kind: KindUndefined}.
	Strict
)

// maxVisits bounds how many times a single key may be substituted within
// one Resolve call before it is treated as a cycle.
const maxVisits = 10

// Resolver expands templates against a runctx.Context under a fixed
// undefined-reference policy.
type Resolver struct {
	Policy UndefinedPolicy
}

// New returns a Resolver with the given undefined-reference policy.
func New(policy UndefinedPolicy) *Resolver {
	return &Resolver{Policy: policy}
}

var curlyPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
var pathVarPattern = regexp.MustCompile(`(^|[/?=&]):([A-Za-z_][A-Za-z0-9_]*)`)

// Resolve expands tmpl to a fixed point against ctx, returning the
// resolved string and the names of any undefined references encountered
// under the Lenient policy (always empty under Strict, since the first
// one aborts resolution).
func (r *Resolver) Resolve(tmpl string, ctx *runctx.Context) (string, []string, error) {
	current := tmpl
	visits := map[string]int{}
	var diagnostics []string
	seenDiag := map[string]bool{}

	for {
		next, substitutions, err := r.expandOnce(current, ctx, visits, &diagnostics, seenDiag)
		if err != nil {
			return "", diagnostics, err
		}
		if substitutions == 0 {
			return next, diagnostics, nil
		}
		current = next
	}
}

// expandOnce performs a single left-to-right scan of s, replacing every
// `{{name}}` and boundary-qualified `:name` reference it finds. It returns
// the substitution count so the caller can distinguish "nothing left to
// expand" from "expanded to literally the same text" (the latter must
// still count toward the cycle guard).
func (r *Resolver) expandOnce(s string, ctx *runctx.Context, visits map[string]int, diagnostics *[]string, seenDiag map[string]bool) (string, int, error) {
	count := 0
	var resolveErr error

	out := curlyPattern.ReplaceAllStringFunc(s, func(match string) string {
		if resolveErr != nil {
			return match
		}
		name := strings.TrimSpace(curlyPattern.FindStringSubmatch(match)[1])

		if gen, ok := builtins[name]; ok {
			count++
			return gen()
		}

		val, ok := ctx.Get(name)
		if !ok {
			if r.Policy == Strict {
				resolveErr = &Error{Kind: KindUndefined, Name: name}
				return match
			}
			if !seenDiag[name] {
				seenDiag[name] = true
				*diagnostics = append(*diagnostics, name)
			}
			return match
		}

		visits[name]++
		if visits[name] > maxVisits {
			resolveErr = &Error{Kind: KindCycleOrDepth, Name: name}
			return match
		}
		count++
		return val
	})
	if resolveErr != nil {
		return "", 0, resolveErr
	}

	out = pathVarPattern.ReplaceAllStringFunc(out, func(match string) string {
		if resolveErr != nil {
			return match
		}
		sub := pathVarPattern.FindStringSubmatch(match)
		boundary, name := sub[1], sub[2]

		val, ok := ctx.Get(name)
		if !ok {
			if r.Policy == Strict {
				resolveErr = &Error{Kind: KindUndefined, Name: name}
				return match
			}
			if !seenDiag[name] {
				seenDiag[name] = true
				*diagnostics = append(*diagnostics, name)
			}
			return match
		}

		visits[name]++
		if visits[name] > maxVisits {
			resolveErr = &Error{Kind: KindCycleOrDepth, Name: name}
			return match
		}
		count++
		return boundary + val
	})
	if resolveErr != nil {
		return "", 0, resolveErr
	}

	return out, count, nil
}
