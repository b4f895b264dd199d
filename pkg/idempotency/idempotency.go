// Package idempotency reports, after a collection run, which requests
// produced byte-identical wire requests — a smoke-test signal that a
// write endpoint got dispatched more than once with the exact same
// payload, usually by accident (a retry loop, a copy-pasted folder, a
// data-driven row that didn't vary).
//
// This never alters ExecuteCollection's own guarantees or ordering; it
// is a read-only pass over the ExecutionResults it already produced.
package idempotency

import (
	"github.com/mitchellh/hashstructure/v2"

	"github.com/blackcoderx/harrier/pkg/prepare"
	"github.com/blackcoderx/harrier/pkg/result"
)

// hashable is the subset of a WireRequest that determines whether two
// dispatches are "the same call": method, URL, headers, and body. Timeout
// is deliberately excluded — it doesn't change what was sent over the
// wire.
type hashable struct {
	Method  string
	URL     string
	Headers []prepare.WireHeader
	Body    string
}

// Duplicate names one set of requests that hashed identically.
type Duplicate struct {
	Hash     uint64
	Requests []string // ExecutionResult.RequestRef, in the order they ran
}

// Report is the output of Check.
type Report struct {
	TotalChecked int
	Duplicates   []Duplicate
}

// Check groups results by their wire request hash and returns every group
// with more than one member. Results with no Wire (failed before
// preparation produced one) are skipped — there is nothing to hash.
func Check(results []*result.ExecutionResult) (*Report, error) {
	order := make([]uint64, 0, len(results))
	groups := make(map[uint64][]string)
	checked := 0

	for _, r := range results {
		if r.Wire == nil {
			continue
		}
		checked++
		h, err := hashstructure.Hash(hashable{
			Method:  r.Wire.Method(),
			URL:     r.Wire.RequestURL(),
			Headers: r.Wire.Headers,
			Body:    string(r.Wire.Body),
		}, hashstructure.FormatV2, nil)
		if err != nil {
			return nil, err
		}
		if _, seen := groups[h]; !seen {
			order = append(order, h)
		}
		groups[h] = append(groups[h], r.RequestRef)
	}

	report := &Report{TotalChecked: checked}
	for _, h := range order {
		if refs := groups[h]; len(refs) > 1 {
			report.Duplicates = append(report.Duplicates, Duplicate{Hash: h, Requests: refs})
		}
	}
	return report, nil
}
