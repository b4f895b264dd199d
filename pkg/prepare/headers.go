package prepare

import (
	"strings"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/resolve"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// buildHeaders clones non-reserved, non-disabled headers, applies
// HeaderSubstitutions (case-insensitive match, replace value) then
// HeaderExtensions (overwrite by key, else append), resolves each value,
// and drops entries whose key or resolved value is empty.
func buildHeaders(src []collection.Header, ext *Extensions, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics) ([]WireHeader, error) {
	var out []WireHeader

	for _, h := range src {
		if h.Disabled || isReservedHeader(h.Key) {
			continue
		}
		out = append(out, WireHeader{Key: h.Key, Value: h.Value})
	}

	if ext != nil {
		for key, value := range ext.HeaderSubstitutions {
			for i := range out {
				if strings.EqualFold(out[i].Key, key) {
					out[i].Value = value
				}
			}
		}

		for _, key := range sortedKeys(ext.HeaderExtensions) {
			value := ext.HeaderExtensions[key]
			overwritten := false
			for i := range out {
				if strings.EqualFold(out[i].Key, key) {
					out[i].Value = value
					overwritten = true
				}
			}
			if !overwritten {
				out = append(out, WireHeader{Key: key, Value: value})
			}
		}
	}

	final := make([]WireHeader, 0, len(out))
	for _, h := range out {
		resolvedKey, diags, err := resolver.Resolve(h.Key, ctx)
		if err != nil {
			return nil, err
		}
		diag.add(diags)
		resolvedValue, diags, err := resolver.Resolve(h.Value, ctx)
		if err != nil {
			return nil, err
		}
		diag.add(diags)
		if resolvedKey == "" || resolvedValue == "" {
			continue
		}
		final = append(final, WireHeader{Key: resolvedKey, Value: resolvedValue})
	}

	return final, nil
}
