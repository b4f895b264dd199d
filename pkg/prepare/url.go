package prepare

import (
	"net/url"
	"strings"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/resolve"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// resolvedURL is the intermediate, fully-substituted-and-resolved form of
// a request's target before final rendering.
type resolvedURL struct {
	protocol string
	host     []string
	port     string
	path     []string
	query    []wireQuery
}

// buildURL clones the source URL, applies url_substitutions to
// host/protocol/port, resolves templates in every path segment and query
// entry, drops disabled query entries, replaces query values by key from
// param_substitutions, and appends ParamExtensions.
func buildURL(src collection.URL, ext *Extensions, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics) (resolvedURL, error) {
	protocol := src.Protocol
	host := append([]string(nil), src.Host...)
	port := src.Port

	if ext != nil {
		if v, ok := ext.URLSubstitutions["protocol"]; ok {
			protocol = v
		}
		if v, ok := ext.URLSubstitutions["host"]; ok {
			host = strings.Split(v, ".")
		}
		if v, ok := ext.URLSubstitutions["port"]; ok {
			port = v
		}
	}

	// Protocol, host segments and port may themselves carry templates
	// ({{baseUrl}} in host position is the most common Postman shape).
	var err error
	if protocol, err = resolveInto(protocol, resolver, ctx, diag); err != nil {
		return resolvedURL{}, err
	}
	for i, seg := range host {
		if host[i], err = resolveInto(seg, resolver, ctx, diag); err != nil {
			return resolvedURL{}, err
		}
	}
	if port, err = resolveInto(port, resolver, ctx, diag); err != nil {
		return resolvedURL{}, err
	}

	path := make([]string, 0, len(src.Path))
	for _, segment := range src.Path {
		resolved, diags, err := resolver.Resolve(segment, ctx)
		if err != nil {
			return resolvedURL{}, err
		}
		diag.add(diags)
		path = append(path, resolved)
	}

	// param_substitutions replace existing query entries by key before
	// resolution; param_extensions are appended afterward.
	subs := map[string]string{}
	if ext != nil {
		subs = ext.ParamSubstitutions
	}

	query := make([]wireQuery, 0, len(src.Query))
	for _, q := range src.Query {
		if q.Disabled {
			continue
		}
		value := q.Value
		if v, ok := subs[q.Key]; ok {
			value = v
		}
		resolvedKey, diags, err := resolver.Resolve(q.Key, ctx)
		if err != nil {
			return resolvedURL{}, err
		}
		diag.add(diags)
		resolvedValue, diags, err := resolver.Resolve(value, ctx)
		if err != nil {
			return resolvedURL{}, err
		}
		diag.add(diags)
		query = append(query, wireQuery{Key: resolvedKey, Value: resolvedValue})
	}

	if ext != nil {
		for _, k := range sortedKeys(ext.ParamExtensions) {
			v := ext.ParamExtensions[k]
			resolvedValue, diags, err := resolver.Resolve(v, ctx)
			if err != nil {
				return resolvedURL{}, err
			}
			diag.add(diags)
			query = append(query, wireQuery{Key: k, Value: resolvedValue})
		}
	}

	return resolvedURL{protocol: protocol, host: host, port: port, path: path, query: query}, nil
}

func resolveInto(s string, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics) (string, error) {
	resolved, diags, err := resolver.Resolve(s, ctx)
	if err != nil {
		return "", err
	}
	diag.add(diags)
	return resolved, nil
}

// render assembles the final URL string.
func (u resolvedURL) render() string {
	var b strings.Builder
	if u.protocol != "" {
		b.WriteString(u.protocol)
		b.WriteString("://")
	}
	b.WriteString(strings.Join(u.host, "."))
	if u.port != "" {
		b.WriteString(":")
		b.WriteString(u.port)
	}
	for _, seg := range u.path {
		b.WriteString("/")
		b.WriteString(seg)
	}
	if len(u.query) > 0 {
		b.WriteString("?")
		b.WriteString(renderQuery(u.query))
	}
	return b.String()
}

func renderQuery(q []wireQuery) string {
	vals := url.Values{}
	var order []string
	seen := map[string]bool{}
	for _, e := range q {
		if !seen[e.Key] {
			seen[e.Key] = true
			order = append(order, e.Key)
		}
		vals.Add(e.Key, e.Value)
	}
	var parts []string
	for _, k := range order {
		for _, v := range vals[k] {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

// renderURLWithQuery re-renders a previously rendered URL string with an
// updated query list, used by WireRequest.AddQuery when auth application
// needs to append a query parameter after preparation's main pass.
func renderURLWithQuery(raw string, query []wireQuery) string {
	base := raw
	if idx := strings.Index(raw, "?"); idx >= 0 {
		base = raw[:idx]
	}
	if len(query) == 0 {
		return base
	}
	return base + "?" + renderQuery(query)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Extensions have no inherent order in a map; sort so preparation
	// stays deterministic.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
