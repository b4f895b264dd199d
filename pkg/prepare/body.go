package prepare

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/url"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/resolve"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

// buildBody runs mode-specific substitution/extension, then serializes
// to bytes plus the Content-Type header the mode implies (if
// the caller hasn't already set one explicitly).
func buildBody(src *collection.Body, ext *Extensions, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics) ([]byte, string, error) {
	if src.IsEffectivelyNone() {
		return nil, "", nil
	}

	subs, exts := map[string]string{}, map[string]string{}
	if ext != nil {
		subs, exts = ext.BodySubstitutions, ext.BodyExtensions
	}

	switch src.Mode {
	case collection.BodyRaw:
		return buildRawBody(src.Raw, subs, exts, resolver, ctx, diag)
	case collection.BodyURLEncoded:
		b, err := buildKeyValueBody(src.URLEncoded, subs, exts, resolver, ctx, diag, encodeURLEncoded)
		return b, "application/x-www-form-urlencoded", err
	case collection.BodyFormData:
		return buildMultipartBody(src.FormData, subs, exts, resolver, ctx, diag)
	case collection.BodyFile:
		path, diags, err := resolver.Resolve(src.FilePath, ctx)
		if err != nil {
			return nil, "", err
		}
		diag.add(diags)
		return []byte(path), "application/octet-stream", nil
	case collection.BodyGraphQL:
		return buildGraphQLBody(src.GraphQL, resolver, ctx, diag)
	default:
		return nil, "", &BodyEncodingError{Mode: string(src.Mode), Reason: "unknown body mode"}
	}
}

func buildRawBody(raw string, subs, exts map[string]string, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics) ([]byte, string, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		for k, v := range subs {
			if _, ok := parsed[k]; ok {
				parsed[k] = jsonish(v)
			}
		}
		for _, k := range sortedKeys(exts) {
			parsed[k] = jsonish(exts[k])
		}
		for k, v := range parsed {
			if s, ok := v.(string); ok {
				resolved, diags, err := resolver.Resolve(s, ctx)
				if err != nil {
					return nil, "", err
				}
				diag.add(diags)
				parsed[k] = resolved
			}
		}
		encoded, err := json.Marshal(parsed)
		if err != nil {
			return nil, "", &BodyEncodingError{Mode: "raw", Reason: err.Error()}
		}
		return encoded, "application/json", nil
	}

	if len(exts) > 0 {
		diag.note("raw body is not valid JSON; body_extensions ignored")
	}
	resolved, diags, err := resolver.Resolve(raw, ctx)
	if err != nil {
		return nil, "", err
	}
	diag.add(diags)
	return []byte(resolved), "text/plain", nil
}

// jsonish interprets a substitution/extension string value as JSON when it
// parses as one (so "123" becomes a number, "true" a bool), falling back
// to the literal string otherwise.
func jsonish(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// resolveKeyValueEntries applies the substitution/extension rules to a
// key-value list (disabled entries dropped, substitutions
// replace by key, extensions appended), then variable-resolves every
// remaining key and value.
func resolveKeyValueEntries(src []collection.KeyValue, subs, exts map[string]string, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics) ([]collection.KeyValue, error) {
	entries := make([]collection.KeyValue, 0, len(src))
	for _, kv := range src {
		if kv.Disabled {
			continue
		}
		entries = append(entries, kv)
	}
	for i, kv := range entries {
		if v, ok := subs[kv.Key]; ok {
			entries[i].Value = v
		}
	}
	for _, k := range sortedKeys(exts) {
		entries = append(entries, collection.KeyValue{Key: k, Value: exts[k]})
	}

	resolved := make([]collection.KeyValue, 0, len(entries))
	for _, kv := range entries {
		resolvedKey, diags, err := resolver.Resolve(kv.Key, ctx)
		if err != nil {
			return nil, err
		}
		diag.add(diags)
		resolvedValue, diags, err := resolver.Resolve(kv.Value, ctx)
		if err != nil {
			return nil, err
		}
		diag.add(diags)
		resolved = append(resolved, collection.KeyValue{Key: resolvedKey, Value: resolvedValue})
	}

	return resolved, nil
}

func buildKeyValueBody(src []collection.KeyValue, subs, exts map[string]string, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics, encode func([]collection.KeyValue) []byte) ([]byte, error) {
	resolved, err := resolveKeyValueEntries(src, subs, exts, resolver, ctx, diag)
	if err != nil {
		return nil, err
	}
	return encode(resolved), nil
}

func encodeURLEncoded(entries []collection.KeyValue) []byte {
	vals := url.Values{}
	for _, kv := range entries {
		vals.Add(kv.Key, kv.Value)
	}
	return []byte(vals.Encode())
}

// buildMultipartBody renders real boundary-delimited multipart/form-data
// (mime/multipart), the way any formdata-consuming server expects it. The
// returned Content-Type carries the writer's own boundary, so the header
// Harrier declares always matches the bytes it actually sent.
func buildMultipartBody(src []collection.KeyValue, subs, exts map[string]string, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics) ([]byte, string, error) {
	resolved, err := resolveKeyValueEntries(src, subs, exts, resolver, ctx, diag)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, kv := range resolved {
		if err := w.WriteField(kv.Key, kv.Value); err != nil {
			return nil, "", &BodyEncodingError{Mode: "formdata", Reason: err.Error()}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", &BodyEncodingError{Mode: "formdata", Reason: err.Error()}
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func buildGraphQLBody(gql *collection.GraphQLBody, resolver *resolve.Resolver, ctx *runctx.Context, diag *diagnostics) ([]byte, string, error) {
	if gql == nil {
		return nil, "", nil
	}
	query, diags, err := resolver.Resolve(gql.Query, ctx)
	if err != nil {
		return nil, "", err
	}
	diag.add(diags)

	variables, diags, err := resolver.Resolve(gql.Variables, ctx)
	if err != nil {
		return nil, "", err
	}
	diag.add(diags)

	var varsValue interface{} = json.RawMessage("{}")
	if variables != "" {
		varsValue = json.RawMessage(variables)
	}

	payload := map[string]interface{}{
		"query":     query,
		"variables": varsValue,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, "", &BodyEncodingError{Mode: "graphql", Reason: err.Error()}
	}
	return encoded, "application/json", nil
}
