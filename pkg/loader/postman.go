package loader

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rbretecher/go-postman-collection"
	"github.com/xeipuuv/gojsonschema"

	"github.com/blackcoderx/harrier/pkg/collection"
)

// postmanSchemaURL is the canonical Postman v2.1 collection JSON Schema,
// validated before the document is handed to the go-postman-collection
// parser; failures surface as SchemaError before anything reaches the
// execution engine.
const postmanSchemaURL = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// PostmanLoader parses Postman Collection v2.0/v2.1 documents into
// collection.Collection, walking the library's recursive Items and
// translating into the core's own tree type.
type PostmanLoader struct {
	// SkipSchemaValidation disables the network-fetching gojsonschema
	// pass; tests set this so they never depend on reaching
	// schema.getpostman.com.
	SkipSchemaValidation bool
}

func (p *PostmanLoader) Detect(content []byte) bool {
	s := string(content)
	return strings.Contains(s, "_postman_id") || (strings.Contains(s, `"info"`) && strings.Contains(s, `"schema"`))
}

func (p *PostmanLoader) Load(content []byte) (*collection.Collection, error) {
	if !p.SkipSchemaValidation {
		if err := validatePostmanSchema(content); err != nil {
			return nil, err
		}
	}

	doc, err := postman.ParseCollection(strings.NewReader(string(content)))
	if err != nil {
		return nil, &SchemaError{Format: FormatPostman, Reason: err.Error()}
	}

	version, err := detectSchemaVersion(content)
	if err != nil {
		return nil, err
	}

	// go-postman-collection drops the disabled flag for headers, query
	// params, and variables, so those are decoded again from the raw
	// document and zipped with the parsed tree by position.
	var shadow docShadow
	_ = json.Unmarshal(content, &shadow)

	c := &collection.Collection{
		Info: collection.Info{
			Name:          doc.Info.Name,
			SchemaVersion: version,
			Description:   stringifyDescription(doc.Info.Description),
		},
		Auth:  convertAuth(doc.Auth),
		Items: convertItems(doc.Items, shadow.Items),
	}
	for i, v := range doc.Variables {
		c.Variables = append(c.Variables, collection.Variable{
			Key: v.Key, Value: fmt.Sprint(v.Value), Enabled: !flagAt(shadow.Variable, i),
		})
	}
	return c, nil
}

// docShadow, itemShadow, urlShadow and flagShadow mirror just enough of
// the raw document to recover disabled flags. Requests and URLs may be
// plain strings in the document, so both decode via RawMessage and are
// parsed only when they carry an object.
type docShadow struct {
	Items    []itemShadow `json:"item"`
	Variable []flagShadow `json:"variable"`
}

type itemShadow struct {
	Items    []itemShadow    `json:"item"`
	Variable []flagShadow    `json:"variable"`
	Request  json.RawMessage `json:"request"`
}

type requestShadow struct {
	Header []flagShadow    `json:"header"`
	URL    json.RawMessage `json:"url"`
}

type urlShadow struct {
	Query    []flagShadow `json:"query"`
	Variable []flagShadow `json:"variable"`
}

type flagShadow struct {
	Disabled bool `json:"disabled"`
}

func flagAt(flags []flagShadow, i int) bool {
	return i < len(flags) && flags[i].Disabled
}

func (s itemShadow) request() requestShadow {
	var out requestShadow
	if len(s.Request) > 0 {
		_ = json.Unmarshal(s.Request, &out)
	}
	return out
}

func (r requestShadow) url() urlShadow {
	var out urlShadow
	if len(r.URL) > 0 {
		_ = json.Unmarshal(r.URL, &out)
	}
	return out
}

func validatePostmanSchema(content []byte) error {
	schemaLoader := gojsonschema.NewReferenceLoader(postmanSchemaURL)
	docLoader := gojsonschema.NewBytesLoader(content)
	res, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		// Network failure fetching the reference schema is not itself a
		// SchemaError about this document's content; callers that need
		// hard offline validation should set SkipSchemaValidation and
		// rely on the parser's own structural errors instead.
		return nil
	}
	if !res.Valid() {
		var reasons []string
		for _, e := range res.Errors() {
			reasons = append(reasons, e.String())
		}
		return &SchemaError{Format: FormatPostman, Reason: strings.Join(reasons, "; ")}
	}
	return nil
}

func detectSchemaVersion(content []byte) (collection.SchemaVersion, error) {
	s := string(content)
	switch {
	case strings.Contains(s, "v2.1.0"):
		return collection.SchemaV21, nil
	case strings.Contains(s, "v2.0.0"):
		return collection.SchemaV20, nil
	default:
		// Neither v2.1.0 nor v2.0.0 appears in the document: the version
		// is unrecognized, which is fatal at load.
		return "", &SchemaError{Format: FormatPostman, Reason: "unrecognized collection schema version"}
	}
}

func convertItems(items []*postman.Items, shadows []itemShadow) []collection.Item {
	out := make([]collection.Item, 0, len(items))
	for i, it := range items {
		var sh itemShadow
		if i < len(shadows) {
			sh = shadows[i]
		}
		if it.IsGroup() {
			out = append(out, &collection.Folder{
				Name:        it.Name,
				Description: stringifyDescription(it.Description),
				Auth:        convertAuth(it.Auth),
				Variables:   convertVariables(it.Variables, sh.Variable),
				Events:      convertEvents(it.Events),
				Items:       convertItems(it.Items, sh.Items),
			})
			continue
		}
		if it.Request == nil {
			continue
		}
		req := it.Request
		reqSh := sh.request()
		r := &collection.Request{
			Name:        it.Name,
			Description: stringifyDescription(it.Description),
			Auth:        convertAuth(req.Auth),
			Variables:   convertVariables(it.Variables, sh.Variable),
			Events:      convertEvents(it.Events),
			Method:      string(req.Method),
			Headers:     convertHeaders(req.Header, reqSh.Header),
			Body:        convertBody(req.Body),
		}
		if req.URL != nil {
			r.URL = convertURL(req.URL, reqSh.url())
		}
		out = append(out, r)
	}
	return out
}

func convertURL(u *postman.URL, sh urlShadow) collection.URL {
	out := collection.URL{
		Raw:      u.Raw,
		Protocol: u.Protocol,
		Host:     append([]string(nil), u.Host...),
		Port:     u.Port,
		Path:     append([]string(nil), u.Path...),
	}
	for i, q := range u.Query {
		out.Query = append(out.Query, collection.QueryParam{Key: q.Key, Value: q.Value, Disabled: flagAt(sh.Query, i)})
	}
	out.PathVars = convertVariables(u.Variables, sh.Variable)
	if len(out.Host) == 0 && len(out.Path) == 0 && out.Raw != "" {
		// The document carried only the string form; go-postman-collection
		// leaves the structured fields empty then, and the structured form
		// is what resolution renders from.
		out = parseRawURL(out.Raw)
	}
	return out
}

// parseRawURL splits a string-form URL into the structured fields. The
// split is purely textual so templates survive intact: a host of
// "{{baseUrl}}" stays one opaque segment until resolution time.
func parseRawURL(raw string) collection.URL {
	out := collection.URL{Raw: raw}
	rest := raw
	if idx := strings.Index(rest, "://"); idx >= 0 {
		out.Protocol = rest[:idx]
		rest = rest[idx+3:]
	}
	var queryPart string
	if idx := strings.Index(rest, "?"); idx >= 0 {
		queryPart = rest[idx+1:]
		rest = rest[:idx]
	}
	hostPart := rest
	if idx := strings.Index(rest, "/"); idx >= 0 {
		hostPart = rest[:idx]
		for _, seg := range strings.Split(strings.Trim(rest[idx+1:], "/"), "/") {
			if seg != "" {
				out.Path = append(out.Path, seg)
			}
		}
	}
	if idx := strings.LastIndex(hostPart, ":"); idx >= 0 && !strings.Contains(hostPart[idx:], "}") {
		out.Port = hostPart[idx+1:]
		hostPart = hostPart[:idx]
	}
	if hostPart != "" {
		out.Host = strings.Split(hostPart, ".")
	}
	for _, pair := range strings.Split(queryPart, "&") {
		if pair == "" {
			continue
		}
		k, v := pair, ""
		if idx := strings.Index(pair, "="); idx >= 0 {
			k, v = pair[:idx], pair[idx+1:]
		}
		out.Query = append(out.Query, collection.QueryParam{Key: k, Value: v})
	}
	return out
}

func convertHeaders(headers []*postman.Header, flags []flagShadow) []collection.Header {
	out := make([]collection.Header, 0, len(headers))
	for i, h := range headers {
		out = append(out, collection.Header{
			Key:         h.Key,
			Value:       h.Value,
			Disabled:    flagAt(flags, i),
			Description: stringifyDescription(h.Description),
		})
	}
	return out
}

func convertVariables(vars []*postman.Variable, flags []flagShadow) []collection.Variable {
	out := make([]collection.Variable, 0, len(vars))
	for i, v := range vars {
		out = append(out, collection.Variable{Key: v.Key, Value: fmt.Sprint(v.Value), Enabled: !flagAt(flags, i)})
	}
	return out
}

func convertEvents(events []*postman.Event) []collection.Event {
	out := make([]collection.Event, 0, len(events))
	for _, e := range events {
		listen := collection.ListenPreRequest
		if e.Listen == "test" {
			listen = collection.ListenTest
		}
		var lines []string
		if e.Script != nil {
			lines = append(lines, e.Script.Exec...)
		}
		out = append(out, collection.Event{Listen: listen, Script: lines})
	}
	return out
}

// convertBody translates go-postman-collection's loosely-typed body. The
// library leaves URLEncoded/FormData/GraphQL/File as interface{} (whatever
// encoding/json produced), so each is decoded field-by-field here.
func convertBody(b *postman.Body) *collection.Body {
	if b == nil {
		return nil
	}
	switch b.Mode {
	case "raw":
		return &collection.Body{Mode: collection.BodyRaw, Raw: b.Raw}
	case "urlencoded":
		return &collection.Body{Mode: collection.BodyURLEncoded, URLEncoded: convertKV(b.URLEncoded)}
	case "formdata":
		return &collection.Body{Mode: collection.BodyFormData, FormData: convertKV(b.FormData)}
	case "file":
		if m, ok := b.File.(map[string]interface{}); ok {
			if src, ok := m["src"].(string); ok {
				return &collection.Body{Mode: collection.BodyFile, FilePath: src}
			}
		}
		return &collection.Body{Mode: collection.BodyNone}
	case "graphql":
		if m, ok := b.GraphQL.(map[string]interface{}); ok {
			gql := &collection.GraphQLBody{}
			if q, ok := m["query"].(string); ok {
				gql.Query = q
			}
			if v, ok := m["variables"].(string); ok {
				gql.Variables = v
			}
			return &collection.Body{Mode: collection.BodyGraphQL, GraphQL: gql}
		}
		return &collection.Body{Mode: collection.BodyNone}
	default:
		return &collection.Body{Mode: collection.BodyNone}
	}
}

func convertKV(raw interface{}) []collection.KeyValue {
	entries, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]collection.KeyValue, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		kv := collection.KeyValue{}
		if k, ok := m["key"].(string); ok {
			kv.Key = k
		}
		if v, ok := m["value"].(string); ok {
			kv.Value = v
		}
		if d, ok := m["disabled"].(bool); ok {
			kv.Disabled = d
		}
		out = append(out, kv)
	}
	return out
}

func convertAuth(a *postman.Auth) *collection.Auth {
	if a == nil {
		return nil
	}
	authType := collection.AuthType(a.Type)
	params := map[string]string{}
	for _, p := range authParamsFor(a) {
		params[p.Key] = fmt.Sprint(p.Value)
	}
	return &collection.Auth{Type: authType, Parameters: params}
}

// authParamsFor flattens go-postman-collection's per-type auth param
// slices (Auth.Basic, Auth.Bearer, ...) into one list; each type's slice
// is nil except the one matching Auth.Type.
func authParamsFor(a *postman.Auth) []*postman.AuthParam {
	switch a.Type {
	case "basic":
		return a.Basic
	case "bearer":
		return a.Bearer
	case "apikey":
		return a.APIKey
	case "oauth2":
		return a.OAuth2
	case "oauth1":
		return a.OAuth1
	case "digest":
		return a.Digest
	case "awsv4":
		return a.AWSV4
	case "ntlm":
		return a.NTLM
	case "hawk":
		return a.Hawk
	default:
		return nil
	}
}

func stringifyDescription(d interface{}) string {
	switch v := d.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		if d == nil {
			return ""
		}
		return fmt.Sprint(d)
	}
}
