// Package collection implements the in-memory collection tree model: a
// Collection holds a forward-only tree of Items, each either a Request
// or a Folder, with attached auth, variables, headers, body, and events. The tree is read-only once built; nothing in this
// package or its callers mutates a Collection in place.
package collection

// SchemaVersion enumerates the collection schema versions the core
// understands. Resolution never crosses a schema boundary.
type SchemaVersion string

const (
	SchemaV20 SchemaVersion = "v2.0"
	SchemaV21 SchemaVersion = "v2.1"
)

// Info carries collection-level metadata.
type Info struct {
	Name          string
	SchemaVersion SchemaVersion
	Description   string
}

// Collection is the root container: info, items, collection-level
// variables, optional collection-level auth, and events. Immutable after
// load; this package provides no copy or clone helper.
type Collection struct {
	Info      Info
	Items     []Item
	Variables []Variable
	Auth      *Auth
	Events    []Event
}

// Item is the sum type over Request and Folder. Both concrete types
// implement it; type switches distinguish them without reflection or
// duck typing.
type Item interface {
	ItemName() string
	ItemDescription() string
	ItemAuth() *Auth
	ItemVariables() []Variable
	ItemEvents() []Event
	isItem()
}

// Folder is a named, possibly nested container. It owns its children
// exclusively — there is no back-reference from a child to its Folder;
// ancestry is computed on demand by Ancestors, never stored on the node.
type Folder struct {
	Name        string
	Description string
	Auth        *Auth
	Variables   []Variable
	Events      []Event
	Items       []Item
}

func (f *Folder) ItemName() string            { return f.Name }
func (f *Folder) ItemDescription() string     { return f.Description }
func (f *Folder) ItemAuth() *Auth             { return f.Auth }
func (f *Folder) ItemVariables() []Variable   { return f.Variables }
func (f *Folder) ItemEvents() []Event         { return f.Events }
func (f *Folder) isItem()                     {}

// Request is one HTTP call definition.
type Request struct {
	Name              string
	Description       string
	Auth              *Auth
	Variables         []Variable
	Events            []Event
	Method            string
	URL               URL
	Headers           []Header
	Body              *Body
	ExampleResponses  []ExampleResponse
}

func (r *Request) ItemName() string            { return r.Name }
func (r *Request) ItemDescription() string     { return r.Description }
func (r *Request) ItemAuth() *Auth             { return r.Auth }
func (r *Request) ItemVariables() []Variable   { return r.Variables }
func (r *Request) ItemEvents() []Event         { return r.Events }
func (r *Request) isItem()                     {}

// ExampleResponse is an illustrative saved response attached to a Request.
// The core never dispatches these; they exist for documentation/tooling
// consumers outside the core.
type ExampleResponse struct {
	Name       string
	StatusCode int
	Body       string
	Headers    []Header
}

// QueryParam is one URL query entry. Disabled entries are omitted from the
// rendered URL entirely; this is distinct from an empty Value, which is
// kept.
type QueryParam struct {
	Key      string
	Value    string
	Disabled bool
}

// URL is the structured form of a request's target; Raw is re-derived on
// render and is never authoritative for resolution.
type URL struct {
	Raw      string
	Protocol string
	Host     []string
	Port     string
	Path     []string
	Query    []QueryParam
	PathVars []Variable
}

// Header is one request header. Comparison for override purposes is
// case-insensitive; the original casing is preserved on emit.
type Header struct {
	Key         string
	Value       string
	Disabled    bool
	Description string
}

// BodyMode tags the Body union.
type BodyMode string

const (
	BodyRaw        BodyMode = "raw"
	BodyURLEncoded BodyMode = "urlencoded"
	BodyFormData   BodyMode = "formdata"
	BodyFile       BodyMode = "file"
	BodyGraphQL    BodyMode = "graphql"
	BodyNone       BodyMode = "none"
)

// KeyValue is one entry of an urlencoded/formdata body.
type KeyValue struct {
	Key      string
	Value    string
	Disabled bool
}

// GraphQLBody holds a GraphQL query and variables payload.
type GraphQLBody struct {
	Query     string
	Variables string // raw JSON text
}

// Body is a tagged union over the request payload modes. A Body with
// Mode == BodyNone is equivalent to an absent Body.
type Body struct {
	Mode       BodyMode
	Raw        string
	URLEncoded []KeyValue
	FormData   []KeyValue
	FilePath   string
	GraphQL    *GraphQLBody
}

// IsEffectivelyNone reports whether this Body should be treated as absent.
func (b *Body) IsEffectivelyNone() bool {
	return b == nil || b.Mode == BodyNone || b.Mode == ""
}

// AuthType enumerates the supported authentication schemes.
type AuthType string

const (
	AuthNoAuth AuthType = "noauth"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "apikey"
	AuthOAuth1 AuthType = "oauth1"
	AuthOAuth2 AuthType = "oauth2"
	AuthDigest AuthType = "digest"
	AuthAWSV4  AuthType = "awsv4"
	AuthNTLM   AuthType = "ntlm"
	AuthHawk   AuthType = "hawk"
)

// Auth carries a type and its type-specific parameters. Parameter
// values may themselves contain templates and are resolved just before
// dispatch, never at load time.
type Auth struct {
	Type       AuthType
	Parameters map[string]string
}

// Variable is one entry of a scope's seed data as carried by the
// collection tree (collection-level, folder-level, or request-level
// variables block) before it is poured into an ExecutionContext scope.
type Variable struct {
	Key         string
	Value       string
	Type        string
	Description string
	Enabled     bool
}

// EventListen enumerates when an Event's script runs.
type EventListen string

const (
	ListenPreRequest EventListen = "prerequest"
	ListenTest       EventListen = "test"
)

// Event attaches an opaque script to an Item. The core never evaluates
// Script itself; it is handed to whatever Hook
// implementation the caller supplied.
type Event struct {
	Listen EventListen
	Script []string
}
