package loader

import (
	"testing"

	"github.com/blackcoderx/harrier/pkg/collection"
)

const sampleCollection = `{
  "info": {
    "name": "demo",
    "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
  },
  "auth": {
    "type": "bearer",
    "bearer": [{"key": "token", "value": "{{T}}"}]
  },
  "variable": [
    {"key": "base", "value": "api.example.com"},
    {"key": "old", "value": "retired.example.com", "disabled": true}
  ],
  "item": [
    {
      "name": "auth",
      "auth": {"type": "noauth"},
      "variable": [
        {"key": "region", "value": "eu"},
        {"key": "legacy", "value": "1", "disabled": true}
      ],
      "item": [
        {
          "name": "login",
          "request": {
            "method": "POST",
            "header": [
              {"key": "X-A", "value": "one"},
              {"key": "X-Debug", "value": "1", "disabled": true}
            ],
            "url": {
              "raw": "https://api.example.com/login",
              "protocol": "https",
              "host": ["api", "example", "com"],
              "path": ["login"],
              "query": [
                {"key": "verbose", "value": "true"},
                {"key": "trace", "value": "1", "disabled": true}
              ]
            },
            "body": {
              "mode": "urlencoded",
              "urlencoded": [
                {"key": "user", "value": "alice"},
                {"key": "debug", "value": "1", "disabled": true}
              ]
            }
          }
        }
      ]
    },
    {
      "name": "ping",
      "request": {
        "method": "GET",
        "url": "https://{{base}}/ping?x=1"
      }
    }
  ]
}`

func loadSample(t *testing.T) *collection.Collection {
	t.Helper()
	l := &PostmanLoader{SkipSchemaValidation: true}
	if !l.Detect([]byte(sampleCollection)) {
		t.Fatalf("expected Detect to claim a postman document")
	}
	c, err := l.Load([]byte(sampleCollection))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestPostmanLoadBuildsTree(t *testing.T) {
	c := loadSample(t)

	if c.Info.Name != "demo" || c.Info.SchemaVersion != collection.SchemaV21 {
		t.Fatalf("unexpected info: %+v", c.Info)
	}
	if len(c.Items) != 2 {
		t.Fatalf("expected 2 top-level items, got %d", len(c.Items))
	}

	folder, ok := c.Items[0].(*collection.Folder)
	if !ok || folder.Name != "auth" {
		t.Fatalf("expected first item to be the auth folder, got %T", c.Items[0])
	}
	if folder.Auth == nil || folder.Auth.Type != collection.AuthNoAuth {
		t.Fatalf("expected explicit noauth on the folder, got %+v", folder.Auth)
	}

	login, ok := folder.Items[0].(*collection.Request)
	if !ok || login.Name != "login" || login.Method != "POST" {
		t.Fatalf("unexpected nested request: %+v", folder.Items[0])
	}
	if len(login.Headers) != 2 || login.Headers[0].Key != "X-A" {
		t.Fatalf("unexpected headers: %+v", login.Headers)
	}
	if login.URL.Protocol != "https" || len(login.URL.Host) != 3 || login.URL.Path[0] != "login" {
		t.Fatalf("unexpected structured URL: %+v", login.URL)
	}
}

func TestPostmanLoadCollectionAuthAndVariables(t *testing.T) {
	c := loadSample(t)

	if c.Auth == nil || c.Auth.Type != collection.AuthBearer {
		t.Fatalf("expected collection bearer auth, got %+v", c.Auth)
	}
	if c.Auth.Parameters["token"] != "{{T}}" {
		t.Fatalf("expected template left unresolved at load time, got %+v", c.Auth.Parameters)
	}
	if len(c.Variables) != 2 || c.Variables[0].Key != "base" || !c.Variables[0].Enabled {
		t.Fatalf("unexpected variables: %+v", c.Variables)
	}
	if c.Variables[1].Key != "old" || c.Variables[1].Enabled {
		t.Fatalf("expected disabled collection variable preserved as disabled, got %+v", c.Variables[1])
	}
}

func TestPostmanLoadDisabledFlags(t *testing.T) {
	c := loadSample(t)
	folder := c.Items[0].(*collection.Folder)
	login := folder.Items[0].(*collection.Request)

	if login.Headers[0].Disabled || !login.Headers[1].Disabled {
		t.Fatalf("expected only X-Debug header disabled, got %+v", login.Headers)
	}
	if len(login.URL.Query) != 2 {
		t.Fatalf("expected both query params loaded, got %+v", login.URL.Query)
	}
	if login.URL.Query[0].Disabled || !login.URL.Query[1].Disabled {
		t.Fatalf("expected only trace query param disabled, got %+v", login.URL.Query)
	}
	if len(folder.Variables) != 2 {
		t.Fatalf("expected both folder variables loaded, got %+v", folder.Variables)
	}
	if !folder.Variables[0].Enabled || folder.Variables[1].Enabled {
		t.Fatalf("expected only legacy variable disabled, got %+v", folder.Variables)
	}
}

func TestPostmanLoadURLEncodedBody(t *testing.T) {
	c := loadSample(t)
	folder := c.Items[0].(*collection.Folder)
	login := folder.Items[0].(*collection.Request)

	if login.Body == nil || login.Body.Mode != collection.BodyURLEncoded {
		t.Fatalf("expected urlencoded body, got %+v", login.Body)
	}
	if len(login.Body.URLEncoded) != 2 {
		t.Fatalf("expected 2 body entries, got %+v", login.Body.URLEncoded)
	}
	if login.Body.URLEncoded[0].Key != "user" || login.Body.URLEncoded[0].Value != "alice" {
		t.Fatalf("unexpected first entry: %+v", login.Body.URLEncoded[0])
	}
	if !login.Body.URLEncoded[1].Disabled {
		t.Fatalf("expected disabled flag preserved, got %+v", login.Body.URLEncoded[1])
	}
}

func TestPostmanLoadStringURLFallsBackToRawParse(t *testing.T) {
	c := loadSample(t)
	ping, ok := c.Items[1].(*collection.Request)
	if !ok {
		t.Fatalf("expected second item to be a request, got %T", c.Items[1])
	}

	u := ping.URL
	if u.Protocol != "https" {
		t.Fatalf("expected protocol split from raw, got %q", u.Protocol)
	}
	if len(u.Host) != 1 || u.Host[0] != "{{base}}" {
		t.Fatalf("expected template host kept opaque, got %+v", u.Host)
	}
	if len(u.Path) != 1 || u.Path[0] != "ping" {
		t.Fatalf("unexpected path: %+v", u.Path)
	}
	if len(u.Query) != 1 || u.Query[0].Key != "x" || u.Query[0].Value != "1" {
		t.Fatalf("unexpected query: %+v", u.Query)
	}
}

func TestLoadBytesRejectsUnknownDocument(t *testing.T) {
	_, err := LoadBytes([]byte("just some text"))
	if _, ok := err.(*SchemaError); !ok {
		t.Fatalf("expected SchemaError for unrecognized content, got %v", err)
	}
}

func TestParseRawURLPort(t *testing.T) {
	u := parseRawURL("http://localhost:8080/api/v1?q=a")
	if u.Protocol != "http" || u.Port != "8080" {
		t.Fatalf("expected port split out, got %+v", u)
	}
	if len(u.Host) != 1 || u.Host[0] != "localhost" {
		t.Fatalf("unexpected host: %+v", u.Host)
	}
	if len(u.Path) != 2 || u.Path[1] != "v1" {
		t.Fatalf("unexpected path: %+v", u.Path)
	}
}
