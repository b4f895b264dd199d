package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blackcoderx/harrier/pkg/collection"
	"github.com/blackcoderx/harrier/pkg/runctx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Target is the minimal surface of a prepared wire request that Apply
// needs: enough to read method/URL for signing and to add the resulting
// header or query contribution. pkg/prepare's WireRequest implements it;
// pkg/auth never needs to know about the rest of the wire request.
type Target interface {
	Method() string
	RequestURL() string
	SetHeader(key, value string)
	AddQuery(key, value string)
}

// templateResolver is the slice of pkg/resolve.Resolver that Apply needs,
// kept as an interface here so pkg/auth has no import-time dependency on
// pkg/resolve's concrete type beyond what it calls.
type templateResolver interface {
	Resolve(tmpl string, ctx *runctx.Context) (string, []string, error)
}

// Apply renders a resolved Auth onto target. Parameters are variable-
// resolved first, then written into the wire request by type.
func Apply(a *collection.Auth, resolver templateResolver, ctx *runctx.Context, target Target) error {
	if a == nil || a.Type == collection.AuthNoAuth {
		return nil
	}

	params, err := resolveParams(a.Parameters, resolver, ctx)
	if err != nil {
		return err
	}

	switch a.Type {
	case collection.AuthBasic:
		return applyBasic(params, target)
	case collection.AuthBearer:
		return applyBearer(params, target)
	case collection.AuthAPIKey:
		return applyAPIKey(params, target)
	case collection.AuthOAuth2:
		return applyOAuth2(params, target)
	case collection.AuthOAuth1:
		return applyOAuth1(params, target)
	case collection.AuthDigest, collection.AuthAWSV4, collection.AuthNTLM, collection.AuthHawk:
		return &UnsupportedError{Type: string(a.Type)}
	default:
		return &UnsupportedError{Type: string(a.Type)}
	}
}

func resolveParams(raw map[string]string, resolver templateResolver, ctx *runctx.Context) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		resolved, _, err := resolver.Resolve(v, ctx)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}

func require(params map[string]string, key, authType string) (string, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return "", &ConfigError{Type: authType, Missing: key}
	}
	return v, nil
}

func applyBasic(params map[string]string, target Target) error {
	user, err := require(params, "username", "basic")
	if err != nil {
		return err
	}
	pass, err := require(params, "password", "basic")
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	target.SetHeader("Authorization", "Basic "+encoded)
	return nil
}

func applyBearer(params map[string]string, target Target) error {
	token, err := require(params, "token", "bearer")
	if err != nil {
		return err
	}
	target.SetHeader("Authorization", "Bearer "+token)
	return nil
}

func applyAPIKey(params map[string]string, target Target) error {
	key, err := require(params, "key", "apikey")
	if err != nil {
		return err
	}
	value, err := require(params, "value", "apikey")
	if err != nil {
		return err
	}
	in := params["in"]
	if in == "" {
		in = "header"
	}
	switch in {
	case "header":
		target.SetHeader(key, value)
	case "query":
		target.AddQuery(key, value)
	default:
		return &ConfigError{Type: "apikey", Missing: "in (must be header or query)"}
	}
	return nil
}

func applyOAuth2(params map[string]string, target Target) error {
	addTokenTo := params["addTokenTo"]
	if addTokenTo == "" {
		addTokenTo = "header"
	}

	token := params["accessToken"]
	if token == "" {
		// Fall back to a client_credentials exchange when the caller
		// supplied endpoint/credentials instead of a pre-issued token.
		tokenURL := params["tokenUrl"]
		clientID := params["clientId"]
		clientSecret := params["clientSecret"]
		if tokenURL == "" || clientID == "" || clientSecret == "" {
			return &ConfigError{Type: "oauth2", Missing: "accessToken"}
		}
		cfg := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
		if scope := params["scope"]; scope != "" {
			cfg.Scopes = strings.Fields(scope)
		}
		tok, err := cfg.Token(context.Background())
		if err != nil {
			return fmt.Errorf("oauth2 client_credentials exchange failed: %w", err)
		}
		token = tok.AccessToken
	}

	if addTokenTo == "query" {
		target.AddQuery("access_token", token)
		return nil
	}
	target.SetHeader("Authorization", (&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).Type()+" "+token)
	return nil
}

// applyOAuth1 signs the request per RFC 5849 using HMAC-SHA1, the
// signature method every Postman-style collection exports by default.
func applyOAuth1(params map[string]string, target Target) error {
	consumerKey, err := require(params, "consumerKey", "oauth1")
	if err != nil {
		return err
	}
	consumerSecret, err := require(params, "consumerSecret", "oauth1")
	if err != nil {
		return err
	}
	token, err := require(params, "token", "oauth1")
	if err != nil {
		return err
	}
	tokenSecret, err := require(params, "tokenSecret", "oauth1")
	if err != nil {
		return err
	}
	sigMethod, err := require(params, "signatureMethod", "oauth1")
	if err != nil {
		return err
	}
	if sigMethod != "HMAC-SHA1" {
		return &UnsupportedError{Type: "oauth1:" + sigMethod}
	}

	nonce := oauth1Nonce()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	oauthParams := map[string]string{
		"oauth_consumer_key":     consumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": sigMethod,
		"oauth_timestamp":        timestamp,
		"oauth_token":            token,
		"oauth_version":          "1.0",
	}

	baseURL, _ := url.Parse(target.RequestURL())
	query := baseURL.Query()
	baseURL.RawQuery = ""

	signingParams := make(map[string]string, len(oauthParams)+len(query))
	for k, v := range oauthParams {
		signingParams[k] = v
	}
	for k, vs := range query {
		if len(vs) > 0 {
			signingParams[k] = vs[0]
		}
	}

	baseString := oauth1SignatureBase(target.Method(), baseURL.String(), signingParams)
	signingKey := url.QueryEscape(consumerSecret) + "&" + url.QueryEscape(tokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(baseString))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	oauthParams["oauth_signature"] = signature

	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%q", k, url.QueryEscape(oauthParams[k]))
	}
	target.SetHeader("Authorization", b.String())
	return nil
}

func oauth1SignatureBase(method, rawURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	paramString := strings.Join(parts, "&")

	return strings.ToUpper(method) + "&" + url.QueryEscape(rawURL) + "&" + url.QueryEscape(paramString)
}

func oauth1Nonce() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
