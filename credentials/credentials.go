// Package credentials pulls client credentials out of token requests.
package credentials

import (
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"

	"github.com/jrsteele09/go-jwt-grant/assertion"
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
)

// Extractor names accepted in configuration.
const (
	FromParamsMethod = "from_params"
	FromBasicMethod  = "from_basic"
	FromJWTMethod    = "from_jwt"
)

// Extractor returns the client credentials carried by r, or nil.
// Extractors read r.Form, so the form must already be parsed.
type Extractor func(r *http.Request) *clients.Credentials

var basicPattern = regexp.MustCompile(`(?s)^Basic (.*)`)

// FromParams reads client_id and client_secret from the request parameters.
func FromParams(r *http.Request) *clients.Credentials {
	return pair(r.Form.Get("client_id"), r.Form.Get("client_secret"))
}

// FromBasic decodes an "Authorization: Basic" header. The identifier is
// everything before the first colon; the body may span several lines.
func FromBasic(r *http.Request) *clients.Credentials {
	match := basicPattern.FindStringSubmatch(r.Header.Get("Authorization"))
	if match == nil {
		return nil
	}

	encoded := strings.Map(func(c rune) rune {
		if c == '\r' || c == '\n' || c == ' ' || c == '\t' {
			return -1
		}
		return c
	}, match[1])
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}

	uid, secret, _ := strings.Cut(string(decoded), ":")
	return pair(uid, secret)
}

// FromAssertion resolves the client that signed the assertion parameter,
// requiring a valid signature and expiry.
func FromAssertion(resolver *assertion.Resolver) Extractor {
	return func(r *http.Request) *clients.Credentials {
		raw := r.Form.Get("assertion")
		if raw == "" {
			return nil
		}
		return resolver.RetrieveCredentials(raw, true)
	}
}

// Chain tries each extractor in order and returns the first credentials found.
func Chain(extractors ...Extractor) Extractor {
	return func(r *http.Request) *clients.Credentials {
		for _, ex := range extractors {
			if creds := ex(r); creds != nil {
				return creds
			}
		}
		return nil
	}
}

// FromConfig builds the chain named by methods, in the configured order.
func FromConfig(methods []string, resolver *assertion.Resolver) (Extractor, error) {
	extractors := make([]Extractor, 0, len(methods))
	for _, name := range methods {
		switch name {
		case FromParamsMethod:
			extractors = append(extractors, FromParams)
		case FromBasicMethod:
			extractors = append(extractors, FromBasic)
		case FromJWTMethod:
			extractors = append(extractors, FromAssertion(resolver))
		default:
			return nil, errors.Wrapf(errors.ErrUnknownExtractor, "%q", name)
		}
	}
	return Chain(extractors...), nil
}

func pair(uid, secret string) *clients.Credentials {
	if uid == "" {
		return nil
	}
	return &clients.Credentials{UID: uid, Secret: secret}
}
