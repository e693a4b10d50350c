// Package assertion decodes signed JWT bearer assertions and resolves the
// registered client that issued them.
package assertion

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of an assertion.
type Claims = jwt.MapClaims

// Header is the decoded JOSE header of an assertion.
type Header = map[string]any

// ErrorKind classifies why an assertion could not be decoded.
type ErrorKind int

const (
	SignatureVerificationFailed ErrorKind = iota + 1
	AssertionExpired
	MalformedAssertion
)

const (
	errorVerification = "There was an issue verifying the signature. Please verify the proper values."
	errorExpired      = "The token has expired. Please regenerate a new one."
	errorMalformed    = "An error has occurred while trying to decode the message: %s"
)

// Sentinels for errors.Is; they match any DecodeError of the same kind.
var (
	ErrSignatureVerificationFailed = &DecodeError{Kind: SignatureVerificationFailed}
	ErrAssertionExpired            = &DecodeError{Kind: AssertionExpired}
	ErrMalformedAssertion          = &DecodeError{Kind: MalformedAssertion}
)

var errMissingKey = errors.New("no verification key")

// DecodeError is a classified decode failure. Err carries the underlying
// parser error for diagnostics.
type DecodeError struct {
	Kind ErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case SignatureVerificationFailed:
		return errorVerification
	case AssertionExpired:
		return errorExpired
	default:
		detail := "unknown error"
		if e.Err != nil {
			detail = e.Err.Error()
		}
		return fmt.Sprintf(errorMalformed, detail)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == e.Kind
}

var supportedMethods = []string{
	"HS256", "HS384", "HS512",
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// Codec decodes assertions. It holds no per-call state, so one Codec can be
// shared by every request.
type Codec struct {
	nowFunc func() time.Time
	leeway  time.Duration
}

type CodecOption func(*Codec)

func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

// WithLeeway tolerates clock skew between the client and the server when checking exp.
func WithLeeway(leeway time.Duration) CodecOption {
	return func(c *Codec) {
		c.leeway = leeway
	}
}

func NewCodec(options ...CodecOption) *Codec {
	c := &Codec{}
	for _, opt := range options {
		opt(c)
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	return c
}

// Decode parses assertion and, when verify is set, checks its signature
// against secret and requires an unexpired exp claim. Without verify only
// well formedness is checked. Claims and header are nil whenever err is not.
func (c *Codec) Decode(assertion, secret string, verify bool) (Claims, Header, error) {
	if !verify {
		token, _, err := jwt.NewParser().ParseUnverified(assertion, jwt.MapClaims{})
		if err != nil {
			return nil, nil, &DecodeError{Kind: MalformedAssertion, Err: err}
		}
		return claimsOf(token)
	}

	if secret == "" {
		return nil, nil, &DecodeError{Kind: SignatureVerificationFailed, Err: errMissingKey}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(supportedMethods),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
		jwt.WithLeeway(c.leeway),
	)
	token, err := parser.ParseWithClaims(assertion, jwt.MapClaims{}, verificationKey(secret))
	if err != nil {
		return nil, nil, classify(err)
	}
	return claimsOf(token)
}

func claimsOf(token *jwt.Token) (Claims, Header, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, nil, &DecodeError{Kind: MalformedAssertion, Err: errors.New("unexpected claims type")}
	}
	return claims, token.Header, nil
}

func classify(err error) *DecodeError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &DecodeError{Kind: SignatureVerificationFailed, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &DecodeError{Kind: AssertionExpired, Err: err}
	default:
		return &DecodeError{Kind: MalformedAssertion, Err: err}
	}
}

// verificationKey interprets secret according to the algorithm the assertion
// claims: raw bytes for HMAC, a PEM public key for everything else.
func verificationKey(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			// A public key must never double as an HMAC secret.
			if strings.HasPrefix(strings.TrimSpace(secret), "-----BEGIN") {
				return nil, fmt.Errorf("HMAC signature with a public key secret")
			}
			return []byte(secret), nil
		case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
			return jwt.ParseRSAPublicKeyFromPEM([]byte(secret))
		case *jwt.SigningMethodECDSA:
			return jwt.ParseECPublicKeyFromPEM([]byte(secret))
		case *jwt.SigningMethodEd25519:
			return jwt.ParseEdPublicKeyFromPEM([]byte(secret))
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	}
}
