package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs access tokens and hands out the key that verifies them.
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)
	GetVerificationKey(token *jwt.Token) (any, error)
	GetSigningMethod() jwt.SigningMethod
	// GetJWKS returns the published keys, nil for shared secrets.
	GetJWKS() (*JWKS, error)
}

// HMACSigner signs with a shared secret. Its tokens can only be verified by
// this server.
type HMACSigner struct {
	method *jwt.SigningMethodHMAC
	secret []byte
}

// NewHMACSigner returns an HS256 signer.
func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{method: jwt.SigningMethodHS256, secret: []byte(secret)}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	signed, err := jwt.NewWithClaims(h.method, claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if token.Method != h.method {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return h.method
}

func (h *HMACSigner) GetJWKS() (*JWKS, error) {
	return nil, nil
}

// KeyPairSigner signs with a private key and publishes the public half.
type KeyPairSigner struct {
	keyPair *KeyPair
}

func NewKeyPairSigner(keyPair *KeyPair) *KeyPairSigner {
	return &KeyPairSigner{keyPair: keyPair}
}

func (s *KeyPairSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.keyPair.Method, claims)
	token.Header["kid"] = s.keyPair.KeyID

	signed, err := token.SignedString(s.keyPair.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

func (s *KeyPairSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if token.Method.Alg() != s.keyPair.Method.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if kid, _ := token.Header["kid"].(string); kid != s.keyPair.KeyID {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return s.keyPair.PublicKey(), nil
}

func (s *KeyPairSigner) GetSigningMethod() jwt.SigningMethod {
	return s.keyPair.Method
}

func (s *KeyPairSigner) GetJWKS() (*JWKS, error) {
	jwk, err := s.keyPair.JWK()
	if err != nil {
		return nil, err
	}
	return &JWKS{Keys: []JWK{jwk}}, nil
}
