package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

const rsaKeyBits = 2048

// KeyPair is an asymmetric access token signing key.
type KeyPair struct {
	KeyID      string
	Method     jwt.SigningMethod
	PrivateKey crypto.Signer
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is the public half of a KeyPair (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`

	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// GenerateKeyPair creates a fresh key for an RSA, RSA-PSS or ECDSA signing method.
func GenerateKeyPair(keyID string, method jwt.SigningMethod) (*KeyPair, error) {
	var (
		key crypto.Signer
		err error
	)
	switch m := method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err = rsa.GenerateKey(rand.Reader, rsaKeyBits)
	case *jwt.SigningMethodECDSA:
		curve, ok := curves[m.CurveBits]
		if !ok {
			return nil, fmt.Errorf("no curve for %s", m.Alg())
		}
		key, err = ecdsa.GenerateKey(curve, rand.Reader)
	default:
		return nil, fmt.Errorf("%s is not an asymmetric signing method", method.Alg())
	}
	if err != nil {
		return nil, fmt.Errorf("generating %s key: %w", method.Alg(), err)
	}
	return &KeyPair{KeyID: keyID, Method: method, PrivateKey: key}, nil
}

var curves = map[int]elliptic.Curve{
	256: elliptic.P256(),
	384: elliptic.P384(),
	521: elliptic.P521(),
}

// ParseKeyPair loads a PEM private key (PKCS#1, SEC 1 or PKCS#8) for method.
// The key id is derived from the public key, so every replica loading the
// same file publishes the same kid.
func ParseKeyPair(method jwt.SigningMethod, pemData []byte) (*KeyPair, error) {
	var (
		key crypto.Signer
		err error
	)
	switch m := method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err = jwt.ParseRSAPrivateKeyFromPEM(pemData)
	case *jwt.SigningMethodECDSA:
		var ecKey *ecdsa.PrivateKey
		if ecKey, err = jwt.ParseECPrivateKeyFromPEM(pemData); err == nil {
			if ecKey.Curve.Params().BitSize != m.CurveBits {
				return nil, fmt.Errorf("%s needs a P-%d key, got %s", m.Alg(), m.CurveBits, ecKey.Curve.Params().Name)
			}
			key = ecKey
		}
	default:
		return nil, fmt.Errorf("%s is not an asymmetric signing method", method.Alg())
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s private key: %w", method.Alg(), err)
	}

	kp := &KeyPair{Method: method, PrivateKey: key}
	der, err := x509.MarshalPKIXPublicKey(kp.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("marshalling public key: %w", err)
	}
	sum := sha256.Sum256(der)
	kp.KeyID = b64(sum[:])
	return kp, nil
}

// PrivateKeyPEM encodes the private key as PKCS#8 PEM.
func (kp *KeyPair) PrivateKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("marshalling private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// PublicKey returns the verification key.
func (kp *KeyPair) PublicKey() crypto.PublicKey {
	return kp.PrivateKey.Public()
}

// PublicKeyPEM encodes the public key as PKIX PEM. Clients that sign their
// assertions asymmetrically register this form as their secret.
func (kp *KeyPair) PublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(kp.PublicKey())
	if err != nil {
		return "", fmt.Errorf("marshalling public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// JWK describes the public key for publication.
func (kp *KeyPair) JWK() (JWK, error) {
	jwk := JWK{Kid: kp.KeyID, Use: "sig", Alg: kp.Method.Alg()}

	switch pub := kp.PublicKey().(type) {
	case *rsa.PublicKey:
		jwk.Kty = "RSA"
		jwk.N = b64(pub.N.Bytes())
		jwk.E = b64(big.NewInt(int64(pub.E)).Bytes())

	case *ecdsa.PublicKey:
		params := pub.Curve.Params()
		size := (params.BitSize + 7) / 8
		jwk.Kty = "EC"
		jwk.Crv = params.Name
		jwk.X = b64(pub.X.FillBytes(make([]byte, size)))
		jwk.Y = b64(pub.Y.FillBytes(make([]byte, size)))

	default:
		return JWK{}, fmt.Errorf("unsupported public key type %T", pub)
	}
	return jwk, nil
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
