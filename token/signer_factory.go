package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
)

// NewSigner builds the access token signer for algorithm. HMAC algorithms
// sign with secret; RSA and ECDSA algorithms generate a fresh key pair,
// published through JWKS.
func NewSigner(algorithm, secret string) (Signer, error) {
	switch method := jwt.GetSigningMethod(algorithm).(type) {
	case *jwt.SigningMethodHMAC:
		if secret == "" {
			return nil, fmt.Errorf("%s signer requires a secret", algorithm)
		}
		return &HMACSigner{method: method, secret: []byte(secret)}, nil

	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS, *jwt.SigningMethodECDSA:
		keyPair, err := GenerateKeyPair(uuid.New().String(), method)
		if err != nil {
			return nil, err
		}
		return NewKeyPairSigner(keyPair), nil

	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedSigner, "%q", algorithm)
	}
}

// NewSignerFromPEM builds an RSA or ECDSA signer around a stored private key.
// Tokens it signs stay verifiable across restarts and replicas.
func NewSignerFromPEM(algorithm string, pemData []byte) (Signer, error) {
	method := jwt.GetSigningMethod(algorithm)
	switch method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS, *jwt.SigningMethodECDSA:
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedSigner, "%q with a private key", algorithm)
	}
	keyPair, err := ParseKeyPair(method, pemData)
	if err != nil {
		return nil, err
	}
	return NewKeyPairSigner(keyPair), nil
}
