// Package auth verifies the ES256 JWTs that trusted services attach to their requests.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
)

const DefaultMaxTimeout = 15 * time.Second

type customClaims struct {
	HashedBody    string `json:"hashed_body"`
	MethodAndPath string `json:"method_and_path"`
	jwtgo.RegisteredClaims
}

// JWTManager
type JWTManager struct {
	PrivateKey string
	PublicKey  string
	MaxTimeout time.Duration
}

// ParseToken parses a JWT token and returns the claims. It also checks if the token expiration is within [now,
// now+MaxTimeout], and if the claims bind the token to this request's method, path and body.
func (m *JWTManager) ParseToken(tokenString, methodAndPath string, body []byte) (*jwtgo.Token, *customClaims, error) {
	claims := &customClaims{}
	token, err := jwtgo.ParseWithClaims(tokenString, claims, func(t *jwtgo.Token) (interface{}, error) {
		esPublicKey, err := jwtgo.ParseECPublicKeyFromPEM([]byte(m.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("parsing EC Public Key: %w", err)
		}

		return esPublicKey, nil
	}, jwtgo.WithValidMethods([]string{jwtgo.SigningMethodES256.Alg()}), jwtgo.WithExpirationRequired())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing JWT token with claims: %w", err)
	}

	if claims.HashedBody != hashBody(body) {
		return nil, nil, fmt.Errorf("the claims' hashed body does not match the request body's hash")
	}
	if claims.MethodAndPath != strings.TrimSpace(methodAndPath) {
		return nil, nil, fmt.Errorf("the claims' method and path %q do not match %q", claims.MethodAndPath, methodAndPath)
	}

	maxTimeout := m.MaxTimeout
	if maxTimeout == 0 {
		maxTimeout = DefaultMaxTimeout
	}
	if claims.ExpiresAt.After(time.Now().Add(maxTimeout)) {
		return nil, nil, fmt.Errorf("the token expiration is too long, max timeout is %s", maxTimeout)
	}

	return token, claims, nil
}

// GenerateToken generates a JWT token for the given request and expiration time. The subject names the calling
// service.
func (m *JWTManager) GenerateToken(subject, methodAndPath string, body []byte, expiresAt time.Time) (string, error) {
	esPrivateKey, err := jwtgo.ParseECPrivateKeyFromPEM([]byte(m.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parsing EC Private Key: %w", err)
	}

	claims := &customClaims{
		HashedBody:    hashBody(body),
		MethodAndPath: strings.TrimSpace(methodAndPath),
		RegisteredClaims: jwtgo.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwtgo.NewNumericDate(time.Now()),
			ExpiresAt: jwtgo.NewNumericDate(expiresAt),
		},
	}

	token := jwtgo.NewWithClaims(jwtgo.SigningMethodES256, claims)
	tokenString, err := token.SignedString(esPrivateKey)
	if err != nil {
		return "", fmt.Errorf("signing JWT token with claims: %w", err)
	}

	return tokenString, nil
}

// hashBody returns the SHA-256 hash of the body.
func hashBody(body []byte) string {
	hashedBodyBytes := sha256.Sum256(body)
	return hex.EncodeToString(hashedBodyBytes[:])
}
