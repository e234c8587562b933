package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultMaxBodySizeBytes int64 = 102_400 // 100kb

var ErrUnauthorized = errors.New("not authorized")

type HTTPRequestVerifier interface {
	// VerifyHTTPRequest checks the bearer token of req and returns the calling service. The body stays readable.
	VerifyHTTPRequest(req *http.Request) (string, error)
}

// JWTRequestVerifier accepts tokens signed by any of the configured service keys.
type JWTRequestVerifier struct {
	managers         []*JWTManager
	maxBodySizeBytes int64
}

var _ HTTPRequestVerifier = (*JWTRequestVerifier)(nil)

func NewJWTRequestVerifier(maxTimeout time.Duration, maxBodySizeBytes int64, publicKeysPEM ...string) (*JWTRequestVerifier, error) {
	if len(publicKeysPEM) == 0 {
		return nil, errors.New("no client public keys provided")
	}
	if maxBodySizeBytes <= 0 {
		maxBodySizeBytes = DefaultMaxBodySizeBytes
	}

	managers := make([]*JWTManager, 0, len(publicKeysPEM))
	for _, publicKey := range publicKeysPEM {
		managers = append(managers, &JWTManager{PublicKey: publicKey, MaxTimeout: maxTimeout})
	}
	return &JWTRequestVerifier{managers: managers, maxBodySizeBytes: maxBodySizeBytes}, nil
}

func (v *JWTRequestVerifier) VerifyHTTPRequest(req *http.Request) (string, error) {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header: %w", ErrUnauthorized)
	}
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", fmt.Errorf("the Authorization header is invalid, expected 'Bearer <token>': %w", ErrUnauthorized)
	}

	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(io.LimitReader(req.Body, v.maxBodySizeBytes)); err != nil {
			return "", fmt.Errorf("reading request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	methodAndPath := fmt.Sprintf("%s %s", req.Method, req.URL.Path)
	var errs []error
	for _, manager := range v.managers {
		_, claims, err := manager.ParseToken(tokenString, methodAndPath, body)
		if err == nil {
			return claims.Subject, nil
		}
		errs = append(errs, err)
	}
	return "", fmt.Errorf("verifying JWT: %w: %w", errors.Join(errs...), ErrUnauthorized)
}

type callerContextKey struct{}

// WithCaller stores the authenticated calling service on ctx.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

func CallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(string)
	return caller, ok && caller != ""
}
