package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/serve/auth"
	"github.com/impactsmiles/smiles-wallet/internal/serve/httperror"
)

// AuthenticationMiddleware rejects requests whose bearer token no configured service key signed. The calling service
// is stored on the request context.
func AuthenticationMiddleware(verifier auth.HTTPRequestVerifier, appTracker apptracker.AppTracker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			caller, err := verifier.VerifyHTTPRequest(req)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthorized) {
					httperror.InternalServerError(ctx, "", fmt.Errorf("verifying request: %w", err), nil, appTracker).Render(rw)
					return
				}
				log.Ctx(ctx).Debugf("unauthorized request to %s %s: %v", req.Method, req.URL.Path, err)
				httperror.Unauthorized("", nil).Render(rw)
				return
			}

			next.ServeHTTP(rw, req.WithContext(auth.WithCaller(ctx, caller)))
		})
	}
}

// RecoverHandler turns a panicking handler into a 500 and reports it.
func RecoverHandler(appTracker apptracker.AppTracker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				ctx := req.Context()
				err := fmt.Errorf("panic: %v", r)
				log.Ctx(ctx).Errorf("%s\n%s", err, debug.Stack())
				httperror.InternalServerError(ctx, "", err, nil, appTracker).Render(rw)
			}()

			next.ServeHTTP(rw, req)
		})
	}
}
