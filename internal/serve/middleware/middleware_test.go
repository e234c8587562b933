package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/serve/auth"
)

func TestAuthenticationMiddleware(t *testing.T) {
	testCases := []struct {
		name            string
		setupMocks      func(mVerifier *auth.HTTPRequestVerifierMock, mAppTracker *apptracker.MockAppTracker)
		expectedStatus  int
		expectedMessage string
	}{
		{
			name: "🔴unauthorized",
			setupMocks: func(mVerifier *auth.HTTPRequestVerifierMock, _ *apptracker.MockAppTracker) {
				mVerifier.On("VerifyHTTPRequest", mock.Anything).Return("", auth.ErrUnauthorized).Once()
			},
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: `{"error":"Not authorized."}`,
		},
		{
			name: "🔴unexpected_error",
			setupMocks: func(mVerifier *auth.HTTPRequestVerifierMock, mAppTracker *apptracker.MockAppTracker) {
				mVerifier.On("VerifyHTTPRequest", mock.Anything).Return("", errors.New("reading request body: EOF")).Once()
				mAppTracker.On("CaptureException", mock.Anything).Return().Once()
			},
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: `{"error":"An error occurred while processing this request."}`,
		},
		{
			name: "🟢authorized_caller_is_on_the_context",
			setupMocks: func(mVerifier *auth.HTTPRequestVerifierMock, _ *apptracker.MockAppTracker) {
				mVerifier.On("VerifyHTTPRequest", mock.Anything).Return("feed-service", nil).Once()
			},
			expectedStatus:  http.StatusOK,
			expectedMessage: `{"caller":"feed-service"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mVerifier := auth.NewHTTPRequestVerifierMock(t)
			mAppTracker := apptracker.NewMockAppTracker(t)
			tc.setupMocks(mVerifier, mAppTracker)

			r := chi.NewRouter()
			r.Get("/unauthenticated", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			r.Group(func(r chi.Router) {
				r.Use(AuthenticationMiddleware(mVerifier, mAppTracker))
				r.Post("/authenticated", func(w http.ResponseWriter, r *http.Request) {
					caller, _ := auth.CallerFromContext(r.Context())
					w.WriteHeader(http.StatusOK)
					_ = json.NewEncoder(w).Encode(map[string]string{"caller": caller})
				})
			})

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest("POST", "/authenticated", nil))
			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.JSONEq(t, tc.expectedMessage, rr.Body.String())

			rr = httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest("GET", "/unauthenticated", nil))
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestRecoverHandler(t *testing.T) {
	getEntries := log.DefaultLogger.StartTest(log.ErrorLevel)
	appTrackerMock := apptracker.NewMockAppTracker(t)

	r := chi.NewRouter()
	errString := "test panic"
	r.Use(RecoverHandler(appTrackerMock))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		panic(errString)
	})

	appTrackerMock.On("CaptureException", errors.New("panic: "+errString)).Once()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error": "An error occurred while processing this request."}`, rr.Body.String())

	entries := getEntries()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Message, "panic: test panic", "should log the panic message")
}

func TestMetricsMiddleware(t *testing.T) {
	metricsService := metrics.NewMockMetricsService()
	metricsService.On("ObserveRequestDuration", "/wallets/{ownerKind}/{ownerID}", "GET", mock.AnythingOfType("float64")).Once()
	metricsService.On("IncNumRequests", "/wallets/{ownerKind}/{ownerID}", "GET", http.StatusNotFound).Once()
	defer metricsService.AssertExpectations(t)

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(metricsService))
	r.Get("/wallets/{ownerKind}/{ownerID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/wallets/user/u1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	call := func(remoteAddr, caller string) int {
		req := httptest.NewRequest("POST", "/donations", nil)
		req.RemoteAddr = remoteAddr
		if caller != "" {
			req = req.WithContext(auth.WithCaller(req.Context(), caller))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("burst_then_throttle", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, call("10.0.0.1:4000", ""))
		assert.Equal(t, http.StatusNoContent, call("10.0.0.1:4001", ""))
		assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:4002", ""))
	})

	t.Run("callers_have_separate_buckets", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, call("10.0.0.1:4003", "feed-service"))
		assert.Equal(t, http.StatusNoContent, call("10.0.0.2:4000", ""))
	})

	t.Run("refills_over_time", func(t *testing.T) {
		now = now.Add(time.Second)
		assert.Equal(t, http.StatusNoContent, call("10.0.0.1:4004", ""))
	})

	t.Run("prunes_idle_callers", func(t *testing.T) {
		now = now.Add(defaultLimiterIdleTTL + time.Second)
		assert.Equal(t, 3, limiter.Prune())
		assert.Equal(t, 0, limiter.Prune())
	})
}
