package httphandler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
)

type pingerMock struct {
	mock.Mock
}

func (p *pingerMock) Ping(ctx context.Context) error {
	return p.Called(ctx).Error(0)
}

func TestHealthHandler_GetHealth(t *testing.T) {
	testCases := []struct {
		name               string
		pingErr            error
		rpcHealth          entities.RPCGetHealthResult
		rpcErr             error
		expectCapture      bool
		expectedStatusCode int
		expectedBody       string
	}{
		{
			name:               "healthy",
			rpcHealth:          entities.RPCGetHealthResult{Status: "healthy", LatestLedger: 100},
			expectedStatusCode: http.StatusOK,
			expectedBody:       `{"status":"ok","rpc_latest_ledger":100}`,
		},
		{
			name:               "database_down",
			pingErr:            errors.New("connection refused"),
			expectedStatusCode: http.StatusServiceUnavailable,
			expectedBody:       `{"error":"The database is unavailable.","extras":{"database":"connection refused"}}`,
		},
		{
			name:               "rpc_unreachable",
			rpcErr:             errors.New("ledger unavailable: dial tcp"),
			expectedStatusCode: http.StatusServiceUnavailable,
			expectedBody:       `{"error":"The ledger is currently unavailable, try again later.","extras":{"rpc":"ledger unavailable: dial tcp"}}`,
		},
		{
			name:               "rpc_unhealthy",
			rpcHealth:          entities.RPCGetHealthResult{Status: "catching_up"},
			expectCapture:      true,
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody:       `{"error":"An error occurred while processing this request.","extras":{"rpc_status":"catching_up"}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pinger := &pingerMock{}
			pinger.On("Ping", mock.Anything).Return(tc.pingErr).Once()
			ledgerClient := ledger.NewClientMock(t)
			if tc.pingErr == nil {
				ledgerClient.On("Health", mock.Anything).Return(tc.rpcHealth, tc.rpcErr).Once()
			}
			appTracker := apptracker.NewMockAppTracker(t)
			if tc.expectCapture {
				appTracker.On("CaptureException", mock.Anything).Return().Once()
			}
			handler := HealthHandler{DB: pinger, Ledger: ledgerClient, AppTracker: appTracker}

			rw := serve(t, http.HandlerFunc(handler.GetHealth), http.MethodGet, "/health", "")

			assert.Equal(t, tc.expectedStatusCode, rw.Code)
			assert.JSONEq(t, tc.expectedBody, rw.Body.String())
			pinger.AssertExpectations(t)
		})
	}
}
