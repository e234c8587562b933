package ledger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

const testRPCURL = "http://localhost:8000/rpc"

func TestNewRPCService(t *testing.T) {
	httpClient := &utils.MockHTTPClient{}
	metricsService := metrics.NewMockMetricsService()

	testCases := []struct {
		name       string
		rpcURL     string
		passphrase string
		httpClient utils.HTTPClient
		metrics    metrics.MetricsService
		wantErr    string
	}{
		{name: "missing_url", passphrase: network.TestNetworkPassphrase, httpClient: httpClient, metrics: metricsService, wantErr: "rpcURL is required"},
		{name: "missing_passphrase", rpcURL: testRPCURL, httpClient: httpClient, metrics: metricsService, wantErr: "networkPassphrase is required"},
		{name: "missing_http_client", rpcURL: testRPCURL, passphrase: network.TestNetworkPassphrase, metrics: metricsService, wantErr: "httpClient is required"},
		{name: "missing_metrics", rpcURL: testRPCURL, passphrase: network.TestNetworkPassphrase, httpClient: httpClient, wantErr: "metricsService is required"},
		{name: "ok", rpcURL: testRPCURL, passphrase: network.TestNetworkPassphrase, httpClient: httpClient, metrics: metricsService},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewRPCService(tc.rpcURL, tc.passphrase, tc.httpClient, tc.metrics)
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, network.TestNetworkPassphrase, svc.NetworkPassphrase())
		})
	}
}

func TestRPCServiceSendTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_the_decoded_result", func(t *testing.T) {
		httpClient := &utils.MockHTTPClient{}
		defer httpClient.AssertExpectations(t)
		svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, newPermissiveMetricsMock())
		require.NoError(t, err)

		httpClient.
			On("Do", rpcMethodIs("sendTransaction")).
			Return(rpcHTTPResponse(t, entities.RPCSendTransactionResult{Status: entities.RPCSendStatusPending, Hash: "abc"}), nil).
			Once()

		result, err := svc.SendTransaction(ctx, "AAAA")
		require.NoError(t, err)
		assert.Equal(t, entities.RPCSendStatusPending, result.Status)
		assert.Equal(t, "abc", result.Hash)
	})

	t.Run("http_failure", func(t *testing.T) {
		httpClient := &utils.MockHTTPClient{}
		defer httpClient.AssertExpectations(t)
		svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, newPermissiveMetricsMock())
		require.NoError(t, err)

		httpClient.
			On("Do", mock.AnythingOfType("*http.Request")).
			Return(nil, errors.New("connection refused")).
			Once()

		_, err = svc.SendTransaction(ctx, "AAAA")
		assert.EqualError(t, err, "sending sendTransaction request: sending POST request to RPC: connection refused")
	})

	t.Run("rpc_error_object", func(t *testing.T) {
		httpClient := &utils.MockHTTPClient{}
		defer httpClient.AssertExpectations(t)
		svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, newPermissiveMetricsMock())
		require.NoError(t, err)

		httpClient.
			On("Do", mock.AnythingOfType("*http.Request")).
			Return(&http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid parameters"}}`)),
			}, nil).
			Once()

		_, err = svc.SendTransaction(ctx, "AAAA")
		assert.EqualError(t, err, "sending sendTransaction request: RPC error code=-32602: invalid parameters")
	})

	t.Run("non_200_status", func(t *testing.T) {
		httpClient := &utils.MockHTTPClient{}
		defer httpClient.AssertExpectations(t)
		svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, newPermissiveMetricsMock())
		require.NoError(t, err)

		httpClient.
			On("Do", mock.AnythingOfType("*http.Request")).
			Return(&http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(bytes.NewReader([]byte("bad gateway")))}, nil).
			Once()

		_, err = svc.SendTransaction(ctx, "AAAA")
		assert.EqualError(t, err, "sending sendTransaction request: RPC returned status code=502, body=bad gateway")
	})

	t.Run("missing_result", func(t *testing.T) {
		httpClient := &utils.MockHTTPClient{}
		defer httpClient.AssertExpectations(t)
		svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, newPermissiveMetricsMock())
		require.NoError(t, err)

		httpClient.
			On("Do", mock.AnythingOfType("*http.Request")).
			Return(&http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"jsonrpc":"2.0","id":1}`))}, nil).
			Once()

		_, err = svc.SendTransaction(ctx, "AAAA")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing result field")
	})
}

func TestRPCServiceGetHealthOmitsParams(t *testing.T) {
	httpClient := &utils.MockHTTPClient{}
	defer httpClient.AssertExpectations(t)
	svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, newPermissiveMetricsMock())
	require.NoError(t, err)

	httpClient.
		On("Do", mock.MatchedBy(func(req *http.Request) bool {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return false
			}
			raw, bodyErr := io.ReadAll(body)
			return bodyErr == nil && !strings.Contains(string(raw), "params")
		})).
		Return(rpcHTTPResponse(t, entities.RPCGetHealthResult{Status: "healthy", LatestLedger: 42}), nil).
		Once()

	health, err := svc.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, uint32(42), health.LatestLedger)
}

func TestRPCServiceGetAccountLedgerSequence(t *testing.T) {
	ctx := context.Background()
	address := keypair.MustRandom().Address()

	t.Run("account_exists", func(t *testing.T) {
		httpClient := &utils.MockHTTPClient{}
		defer httpClient.AssertExpectations(t)
		svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, newPermissiveMetricsMock())
		require.NoError(t, err)

		httpClient.
			On("Do", rpcMethodIs("getLedgerEntries")).
			Return(rpcHTTPResponse(t, ledgerEntries(accountEntryXDR(t, address, 123, 20_000_000))), nil).
			Once()

		sequence, err := svc.GetAccountLedgerSequence(ctx, address)
		require.NoError(t, err)
		assert.Equal(t, int64(123), sequence)
	})

	t.Run("account_missing", func(t *testing.T) {
		httpClient := &utils.MockHTTPClient{}
		defer httpClient.AssertExpectations(t)
		svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, newPermissiveMetricsMock())
		require.NoError(t, err)

		httpClient.
			On("Do", rpcMethodIs("getLedgerEntries")).
			Return(rpcHTTPResponse(t, ledgerEntries()), nil).
			Once()

		_, err = svc.GetAccountLedgerSequence(ctx, address)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestTrackRPCServiceHealth(t *testing.T) {
	httpClient := &utils.MockHTTPClient{}
	metricsService := newPermissiveMetricsMock()
	svc, err := NewRPCService(testRPCURL, network.TestNetworkPassphrase, httpClient, metricsService)
	require.NoError(t, err)
	svc.healthCheckTickInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient.
		On("Do", rpcMethodIs(getHealthMethodName)).
		Return(func(*http.Request) *http.Response {
			return rpcHTTPResponse(t, entities.RPCGetHealthResult{Status: "healthy", LatestLedger: 77})
		}, nil)
	metricsService.On("SetRPCServiceHealth", true).Return()
	metricsService.On("SetRPCLatestLedger", int64(77)).Run(func(mock.Arguments) { cancel() }).Return()

	done := make(chan struct{})
	go func() {
		svc.TrackRPCServiceHealth(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("health tracking did not stop after the context was cancelled")
	}
	metricsService.AssertCalled(t, "SetRPCServiceHealth", true)
}
