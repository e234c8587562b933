package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/xdr"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

const (
	defaultHealthCheckTickInterval = 5 * time.Second
	getHealthMethodName            = "getHealth"
	rpcHealthyStatus               = "healthy"
)

var ErrAccountNotFound = errors.New("account not found")

// RPCService is the JSON-RPC transport to a Stellar RPC server.
type RPCService interface {
	GetTransaction(ctx context.Context, transactionHash string) (entities.RPCGetTransactionResult, error)
	SendTransaction(ctx context.Context, transactionXDR string) (entities.RPCSendTransactionResult, error)
	GetHealth(ctx context.Context) (entities.RPCGetHealthResult, error)
	GetLedgerEntries(ctx context.Context, keys []string) (entities.RPCGetLedgerEntriesResult, error)
	GetAccountLedgerSequence(ctx context.Context, address string) (int64, error)
	NetworkPassphrase() string
}

type rpcService struct {
	rpcURL                  string
	httpClient              utils.HTTPClient
	metricsService          metrics.MetricsService
	healthCheckTickInterval time.Duration
	networkPassphrase       string
}

var _ RPCService = (*rpcService)(nil)

func NewRPCService(rpcURL, networkPassphrase string, httpClient utils.HTTPClient, metricsService metrics.MetricsService) (*rpcService, error) {
	if rpcURL == "" {
		return nil, errors.New("rpcURL is required")
	}
	if networkPassphrase == "" {
		return nil, errors.New("networkPassphrase is required")
	}
	if httpClient == nil {
		return nil, errors.New("httpClient is required")
	}
	if metricsService == nil {
		return nil, errors.New("metricsService is required")
	}

	return &rpcService{
		rpcURL:                  rpcURL,
		httpClient:              httpClient,
		metricsService:          metricsService,
		healthCheckTickInterval: defaultHealthCheckTickInterval,
		networkPassphrase:       networkPassphrase,
	}, nil
}

// callRPC sends one JSON-RPC request and decodes its result into T, recording method-level metrics.
func callRPC[T any](ctx context.Context, r *rpcService, metricName, method string, params *entities.RPCParams) (T, error) {
	var result T
	startTime := time.Now()
	r.metricsService.IncRPCMethodCalls(metricName)
	defer func() {
		r.metricsService.ObserveRPCMethodDuration(metricName, time.Since(startTime).Seconds())
	}()

	resultBytes, err := r.sendRPCRequest(ctx, method, params)
	if err != nil {
		r.metricsService.IncRPCMethodErrors(metricName, "rpc_error")
		return result, fmt.Errorf("sending %s request: %w", method, err)
	}

	if err = json.Unmarshal(resultBytes, &result); err != nil {
		r.metricsService.IncRPCMethodErrors(metricName, "json_unmarshal_error")
		return result, fmt.Errorf("parsing %s result JSON: %w", method, err)
	}

	return result, nil
}

func (r *rpcService) GetTransaction(ctx context.Context, transactionHash string) (entities.RPCGetTransactionResult, error) {
	return callRPC[entities.RPCGetTransactionResult](ctx, r, "GetTransaction", "getTransaction", &entities.RPCParams{Hash: transactionHash})
}

func (r *rpcService) SendTransaction(ctx context.Context, transactionXDR string) (entities.RPCSendTransactionResult, error) {
	return callRPC[entities.RPCSendTransactionResult](ctx, r, "SendTransaction", "sendTransaction", &entities.RPCParams{Transaction: transactionXDR})
}

func (r *rpcService) GetHealth(ctx context.Context) (entities.RPCGetHealthResult, error) {
	return callRPC[entities.RPCGetHealthResult](ctx, r, "GetHealth", getHealthMethodName, nil)
}

func (r *rpcService) GetLedgerEntries(ctx context.Context, keys []string) (entities.RPCGetLedgerEntriesResult, error) {
	return callRPC[entities.RPCGetLedgerEntriesResult](ctx, r, "GetLedgerEntries", "getLedgerEntries", &entities.RPCParams{LedgerKeys: keys})
}

func (r *rpcService) GetAccountLedgerSequence(ctx context.Context, address string) (int64, error) {
	accountEntry, err := getAccountEntry(ctx, r, address)
	if err != nil {
		r.metricsService.IncRPCMethodErrors("GetAccountLedgerSequence", "account_entry_error")
		return 0, err
	}
	return int64(accountEntry.SeqNum), nil
}

func (r *rpcService) NetworkPassphrase() string {
	return r.networkPassphrase
}

// TrackRPCServiceHealth polls getHealth until ctx is done and mirrors the result into the RPC health gauges.
func (r *rpcService) TrackRPCServiceHealth(ctx context.Context) {
	ticker := time.NewTicker(r.healthCheckTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health, err := r.GetHealth(ctx)
			if err != nil {
				log.Ctx(ctx).Warnf("RPC health check failed: %v", err)
				r.metricsService.SetRPCServiceHealth(false)
				continue
			}
			r.metricsService.SetRPCServiceHealth(health.Status == rpcHealthyStatus)
			r.metricsService.SetRPCLatestLedger(int64(health.LatestLedger))
		}
	}
}

func (r *rpcService) sendRPCRequest(ctx context.Context, method string, params *entities.RPCParams) (json.RawMessage, error) {
	startTime := time.Now()
	r.metricsService.IncRPCRequests(method)
	defer func() {
		r.metricsService.ObserveRPCRequestDuration(method, time.Since(startTime).Seconds())
	}()

	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	// getHealth rejects an empty params object.
	if params != nil {
		payload["params"] = params
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		r.metricsService.IncRPCEndpointFailure(method)
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.rpcURL, bytes.NewReader(jsonData))
	if err != nil {
		r.metricsService.IncRPCEndpointFailure(method)
		return nil, fmt.Errorf("building RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.metricsService.IncRPCEndpointFailure(method)
		return nil, fmt.Errorf("sending POST request to RPC: %w", err)
	}
	defer utils.DeferredClose(ctx, resp.Body, "closing response body in the sendRPCRequest function")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.metricsService.IncRPCEndpointFailure(method)
		return nil, fmt.Errorf("reading RPC response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.metricsService.IncRPCEndpointFailure(method)
		return nil, fmt.Errorf("RPC returned status code=%d, body=%s", resp.StatusCode, string(body))
	}

	var res entities.RPCResponse
	if err = json.Unmarshal(body, &res); err != nil {
		r.metricsService.IncRPCEndpointFailure(method)
		return nil, fmt.Errorf("parsing RPC response JSON body %v: %w", string(body), err)
	}

	if res.Error != nil {
		r.metricsService.IncRPCEndpointFailure(method)
		return nil, fmt.Errorf("RPC error code=%d: %s", res.Error.Code, res.Error.Message)
	}

	if res.Result == nil {
		r.metricsService.IncRPCEndpointFailure(method)
		return nil, fmt.Errorf("response %s missing result field", string(body))
	}

	r.metricsService.IncRPCEndpointSuccess(method)
	return res.Result, nil
}

// ledgerEntryReader is the part of RPCService needed to decode ledger entries.
type ledgerEntryReader interface {
	GetLedgerEntries(ctx context.Context, keys []string) (entities.RPCGetLedgerEntriesResult, error)
}

func getLedgerEntryData(ctx context.Context, r ledgerEntryReader, keyXdr string) (*xdr.LedgerEntryData, error) {
	result, err := r.GetLedgerEntries(ctx, []string{keyXdr})
	if err != nil {
		return nil, fmt.Errorf("getting ledger entry: %w", err)
	}
	if len(result.Entries) == 0 {
		return nil, nil
	}

	var ledgerEntryData xdr.LedgerEntryData
	if err = xdr.SafeUnmarshalBase64(result.Entries[0].DataXDR, &ledgerEntryData); err != nil {
		return nil, fmt.Errorf("decoding ledger entry data: %w", err)
	}
	return &ledgerEntryData, nil
}

func getAccountEntry(ctx context.Context, r ledgerEntryReader, address string) (*xdr.AccountEntry, error) {
	keyXdr, err := utils.GetAccountLedgerKey(address)
	if err != nil {
		return nil, fmt.Errorf("getting ledger key for account %s: %w", address, err)
	}
	data, err := getLedgerEntryData(ctx, r, keyXdr)
	if err != nil {
		return nil, fmt.Errorf("reading account %s: %w", address, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	accountEntry, ok := data.GetAccount()
	if !ok {
		return nil, fmt.Errorf("ledger entry for %s is not an account entry", address)
	}
	return &accountEntry, nil
}

// getTrustLineEntry returns nil when the account holds no trustline for the asset.
func getTrustLineEntry(ctx context.Context, r ledgerEntryReader, address string, asset entities.Asset) (*xdr.TrustLineEntry, error) {
	keyXdr, err := utils.GetTrustlineLedgerKey(address, asset.Code, asset.Issuer)
	if err != nil {
		return nil, fmt.Errorf("getting trustline ledger key for account %s: %w", address, err)
	}
	data, err := getLedgerEntryData(ctx, r, keyXdr)
	if err != nil {
		return nil, fmt.Errorf("reading trustline of %s: %w", address, err)
	}
	if data == nil {
		return nil, nil
	}
	trustLine, ok := data.GetTrustLine()
	if !ok {
		return nil, fmt.Errorf("ledger entry for %s is not a trustline entry", address)
	}
	return &trustLine, nil
}
