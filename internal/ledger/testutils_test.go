package ledger

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"testing"

	"github.com/stellar/go-stellar-sdk/xdr"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
)

func newPermissiveMetricsMock() *metrics.MockMetricsService {
	m := metrics.NewMockMetricsService()
	for _, method := range []string{"IncRPCRequests", "IncRPCEndpointFailure", "IncRPCEndpointSuccess", "IncRPCMethodCalls"} {
		m.On(method, mock.Anything).Return().Maybe()
	}
	for _, method := range []string{"ObserveRPCRequestDuration", "ObserveRPCMethodDuration", "IncRPCMethodErrors"} {
		m.On(method, mock.Anything, mock.Anything).Return().Maybe()
	}
	return m
}

func rpcHTTPResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	body, err := json.Marshal(entities.RPCResponse{Result: raw, JSONRPC: "2.0", ID: 1})
	require.NoError(t, err)
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body))}
}

// rpcMethodIs matches requests for one JSON-RPC method without consuming the request body.
func rpcMethodIs(method string) any {
	return mock.MatchedBy(func(req *http.Request) bool {
		body, err := req.GetBody()
		if err != nil {
			return false
		}
		var payload struct {
			Method string `json:"method"`
		}
		if err = json.NewDecoder(body).Decode(&payload); err != nil {
			return false
		}
		return payload.Method == method
	})
}

func accountEntryXDR(t *testing.T, address string, sequence, balance int64) string {
	t.Helper()
	data := xdr.LedgerEntryData{
		Type: xdr.LedgerEntryTypeAccount,
		Account: &xdr.AccountEntry{
			AccountId: xdr.MustAddress(address),
			Balance:   xdr.Int64(balance),
			SeqNum:    xdr.SequenceNumber(sequence),
		},
	}
	encoded, err := xdr.MarshalBase64(data)
	require.NoError(t, err)
	return encoded
}

func trustLineEntryXDR(t *testing.T, address string, asset entities.Asset, balance int64) string {
	t.Helper()
	data := xdr.LedgerEntryData{
		Type: xdr.LedgerEntryTypeTrustline,
		TrustLine: &xdr.TrustLineEntry{
			AccountId: xdr.MustAddress(address),
			Asset:     xdr.MustNewCreditAsset(asset.Code, asset.Issuer).ToTrustLineAsset(),
			Balance:   xdr.Int64(balance),
			Limit:     xdr.Int64(math.MaxInt64),
			Flags:     xdr.Uint32(xdr.TrustLineFlagsAuthorizedFlag),
		},
	}
	encoded, err := xdr.MarshalBase64(data)
	require.NoError(t, err)
	return encoded
}

func ledgerEntries(dataXDRs ...string) entities.RPCGetLedgerEntriesResult {
	result := entities.RPCGetLedgerEntriesResult{LatestLedger: 1000}
	for _, dataXDR := range dataXDRs {
		result.Entries = append(result.Entries, entities.RPCLedgerEntry{DataXDR: dataXDR, LastModifiedLedger: 999})
	}
	return result
}

func failedResultXDR(t *testing.T, paymentCode xdr.PaymentResultCode) string {
	t.Helper()
	txResult := xdr.TransactionResult{
		FeeCharged: 100,
		Result: xdr.TransactionResultResult{
			Code: xdr.TransactionResultCodeTxFailed,
			Results: &[]xdr.OperationResult{{
				Code: xdr.OperationResultCodeOpInner,
				Tr: &xdr.OperationResultTr{
					Type:          xdr.OperationTypePayment,
					PaymentResult: &xdr.PaymentResult{Code: paymentCode},
				},
			}},
		},
	}
	encoded, err := xdr.MarshalBase64(txResult)
	require.NoError(t, err)
	return encoded
}

func txResultCodeXDR(t *testing.T, code xdr.TransactionResultCode) string {
	t.Helper()
	encoded, err := xdr.MarshalBase64(xdr.TransactionResult{FeeCharged: 100, Result: xdr.TransactionResultResult{Code: code}})
	require.NoError(t, err)
	return encoded
}
