package entities

import "encoding/json"

// sendTransaction statuses. getTransaction statuses come from the stellar-rpc protocol package.
const (
	RPCSendStatusPending       = "PENDING"
	RPCSendStatusDuplicate     = "DUPLICATE"
	RPCSendStatusTryAgainLater = "TRY_AGAIN_LATER"
	RPCSendStatusError         = "ERROR"
)

type RPCParams struct {
	Transaction string   `json:"transaction,omitempty"`
	Hash        string   `json:"hash,omitempty"`
	LedgerKeys  []string `json:"keys,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type RPCResponse struct {
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
}

type RPCSendTransactionResult struct {
	Status         string `json:"status"`
	Hash           string `json:"hash"`
	LatestLedger   int64  `json:"latestLedger"`
	ErrorResultXDR string `json:"errorResultXdr"`
}

type RPCGetTransactionResult struct {
	Status        string `json:"status"`
	TxHash        string `json:"txHash"`
	LatestLedger  int64  `json:"latestLedger"`
	Ledger        int64  `json:"ledger"`
	EnvelopeXDR   string `json:"envelopeXdr"`
	ResultXDR     string `json:"resultXdr"`
	ResultMetaXDR string `json:"resultMetaXdr"`
}

type RPCLedgerEntry struct {
	KeyXDR             string `json:"key"`
	DataXDR            string `json:"xdr"`
	LastModifiedLedger int64  `json:"lastModifiedLedgerSeq"`
}

type RPCGetLedgerEntriesResult struct {
	Entries      []RPCLedgerEntry `json:"entries"`
	LatestLedger int64            `json:"latestLedger"`
}

type RPCGetHealthResult struct {
	Status                string `json:"status"`
	LatestLedger          uint32 `json:"latestLedger"`
	OldestLedger          uint32 `json:"oldestLedger"`
	LedgerRetentionWindow uint32 `json:"ledgerRetentionWindow"`
}
