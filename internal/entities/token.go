package entities

// TokenOperationResult is returned by every ledger mutation. It is never persisted.
type TokenOperationResult struct {
	Success       bool      `json:"success"`
	TransactionID string    `json:"transactionId,omitempty"`
	NewBalance    *int64    `json:"newBalance,omitempty"`
	ErrorKind     ErrorKind `json:"errorKind,omitempty"`
}

// FailedOperation builds an unsuccessful result, keeping the transaction id when the ledger assigned one.
func FailedOperation(kind ErrorKind, txID string) TokenOperationResult {
	return TokenOperationResult{Success: false, TransactionID: txID, ErrorKind: kind}
}
