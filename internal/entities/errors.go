package entities

import "errors"

// ErrorKind classifies why a token or economy operation did not succeed. It travels on results so callers can
// decide between retrying, reconciling or reporting.
type ErrorKind string

const (
	ErrorKindNone                    ErrorKind = ""
	ErrorKindConfiguration           ErrorKind = "configuration_error"
	ErrorKindLedgerUnavailable       ErrorKind = "ledger_unavailable"
	ErrorKindTransactionFailed       ErrorKind = "transaction_failed"
	ErrorKindInsufficientBalance     ErrorKind = "insufficient_balance"
	ErrorKindAssociationFailed       ErrorKind = "association_failed"
	ErrorKindTransferAfterMintFailed ErrorKind = "transfer_after_mint_failed"
	ErrorKindDecryptionFailed        ErrorKind = "decryption_failed"
	ErrorKindProofLogFailed          ErrorKind = "proof_log_failed"
	ErrorKindNotFound                ErrorKind = "not_found"
)

var (
	ErrConfiguration           = errors.New("configuration error")
	ErrLedgerUnavailable       = errors.New("ledger unavailable")
	ErrTransactionFailed       = errors.New("ledger transaction failed")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrAssociationFailed       = errors.New("token association failed")
	ErrTransferAfterMintFailed = errors.New("transfer after mint failed")
	ErrDecryptionFailed        = errors.New("private key decryption failed")
	ErrProofLogFailed          = errors.New("proof log failed")
	ErrNotFound                = errors.New("record not found")
)

var kindsBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrTransferAfterMintFailed, ErrorKindTransferAfterMintFailed},
	{ErrAssociationFailed, ErrorKindAssociationFailed},
	{ErrDecryptionFailed, ErrorKindDecryptionFailed},
	{ErrInsufficientBalance, ErrorKindInsufficientBalance},
	{ErrTransactionFailed, ErrorKindTransactionFailed},
	{ErrLedgerUnavailable, ErrorKindLedgerUnavailable},
	{ErrProofLogFailed, ErrorKindProofLogFailed},
	{ErrConfiguration, ErrorKindConfiguration},
	{ErrNotFound, ErrorKindNotFound},
}

// KindOf maps an error chain to its ErrorKind. The more specific kinds win when several sentinels are wrapped.
// Errors outside the taxonomy are treated as ledger unavailability, the only kind that does not claim a definite
// outcome.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	for _, k := range kindsBySentinel {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ErrorKindLedgerUnavailable
}

// Sentinel returns the sentinel error for a kind, so results can be turned back into wrappable errors.
func (k ErrorKind) Sentinel() error {
	for _, ks := range kindsBySentinel {
		if ks.kind == k {
			return ks.err
		}
	}
	return nil
}
