package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/stellar/go-stellar-sdk/amount"
	"github.com/stellar/go-stellar-sdk/xdr"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
)

// MaxTokenAmount is the largest whole-token amount whose stroop value fits an int64.
const MaxTokenAmount = math.MaxInt64 / amount.One

var (
	ErrSignerRequired = errors.New("a signer is required when the source is not the operator account")
	ErrSignerMismatch = errors.New("signer does not match the source account")
	errTryAgainLater  = errors.New("RPC asked to try again later")
	errInvalidAmount  = fmt.Errorf("amount must be between 1 and %d", MaxTokenAmount)
)

// ReceiptError is a definite non-success outcome for a submitted transaction.
type ReceiptError struct {
	TxHash      string
	Status      string
	ResultCodes []string
}

func (e *ReceiptError) Error() string {
	if len(e.ResultCodes) == 0 {
		return fmt.Sprintf("transaction %s finished with status %s", e.TxHash, e.Status)
	}
	return fmt.Sprintf("transaction %s finished with status %s: %s", e.TxHash, e.Status, strings.Join(e.ResultCodes, ", "))
}

func (e *ReceiptError) Unwrap() error {
	return entities.ErrTransactionFailed
}

// HasResultCode reports whether any transaction or operation result code equals code.
func (e *ReceiptError) HasResultCode(code string) bool {
	for _, c := range e.ResultCodes {
		if c == code {
			return true
		}
	}
	return false
}

// resultCodes decodes a base64 TransactionResult into its transaction code followed by one code per operation.
// Undecodable input yields nil.
func resultCodes(resultXDR string) []string {
	if resultXDR == "" {
		return nil
	}

	var txResult xdr.TransactionResult
	if err := xdr.SafeUnmarshalBase64(resultXDR, &txResult); err != nil {
		return nil
	}

	codes := []string{txResult.Result.Code.String()}
	opResults, ok := txResult.Result.GetResults()
	if !ok {
		return codes
	}
	for _, opResult := range opResults {
		codes = append(codes, operationResultCode(opResult))
	}
	return codes
}

func operationResultCode(opResult xdr.OperationResult) string {
	if opResult.Code != xdr.OperationResultCodeOpInner || opResult.Tr == nil {
		return opResult.Code.String()
	}

	tr := opResult.Tr
	switch tr.Type {
	case xdr.OperationTypePayment:
		if tr.PaymentResult != nil {
			return tr.PaymentResult.Code.String()
		}
	case xdr.OperationTypeChangeTrust:
		if tr.ChangeTrustResult != nil {
			return tr.ChangeTrustResult.Code.String()
		}
	case xdr.OperationTypeCreateAccount:
		if tr.CreateAccountResult != nil {
			return tr.CreateAccountResult.Code.String()
		}
	}
	return tr.Type.String()
}
