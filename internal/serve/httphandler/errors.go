package httphandler

import (
	"context"
	"errors"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/data"
	"github.com/impactsmiles/smiles-wallet/internal/economy"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/serve/httperror"
)

// economyErrorResponse maps a failed economy call to its HTTP response. Failures the economy reports by kind carry
// the kind and transaction in the extras.
func economyErrorResponse(ctx context.Context, err error, settlement economy.Settlement, appTracker apptracker.AppTracker) *httperror.ErrorResponse {
	switch {
	case errors.Is(err, economy.ErrInvalidRequest):
		return httperror.BadRequest(err.Error(), nil)
	case errors.Is(err, data.ErrMissionAlreadyRewarded):
		return httperror.Conflict("Mission was already rewarded for this user.", nil)
	case errors.Is(err, entities.ErrNotFound):
		return httperror.ResourceNotFound(err.Error(), nil)
	case errors.Is(err, entities.ErrInsufficientBalance):
		return httperror.UnprocessableEntity("Insufficient balance.", settlementExtras(err, settlement))
	case errors.Is(err, entities.ErrAssociationFailed),
		errors.Is(err, entities.ErrTransactionFailed),
		errors.Is(err, entities.ErrTransferAfterMintFailed):
		return httperror.UnprocessableEntity("The ledger did not settle the operation.", settlementExtras(err, settlement))
	case errors.Is(err, entities.ErrLedgerUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return httperror.ServiceUnavailable("", settlementExtras(err, settlement))
	default:
		return httperror.InternalServerError(ctx, "", err, nil, appTracker)
	}
}

func settlementExtras(err error, settlement economy.Settlement) map[string]interface{} {
	extras := map[string]interface{}{"errorKind": string(entities.KindOf(err))}
	if settlement.TransactionID != "" {
		extras["transactionId"] = settlement.TransactionID
	}
	return extras
}
