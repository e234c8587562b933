package httphandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/serve/httperror"
	"github.com/impactsmiles/smiles-wallet/internal/wallet"
)

type WalletHandler struct {
	// Managers holds one wallet manager per owner kind.
	Managers   map[entities.OwnerKind]wallet.Manager
	AppTracker apptracker.AppTracker
}

type CreateWalletRequest struct {
	OwnerKind string `json:"ownerKind" validate:"required,owner_kind"`
	OwnerID   string `json:"ownerId"   validate:"required"`
}

type WalletPathParams struct {
	OwnerKind string `validate:"required,owner_kind"`
	OwnerID   string `validate:"required"`
}

type BalanceResponse struct {
	OwnerKind entities.OwnerKind `json:"ownerKind"`
	OwnerID   string             `json:"ownerId"`
	entities.Balance
}

func (h WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody CreateWalletRequest
	if httpErr := DecodeJSONAndValidate(ctx, r, &reqBody, h.AppTracker); httpErr != nil {
		httpErr.Render(w)
		return
	}

	manager, httpErr := h.managerFor(reqBody.OwnerKind)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	created, err := manager.CreateWallet(ctx, reqBody.OwnerID)
	if err != nil {
		h.walletErrorResponse(ctx, err).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, created, httpjson.JSON)
}

func (h WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	manager, ownerID, httpErr := h.fromPath(r)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	found, err := manager.GetWallet(ctx, ownerID)
	if err != nil {
		h.walletErrorResponse(ctx, err).Render(w)
		return
	}

	httpjson.Render(w, found, httpjson.JSON)
}

func (h WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	manager, ownerID, httpErr := h.fromPath(r)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	balance, err := manager.GetLiveBalance(ctx, ownerID)
	if err != nil {
		h.walletErrorResponse(ctx, err).Render(w)
		return
	}

	httpjson.Render(w, BalanceResponse{
		OwnerKind: manager.OwnerKind(),
		OwnerID:   ownerID,
		Balance:   balance,
	}, httpjson.JSON)
}

func (h WalletHandler) fromPath(r *http.Request) (wallet.Manager, string, *httperror.ErrorResponse) {
	params := WalletPathParams{
		OwnerKind: chi.URLParam(r, "ownerKind"),
		OwnerID:   chi.URLParam(r, "ownerID"),
	}
	if httpErr := ValidateRequestParams(r.Context(), params, h.AppTracker); httpErr != nil {
		return nil, "", httpErr
	}

	manager, httpErr := h.managerFor(params.OwnerKind)
	if httpErr != nil {
		return nil, "", httpErr
	}
	return manager, params.OwnerID, nil
}

func (h WalletHandler) managerFor(ownerKind string) (wallet.Manager, *httperror.ErrorResponse) {
	manager, ok := h.Managers[entities.OwnerKind(ownerKind)]
	if !ok {
		return nil, httperror.BadRequest("", map[string]interface{}{"ownerKind": "No wallets are managed for this owner kind"})
	}
	return manager, nil
}

func (h WalletHandler) walletErrorResponse(ctx context.Context, err error) *httperror.ErrorResponse {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound):
		return httperror.ResourceNotFound("", nil)
	case errors.Is(err, entities.ErrLedgerUnavailable):
		return httperror.ServiceUnavailable("", nil)
	case errors.Is(err, entities.ErrTransactionFailed):
		return httperror.UnprocessableEntity("The ledger rejected the wallet account.", map[string]interface{}{"errorKind": string(entities.KindOf(err))})
	default:
		return httperror.InternalServerError(ctx, "", err, nil, h.AppTracker)
	}
}
