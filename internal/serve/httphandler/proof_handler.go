package httphandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/proof"
	"github.com/impactsmiles/smiles-wallet/internal/serve/httperror"
)

type ProofHandler struct {
	Proofs     proof.ProofLedger
	AppTracker apptracker.AppTracker
}

type VerifyProofParams struct {
	Kind      string `validate:"required,proof_kind"`
	ProofHash string `validate:"required,proof_hash"`
}

type AggregateProofParams struct {
	Kind string `validate:"required,proof_kind"`
}

type VerifyProofResponse struct {
	Kind      entities.ProofKind `json:"kind"`
	ProofHash string             `json:"proofHash"`
	Anchored  bool               `json:"anchored"`
}

func (h ProofHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := VerifyProofParams{
		Kind:      chi.URLParam(r, "kind"),
		ProofHash: chi.URLParam(r, "proofHash"),
	}
	if httpErr := ValidateRequestParams(ctx, params, h.AppTracker); httpErr != nil {
		httpErr.Render(w)
		return
	}

	kind := entities.ProofKind(params.Kind)
	anchored, err := h.Proofs.Verify(ctx, kind, params.ProofHash)
	if err != nil {
		h.proofErrorResponse(r, err).Render(w)
		return
	}

	httpjson.Render(w, VerifyProofResponse{Kind: kind, ProofHash: params.ProofHash, Anchored: anchored}, httpjson.JSON)
}

func (h ProofHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := AggregateProofParams{Kind: chi.URLParam(r, "kind")}
	if httpErr := ValidateRequestParams(ctx, params, h.AppTracker); httpErr != nil {
		httpErr.Render(w)
		return
	}

	aggregate, err := h.Proofs.Aggregate(ctx, entities.ProofKind(params.Kind))
	if err != nil {
		h.proofErrorResponse(r, err).Render(w)
		return
	}

	httpjson.Render(w, aggregate, httpjson.JSON)
}

func (h ProofHandler) proofErrorResponse(r *http.Request, err error) *httperror.ErrorResponse {
	if errors.Is(err, entities.ErrLedgerUnavailable) {
		return httperror.ServiceUnavailable("", nil)
	}
	return httperror.InternalServerError(r.Context(), "", err, nil, h.AppTracker)
}
