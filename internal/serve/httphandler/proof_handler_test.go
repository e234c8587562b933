package httphandler

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/proof"
)

func newProofRouter(t *testing.T) (chi.Router, *proof.ProofLedgerMock, *apptracker.MockAppTracker) {
	t.Helper()
	proofs := proof.NewProofLedgerMock(t)
	appTracker := apptracker.NewMockAppTracker(t)
	handler := ProofHandler{Proofs: proofs, AppTracker: appTracker}

	r := chi.NewRouter()
	r.Get("/proofs/{kind}/{proofHash}/verify", handler.Verify)
	r.Get("/proofs/{kind}/aggregate", handler.Aggregate)
	return r, proofs, appTracker
}

func TestProofHandler_Verify(t *testing.T) {
	hash := strings.Repeat("ab", 32)

	t.Run("anchored", func(t *testing.T) {
		r, proofs, _ := newProofRouter(t)
		proofs.On("Verify", mock.Anything, entities.ProofKindDonation, hash).Return(true, nil).Once()

		rw := serve(t, r, http.MethodGet, "/proofs/donation/"+hash+"/verify", "")

		assert.Equal(t, http.StatusOK, rw.Code)
		assert.JSONEq(t, `{"kind":"donation","proofHash":"`+hash+`","anchored":true}`, rw.Body.String())
	})

	t.Run("not_a_hash", func(t *testing.T) {
		r, _, _ := newProofRouter(t)

		rw := serve(t, r, http.MethodGet, "/proofs/donation/xyz/verify", "")

		assert.Equal(t, http.StatusBadRequest, rw.Code)
		assert.Contains(t, rw.Body.String(), "Should be a hex encoded SHA-256 hash")
	})

	t.Run("unknown_kind", func(t *testing.T) {
		r, _, _ := newProofRouter(t)

		rw := serve(t, r, http.MethodGet, "/proofs/purchase/"+hash+"/verify", "")

		assert.Equal(t, http.StatusBadRequest, rw.Code)
	})

	t.Run("ledger_unavailable", func(t *testing.T) {
		r, proofs, _ := newProofRouter(t)
		proofs.On("Verify", mock.Anything, entities.ProofKindBadgeAward, hash).Return(false, entities.ErrLedgerUnavailable).Once()

		rw := serve(t, r, http.MethodGet, "/proofs/badge_award/"+hash+"/verify", "")

		assert.Equal(t, http.StatusServiceUnavailable, rw.Code)
	})
}

func TestProofHandler_Aggregate(t *testing.T) {
	t.Run("aggregate", func(t *testing.T) {
		r, proofs, _ := newProofRouter(t)
		proofs.
			On("Aggregate", mock.Anything, entities.ProofKindMissionCompletion).
			Return(proof.Aggregate{
				Kind:        entities.ProofKindMissionCompletion,
				Count:       3,
				UniqueUsers: 2,
				Sums:        map[string]decimal.Decimal{"reward": decimal.NewFromInt(30)},
			}, nil).
			Once()

		rw := serve(t, r, http.MethodGet, "/proofs/mission_completion/aggregate", "")

		assert.Equal(t, http.StatusOK, rw.Code)
		assert.JSONEq(t, `{"kind":"mission_completion","count":3,"uniqueUsers":2,"sums":{"reward":"30"},"unresolved":0}`, rw.Body.String())
	})

	t.Run("unexpected_error", func(t *testing.T) {
		r, proofs, appTracker := newProofRouter(t)
		proofs.On("Aggregate", mock.Anything, entities.ProofKindDonation).Return(proof.Aggregate{}, errors.New("boom")).Once()
		appTracker.On("CaptureException", mock.Anything).Return().Once()

		rw := serve(t, r, http.MethodGet, "/proofs/donation/aggregate", "")

		assert.Equal(t, http.StatusInternalServerError, rw.Code)
	})
}
