package httphandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/serve/httperror"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB         Pinger
	Ledger     ledger.Client
	AppTracker apptracker.AppTracker
}

func (h HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.DB.Ping(ctx); err != nil {
		httperror.ServiceUnavailable("The database is unavailable.", map[string]interface{}{"database": err.Error()}).Render(w)
		return
	}

	rpcHealth, err := h.Ledger.Health(ctx)
	if err != nil {
		httperror.ServiceUnavailable("", map[string]interface{}{"rpc": err.Error()}).Render(w)
		return
	}
	if rpcHealth.Status != "healthy" {
		httperror.InternalServerError(ctx, "", errors.New("RPC is not healthy"), map[string]interface{}{"rpc_status": rpcHealth.Status}, h.AppTracker).Render(w)
		return
	}

	httpjson.Render(w, map[string]interface{}{
		"status":            "ok",
		"rpc_latest_ledger": rpcHealth.LatestLedger,
	}, httpjson.JSON)
}
