package serve

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/serve/httperror"
	"github.com/impactsmiles/smiles-wallet/internal/serve/httphandler"
	"github.com/impactsmiles/smiles-wallet/internal/serve/middleware"
)

// NewHandler creates the main HTTP handler with all routes configured
func NewHandler(deps HandlerDependencies) http.Handler {
	container := deps.ServiceContainer

	mux := supporthttp.NewAPIMux(log.DefaultLogger)
	mux.NotFound(httperror.ErrorHandler{Error: httperror.NotFound}.ServeHTTP)
	mux.MethodNotAllowed(httperror.ErrorHandler{Error: httperror.MethodNotAllowed}.ServeHTTP)

	setupMiddleware(mux, container)
	setupPublicRoutes(mux, container)
	setupPotentiallyAuthenticatedRoutes(mux, container, deps.AuthProvider, deps.RateLimiter)

	return mux
}

func setupMiddleware(mux *chi.Mux, container ServiceContainer) {
	mux.Use(middleware.MetricsMiddleware(container.GetMetricsService()))
	mux.Use(middleware.RecoverHandler(container.GetAppTracker()))
}

func setupPublicRoutes(mux *chi.Mux, container ServiceContainer) {
	mux.Get("/health", httphandler.HealthHandler{
		DB:         container.GetConnectionPool(),
		Ledger:     container.GetLedgerClient(),
		AppTracker: container.GetAppTracker(),
	}.GetHealth)

	mux.Get("/api-metrics", promhttp.HandlerFor(
		container.GetMetricsService().GetRegistry(),
		promhttp.HandlerOpts{},
	).ServeHTTP)
}

func setupPotentiallyAuthenticatedRoutes(mux *chi.Mux, container ServiceContainer, authProvider AuthProvider, rateLimiter *middleware.RateLimiter) {
	mux.Group(func(r chi.Router) {
		if authProvider != nil {
			r.Use(middleware.AuthenticationMiddleware(authProvider.GetRequestVerifier(), container.GetAppTracker()))
		}
		if rateLimiter != nil {
			r.Use(rateLimiter.Handler)
		}

		setupEconomyRoutes(r, container)
		setupWalletRoutes(r, container)
		setupProofRoutes(r, container)
	})
}

func setupEconomyRoutes(r chi.Router, container ServiceContainer) {
	handler := &httphandler.EconomyHandler{
		Orchestrator: container.GetOrchestrator(),
		Records:      container.GetRecords(),
		AppTracker:   container.GetAppTracker(),
	}

	r.Post("/missions/{missionID}/complete", handler.CompleteMission)
	r.Post("/rewards/{rewardID}/purchase", handler.PurchaseReward)
	r.Post("/donations", handler.TransferDonation)
	r.Post("/badges/{badgeID}/award", handler.AwardBadge)
}

func setupWalletRoutes(r chi.Router, container ServiceContainer) {
	r.Route("/wallets", func(r chi.Router) {
		handler := &httphandler.WalletHandler{
			Managers:   container.GetWalletManagers(),
			AppTracker: container.GetAppTracker(),
		}

		r.Post("/", handler.CreateWallet)
		r.Get("/{ownerKind}/{ownerID}", handler.GetWallet)
		r.Get("/{ownerKind}/{ownerID}/balance", handler.GetBalance)
	})
}

func setupProofRoutes(r chi.Router, container ServiceContainer) {
	r.Route("/proofs/{kind}", func(r chi.Router) {
		handler := &httphandler.ProofHandler{
			Proofs:     container.GetProofLedger(),
			AppTracker: container.GetAppTracker(),
		}

		r.Get("/{proofHash}/verify", handler.Verify)
		r.Get("/aggregate", handler.Aggregate)
	})
}
