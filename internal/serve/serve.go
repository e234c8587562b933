package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/serve/middleware"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
)

const rateLimiterPruneInterval = 5 * time.Minute

type Configs struct {
	Port        int
	DatabaseURL string
	LogLevel    logrus.Level
	AppTracker  apptracker.AppTracker

	// Ledger
	NetworkPassphrase       string
	RPCURL                  string
	HorizonURL              string
	BaseFee                 int
	Token                   entities.Asset
	OperatorSignatureClient signing.SignatureClient
	IssuerSignatureClient   signing.SignatureClient
	LedgerRequestTimeout    time.Duration
	LedgerReceiptTimeout    time.Duration

	// Wallets
	KeyVaultMasterKey    string
	WalletInitialFunding decimal.Decimal
	RedisURL             string

	// Proofs
	ProofTopics       map[entities.ProofKind]string
	ProofScanCeiling  int
	ProofRetryWorkers int

	// Client auth and rate limiting. Empty keys disable auth; a zero rate disables limiting.
	ClientAuthPublicKeys []string
	ClientAuthMaxTimeout time.Duration
	RateLimitPerSecond   float64
	RateLimitBurst       int
}

func (cfg Configs) ServiceDependencies() ServiceDependencies {
	return ServiceDependencies{
		HTTPClientProvider:      NewHTTPClientProvider(cfg.LedgerRequestTimeout),
		OperatorSignatureClient: cfg.OperatorSignatureClient,
		IssuerSignatureClient:   cfg.IssuerSignatureClient,
		NetworkPassphrase:       cfg.NetworkPassphrase,
		RPCURL:                  cfg.RPCURL,
		HorizonURL:              cfg.HorizonURL,
		BaseFee:                 int64(cfg.BaseFee),
		LedgerReceiptTimeout:    cfg.LedgerReceiptTimeout,
		Token:                   cfg.Token,
		KeyVaultMasterKey:       cfg.KeyVaultMasterKey,
		WalletInitialFunding:    cfg.WalletInitialFunding,
		RedisURL:                cfg.RedisURL,
		ProofTopics:             cfg.ProofTopics,
		ProofScanCeiling:        cfg.ProofScanCeiling,
		ProofRetryWorkers:       cfg.ProofRetryWorkers,
		AppTracker:              cfg.AppTracker,
	}
}

func Serve(ctx context.Context, cfg Configs) error {
	container, handlerDeps, err := initHandlerDeps(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setting up handler dependencies: %w", err)
	}
	defer container.Close()

	if err = container.bootstrapLedger(ctx); err != nil {
		return fmt.Errorf("bootstrapping ledger accounts: %w", err)
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	go container.ledgerHealth.TrackRPCServiceHealth(bgCtx)
	if handlerDeps.RateLimiter != nil {
		go pruneRateLimiter(bgCtx, handlerDeps.RateLimiter)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	supporthttp.Run(supporthttp.Config{
		ListenAddr: addr,
		Handler:    NewHandler(handlerDeps),
		OnStarting: func() {
			log.Infof("Starting Smiles Wallet server on port %d", cfg.Port)
		},
		OnStopping: func() {
			log.Info("Stopping Smiles Wallet server")
		},
	})

	return nil
}

func initHandlerDeps(ctx context.Context, cfg Configs) (*serviceContainer, HandlerDependencies, error) {
	dbProvider, err := NewDatabaseProvider(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, HandlerDependencies{}, fmt.Errorf("creating database provider: %w", err)
	}

	deps := cfg.ServiceDependencies()
	deps.DatabaseProvider = dbProvider
	container, err := NewServiceContainer(ctx, deps)
	if err != nil {
		if closeErr := dbProvider.GetConnectionPool().Close(); closeErr != nil {
			log.Ctx(ctx).Errorf("closing database connection pool: %v", closeErr)
		}
		return nil, HandlerDependencies{}, fmt.Errorf("creating service container: %w", err)
	}

	handlerDeps := HandlerDependencies{ServiceContainer: container}
	if len(cfg.ClientAuthPublicKeys) > 0 {
		authProvider, err := NewAuthProvider(cfg.ClientAuthMaxTimeout, cfg.ClientAuthPublicKeys)
		if err != nil {
			container.Close()
			return nil, HandlerDependencies{}, fmt.Errorf("creating auth provider: %w", err)
		}
		handlerDeps.AuthProvider = authProvider
	} else {
		log.Ctx(ctx).Warn("No client auth public keys configured, the API is served without authentication")
	}
	if cfg.RateLimitPerSecond > 0 {
		handlerDeps.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	return container, handlerDeps, nil
}

func pruneRateLimiter(ctx context.Context, rateLimiter *middleware.RateLimiter) {
	ticker := time.NewTicker(rateLimiterPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := rateLimiter.Prune(); pruned > 0 {
				log.Debugf("Pruned %d idle rate limiter buckets", pruned)
			}
		}
	}
}
