package serve

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/data"
	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/economy"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/proof"
	"github.com/impactsmiles/smiles-wallet/internal/serve/auth"
	"github.com/impactsmiles/smiles-wallet/internal/serve/middleware"
	"github.com/impactsmiles/smiles-wallet/internal/signing"
	"github.com/impactsmiles/smiles-wallet/internal/wallet"
)

// DatabaseProvider provides the database connection pool
type DatabaseProvider interface {
	GetConnectionPool() db.ConnectionPool
}

// HTTPClientProvider provides HTTP clients
type HTTPClientProvider interface {
	GetClient() *http.Client
}

// AuthProvider provides authentication components
type AuthProvider interface {
	GetRequestVerifier() auth.HTTPRequestVerifier
}

// ServiceDependencies holds the basic dependencies needed for service creation
type ServiceDependencies struct {
	DatabaseProvider        DatabaseProvider
	HTTPClientProvider      HTTPClientProvider
	OperatorSignatureClient signing.SignatureClient
	IssuerSignatureClient   signing.SignatureClient
	NetworkPassphrase       string
	RPCURL                  string
	HorizonURL              string
	BaseFee                 int64
	LedgerReceiptTimeout    time.Duration
	Token                   entities.Asset
	KeyVaultMasterKey       string
	WalletInitialFunding    decimal.Decimal
	// RedisURL is optional. Without it every association check goes to the ledger.
	RedisURL          string
	ProofTopics       map[entities.ProofKind]string
	ProofScanCeiling  int
	ProofRetryWorkers int
	AppTracker        apptracker.AppTracker
}

// ServiceContainer manages all business services
type ServiceContainer interface {
	GetLedgerClient() ledger.Client
	GetWalletManagers() map[entities.OwnerKind]wallet.Manager
	GetReconciler() *wallet.Reconciler
	GetProofLedger() proof.ProofLedger
	GetOrchestrator() economy.Orchestrator
	GetRecords() data.RecordStore
	GetConnectionPool() db.ConnectionPool
	GetMetricsService() metrics.MetricsService
	GetAppTracker() apptracker.AppTracker
	Close()
}

// HandlerDependencies represents all dependencies needed for HTTP handlers
type HandlerDependencies struct {
	ServiceContainer ServiceContainer
	// AuthProvider is nil when client authentication is disabled.
	AuthProvider AuthProvider
	// RateLimiter is nil when rate limiting is disabled.
	RateLimiter *middleware.RateLimiter
}
