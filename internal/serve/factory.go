package serve

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/data"
	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/economy"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/keyvault"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/proof"
	"github.com/impactsmiles/smiles-wallet/internal/wallet"
)

// serviceContainer implements ServiceContainer
type serviceContainer struct {
	connectionPool db.ConnectionPool
	metricsService metrics.MetricsService
	records        data.RecordStore
	ledgerClient   ledger.Client
	managers       map[entities.OwnerKind]wallet.Manager
	reconciler     *wallet.Reconciler
	proofLedger    proof.ProofLedger
	closeProofs    func()
	orchestrator   economy.Orchestrator
	appTracker     apptracker.AppTracker

	ledgerHealth ledgerHealthTracker
	proofTopics  map[entities.ProofKind]string
	topicFunding decimal.Decimal
}

type ledgerHealthTracker interface {
	TrackRPCServiceHealth(ctx context.Context)
}

var _ ServiceContainer = (*serviceContainer)(nil)

func (c *serviceContainer) GetLedgerClient() ledger.Client {
	return c.ledgerClient
}

func (c *serviceContainer) GetWalletManagers() map[entities.OwnerKind]wallet.Manager {
	return c.managers
}

func (c *serviceContainer) GetReconciler() *wallet.Reconciler {
	return c.reconciler
}

func (c *serviceContainer) GetProofLedger() proof.ProofLedger {
	return c.proofLedger
}

func (c *serviceContainer) GetOrchestrator() economy.Orchestrator {
	return c.orchestrator
}

func (c *serviceContainer) GetRecords() data.RecordStore {
	return c.records
}

func (c *serviceContainer) GetConnectionPool() db.ConnectionPool {
	return c.connectionPool
}

func (c *serviceContainer) GetMetricsService() metrics.MetricsService {
	return c.metricsService
}

func (c *serviceContainer) GetAppTracker() apptracker.AppTracker {
	return c.appTracker
}

// Close stops the proof retry workers and closes the database pool.
func (c *serviceContainer) Close() {
	if c.closeProofs != nil {
		c.closeProofs()
	}
	if err := c.connectionPool.Close(); err != nil {
		log.Errorf("closing database connection pool: %v", err)
	}
}

// NewServiceContainer wires the ledger client, both wallet managers, the proof ledger and the orchestrator over one
// database pool. A missing operator key, issuer key or token surfaces as entities.ErrConfiguration.
func NewServiceContainer(ctx context.Context, deps ServiceDependencies) (*serviceContainer, error) {
	if deps.AppTracker == nil {
		return nil, fmt.Errorf("%w: app tracker cannot be nil", entities.ErrConfiguration)
	}
	connectionPool := deps.DatabaseProvider.GetConnectionPool()
	metricsService := metrics.NewMetricsService(connectionPool.SqlxDB())

	records, err := data.NewRecordModel(connectionPool.SqlxDB(), metricsService)
	if err != nil {
		return nil, fmt.Errorf("creating record store: %w", err)
	}

	ledgerClient, ledgerHealth, err := createLedgerClient(ctx, deps, metricsService)
	if err != nil {
		return nil, fmt.Errorf("creating ledger client: %w", err)
	}

	vault, err := keyvault.NewKeyVault(deps.KeyVaultMasterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: creating key vault: %w", entities.ErrConfiguration, err)
	}
	associationCache, err := createAssociationCache(deps.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("creating association cache: %w", err)
	}
	journal := wallet.NewTokenOperationModel(connectionPool, metricsService)
	managerOptions := func(ownerKind entities.OwnerKind) wallet.ManagerOptions {
		return wallet.ManagerOptions{
			OwnerKind:        ownerKind,
			Store:            wallet.NewWalletModel(connectionPool, metricsService),
			Journal:          journal,
			KeyVault:         vault,
			Ledger:           ledgerClient,
			AssociationCache: associationCache,
			AppTracker:       deps.AppTracker,
			MetricsService:   metricsService,
			InitialFunding:   deps.WalletInitialFunding,
		}
	}

	users, err := wallet.NewManager(managerOptions(entities.OwnerKindUser))
	if err != nil {
		return nil, fmt.Errorf("creating user wallet manager: %w", err)
	}
	communities, err := wallet.NewManager(managerOptions(entities.OwnerKindCommunity))
	if err != nil {
		return nil, fmt.Errorf("creating community wallet manager: %w", err)
	}

	reconciler, err := wallet.NewReconciler(journal, ledgerClient, metricsService, users, communities)
	if err != nil {
		return nil, fmt.Errorf("creating reconciler: %w", err)
	}

	proofLedger, err := proof.NewProofLedger(proof.Options{
		Ledger:         ledgerClient,
		Store:          proof.NewProofRecordModel(connectionPool, metricsService),
		Topics:         deps.ProofTopics,
		MetricsService: metricsService,
		AppTracker:     deps.AppTracker,
		ScanCeiling:    deps.ProofScanCeiling,
		RetryWorkers:   deps.ProofRetryWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating proof ledger: %w", err)
	}

	orchestrator, err := economy.NewOrchestrator(economy.Options{
		Records:        records,
		Users:          users,
		Communities:    communities,
		Proofs:         proofLedger,
		Locker:         economy.NewOwnerLocker(),
		MetricsService: metricsService,
	})
	if err != nil {
		proofLedger.Close()
		return nil, fmt.Errorf("creating economy orchestrator: %w", err)
	}

	return &serviceContainer{
		connectionPool: connectionPool,
		metricsService: metricsService,
		records:        records,
		ledgerClient:   ledgerClient,
		managers: map[entities.OwnerKind]wallet.Manager{
			entities.OwnerKindUser:      users,
			entities.OwnerKindCommunity: communities,
		},
		reconciler:   reconciler,
		proofLedger:  proofLedger,
		closeProofs:  proofLedger.Close,
		orchestrator: orchestrator,
		appTracker:   deps.AppTracker,
		ledgerHealth: ledgerHealth,
		proofTopics:  deps.ProofTopics,
		topicFunding: deps.WalletInitialFunding,
	}, nil
}

// bootstrapLedger opens the operator trustline and creates any missing proof topic account.
func (c *serviceContainer) bootstrapLedger(ctx context.Context) error {
	if err := c.ledgerClient.EnsureOperatorAssociation(ctx); err != nil {
		return fmt.Errorf("ensuring operator association: %w", err)
	}
	for kind, topicID := range c.proofTopics {
		if err := c.ledgerClient.EnsureTopicAccount(ctx, topicID, c.topicFunding); err != nil {
			return fmt.Errorf("ensuring %s topic account: %w", kind, err)
		}
	}
	return nil
}

func createLedgerClient(ctx context.Context, deps ServiceDependencies, metricsService metrics.MetricsService) (ledger.Client, ledgerHealthTracker, error) {
	httpClient := deps.HTTPClientProvider.GetClient()
	rpcService, err := ledger.NewRPCService(deps.RPCURL, deps.NetworkPassphrase, httpClient, metricsService)
	if err != nil {
		return nil, nil, fmt.Errorf("creating RPC service: %w", err)
	}

	ledgerClient, err := ledger.NewClient(ctx, ledger.Options{
		RPCService:     rpcService,
		HorizonClient:  &horizonclient.Client{HorizonURL: deps.HorizonURL, HTTP: httpClient},
		OperatorSigner: deps.OperatorSignatureClient,
		IssuerSigner:   deps.IssuerSignatureClient,
		Token:          deps.Token,
		BaseFee:        deps.BaseFee,
		ReceiptTimeout: deps.LedgerReceiptTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating stellar client: %w", err)
	}
	return ledgerClient, rpcService, nil
}

func createAssociationCache(redisURL string) (wallet.AssociationCache, error) {
	if redisURL == "" {
		log.Info("No Redis URL configured, token associations are always checked on the ledger")
		return wallet.NoopAssociationCache{}, nil
	}
	cache, err := wallet.NewRedisAssociationCache(redisURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return cache, nil
}
