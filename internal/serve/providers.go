package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/serve/auth"
)

// databaseProvider implements DatabaseProvider
type databaseProvider struct {
	connectionPool db.ConnectionPool
}

func NewDatabaseProvider(ctx context.Context, databaseURL string) (*databaseProvider, error) {
	connectionPool, err := db.OpenDBConnectionPool(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database connection pool: %w", err)
	}

	return &databaseProvider{connectionPool: connectionPool}, nil
}

func (p *databaseProvider) GetConnectionPool() db.ConnectionPool {
	return p.connectionPool
}

// httpClientProvider implements HTTPClientProvider
type httpClientProvider struct {
	client *http.Client
}

const defaultLedgerRequestTimeout = 30 * time.Second

// NewHTTPClientProvider returns a client for the ledger transports. A non-positive timeout falls back to 30s.
func NewHTTPClientProvider(requestTimeout time.Duration) *httpClientProvider {
	if requestTimeout <= 0 {
		requestTimeout = defaultLedgerRequestTimeout
	}
	return &httpClientProvider{
		client: &http.Client{Timeout: requestTimeout},
	}
}

func (p *httpClientProvider) GetClient() *http.Client {
	return p.client
}

// authProvider implements AuthProvider
type authProvider struct {
	requestVerifier auth.HTTPRequestVerifier
}

func NewAuthProvider(maxTimeout time.Duration, clientAuthPublicKeys []string) (*authProvider, error) {
	requestVerifier, err := auth.NewJWTRequestVerifier(maxTimeout, auth.DefaultMaxBodySizeBytes, clientAuthPublicKeys...)
	if err != nil {
		return nil, fmt.Errorf("creating JWT request verifier: %w", err)
	}

	return &authProvider{
		requestVerifier: requestVerifier,
	}, nil
}

func (p *authProvider) GetRequestVerifier() auth.HTTPRequestVerifier {
	return p.requestVerifier
}
