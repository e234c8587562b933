package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/db/dbtest"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
)

func openTestPool(t *testing.T) db.ConnectionPool {
	t.Helper()
	dbt := dbtest.Open(t)
	t.Cleanup(dbt.Close)

	dbConnectionPool, err := db.OpenDBConnectionPool(context.Background(), dbt.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbConnectionPool.Close() })
	return dbConnectionPool
}

func newDBMetricsMock() *metrics.MockMetricsService {
	m := metrics.NewMockMetricsService()
	m.On("ObserveDBQueryDuration", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	m.On("IncDBQuery", mock.Anything, mock.Anything).Return().Maybe()
	m.On("IncDBQueryError", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	return m
}
