package proof

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/db/dbtest"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
)

func newTestProofRecordModel(t *testing.T) *ProofRecordModel {
	t.Helper()
	dbt := dbtest.Open(t)
	t.Cleanup(dbt.Close)

	dbConnectionPool, err := db.OpenDBConnectionPool(context.Background(), dbt.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbConnectionPool.Close() })

	mockMetricsService := metrics.NewMockMetricsService()
	mockMetricsService.On("ObserveDBQueryDuration", mock.Anything, proofRecordsTable, mock.Anything).Return().Maybe()
	mockMetricsService.On("IncDBQuery", mock.Anything, proofRecordsTable).Return().Maybe()
	mockMetricsService.On("IncDBQueryError", mock.Anything, proofRecordsTable, mock.Anything).Return().Maybe()

	return NewProofRecordModel(dbConnectionPool, mockMetricsService)
}

func recordFixture(kind entities.ProofKind, payload string) *entities.ProofRecord {
	return &entities.ProofRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		ProofHash: ledger.ContentHash([]byte(payload)),
		Payload:   []byte(payload),
		TopicID:   "GTOPIC",
		Status:    entities.ProofStatusPending,
	}
}

func TestProofRecordModelLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newTestProofRecordModel(t)

	record := recordFixture(entities.ProofKindDonation, `{"n":1}`)
	require.NoError(t, m.Insert(ctx, record))
	assert.False(t, record.CreatedAt.IsZero())

	t.Run("duplicate_hash", func(t *testing.T) {
		err := m.Insert(ctx, recordFixture(entities.ProofKindDonation, `{"n":1}`))
		assert.ErrorIs(t, err, ErrProofExists)
	})

	t.Run("failed_attempts_are_counted", func(t *testing.T) {
		require.NoError(t, m.MarkAttemptFailed(ctx, record.ID, errors.New(strings.Repeat("x", 600))))
		require.NoError(t, m.MarkAttemptFailed(ctx, record.ID, errors.New("rpc down")))

		got, err := m.GetByHash(ctx, entities.ProofKindDonation, record.ProofHash)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)
		assert.Equal(t, "rpc down", *got.LastError)
		assert.Equal(t, entities.ProofStatusPending, got.Status)
		assert.Equal(t, `{"n":1}`, string(got.Payload))
	})

	t.Run("pending_until_submitted", func(t *testing.T) {
		pending, err := m.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		require.NoError(t, m.MarkSubmitted(ctx, record.ID, "tx-hash"))
		pending, err = m.ListPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)

		got, err := m.GetByHash(ctx, entities.ProofKindDonation, record.ProofHash)
		require.NoError(t, err)
		assert.Equal(t, entities.ProofStatusSubmitted, got.Status)
		assert.Equal(t, "tx-hash", *got.MessageID)
		assert.NotNil(t, got.SubmittedAt)
		assert.Nil(t, got.LastError)

		assert.ErrorIs(t, m.MarkSubmitted(ctx, uuid.NewString(), "tx"), ErrProofNotFound)
	})

	t.Run("get_by_hashes_filters_by_kind", func(t *testing.T) {
		other := recordFixture(entities.ProofKindBadgeAward, `{"n":2}`)
		require.NoError(t, m.Insert(ctx, other))

		records, err := m.GetByHashes(ctx, entities.ProofKindDonation, []string{record.ProofHash, other.ProofHash, "missing"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, record.ID, records[0].ID)

		records, err = m.GetByHashes(ctx, entities.ProofKindDonation, nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("unknown_hash", func(t *testing.T) {
		_, err := m.GetByHash(ctx, entities.ProofKindDonation, "missing")
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}
