package proof

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/impactsmiles/smiles-wallet/internal/db"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
	"github.com/impactsmiles/smiles-wallet/internal/utils"
)

const (
	proofRecordsTable = "proof_records"
	kindHashIndex     = "proof_records_kind_hash_idx"
	// lastErrorMaxLen keeps provider error bodies from bloating the table.
	lastErrorMaxLen = 512
)

var (
	ErrProofNotFound = fmt.Errorf("proof record: %w", entities.ErrNotFound)
	ErrProofExists   = errors.New("proof record with the same hash already exists")
)

// Store keeps proof payloads by content hash. The ledger only carries the hash.
type Store interface {
	Insert(ctx context.Context, record *entities.ProofRecord) error
	MarkSubmitted(ctx context.Context, id, messageID string) error
	MarkAttemptFailed(ctx context.Context, id string, attemptErr error) error
	ListPending(ctx context.Context, limit int) ([]*entities.ProofRecord, error)
	GetByHash(ctx context.Context, kind entities.ProofKind, proofHash string) (*entities.ProofRecord, error)
	GetByHashes(ctx context.Context, kind entities.ProofKind, proofHashes []string) ([]*entities.ProofRecord, error)
}

type ProofRecordModel struct {
	DB             db.ConnectionPool
	MetricsService metrics.MetricsService
}

var _ Store = (*ProofRecordModel)(nil)

func NewProofRecordModel(dbConnectionPool db.ConnectionPool, metricsService metrics.MetricsService) *ProofRecordModel {
	return &ProofRecordModel{DB: dbConnectionPool, MetricsService: metricsService}
}

func (m *ProofRecordModel) observe(queryType string, start time.Time, err error) {
	m.MetricsService.ObserveDBQueryDuration(queryType, proofRecordsTable, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		m.MetricsService.IncDBQueryError(queryType, proofRecordsTable, utils.GetDBErrorType(err))
		return
	}
	m.MetricsService.IncDBQuery(queryType, proofRecordsTable)
}

// Insert stores a pending record and fills in its timestamps.
func (m *ProofRecordModel) Insert(ctx context.Context, record *entities.ProofRecord) error {
	const query = `
		INSERT INTO proof_records (id, kind, proof_hash, payload, topic_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	start := time.Now()
	err := m.DB.Pool().QueryRow(ctx, query,
		record.ID, record.Kind, record.ProofHash, record.Payload, record.TopicID, record.Status,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	m.observe("Insert", start, err)
	if err != nil {
		if utils.IsUniqueViolation(err, kindHashIndex) {
			return ErrProofExists
		}
		return fmt.Errorf("inserting %s proof %s: %w", record.Kind, record.ProofHash, err)
	}
	return nil
}

func (m *ProofRecordModel) MarkSubmitted(ctx context.Context, id, messageID string) error {
	const query = `
		UPDATE proof_records
		SET status = 'submitted', message_id = $2, submitted_at = NOW(), last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`
	start := time.Now()
	tag, err := m.DB.Pool().Exec(ctx, query, id, messageID)
	m.observe("MarkSubmitted", start, err)
	if err != nil {
		return fmt.Errorf("marking proof %s submitted: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProofNotFound
	}
	return nil
}

// MarkAttemptFailed counts a failed submission. The record stays pending.
func (m *ProofRecordModel) MarkAttemptFailed(ctx context.Context, id string, attemptErr error) error {
	lastError := attemptErr.Error()
	if len(lastError) > lastErrorMaxLen {
		lastError = lastError[:lastErrorMaxLen]
	}

	const query = `
		UPDATE proof_records
		SET attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	start := time.Now()
	_, err := m.DB.Pool().Exec(ctx, query, id, lastError)
	m.observe("MarkAttemptFailed", start, err)
	if err != nil {
		return fmt.Errorf("recording failed attempt for proof %s: %w", id, err)
	}
	return nil
}

// ListPending returns the oldest pending records first.
func (m *ProofRecordModel) ListPending(ctx context.Context, limit int) ([]*entities.ProofRecord, error) {
	const query = `
		SELECT * FROM proof_records
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	start := time.Now()
	records, err := db.QueryAll[entities.ProofRecord](ctx, m.DB.Pool(), query, limit)
	m.observe("ListPending", start, err)
	if err != nil {
		return nil, fmt.Errorf("listing pending proofs: %w", err)
	}
	return records, nil
}

func (m *ProofRecordModel) GetByHash(ctx context.Context, kind entities.ProofKind, proofHash string) (*entities.ProofRecord, error) {
	const query = `SELECT * FROM proof_records WHERE kind = $1 AND proof_hash = $2`
	start := time.Now()
	record, err := db.QueryOne[entities.ProofRecord](ctx, m.DB.Pool(), query, kind, proofHash)
	m.observe("GetByHash", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProofNotFound
		}
		return nil, fmt.Errorf("getting %s proof %s: %w", kind, proofHash, err)
	}
	return record, nil
}

func (m *ProofRecordModel) GetByHashes(ctx context.Context, kind entities.ProofKind, proofHashes []string) ([]*entities.ProofRecord, error) {
	if len(proofHashes) == 0 {
		return nil, nil
	}

	const query = `SELECT * FROM proof_records WHERE kind = $1 AND proof_hash = ANY($2)`
	start := time.Now()
	records, err := db.QueryAll[entities.ProofRecord](ctx, m.DB.Pool(), query, kind, proofHashes)
	m.observe("GetByHashes", start, err)
	if err != nil {
		return nil, fmt.Errorf("getting %d %s proofs: %w", len(proofHashes), kind, err)
	}
	return records, nil
}
