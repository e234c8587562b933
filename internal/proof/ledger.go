// Package proof anchors economy events on per-kind ledger topics and reads them back.
package proof

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	set "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
)

const (
	DefaultScanCeiling  = 1000
	DefaultRetryWorkers = 8

	outcomeSubmitted = "submitted"
	outcomeFailed    = "failed"
	outcomeRecovered = "recovered"

	userIDField = "userId"
)

// summedFields are the numeric payload fields Aggregate totals.
var summedFields = []string{"amount", "reward", "price"}

type ProofLedger interface {
	LogEvent(ctx context.Context, kind entities.ProofKind, data map[string]any) (entities.ProofReceipt, error)
	Verify(ctx context.Context, kind entities.ProofKind, proofHash string) (bool, error)
	Aggregate(ctx context.Context, kind entities.ProofKind) (Aggregate, error)
	RetryPending(ctx context.Context, limit int) (int, error)
}

// Aggregate summarises the proofs anchored on one topic. Hashes found on the topic without a local payload are
// counted in Unresolved.
type Aggregate struct {
	Kind        entities.ProofKind         `json:"kind"`
	Count       int                        `json:"count"`
	UniqueUsers int                        `json:"uniqueUsers"`
	Sums        map[string]decimal.Decimal `json:"sums"`
	Unresolved  int                        `json:"unresolved"`
}

type Options struct {
	Ledger         ledger.Client
	Store          Store
	Topics         map[entities.ProofKind]string
	MetricsService metrics.MetricsService
	AppTracker     apptracker.AppTracker
	ScanCeiling    int
	RetryWorkers   int
}

func (o *Options) Validate() error {
	if o.Ledger == nil {
		return fmt.Errorf("ledger client cannot be nil")
	}
	if o.Store == nil {
		return fmt.Errorf("proof store cannot be nil")
	}
	if o.MetricsService == nil {
		return fmt.Errorf("metrics service cannot be nil")
	}
	if o.AppTracker == nil {
		return fmt.Errorf("app tracker cannot be nil")
	}
	for kind, topicID := range o.Topics {
		if !kind.IsValid() {
			return fmt.Errorf("invalid proof kind %q", kind)
		}
		if topicID == "" {
			return fmt.Errorf("topic for %s cannot be empty", kind)
		}
	}
	if o.ScanCeiling < 0 {
		return fmt.Errorf("scan ceiling cannot be negative")
	}
	return nil
}

type proofLedger struct {
	ledger         ledger.Client
	store          Store
	topics         map[entities.ProofKind]string
	metricsService metrics.MetricsService
	appTracker     apptracker.AppTracker
	scanCeiling    int
	retryPool      pond.Pool
	now            func() time.Time
}

var _ ProofLedger = (*proofLedger)(nil)

func NewProofLedger(opts Options) (*proofLedger, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: validating proof ledger options: %w", entities.ErrConfiguration, err)
	}

	scanCeiling := opts.ScanCeiling
	if scanCeiling == 0 {
		scanCeiling = DefaultScanCeiling
	}
	workers := opts.RetryWorkers
	if workers <= 0 {
		workers = DefaultRetryWorkers
	}

	retryPool := pond.NewPool(workers)
	opts.MetricsService.RegisterPoolMetrics("proof_retry", retryPool)

	return &proofLedger{
		ledger:         opts.Ledger,
		store:          opts.Store,
		topics:         opts.Topics,
		metricsService: opts.MetricsService,
		appTracker:     opts.AppTracker,
		scanCeiling:    scanCeiling,
		retryPool:      retryPool,
		now:            time.Now,
	}, nil
}

// Close waits for in-flight resubmissions and stops the retry pool.
func (p *proofLedger) Close() {
	p.retryPool.StopAndWait()
}

func (p *proofLedger) topicFor(kind entities.ProofKind) (string, error) {
	topicID, ok := p.topics[kind]
	if !ok {
		return "", fmt.Errorf("%w: no topic configured for %s proofs", entities.ErrConfiguration, kind)
	}
	return topicID, nil
}

// LogEvent stores the payload, anchors its hash on the kind's topic and returns the message id. When anchoring
// fails the record stays pending for RetryPending and the error wraps ErrProofLogFailed.
func (p *proofLedger) LogEvent(ctx context.Context, kind entities.ProofKind, data map[string]any) (entities.ProofReceipt, error) {
	topicID, err := p.topicFor(kind)
	if err != nil {
		return entities.ProofReceipt{}, fmt.Errorf("%w: %w", entities.ErrProofLogFailed, err)
	}

	payload, err := json.Marshal(entities.ProofPayload{Type: kind, Data: data, Timestamp: p.now().UTC()})
	if err != nil {
		return entities.ProofReceipt{}, fmt.Errorf("%w: encoding %s payload: %w", entities.ErrProofLogFailed, kind, err)
	}
	proofHash := ledger.ContentHash(payload)
	logger := log.Ctx(ctx).WithField("proof_kind", string(kind)).WithField("proof_hash", proofHash)

	record := &entities.ProofRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		ProofHash: proofHash,
		Payload:   payload,
		TopicID:   topicID,
		Status:    entities.ProofStatusPending,
	}
	if err = p.store.Insert(ctx, record); err != nil {
		p.metricsService.IncProofSubmission(string(kind), outcomeFailed)
		return entities.ProofReceipt{ProofHash: proofHash}, fmt.Errorf("%w: storing %s proof: %w", entities.ErrProofLogFailed, kind, err)
	}

	messageID, err := p.ledger.SubmitTopicMessage(ctx, topicID, payload)
	if err != nil {
		p.metricsService.IncProofSubmission(string(kind), outcomeFailed)
		if markErr := p.store.MarkAttemptFailed(context.WithoutCancel(ctx), record.ID, err); markErr != nil {
			logger.Errorf("recording failed proof attempt: %v", markErr)
		}
		logErr := fmt.Errorf("%w: anchoring %s proof %s: %w", entities.ErrProofLogFailed, kind, proofHash, err)
		p.appTracker.CaptureExceptionWithTags(logErr, map[string]string{"proof_kind": string(kind), "proof_id": record.ID})
		return entities.ProofReceipt{ProofHash: proofHash}, logErr
	}

	if err = p.store.MarkSubmitted(context.WithoutCancel(ctx), record.ID, messageID); err != nil {
		// The hash is on the topic; RetryPending will find it there and settle the row.
		logger.Errorf("marking proof %s submitted: %v", record.ID, err)
	}
	p.metricsService.IncProofSubmission(string(kind), outcomeSubmitted)
	logger.Infof("anchored proof in %s", messageID)

	return entities.ProofReceipt{ProofID: messageID, ProofHash: proofHash}, nil
}

// Verify reports whether proofHash is among the newest messages of the kind's topic, up to the scan ceiling.
func (p *proofLedger) Verify(ctx context.Context, kind entities.ProofKind, proofHash string) (bool, error) {
	topicID, err := p.topicFor(kind)
	if err != nil {
		return false, err
	}

	messages, err := p.ledger.QueryTopicMessages(ctx, topicID, p.scanCeiling)
	if err != nil {
		return false, fmt.Errorf("scanning %s topic: %w", kind, err)
	}
	for _, msg := range messages {
		if strings.EqualFold(msg.ContentHash, proofHash) {
			return true, nil
		}
	}
	return false, nil
}

// Aggregate joins the hashes on the kind's topic with their stored payloads. The result lags the ledger by
// whatever has not been anchored yet.
func (p *proofLedger) Aggregate(ctx context.Context, kind entities.ProofKind) (Aggregate, error) {
	result := Aggregate{Kind: kind, Sums: make(map[string]decimal.Decimal, len(summedFields))}
	for _, field := range summedFields {
		result.Sums[field] = decimal.Zero
	}

	topicID, err := p.topicFor(kind)
	if err != nil {
		return result, err
	}
	messages, err := p.ledger.QueryTopicMessages(ctx, topicID, p.scanCeiling)
	if err != nil {
		return result, fmt.Errorf("scanning %s topic: %w", kind, err)
	}

	hashes := set.NewThreadUnsafeSet[string]()
	for _, msg := range messages {
		hashes.Add(msg.ContentHash)
	}

	records, err := p.store.GetByHashes(ctx, kind, hashes.ToSlice())
	if err != nil {
		return result, fmt.Errorf("loading %s payloads: %w", kind, err)
	}

	users := set.NewThreadUnsafeSet[string]()
	for _, record := range records {
		payload, decodeErr := decodePayload(record.Payload)
		if decodeErr != nil {
			log.Ctx(ctx).Warnf("skipping undecodable %s proof %s: %v", kind, record.ProofHash, decodeErr)
			continue
		}
		result.Count++
		if userID, ok := payload.Data[userIDField].(string); ok && userID != "" {
			users.Add(userID)
		}
		for _, field := range summedFields {
			if value, ok := numericField(payload.Data, field); ok {
				result.Sums[field] = result.Sums[field].Add(value)
			}
		}
	}
	result.UniqueUsers = users.Cardinality()
	result.Unresolved = hashes.Cardinality() - len(records)

	return result, nil
}

func decodePayload(raw []byte) (entities.ProofPayload, error) {
	var payload entities.ProofPayload
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return payload, fmt.Errorf("decoding payload: %w", err)
	}
	return payload, nil
}

func numericField(data map[string]any, field string) (decimal.Decimal, bool) {
	number, ok := data[field].(json.Number)
	if !ok {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(number.String())
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// RetryPending resubmits up to limit pending records on the retry pool and returns how many were settled. A
// record whose hash is already on its topic is settled with that message instead of being sent again.
func (p *proofLedger) RetryPending(ctx context.Context, limit int) (int, error) {
	records, err := p.store.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing pending proofs: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	anchored, err := p.anchoredMessages(ctx, records)
	if err != nil {
		return 0, err
	}

	var (
		settled atomic.Int64
		errs    []error
		errMu   sync.Mutex
	)
	group := p.retryPool.NewGroupContext(ctx)
	for _, record := range records {
		group.Submit(func() {
			if retryErr := p.retryRecord(ctx, record, anchored[record.TopicID]); retryErr != nil {
				errMu.Lock()
				errs = append(errs, retryErr)
				errMu.Unlock()
				return
			}
			settled.Add(1)
		})
	}
	if err = group.Wait(); err != nil {
		return int(settled.Load()), fmt.Errorf("waiting for proof resubmissions: %w", err)
	}
	if len(errs) > 0 {
		log.Ctx(ctx).Warnf("%d of %d pending proofs are still pending: %v", len(errs), len(records), errors.Join(errs...))
	}

	return int(settled.Load()), nil
}

// anchoredMessages maps content hash to message id for every topic the records point at.
func (p *proofLedger) anchoredMessages(ctx context.Context, records []*entities.ProofRecord) (map[string]map[string]string, error) {
	anchored := make(map[string]map[string]string)
	for _, record := range records {
		if _, ok := anchored[record.TopicID]; ok {
			continue
		}
		messages, err := p.ledger.QueryTopicMessages(ctx, record.TopicID, p.scanCeiling)
		if err != nil {
			return nil, fmt.Errorf("scanning topic %s before resubmitting: %w", record.TopicID, err)
		}
		byHash := make(map[string]string, len(messages))
		for _, msg := range messages {
			byHash[msg.ContentHash] = msg.MessageID
		}
		anchored[record.TopicID] = byHash
	}
	return anchored, nil
}

func (p *proofLedger) retryRecord(ctx context.Context, record *entities.ProofRecord, anchored map[string]string) error {
	logger := log.Ctx(ctx).WithField("proof_id", record.ID).WithField("proof_hash", record.ProofHash)

	if messageID, ok := anchored[record.ProofHash]; ok {
		if err := p.store.MarkSubmitted(ctx, record.ID, messageID); err != nil {
			return fmt.Errorf("settling proof %s: %w", record.ID, err)
		}
		p.metricsService.IncProofSubmission(string(record.Kind), outcomeRecovered)
		logger.Infof("proof was already anchored in %s", messageID)
		return nil
	}

	messageID, err := p.ledger.SubmitTopicMessage(ctx, record.TopicID, record.Payload)
	if err != nil {
		p.metricsService.IncProofSubmission(string(record.Kind), outcomeFailed)
		if markErr := p.store.MarkAttemptFailed(context.WithoutCancel(ctx), record.ID, err); markErr != nil {
			logger.Errorf("recording failed proof attempt: %v", markErr)
		}
		return fmt.Errorf("resubmitting proof %s: %w", record.ID, err)
	}
	if err = p.store.MarkSubmitted(context.WithoutCancel(ctx), record.ID, messageID); err != nil {
		return fmt.Errorf("settling proof %s after resubmission: %w", record.ID, err)
	}
	p.metricsService.IncProofSubmission(string(record.Kind), outcomeSubmitted)
	return nil
}
