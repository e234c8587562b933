package proof

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/ledger"
	"github.com/impactsmiles/smiles-wallet/internal/metrics"
)

const (
	missionTopic  = "GMISSIONTOPIC"
	donationTopic = "GDONATIONTOPIC"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

type proofFixture struct {
	proofs  *proofLedger
	ledger  *ledger.ClientMock
	store   *StoreMock
	metrics *metrics.MockMetricsService
	tracker *apptracker.MockAppTracker
}

func newProofFixture(t *testing.T) proofFixture {
	t.Helper()
	f := proofFixture{
		ledger:  ledger.NewClientMock(t),
		store:   NewStoreMock(t),
		metrics: metrics.NewMockMetricsService(),
		tracker: apptracker.NewMockAppTracker(t),
	}
	f.metrics.On("RegisterPoolMetrics", "proof_retry", mock.Anything).Return().Once()
	f.metrics.On("IncProofSubmission", mock.Anything, mock.Anything).Return().Maybe()

	var err error
	f.proofs, err = NewProofLedger(Options{
		Ledger: f.ledger,
		Store:  f.store,
		Topics: map[entities.ProofKind]string{
			entities.ProofKindMissionCompletion: missionTopic,
			entities.ProofKindDonation:          donationTopic,
		},
		MetricsService: f.metrics,
		AppTracker:     f.tracker,
		RetryWorkers:   2,
	})
	require.NoError(t, err)
	f.proofs.now = func() time.Time { return fixedNow }
	t.Cleanup(f.proofs.Close)
	return f
}

func payloadFixture(t *testing.T, kind entities.ProofKind, data map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(entities.ProofPayload{Type: kind, Data: data, Timestamp: fixedNow})
	require.NoError(t, err)
	return payload
}

func TestNewProofLedger(t *testing.T) {
	base := func() Options {
		return Options{
			Ledger:         ledger.NewClientMock(t),
			Store:          NewStoreMock(t),
			MetricsService: metrics.NewMockMetricsService(),
			AppTracker:     apptracker.NewMockAppTracker(t),
		}
	}

	opts := base()
	opts.Topics = map[entities.ProofKind]string{"gossip": "GTOPIC"}
	_, err := NewProofLedger(opts)
	assert.ErrorIs(t, err, entities.ErrConfiguration)
	assert.ErrorContains(t, err, `invalid proof kind "gossip"`)

	opts = base()
	opts.Topics = map[entities.ProofKind]string{entities.ProofKindDonation: ""}
	_, err = NewProofLedger(opts)
	assert.ErrorContains(t, err, "topic for donation cannot be empty")

	f := newProofFixture(t)
	assert.Equal(t, DefaultScanCeiling, f.proofs.scanCeiling)
}

func TestProofLedgerLogEvent(t *testing.T) {
	ctx := context.Background()
	data := map[string]any{"userId": "u1", "missionId": "m1", "reward": 10}

	t.Run("anchors_and_marks_submitted", func(t *testing.T) {
		f := newProofFixture(t)
		payload := payloadFixture(t, entities.ProofKindMissionCompletion, data)
		wantHash := ledger.ContentHash(payload)

		var recordID string
		f.store.On("Insert", mock.Anything, mock.MatchedBy(func(r *entities.ProofRecord) bool {
			recordID = r.ID
			return r.Kind == entities.ProofKindMissionCompletion && r.TopicID == missionTopic &&
				r.Status == entities.ProofStatusPending && r.ProofHash == wantHash && string(r.Payload) == string(payload)
		})).Return(nil).Once()
		f.ledger.On("SubmitTopicMessage", mock.Anything, missionTopic, payload).Return("msg-1", nil).Once()
		f.store.On("MarkSubmitted", mock.Anything, mock.AnythingOfType("string"), "msg-1").Return(nil).Once()

		receipt, err := f.proofs.LogEvent(ctx, entities.ProofKindMissionCompletion, data)
		require.NoError(t, err)
		assert.Equal(t, entities.ProofReceipt{ProofID: "msg-1", ProofHash: wantHash}, receipt)
		assert.NotEmpty(t, recordID)
		assert.JSONEq(t, `{"type":"mission_completion","data":{"userId":"u1","missionId":"m1","reward":10},"timestamp":"2026-05-04T10:30:00Z"}`, string(payload))
		f.metrics.AssertCalled(t, "IncProofSubmission", "mission_completion", "submitted")
	})

	t.Run("submission_failure_leaves_it_pending", func(t *testing.T) {
		f := newProofFixture(t)
		f.store.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()
		f.ledger.On("SubmitTopicMessage", mock.Anything, missionTopic, mock.Anything).Return("", entities.ErrLedgerUnavailable).Once()
		f.store.On("MarkAttemptFailed", mock.Anything, mock.AnythingOfType("string"), entities.ErrLedgerUnavailable).Return(nil).Once()
		f.tracker.On("CaptureExceptionWithTags", mock.Anything, mock.Anything).Return().Once()

		receipt, err := f.proofs.LogEvent(ctx, entities.ProofKindMissionCompletion, data)
		assert.ErrorIs(t, err, entities.ErrProofLogFailed)
		assert.ErrorIs(t, err, entities.ErrLedgerUnavailable)
		assert.Empty(t, receipt.ProofID)
		assert.NotEmpty(t, receipt.ProofHash)
		f.store.AssertNotCalled(t, "MarkSubmitted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store_failure", func(t *testing.T) {
		f := newProofFixture(t)
		f.store.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, err := f.proofs.LogEvent(ctx, entities.ProofKindMissionCompletion, data)
		assert.ErrorIs(t, err, entities.ErrProofLogFailed)
		f.ledger.AssertNotCalled(t, "SubmitTopicMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("marking_failure_keeps_the_receipt", func(t *testing.T) {
		f := newProofFixture(t)
		f.store.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()
		f.ledger.On("SubmitTopicMessage", mock.Anything, missionTopic, mock.Anything).Return("msg-2", nil).Once()
		f.store.On("MarkSubmitted", mock.Anything, mock.Anything, "msg-2").Return(errors.New("db down")).Once()

		receipt, err := f.proofs.LogEvent(ctx, entities.ProofKindMissionCompletion, data)
		require.NoError(t, err)
		assert.Equal(t, "msg-2", receipt.ProofID)
	})

	t.Run("kind_without_topic", func(t *testing.T) {
		f := newProofFixture(t)
		_, err := f.proofs.LogEvent(ctx, entities.ProofKindBadgeAward, data)
		assert.ErrorIs(t, err, entities.ErrProofLogFailed)
		assert.ErrorIs(t, err, entities.ErrConfiguration)
	})
}

func TestProofLedgerVerify(t *testing.T) {
	ctx := context.Background()
	f := newProofFixture(t)
	messages := []entities.TopicMessage{
		{MessageID: "m1", ContentHash: "aaaa"},
		{MessageID: "m2", ContentHash: "bbbb"},
	}
	f.ledger.On("QueryTopicMessages", mock.Anything, donationTopic, DefaultScanCeiling).Return(messages, nil).Twice()

	found, err := f.proofs.Verify(ctx, entities.ProofKindDonation, "BBBB")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = f.proofs.Verify(ctx, entities.ProofKindDonation, "cccc")
	require.NoError(t, err)
	assert.False(t, found)

	f.ledger.On("QueryTopicMessages", mock.Anything, missionTopic, DefaultScanCeiling).Return(nil, entities.ErrLedgerUnavailable).Once()
	_, err = f.proofs.Verify(ctx, entities.ProofKindMissionCompletion, "aaaa")
	assert.ErrorIs(t, err, entities.ErrLedgerUnavailable)
}

func TestProofLedgerAggregate(t *testing.T) {
	ctx := context.Background()
	f := newProofFixture(t)

	first := payloadFixture(t, entities.ProofKindDonation, map[string]any{"userId": "u1", "amount": 5})
	second := payloadFixture(t, entities.ProofKindDonation, map[string]any{"userId": "u1", "amount": 7.5, "purpose": "reward_purchase", "price": 7.5})
	third := payloadFixture(t, entities.ProofKindDonation, map[string]any{"userId": "u2", "amount": "not a number"})
	hashes := []string{ledger.ContentHash(first), ledger.ContentHash(second), ledger.ContentHash(third), "unknown"}

	f.ledger.On("QueryTopicMessages", mock.Anything, donationTopic, DefaultScanCeiling).Return([]entities.TopicMessage{
		{MessageID: "m1", ContentHash: hashes[0]},
		{MessageID: "m2", ContentHash: hashes[1]},
		{MessageID: "m2-again", ContentHash: hashes[1]},
		{MessageID: "m3", ContentHash: hashes[2]},
		{MessageID: "m4", ContentHash: hashes[3]},
	}, nil).Once()
	f.store.On("GetByHashes", mock.Anything, entities.ProofKindDonation, mock.MatchedBy(func(got []string) bool {
		sorted := slices.Clone(got)
		slices.Sort(sorted)
		want := slices.Clone(hashes)
		slices.Sort(want)
		return slices.Equal(want, sorted)
	})).Return([]*entities.ProofRecord{
		{ProofHash: hashes[0], Payload: first},
		{ProofHash: hashes[1], Payload: second},
		{ProofHash: hashes[2], Payload: third},
	}, nil).Once()

	agg, err := f.proofs.Aggregate(ctx, entities.ProofKindDonation)
	require.NoError(t, err)
	assert.Equal(t, entities.ProofKindDonation, agg.Kind)
	assert.Equal(t, 3, agg.Count)
	assert.Equal(t, 2, agg.UniqueUsers)
	assert.Equal(t, 1, agg.Unresolved)
	assert.True(t, decimal.RequireFromString("12.5").Equal(agg.Sums["amount"]), agg.Sums["amount"].String())
	assert.True(t, decimal.RequireFromString("7.5").Equal(agg.Sums["price"]))
	assert.True(t, agg.Sums["reward"].IsZero())
}

func TestProofLedgerRetryPending(t *testing.T) {
	ctx := context.Background()

	t.Run("settles_anchored_and_resubmits_the_rest", func(t *testing.T) {
		f := newProofFixture(t)
		records := []*entities.ProofRecord{
			{ID: "p1", Kind: entities.ProofKindMissionCompletion, ProofHash: "h1", Payload: []byte(`{"n":1}`), TopicID: missionTopic},
			{ID: "p2", Kind: entities.ProofKindMissionCompletion, ProofHash: "h2", Payload: []byte(`{"n":2}`), TopicID: missionTopic},
			{ID: "p3", Kind: entities.ProofKindMissionCompletion, ProofHash: "h3", Payload: []byte(`{"n":3}`), TopicID: missionTopic},
		}
		f.store.On("ListPending", mock.Anything, 10).Return(records, nil).Once()
		f.ledger.On("QueryTopicMessages", mock.Anything, missionTopic, DefaultScanCeiling).
			Return([]entities.TopicMessage{{MessageID: "landed", ContentHash: "h1"}}, nil).Once()
		f.store.On("MarkSubmitted", mock.Anything, "p1", "landed").Return(nil).Once()
		f.ledger.On("SubmitTopicMessage", mock.Anything, missionTopic, []byte(`{"n":2}`)).Return("new-2", nil).Once()
		f.store.On("MarkSubmitted", mock.Anything, "p2", "new-2").Return(nil).Once()
		f.ledger.On("SubmitTopicMessage", mock.Anything, missionTopic, []byte(`{"n":3}`)).Return("", entities.ErrLedgerUnavailable).Once()
		f.store.On("MarkAttemptFailed", mock.Anything, "p3", entities.ErrLedgerUnavailable).Return(nil).Once()

		settled, err := f.proofs.RetryPending(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, settled)
		f.ledger.AssertNumberOfCalls(t, "SubmitTopicMessage", 2)
		f.metrics.AssertCalled(t, "IncProofSubmission", "mission_completion", "recovered")
	})

	t.Run("nothing_pending", func(t *testing.T) {
		f := newProofFixture(t)
		f.store.On("ListPending", mock.Anything, 10).Return([]*entities.ProofRecord{}, nil).Once()

		settled, err := f.proofs.RetryPending(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, settled)
	})

	t.Run("topic_scan_failure_submits_nothing", func(t *testing.T) {
		f := newProofFixture(t)
		f.store.On("ListPending", mock.Anything, 10).Return([]*entities.ProofRecord{
			{ID: "p1", Kind: entities.ProofKindDonation, ProofHash: "h1", TopicID: donationTopic},
		}, nil).Once()
		f.ledger.On("QueryTopicMessages", mock.Anything, donationTopic, DefaultScanCeiling).Return(nil, entities.ErrLedgerUnavailable).Once()

		_, err := f.proofs.RetryPending(ctx, 10)
		assert.ErrorIs(t, err, entities.ErrLedgerUnavailable)
		f.ledger.AssertNotCalled(t, "SubmitTopicMessage", mock.Anything, mock.Anything, mock.Anything)
	})
}
