package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/escrow-admin/internal/audit"
	"github.com/gosuda/escrow-admin/internal/domain"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockAuditRepo struct {
	appendFunc       func(ctx context.Context, rec *domain.AuditRecord) error
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
	listByEntityFunc func(ctx context.Context, kind domain.EntityKind, id uuid.UUID, limit int) ([]*domain.AuditRecord, error)
	listFunc         func(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error)
}

func (m *mockAuditRepo) Append(ctx context.Context, rec *domain.AuditRecord) error {
	return m.appendFunc(ctx, rec)
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockAuditRepo) ListByEntity(ctx context.Context, kind domain.EntityKind, id uuid.UUID, limit int) ([]*domain.AuditRecord, error) {
	return m.listByEntityFunc(ctx, kind, id, limit)
}

func (m *mockAuditRepo) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	return m.listFunc(ctx, limit, offset)
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	return p.err
}

func sampleRecord() *domain.AuditRecord {
	entityID := uuid.New()
	return &domain.AuditRecord{
		Action:      "update_transaction",
		EntityKind:  domain.KindEscrowTransactions,
		EntityID:    &entityID,
		Before:      domain.Snapshot{"status": "pending", "amount": int64(5000)},
		After:       domain.Snapshot{"status": "in_progress", "amount": int64(5000)},
		PerformedBy: uuid.New(),
		Origin:      domain.Origin{IPAddress: "203.0.113.9", UserAgent: "curl/8.5"},
	}
}

// ---------------------------------------------------------------------------
// Append
// ---------------------------------------------------------------------------

func TestLog_Append(t *testing.T) {
	t.Parallel()

	t.Run("assigns id, timestamp and digest", func(t *testing.T) {
		t.Parallel()

		var stored *domain.AuditRecord
		pub := &recordingPublisher{}
		l := audit.New(&mockAuditRepo{
			appendFunc: func(_ context.Context, rec *domain.AuditRecord) error {
				stored = rec
				return nil
			},
		}, pub)

		rec := sampleRecord()
		require.NoError(t, l.Append(context.Background(), rec))

		require.NotNil(t, stored)
		assert.NotEqual(t, uuid.Nil, stored.ID)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.Equal(t, stored.CreatedAt, stored.CreatedAt.Truncate(time.Microsecond))
		assert.Len(t, stored.Digest, 64)
		assert.True(t, audit.Verify(stored))
		assert.Equal(t, []string{
			"audit:records",
			"audit:escrow_transactions:" + rec.EntityID.String(),
		}, pub.channels)
	})

	t.Run("storage failure is an audit write failure and is not published", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		l := audit.New(&mockAuditRepo{
			appendFunc: func(_ context.Context, _ *domain.AuditRecord) error {
				return errors.New("disk full")
			},
		}, pub)

		err := l.Append(context.Background(), sampleRecord())
		require.ErrorIs(t, err, domain.ErrAuditWrite)
		assert.Equal(t, domain.KindAuditWriteFailure, domain.KindOf(err))
		assert.Empty(t, pub.channels)
	})

	t.Run("publish failure does not fail the append", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{err: errors.New("redis down")}
		l := audit.New(&mockAuditRepo{
			appendFunc: func(_ context.Context, _ *domain.AuditRecord) error { return nil },
		}, pub)

		require.NoError(t, l.Append(context.Background(), sampleRecord()))
		assert.Len(t, pub.channels, 2)
	})

	t.Run("system action without entity id", func(t *testing.T) {
		t.Parallel()

		pub := &recordingPublisher{}
		l := audit.New(&mockAuditRepo{
			appendFunc: func(_ context.Context, _ *domain.AuditRecord) error { return nil },
		}, pub)

		rec := sampleRecord()
		rec.EntityID = nil
		rec.Before = nil
		require.NoError(t, l.Append(context.Background(), rec))
		assert.True(t, audit.Verify(rec))
		assert.Equal(t, []string{"audit:records"}, pub.channels)
	})

	t.Run("keeps caller supplied id and time", func(t *testing.T) {
		t.Parallel()

		l := audit.New(&mockAuditRepo{
			appendFunc: func(_ context.Context, _ *domain.AuditRecord) error { return nil },
		}, nil)

		rec := sampleRecord()
		id := uuid.New()
		at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
		rec.ID, rec.CreatedAt = id, at

		require.NoError(t, l.Append(context.Background(), rec))
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, at, rec.CreatedAt)
	})
}

// ---------------------------------------------------------------------------
// Digest
// ---------------------------------------------------------------------------

func TestDigest_StableAcrossJSONRoundTrip(t *testing.T) {
	t.Parallel()

	rec := sampleRecord()
	rec.ID = uuid.New()
	rec.CreatedAt = time.Date(2026, 5, 4, 3, 2, 1, 123456000, time.UTC)
	rec.Before["updated_at"] = time.Date(2026, 5, 1, 0, 0, 0, 5000, time.UTC)

	d1, err := audit.Digest(rec)
	require.NoError(t, err)

	raw, err := json.Marshal(rec.Before)
	require.NoError(t, err)
	var reread domain.Snapshot
	require.NoError(t, json.Unmarshal(raw, &reread))

	copied := *rec
	copied.Before = reread
	copied.CreatedAt = rec.CreatedAt.In(time.FixedZone("CEST", 2*60*60))

	d2, err := audit.Digest(&copied)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestVerify_DetectsTampering(t *testing.T) {
	t.Parallel()

	rec := sampleRecord()
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC()

	d, err := audit.Digest(rec)
	require.NoError(t, err)
	rec.Digest = d
	require.True(t, audit.Verify(rec))

	rec.After = domain.Snapshot{"status": "completed", "amount": int64(5000)}
	assert.False(t, audit.Verify(rec))
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestLog_Reads(t *testing.T) {
	t.Parallel()

	entityID := uuid.New()
	want := []*domain.AuditRecord{sampleRecord()}
	l := audit.New(&mockAuditRepo{
		getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.AuditRecord, error) {
			return nil, domain.ErrNotFound
		},
		listByEntityFunc: func(_ context.Context, kind domain.EntityKind, id uuid.UUID, limit int) ([]*domain.AuditRecord, error) {
			assert.Equal(t, domain.KindProfiles, kind)
			assert.Equal(t, entityID, id)
			assert.Equal(t, 20, limit)
			return want, nil
		},
		listFunc: func(_ context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
			assert.Equal(t, 50, limit)
			assert.Equal(t, 100, offset)
			return want, nil
		},
	}, nil)

	_, err := l.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := l.ListByEntity(context.Background(), domain.KindProfiles, entityID, 20)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = l.List(context.Background(), 50, 100)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
