// Package audit implements the append-only ledger of privileged mutations.
package audit

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"github.com/gosuda/escrow-admin/internal/domain"
	redisstore "github.com/gosuda/escrow-admin/internal/store/redis"
)

// Publisher fans appended records out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Log appends audit records and serves them back for review.
type Log struct {
	repo domain.AuditRepository
	pub  Publisher
	now  func() time.Time
}

// New creates a Log. pub may be nil, in which case nothing is published.
func New(repo domain.AuditRepository, pub Publisher) *Log {
	return &Log{repo: repo, pub: pub, now: time.Now}
}

// Append assigns the record its id, timestamp and digest, then writes it.
// A storage failure is returned wrapping domain.ErrAuditWrite. Publishing is
// best-effort and never fails the append.
func (l *Log) Append(ctx context.Context, rec *domain.AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		// Postgres keeps microseconds; truncate so the digest survives a round trip.
		rec.CreatedAt = l.now().UTC().Truncate(time.Microsecond)
	}

	digest, err := Digest(rec)
	if err != nil {
		return fmt.Errorf("audit.Log.Append: %w: %w", domain.ErrAuditWrite, err)
	}
	rec.Digest = digest

	if err := l.repo.Append(ctx, rec); err != nil {
		return fmt.Errorf("audit.Log.Append: %w: %w", domain.ErrAuditWrite, err)
	}

	l.publish(ctx, rec)
	return nil
}

func (l *Log) publish(ctx context.Context, rec *domain.AuditRecord) {
	if l.pub == nil {
		return
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		log.Warn().Err(err).Str("audit_id", rec.ID.String()).Msg("audit: marshal for publish")
		return
	}
	channels := []string{redisstore.AuditChannel()}
	if rec.EntityID != nil {
		channels = append(channels, redisstore.EntityAuditChannel(string(rec.EntityKind), *rec.EntityID))
	}
	for _, ch := range channels {
		if err := l.pub.Publish(ctx, ch, payload); err != nil {
			log.Warn().Err(err).Str("audit_id", rec.ID.String()).Str("channel", ch).Msg("audit: publish failed")
		}
	}
}

func (l *Log) Get(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	rec, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("audit.Log.Get: %w", err)
	}
	return rec, nil
}

func (l *Log) ListByEntity(ctx context.Context, kind domain.EntityKind, entityID uuid.UUID, limit int) ([]*domain.AuditRecord, error) {
	recs, err := l.repo.ListByEntity(ctx, kind, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit.Log.ListByEntity: %w", err)
	}
	return recs, nil
}

func (l *Log) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	recs, err := l.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit.Log.List: %w", err)
	}
	return recs, nil
}

type digestInput struct {
	ID          string          `json:"id"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    *string         `json:"entity_id"`
	Before      domain.Snapshot `json:"old_data"`
	After       domain.Snapshot `json:"new_data"`
	PerformedBy string          `json:"performed_by"`
	IPAddress   string          `json:"ip_address"`
	UserAgent   string          `json:"user_agent"`
	CreatedAt   string          `json:"created_at"`
}

// Digest returns the hex BLAKE2b-256 of the record's canonical JSON form,
// excluding the digest itself. Map keys marshal sorted, so the encoding is
// stable across a database round trip.
func Digest(rec *domain.AuditRecord) (string, error) {
	in := digestInput{
		ID:          rec.ID.String(),
		Action:      rec.Action,
		EntityType:  string(rec.EntityKind),
		Before:      rec.Before,
		After:       rec.After,
		PerformedBy: rec.PerformedBy.String(),
		IPAddress:   rec.Origin.IPAddress,
		UserAgent:   rec.Origin.UserAgent,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if rec.EntityID != nil {
		s := rec.EntityID.String()
		in.EntityID = &s
	}

	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("audit.Digest: %w", err)
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Verify reports whether rec still matches its stored digest.
func Verify(rec *domain.AuditRecord) bool {
	d, err := Digest(rec)
	return err == nil && d == rec.Digest
}
