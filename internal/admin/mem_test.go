package admin_test

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/domain"
	"github.com/gosuda/escrow-admin/internal/notify"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type memAccounts struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]domain.Account
	reads int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{rows: make(map[uuid.UUID]domain.Account)}
}

func (m *memAccounts) add(role domain.Role, status domain.AccountStatus) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.rows[id] = domain.Account{ID: id, Role: role, Status: status, FullName: string(role)}
	return id
}

func (m *memAccounts) get(id uuid.UUID) domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

func (m *memAccounts) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *memAccounts) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	a, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

func (m *memAccounts) UpdateFields(_ context.Context, id uuid.UUID, f domain.Fields) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	for k, v := range f {
		switch k {
		case domain.FieldRole:
			a.Role = v.(domain.Role)
		case domain.FieldStatus:
			a.Status = v.(domain.AccountStatus)
		case domain.FieldVerificationStatus:
			a.VerificationStatus = v.(domain.VerificationStatus)
		case domain.FieldFullName:
			a.FullName = v.(string)
		case domain.FieldEmail:
			a.Email = v.(string)
		case domain.FieldPhone:
			a.Phone = v.(string)
		case domain.FieldUpdatedAt:
			a.UpdatedAt = v.(time.Time)
		default:
			return nil, fmt.Errorf("column %q: %w", k, domain.ErrPersistence)
		}
	}
	m.rows[id] = a
	return &a, nil
}

// RoleOf only resolves active accounts.
func (m *memAccounts) RoleOf(_ context.Context, id uuid.UUID) (domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.Status != domain.AccountStatusActive {
		return "", domain.ErrNotFound
	}
	return a.Role, nil
}

type memTransactions struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]domain.Transaction
	writes     []domain.Fields
	afterGet   func()
	failUpdate error
}

func newMemTransactions() *memTransactions {
	return &memTransactions{rows: make(map[uuid.UUID]domain.Transaction)}
}

func (m *memTransactions) seed(status domain.TransactionStatus, buyer, seller *uuid.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.rows[id] = domain.Transaction{
		ID:          id,
		Amount:      12500,
		Description: "vintage camera",
		Status:      status,
		BuyerID:     buyer,
		SellerID:    seller,
	}
	return id
}

func (m *memTransactions) get(id uuid.UUID) (domain.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	return t, ok
}

func (m *memTransactions) writeLog() []domain.Fields {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Fields(nil), m.writes...)
}

func (m *memTransactions) Create(_ context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[tx.ID] = *tx
	return nil
}

func (m *memTransactions) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	m.mu.Lock()
	t, ok := m.rows[id]
	hook := m.afterGet
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if hook != nil {
		hook()
	}
	return &t, nil
}

func (m *memTransactions) UpdateFields(_ context.Context, id uuid.UUID, f domain.Fields) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return nil, m.failUpdate
	}
	t, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	for k, v := range f {
		switch k {
		case domain.FieldStatus:
			t.Status = v.(domain.TransactionStatus)
		case domain.FieldAmount:
			t.Amount = v.(int64)
		case domain.FieldDescription:
			t.Description = v.(string)
		case domain.FieldBuyerID:
			t.BuyerID = v.(*uuid.UUID)
		case domain.FieldSellerID:
			t.SellerID = v.(*uuid.UUID)
		case domain.FieldUpdatedAt:
			t.UpdatedAt = v.(time.Time)
		default:
			return nil, fmt.Errorf("column %q: %w", k, domain.ErrPersistence)
		}
	}
	m.rows[id] = t
	m.writes = append(m.writes, maps.Clone(f))
	return &t, nil
}

func (m *memTransactions) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	delete(m.rows, id)
	return nil
}

type memRows struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Snapshot
}

func newMemRows() *memRows {
	return &memRows{rows: make(map[uuid.UUID]domain.Snapshot)}
}

func (m *memRows) seed(s domain.Snapshot) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	s = maps.Clone(s)
	s[domain.FieldID] = id.String()
	m.rows[id] = s
	return id
}

func (m *memRows) Get(_ context.Context, id uuid.UUID) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return maps.Clone(s), nil
}

func (m *memRows) UpdateFields(_ context.Context, id uuid.UUID, f domain.Fields) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range f {
		s[k] = v
	}
	return maps.Clone(s), nil
}

func (m *memRows) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// ---------------------------------------------------------------------------
// Audit and alerts
// ---------------------------------------------------------------------------

type memAudit struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
	fail    bool
}

func (m *memAudit) Append(_ context.Context, rec *domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("audit: %w", domain.ErrAuditWrite)
	}
	rec.ID = uuid.New()
	m.records = append(m.records, rec)
	return nil
}

func (m *memAudit) Get(_ context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAudit) all() []*domain.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditRecord(nil), m.records...)
}

type memAlerts struct {
	events chan notify.Event
}

func newMemAlerts() *memAlerts {
	return &memAlerts{events: make(chan notify.Event, 16)}
}

func (m *memAlerts) Notify(_ context.Context, ev notify.Event) error {
	m.events <- ev
	return nil
}
