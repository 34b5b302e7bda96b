package quota

import (
	"context"
	"sync"
	"time"

	"github.com/sheetdrop/sheetdrop/internal/config"
)

// memory implements System with an in-process map guarded by a mutex.
// It backs tests and local development without a database; the mutex
// gives the same per-owner atomicity the SQL ledger gets from row locks.
type memory struct {
	mu        sync.Mutex
	records   map[string]*Record
	allotment int
	period    string
	now       func() time.Time
}

// NewMemory creates an in-memory quota ledger.
func NewMemory(cfg *config.QuotaConfig) System {
	return &memory{
		records:   make(map[string]*Record),
		allotment: cfg.FreeAllotment,
		period:    cfg.Period,
		now:       time.Now,
	}
}

func (m *memory) CheckAndReserve(ctx context.Context, ownerID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.ensure(ownerID)
	now := m.now()

	if rec.Tier == TierPaid {
		rec.UpdatedAt = now
		return copyRecord(rec), nil
	}

	if m.rolledOver(rec, now) {
		rec.UsedCount = 0
		rec.PeriodAnchor = now
	}

	if rec.UsedCount >= m.allotment {
		return nil, ErrExceeded
	}

	rec.UsedCount++
	rec.UpdatedAt = now
	return copyRecord(rec), nil
}

func (m *memory) Release(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.ensure(ownerID)
	if rec.Tier == TierFree && rec.UsedCount > 0 {
		rec.UsedCount--
		rec.UpdatedAt = m.now()
	}
	return nil
}

func (m *memory) Get(ctx context.Context, ownerID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRecord(m.ensure(ownerID)), nil
}

func (m *memory) SetTier(ctx context.Context, ownerID string, tier Tier) (*Record, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.ensure(ownerID)
	rec.Tier = tier
	rec.UpdatedAt = m.now()
	return copyRecord(rec), nil
}

func (m *memory) ensure(ownerID string) *Record {
	rec, ok := m.records[ownerID]
	if !ok {
		now := m.now()
		rec = &Record{
			OwnerID:      ownerID,
			Tier:         TierFree,
			PeriodAnchor: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		m.records[ownerID] = rec
	}
	return rec
}

func (m *memory) rolledOver(rec *Record, now time.Time) bool {
	switch m.period {
	case config.QuotaPeriodDaily:
		y1, m1, d1 := rec.PeriodAnchor.Date()
		y2, m2, d2 := now.Date()
		return y1 != y2 || m1 != m2 || d1 != d2
	case config.QuotaPeriodMonthly:
		y1, m1, _ := rec.PeriodAnchor.Date()
		y2, m2, _ := now.Date()
		return y1 != y2 || m1 != m2
	default:
		return false
	}
}

func copyRecord(rec *Record) *Record {
	out := *rec
	return &out
}
