// Package quota provides the per-user usage ledger that gates job
// admission. Reservation is a single atomic check-and-increment per
// owner, so two racing admissions at the allotment boundary can never
// both succeed.
package quota

import "time"

// Tier designates a user's billing tier. Tier changes arrive from the
// billing collaborator via webhook; the ledger never computes them.
type Tier string

// Billing tier constants.
const (
	TierFree Tier = "FREE"
	TierPaid Tier = "PAID"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPaid
}

// Record is one user's quota state. UsedCount tracks conversions
// consumed under the free allotment; it is irrelevant once Tier is PAID
// and only decrements through an explicit release or period rollover.
type Record struct {
	OwnerID      string    `json:"owner_id"`
	Tier         Tier      `json:"tier"`
	UsedCount    int       `json:"used_count"`
	PeriodAnchor time.Time `json:"period_anchor"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot is the client-facing view of a quota record.
type Snapshot struct {
	Tier      Tier `json:"tier"`
	UsedCount int  `json:"used_count"`
	Allotment int  `json:"allotment"`
	Remaining *int `json:"remaining,omitempty"`
}

// Snapshot derives the client-facing view given the configured allotment.
// Remaining is omitted for paid users, whose usage is unmetered.
func (r *Record) Snapshot(allotment int) Snapshot {
	s := Snapshot{
		Tier:      r.Tier,
		UsedCount: r.UsedCount,
		Allotment: allotment,
	}
	if r.Tier == TierFree {
		remaining := allotment - r.UsedCount
		if remaining < 0 {
			remaining = 0
		}
		s.Remaining = &remaining
	}
	return s
}
