/*
Package quota splits store-level sales targets into per-seller targets.

PURPOSE:
  A store receives one SS quota (target unit count) per month. Commercial
  operations split it between the sellers (HC, head count) working that
  store. Sellers who join mid-month get a prorated target. Everything the
  commission engine measures fulfillment against comes from here.

KEY CONCEPTS IN THIS FILE (types.go):
  - StoreQuota: The store's target for one period, plus a sub-quota breakdown
  - HcQuota: One seller's share of a StoreQuota, with proration applied
  - SellerShare: Input row for the distributor (seller, units, start date)
  - Status: draft -> approved, approved rows are immutable

LIFECYCLE:
  1. StoreQuota is created (import or manual) in draft
  2. Distribute() creates/replaces all HcQuota rows in draft
  3. Approve() flips the StoreQuota and all its rows to approved at once
  4. Approved rows never change again (archival happens at scheme level)

SEE ALSO:
  - distribute.go: Proration and the pure distribution algorithm
  - distributor.go: Store-backed service (replace, approve)
  - store.go: Persistence interface
*/
package quota

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StoreQuotaID string
type HcQuotaID string
type SellerID string
type StoreID string

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
)

func (s Status) IsImmutable() bool { return s == StatusApproved }

// =============================================================================
// STORE QUOTA - Store-level target for a period
// =============================================================================

type StoreQuota struct {
	ID      StoreQuotaID
	StoreID StoreID
	Period  Period
	SsQuota int

	// Breakdown holds sub-quotas keyed by scheme item (or product line).
	// Distributed proportionally to sellers.
	Breakdown map[string]int

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// HC QUOTA - One seller's share
// =============================================================================

type HcQuota struct {
	ID           HcQuotaID
	SellerID     SellerID
	StoreQuotaID StoreQuotaID
	SsQuota      int
	Breakdown    map[string]int

	// StartDate is set when the seller joined after the period started.
	StartDate *time.Time

	ProrationFactor decimal.Decimal // 4 decimal places
	ProratedSsQuota decimal.Decimal // 2 decimal places

	Status    Status
	CreatedAt time.Time
}

// Factor is the proration factor to apply. A row built without one and
// without a start date counts as a full month.
func (h HcQuota) Factor() decimal.Decimal {
	if h.ProrationFactor.IsZero() && h.StartDate == nil {
		return decimal.NewFromInt(1)
	}
	return h.ProrationFactor
}

// Prorate scales a full-month quota by the seller's factor, rounded to 2
// decimals.
func (h HcQuota) Prorate(q int) decimal.Decimal {
	return decimal.NewFromInt(int64(q)).Mul(h.Factor()).Round(2)
}

// ProratedBreakdown returns the sub-quota for key scaled by the proration
// factor, rounded to 2 decimals. ok is false when the key is absent.
func (h HcQuota) ProratedBreakdown(key string) (decimal.Decimal, bool) {
	v, ok := h.Breakdown[key]
	if !ok {
		return decimal.Zero, false
	}
	return h.Prorate(v), true
}

// SellerShare is one input row for the distributor.
type SellerShare struct {
	SellerID  SellerID
	SsQuota   int
	StartDate *time.Time
}
