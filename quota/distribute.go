package quota

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PRORATION
// =============================================================================

// ProrationFactor returns the share of the period a seller starting on
// startDate actually works, rounded to 4 decimals.
//
//   - nil start or start on/before the first day: 1
//   - start after the last day: 0
//   - otherwise (daysInMonth - day + 1) / daysInMonth
func ProrationFactor(period Period, startDate *time.Time) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if startDate == nil {
		return one
	}
	start := dateOnly(*startDate)
	if !start.After(period.FirstDay()) {
		return one
	}
	if start.After(period.LastDay()) {
		return decimal.Zero
	}
	days := period.DaysInMonth()
	worked := days - start.Day() + 1
	return decimal.NewFromInt(int64(worked)).
		Div(decimal.NewFromInt(int64(days))).
		Round(4)
}

// ProratedQuota applies factor to ssQuota, rounded to 2 decimals.
func ProratedQuota(ssQuota int, factor decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(ssQuota)).Mul(factor).Round(2)
}

// =============================================================================
// BREAKDOWN
// =============================================================================

// DistributeBreakdown splits the store breakdown proportionally to the
// seller's share: round(storeValue * sellerQuota / storeQuota). A store quota
// of zero yields zeros for every key.
func DistributeBreakdown(store map[string]int, storeQuota, sellerQuota int) map[string]int {
	out := make(map[string]int, len(store))
	for k, v := range store {
		if storeQuota == 0 {
			out[k] = 0
			continue
		}
		share := decimal.NewFromInt(int64(v)).
			Mul(decimal.NewFromInt(int64(sellerQuota))).
			Div(decimal.NewFromInt(int64(storeQuota))).
			Round(0)
		out[k] = int(share.IntPart())
	}
	return out
}

// =============================================================================
// DISTRIBUTE - Pure distribution algorithm
// =============================================================================

// CheckComplete verifies the seller shares add up to the store quota.
// Drafts may be incomplete; distribution and approval are not.
func CheckComplete(storeQuota int, shares []int) error {
	sum := 0
	for _, s := range shares {
		sum += s
	}
	if sum != storeQuota {
		return SumMismatchError(storeQuota, sum)
	}
	return nil
}

// Distribute splits sq between the given sellers. It returns fresh draft
// HcQuota rows in input order; nothing is persisted. The sum check runs on
// the unprorated quotas, before any proration.
func Distribute(sq StoreQuota, shares []SellerShare) ([]HcQuota, error) {
	if sq.Status.IsImmutable() {
		return nil, &ConflictError{StoreQuotaID: sq.ID, Status: sq.Status, Action: "distribute"}
	}
	if err := validateShares(sq, shares); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rows := make([]HcQuota, 0, len(shares))
	for _, s := range shares {
		factor := ProrationFactor(sq.Period, s.StartDate)
		var start *time.Time
		if s.StartDate != nil {
			d := dateOnly(*s.StartDate)
			start = &d
		}
		rows = append(rows, HcQuota{
			ID:              HcQuotaID(uuid.NewString()),
			SellerID:        s.SellerID,
			StoreQuotaID:    sq.ID,
			SsQuota:         s.SsQuota,
			Breakdown:       DistributeBreakdown(sq.Breakdown, sq.SsQuota, s.SsQuota),
			StartDate:       start,
			ProrationFactor: factor,
			ProratedSsQuota: ProratedQuota(s.SsQuota, factor),
			Status:          StatusDraft,
			CreatedAt:       now,
		})
	}
	return rows, nil
}

func validateShares(sq StoreQuota, shares []SellerShare) error {
	if !sq.Period.Valid() {
		return &ValidationError{Field: "period", Message: fmt.Sprintf("invalid period %s", sq.Period)}
	}
	if sq.SsQuota < 0 {
		return &ValidationError{Field: "ss_quota", Message: "store quota cannot be negative"}
	}
	if len(shares) == 0 {
		return &ValidationError{Field: "sellers", Message: "at least one seller is required"}
	}

	seen := make(map[SellerID]bool, len(shares))
	amounts := make([]int, 0, len(shares))
	for i, s := range shares {
		if s.SellerID == "" {
			return &ValidationError{Field: fmt.Sprintf("sellers[%d].seller_id", i), Message: "seller id is required"}
		}
		if seen[s.SellerID] {
			return &ValidationError{Field: fmt.Sprintf("sellers[%d].seller_id", i), Message: fmt.Sprintf("seller %s listed twice", s.SellerID)}
		}
		seen[s.SellerID] = true
		if s.SsQuota < 0 {
			return &ValidationError{Field: fmt.Sprintf("sellers[%d].ss_quota", i), Message: "quota cannot be negative"}
		}
		amounts = append(amounts, s.SsQuota)
	}
	return CheckComplete(sq.SsQuota, amounts)
}
