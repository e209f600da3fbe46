package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/quota"
)

// =============================================================================
// FULFILLMENT - Achieved / quota
// =============================================================================

// ResolveQuota returns the quota an item is measured against. The seller's
// breakdown entry for the item wins over the scheme item quota; either way
// it is prorated by the seller's factor when hc is set. nil means the item
// has no quota. A zero quota is not nil: the item has a target but it is 0.
func ResolveQuota(item SchemeItem, hc *quota.HcQuota) *decimal.Decimal {
	if hc != nil {
		if v, ok := hc.ProratedBreakdown(string(item.ID)); ok {
			return &v
		}
	}
	if item.Quota == nil {
		return nil
	}
	var q decimal.Decimal
	if hc != nil {
		q = hc.Prorate(*item.Quota)
	} else {
		q = decimal.NewFromInt(int64(*item.Quota))
	}
	return &q
}

// Fulfillment is effectiveSales / quota, or nil when there is no positive
// quota.
func Fulfillment(effectiveSales int, q *decimal.Decimal) *decimal.Decimal {
	if q == nil || !q.IsPositive() {
		return nil
	}
	f := decimal.NewFromInt(int64(effectiveSales)).Div(*q)
	return &f
}

// GlobalFulfillment is the principal ratio of sums:
// sum(effective sales) / sum(quota) over principal items with a quota.
// It is nil when no principal item carries a positive quota.
func GlobalFulfillment(groups CategoryGroups) *decimal.Decimal {
	sales := decimal.Zero
	quotas := decimal.Zero
	for _, r := range groups[CategoryPrincipal] {
		if r.Quota == nil || !r.Quota.IsPositive() {
			continue
		}
		sales = sales.Add(decimal.NewFromInt(int64(r.EffectiveSales)))
		quotas = quotas.Add(*r.Quota)
	}
	if !quotas.IsPositive() {
		return nil
	}
	f := sales.Div(quotas)
	return &f
}
