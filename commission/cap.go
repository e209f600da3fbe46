package commission

import "github.com/shopspring/decimal"

// CapResult is the outcome of ApplyCap.
type CapResult struct {
	Commission decimal.Decimal
	Limit      *decimal.Decimal
	Applied    bool
}

// CapLimit returns the item's ceiling: CapAmount, else CapPercentage of the
// variable amount. nil when the item has no cap.
func CapLimit(item SchemeItem) *decimal.Decimal {
	if !item.HasCap {
		return nil
	}
	if item.CapAmount != nil {
		limit := *item.CapAmount
		return &limit
	}
	limit := item.CapPercentage.Mul(item.VariableAmount).Round(2)
	return &limit
}

// ApplyCap truncates computed to the item's ceiling. Applied is true only
// when the ceiling actually bound the result.
func ApplyCap(item SchemeItem, computed decimal.Decimal) CapResult {
	limit := CapLimit(item)
	if limit == nil {
		return CapResult{Commission: computed}
	}
	if computed.GreaterThan(*limit) {
		return CapResult{Commission: *limit, Limit: limit, Applied: true}
	}
	return CapResult{Commission: computed, Limit: limit}
}
