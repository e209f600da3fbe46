package commission

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/quota"
)

// =============================================================================
// COMPUTE - Scheme + sales + quota -> payout
// =============================================================================

// Compute runs the full pipeline for one seller. hc may be nil when the
// seller has no distributed quota; scheme item quotas are used instead.
//
// Only malformed input returns an error (*ValidationError). Configuration
// defects zero the affected item and surface as warnings on the result.
func Compute(scheme SchemeDefinition, sales SalesSnapshot, hc *quota.HcQuota, penalty decimal.Decimal) (*CommissionResult, error) {
	if err := ValidateScheme(scheme); err != nil {
		return nil, err
	}
	if err := ValidateSales(sales); err != nil {
		return nil, err
	}

	var warnings []Warning
	active := activeItems(scheme.Items)
	known := make(map[ItemID]bool, len(active))
	for _, it := range active {
		known[it.ID] = true
	}
	for _, id := range sortedFactIDs(sales.Facts) {
		if !known[id] {
			warnings = append(warnings, Warning{
				ItemID:  id,
				Code:    CodeUnknownSalesItem,
				Message: fmt.Sprintf("sales reported for %s, which is not an active item of the scheme", id),
			})
		}
	}

	// Restrictions and fulfillment
	results := make(map[ItemID]*ItemResult, len(active))
	states := make(map[ItemID]ItemState, len(active))
	for _, it := range active {
		fact := sales.Facts[it.ID]
		rr := EnforceRestrictions(it.ID, fact, scheme.Restrictions)
		for _, e := range rr.Errors {
			warnings = append(warnings, e.Warning())
		}

		q := ResolveQuota(it, hc)
		r := &ItemResult{
			ItemID:             it.ID,
			Name:               it.Name,
			Category:           it.Category,
			DisplayOrder:       it.DisplayOrder,
			Quota:              q,
			RawSales:           fact.RawCount,
			EffectiveSales:     rr.EffectiveCount,
			Fulfillment:        Fulfillment(rr.EffectiveCount, q),
			RestrictionApplied: rr.Applied,
			RestrictionDetail:  rr.Detail,
		}
		for _, d := range rr.Detail {
			if d.Reason != "" {
				r.Warnings = append(r.Warnings, d.Reason)
				if !d.Truncated {
					warnings = append(warnings, Warning{ItemID: it.ID, Code: CodeRestriction, Message: d.Reason})
				}
			}
		}
		results[it.ID] = r
		states[it.ID] = ItemState{EffectiveSales: r.EffectiveSales, Fulfillment: r.Fulfillment}
	}

	// Locks
	resolution := NewLockGraph(active, scheme.Locks).Resolve(states)
	for _, err := range resolution.Errors {
		switch e := err.(type) {
		case *ConfigError:
			warnings = append(warnings, e.Warning())
		case *CycleError:
			warnings = append(warnings, Warning{Code: CodeLockCycle, Message: e.Error()})
		}
	}

	scales := make(map[ItemID]*PxQScale, len(scheme.PxQScales))
	for i := range scheme.PxQScales {
		s := &scheme.PxQScales[i]
		scales[s.ItemID] = s
	}

	// Commission per item
	items := make([]ItemResult, 0, len(active))
	for _, it := range active {
		r := results[it.ID]
		r.LockUnlocked = resolution.Unlocked[it.ID]
		r.LockPending = resolution.Pending[it.ID]

		computed, cfgErr, note := itemCommission(scheme, it, r, scales[it.ID])
		if cfgErr != nil {
			warnings = append(warnings, cfgErr.Warning())
			r.Warnings = append(r.Warnings, cfgErr.Message)
		}
		if note != nil {
			warnings = append(warnings, *note)
			r.Warnings = append(r.Warnings, note.Message)
		}
		r.ComputedCommission = computed.Round(2)

		if !r.LockUnlocked {
			r.Commission = decimal.Zero
		} else {
			capped := ApplyCap(it, r.ComputedCommission)
			r.Commission = capped.Commission
			r.CapApplied = capped.Applied
			r.CapLimit = capped.Limit
		}
		items = append(items, *r)
	}

	result := Aggregate(scheme, items, penalty)
	result.SellerID = sales.SellerID
	result.Warnings = append(warnings, result.Warnings...)
	return result, nil
}

// itemCommission computes the uncapped commission of an unlocked item.
func itemCommission(scheme SchemeDefinition, it SchemeItem, r *ItemResult, scale *PxQScale) (decimal.Decimal, *ConfigError, *Warning) {
	switch it.Category {
	case CategoryPxQ:
		amount, err := EvaluatePxQ(it.ID, scale, r.EffectiveSales, r.Fulfillment)
		return amount, err, nil

	case CategoryBono:
		if r.Quota != nil && r.Fulfillment == nil {
			return decimal.Zero, nil, zeroQuota(it)
		}
		if r.Fulfillment != nil && r.Fulfillment.LessThan(it.MinFulfillment) {
			return decimal.Zero, nil, belowMinimum(it, *r.Fulfillment)
		}
		return it.VariableAmount, nil, nil

	default:
		base := it.baseAmount(scheme)
		if r.Quota == nil {
			// No quota: fixed-amount item
			return base, nil, nil
		}
		if r.Fulfillment == nil {
			return decimal.Zero, nil, zeroQuota(it)
		}
		if r.Fulfillment.LessThan(it.MinFulfillment) {
			return decimal.Zero, nil, belowMinimum(it, *r.Fulfillment)
		}
		return base.Mul(*r.Fulfillment).Mul(it.mix()), nil, nil
	}
}

func zeroQuota(it SchemeItem) *Warning {
	return &Warning{
		ItemID:  it.ID,
		Code:    CodeZeroQuota,
		Message: "quota is 0, fulfillment is undefined and the item pays 0",
	}
}

func belowMinimum(it SchemeItem, f decimal.Decimal) *Warning {
	return &Warning{
		ItemID: it.ID,
		Code:   CodeBelowItemMinimum,
		Message: fmt.Sprintf("fulfillment %s%% is below the item minimum %s%%",
			percent(f), percent(it.MinFulfillment)),
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateScheme rejects schemes that can't be evaluated at all.
func ValidateScheme(s SchemeDefinition) error {
	seen := make(map[ItemID]bool, len(s.Items))
	for i, it := range s.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ID == "" {
			return &ValidationError{Field: field + ".id", Message: "item id is required"}
		}
		if seen[it.ID] {
			return &ValidationError{Field: field + ".id", Message: fmt.Sprintf("duplicate item id %s", it.ID)}
		}
		seen[it.ID] = true
		if !it.Category.Valid() {
			return &ValidationError{Field: field + ".category", Message: fmt.Sprintf("unknown category %q", it.Category)}
		}
		if it.Quota != nil && *it.Quota < 0 {
			return &ValidationError{Field: field + ".quota", Message: "quota cannot be negative"}
		}
	}
	return nil
}

// ValidateSales rejects impossible sales facts.
func ValidateSales(s SalesSnapshot) error {
	for _, id := range sortedFactIDs(s.Facts) {
		f := s.Facts[id]
		if f.RawCount < 0 {
			return &ValidationError{Field: fmt.Sprintf("sales[%s].raw_count", id), Message: "raw count cannot be negative"}
		}
		if len(f.Tags) > f.RawCount {
			return &ValidationError{
				Field:   fmt.Sprintf("sales[%s].tags", id),
				Message: fmt.Sprintf("%d tags for %d sales", len(f.Tags), f.RawCount),
			}
		}
	}
	return nil
}

func activeItems(items []SchemeItem) []SchemeItem {
	var out []SchemeItem
	for _, it := range items {
		if it.IsActive {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedFactIDs(facts map[ItemID]SalesFact) []ItemID {
	ids := make([]ItemID, 0, len(facts))
	for id := range facts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
