package commission

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PXQ TIER EVALUATOR - Per-unit rate by fulfillment band
// =============================================================================

// sortedTiers returns the tiers ordered by lower bound.
func (s PxQScale) sortedTiers() []PxQTier {
	tiers := append([]PxQTier{}, s.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Min.LessThan(tiers[j].Min) })
	return tiers
}

// SelectTier returns the tier with Min <= f < Max. A nil Max is +inf.
func (s PxQScale) SelectTier(f decimal.Decimal) (PxQTier, bool) {
	for _, t := range s.sortedTiers() {
		if f.LessThan(t.Min) {
			continue
		}
		if t.Max == nil || f.LessThan(*t.Max) {
			return t, true
		}
	}
	return PxQTier{}, false
}

// Validate reports gaps and overlaps. A valid scale partitions [0, +inf).
func (s PxQScale) Validate() []*ConfigError {
	var errs []*ConfigError
	tiers := s.sortedTiers()
	if len(tiers) == 0 {
		return []*ConfigError{{ItemID: s.ItemID, Code: CodePxQNoScale, Message: "scale has no tiers"}}
	}

	if !tiers[0].Min.IsZero() {
		errs = append(errs, &ConfigError{
			ItemID:  s.ItemID,
			Code:    CodePxQGap,
			Message: fmt.Sprintf("first tier starts at %s, not 0", tiers[0].Min),
		})
	}
	for i, t := range tiers {
		last := i == len(tiers)-1
		if t.Max == nil {
			if !last {
				errs = append(errs, &ConfigError{
					ItemID:  s.ItemID,
					Code:    CodePxQGap,
					Message: fmt.Sprintf("tier starting at %s is unbounded but is not the last tier", t.Min),
				})
			}
			continue
		}
		if !t.Max.GreaterThan(t.Min) {
			errs = append(errs, &ConfigError{
				ItemID:  s.ItemID,
				Code:    CodePxQGap,
				Message: fmt.Sprintf("tier [%s, %s) is empty", t.Min, *t.Max),
			})
		}
		if !last && !t.Max.Equal(tiers[i+1].Min) {
			errs = append(errs, &ConfigError{
				ItemID:  s.ItemID,
				Code:    CodePxQGap,
				Message: fmt.Sprintf("tier ending at %s is followed by a tier starting at %s", *t.Max, tiers[i+1].Min),
			})
		}
	}
	return errs
}

// EvaluatePxQ returns effectiveSales * amountPerUnit of the matching tier.
// A missing scale, a missing fulfillment or an uncovered fulfillment value
// yields zero and a ConfigError instead of failing the computation.
func EvaluatePxQ(item ItemID, scale *PxQScale, effectiveSales int, f *decimal.Decimal) (decimal.Decimal, *ConfigError) {
	if scale == nil || len(scale.Tiers) == 0 {
		return decimal.Zero, &ConfigError{ItemID: item, Code: CodePxQNoScale, Message: "pxq item has no scale configured"}
	}
	if f == nil {
		return decimal.Zero, &ConfigError{ItemID: item, Code: CodePxQNoQuota, Message: "pxq item has no quota, fulfillment is undefined"}
	}
	tier, ok := scale.SelectTier(*f)
	if !ok {
		return decimal.Zero, &ConfigError{
			ItemID:  item,
			Code:    CodePxQNoTier,
			Message: fmt.Sprintf("no tier covers fulfillment %s%%", percent(*f)),
		}
	}
	return decimal.NewFromInt(int64(effectiveSales)).Mul(tier.AmountPerUnit), nil
}
