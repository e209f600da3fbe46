package commission

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESTRICTION ENFORCER - Cap plan/operator-tagged sales
// =============================================================================

// RestrictionOutcome explains what one tag code contributed to an item.
type RestrictionOutcome struct {
	RestrictionIDs []string
	Type           RestrictionType
	Code           string
	Tagged         int
	Allowed        int
	Truncated      bool
	Reason         string
}

// RestrictionResult is the enforcer output for one item.
type RestrictionResult struct {
	RawCount       int
	EffectiveCount int
	Applied        bool
	Detail         []RestrictionOutcome
	Errors         []*ConfigError
}

// Ceiling returns how many of tagged sales the restriction lets through,
// given the item's total raw count. Restrictions without a max limit let
// everything through.
//
// The percentage limit is taken of the raw count rather than the effective
// count, so a ceiling never depends on what other restrictions removed.
func (r Restriction) Ceiling(tagged, total int) int {
	allowed := tagged
	if r.MaxPercentage != nil {
		limit := decimal.NewFromInt(int64(total)).Mul(*r.MaxPercentage).Floor()
		allowed = minInt(allowed, int(limit.IntPart()))
	}
	if r.MaxQuantity != nil {
		allowed = minInt(allowed, *r.MaxQuantity)
	}
	if allowed < 0 {
		allowed = 0
	}
	return allowed
}

// BindingCount applies every restriction to the same tagged count and keeps
// the minimum. Order doesn't matter and applying it twice changes nothing.
func BindingCount(tagged, total int, rs []Restriction) int {
	allowed := tagged
	for _, r := range rs {
		allowed = minInt(allowed, r.Ceiling(tagged, total))
	}
	return allowed
}

func (r Restriction) appliesTo(item ItemID) bool {
	return r.ItemID == "" || r.ItemID == item
}

func (r Restriction) matches(tag SaleTag) bool {
	switch r.Type {
	case RestrictPlan:
		return tag.PlanCode == r.Code
	case RestrictOperator:
		return tag.OperatorCode == r.Code
	default:
		return false
	}
}

func (r Restriction) hasMax() bool { return r.MaxPercentage != nil || r.MaxQuantity != nil }

type restrictionKey struct {
	Type RestrictionType
	Code string
}

// restrictionGroup is every restriction on one (type, code) and the
// admission slots its binding ceiling leaves.
type restrictionGroup struct {
	key      restrictionKey
	rs       []Restriction
	capped   bool
	tagged   int
	slots    int
	admitted int
}

// EnforceRestrictions computes the effective count of one item.
//
// Restrictions on the same (type, code) bind together through their lowest
// ceiling. A sale is then admitted only if every capped group it matches
// still has a slot, so a sale tagged with both a restricted plan and a
// restricted operator is removed at most once. Sales matching fewer capped
// groups are admitted first. Untagged sales always count.
func EnforceRestrictions(item ItemID, fact SalesFact, restrictions []Restriction) RestrictionResult {
	result := RestrictionResult{RawCount: fact.RawCount, EffectiveCount: fact.RawCount}

	byKey := make(map[restrictionKey]*restrictionGroup)
	for _, r := range restrictions {
		if !r.appliesTo(item) {
			continue
		}
		if r.Type != RestrictPlan && r.Type != RestrictOperator {
			result.Errors = append(result.Errors, &ConfigError{
				ItemID:  item,
				Code:    CodeRestrictionType,
				Message: fmt.Sprintf("restriction %s has unknown type %q and was ignored", r.ID, r.Type),
			})
			continue
		}
		k := restrictionKey{Type: r.Type, Code: r.Code}
		g, ok := byKey[k]
		if !ok {
			g = &restrictionGroup{key: k}
			byKey[k] = g
		}
		g.rs = append(g.rs, r)
	}

	groups := make([]*restrictionGroup, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].key.Type != groups[j].key.Type {
			return groups[i].key.Type < groups[j].key.Type
		}
		return groups[i].key.Code < groups[j].key.Code
	})

	// Which groups each tagged sale falls into
	total := fact.RawCount
	matched := make([][]int, len(fact.Tags))
	for i, tag := range fact.Tags {
		for gi, g := range groups {
			if g.rs[0].matches(tag) {
				matched[i] = append(matched[i], gi)
				g.tagged++
			}
		}
	}

	for _, g := range groups {
		var maxes []Restriction
		for _, r := range g.rs {
			if r.hasMax() {
				maxes = append(maxes, r)
			}
		}
		g.capped = len(maxes) > 0
		g.slots = g.tagged
		if g.capped {
			g.slots = BindingCount(g.tagged, total, maxes)
		}
	}

	cappedCount := func(sale int) int {
		n := 0
		for _, gi := range matched[sale] {
			if groups[gi].capped {
				n++
			}
		}
		return n
	}
	order := make([]int, 0, len(fact.Tags))
	for i := range fact.Tags {
		if len(matched[i]) > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return cappedCount(order[a]) < cappedCount(order[b]) })

	removed := 0
	for _, sale := range order {
		admit := true
		for _, gi := range matched[sale] {
			g := groups[gi]
			if g.capped && g.admitted >= g.slots {
				admit = false
				break
			}
		}
		if !admit {
			removed++
			continue
		}
		for _, gi := range matched[sale] {
			groups[gi].admitted++
		}
	}

	for _, g := range groups {
		k := g.key
		outcome := RestrictionOutcome{Type: k.Type, Code: k.Code, Tagged: g.tagged, Allowed: g.admitted}
		for _, r := range g.rs {
			outcome.RestrictionIDs = append(outcome.RestrictionIDs, r.ID)
		}
		if g.capped && outcome.Allowed < outcome.Tagged {
			outcome.Truncated = true
			outcome.Reason = fmt.Sprintf("%s %s: %d of %d tagged sales count", k.Type, k.Code, outcome.Allowed, outcome.Tagged)
			result.Applied = true
		}

		for _, r := range g.rs {
			if r.MinPercentage == nil || total == 0 {
				continue
			}
			share := decimal.NewFromInt(int64(g.tagged)).Div(decimal.NewFromInt(int64(total)))
			if share.LessThan(*r.MinPercentage) {
				reason := fmt.Sprintf("%s %s share %s%% is below the required minimum %s%%",
					k.Type, k.Code, percent(share), percent(*r.MinPercentage))
				if outcome.Reason != "" {
					outcome.Reason += "; "
				}
				outcome.Reason += reason
				result.Applied = true
			}
		}

		result.Detail = append(result.Detail, outcome)
	}

	result.EffectiveCount = fact.RawCount - removed
	if result.EffectiveCount < 0 {
		result.EffectiveCount = 0
	}
	return result
}

func percent(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
