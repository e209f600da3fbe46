package commission

import "sort"

// =============================================================================
// CATEGORIES
// =============================================================================

type Category string

const (
	CategoryPrincipal Category = "principal"
	CategoryAdicional Category = "adicional"
	CategoryPxQ       Category = "pxq"
	CategoryPostventa Category = "postventa"
	CategoryBono      Category = "bono"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPrincipal,
	CategoryAdicional,
	CategoryPxQ,
	CategoryPostventa,
	CategoryBono,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Line is a total of the CommissionResult.
type Line string

const (
	LineFixed      Line = "fixed_salary"
	LineVariable   Line = "variable_commission"
	LineAdditional Line = "additional_commission"
	LinePxQ        Line = "pxq_commission"
	LineBonus      Line = "bonus_commission"
	LineGross      Line = "total_gross"
	LinePenalty    Line = "penalty"
	LineNet        Line = "total_net"
)

// LineFor returns the total a category rolls into.
func LineFor(c Category) Line {
	switch c {
	case CategoryPrincipal:
		return LineVariable
	case CategoryAdicional, CategoryPostventa:
		return LineAdditional
	case CategoryPxQ:
		return LinePxQ
	case CategoryBono:
		return LineBonus
	default:
		return ""
	}
}

// =============================================================================
// CATEGORIZE - The one grouping used by fulfillment and aggregation
// =============================================================================

// CategoryGroups holds item results grouped by category.
type CategoryGroups map[Category][]ItemResult

// Categorize groups results by category, each group ordered by display
// order then item ID. Unknown categories are dropped.
func Categorize(results []ItemResult) CategoryGroups {
	groups := make(CategoryGroups, len(Categories))
	for _, r := range results {
		if !r.Category.Valid() {
			continue
		}
		groups[r.Category] = append(groups[r.Category], r)
	}
	for _, g := range groups {
		sortResults(g)
	}
	return groups
}

func sortResults(rs []ItemResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].DisplayOrder != rs[j].DisplayOrder {
			return rs[i].DisplayOrder < rs[j].DisplayOrder
		}
		return rs[i].ItemID < rs[j].ItemID
	})
}
