package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATOR - Subtotals, the min-fulfillment gate, gross and net
// =============================================================================

// Aggregate rolls item results into the final payout.
//
// The principal block is all-or-nothing: when the global fulfillment is
// below scheme.DefaultMinFulfillment, every principal item pays zero no
// matter how well it did on its own. There is no partial scale-down.
//
// penalty is supplied by the penalties subsystem as one signed amount and
// is subtracted from gross as is.
func Aggregate(scheme SchemeDefinition, items []ItemResult, penalty decimal.Decimal) *CommissionResult {
	result := &CommissionResult{
		SchemeID:          scheme.ID,
		CategorySubtotals: make(map[Category]decimal.Decimal, len(Categories)),
		FixedSalary:       scheme.FixedSalary,
		Penalty:           penalty,
	}

	groups := Categorize(items)
	result.GlobalFulfillment = GlobalFulfillment(groups)
	result.MinFulfillmentMet = result.GlobalFulfillment == nil ||
		result.GlobalFulfillment.GreaterThanOrEqual(scheme.DefaultMinFulfillment)

	if !result.MinFulfillmentMet {
		principal := groups[CategoryPrincipal]
		for i := range principal {
			principal[i].Gated = true
			principal[i].Commission = decimal.Zero
			principal[i].CapApplied = false
			principal[i].CapLimit = nil
			principal[i].Warnings = append(principal[i].Warnings, "principal block not paid: global fulfillment below scheme minimum")
		}
		result.Warnings = append(result.Warnings, Warning{
			Code: CodeGlobalGate,
			Message: fmt.Sprintf("global principal fulfillment %s%% is below the scheme minimum %s%%, variable commission is 0",
				percent(*result.GlobalFulfillment), percent(scheme.DefaultMinFulfillment)),
		})
	}

	lines := map[Line]decimal.Decimal{}
	for _, c := range Categories {
		subtotal := decimal.Zero
		for _, r := range groups[c] {
			subtotal = subtotal.Add(r.Commission)
			result.Items = append(result.Items, r)
		}
		result.CategorySubtotals[c] = subtotal
		line := LineFor(c)
		lines[line] = lines[line].Add(subtotal)
	}

	result.VariableCommission = lines[LineVariable]
	result.AdditionalCommission = lines[LineAdditional]
	result.PxQCommission = lines[LinePxQ]
	result.BonusCommission = lines[LineBonus]

	result.TotalGross = result.FixedSalary.
		Add(result.VariableCommission).
		Add(result.AdditionalCommission).
		Add(result.PxQCommission).
		Add(result.BonusCommission)
	result.TotalNet = result.TotalGross.Sub(penalty)
	return result
}

// LineValue returns one total of the result.
func (r *CommissionResult) LineValue(l Line) decimal.Decimal {
	switch l {
	case LineFixed:
		return r.FixedSalary
	case LineVariable:
		return r.VariableCommission
	case LineAdditional:
		return r.AdditionalCommission
	case LinePxQ:
		return r.PxQCommission
	case LineBonus:
		return r.BonusCommission
	case LineGross:
		return r.TotalGross
	case LinePenalty:
		return r.Penalty
	case LineNet:
		return r.TotalNet
	default:
		return decimal.Zero
	}
}
