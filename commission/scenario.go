package commission

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCENARIO COMPARISON - Pure diff of two results
// =============================================================================

// LineDelta compares one total. Delta is B - A.
type LineDelta struct {
	Line  Line
	A     decimal.Decimal
	B     decimal.Decimal
	Delta decimal.Decimal
}

// CategoryDelta compares one category subtotal.
type CategoryDelta struct {
	Category Category
	A        decimal.Decimal
	B        decimal.Decimal
	Delta    decimal.Decimal
}

// ItemDelta compares one item. InA/InB say which side has the item.
type ItemDelta struct {
	ItemID       ItemID
	InA          bool
	InB          bool
	CommissionA  decimal.Decimal
	CommissionB  decimal.Decimal
	Delta        decimal.Decimal
	FulfillmentA *decimal.Decimal
	FulfillmentB *decimal.Decimal
	UnlockedA    bool
	UnlockedB    bool
}

// ScenarioDiff is the line-by-line comparison of two results.
type ScenarioDiff struct {
	Lines      []LineDelta
	Categories []CategoryDelta
	Items      []ItemDelta

	// GateChanged is set when only one side met the minimum fulfillment.
	GateChanged bool
}

var diffLines = []Line{
	LineFixed, LineVariable, LineAdditional, LinePxQ, LineBonus, LineGross, LinePenalty, LineNet,
}

// CompareScenarios diffs b against a. Neither result is modified.
func CompareScenarios(a, b *CommissionResult) ScenarioDiff {
	if a == nil {
		a = &CommissionResult{}
	}
	if b == nil {
		b = &CommissionResult{}
	}

	var diff ScenarioDiff
	for _, l := range diffLines {
		va, vb := a.LineValue(l), b.LineValue(l)
		diff.Lines = append(diff.Lines, LineDelta{Line: l, A: va, B: vb, Delta: vb.Sub(va)})
	}
	for _, c := range Categories {
		va, vb := a.CategorySubtotals[c], b.CategorySubtotals[c]
		diff.Categories = append(diff.Categories, CategoryDelta{Category: c, A: va, B: vb, Delta: vb.Sub(va)})
	}

	byID := make(map[ItemID]*ItemDelta)
	var ids []ItemID
	get := func(id ItemID) *ItemDelta {
		d, ok := byID[id]
		if !ok {
			d = &ItemDelta{ItemID: id}
			byID[id] = d
			ids = append(ids, id)
		}
		return d
	}
	for _, r := range a.Items {
		d := get(r.ItemID)
		d.InA = true
		d.CommissionA = r.Commission
		d.FulfillmentA = r.Fulfillment
		d.UnlockedA = r.LockUnlocked
	}
	for _, r := range b.Items {
		d := get(r.ItemID)
		d.InB = true
		d.CommissionB = r.Commission
		d.FulfillmentB = r.Fulfillment
		d.UnlockedB = r.LockUnlocked
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		d := byID[id]
		d.Delta = d.CommissionB.Sub(d.CommissionA)
		diff.Items = append(diff.Items, *d)
	}

	diff.GateChanged = a.MinFulfillmentMet != b.MinFulfillmentMet
	return diff
}

// Line returns the delta for l.
func (d ScenarioDiff) Line(l Line) LineDelta {
	for _, ld := range d.Lines {
		if ld.Line == l {
			return ld
		}
	}
	return LineDelta{Line: l}
}
