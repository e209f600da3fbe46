package commission_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
)

func TestCompareScenarios_LineDeltas(t *testing.T) {
	// GIVEN: the same scheme, one seller below the gate and one above
	scheme := gatedScheme()
	low, err := commission.Compute(scheme, sales(map[string]int{"postpaid": 10, "portability": 5}), nil, dec("50"))
	require.NoError(t, err)
	high, err := commission.Compute(scheme, sales(map[string]int{"postpaid": 30, "portability": 10}), nil, dec("50"))
	require.NoError(t, err)

	// WHEN
	diff := commission.CompareScenarios(low, high)

	// THEN
	assert.True(t, diff.GateChanged)
	assertDec(t, "0", diff.Line(commission.LineFixed).Delta)
	assertDec(t, "916.67", diff.Line(commission.LineVariable).Delta)
	assertDec(t, "916.67", diff.Line(commission.LineGross).Delta)
	assertDec(t, "0", diff.Line(commission.LinePenalty).Delta)
	assertDec(t, "916.67", diff.Line(commission.LineNet).Delta)
	assertDec(t, "1150", diff.Line(commission.LineNet).A)

	require.Len(t, diff.Items, 2)
	assert.Equal(t, commission.ItemID("portability"), diff.Items[0].ItemID)
	assertDec(t, "166.67", diff.Items[0].Delta)
	assertDec(t, "750", diff.Items[1].Delta)

	require.Len(t, diff.Categories, len(commission.Categories))
	assertDec(t, "916.67", diff.Categories[0].Delta)
}

func TestCompareScenarios_ItemsOnOneSide(t *testing.T) {
	a := &commission.CommissionResult{Items: []commission.ItemResult{{ItemID: "old", Commission: dec("10")}}}
	b := &commission.CommissionResult{Items: []commission.ItemResult{{ItemID: "new", Commission: dec("25"), LockUnlocked: true}}}

	diff := commission.CompareScenarios(a, b)

	require.Len(t, diff.Items, 2)
	assert.Equal(t, commission.ItemID("new"), diff.Items[0].ItemID)
	assert.False(t, diff.Items[0].InA)
	assert.True(t, diff.Items[0].InB)
	assertDec(t, "25", diff.Items[0].Delta)
	assert.True(t, diff.Items[1].InA)
	assertDec(t, "-10", diff.Items[1].Delta)
}

func TestCompareScenarios_IdenticalIsZero(t *testing.T) {
	r, err := commission.Compute(gatedScheme(), sales(map[string]int{"postpaid": 40}), nil, decimal.Zero)
	require.NoError(t, err)

	diff := commission.CompareScenarios(r, r)

	for _, l := range diff.Lines {
		assert.True(t, l.Delta.IsZero(), l.Line)
	}
	for _, it := range diff.Items {
		assert.True(t, it.Delta.IsZero(), it.ItemID)
	}
	assert.False(t, diff.GateChanged)
}

func TestCompareScenarios_NilSide(t *testing.T) {
	r, err := commission.Compute(gatedScheme(), sales(map[string]int{"postpaid": 40, "portability": 30}), nil, decimal.Zero)
	require.NoError(t, err)

	diff := commission.CompareScenarios(nil, r)

	assertDec(t, "2700", diff.Line(commission.LineGross).Delta)
}
