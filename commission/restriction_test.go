package commission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
)

func planTags(code string, n int) []commission.SaleTag {
	tags := make([]commission.SaleTag, n)
	for i := range tags {
		tags[i] = commission.SaleTag{PlanCode: code}
	}
	return tags
}

func TestRestriction_Ceiling(t *testing.T) {
	tests := []struct {
		name   string
		r      commission.Restriction
		tagged int
		total  int
		want   int
	}{
		{"max percentage floors", commission.Restriction{MaxPercentage: decp("0.25")}, 10, 30, 7},
		{"max percentage above tagged", commission.Restriction{MaxPercentage: decp("0.5")}, 4, 30, 4},
		{"max quantity", commission.Restriction{MaxQuantity: intp(3)}, 10, 30, 3},
		{"both limits take the lower", commission.Restriction{MaxPercentage: decp("0.1"), MaxQuantity: intp(5)}, 10, 30, 3},
		{"no limit", commission.Restriction{MinPercentage: decp("0.2")}, 10, 30, 10},
		{"zero quantity", commission.Restriction{MaxQuantity: intp(0)}, 10, 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Ceiling(tt.tagged, tt.total))
		})
	}
}

func TestBindingCount_MinimumIsOrderIndependent(t *testing.T) {
	a := commission.Restriction{ID: "a", MaxPercentage: decp("0.2")} // floor(50*0.2) = 10
	b := commission.Restriction{ID: "b", MaxQuantity: intp(6)}
	c := commission.Restriction{ID: "c", MaxQuantity: intp(8)}

	orders := [][]commission.Restriction{{a, b, c}, {c, b, a}, {b, a, c}}
	for _, rs := range orders {
		assert.Equal(t, 6, commission.BindingCount(12, 50, rs))
	}
}

func TestBindingCount_Idempotent(t *testing.T) {
	rs := []commission.Restriction{
		{MaxPercentage: decp("0.3")},
		{MaxQuantity: intp(9)},
	}
	for tagged := 0; tagged <= 40; tagged++ {
		once := commission.BindingCount(tagged, 40, rs)
		twice := commission.BindingCount(once, 40, rs)
		assert.Equal(t, once, twice, "tagged %d", tagged)
	}
}

func TestEnforceRestrictions_TruncatesTaggedOnly(t *testing.T) {
	fact := commission.SalesFact{
		RawCount: 20,
		Tags:     append(planTags("PLAN-29", 8), planTags("PLAN-69", 2)...),
	}
	rs := []commission.Restriction{{
		ID:            "r-1",
		ItemID:        "postpaid",
		Type:          commission.RestrictPlan,
		Code:          "PLAN-29",
		MaxPercentage: decp("0.2"), // floor(20*0.2) = 4
	}}

	res := commission.EnforceRestrictions("postpaid", fact, rs)

	assert.Equal(t, 20, res.RawCount)
	assert.Equal(t, 16, res.EffectiveCount)
	assert.True(t, res.Applied)
	require.Len(t, res.Detail, 1)
	assert.Equal(t, 8, res.Detail[0].Tagged)
	assert.Equal(t, 4, res.Detail[0].Allowed)
	assert.True(t, res.Detail[0].Truncated)
	assert.NotEmpty(t, res.Detail[0].Reason)
}

func TestEnforceRestrictions_ScopeAndMultipleCodes(t *testing.T) {
	fact := commission.SalesFact{
		RawCount: 30,
		Tags: append(planTags("PLAN-29", 6),
			commission.SaleTag{OperatorCode: "OP-X"},
			commission.SaleTag{OperatorCode: "OP-X"},
			commission.SaleTag{OperatorCode: "OP-X"},
		),
	}
	rs := []commission.Restriction{
		// scheme-wide
		{ID: "r-1", Type: commission.RestrictPlan, Code: "PLAN-29", MaxQuantity: intp(5)},
		// same code, stricter, item-level
		{ID: "r-2", ItemID: "postpaid", Type: commission.RestrictPlan, Code: "PLAN-29", MaxQuantity: intp(2)},
		{ID: "r-3", ItemID: "postpaid", Type: commission.RestrictOperator, Code: "OP-X", MaxQuantity: intp(1)},
		// other item, ignored
		{ID: "r-4", ItemID: "prepaid", Type: commission.RestrictPlan, Code: "PLAN-29", MaxQuantity: intp(0)},
	}

	res := commission.EnforceRestrictions("postpaid", fact, rs)

	// 30 - (6-2) - (3-1) = 24
	assert.Equal(t, 24, res.EffectiveCount)
	require.Len(t, res.Detail, 2)
	assert.Equal(t, []string{"r-3"}, res.Detail[0].RestrictionIDs)
	assert.ElementsMatch(t, []string{"r-1", "r-2"}, res.Detail[1].RestrictionIDs)
}

func TestEnforceRestrictions_MinPercentageFlagsWithoutTruncating(t *testing.T) {
	fact := commission.SalesFact{RawCount: 20, Tags: planTags("PLAN-PORTA", 2)}
	rs := []commission.Restriction{{
		ID:            "r-min",
		Type:          commission.RestrictPlan,
		Code:          "PLAN-PORTA",
		MinPercentage: decp("0.25"),
	}}

	res := commission.EnforceRestrictions("postpaid", fact, rs)

	assert.Equal(t, 20, res.EffectiveCount)
	assert.True(t, res.Applied)
	require.Len(t, res.Detail, 1)
	assert.False(t, res.Detail[0].Truncated)
	assert.Contains(t, res.Detail[0].Reason, "10.00%")
	assert.Contains(t, res.Detail[0].Reason, "25.00%")
}

func TestEnforceRestrictions_UnknownTypeReported(t *testing.T) {
	fact := commission.SalesFact{RawCount: 5}
	rs := []commission.Restriction{{ID: "r-x", Type: "channel", Code: "WEB", MaxQuantity: intp(0)}}

	res := commission.EnforceRestrictions("postpaid", fact, rs)

	assert.Equal(t, 5, res.EffectiveCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, commission.CodeRestrictionType, res.Errors[0].Code)
}

func TestEnforceRestrictions_NoRestrictions(t *testing.T) {
	res := commission.EnforceRestrictions("postpaid", commission.SalesFact{RawCount: 12, Tags: planTags("A", 3)}, nil)
	assert.Equal(t, 12, res.EffectiveCount)
	assert.False(t, res.Applied)
	assert.Empty(t, res.Detail)
}

func bothTags(plan, operator string, n int) []commission.SaleTag {
	tags := make([]commission.SaleTag, n)
	for i := range tags {
		tags[i] = commission.SaleTag{PlanCode: plan, OperatorCode: operator}
	}
	return tags
}

func TestEnforceRestrictions_OverlappingPlanAndOperator(t *testing.T) {
	planMax := func(n int) commission.Restriction {
		return commission.Restriction{ID: "plan", Type: commission.RestrictPlan, Code: "PLAN-29", MaxQuantity: intp(n)}
	}
	opMax := func(n int) commission.Restriction {
		return commission.Restriction{ID: "op", Type: commission.RestrictOperator, Code: "OP-X", MaxQuantity: intp(n)}
	}

	tests := []struct {
		name string
		tags []commission.SaleTag
		rs   []commission.Restriction
		want int
	}{
		{
			name: "sale matching both is removed once",
			tags: bothTags("PLAN-29", "OP-X", 5),
			rs:   []commission.Restriction{planMax(0), opMax(0)},
			want: 5,
		},
		{
			name: "lower ceiling binds across types",
			tags: bothTags("PLAN-29", "OP-X", 5),
			rs:   []commission.Restriction{planMax(3), opMax(1)},
			want: 6,
		},
		{
			name: "only one type capped",
			tags: bothTags("PLAN-29", "OP-X", 5),
			rs: []commission.Restriction{
				planMax(2),
				{ID: "op-min", Type: commission.RestrictOperator, Code: "OP-X", MinPercentage: decp("0.1")},
			},
			want: 7,
		},
		{
			// single-tag sales take the slots first: 1 plan-only, 1 operator-only admitted, the double is dropped
			name: "single-tag sales are admitted before double-tagged ones",
			tags: []commission.SaleTag{
				{PlanCode: "PLAN-29", OperatorCode: "OP-X"},
				{PlanCode: "PLAN-29"},
				{OperatorCode: "OP-X"},
			},
			rs:   []commission.Restriction{planMax(1), opMax(1)},
			want: 9,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := commission.SalesFact{RawCount: 10, Tags: tt.tags}

			res := commission.EnforceRestrictions("postpaid", fact, tt.rs)

			assert.Equal(t, tt.want, res.EffectiveCount)
			assert.GreaterOrEqual(t, res.EffectiveCount, fact.RawCount-len(fact.Tags))
		})
	}
}

func TestEnforceRestrictions_OverlapDetail(t *testing.T) {
	fact := commission.SalesFact{RawCount: 10, Tags: bothTags("PLAN-29", "OP-X", 4)}
	rs := []commission.Restriction{
		{ID: "plan", Type: commission.RestrictPlan, Code: "PLAN-29", MaxQuantity: intp(3)},
		{ID: "op", Type: commission.RestrictOperator, Code: "OP-X", MaxQuantity: intp(2)},
	}

	res := commission.EnforceRestrictions("postpaid", fact, rs)

	assert.Equal(t, 8, res.EffectiveCount)
	require.Len(t, res.Detail, 2)
	// operator first, then plan
	assert.Equal(t, 2, res.Detail[0].Allowed)
	assert.Equal(t, 2, res.Detail[1].Allowed)
	assert.True(t, res.Detail[0].Truncated)
	assert.True(t, res.Detail[1].Truncated)
}
