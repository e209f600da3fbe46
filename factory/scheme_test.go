package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
)

func TestParseScheme_StandardRetailPreset(t *testing.T) {
	f := factory.NewSchemeFactory()

	def, err := f.ParseScheme(factory.StandardRetailSchemeJSON("retail-2025-06", "Retail June", 0.7))

	require.NoError(t, err)
	assert.Equal(t, commission.SchemeID("retail-2025-06"), def.ID)
	assert.Len(t, def.Items, 7)
	assert.True(t, def.DefaultMinFulfillment.Equal(decimal.RequireFromString("0.7")))
	require.Len(t, def.Locks, 1)
	assert.Equal(t, commission.LockMinFulfillment, def.Locks[0].Type)
	assert.True(t, def.Locks[0].IsActive, "is_active defaults to true")
	require.Len(t, def.PxQScales, 1)
	assert.Nil(t, def.PxQScales[0].Tiers[2].Max)
	assert.Empty(t, def.PxQScales[0].Validate())

	for _, it := range def.Items {
		assert.True(t, it.IsActive, it.ID)
	}
}

func TestParseScheme_PresetComputes(t *testing.T) {
	def, err := factory.NewSchemeFactory().ParseScheme(factory.StandardRetailSchemeJSON("retail", "Retail", 0.5))
	require.NoError(t, err)

	result, err := commission.Compute(*def, commission.SalesSnapshot{Facts: map[commission.ItemID]commission.SalesFact{
		"postpaid":    {RawCount: 40},
		"portability": {RawCount: 30},
		"handsets":    {RawCount: 20},
	}}, nil, decimal.Zero)

	require.NoError(t, err)
	assert.True(t, result.MinFulfillmentMet)
	assert.True(t, result.VariableCommission.Equal(decimal.NewFromInt(1500)))
	// 20 handsets at 100%: second tier, 8 per unit
	assert.True(t, result.PxQCommission.Equal(decimal.NewFromInt(160)))
}

func TestParseScheme_AcceptsStringDecimals(t *testing.T) {
	def, err := factory.NewSchemeFactory().ParseScheme(`{
		"name": "strings",
		"fixed_salary": "1234.56",
		"items": [{"id": "a", "category": "bono", "variable_amount": "99.99"}]
	}`)

	require.NoError(t, err)
	assert.NotEmpty(t, def.ID, "missing id gets a uuid")
	assert.True(t, def.FixedSalary.Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "a", def.Items[0].Name, "name defaults to id")
}

func TestParseScheme_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"items": [`},
		{"unknown category", `{"items": [{"id": "a", "category": "premium"}]}`},
		{"duplicate item", `{"items": [{"id": "a", "category": "bono"}, {"id": "a", "category": "bono"}]}`},
		{"unknown lock type", `{"items": [{"id": "a", "category": "bono"}, {"id": "b", "category": "bono"}],
			"locks": [{"item_id": "a", "required_item_id": "b", "type": "max_sales"}]}`},
		{"lock on unknown item", `{"items": [{"id": "a", "category": "bono"}],
			"locks": [{"item_id": "a", "required_item_id": "ghost", "type": "unlocked"}]}`},
		{"unknown restriction type", `{"items": [{"id": "a", "category": "principal"}],
			"restrictions": [{"type": "channel", "code": "WEB"}]}`},
		{"percentage above one", `{"items": [{"id": "a", "category": "principal"}],
			"restrictions": [{"type": "plan", "code": "P", "max_percentage": 20}]}`},
		{"scale on unknown item", `{"items": [{"id": "a", "category": "pxq"}],
			"pxq_scales": [{"item_id": "b", "tiers": []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.NewSchemeFactory().ParseScheme(tt.json)
			assert.Error(t, err)
			assert.True(t, commission.IsClientError(err))
		})
	}
}

func TestParseScheme_TierGapIsLeftToEngine(t *testing.T) {
	def, err := factory.NewSchemeFactory().ParseScheme(`{
		"items": [{"id": "h", "category": "pxq", "quota": 10}],
		"pxq_scales": [{"item_id": "h", "tiers": [{"min": 0, "max": 0.5, "amount_per_unit": 1}, {"min": 0.6, "amount_per_unit": 2}]}]
	}`)

	require.NoError(t, err)
	assert.Len(t, def.PxQScales[0].Validate(), 1)
}

func TestMarshal_PreservesDefinition(t *testing.T) {
	f := factory.NewSchemeFactory()
	def, err := f.ParseScheme(factory.StandardRetailSchemeJSON("retail", "Retail", 0.6))
	require.NoError(t, err)
	def.Items[6].IsActive = false

	text, err := f.Marshal(*def)
	require.NoError(t, err)
	again, err := f.ParseScheme(text)
	require.NoError(t, err)

	assert.Equal(t, def.ID, again.ID)
	assert.False(t, again.Items[6].IsActive)
	assert.True(t, again.Items[3].CapPercentage.Equal(def.Items[3].CapPercentage))
	assert.Equal(t, def.Restrictions[0].ID, again.Restrictions[0].ID)
}
