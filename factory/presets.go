package factory

import "encoding/json"

// =============================================================================
// PRESET SCHEMES
// =============================================================================

// StandardRetailSchemeJSON returns JSON for the usual retail store scheme:
// two principal lines sharing the quota, an accessories line locked behind
// postpaid, a handset PxQ table, capped insurance and a welcome bonus.
func StandardRetailSchemeJSON(id, name string, minFulfillment float64) string {
	sj := map[string]interface{}{
		"id":                      id,
		"name":                    name,
		"default_min_fulfillment": minFulfillment,
		"fixed_salary":            1200,
		"variable_salary":         1500,
		"total_ss_quota":          70,
		"items": []map[string]interface{}{
			{"id": "postpaid", "name": "Postpaid lines", "category": "principal", "quota": 40, "variable_amount": 1000, "display_order": 1},
			{"id": "portability", "name": "Portability", "category": "principal", "quota": 30, "variable_amount": 500, "display_order": 2},
			{"id": "accessories", "name": "Accessories", "category": "adicional", "quota": 20, "variable_amount": 300, "display_order": 3},
			{"id": "insurance", "name": "Device insurance", "category": "adicional", "quota": 10, "variable_amount": 400,
				"has_cap": true, "cap_percentage": 0.5, "display_order": 4},
			{"id": "handsets", "name": "Handsets", "category": "pxq", "quota": 20, "display_order": 5},
			{"id": "repairs", "name": "Repair orders", "category": "postventa", "quota": 15, "variable_amount": 150, "display_order": 6},
			{"id": "welcome-bonus", "name": "Welcome bonus", "category": "bono", "variable_amount": 100, "display_order": 7},
		},
		"locks": []map[string]interface{}{
			{"id": "accessories-needs-postpaid", "item_id": "accessories", "required_item_id": "postpaid",
				"type": "min_fulfillment", "required_value": 0.8,
				"description": "accessories pay only with postpaid at 80%"},
		},
		"restrictions": []map[string]interface{}{
			{"id": "plan-29-share", "item_id": "postpaid", "type": "plan", "code": "PLAN-29",
				"max_percentage": 0.2, "description": "entry plan counts for at most 20% of postpaid"},
		},
		"pxq_scales": []map[string]interface{}{
			{"item_id": "handsets", "tiers": []map[string]interface{}{
				{"min": 0, "max": 0.8, "amount_per_unit": 5},
				{"min": 0.8, "max": 1.2, "amount_per_unit": 8},
				{"min": 1.2, "amount_per_unit": 12},
			}},
		},
	}
	b, _ := json.MarshalIndent(sj, "", "  ")
	return string(b)
}

// QuotaOnlySchemeJSON returns JSON for a scheme with a single principal
// item and no locks or restrictions.
func QuotaOnlySchemeJSON(id, name string, quota int, variableAmount float64) string {
	sj := map[string]interface{}{
		"id":                      id,
		"name":                    name,
		"default_min_fulfillment": 0.5,
		"fixed_salary":            1000,
		"variable_salary":         variableAmount,
		"total_ss_quota":          quota,
		"items": []map[string]interface{}{
			{"id": "postpaid", "name": "Postpaid lines", "category": "principal", "quota": quota, "variable_amount": variableAmount, "display_order": 1},
		},
	}
	b, _ := json.MarshalIndent(sj, "", "  ")
	return string(b)
}
