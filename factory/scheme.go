/*
Package factory converts JSON scheme definitions into commission schemes.

PURPOSE:
  Commercial teams maintain schemes as JSON (admin UI, database rows,
  fixtures). The factory turns that JSON into a commission.SchemeDefinition
  and back, so the engine never sees raw JSON.

JSON SCHEMA:
  {
    "id": "retail-2025-06",
    "name": "Retail June",
    "default_min_fulfillment": "0.7",
    "fixed_salary": 1200,
    "variable_salary": 1500,
    "total_ss_quota": 70,
    "items": [
      {"id": "postpaid", "category": "principal", "quota": 40,
       "variable_amount": 1000, "display_order": 1}
    ],
    "locks": [
      {"item_id": "accessories", "required_item_id": "postpaid",
       "type": "min_fulfillment", "required_value": 0.8}
    ],
    "restrictions": [
      {"item_id": "postpaid", "type": "plan", "code": "PLAN-29",
       "max_percentage": 0.2}
    ],
    "pxq_scales": [
      {"item_id": "handsets", "tiers": [
        {"min": 0, "max": 0.8, "amount_per_unit": 5},
        {"min": 0.8, "amount_per_unit": 8}
      ]}
    ]
  }

  Amounts and ratios accept JSON numbers or strings. Percentages are
  fractions: 0.5 means 50%.

DEFAULTS:
  - Missing scheme id gets a UUID
  - "is_active" defaults to true on items and locks
  - Missing lock/restriction ids are derived from their position

SEE ALSO:
  - commission/types.go: SchemeDefinition
  - factory/presets.go: ready-made schemes
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SchemeJSON is the JSON representation of a scheme.
type SchemeJSON struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	DefaultMinFulfillment decimal.Decimal   `json:"default_min_fulfillment"`
	FixedSalary           decimal.Decimal   `json:"fixed_salary"`
	VariableSalary        decimal.Decimal   `json:"variable_salary"`
	TotalSsQuota          int               `json:"total_ss_quota"`
	Items                 []ItemJSON        `json:"items"`
	Locks                 []LockJSON        `json:"locks,omitempty"`
	Restrictions          []RestrictionJSON `json:"restrictions,omitempty"`
	PxQScales             []PxQScaleJSON    `json:"pxq_scales,omitempty"`
}

// ItemJSON represents one commissionable item.
type ItemJSON struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	Quota          *int             `json:"quota,omitempty"`
	Weight         decimal.Decimal  `json:"weight"`
	MixFactor      decimal.Decimal  `json:"mix_factor"`
	VariableAmount decimal.Decimal  `json:"variable_amount"`
	MinFulfillment decimal.Decimal  `json:"min_fulfillment"`
	HasCap         bool             `json:"has_cap,omitempty"`
	CapPercentage  decimal.Decimal  `json:"cap_percentage"`
	CapAmount      *decimal.Decimal `json:"cap_amount,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
	DisplayOrder   int              `json:"display_order"`
}

// LockJSON represents a lock between two items.
type LockJSON struct {
	ID             string          `json:"id,omitempty"`
	ItemID         string          `json:"item_id"`
	RequiredItemID string          `json:"required_item_id"`
	Type           string          `json:"type"` // min_fulfillment, min_sales, unlocked
	RequiredValue  decimal.Decimal `json:"required_value"`
	Description    string          `json:"description,omitempty"`
	IsActive       *bool           `json:"is_active,omitempty"`
}

// RestrictionJSON represents a plan or operator restriction.
type RestrictionJSON struct {
	ID            string           `json:"id,omitempty"`
	ItemID        string           `json:"item_id,omitempty"` // empty: scheme-wide
	Type          string           `json:"type"`              // plan, operator
	Code          string           `json:"code"`
	MaxPercentage *decimal.Decimal `json:"max_percentage,omitempty"`
	MaxQuantity   *int             `json:"max_quantity,omitempty"`
	MinPercentage *decimal.Decimal `json:"min_percentage,omitempty"`
	Description   string           `json:"description,omitempty"`
}

// PxQScaleJSON is the tier table of one pxq item.
type PxQScaleJSON struct {
	ItemID string        `json:"item_id"`
	Tiers  []PxQTierJSON `json:"tiers"`
}

// PxQTierJSON is one band. A missing max is unbounded.
type PxQTierJSON struct {
	Min           decimal.Decimal  `json:"min"`
	Max           *decimal.Decimal `json:"max,omitempty"`
	AmountPerUnit decimal.Decimal  `json:"amount_per_unit"`
}

// =============================================================================
// SCHEME FACTORY
// =============================================================================

// SchemeFactory converts JSON schemes to commission schemes.
type SchemeFactory struct{}

// NewSchemeFactory creates a new scheme factory.
func NewSchemeFactory() *SchemeFactory {
	return &SchemeFactory{}
}

// ParseScheme parses a JSON string into a SchemeDefinition.
func (f *SchemeFactory) ParseScheme(jsonStr string) (*commission.SchemeDefinition, error) {
	var sj SchemeJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return nil, &commission.ValidationError{Message: fmt.Sprintf("failed to parse scheme JSON: %v", err)}
	}
	return f.FromJSON(sj)
}

// FromJSON converts SchemeJSON into a validated SchemeDefinition.
//
// Structural problems (unknown category, lock or restriction type, bad
// references) are rejected here. Tier gaps are left for the engine, which
// reports them per item without failing the whole computation.
func (f *SchemeFactory) FromJSON(sj SchemeJSON) (*commission.SchemeDefinition, error) {
	id := sj.ID
	if id == "" {
		id = uuid.NewString()
	}

	def := &commission.SchemeDefinition{
		ID:                    commission.SchemeID(id),
		Name:                  sj.Name,
		DefaultMinFulfillment: sj.DefaultMinFulfillment,
		FixedSalary:           sj.FixedSalary,
		VariableSalary:        sj.VariableSalary,
		TotalSsQuota:          sj.TotalSsQuota,
	}

	for _, ij := range sj.Items {
		def.Items = append(def.Items, parseItem(ij))
	}
	if err := commission.ValidateScheme(*def); err != nil {
		return nil, err
	}

	known := make(map[commission.ItemID]bool, len(def.Items))
	for _, it := range def.Items {
		known[it.ID] = true
	}

	for i, lj := range sj.Locks {
		l, err := parseLock(i, lj, known)
		if err != nil {
			return nil, err
		}
		def.Locks = append(def.Locks, l)
	}
	for i, rj := range sj.Restrictions {
		r, err := parseRestriction(i, rj, known)
		if err != nil {
			return nil, err
		}
		def.Restrictions = append(def.Restrictions, r)
	}
	for i, pj := range sj.PxQScales {
		s, err := parseScale(i, pj, known)
		if err != nil {
			return nil, err
		}
		def.PxQScales = append(def.PxQScales, s)
	}

	return def, nil
}

// ToJSON converts a SchemeDefinition to SchemeJSON.
func (f *SchemeFactory) ToJSON(def commission.SchemeDefinition) SchemeJSON {
	sj := SchemeJSON{
		ID:                    string(def.ID),
		Name:                  def.Name,
		DefaultMinFulfillment: def.DefaultMinFulfillment,
		FixedSalary:           def.FixedSalary,
		VariableSalary:        def.VariableSalary,
		TotalSsQuota:          def.TotalSsQuota,
	}
	for _, it := range def.Items {
		active := it.IsActive
		sj.Items = append(sj.Items, ItemJSON{
			ID:             string(it.ID),
			Name:           it.Name,
			Category:       string(it.Category),
			Quota:          it.Quota,
			Weight:         it.Weight,
			MixFactor:      it.MixFactor,
			VariableAmount: it.VariableAmount,
			MinFulfillment: it.MinFulfillment,
			HasCap:         it.HasCap,
			CapPercentage:  it.CapPercentage,
			CapAmount:      it.CapAmount,
			IsActive:       &active,
			DisplayOrder:   it.DisplayOrder,
		})
	}
	for _, l := range def.Locks {
		active := l.IsActive
		sj.Locks = append(sj.Locks, LockJSON{
			ID:             l.ID,
			ItemID:         string(l.ItemID),
			RequiredItemID: string(l.RequiredItemID),
			Type:           string(l.Type),
			RequiredValue:  l.RequiredValue,
			Description:    l.Description,
			IsActive:       &active,
		})
	}
	for _, r := range def.Restrictions {
		sj.Restrictions = append(sj.Restrictions, RestrictionJSON{
			ID:            r.ID,
			ItemID:        string(r.ItemID),
			Type:          string(r.Type),
			Code:          r.Code,
			MaxPercentage: r.MaxPercentage,
			MaxQuantity:   r.MaxQuantity,
			MinPercentage: r.MinPercentage,
			Description:   r.Description,
		})
	}
	for _, s := range def.PxQScales {
		pj := PxQScaleJSON{ItemID: string(s.ItemID)}
		for _, t := range s.Tiers {
			pj.Tiers = append(pj.Tiers, PxQTierJSON{Min: t.Min, Max: t.Max, AmountPerUnit: t.AmountPerUnit})
		}
		sj.PxQScales = append(sj.PxQScales, pj)
	}
	return sj
}

// Marshal returns the JSON text of def.
func (f *SchemeFactory) Marshal(def commission.SchemeDefinition) (string, error) {
	b, err := json.Marshal(f.ToJSON(def))
	if err != nil {
		return "", fmt.Errorf("failed to encode scheme %s: %w", def.ID, err)
	}
	return string(b), nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func parseItem(ij ItemJSON) commission.SchemeItem {
	name := ij.Name
	if name == "" {
		name = ij.ID
	}
	return commission.SchemeItem{
		ID:             commission.ItemID(ij.ID),
		Name:           name,
		Category:       commission.Category(ij.Category),
		Quota:          ij.Quota,
		Weight:         ij.Weight,
		MixFactor:      ij.MixFactor,
		VariableAmount: ij.VariableAmount,
		MinFulfillment: ij.MinFulfillment,
		HasCap:         ij.HasCap,
		CapPercentage:  ij.CapPercentage,
		CapAmount:      ij.CapAmount,
		IsActive:       boolOr(ij.IsActive, true),
		DisplayOrder:   ij.DisplayOrder,
	}
}

func parseLock(i int, lj LockJSON, known map[commission.ItemID]bool) (commission.Lock, error) {
	field := fmt.Sprintf("locks[%d]", i)
	typ, err := parseLockType(lj.Type)
	if err != nil {
		return commission.Lock{}, &commission.ValidationError{Field: field + ".type", Message: err.Error()}
	}
	for _, ref := range []string{lj.ItemID, lj.RequiredItemID} {
		if !known[commission.ItemID(ref)] {
			return commission.Lock{}, &commission.ValidationError{Field: field, Message: fmt.Sprintf("unknown item %q", ref)}
		}
	}
	if lj.RequiredValue.IsNegative() {
		return commission.Lock{}, &commission.ValidationError{Field: field + ".required_value", Message: "cannot be negative"}
	}

	id := lj.ID
	if id == "" {
		id = fmt.Sprintf("lock-%d", i+1)
	}
	return commission.Lock{
		ID:             id,
		ItemID:         commission.ItemID(lj.ItemID),
		RequiredItemID: commission.ItemID(lj.RequiredItemID),
		RequiredValue:  lj.RequiredValue,
		Type:           typ,
		Description:    lj.Description,
		IsActive:       boolOr(lj.IsActive, true),
	}, nil
}

func parseLockType(s string) (commission.LockType, error) {
	switch commission.LockType(s) {
	case commission.LockMinFulfillment, commission.LockMinSales, commission.LockUnlocked:
		return commission.LockType(s), nil
	default:
		return "", fmt.Errorf("unknown lock type %q", s)
	}
}

func parseRestriction(i int, rj RestrictionJSON, known map[commission.ItemID]bool) (commission.Restriction, error) {
	field := fmt.Sprintf("restrictions[%d]", i)
	switch commission.RestrictionType(rj.Type) {
	case commission.RestrictPlan, commission.RestrictOperator:
	default:
		return commission.Restriction{}, &commission.ValidationError{Field: field + ".type", Message: fmt.Sprintf("unknown restriction type %q", rj.Type)}
	}
	if rj.Code == "" {
		return commission.Restriction{}, &commission.ValidationError{Field: field + ".code", Message: "code is required"}
	}
	if rj.ItemID != "" && !known[commission.ItemID(rj.ItemID)] {
		return commission.Restriction{}, &commission.ValidationError{Field: field + ".item_id", Message: fmt.Sprintf("unknown item %q", rj.ItemID)}
	}
	for name, p := range map[string]*decimal.Decimal{"max_percentage": rj.MaxPercentage, "min_percentage": rj.MinPercentage} {
		if p != nil && (p.IsNegative() || p.GreaterThan(decimal.NewFromInt(1))) {
			return commission.Restriction{}, &commission.ValidationError{Field: field + "." + name, Message: "must be a fraction between 0 and 1"}
		}
	}
	if rj.MaxQuantity != nil && *rj.MaxQuantity < 0 {
		return commission.Restriction{}, &commission.ValidationError{Field: field + ".max_quantity", Message: "cannot be negative"}
	}

	id := rj.ID
	if id == "" {
		id = fmt.Sprintf("restriction-%d", i+1)
	}
	return commission.Restriction{
		ID:            id,
		ItemID:        commission.ItemID(rj.ItemID),
		Type:          commission.RestrictionType(rj.Type),
		Code:          rj.Code,
		MaxPercentage: rj.MaxPercentage,
		MaxQuantity:   rj.MaxQuantity,
		MinPercentage: rj.MinPercentage,
		Description:   rj.Description,
	}, nil
}

func parseScale(i int, pj PxQScaleJSON, known map[commission.ItemID]bool) (commission.PxQScale, error) {
	field := fmt.Sprintf("pxq_scales[%d]", i)
	if !known[commission.ItemID(pj.ItemID)] {
		return commission.PxQScale{}, &commission.ValidationError{Field: field + ".item_id", Message: fmt.Sprintf("unknown item %q", pj.ItemID)}
	}
	s := commission.PxQScale{ItemID: commission.ItemID(pj.ItemID)}
	for _, t := range pj.Tiers {
		s.Tiers = append(s.Tiers, commission.PxQTier{Min: t.Min, Max: t.Max, AmountPerUnit: t.AmountPerUnit})
	}
	return s, nil
}
