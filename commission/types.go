/*
Package commission provides the commission resolution engine.

PURPOSE:
  Turns a declarative commission scheme plus one seller's sales and quota
  facts into a payout. The engine is pure: no I/O, no clock, no shared
  state. The same inputs always produce the same CommissionResult, so
  callers may memoize freely and compute many sellers concurrently.

PIPELINE:
  1. Fulfillment:  effective sales / quota per item (fulfillment.go)
  2. Restrictions: cap plan/operator-tagged sales (restriction.go)
  3. Locks:        dependency gates, evaluated in topological order (lock.go)
  4. PxQ tiers:    per-unit rates by fulfillment band (pxq.go)
  5. Cap:          ceiling per item (cap.go)
  6. Aggregation:  category subtotals, min-fulfillment gate, gross/net (aggregate.go)

KEY CONCEPTS IN THIS FILE (types.go):
  - SchemeDefinition: Items, locks, restrictions and PxQ scales of a scheme
  - SalesSnapshot: A seller's raw sales per item, with plan/operator tags
  - ItemResult / CommissionResult: Explainable output per item and totals

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every amount and ratio
  2. Explainability: a zero payout always carries lock, restriction or
     warning detail saying why
  3. Degrade, don't abort: configuration defects zero the affected item
     and leave the rest of the result intact

SEE ALSO:
  - engine.go: Compute, the entry point
  - scenario.go: CompareScenarios
  - quota package: Seller quotas and proration
*/
package commission

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemID string
type SchemeID string

// =============================================================================
// SCHEME - Declarative commission rules
// =============================================================================

// SchemeStatus is the lifecycle of a stored scheme. Approved schemes are
// frozen; the engine itself ignores the status.
type SchemeStatus string

const (
	SchemeDraft    SchemeStatus = "draft"
	SchemeApproved SchemeStatus = "approved"
)

// SchemeDefinition is a snapshot of one commission scheme.
type SchemeDefinition struct {
	ID   SchemeID
	Name string

	Items        []SchemeItem
	Locks        []Lock
	Restrictions []Restriction
	PxQScales    []PxQScale

	// DefaultMinFulfillment gates the whole principal block: below it,
	// variable commission is zero.
	DefaultMinFulfillment decimal.Decimal

	FixedSalary    decimal.Decimal
	VariableSalary decimal.Decimal
	TotalSsQuota   int
}

// SchemeItem is one commissionable line of a scheme.
type SchemeItem struct {
	ID       ItemID
	Name     string
	Category Category

	// Quota is nil for fixed-amount and lock-only items.
	Quota *int

	Weight         decimal.Decimal
	MixFactor      decimal.Decimal // zero is read as 1
	VariableAmount decimal.Decimal
	MinFulfillment decimal.Decimal

	HasCap        bool
	CapPercentage decimal.Decimal  // fraction of VariableAmount, 0.5 = 50%
	CapAmount     *decimal.Decimal // takes precedence over CapPercentage

	IsActive     bool
	DisplayOrder int
}

func (i SchemeItem) mix() decimal.Decimal {
	if i.MixFactor.IsZero() {
		return decimal.NewFromInt(1)
	}
	return i.MixFactor
}

// baseAmount is the amount a fully achieved item pays.
func (i SchemeItem) baseAmount(scheme SchemeDefinition) decimal.Decimal {
	if !i.VariableAmount.IsZero() {
		return i.VariableAmount
	}
	return scheme.VariableSalary.Mul(i.Weight)
}

// =============================================================================
// LOCKS - Dependency gates between items
// =============================================================================

type LockType string

const (
	// LockMinFulfillment: required item's fulfillment >= RequiredValue
	LockMinFulfillment LockType = "min_fulfillment"

	// LockMinSales: required item's effective sales >= RequiredValue
	LockMinSales LockType = "min_sales"

	// LockUnlocked: required item must itself be payable
	LockUnlocked LockType = "unlocked"
)

// Lock means "ItemID pays only if RequiredItemID satisfies the condition".
// Every lock type also requires the required item to be unlocked itself.
type Lock struct {
	ID             string
	ItemID         ItemID
	RequiredItemID ItemID
	RequiredValue  decimal.Decimal
	Type           LockType
	Description    string
	IsActive       bool
}

// =============================================================================
// RESTRICTIONS - Limits on plan/operator-tagged sales
// =============================================================================

type RestrictionType string

const (
	RestrictPlan     RestrictionType = "plan"
	RestrictOperator RestrictionType = "operator"
)

// Restriction limits how many sales tagged with Code count toward an item.
// An empty ItemID makes it scheme-wide.
type Restriction struct {
	ID     string
	ItemID ItemID
	Type   RestrictionType
	Code   string

	MaxPercentage *decimal.Decimal // fraction of the item's raw count
	MaxQuantity   *int
	MinPercentage *decimal.Decimal // never truncates, only flags

	Description string
}

// =============================================================================
// PXQ - Tiered per-unit rates
// =============================================================================

// PxQTier pays AmountPerUnit when Min <= fulfillment < Max.
// A nil Max is unbounded.
type PxQTier struct {
	Min           decimal.Decimal
	Max           *decimal.Decimal
	AmountPerUnit decimal.Decimal
}

type PxQScale struct {
	ItemID ItemID
	Tiers  []PxQTier
}

// =============================================================================
// SALES - Observed facts per seller
// =============================================================================

// SaleTag classifies one sale for restriction matching.
type SaleTag struct {
	PlanCode     string
	OperatorCode string
}

// SalesFact is a seller's raw sales count for one item. Tags may cover
// fewer sales than RawCount; untagged sales are never restricted.
type SalesFact struct {
	RawCount int
	Tags     []SaleTag
}

// SalesSnapshot holds one seller's facts keyed by scheme item.
type SalesSnapshot struct {
	SellerID string
	Facts    map[ItemID]SalesFact
}

// =============================================================================
// RESULTS
// =============================================================================

// Warning explains a degraded item or a questionable input.
type Warning struct {
	ItemID  ItemID
	Code    string
	Message string
}

// ItemResult is the explainable outcome for one scheme item.
type ItemResult struct {
	ItemID       ItemID
	Name         string
	Category     Category
	DisplayOrder int

	Quota          *decimal.Decimal
	RawSales       int
	EffectiveSales int
	Fulfillment    *decimal.Decimal

	LockUnlocked bool
	LockPending  []string

	RestrictionApplied bool
	RestrictionDetail  []RestrictionOutcome

	// ComputedCommission is the amount before locks, cap and the gate.
	ComputedCommission decimal.Decimal
	Commission         decimal.Decimal
	CapApplied         bool
	CapLimit           *decimal.Decimal

	// Gated is set when the scheme-level minimum fulfillment zeroed the item.
	Gated bool

	Warnings []string
}

// CommissionResult is the full payout for one seller and period.
type CommissionResult struct {
	SchemeID SchemeID
	SellerID string

	Items             []ItemResult
	CategorySubtotals map[Category]decimal.Decimal

	GlobalFulfillment *decimal.Decimal
	MinFulfillmentMet bool

	FixedSalary          decimal.Decimal
	VariableCommission   decimal.Decimal
	AdditionalCommission decimal.Decimal
	PxQCommission        decimal.Decimal
	BonusCommission      decimal.Decimal
	TotalGross           decimal.Decimal
	Penalty              decimal.Decimal
	TotalNet             decimal.Decimal

	Warnings []Warning
}

// Item returns the result for id, or nil.
func (r *CommissionResult) Item(id ItemID) *ItemResult {
	for i := range r.Items {
		if r.Items[i].ItemID == id {
			return &r.Items[i]
		}
	}
	return nil
}
