/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the quota and commission models from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Every amount and ratio is a decimal. Requests accept JSON numbers or
  strings; responses always use strings ("1234.50") so no precision is
  lost in JavaScript clients.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/scheme.go: SchemeJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/quota"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// STORE QUOTAS
// =============================================================================

// CreateStoreQuotaRequest is the request to create or update a draft quota.
type CreateStoreQuotaRequest struct {
	ID        string         `json:"id"`
	StoreID   string         `json:"store_id"`
	Period    string         `json:"period"` // YYYY-MM
	SsQuota   int            `json:"ss_quota"`
	Breakdown map[string]int `json:"breakdown,omitempty"`
}

// StoreQuotaDTO represents a store quota in API responses.
type StoreQuotaDTO struct {
	ID        string         `json:"id"`
	StoreID   string         `json:"store_id"`
	Period    string         `json:"period"`
	SsQuota   int            `json:"ss_quota"`
	Breakdown map[string]int `json:"breakdown,omitempty"`
	Status    string         `json:"status"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// SellerShareDTO is one seller in a distribution request.
type SellerShareDTO struct {
	SellerID  string `json:"seller_id"`
	SsQuota   int    `json:"ss_quota"`
	StartDate string `json:"start_date,omitempty"` // YYYY-MM-DD
}

// DistributeRequest is the request to (re)distribute a store quota.
type DistributeRequest struct {
	Sellers []SellerShareDTO `json:"sellers"`
}

// HcQuotaDTO represents one seller's quota.
type HcQuotaDTO struct {
	ID              string          `json:"id"`
	SellerID        string          `json:"seller_id"`
	StoreQuotaID    string          `json:"store_quota_id"`
	SsQuota         int             `json:"ss_quota"`
	Breakdown       map[string]int  `json:"breakdown,omitempty"`
	StartDate       string          `json:"start_date,omitempty"`
	ProrationFactor decimal.Decimal `json:"proration_factor"`
	ProratedSsQuota decimal.Decimal `json:"prorated_ss_quota"`
	Status          string          `json:"status"`
}

// DistributionDTO is a store quota with its seller rows.
type DistributionDTO struct {
	StoreQuota StoreQuotaDTO `json:"store_quota"`
	Sellers    []HcQuotaDTO  `json:"sellers"`
}

// =============================================================================
// SCHEMES
// =============================================================================

// SchemeDTO represents a scheme in API responses.
type SchemeDTO struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Config    factory.SchemeJSON `json:"config"`
	Version   int                `json:"version"`
	Status    string             `json:"status"`
	CreatedAt string             `json:"created_at,omitempty"`
}

// =============================================================================
// COMMISSIONS
// =============================================================================

// SaleTagDTO describes one tagged sale.
type SaleTagDTO struct {
	PlanCode     string `json:"plan_code,omitempty"`
	OperatorCode string `json:"operator_code,omitempty"`
}

// SalesFactDTO is the raw count of one item plus its tagged sales.
type SalesFactDTO struct {
	RawCount int          `json:"raw_count"`
	Tags     []SaleTagDTO `json:"tags,omitempty"`
}

// ComputeRequest asks for one seller's commission.
//
// The scheme is either referenced by scheme_id or given inline. When
// store_quota_id is set, the seller's distributed quota replaces the item
// quotas of the scheme.
type ComputeRequest struct {
	SchemeID     string                  `json:"scheme_id,omitempty"`
	Scheme       *factory.SchemeJSON     `json:"scheme,omitempty"`
	StoreQuotaID string                  `json:"store_quota_id,omitempty"`
	SellerID     string                  `json:"seller_id"`
	Sales        map[string]SalesFactDTO `json:"sales"`
	Penalty      decimal.Decimal         `json:"penalty"`
}

// CompareRequest holds the two scenarios to diff. Delta is B - A.
type CompareRequest struct {
	A ComputeRequest `json:"a"`
	B ComputeRequest `json:"b"`
}

// RestrictionOutcomeDTO explains one restriction group.
type RestrictionOutcomeDTO struct {
	RestrictionIDs []string `json:"restriction_ids"`
	Type           string   `json:"type"`
	Code           string   `json:"code"`
	Tagged         int      `json:"tagged"`
	Allowed        int      `json:"allowed"`
	Truncated      bool     `json:"truncated"`
	Reason         string   `json:"reason,omitempty"`
}

// ItemResultDTO is one line of a commission statement.
type ItemResultDTO struct {
	ItemID             string                  `json:"item_id"`
	Name               string                  `json:"name"`
	Category           string                  `json:"category"`
	Quota              *decimal.Decimal        `json:"quota"`
	RawSales           int                     `json:"raw_sales"`
	EffectiveSales     int                     `json:"effective_sales"`
	Fulfillment        *decimal.Decimal        `json:"fulfillment"`
	LockUnlocked       bool                    `json:"lock_unlocked"`
	LockPending        []string                `json:"lock_pending,omitempty"`
	RestrictionApplied bool                    `json:"restriction_applied"`
	RestrictionDetail  []RestrictionOutcomeDTO `json:"restriction_detail,omitempty"`
	ComputedCommission decimal.Decimal         `json:"computed_commission"`
	Commission         decimal.Decimal         `json:"commission"`
	CapApplied         bool                    `json:"cap_applied"`
	CapLimit           *decimal.Decimal        `json:"cap_limit,omitempty"`
	Gated              bool                    `json:"gated"`
	Warnings           []string                `json:"warnings,omitempty"`
}

// WarningDTO is a scheme configuration problem found during computation.
type WarningDTO struct {
	ItemID  string `json:"item_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CommissionResultDTO is a seller's full commission statement.
type CommissionResultDTO struct {
	SchemeID             string                     `json:"scheme_id"`
	SellerID             string                     `json:"seller_id"`
	Items                []ItemResultDTO            `json:"items"`
	CategorySubtotals    map[string]decimal.Decimal `json:"category_subtotals"`
	GlobalFulfillment    *decimal.Decimal           `json:"global_fulfillment"`
	MinFulfillmentMet    bool                       `json:"min_fulfillment_met"`
	FixedSalary          decimal.Decimal            `json:"fixed_salary"`
	VariableCommission   decimal.Decimal            `json:"variable_commission"`
	AdditionalCommission decimal.Decimal            `json:"additional_commission"`
	PxQCommission        decimal.Decimal            `json:"pxq_commission"`
	BonusCommission      decimal.Decimal            `json:"bonus_commission"`
	TotalGross           decimal.Decimal            `json:"total_gross"`
	Penalty              decimal.Decimal            `json:"penalty"`
	TotalNet             decimal.Decimal            `json:"total_net"`
	Warnings             []WarningDTO               `json:"warnings"`
}

// DeltaDTO compares one figure of two scenarios.
type DeltaDTO struct {
	Key   string          `json:"key"`
	A     decimal.Decimal `json:"a"`
	B     decimal.Decimal `json:"b"`
	Delta decimal.Decimal `json:"delta"`
}

// ItemDeltaDTO compares one item of two scenarios.
type ItemDeltaDTO struct {
	ItemID       string           `json:"item_id"`
	InA          bool             `json:"in_a"`
	InB          bool             `json:"in_b"`
	CommissionA  decimal.Decimal  `json:"commission_a"`
	CommissionB  decimal.Decimal  `json:"commission_b"`
	Delta        decimal.Decimal  `json:"delta"`
	FulfillmentA *decimal.Decimal `json:"fulfillment_a"`
	FulfillmentB *decimal.Decimal `json:"fulfillment_b"`
	UnlockedA    bool             `json:"unlocked_a"`
	UnlockedB    bool             `json:"unlocked_b"`
}

// CompareResponse holds both statements and their diff.
type CompareResponse struct {
	A           CommissionResultDTO `json:"a"`
	B           CommissionResultDTO `json:"b"`
	Lines       []DeltaDTO          `json:"lines"`
	Categories  []DeltaDTO          `json:"categories"`
	Items       []ItemDeltaDTO      `json:"items"`
	GateChanged bool                `json:"gate_changed"`
}

// =============================================================================
// DEMOS
// =============================================================================

// DemoDTO describes a demo data set.
type DemoDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadDemoRequest is the request to load a demo.
type LoadDemoRequest struct {
	DemoID string `json:"demo_id"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStoreQuotaDTO(sq quota.StoreQuota) StoreQuotaDTO {
	dto := StoreQuotaDTO{
		ID:        string(sq.ID),
		StoreID:   string(sq.StoreID),
		Period:    sq.Period.String(),
		SsQuota:   sq.SsQuota,
		Breakdown: sq.Breakdown,
		Status:    string(sq.Status),
	}
	if !sq.CreatedAt.IsZero() {
		dto.CreatedAt = sq.CreatedAt.Format(time.RFC3339)
	}
	if !sq.UpdatedAt.IsZero() {
		dto.UpdatedAt = sq.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toHcQuotaDTOs(rows []quota.HcQuota) []HcQuotaDTO {
	dtos := make([]HcQuotaDTO, len(rows))
	for i, r := range rows {
		dtos[i] = HcQuotaDTO{
			ID:              string(r.ID),
			SellerID:        string(r.SellerID),
			StoreQuotaID:    string(r.StoreQuotaID),
			SsQuota:         r.SsQuota,
			Breakdown:       r.Breakdown,
			ProrationFactor: r.ProrationFactor,
			ProratedSsQuota: r.ProratedSsQuota,
			Status:          string(r.Status),
		}
		if r.StartDate != nil {
			dtos[i].StartDate = r.StartDate.Format("2006-01-02")
		}
	}
	return dtos
}

func toSalesSnapshot(sellerID string, sales map[string]SalesFactDTO) commission.SalesSnapshot {
	snap := commission.SalesSnapshot{
		SellerID: sellerID,
		Facts:    make(map[commission.ItemID]commission.SalesFact, len(sales)),
	}
	for id, f := range sales {
		fact := commission.SalesFact{RawCount: f.RawCount}
		for _, t := range f.Tags {
			fact.Tags = append(fact.Tags, commission.SaleTag{PlanCode: t.PlanCode, OperatorCode: t.OperatorCode})
		}
		snap.Facts[commission.ItemID(id)] = fact
	}
	return snap
}

func toResultDTO(r *commission.CommissionResult) CommissionResultDTO {
	dto := CommissionResultDTO{
		SchemeID:             string(r.SchemeID),
		SellerID:             r.SellerID,
		Items:                make([]ItemResultDTO, len(r.Items)),
		CategorySubtotals:    make(map[string]decimal.Decimal, len(r.CategorySubtotals)),
		GlobalFulfillment:    r.GlobalFulfillment,
		MinFulfillmentMet:    r.MinFulfillmentMet,
		FixedSalary:          r.FixedSalary,
		VariableCommission:   r.VariableCommission,
		AdditionalCommission: r.AdditionalCommission,
		PxQCommission:        r.PxQCommission,
		BonusCommission:      r.BonusCommission,
		TotalGross:           r.TotalGross,
		Penalty:              r.Penalty,
		TotalNet:             r.TotalNet,
		Warnings:             make([]WarningDTO, len(r.Warnings)),
	}
	for c, v := range r.CategorySubtotals {
		dto.CategorySubtotals[string(c)] = v
	}
	for i, it := range r.Items {
		item := ItemResultDTO{
			ItemID:             string(it.ItemID),
			Name:               it.Name,
			Category:           string(it.Category),
			Quota:              it.Quota,
			RawSales:           it.RawSales,
			EffectiveSales:     it.EffectiveSales,
			Fulfillment:        it.Fulfillment,
			LockUnlocked:       it.LockUnlocked,
			LockPending:        it.LockPending,
			RestrictionApplied: it.RestrictionApplied,
			ComputedCommission: it.ComputedCommission,
			Commission:         it.Commission,
			CapApplied:         it.CapApplied,
			CapLimit:           it.CapLimit,
			Gated:              it.Gated,
			Warnings:           it.Warnings,
		}
		for _, o := range it.RestrictionDetail {
			item.RestrictionDetail = append(item.RestrictionDetail, RestrictionOutcomeDTO{
				RestrictionIDs: o.RestrictionIDs,
				Type:           string(o.Type),
				Code:           o.Code,
				Tagged:         o.Tagged,
				Allowed:        o.Allowed,
				Truncated:      o.Truncated,
				Reason:         o.Reason,
			})
		}
		dto.Items[i] = item
	}
	for i, w := range r.Warnings {
		dto.Warnings[i] = WarningDTO{ItemID: string(w.ItemID), Code: w.Code, Message: w.Message}
	}
	return dto
}

func toCompareResponse(a, b *commission.CommissionResult) CompareResponse {
	diff := commission.CompareScenarios(a, b)
	resp := CompareResponse{
		A:           toResultDTO(a),
		B:           toResultDTO(b),
		GateChanged: diff.GateChanged,
	}
	for _, l := range diff.Lines {
		resp.Lines = append(resp.Lines, DeltaDTO{Key: string(l.Line), A: l.A, B: l.B, Delta: l.Delta})
	}
	for _, c := range diff.Categories {
		resp.Categories = append(resp.Categories, DeltaDTO{Key: string(c.Category), A: c.A, B: c.B, Delta: c.Delta})
	}
	for _, it := range diff.Items {
		resp.Items = append(resp.Items, ItemDeltaDTO{
			ItemID:       string(it.ItemID),
			InA:          it.InA,
			InB:          it.InB,
			CommissionA:  it.CommissionA,
			CommissionB:  it.CommissionB,
			Delta:        it.Delta,
			FulfillmentA: it.FulfillmentA,
			FulfillmentB: it.FulfillmentB,
			UnlockedA:    it.UnlockedA,
			UnlockedB:    it.UnlockedB,
		})
	}
	return resp
}

func toSchemeDTO(rec sqlite.SchemeRecord, config factory.SchemeJSON) SchemeDTO {
	return SchemeDTO{
		ID:        rec.ID,
		Name:      rec.Name,
		Config:    config,
		Version:   rec.Version,
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}
