/*
scenarios.go - Demo data loaders for testing and demonstrations

PURPOSE:

	Provides pre-built data sets that populate the database with a realistic
	store: schemes, a store quota and its seller distribution. Each demo
	shows one part of the commission workflow.

AVAILABLE DEMOS:

	retail-store:  Approved retail scheme and June distribution with a
	               mid-month hire
	draft-quota:   Same store with a draft distribution still open
	quota-only:    Single principal item, no locks or restrictions

HOW DEMOS WORK:
 1. Reset database (clear all data)
 2. Create schemes via factory presets
 3. Create the store quota
 4. Distribute to sellers (and approve, when the demo says so)

USAGE VIA API:

	POST /api/demos/load
	{"demo_id": "retail-store"}

NOTE:

	Demos reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Compute and distribution handlers
  - factory/presets.go: Scheme JSON presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/quota"
	"go.uber.org/zap"
)

// =============================================================================
// DEMO DEFINITIONS
// =============================================================================

const (
	demoStoreID      = "lima-centro"
	demoStoreQuotaID = "sq-lima-centro-2025-06"
	demoSchemeID     = "retail-2025-06"
)

var demos = []DemoDTO{
	{
		ID:          "retail-store",
		Name:        "Retail Store",
		Description: "Approved retail scheme and June distribution with a mid-month hire",
	},
	{
		ID:          "draft-quota",
		Name:        "Draft Quota",
		Description: "Store quota with a draft distribution that can still be changed",
	},
	{
		ID:          "quota-only",
		Name:        "Quota Only",
		Description: "One principal item, no locks, restrictions or tiers",
	},
}

// ListDemos returns available demos.
func (h *Handler) ListDemos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, demos)
}

// GetCurrentDemo returns the currently loaded demo, if any.
func (h *Handler) GetCurrentDemo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentDemo
	h.mu.Unlock()

	for _, d := range demos {
		if d.ID == current {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadDemo resets the database and loads a demo.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	var req LoadDemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.DemoID {
	case "retail-store":
		load = h.loadRetailStoreDemo
	case "draft-quota":
		load = h.loadDraftQuotaDemo
	case "quota-only":
		load = h.loadQuotaOnlyDemo
	default:
		writeError(w, http.StatusBadRequest, "Unknown demo", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.writeDomainError(w, "Failed to reset database", err)
		return
	}
	h.currentDemo = ""

	if err := load(ctx); err != nil {
		h.writeDomainError(w, fmt.Sprintf("Failed to load demo: %v", err), err)
		return
	}
	h.currentDemo = req.DemoID
	h.Logger.Info("demo loaded", zap.String("demo_id", req.DemoID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "demo": req.DemoID})
}

// =============================================================================
// DEMO LOADERS
// =============================================================================

func (h *Handler) loadRetailStoreDemo(ctx context.Context) error {
	if err := h.loadDraftQuotaDemo(ctx); err != nil {
		return err
	}
	if err := h.Distributor.Approve(ctx, demoStoreQuotaID); err != nil {
		return err
	}
	return h.Store.ApproveScheme(ctx, demoSchemeID)
}

func (h *Handler) loadDraftQuotaDemo(ctx context.Context) error {
	if err := h.createSchemeFromJSON(ctx, factory.StandardRetailSchemeJSON(demoSchemeID, "Retail June 2025", 0.7)); err != nil {
		return err
	}

	sq := quota.StoreQuota{
		ID:        demoStoreQuotaID,
		StoreID:   demoStoreID,
		Period:    quota.NewPeriod(2025, time.June),
		SsQuota:   70,
		Breakdown: map[string]int{"postpaid": 40, "portability": 30, "accessories": 20, "handsets": 20},
		Status:    quota.StatusDraft,
	}
	if err := h.Store.SaveStoreQuota(ctx, sq); err != nil {
		return err
	}

	// bruno joins on the 16th and gets half of his share
	start := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)
	_, err := h.Distributor.Distribute(ctx, demoStoreQuotaID, []quota.SellerShare{
		{SellerID: "ana", SsQuota: 40},
		{SellerID: "bruno", SsQuota: 30, StartDate: &start},
	})
	return err
}

func (h *Handler) loadQuotaOnlyDemo(ctx context.Context) error {
	return h.createSchemeFromJSON(ctx, factory.QuotaOnlySchemeJSON("quota-only", "Quota Only", 50, 1000))
}

func (h *Handler) createSchemeFromJSON(ctx context.Context, jsonStr string) error {
	def, err := h.SchemeFactory.ParseScheme(jsonStr)
	if err != nil {
		return err
	}
	_, err = h.saveScheme(ctx, def)
	return err
}
