/*
handlers.go - HTTP API handlers for quota distribution and commissions

PURPOSE:
  Exposes the quota distributor and the commission engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic. The engine is pure: handlers load the scheme and the
  seller's quota, then call commission.Compute.

ENDPOINTS:
  Store quotas:
    GET    /api/store-quotas                   List store quotas
    POST   /api/store-quotas                   Create or update a draft
    GET    /api/store-quotas/{id}              Get a store quota
    GET    /api/store-quotas/{id}/distribution Seller rows
    POST   /api/store-quotas/{id}/distribute   (Re)distribute to sellers
    POST   /api/store-quotas/{id}/approve      Freeze quota and rows

  Schemes:
    GET    /api/schemes                        List schemes
    POST   /api/schemes                        Create scheme from JSON
    GET    /api/schemes/{id}                   Get scheme
    POST   /api/schemes/{id}/approve           Freeze scheme

  Commissions:
    POST   /api/commissions/compute            One seller's statement
    POST   /api/scenarios/compare              Diff of two statements

  Demos:
    GET    /api/demos                          List demo data sets
    POST   /api/demos/load                     Reset and load a demo

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Store quota, seller row or scheme not found
  - 409: Mutation of an approved store quota or scheme
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/commission-engine/cache"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/quota"
	"github.com/warp/commission-engine/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Distributor   *quota.Distributor
	SchemeFactory *factory.SchemeFactory
	Logger        *zap.Logger

	// Parsed schemes keyed by ID
	schemes *cache.Expiring[commission.SchemeID, *commission.SchemeDefinition]

	mu          sync.Mutex
	currentDemo string
}

// NewHandler creates a new handler. Parsed schemes are cached for schemeTTL.
func NewHandler(store *sqlite.Store, logger *zap.Logger, schemeTTL time.Duration) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:         store,
		Distributor:   quota.NewDistributor(store, logger),
		SchemeFactory: factory.NewSchemeFactory(),
		Logger:        logger,
		schemes:       cache.NewExpiring[commission.SchemeID, *commission.SchemeDefinition](schemeTTL, nil),
	}
}

// =============================================================================
// STORE QUOTA HANDLERS
// =============================================================================

// ListStoreQuotas returns all store quotas.
func (h *Handler) ListStoreQuotas(w http.ResponseWriter, r *http.Request) {
	quotas, err := h.Store.ListStoreQuotas(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list store quotas", err)
		return
	}

	dtos := make([]StoreQuotaDTO, len(quotas))
	for i, sq := range quotas {
		dtos[i] = toStoreQuotaDTO(sq)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStoreQuota creates or updates a draft store quota.
func (h *Handler) CreateStoreQuota(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreQuotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	period, err := quota.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	if req.StoreID == "" {
		writeError(w, http.StatusBadRequest, "store_id is required", nil)
		return
	}
	if req.SsQuota < 0 {
		writeError(w, http.StatusBadRequest, "ss_quota cannot be negative", nil)
		return
	}
	id := req.ID
	if id == "" {
		id = fmt.Sprintf("sq-%s-%s", req.StoreID, period)
	}

	sq := quota.StoreQuota{
		ID:        quota.StoreQuotaID(id),
		StoreID:   quota.StoreID(req.StoreID),
		Period:    period,
		SsQuota:   req.SsQuota,
		Breakdown: req.Breakdown,
		Status:    quota.StatusDraft,
	}
	if err := h.Store.SaveStoreQuota(r.Context(), sq); err != nil {
		h.writeDomainError(w, "Failed to save store quota", err)
		return
	}

	saved, err := h.Store.GetStoreQuota(r.Context(), sq.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to load store quota", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStoreQuotaDTO(*saved))
}

// GetStoreQuota returns a single store quota.
func (h *Handler) GetStoreQuota(w http.ResponseWriter, r *http.Request) {
	id := quota.StoreQuotaID(chi.URLParam(r, "id"))

	sq, err := h.Store.GetStoreQuota(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Store quota not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreQuotaDTO(*sq))
}

// GetDistribution returns a store quota with its seller rows.
func (h *Handler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	id := quota.StoreQuotaID(chi.URLParam(r, "id"))

	sq, err := h.Store.GetStoreQuota(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Store quota not found", err)
		return
	}
	rows, err := h.Store.ListHcQuotas(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list seller quotas", err)
		return
	}

	writeJSON(w, http.StatusOK, DistributionDTO{
		StoreQuota: toStoreQuotaDTO(*sq),
		Sellers:    toHcQuotaDTOs(rows),
	})
}

// Distribute replaces the draft distribution of a store quota.
func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	id := quota.StoreQuotaID(chi.URLParam(r, "id"))

	var req DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	shares := make([]quota.SellerShare, len(req.Sellers))
	for i, s := range req.Sellers {
		shares[i] = quota.SellerShare{SellerID: quota.SellerID(s.SellerID), SsQuota: s.SsQuota}
		if s.StartDate != "" {
			start, err := time.Parse("2006-01-02", s.StartDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid start_date for seller %s", s.SellerID), err)
				return
			}
			shares[i].StartDate = &start
		}
	}

	rows, err := h.Distributor.Distribute(r.Context(), id, shares)
	if err != nil {
		h.writeDomainError(w, "Failed to distribute store quota", err)
		return
	}

	sq, err := h.Store.GetStoreQuota(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Store quota not found", err)
		return
	}
	writeJSON(w, http.StatusOK, DistributionDTO{
		StoreQuota: toStoreQuotaDTO(*sq),
		Sellers:    toHcQuotaDTOs(rows),
	})
}

// ApproveStoreQuota freezes a complete distribution.
func (h *Handler) ApproveStoreQuota(w http.ResponseWriter, r *http.Request) {
	id := quota.StoreQuotaID(chi.URLParam(r, "id"))

	if err := h.Distributor.Approve(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to approve store quota", err)
		return
	}

	sq, err := h.Store.GetStoreQuota(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Store quota not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreQuotaDTO(*sq))
}

// =============================================================================
// SCHEME HANDLERS
// =============================================================================

// ListSchemes returns all schemes.
func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListSchemes(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list schemes", err)
		return
	}

	dtos := make([]SchemeDTO, 0, len(records))
	for _, rec := range records {
		var config factory.SchemeJSON
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &config); err != nil {
			h.Logger.Warn("skipping unreadable scheme", zap.String("scheme_id", rec.ID), zap.Error(err))
			continue
		}
		dtos = append(dtos, toSchemeDTO(rec, config))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateScheme validates a scheme and stores it.
func (h *Handler) CreateScheme(w http.ResponseWriter, r *http.Request) {
	var req factory.SchemeJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	def, err := h.SchemeFactory.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scheme configuration", err)
		return
	}

	record, err := h.saveScheme(r.Context(), def)
	if err != nil {
		h.writeDomainError(w, "Failed to create scheme", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSchemeDTO(*record, h.SchemeFactory.ToJSON(*def)))
}

// GetScheme returns a single scheme.
func (h *Handler) GetScheme(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.Store.GetScheme(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Scheme not found", err)
		return
	}

	var config factory.SchemeJSON
	if err := json.Unmarshal([]byte(record.ConfigJSON), &config); err != nil {
		h.writeDomainError(w, "Stored scheme is unreadable", err)
		return
	}

	writeJSON(w, http.StatusOK, toSchemeDTO(*record, config))
}

// ApproveScheme freezes a scheme. Later saves under its ID return 409.
func (h *Handler) ApproveScheme(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.ApproveScheme(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to approve scheme", err)
		return
	}

	record, err := h.Store.GetScheme(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Scheme not found", err)
		return
	}
	var config factory.SchemeJSON
	if err := json.Unmarshal([]byte(record.ConfigJSON), &config); err != nil {
		h.writeDomainError(w, "Stored scheme is unreadable", err)
		return
	}
	writeJSON(w, http.StatusOK, toSchemeDTO(*record, config))
}

func (h *Handler) saveScheme(ctx context.Context, def *commission.SchemeDefinition) (*sqlite.SchemeRecord, error) {
	configJSON, err := h.SchemeFactory.Marshal(*def)
	if err != nil {
		return nil, err
	}
	if err := h.Store.SaveScheme(ctx, sqlite.SchemeRecord{
		ID:         string(def.ID),
		Name:       def.Name,
		ConfigJSON: configJSON,
	}); err != nil {
		return nil, err
	}
	h.schemes.Invalidate(def.ID)
	return h.Store.GetScheme(ctx, string(def.ID))
}

// loadScheme reads and parses a stored scheme. Used as the cache fetcher.
func (h *Handler) loadScheme(ctx context.Context, id commission.SchemeID) (*commission.SchemeDefinition, error) {
	record, err := h.Store.GetScheme(ctx, string(id))
	if err != nil {
		return nil, err
	}
	return h.SchemeFactory.ParseScheme(record.ConfigJSON)
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// ComputeCommission returns one seller's commission statement.
func (h *Handler) ComputeCommission(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.compute(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, "Failed to compute commission", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// CompareScenarios computes two statements and diffs them.
func (h *Handler) CompareScenarios(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, err := h.compute(r.Context(), req.A)
	if err != nil {
		h.writeDomainError(w, "Failed to compute scenario A", err)
		return
	}
	b, err := h.compute(r.Context(), req.B)
	if err != nil {
		h.writeDomainError(w, "Failed to compute scenario B", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompareResponse(a, b))
}

// compute resolves the scheme and the seller quota of req and runs the
// engine.
func (h *Handler) compute(ctx context.Context, req ComputeRequest) (*commission.CommissionResult, error) {
	var scheme *commission.SchemeDefinition
	var err error
	switch {
	case req.Scheme != nil:
		scheme, err = h.SchemeFactory.FromJSON(*req.Scheme)
	case req.SchemeID != "":
		scheme, err = h.schemes.GetOrFetch(ctx, commission.SchemeID(req.SchemeID), h.loadScheme)
	default:
		err = &commission.ValidationError{Field: "scheme_id", Message: "scheme_id or scheme is required"}
	}
	if err != nil {
		return nil, err
	}

	var hc *quota.HcQuota
	if req.StoreQuotaID != "" {
		if req.SellerID == "" {
			return nil, &commission.ValidationError{Field: "seller_id", Message: "seller_id is required with store_quota_id"}
		}
		hc, err = h.Store.GetHcQuota(ctx, quota.StoreQuotaID(req.StoreQuotaID), quota.SellerID(req.SellerID))
		if err != nil {
			return nil, fmt.Errorf("seller %s in store quota %s: %w", req.SellerID, req.StoreQuotaID, err)
		}
	}

	result, err := commission.Compute(*scheme, toSalesSnapshot(req.SellerID, req.Sales), hc, req.Penalty)
	if err != nil {
		return nil, err
	}

	h.Logger.Debug("commission computed",
		zap.String("scheme_id", string(result.SchemeID)),
		zap.String("seller_id", result.SellerID),
		zap.String("total_net", result.TotalNet.StringFixed(2)),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps domain errors from both packages to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, quota.ErrNotFound), errors.Is(err, commission.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, quota.ErrConflict), errors.Is(err, commission.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, quota.ErrValidation), errors.Is(err, commission.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}
