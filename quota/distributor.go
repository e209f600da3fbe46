package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// DISTRIBUTOR - Store-backed distribution workflow
// =============================================================================

// Distributor runs Distribute against persisted quotas.
type Distributor struct {
	Store  Store
	Logger *zap.Logger
}

func NewDistributor(store Store, logger *zap.Logger) *Distributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distributor{Store: store, Logger: logger}
}

// Distribute replaces the draft distribution of a store quota. Re-running
// with the same shares yields the same quotas (row IDs are regenerated).
func (d *Distributor) Distribute(ctx context.Context, id StoreQuotaID, shares []SellerShare) ([]HcQuota, error) {
	sq, err := d.Store.GetStoreQuota(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := Distribute(*sq, shares)
	if err != nil {
		return nil, err
	}

	if err := d.Store.ReplaceDistribution(ctx, id, rows); err != nil {
		return nil, fmt.Errorf("replace distribution: %w", err)
	}

	d.Logger.Info("quota distributed",
		zap.String("store_quota_id", string(id)),
		zap.String("period", sq.Period.String()),
		zap.Int("sellers", len(rows)),
		zap.Int("ss_quota", sq.SsQuota),
	)
	return rows, nil
}

// Approve validates the stored distribution and freezes it.
func (d *Distributor) Approve(ctx context.Context, id StoreQuotaID) error {
	sq, err := d.Store.GetStoreQuota(ctx, id)
	if err != nil {
		return err
	}
	if sq.Status.IsImmutable() {
		return &ConflictError{StoreQuotaID: id, Status: sq.Status, Action: "approve"}
	}

	rows, err := d.Store.ListHcQuotas(ctx, id)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &ValidationError{Field: "sellers", Message: "store quota has no distribution"}
	}
	amounts := make([]int, len(rows))
	for i, r := range rows {
		amounts[i] = r.SsQuota
	}
	if err := CheckComplete(sq.SsQuota, amounts); err != nil {
		return err
	}

	if err := d.Store.ApproveStoreQuota(ctx, id); err != nil {
		return fmt.Errorf("approve store quota: %w", err)
	}

	d.Logger.Info("quota approved",
		zap.String("store_quota_id", string(id)),
		zap.Int("sellers", len(rows)),
	)
	return nil
}
