/*
store.go - Persistence interface for store and seller quotas

PURPOSE:
  Defines the boundary between the distributor and the database. The
  distributor never writes rows one by one: a distribution is replaced
  wholesale, and approval flips the StoreQuota and its HcQuota rows in a
  single step. Readers must never observe a half-replaced distribution.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - quota/store/memory.go: In-memory for testing

SEE ALSO:
  - distributor.go: Uses this interface
*/
package quota

import "context"

// Store persists quotas.
type Store interface {
	// SaveStoreQuota creates or updates a draft StoreQuota.
	// Returns ConflictError if the stored row is approved.
	SaveStoreQuota(ctx context.Context, sq StoreQuota) error

	// GetStoreQuota returns ErrNotFound when the quota doesn't exist.
	GetStoreQuota(ctx context.Context, id StoreQuotaID) (*StoreQuota, error)

	// ListHcQuotas returns the current distribution, ordered by seller.
	ListHcQuotas(ctx context.Context, id StoreQuotaID) ([]HcQuota, error)

	// GetHcQuota returns the seller's row for the store quota.
	GetHcQuota(ctx context.Context, id StoreQuotaID, seller SellerID) (*HcQuota, error)

	// ReplaceDistribution deletes every HcQuota of the store quota and
	// inserts rows, atomically. Returns ConflictError if approved.
	ReplaceDistribution(ctx context.Context, id StoreQuotaID, rows []HcQuota) error

	// ApproveStoreQuota flips the StoreQuota and all its HcQuota rows to
	// approved, atomically.
	ApproveStoreQuota(ctx context.Context, id StoreQuotaID) error
}
