// Package store provides in-memory quota.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/commission-engine/quota"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	storeQuotas map[quota.StoreQuotaID]quota.StoreQuota
	hcQuotas    map[quota.StoreQuotaID][]quota.HcQuota
}

func NewMemory() *Memory {
	return &Memory{
		storeQuotas: make(map[quota.StoreQuotaID]quota.StoreQuota),
		hcQuotas:    make(map[quota.StoreQuotaID][]quota.HcQuota),
	}
}

func (m *Memory) SaveStoreQuota(_ context.Context, sq quota.StoreQuota) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.storeQuotas[sq.ID]; ok {
		if existing.Status.IsImmutable() {
			return &quota.ConflictError{StoreQuotaID: sq.ID, Status: existing.Status, Action: "update"}
		}
		sq.CreatedAt = existing.CreatedAt
	} else if sq.CreatedAt.IsZero() {
		sq.CreatedAt = time.Now().UTC()
	}
	if sq.Status == "" {
		sq.Status = quota.StatusDraft
	}
	sq.UpdatedAt = time.Now().UTC()
	sq.Breakdown = copyBreakdown(sq.Breakdown)
	m.storeQuotas[sq.ID] = sq
	return nil
}

func (m *Memory) GetStoreQuota(_ context.Context, id quota.StoreQuotaID) (*quota.StoreQuota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sq, ok := m.storeQuotas[id]
	if !ok {
		return nil, quota.ErrNotFound
	}
	sq.Breakdown = copyBreakdown(sq.Breakdown)
	return &sq, nil
}

func (m *Memory) ListHcQuotas(_ context.Context, id quota.StoreQuotaID) ([]quota.HcQuota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.hcQuotas[id]
	result := make([]quota.HcQuota, len(rows))
	copy(result, rows)
	sort.Slice(result, func(i, j int) bool { return result[i].SellerID < result[j].SellerID })
	return result, nil
}

func (m *Memory) GetHcQuota(_ context.Context, id quota.StoreQuotaID, seller quota.SellerID) (*quota.HcQuota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.hcQuotas[id] {
		if r.SellerID == seller {
			row := r
			return &row, nil
		}
	}
	return nil, quota.ErrNotFound
}

// ReplaceDistribution swaps the whole slice under the write lock, so readers
// see either the old or the new distribution.
func (m *Memory) ReplaceDistribution(_ context.Context, id quota.StoreQuotaID, rows []quota.HcQuota) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sq, ok := m.storeQuotas[id]
	if !ok {
		return quota.ErrNotFound
	}
	if sq.Status.IsImmutable() {
		return &quota.ConflictError{StoreQuotaID: id, Status: sq.Status, Action: "distribute"}
	}

	fresh := make([]quota.HcQuota, len(rows))
	copy(fresh, rows)
	m.hcQuotas[id] = fresh
	return nil
}

func (m *Memory) ApproveStoreQuota(_ context.Context, id quota.StoreQuotaID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sq, ok := m.storeQuotas[id]
	if !ok {
		return quota.ErrNotFound
	}
	if sq.Status.IsImmutable() {
		return &quota.ConflictError{StoreQuotaID: id, Status: sq.Status, Action: "approve"}
	}

	sq.Status = quota.StatusApproved
	sq.UpdatedAt = time.Now().UTC()
	m.storeQuotas[id] = sq

	rows := m.hcQuotas[id]
	approved := make([]quota.HcQuota, len(rows))
	for i, r := range rows {
		r.Status = quota.StatusApproved
		approved[i] = r
	}
	m.hcQuotas[id] = approved
	return nil
}

func copyBreakdown(b map[string]int) map[string]int {
	if b == nil {
		return nil
	}
	out := make(map[string]int, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
