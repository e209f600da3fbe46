package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/quota"
	"github.com/warp/commission-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func june() quota.StoreQuota {
	return quota.StoreQuota{
		ID:        "sq-lima-2025-06",
		StoreID:   "lima-centro",
		Period:    quota.NewPeriod(2025, time.June),
		SsQuota:   70,
		Breakdown: map[string]int{"postpaid": 40, "portability": 30},
	}
}

func TestStoreQuota_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveStoreQuota(ctx, june()))

	got, err := s.GetStoreQuota(ctx, "sq-lima-2025-06")
	require.NoError(t, err)
	assert.Equal(t, quota.StoreID("lima-centro"), got.StoreID)
	assert.Equal(t, quota.NewPeriod(2025, time.June), got.Period)
	assert.Equal(t, 70, got.SsQuota)
	assert.Equal(t, map[string]int{"postpaid": 40, "portability": 30}, got.Breakdown)
	assert.Equal(t, quota.StatusDraft, got.Status)

	_, err = s.GetStoreQuota(ctx, "missing")
	assert.ErrorIs(t, err, quota.ErrNotFound)

	list, err := s.ListStoreQuotas(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDistribution_ReplaceAndApprove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveStoreQuota(ctx, june()))
	d := quota.NewDistributor(s, nil)

	start := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)

	// GIVEN: a first draft, then a re-run that replaces it
	_, err := d.Distribute(ctx, "sq-lima-2025-06", []quota.SellerShare{{SellerID: "ana", SsQuota: 70}})
	require.NoError(t, err)
	_, err = d.Distribute(ctx, "sq-lima-2025-06", []quota.SellerShare{
		{SellerID: "ana", SsQuota: 40},
		{SellerID: "bruno", SsQuota: 30, StartDate: &start},
	})
	require.NoError(t, err)

	rows, err := s.ListHcQuotas(ctx, "sq-lima-2025-06")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, quota.SellerID("ana"), rows[0].SellerID)

	bruno, err := s.GetHcQuota(ctx, "sq-lima-2025-06", "bruno")
	require.NoError(t, err)
	require.NotNil(t, bruno.StartDate)
	assert.Equal(t, 16, bruno.StartDate.Day())
	assert.True(t, bruno.ProrationFactor.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, bruno.ProratedSsQuota.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, map[string]int{"postpaid": 17, "portability": 13}, bruno.Breakdown)

	// WHEN: approved
	require.NoError(t, d.Approve(ctx, "sq-lima-2025-06"))

	// THEN: everything is frozen
	sq, err := s.GetStoreQuota(ctx, "sq-lima-2025-06")
	require.NoError(t, err)
	assert.Equal(t, quota.StatusApproved, sq.Status)

	rows, err = s.ListHcQuotas(ctx, "sq-lima-2025-06")
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, quota.StatusApproved, r.Status)
	}

	_, err = d.Distribute(ctx, "sq-lima-2025-06", []quota.SellerShare{{SellerID: "ana", SsQuota: 70}})
	assert.True(t, quota.IsConflict(err))
	assert.True(t, quota.IsConflict(s.SaveStoreQuota(ctx, june())))
	assert.True(t, quota.IsConflict(s.ApproveStoreQuota(ctx, "sq-lima-2025-06")))
}

func TestDistribution_UnknownStoreQuota(t *testing.T) {
	s := newStore(t)

	err := s.ReplaceDistribution(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, quota.ErrNotFound)

	_, err = s.GetHcQuota(context.Background(), "missing", "ana")
	assert.ErrorIs(t, err, quota.ErrNotFound)
}

func TestSchemes_Versioned(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveScheme(ctx, sqlite.SchemeRecord{ID: "retail", Name: "Retail", ConfigJSON: `{"id":"retail"}`}))
	require.NoError(t, s.SaveScheme(ctx, sqlite.SchemeRecord{ID: "retail", Name: "Retail v2", ConfigJSON: `{"id":"retail","name":"v2"}`}))
	require.NoError(t, s.SaveScheme(ctx, sqlite.SchemeRecord{ID: "agency", Name: "Agency", ConfigJSON: `{}`}))

	got, err := s.GetScheme(ctx, "retail")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "Retail v2", got.Name)

	list, err := s.ListSchemes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "agency", list[0].ID)

	_, err = s.GetScheme(ctx, "missing")
	assert.True(t, commission.IsNotFound(err))
}

func TestSchemes_ApprovedIsFrozen(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveScheme(ctx, sqlite.SchemeRecord{ID: "retail", Name: "Retail", ConfigJSON: `{}`}))

	got, err := s.GetScheme(ctx, "retail")
	require.NoError(t, err)
	assert.Equal(t, commission.SchemeDraft, got.Status)

	// WHEN: approved
	require.NoError(t, s.ApproveScheme(ctx, "retail"))

	// THEN: further changes conflict and the stored row is untouched
	err = s.SaveScheme(ctx, sqlite.SchemeRecord{ID: "retail", Name: "Retail v2", ConfigJSON: `{"x":1}`})
	assert.True(t, commission.IsConflict(err))
	var conflict *commission.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, commission.SchemeApproved, conflict.Status)

	err = s.ApproveScheme(ctx, "retail")
	assert.True(t, commission.IsConflict(err))

	got, err = s.GetScheme(ctx, "retail")
	require.NoError(t, err)
	assert.Equal(t, commission.SchemeApproved, got.Status)
	assert.Equal(t, "Retail", got.Name)
	assert.Equal(t, 1, got.Version)

	err = s.ApproveScheme(ctx, "missing")
	assert.True(t, commission.IsNotFound(err))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveStoreQuota(ctx, june()))
	require.NoError(t, s.SaveScheme(ctx, sqlite.SchemeRecord{ID: "retail", Name: "Retail", ConfigJSON: `{}`}))

	require.NoError(t, s.Reset(ctx))

	list, err := s.ListSchemes(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = s.GetStoreQuota(ctx, "sq-lima-2025-06")
	assert.ErrorIs(t, err, quota.ErrNotFound)
}
