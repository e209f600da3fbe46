package commission_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
)

func lockItems(ids ...string) []commission.SchemeItem {
	items := make([]commission.SchemeItem, len(ids))
	for i, id := range ids {
		items[i] = commission.SchemeItem{ID: commission.ItemID(id), Name: id, Category: commission.CategoryAdicional, IsActive: true}
	}
	return items
}

func lock(id, target, required string, typ commission.LockType, value string) commission.Lock {
	return commission.Lock{
		ID:             id,
		ItemID:         commission.ItemID(target),
		RequiredItemID: commission.ItemID(required),
		RequiredValue:  dec(value),
		Type:           typ,
		IsActive:       true,
	}
}

func TestLockGraph_TopologicalOrder(t *testing.T) {
	// c requires b, b requires a
	g := commission.NewLockGraph(lockItems("c", "b", "a"), []commission.Lock{
		lock("l1", "c", "b", commission.LockUnlocked, "0"),
		lock("l2", "b", "a", commission.LockUnlocked, "0"),
	})

	order, err := g.Order()

	require.NoError(t, err)
	assert.Equal(t, []commission.ItemID{"a", "b", "c"}, order)
}

func TestLockGraph_ChainedLocksPropagate(t *testing.T) {
	// c requires b unlocked; b requires a at 100%; a is at 50%
	g := commission.NewLockGraph(lockItems("a", "b", "c"), []commission.Lock{
		lock("l1", "c", "b", commission.LockUnlocked, "0"),
		lock("l2", "b", "a", commission.LockMinFulfillment, "1"),
	})

	res := g.Resolve(map[commission.ItemID]commission.ItemState{
		"a": {EffectiveSales: 5, Fulfillment: decp("0.5")},
		"b": {EffectiveSales: 50, Fulfillment: decp("2")},
		"c": {EffectiveSales: 50, Fulfillment: decp("2")},
	})

	assert.True(t, res.Unlocked["a"])
	assert.False(t, res.Unlocked["b"])
	assert.False(t, res.Unlocked["c"])
	assert.Contains(t, res.Pending["c"][0], "itself locked")
	assert.Empty(t, res.Errors)
}

func TestLockGraph_AllLocksMustHold(t *testing.T) {
	locks := []commission.Lock{
		lock("l1", "bonus", "postpaid", commission.LockMinFulfillment, "0.8"),
		lock("l2", "bonus", "prepaid", commission.LockMinSales, "10"),
	}
	states := map[commission.ItemID]commission.ItemState{
		"postpaid": {EffectiveSales: 45, Fulfillment: decp("0.9")},
		"prepaid":  {EffectiveSales: 9},
	}

	res := commission.NewLockGraph(lockItems("postpaid", "prepaid", "bonus"), locks).Resolve(states)

	assert.False(t, res.Unlocked["bonus"])
	require.Len(t, res.Pending["bonus"], 1)
	assert.Contains(t, res.Pending["bonus"][0], "sales >= 10 (current 9)")

	states["prepaid"] = commission.ItemState{EffectiveSales: 10}
	res = commission.NewLockGraph(lockItems("postpaid", "prepaid", "bonus"), locks).Resolve(states)
	assert.True(t, res.Unlocked["bonus"])
	assert.Empty(t, res.Pending["bonus"])
}

func TestLockGraph_FulfillmentBoundaryAndUndefined(t *testing.T) {
	locks := []commission.Lock{lock("l1", "b", "a", commission.LockMinFulfillment, "0.8")}

	res := commission.NewLockGraph(lockItems("a", "b"), locks).Resolve(map[commission.ItemID]commission.ItemState{
		"a": {Fulfillment: decp("0.8")},
	})
	assert.True(t, res.Unlocked["b"], "exactly at the required value unlocks")

	res = commission.NewLockGraph(lockItems("a", "b"), locks).Resolve(map[commission.ItemID]commission.ItemState{
		"a": {EffectiveSales: 100},
	})
	assert.False(t, res.Unlocked["b"], "undefined fulfillment never satisfies")
	assert.Contains(t, res.Pending["b"][0], "n/a")
}

func TestLockGraph_DeclarationOrderIndependent(t *testing.T) {
	locks := []commission.Lock{
		lock("l1", "d", "c", commission.LockMinSales, "3"),
		lock("l2", "c", "a", commission.LockUnlocked, "0"),
		lock("l3", "c", "b", commission.LockMinFulfillment, "0.5"),
		lock("l4", "b", "a", commission.LockMinSales, "1"),
	}
	states := map[commission.ItemID]commission.ItemState{
		"a": {EffectiveSales: 2, Fulfillment: decp("0.2")},
		"b": {EffectiveSales: 6, Fulfillment: decp("0.6")},
		"c": {EffectiveSales: 3, Fulfillment: decp("0.3")},
		"d": {EffectiveSales: 0},
	}

	first := commission.NewLockGraph(lockItems("a", "b", "c", "d"), locks).Resolve(states)
	reversedLocks := []commission.Lock{locks[3], locks[2], locks[1], locks[0]}
	second := commission.NewLockGraph(lockItems("d", "c", "b", "a"), reversedLocks).Resolve(states)

	assert.Equal(t, first.Unlocked, second.Unlocked)
	assert.Equal(t, first.Pending, second.Pending)
	assert.True(t, first.Unlocked["d"])

	o1, _ := commission.NewLockGraph(lockItems("a", "b", "c", "d"), locks).Order()
	o2, _ := commission.NewLockGraph(lockItems("d", "c", "b", "a"), reversedLocks).Order()
	assert.Equal(t, o1, o2)
}

func TestLockGraph_CycleReported(t *testing.T) {
	g := commission.NewLockGraph(lockItems("a", "b", "c", "free", "downstream"), []commission.Lock{
		lock("l1", "a", "b", commission.LockUnlocked, "0"),
		lock("l2", "b", "c", commission.LockUnlocked, "0"),
		lock("l3", "c", "a", commission.LockUnlocked, "0"),
		lock("l4", "downstream", "a", commission.LockUnlocked, "0"),
	})

	order, err := g.Order()

	var cerr *commission.CycleError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, err, commission.ErrCycle)
	assert.True(t, commission.IsConfigError(err))
	assert.Equal(t, []commission.ItemID{"a", "b", "c", "a"}, cerr.Path)
	assert.Equal(t, []commission.ItemID{"free"}, order)

	res := g.Resolve(map[commission.ItemID]commission.ItemState{})
	assert.True(t, res.Unlocked["free"])
	for _, id := range []commission.ItemID{"a", "b", "c", "downstream"} {
		assert.False(t, res.Unlocked[id], id)
		assert.NotEmpty(t, res.Pending[id], id)
	}
	assert.Contains(t, res.Pending["a"][0], "cycle")
	assert.Contains(t, res.Pending["downstream"][0], "depends on")
}

func TestLockGraph_SelfLockIsCycle(t *testing.T) {
	g := commission.NewLockGraph(lockItems("a"), []commission.Lock{lock("l1", "a", "a", commission.LockUnlocked, "0")})

	_, err := g.Order()

	var cerr *commission.CycleError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []commission.ItemID{"a", "a"}, cerr.Path)
}

func TestLockGraph_UnknownRequiredItem(t *testing.T) {
	items := lockItems("a", "b")
	items[1].IsActive = false

	res := commission.NewLockGraph(items, []commission.Lock{
		lock("l1", "a", "b", commission.LockUnlocked, "0"),
		lock("l2", "ghost", "a", commission.LockUnlocked, "0"),
	}).Resolve(map[commission.ItemID]commission.ItemState{})

	assert.False(t, res.Unlocked["a"])
	require.Len(t, res.Errors, 2)
	for _, err := range res.Errors {
		assert.ErrorIs(t, err, commission.ErrConfig)
	}
}

func TestLockGraph_InactiveLocksIgnored(t *testing.T) {
	l := lock("l1", "b", "a", commission.LockMinSales, "100")
	l.IsActive = false

	res := commission.NewLockGraph(lockItems("a", "b"), []commission.Lock{l}).Resolve(map[commission.ItemID]commission.ItemState{})

	assert.True(t, res.Unlocked["b"])
}
