package commission

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LOCK GRAPH - Items as nodes, locks as edges target -> required
// =============================================================================

// ItemState is what locks compare against. Fulfillment and effective sales
// don't depend on locks, so they are known before resolution starts.
type ItemState struct {
	EffectiveSales int
	Fulfillment    *decimal.Decimal
}

// LockGraph is built once per scheme and evaluated in topological order.
type LockGraph struct {
	items map[ItemID]SchemeItem
	locks map[ItemID][]Lock // target -> active locks

	order  []ItemID
	cyclic map[ItemID]bool
	cycle  *CycleError
	errs   []*ConfigError
}

// NewLockGraph indexes the active items and locks and computes the
// evaluation order. Locks targeting unknown items are reported and dropped.
func NewLockGraph(items []SchemeItem, locks []Lock) *LockGraph {
	g := &LockGraph{
		items:  make(map[ItemID]SchemeItem, len(items)),
		locks:  make(map[ItemID][]Lock),
		cyclic: make(map[ItemID]bool),
	}
	for _, it := range items {
		if it.IsActive {
			g.items[it.ID] = it
		}
	}
	for _, l := range locks {
		if !l.IsActive {
			continue
		}
		if _, ok := g.items[l.ItemID]; !ok {
			g.errs = append(g.errs, &ConfigError{
				ItemID:  l.ItemID,
				Code:    CodeLockUnknownItem,
				Message: fmt.Sprintf("lock %s targets an unknown or inactive item", l.ID),
			})
			continue
		}
		g.locks[l.ItemID] = append(g.locks[l.ItemID], l)
	}
	for id := range g.locks {
		ls := g.locks[id]
		sort.SliceStable(ls, func(i, j int) bool { return ls[i].ID < ls[j].ID })
	}
	g.sort()
	return g
}

// dependencies returns the distinct known items id requires.
func (g *LockGraph) dependencies(id ItemID) []ItemID {
	seen := make(map[ItemID]bool)
	var deps []ItemID
	for _, l := range g.locks[id] {
		if _, ok := g.items[l.RequiredItemID]; !ok || seen[l.RequiredItemID] {
			continue
		}
		seen[l.RequiredItemID] = true
		deps = append(deps, l.RequiredItemID)
	}
	return deps
}

func (g *LockGraph) less(a, b ItemID) bool {
	ia, ib := g.items[a], g.items[b]
	if ia.DisplayOrder != ib.DisplayOrder {
		return ia.DisplayOrder < ib.DisplayOrder
	}
	return a < b
}

// sort runs Kahn's algorithm. Ties are broken by display order then ID,
// so the order never depends on how items were declared.
func (g *LockGraph) sort() {
	pending := make(map[ItemID]int, len(g.items))
	dependents := make(map[ItemID][]ItemID)
	for id := range g.items {
		deps := g.dependencies(id)
		pending[id] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], id)
		}
	}

	var ready []ItemID
	for id, n := range pending {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return g.less(ready[i], ready[j]) })
		id := ready[0]
		ready = ready[1:]
		g.order = append(g.order, id)
		delete(pending, id)
		for _, dep := range dependents[id] {
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(pending) == 0 {
		return
	}

	// Whatever is left sits on a cycle or depends on one.
	remaining := make([]ItemID, 0, len(pending))
	for id := range pending {
		g.cyclic[id] = true
		remaining = append(remaining, id)
	}
	sort.Slice(remaining, func(i, j int) bool { return g.less(remaining[i], remaining[j]) })
	g.cycle = g.findCycle(remaining[0])
}

// findCycle walks unresolved dependencies from start until a node repeats.
// Every unresolved node has at least one unresolved dependency.
func (g *LockGraph) findCycle(start ItemID) *CycleError {
	index := make(map[ItemID]int)
	var path []ItemID
	cur := start
	for {
		if i, ok := index[cur]; ok {
			cycle := append([]ItemID{}, path[i:]...)
			cycle = append(cycle, cur)
			return &CycleError{Path: cycle}
		}
		index[cur] = len(path)
		path = append(path, cur)

		var next []ItemID
		for _, d := range g.dependencies(cur) {
			if g.cyclic[d] {
				next = append(next, d)
			}
		}
		sort.Slice(next, func(i, j int) bool { return g.less(next[i], next[j]) })
		cur = next[0]
	}
}

// Order returns the evaluation order of every resolvable item. It fails
// with *CycleError when locks form a cycle; the order then only covers
// items not on or behind the cycle.
func (g *LockGraph) Order() ([]ItemID, error) {
	out := append([]ItemID{}, g.order...)
	if g.cycle != nil {
		return out, g.cycle
	}
	return out, nil
}

// =============================================================================
// RESOLUTION
// =============================================================================

// LockResolution says which items may pay and why the others may not.
type LockResolution struct {
	Unlocked map[ItemID]bool
	Pending  map[ItemID][]string
	Errors   []error
}

// Resolve evaluates every lock in topological order. An item is unlocked
// only if all its locks hold (AND). Items on or behind a cycle stay locked.
func (g *LockGraph) Resolve(states map[ItemID]ItemState) LockResolution {
	res := LockResolution{
		Unlocked: make(map[ItemID]bool, len(g.items)),
		Pending:  make(map[ItemID][]string),
	}
	for _, e := range g.errs {
		res.Errors = append(res.Errors, e)
	}

	for _, id := range g.order {
		unlocked := true
		for _, l := range g.locks[id] {
			ok, reason, err := g.evaluate(l, states, res.Unlocked)
			if err != nil {
				res.Errors = append(res.Errors, err)
			}
			if !ok {
				unlocked = false
				res.Pending[id] = append(res.Pending[id], reason)
			}
		}
		res.Unlocked[id] = unlocked
	}

	if g.cycle != nil {
		res.Errors = append(res.Errors, g.cycle)
		ids := make([]ItemID, 0, len(g.cyclic))
		for id := range g.cyclic {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return g.less(ids[i], ids[j]) })
		for _, id := range ids {
			res.Unlocked[id] = false
			if g.cycle.Contains(id) {
				res.Pending[id] = append(res.Pending[id], "locks form a cycle: "+g.cycle.Error())
			} else {
				res.Pending[id] = append(res.Pending[id], "depends on items whose locks form a cycle")
			}
		}
	}
	return res
}

func (g *LockGraph) evaluate(l Lock, states map[ItemID]ItemState, unlocked map[ItemID]bool) (bool, string, error) {
	required, ok := g.items[l.RequiredItemID]
	if !ok {
		msg := fmt.Sprintf("requires unknown or inactive item %s", l.RequiredItemID)
		return false, describe(l, msg), &ConfigError{ItemID: l.ItemID, Code: CodeLockUnknownItem, Message: fmt.Sprintf("lock %s %s", l.ID, msg)}
	}
	name := required.Name
	if name == "" {
		name = string(required.ID)
	}

	if !unlocked[l.RequiredItemID] {
		return false, describe(l, fmt.Sprintf("requires %s, which is itself locked", name)), nil
	}

	state := states[l.RequiredItemID]
	switch l.Type {
	case LockUnlocked:
		return true, "", nil

	case LockMinFulfillment:
		if state.Fulfillment != nil && state.Fulfillment.GreaterThanOrEqual(l.RequiredValue) {
			return true, "", nil
		}
		current := "n/a"
		if state.Fulfillment != nil {
			current = percent(*state.Fulfillment) + "%"
		}
		return false, describe(l, fmt.Sprintf("requires %s fulfillment >= %s%% (current %s)",
			name, percent(l.RequiredValue), current)), nil

	case LockMinSales:
		if decimal.NewFromInt(int64(state.EffectiveSales)).GreaterThanOrEqual(l.RequiredValue) {
			return true, "", nil
		}
		return false, describe(l, fmt.Sprintf("requires %s sales >= %s (current %d)",
			name, l.RequiredValue.String(), state.EffectiveSales)), nil

	default:
		msg := fmt.Sprintf("lock %s has unknown type %q", l.ID, l.Type)
		return false, describe(l, msg), &ConfigError{ItemID: l.ItemID, Code: CodeLockUnknownType, Message: msg}
	}
}

func describe(l Lock, detail string) string {
	if l.Description == "" {
		return detail
	}
	return l.Description + ": " + detail
}
