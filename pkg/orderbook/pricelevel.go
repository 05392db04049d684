package orderbook

import (
	"sort"

	"github.com/gammazero/deque"

	"github.com/spotforge/matchengine/pkg/decimal"
)

// priceLevel holds every resting order at one price, in insertion (time
// priority) order. Orders are consumed from the front by matching and
// appended at the back on residue insert.
type priceLevel struct {
	price  decimal.Decimal
	orders deque.Deque[*Order]
}

// priceLevels is a side of the book: a slice of price levels kept sorted by
// the side's priority order (bids descending, asks ascending). Locate and
// insert are O(log n) via binary search; shifting on insert/removal is
// O(n), acceptable for the moderate per-side depths this design targets.
type priceLevels struct {
	levels []*priceLevel
	better func(a, b decimal.Decimal) bool // true if a has priority over b
}

func newBidLevels() *priceLevels {
	return &priceLevels{better: func(a, b decimal.Decimal) bool { return a.GreaterThan(b) }}
}

func newAskLevels() *priceLevels {
	return &priceLevels{better: func(a, b decimal.Decimal) bool { return a.LessThan(b) }}
}

func (pl *priceLevels) Len() int { return len(pl.levels) }

// Best returns the highest-priority level, or nil if the side is empty.
func (pl *priceLevels) Best() *priceLevel {
	if len(pl.levels) == 0 {
		return nil
	}
	return pl.levels[0]
}

// find returns the index of the level at price, and whether it exists.
func (pl *priceLevels) find(price decimal.Decimal) (int, bool) {
	idx := sort.Search(len(pl.levels), func(i int) bool {
		return !pl.better(pl.levels[i].price, price) // first i where levels[i] is NOT strictly better than price
	})
	if idx < len(pl.levels) && pl.levels[idx].price.Equal(price) {
		return idx, true
	}
	return idx, false
}

// getOrCreate returns the level at price, inserting a new empty one at the
// correct sorted position if absent.
func (pl *priceLevels) getOrCreate(price decimal.Decimal) *priceLevel {
	idx, ok := pl.find(price)
	if ok {
		return pl.levels[idx]
	}
	lvl := &priceLevel{price: price}
	pl.levels = append(pl.levels, nil)
	copy(pl.levels[idx+1:], pl.levels[idx:])
	pl.levels[idx] = lvl
	return lvl
}

// removeIfEmpty drops the level at price if it has no remaining orders.
func (pl *priceLevels) removeIfEmpty(price decimal.Decimal) {
	idx, ok := pl.find(price)
	if !ok || pl.levels[idx].orders.Len() > 0 {
		return
	}
	pl.levels = append(pl.levels[:idx], pl.levels[idx+1:]...)
}

// removeFromLevel scans the level's deque for orderID and removes it,
// rebuilding the FIFO order of what remains.
func removeFromLevel(lvl *priceLevel, orderID string) (*Order, bool) {
	n := lvl.orders.Len()
	var found *Order
	rest := make([]*Order, 0, n)
	for i := 0; i < n; i++ {
		o := lvl.orders.At(i)
		if o.OrderID == orderID && found == nil {
			found = o
			continue
		}
		rest = append(rest, o)
	}
	if found == nil {
		return nil, false
	}
	lvl.orders.Clear()
	for _, o := range rest {
		lvl.orders.PushBack(o)
	}
	return found, true
}
