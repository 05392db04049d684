// Package orderbook implements a single market's price-time-ordered limit
// order book: matching, cancellation, depth aggregation, and self-trade
// prevention. It holds no knowledge of users' balances — settlement is the
// caller's responsibility once Fills are produced.
package orderbook

import (
	"sync"

	"github.com/spotforge/matchengine/pkg/decimal"
)

// OrderBook holds one market's two-sided book.
type OrderBook struct {
	mu sync.Mutex

	Market     string
	BaseAsset  string
	QuoteAsset string
	STPMode    STPMode

	bids *priceLevels
	asks *priceLevels

	bidDepth map[string]decimal.Decimal // price.String() -> aggregate remaining qty
	askDepth map[string]decimal.Decimal

	ordersByID map[string]orderLocation

	lastTradeID  int64
	lastPrice    decimal.Decimal
	hasLastPrice bool
}

type orderLocation struct {
	side  Side
	price decimal.Decimal
}

// New creates an empty order book for a market.
func New(market, baseAsset, quoteAsset string, stpMode STPMode) *OrderBook {
	if stpMode == "" {
		stpMode = CancelNewest
	}
	return &OrderBook{
		Market:     market,
		BaseAsset:  baseAsset,
		QuoteAsset: quoteAsset,
		STPMode:    stpMode,
		bids:       newBidLevels(),
		asks:       newAskLevels(),
		bidDepth:   make(map[string]decimal.Decimal),
		askDepth:   make(map[string]decimal.Decimal),
		ordersByID: make(map[string]orderLocation),
	}
}

func (ob *OrderBook) sideLevels(side Side) (mine, counter *priceLevels) {
	if side == Buy {
		return ob.bids, ob.asks
	}
	return ob.asks, ob.bids
}

func (ob *OrderBook) depthMap(side Side) map[string]decimal.Decimal {
	if side == Buy {
		return ob.bidDepth
	}
	return ob.askDepth
}

// adjustDepth applies a signed delta (positive on insert, negative on
// fill/cancel) to the aggregate at price, removing the key once it reaches
// zero.
func (ob *OrderBook) adjustDepth(side Side, price, delta decimal.Decimal) {
	m := ob.depthMap(side)
	key := price.String()
	cur, ok := m[key]
	if !ok {
		cur = decimal.Zero
	}
	next := cur.Add(delta)
	if next.IsZero() {
		delete(m, key)
		return
	}
	m[key] = next
}

func (ob *OrderBook) addDepth(side Side, price, qty decimal.Decimal) {
	ob.adjustDepth(side, price, qty)
}

func (ob *OrderBook) subDepth(side Side, price, qty decimal.Decimal) {
	ob.adjustDepth(side, price, decimal.Zero.Sub(qty))
}

// DepthLevel is one aggregated price level.
type DepthLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Depth returns the current aggregate depth, bids descending and asks
// ascending, excluding any price with zero remaining quantity.
func (ob *OrderBook) Depth() (bids, asks []DepthLevel) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	for _, lvl := range ob.bids.levels {
		if qty, ok := ob.bidDepth[lvl.price.String()]; ok {
			bids = append(bids, DepthLevel{Price: lvl.price, Qty: qty})
		}
	}
	for _, lvl := range ob.asks.levels {
		if qty, ok := ob.askDepth[lvl.price.String()]; ok {
			asks = append(asks, DepthLevel{Price: lvl.price, Qty: qty})
		}
	}
	return bids, asks
}

// DepthAt returns the current aggregate remaining quantity resting at price
// on side, or decimal.Zero if nothing rests there. Callers use the zero
// return as the depth-removed marker for a price that was fully consumed or
// cancelled away.
func (ob *OrderBook) DepthAt(side Side, price decimal.Decimal) decimal.Decimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	m := ob.depthMap(side)
	if qty, ok := m[price.String()]; ok {
		return qty
	}
	return decimal.Zero
}

// OpenOrders returns a snapshot copy of every resting order owned by userID.
func (ob *OrderBook) OpenOrders(userID string) []Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	var out []Order
	collect := func(pl *priceLevels) {
		for _, lvl := range pl.levels {
			n := lvl.orders.Len()
			for i := 0; i < n; i++ {
				o := lvl.orders.At(i)
				if o.UserID == userID {
					out = append(out, o.Copy())
				}
			}
		}
	}
	collect(ob.bids)
	collect(ob.asks)
	return out
}

// Cancel removes a resting order by id, decrementing depth at its price by
// its remaining quantity. It returns a snapshot of the removed order and
// true if found; otherwise false, with no mutation.
func (ob *OrderBook) Cancel(orderID string) (Order, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return ob.cancelLocked(orderID)
}

func (ob *OrderBook) cancelLocked(orderID string) (Order, bool) {
	loc, ok := ob.ordersByID[orderID]
	if !ok {
		return Order{}, false
	}

	levels, _ := ob.sideLevels(loc.side)
	idx, found := levels.find(loc.price)
	if !found {
		delete(ob.ordersByID, orderID)
		return Order{}, false
	}
	lvl := levels.levels[idx]
	order, removed := removeFromLevel(lvl, orderID)
	if !removed {
		delete(ob.ordersByID, orderID)
		return Order{}, false
	}

	ob.subDepth(loc.side, loc.price, order.Remaining())
	levels.removeIfEmpty(loc.price)
	delete(ob.ordersByID, orderID)

	return order.Copy(), true
}


// LastTradeID returns the current monotonic trade-id counter value.
func (ob *OrderBook) LastTradeID() int64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.lastTradeID
}

// LastPrice returns the price of the most recent fill, if any has occurred.
func (ob *OrderBook) LastPrice() (decimal.Decimal, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.lastPrice, ob.hasLastPrice
}
