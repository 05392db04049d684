package orderbook

import "github.com/spotforge/matchengine/pkg/decimal"

// Snapshot is a plain record of an order book's state, sufficient to
// restore matching behavior exactly. Depth maps are derived, not stored.
type Snapshot struct {
	Market      string          `json:"market"`
	BaseAsset   string          `json:"base_asset"`
	QuoteAsset  string          `json:"quote_asset"`
	STPMode     STPMode         `json:"stp_mode"`
	Bids        []Order         `json:"bids"` // price-descending, time-ascending within price
	Asks        []Order         `json:"asks"` // price-ascending, time-ascending within price
	LastTradeID int64           `json:"last_trade_id"`
	LastPrice   decimal.Decimal `json:"last_price"`
	HasLastPrice bool           `json:"has_last_price"`
}

// Snapshot emits the book's current state as a plain record.
func (ob *OrderBook) Snapshot() Snapshot {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	s := Snapshot{
		Market:       ob.Market,
		BaseAsset:    ob.BaseAsset,
		QuoteAsset:   ob.QuoteAsset,
		STPMode:      ob.STPMode,
		LastTradeID:  ob.lastTradeID,
		LastPrice:    ob.lastPrice,
		HasLastPrice: ob.hasLastPrice,
	}
	for _, lvl := range ob.bids.levels {
		n := lvl.orders.Len()
		for i := 0; i < n; i++ {
			s.Bids = append(s.Bids, lvl.orders.At(i).Copy())
		}
	}
	for _, lvl := range ob.asks.levels {
		n := lvl.orders.Len()
		for i := 0; i < n; i++ {
			s.Asks = append(s.Asks, lvl.orders.At(i).Copy())
		}
	}
	return s
}

// Restore rebuilds a book from a snapshot, one pass over each sequence,
// rebuilding depth caches and the by-id index as it goes.
func Restore(s Snapshot) *OrderBook {
	ob := New(s.Market, s.BaseAsset, s.QuoteAsset, s.STPMode)
	ob.lastTradeID = s.LastTradeID
	ob.lastPrice = s.LastPrice
	ob.hasLastPrice = s.HasLastPrice

	for i := range s.Bids {
		o := s.Bids[i]
		lvl := ob.bids.getOrCreate(o.Price)
		lvl.orders.PushBack(&o)
		ob.addDepth(Buy, o.Price, o.Remaining())
		ob.ordersByID[o.OrderID] = orderLocation{side: Buy, price: o.Price}
	}
	for i := range s.Asks {
		o := s.Asks[i]
		lvl := ob.asks.getOrCreate(o.Price)
		lvl.orders.PushBack(&o)
		ob.addDepth(Sell, o.Price, o.Remaining())
		ob.ordersByID[o.OrderID] = orderLocation{side: Sell, price: o.Price}
	}
	return ob
}
