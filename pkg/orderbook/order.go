package orderbook

import (
	"github.com/spotforge/matchengine/pkg/decimal"
)

// Side is which side of the book an order rests on.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// STPMode selects how self-trade prevention resolves a crossing conflict
// between a taker and its own resting orders.
type STPMode string

const (
	// CancelNewest rejects the incoming taker outright.
	CancelNewest STPMode = "CANCEL_NEWEST"
	// CancelOldest removes the conflicting resting orders and lets the
	// taker continue matching against the rest of the book.
	CancelOldest STPMode = "CANCEL_OLDEST"
	// CancelBoth removes the conflicting resting orders and rejects the
	// incoming taker as well.
	CancelBoth STPMode = "CANCEL_BOTH"
)

// Order is a single resting or incoming limit order. Orders are mutated in
// place by matching (Filled increments) and removed on cancel or full fill.
type Order struct {
	OrderID  string
	UserID   string
	Market   string
	Side     Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Filled   decimal.Decimal
}

// Remaining returns the order's unfilled quantity.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// Copy returns a value copy, used when handing an order snapshot out of the
// book (open_orders, snapshot) so callers can't mutate book state.
func (o *Order) Copy() Order {
	return *o
}
