package orderbook

import "github.com/spotforge/matchengine/pkg/decimal"

// Fill is one match between the taker and a single resting maker. The
// price is always the maker's resting price, never the taker's, even when
// the taker would have improved on it.
type Fill struct {
	Price        decimal.Decimal
	Qty          decimal.Decimal
	TradeID      int64
	MakerOrderID string
	MakerUserID  string
}

// Status is the outcome of add_order.
type Status string

const (
	Accepted         Status = "ACCEPTED"
	PartiallyFilled  Status = "PARTIALLY_FILLED"
	Rejected         Status = "REJECTED"
)

// RejectionReason tags why add_order returned Rejected.
type RejectionReason string

const (
	RejectionNone      RejectionReason = ""
	RejectionSelfTrade RejectionReason = "SELF_TRADE"
)

// AddOrderResult is the outcome of matching one incoming order against the
// book.
type AddOrderResult struct {
	Status          Status
	ExecutedQty     decimal.Decimal
	Fills           []Fill
	RejectionReason RejectionReason
	CancelledOrders []Order
}
