package engine

import (
	"time"

	"github.com/spotforge/matchengine/pkg/decimal"
)

// DepthDelta is published on depth@<market>. Qty == 0 signals that a price
// level was removed entirely.
type DepthDelta struct {
	Market string
	Bids   []DepthLevelDelta
	Asks   []DepthLevelDelta
}

type DepthLevelDelta struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// TradeEvent is published on trade@<market>.
type TradeEvent struct {
	Market      string
	TradeID     int64
	IsBuyerMaker bool
	Price       decimal.Decimal
	Qty         decimal.Decimal
}

// UserTradeRole distinguishes the two participants of a fill from a single
// user's point of view.
type UserTradeRole string

const (
	RoleMaker UserTradeRole = "maker"
	RoleTaker UserTradeRole = "taker"
)

// UserTradeEvent is published on userTrades@<user_id>.
type UserTradeEvent struct {
	UserID    string
	TradeID   int64
	Market    string
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Side      string
	Role      UserTradeRole
	Timestamp time.Time
}

// TradeAddedRecord is published on the persistence channel's trades topic.
type TradeAddedRecord struct {
	ID             int64
	Market         string
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	QuoteQuantity  decimal.Decimal
	IsBuyerMaker   bool
	Timestamp      time.Time
	BuyerUserID    string
	SellerUserID   string
}

// OrderUpdateRecord is published on the persistence channel's orders topic,
// once per maker fill, once for the taker's cumulative execution per
// command, and once for every cancelled order (explicit or by self-trade
// prevention).
type OrderUpdateRecord struct {
	OrderID     string
	ExecutedQty decimal.Decimal
	Market      string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Side        string
	UserID      string
	Status      string
}

// Emitter is the dispatcher's sink for every outbound message described in
// the external interfaces: the per-client result, and the broadcast/
// persistence event channels. Transport (Redis pub/sub, Kafka, etc.) is
// wired in behind this interface — the dispatcher itself never imports a
// transport package.
type Emitter interface {
	Result(clientID string, result Result)
	Depth(delta DepthDelta)
	Trade(event TradeEvent)
	UserTrade(event UserTradeEvent)
	TradeAdded(record TradeAddedRecord)
	OrderUpdate(record OrderUpdateRecord)
}

// NopEmitter discards every emission; useful in tests that only assert on
// the Result return value.
type NopEmitter struct{}

func (NopEmitter) Result(string, Result)            {}
func (NopEmitter) Depth(DepthDelta)                 {}
func (NopEmitter) Trade(TradeEvent)                 {}
func (NopEmitter) UserTrade(UserTradeEvent)         {}
func (NopEmitter) TradeAdded(TradeAddedRecord)      {}
func (NopEmitter) OrderUpdate(OrderUpdateRecord)    {}
