package engine

import (
	"fmt"

	"github.com/spotforge/matchengine/pkg/decimal"
	"github.com/spotforge/matchengine/pkg/orderbook"
)

// Rule is a pre-trade check run against an incoming order before funds are
// locked. The engine runs every registered rule in order and fails fast on
// the first violation, mirroring a risk-rule chain.
type Rule interface {
	Check(cmd *CreateOrderCommand, ob *orderbook.OrderBook) error
}

// Whether the market exists is checked by applyCreateOrder itself (it needs
// registry access the order book doesn't have) before any Rule runs.

// positivePriceRule rejects non-positive prices.
type positivePriceRule struct{}

func (positivePriceRule) Check(cmd *CreateOrderCommand, _ *orderbook.OrderBook) error {
	if cmd.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", ErrMalformedInput)
	}
	return nil
}

// positiveQuantityRule rejects non-positive quantities.
type positiveQuantityRule struct{}

func (positiveQuantityRule) Check(cmd *CreateOrderCommand, _ *orderbook.OrderBook) error {
	if cmd.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive", ErrMalformedInput)
	}
	return nil
}

// sideRule rejects anything other than buy/sell.
type sideRule struct{}

func (sideRule) Check(cmd *CreateOrderCommand, _ *orderbook.OrderBook) error {
	if cmd.Side != string(orderbook.Buy) && cmd.Side != string(orderbook.Sell) &&
		cmd.Side != "buy" && cmd.Side != "sell" {
		return fmt.Errorf("%w: side must be buy or sell", ErrMalformedInput)
	}
	return nil
}

// defaultRules is the chain run on every CREATE_ORDER command, in order.
func defaultRules() []Rule {
	return []Rule{
		sideRule{},
		positivePriceRule{},
		positiveQuantityRule{},
	}
}
