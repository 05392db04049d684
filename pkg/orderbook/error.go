package orderbook

import "errors"

var (
	errOrderNotFound     = errors.New("orderbook: order not found")
	errInvalidOrderPrice = errors.New("orderbook: invalid order price")
	errInvalidQuantity   = errors.New("orderbook: invalid order quantity")
)
