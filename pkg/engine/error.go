package engine

import "errors"

var (
	ErrUnknownMarket  = errors.New("engine: unknown market")
	ErrUnknownOrder   = errors.New("engine: unknown order")
	ErrMalformedInput = errors.New("engine: malformed input")
	ErrDuplicateOrder = errors.New("engine: duplicate order id")
)
