package orderbook

import "github.com/spotforge/matchengine/pkg/decimal"

// AddOrder runs the full add_order workflow: self-trade pre-check, match
// against the opposite side, then rest any residue on the book. order.Filled
// must be zero. An order with a non-positive price or quantity, or whose id
// is already resting on this book, is returned Rejected with no rejection
// reason and the book untouched.
func (ob *OrderBook) AddOrder(order *Order) AddOrderResult {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if order.Price.LessThanOrEqual(decimal.Zero) || order.Quantity.LessThanOrEqual(decimal.Zero) {
		return AddOrderResult{Status: Rejected}
	}
	if _, exists := ob.ordersByID[order.OrderID]; exists {
		return AddOrderResult{Status: Rejected}
	}

	mine, counter := ob.sideLevels(order.Side)

	var cancelled []Order
	conflicts := ob.stpConflicts(order, counter)
	if len(conflicts) > 0 {
		switch ob.STPMode {
		case CancelNewest:
			return AddOrderResult{Status: Rejected, RejectionReason: RejectionSelfTrade}
		case CancelOldest:
			for _, id := range conflicts {
				if removed, ok := ob.cancelLocked(id); ok {
					cancelled = append(cancelled, removed)
				}
			}
		case CancelBoth:
			for _, id := range conflicts {
				if removed, ok := ob.cancelLocked(id); ok {
					cancelled = append(cancelled, removed)
				}
			}
			return AddOrderResult{
				Status:          Rejected,
				RejectionReason: RejectionSelfTrade,
				CancelledOrders: cancelled,
			}
		}
	}

	fills := ob.matchLocked(order, counter)

	var result AddOrderResult
	result.Fills = fills
	result.CancelledOrders = cancelled
	for _, f := range fills {
		result.ExecutedQty = result.ExecutedQty.Add(f.Qty)
	}

	if order.Remaining().IsPositive() {
		ob.restLocked(order, mine)
		if len(fills) > 0 {
			result.Status = PartiallyFilled
		} else {
			result.Status = Accepted
		}
	} else {
		result.Status = Accepted
	}

	if len(fills) > 0 {
		last := fills[len(fills)-1]
		ob.lastPrice = last.Price
		ob.hasLastPrice = true
	}

	return result
}

// stpConflicts walks the opposite side from the best price until the first
// price that does not cross order.Price, collecting resting orders owned
// by the same user.
func (ob *OrderBook) stpConflicts(order *Order, counter *priceLevels) []string {
	var conflicts []string
	for _, lvl := range counter.levels {
		if !crosses(order.Side, order.Price, lvl.price) {
			break
		}
		n := lvl.orders.Len()
		for i := 0; i < n; i++ {
			o := lvl.orders.At(i)
			if o.UserID == order.UserID {
				conflicts = append(conflicts, o.OrderID)
			}
		}
	}
	return conflicts
}

// crosses reports whether a taker at takerPrice on side would match a
// resting order at restingPrice.
func crosses(side Side, takerPrice, restingPrice decimal.Decimal) bool {
	if side == Buy {
		return takerPrice.GreaterThanOrEqual(restingPrice)
	}
	return takerPrice.LessThanOrEqual(restingPrice)
}

// matchLocked walks counter from the best price, filling the taker against
// resting makers in price-then-time order, until the taker is exhausted or
// the next resting order no longer crosses.
func (ob *OrderBook) matchLocked(order *Order, counter *priceLevels) []Fill {
	var fills []Fill
	counterSide := Sell
	if order.Side == Sell {
		counterSide = Buy
	}

	for order.Remaining().IsPositive() {
		lvl := counter.Best()
		if lvl == nil || !crosses(order.Side, order.Price, lvl.price) {
			break
		}
		if lvl.orders.Len() == 0 {
			counter.removeIfEmpty(lvl.price)
			continue
		}

		maker := lvl.orders.Front()
		matchQty := order.Remaining().Min(maker.Remaining())

		ob.lastTradeID++
		fill := Fill{
			Price:        lvl.price,
			Qty:          matchQty,
			TradeID:      ob.lastTradeID,
			MakerOrderID: maker.OrderID,
			MakerUserID:  maker.UserID,
		}
		fills = append(fills, fill)

		order.Filled = order.Filled.Add(matchQty)
		maker.Filled = maker.Filled.Add(matchQty)
		ob.subDepth(counterSide, lvl.price, matchQty)

		if maker.Remaining().IsZero() {
			lvl.orders.PopFront()
			delete(ob.ordersByID, maker.OrderID)
			counter.removeIfEmpty(lvl.price)
		}
	}

	return fills
}

// restLocked inserts the order's residue into its side at the correct
// price-time position and records it in the by-id index.
func (ob *OrderBook) restLocked(order *Order, mine *priceLevels) {
	lvl := mine.getOrCreate(order.Price)
	lvl.orders.PushBack(order)
	ob.addDepth(order.Side, order.Price, order.Remaining())
	ob.ordersByID[order.OrderID] = orderLocation{side: order.Side, price: order.Price}
}
