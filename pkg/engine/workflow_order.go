package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spotforge/matchengine/pkg/decimal"
	"github.com/spotforge/matchengine/pkg/logging"
	"github.com/spotforge/matchengine/pkg/orderbook"
)

func rejectedResult(orderID string, executed, remaining decimal.Decimal, reason string, code RejectionCode) Result {
	return Result{
		Kind: ResultOrderRejected,
		OrderRejected: &OrderRejectedResult{
			OrderID:      orderID,
			ExecutedQty:  executed,
			RemainingQty: remaining,
			Reason:       reason,
			Code:         code,
		},
	}
}

// applyCreateOrder runs validate -> lock -> match -> settle -> emit for a
// single incoming limit order, including the self-trade-prevention path
// that may cancel resting orders before the reject/accept decision.
func (e *Engine) applyCreateOrder(ctx context.Context, log *logging.Logger, cmd *CreateOrderCommand) Result {
	if cmd == nil {
		return rejectedResult("", decimal.Zero, decimal.Zero, "malformed command", RejectionOrderFailed)
	}

	orderID := cmd.OrderID
	if orderID == "" {
		orderID = newOrderID()
	}
	log.Debug(ctx, "processing create_order", zap.String("order_id", orderID), zap.String("market", cmd.Market))

	if e.hasSeen(orderID) {
		log.Warn(ctx, "duplicate order id rejected", zap.String("order_id", orderID))
		return rejectedResult(orderID, decimal.Zero, cmd.Quantity, ErrDuplicateOrder.Error(), RejectionOrderFailed)
	}

	ob, ok := e.registry.Get(cmd.Market)
	if !ok {
		log.Warn(ctx, "unknown market", zap.String("market", cmd.Market))
		return rejectedResult(orderID, decimal.Zero, cmd.Quantity, ErrUnknownMarket.Error(), RejectionOrderFailed)
	}

	for _, rule := range e.rules {
		if err := rule.Check(cmd, ob); err != nil {
			log.Warn(ctx, "order rejected by validation rule", zap.String("order_id", orderID), zap.Error(err))
			return rejectedResult(orderID, decimal.Zero, cmd.Quantity, err.Error(), RejectionOrderFailed)
		}
	}

	side := orderbook.Buy
	if cmd.Side == string(orderbook.Sell) || cmd.Side == "sell" {
		side = orderbook.Sell
	}

	if err := e.ledger.Lock(cmd.UserID, side, ob.BaseAsset, ob.QuoteAsset, cmd.Price, cmd.Quantity); err != nil {
		log.Warn(ctx, "order rejected: insufficient funds", zap.String("order_id", orderID), zap.Error(err))
		return rejectedResult(orderID, decimal.Zero, cmd.Quantity, err.Error(), RejectionOrderFailed)
	}

	order := &orderbook.Order{
		OrderID:  orderID,
		UserID:   cmd.UserID,
		Market:   cmd.Market,
		Side:     side,
		Price:    cmd.Price,
		Quantity: cmd.Quantity,
	}

	addResult := ob.AddOrder(order)

	counterSide := orderbook.Sell
	if side == orderbook.Sell {
		counterSide = orderbook.Buy
	}

	if addResult.Status == orderbook.Rejected {
		e.ledger.Unlock(cmd.UserID, side, ob.BaseAsset, ob.QuoteAsset, cmd.Price, cmd.Quantity)

		var touched []depthTouch
		for _, cancelledOrder := range addResult.CancelledOrders {
			e.unwindCancelledOrder(ob, cancelledOrder)
			touched = append(touched, depthTouch{side: cancelledOrder.Side, price: cancelledOrder.Price})
		}
		e.emitDepthDelta(ob, touched)

		code := RejectionOrderFailed
		if addResult.RejectionReason == orderbook.RejectionSelfTrade {
			code = RejectionSelfTrade
		}
		log.Info(ctx, "order rejected by matching engine",
			zap.String("order_id", orderID), zap.String("reason", string(addResult.RejectionReason)))
		return rejectedResult(orderID, decimal.Zero, cmd.Quantity, "order rejected by matching engine", code)
	}

	e.markSeen(orderID)

	touched := make([]depthTouch, 0, len(addResult.Fills)+len(addResult.CancelledOrders)+1)
	for _, f := range addResult.Fills {
		touched = append(touched, depthTouch{side: counterSide, price: f.Price})
	}
	for _, cancelledOrder := range addResult.CancelledOrders {
		e.unwindCancelledOrder(ob, cancelledOrder)
		touched = append(touched, depthTouch{side: cancelledOrder.Side, price: cancelledOrder.Price})
	}

	e.settleAndEmitFills(ob, order, side, addResult.Fills)

	remaining := cmd.Quantity.Sub(addResult.ExecutedQty)
	if remaining.IsPositive() {
		touched = append(touched, depthTouch{side: side, price: cmd.Price})
	}
	e.emitDepthDelta(ob, touched)

	e.emitter.OrderUpdate(OrderUpdateRecord{
		OrderID:     orderID,
		ExecutedQty: addResult.ExecutedQty,
		Market:      cmd.Market,
		Price:       cmd.Price,
		Quantity:    cmd.Quantity,
		Side:        cmd.Side,
		UserID:      cmd.UserID,
		Status:      string(addResult.Status),
	})

	log.Info(ctx, "order placed", zap.String("order_id", orderID), zap.String("status", string(addResult.Status)))

	fills := make([]ResultFill, 0, len(addResult.Fills))
	for _, f := range addResult.Fills {
		fills = append(fills, ResultFill{Price: f.Price, Qty: f.Qty, TradeID: f.TradeID})
	}

	return Result{
		Kind: ResultOrderPlaced,
		OrderPlaced: &OrderPlacedResult{
			OrderID:     orderID,
			ExecutedQty: addResult.ExecutedQty,
			Fills:       fills,
		},
	}
}

// unwindCancelledOrder reverses the lock held by an order the matching
// engine cancelled as a side effect of self-trade prevention, and announces
// the cancellation the same way an explicit CANCEL_ORDER would. It does not
// itself emit the depth delta — callers batch that across every price the
// surrounding command touched.
func (e *Engine) unwindCancelledOrder(ob *orderbook.OrderBook, cancelled orderbook.Order) {
	remaining := cancelled.Remaining()
	e.ledger.Unlock(cancelled.UserID, cancelled.Side, ob.BaseAsset, ob.QuoteAsset, cancelled.Price, remaining)

	e.emitter.OrderUpdate(OrderUpdateRecord{
		OrderID:     cancelled.OrderID,
		ExecutedQty: cancelled.Filled,
		Market:      ob.Market,
		Price:       cancelled.Price,
		Quantity:    cancelled.Quantity,
		Side:        string(cancelled.Side),
		UserID:      cancelled.UserID,
		Status:      "CANCELLED",
	})
}

func (e *Engine) settleAndEmitFills(ob *orderbook.OrderBook, taker *orderbook.Order, takerSide orderbook.Side, fills []orderbook.Fill) {
	now := time.Now()
	for _, f := range fills {
		e.ledger.SettleFill(taker.UserID, f.MakerUserID, takerSide, ob.BaseAsset, ob.QuoteAsset, f.Qty, f.Price)

		isBuyerMaker := takerSide == orderbook.Sell
		e.emitter.Trade(TradeEvent{
			Market:       ob.Market,
			TradeID:      f.TradeID,
			IsBuyerMaker: isBuyerMaker,
			Price:        f.Price,
			Qty:          f.Qty,
		})

		e.emitter.TradeAdded(TradeAddedRecord{
			ID:            f.TradeID,
			Market:        ob.Market,
			Price:         f.Price,
			Quantity:      f.Qty,
			QuoteQuantity: f.Price.Mul(f.Qty),
			IsBuyerMaker:  isBuyerMaker,
			Timestamp:     now,
			BuyerUserID:   buyerOf(takerSide, taker.UserID, f.MakerUserID),
			SellerUserID:  sellerOf(takerSide, taker.UserID, f.MakerUserID),
		})

		takerRole := UserTradeEvent{
			UserID:    taker.UserID,
			TradeID:   f.TradeID,
			Market:    ob.Market,
			Price:     f.Price,
			Qty:       f.Qty,
			Side:      string(takerSide),
			Role:      RoleTaker,
			Timestamp: now,
		}
		e.emitter.UserTrade(takerRole)

		makerSide := orderbook.Buy
		if takerSide == orderbook.Buy {
			makerSide = orderbook.Sell
		}
		e.emitter.UserTrade(UserTradeEvent{
			UserID:    f.MakerUserID,
			TradeID:   f.TradeID,
			Market:    ob.Market,
			Price:     f.Price,
			Qty:       f.Qty,
			Side:      string(makerSide),
			Role:      RoleMaker,
			Timestamp: now,
		})

		e.emitter.OrderUpdate(OrderUpdateRecord{
			OrderID:     f.MakerOrderID,
			ExecutedQty: f.Qty,
			Market:      ob.Market,
			Price:       f.Price,
			Quantity:    f.Qty,
			Side:        string(makerSide),
			UserID:      f.MakerUserID,
			Status:      "FILLED",
		})
	}
}

func buyerOf(takerSide orderbook.Side, takerUser, makerUser string) string {
	if takerSide == orderbook.Buy {
		return takerUser
	}
	return makerUser
}

func sellerOf(takerSide orderbook.Side, takerUser, makerUser string) string {
	if takerSide == orderbook.Sell {
		return takerUser
	}
	return makerUser
}

// depthTouch records one (side, price) pair that matching or cancellation
// may have changed the aggregate at.
type depthTouch struct {
	side  orderbook.Side
	price decimal.Decimal
}

// emitDepthDelta looks up the current aggregate at each touched price and
// publishes it, deduplicated. A price whose aggregate dropped to zero comes
// back from DepthAt as decimal.Zero, which is exactly the removal marker
// DepthDelta's contract promises — unlike Depth(), which only reports
// non-zero levels and would silently drop a removed price instead of
// announcing it.
func (e *Engine) emitDepthDelta(ob *orderbook.OrderBook, touched []depthTouch) {
	if len(touched) == 0 {
		return
	}

	delta := DepthDelta{Market: ob.Market}
	seen := make(map[string]struct{}, len(touched))
	for _, t := range touched {
		key := string(t.side) + "@" + t.price.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		lvl := DepthLevelDelta{Price: t.price, Qty: ob.DepthAt(t.side, t.price)}
		if t.side == orderbook.Buy {
			delta.Bids = append(delta.Bids, lvl)
		} else {
			delta.Asks = append(delta.Asks, lvl)
		}
	}
	e.emitter.Depth(delta)
}

// applyCancelOrder locates the order across the named market, removes it if
// present, and unlocks its remaining reserved funds. Cancelling an unknown
// or already-settled order is a no-op success, not an error: the caller
// cannot distinguish "already filled" from "never existed" and shouldn't
// need to.
func (e *Engine) applyCancelOrder(ctx context.Context, log *logging.Logger, cmd *CancelOrderCommand) Result {
	if cmd == nil {
		return Result{Kind: ResultOrderCancelled, OrderCancelled: &OrderCancelledResult{}}
	}
	log.Debug(ctx, "processing cancel_order", zap.String("order_id", cmd.OrderID), zap.String("market", cmd.Market))

	ob, ok := e.registry.Get(cmd.Market)
	if !ok {
		log.Warn(ctx, "cancel_order: unknown market", zap.String("market", cmd.Market))
		return Result{Kind: ResultOrderCancelled, OrderCancelled: &OrderCancelledResult{OrderID: cmd.OrderID}}
	}

	order, ok := ob.Cancel(cmd.OrderID)
	if !ok {
		log.Debug(ctx, "cancel_order: no-op, order not found", zap.String("order_id", cmd.OrderID))
		return Result{Kind: ResultOrderCancelled, OrderCancelled: &OrderCancelledResult{OrderID: cmd.OrderID}}
	}

	remaining := order.Remaining()
	e.ledger.Unlock(order.UserID, order.Side, ob.BaseAsset, ob.QuoteAsset, order.Price, remaining)

	e.emitter.OrderUpdate(OrderUpdateRecord{
		OrderID:     order.OrderID,
		ExecutedQty: order.Filled,
		Market:      ob.Market,
		Price:       order.Price,
		Quantity:    order.Quantity,
		Side:        string(order.Side),
		UserID:      order.UserID,
		Status:      "CANCELLED",
	})

	e.emitDepthDelta(ob, []depthTouch{{side: order.Side, price: order.Price}})

	log.Info(ctx, "order cancelled", zap.String("order_id", order.OrderID))

	return Result{
		Kind: ResultOrderCancelled,
		OrderCancelled: &OrderCancelledResult{
			OrderID:      order.OrderID,
			ExecutedQty:  order.Filled,
			RemainingQty: remaining,
		},
	}
}
