package engine

import (
	"testing"

	"github.com/spotforge/matchengine/pkg/decimal"
	"github.com/spotforge/matchengine/pkg/ledger"
	"github.com/spotforge/matchengine/pkg/orderbook"
)

// recordingEmitter captures every emission for assertions, same role as a
// test spy used in place of the real transport.
type recordingEmitter struct {
	results    []Result
	depths     []DepthDelta
	trades     []TradeEvent
	userTrades []UserTradeEvent
	tradeRows  []TradeAddedRecord
	orderRows  []OrderUpdateRecord
}

func (e *recordingEmitter) Result(clientID string, r Result)   { e.results = append(e.results, r) }
func (e *recordingEmitter) Depth(d DepthDelta)                  { e.depths = append(e.depths, d) }
func (e *recordingEmitter) Trade(t TradeEvent)                  { e.trades = append(e.trades, t) }
func (e *recordingEmitter) UserTrade(u UserTradeEvent)          { e.userTrades = append(e.userTrades, u) }
func (e *recordingEmitter) TradeAdded(r TradeAddedRecord)       { e.tradeRows = append(e.tradeRows, r) }
func (e *recordingEmitter) OrderUpdate(r OrderUpdateRecord)     { e.orderRows = append(e.orderRows, r) }

func d(s string) decimal.Decimal { return decimal.MustParse(s) }

func newTestEngine(stpMode orderbook.STPMode) (*Engine, *recordingEmitter) {
	registry := orderbook.NewRegistry()
	registry.Add(orderbook.New("TATA_INR", "TATA", "INR", stpMode))
	emitter := &recordingEmitter{}
	e := New(registry, ledger.New(), emitter, nil)
	return e, emitter
}

func fundUser(e *Engine, user, asset, amount string) {
	e.ApplyCommand(Command{
		ClientID: user,
		Kind:     KindOnRamp,
		OnRamp:   &OnRampCommand{UserID: user, Asset: asset, Amount: d(amount)},
	})
}

func createOrder(e *Engine, orderID, user, side, price, qty string) Result {
	return e.ApplyCommand(Command{
		ClientID: user,
		Kind:     KindCreateOrder,
		CreateOrder: &CreateOrderCommand{
			OrderID:  orderID,
			UserID:   user,
			Market:   "TATA_INR",
			Side:     side,
			Price:    d(price),
			Quantity: d(qty),
		},
	})
}

func TestCreateOrderFullFillSettlesBothSides(t *testing.T) {
	e, emitter := newTestEngine(orderbook.CancelNewest)
	fundUser(e, "U2", "TATA", "10")
	fundUser(e, "U1", "INR", "1000")

	sellRes := createOrder(e, "S1", "U2", "sell", "100", "10")
	if sellRes.Kind != ResultOrderPlaced {
		t.Fatalf("expected resting sell to be placed, got %+v", sellRes)
	}

	buyRes := createOrder(e, "B1", "U1", "buy", "100", "10")
	if buyRes.Kind != ResultOrderPlaced || len(buyRes.OrderPlaced.Fills) != 1 {
		t.Fatalf("expected single fill, got %+v", buyRes)
	}

	takerBalances := e.Ledger().Get("U1")
	if !takerBalances["TATA"].Available.Equal(d("10")) {
		t.Fatalf("expected taker to receive 10 TATA, got %+v", takerBalances)
	}
	if !takerBalances["INR"].Locked.IsZero() {
		t.Fatalf("expected taker's INR lock fully consumed, got %+v", takerBalances)
	}

	makerBalances := e.Ledger().Get("U2")
	if !makerBalances["INR"].Available.Equal(d("1000")) {
		t.Fatalf("expected maker to receive 1000 INR, got %+v", makerBalances)
	}
	if !makerBalances["TATA"].Locked.IsZero() {
		t.Fatalf("expected maker's TATA lock fully consumed, got %+v", makerBalances)
	}

	if len(emitter.trades) != 1 || len(emitter.tradeRows) != 1 {
		t.Fatalf("expected one trade event and one persistence row, got %d/%d", len(emitter.trades), len(emitter.tradeRows))
	}
	if len(emitter.userTrades) != 2 {
		t.Fatalf("expected two user-trade events (maker+taker), got %d", len(emitter.userTrades))
	}
}

func TestCreateOrderInsufficientFundsRejectsWithoutTouchingBook(t *testing.T) {
	e, _ := newTestEngine(orderbook.CancelNewest)

	res := createOrder(e, "B1", "U1", "buy", "100", "10")
	if res.Kind != ResultOrderRejected {
		t.Fatalf("expected rejection for unfunded buyer, got %+v", res)
	}
	if res.OrderRejected.Code != RejectionOrderFailed {
		t.Fatalf("expected ORDER_FAILED code, got %s", res.OrderRejected.Code)
	}

	ob, _ := e.Registry().Get("TATA_INR")
	bids, _ := ob.Depth()
	if len(bids) != 0 {
		t.Fatalf("expected no resting order after rejection, got %+v", bids)
	}
}

func TestCreateOrderDuplicateOrderIDRejected(t *testing.T) {
	e, _ := newTestEngine(orderbook.CancelNewest)
	fundUser(e, "U1", "INR", "1000")

	first := createOrder(e, "B1", "U1", "buy", "100", "5")
	if first.Kind != ResultOrderPlaced {
		t.Fatalf("expected first order placed, got %+v", first)
	}

	second := createOrder(e, "B1", "U1", "buy", "100", "5")
	if second.Kind != ResultOrderRejected {
		t.Fatalf("expected duplicate order id rejected, got %+v", second)
	}
}

func TestCreateOrderSelfTradeCancelNewestRejectsAndUnlocksFunds(t *testing.T) {
	e, _ := newTestEngine(orderbook.CancelNewest)
	fundUser(e, "U1", "TATA", "5")
	fundUser(e, "U1", "INR", "1000")

	sellRes := createOrder(e, "S1", "U1", "sell", "100", "5")
	if sellRes.Kind != ResultOrderPlaced {
		t.Fatalf("expected resting sell placed, got %+v", sellRes)
	}

	buyRes := createOrder(e, "B1", "U1", "buy", "100", "5")
	if buyRes.Kind != ResultOrderRejected || buyRes.OrderRejected.Code != RejectionSelfTrade {
		t.Fatalf("expected SELF_TRADE rejection, got %+v", buyRes)
	}

	balances := e.Ledger().Get("U1")
	if !balances["INR"].Locked.IsZero() || !balances["INR"].Available.Equal(d("1000")) {
		t.Fatalf("expected rejected buy's INR lock fully released, got %+v", balances)
	}
}

func TestCreateOrderSelfTradeCancelOldestContinuesAgainstOtherMaker(t *testing.T) {
	e, emitter := newTestEngine(orderbook.CancelOldest)
	fundUser(e, "U1", "TATA", "5")
	fundUser(e, "U2", "TATA", "5")
	fundUser(e, "U1", "INR", "5000")

	createOrder(e, "S1", "U1", "sell", "1000", "5")
	createOrder(e, "S2", "U2", "sell", "1000", "5")

	buyRes := createOrder(e, "B1", "U1", "buy", "1000", "5")
	if buyRes.Kind != ResultOrderPlaced {
		t.Fatalf("expected buy accepted after oldest cancellation, got %+v", buyRes)
	}
	if len(buyRes.OrderPlaced.Fills) != 1 || buyRes.OrderPlaced.Fills[0].Qty.String() != "5" {
		t.Fatalf("expected single fill against U2's order, got %+v", buyRes.OrderPlaced.Fills)
	}

	var sawCancelledS1 bool
	for _, row := range emitter.orderRows {
		if row.OrderID == "S1" && row.Status == "CANCELLED" {
			sawCancelledS1 = true
		}
	}
	if !sawCancelledS1 {
		t.Fatalf("expected an ORDER_UPDATE(CANCELLED) for S1, got %+v", emitter.orderRows)
	}

	balances := e.Ledger().Get("U1")
	if !balances["TATA"].Locked.IsZero() {
		t.Fatalf("expected U1's TATA lock released after S1's self-trade cancellation, got %+v", balances)
	}
}

func TestCancelOrderUnlocksRemainingFunds(t *testing.T) {
	e, _ := newTestEngine(orderbook.CancelNewest)
	fundUser(e, "U1", "INR", "1000")

	createOrder(e, "B1", "U1", "buy", "100", "10")

	res := e.ApplyCommand(Command{
		ClientID: "U1",
		Kind:     KindCancelOrder,
		CancelOrder: &CancelOrderCommand{
			UserID:  "U1",
			Market:  "TATA_INR",
			OrderID: "B1",
		},
	})
	if res.Kind != ResultOrderCancelled || !res.OrderCancelled.RemainingQty.Equal(d("10")) {
		t.Fatalf("expected cancellation with remaining 10, got %+v", res)
	}

	balances := e.Ledger().Get("U1")
	if !balances["INR"].Locked.IsZero() || !balances["INR"].Available.Equal(d("1000")) {
		t.Fatalf("expected full INR unlock after cancel, got %+v", balances)
	}
}

func TestCancelUnknownOrderIsNoopResult(t *testing.T) {
	e, _ := newTestEngine(orderbook.CancelNewest)

	res := e.ApplyCommand(Command{
		Kind: KindCancelOrder,
		CancelOrder: &CancelOrderCommand{
			UserID:  "U1",
			Market:  "TATA_INR",
			OrderID: "nope",
		},
	})
	if res.Kind != ResultOrderCancelled {
		t.Fatalf("expected a no-op ORDER_CANCELLED result, got %+v", res)
	}
}

func TestOnRampAndWithdraw(t *testing.T) {
	e, _ := newTestEngine(orderbook.CancelNewest)

	onRamp := e.ApplyCommand(Command{
		Kind:   KindOnRamp,
		OnRamp: &OnRampCommand{UserID: "U1", Asset: "INR", Amount: d("500")},
	})
	if onRamp.Kind != ResultOnRampSuccess || !onRamp.OnRampSuccess.NewBalance.Equal(d("500")) {
		t.Fatalf("expected on-ramp success with balance 500, got %+v", onRamp)
	}

	withdraw := e.ApplyCommand(Command{
		Kind:     KindWithdraw,
		Withdraw: &WithdrawCommand{UserID: "U1", Asset: "INR", Amount: d("200"), TxID: "tx1"},
	})
	if withdraw.Kind != ResultWithdrawSuccess || !withdraw.WithdrawSuccess.NewBalance.Equal(d("300")) {
		t.Fatalf("expected withdraw success leaving 300, got %+v", withdraw)
	}

	overdraw := e.ApplyCommand(Command{
		Kind:     KindWithdraw,
		Withdraw: &WithdrawCommand{UserID: "U1", Asset: "INR", Amount: d("1000"), TxID: "tx2"},
	})
	if overdraw.Kind != ResultWithdrawFailed {
		t.Fatalf("expected withdraw failure on insufficient funds, got %+v", overdraw)
	}
}

func TestGetDepthAndOpenOrdersQueries(t *testing.T) {
	e, _ := newTestEngine(orderbook.CancelNewest)
	fundUser(e, "U1", "INR", "1000")
	createOrder(e, "B1", "U1", "buy", "100", "10")

	depth := e.ApplyCommand(Command{Kind: KindGetDepth, GetDepth: &GetDepthCommand{Market: "TATA_INR"}})
	if depth.Kind != ResultDepth || len(depth.Depth.Bids) != 1 {
		t.Fatalf("expected one bid level, got %+v", depth)
	}

	open := e.ApplyCommand(Command{Kind: KindGetOpenOrders, GetOpenOrders: &GetOpenOrdersCommand{UserID: "U1", Market: "TATA_INR"}})
	if open.Kind != ResultOpenOrders || len(open.OpenOrders.Orders) != 1 {
		t.Fatalf("expected one open order, got %+v", open)
	}
}

func TestFullFillEmitsZeroDepthMarkerForConsumedLevel(t *testing.T) {
	e, emitter := newTestEngine(orderbook.CancelNewest)
	fundUser(e, "U2", "TATA", "10")
	fundUser(e, "U1", "INR", "1000")

	createOrder(e, "S1", "U2", "sell", "100", "10")
	emitter.depths = nil // drop the resting sell's own insert-side delta

	createOrder(e, "B1", "U1", "buy", "100", "10")

	var sawZeroAsk bool
	for _, delta := range emitter.depths {
		for _, lvl := range delta.Asks {
			if lvl.Price.Equal(d("100")) && lvl.Qty.IsZero() {
				sawZeroAsk = true
			}
		}
	}
	if !sawZeroAsk {
		t.Fatalf("expected a zero-qty ask marker at 100 after full fill, got %+v", emitter.depths)
	}
}

func TestCancelLastOrderAtPriceEmitsZeroDepthMarker(t *testing.T) {
	e, emitter := newTestEngine(orderbook.CancelNewest)
	fundUser(e, "U1", "INR", "1000")

	createOrder(e, "B1", "U1", "buy", "100", "10")
	emitter.depths = nil

	e.ApplyCommand(Command{
		ClientID: "U1",
		Kind:     KindCancelOrder,
		CancelOrder: &CancelOrderCommand{
			UserID:  "U1",
			Market:  "TATA_INR",
			OrderID: "B1",
		},
	})

	if len(emitter.depths) != 1 {
		t.Fatalf("expected exactly one depth delta for the cancel, got %+v", emitter.depths)
	}
	delta := emitter.depths[0]
	if len(delta.Bids) != 1 || !delta.Bids[0].Price.Equal(d("100")) || !delta.Bids[0].Qty.IsZero() {
		t.Fatalf("expected a zero-qty bid marker at 100 after cancel, got %+v", delta)
	}
}

func TestSelfTradeCancelBothRejectionStillEmitsDepthDelta(t *testing.T) {
	e, emitter := newTestEngine(orderbook.CancelBoth)
	fundUser(e, "U1", "TATA", "5")
	fundUser(e, "U1", "INR", "1000")

	createOrder(e, "S1", "U1", "sell", "100", "5")
	emitter.depths = nil

	buyRes := createOrder(e, "B1", "U1", "buy", "100", "5")
	if buyRes.Kind != ResultOrderRejected || buyRes.OrderRejected.Code != RejectionSelfTrade {
		t.Fatalf("expected SELF_TRADE rejection under CancelBoth, got %+v", buyRes)
	}

	if len(emitter.depths) != 1 {
		t.Fatalf("expected the CancelBoth-triggered cancellation to still emit a depth delta, got %+v", emitter.depths)
	}
	delta := emitter.depths[0]
	if len(delta.Asks) != 1 || !delta.Asks[0].Price.Equal(d("100")) || !delta.Asks[0].Qty.IsZero() {
		t.Fatalf("expected a zero-qty ask marker at 100 after CancelBoth, got %+v", delta)
	}

	ob, _ := e.Registry().Get("TATA_INR")
	bids, asks := ob.Depth()
	if len(bids) != 0 || len(asks) != 0 {
		t.Fatalf("expected empty book after CancelBoth, got bids=%+v asks=%+v", bids, asks)
	}
}

func TestUnknownMarketRejectsCreateOrder(t *testing.T) {
	e, _ := newTestEngine(orderbook.CancelNewest)

	res := createOrder(e, "B1", "U1", "buy", "100", "10")
	_ = res // insufficient funds would also reject; use a market that doesn't exist below instead

	missingMarket := e.ApplyCommand(Command{
		Kind: KindCreateOrder,
		CreateOrder: &CreateOrderCommand{
			OrderID:  "B2",
			UserID:   "U1",
			Market:   "NOPE_INR",
			Side:     "buy",
			Price:    d("100"),
			Quantity: d("10"),
		},
	})
	if missingMarket.Kind != ResultOrderRejected || missingMarket.OrderRejected.Reason != ErrUnknownMarket.Error() {
		t.Fatalf("expected ErrUnknownMarket rejection, got %+v", missingMarket)
	}
}
