package orderbook

import (
	"testing"

	"github.com/spotforge/matchengine/pkg/decimal"
)

func mustOrder(id, user string, side Side, price, qty string) *Order {
	return &Order{
		OrderID:  id,
		UserID:   user,
		Market:   "TATA_INR",
		Side:     side,
		Price:    decimal.MustParse(price),
		Quantity: decimal.MustParse(qty),
		Filled:   decimal.Zero,
	}
}

func TestFullFillAtMakerPrice(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)

	sell := mustOrder("S1", "U2", Sell, "100", "10")
	if r := ob.AddOrder(sell); r.Status != Accepted {
		t.Fatalf("expected ACCEPTED, got %s", r.Status)
	}

	buy := mustOrder("B1", "U1", Buy, "100", "10")
	r := ob.AddOrder(buy)
	if r.Status != Accepted {
		t.Fatalf("expected ACCEPTED (no residue), got %s", r.Status)
	}
	if len(r.Fills) != 1 || !r.Fills[0].Price.Equal(decimal.MustParse("100")) || !r.Fills[0].Qty.Equal(decimal.MustParse("10")) {
		t.Fatalf("unexpected fills: %+v", r.Fills)
	}

	bids, asks := ob.Depth()
	if len(bids) != 0 || len(asks) != 0 {
		t.Fatalf("expected empty book, got bids=%v asks=%v", bids, asks)
	}
}

func TestPartialFill(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)

	sell := mustOrder("S1", "U2", Sell, "100", "20")
	ob.AddOrder(sell)

	buy := mustOrder("B1", "U1", Buy, "100", "10")
	r := ob.AddOrder(buy)
	if r.Status != Accepted {
		t.Fatalf("expected ACCEPTED, got %s", r.Status)
	}
	if !r.ExecutedQty.Equal(decimal.MustParse("10")) {
		t.Fatalf("expected executed 10, got %s", r.ExecutedQty)
	}

	_, asks := ob.Depth()
	if len(asks) != 1 || !asks[0].Qty.Equal(decimal.MustParse("10")) {
		t.Fatalf("expected remaining ask depth 10, got %+v", asks)
	}
}

func TestPriceTimeAcrossLevels(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)

	ob.AddOrder(mustOrder("B1002", "U1", Buy, "1002", "2"))
	ob.AddOrder(mustOrder("B1001", "U2", Buy, "1001", "3"))
	ob.AddOrder(mustOrder("B1000", "U3", Buy, "1000", "5"))

	sell := mustOrder("S1", "U4", Sell, "1000", "6")
	r := ob.AddOrder(sell)

	if len(r.Fills) != 3 {
		t.Fatalf("expected 3 fills, got %d", len(r.Fills))
	}
	wantPrices := []string{"1002", "1001", "1000"}
	wantQtys := []string{"2", "3", "1"}
	for i, f := range r.Fills {
		if f.Price.String() != wantPrices[i] || f.Qty.String() != wantQtys[i] {
			t.Fatalf("fill %d: expected price=%s qty=%s, got price=%s qty=%s",
				i, wantPrices[i], wantQtys[i], f.Price, f.Qty)
		}
	}
	if !r.ExecutedQty.Equal(decimal.MustParse("6")) {
		t.Fatalf("expected executed 6, got %s", r.ExecutedQty)
	}

	bids, _ := ob.Depth()
	if len(bids) != 1 || !bids[0].Price.Equal(decimal.MustParse("1000")) || !bids[0].Qty.Equal(decimal.MustParse("4")) {
		t.Fatalf("expected remaining bid 1000 qty 4, got %+v", bids)
	}
}

func TestNoCross(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)

	ob.AddOrder(mustOrder("B1", "U1", Buy, "990", "5"))
	r := ob.AddOrder(mustOrder("S1", "U2", Sell, "1000", "5"))

	if r.Status != Accepted || len(r.Fills) != 0 {
		t.Fatalf("expected no fills, got %+v", r)
	}

	bids, asks := ob.Depth()
	if len(bids) != 1 || len(asks) != 1 {
		t.Fatalf("expected one level per side, got bids=%v asks=%v", bids, asks)
	}
}

func TestSelfTradeCancelNewest(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)

	ob.AddOrder(mustOrder("S1", "U1", Sell, "1000", "5"))
	r := ob.AddOrder(mustOrder("B1", "U1", Buy, "1000", "5"))

	if r.Status != Rejected || r.RejectionReason != RejectionSelfTrade {
		t.Fatalf("expected REJECTED/SELF_TRADE, got %+v", r)
	}

	bids, asks := ob.Depth()
	if len(bids) != 0 || len(asks) != 1 {
		t.Fatalf("expected book unchanged, got bids=%v asks=%v", bids, asks)
	}
}

func TestSelfTradeCancelOldestRemovesConflictAndContinues(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelOldest)

	ob.AddOrder(mustOrder("S1", "U1", Sell, "1000", "5"))  // conflicting, same user as taker
	ob.AddOrder(mustOrder("S2", "U2", Sell, "1000", "5"))  // different user

	r := ob.AddOrder(mustOrder("B1", "U1", Buy, "1000", "5"))
	if r.Status != Accepted {
		t.Fatalf("expected ACCEPTED after oldest cancel, got %+v", r)
	}
	if len(r.Fills) != 1 || r.Fills[0].MakerOrderID != "S2" {
		t.Fatalf("expected fill against S2 only, got %+v", r.Fills)
	}
}

func TestSelfTradeCancelBothRejectsAndCancelsConflicts(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelBoth)

	ob.AddOrder(mustOrder("S1", "U1", Sell, "1000", "5"))

	r := ob.AddOrder(mustOrder("B1", "U1", Buy, "1000", "5"))
	if r.Status != Rejected || r.RejectionReason != RejectionSelfTrade {
		t.Fatalf("expected REJECTED/SELF_TRADE, got %+v", r)
	}
	if len(r.CancelledOrders) != 1 || r.CancelledOrders[0].OrderID != "S1" {
		t.Fatalf("expected S1 cancelled, got %+v", r.CancelledOrders)
	}

	_, asks := ob.Depth()
	if len(asks) != 0 {
		t.Fatalf("expected S1 removed from book, got %+v", asks)
	}
}

func TestCancel(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)
	ob.AddOrder(mustOrder("B1", "U1", Buy, "100", "10"))

	cancelled, ok := ob.Cancel("B1")
	if !ok || !cancelled.Price.Equal(decimal.MustParse("100")) {
		t.Fatalf("expected cancel to return price 100, got %s ok=%v", cancelled.Price, ok)
	}

	if _, ok := ob.Cancel("B1"); ok {
		t.Fatalf("expected second cancel to be a no-op")
	}

	bids, _ := ob.Depth()
	if len(bids) != 0 {
		t.Fatalf("expected empty bids after cancel, got %+v", bids)
	}
}

func TestCancelUnknownOrderIsNoop(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)
	if _, ok := ob.Cancel("nope"); ok {
		t.Fatalf("expected no-op for unknown order")
	}
}

func TestOpenOrders(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)
	ob.AddOrder(mustOrder("B1", "U1", Buy, "100", "10"))
	ob.AddOrder(mustOrder("B2", "U2", Buy, "99", "5"))

	open := ob.OpenOrders("U1")
	if len(open) != 1 || open[0].OrderID != "B1" {
		t.Fatalf("expected only B1 for U1, got %+v", open)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)
	ob.AddOrder(mustOrder("B1", "U1", Buy, "100", "10"))
	ob.AddOrder(mustOrder("S1", "U2", Sell, "105", "5"))
	ob.AddOrder(mustOrder("B2", "U3", Buy, "100", "3"))

	snap := ob.Snapshot()
	restored := Restore(snap)

	bidsA, asksA := ob.Depth()
	bidsB, asksB := restored.Depth()
	if len(bidsA) != len(bidsB) || len(asksA) != len(asksB) {
		t.Fatalf("depth mismatch after restore: %v/%v vs %v/%v", bidsA, asksA, bidsB, asksB)
	}
	for i := range bidsA {
		if !bidsA[i].Price.Equal(bidsB[i].Price) || !bidsA[i].Qty.Equal(bidsB[i].Qty) {
			t.Fatalf("bid level %d mismatch: %+v vs %+v", i, bidsA[i], bidsB[i])
		}
	}

	// Matching behavior should be identical post-restore: a sell crossing
	// into the restored book should match the earlier-inserted B1 first.
	r := restored.AddOrder(mustOrder("S2", "U4", Sell, "100", "13"))
	if len(r.Fills) != 2 || r.Fills[0].MakerOrderID != "B1" || r.Fills[1].MakerOrderID != "B2" {
		t.Fatalf("expected time priority preserved after restore, got %+v", r.Fills)
	}
}

func TestBookOrderingInvariant(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)
	ob.AddOrder(mustOrder("B1", "U1", Buy, "100", "1"))
	ob.AddOrder(mustOrder("B2", "U1", Buy, "102", "1"))
	ob.AddOrder(mustOrder("B3", "U1", Buy, "101", "1"))

	bids, _ := ob.Depth()
	for i := 1; i < len(bids); i++ {
		if bids[i].Price.GreaterThan(bids[i-1].Price) {
			t.Fatalf("bids not non-increasing: %+v", bids)
		}
	}
}

func TestZeroRemainderFillRemovesMakerAndDepth(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)
	ob.AddOrder(mustOrder("S1", "U2", Sell, "100", "10"))
	ob.AddOrder(mustOrder("B1", "U1", Buy, "100", "10"))

	_, asks := ob.Depth()
	if len(asks) != 0 {
		t.Fatalf("expected maker removed and depth erased, got %+v", asks)
	}
}

func TestTradeIDMonotonic(t *testing.T) {
	ob := New("TATA_INR", "TATA", "INR", CancelNewest)
	ob.AddOrder(mustOrder("S1", "U2", Sell, "100", "1"))
	ob.AddOrder(mustOrder("S2", "U2", Sell, "100", "1"))
	r := ob.AddOrder(mustOrder("B1", "U1", Buy, "100", "2"))

	if len(r.Fills) != 2 || r.Fills[1].TradeID <= r.Fills[0].TradeID {
		t.Fatalf("expected strictly increasing trade ids, got %+v", r.Fills)
	}
}
