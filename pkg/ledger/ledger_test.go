package ledger

import (
	"testing"

	"github.com/spotforge/matchengine/pkg/decimal"
	"github.com/spotforge/matchengine/pkg/orderbook"
)

func d(s string) decimal.Decimal { return decimal.MustParse(s) }

func TestLockInsufficientFunds(t *testing.T) {
	l := New()
	l.Credit("u1", "INR", d("100"))

	err := l.Lock("u1", orderbook.Buy, "TATA", "INR", d("10"), d("20"))
	if err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	b := l.Get("u1")["INR"]
	if !b.Available.Equal(d("100")) || !b.Locked.IsZero() {
		t.Fatalf("expected no mutation on failed lock, got %+v", b)
	}
}

func TestLockUnlockIsIdentity(t *testing.T) {
	l := New()
	l.Credit("u1", "TATA", d("100"))

	if err := l.Lock("u1", orderbook.Sell, "TATA", "INR", d("100"), d("10")); err != nil {
		t.Fatalf("unexpected lock error: %v", err)
	}
	l.Unlock("u1", orderbook.Sell, "TATA", "INR", d("100"), d("10"))

	b := l.Get("u1")["TATA"]
	if !b.Available.Equal(d("100")) || !b.Locked.IsZero() {
		t.Fatalf("expected lock+unlock to be identity, got %+v", b)
	}
}

func TestSettleFillBuyTaker(t *testing.T) {
	l := New()
	l.Credit("u1", "INR", d("10000"))
	l.Credit("u2", "INR", d("10000"))
	l.Credit("u2", "TATA", d("100"))

	// U2 (maker, sell) locks 10 TATA; U1 (taker, buy) locks 1000 INR.
	if err := l.Lock("u2", orderbook.Sell, "TATA", "INR", d("100"), d("10")); err != nil {
		t.Fatalf("lock maker: %v", err)
	}
	if err := l.Lock("u1", orderbook.Buy, "TATA", "INR", d("100"), d("10")); err != nil {
		t.Fatalf("lock taker: %v", err)
	}

	l.SettleFill("u1", "u2", orderbook.Buy, "TATA", "INR", d("10"), d("100"))

	u1 := l.Get("u1")
	u2 := l.Get("u2")

	if !u1["INR"].Locked.IsZero() || !u1["INR"].Available.Equal(d("9000")) {
		t.Fatalf("unexpected taker INR: %+v", u1["INR"])
	}
	if !u1["TATA"].Available.Equal(d("10")) {
		t.Fatalf("unexpected taker TATA: %+v", u1["TATA"])
	}
	if !u2["TATA"].Locked.IsZero() || !u2["TATA"].Available.Equal(d("90")) {
		t.Fatalf("unexpected maker TATA: %+v", u2["TATA"])
	}
	if !u2["INR"].Available.Equal(d("11000")) {
		t.Fatalf("unexpected maker INR: %+v", u2["INR"])
	}
}

func TestConservationAcrossSettle(t *testing.T) {
	l := New()
	l.Credit("u1", "INR", d("10000"))
	l.Credit("u1", "TATA", d("100"))
	l.Credit("u2", "INR", d("10000"))
	l.Credit("u2", "TATA", d("100"))

	totalBefore := d("20000")
	_ = totalBefore

	if err := l.Lock("u2", orderbook.Sell, "TATA", "INR", d("100"), d("10")); err != nil {
		t.Fatalf("lock maker: %v", err)
	}
	if err := l.Lock("u1", orderbook.Buy, "TATA", "INR", d("100"), d("10")); err != nil {
		t.Fatalf("lock taker: %v", err)
	}
	l.SettleFill("u1", "u2", orderbook.Buy, "TATA", "INR", d("10"), d("100"))

	u1 := l.Get("u1")
	u2 := l.Get("u2")

	inrTotal := u1["INR"].Available.Add(u1["INR"].Locked).Add(u2["INR"].Available).Add(u2["INR"].Locked)
	tataTotal := u1["TATA"].Available.Add(u1["TATA"].Locked).Add(u2["TATA"].Available).Add(u2["TATA"].Locked)

	if !inrTotal.Equal(d("20000")) {
		t.Fatalf("INR not conserved: %s", inrTotal)
	}
	if !tataTotal.Equal(d("200")) {
		t.Fatalf("TATA not conserved: %s", tataTotal)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	l := New()
	l.Credit("u1", "INR", d("50"))

	if err := l.Debit("u1", "INR", d("100")); err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if !l.Get("u1")["INR"].Available.Equal(d("50")) {
		t.Fatalf("expected no mutation on failed debit")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	l := New()
	l.Credit("u1", "INR", d("500"))
	l.Lock("u1", orderbook.Buy, "TATA", "INR", d("10"), d("10"))

	snap := l.Snapshot()
	restored := Restore(snap)

	if !restored.Get("u1")["INR"].Locked.Equal(d("100")) {
		t.Fatalf("expected restored locked 100, got %+v", restored.Get("u1")["INR"])
	}
}
