// Package ledger is the balance ledger: per-user, per-asset available and
// locked accounting with pre-trade fund locking and atomic settlement on
// fill. The ledger has no knowledge of orders or order ids — it is driven
// entirely by id-based arguments the caller supplies.
package ledger

import (
	"sync"

	"github.com/spotforge/matchengine/pkg/decimal"
	"github.com/spotforge/matchengine/pkg/orderbook"
)

// Balance is one user's holding of one asset.
type Balance struct {
	Available decimal.Decimal
	Locked    decimal.Decimal
}

// Ledger is the map of user -> asset -> Balance. All mutating methods are
// atomic: they either fully apply or leave the ledger untouched, and never
// let a component go negative.
type Ledger struct {
	mu    sync.Mutex
	funds map[string]map[string]Balance
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{funds: make(map[string]map[string]Balance)}
}

func (l *Ledger) balanceLocked(user, asset string) Balance {
	assets, ok := l.funds[user]
	if !ok {
		return Balance{Available: decimal.Zero, Locked: decimal.Zero}
	}
	b, ok := assets[asset]
	if !ok {
		return Balance{Available: decimal.Zero, Locked: decimal.Zero}
	}
	return b
}

func (l *Ledger) setLocked(user, asset string, b Balance) {
	assets, ok := l.funds[user]
	if !ok {
		assets = make(map[string]Balance)
		l.funds[user] = assets
	}
	assets[asset] = b
}

// required computes the lock amount for a side: quantity*price in quote for
// a buy, quantity in base for a sell.
func required(side orderbook.Side, base, quote string, price, quantity decimal.Decimal) (asset string, amount decimal.Decimal) {
	if side == orderbook.Buy {
		return quote, quantity.Mul(price)
	}
	return base, quantity
}

// Lock reserves the funds an order requires, moving them from available to
// locked. It fails without mutation if the asset entry is absent or
// available is insufficient.
func (l *Ledger) Lock(user string, side orderbook.Side, base, quote string, price, quantity decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	asset, amount := required(side, base, quote, price, quantity)
	b := l.balanceLocked(user, asset)
	if b.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	b.Available = b.Available.Sub(amount)
	b.Locked = b.Locked.Add(amount)
	l.setLocked(user, asset, b)
	return nil
}

// Unlock is the inverse of Lock, used when a later step rejects the order
// after funds were already locked (e.g. STP discovered post-lock). The
// caller must pass the same arguments given to the prior successful Lock.
func (l *Ledger) Unlock(user string, side orderbook.Side, base, quote string, price, quantity decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	asset, amount := required(side, base, quote, price, quantity)
	b := l.balanceLocked(user, asset)
	b.Locked = b.Locked.Sub(amount)
	b.Available = b.Available.Add(amount)
	l.setLocked(user, asset, b)
}

// SettleFill atomically moves funds between taker and maker for one fill.
// value = fillQty * fillPrice.
//
// Taker buy:  taker.quote.locked -= value,  taker.base.available += fillQty
//             maker.quote.available += value, maker.base.locked -= fillQty
// Taker sell: taker.base.locked -= fillQty,  taker.quote.available += value
//             maker.quote.locked -= value,    maker.base.available += fillQty
func (l *Ledger) SettleFill(takerUser, makerUser string, takerSide orderbook.Side, base, quote string, fillQty, fillPrice decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	value := fillQty.Mul(fillPrice)

	takerBase := l.balanceLocked(takerUser, base)
	takerQuote := l.balanceLocked(takerUser, quote)
	makerBase := l.balanceLocked(makerUser, base)
	makerQuote := l.balanceLocked(makerUser, quote)

	if takerSide == orderbook.Buy {
		takerQuote.Locked = takerQuote.Locked.Sub(value)
		takerBase.Available = takerBase.Available.Add(fillQty)
		makerQuote.Available = makerQuote.Available.Add(value)
		makerBase.Locked = makerBase.Locked.Sub(fillQty)
	} else {
		takerBase.Locked = takerBase.Locked.Sub(fillQty)
		takerQuote.Available = takerQuote.Available.Add(value)
		makerQuote.Locked = makerQuote.Locked.Sub(value)
		makerBase.Available = makerBase.Available.Add(fillQty)
	}

	l.setLocked(takerUser, base, takerBase)
	l.setLocked(takerUser, quote, takerQuote)
	l.setLocked(makerUser, base, makerBase)
	l.setLocked(makerUser, quote, makerQuote)
}

// Credit on-ramps funds, creating the user/asset entry if absent.
func (l *Ledger) Credit(user, asset string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.balanceLocked(user, asset)
	b.Available = b.Available.Add(amount)
	l.setLocked(user, asset, b)
}

// Debit off-ramps funds. It fails with ErrInsufficientFunds without
// mutation if available is insufficient.
func (l *Ledger) Debit(user, asset string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.balanceLocked(user, asset)
	if b.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	b.Available = b.Available.Sub(amount)
	l.setLocked(user, asset, b)
	return nil
}

// Get returns a copy of the user's full balance map.
func (l *Ledger) Get(user string) map[string]Balance {
	l.mu.Lock()
	defer l.mu.Unlock()

	assets, ok := l.funds[user]
	if !ok {
		return map[string]Balance{}
	}
	out := make(map[string]Balance, len(assets))
	for k, v := range assets {
		out[k] = v
	}
	return out
}

// Snapshot returns every user's balance map, for periodic persistence.
func (l *Ledger) Snapshot() map[string]map[string]Balance {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]map[string]Balance, len(l.funds))
	for user, assets := range l.funds {
		copyAssets := make(map[string]Balance, len(assets))
		for k, v := range assets {
			copyAssets[k] = v
		}
		out[user] = copyAssets
	}
	return out
}

// Restore replaces the ledger's contents with a previously captured
// snapshot, used on startup when restoring from a snapshot file.
func Restore(funds map[string]map[string]Balance) *Ledger {
	l := New()
	for user, assets := range funds {
		copyAssets := make(map[string]Balance, len(assets))
		for k, v := range assets {
			copyAssets[k] = v
		}
		l.funds[user] = copyAssets
	}
	return l
}
