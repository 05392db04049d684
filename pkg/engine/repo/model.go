// Package repo is the local read-side projection: a Postgres mirror of the
// persistence channel (trades.added, orders.updated), kept for inspection
// and analytics queries the engine itself never needs to answer.
package repo

import (
	"time"

	"github.com/spotforge/matchengine/pkg/decimal"
)

// Trade is the gorm model backing one row per matched fill.
type Trade struct {
	ID            int64 `gorm:"primaryKey"`
	Market        string
	Price         decimal.Decimal `gorm:"type:numeric"`
	Quantity      decimal.Decimal `gorm:"type:numeric"`
	QuoteQuantity decimal.Decimal `gorm:"type:numeric"`
	IsBuyerMaker  bool
	Timestamp     time.Time
	BuyerUserID   string
	SellerUserID  string
}

// OrderUpdate is the gorm model backing one row per order state
// transition; an order accumulates multiple rows over its lifetime
// (resting -> partially filled -> filled, or -> cancelled).
type OrderUpdate struct {
	ID          int64 `gorm:"primaryKey"`
	OrderID     string `gorm:"index"`
	ExecutedQty decimal.Decimal `gorm:"type:numeric"`
	Market      string
	Price       decimal.Decimal `gorm:"type:numeric"`
	Quantity    decimal.Decimal `gorm:"type:numeric"`
	Side        string
	UserID      string `gorm:"index"`
	Status      string
	RecordedAt  time.Time
}
