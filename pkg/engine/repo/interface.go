package repo

import "context"

// ITradeRepo persists matched-fill rows for later inspection.
type ITradeRepo interface {
	Create(ctx context.Context, record *Trade) (*Trade, error)
	BulkCreate(ctx context.Context, records []*Trade) ([]*Trade, error)
}

// IOrderUpdateRepo persists order state transition rows.
type IOrderUpdateRepo interface {
	Create(ctx context.Context, record *OrderUpdate) (*OrderUpdate, error)
	BulkCreate(ctx context.Context, records []*OrderUpdate) ([]*OrderUpdate, error)
}

// IRepo groups both projections behind the one dependency the ingestion
// worker needs.
type IRepo interface {
	Trade() ITradeRepo
	OrderUpdate() IOrderUpdateRepo
}
