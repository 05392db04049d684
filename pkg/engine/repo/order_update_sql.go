package repo

import (
	"context"

	"gorm.io/gorm"
)

type OrderUpdateSQLRepo struct {
	db *gorm.DB
}

func NewOrderUpdateSQLRepo(db *gorm.DB) *OrderUpdateSQLRepo {
	return &OrderUpdateSQLRepo{db: db}
}

func (r *OrderUpdateSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *OrderUpdateSQLRepo) Create(ctx context.Context, record *OrderUpdate) (*OrderUpdate, error) {
	return record, r.dbWithContext(ctx).Create(record).Error
}

func (r *OrderUpdateSQLRepo) BulkCreate(ctx context.Context, records []*OrderUpdate) ([]*OrderUpdate, error) {
	return records, r.dbWithContext(ctx).Create(records).Error
}
