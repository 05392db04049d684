package repo

import "gorm.io/gorm"

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) IRepo {
	return &Repo{db: db}
}

func (r *Repo) Trade() ITradeRepo {
	return NewTradeSQLRepo(r.db)
}

func (r *Repo) OrderUpdate() IOrderUpdateRepo {
	return NewOrderUpdateSQLRepo(r.db)
}
