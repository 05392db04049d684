package repo

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spotforge/matchengine/pkg/engine"
	transportkafka "github.com/spotforge/matchengine/pkg/transport/kafka"
)

// Ingester drains the persistence channel's two topics into the
// projection repo. It runs as its own process (cmd/projector), decoupled
// from the dispatcher so a slow or down database never backs up the
// engine's command loop.
type Ingester struct {
	repo IRepo
	log  *zap.Logger
}

func NewIngester(repo IRepo, log *zap.Logger) *Ingester {
	return &Ingester{repo: repo, log: log}
}

// HandleTrades is the consumer handler for TopicTradesAdded.
func (i *Ingester) HandleTrades(ctx context.Context, msgs []transportkafka.Message) error {
	records := make([]*Trade, 0, len(msgs))
	for _, m := range msgs {
		var row engine.TradeAddedRecord
		if err := json.Unmarshal(m.Value, &row); err != nil {
			i.log.Error("decode trades.added message", zap.Error(err))
			continue
		}
		records = append(records, &Trade{
			ID:            row.ID,
			Market:        row.Market,
			Price:         row.Price,
			Quantity:      row.Quantity,
			QuoteQuantity: row.QuoteQuantity,
			IsBuyerMaker:  row.IsBuyerMaker,
			Timestamp:     row.Timestamp,
			BuyerUserID:   row.BuyerUserID,
			SellerUserID:  row.SellerUserID,
		})
	}
	if len(records) == 0 {
		return nil
	}
	_, err := i.repo.Trade().BulkCreate(ctx, records)
	return err
}

// HandleOrderUpdates is the consumer handler for TopicOrdersUpdated.
func (i *Ingester) HandleOrderUpdates(ctx context.Context, msgs []transportkafka.Message) error {
	records := make([]*OrderUpdate, 0, len(msgs))
	for _, m := range msgs {
		var row engine.OrderUpdateRecord
		if err := json.Unmarshal(m.Value, &row); err != nil {
			i.log.Error("decode orders.updated message", zap.Error(err))
			continue
		}
		records = append(records, &OrderUpdate{
			OrderID:     row.OrderID,
			ExecutedQty: row.ExecutedQty,
			Market:      row.Market,
			Price:       row.Price,
			Quantity:    row.Quantity,
			Side:        row.Side,
			UserID:      row.UserID,
			Status:      row.Status,
			RecordedAt:  time.Now(),
		})
	}
	if len(records) == 0 {
		return nil
	}
	_, err := i.repo.OrderUpdate().BulkCreate(ctx, records)
	return err
}
