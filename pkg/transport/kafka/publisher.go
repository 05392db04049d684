package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/spotforge/matchengine/pkg/engine"
)

// TopicTradesAdded and TopicOrdersUpdated are the persistence channel's two
// topics, keyed by market and order id respectively so trades of one market,
// and updates of one order, stay ordered within a partition.
const (
	TopicTradesAdded   = "trades.added"
	TopicOrdersUpdated = "orders.updated"
)

// PersistencePublisher implements the persistence half of engine.Emitter
// (TradeAdded, OrderUpdate); the broadcast half is handled by
// pkg/transport/redis.Publisher. A dispatcher wiring both together is a
// thin fan-out, not a responsibility either package should own itself.
type PersistencePublisher struct {
	producer *Producer
	log      *zap.Logger
}

func NewPersistencePublisher(producer *Producer, log *zap.Logger) *PersistencePublisher {
	return &PersistencePublisher{producer: producer, log: log}
}

func (p *PersistencePublisher) TradeAdded(record engine.TradeAddedRecord) {
	ctx := context.Background()
	key := record.Market
	if err := p.producer.PublishJSON(ctx, TopicTradesAdded, key, record); err != nil {
		p.log.Error("publish trades.added failed", zap.Error(err), zap.Int64("trade_id", record.ID))
	}
}

func (p *PersistencePublisher) OrderUpdate(record engine.OrderUpdateRecord) {
	ctx := context.Background()
	if err := p.producer.PublishJSON(ctx, TopicOrdersUpdated, record.OrderID, record); err != nil {
		p.log.Error("publish orders.updated failed", zap.Error(err), zap.String("order_id", record.OrderID))
	}
}

// Result, Depth, Trade, and UserTrade are the broadcast half of the
// interface, owned by pkg/transport/redis.Publisher; a PersistencePublisher
// used through engine.FanoutEmitter never receives these calls directly,
// but it must still satisfy engine.Emitter to be usable on its own.
func (p *PersistencePublisher) Result(string, engine.Result)         {}
func (p *PersistencePublisher) Depth(engine.DepthDelta)               {}
func (p *PersistencePublisher) Trade(engine.TradeEvent)               {}
func (p *PersistencePublisher) UserTrade(engine.UserTradeEvent)       {}

var _ engine.Emitter = (*PersistencePublisher)(nil)
