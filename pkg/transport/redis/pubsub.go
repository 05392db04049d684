package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spotforge/matchengine/pkg/engine"
)

// Publisher implements engine.Emitter over Redis pub/sub: results go to a
// per-client channel, depth/trade/userTrades are broadcast per market or
// per user.
type Publisher struct {
	client *redis.Client
	log    *zap.Logger
}

func NewPublisher(client *redis.Client, log *zap.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

func resultChannel(clientID string) string   { return "result@" + clientID }
func depthChannel(market string) string      { return "depth@" + market }
func tradeChannel(market string) string      { return "trade@" + market }
func userTradesChannel(userID string) string { return "userTrades@" + userID }

func (p *Publisher) publish(channel string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		p.log.Error("marshal pub/sub payload", zap.String("channel", channel), zap.Error(err))
		return
	}
	if err := p.client.Publish(context.Background(), channel, body).Err(); err != nil {
		p.log.Error("publish failed", zap.String("channel", channel), zap.Error(err))
	}
}

func (p *Publisher) Result(clientID string, result engine.Result) {
	p.publish(resultChannel(clientID), result)
}

func (p *Publisher) Depth(delta engine.DepthDelta) {
	p.publish(depthChannel(delta.Market), delta)
}

func (p *Publisher) Trade(event engine.TradeEvent) {
	p.publish(tradeChannel(event.Market), event)
}

func (p *Publisher) UserTrade(event engine.UserTradeEvent) {
	p.publish(userTradesChannel(event.UserID), event)
}

// TradeAdded and OrderUpdate are the persistence-channel events; Redis
// pub/sub has no durable delivery, so those are wired to Kafka instead (see
// pkg/transport/kafka). A Publisher used standalone no-ops them.
func (p *Publisher) TradeAdded(engine.TradeAddedRecord)   {}
func (p *Publisher) OrderUpdate(engine.OrderUpdateRecord) {}

var _ engine.Emitter = (*Publisher)(nil)
