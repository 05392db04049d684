package engine

// FanoutEmitter dispatches every emission to two sinks: a broadcast sink
// (pub/sub: results, depth, trade, userTrades) and a persistence sink
// (trades.added, orders.updated). Keeping the split here, rather than in
// either transport package, avoids the transports needing to know about
// each other.
type FanoutEmitter struct {
	Broadcast   Emitter
	Persistence Emitter
}

func (f FanoutEmitter) Result(clientID string, result Result) {
	if f.Broadcast != nil {
		f.Broadcast.Result(clientID, result)
	}
}

func (f FanoutEmitter) Depth(delta DepthDelta) {
	if f.Broadcast != nil {
		f.Broadcast.Depth(delta)
	}
}

func (f FanoutEmitter) Trade(event TradeEvent) {
	if f.Broadcast != nil {
		f.Broadcast.Trade(event)
	}
}

func (f FanoutEmitter) UserTrade(event UserTradeEvent) {
	if f.Broadcast != nil {
		f.Broadcast.UserTrade(event)
	}
}

func (f FanoutEmitter) TradeAdded(record TradeAddedRecord) {
	if f.Persistence != nil {
		f.Persistence.TradeAdded(record)
	}
}

func (f FanoutEmitter) OrderUpdate(record OrderUpdateRecord) {
	if f.Persistence != nil {
		f.Persistence.OrderUpdate(record)
	}
}
