package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spotforge/matchengine/pkg/ledger"
	"github.com/spotforge/matchengine/pkg/logging"
	"github.com/spotforge/matchengine/pkg/orderbook"
)

// MarketConfig seeds one market's order book on a cold start.
type MarketConfig struct {
	Market     string
	BaseAsset  string
	QuoteAsset string
	STPMode    orderbook.STPMode
}

// Engine is the single owning root: the market registry and the balance
// ledger. Every mutation happens through ApplyCommand, called exactly once
// at a time by the caller's command loop (see §5: single-threaded
// dispatcher, no suspension points within a command).
type Engine struct {
	registry *orderbook.Registry
	ledger   *ledger.Ledger
	emitter  Emitter
	rules    []Rule
	log      *zap.Logger

	mu           sync.Mutex // guards seenOrderIDs only; matching/ledger have their own locks
	seenOrderIDs map[string]struct{}
}

// New creates an engine over an existing registry and ledger — used both
// for a cold start (empty registry/ledger, then seeded by the caller) and
// for a restart from a snapshot (registry/ledger pre-populated by Restore).
func New(registry *orderbook.Registry, l *ledger.Ledger, emitter Emitter, log *zap.Logger) *Engine {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		registry:     registry,
		ledger:       l,
		emitter:      emitter,
		rules:        defaultRules(),
		log:          log,
		seenOrderIDs: make(map[string]struct{}),
	}
}

// SeedMarket registers a new empty market — used on a cold start for the
// configured initial markets.
func (e *Engine) SeedMarket(cfg MarketConfig) {
	e.registry.Add(orderbook.New(cfg.Market, cfg.BaseAsset, cfg.QuoteAsset, cfg.STPMode))
}

// Ledger exposes the underlying ledger for reading balances. No other
// caller should mutate it directly.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Registry exposes the underlying market registry for reading books.
func (e *Engine) Registry() *orderbook.Registry { return e.registry }

func newOrderID() string {
	return uuid.NewString()
}

func newCommandID() string {
	return uuid.NewString()
}

// ApplyCommand runs the full command workflow and returns the Result that
// was also handed to the emitter's per-client Result sink. It is the
// engine's only entry point; the caller's command loop is responsible for
// sequencing calls one at a time.
//
// Every log line emitted while this command is being processed carries the
// same command_id, via a context scoped by pkg/logging — a fresh id is
// minted here, not reused from any order id the command carries, since one
// command can touch several orders (self-trade cancellations, multiple
// fills).
func (e *Engine) ApplyCommand(cmd Command) Result {
	ctx := logging.WithCommandID(context.Background(), newCommandID())
	log, ctx := logging.GetLogger(ctx)

	var result Result
	switch cmd.Kind {
	case KindCreateOrder:
		result = e.applyCreateOrder(ctx, log, cmd.CreateOrder)
	case KindCancelOrder:
		result = e.applyCancelOrder(ctx, log, cmd.CancelOrder)
	case KindGetOpenOrders:
		result = e.applyGetOpenOrders(cmd.GetOpenOrders)
	case KindGetDepth:
		result = e.applyGetDepth(cmd.GetDepth)
	case KindGetBalance:
		result = e.applyGetBalance(cmd.GetBalance)
	case KindOnRamp:
		result = e.applyOnRamp(cmd.OnRamp)
	case KindWithdraw:
		result = e.applyWithdraw(cmd.Withdraw)
	default:
		log.Error(ctx, "unhandled command kind", zap.String("kind", string(cmd.Kind)))
		return Result{}
	}

	e.emitter.Result(cmd.ClientID, result)
	return result
}

// hasSeen reports whether orderID has already been committed by a prior
// accepted or partially filled CREATE_ORDER — it does not itself mark
// anything seen, so a rejected order's id remains free for resubmission.
func (e *Engine) hasSeen(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.seenOrderIDs[orderID]
	return ok
}

// markSeen commits orderID as processed. Called only once an order has
// actually reached the book (accepted or partially filled), not at the
// start of validation — an order rejected for malformed input or
// insufficient funds must leave its id free for a corrected resubmission.
func (e *Engine) markSeen(orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seenOrderIDs[orderID] = struct{}{}
}
