// Package engine is the dispatcher: it owns the market registry and the
// balance ledger, consumes commands one at a time, and performs the
// cross-cutting validate -> lock -> match -> settle -> emit workflow.
package engine

import "github.com/spotforge/matchengine/pkg/decimal"

// CommandKind tags which variant of Command is populated.
type CommandKind string

const (
	KindCreateOrder    CommandKind = "CREATE_ORDER"
	KindCancelOrder    CommandKind = "CANCEL_ORDER"
	KindGetOpenOrders  CommandKind = "GET_OPEN_ORDERS"
	KindGetDepth       CommandKind = "GET_DEPTH"
	KindGetBalance     CommandKind = "GET_BALANCE"
	KindOnRamp         CommandKind = "ON_RAMP"
	KindWithdraw       CommandKind = "WITHDRAW"
)

// Command is a tagged union over the command set the dispatcher accepts.
// Exactly the field matching Kind is populated.
type Command struct {
	ClientID string
	Kind     CommandKind

	CreateOrder   *CreateOrderCommand
	CancelOrder   *CancelOrderCommand
	GetOpenOrders *GetOpenOrdersCommand
	GetDepth      *GetDepthCommand
	GetBalance    *GetBalanceCommand
	OnRamp        *OnRampCommand
	Withdraw      *WithdrawCommand
}

// CreateOrderCommand requests a new order. Price and Quantity arrive as
// canonical decimal text; OrderID may be supplied by the caller for
// idempotent retries, or left empty for the engine to assign one.
type CreateOrderCommand struct {
	OrderID  string
	UserID   string
	Market   string
	Side     string // "buy" | "sell"
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

type CancelOrderCommand struct {
	UserID  string
	Market  string
	OrderID string
}

type GetOpenOrdersCommand struct {
	UserID string
	Market string
}

type GetDepthCommand struct {
	Market string
}

type GetBalanceCommand struct {
	UserID string
}

type OnRampCommand struct {
	UserID string
	Asset  string
	Amount decimal.Decimal
}

type WithdrawCommand struct {
	UserID string
	Asset  string
	Amount decimal.Decimal
	TxID   string
}
