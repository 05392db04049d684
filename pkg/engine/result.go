package engine

import (
	"github.com/spotforge/matchengine/pkg/decimal"
	"github.com/spotforge/matchengine/pkg/ledger"
	"github.com/spotforge/matchengine/pkg/orderbook"
)

// ResultKind tags which variant of Result is populated.
type ResultKind string

const (
	ResultOrderPlaced     ResultKind = "ORDER_PLACED"
	ResultOrderRejected   ResultKind = "ORDER_REJECTED"
	ResultOrderCancelled  ResultKind = "ORDER_CANCELLED"
	ResultOpenOrders      ResultKind = "OPEN_ORDERS"
	ResultDepth           ResultKind = "DEPTH"
	ResultBalance         ResultKind = "BALANCE"
	ResultOnRampSuccess   ResultKind = "ON_RAMP_SUCCESS"
	ResultWithdrawSuccess ResultKind = "WITHDRAW_SUCCESS"
	ResultWithdrawFailed  ResultKind = "WITHDRAW_FAILED"
)

// RejectionCode classifies why a CREATE_ORDER command was rejected.
type RejectionCode string

const (
	RejectionSelfTrade  RejectionCode = "SELF_TRADE"
	RejectionOrderFailed RejectionCode = "ORDER_FAILED"
)

// Result is the tagged union delivered on the per-client result channel.
// Every command produces exactly one Result, even on failure.
type Result struct {
	Kind ResultKind

	OrderPlaced     *OrderPlacedResult
	OrderRejected   *OrderRejectedResult
	OrderCancelled  *OrderCancelledResult
	OpenOrders      *OpenOrdersResult
	Depth           *DepthResult
	Balance         *BalanceResult
	OnRampSuccess   *OnRampSuccessResult
	WithdrawSuccess *WithdrawSuccessResult
	WithdrawFailed  *WithdrawFailedResult
}

type ResultFill struct {
	Price   decimal.Decimal
	Qty     decimal.Decimal
	TradeID int64
}

type OrderPlacedResult struct {
	OrderID     string
	ExecutedQty decimal.Decimal
	Fills       []ResultFill
}

type OrderRejectedResult struct {
	OrderID      string
	ExecutedQty  decimal.Decimal
	RemainingQty decimal.Decimal
	Reason       string
	Code         RejectionCode
}

type OrderCancelledResult struct {
	OrderID      string
	ExecutedQty  decimal.Decimal
	RemainingQty decimal.Decimal
}

type OpenOrdersResult struct {
	Orders []orderbook.Order
}

type DepthResult struct {
	Bids []orderbook.DepthLevel
	Asks []orderbook.DepthLevel
}

type BalanceResult struct {
	Balances map[string]ledger.Balance
}

type OnRampSuccessResult struct {
	UserID     string
	Amount     decimal.Decimal
	NewBalance decimal.Decimal
}

type WithdrawSuccessResult struct {
	UserID     string
	TxID       string
	Amount     decimal.Decimal
	NewBalance decimal.Decimal
}

type WithdrawFailedResult struct {
	UserID string
	TxID   string
	Reason string
}
