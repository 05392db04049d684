package engine

import "github.com/spotforge/matchengine/pkg/ledger"

// applyGetOpenOrders is a pure read: it never touches the ledger or emits
// anything beyond the per-client Result.
func (e *Engine) applyGetOpenOrders(cmd *GetOpenOrdersCommand) Result {
	if cmd == nil {
		return Result{Kind: ResultOpenOrders, OpenOrders: &OpenOrdersResult{}}
	}

	ob, ok := e.registry.Get(cmd.Market)
	if !ok {
		return Result{Kind: ResultOpenOrders, OpenOrders: &OpenOrdersResult{}}
	}

	return Result{
		Kind:       ResultOpenOrders,
		OpenOrders: &OpenOrdersResult{Orders: ob.OpenOrders(cmd.UserID)},
	}
}

// applyGetDepth is a pure read returning the current aggregate book.
func (e *Engine) applyGetDepth(cmd *GetDepthCommand) Result {
	if cmd == nil {
		return Result{Kind: ResultDepth, Depth: &DepthResult{}}
	}

	ob, ok := e.registry.Get(cmd.Market)
	if !ok {
		return Result{Kind: ResultDepth, Depth: &DepthResult{}}
	}

	bids, asks := ob.Depth()
	return Result{Kind: ResultDepth, Depth: &DepthResult{Bids: bids, Asks: asks}}
}

// applyGetBalance is a pure read over every asset the user has a ledger
// entry for, including entries whose balance is zero.
func (e *Engine) applyGetBalance(cmd *GetBalanceCommand) Result {
	if cmd == nil {
		return Result{Kind: ResultBalance, Balance: &BalanceResult{Balances: map[string]ledger.Balance{}}}
	}
	return Result{
		Kind:    ResultBalance,
		Balance: &BalanceResult{Balances: e.ledger.Get(cmd.UserID)},
	}
}

// applyOnRamp credits a user's available balance unconditionally; funding
// rails outside the engine are assumed to have already verified the
// deposit.
func (e *Engine) applyOnRamp(cmd *OnRampCommand) Result {
	if cmd == nil {
		return Result{Kind: ResultOnRampSuccess, OnRampSuccess: &OnRampSuccessResult{}}
	}

	e.ledger.Credit(cmd.UserID, cmd.Asset, cmd.Amount)
	balances := e.ledger.Get(cmd.UserID)

	return Result{
		Kind: ResultOnRampSuccess,
		OnRampSuccess: &OnRampSuccessResult{
			UserID:     cmd.UserID,
			Amount:     cmd.Amount,
			NewBalance: balances[cmd.Asset].Available,
		},
	}
}

// applyWithdraw debits a user's available balance, failing without
// mutation if the available balance can't cover the amount requested.
func (e *Engine) applyWithdraw(cmd *WithdrawCommand) Result {
	if cmd == nil {
		return Result{Kind: ResultWithdrawFailed, WithdrawFailed: &WithdrawFailedResult{}}
	}

	if err := e.ledger.Debit(cmd.UserID, cmd.Asset, cmd.Amount); err != nil {
		return Result{
			Kind: ResultWithdrawFailed,
			WithdrawFailed: &WithdrawFailedResult{
				UserID: cmd.UserID,
				TxID:   cmd.TxID,
				Reason: err.Error(),
			},
		}
	}

	balances := e.ledger.Get(cmd.UserID)

	return Result{
		Kind: ResultWithdrawSuccess,
		WithdrawSuccess: &WithdrawSuccessResult{
			UserID:     cmd.UserID,
			TxID:       cmd.TxID,
			Amount:     cmd.Amount,
			NewBalance: balances[cmd.Asset].Available,
		},
	}
}
