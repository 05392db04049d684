package main

import (
	"encoding/json"
	"fmt"

	"github.com/spotforge/matchengine/pkg/engine"
	"github.com/spotforge/matchengine/pkg/transport/redis"
)

// wireCommand is the JSON shape a client enqueues onto the request queue.
// Exactly the field matching Kind should be populated; decimal fields are
// plain decimal text, decoded through decimal.Decimal's TextUnmarshaler.
type wireCommand struct {
	Kind engine.CommandKind `json:"kind"`

	CreateOrder   *engine.CreateOrderCommand   `json:"create_order,omitempty"`
	CancelOrder   *engine.CancelOrderCommand   `json:"cancel_order,omitempty"`
	GetOpenOrders *engine.GetOpenOrdersCommand `json:"get_open_orders,omitempty"`
	GetDepth      *engine.GetDepthCommand      `json:"get_depth,omitempty"`
	GetBalance    *engine.GetBalanceCommand    `json:"get_balance,omitempty"`
	OnRamp        *engine.OnRampCommand        `json:"on_ramp,omitempty"`
	Withdraw      *engine.WithdrawCommand      `json:"withdraw,omitempty"`
}

// decodeCommand turns one queued envelope into the engine's internal
// Command union, rejecting payloads whose Kind doesn't match the variant
// that was actually populated.
func decodeCommand(raw redis.RawCommand) (engine.Command, error) {
	var wc wireCommand
	if err := json.Unmarshal(raw.Payload, &wc); err != nil {
		return engine.Command{}, fmt.Errorf("decode command: %w", err)
	}

	cmd := engine.Command{ClientID: raw.ClientID, Kind: wc.Kind}

	switch wc.Kind {
	case engine.KindCreateOrder:
		if wc.CreateOrder == nil {
			return engine.Command{}, fmt.Errorf("decode command: missing create_order body")
		}
		cmd.CreateOrder = wc.CreateOrder
	case engine.KindCancelOrder:
		if wc.CancelOrder == nil {
			return engine.Command{}, fmt.Errorf("decode command: missing cancel_order body")
		}
		cmd.CancelOrder = wc.CancelOrder
	case engine.KindGetOpenOrders:
		if wc.GetOpenOrders == nil {
			return engine.Command{}, fmt.Errorf("decode command: missing get_open_orders body")
		}
		cmd.GetOpenOrders = wc.GetOpenOrders
	case engine.KindGetDepth:
		if wc.GetDepth == nil {
			return engine.Command{}, fmt.Errorf("decode command: missing get_depth body")
		}
		cmd.GetDepth = wc.GetDepth
	case engine.KindGetBalance:
		if wc.GetBalance == nil {
			return engine.Command{}, fmt.Errorf("decode command: missing get_balance body")
		}
		cmd.GetBalance = wc.GetBalance
	case engine.KindOnRamp:
		if wc.OnRamp == nil {
			return engine.Command{}, fmt.Errorf("decode command: missing on_ramp body")
		}
		cmd.OnRamp = wc.OnRamp
	case engine.KindWithdraw:
		if wc.Withdraw == nil {
			return engine.Command{}, fmt.Errorf("decode command: missing withdraw body")
		}
		cmd.Withdraw = wc.Withdraw
	default:
		return engine.Command{}, fmt.Errorf("decode command: unknown kind %q", wc.Kind)
	}

	return cmd, nil
}
