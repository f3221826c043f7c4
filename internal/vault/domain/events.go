package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
)

// Event names mirror spec.md §6's externally-observable event list.
const (
	EventAuctionStatusSet           = "AuctionStatusSet"
	EventOrderAdded                 = "OrderAdded"
	EventOrderCanceled              = "OrderCanceled"
	EventOrderWithdrawn             = "OrderWithdrawn"
	EventAuctionPricesSet           = "AuctionPricesSet"
	EventOptionParametersSet        = "OptionParametersSet"
	EventAuctionProcessed           = "AuctionProcessed"
	EventPerformanceFeeCollected    = "PerformanceFeeCollected"
	EventWithdrawalFeeCollected     = "WithdrawalFeeCollected"
	EventReservedLiquidityWithdrawn = "ReservedLiquidityWithdrawn"
	EventDistributionSent           = "DistributionSent"
	EventWithdraw                   = "Withdraw"
)

// Event is a single state-transition record, published by the
// application layer after a domain method returns successfully. Kept
// here, next to the aggregate, because its fields mirror the
// aggregate's own vocabulary rather than any transport concern.
type Event struct {
	Type    string
	Vault   [20]byte
	Epoch   uint64
	Payload map[string]any
}

// OptionParametersSetEvent builds the payload for EventOptionParametersSet.
func OptionParametersSetEvent(v *Vault) Event {
	return Event{
		Type:  EventOptionParametersSet,
		Vault: v.Address,
		Epoch: v.Epoch,
		Payload: map[string]any{
			"expiry":         v.Option.Expiry,
			"strike":         v.Option.Strike,
			"long_token_id":  v.Option.LongTokenID,
			"short_token_id": v.Option.ShortTokenID,
		},
	}
}

// AuctionPricesSetEvent builds the payload for EventAuctionPricesSet.
func AuctionPricesSetEvent(v *Vault, prices AuctionPrices) Event {
	return Event{
		Type:  EventAuctionPricesSet,
		Vault: v.Address,
		Epoch: v.Epoch,
		Payload: map[string]any{
			"max": prices.Max,
			"min": prices.Min,
		},
	}
}

// AuctionProcessedEvent builds the payload for EventAuctionProcessed.
func AuctionProcessedEvent(v *Vault, premium, sold *big.Int) Event {
	return Event{
		Type:  EventAuctionProcessed,
		Vault: v.Address,
		Epoch: v.Epoch,
		Payload: map[string]any{
			"premium": premium,
			"sold":    sold,
		},
	}
}

// OrderAddedEvent builds the payload for EventOrderAdded.
func OrderAddedEvent(v *Vault, orderID uint64, buyer string, price fixedmath.Fixed, size, filled *big.Int) Event {
	return Event{
		Type:  EventOrderAdded,
		Vault: v.Address,
		Epoch: v.Epoch,
		Payload: map[string]any{
			"order_id": orderID,
			"buyer":    buyer,
			"price":    price,
			"size":     size,
			"filled":   filled,
		},
	}
}

// OrderCanceledEvent builds the payload for EventOrderCanceled.
func OrderCanceledEvent(v *Vault, orderID uint64, buyer string) Event {
	return Event{
		Type:  EventOrderCanceled,
		Vault: v.Address,
		Epoch: v.Epoch,
		Payload: map[string]any{
			"order_id": orderID,
			"buyer":    buyer,
		},
	}
}

// AuctionStatusSetEvent builds the payload for EventAuctionStatusSet.
func AuctionStatusSetEvent(v *Vault, status string) Event {
	return Event{
		Type:  EventAuctionStatusSet,
		Vault: v.Address,
		Epoch: v.Epoch,
		Payload: map[string]any{
			"status": status,
		},
	}
}

// OrderWithdrawnEvent builds the payload for EventOrderWithdrawn.
func OrderWithdrawnEvent(v *Vault, buyer string, refund, fill *big.Int) Event {
	return Event{
		Type:  EventOrderWithdrawn,
		Vault: v.Address,
		Epoch: v.Epoch,
		Payload: map[string]any{
			"buyer":  buyer,
			"refund": refund,
			"fill":   fill,
		},
	}
}

// WithdrawEvent builds the payload for EventWithdraw.
func WithdrawEvent(v *Vault, owner, receiver string, residualCollateral, residualShort *big.Int) Event {
	return Event{
		Type:  EventWithdraw,
		Vault: v.Address,
		Epoch: v.Epoch,
		Payload: map[string]any{
			"owner":               owner,
			"receiver":            receiver,
			"residual_collateral": residualCollateral,
			"residual_short":      residualShort,
		},
	}
}
