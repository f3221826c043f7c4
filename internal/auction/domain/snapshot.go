package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	orderbook "github.com/wyfcoding/vaultengine/internal/orderbook/domain"
)

// Snapshot is the auction's persisted representation.
type Snapshot struct {
	Epoch  uint64
	Status Status

	Expiry      int64
	Strike      fixedmath.Fixed
	LongTokenID *big.Int

	MaxPrice, MinPrice, LastPrice fixedmath.Fixed
	StartTime, EndTime            int64
	ProcessedTime                 int64

	TotalContracts     *big.Int
	TotalContractsSold *big.Int
	TotalPremiums      *big.Int

	Book orderbook.Snapshot

	IsCall                           bool
	MinSize                          *big.Int
	UnderlyingDecimals, BaseDecimals int32
}

// ToSnapshot copies the auction's full state out for persistence.
func (a *Auction) ToSnapshot() Snapshot {
	return Snapshot{
		Epoch:              a.Epoch,
		Status:             a.Status,
		Expiry:             a.Expiry,
		Strike:             a.Strike,
		LongTokenID:        a.LongTokenID,
		MaxPrice:           a.MaxPrice,
		MinPrice:           a.MinPrice,
		LastPrice:          a.LastPrice,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		ProcessedTime:      a.ProcessedTime,
		TotalContracts:     a.TotalContracts,
		TotalContractsSold: a.TotalContractsSold,
		TotalPremiums:      a.TotalPremiums,
		Book:               a.Book.ToSnapshot(),
		IsCall:             a.IsCall,
		MinSize:            a.MinSize,
		UnderlyingDecimals: a.UnderlyingDecimals,
		BaseDecimals:       a.BaseDecimals,
	}
}

// RestoreFromSnapshot rehydrates an auction from a prior ToSnapshot call.
func RestoreFromSnapshot(s Snapshot) *Auction {
	a := New(s.Epoch, s.IsCall, s.MinSize, s.UnderlyingDecimals, s.BaseDecimals)
	a.Status = s.Status
	a.Expiry = s.Expiry
	a.Strike = s.Strike
	a.LongTokenID = s.LongTokenID
	a.MaxPrice = s.MaxPrice
	a.MinPrice = s.MinPrice
	a.LastPrice = s.LastPrice
	a.StartTime = s.StartTime
	a.EndTime = s.EndTime
	a.ProcessedTime = s.ProcessedTime
	a.TotalContracts = s.TotalContracts
	a.TotalContractsSold = s.TotalContractsSold
	a.TotalPremiums = s.TotalPremiums
	a.Book = orderbook.RestoreFromSnapshot(s.Book)
	return a
}
