package domain

import "math/big"

// Snapshot is the vault aggregate's persisted representation of its own
// fields, including a copy of its share ledger (Shares). The composed
// auction and deposit queue are not part of it; they are captured via
// their own Snapshot methods so the persistence layer never reaches
// into package-private state.
type Snapshot struct {
	Address [20]byte
	Config  Config

	Epoch           uint64
	Option          Option
	LastEpochOption Option

	AuctionProcessed bool
	StartTime        int64

	LastTotalAssets   *big.Int
	TotalWithdrawals  *big.Int
	CollateralBalance *big.Int
	ShortContracts    *big.Int

	TotalShares *big.Int
	Shares      map[string]*big.Int
}

// ToSnapshot copies the vault's own exported-equivalent state out for
// persistence. Callers that also need the queue's state should call
// v.Queue's own snapshot method separately.
func (v *Vault) ToSnapshot() Snapshot {
	return Snapshot{
		Address:           v.Address,
		Config:            v.Config,
		Epoch:             v.Epoch,
		Option:            v.Option,
		LastEpochOption:   v.LastEpochOption,
		AuctionProcessed:  v.AuctionProcessed,
		StartTime:         v.StartTime,
		LastTotalAssets:   v.LastTotalAssets,
		TotalWithdrawals:  v.TotalWithdrawals,
		CollateralBalance: v.CollateralBalance,
		ShortContracts:    v.ShortContracts,
		TotalShares:       v.TotalShares,
		Shares:            v.shares,
	}
}

// RestoreFromSnapshot rehydrates a vault's own state (not its Auction or
// Queue, which the caller restores separately and assigns to v.Auction /
// v.Queue).
func RestoreFromSnapshot(s Snapshot) *Vault {
	v := New(s.Address, s.Config)
	v.Epoch = s.Epoch
	v.Option = s.Option
	v.LastEpochOption = s.LastEpochOption
	v.AuctionProcessed = s.AuctionProcessed
	v.StartTime = s.StartTime
	v.LastTotalAssets = s.LastTotalAssets
	v.TotalWithdrawals = s.TotalWithdrawals
	v.CollateralBalance = s.CollateralBalance
	v.ShortContracts = s.ShortContracts
	v.TotalShares = s.TotalShares
	if s.Shares != nil {
		v.shares = s.Shares
	}
	return v
}
