package domain

import "math/big"

// Snapshot is the queue's persisted representation, exposing its
// otherwise package-private claim-balance bookkeeping for the
// infrastructure layer.
type Snapshot struct {
	Address               [AddressSize]byte
	Epoch                 uint64
	Paused                bool
	MaxTVL                *big.Int
	CurrentTokenID        *big.Int
	TotalQueuedCollateral *big.Int

	PricePerShare  map[string]*big.Int
	ClaimBalances  map[string]map[string]*big.Int
	HolderTokenIDs map[string]map[string]struct{}
}

// ToSnapshot copies the queue's full state out for persistence.
func (q *Queue) ToSnapshot() Snapshot {
	return Snapshot{
		Address:               q.Address,
		Epoch:                 q.Epoch,
		Paused:                q.Paused,
		MaxTVL:                q.MaxTVL,
		CurrentTokenID:        q.CurrentTokenID,
		TotalQueuedCollateral: q.TotalQueuedCollateral,
		PricePerShare:         q.pricePerShare,
		ClaimBalances:         q.claimBalances,
		HolderTokenIDs:        q.holderTokenIDs,
	}
}

// RestoreFromSnapshot rehydrates a queue from a prior ToSnapshot call.
func RestoreFromSnapshot(s Snapshot) *Queue {
	q := New(s.Address, s.MaxTVL)
	q.Epoch = s.Epoch
	q.Paused = s.Paused
	q.CurrentTokenID = s.CurrentTokenID
	q.TotalQueuedCollateral = s.TotalQueuedCollateral
	if s.PricePerShare != nil {
		q.pricePerShare = s.PricePerShare
	}
	if s.ClaimBalances != nil {
		q.claimBalances = s.ClaimBalances
	}
	if s.HolderTokenIDs != nil {
		q.holderTokenIDs = s.HolderTokenIDs
	}
	return q
}
