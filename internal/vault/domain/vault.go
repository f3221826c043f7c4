// Package domain implements the Vault aggregate: a single object
// replacing the source system's diamond/facet split (Base/Admin/View,
// §9 design note) that owns an Option, composes an Auction
// (internal/auction/domain), a deposit Queue (internal/depositqueue/domain)
// and Accounting (internal/vaultaccounting/domain), and drives the
// keeper-facing EpochController operations (§4.7). Grounded on the
// teacher's order aggregate (order/domain/order.go), which is likewise a
// single struct carrying embedded sub-state through an explicit status
// machine rather than a service spread across multiple objects.
package domain

import (
	"math/big"

	auction "github.com/wyfcoding/vaultengine/internal/auction/domain"
	"github.com/wyfcoding/vaultengine/internal/calendar"
	depositqueue "github.com/wyfcoding/vaultengine/internal/depositqueue/domain"
	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	accounting "github.com/wyfcoding/vaultengine/internal/vaultaccounting/domain"
	"github.com/wyfcoding/vaultengine/internal/vaulterrors"
)

// Option is the per-epoch contract the vault underwrites, immutable
// once written by InitializeAuction for its epoch.
type Option struct {
	Expiry       int64
	Strike       fixedmath.Fixed
	LongTokenID  *big.Int
	ShortTokenID *big.Int
}

// Config is the vault's immutable underwriting configuration, set at
// construction and never mutated by epoch operations.
type Config struct {
	IsCall             bool
	UnderlyingDecimals int32
	BaseDecimals       int32

	Delta       fixedmath.Fixed // target option delta, in (0,1)
	DeltaOffset fixedmath.Fixed // delta − deltaOffset > 0

	StartOffset int64 // seconds after friday(now), default 2h
	EndOffset   int64 // seconds after friday(now), default 4h

	ReserveRate    fixedmath.Fixed
	WithdrawalFee  fixedmath.Fixed
	PerformanceFee fixedmath.Fixed

	MinAuctionSize *big.Int

	FeeRecipient string
	Keeper       string
}

// Vault is the per-market aggregate. Epoch, Option and the withdrawal
// lock are its own state; Shares/TotalShares implement the
// depositqueue.SharesVault port so the queue can mint directly against
// this struct.
type Vault struct {
	Address [20]byte
	Config  Config

	Epoch           uint64
	Option          Option
	LastEpochOption Option

	Auction *auction.Auction
	Queue   *depositqueue.Queue

	AuctionProcessed bool
	StartTime        int64

	LastTotalAssets  *big.Int
	TotalWithdrawals *big.Int

	// CollateralBalance and ShortContracts are the vault's own ledger of
	// its two asset legs; the external CollateralToken/Pool ports are the
	// source of truth in production, this ledger mirrors them so
	// Accounting has something to compute against without a live
	// collaborator on every call.
	CollateralBalance *big.Int
	ShortContracts    *big.Int
	Accounting        *accounting.Accounting

	TotalShares *big.Int
	shares      map[string]*big.Int
}

// New returns an empty vault for epoch 0.
func New(address [20]byte, cfg Config) *Vault {
	return &Vault{
		Address:           address,
		Config:            cfg,
		Option:            Option{Strike: fixedmath.Zero},
		LastEpochOption:   Option{Strike: fixedmath.Zero},
		LastTotalAssets:   big.NewInt(0),
		TotalWithdrawals:  big.NewInt(0),
		CollateralBalance: big.NewInt(0),
		ShortContracts:    big.NewInt(0),
		Accounting: &accounting.Accounting{
			ReserveRate:        cfg.ReserveRate,
			WithdrawalFee:      cfg.WithdrawalFee,
			PerformanceFee:     cfg.PerformanceFee,
			IsCall:             cfg.IsCall,
			UnderlyingDecimals: cfg.UnderlyingDecimals,
			BaseDecimals:       cfg.BaseDecimals,
		},
		TotalShares:      big.NewInt(0),
		shares:           make(map[string]*big.Int),
		AuctionProcessed: true,
		Queue:            depositqueue.New(address, big.NewInt(0)),
	}
}

// TotalAssets values the vault's current holdings using the strike of
// the epoch whose short position is still outstanding (LastEpochOption,
// until ProcessAuction overwrites it with the current Option).
func (v *Vault) TotalAssets() (*big.Int, error) {
	strike := v.LastEpochOption.Strike
	if strike.Sign() == 0 {
		strike = fixedmath.FromInt64(1)
	}
	return v.Accounting.TotalAssets(v.CollateralBalance, v.ShortContracts, strike)
}

// SharesOf returns holder's vault share balance.
func (v *Vault) SharesOf(holder string) *big.Int {
	if b, ok := v.shares[holder]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// MintSharesTo implements depositqueue.domain.SharesVault.
func (v *Vault) MintSharesTo(receiver string, shares *big.Int) error {
	if shares.Sign() < 0 {
		return vaulterrors.ErrValueBelowMinimum
	}
	cur := v.SharesOf(receiver)
	v.shares[receiver] = new(big.Int).Add(cur, shares)
	v.TotalShares.Add(v.TotalShares, shares)
	return nil
}

func (v *Vault) burnShares(holder string, shares *big.Int) error {
	cur := v.SharesOf(holder)
	if cur.Cmp(shares) < 0 {
		return vaulterrors.ErrValueExceedsMaximum
	}
	v.shares[holder] = new(big.Int).Sub(cur, shares)
	v.TotalShares.Sub(v.TotalShares, shares)
	return nil
}

// Deposit implements depositqueue.domain.SharesVault: mints shares
// against collateral at the share price implied by totalAssets measured
// before the collateral is folded into the vault's own balance.
func (v *Vault) Deposit(collateral *big.Int) (*big.Int, error) {
	totalAssetsBefore, err := v.TotalAssets()
	if err != nil {
		return nil, err
	}
	var shares *big.Int
	if v.TotalShares.Sign() == 0 || totalAssetsBefore.Sign() == 0 {
		shares = new(big.Int).Set(collateral)
	} else {
		shares = new(big.Int).Div(new(big.Int).Mul(collateral, v.TotalShares), totalAssetsBefore)
	}
	v.CollateralBalance.Add(v.CollateralBalance, collateral)
	return shares, nil
}

// CheckWithdrawalLock returns ErrAuctionNotProcessed if now has reached
// the current epoch's auction start while processAuction has not yet
// run (§4.7.1).
func (v *Vault) CheckWithdrawalLock(now int64) error {
	if now >= v.StartTime && !v.AuctionProcessed {
		return vaulterrors.ErrAuctionNotProcessed
	}
	return nil
}

// NextOptionParams is the result of deriving the next epoch's option
// and auction window (§4.7.2 steps 1-2), before any collaborator calls.
type NextOptionParams struct {
	Expiry               int64
	Strike               fixedmath.Fixed
	LongTokenID          *big.Int
	ShortTokenID         *big.Int
	StartTime, EndTime   int64
}

// DeriveNextOption computes expiry/strike/token-ids/window for the
// option initializeAuction is about to write, given the delta-strike
// the pricer returned for (isCall, expiry, delta) already snapped to
// the pool's strike grid.
func (v *Vault) DeriveNextOption(now int64, snappedStrike fixedmath.Fixed) NextOptionParams {
	expiry := calendar.NextFriday(now)
	fri := calendar.Friday(now)
	long, short := LongShortTokenIDs(v.Config.IsCall, expiry, snappedStrike)
	return NextOptionParams{
		Expiry:       expiry,
		Strike:       snappedStrike,
		LongTokenID:  long,
		ShortTokenID: short,
		StartTime:    fri + v.Config.StartOffset,
		EndTime:      fri + v.Config.EndOffset,
	}
}

// ApplyNextOption records the option written by initializeAuction and
// resets the withdrawal lock (§4.7.1, §4.7.2 step 3). It does not touch
// Epoch: the epoch counter advances only in InitializeEpoch.
func (v *Vault) ApplyNextOption(now int64, p NextOptionParams) {
	v.Option = Option{
		Expiry:       p.Expiry,
		Strike:       p.Strike,
		LongTokenID:  p.LongTokenID,
		ShortTokenID: p.ShortTokenID,
	}
	v.StartTime = p.StartTime
	v.AuctionProcessed = false
}

// AuctionPrices is the max/min auction price pair derived in §4.7.4.
type AuctionPrices struct {
	Max, Min fixedmath.Fixed
}

// DeriveAuctionPrices computes the ITM/OTM price pair for the strike
// already recorded for the next auction and a freshly-quoted offset
// strike, per §4.7.4: for calls, the lower (ITM) strike supplies
// maxPrice, the higher (OTM) strike supplies minPrice, both rescaled by
// spot into collateral units; for puts, the higher strike supplies
// maxPrice with no rescaling.
func DeriveAuctionPrices(isCall bool, roundedStrike, offsetStrike, spot, timeToMaturity fixedmath.Fixed, bs func(spot, strike, tau fixedmath.Fixed, isCall bool) (fixedmath.Fixed, error)) (AuctionPrices, error) {
	if roundedStrike.Sign() <= 0 {
		return AuctionPrices{}, vaulterrors.ErrValueBelowMinimum
	}
	roundedPrice, err := bs(spot, roundedStrike, timeToMaturity, isCall)
	if err != nil {
		return AuctionPrices{}, err
	}
	offsetPrice, err := bs(spot, offsetStrike, timeToMaturity, isCall)
	if err != nil {
		return AuctionPrices{}, err
	}

	var itmPrice, otmPrice fixedmath.Fixed
	if isCall {
		// lower strike is further ITM for a call.
		if roundedStrike.Cmp(offsetStrike) <= 0 {
			itmPrice, otmPrice = roundedPrice, offsetPrice
		} else {
			itmPrice, otmPrice = offsetPrice, roundedPrice
		}
		maxP, err := itmPrice.Div(spot)
		if err != nil {
			return AuctionPrices{}, err
		}
		minP, err := otmPrice.Div(spot)
		if err != nil {
			return AuctionPrices{}, err
		}
		return AuctionPrices{Max: maxP, Min: minP}, nil
	}

	// higher strike is further ITM for a put; no spot rescaling.
	if roundedStrike.Cmp(offsetStrike) >= 0 {
		itmPrice, otmPrice = roundedPrice, offsetPrice
	} else {
		itmPrice, otmPrice = offsetPrice, roundedPrice
	}
	return AuctionPrices{Max: itmPrice, Min: otmPrice}, nil
}
