// Package domain implements the descending-price (Dutch) auction state
// machine: initialization, price setting, limit/market orders, the
// finalize-check run after every order mutation, and withdrawal. The
// aggregate composes an order-book arena (internal/orderbook/domain) and
// is driven exclusively by its application-layer service, never
// concurrently, matching the single-threaded serialised execution model.
package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	orderbook "github.com/wyfcoding/vaultengine/internal/orderbook/domain"
	"github.com/wyfcoding/vaultengine/internal/vaulterrors"
)

// Status is one of the five auction lifecycle states.
type Status int

const (
	Uninitialized Status = iota
	Initialized
	Finalized
	Processed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initialized:
		return "Initialized"
	case Finalized:
		return "Finalized"
	case Processed:
		return "Processed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Auction is the per-epoch aggregate.
type Auction struct {
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

	Book *orderbook.Book

	IsCall                           bool
	MinSize                          *big.Int
	UnderlyingDecimals, BaseDecimals int32
}

// New returns a fresh Uninitialized auction for epoch.
func New(epoch uint64, isCall bool, minSize *big.Int, underlyingDecimals, baseDecimals int32) *Auction {
	return &Auction{
		Epoch:              epoch,
		Status:             Uninitialized,
		Strike:             fixedmath.Zero,
		MaxPrice:           fixedmath.Zero,
		MinPrice:           fixedmath.Zero,
		LastPrice:          fixedmath.Zero,
		TotalContracts:     big.NewInt(0),
		TotalContractsSold: big.NewInt(0),
		TotalPremiums:      big.NewInt(0),
		Book:               orderbook.New(),
		IsCall:             isCall,
		MinSize:            minSize,
		UnderlyingDecimals: underlyingDecimals,
		BaseDecimals:       baseDecimals,
	}
}

const holdPeriod = 24 * 3600
const rescueWindow = 24 * 3600

func (a *Auction) cancel() {
	a.Status = Cancelled
	a.LastPrice = fixedmath.Max
	a.TotalPremiums = big.NewInt(0)
}

// Initialize transitions Uninitialized -> Initialized, or to Cancelled if
// any precondition fails (per spec, validation failures here are a
// terminal transition, not a returned error, so that buyer refunds can
// still proceed on a bad initialization).
func (a *Auction) Initialize(now, expiry int64, strike fixedmath.Fixed, startTime, endTime int64, longTokenID *big.Int) error {
	if a.Status != Uninitialized {
		return vaulterrors.ErrBadStatus
	}
	bad := startTime >= endTime ||
		now > startTime ||
		now > expiry ||
		strike.Sign() <= 0 ||
		longTokenID.Sign() <= 0
	if bad {
		a.cancel()
		return nil
	}
	a.Expiry = expiry
	a.Strike = strike
	a.StartTime = startTime
	a.EndTime = endTime
	a.LongTokenID = new(big.Int).Set(longTokenID)
	a.Status = Initialized
	return nil
}

// SetAuctionPrices stores max/min prices, or cancels the auction if they
// are non-positive or inverted.
func (a *Auction) SetAuctionPrices(max, min fixedmath.Fixed) error {
	if a.Status != Initialized {
		return vaulterrors.ErrBadStatus
	}
	if max.Sign() <= 0 || min.Sign() <= 0 || max.Cmp(min) <= 0 {
		a.cancel()
		return nil
	}
	a.MaxPrice = max
	a.MinPrice = min
	return nil
}

// PriceCurve returns the current descending-price curve value: maxPrice
// before startTime, minPrice at or after endTime, linear interpolation
// in between.
func (a *Auction) PriceCurve(now int64) fixedmath.Fixed {
	if now <= a.StartTime {
		return a.MaxPrice
	}
	if now >= a.EndTime {
		return a.MinPrice
	}
	elapsed := fixedmath.FromInt64(now - a.StartTime)
	total := fixedmath.FromInt64(a.EndTime - a.StartTime)
	ratio, _ := elapsed.Div(total)
	spread, _ := a.MaxPrice.Sub(a.MinPrice)
	attenuation, _ := ratio.Mul(spread)
	price, _ := a.MaxPrice.Sub(attenuation)
	return price
}

// ClearingPrice returns lastPrice once the auction has left Initialized,
// otherwise the live price curve value.
func (a *Auction) ClearingPrice(now int64) fixedmath.Fixed {
	switch a.Status {
	case Finalized, Processed, Cancelled:
		return a.LastPrice
	default:
		return a.PriceCurve(now)
	}
}

func (a *Auction) ensureTotalContracts(totalCollateral *big.Int) error {
	if a.TotalContracts.Sign() != 0 {
		return nil
	}
	contracts, err := fixedmath.FromCollateralToContracts(totalCollateral, a.IsCall, a.BaseDecimals, a.UnderlyingDecimals, a.Strike)
	if err != nil {
		return err
	}
	a.TotalContracts = contracts
	return nil
}

// finalizeCheck is run after every successful order add/cancel. It
// freezes totalContracts on first use, then walks the book from head
// accumulating size until either the price curve is undercut (break)
// or the accumulated size reaches totalContracts (auto-finalize at that
// order's price). Otherwise, after a break or a full walk, lastPrice
// tracks the last price visited, totalContractsSold the accumulated
// size, and the auction only finalizes if the auction window has
// already closed.
func (a *Auction) finalizeCheck(now int64, totalCollateral *big.Int) error {
	if err := a.ensureTotalContracts(totalCollateral); err != nil {
		return err
	}
	clearing := a.ClearingPrice(now)
	accumulated := big.NewInt(0)
	var lastVisited fixedmath.Fixed
	visitedAny := false

	finalized := false
	a.Book.Walk(func(d orderbook.Data) bool {
		price := fixedmath.FromRawBits(d.Price)
		if price.Cmp(clearing) < 0 {
			return false
		}
		visitedAny = true
		lastVisited = price
		accumulated.Add(accumulated, d.Size)
		if accumulated.Cmp(a.TotalContracts) >= 0 {
			a.LastPrice = price
			a.TotalContractsSold = new(big.Int).Set(a.TotalContracts)
			a.Status = Finalized
			finalized = true
			return false
		}
		return true
	})
	if finalized {
		return nil
	}
	if visitedAny {
		a.LastPrice = lastVisited
	}
	a.TotalContractsSold = accumulated
	if now > a.EndTime {
		a.Status = Finalized
	}
	return nil
}

// AddLimitOrder inserts a limit order and runs the finalize check.
// Returns the new order id and the collateral cost the buyer must fund.
func (a *Auction) AddLimitOrder(now int64, price fixedmath.Fixed, size *big.Int, buyer string, totalCollateral *big.Int) (orderbook.ID, *big.Int, error) {
	if a.Status != Initialized {
		return 0, nil, vaulterrors.ErrBadStatus
	}
	if price.Sign() <= 0 {
		return 0, nil, vaulterrors.ErrValueBelowMinimum
	}
	if size.Cmp(a.MinSize) < 0 {
		return 0, nil, vaulterrors.ErrSizeBelowMinimum
	}
	if now > a.EndTime {
		return 0, nil, vaulterrors.ErrBadStatus
	}
	cost, err := fixedmath.Muli(price, size)
	if err != nil {
		return 0, nil, err
	}
	id := a.Book.Insert(price.Bits(), size, buyer)
	if now >= a.StartTime {
		if err := a.finalizeCheck(now, totalCollateral); err != nil {
			return 0, nil, err
		}
	}
	return id, cost, nil
}

// AddMarketOrder fills at the live curve price, failing if the implied
// cost exceeds maxCost.
func (a *Auction) AddMarketOrder(now int64, size, maxCost *big.Int, buyer string, totalCollateral *big.Int) (orderbook.ID, fixedmath.Fixed, *big.Int, error) {
	if a.Status != Initialized {
		return 0, fixedmath.Zero, nil, vaulterrors.ErrBadStatus
	}
	if now < a.StartTime || now > a.EndTime {
		return 0, fixedmath.Zero, nil, vaulterrors.ErrBadStatus
	}
	if size.Cmp(a.MinSize) < 0 {
		return 0, fixedmath.Zero, nil, vaulterrors.ErrSizeBelowMinimum
	}
	price := a.PriceCurve(now)
	cost, err := fixedmath.Muli(price, size)
	if err != nil {
		return 0, fixedmath.Zero, nil, err
	}
	if cost.Cmp(maxCost) > 0 {
		return 0, fixedmath.Zero, nil, vaulterrors.ErrCostExceedsMax
	}
	id := a.Book.Insert(price.Bits(), size, buyer)
	if err := a.finalizeCheck(now, totalCollateral); err != nil {
		return 0, fixedmath.Zero, nil, err
	}
	return id, price, cost, nil
}

// CancelLimitOrder removes an order owned by buyer and re-runs the
// finalize check if the auction window has opened.
func (a *Auction) CancelLimitOrder(now int64, id orderbook.ID, buyer string, totalCollateral *big.Int) error {
	if a.Status != Initialized {
		return vaulterrors.ErrBadStatus
	}
	data := a.Book.GetOrderByID(id)
	if data.ID == 0 {
		return vaulterrors.ErrOrderNotFound
	}
	if data.Buyer != buyer {
		return vaulterrors.ErrBuyerMismatch
	}
	if !a.Book.Remove(id) {
		return vaulterrors.ErrOrderNotFound
	}
	if now >= a.StartTime {
		return a.finalizeCheck(now, totalCollateral)
	}
	return nil
}

// FinalizeAuction is callable by anyone: it auto-cancels a stale
// auction (endTime + 24h elapsed, still unprocessed) or, if the window
// has opened, re-runs the finalize check.
func (a *Auction) FinalizeAuction(now int64, totalCollateral *big.Int) error {
	if now >= a.EndTime+rescueWindow && (a.Status == Initialized || a.Status == Finalized) {
		a.cancel()
		return nil
	}
	if now > a.StartTime && a.Status == Initialized {
		return a.finalizeCheck(now, totalCollateral)
	}
	return nil
}

// TransferPremium sets totalPremiums = lastPrice * totalContractsSold,
// exactly once.
func (a *Auction) TransferPremium() (*big.Int, error) {
	if a.Status != Finalized {
		return nil, vaulterrors.ErrBadStatus
	}
	if a.TotalPremiums.Sign() != 0 {
		return nil, vaulterrors.ErrPremiumsAlreadyTransferred
	}
	premiums, err := fixedmath.Muli(a.LastPrice, a.TotalContractsSold)
	if err != nil {
		return nil, err
	}
	a.TotalPremiums = premiums
	return premiums, nil
}

// ProcessAuction transitions Finalized -> Processed, requiring either no
// contracts sold or that premiums were transferred and the auction holds
// enough long tokens.
func (a *Auction) ProcessAuction(now int64, longTokenBalance *big.Int) error {
	if a.Status != Finalized {
		return vaulterrors.ErrBadStatus
	}
	if a.TotalContractsSold.Sign() != 0 {
		if a.TotalPremiums.Sign() == 0 {
			return vaulterrors.ErrPremiumsNotTransferred
		}
		if longTokenBalance.Cmp(a.TotalContractsSold) < 0 {
			return vaulterrors.ErrLongTokensMissing
		}
	}
	a.Status = Processed
	a.ProcessedTime = now
	return nil
}
