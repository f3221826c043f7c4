package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	orderbook "github.com/wyfcoding/vaultengine/internal/orderbook/domain"
	"github.com/wyfcoding/vaultengine/internal/vaulterrors"
)

// SettlementOracle is the slice of the Pool port (§6) withdraw needs:
// the post-expiry settlement spot. Contracted here as a domain-level
// port rather than imported from infrastructure, per the vault's
// external-collaborator design note.
type SettlementOracle interface {
	GetPriceAfter64x64(expiry int64) (fixedmath.Fixed, error)
}

const withdrawHoldPeriod = 24 * 3600

// Withdraw settles every order owned by buyer, removing it from the book
// and returning the refund (collateral) and fill (long-token/underlying
// amount) owed to them. Once the option has expired and oracle is
// non-nil, fill is reported as zero and its settlement value is added
// to refund instead.
func (a *Auction) Withdraw(now int64, buyer string, oracle SettlementOracle) (refund, fill *big.Int, err error) {
	return a.withdraw(now, buyer, oracle, true)
}

// PreviewWithdraw computes the same result as Withdraw without mutating
// the book, for read-only views.
func (a *Auction) PreviewWithdraw(now int64, buyer string, oracle SettlementOracle) (refund, fill *big.Int, err error) {
	return a.withdraw(now, buyer, oracle, false)
}

func (a *Auction) withdraw(now int64, buyer string, oracle SettlementOracle, mutate bool) (*big.Int, *big.Int, error) {
	if a.Status != Processed && a.Status != Cancelled {
		return nil, nil, vaulterrors.ErrBadStatus
	}
	if a.Status == Processed && now < a.ProcessedTime+withdrawHoldPeriod {
		return nil, nil, vaulterrors.ErrHoldPeriodActive
	}

	refund := big.NewInt(0)
	fill := big.NewInt(0)
	soldSoFar := big.NewInt(0)
	notFullyCancelled := a.LastPrice.Cmp(fixedmath.Max) < 0

	var toRemove []orderbook.ID
	a.Book.Walk(func(d orderbook.Data) bool {
		price := fixedmath.FromRawBits(d.Price)
		if d.Buyer == buyer {
			if notFullyCancelled && price.Cmp(a.LastPrice) >= 0 {
				paid, _ := fixedmath.Muli(price, d.Size)
				filled := new(big.Int).Set(d.Size)
				costSize := new(big.Int).Set(d.Size)
				after := new(big.Int).Add(soldSoFar, d.Size)
				if after.Cmp(a.TotalContracts) >= 0 {
					remainder := new(big.Int).Sub(a.TotalContracts, soldSoFar)
					if remainder.Sign() < 0 {
						remainder = big.NewInt(0)
					}
					costSize = remainder
					filled = new(big.Int).Set(remainder)
				}
				cost, _ := fixedmath.Muli(a.LastPrice, costSize)
				refund.Add(refund, new(big.Int).Sub(paid, cost))
				fill.Add(fill, filled)
			} else {
				paid, _ := fixedmath.Muli(price, d.Size)
				refund.Add(refund, paid)
			}
			if mutate {
				toRemove = append(toRemove, d.ID)
			}
		}
		soldSoFar.Add(soldSoFar, d.Size)
		return true
	})

	if mutate {
		for _, id := range toRemove {
			a.Book.Remove(id)
		}
	}

	if now >= a.Expiry && oracle != nil {
		exerciseAmount, err := a.settlementAmount(fill, oracle)
		if err != nil {
			return nil, nil, err
		}
		fill = big.NewInt(0)
		refund.Add(refund, exerciseAmount)
	}

	return refund, fill, nil
}

func (a *Auction) settlementAmount(fill *big.Int, oracle SettlementOracle) (*big.Int, error) {
	spot, err := oracle.GetPriceAfter64x64(a.Expiry)
	if err != nil {
		return nil, err
	}
	zero := big.NewInt(0)
	if fill.Sign() == 0 {
		return zero, nil
	}
	if a.IsCall {
		if spot.Cmp(a.Strike) <= 0 {
			return zero, nil
		}
		diff, _ := spot.Sub(a.Strike)
		ratio, err := diff.Div(spot)
		if err != nil {
			return zero, nil
		}
		amount, err := fixedmath.Muli(ratio, fill)
		if err != nil {
			return nil, err
		}
		return amount, nil
	}
	if a.Strike.Cmp(spot) <= 0 {
		return zero, nil
	}
	diff, _ := a.Strike.Sub(spot)
	value, err := fixedmath.Muli(diff, fill)
	if err != nil {
		return nil, err
	}
	return fixedmath.ToBaseTokenAmount(a.UnderlyingDecimals, a.BaseDecimals, value), nil
}
