// Package pricer implements domain.Pricer. The Black-Scholes and
// delta-strike math is the teacher's BlackScholesModel
// (derivatives/domain/pricing.go) rewritten against fixedmath.Fixed
// instead of float64 throughout so the vault domain layer never
// round-trips a fixed-point price through binary floating point except
// at the transcendental-function boundary fixedmath itself already
// accepts (Sqrt/Exp/Ln/NormCDF).
package pricer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/vaultengine/internal/fixedmath"
)

const secondsPerYear = 365 * 24 * 3600

var half = fixedmath.FromDecimal(decimal.NewFromFloat(0.5))

// Feed is the external price oracle this pricer quotes spot from.
// Deliberately minimal — a single "latest answer" call, mirroring the
// Pool's own oracle reference in spec.md §6.
type Feed interface {
	LatestAnswer64x64() (fixedmath.Fixed, error)
}

// BlackScholes is the in-process pricer implementation: spot from a
// Feed, volatility and risk-free rate fixed at construction (this vault
// engine doesn't model a vol surface; the teacher's own BlackScholesModel
// is likewise a flat-vol, flat-rate approximation).
type BlackScholes struct {
	feed  Feed
	rate  fixedmath.Fixed
	vol   fixedmath.Fixed
	grid  fixedmath.Fixed // strike-rounding grid, e.g. 1.0 for whole-unit strikes
}

// New returns a Black-Scholes pricer quoting against feed with a flat
// annualized risk-free rate, flat implied volatility, and a strike
// rounding grid.
func New(feed Feed, rate, vol, grid fixedmath.Fixed) *BlackScholes {
	return &BlackScholes{feed: feed, rate: rate, vol: vol, grid: grid}
}

// LatestAnswer64x64 returns the feed's current spot.
func (p *BlackScholes) LatestAnswer64x64() (fixedmath.Fixed, error) {
	return p.feed.LatestAnswer64x64()
}

// GetTimeToMaturity64x64 returns (expiry-now)/(365 days) as a 64.64
// fraction of a year, floored at zero for an already-expired option.
func (p *BlackScholes) GetTimeToMaturity64x64(expiry int64) (fixedmath.Fixed, error) {
	remaining := expiry - time.Now().Unix()
	if remaining < 0 {
		return fixedmath.Zero, nil
	}
	return fixedmath.FromInt64(remaining).Div(fixedmath.FromInt64(secondsPerYear))
}

// GetDeltaStrikePrice64x64 inverts the Black-Scholes delta formula for
// strike at the target delta, holding spot/vol/rate/tau fixed:
// K = S * exp(-sigma*sqrt(tau)*N^-1(delta) + (r+0.5*sigma^2)*tau) for a
// call, mirrored for a put via delta-1.
func (p *BlackScholes) GetDeltaStrikePrice64x64(isCall bool, expiry int64, delta fixedmath.Fixed) (fixedmath.Fixed, error) {
	spot, err := p.feed.LatestAnswer64x64()
	if err != nil {
		return fixedmath.Zero, err
	}
	tau, err := p.timeToMaturity(expiry)
	if err != nil {
		return fixedmath.Zero, err
	}
	sqrtTau, err := tau.Sqrt()
	if err != nil {
		return fixedmath.Zero, err
	}

	targetDelta := delta
	if !isCall {
		one := fixedmath.FromInt64(1)
		targetDelta, err = delta.Sub(one)
		if err != nil {
			return fixedmath.Zero, err
		}
		targetDelta, err = fixedmath.Zero.Sub(targetDelta)
		if err != nil {
			return fixedmath.Zero, err
		}
	}
	invCDF, err := fixedmath.InvNormCDF(targetDelta)
	if err != nil {
		return fixedmath.Zero, err
	}

	volSqrtTau, err := p.vol.Mul(sqrtTau)
	if err != nil {
		return fixedmath.Zero, err
	}
	drift, err := p.driftTerm(tau)
	if err != nil {
		return fixedmath.Zero, err
	}

	exponent, err := volSqrtTau.Mul(invCDF)
	if err != nil {
		return fixedmath.Zero, err
	}
	exponent, err = fixedmath.Zero.Sub(exponent)
	if err != nil {
		return fixedmath.Zero, err
	}
	exponent, err = exponent.Add(drift)
	if err != nil {
		return fixedmath.Zero, err
	}

	factor, err := exponent.Exp()
	if err != nil {
		return fixedmath.Zero, err
	}
	return spot.Mul(factor)
}

func (p *BlackScholes) driftTerm(tau fixedmath.Fixed) (fixedmath.Fixed, error) {
	volSq, err := p.vol.Mul(p.vol)
	if err != nil {
		return fixedmath.Zero, err
	}
	halfVolSq, err := half.Mul(volSq)
	if err != nil {
		return fixedmath.Zero, err
	}
	rPlusHalfVolSq, err := p.rate.Add(halfVolSq)
	if err != nil {
		return fixedmath.Zero, err
	}
	return rPlusHalfVolSq.Mul(tau)
}

// SnapToGrid64x64 rounds x to the nearest multiple of the configured
// strike grid.
func (p *BlackScholes) SnapToGrid64x64(isCall bool, x fixedmath.Fixed) (fixedmath.Fixed, error) {
	if p.grid.Sign() <= 0 {
		return x, nil
	}
	ratio, err := x.Div(p.grid)
	if err != nil {
		return fixedmath.Zero, err
	}
	rounded, err := ratio.Add(half)
	if err != nil {
		return fixedmath.Zero, err
	}
	whole := fixedmath.FromInt64(truncToInt64(rounded))
	return whole.Mul(p.grid)
}

func truncToInt64(x fixedmath.Fixed) int64 {
	d := x.Decimal()
	return d.IntPart()
}

// GetBlackScholesPrice64x64 is the vanilla Black-Scholes premium at
// strike for isCall, given spot and timeToMaturity already computed by
// the caller (this lets DeriveAuctionPrices reuse one spot/tau pair
// across both the rounded and offset strikes).
func (p *BlackScholes) GetBlackScholesPrice64x64(spot, strike, timeToMaturity fixedmath.Fixed, isCall bool) (fixedmath.Fixed, error) {
	if strike.Sign() <= 0 || timeToMaturity.Sign() <= 0 {
		return fixedmath.Zero, fmt.Errorf("pricer: non-positive strike or time to maturity")
	}
	sqrtTau, err := timeToMaturity.Sqrt()
	if err != nil {
		return fixedmath.Zero, err
	}
	volSqrtTau, err := p.vol.Mul(sqrtTau)
	if err != nil {
		return fixedmath.Zero, err
	}
	logMoneyness, err := logRatio(spot, strike)
	if err != nil {
		return fixedmath.Zero, err
	}
	drift, err := p.driftTerm(timeToMaturity)
	if err != nil {
		return fixedmath.Zero, err
	}
	numerator, err := logMoneyness.Add(drift)
	if err != nil {
		return fixedmath.Zero, err
	}
	d1, err := numerator.Div(volSqrtTau)
	if err != nil {
		return fixedmath.Zero, err
	}
	d2, err := d1.Sub(volSqrtTau)
	if err != nil {
		return fixedmath.Zero, err
	}

	discount, err := p.discountFactor(timeToMaturity)
	if err != nil {
		return fixedmath.Zero, err
	}

	if isCall {
		nd1 := d1.NormCDF()
		nd2 := d2.NormCDF()
		spotTerm, err := spot.Mul(nd1)
		if err != nil {
			return fixedmath.Zero, err
		}
		strikeTerm, err := strike.Mul(discount)
		if err != nil {
			return fixedmath.Zero, err
		}
		strikeTerm, err = strikeTerm.Mul(nd2)
		if err != nil {
			return fixedmath.Zero, err
		}
		return spotTerm.Sub(strikeTerm)
	}

	negD1, err := fixedmath.Zero.Sub(d1)
	if err != nil {
		return fixedmath.Zero, err
	}
	negD2, err := fixedmath.Zero.Sub(d2)
	if err != nil {
		return fixedmath.Zero, err
	}
	nNegD1 := negD1.NormCDF()
	nNegD2 := negD2.NormCDF()
	strikeTerm, err := strike.Mul(discount)
	if err != nil {
		return fixedmath.Zero, err
	}
	strikeTerm, err = strikeTerm.Mul(nNegD2)
	if err != nil {
		return fixedmath.Zero, err
	}
	spotTerm, err := spot.Mul(nNegD1)
	if err != nil {
		return fixedmath.Zero, err
	}
	return strikeTerm.Sub(spotTerm)
}

func (p *BlackScholes) discountFactor(tau fixedmath.Fixed) (fixedmath.Fixed, error) {
	rt, err := p.rate.Mul(tau)
	if err != nil {
		return fixedmath.Zero, err
	}
	negRT, err := fixedmath.Zero.Sub(rt)
	if err != nil {
		return fixedmath.Zero, err
	}
	return negRT.Exp()
}

func logRatio(spot, strike fixedmath.Fixed) (fixedmath.Fixed, error) {
	ratio, err := spot.Div(strike)
	if err != nil {
		return fixedmath.Zero, err
	}
	return ratio.Ln()
}

func (p *BlackScholes) timeToMaturity(expiry int64) (fixedmath.Fixed, error) {
	return p.GetTimeToMaturity64x64(expiry)
}
