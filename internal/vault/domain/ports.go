// Package domain holds the Vault aggregate — a single object replacing
// the source system's diamond/facet split (Admin/Base/View/Mock) per
// the design note in spec.md §9 — plus the external-collaborator PORTS
// (Pool, Pricer, ExchangeHelper, CollateralToken, OptionToken) it is
// driven through. Concrete implementations of these ports live in
// internal/vault/infrastructure; this package only declares the
// contracts, exactly the way derivatives/domain declares
// OptionContractRepository/PricingModel for its application layer to
// consume.
package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
)

// Amount is a 256-bit unsigned magnitude — collateral sizes, contract
// counts, pool token ids. Alias kept distinct from fixedmath.Fixed,
// which is always a signed 64.64 price/strike.
type Amount = *big.Int

// PoolSettings mirrors Pool.getPoolSettings().
type PoolSettings struct {
	Base             string
	Underlying       string
	BaseOracle       string
	UnderlyingOracle string
}

func liqID(tokenType uint) Amount {
	return new(big.Int).Lsh(big.NewInt(int64(tokenType)), 248)
}

// Reserved-liquidity and free-liquidity pool token ids, keyed by the
// upper byte of a pool token id (§6).
var (
	UnderlyingFreeLiqID     = liqID(0)
	BaseFreeLiqID           = liqID(1)
	UnderlyingReservedLiqID = liqID(2)
	BaseReservedLiqID       = liqID(3)
)

// Pool is the external options pool that issues long/short instruments,
// holds reserved/free liquidity, and settles expiry.
type Pool interface {
	GetPoolSettings() (PoolSettings, error)
	WriteFrom(from, to string, expiry int64, strike fixedmath.Fixed, size Amount, isCall bool) error
	SetDivestmentTimestamp(ts int64, isCall bool) error
	WithdrawReservedLiquidity(amount Amount, isCall bool) error
	GetPriceAfter64x64(expiry int64) (fixedmath.Fixed, error)
	BalanceOf(holder string, tokenID Amount) (Amount, error)
	SafeTransferFrom(from, to string, tokenID Amount, amount Amount) error
}

// Pricer returns spot, implied volatility, Black-Scholes prices, and
// delta-strike prices. Deliberately out of core scope; only the
// interface is contracted (§6).
type Pricer interface {
	LatestAnswer64x64() (fixedmath.Fixed, error)
	GetTimeToMaturity64x64(expiry int64) (fixedmath.Fixed, error)
	GetDeltaStrikePrice64x64(isCall bool, expiry int64, delta fixedmath.Fixed) (fixedmath.Fixed, error)
	SnapToGrid64x64(isCall bool, x fixedmath.Fixed) (fixedmath.Fixed, error)
	GetBlackScholesPrice64x64(spot, strike, timeToMaturity fixedmath.Fixed, isCall bool) (fixedmath.Fixed, error)
}

// ExchangeHelper swaps an arbitrary input token to the collateral token.
type ExchangeHelper interface {
	SwapWithToken(tokenIn, tokenOut string, amountIn Amount, callee, allowanceTarget string, data []byte, refundAddress string) (Amount, error)
}

// CollateralToken is the ERC20-like (or wrapped-native) collateral
// substrate.
type CollateralToken interface {
	BalanceOf(holder string) (Amount, error)
	Transfer(to string, amount Amount) error
	TransferFrom(from, to string, amount Amount) error
	Approve(spender string, amount Amount) error
}

// OptionToken is the ERC1155-like per-id fungible substrate the pool
// mints long/short positions into.
type OptionToken interface {
	BalanceOf(holder string, tokenID Amount) (Amount, error)
	SafeTransferFrom(from, to string, tokenID Amount, amount Amount) error
}
