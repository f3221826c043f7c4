// Package domain implements the vault's share & collateral accounting:
// total-assets composition, withdrawal distribution split between
// collateral and short-option-contract residuals, withdrawal-fee
// deduction, and performance-fee collection. Pure functions over
// balances supplied by the caller (vault aggregate) — this package never
// talks to the collateral token or pool directly, matching the
// teacher's collateral/domain package's allocation/haircut calculators.
package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
)

// Accounting holds the vault's fee/reserve configuration; all methods
// are pure given the balances passed in.
type Accounting struct {
	ReserveRate, WithdrawalFee, PerformanceFee fixedmath.Fixed
	IsCall                                     bool
	UnderlyingDecimals, BaseDecimals           int32
}

// TotalReserves is the reserve carve-out of the vault's raw collateral
// balance.
func (a *Accounting) TotalReserves(collateralBalance *big.Int) (*big.Int, error) {
	return fixedmath.Muli(a.ReserveRate, collateralBalance)
}

// TotalCollateral is the vault's spendable collateral, net of reserves.
func (a *Accounting) TotalCollateral(collateralBalance *big.Int) (*big.Int, error) {
	reserves, err := a.TotalReserves(collateralBalance)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(collateralBalance, reserves), nil
}

// TotalShortAsCollateral values the vault's outstanding short position
// (denominated in contracts) in collateral units at the given strike.
func (a *Accounting) TotalShortAsCollateral(shortContracts *big.Int, lastEpochStrike fixedmath.Fixed) (*big.Int, error) {
	return fixedmath.FromContractsToCollateral(shortContracts, a.IsCall, a.UnderlyingDecimals, a.BaseDecimals, lastEpochStrike)
}

// TotalAssets is the vault's net worth: spendable collateral plus the
// collateral value of its short position.
func (a *Accounting) TotalAssets(collateralBalance, shortContracts *big.Int, lastEpochStrike fixedmath.Fixed) (*big.Int, error) {
	collateral, err := a.TotalCollateral(collateralBalance)
	if err != nil {
		return nil, err
	}
	shortAsCollateral, err := a.TotalShortAsCollateral(shortContracts, lastEpochStrike)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Add(collateral, shortAsCollateral), nil
}

// PreviewWithdraw converts an asset amount to the shares that would be
// burned to withdraw it: shares = assets * totalSupply / totalAssets.
func (a *Accounting) PreviewWithdraw(assetAmount, totalSupply, totalAssets *big.Int) *big.Int {
	if totalAssets.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Div(new(big.Int).Mul(assetAmount, totalSupply), totalAssets)
}

// Distribution is the result of splitting an asset amount withdrawn
// from the vault into its collateral and short-contract components,
// net of the withdrawal fee.
type Distribution struct {
	ResidualCollateral     *big.Int
	ResidualShortContracts *big.Int
	CollateralFee          *big.Int
	ShortContractsFee      *big.Int
}

// WithdrawDistribution splits assetAmount proportionally between the
// vault's collateral and short-as-collateral holdings, converts the
// short-as-collateral portion back into short contracts, and deducts the
// withdrawal fee from each leg.
func (a *Accounting) WithdrawDistribution(assetAmount, totalCollateral, totalShortAsCollateral, totalAssets *big.Int, lastEpochStrike fixedmath.Fixed) (Distribution, error) {
	if totalAssets.Sign() == 0 {
		return Distribution{ResidualCollateral: big.NewInt(0), ResidualShortContracts: big.NewInt(0), CollateralFee: big.NewInt(0), ShortContractsFee: big.NewInt(0)}, nil
	}
	collateralShare := new(big.Int).Div(new(big.Int).Mul(totalCollateral, assetAmount), totalAssets)
	shortAsCollateralShare := new(big.Int).Div(new(big.Int).Mul(totalShortAsCollateral, assetAmount), totalAssets)

	shortContracts, err := fixedmath.FromCollateralToContracts(shortAsCollateralShare, a.IsCall, a.BaseDecimals, a.UnderlyingDecimals, lastEpochStrike)
	if err != nil {
		return Distribution{}, err
	}

	collateralFee, err := fixedmath.Muli(a.WithdrawalFee, collateralShare)
	if err != nil {
		return Distribution{}, err
	}
	shortContractsFee, err := fixedmath.Muli(a.WithdrawalFee, shortContracts)
	if err != nil {
		return Distribution{}, err
	}

	return Distribution{
		ResidualCollateral:     new(big.Int).Sub(collateralShare, collateralFee),
		ResidualShortContracts: new(big.Int).Sub(shortContracts, shortContractsFee),
		CollateralFee:          collateralFee,
		ShortContractsFee:      shortContractsFee,
	}, nil
}

// CollectPerformanceFee computes the performance fee owed on net income
// accrued since lastTotalAssets, where totalWithdrawals (reset by the
// caller after this call) is added back so mid-epoch withdrawals don't
// mask real income. Returns (fee, netIncome); both are zero if
// adjustedTotal <= lastTotalAssets.
func (a *Accounting) CollectPerformanceFee(totalAssets, totalWithdrawals, lastTotalAssets *big.Int) (*big.Int, *big.Int, error) {
	adjustedTotal := new(big.Int).Add(totalAssets, totalWithdrawals)
	if adjustedTotal.Cmp(lastTotalAssets) <= 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}
	netIncome := new(big.Int).Sub(adjustedTotal, lastTotalAssets)
	fee, err := fixedmath.Muli(a.PerformanceFee, netIncome)
	if err != nil {
		return nil, nil, err
	}
	return fee, netIncome, nil
}
