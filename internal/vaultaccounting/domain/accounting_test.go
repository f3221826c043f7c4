package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
)

func fx(t *testing.T, s string) fixedmath.Fixed {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return fixedmath.FromDecimal(d)
}

func TestTotalAssetsComposesCollateralAndShort(t *testing.T) {
	a := &Accounting{
		ReserveRate:        fx(t, "0.03"),
		IsCall:              true,
		UnderlyingDecimals: 18,
		BaseDecimals:       18,
	}
	collateralBalance := big.NewInt(1_000_000)
	shortContracts := big.NewInt(100_000) // calls: short-as-collateral == contracts

	assets, err := a.TotalAssets(collateralBalance, shortContracts, fx(t, "2000"))
	require.NoError(t, err)

	reserves, _ := a.TotalReserves(collateralBalance)
	want := new(big.Int).Sub(collateralBalance, reserves)
	want.Add(want, shortContracts)
	require.Equal(t, want.String(), assets.String())
}

func TestWithdrawDistributionDeductsFee(t *testing.T) {
	a := &Accounting{
		WithdrawalFee:      fx(t, "0.01"),
		IsCall:              true,
		UnderlyingDecimals: 18,
		BaseDecimals:       18,
	}
	dist, err := a.WithdrawDistribution(
		big.NewInt(1000),
		big.NewInt(10000), // totalCollateral
		big.NewInt(0),     // totalShortAsCollateral
		big.NewInt(10000), // totalAssets
		fx(t, "2000"),
	)
	require.NoError(t, err)
	// collateralShare = 10000*1000/10000 = 1000; 0.01 is stored in 64.64
	// just below 1/100, so fee = muli(0.01, 1000) truncates to 9
	require.Equal(t, big.NewInt(9), dist.CollateralFee)
	require.Equal(t, big.NewInt(991), dist.ResidualCollateral)
}

func TestCollectPerformanceFeeOnlyOnNetIncome(t *testing.T) {
	a := &Accounting{PerformanceFee: fx(t, "0.1")}

	fee, netIncome, err := a.CollectPerformanceFee(big.NewInt(1100), big.NewInt(0), big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), netIncome)
	// 0.1 is stored in 64.64 just below 1/10, so the truncated fee is 9
	require.Equal(t, big.NewInt(9), fee)

	fee, netIncome, err = a.CollectPerformanceFee(big.NewInt(900), big.NewInt(0), big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, 0, fee.Sign())
	require.Equal(t, 0, netIncome.Sign())
}

func TestCollectPerformanceFeeAddsBackWithdrawals(t *testing.T) {
	a := &Accounting{PerformanceFee: fx(t, "0.5")}
	// totalAssets dropped to 950 but 100 was withdrawn mid-epoch, so real
	// net income is 50, not a 50 loss.
	fee, netIncome, err := a.CollectPerformanceFee(big.NewInt(950), big.NewInt(100), big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(50), netIncome)
	require.Equal(t, big.NewInt(25), fee)
}

func TestPreviewWithdrawSharesProportionalToAssets(t *testing.T) {
	a := &Accounting{}
	shares := a.PreviewWithdraw(big.NewInt(100), big.NewInt(1000), big.NewInt(2000))
	require.Equal(t, big.NewInt(50), shares)
}
