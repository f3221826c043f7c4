package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	"github.com/wyfcoding/vaultengine/internal/vaulterrors"
)

func fx(t *testing.T, s string) fixedmath.Fixed {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return fixedmath.FromDecimal(d)
}

func weiOf(t *testing.T, s string) *big.Int {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d.Mul(decimal.New(1, 18)).BigInt()
}

func newCallAuction(t *testing.T) (*Auction, int64) {
	t.Helper()
	now := int64(1_700_000_000)
	a := New(1, true, weiOf(t, "0.1"), 18, 18)
	require.NoError(t, a.Initialize(now, now+7*24*3600, fx(t, "2000"), now+100, now+1000, big.NewInt(7)))
	require.Equal(t, Initialized, a.Status)
	require.NoError(t, a.SetAuctionPrices(fx(t, "0.1"), fx(t, "0.01")))
	return a, now
}

func TestInitializeCancelsOnBadPreconditions(t *testing.T) {
	a := New(1, true, weiOf(t, "0.1"), 18, 18)
	now := int64(1000)
	require.NoError(t, a.Initialize(now, now+10, fx(t, "2000"), now+50, now+10, big.NewInt(1))) // startTime >= endTime
	require.Equal(t, Cancelled, a.Status)
	require.Equal(t, 0, a.LastPrice.Cmp(fixedmath.Max))
}

func TestSetAuctionPricesCancelsOnInvertedPrices(t *testing.T) {
	a := New(1, true, weiOf(t, "0.1"), 18, 18)
	now := int64(1000)
	require.NoError(t, a.Initialize(now, now+7*24*3600, fx(t, "2000"), now+100, now+1000, big.NewInt(1)))
	require.NoError(t, a.SetAuctionPrices(fx(t, "5"), fx(t, "10")))
	require.Equal(t, Cancelled, a.Status)
	require.Equal(t, 0, a.LastPrice.Cmp(fixedmath.Max))
}

func TestFullFillMarketOrderAuction(t *testing.T) {
	a, now := newCallAuction(t)
	totalCollateral := weiOf(t, "1000")
	maxCost := weiOf(t, "1000000")

	var lastID uint64
	for i, buyer := range []string{"b1", "b2", "b3"} {
		at := now + 100 + int64(i)
		id, _, _, err := a.AddMarketOrder(at, weiOf(t, "334"), maxCost, buyer, totalCollateral)
		require.NoError(t, err)
		lastID = uint64(id)
	}
	require.NotZero(t, lastID)
	require.Equal(t, Finalized, a.Status)
	require.Equal(t, 0, a.TotalContractsSold.Cmp(weiOf(t, "1000")))
}

func TestPartialFillAuction(t *testing.T) {
	a, now := newCallAuction(t)
	totalCollateral := weiOf(t, "1000")
	start := now + 100

	// B1: limit at maxPrice, large size -> fully filled once finalized.
	_, _, err := a.AddLimitOrder(start-50, fx(t, "0.1"), weiOf(t, "900"), "b1", totalCollateral)
	require.NoError(t, err)

	// B2: limit at minPrice, size T -> priced below clearing, unfilled.
	_, _, err = a.AddLimitOrder(start-40, fx(t, "0.01"), weiOf(t, "1000"), "b2", totalCollateral)
	require.NoError(t, err)

	// B3: market order at startTime for 0.2*T -> sets the clearing price.
	_, price, _, err := a.AddMarketOrder(start, weiOf(t, "200"), weiOf(t, "1000000"), "b3", totalCollateral)
	require.NoError(t, err)
	require.Equal(t, 0, price.Cmp(a.PriceCurve(start)))

	require.Equal(t, Finalized, a.Status)
	require.Equal(t, 0, a.TotalContractsSold.Cmp(weiOf(t, "1000")))
}

func TestAuctionCancelledOnBadPricesAllowsFullRefund(t *testing.T) {
	a := New(1, true, weiOf(t, "0.1"), 18, 18)
	now := int64(1_700_000_000)
	require.NoError(t, a.Initialize(now, now+7*24*3600, fx(t, "2000"), now+100, now+1000, big.NewInt(1)))

	_, _, err := a.AddLimitOrder(now+50, fx(t, "0.05"), weiOf(t, "10"), "b1", weiOf(t, "1000"))
	require.NoError(t, err)

	require.NoError(t, a.SetAuctionPrices(fx(t, "5"), fx(t, "10")))
	require.Equal(t, Cancelled, a.Status)

	refund, fill, err := a.Withdraw(now+200, "b1", nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), fill)
	wantRefund, _ := fixedmath.Muli(fx(t, "0.05"), weiOf(t, "10"))
	require.Equal(t, wantRefund.String(), refund.String())
}

func TestTransferPremiumOnlyOnce(t *testing.T) {
	a, now := newCallAuction(t)
	_, _, err := a.AddLimitOrder(now+100, fx(t, "0.1"), weiOf(t, "1000"), "b1", weiOf(t, "1000"))
	require.NoError(t, err)
	require.Equal(t, Finalized, a.Status)

	_, err = a.TransferPremium()
	require.NoError(t, err)
	_, err = a.TransferPremium()
	require.ErrorIs(t, err, vaulterrors.ErrPremiumsAlreadyTransferred)
}

func TestProcessAuctionRequiresLongTokens(t *testing.T) {
	a, now := newCallAuction(t)
	_, _, err := a.AddLimitOrder(now+100, fx(t, "0.1"), weiOf(t, "1000"), "b1", weiOf(t, "1000"))
	require.NoError(t, err)
	_, err = a.TransferPremium()
	require.NoError(t, err)

	err = a.ProcessAuction(now+1100, weiOf(t, "1"))
	require.ErrorIs(t, err, vaulterrors.ErrLongTokensMissing)

	err = a.ProcessAuction(now+1100, weiOf(t, "1000"))
	require.NoError(t, err)
	require.Equal(t, Processed, a.Status)
}

func TestWithdrawBeforeHoldPeriodFails(t *testing.T) {
	a, now := newCallAuction(t)
	_, _, err := a.AddLimitOrder(now+100, fx(t, "0.1"), weiOf(t, "1000"), "b1", weiOf(t, "1000"))
	require.NoError(t, err)
	_, err = a.TransferPremium()
	require.NoError(t, err)
	require.NoError(t, a.ProcessAuction(now+1100, weiOf(t, "1000")))

	_, _, err = a.Withdraw(now+1100, "b1", nil)
	require.ErrorIs(t, err, vaulterrors.ErrHoldPeriodActive)
}
