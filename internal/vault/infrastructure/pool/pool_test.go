package pool

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	"github.com/wyfcoding/vaultengine/internal/vault/domain"
)

func fx(t *testing.T, s string) fixedmath.Fixed {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return fixedmath.FromDecimal(d)
}

func TestGetPoolSettingsReturnsConstructedSettings(t *testing.T) {
	settings := domain.PoolSettings{Base: "base", Underlying: "underlying"}
	p := New(settings, fx(t, "2000"))
	got, err := p.GetPoolSettings()
	require.NoError(t, err)
	require.Equal(t, settings, got)
}

func TestWriteFromCreditsShortTokenID(t *testing.T) {
	p := New(domain.PoolSettings{}, fx(t, "2000"))
	strike := fx(t, "2100")
	expiry := int64(1000)
	require.NoError(t, p.WriteFrom("vault", "buyer", expiry, strike, big.NewInt(5), true))

	_, short := domain.LongShortTokenIDs(true, expiry, strike)
	bal, err := p.BalanceOf("buyer", short)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), bal)
}

func TestWriteFromRejectsNegativeSize(t *testing.T) {
	p := New(domain.PoolSettings{}, fx(t, "2000"))
	err := p.WriteFrom("vault", "buyer", 1000, fx(t, "2100"), big.NewInt(-1), true)
	require.Error(t, err)
}

func TestSafeTransferFromMovesBalance(t *testing.T) {
	p := New(domain.PoolSettings{}, fx(t, "2000"))
	strike := fx(t, "2100")
	expiry := int64(1000)
	require.NoError(t, p.WriteFrom("vault", "buyer", expiry, strike, big.NewInt(10), true))
	_, short := domain.LongShortTokenIDs(true, expiry, strike)

	require.NoError(t, p.SafeTransferFrom("buyer", "other", short, big.NewInt(4)))

	fromBal, err := p.BalanceOf("buyer", short)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(6), fromBal)

	toBal, err := p.BalanceOf("other", short)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(4), toBal)
}

func TestSafeTransferFromRejectsInsufficientBalance(t *testing.T) {
	p := New(domain.PoolSettings{}, fx(t, "2000"))
	err := p.SafeTransferFrom("nobody", "other", big.NewInt(1), big.NewInt(1))
	require.Error(t, err)
}

func TestBalanceOfUnknownHolderIsZero(t *testing.T) {
	p := New(domain.PoolSettings{}, fx(t, "2000"))
	bal, err := p.BalanceOf("nobody", big.NewInt(42))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), bal)
}

func TestGetPriceAfter64x64ReturnsFlatSpot(t *testing.T) {
	spot := fx(t, "1850")
	p := New(domain.PoolSettings{}, spot)
	price, err := p.GetPriceAfter64x64(123456)
	require.NoError(t, err)
	require.Equal(t, 0, price.Cmp(spot))
}

func TestWithdrawReservedLiquidityIsNoop(t *testing.T) {
	p := New(domain.PoolSettings{}, fx(t, "2000"))
	require.NoError(t, p.WithdrawReservedLiquidity(big.NewInt(100), true))
}

func TestSetDivestmentTimestampDoesNotError(t *testing.T) {
	p := New(domain.PoolSettings{}, fx(t, "2000"))
	require.NoError(t, p.SetDivestmentTimestamp(999, false))
}
