package pricer

import (
	"testing"
	"time"

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

type stubFeed struct{ spot fixedmath.Fixed }

func (f stubFeed) LatestAnswer64x64() (fixedmath.Fixed, error) { return f.spot, nil }

func TestGetTimeToMaturity64x64FloorsAtZero(t *testing.T) {
	p := New(stubFeed{}, fixedmath.Zero, fixedmath.Zero, fixedmath.Zero)
	tau, err := p.GetTimeToMaturity64x64(time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)
	require.True(t, tau.IsZero())
}

func TestGetTimeToMaturity64x64FutureExpiry(t *testing.T) {
	p := New(stubFeed{}, fixedmath.Zero, fixedmath.Zero, fixedmath.Zero)
	expiry := time.Now().Add(365 * 24 * time.Hour).Unix()
	tau, err := p.GetTimeToMaturity64x64(expiry)
	require.NoError(t, err)
	require.InDelta(t, 1.0, mustFloat(t, tau), 0.01)
}

func TestGetBlackScholesPriceCallIsPositiveAndBoundedBySpot(t *testing.T) {
	p := New(stubFeed{}, fixedmath.Zero, fx(t, "0.6"), fixedmath.Zero)
	spot := fx(t, "100")
	strike := fx(t, "100")
	tau := fx(t, "0.25")
	price, err := p.GetBlackScholesPrice64x64(spot, strike, tau, true)
	require.NoError(t, err)
	require.Greater(t, mustFloat(t, price), 0.0)
	require.Less(t, mustFloat(t, price), mustFloat(t, spot))
}

func TestGetBlackScholesPricePutPositive(t *testing.T) {
	p := New(stubFeed{}, fixedmath.Zero, fx(t, "0.6"), fixedmath.Zero)
	spot := fx(t, "100")
	strike := fx(t, "100")
	tau := fx(t, "0.25")
	price, err := p.GetBlackScholesPrice64x64(spot, strike, tau, false)
	require.NoError(t, err)
	require.Greater(t, mustFloat(t, price), 0.0)
}

func TestGetBlackScholesPriceRejectsNonPositiveInputs(t *testing.T) {
	p := New(stubFeed{}, fixedmath.Zero, fx(t, "0.6"), fixedmath.Zero)
	_, err := p.GetBlackScholesPrice64x64(fx(t, "100"), fixedmath.Zero, fx(t, "0.25"), true)
	require.Error(t, err)
}

func TestGetDeltaStrikePrice64x64CallIsPositive(t *testing.T) {
	spot := fx(t, "2000")
	p := New(stubFeed{spot: spot}, fixedmath.Zero, fx(t, "0.6"), fixedmath.Zero)
	expiry := time.Now().Add(7 * 24 * time.Hour).Unix()
	strike, err := p.GetDeltaStrikePrice64x64(true, expiry, fx(t, "0.3"))
	require.NoError(t, err)
	require.Greater(t, mustFloat(t, strike), 0.0)
}

func TestSnapToGrid64x64RoundsToNearestGrid(t *testing.T) {
	p := New(stubFeed{}, fixedmath.Zero, fixedmath.Zero, fx(t, "5"))
	snapped, err := p.SnapToGrid64x64(true, fx(t, "23"))
	require.NoError(t, err)
	require.InDelta(t, 25.0, mustFloat(t, snapped), 0.001)
}

func TestSnapToGrid64x64NoGridReturnsInput(t *testing.T) {
	p := New(stubFeed{}, fixedmath.Zero, fixedmath.Zero, fixedmath.Zero)
	x := fx(t, "23.7")
	snapped, err := p.SnapToGrid64x64(true, x)
	require.NoError(t, err)
	require.Equal(t, 0, snapped.Cmp(x))
}

func mustFloat(t *testing.T, x fixedmath.Fixed) float64 {
	t.Helper()
	f, _ := x.Decimal().Float64()
	return f
}
