package fixedmath

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func fromString(t *testing.T, s string) Fixed {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return FromDecimal(d)
}

func TestCeilTwoSigFigsPinnedScenarios(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1.0", "1"},
		{"90", "90"},
		{"53510034427", "54000000000"},
		{"24450", "25000"},
		{"9999", "10000"},
		{"8863", "8900"},
		{"521", "530"},
		{"12.211", "13"},
		{"24.55", "25"},
		{"1.419", "1.5"},
		{"9.9994", "10"},
		{"0.07745", "0.078"},
		{"0.00994", "0.01"},
		{"0.0000068841", "0.0000069"},
		{"45", "45"},
	}
	for _, c := range cases {
		x := fromString(t, c.in)
		got, err := x.CeilTwoSigFigs()
		require.NoError(t, err)
		want := fromString(t, c.want)
		require.Equalf(t, 0, got.Cmp(want), "ceil(%s): got %s want %s", c.in, got.Decimal(), c.want)
	}
}

func TestFloorTwoSigFigsPinnedScenarios(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1.0", "1"},
		{"90", "90"},
		{"53510034427", "53000000000"},
		{"24450", "24000"},
		{"9999", "9900"},
		{"8863", "8800"},
		{"521", "520"},
		{"12.211", "12"},
		{"24.55", "24"},
		{"1.419", "1.4"},
		{"9.9994", "9.9"},
		{"0.07745", "0.077"},
		{"0.00994", "0.0099"},
		{"0.0000068841", "0.0000068"},
		{"45", "45"},
	}
	for _, c := range cases {
		x := fromString(t, c.in)
		got, err := x.FloorTwoSigFigs()
		require.NoError(t, err)
		want := fromString(t, c.want)
		require.Equalf(t, 0, got.Cmp(want), "floor(%s): got %s want %s", c.in, got.Decimal(), c.want)
	}
}

func TestTwoSigFigsZeroIsInvalidArgument(t *testing.T) {
	_, err := Zero.CeilTwoSigFigs()
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Zero.FloorTwoSigFigs()
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTwoSigFigsIdempotentOnAlreadyRounded(t *testing.T) {
	for _, s := range []string{"1", "90", "54000000000", "25000", "8900", "530", "13", "1.5"} {
		x := fromString(t, s)
		ceiled, err := x.CeilTwoSigFigs()
		require.NoError(t, err)
		require.Equal(t, 0, ceiled.Cmp(x))

		floored, err := x.FloorTwoSigFigs()
		require.NoError(t, err)
		require.Equal(t, 0, floored.Cmp(x))
	}
}

func TestMulDivRoundTrip(t *testing.T) {
	a := FromInt64(7)
	b := FromInt64(3)
	prod, err := a.Mul(b)
	require.NoError(t, err)
	require.Equal(t, 0, prod.Cmp(FromInt64(21)))

	q, err := prod.Div(b)
	require.NoError(t, err)
	require.Equal(t, 0, q.Cmp(a))
}

func TestDivByZero(t *testing.T) {
	_, err := FromInt64(1).Div(Zero)
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestFromContractsToCollateralCallPassesThrough(t *testing.T) {
	size := decimal.RequireFromString("1000").Mul(decimal.New(1, 18)).BigInt()
	strike := FromInt64(2000)
	out, err := FromContractsToCollateral(size, true, 18, 18, strike)
	require.NoError(t, err)
	require.Equal(t, size.String(), out.String())
}

func TestFromContractsToCollateralPutMultipliesByStrike(t *testing.T) {
	size := decimal.RequireFromString("1").Mul(decimal.New(1, 18)).BigInt()
	strike := FromInt64(2000)
	out, err := FromContractsToCollateral(size, false, 18, 18, strike)
	require.NoError(t, err)
	want := decimal.RequireFromString("2000").Mul(decimal.New(1, 18)).BigInt()
	require.Equal(t, want.String(), out.String())
}

func TestContractsCollateralRoundTripPut(t *testing.T) {
	size := decimal.RequireFromString("3.5").Mul(decimal.New(1, 18)).BigInt()
	strike := FromInt64(2000)
	collateral, err := FromContractsToCollateral(size, false, 18, 18, strike)
	require.NoError(t, err)
	back, err := FromCollateralToContracts(collateral, false, 18, 18, strike)
	require.NoError(t, err)
	require.Equal(t, size.String(), back.String())
}

func TestMuliRejectsNegativePrice(t *testing.T) {
	neg, err := Zero.Sub(FromInt64(1))
	require.NoError(t, err)
	_, err = Muli(neg, decimal.New(1, 0).BigInt())
	require.ErrorIs(t, err, ErrInvalidArgument)
}
