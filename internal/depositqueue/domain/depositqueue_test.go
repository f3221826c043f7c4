package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	totalAssets  *big.Int
	totalSupply  *big.Int
	deposited    *big.Int
	mintedShares map[string]*big.Int
}

func newFakeVault() *fakeVault {
	return &fakeVault{
		totalAssets:  big.NewInt(0),
		totalSupply:  big.NewInt(0),
		deposited:    big.NewInt(0),
		mintedShares: make(map[string]*big.Int),
	}
}

func (v *fakeVault) Deposit(collateral *big.Int) (*big.Int, error) {
	var shares *big.Int
	if v.totalSupply.Sign() == 0 {
		shares = new(big.Int).Set(collateral)
	} else {
		shares = new(big.Int).Div(new(big.Int).Mul(collateral, v.totalSupply), v.totalAssets)
	}
	v.totalAssets.Add(v.totalAssets, collateral)
	v.totalSupply.Add(v.totalSupply, shares)
	v.deposited.Add(v.deposited, collateral)
	return shares, nil
}

func (v *fakeVault) MintSharesTo(receiver string, shares *big.Int) error {
	if v.mintedShares[receiver] == nil {
		v.mintedShares[receiver] = big.NewInt(0)
	}
	v.mintedShares[receiver].Add(v.mintedShares[receiver], shares)
	return nil
}

func addr(b byte) [AddressSize]byte {
	var a [AddressSize]byte
	a[0] = b
	return a
}

func TestDepositCancelRoundTrip(t *testing.T) {
	q := New(addr(1), big.NewInt(0))
	vault := newFakeVault()

	require.NoError(t, q.Deposit("alice", big.NewInt(10_000), vault))
	require.Equal(t, big.NewInt(10_000), q.BalanceOf(q.CurrentTokenID, "alice"))

	require.NoError(t, q.Cancel("alice", big.NewInt(10_000)))
	require.Equal(t, "0", q.BalanceOf(q.CurrentTokenID, "alice").String())
	require.Equal(t, 0, q.TotalQueuedCollateral.Sign())
}

func TestDepositThenEpochAdvanceThenRedeem(t *testing.T) {
	q := New(addr(1), big.NewInt(0))
	vault := newFakeVault()

	id0 := q.CurrentTokenID
	require.NoError(t, q.Deposit("alice", big.NewInt(10_000), vault))

	sharesMinted, err := q.ProcessDeposits(vault)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10_000), sharesMinted) // first depositor, 1:1

	require.NotEqual(t, id0.String(), q.CurrentTokenID.String())

	shares, err := q.Redeem(id0, "alice", "alice", vault)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10_000), shares)
	require.Equal(t, big.NewInt(10_000), vault.mintedShares["alice"])
}

func TestRedeemRejectsCurrentEpochToken(t *testing.T) {
	q := New(addr(1), big.NewInt(0))
	vault := newFakeVault()
	require.NoError(t, q.Deposit("alice", big.NewInt(1), vault))
	_, err := q.Redeem(q.CurrentTokenID, "alice", "alice", vault)
	require.Error(t, err)
}

func TestDepositExceedingMaxTVLFails(t *testing.T) {
	q := New(addr(1), big.NewInt(100))
	vault := newFakeVault()
	require.NoError(t, q.Deposit("alice", big.NewInt(100), vault))
	err := q.Deposit("alice", big.NewInt(1), vault)
	require.Error(t, err)
}

func TestDepositAutoSweepsPriorEpochClaimTokens(t *testing.T) {
	q := New(addr(1), big.NewInt(0))
	vault := newFakeVault()

	id0 := q.CurrentTokenID
	require.NoError(t, q.Deposit("alice", big.NewInt(10_000), vault))
	_, err := q.ProcessDeposits(vault)
	require.NoError(t, err)

	// alice deposits again in the new epoch without calling Redeem
	// herself; Deposit must sweep her id0 claim tokens first.
	require.NoError(t, q.Deposit("alice", big.NewInt(5_000), vault))

	require.Equal(t, "0", q.BalanceOf(id0, "alice").String())
	require.Equal(t, big.NewInt(10_000), vault.mintedShares["alice"])
}

func TestPreviewUnredeemedMatchesRedeem(t *testing.T) {
	q := New(addr(1), big.NewInt(0))
	vault := newFakeVault()
	id0 := q.CurrentTokenID
	require.NoError(t, q.Deposit("alice", big.NewInt(10_000), vault))
	_, err := q.ProcessDeposits(vault)
	require.NoError(t, err)

	preview := q.PreviewUnredeemed(id0, "alice")
	shares, err := q.Redeem(id0, "alice", "alice", vault)
	require.NoError(t, err)
	require.Equal(t, preview, shares)
}
