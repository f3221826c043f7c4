package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/vaulterrors"
)

// PreviewWithdraw returns the shares Withdraw would burn for assetAmount,
// without mutating state.
func (v *Vault) PreviewWithdraw(assetAmount *big.Int) (*big.Int, error) {
	totalAssets, err := v.TotalAssets()
	if err != nil {
		return nil, err
	}
	return v.Accounting.PreviewWithdraw(assetAmount, v.TotalShares, totalAssets), nil
}

// Withdraw burns shareAmount's worth of shares from owner, splits the
// withdrawal between collateral and short-contract residuals (§4.6),
// deducts the withdrawal fee from each leg to feeCollateral/feeShort,
// and returns the net legs credited to receiver. The caller is
// responsible for the actual collateral/option-token transfers against
// the CollateralToken/OptionToken ports; this method only updates the
// vault's own ledger and share balances.
func (v *Vault) Withdraw(now int64, owner, receiver string, assetAmount *big.Int) (residualCollateral, residualShort, feeCollateral, feeShort *big.Int, err error) {
	if err := v.CheckWithdrawalLock(now); err != nil {
		return nil, nil, nil, nil, err
	}
	if assetAmount.Sign() <= 0 {
		return nil, nil, nil, nil, vaulterrors.ErrValueBelowMinimum
	}

	totalAssets, err := v.TotalAssets()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if totalAssets.Sign() == 0 {
		return nil, nil, nil, nil, vaulterrors.ErrValueExceedsMaximum
	}

	totalCollateral, err := v.Accounting.TotalCollateral(v.CollateralBalance)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	strike := v.LastEpochOption.Strike
	totalShortAsCollateral, err := v.Accounting.TotalShortAsCollateral(v.ShortContracts, strike)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	dist, err := v.Accounting.WithdrawDistribution(assetAmount, totalCollateral, totalShortAsCollateral, totalAssets, strike)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	shareAmount := v.Accounting.PreviewWithdraw(assetAmount, v.TotalShares, totalAssets)
	if err := v.burnShares(owner, shareAmount); err != nil {
		return nil, nil, nil, nil, err
	}

	grossCollateral := new(big.Int).Add(dist.ResidualCollateral, dist.CollateralFee)
	v.CollateralBalance.Sub(v.CollateralBalance, grossCollateral)
	grossShort := new(big.Int).Add(dist.ResidualShortContracts, dist.ShortContractsFee)
	v.ShortContracts.Sub(v.ShortContracts, grossShort)
	v.TotalWithdrawals.Add(v.TotalWithdrawals, assetAmount)

	_ = receiver // crediting receiver is the caller's token-transfer responsibility
	return dist.ResidualCollateral, dist.ResidualShortContracts, dist.CollateralFee, dist.ShortContractsFee, nil
}
