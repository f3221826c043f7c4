package domain

import (
	"encoding/hex"
	"math/big"

	auction "github.com/wyfcoding/vaultengine/internal/auction/domain"
	"github.com/wyfcoding/vaultengine/internal/calendar"
	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	"github.com/wyfcoding/vaultengine/internal/vaulterrors"
)

// InitializeAuction is the keeper entry point of §4.7.2: it derives the
// next option from the pricer, opens the auction's withdrawal-lock
// window, and initializes a fresh Auction for the incoming epoch. Price
// setting is deferred to InitializeEpoch (§4.7.3 step 4), which is the
// detailed section's ordering rather than the compressed control-flow
// diagram in §2 — see the grounding ledger for the reasoning.
func (v *Vault) InitializeAuction(now int64, pricer Pricer) error {
	expiry := calendar.NextFriday(now)
	rawStrike, err := pricer.GetDeltaStrikePrice64x64(v.Config.IsCall, expiry, v.Config.Delta)
	if err != nil {
		return err
	}
	snapped, err := pricer.SnapToGrid64x64(v.Config.IsCall, rawStrike)
	if err != nil {
		return err
	}

	params := v.DeriveNextOption(now, snapped)
	v.ApplyNextOption(now, params)

	v.Auction = auction.New(v.Epoch, v.Config.IsCall, v.Config.MinAuctionSize, v.Config.UnderlyingDecimals, v.Config.BaseDecimals)
	return v.Auction.Initialize(now, params.Expiry, params.Strike, params.StartTime, params.EndTime, params.LongTokenID)
}

// InitializeEpoch is the keeper entry point of §4.7.3.
func (v *Vault) InitializeEpoch(now int64, pool Pool) error {
	if v.Epoch > 0 {
		if err := pool.WithdrawReservedLiquidity(v.totalReserves(), v.Config.IsCall); err != nil {
			return err
		}
		if err := v.collectPerformanceFee(); err != nil {
			return err
		}
	}

	if _, err := v.Queue.ProcessDeposits(v); err != nil {
		return err
	}

	v.Epoch++
	return nil
}

func (v *Vault) totalReserves() *big.Int {
	reserves, err := v.Accounting.TotalReserves(v.CollateralBalance)
	if err != nil {
		return big.NewInt(0)
	}
	return reserves
}

func (v *Vault) collectPerformanceFee() error {
	totalAssets, err := v.TotalAssets()
	if err != nil {
		return err
	}
	fee, _, err := v.Accounting.CollectPerformanceFee(totalAssets, v.TotalWithdrawals, v.LastTotalAssets)
	if err != nil {
		return err
	}
	if fee.Sign() > 0 {
		v.CollateralBalance.Sub(v.CollateralBalance, fee)
	}
	v.TotalWithdrawals = big.NewInt(0)
	return nil
}

// SetAuctionPricesFor is §4.7.3 step 4: application-layer code, having
// computed AuctionPrices via DeriveAuctionPrices against a live Pricer
// quote (spot/tau/offset-strike all need to be fresh, which is why this
// is not folded into InitializeEpoch itself), submits them to the
// vault's current auction as the last step of initializeEpoch.
func (v *Vault) SetAuctionPricesFor(prices AuctionPrices) error {
	if v.Auction == nil {
		return vaulterrors.ErrBadStatus
	}
	return v.Auction.SetAuctionPrices(prices.Max, prices.Min)
}

// ProcessAuction is the keeper entry point of §4.7.5.
func (v *Vault) ProcessAuction(now int64, pool Pool, longTokenBalance *big.Int) error {
	if v.Auction == nil {
		return vaulterrors.ErrBadStatus
	}
	if v.Auction.Status != auction.Finalized && v.Auction.Status != auction.Cancelled {
		return vaulterrors.ErrBadStatus
	}

	totalAssets, err := v.TotalAssets()
	if err != nil {
		return err
	}
	v.LastTotalAssets = totalAssets

	if v.Auction.Status == auction.Finalized {
		premium, err := v.Auction.TransferPremium()
		if err != nil {
			return err
		}
		v.CollateralBalance.Add(v.CollateralBalance, premium)

		sold := v.Auction.TotalContractsSold
		if sold.Sign() > 0 {
			collateralUsed, err := fixedmath.FromContractsToCollateral(sold, v.Config.IsCall, v.Config.UnderlyingDecimals, v.Config.BaseDecimals, v.Auction.Strike)
			if err != nil {
				return err
			}
			approve := new(big.Int).Add(collateralUsed, v.totalReserves())
			if err := pool.WriteFrom(addressString(v.Address), "auction", v.Auction.Expiry, v.Auction.Strike, sold, v.Config.IsCall); err != nil {
				return err
			}
			if err := pool.SetDivestmentTimestamp(now+divestmentDelay, v.Config.IsCall); err != nil {
				return err
			}
			_ = approve // collateral-token approval is the infrastructure layer's responsibility
			v.ShortContracts.Add(v.ShortContracts, sold)
		}

		if err := v.Auction.ProcessAuction(now, longTokenBalance); err != nil {
			return err
		}
	}

	v.LastEpochOption = v.Option
	v.AuctionProcessed = true
	return nil
}

const divestmentDelay = 24 * 3600

func addressString(a [20]byte) string {
	return hex.EncodeToString(a[:])
}
