// Package application orchestrates the vault aggregate's keeper and
// participant use cases against its persisted state and external
// collaborators, following the teacher's derivatives application
// service (repo interface declared here, context.Context on every
// method, slog structured logging, fmt.Errorf %w wrapping).
package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	auctiondomain "github.com/wyfcoding/vaultengine/internal/auction/domain"
	depositqueue "github.com/wyfcoding/vaultengine/internal/depositqueue/domain"
	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	orderbook "github.com/wyfcoding/vaultengine/internal/orderbook/domain"
	"github.com/wyfcoding/vaultengine/internal/vault/domain"
)

// Repository persists and loads vault aggregates.
type Repository interface {
	Save(ctx context.Context, v *domain.Vault) error
	Load(ctx context.Context, address [20]byte) (*domain.Vault, error)
}

// EventPublisher delivers a vault domain event to interested
// consumers. Errors are logged, never returned, so a delivery hiccup
// never rolls back a completed state transition.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// VaultAppService drives InitializeAuction/InitializeEpoch/ProcessAuction
// and the participant-facing deposit/withdraw use cases.
type VaultAppService struct {
	repo      Repository
	pricer    domain.Pricer
	pool      domain.Pool
	events    EventPublisher
	logger    *slog.Logger
}

// NewVaultAppService wires a vault application service.
func NewVaultAppService(repo Repository, pricer domain.Pricer, pool domain.Pool, events EventPublisher, logger *slog.Logger) *VaultAppService {
	return &VaultAppService{repo: repo, pricer: pricer, pool: pool, events: events, logger: logger}
}

func (s *VaultAppService) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "publish event failed", "type", event.Type, "error", err)
	}
}

func (s *VaultAppService) load(ctx context.Context, address [20]byte) (*domain.Vault, error) {
	v, err := s.repo.Load(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load vault %x: %w", address, err)
	}
	if v == nil {
		return nil, fmt.Errorf("vault %x not found", address)
	}
	return v, nil
}

// Bootstrap creates a brand-new vault at address with cfg and persists
// it, for the keeper's one-time deployment step. It errors if a vault
// already exists at address.
func (s *VaultAppService) Bootstrap(ctx context.Context, address [20]byte, cfg domain.Config) error {
	existing, err := s.repo.Load(ctx, address)
	if err != nil {
		return fmt.Errorf("load vault %x: %w", address, err)
	}
	if existing != nil {
		return fmt.Errorf("vault %x already exists", address)
	}
	v := domain.New(address, cfg)
	if err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	s.logger.InfoContext(ctx, "vault bootstrapped", "vault", fmt.Sprintf("%x", address))
	return nil
}

// InitializeAuction runs §4.7.2: derives the next option and opens a
// fresh auction for the incoming epoch.
func (s *VaultAppService) InitializeAuction(ctx context.Context, address [20]byte, now int64) error {
	v, err := s.load(ctx, address)
	if err != nil {
		return err
	}
	if err := v.InitializeAuction(now, s.pricer); err != nil {
		return fmt.Errorf("initialize auction: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	s.publish(ctx, domain.OptionParametersSetEvent(v))
	s.logger.InfoContext(ctx, "auction initialized", "vault", fmt.Sprintf("%x", address), "epoch", v.Epoch)
	return nil
}

// InitializeEpoch runs §4.7.3 steps 1-3 (reserve withdrawal, performance
// fee, deposit processing, epoch increment), then derives and submits
// fresh auction prices (step 4) from a live pricer quote.
func (s *VaultAppService) InitializeEpoch(ctx context.Context, address [20]byte, now int64, offsetStrike fixedmath.Fixed) error {
	v, err := s.load(ctx, address)
	if err != nil {
		return err
	}
	if err := v.InitializeEpoch(now, s.pool); err != nil {
		return fmt.Errorf("initialize epoch: %w", err)
	}

	if v.Auction != nil {
		spot, err := s.pricer.LatestAnswer64x64()
		if err != nil {
			return fmt.Errorf("latest answer: %w", err)
		}
		tau, err := s.pricer.GetTimeToMaturity64x64(v.Option.Expiry)
		if err != nil {
			return fmt.Errorf("time to maturity: %w", err)
		}
		prices, err := domain.DeriveAuctionPrices(v.Config.IsCall, v.Option.Strike, offsetStrike, spot, tau, s.pricer.GetBlackScholesPrice64x64)
		if err != nil {
			return fmt.Errorf("derive auction prices: %w", err)
		}
		if err := v.SetAuctionPricesFor(prices); err != nil {
			return fmt.Errorf("set auction prices: %w", err)
		}
		if err := s.repo.Save(ctx, v); err != nil {
			return fmt.Errorf("save vault: %w", err)
		}
		s.publish(ctx, domain.AuctionPricesSetEvent(v, prices))
		s.logger.InfoContext(ctx, "epoch initialized", "vault", fmt.Sprintf("%x", address), "epoch", v.Epoch)
		return nil
	}

	if err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	s.logger.InfoContext(ctx, "epoch initialized", "vault", fmt.Sprintf("%x", address), "epoch", v.Epoch)
	return nil
}

// ProcessAuction runs §4.7.5: settles the finalized auction's premium
// and short position into the vault's ledger.
func (s *VaultAppService) ProcessAuction(ctx context.Context, address [20]byte, now int64) error {
	v, err := s.load(ctx, address)
	if err != nil {
		return err
	}
	var longTokenBalance *big.Int
	if v.Auction != nil {
		longTokenBalance, err = s.pool.BalanceOf(fmt.Sprintf("%x", address), v.Auction.LongTokenID)
		if err != nil {
			return fmt.Errorf("long token balance: %w", err)
		}
	} else {
		longTokenBalance = big.NewInt(0)
	}
	collateralBefore := new(big.Int).Set(v.CollateralBalance)
	if err := v.ProcessAuction(now, s.pool, longTokenBalance); err != nil {
		return fmt.Errorf("process auction: %w", err)
	}
	premium := new(big.Int).Sub(v.CollateralBalance, collateralBefore)
	sold := big.NewInt(0)
	if v.Auction != nil {
		sold = v.Auction.TotalContractsSold
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	s.publish(ctx, domain.AuctionProcessedEvent(v, premium, sold))
	s.logger.InfoContext(ctx, "auction processed", "vault", fmt.Sprintf("%x", address), "epoch", v.Epoch)
	return nil
}

// Deposit enqueues a depositor's collateral for the next epoch.
func (s *VaultAppService) Deposit(ctx context.Context, address [20]byte, holder string, amount *big.Int) error {
	v, err := s.load(ctx, address)
	if err != nil {
		return err
	}
	if err := v.Queue.Deposit(holder, amount, v); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	s.logger.InfoContext(ctx, "deposit queued", "vault", fmt.Sprintf("%x", address), "holder", holder, "amount", amount)
	return nil
}

// Withdraw burns owner's shares for assetAmount and returns the net
// collateral/short legs owed to receiver.
func (s *VaultAppService) Withdraw(ctx context.Context, address [20]byte, now int64, owner, receiver string, assetAmount *big.Int) (residualCollateral, residualShort, feeCollateral, feeShort *big.Int, err error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	residualCollateral, residualShort, feeCollateral, feeShort, err = v.Withdraw(now, owner, receiver, assetAmount)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("withdraw: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("save vault: %w", err)
	}
	s.publish(ctx, domain.WithdrawEvent(v, owner, receiver, residualCollateral, residualShort))
	s.logger.InfoContext(ctx, "withdraw", "vault", fmt.Sprintf("%x", address), "owner", owner)
	return residualCollateral, residualShort, feeCollateral, feeShort, nil
}

// PlaceLimitOrder submits a resting bid against the vault's current
// auction.
func (s *VaultAppService) PlaceLimitOrder(ctx context.Context, address [20]byte, now int64, price fixedmath.Fixed, size *big.Int, buyer string) (orderbook.ID, *big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return 0, nil, err
	}
	if v.Auction == nil {
		return 0, nil, fmt.Errorf("no active auction for vault %x", address)
	}
	totalCollateral, err := v.Accounting.TotalCollateral(v.CollateralBalance)
	if err != nil {
		return 0, nil, fmt.Errorf("total collateral: %w", err)
	}
	id, filled, err := v.Auction.AddLimitOrder(now, price, size, buyer, totalCollateral)
	if err != nil {
		return 0, nil, fmt.Errorf("add limit order: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return 0, nil, fmt.Errorf("save vault: %w", err)
	}
	s.publish(ctx, domain.OrderAddedEvent(v, uint64(id), buyer, price, size, filled))
	return id, filled, nil
}

// PlaceMarketOrder submits an immediate-fill bid against the vault's
// current auction at the live curve price.
func (s *VaultAppService) PlaceMarketOrder(ctx context.Context, address [20]byte, now int64, size, maxCost *big.Int, buyer string) (orderbook.ID, fixedmath.Fixed, *big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return 0, fixedmath.Zero, nil, err
	}
	if v.Auction == nil {
		return 0, fixedmath.Zero, nil, fmt.Errorf("no active auction for vault %x", address)
	}
	totalCollateral, err := v.Accounting.TotalCollateral(v.CollateralBalance)
	if err != nil {
		return 0, fixedmath.Zero, nil, fmt.Errorf("total collateral: %w", err)
	}
	id, price, cost, err := v.Auction.AddMarketOrder(now, size, maxCost, buyer, totalCollateral)
	if err != nil {
		return 0, fixedmath.Zero, nil, fmt.Errorf("add market order: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return 0, fixedmath.Zero, nil, fmt.Errorf("save vault: %w", err)
	}
	s.publish(ctx, domain.OrderAddedEvent(v, uint64(id), buyer, price, size, size))
	return id, price, cost, nil
}

// CancelLimitOrder withdraws a resting bid from the vault's current
// auction on behalf of buyer.
func (s *VaultAppService) CancelLimitOrder(ctx context.Context, address [20]byte, now int64, id orderbook.ID, buyer string) error {
	v, err := s.load(ctx, address)
	if err != nil {
		return err
	}
	if v.Auction == nil {
		return fmt.Errorf("no active auction for vault %x", address)
	}
	totalCollateral, err := v.Accounting.TotalCollateral(v.CollateralBalance)
	if err != nil {
		return fmt.Errorf("total collateral: %w", err)
	}
	if err := v.Auction.CancelLimitOrder(now, id, buyer, totalCollateral); err != nil {
		return fmt.Errorf("cancel limit order: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	s.publish(ctx, domain.OrderCanceledEvent(v, uint64(id), buyer))
	return nil
}

// FinalizeAuction is the "callable by anyone" rescue/finalize transition:
// it auto-cancels a stale auction past its rescue window, or re-runs the
// finalize check if the order book has since cleared the curve.
func (s *VaultAppService) FinalizeAuction(ctx context.Context, address [20]byte, now int64) error {
	v, err := s.load(ctx, address)
	if err != nil {
		return err
	}
	if v.Auction == nil {
		return fmt.Errorf("no active auction for vault %x", address)
	}
	totalCollateral, err := v.Accounting.TotalCollateral(v.CollateralBalance)
	if err != nil {
		return fmt.Errorf("total collateral: %w", err)
	}
	if err := v.Auction.FinalizeAuction(now, totalCollateral); err != nil {
		return fmt.Errorf("finalize auction: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	s.publish(ctx, domain.AuctionStatusSetEvent(v, v.Auction.Status.String()))
	s.logger.InfoContext(ctx, "auction finalized", "vault", fmt.Sprintf("%x", address), "status", v.Auction.Status.String())
	return nil
}

// WithdrawFromAuction settles every order buyer holds against the
// vault's current auction, removing them from the book and crediting
// the refund (collateral) and fill (exercised/underlying amount) owed.
func (s *VaultAppService) WithdrawFromAuction(ctx context.Context, address [20]byte, now int64, buyer string) (refund, fill *big.Int, err error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	if v.Auction == nil {
		return nil, nil, fmt.Errorf("no active auction for vault %x", address)
	}
	refund, fill, err = v.Auction.Withdraw(now, buyer, s.pool)
	if err != nil {
		return nil, nil, fmt.Errorf("withdraw from auction: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, nil, fmt.Errorf("save vault: %w", err)
	}
	s.publish(ctx, domain.OrderWithdrawnEvent(v, buyer, refund, fill))
	s.logger.InfoContext(ctx, "withdrew from auction", "vault", fmt.Sprintf("%x", address), "buyer", buyer)
	return refund, fill, nil
}

// PreviewWithdrawFromAuction computes the same result as
// WithdrawFromAuction without mutating the book, for read-only views.
func (s *VaultAppService) PreviewWithdrawFromAuction(ctx context.Context, address [20]byte, now int64, buyer string) (refund, fill *big.Int, err error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	if v.Auction == nil {
		return nil, nil, fmt.Errorf("no active auction for vault %x", address)
	}
	refund, fill, err = v.Auction.PreviewWithdraw(now, buyer, s.pool)
	if err != nil {
		return nil, nil, fmt.Errorf("preview withdraw from auction: %w", err)
	}
	return refund, fill, nil
}

// CancelDeposit burns holder's current-epoch claim tokens and removes
// the same amount from the queue's total queued collateral.
func (s *VaultAppService) CancelDeposit(ctx context.Context, address [20]byte, holder string, amount *big.Int) error {
	v, err := s.load(ctx, address)
	if err != nil {
		return err
	}
	if err := v.Queue.Cancel(holder, amount); err != nil {
		return fmt.Errorf("cancel deposit: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save vault: %w", err)
	}
	s.logger.InfoContext(ctx, "deposit cancelled", "vault", fmt.Sprintf("%x", address), "holder", holder, "amount", amount)
	return nil
}

// Redeem burns holder's claim-token balance for a past epoch and
// credits the equivalent vault shares to receiver.
func (s *VaultAppService) Redeem(ctx context.Context, address [20]byte, epoch uint64, holder, receiver string) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	tokenID := depositqueue.EncodeClaimTokenID(v.Address, epoch)
	shares, err := v.Queue.Redeem(tokenID, holder, receiver, v)
	if err != nil {
		return nil, fmt.Errorf("redeem: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, fmt.Errorf("save vault: %w", err)
	}
	s.logger.InfoContext(ctx, "redeemed", "vault", fmt.Sprintf("%x", address), "holder", holder, "epoch", epoch, "shares", shares)
	return shares, nil
}

// RedeemMax redeems every past-epoch claim token holder owns, returning
// the total shares credited to receiver.
func (s *VaultAppService) RedeemMax(ctx context.Context, address [20]byte, holder, receiver string) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	shares, err := v.Queue.RedeemMax(holder, receiver, v)
	if err != nil {
		return nil, fmt.Errorf("redeem max: %w", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, fmt.Errorf("save vault: %w", err)
	}
	s.logger.InfoContext(ctx, "redeemed max", "vault", fmt.Sprintf("%x", address), "holder", holder, "shares", shares)
	return shares, nil
}

// PreviewUnredeemed returns the shares Redeem would yield for holder's
// claim-token balance at epoch, without mutating state.
func (s *VaultAppService) PreviewUnredeemed(ctx context.Context, address [20]byte, epoch uint64, holder string) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	tokenID := depositqueue.EncodeClaimTokenID(v.Address, epoch)
	return v.Queue.PreviewUnredeemed(tokenID, holder), nil
}

// GetAuction returns the vault's current auction for read views.
func (s *VaultAppService) GetAuction(ctx context.Context, address [20]byte) (*auctiondomain.Auction, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	return v.Auction, nil
}

// GetOrderByID returns a single resting order from the vault's current
// auction book.
func (s *VaultAppService) GetOrderByID(ctx context.Context, address [20]byte, id orderbook.ID) (orderbook.Data, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return orderbook.Data{}, err
	}
	if v.Auction == nil {
		return orderbook.Data{}, fmt.Errorf("no active auction for vault %x", address)
	}
	return v.Auction.Book.GetOrderByID(id), nil
}

// GetStatus returns the vault's current auction status.
func (s *VaultAppService) GetStatus(ctx context.Context, address [20]byte) (auctiondomain.Status, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return 0, err
	}
	if v.Auction == nil {
		return 0, fmt.Errorf("no active auction for vault %x", address)
	}
	return v.Auction.Status, nil
}

// GetTotalContracts returns the vault's current auction size.
func (s *VaultAppService) GetTotalContracts(ctx context.Context, address [20]byte) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	if v.Auction == nil {
		return big.NewInt(0), nil
	}
	return v.Auction.TotalContracts, nil
}

// GetTotalContractsSold returns how many contracts the current auction
// has sold so far.
func (s *VaultAppService) GetTotalContractsSold(ctx context.Context, address [20]byte) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	if v.Auction == nil {
		return big.NewInt(0), nil
	}
	return v.Auction.TotalContractsSold, nil
}

// IsCancelled reports whether the vault's current auction has been
// cancelled.
func (s *VaultAppService) IsCancelled(ctx context.Context, address [20]byte) (bool, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return false, err
	}
	return v.Auction != nil && v.Auction.Status == auctiondomain.Cancelled, nil
}

// IsFinalized reports whether the vault's current auction has been
// finalized.
func (s *VaultAppService) IsFinalized(ctx context.Context, address [20]byte) (bool, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return false, err
	}
	return v.Auction != nil && v.Auction.Status == auctiondomain.Finalized, nil
}

// TotalCollateral returns the vault's current collateral balance, net
// of reserves.
func (s *VaultAppService) TotalCollateral(ctx context.Context, address [20]byte) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	return v.Accounting.TotalCollateral(v.CollateralBalance)
}

// TotalShortAsCollateral values the vault's open short position in
// collateral terms at the last epoch's strike.
func (s *VaultAppService) TotalShortAsCollateral(ctx context.Context, address [20]byte) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	return v.Accounting.TotalShortAsCollateral(v.ShortContracts, v.LastEpochOption.Strike)
}

// TotalShortAsContracts returns the vault's open short position size.
func (s *VaultAppService) TotalShortAsContracts(ctx context.Context, address [20]byte) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	return v.ShortContracts, nil
}

// TotalReserves returns the portion of collateral reserved against
// pending withdrawals.
func (s *VaultAppService) TotalReserves(ctx context.Context, address [20]byte) (*big.Int, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	return v.Accounting.TotalReserves(v.CollateralBalance)
}

// GetEpoch returns the vault's current epoch number.
func (s *VaultAppService) GetEpoch(ctx context.Context, address [20]byte) (uint64, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return 0, err
	}
	return v.Epoch, nil
}

// GetOption returns the vault's current option parameters.
func (s *VaultAppService) GetOption(ctx context.Context, address [20]byte) (domain.Option, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return domain.Option{}, err
	}
	return v.Option, nil
}

// GetEpochsByBuyer returns the epochs in which buyer has an
// outstanding, unredeemed deposit-queue balance for address's vault.
// Claim-token balances are keyed by depositqueue.EncodeClaimTokenID,
// not the bare epoch number. This only checks the current epoch's
// claim-token id; a buyer's past-epoch balances are reachable via
// PreviewUnredeemed/Redeem once the epoch number is known some other
// way, since the queue itself only tracks token ids per holder, not a
// holder-to-epoch index.
func (s *VaultAppService) GetEpochsByBuyer(ctx context.Context, address [20]byte, buyer string) ([]uint64, error) {
	v, err := s.load(ctx, address)
	if err != nil {
		return nil, err
	}
	tokenID := depositqueue.EncodeClaimTokenID(v.Address, v.Epoch)
	if v.Queue.BalanceOf(tokenID, buyer).Sign() > 0 {
		return []uint64{v.Epoch}, nil
	}
	return nil, nil
}
