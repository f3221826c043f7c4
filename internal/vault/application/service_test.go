package application

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	auctiondomain "github.com/wyfcoding/vaultengine/internal/auction/domain"
	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	"github.com/wyfcoding/vaultengine/internal/vault/domain"
	"log/slog"
)

func fx(t *testing.T, s string) fixedmath.Fixed {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return fixedmath.FromDecimal(d)
}

type stubPricer struct {
	strike fixedmath.Fixed
	snap   fixedmath.Fixed
}

func (p stubPricer) LatestAnswer64x64() (fixedmath.Fixed, error) { return fixedmath.FromInt64(2000), nil }
func (p stubPricer) GetTimeToMaturity64x64(int64) (fixedmath.Fixed, error) {
	return fixedmath.Zero, nil
}
func (p stubPricer) GetDeltaStrikePrice64x64(bool, int64, fixedmath.Fixed) (fixedmath.Fixed, error) {
	return p.strike, nil
}
func (p stubPricer) SnapToGrid64x64(bool, fixedmath.Fixed) (fixedmath.Fixed, error) {
	return p.snap, nil
}
func (p stubPricer) GetBlackScholesPrice64x64(spot, strike, tau fixedmath.Fixed, isCall bool) (fixedmath.Fixed, error) {
	return strike, nil
}

type stubPool struct{}

func (p *stubPool) GetPoolSettings() (domain.PoolSettings, error) { return domain.PoolSettings{}, nil }
func (p *stubPool) WriteFrom(from, to string, expiry int64, strike fixedmath.Fixed, size domain.Amount, isCall bool) error {
	return nil
}
func (p *stubPool) SetDivestmentTimestamp(ts int64, isCall bool) error { return nil }
func (p *stubPool) WithdrawReservedLiquidity(amount domain.Amount, isCall bool) error { return nil }
func (p *stubPool) GetPriceAfter64x64(expiry int64) (fixedmath.Fixed, error)          { return fixedmath.Zero, nil }
func (p *stubPool) BalanceOf(holder string, tokenID domain.Amount) (domain.Amount, error) {
	return big.NewInt(0), nil
}
func (p *stubPool) SafeTransferFrom(from, to string, tokenID, amount domain.Amount) error {
	return nil
}

type memRepo struct {
	vaults map[[20]byte]*domain.Vault
}

func newMemRepo() *memRepo { return &memRepo{vaults: make(map[[20]byte]*domain.Vault)} }

func (r *memRepo) Save(ctx context.Context, v *domain.Vault) error {
	r.vaults[v.Address] = v
	return nil
}

func (r *memRepo) Load(ctx context.Context, address [20]byte) (*domain.Vault, error) {
	return r.vaults[address], nil
}

type recordingPublisher struct {
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}

func testConfig(t *testing.T) domain.Config {
	return domain.Config{
		IsCall:             true,
		UnderlyingDecimals: 18,
		BaseDecimals:       18,
		Delta:              fx(t, "0.3"),
		DeltaOffset:        fx(t, "0.1"),
		StartOffset:        2 * 3600,
		EndOffset:          4 * 3600,
		ReserveRate:        fx(t, "0.03"),
		WithdrawalFee:      fx(t, "0.01"),
		PerformanceFee:     fx(t, "0.1"),
		MinAuctionSize:     big.NewInt(1),
		FeeRecipient:       "fees",
		Keeper:             "keeper",
	}
}

func newTestService(t *testing.T) (*VaultAppService, *memRepo, *recordingPublisher) {
	repo := newMemRepo()
	pub := &recordingPublisher{}
	svc := NewVaultAppService(repo, stubPricer{strike: fx(t, "2000"), snap: fx(t, "2000")}, &stubPool{}, pub, slog.Default())
	return svc, repo, pub
}

func testAddress(b byte) [20]byte {
	var addr [20]byte
	addr[0] = b
	return addr
}

func TestBootstrapRejectsDuplicateAddress(t *testing.T) {
	svc, _, _ := newTestService(t)
	addr := testAddress(1)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))
	require.Error(t, svc.Bootstrap(ctx, addr, testConfig(t)))
}

func TestInitializeAuctionPublishesOptionParametersSet(t *testing.T) {
	svc, _, pub := newTestService(t)
	addr := testAddress(2)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))

	now := int64(1754211600)
	require.NoError(t, svc.InitializeAuction(ctx, addr, now))

	require.Len(t, pub.events, 1)
	require.Equal(t, domain.EventOptionParametersSet, pub.events[0].Type)

	status, err := svc.GetStatus(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, auctiondomain.Initialized, status)
}

func TestInitializeEpochPublishesAuctionPricesSet(t *testing.T) {
	svc, _, pub := newTestService(t)
	addr := testAddress(3)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))

	now := int64(1754211600)
	require.NoError(t, svc.InitializeAuction(ctx, addr, now))
	require.NoError(t, svc.InitializeEpoch(ctx, addr, now, fx(t, "0.1")))

	require.Len(t, pub.events, 2)
	require.Equal(t, domain.EventAuctionPricesSet, pub.events[1].Type)

	epoch, err := svc.GetEpoch(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), epoch)
}

func TestPlaceAndCancelLimitOrderPublishEvents(t *testing.T) {
	svc, _, pub := newTestService(t)
	addr := testAddress(4)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))

	now := int64(1754211600)
	require.NoError(t, svc.InitializeAuction(ctx, addr, now))

	id, filled, err := svc.PlaceLimitOrder(ctx, addr, now, fx(t, "0.05"), big.NewInt(10), "buyer")
	require.NoError(t, err)
	require.NotNil(t, filled)
	require.Equal(t, domain.EventOrderAdded, pub.events[len(pub.events)-1].Type)

	require.NoError(t, svc.CancelLimitOrder(ctx, addr, now, id, "buyer"))
	require.Equal(t, domain.EventOrderCanceled, pub.events[len(pub.events)-1].Type)
}

func TestDepositQueuesCollateral(t *testing.T) {
	svc, _, _ := newTestService(t)
	addr := testAddress(5)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))

	require.NoError(t, svc.Deposit(ctx, addr, "alice", big.NewInt(1000)))

	total, err := svc.TotalCollateral(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, 0, total.Sign())
}

func TestLoadUnknownVaultErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetEpoch(context.Background(), testAddress(99))
	require.Error(t, err)
}

func TestGetEpochsByBuyerReflectsCurrentEpochBalanceOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	addr := testAddress(6)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))

	epochs, err := svc.GetEpochsByBuyer(ctx, addr, "nobody")
	require.NoError(t, err)
	require.Empty(t, epochs)
}

func TestCancelDepositLeavesRemainderVisibleToGetEpochsByBuyer(t *testing.T) {
	svc, _, _ := newTestService(t)
	addr := testAddress(7)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))

	require.NoError(t, svc.Deposit(ctx, addr, "alice", big.NewInt(1000)))
	require.NoError(t, svc.CancelDeposit(ctx, addr, "alice", big.NewInt(400)))

	// the claim-token balance is keyed by depositqueue.EncodeClaimTokenID,
	// not the bare epoch number; this only passes once GetEpochsByBuyer
	// uses that same key.
	epochs, err := svc.GetEpochsByBuyer(ctx, addr, "alice")
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, epochs)

	require.Error(t, svc.CancelDeposit(ctx, addr, "alice", big.NewInt(10000)))
}

func TestPlaceMarketOrderPublishesOrderAdded(t *testing.T) {
	svc, _, pub := newTestService(t)
	addr := testAddress(8)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))
	require.NoError(t, svc.InitializeAuction(ctx, addr, 1754211600))

	id, price, cost, err := svc.PlaceMarketOrder(ctx, addr, 1754650000, big.NewInt(10), big.NewInt(1_000_000), "buyer")
	require.NoError(t, err)
	require.NotZero(t, id)
	require.True(t, price.IsZero())
	require.Equal(t, "0", cost.String())
	require.Equal(t, domain.EventOrderAdded, pub.events[len(pub.events)-1].Type)
}

func TestFinalizeAuctionCancelsStaleAuction(t *testing.T) {
	svc, _, pub := newTestService(t)
	addr := testAddress(9)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))
	require.NoError(t, svc.InitializeAuction(ctx, addr, 1754211600))

	require.NoError(t, svc.FinalizeAuction(ctx, addr, 1754654400+24*3600+1))

	status, err := svc.GetStatus(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, auctiondomain.Cancelled, status)
	require.Equal(t, domain.EventAuctionStatusSet, pub.events[len(pub.events)-1].Type)
}

func TestWithdrawFromAuctionRefundsCancelledOrder(t *testing.T) {
	svc, _, pub := newTestService(t)
	addr := testAddress(10)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))
	require.NoError(t, svc.InitializeAuction(ctx, addr, 1754211600))

	_, _, err := svc.PlaceLimitOrder(ctx, addr, 1754211600, fx(t, "0.05"), big.NewInt(1000), "buyer")
	require.NoError(t, err)

	rescueNow := int64(1754654400 + 24*3600 + 1)
	require.NoError(t, svc.FinalizeAuction(ctx, addr, rescueNow))

	previewRefund, previewFill, err := svc.PreviewWithdrawFromAuction(ctx, addr, rescueNow, "buyer")
	require.NoError(t, err)
	require.True(t, previewRefund.Sign() > 0)
	require.Equal(t, 0, previewFill.Sign())

	refund, fill, err := svc.WithdrawFromAuction(ctx, addr, rescueNow, "buyer")
	require.NoError(t, err)
	require.Equal(t, previewRefund.String(), refund.String())
	require.Equal(t, previewFill.String(), fill.String())
	require.Equal(t, domain.EventOrderWithdrawn, pub.events[len(pub.events)-1].Type)

	// the book no longer carries buyer's order, so a second withdraw
	// finds nothing left to refund.
	refund2, fill2, err := svc.WithdrawFromAuction(ctx, addr, rescueNow, "buyer")
	require.NoError(t, err)
	require.Equal(t, 0, refund2.Sign())
	require.Equal(t, 0, fill2.Sign())
}

func TestRedeemAndPreviewUnredeemedAfterEpochAdvances(t *testing.T) {
	svc, _, _ := newTestService(t)
	addr := testAddress(11)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))

	require.NoError(t, svc.Deposit(ctx, addr, "alice", big.NewInt(1000)))

	now := int64(1754211600)
	require.NoError(t, svc.InitializeAuction(ctx, addr, now))
	require.NoError(t, svc.InitializeEpoch(ctx, addr, now, fx(t, "0.1")))

	preview, err := svc.PreviewUnredeemed(ctx, addr, 0, "alice")
	require.NoError(t, err)
	require.True(t, preview.Sign() > 0)

	shares, err := svc.Redeem(ctx, addr, 0, "alice", "alice")
	require.NoError(t, err)
	require.Equal(t, preview.String(), shares.String())

	after, err := svc.PreviewUnredeemed(ctx, addr, 0, "alice")
	require.NoError(t, err)
	require.Equal(t, 0, after.Sign())
}

func TestRedeemMaxSweepsPastEpochBalance(t *testing.T) {
	svc, _, _ := newTestService(t)
	addr := testAddress(12)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, addr, testConfig(t)))

	require.NoError(t, svc.Deposit(ctx, addr, "bob", big.NewInt(500)))

	now := int64(1754211600)
	require.NoError(t, svc.InitializeAuction(ctx, addr, now))
	require.NoError(t, svc.InitializeEpoch(ctx, addr, now, fx(t, "0.1")))

	shares, err := svc.RedeemMax(ctx, addr, "bob", "bob")
	require.NoError(t, err)
	require.True(t, shares.Sign() > 0)
}
