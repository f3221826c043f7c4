package http

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	"github.com/wyfcoding/vaultengine/internal/vault/application"
	"github.com/wyfcoding/vaultengine/internal/vault/domain"
)

type stubPricer struct{}

func (stubPricer) LatestAnswer64x64() (fixedmath.Fixed, error) { return fixedmath.FromInt64(2000), nil }
func (stubPricer) GetTimeToMaturity64x64(int64) (fixedmath.Fixed, error) {
	return fixedmath.Zero, nil
}
func (stubPricer) GetDeltaStrikePrice64x64(bool, int64, fixedmath.Fixed) (fixedmath.Fixed, error) {
	return fixedmath.FromInt64(2000), nil
}
func (stubPricer) SnapToGrid64x64(bool, fixedmath.Fixed) (fixedmath.Fixed, error) {
	return fixedmath.FromInt64(2000), nil
}
func (stubPricer) GetBlackScholesPrice64x64(spot, strike, tau fixedmath.Fixed, isCall bool) (fixedmath.Fixed, error) {
	return strike, nil
}

type stubPool struct{}

func (stubPool) GetPoolSettings() (domain.PoolSettings, error) { return domain.PoolSettings{}, nil }
func (stubPool) WriteFrom(from, to string, expiry int64, strike fixedmath.Fixed, size domain.Amount, isCall bool) error {
	return nil
}
func (stubPool) SetDivestmentTimestamp(ts int64, isCall bool) error        { return nil }
func (stubPool) WithdrawReservedLiquidity(amount domain.Amount, isCall bool) error { return nil }
func (stubPool) GetPriceAfter64x64(expiry int64) (fixedmath.Fixed, error)          { return fixedmath.Zero, nil }
func (stubPool) BalanceOf(holder string, tokenID domain.Amount) (domain.Amount, error) {
	return big.NewInt(0), nil
}
func (stubPool) SafeTransferFrom(from, to string, tokenID, amount domain.Amount) error { return nil }

type memRepo struct{ vaults map[[20]byte]*domain.Vault }

func (r *memRepo) Save(ctx context.Context, v *domain.Vault) error {
	r.vaults[v.Address] = v
	return nil
}
func (r *memRepo) Load(ctx context.Context, address [20]byte) (*domain.Vault, error) {
	return r.vaults[address], nil
}

func fx(t *testing.T, s string) fixedmath.Fixed {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return fixedmath.FromDecimal(d)
}

func newTestRouter(t *testing.T) (*gin.Engine, [20]byte) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var addr [20]byte
	addr[0] = 1
	repo := &memRepo{vaults: make(map[[20]byte]*domain.Vault)}
	svc := application.NewVaultAppService(repo, stubPricer{}, stubPool{}, nil, slog.Default())

	require.NoError(t, svc.Bootstrap(context.Background(), addr, domain.Config{
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
	}))

	router := gin.New()
	New(svc).RegisterRoutes(router.Group(""))
	return router, addr
}

func TestGetEpochReturnsZeroForFreshVault(t *testing.T) {
	router, addr := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/vaults/"+hex.EncodeToString(addr[:])+"/epoch", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var env struct {
		Data struct {
			Epoch uint64 `json:"epoch"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, uint64(0), env.Data.Epoch)
}

func TestAddressMustBeTwentyByteHex(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/vaults/notahexaddress/epoch", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 400, w.Code)
}

func TestInitializeAuctionThenPlaceLimitOrder(t *testing.T) {
	router, addr := newTestRouter(t)
	addrHex := hex.EncodeToString(addr[:])

	initBody, _ := json.Marshal(map[string]any{"now": 1754211600})
	req := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/initialize-auction", bytes.NewReader(initBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	orderBody, _ := json.Marshal(map[string]any{
		"now":   1754211600,
		"price": "0.05",
		"size":  "10",
		"buyer": "buyer-1",
	})
	req2 := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/orders", bytes.NewReader(orderBody))
	req2.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	require.Equal(t, 200, w2.Code)
}

func TestDepositRejectsNonIntegerAmount(t *testing.T) {
	router, addr := newTestRouter(t)
	addrHex := hex.EncodeToString(addr[:])

	body, _ := json.Marshal(map[string]any{"holder": "alice", "amount": "not-a-number"})
	req := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/deposits", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 400, w.Code)
}

func TestDepositThenCancelDeposit(t *testing.T) {
	router, addr := newTestRouter(t)
	addrHex := hex.EncodeToString(addr[:])

	depositBody, _ := json.Marshal(map[string]any{"holder": "alice", "amount": "1000"})
	req := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/deposits", bytes.NewReader(depositBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	cancelBody, _ := json.Marshal(map[string]any{"holder": "alice", "amount": "400"})
	req2 := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/deposits/cancel", bytes.NewReader(cancelBody))
	req2.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	require.Equal(t, 200, w2.Code)

	req3 := httptest.NewRequest("GET", "/api/v1/vaults/"+addrHex+"/epochs-by-buyer/alice", nil)
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req3)
	require.Equal(t, 200, w3.Code)
	var env struct {
		Data struct {
			Epochs []uint64 `json:"epochs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &env))
	require.Equal(t, []uint64{0}, env.Data.Epochs)
}

func TestPlaceMarketOrder(t *testing.T) {
	router, addr := newTestRouter(t)
	addrHex := hex.EncodeToString(addr[:])

	initBody, _ := json.Marshal(map[string]any{"now": 1754211600})
	req := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/initialize-auction", bytes.NewReader(initBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	orderBody, _ := json.Marshal(map[string]any{
		"now":      1754650000,
		"size":     "10",
		"max_cost": "1000000",
		"buyer":    "buyer-1",
	})
	req2 := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/market-orders", bytes.NewReader(orderBody))
	req2.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	require.Equal(t, 200, w2.Code)
}

func TestFinalizeAuctionThenWithdrawFromAuction(t *testing.T) {
	router, addr := newTestRouter(t)
	addrHex := hex.EncodeToString(addr[:])

	initBody, _ := json.Marshal(map[string]any{"now": 1754211600})
	req := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/initialize-auction", bytes.NewReader(initBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	orderBody, _ := json.Marshal(map[string]any{
		"now":   1754211600,
		"price": "0.05",
		"size":  "10",
		"buyer": "buyer-1",
	})
	req2 := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/orders", bytes.NewReader(orderBody))
	req2.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	require.Equal(t, 200, w2.Code)

	rescueNow := 1754654400 + 24*3600 + 1
	finalizeBody, _ := json.Marshal(map[string]any{"now": rescueNow})
	req3 := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/finalize-auction", bytes.NewReader(finalizeBody))
	req3.Header.Set("Content-Type", "application/json")
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req3)
	require.Equal(t, 200, w3.Code)

	withdrawBody, _ := json.Marshal(map[string]any{"now": rescueNow, "buyer": "buyer-1"})
	req4 := httptest.NewRequest("POST", "/api/v1/vaults/"+addrHex+"/auction-withdrawals", bytes.NewReader(withdrawBody))
	req4.Header.Set("Content-Type", "application/json")
	w4 := httptest.NewRecorder()
	router.ServeHTTP(w4, req4)
	require.Equal(t, 200, w4.Code)
	var env struct {
		Data struct {
			Refund string `json:"refund"`
			Fill   string `json:"fill"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w4.Body.Bytes(), &env))
	require.NotEqual(t, "0", env.Data.Refund)
}
