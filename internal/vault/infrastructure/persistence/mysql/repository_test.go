package mysql

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	"github.com/wyfcoding/vaultengine/internal/vault/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("VAULT_TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(127.0.0.1:3306)/vault_test?charset=utf8mb4&parseTime=True"
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Skipf("mysql unavailable: %v", err)
	}
	require.NoError(t, db.AutoMigrate(&VaultRecord{}))
	return New(db)
}

func testVault(addr byte) *domain.Vault {
	var address [20]byte
	address[0] = addr
	cfg := domain.Config{
		IsCall:             true,
		UnderlyingDecimals: 18,
		BaseDecimals:       18,
		Delta:              fixedmath.FromInt64(0),
		DeltaOffset:        fixedmath.FromInt64(0),
		ReserveRate:        fixedmath.FromInt64(0),
		WithdrawalFee:      fixedmath.FromInt64(0),
		PerformanceFee:     fixedmath.FromInt64(0),
		MinAuctionSize:     big.NewInt(1),
		FeeRecipient:       "fees",
		Keeper:             "keeper",
	}
	return domain.New(address, cfg)
}

func TestSaveThenLoadRoundTripsVaultState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	v := testVault(10)
	v.CollateralBalance = big.NewInt(12345)

	require.NoError(t, repo.Save(ctx, v))

	loaded, err := repo.Load(ctx, v.Address)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, v.Address, loaded.Address)
	require.Equal(t, v.CollateralBalance.String(), loaded.CollateralBalance.String())
}

func TestLoadMissingVaultReturnsNilWithoutError(t *testing.T) {
	repo := newTestRepo(t)
	var address [20]byte
	address[0] = 250

	loaded, err := repo.Load(context.Background(), address)
	require.NoError(t, err)
	require.Nil(t, loaded)
}
