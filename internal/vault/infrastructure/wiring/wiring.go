// Package wiring assembles a VaultAppService from a loaded
// pkg/config.Config, shared by cmd/keeper and cmd/vault so both
// binaries build the exact same layer stack.
package wiring

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	"github.com/wyfcoding/vaultengine/internal/vault/application"
	"github.com/wyfcoding/vaultengine/internal/vault/domain"
	"github.com/wyfcoding/vaultengine/internal/vault/infrastructure/lock"
	"github.com/wyfcoding/vaultengine/internal/vault/infrastructure/messaging"
	"github.com/wyfcoding/vaultengine/internal/vault/infrastructure/persistence/mysql"
	"github.com/wyfcoding/vaultengine/internal/vault/infrastructure/pool"
	"github.com/wyfcoding/vaultengine/internal/vault/infrastructure/pricer"
	"github.com/wyfcoding/vaultengine/pkg/cache"
	"github.com/wyfcoding/vaultengine/pkg/config"
	"github.com/wyfcoding/vaultengine/pkg/db"
	"github.com/wyfcoding/vaultengine/pkg/mq"
)

// Layers holds every wired component a binary might need beyond the
// application service itself (the lock guard is keeper-only, but
// cheap enough to always build).
type Layers struct {
	DB     *db.DB
	Redis  *cache.RedisCache
	Lock   *lock.Guard
	App    *application.VaultAppService
	Config *config.Config
	Offset fixedmath.Fixed // configured auction delta offset
}

// flatFeed quotes a constant spot, for environments with no live
// oracle wired yet; Pricer.LatestAnswer64x64 is still exercised end to
// end, just against a fixed value until a real Feed is configured.
type flatFeed struct{ spot fixedmath.Fixed }

func (f flatFeed) LatestAnswer64x64() (fixedmath.Fixed, error) { return f.spot, nil }

// Build wires every vault layer from cfg.
func Build(cfg *config.Config, logger *slog.Logger) (*Layers, error) {
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrate(&mysql.VaultRecord{}, &messaging.OutboxMessage{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		Partitions:     cfg.Kafka.Partitions,
		Replication:    cfg.Kafka.Replication,
		SessionTimeout: cfg.Kafka.SessionTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init kafka producer: %w", err)
	}

	repo := mysql.New(database.DB)
	events := messaging.New(database.DB, producer)
	guard := lock.New(redisCache, 60*time.Second)

	grid := fixedmath.FromInt64(1)
	placeholderSpot, err := parseFixed("100")
	if err != nil {
		return nil, fmt.Errorf("placeholder spot: %w", err)
	}
	placeholderVol, err := parseFixed("0.6")
	if err != nil {
		return nil, fmt.Errorf("placeholder vol: %w", err)
	}
	feed := flatFeed{spot: placeholderSpot} // replaced by a real Feed once an oracle integration lands
	bsPricer := pricer.New(feed, fixedmath.Zero, placeholderVol, grid)

	settings := domain.PoolSettings{
		Base:             cfg.Vault.FeeRecipient,
		Underlying:       cfg.Vault.Keeper,
		BaseOracle:       "",
		UnderlyingOracle: "",
	}
	optionsPool := pool.New(settings, placeholderSpot)

	app := application.NewVaultAppService(repo, bsPricer, optionsPool, events, logger)

	offset, err := parseFixed(cfg.Vault.DeltaOffset)
	if err != nil {
		return nil, fmt.Errorf("vault.delta_offset: %w", err)
	}

	return &Layers{DB: database, Redis: redisCache, Lock: guard, App: app, Config: cfg, Offset: offset}, nil
}

// DomainConfig maps the TOML-loaded VaultConfig onto domain.Config for
// Bootstrap.
func DomainConfig(cfg config.VaultConfig) (domain.Config, error) {
	reserveRate, err := parseFixed(cfg.ReserveRate)
	if err != nil {
		return domain.Config{}, fmt.Errorf("reserve_rate: %w", err)
	}
	performanceFee, err := parseFixed(cfg.PerformanceFee)
	if err != nil {
		return domain.Config{}, fmt.Errorf("performance_fee: %w", err)
	}
	withdrawalFee, err := parseFixed(cfg.WithdrawalFee)
	if err != nil {
		return domain.Config{}, fmt.Errorf("withdrawal_fee: %w", err)
	}
	delta, err := parseFixed(cfg.Delta)
	if err != nil {
		return domain.Config{}, fmt.Errorf("delta: %w", err)
	}
	deltaOffset, err := parseFixed(cfg.DeltaOffset)
	if err != nil {
		return domain.Config{}, fmt.Errorf("delta_offset: %w", err)
	}
	minSizeDecimal, err := decimal.NewFromString(cfg.MinSize)
	if err != nil {
		return domain.Config{}, fmt.Errorf("min_size: %w", err)
	}
	minSize := minSizeDecimal.Mul(decimal.New(1, cfg.UnderlyingDecimals)).BigInt()

	return domain.Config{
		IsCall:             cfg.IsCall,
		UnderlyingDecimals: cfg.UnderlyingDecimals,
		BaseDecimals:       cfg.BaseDecimals,
		Delta:              delta,
		DeltaOffset:        deltaOffset,
		StartOffset:        cfg.StartOffsetSeconds,
		EndOffset:          cfg.EndOffsetSeconds,
		ReserveRate:        reserveRate,
		WithdrawalFee:      withdrawalFee,
		PerformanceFee:     performanceFee,
		MinAuctionSize:     minSize,
		FeeRecipient:       cfg.FeeRecipient,
		Keeper:             cfg.Keeper,
	}, nil
}

func parseFixed(s string) (fixedmath.Fixed, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fixedmath.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return fixedmath.FromDecimal(d), nil
}
