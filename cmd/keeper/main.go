// Command keeper runs the one-time bootstrap and the weekly
// initialize-auction/initialize-epoch/process-auction operations against
// one vault; the weekly operations are guarded by a distributed lock so
// two keeper processes never race the same transition. Modeled on the teacher's simpler single-binary
// mains (cmd/derivatives) rather than its gRPC-server-only shape,
// since this binary is a one-shot CLI, not a long-running server.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"log"
	"os"

	"github.com/wyfcoding/vaultengine/internal/vault/infrastructure/wiring"
	"github.com/wyfcoding/vaultengine/pkg/config"
	"github.com/wyfcoding/vaultengine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/keeper.toml", "path to TOML config")
	command := flag.String("command", "", "bootstrap|initialize-auction|initialize-epoch|process-auction")
	addressHex := flag.String("address", "", "vault address, hex-encoded, no 0x prefix")
	now := flag.Int64("now", 0, "unix timestamp to run the operation at")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	slogger := logger.Get()

	raw, err := hex.DecodeString(*addressHex)
	if err != nil || len(raw) != 20 {
		slogger.Error("address must be a 20-byte hex string", "address", *addressHex)
		os.Exit(1)
	}
	var address [20]byte
	copy(address[:], raw)

	layers, err := wiring.Build(cfg, slogger)
	if err != nil {
		slogger.Error("wire layers", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *command == "bootstrap" {
		domainCfg, err := wiring.DomainConfig(cfg.Vault)
		if err != nil {
			slogger.Error("map vault config", "error", err)
			os.Exit(1)
		}
		if err := layers.App.Bootstrap(ctx, address, domainCfg); err != nil {
			slogger.Error("bootstrap", "error", err)
			os.Exit(1)
		}
		return
	}

	acquired, err := layers.Lock.TryAcquire(ctx, address, *command)
	if err != nil {
		slogger.Error("acquire lock", "error", err)
		os.Exit(1)
	}
	if !acquired {
		slogger.Warn("another keeper already holds this lock", "command", *command, "address", *addressHex)
		return
	}
	defer layers.Lock.Release(ctx, address, *command)

	switch *command {
	case "initialize-auction":
		err = layers.App.InitializeAuction(ctx, address, *now)
	case "initialize-epoch":
		err = layers.App.InitializeEpoch(ctx, address, *now, layers.Offset)
	case "process-auction":
		err = layers.App.ProcessAuction(ctx, address, *now)
	default:
		slogger.Error("unknown command", "command", *command)
		os.Exit(1)
	}
	if err != nil {
		slogger.Error("run command", "command", *command, "error", err)
		os.Exit(1)
	}
}
