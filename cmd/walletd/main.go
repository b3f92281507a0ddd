package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"

	"github.com/solpocket/solpocket/service/config"
	"github.com/solpocket/solpocket/service/db"
	"github.com/solpocket/solpocket/service/metrics"
	"github.com/solpocket/solpocket/service/nats"
	"github.com/solpocket/solpocket/service/server"
	chain "github.com/solpocket/solpocket/service/solana"
	"github.com/solpocket/solpocket/service/wallet"
)

func main() {
	// Load .env for local development; real deployments set the environment.
	_ = godotenv.Load()

	// Load and validate configuration from environment.
	// This fails fast if any required config is missing or invalid.
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting walletd",
		"addr", cfg.ServerAddr,
		"wallet", cfg.WalletAddress,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Token configuration
	var tokenCfg wallet.TokenConfig
	if cfg.TokenMintAddress != "" {
		mint, err := solana.PublicKeyFromBase58(cfg.TokenMintAddress)
		if err != nil {
			logger.Error("invalid token mint address", "mint", cfg.TokenMintAddress, "error", err)
			os.Exit(1)
		}
		tokenCfg = wallet.TokenConfig{
			Mint:     mint,
			Symbol:   cfg.TokenSymbol,
			Decimals: uint8(cfg.TokenDecimals),
		}
		logger.Info("token tracking enabled", "mint", cfg.TokenMintAddress, "symbol", cfg.TokenSymbol)
	}

	// Chain access, shared state and metrics
	reader := chain.NewChainReader(cfg.SolanaRPCURL)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	store := wallet.NewStore(cfg.HistoryLimit)
	m := metrics.NewMetrics(nil)

	balances, err := wallet.NewBalanceSynchronizer(reader, store, cfg.WalletAddress, tokenCfg, m, logger)
	if err != nil {
		logger.Error("failed to create balance synchronizer", "error", err)
		os.Exit(1)
	}

	history, err := wallet.NewHistorySynchronizer(reader, store, cfg.WalletAddress, tokenCfg, cfg.HistoryLimit, cfg.HistoryBatchSize, m, logger)
	if err != nil {
		logger.Error("failed to create history synchronizer", "error", err)
		os.Exit(1)
	}

	// Optional local signing session for the transfer endpoint
	var orchestrator *wallet.TransferOrchestrator
	if cfg.KeypairPath != "" {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.KeypairPath)
		if err != nil {
			logger.Error("failed to load keypair", "path", cfg.KeypairPath, "error", err)
			os.Exit(1)
		}
		if key.PublicKey().String() != cfg.WalletAddress {
			logger.Error("keypair does not match WALLET_ADDRESS",
				"keypair_pubkey", key.PublicKey().String(),
				"wallet_address", cfg.WalletAddress,
			)
			os.Exit(1)
		}
		session := wallet.NewLocalSession(key, chain.NewRPCClient(cfg.SolanaRPCURL), logger)
		orchestrator, err = wallet.NewTransferOrchestrator(session, store, tokenCfg, cfg.MaxNativeTransfer, cfg.MaxTokenTransfer, m, logger)
		if err != nil {
			logger.Error("failed to create transfer orchestrator", "error", err)
			os.Exit(1)
		}
		logger.Info("transfer endpoint enabled", "signer", key.PublicKey().String())
	} else {
		logger.Info("no keypair configured, transfer endpoint disabled")
	}

	// Optional NATS event publishing
	var publisher nats.Publisher
	if cfg.NATSURL != "" {
		p, err := nats.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "url", cfg.NATSURL, "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	}

	// Optional Postgres archive
	var archive *db.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		archive = db.NewStore(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure archive schema", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database, history archive enabled")
	}

	// Fan out store updates to NATS and the archive.
	if publisher != nil || archive != nil {
		go publishUpdates(ctx, store, publisher, archive, cfg.WalletAddress, m, logger)
	}

	// Periodic refresh loops
	go refreshLoop(ctx, "balance", cfg.BalanceInterval, logger, func(ctx context.Context) error {
		_, err := balances.Refresh(ctx)
		return err
	})
	go refreshLoop(ctx, "history", cfg.HistoryInterval, logger, func(ctx context.Context) error {
		_, err := history.Refresh(ctx)
		return err
	})

	httpServer := server.New(cfg.ServerAddr, store, balances, history, orchestrator, reader, archive, m, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("walletd shutdown complete")
	}
}

// refreshLoop runs fn immediately and then on every tick until ctx is done.
func refreshLoop(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		logger.Warn("initial refresh failed", "loop", name, "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Warn("refresh failed", "loop", name, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// publishUpdates forwards store changes to NATS and the archive. Both sinks
// are best-effort; failures are logged and the loop continues.
func publishUpdates(ctx context.Context, store *wallet.Store, publisher nats.Publisher, archive *db.Store, address string, m *metrics.Metrics, logger *slog.Logger) {
	updates := store.Subscribe()
	for {
		select {
		case kind := <-updates:
			switch kind {
			case wallet.UpdateBalance:
				if publisher == nil {
					continue
				}
				event := nats.FromBalanceSnapshot(address, store.Balance())
				if err := publisher.PublishBalance(ctx, event); err != nil {
					logger.Error("failed to publish balance event", "error", err)
					m.RecordEventPublished("balance", "error")
					continue
				}
				m.RecordEventPublished("balance", "success")

			case wallet.UpdateHistory:
				records := store.History()
				if publisher != nil {
					event := nats.FromHistory(address, records)
					if err := publisher.PublishHistory(ctx, event); err != nil {
						logger.Error("failed to publish history event", "error", err)
						m.RecordEventPublished("history", "error")
					} else {
						m.RecordEventPublished("history", "success")
					}
				}
				if archive != nil {
					if err := archive.ArchiveHistory(ctx, address, records); err != nil {
						logger.Error("failed to archive history", "error", err)
					}
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
