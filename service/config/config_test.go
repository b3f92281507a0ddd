package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOLANA_RPC_URL", "https://api.devnet.solana.com")
	t.Setenv("WALLET_ADDRESS", "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.SolanaRPCURL)
	assert.Empty(t, cfg.TokenMintAddress)
	assert.Equal(t, 6, cfg.TokenDecimals)
	assert.Equal(t, 30*time.Second, cfg.BalanceInterval)
	assert.Equal(t, time.Minute, cfg.HistoryInterval)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, 5, cfg.HistoryBatchSize)
	assert.Zero(t, cfg.MaxNativeTransfer)
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")
	t.Setenv("WALLET_ADDRESS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL is required")
	assert.Contains(t, err.Error(), "WALLET_ADDRESS is required")
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("TOKEN_MINT_ADDRESS", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	t.Setenv("TOKEN_SYMBOL", "USDC")
	t.Setenv("TOKEN_DECIMALS", "6")
	t.Setenv("BALANCE_INTERVAL", "10s")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("MAX_NATIVE_TRANSFER", "1000000000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", cfg.TokenMintAddress)
	assert.Equal(t, 10*time.Second, cfg.BalanceInterval)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, uint64(1_000_000_000), cfg.MaxNativeTransfer)
}

func TestLoadInvalidValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BALANCE_INTERVAL", "not-a-duration")
	t.Setenv("HISTORY_LIMIT", "abc")
	t.Setenv("MAX_NATIVE_TRANSFER", "-5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BALANCE_INTERVAL")
	assert.Contains(t, err.Error(), "HISTORY_LIMIT")
	assert.Contains(t, err.Error(), "MAX_NATIVE_TRANSFER")
}

func TestLoadIntervalTooShort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BALANCE_INTERVAL", "100ms")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BALANCE_INTERVAL")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		SolanaRPCURL:     "https://api.devnet.solana.com",
		WalletAddress:    "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		TokenSymbol:      "USDC",
		TokenDecimals:    6,
		BalanceInterval:  30 * time.Second,
		HistoryInterval:  time.Minute,
		HistoryLimit:     50,
		HistoryBatchSize: 5,
	}
	require.NoError(t, cfg.Validate())

	cfg.WalletAddress = ""
	require.Error(t, cfg.Validate())
}
