package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL  string
	WalletAddress string

	// Fungible token configuration. Empty TokenMintAddress disables token
	// tracking; symbol and decimals are only consulted when a mint is set.
	TokenMintAddress string
	TokenSymbol      string
	TokenDecimals    int

	// Signing configuration (optional; empty disables the transfer endpoint)
	KeypairPath string

	// NATS configuration (optional; empty disables event publishing)
	NATSURL string

	// Database configuration (optional; empty disables the history archive)
	DatabaseURL string

	// Refresh configuration
	BalanceInterval  time.Duration
	HistoryInterval  time.Duration
	HistoryLimit     int
	HistoryBatchSize int

	// Transfer sanity caps in smallest units; 0 disables the cap.
	MaxNativeTransfer uint64
	MaxTokenTransfer  uint64
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.WalletAddress = os.Getenv("WALLET_ADDRESS")
	if cfg.WalletAddress == "" {
		errs = append(errs, fmt.Errorf("WALLET_ADDRESS is required"))
	}

	// Token configuration
	cfg.TokenMintAddress = os.Getenv("TOKEN_MINT_ADDRESS")
	cfg.TokenSymbol = getEnvOrDefault("TOKEN_SYMBOL", "USDC")
	tokenDecimals, err := parseInt("TOKEN_DECIMALS", 6)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.TokenDecimals = tokenDecimals
	}
	if cfg.TokenDecimals < 0 || cfg.TokenDecimals > 18 {
		errs = append(errs, fmt.Errorf("TOKEN_DECIMALS must be between 0 and 18, got %d", cfg.TokenDecimals))
	}

	// Optional integrations
	cfg.KeypairPath = os.Getenv("KEYPAIR_PATH")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	// Refresh configuration
	balanceInterval, err := parseDuration("BALANCE_INTERVAL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.BalanceInterval = balanceInterval
	}

	historyInterval, err := parseDuration("HISTORY_INTERVAL", "60s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HistoryInterval = historyInterval
	}

	historyLimit, err := parseInt("HISTORY_LIMIT", 50)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HistoryLimit = historyLimit
	}

	historyBatchSize, err := parseInt("HISTORY_BATCH_SIZE", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HistoryBatchSize = historyBatchSize
	}

	// Transfer caps
	maxNative, err := parseUint("MAX_NATIVE_TRANSFER", 0)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxNativeTransfer = maxNative
	}

	maxToken, err := parseUint("MAX_TOKEN_TRANSFER", 0)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxTokenTransfer = maxToken
	}

	// Validate intervals
	if cfg.BalanceInterval < time.Second {
		errs = append(errs, fmt.Errorf("BALANCE_INTERVAL (%v) must be at least 1 second", cfg.BalanceInterval))
	}
	if cfg.HistoryInterval < time.Second {
		errs = append(errs, fmt.Errorf("HISTORY_INTERVAL (%v) must be at least 1 second", cfg.HistoryInterval))
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.WalletAddress == "" {
		errs = append(errs, fmt.Errorf("WalletAddress is required"))
	}

	if c.TokenMintAddress != "" && c.TokenSymbol == "" {
		errs = append(errs, fmt.Errorf("TokenSymbol is required when a token mint is configured"))
	}

	if c.TokenDecimals < 0 || c.TokenDecimals > 18 {
		errs = append(errs, fmt.Errorf("TokenDecimals must be between 0 and 18"))
	}

	if c.BalanceInterval < time.Second {
		errs = append(errs, fmt.Errorf("BalanceInterval must be at least 1 second"))
	}

	if c.HistoryInterval < time.Second {
		errs = append(errs, fmt.Errorf("HistoryInterval must be at least 1 second"))
	}

	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("HistoryLimit must be positive"))
	}

	if c.HistoryBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("HistoryBatchSize must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseUint parses an unsigned integer from an environment variable or uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid unsigned integer %q: %w", key, value, err)
	}
	return result, nil
}
