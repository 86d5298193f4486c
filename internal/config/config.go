package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	PrivateKey          string
	KeystorePath        string
	KeystorePassphrase  string
	EthereumAPIEndpoint string
	RelayerAPIKey       string
	WebhookURL          string
	AppName             string
	APIKey              string
	CORSAllowOrigin     string

	// Database
	DBEnabled  bool
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Redis (decryption cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Blockchain
	ChainID         int
	ContractAddress string
	GasLimit        int
	GasMultiplier   float64

	// FHE relayer
	RelayerURL string

	// Wallet
	WalletAutoConnect     bool
	WalletRequireApproval bool

	// API
	APIPort int

	// Data loading
	LoadConcurrency        int
	RefreshIntervalSeconds int

	// Status toasts
	StatusSuccessTTL time.Duration
	StatusErrorTTL   time.Duration

	// Draft guard (0 disables)
	MaxEnergyAmount int
	MaxPricePerUnit int
	MaxDailyTrades  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		PrivateKey:          envStr("PRIVATE_KEY", ""),
		KeystorePath:        envStr("WALLET_KEYSTORE_PATH", ""),
		KeystorePassphrase:  envStr("WALLET_PASSPHRASE", ""),
		EthereumAPIEndpoint: envStr("ETHEREUM_API_ENDPOINT", ""),
		RelayerAPIKey:       envStr("FHE_RELAYER_API_KEY", ""),
		WebhookURL:          envStr("WEBHOOK_URL", ""),
		AppName:             envStr("APP_NAME", "EnergyMarket"),
		APIKey:              envStr("API_KEY", ""),
		CORSAllowOrigin:     envStr("CORS_ALLOW_ORIGIN", "*"),

		// Database
		DBEnabled:  envBool("DB_ENABLED", true),
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "energy_market"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Redis
		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		// Blockchain
		ChainID:         envInt("CHAIN_ID", 11155111),
		ContractAddress: envStr("CONTRACT_ADDRESS", ""),
		GasLimit:        envInt("GAS_LIMIT", 3000000),
		GasMultiplier:   envFloat("GAS_MULTIPLIER", 1.2),

		// FHE relayer
		RelayerURL: envStr("FHE_RELAYER_URL", ""),

		// Wallet
		WalletAutoConnect:     envBool("WALLET_AUTO_CONNECT", false),
		WalletRequireApproval: envBool("WALLET_REQUIRE_APPROVAL", false),

		// API
		APIPort: envInt("API_PORT", 3001),

		// Data loading
		LoadConcurrency:        envInt("LOAD_CONCURRENCY", 4),
		RefreshIntervalSeconds: envInt("REFRESH_INTERVAL_SECONDS", 0),

		// Status toasts
		StatusSuccessTTL: envMillis("STATUS_SUCCESS_TTL_MS", 2000),
		StatusErrorTTL:   envMillis("STATUS_ERROR_TTL_MS", 3000),

		// Draft guard
		MaxEnergyAmount: envInt("MAX_ENERGY_AMOUNT", 0),
		MaxPricePerUnit: envInt("MAX_PRICE_PER_UNIT", 0),
		MaxDailyTrades:  envInt("MAX_DAILY_TRADES", 0),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.EthereumAPIEndpoint == "" {
		errs = append(errs, "ETHEREUM_API_ENDPOINT is required")
	}
	if c.ContractAddress == "" {
		errs = append(errs, "CONTRACT_ADDRESS is required")
	} else if !isHexAddress(c.ContractAddress) {
		errs = append(errs, "CONTRACT_ADDRESS is not a valid hex address")
	}
	if c.RelayerURL == "" {
		errs = append(errs, "FHE_RELAYER_URL is required")
	}
	if c.PrivateKey != "" && c.KeystorePath != "" {
		errs = append(errs, "set either PRIVATE_KEY or WALLET_KEYSTORE_PATH, not both")
	}
	if c.WalletAutoConnect && c.PrivateKey == "" && c.KeystorePath == "" {
		errs = append(errs, "WALLET_AUTO_CONNECT requires PRIVATE_KEY or WALLET_KEYSTORE_PATH")
	}
	if c.LoadConcurrency < 1 {
		errs = append(errs, "LOAD_CONCURRENCY must be at least 1")
	}
	if c.PrivateKey == "" && c.KeystorePath == "" {
		fmt.Println("[WARN] No wallet key configured - trades can be browsed but not created or verified")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set - REST API has no authentication")
	}
	if c.RedisAddr == "" {
		fmt.Println("[WARN] REDIS_ADDR not set - decrypted values are cached in memory only")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== FHE Energy Market Configuration ===")
	fmt.Printf("Chain ID: %d\n", c.ChainID)
	fmt.Printf("Contract: %s\n", c.ContractAddress)
	fmt.Printf("RPC: %s\n", truncURL(c.EthereumAPIEndpoint))
	fmt.Printf("FHE Relayer: %s\n", truncURL(c.RelayerURL))
	fmt.Println("--------------------------------------")
	fmt.Println("Wallet:")
	fmt.Printf("  Key source: %s\n", c.keySource())
	fmt.Printf("  Auto-connect: %v\n", c.WalletAutoConnect)
	fmt.Printf("  Manual approval: %v\n", c.WalletRequireApproval)
	fmt.Println("--------------------------------------")
	fmt.Println("Data:")
	fmt.Printf("  Load concurrency: %d\n", c.LoadConcurrency)
	if c.RefreshIntervalSeconds > 0 {
		fmt.Printf("  Auto-refresh: every %ds\n", c.RefreshIntervalSeconds)
	} else {
		fmt.Println("  Auto-refresh: disabled")
	}
	fmt.Printf("  Snapshot store: %s\n", boolLabel(c.DBEnabled, "postgres", "disabled"))
	fmt.Printf("  Decryption cache: %s\n", boolLabel(c.RedisAddr != "", "redis "+c.RedisAddr, "memory"))
	fmt.Printf("  Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// RefreshInterval is zero when periodic refresh is disabled.
func (c *Config) RefreshInterval() time.Duration {
	if c.RefreshIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

func (c *Config) keySource() string {
	switch {
	case c.PrivateKey != "":
		return "private key"
	case c.KeystorePath != "":
		return "keystore " + c.KeystorePath
	default:
		return "none (read-only)"
	}
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func isHexAddress(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func truncURL(u string) string {
	if len(u) > 40 {
		return u[:40] + "..."
	}
	return u
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
