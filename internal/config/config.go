// Package config defines the top-level configuration for the flasharb daemon
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// duration wraps time.Duration so TOML values like "3s" decode directly.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FLASHARB_* environment variables.
// The layout is versioned: bump Version when a field changes meaning.
type Config struct {
	Version   int             `toml:"version"`
	Wallet    WalletConfig    `toml:"wallet"`
	Chain     ChainConfig     `toml:"chain"`
	Sources   SourcesConfig   `toml:"sources"`
	Tokens    []TokenConfig   `toml:"tokens"`
	Detector  DetectorConfig  `toml:"detector"`
	Execution ExecutionConfig `toml:"execution"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the signing identity used to authorize transactions.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds the JSON-RPC endpoint and deployed contract addresses.
type ChainConfig struct {
	RPCURL              string `toml:"rpc_url"`
	ChainID             int64  `toml:"chain_id"`
	SettlementContract  string `toml:"settlement_contract"`
	RiskManagerContract string `toml:"risk_manager_contract"`
}

// SourcesConfig holds the price-feed endpoints and the fallback order.
type SourcesConfig struct {
	DexScreenerHost string   `toml:"dexscreener_host"`
	CoinGeckoHost   string   `toml:"coingecko_host"`
	Priority        []string `toml:"priority"` // adapter names, tried in order
	RequestTimeout  duration `toml:"request_timeout"`
}

// TokenConfig names one monitored token and its on-chain address.
type TokenConfig struct {
	Symbol  string `toml:"symbol"`
	Address string `toml:"address"`
}

// DetectorConfig holds the opportunity-scoring thresholds.
type DetectorConfig struct {
	MinSpreadPct     float64 `toml:"min_spread_pct"`     // skip pairs below this spread
	MinNetProfitUSD  float64 `toml:"min_net_profit_usd"` // absolute profit floor
	TradeSize        float64 `toml:"trade_size"`         // units of the traded token
	GasUnitsEstimate uint64  `toml:"gas_units_estimate"` // one flash-loan round trip
	MaxOpportunities int     `toml:"max_opportunities"`  // list truncation bound
}

// GasStrategy selects how the execution gas price is derived from the oracle.
type GasStrategy string

const (
	GasStrategySlow     GasStrategy = "slow"
	GasStrategyStandard GasStrategy = "standard"
	GasStrategyFast     GasStrategy = "fast"
	GasStrategyCustom   GasStrategy = "custom"
)

// ExecutionConfig holds the transaction-building parameters.
type ExecutionConfig struct {
	Enabled             bool        `toml:"enabled"`
	GasStrategy         GasStrategy `toml:"gas_strategy"`
	CustomGasGwei       float64     `toml:"custom_gas_gwei"` // used when gas_strategy = "custom"
	GasLimit            uint64      `toml:"gas_limit"`
	SlippageBps         int64       `toml:"slippage_bps"`
	ConfirmationTimeout duration    `toml:"confirmation_timeout"`
	LockTTL             duration    `toml:"lock_ttl"`
}

// SchedulerConfig holds the independent refresh cadences.
type SchedulerConfig struct {
	PriceInterval duration `toml:"price_interval"`
	GasInterval   duration `toml:"gas_interval"`
}

// PostgresConfig holds ledger persistence parameters. When DSN and Host are
// both empty the ledger runs in memory.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the optional live-state mirror connection. Disabled when
// Addr is empty.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for ledger archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls cold-storage export of aged ledger entries.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds the HTTP/WebSocket API server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds outbound notification parameters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"` // e.g. ["execution","degraded"]
}

// Validate checks the configuration for internal consistency. It returns an
// error describing the first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "monitor":
	case "trade", "full":
		if !c.Execution.Enabled {
			return fmt.Errorf("config: mode %q requires execution.enabled", c.Mode)
		}
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if len(c.Tokens) == 0 {
		return fmt.Errorf("config: at least one token must be configured")
	}
	seen := make(map[string]bool, len(c.Tokens))
	for _, t := range c.Tokens {
		sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
		if sym == "" {
			return fmt.Errorf("config: token with empty symbol")
		}
		if seen[sym] {
			return fmt.Errorf("config: duplicate token %q", sym)
		}
		seen[sym] = true
	}

	if len(c.Sources.Priority) == 0 {
		return fmt.Errorf("config: sources.priority must list at least one adapter")
	}
	if c.Sources.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("config: sources.request_timeout must be positive")
	}
	if c.Sources.RequestTimeout.Duration > 30*time.Second {
		return fmt.Errorf("config: sources.request_timeout must be bounded (<= 30s)")
	}

	// The gas oracle reads from the chain in every mode.
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("config: chain.rpc_url is required")
	}

	if c.Scheduler.PriceInterval.Duration <= 0 {
		return fmt.Errorf("config: scheduler.price_interval must be positive")
	}
	if c.Scheduler.GasInterval.Duration <= 0 {
		return fmt.Errorf("config: scheduler.gas_interval must be positive")
	}

	if c.Detector.TradeSize <= 0 {
		return fmt.Errorf("config: detector.trade_size must be positive")
	}
	if c.Detector.MinSpreadPct < 0 {
		return fmt.Errorf("config: detector.min_spread_pct must not be negative")
	}
	if c.Detector.GasUnitsEstimate == 0 {
		return fmt.Errorf("config: detector.gas_units_estimate must be positive")
	}
	if c.Detector.MaxOpportunities <= 0 {
		return fmt.Errorf("config: detector.max_opportunities must be positive")
	}

	if c.Execution.Enabled {
		switch c.Execution.GasStrategy {
		case GasStrategySlow, GasStrategyStandard, GasStrategyFast:
		case GasStrategyCustom:
			if c.Execution.CustomGasGwei <= 0 {
				return fmt.Errorf("config: execution.custom_gas_gwei must be positive with the custom strategy")
			}
		default:
			return fmt.Errorf("config: unsupported gas strategy %q", c.Execution.GasStrategy)
		}
		if c.Execution.GasLimit == 0 {
			return fmt.Errorf("config: execution.gas_limit must be positive")
		}
		if c.Execution.SlippageBps < 0 || c.Execution.SlippageBps > 10_000 {
			return fmt.Errorf("config: execution.slippage_bps out of range [0,10000]")
		}
		if c.Chain.SettlementContract == "" || c.Chain.RiskManagerContract == "" {
			return fmt.Errorf("config: settlement and risk manager contract addresses are required when execution is enabled")
		}
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			return fmt.Errorf("config: wallet.private_key or wallet.encrypted_key_path is required when execution is enabled")
		}
	}

	if c.Archive.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: s3.bucket is required when archive is enabled")
		}
		if c.Archive.RetentionDays <= 0 {
			return fmt.Errorf("config: archive.retention_days must be positive")
		}
		if c.Archive.Interval.Duration <= 0 {
			return fmt.Errorf("config: archive.interval must be positive")
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port out of range")
	}

	return nil
}

// TokenSymbols returns the configured token symbols, upper-cased, in the
// configured order.
func (c *Config) TokenSymbols() []string {
	syms := make([]string, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		syms = append(syms, strings.ToUpper(strings.TrimSpace(t.Symbol)))
	}
	return syms
}

// TokenAddress returns the configured address for a symbol, or "".
func (c *Config) TokenAddress(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, t := range c.Tokens {
		if strings.ToUpper(strings.TrimSpace(t.Symbol)) == symbol {
			return t.Address
		}
	}
	return ""
}
