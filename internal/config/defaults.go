package config

import "time"

// Defaults returns the built-in configuration. Values mirror the mainnet
// deployment the daemon was written for; everything is overridable from TOML
// and environment.
func Defaults() Config {
	return Config{
		Version: 1,
		Mode:    "monitor",
		LogLevel: "info",
		Chain: ChainConfig{
			RPCURL:  "https://eth.llamarpc.com",
			ChainID: 1,
		},
		Sources: SourcesConfig{
			DexScreenerHost: "https://api.dexscreener.com",
			CoinGeckoHost:   "https://api.coingecko.com",
			Priority:        []string{"dexscreener", "coingecko"},
			RequestTimeout:  duration{5 * time.Second},
		},
		Tokens: []TokenConfig{
			{Symbol: "ETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
			{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
			{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
			{Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F"},
			{Symbol: "WBTC", Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"},
			{Symbol: "LINK", Address: "0x514910771AF9Ca656af840dff83E8264EcF986CA"},
		},
		Detector: DetectorConfig{
			MinSpreadPct:     0.1,
			MinNetProfitUSD:  0,
			TradeSize:        10,
			GasUnitsEstimate: 350_000,
			MaxOpportunities: 10,
		},
		Execution: ExecutionConfig{
			Enabled:             false,
			GasStrategy:         GasStrategyStandard,
			GasLimit:            500_000,
			SlippageBps:         300,
			ConfirmationTimeout: duration{2 * time.Minute},
			LockTTL:             duration{3 * time.Minute},
		},
		Scheduler: SchedulerConfig{
			PriceInterval: duration{3 * time.Second},
			GasInterval:   duration{5 * time.Second},
		},
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 30,
			Interval:      duration{6 * time.Hour},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}
