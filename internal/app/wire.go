package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/flasharb/internal/blob/s3"
	"github.com/alanyoungcy/flasharb/internal/cache/redis"
	"github.com/alanyoungcy/flasharb/internal/chain"
	"github.com/alanyoungcy/flasharb/internal/config"
	"github.com/alanyoungcy/flasharb/internal/detector"
	"github.com/alanyoungcy/flasharb/internal/domain"
	"github.com/alanyoungcy/flasharb/internal/executor"
	"github.com/alanyoungcy/flasharb/internal/gas"
	"github.com/alanyoungcy/flasharb/internal/ledger"
	"github.com/alanyoungcy/flasharb/internal/notify"
	"github.com/alanyoungcy/flasharb/internal/pricing"
	"github.com/alanyoungcy/flasharb/internal/risk"
	"github.com/alanyoungcy/flasharb/internal/scheduler"
	"github.com/alanyoungcy/flasharb/internal/server/ws"
	"github.com/alanyoungcy/flasharb/internal/service"
	"github.com/alanyoungcy/flasharb/internal/store/postgres"
)

// Dependencies bundles everything the operating modes need. It is constructed
// by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Scheduler *scheduler.Scheduler
	Service   *service.Service

	// Hub is nil when the HTTP server is disabled.
	Hub *ws.Hub

	// Archiver is nil unless ledger archival is enabled.
	Archiver *ledger.Archiver

	// Notifier is nil when no delivery channel is configured.
	Notifier *notify.Notifier

	// Trading reports whether the execution stack was wired (trade and full
	// modes). Monitor mode serves the read surface only.
	Trading bool
}

// tradingMode returns true for modes that submit transactions.
func tradingMode(mode string) bool {
	switch strings.ToLower(mode) {
	case "trade", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Trading: tradingMode(cfg.Mode)}

	// --- Chain backend (gas telemetry in every mode, settlement in trading modes) ---
	ethClient, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, ethClient.Close)

	// --- Price sources, in configured fallback order ---
	tokenAddrs := make(map[string]string, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokenAddrs[strings.ToUpper(strings.TrimSpace(t.Symbol))] = t.Address
	}

	var (
		sources  []pricing.Source
		venueSrc pricing.VenueSource
	)
	for _, name := range cfg.Sources.Priority {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "dexscreener":
			ds := pricing.NewDexScreener(cfg.Sources.DexScreenerHost, tokenAddrs)
			sources = append(sources, ds)
			venueSrc = ds
		case "coingecko":
			sources = append(sources, pricing.NewCoinGecko(cfg.Sources.CoinGeckoHost, tokenAddrs))
		default:
			cleanup()
			return nil, nil, fmt.Errorf("wire: unknown price source %q", name)
		}
	}

	aggregator := pricing.NewAggregator(sources, venueSrc, cfg.Sources.RequestTimeout.Duration, logger)
	oracle := gas.NewOracle(ethClient, cfg.Sources.RequestTimeout.Duration, logger)

	detectorCfg := detector.Config{
		MinSpreadPct:     cfg.Detector.MinSpreadPct,
		MinNetProfitUSD:  cfg.Detector.MinNetProfitUSD,
		TradeSize:        cfg.Detector.TradeSize,
		GasUnitsEstimate: cfg.Detector.GasUnitsEstimate,
		MaxOpportunities: cfg.Detector.MaxOpportunities,
	}

	deps.Scheduler = scheduler.New(aggregator, oracle, detector.New(detectorCfg), scheduler.Config{
		Tokens:       cfg.TokenSymbols(),
		PriceCadence: cfg.Scheduler.PriceInterval.Duration,
		GasCadence:   cfg.Scheduler.GasInterval.Duration,
	}, logger)

	if cfg.Server.Enabled {
		deps.Hub = ws.NewHub(cfg.Mode, logger)
	}

	// --- Redis (optional live-state mirror and distributed execution lock) ---
	var (
		mirrors []domain.LiveStateMirror
		locks   domain.LockManager = service.NewMemoryLockManager()
	)
	if deps.Hub != nil {
		mirrors = append(mirrors, deps.Hub)
	}
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		// Mirror entries outlive a few missed refreshes, then expire rather
		// than serving arbitrarily old data to out-of-process readers.
		mirrorTTL := 10 * cfg.Scheduler.PriceInterval.Duration
		mirrors = append(mirrors, redis.NewLiveState(redisClient, mirrorTTL))
		locks = redis.NewLockManager(redisClient)
	}
	switch len(mirrors) {
	case 0:
	case 1:
		deps.Scheduler.WithMirror(mirrors[0])
	default:
		deps.Scheduler.WithMirror(fanoutMirror(mirrors))
	}

	// --- Ledger store: PostgreSQL when configured, in-memory otherwise ---
	var ledgerStore domain.LedgerStore
	if cfg.Postgres.DSN != "" || cfg.Postgres.Host != "" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		ledgerStore = postgres.NewLedgerStore(pgClient.Pool())
	} else {
		logger.Warn("postgres not configured, ledger entries will not survive a restart")
		ledgerStore = ledger.NewMemoryStore()
	}

	// --- S3 archival (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = ledger.NewArchiver(
			ledgerStore,
			s3blob.NewWriter(s3Client),
			time.Duration(cfg.Archive.RetentionDays)*24*time.Hour,
			cfg.Archive.Interval.Duration,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
		deps.Scheduler.WithAlerter(deps.Notifier)
	}

	// --- Execution stack (trade and full modes) ---
	svcCfg := service.Config{
		Pipeline:    deps.Scheduler,
		Ledger:      ledgerStore,
		Locks:       locks,
		LockTTL:     cfg.Execution.LockTTL.Duration,
		Notifier:    deps.Notifier,
		DetectorCfg: detectorCfg,
		TokenAddrs:  tokenAddrs,
		Logger:      logger,
	}
	if deps.Hub != nil {
		svcCfg.Broadcast = deps.Hub.BroadcastExecution
	}

	if deps.Trading {
		keyHex, err := chain.LoadKey(chain.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		signer, err := chain.NewSigner(keyHex, cfg.Chain.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}

		settlement, err := chain.NewSettlementContract(ethClient, cfg.Chain.SettlementContract, signer, cfg.Execution.GasLimit, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		riskManager, err := chain.NewRiskManager(ethClient, cfg.Chain.RiskManagerContract, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		gate := risk.NewGate(riskManager, cfg.Execution.SlippageBps, logger)

		svcCfg.Runner = executor.New(settlement, gate, ledgerStore, executor.Config{
			Strategy:        executor.GasStrategy(cfg.Execution.GasStrategy),
			CustomGasGwei:   cfg.Execution.CustomGasGwei,
			SlippageBps:     cfg.Execution.SlippageBps,
			MinNetProfitUSD: cfg.Detector.MinNetProfitUSD,
			ConfirmTimeout:  cfg.Execution.ConfirmationTimeout.Duration,
		}, logger)
		svcCfg.RiskReader = gate
		svcCfg.Admin = settlement
		svcCfg.Actor = signer.Address()

		logger.Info("execution stack wired",
			"actor", signer.Address().Hex(),
			"settlement", settlement.Address().Hex(),
			"gas_strategy", cfg.Execution.GasStrategy)
	}

	deps.Service = service.New(svcCfg)
	return deps, cleanup, nil
}

// fanoutMirror forwards every mirror write to all members; errors are joined
// so a failing member never hides the others.
type fanoutMirror []domain.LiveStateMirror

func (f fanoutMirror) SetSnapshots(ctx context.Context, snaps []domain.PriceSnapshot) error {
	var errs []error
	for _, m := range f {
		errs = append(errs, m.SetSnapshots(ctx, snaps))
	}
	return errors.Join(errs...)
}

func (f fanoutMirror) SetGas(ctx context.Context, reading domain.GasReading) error {
	var errs []error
	for _, m := range f {
		errs = append(errs, m.SetGas(ctx, reading))
	}
	return errors.Join(errs...)
}

func (f fanoutMirror) SetOpportunities(ctx context.Context, opps []domain.Opportunity) error {
	var errs []error
	for _, m := range f {
		errs = append(errs, m.SetOpportunities(ctx, opps))
	}
	return errors.Join(errs...)
}

func (f fanoutMirror) Publish(ctx context.Context, channel string, payload []byte) error {
	var errs []error
	for _, m := range f {
		errs = append(errs, m.Publish(ctx, channel, payload))
	}
	return errors.Join(errs...)
}
