package main

import (
	"time"

	"go.uber.org/multierr"

	"github.com/ducminhle1904/crypto-trading-bot/internal/api"
	"github.com/ducminhle1904/crypto-trading-bot/internal/bot"
	"github.com/ducminhle1904/crypto-trading-bot/internal/config"
	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange/adapters"
	"github.com/ducminhle1904/crypto-trading-bot/internal/logger"
	"github.com/ducminhle1904/crypto-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-bot/internal/notifications"
	"github.com/ducminhle1904/crypto-trading-bot/internal/portfolio"
	"github.com/ducminhle1904/crypto-trading-bot/internal/regime"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/internal/safety"
	"github.com/ducminhle1904/crypto-trading-bot/internal/signal"
	"github.com/ducminhle1904/crypto-trading-bot/internal/state"
	"github.com/ducminhle1904/crypto-trading-bot/internal/store"
)

// app holds everything main starts and tears down
type app struct {
	bot    *bot.Orchestrator
	server *api.Server
	trades *store.TradeStore
	calc   *risk.Calculator
	cfg    *config.Config
	log    *logger.Logger
}

// build wires the orchestrator and its collaborators from cfg
func build(cfg *config.Config, log *logger.Logger) (*app, error) {
	exCfg := cfg.ExchangeConfig()
	guardCfg := safety.DefaultGuardConfig()
	guardCfg.OnTransition = func(class string, from, to safety.BreakerState) {
		monitoring.SetBreakerState(class, int(to))
		log.Warning("Circuit breaker %s: %s -> %s", class, from, to)
	}
	guard := safety.NewGuard(guardCfg)

	rawData, err := adapters.NewMarketDataSource(exCfg)
	if err != nil {
		return nil, err
	}
	data := safety.NewProtectedMarketData(rawData, guard)
	rawVenue, err := adapters.NewVenue(exCfg, data)
	if err != nil {
		return nil, err
	}
	venue := safety.NewProtectedVenue(rawVenue, guard)

	trades, err := store.NewTradeStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	persistence, err := state.NewStatePersistence(cfg.StateDir, log)
	if err != nil {
		return nil, multierr.Append(err, trades.Close())
	}

	var notifier notifications.Notifier = notifications.NopNotifier{}
	if cfg.TelegramEnabled() {
		notifier = notifications.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	}

	botCfg := cfg.BotConfig()
	calc := risk.NewCalculator(cfg.RiskConfig())
	regimeCfg := regime.DefaultRegimeConfig()
	regimeCfg.HighVolatilityPct = cfg.HighVolatilityThreshold
	detector := regime.NewRegimeDetector(regimeCfg)
	detector.Events().Subscribe("log", func(c regime.RegimeChange) {
		log.Info("Regime change %s: %s -> %s at %.8f (volatility %.1f%%)", c.Symbol, c.OldRegime, c.NewRegime, c.TriggerPrice, c.Volatility)
	})
	health := monitoring.NewHealthChecker(3 * botCfg.LoopInterval)

	orch, err := bot.New(botCfg, bot.Deps{
		Venue:      venue,
		Data:       data,
		Signals:    signal.NewSentimentGenerator(signal.DefaultSentimentConfig()),
		Calculator: calc,
		Monitor:    portfolio.NewMonitor(calc, notifier, log, botCfg.RiskCheckInterval),
		Regime:     detector,
		Validator:  safety.NewValidator(),
		Guard:      guard,
		Trades:     trades,
		State:      persistence,
		Notifier:   notifier,
		Health:     health,
		Logger:     log,
	})
	if err != nil {
		return nil, multierr.Append(err, trades.Close())
	}

	return &app{
		bot:    orch,
		server: api.NewServer(cfg.HTTPAddr, orch, health, guard, log),
		trades: trades,
		calc:   calc,
		cfg:    cfg,
		log:    log,
	}, nil
}

func (a *app) close() error {
	return a.trades.Close()
}

func loggerOptions(cfg *config.Config) logger.Options {
	return logger.Options{
		Name:       "trading_bot",
		Dir:        cfg.LogDir,
		Level:      cfg.LogLevel,
		Console:    true,
		MaxSizeMB:  50,
		MaxBackups: 7,
		MaxAgeDays: 30,
	}
}

const shutdownTimeout = 45 * time.Second
