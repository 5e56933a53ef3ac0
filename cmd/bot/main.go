package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/crypto-trading-bot/cmd/common"
	"github.com/ducminhle1904/crypto-trading-bot/internal/bot"
	"github.com/ducminhle1904/crypto-trading-bot/internal/config"
	boterrors "github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/logger"
	"github.com/ducminhle1904/crypto-trading-bot/internal/report"
)

type options struct {
	configFile string
	envFile    string
	paper      bool
	exportPath string
	idle       bool
	version    bool
}

func parseFlags(args []string) (options, error) {
	var o options
	set := flag.NewFlagSet("bot", flag.ContinueOnError)
	set.StringVar(&o.configFile, "config", "", "YAML config file (environment variables override it)")
	set.StringVar(&o.envFile, "env", ".env", "Environment file path")
	set.BoolVar(&o.paper, "paper", false, "Force the paper venue")
	set.StringVar(&o.exportPath, "export", "", "Write the stored trade history to this .xlsx file and exit")
	set.BoolVar(&o.idle, "idle", false, "Serve the API without starting the trading loop")
	set.BoolVar(&o.version, "version", false, "Show version information")
	err := set.Parse(args)
	return o, err
}

// exitCode is 2 for startup errors that need operator action
func exitCode(err error) int {
	for _, e := range boterrors.Errors(err) {
		var botErr *boterrors.BotError
		if errors.As(e, &botErr) && botErr.IsFatal() {
			return 2
		}
	}
	return 1
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if opts.version {
		common.PrintVersion("trading-bot")
		return
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(opts options) error {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", opts.envFile, err)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if opts.paper {
		cfg.Exchange = "paper"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.NewLogger(loggerOptions(cfg))
	if err != nil {
		return err
	}
	defer log.Close()
	log.Info("%s %s, log file %s", common.ProjectName, common.GetFullVersion(), log.GetLogPath())

	a, err := build(cfg, log)
	if err != nil {
		log.LogError("Startup", err)
		return err
	}
	defer a.close()

	if opts.exportPath != "" {
		return a.export(opts.exportPath)
	}

	a.bot.PrintStartupInfo(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() { serverErr <- a.server.Run() }()

	if !opts.idle {
		if err := a.bot.Start(ctx); err != nil {
			log.LogError("Start", err)
			a.shutdown()
			return err
		}
	}

	select {
	case <-ctx.Done():
		log.Status("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.LogError("HTTP server", err)
		}
	}
	return a.shutdown()
}

// shutdown stops the loop, closes positions and drains the HTTP server
func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopErr := a.bot.Stop(ctx)
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.LogWarning("Shutdown", "HTTP server: %v", err)
	}
	bot.RenderStatus(os.Stdout, a.bot.Status())
	return stopErr
}

// export writes the stored trades and their metrics to an Excel workbook
func (a *app) export(path string) error {
	trades, err := a.trades.RecentTrades(context.Background(), 0)
	if err != nil {
		return err
	}
	a.calc.RestoreTrades(trades)
	balance := a.cfg.InitialBalance
	for _, tr := range trades {
		balance += tr.PnL
	}
	metrics := a.calc.PortfolioMetrics(balance, a.cfg.InitialBalance)
	if err := report.WriteTradesXLSX(path, trades, metrics); err != nil {
		return err
	}
	a.log.Info("Exported %d trades to %s", len(trades), path)
	return nil
}
