package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/multierr"

	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange"
	"github.com/ducminhle1904/crypto-trading-bot/internal/exchange/adapters"
	"github.com/ducminhle1904/crypto-trading-bot/internal/recovery"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/data"
)

type options struct {
	source    string
	symbols   []string
	intervals []string
	limit     int
	dir       string
}

func main() {
	var (
		source    = flag.String("source", "binance", "Market data source (binance, bybit)")
		symbols   = flag.String("symbols", "BTC/USDT", "Comma-separated symbols")
		intervals = flag.String("intervals", "1h", "Comma-separated intervals (5m, 15m, 1h, 4h, 1d)")
		limit     = flag.Int("limit", 1000, "Candles per symbol, newest last")
		dir       = flag.String("dir", "data/candles", "Root directory for the CSV files")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := adapters.NewMarketDataSource(exchange.ExchangeConfig{MarketDataSource: *source})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}
	o := options{source: *source, symbols: split(*symbols), intervals: split(*intervals), limit: *limit, dir: *dir}
	if err := run(ctx, src, o, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func split(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// run downloads every symbol and interval pair, continuing past failures
func run(ctx context.Context, src exchange.MarketDataSource, o options, w io.Writer) error {
	rh := recovery.NewRecoveryHandler(recovery.DefaultBackoff(), nil)
	var errs error
	for _, symbol := range o.symbols {
		for _, interval := range o.intervals {
			if ctx.Err() != nil {
				return multierr.Append(errs, ctx.Err())
			}
			var candles int
			err := rh.ExecuteWithRecovery(ctx, src.GetName(), "klines", func(ctx context.Context) error {
				series, err := src.GetOHLCV(ctx, symbol, interval, o.limit)
				if err != nil {
					return err
				}
				path := data.DataFilePath(o.dir, o.source, "spot", exchange.ToVenueSymbol(symbol), interval)
				candles = series.Len()
				return data.WriteCSV(path, series.Candles())
			})
			if err != nil {
				fmt.Fprintf(w, "❌ %s %s: %v\n", symbol, interval, err)
				errs = multierr.Append(errs, err)
				continue
			}
			fmt.Fprintf(w, "✅ %s %s: %d candles\n", symbol, interval, candles)
		}
	}
	return errs
}
