package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ducminhle1904/crypto-trading-bot/internal/regime"
	"github.com/ducminhle1904/crypto-trading-bot/internal/risk"
	"github.com/ducminhle1904/crypto-trading-bot/internal/signal"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/data"
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// Point is the classification of one rolling window
type Point struct {
	Candle     types.OHLCV          `json:"candle"`
	Condition  risk.MarketCondition `json:"condition"`
	Volatility float64              `json:"volatility"`
	Decision   signal.Decision      `json:"decision,omitempty"`
	Sentiment  float64              `json:"sentiment"`
	Confidence float64              `json:"confidence"`
}

// Summary aggregates a whole run
type Summary struct {
	Symbol       string                       `json:"symbol"`
	Points       int                          `json:"points"`
	Distribution map[risk.MarketCondition]int `json:"distribution"`
	Decisions    map[signal.Decision]int      `json:"decisions"`
	Transitions  []regime.RegimeChange        `json:"transitions"`
}

type options struct {
	csvFile    string
	symbol     string
	window     int
	unixMillis bool
	output     string
	last       int
}

func main() {
	var o options
	flag.StringVar(&o.csvFile, "csv", "", "CSV file with OHLCV candles")
	flag.StringVar(&o.symbol, "symbol", "BTC/USDT", "Symbol label for the report")
	flag.IntVar(&o.window, "window", 100, "Candles per classification window")
	flag.BoolVar(&o.unixMillis, "unix-ms", false, "Timestamps are unix milliseconds")
	flag.StringVar(&o.output, "output", "", "Directory for a JSON copy of the results")
	flag.IntVar(&o.last, "last", 20, "Rows shown in the console table")
	flag.Parse()

	if o.csvFile == "" {
		fmt.Fprintln(os.Stderr, "❌ CSV file path is required. Use -csv flag.")
		os.Exit(2)
	}
	if err := run(o, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(o options, w io.Writer) error {
	format := data.DefaultCSVFormat
	if o.unixMillis {
		format = data.BybitCSVFormat
	}
	provider := data.NewCSVProviderWithFormat(format)
	candles, err := provider.LoadData(o.csvFile)
	if err != nil {
		return err
	}
	if err := provider.ValidateData(candles); err != nil {
		return err
	}
	if provider.Skipped() > 0 {
		fmt.Fprintf(w, "⚠️  Skipped %d malformed rows\n", provider.Skipped())
	}

	points, summary, err := analyze(o.symbol, candles, o.window)
	if err != nil {
		return err
	}
	render(w, points, summary, o.last)

	if o.output == "" {
		return nil
	}
	if err := os.MkdirAll(o.output, 0o755); err != nil {
		return err
	}
	body, err := json.MarshalIndent(struct {
		Summary Summary `json:"summary"`
		Points  []Point `json:"points"`
	}{summary, points}, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(o.output, "regime_analysis.json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "💾 Results written to %s\n", path)
	return nil
}

// analyze slides a window over candles and classifies each step
func analyze(symbol string, candles []types.OHLCV, window int) ([]Point, Summary, error) {
	if window < 2 {
		return nil, Summary{}, fmt.Errorf("window must be at least 2 candles")
	}
	if len(candles) < window {
		return nil, Summary{}, fmt.Errorf("need %d candles, have %d", window, len(candles))
	}

	summary := Summary{
		Symbol:       symbol,
		Distribution: make(map[risk.MarketCondition]int),
		Decisions:    make(map[signal.Decision]int),
	}
	detector := regime.NewRegimeDetector(regime.DefaultRegimeConfig())
	detector.Events().Subscribe("summary", func(c regime.RegimeChange) {
		summary.Transitions = append(summary.Transitions, c)
	})
	generator := signal.NewSentimentGenerator(signal.DefaultSentimentConfig())
	ctx := context.Background()

	points := make([]Point, 0, len(candles)-window+1)
	for end := window; end <= len(candles); end++ {
		series := types.NewMarketSeries(symbol, "", candles[end-window:end])
		rs, err := detector.DetectRegime(series)
		if err != nil {
			return nil, Summary{}, err
		}
		p := Point{Candle: candles[end-1], Condition: rs.Condition, Volatility: rs.Volatility}
		if sig, ok := generator.GenerateSignals(ctx, map[string]*types.MarketSeries{symbol: series})[symbol]; ok {
			p.Decision = sig.Decision
			p.Sentiment = sig.Sentiment
			p.Confidence = sig.Confidence
			summary.Decisions[sig.Decision]++
		}
		summary.Distribution[rs.Condition]++
		points = append(points, p)
	}
	summary.Points = len(points)
	return points, summary, nil
}

func render(w io.Writer, points []Point, s Summary, last int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("REGIME ANALYSIS %s", s.Symbol))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Close", "Regime", "Volatility %", "Signal", "Sentiment", "Confidence"})
	start := 0
	if last > 0 && len(points) > last {
		start = len(points) - last
	}
	for _, p := range points[start:] {
		t.AppendRow(table.Row{
			p.Candle.Timestamp.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.4f", p.Candle.Close),
			p.Condition,
			fmt.Sprintf("%.1f", p.Volatility),
			p.Decision,
			fmt.Sprintf("%.2f", p.Sentiment),
			fmt.Sprintf("%.2f", p.Confidence),
		})
	}
	t.Render()

	d := table.NewWriter()
	d.SetOutputMirror(w)
	d.SetTitle("DISTRIBUTION")
	d.SetStyle(table.StyleRounded)
	d.AppendHeader(table.Row{"Regime", "Windows", "Share"})
	conditions := make([]string, 0, len(s.Distribution))
	for c := range s.Distribution {
		conditions = append(conditions, string(c))
	}
	sort.Strings(conditions)
	for _, c := range conditions {
		n := s.Distribution[risk.MarketCondition(c)]
		d.AppendRow(table.Row{c, n, fmt.Sprintf("%.1f%%", float64(n)/float64(s.Points)*100)})
	}
	d.AppendFooter(table.Row{"Transitions", len(s.Transitions), ""})
	d.Render()
}
