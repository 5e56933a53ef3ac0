package exchange

import (
	"math"
	"sort"
	"strings"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// ToVenueSymbol turns BTC/USDT into BTCUSDT
func ToVenueSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
}

// FromVenueSymbol turns BTCUSDT into BTC/USDT for the given quote asset.
// Symbols not ending in the quote are returned unchanged.
func FromVenueSymbol(symbol, quote string) string {
	symbol = strings.ToUpper(symbol)
	quote = strings.ToUpper(quote)
	if quote == "" || !strings.HasSuffix(symbol, quote) || len(symbol) == len(quote) {
		return symbol
	}
	return symbol[:len(symbol)-len(quote)] + "/" + quote
}

// ParseSymbolMode maps config text onto a SymbolMode, all when unknown
func ParseSymbolMode(s string) SymbolMode {
	switch SymbolMode(strings.ToLower(strings.TrimSpace(s))) {
	case SymbolModeTrending:
		return SymbolModeTrending
	case SymbolModeHighVolume:
		return SymbolModeHighVolume
	default:
		return SymbolModeAll
	}
}

// RankSymbols filters and orders tickers for a mode. Ranking is stable:
// all and high_volume order by quote volume descending, trending by absolute
// 24h change descending. Tickers are expected in BASE/QUOTE form.
func RankSymbols(tickers []types.Ticker, mode SymbolMode, filter SymbolFilter) []string {
	excluded := make(map[string]struct{}, len(filter.Exclude))
	for _, s := range filter.Exclude {
		excluded[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	quote := strings.ToUpper(filter.QuoteAsset)

	candidates := make([]types.Ticker, 0, len(tickers))
	for _, t := range tickers {
		sym := strings.ToUpper(t.Symbol)
		if _, skip := excluded[sym]; skip {
			continue
		}
		if quote != "" && !strings.HasSuffix(sym, "/"+quote) {
			continue
		}
		if mode != SymbolModeAll && t.QuoteVolume < filter.MinVolumeUSD {
			continue
		}
		candidates = append(candidates, t)
	}

	switch mode {
	case SymbolModeTrending:
		sort.SliceStable(candidates, func(i, j int) bool {
			return math.Abs(candidates[i].ChangePct) > math.Abs(candidates[j].ChangePct)
		})
	default:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].QuoteVolume > candidates[j].QuoteVolume
		})
	}

	if filter.Limit > 0 && len(candidates) > filter.Limit {
		candidates = candidates[:filter.Limit]
	}
	out := make([]string, len(candidates))
	for i, t := range candidates {
		out[i] = t.Symbol
	}
	return out
}
