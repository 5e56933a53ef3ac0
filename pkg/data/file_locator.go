package data

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const candlesFile = "candles.csv"

// ConvertIntervalToMinutes turns "5m", "1h" or "1d" into "5", "60" or "1440".
// Plain numbers and unknown formats are returned as given.
func ConvertIntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}
	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}
	switch interval[len(interval)-1] {
	case 'm':
		return strconv.Itoa(num)
	case 'h':
		return strconv.Itoa(num * 60)
	case 'd':
		return strconv.Itoa(num * 24 * 60)
	case 'w':
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}

func categories(exchange string) []string {
	switch strings.ToLower(exchange) {
	case "bybit":
		return []string{"spot", "linear", "inverse"}
	case "binance":
		return []string{"spot", "futures"}
	default:
		return []string{"spot", "futures", "linear", "inverse"}
	}
}

// FindDataFile locates data/{exchange}/{category}/{SYMBOL}/{minutes}/candles.csv
// and returns "" when no category holds it
func FindDataFile(dataRoot, exchange, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)
	minutes := ConvertIntervalToMinutes(interval)
	for _, category := range categories(exchange) {
		path := filepath.Join(dataRoot, exchange, category, symbol, minutes, candlesFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ListDataSymbols returns the sorted symbols with candles for interval
func ListDataSymbols(dataRoot, exchange, interval string) ([]string, error) {
	minutes := ConvertIntervalToMinutes(interval)
	seen := make(map[string]struct{})
	for _, category := range categories(exchange) {
		entries, err := os.ReadDir(filepath.Join(dataRoot, exchange, category))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			path := filepath.Join(dataRoot, exchange, category, e.Name(), minutes, candlesFile)
			if _, err := os.Stat(path); err == nil {
				seen[strings.ToUpper(e.Name())] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// DataFilePath is where FindDataFile looks first for a symbol
func DataFilePath(dataRoot, exchange, category, symbol, interval string) string {
	return filepath.Join(dataRoot, exchange, category, strings.ToUpper(symbol), ConvertIntervalToMinutes(interval), candlesFile)
}
