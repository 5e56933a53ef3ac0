package data

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// WriteCSV writes candles in DefaultCSVFormat, replacing path atomically
func WriteCSV(path string, candles []types.OHLCV) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"})
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, c := range candles {
		_ = w.Write([]string{
			c.Timestamp.UTC().Format(DefaultCSVFormat.DateFormat),
			format(c.Open), format(c.High), format(c.Low), format(c.Close), format(c.Volume),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
