package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// CSVProvider loads candles from CSV files
type CSVProvider struct {
	format  CSVColumnMapping
	skipped int
}

// NewCSVProvider creates a provider for DefaultCSVFormat
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{format: DefaultCSVFormat}
}

// NewCSVProviderWithFormat creates a provider for a custom format
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{format: format}
}

func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// Skipped is the number of malformed rows dropped by the last LoadData
func (p *CSVProvider) Skipped() int {
	return p.skipped
}

// LoadData reads every valid row of a CSV file with a header line. Rows that
// fail to parse or hold inconsistent prices are skipped; the result is sorted
// by time.
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", source)
		}
		return nil, err
	}

	p.skipped = 0
	var out []types.OHLCV
	line := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", line, err)
		}
		line++

		candle, ok := p.parseRow(record)
		if !ok {
			p.skipped++
			continue
		}
		out = append(out, candle)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (p *CSVProvider) parseRow(record []string) (types.OHLCV, bool) {
	f := p.format
	if len(record) < f.MinColumns {
		return types.OHLCV{}, false
	}
	ts, err := p.parseTime(strings.TrimSpace(record[f.TimestampCol]))
	if err != nil {
		return types.OHLCV{}, false
	}

	var vals [5]float64
	for i, col := range []int{f.OpenCol, f.HighCol, f.LowCol, f.CloseCol, f.VolumeCol} {
		v, err := cast.ToFloat64E(strings.TrimSpace(record[col]))
		if err != nil {
			return types.OHLCV{}, false
		}
		vals[i] = v
	}
	c := types.OHLCV{Timestamp: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}
	if validateCandle(c) != nil {
		return types.OHLCV{}, false
	}
	return c, true
}

func (p *CSVProvider) parseTime(s string) (time.Time, error) {
	if p.format.DateFormat == "" {
		ms, err := cast.ToInt64E(s)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(p.format.DateFormat, s)
}

// ValidateData checks prices and chronological order
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return fmt.Errorf("no data provided")
	}
	for i, c := range data {
		if err := validateCandle(c); err != nil {
			return fmt.Errorf("invalid price data at index %d: %w", i, err)
		}
		if i > 0 && c.Timestamp.Before(data[i-1].Timestamp) {
			return fmt.Errorf("invalid timestamp sequence at index %d: timestamps must be in chronological order", i)
		}
	}
	return nil
}

func validateCandle(c types.OHLCV) error {
	switch {
	case c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0:
		return fmt.Errorf("prices must be positive")
	case c.High < c.Low:
		return fmt.Errorf("high (%.4f) cannot be less than low (%.4f)", c.High, c.Low)
	case c.High < c.Open || c.High < c.Close:
		return fmt.Errorf("high (%.4f) must be >= open (%.4f) and close (%.4f)", c.High, c.Open, c.Close)
	case c.Low > c.Open || c.Low > c.Close:
		return fmt.Errorf("low (%.4f) must be <= open (%.4f) and close (%.4f)", c.Low, c.Open, c.Close)
	case c.Volume < 0:
		return fmt.Errorf("volume cannot be negative")
	}
	return nil
}
