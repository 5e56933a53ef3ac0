package data

import (
	"github.com/ducminhle1904/crypto-trading-bot/pkg/types"
)

// DataProvider loads a candle history from a source such as a file path
type DataProvider interface {
	LoadData(source string) ([]types.OHLCV, error)
	ValidateData(data []types.OHLCV) error
	GetName() string
}

// CSVColumnMapping defines the column positions of a CSV format
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string // empty means unix milliseconds
}

// Predefined CSV formats
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// Bybit kline exports: start time in ms, open, high, low, close, volume, turnover
	BybitCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
	}
)
