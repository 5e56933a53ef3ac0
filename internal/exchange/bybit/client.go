package bybit

import (
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	json "github.com/goccy/go-json"
)

// DemoURL is the demo trading endpoint
const DemoURL = "https://api-demo.bybit.com"

// Client wraps the Bybit API client with additional functionality
type Client struct {
	httpClient  *bybit_api.Client
	testnet     bool
	demo        bool
	instruments *InstrumentManager
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // Demo trading environment
	BaseURL   string
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		switch {
		case config.Demo:
			baseURL = DemoURL
		case config.Testnet:
			baseURL = bybit_api.TESTNET
		default:
			baseURL = bybit_api.MAINNET
		}
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	c := &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
		demo:       config.Demo,
	}
	c.instruments = NewInstrumentManager(c)
	return c
}

// Instruments returns the cached instrument metadata manager
func (c *Client) Instruments() *InstrumentManager {
	return c.instruments
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	switch {
	case c.demo:
		return "demo"
	case c.testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// decodeResult unwraps a ServerResponse and decodes its result into out
func decodeResult(response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok || serverResp == nil {
		return fmt.Errorf("invalid response type %T", response)
	}
	if err := checkRetCode(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return err
	}

	raw, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return i
}

func parseTimestamp(ms string) time.Time {
	v := parseInt64(ms)
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}
