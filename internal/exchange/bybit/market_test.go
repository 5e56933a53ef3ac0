package bybit

import (
	"fmt"
	"testing"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okResponse(result interface{}) *bybit_api.ServerResponse {
	return &bybit_api.ServerResponse{RetCode: 0, RetMsg: "OK", Result: result}
}

func TestConvertInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    KlineInterval
		wantErr bool
	}{
		{"1m", Interval1m, false},
		{"5m", Interval5m, false},
		{"1h", Interval1h, false},
		{"4H", Interval4h, false},
		{"1d", Interval1d, false},
		{"1w", Interval1w, false},
		{"3h", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ConvertInterval(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKlineResponseReversesOrder(t *testing.T) {
	resp := okResponse(map[string]interface{}{
		"symbol":   "BTCUSDT",
		"category": "spot",
		"list": [][]string{
			{"1700007200000", "102", "103", "101", "102.5", "12", "1230"},
			{"1700003600000", "101", "102", "100", "102", "11", "1120"},
			{"1700000000000", "100", "101", "99", "101", "10", "1010"},
			{"bad"},
		},
	})

	klines, err := parseKlineResponse(resp)
	require.NoError(t, err)
	require.Len(t, klines, 3)
	assert.Equal(t, 101.0, klines[0].ClosePrice)
	assert.Equal(t, 102.5, klines[2].ClosePrice)
	assert.True(t, klines[0].StartTime.Before(klines[2].StartTime))
	assert.Equal(t, 10.0, klines[0].Volume)
}

func TestParseTickerResponse(t *testing.T) {
	resp := okResponse(map[string]interface{}{
		"category": "spot",
		"list": []map[string]string{
			{"symbol": "BTCUSDT", "lastPrice": "65000.5", "price24hPcnt": "0.021", "turnover24h": "1500000", "volume24h": "23"},
		},
	})

	tickers, err := parseTickerResponse(resp)
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.Equal(t, "BTCUSDT", tickers[0].Symbol)
	assert.Equal(t, 65000.5, tickers[0].LastPrice)
	assert.InDelta(t, 0.021, tickers[0].Price24hPcnt, 1e-12)
	assert.Equal(t, 1500000.0, tickers[0].Turnover24h)
}

func TestDecodeResultAPIError(t *testing.T) {
	resp := &bybit_api.ServerResponse{RetCode: CodeRateLimited, RetMsg: ""}
	_, err := parseTickerResponse(resp)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindRateLimit, kind)

	_, err = parseTickerResponse("not a response")
	assert.Error(t, err)
}

func TestParseWalletResponse(t *testing.T) {
	resp := okResponse(map[string]interface{}{
		"list": []map[string]interface{}{
			{
				"accountType": "UNIFIED",
				"coin": []map[string]string{
					{"coin": "USDT", "walletBalance": "1000", "locked": "100", "usdValue": "1000"},
					{"coin": "BTC", "walletBalance": "0.5", "free": "0.4", "locked": "0.1"},
				},
			},
		},
	})

	balances, err := parseWalletResponse(resp)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, 900.0, balances[0].Free)
	assert.Equal(t, 0.4, balances[1].Free)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      ErrorKind
		retryable bool
	}{
		{"auth", &APIError{Code: CodeInvalidSignature}, KindAuth, false},
		{"rate limit", &APIError{Code: CodeRateLimited}, KindRateLimit, true},
		{"balance", fmt.Errorf("place: %w", &APIError{Code: CodeSpotInsufficient}), KindBalance, false},
		{"qty", &APIError{Code: CodeSpotQtyTooSmall}, KindQuantity, false},
		{"server", &APIError{Code: 503}, KindServer, true},
		{"unknown code", &APIError{Code: 110021}, KindOther, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOf(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
			assert.Equal(t, tt.retryable, kind.Retryable())
		})
	}

	_, ok := KindOf(assert.AnError)
	assert.False(t, ok)
	assert.NoError(t, checkRetCode(0, "OK"))
	assert.EqualError(t, checkRetCode(10006, ""), "bybit retCode 10006: no message")
}

func TestOrderParams(t *testing.T) {
	market, err := Order{Symbol: "BTCUSDT", Side: SideBuy, Qty: "0.01", LinkID: "abc"}.params()
	require.NoError(t, err)
	assert.Equal(t, "spot", market["category"])
	assert.Equal(t, "Market", market["orderType"])
	assert.Equal(t, "baseCoin", market["marketUnit"])
	assert.Equal(t, "abc", market["orderLinkId"])

	limit, err := Order{Symbol: "BTCUSDT", Side: SideSell, Qty: "0.01", Price: "65000"}.params()
	require.NoError(t, err)
	assert.Equal(t, "Limit", limit["orderType"])
	assert.Equal(t, "GTC", limit["timeInForce"])
	assert.NotContains(t, limit, "marketUnit")

	_, err = Order{Symbol: "BTCUSDT", Side: SideBuy}.params()
	assert.Error(t, err)
}

func TestInstrumentFormatQuantity(t *testing.T) {
	info := &InstrumentInfo{
		Symbol:      "BTCUSDT",
		MinOrderQty: decimal.RequireFromString("0.0001"),
		MaxOrderQty: decimal.RequireFromString("10"),
		QtyStep:     decimal.RequireFromString("0.0001"),
		MinNotional: decimal.RequireFromString("5"),
	}

	tests := []struct {
		name    string
		qty     float64
		price   float64
		want    string
		wantErr bool
	}{
		{"rounds down to step", 0.123456, 60000, "0.1234", false},
		{"capped at max", 25, 60000, "10", false},
		{"zero after rounding", 0.00001, 60000, "", true},
		{"below min notional", 0.0001, 1000, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := info.FormatQuantity(tt.qty, tt.price)
			if tt.wantErr {
				require.Error(t, err)
				kind, _ := KindOf(err)
				assert.Equal(t, KindQuantity, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInstrumentResponse(t *testing.T) {
	resp := okResponse(map[string]interface{}{
		"category": "spot",
		"list": []map[string]interface{}{
			{
				"symbol": "ETHUSDT", "status": "Trading", "baseCoin": "ETH", "quoteCoin": "USDT",
				"priceFilter":   map[string]string{"tickSize": "0.01"},
				"lotSizeFilter": map[string]string{"basePrecision": "0.00001", "minOrderQty": "0.0001", "maxOrderQty": "500", "minOrderAmt": "1"},
			},
		},
	})

	info, err := parseInstrumentResponse(resp, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "0.00001", info.QtyStep.String())
	assert.Equal(t, "1", info.MinNotional.String())

	_, err = parseInstrumentResponse(resp, "SOLUSDT")
	assert.Error(t, err)
}
