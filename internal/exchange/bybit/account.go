package bybit

import (
	"context"
	"fmt"
	"strings"
)

// AccountType represents different account types in Bybit
type AccountType string

const (
	AccountTypeUnified AccountType = "UNIFIED"
	AccountTypeSpot    AccountType = "SPOT"
)

// Balance represents a coin balance in the account
type Balance struct {
	Coin          string  `json:"coin"`
	WalletBalance float64 `json:"walletBalance"`
	Free          float64 `json:"free"`
	Locked        float64 `json:"locked"`
	UsdValue      float64 `json:"usdValue"`
}

// GetWalletBalance retrieves coin balances, optionally restricted to coins
func (c *Client) GetWalletBalance(ctx context.Context, accountType AccountType, coins ...string) ([]Balance, error) {
	params := map[string]interface{}{
		"accountType": string(accountType),
	}
	if len(coins) > 0 {
		params["coin"] = strings.Join(coins, ",")
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}

	balances, err := parseWalletResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account balance response: %w", err)
	}
	return balances, nil
}

// GetCoinBalance returns the wallet balance of one coin, 0 when absent
func (c *Client) GetCoinBalance(ctx context.Context, accountType AccountType, coin string) (Balance, error) {
	balances, err := c.GetWalletBalance(ctx, accountType, coin)
	if err != nil {
		return Balance{}, err
	}
	for _, b := range balances {
		if strings.EqualFold(b.Coin, coin) {
			return b, nil
		}
	}
	return Balance{Coin: coin}, nil
}

func parseWalletResponse(response interface{}) ([]Balance, error) {
	var walletResult struct {
		List []struct {
			AccountType string `json:"accountType"`
			Coin        []struct {
				Coin          string `json:"coin"`
				WalletBalance string `json:"walletBalance"`
				Free          string `json:"free"`
				Locked        string `json:"locked"`
				UsdValue      string `json:"usdValue"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := decodeResult(response, &walletResult); err != nil {
		return nil, err
	}

	var balances []Balance
	for _, account := range walletResult.List {
		for _, coin := range account.Coin {
			wallet := parseFloat64(coin.WalletBalance)
			locked := parseFloat64(coin.Locked)
			free := parseFloat64(coin.Free)
			if coin.Free == "" {
				free = wallet - locked
			}
			balances = append(balances, Balance{
				Coin:          coin.Coin,
				WalletBalance: wallet,
				Free:          free,
				Locked:        locked,
				UsdValue:      parseFloat64(coin.UsdValue),
			})
		}
	}
	return balances, nil
}
