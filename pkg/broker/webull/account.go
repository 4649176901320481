package webull

import (
	"context"
	"fmt"
	"strings"

	"wbjapi/pkg/broker"
)

// GetAccounts lists the brokerage accounts subscribed to this API
// application.
func (c *Client) GetAccounts(ctx context.Context) ([]broker.Account, error) {
	var records []subscriptionRecord
	if err := c.doRequest(ctx, epAccountList, nil, nil, &records); err != nil {
		return nil, err
	}
	accounts := make([]broker.Account, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, broker.Account{
			AccountID:      record.AccountID,
			SubscriptionID: record.SubscriptionID,
			Status:         record.Status,
		})
	}
	return accounts, nil
}

// GetBalance fetches the cash breakdown for an account. currency narrows
// the response when non-empty; Webull returns every currency otherwise.
func (c *Client) GetBalance(ctx context.Context, accountID, currency string) (*broker.Balance, error) {
	params := map[string]string{"account_id": accountID}
	if strings.TrimSpace(currency) != "" {
		params["currency"] = strings.ToUpper(strings.TrimSpace(currency))
	}
	var resp balanceResponse
	if err := c.doRequest(ctx, epAccountBalance, params, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.AccountCurrencyAssets) == 0 {
		return nil, fmt.Errorf("webull: balance response missing account_currency_assets")
	}

	balance := &broker.Balance{AccountID: resp.AccountID}
	if balance.AccountID == "" {
		balance.AccountID = accountID
	}
	for _, asset := range resp.AccountCurrencyAssets {
		balance.Currencies = append(balance.Currencies, broker.CurrencyBalance{
			Currency:            asset.Currency,
			TotalCash:           parseDecimal(asset.TotalCash),
			SettledCash:         parseDecimal(asset.SettledCash),
			UnsettledCash:       parseDecimal(asset.UnsettledCash),
			FrozenCash:          parseDecimal(asset.FrozenCash),
			AvailableToWithdraw: parseDecimal(asset.AvailableToWithdraw),
			BuyingPower:         parseDecimal(asset.StockPower),
		})
	}
	return balance, nil
}

// GetPositions returns every holding for the account, following the
// instrument_id cursor until has_next is false.
func (c *Client) GetPositions(ctx context.Context, accountID string) ([]broker.Position, error) {
	var positions []broker.Position
	lastInstrumentID := ""
	for {
		params := map[string]string{"account_id": accountID}
		if lastInstrumentID != "" {
			params["last_instrument_id"] = lastInstrumentID
		}
		var resp positionsResponse
		if err := c.doRequest(ctx, epAccountPositions, params, nil, &resp); err != nil {
			return nil, err
		}
		for _, holding := range resp.Holdings {
			qty := parseDecimal(holding.Qty)
			if qty.IsZero() {
				continue
			}
			positions = append(positions, broker.Position{
				Symbol:         holding.Symbol,
				InstrumentID:   holding.InstrumentID,
				InstrumentName: holding.InstrumentName,
				Quantity:       qty,
				CostPrice:      parseDecimal(holding.CostPrice),
				LastPrice:      parseDecimal(holding.LastPrice),
				Currency:       holding.Currency,
			})
		}
		if !resp.HasNext || len(resp.Holdings) == 0 {
			return positions, nil
		}
		lastInstrumentID = resp.Holdings[len(resp.Holdings)-1].InstrumentID
	}
}
