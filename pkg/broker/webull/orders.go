package webull

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wbjapi/pkg/broker"
)

// symbolCategory guesses the instrument category from the symbol shape:
// JP tickers are numeric codes, US tickers are alphabetic.
func symbolCategory(symbol string) string {
	for _, r := range symbol {
		if r < '0' || r > '9' {
			return "US_STOCK"
		}
	}
	return "JP_STOCK"
}

// PlaceOrder submits a market order under the caller-supplied client token.
// Webull treats a duplicate client_order_id as a reference to the existing
// order, which is what makes transport-level retries safe.
func (c *Client) PlaceOrder(ctx context.Context, accountID string, req broker.OrderRequest) (*broker.Order, error) {
	if strings.TrimSpace(req.ClientToken) == "" {
		return nil, fmt.Errorf("webull: client token is required")
	}
	body := placeOrderRequest{
		AccountID:     accountID,
		ClientOrderID: req.ClientToken,
		Symbol:        req.Symbol,
		Category:      symbolCategory(req.Symbol),
		Side:          strings.ToUpper(string(req.Side)),
		OrderType:     "MARKET",
		Qty:           req.Quantity,
		TimeInForce:   "DAY",
	}
	var resp placeOrderResponse
	if err := c.doRequest(ctx, epOrderPlace, map[string]string{"account_id": accountID}, body, &resp); err != nil {
		return nil, err
	}

	order := &broker.Order{
		ClientToken: req.ClientToken,
		Symbol:      req.Symbol,
		Side:        req.Side,
		Quantity:    req.Quantity,
		State:       mapOrderStatus(resp.Status),
		SubmittedAt: c.clock().Truncate(time.Second),
	}
	if t, ok := parseCreateTime(resp.CreateTime); ok {
		order.SubmittedAt = t
	}
	if order.State == broker.OrderStateUnknown {
		// A successful placement with an unrecognised status is still at
		// least accepted by the remote side.
		order.State = broker.OrderStateAccepted
	}
	return order, nil
}

// GetOrder fetches the current state of an order by its client token.
func (c *Client) GetOrder(ctx context.Context, accountID, clientToken string) (*broker.Order, error) {
	params := map[string]string{
		"account_id":      accountID,
		"client_order_id": clientToken,
	}
	var record orderRecord
	if err := c.doRequest(ctx, epOrderDetail, params, nil, &record); err != nil {
		return nil, err
	}
	if record.ClientOrderID == "" {
		return nil, fmt.Errorf("webull: order %s not found", clientToken)
	}
	return record.toOrder(c.clock()), nil
}

// CancelOrder cancels the order identified by the client token.
func (c *Client) CancelOrder(ctx context.Context, accountID, clientToken string) error {
	params := map[string]string{
		"account_id":      accountID,
		"client_order_id": clientToken,
	}
	return c.doRequest(ctx, epOrderCancel, params, nil, nil)
}

// OrderHistory returns raw order records in [from, to], following the
// client_order_id cursor until has_next is false. Records are returned raw
// so the ledger normalizer can account for malformed rows.
func (c *Client) OrderHistory(ctx context.Context, accountID string, from, to time.Time) ([]broker.RawRecord, error) {
	var raws []broker.RawRecord
	lastClientOrderID := ""
	for {
		params := map[string]string{
			"account_id": accountID,
			"start_time": from.UTC().Format(time.RFC3339),
			"end_time":   to.UTC().Format(time.RFC3339),
		}
		if lastClientOrderID != "" {
			params["last_client_order_id"] = lastClientOrderID
		}
		var resp ordersResponse
		if err := c.doRequest(ctx, epOrderList, params, nil, &resp); err != nil {
			return nil, err
		}
		for _, record := range resp.Data {
			raws = append(raws, record.toRawRecord())
		}
		if !resp.HasNext || len(resp.Data) == 0 {
			return raws, nil
		}
		lastClientOrderID = resp.Data[len(resp.Data)-1].ClientOrderID
	}
}

// OpenOrders returns orders that are still working.
func (c *Client) OpenOrders(ctx context.Context, accountID string) ([]broker.Order, error) {
	var resp ordersResponse
	if err := c.doRequest(ctx, epOrdersOpen, map[string]string{"account_id": accountID}, nil, &resp); err != nil {
		return nil, err
	}
	now := c.clock()
	orders := make([]broker.Order, 0, len(resp.Data))
	for _, record := range resp.Data {
		orders = append(orders, *record.toOrder(now))
	}
	return orders, nil
}
