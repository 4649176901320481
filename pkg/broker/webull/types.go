package webull

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wbjapi/pkg/broker"
)

// Wire types mirror the Webull Japan OpenAPI payloads. Numeric money fields
// arrive as strings and are kept that way until the broker layer converts
// them; quantities arrive as integers for orders and strings for holdings,
// matching the upstream inconsistency.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

type subscriptionRecord struct {
	AccountID      string `json:"account_id"`
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
}

type currencyAsset struct {
	Currency            string `json:"currency"`
	TotalCash           string `json:"total_cash"`
	SettledCash         string `json:"settled_cash"`
	UnsettledCash       string `json:"unsettled_cash"`
	FrozenCash          string `json:"frozen_cash"`
	AvailableToWithdraw string `json:"available_to_withdraw"`
	StockPower          string `json:"stock_power"`
}

type balanceResponse struct {
	AccountID             string          `json:"account_id"`
	AccountCurrencyAssets []currencyAsset `json:"account_currency_assets"`
}

type holdingRecord struct {
	Symbol         string `json:"symbol"`
	InstrumentID   string `json:"instrument_id"`
	InstrumentName string `json:"instrument_name"`
	InstrumentType string `json:"instrument_type"`
	Qty            string `json:"qty"`
	CostPrice      string `json:"cost_price"`
	LastPrice      string `json:"last_price"`
	Currency       string `json:"currency"`
}

type positionsResponse struct {
	Holdings []holdingRecord `json:"holdings"`
	HasNext  bool            `json:"has_next"`
}

type orderRecord struct {
	ClientOrderID  string `json:"client_order_id"`
	Symbol         string `json:"symbol"`
	InstrumentName string `json:"instrument_name"`
	Category       string `json:"category"`
	Side           string `json:"side"`       // BUY | SELL
	OrderType      string `json:"order_type"` // MARKET | LIMIT | STOP | STOP_LIMIT
	Status         string `json:"status"`
	Qty            int64  `json:"qty"`
	FilledQty      int64  `json:"filled_qty"`
	LimitPrice     string `json:"limit_price"`
	AvgFilledPrice string `json:"avg_filled_price"`
	Currency       string `json:"currency"`
	CreateTime     string `json:"create_time"`
	UpdateTime     string `json:"update_time"`
}

type ordersResponse struct {
	Data    []orderRecord `json:"data"`
	HasNext bool          `json:"has_next"`
}

type placeOrderRequest struct {
	AccountID     string `json:"account_id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Category      string `json:"category"`
	Side          string `json:"side"`
	OrderType     string `json:"order_type"`
	Qty           int64  `json:"qty"`
	TimeInForce   string `json:"time_in_force"`
}

type placeOrderResponse struct {
	ClientOrderID string `json:"client_order_id"`
	Status        string `json:"status"`
	CreateTime    string `json:"create_time"`
}

type transferRecord struct {
	TransferID     string `json:"transfer_id"`
	Type           string `json:"type"`            // DEPOSIT | WITHDRAWAL
	TransferMethod string `json:"transfer_method"` // QUICK | BANK
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"` // COMPLETED | PENDING | FAILED
	CreateTime     string `json:"create_time"`
}

type transfersResponse struct {
	Data    []transferRecord `json:"data"`
	HasNext bool             `json:"has_next"`
}

type snapshotRecord struct {
	Symbol    string `json:"symbol"`
	Category  string `json:"category"`
	Last      string `json:"last"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Volume    int64  `json:"volume"`
	Currency  string `json:"currency"`
	Timestamp int64  `json:"timestamp"` // epoch seconds
}

type snapshotResponse struct {
	Data []snapshotRecord `json:"data"`
}

// Instrument is static metadata for a listed security.
type Instrument struct {
	Symbol       string `json:"symbol"`
	InstrumentID string `json:"instrument_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Currency     string `json:"currency"`
}

type instrumentResponse struct {
	Data []Instrument `json:"data"`
}

type apiError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// mapOrderStatus translates upstream order statuses onto the normalised
// order state machine. Unrecognised statuses map to unknown rather than
// being guessed at.
func mapOrderStatus(status string) broker.OrderState {
	switch strings.TrimSpace(status) {
	case "Working", "PendingCancel":
		return broker.OrderStateAccepted
	case "PartialFilled":
		return broker.OrderStatePartiallyFilled
	case "Filled":
		return broker.OrderStateFilled
	case "Cancelled", "Rejected", "Failed":
		return broker.OrderStateRejected
	default:
		return broker.OrderStateUnknown
	}
}

func mapOrderSide(side string) broker.OrderSide {
	if strings.EqualFold(strings.TrimSpace(side), "SELL") {
		return broker.OrderSideSell
	}
	return broker.OrderSideBuy
}

// createTimeLayouts are the timestamp formats observed on Webull Japan
// responses. Second precision is all the ledger model requires.
var createTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02 15:04:05",
}

func parseCreateTime(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range createTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Truncate(time.Second), true
		}
	}
	return time.Time{}, false
}

func parseDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (r orderRecord) toOrder(now time.Time) *broker.Order {
	order := &broker.Order{
		ClientToken:    r.ClientOrderID,
		Symbol:         r.Symbol,
		Side:           mapOrderSide(r.Side),
		Quantity:       r.Qty,
		FilledQuantity: r.FilledQty,
		AvgFillPrice:   parseDecimal(r.AvgFilledPrice),
		Currency:       r.Currency,
		State:          mapOrderStatus(r.Status),
		LastPolledAt:   now,
	}
	if t, ok := parseCreateTime(r.CreateTime); ok {
		order.SubmittedAt = t
	}
	return order
}

func (r orderRecord) toRawRecord() broker.RawRecord {
	return broker.RawRecord{
		Source:    broker.RawSourceOrders,
		ID:        r.ClientOrderID,
		Kind:      strings.ToUpper(strings.TrimSpace(r.Side)),
		Symbol:    r.Symbol,
		Currency:  r.Currency,
		Timestamp: r.CreateTime,
		Status:    r.Status,
		Fields: map[string]string{
			"qty":              formatInt(r.Qty),
			"filled_qty":       formatInt(r.FilledQty),
			"avg_filled_price": r.AvgFilledPrice,
			"order_type":       r.OrderType,
		},
	}
}

func (r transferRecord) toRawRecord() broker.RawRecord {
	return broker.RawRecord{
		Source:    broker.RawSourceTransfers,
		ID:        r.TransferID,
		Kind:      strings.ToUpper(strings.TrimSpace(r.Type)),
		Amount:    r.Amount,
		Currency:  r.Currency,
		Timestamp: r.CreateTime,
		Status:    r.Status,
		Fields: map[string]string{
			"transfer_method": r.TransferMethod,
		},
	}
}

func formatInt(v int64) string {
	return decimal.NewFromInt(v).String()
}
