package webull

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wbjapi/pkg/broker"
)

// GetQuote returns a market snapshot for one symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*broker.Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("webull: empty symbol")
	}
	params := map[string]string{
		"symbols":  symbol,
		"category": symbolCategory(symbol),
	}
	var resp snapshotResponse
	if err := c.doRequest(ctx, epSnapshot, params, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("webull: no snapshot for symbol %s", symbol)
	}

	record := resp.Data[0]
	quote := &broker.Quote{
		Symbol:   record.Symbol,
		Category: record.Category,
		Last:     parseDecimal(record.Last),
		Open:     parseDecimal(record.Open),
		High:     parseDecimal(record.High),
		Low:      parseDecimal(record.Low),
		Volume:   record.Volume,
		Currency: record.Currency,
	}
	if record.Timestamp > 0 {
		quote.Timestamp = time.Unix(record.Timestamp, 0).UTC()
	}
	return quote, nil
}

// GetInstrument resolves static instrument metadata for a symbol.
func (c *Client) GetInstrument(ctx context.Context, symbol string) (*Instrument, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("webull: empty symbol")
	}
	params := map[string]string{
		"symbols":  symbol,
		"category": symbolCategory(symbol),
	}
	var resp instrumentResponse
	if err := c.doRequest(ctx, epInstrument, params, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("webull: instrument %s not found", symbol)
	}
	record := resp.Data[0]
	return &record, nil
}
