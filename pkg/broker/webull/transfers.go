package webull

import (
	"context"
	"time"

	"wbjapi/pkg/broker"
)

// TransferHistory returns raw deposit/withdrawal records in [from, to].
//
// This endpoint is the least reliable part of the upstream API: it is known
// to answer 200 with an empty payload for accounts that demonstrably have
// funding activity. The client reports exactly what the remote returned;
// the ledger normalizer and the facade decide whether emptiness is credible.
func (c *Client) TransferHistory(ctx context.Context, accountID string, from, to time.Time) ([]broker.RawRecord, error) {
	raws := make([]broker.RawRecord, 0, 8)
	lastTransferID := ""
	for {
		params := map[string]string{
			"account_id": accountID,
			"start_time": from.UTC().Format(time.RFC3339),
			"end_time":   to.UTC().Format(time.RFC3339),
		}
		if lastTransferID != "" {
			params["last_transfer_id"] = lastTransferID
		}
		var resp transfersResponse
		if err := c.doRequest(ctx, epTransferHistory, params, nil, &resp); err != nil {
			return nil, err
		}
		for _, record := range resp.Data {
			raws = append(raws, record.toRawRecord())
		}
		if !resp.HasNext || len(resp.Data) == 0 {
			return raws, nil
		}
		lastTransferID = resp.Data[len(resp.Data)-1].TransferID
	}
}
