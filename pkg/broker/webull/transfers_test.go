package webull

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbjapi/pkg/broker"
)

func TestTransferHistoryFollowsCursor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, "tok-1")
	})
	mux.HandleFunc("/asset/transfer-history", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("last_transfer_id") {
		case "":
			json.NewEncoder(w).Encode(transfersResponse{
				Data: []transferRecord{
					{TransferID: "tr-1", Type: "DEPOSIT", TransferMethod: "QUICK", Amount: "100000", Currency: "JPY", Status: "COMPLETED", CreateTime: "2024-03-01T10:00:00+09:00"},
				},
				HasNext: true,
			})
		case "tr-1":
			json.NewEncoder(w).Encode(transfersResponse{
				Data: []transferRecord{
					{TransferID: "tr-2", Type: "WITHDRAWAL", TransferMethod: "BANK", Amount: "25000", Currency: "JPY", Status: "PENDING", CreateTime: "2024-03-02T10:00:00+09:00"},
				},
				HasNext: false,
			})
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	raws, err := client.TransferHistory(context.Background(), "ACC-1",
		mustParseRFC3339(t, "2024-03-01T00:00:00Z"), mustParseRFC3339(t, "2024-03-03T00:00:00Z"))
	require.NoError(t, err)

	require.Len(t, raws, 2)
	assert.Equal(t, broker.RawSourceTransfers, raws[0].Source)
	assert.Equal(t, "DEPOSIT", raws[0].Kind)
	assert.Equal(t, "QUICK", raws[0].Fields["transfer_method"])
	assert.Equal(t, "PENDING", raws[1].Status)
}

func TestTransferHistoryReportsEmptyAnswerAsIs(t *testing.T) {
	// The upstream endpoint is known to answer 200 with no rows even for
	// funded accounts. The client must not invent an error for that.
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, "tok-1")
	})
	mux.HandleFunc("/asset/transfer-history", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transfersResponse{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	raws, err := client.TransferHistory(context.Background(), "ACC-1",
		mustParseRFC3339(t, "2024-03-01T00:00:00Z"), mustParseRFC3339(t, "2024-03-03T00:00:00Z"))
	require.NoError(t, err)
	assert.Empty(t, raws)
}
