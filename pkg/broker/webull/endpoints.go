package webull

import (
	"fmt"
	"net/http"
	"strings"
)

// Endpoint names accepted by doRequest. Anything outside this table is
// rejected before a request is built.
const (
	epAuthToken        = "auth.token"
	epAccountList      = "account.subscriptions"
	epAccountBalance   = "account.balance"
	epAccountPositions = "account.positions"
	epOrderPlace       = "order.place"
	epOrderDetail      = "order.detail"
	epOrderCancel      = "order.cancel"
	epOrderList        = "order.list"
	epOrdersOpen       = "order.open"
	epInstrument       = "market.instrument"
	epSnapshot         = "market.snapshot"
	epTransferHistory  = "asset.transfers"
)

type endpoint struct {
	method   string
	path     string   // path template; {name} segments are filled from params
	required []string // params that must be present and non-empty
}

var endpointTable = map[string]endpoint{
	epAuthToken:        {http.MethodPost, "/auth/token", nil},
	epAccountList:      {http.MethodGet, "/account/subscriptions", nil},
	epAccountBalance:   {http.MethodGet, "/account/{account_id}/balance", []string{"account_id"}},
	epAccountPositions: {http.MethodGet, "/account/{account_id}/positions", []string{"account_id"}},
	epOrderPlace:       {http.MethodPost, "/order", []string{"account_id"}},
	epOrderDetail:      {http.MethodGet, "/order/{client_order_id}", []string{"account_id", "client_order_id"}},
	epOrderCancel:      {http.MethodDelete, "/order/{client_order_id}", []string{"account_id", "client_order_id"}},
	epOrderList:        {http.MethodGet, "/orders", []string{"account_id"}},
	epOrdersOpen:       {http.MethodGet, "/orders/open", []string{"account_id"}},
	epInstrument:       {http.MethodGet, "/instrument", []string{"symbols", "category"}},
	epSnapshot:         {http.MethodGet, "/market-data/snapshot", []string{"symbols", "category"}},
	epTransferHistory:  {http.MethodGet, "/asset/transfer-history", []string{"account_id"}},
}

// resolveEndpoint validates the endpoint name and its parameters, then
// returns the method and the concrete path plus the params that were not
// consumed by path templating (these become the query string).
func resolveEndpoint(name string, params map[string]string) (method, path string, query map[string]string, err error) {
	ep, ok := endpointTable[name]
	if !ok {
		return "", "", nil, fmt.Errorf("webull: unknown endpoint %q", name)
	}
	for _, key := range ep.required {
		if strings.TrimSpace(params[key]) == "" {
			return "", "", nil, fmt.Errorf("webull: endpoint %s requires param %q", name, key)
		}
	}

	path = ep.path
	query = make(map[string]string, len(params))
	for key, value := range params {
		placeholder := "{" + key + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, value)
			continue
		}
		if value != "" {
			query[key] = value
		}
	}
	if strings.Contains(path, "{") {
		return "", "", nil, fmt.Errorf("webull: endpoint %s has unresolved path params in %s", name, path)
	}
	return ep.method, path, query, nil
}
