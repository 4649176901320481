package orderflow

import (
	"context"
	"fmt"
	"time"

	"wbjapi/pkg/broker"
)

// validateRequest rejects a malformed order before any transport use.
func validateRequest(symbol string, side broker.OrderSide, quantity int64) error {
	if quantity <= 0 {
		return &broker.InvalidOrderError{Reason: fmt.Sprintf("quantity must be positive, got %d", quantity)}
	}
	if side != broker.OrderSideBuy && side != broker.OrderSideSell {
		return &broker.InvalidOrderError{Reason: fmt.Sprintf("unknown side %q", side)}
	}
	if !validSymbol(symbol) {
		return &broker.InvalidOrderError{Reason: fmt.Sprintf("malformed symbol %q", symbol)}
	}
	return nil
}

// validSymbol accepts a four digit Japanese stock code or a one to five
// letter US ticker.
func validSymbol(symbol string) bool {
	if len(symbol) == 4 && allDigits(symbol) {
		return true
	}
	if len(symbol) >= 1 && len(symbol) <= 5 && allLetters(symbol) {
		return true
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func allLetters(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// PlaceMarketOrder validates, assigns a fresh client token and submits a
// market order. Transient transport failures are retried with the SAME
// token: the remote side keeps at most one live order per token, so a retry
// can only land as a no-op query of the already-accepted order. When the
// retry budget runs out the token travels inside the returned
// *broker.OrderSubmissionError so the caller can resolve the order's fate
// later instead of re-submitting under a new token.
func (m *Manager) PlaceMarketOrder(ctx context.Context, symbol string, side broker.OrderSide, quantity int64) (*broker.Order, error) {
	if err := validateRequest(symbol, side, quantity); err != nil {
		return nil, err
	}

	token := m.newToken()
	lock := m.lockToken(token)
	lock.Lock()
	defer lock.Unlock()

	req := broker.OrderRequest{
		ClientToken: token,
		Symbol:      symbol,
		Side:        side,
		Quantity:    quantity,
	}

	var lastErr error
	backoff := m.initialBackoff
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &broker.OrderSubmissionError{ClientToken: token, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > m.maxBackoff {
				backoff = m.maxBackoff
			}
		}

		order, err := m.provider.PlaceOrder(ctx, m.accountID, req)
		if err == nil {
			return order, nil
		}
		if !broker.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, &broker.OrderSubmissionError{ClientToken: token, Err: lastErr}
}

// Cancel requests cancellation of the order identified by clientToken.
// Cancellation is asynchronous upstream; the next poll observes the outcome.
func (m *Manager) Cancel(ctx context.Context, clientToken string) error {
	lock := m.lockToken(clientToken)
	lock.Lock()
	defer lock.Unlock()
	return m.provider.CancelOrder(ctx, m.accountID, clientToken)
}
