package orderflow

import (
	"context"
	"time"

	"wbjapi/pkg/broker"
)

// PollOrder refreshes the order's state from the provider and merges the
// result into the local view. State transitions are latched: a poll result
// never moves an order backwards, and once an order is filled or rejected
// later polls cannot change it.
//
// A failed poll leaves the order untouched and returns the error. After
// the configured number of consecutive failures the order's state becomes
// unknown: the remote truth could not be established and the order needs
// out-of-band resolution, not more polling.
func (m *Manager) PollOrder(ctx context.Context, order *broker.Order) (*broker.Order, error) {
	lock := m.lockToken(order.ClientToken)
	lock.Lock()
	defer lock.Unlock()

	if order.State.Terminal() {
		return order, nil
	}

	remote, err := m.provider.GetOrder(ctx, m.accountID, order.ClientToken)
	if err != nil {
		fails := m.recordPollFailure(order.ClientToken)
		if fails >= m.pollFailLimit {
			marked := *order
			marked.State = broker.OrderStateUnknown
			marked.LastPolledAt = m.clock()
			return &marked, nil
		}
		return order, err
	}
	m.resetPollFailures(order.ClientToken)

	merged := m.merge(order, remote)
	return merged, nil
}

// merge folds a freshly polled remote view into the prior local view,
// enforcing forward-only state transitions.
func (m *Manager) merge(prev, remote *broker.Order) *broker.Order {
	next := *remote
	if !remote.State.Supersedes(prev.State) {
		next.State = prev.State
		next.FilledQuantity = prev.FilledQuantity
		next.AvgFillPrice = prev.AvgFillPrice
	}
	if next.SubmittedAt.IsZero() {
		next.SubmittedAt = prev.SubmittedAt
	}
	next.LastPolledAt = m.clock()
	return &next
}

// PollUntilTerminal polls the order until it reaches a terminal state, the
// poll failure bound marks it unknown, or ctx expires. Tests drive it with a
// sim provider that fills after a fixed number of polls.
func (m *Manager) PollUntilTerminal(ctx context.Context, order *broker.Order) (*broker.Order, error) {
	current := order
	for {
		if current.State.Terminal() || current.State == broker.OrderStateUnknown {
			return current, nil
		}
		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-time.After(m.pollInterval):
		}
		next, err := m.PollOrder(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return current, err
			}
			continue
		}
		current = next
	}
}
