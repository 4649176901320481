package broker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderStateTerminal(t *testing.T) {
	tests := map[OrderState]bool{
		OrderStateSubmitted:       false,
		OrderStateAccepted:        false,
		OrderStatePartiallyFilled: false,
		OrderStateFilled:          true,
		OrderStateRejected:        true,
		OrderStateUnknown:         false,
	}
	for state, expected := range tests {
		require.Equalf(t, expected, state.Terminal(), "Terminal(%s)", state)
	}
}

func TestOrderStateSupersedes(t *testing.T) {
	t.Run("forward_moves", func(t *testing.T) {
		require.True(t, OrderStateAccepted.Supersedes(OrderStateSubmitted))
		require.True(t, OrderStatePartiallyFilled.Supersedes(OrderStateAccepted))
		require.True(t, OrderStateFilled.Supersedes(OrderStatePartiallyFilled))
		require.True(t, OrderStateRejected.Supersedes(OrderStateAccepted))
		require.True(t, OrderStateFilled.Supersedes(OrderStateAccepted))
	})

	t.Run("terminal_never_regresses", func(t *testing.T) {
		for _, next := range []OrderState{
			OrderStateSubmitted, OrderStateAccepted, OrderStatePartiallyFilled,
			OrderStateRejected, OrderStateUnknown,
		} {
			require.Falsef(t, next.Supersedes(OrderStateFilled), "%s must not supersede filled", next)
		}
		require.False(t, OrderStateFilled.Supersedes(OrderStateRejected))
	})

	t.Run("no_backward_moves", func(t *testing.T) {
		require.False(t, OrderStateSubmitted.Supersedes(OrderStateAccepted))
		require.False(t, OrderStateAccepted.Supersedes(OrderStatePartiallyFilled))
	})

	t.Run("unknown_overrides_non_terminal", func(t *testing.T) {
		require.True(t, OrderStateUnknown.Supersedes(OrderStateAccepted))
		require.True(t, OrderStateUnknown.Supersedes(OrderStateSubmitted))
		require.False(t, OrderStateUnknown.Supersedes(OrderStateFilled))
	})
}
