package broker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	transport := &TransportError{Endpoint: "order.place", Attempts: 3, Err: errors.New("connection reset")}
	auth := &AuthError{Endpoint: "account.balance", Err: errors.New("token expired")}
	invalid := &InvalidOrderError{Reason: "quantity must be positive"}
	submission := &OrderSubmissionError{ClientToken: "tok-1", Err: transport}

	require.True(t, IsTransient(transport))
	require.False(t, IsTransient(auth))
	require.False(t, IsTransient(invalid))
	require.False(t, IsTransient(nil))

	require.True(t, IsAuthError(auth))
	require.True(t, IsAuthError(fmt.Errorf("wrapped: %w", auth)))
	require.False(t, IsAuthError(transport))

	// OrderSubmissionError wraps its cause, so a transport cause stays
	// discoverable through the chain.
	require.True(t, IsTransient(submission))

	var se *OrderSubmissionError
	require.True(t, errors.As(fmt.Errorf("outer: %w", submission), &se))
	require.Equal(t, "tok-1", se.ClientToken)
}
