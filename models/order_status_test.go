package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOrderTransitions проверяет таблицу переходов по основным путям.
func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusActive, false},
		{StatusNegotiating, StatusNegotiating, true},
		{StatusNegotiating, StatusCancelled, true},
		{StatusNegotiating, StatusPaid, false},
		{StatusPaid, StatusActive, true},
		{StatusPaid, StatusCancelled, true},
		{StatusPaid, StatusCompleted, false},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusViolated, true},
		{StatusActive, StatusDisputed, true},
		{StatusActive, StatusCancelled, false},
		{StatusCompleted, StatusDisputed, true},
		{StatusCompleted, StatusActive, false},
		{StatusCancelled, StatusPending, false},
		{StatusViolated, StatusCompleted, false},
	}
	for _, c := range cases {
		err := CheckTransition(c.from, c.to)
		if c.ok {
			require.NoError(t, err, "%s -> %s", c.from, c.to)
			continue
		}
		require.Error(t, err, "%s -> %s", c.from, c.to)
		require.True(t, errors.Is(err, ErrIllegalTransition))
		var te *TransitionError
		require.True(t, errors.As(err, &te))
		require.Equal(t, c.from, te.From)
		require.Equal(t, c.to, te.To)
	}
}

// TestTerminalStatuses проверяет, что отменённый и нарушенный заказы конечны.
func TestTerminalStatuses(t *testing.T) {
	require.True(t, StatusCancelled.Terminal())
	require.True(t, StatusViolated.Terminal())
	require.True(t, StatusDisputed.Terminal())
	require.False(t, StatusActive.Terminal())
	require.False(t, OrderStatus("draft").Valid())
}

// TestOrderTransitionKeepsStatusOnError убеждается, что при отказе состояние не меняется.
func TestOrderTransitionKeepsStatusOnError(t *testing.T) {
	o := &Order{Status: StatusCancelled}
	require.Error(t, o.Transition(StatusPaid))
	require.Equal(t, StatusCancelled, o.Status)
}
