package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestTotalForAllDurations проверяет, что итог равен цене за день, умноженной на число дней.
func TestTotalForAllDurations(t *testing.T) {
	prices := []string{"10", "0.2", "7.35", "12.99", "0.01"}
	for _, p := range prices {
		price := decimal.RequireFromString(p)
		for d := 1; d <= 30; d++ {
			got := TotalFor(price, d)
			want := price.Mul(decimal.NewFromInt(int64(d))).Round(2)
			require.True(t, want.Equal(got), "цена %s, дней %d: ожидалось %s, получено %s", p, d, want, got)
		}
	}
}

// TestWithCommission проверяет надбавку комиссии.
func TestWithCommission(t *testing.T) {
	got := WithCommission(decimal.NewFromInt(30), decimal.RequireFromString("0.03"))
	require.Equal(t, "30.9", got.String())
}

// TestActivateSetsTerm проверяет, что срок размещения равен числу дней заказа.
func TestActivateSetsTerm(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	o := &Order{Status: StatusPaid, DurationDays: 3}
	require.NoError(t, o.Activate(42, now))
	require.Equal(t, StatusActive, o.Status)
	require.Equal(t, 42, *o.ContentHandle)
	require.Equal(t, now.AddDate(0, 0, 3), *o.EndDate)
}
