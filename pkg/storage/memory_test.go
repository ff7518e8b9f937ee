package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tgads_go/models"
)

// TestMemoryRollback проверяет, что ошибка внутри транзакции откатывает все изменения.
func TestMemoryRollback(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		return tx.UpsertParty(&models.Party{ID: 1, Username: "buyer"})
	}))

	boom := errors.New("boom")
	err := m.InTx(ctx, func(tx Tx) error {
		if err := tx.AdjustParty(1, models.BalanceAdjustment{Balance: decimal.NewFromInt(50)}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		p, err := tx.GetParty(1)
		require.NoError(t, err)
		require.True(t, p.Balance.IsZero(), "баланс изменился после отката: %s", p.Balance)
		return nil
	}))
}

// TestMemoryUpdateOrderGuard проверяет защиту перехода по исходному статусу.
func TestMemoryUpdateOrderGuard(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var id int64
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		o := &models.Order{Status: models.StatusPending}
		err := tx.CreateOrder(o)
		id = o.ID
		return err
	}))

	err := m.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrder(id)
		require.NoError(t, err)
		o.Status = models.StatusPaid
		return tx.UpdateOrder(o, models.StatusNegotiating)
	})
	require.ErrorIs(t, err, ErrConflict)
}

// TestMemoryDeleteOrderCascades проверяет каскадное удаление выплат и журнала торга.
func TestMemoryDeleteOrderCascades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		o := &models.Order{Status: models.StatusNegotiating}
		require.NoError(t, tx.CreateOrder(o))
		require.NoError(t, tx.AddOffer(&models.Offer{OrderID: o.ID, Author: models.OfferByBuyer, Price: decimal.NewFromInt(5)}))
		require.NoError(t, tx.CreatePayouts([]models.DailyPayout{{OrderID: o.ID, DayIndex: 1, Status: models.PayoutPending}}))
		require.NoError(t, tx.DeleteOrder(o.ID))

		offers, _ := tx.ListOffers(o.ID)
		require.Empty(t, offers)
		n, _ := tx.CountPayouts(o.ID)
		require.Zero(t, n)
		return nil
	}))
}

// TestMemoryDuePayouts проверяет отбор выплат по сроку и статусу.
func TestMemoryDuePayouts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		return tx.CreatePayouts([]models.DailyPayout{
			{OrderID: 7, DayIndex: 1, ScheduledAt: base, Status: models.PayoutPending},
			{OrderID: 7, DayIndex: 2, ScheduledAt: base.AddDate(0, 0, 1), Status: models.PayoutPending},
			{OrderID: 7, DayIndex: 3, ScheduledAt: base.AddDate(0, 0, 2), Status: models.PayoutPending},
		})
	}))
	require.NoError(t, m.InTx(ctx, func(tx Tx) error {
		due, err := tx.ListDuePayouts(base.AddDate(0, 0, 1), 0)
		require.NoError(t, err)
		require.Len(t, due, 2)
		require.Equal(t, 1, due[0].DayIndex)

		require.ErrorIs(t, tx.CreatePayouts([]models.DailyPayout{{OrderID: 7, DayIndex: 2}}), ErrDuplicate)
		return nil
	}))
}
