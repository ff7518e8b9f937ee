package storage

import (
	"database/sql"
	"time"

	"tgads_go/models"

	"github.com/shopspring/decimal"
)

const payoutColumns = `id, order_id, day_index, amount, scheduled_at, status, paid_at`

// CreatePayouts вставляет график выплат. Повтор по (order_id, day_index) даёт ErrDuplicate.
func (t *pgTx) CreatePayouts(payouts []models.DailyPayout) error {
	for i := range payouts {
		p := &payouts[i]
		err := t.queryRow(`
			INSERT INTO daily_payouts (order_id, day_index, amount, scheduled_at, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, p.OrderID, p.DayIndex, p.Amount, p.ScheduledAt, p.Status,
		).Scan(&p.ID)
		if uniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) CountPayouts(orderID int64) (int, error) {
	var n int
	err := t.queryRow(`SELECT COUNT(*) FROM daily_payouts WHERE order_id = $1`, orderID).Scan(&n)
	return n, err
}

func (t *pgTx) ListPayouts(orderID int64) ([]models.DailyPayout, error) {
	return t.listPayouts(`SELECT `+payoutColumns+` FROM daily_payouts WHERE order_id = $1 ORDER BY day_index`, orderID)
}

// ListDuePayouts отбирает ожидающие выплаты со сроком не позже now.
func (t *pgTx) ListDuePayouts(now time.Time, orderID int64) ([]models.DailyPayout, error) {
	if orderID != 0 {
		return t.listPayouts(`SELECT `+payoutColumns+` FROM daily_payouts
			WHERE status = 'pending' AND scheduled_at <= $1 AND order_id = $2
			ORDER BY scheduled_at, id`, now, orderID)
	}
	return t.listPayouts(`SELECT `+payoutColumns+` FROM daily_payouts
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at, id`, now)
}

// SetPayoutStatus переводит выплату from -> to. Если строка уже в другом статусе, возвращает ErrConflict.
func (t *pgTx) SetPayoutStatus(id int64, from, to models.PayoutStatus, at time.Time) error {
	var paidAt *time.Time
	if to == models.PayoutPaid {
		paidAt = &at
	}
	return t.execOne(ErrConflict, `
		UPDATE daily_payouts SET status = $3, paid_at = COALESCE($4, paid_at)
		WHERE id = $1 AND status = $2`, id, from, to, paidAt)
}

// CancelPendingPayouts отменяет все ожидающие выплаты заказа и возвращает их число.
func (t *pgTx) CancelPendingPayouts(orderID int64) (int, error) {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE daily_payouts SET status = 'cancelled'
		WHERE order_id = $1 AND status = 'pending'`, orderID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t *pgTx) SumPayouts(orderID int64, status models.PayoutStatus) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.queryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM daily_payouts
		WHERE order_id = $1 AND status = $2`, orderID, status).Scan(&sum)
	return sum, err
}

func (t *pgTx) listPayouts(query string, args ...any) ([]models.DailyPayout, error) {
	rows, err := t.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []models.DailyPayout
	for rows.Next() {
		var p models.DailyPayout
		var paid sql.NullTime
		if err := rows.Scan(&p.ID, &p.OrderID, &p.DayIndex, &p.Amount, &p.ScheduledAt, &p.Status, &paid); err != nil {
			return nil, err
		}
		p.PaidAt = nullTime(paid)
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}
