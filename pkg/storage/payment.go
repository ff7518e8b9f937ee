package storage

import (
	"database/sql"
	"time"

	"tgads_go/models"
)

const paymentColumns = `id, order_id, buyer_id, amount, amount_with_commission, currency, invoice_id, pay_url, status, created_at, paid_at`

func (t *pgTx) CreatePayment(p *models.Payment) error {
	return t.queryRow(`
		INSERT INTO payments (order_id, buyer_id, amount, amount_with_commission, currency, invoice_id, pay_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		p.OrderID, p.BuyerID, p.Amount, p.AmountWithCommission, p.Currency, p.InvoiceID, p.PayURL, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
}

// LatestPayment возвращает последний счёт заказа.
func (t *pgTx) LatestPayment(orderID int64) (*models.Payment, error) {
	return scanPayment(t.queryRow(`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY id DESC LIMIT 1`, orderID))
}

func (t *pgTx) ListActivePayments() ([]models.Payment, error) {
	rows, err := t.query(`SELECT ` + paymentColumns + ` FROM payments WHERE status = 'active' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// SetPaymentStatus меняет статус счёта, только если текущий равен from.
func (t *pgTx) SetPaymentStatus(id int64, from, to models.PaymentStatus, at time.Time) error {
	var paidAt *time.Time
	if to == models.PaymentPaid {
		paidAt = &at
	}
	return t.execOne(ErrConflict, `
		UPDATE payments SET status = $3, paid_at = COALESCE($4, paid_at)
		WHERE id = $1 AND status = $2`, id, from, to, paidAt)
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var paid sql.NullTime
	err := row.Scan(&p.ID, &p.OrderID, &p.BuyerID, &p.Amount, &p.AmountWithCommission, &p.Currency,
		&p.InvoiceID, &p.PayURL, &p.Status, &p.CreatedAt, &paid)
	if err != nil {
		return nil, noRows(err)
	}
	p.PaidAt = nullTime(paid)
	return &p, nil
}
