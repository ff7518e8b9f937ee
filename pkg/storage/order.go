package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"tgads_go/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, buyer_id, slot_id, seller_id, placement, text, media_url, media_type, button_text, button_url,
	duration_days, price_per_day, total_price, buyer_price, seller_price, agreed_price, status, content_handle,
	start_date, end_date, is_violated, violated_at, penalty_amount, created_at, updated_at`

// CreateOrder сохраняет новый заказ и заполняет его идентификатор.
func (t *pgTx) CreateOrder(o *models.Order) error {
	return t.queryRow(`
		INSERT INTO orders (buyer_id, slot_id, seller_id, placement, text, media_url, media_type, button_text, button_url,
			duration_days, price_per_day, total_price, buyer_price, seller_price, agreed_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`,
		o.BuyerID, o.SlotID, o.SellerID, o.Placement,
		o.Content.Text, o.Content.MediaURL, o.Content.MediaType, o.Content.ButtonText, o.Content.ButtonURL,
		o.DurationDays, o.PricePerDay, o.TotalPrice,
		nullDecimal(o.BuyerPrice), nullDecimal(o.SellerPrice), nullDecimal(o.AgreedPrice), o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (t *pgTx) GetOrder(id int64) (*models.Order, error) {
	return scanOrder(t.queryRow(`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (t *pgTx) LockOrder(id int64) (*models.Order, error) {
	return scanOrder(t.queryRow(`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

// UpdateOrder записывает изменяемые поля заказа. Условие по статусу служит защитой
// от двойного применения перехода: если статус уже другой, возвращается ErrConflict.
func (t *pgTx) UpdateOrder(o *models.Order, from models.OrderStatus) error {
	return t.execOne(ErrConflict, `
		UPDATE orders SET
			text = $3, media_url = $4, media_type = $5, button_text = $6, button_url = $7,
			duration_days = $8, price_per_day = $9, total_price = $10,
			buyer_price = $11, seller_price = $12, agreed_price = $13,
			status = $14, content_handle = $15, start_date = $16, end_date = $17,
			is_violated = $18, violated_at = $19, penalty_amount = $20, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		o.ID, from,
		o.Content.Text, o.Content.MediaURL, o.Content.MediaType, o.Content.ButtonText, o.Content.ButtonURL,
		o.DurationDays, o.PricePerDay, o.TotalPrice,
		nullDecimal(o.BuyerPrice), nullDecimal(o.SellerPrice), nullDecimal(o.AgreedPrice),
		o.Status, o.ContentHandle, o.StartDate, o.EndDate,
		o.IsViolated, o.ViolatedAt, o.PenaltyAmount,
	)
}

// DeleteOrder удаляет заказ вместе с зависимыми строками (каскадно).
func (t *pgTx) DeleteOrder(id int64) error {
	return t.execOne(ErrNotFound, `DELETE FROM orders WHERE id = $1`, id)
}

// ListOrders собирает запрос из фильтра.
func (t *pgTx) ListOrders(f OrderFilter) ([]models.Order, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PartyID != 0 {
		args = append(args, f.PartyID)
		where = append(where, fmt.Sprintf("(buyer_id = $%d OR seller_id = $%d)", len(args), len(args)))
	}
	if f.SlotID != 0 {
		add("slot_id = $%d", f.SlotID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if f.EndBefore != nil {
		add("end_date <= $%d", *f.EndBefore)
	}
	if f.Published {
		where = append(where, "content_handle IS NOT NULL")
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := t.query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var buyerPrice, sellerPrice, agreedPrice decimal.NullDecimal
	var handle sql.NullInt64
	var start, end, violated sql.NullTime
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.SlotID, &o.SellerID, &o.Placement,
		&o.Content.Text, &o.Content.MediaURL, &o.Content.MediaType, &o.Content.ButtonText, &o.Content.ButtonURL,
		&o.DurationDays, &o.PricePerDay, &o.TotalPrice, &buyerPrice, &sellerPrice, &agreedPrice,
		&o.Status, &handle, &start, &end, &o.IsViolated, &violated, &o.PenaltyAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, noRows(err)
	}
	o.BuyerPrice = decimalPtr(buyerPrice)
	o.SellerPrice = decimalPtr(sellerPrice)
	o.AgreedPrice = decimalPtr(agreedPrice)
	if handle.Valid {
		h := int(handle.Int64)
		o.ContentHandle = &h
	}
	o.StartDate = nullTime(start)
	o.EndDate = nullTime(end)
	o.ViolatedAt = nullTime(violated)
	return &o, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
