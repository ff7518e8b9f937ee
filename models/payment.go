package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentActive  PaymentStatus = "active"
	PaymentPaid    PaymentStatus = "paid"
	PaymentExpired PaymentStatus = "expired"
)

// Payment: счёт на оплату заказа во внешней платёжной системе.
type Payment struct {
	ID                   int64           `json:"id"`
	OrderID              int64           `json:"order_id"`
	BuyerID              int64           `json:"buyer_id"`
	Amount               decimal.Decimal `json:"amount"`
	AmountWithCommission decimal.Decimal `json:"amount_with_commission"`
	Currency             string          `json:"currency"`
	InvoiceID            int64           `json:"invoice_id"`
	PayURL               string          `json:"pay_url"`
	Status               PaymentStatus   `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
}
