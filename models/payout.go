package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutPaid      PayoutStatus = "paid"
	PayoutPenalty   PayoutStatus = "penalty"
	PayoutCancelled PayoutStatus = "cancelled"
)

// DailyPayout: выплата владельцу за один день размещения.
type DailyPayout struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	DayIndex    int             `json:"day_index"`
	Amount      decimal.Decimal `json:"amount"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	Status      PayoutStatus    `json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}
