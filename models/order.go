package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Placement: тип размещения: обычный пост или закреп.
type Placement string

const (
	PlacementPost Placement = "post"
	PlacementPin  Placement = "pin"
)

// Valid сообщает, поддерживается ли тип размещения.
func (p Placement) Valid() bool {
	return p == PlacementPost || p == PlacementPin
}

// Order: рекламный заказ между покупателем и владельцем канала.
type Order struct {
	ID            int64            `json:"id"`
	BuyerID       int64            `json:"buyer_id"`
	SlotID        int64            `json:"slot_id"`
	SellerID      int64            `json:"seller_id"`
	Placement     Placement        `json:"placement"`
	Content       Content          `json:"content"`
	DurationDays  int              `json:"duration_days"`
	PricePerDay   decimal.Decimal  `json:"price_per_day"`
	TotalPrice    decimal.Decimal  `json:"total_price"`
	BuyerPrice    *decimal.Decimal `json:"buyer_price,omitempty"`
	SellerPrice   *decimal.Decimal `json:"seller_price,omitempty"`
	AgreedPrice   *decimal.Decimal `json:"agreed_price,omitempty"`
	Status        OrderStatus      `json:"status"`
	ContentHandle *int             `json:"content_handle,omitempty"`
	StartDate     *time.Time       `json:"start_date,omitempty"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	IsViolated    bool             `json:"is_violated"`
	ViolatedAt    *time.Time       `json:"violated_at,omitempty"`
	PenaltyAmount decimal.Decimal  `json:"penalty_amount"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Transition переводит заказ в новое состояние, если это разрешено таблицей переходов.
func (o *Order) Transition(to OrderStatus) error {
	if err := CheckTransition(o.Status, to); err != nil {
		return err
	}
	o.Status = to
	return nil
}

// Activate фиксирует публикацию: дескриптор контента и срок размещения.
func (o *Order) Activate(handle int, now time.Time) error {
	if err := o.Transition(StatusActive); err != nil {
		return err
	}
	end := now.AddDate(0, 0, o.DurationDays)
	o.ContentHandle = &handle
	o.StartDate = &now
	o.EndDate = &end
	return nil
}

// TotalFor считает стоимость размещения на days дней с округлением до центов.
func TotalFor(pricePerDay decimal.Decimal, days int) decimal.Decimal {
	return pricePerDay.Mul(decimal.NewFromInt(int64(days))).Round(2)
}

// WithCommission возвращает сумму к оплате с комиссией площадки.
func WithCommission(total, rate decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
}
