package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferAuthor string

const (
	OfferByBuyer  OfferAuthor = "buyer"
	OfferBySeller OfferAuthor = "seller"
)

// Offer: запись журнала торга по цене.
type Offer struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Author    OfferAuthor     `json:"author"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}
