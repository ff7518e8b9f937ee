package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SlotStatus: состояние канала в каталоге.
type SlotStatus string

const (
	SlotActive SlotStatus = "active"
	SlotPaused SlotStatus = "paused"
)

// Slot: канал владельца с прайсом на пост и закреп.
type Slot struct {
	ID                 int64           `json:"id"`
	ChannelID          int64           `json:"channel_id"`
	AccessHash         int64           `json:"-"`
	OwnerID            int64           `json:"owner_id"`
	Title              string          `json:"title"`
	Username           string          `json:"username"`
	PriceStandard      decimal.Decimal `json:"price_standard"`
	PricePinned        decimal.Decimal `json:"price_pinned"`
	Status             SlotStatus      `json:"status"`
	IsBotAdmin         bool            `json:"is_bot_admin"`
	Stats              SlotStats       `json:"stats"`
	TotalReviews       int             `json:"total_reviews"`
	AverageRating      float64         `json:"average_rating"`
	CompletedOrders    int             `json:"completed_orders"`
	ViolationCount     int             `json:"violation_count"`
	TotalPenaltyAmount decimal.Decimal `json:"total_penalty_amount"`
	CreatedAt          time.Time       `json:"created_at"`
}

// SlotStats: метрики канала, которые пересчитывает сборщик статистики.
type SlotStats struct {
	Subscribers    int             `json:"subscribers"`
	AvgViews       int             `json:"avg_views"`
	ERR            float64         `json:"err"`
	QualityScore   int             `json:"quality_score"`
	QualityLabel   string          `json:"quality_label"`
	SuspicionScore int             `json:"suspicion_score"`
	IsSuspicious   bool            `json:"is_suspicious"`
	SuggestedPost  decimal.Decimal `json:"suggested_price_post"`
	SuggestedPin   decimal.Decimal `json:"suggested_price_pin"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

// Destination: адрес канала для публикации.
type Destination struct {
	ChannelID  int64
	AccessHash int64
}

// PriceFor возвращает цену за день для типа размещения.
func (s *Slot) PriceFor(p Placement) decimal.Decimal {
	if p == PlacementPin {
		return s.PricePinned
	}
	return s.PriceStandard
}

func (s *Slot) Destination() Destination {
	return Destination{ChannelID: s.ChannelID, AccessHash: s.AccessHash}
}
