package models

import "time"

// Review: оценка покупателя после завершения заказа.
type Review struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	SlotID    int64     `json:"slot_id"`
	AuthorID  int64     `json:"author_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}
