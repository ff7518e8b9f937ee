package models

import (
	"encoding/json"
	"time"
)

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// Исходы разбора спора.
const (
	ResolutionRefundBuyer   = "refund_buyer"
	ResolutionReleaseSeller = "release_seller"
	ResolutionSplit         = "split"
	ResolutionRejected      = "rejected"
)

// Dispute: спор по заказу. Разбирается вручную, ядро только хранит данные.
type Dispute struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	OpenedBy   int64           `json:"opened_by"`
	Reason     string          `json:"reason"`
	Evidence   json.RawMessage `json:"evidence,omitempty"`
	Status     DisputeStatus   `json:"status"`
	Resolution string          `json:"resolution,omitempty"`
	ResolvedBy *int64          `json:"resolved_by,omitempty"`
	AdminNotes string          `json:"admin_notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// ValidResolution проверяет исход спора.
func ValidResolution(r string) bool {
	switch r {
	case ResolutionRefundBuyer, ResolutionReleaseSeller, ResolutionSplit, ResolutionRejected:
		return true
	}
	return false
}
