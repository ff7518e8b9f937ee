package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Party: пользователь площадки (покупатель и/или владелец каналов).
// ID совпадает с идентификатором пользователя Telegram.
type Party struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	FirstName      string          `json:"first_name"`
	AccessHash     int64           `json:"-"`
	Balance        decimal.Decimal `json:"balance"`
	FrozenBalance  decimal.Decimal `json:"frozen_balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BalanceAdjustment: приращения полей баланса в одной операции.
// Счётчики TotalEarned и TotalWithdrawn только растут.
type BalanceAdjustment struct {
	Balance        decimal.Decimal
	TotalEarned    decimal.Decimal
	TotalWithdrawn decimal.Decimal
}

// BalanceSummary: сводка баланса для отображения.
type BalanceSummary struct {
	PartyID            int64           `json:"party_id"`
	Balance            decimal.Decimal `json:"balance"`
	FrozenBalance      decimal.Decimal `json:"frozen_balance"`
	PendingWithdrawals decimal.Decimal `json:"pending_withdrawals"`
	Available          decimal.Decimal `json:"available"`
	TotalEarned        decimal.Decimal `json:"total_earned"`
	TotalWithdrawn     decimal.Decimal `json:"total_withdrawn"`
}

// OwnerStats: статистика владельца по всем его каналам.
type OwnerStats struct {
	OwnerID         int64           `json:"owner_id"`
	Slots           int             `json:"slots"`
	Earned          decimal.Decimal `json:"earned"`
	Penalties       decimal.Decimal `json:"penalties"`
	Violations      int             `json:"violations"`
	Net             decimal.Decimal `json:"net"`
	ActiveOrders    int             `json:"active_orders"`
	CompletedOrders int             `json:"completed_orders"`
}
