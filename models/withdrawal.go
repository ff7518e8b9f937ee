package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalRejected   WithdrawalStatus = "rejected"
	WithdrawalCancelled  WithdrawalStatus = "cancelled"
)

// WithdrawalRequest: заявка на вывод средств чеком.
type WithdrawalRequest struct {
	ID           int64            `json:"id"`
	PartyID      int64            `json:"party_id"`
	AmountUSD    decimal.Decimal  `json:"amount_usd"`
	Currency     string           `json:"currency"`
	CryptoAmount decimal.Decimal  `json:"crypto_amount"`
	Rate         decimal.Decimal  `json:"rate"`
	ChequeID     *int64           `json:"cheque_id,omitempty"`
	ChequeURL    string           `json:"cheque_url,omitempty"`
	Status       WithdrawalStatus `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ProcessedAt  *time.Time       `json:"processed_at,omitempty"`
}

// Final сообщает, что заявка больше не меняется.
func (w *WithdrawalRequest) Final() bool {
	return w.Status == WithdrawalCompleted || w.Status == WithdrawalRejected || w.Status == WithdrawalCancelled
}
