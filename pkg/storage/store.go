package storage

import (
	"context"
	"errors"
	"time"

	"tgads_go/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound: запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrConflict: строка изменена параллельно, условное обновление не применилось.
	ErrConflict = errors.New("concurrent modification")
	// ErrDuplicate: нарушено ограничение уникальности.
	ErrDuplicate = errors.New("duplicate record")
)

// Store: хранилище с транзакциями. Все изменения баланса выполняются внутри InTx.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// OrderFilter отбирает заказы. Нулевые поля не ограничивают выборку.
type OrderFilter struct {
	PartyID   int64 // покупатель или продавец
	SlotID    int64
	Statuses  []models.OrderStatus
	EndBefore *time.Time
	Published bool // только с дескриптором контента
}

// SlotFilter отбирает каналы.
type SlotFilter struct {
	OwnerID    int64
	OnlyListed bool // активные и не подозрительные
}

// Tx: операции над данными в рамках одной транзакции.
// Методы Lock* блокируют строку до конца транзакции.
type Tx interface {
	UpsertParty(p *models.Party) error
	GetParty(id int64) (*models.Party, error)
	LockParty(id int64) (*models.Party, error)
	AdjustParty(id int64, adj models.BalanceAdjustment) error
	SumPendingWithdrawals(partyID int64) (decimal.Decimal, error)

	CreateSlot(s *models.Slot) error
	GetSlot(id int64) (*models.Slot, error)
	GetSlotByChannel(channelID int64) (*models.Slot, error)
	ListSlots(f SlotFilter) ([]models.Slot, error)
	UpdateSlotPrices(id int64, standard, pinned decimal.Decimal) error
	UpdateSlotStats(id int64, stats models.SlotStats) error
	RecordSlotViolation(id int64, penalty decimal.Decimal) error
	RecordSlotReview(id int64, rating int) error

	CreateOrder(o *models.Order) error
	GetOrder(id int64) (*models.Order, error)
	LockOrder(id int64) (*models.Order, error)
	// UpdateOrder сохраняет заказ, только если его статус в базе всё ещё равен from.
	UpdateOrder(o *models.Order, from models.OrderStatus) error
	DeleteOrder(id int64) error
	ListOrders(f OrderFilter) ([]models.Order, error)

	AddOffer(o *models.Offer) error
	ListOffers(orderID int64) ([]models.Offer, error)

	CreatePayment(p *models.Payment) error
	LatestPayment(orderID int64) (*models.Payment, error)
	ListActivePayments() ([]models.Payment, error)
	SetPaymentStatus(id int64, from, to models.PaymentStatus, at time.Time) error

	CreatePayouts(p []models.DailyPayout) error
	CountPayouts(orderID int64) (int, error)
	ListPayouts(orderID int64) ([]models.DailyPayout, error)
	// ListDuePayouts возвращает ожидающие выплаты со сроком не позже now; orderID 0: по всем заказам.
	ListDuePayouts(now time.Time, orderID int64) ([]models.DailyPayout, error)
	SetPayoutStatus(id int64, from, to models.PayoutStatus, at time.Time) error
	CancelPendingPayouts(orderID int64) (int, error)
	SumPayouts(orderID int64, status models.PayoutStatus) (decimal.Decimal, error)

	CreateWithdrawal(w *models.WithdrawalRequest) error
	UpdateWithdrawal(w *models.WithdrawalRequest, from models.WithdrawalStatus) error
	ListWithdrawals(partyID int64) ([]models.WithdrawalRequest, error)

	CreateReview(r *models.Review) error
	GetReviewByOrder(orderID int64) (*models.Review, error)

	CreateDispute(d *models.Dispute) error
	GetDispute(id int64) (*models.Dispute, error)
	UpdateDispute(d *models.Dispute) error

	OwnerStats(ownerID int64) (*models.OwnerStats, error)
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
	_ Tx    = (*pgTx)(nil)
	_ Tx    = (*memTx)(nil)
)
