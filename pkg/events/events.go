// Package events публикует события жизненного цикла заказов, выплат и выводов.
// Публикация происходит после фиксации транзакции; сбой публикации не отменяет изменений.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Типы событий.
const (
	OrderCreated        = "order.created"
	OrderNegotiating    = "order.negotiating"
	OrderPaid           = "order.paid"
	OrderActivated      = "order.activated"
	OrderCancelled      = "order.cancelled"
	OrderCompleted      = "order.completed"
	OrderViolated       = "order.violated"
	OrderDisputed       = "order.disputed"
	PayoutPaid          = "payout.paid"
	WithdrawalCompleted = "withdrawal.completed"
	WithdrawalRejected  = "withdrawal.rejected"
)

type Event struct {
	ID         uuid.UUID        `json:"id"`
	Type       string           `json:"type"`
	OccurredAt time.Time        `json:"occurred_at"`
	OrderID    int64            `json:"order_id,omitempty"`
	PartyID    int64            `json:"party_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

// New создаёт событие с новым идентификатором.
func New(typ string, orderID, partyID int64) Event {
	return Event{ID: uuid.New(), Type: typ, OccurredAt: time.Now().UTC(), OrderID: orderID, PartyID: partyID}
}

// WithAmount добавляет сумму к событию.
func (e Event) WithAmount(a decimal.Decimal) Event {
	e.Amount = &a
	return e
}

// Key: ключ партиционирования: события одного заказа попадают в одну партицию.
func (e Event) Key() string {
	if e.OrderID != 0 {
		return "order-" + strconv.FormatInt(e.OrderID, 10)
	}
	return "party-" + strconv.FormatInt(e.PartyID, 10)
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher пишет события в журнал, когда брокер не настроен.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	fields := []zap.Field{
		zap.String("event_id", e.ID.String()),
		zap.String("type", e.Type),
		zap.Int64("order_id", e.OrderID),
		zap.Int64("party_id", e.PartyID),
	}
	if e.Amount != nil {
		fields = append(fields, zap.String("amount", e.Amount.String()))
	}
	p.log.Info("event", fields...)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder запоминает опубликованные события.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types возвращает типы событий в порядке публикации.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Emit публикует событие и пишет в журнал ошибку публикации, не возвращая её.
func Emit(ctx context.Context, p Publisher, log *zap.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn("публикация события не удалась", zap.String("type", e.Type), zap.Int64("order_id", e.OrderID), zap.Error(err))
	}
}
