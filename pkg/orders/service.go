// Package orders: жизненный цикл рекламного заказа: создание, торг, оплата, модерация,
// публикация, завершение и споры. Допустимые переходы задаёт таблица в models.
package orders

import (
	"context"
	"errors"
	"time"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/cryptopay"
	"tgads_go/pkg/events"
	"tgads_go/pkg/notify"
	"tgads_go/pkg/settlement"
	"tgads_go/pkg/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	MinDuration = 1
	MaxDuration = 30
)

// PaymentGateway выставляет счета и сообщает их статус.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, amount decimal.Decimal, asset, description, payload string, ttl time.Duration) (*cryptopay.Invoice, error)
	InvoiceStatus(ctx context.Context, invoiceID int64) (cryptopay.InvoiceStatus, error)
	DeleteInvoice(ctx context.Context, invoiceID int64) error
}

// ContentHost публикует посты в каналах.
type ContentHost interface {
	Publish(ctx context.Context, dest models.Destination, content models.Content) (int, error)
	Pin(ctx context.Context, dest models.Destination, handle int) error
	Remove(ctx context.Context, dest models.Destination, handle int) error
}

type Config struct {
	CommissionRate decimal.Decimal
	Currency       string
	InvoiceTTL     time.Duration
	AdminIDs       map[int64]bool
}

// Service управляет заказами. Движок выплат передаётся явно при создании.
type Service struct {
	store      storage.Store
	settlement *settlement.Engine
	gateway    PaymentGateway
	host       ContentHost
	notifier   notify.Notifier
	events     events.Publisher
	cfg        Config
	log        *zap.Logger
	now        func() time.Time
}

type Deps struct {
	Store      storage.Store
	Settlement *settlement.Engine
	Gateway    PaymentGateway
	Host       ContentHost
	Notifier   notify.Notifier
	Events     events.Publisher
	Log        *zap.Logger
	Now        func() time.Time
}

func NewService(d Deps, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "USDT"
	}
	if cfg.InvoiceTTL == 0 {
		cfg.InvoiceTTL = time.Hour
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:      d.Store,
		settlement: d.Settlement,
		gateway:    d.Gateway,
		host:       d.Host,
		notifier:   d.Notifier,
		events:     d.Events,
		cfg:        cfg,
		log:        d.Log,
		now:        now,
	}
}

// lockOrder блокирует заказ и переводит «не найдено» в ошибку уровня приложения.
func lockOrder(tx storage.Tx, id int64) (*models.Order, error) {
	o, err := tx.LockOrder(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("заказ", id)
	}
	return o, err
}

// transition проверяет переход по таблице и сохраняет заказ с защитой по исходному статусу.
func transition(tx storage.Tx, o *models.Order, to models.OrderStatus) error {
	from := o.Status
	if err := o.Transition(to); err != nil {
		return apperr.Conflict(err)
	}
	return save(tx, o, from)
}

func save(tx storage.Tx, o *models.Order, from models.OrderStatus) error {
	err := tx.UpdateOrder(o, from)
	if errors.Is(err, storage.ErrConflict) {
		return apperr.Conflict(err)
	}
	return err
}

// ownedBy проверяет, что заказ принадлежит участнику. Чужой заказ выглядит как отсутствующий.
func ownedBy(o *models.Order, partyID int64, asSeller bool) error {
	if asSeller && o.SellerID == partyID {
		return nil
	}
	if !asSeller && o.BuyerID == partyID {
		return nil
	}
	return apperr.NotFound("заказ", o.ID)
}

func (s *Service) emit(ctx context.Context, typ string, o *models.Order, partyID int64) {
	events.Emit(ctx, s.events, s.log, events.New(typ, o.ID, partyID))
}

func (s *Service) notify(ctx context.Context, partyID int64, text string) {
	notify.Send(ctx, s.notifier, s.log, partyID, text)
}

func validDuration(days int) error {
	if days < MinDuration || days > MaxDuration {
		return apperr.Validation("срок размещения должен быть от %d до %d дней", MinDuration, MaxDuration)
	}
	return nil
}

func validPrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return apperr.Validation("цена должна быть больше 0")
	}
	return nil
}
