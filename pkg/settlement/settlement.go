// Package settlement: график ежедневных выплат, их начисление и штрафы за досрочное удаление поста.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/events"
	"tgads_go/pkg/ledger"
	"tgads_go/pkg/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrPenaltyNotApplied: у владельца недостаточно средств для штрафа; балансы не изменены.
var ErrPenaltyNotApplied = apperr.Guard("штраф не применён")

type Config struct {
	PenaltyRate decimal.Decimal
	PayoutHour  int
	Location    *time.Location
}

// Engine начисляет выплаты и штрафы. Каждое изменение баланса выполняется в одной
// транзакции со сменой статуса выплаты или заказа, которая защищает от повторного применения.
type Engine struct {
	store  storage.Store
	cfg    Config
	events events.Publisher
	log    *zap.Logger
}

func NewEngine(store storage.Store, cfg Config, pub events.Publisher, log *zap.Logger) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{store: store, cfg: cfg, events: pub, log: log}
}

// BuildSchedule строит по одной выплате на каждый день: в час выплат, со сдвигом на day-1 дней от даты старта.
func BuildSchedule(o *models.Order, hour int, loc *time.Location) []models.DailyPayout {
	start := o.StartDate.In(loc)
	base := time.Date(start.Year(), start.Month(), start.Day(), hour, 0, 0, 0, loc)
	payouts := make([]models.DailyPayout, 0, o.DurationDays)
	for day := 1; day <= o.DurationDays; day++ {
		payouts = append(payouts, models.DailyPayout{
			OrderID:     o.ID,
			DayIndex:    day,
			Amount:      o.PricePerDay,
			ScheduledAt: base.AddDate(0, 0, day-1),
			Status:      models.PayoutPending,
		})
	}
	return payouts
}

// CreateSchedule создаёт график выплат опубликованного заказа. Повторный вызов ничего не меняет.
func (e *Engine) CreateSchedule(tx storage.Tx, o *models.Order) error {
	if o.StartDate == nil {
		return fmt.Errorf("заказ %d не опубликован", o.ID)
	}
	n, err := tx.CountPayouts(o.ID)
	if err != nil {
		return err
	}
	if n == o.DurationDays {
		return nil
	}
	if n != 0 {
		return fmt.Errorf("у заказа %d неполный график выплат: %d из %d", o.ID, n, o.DurationDays)
	}
	return tx.CreatePayouts(BuildSchedule(o, e.cfg.PayoutHour, e.cfg.Location))
}

// SweepResult: итог прохода по выплатам.
type SweepResult struct {
	Paid      int
	Cancelled int
	Skipped   int
	Failed    int
	Credited  decimal.Decimal
}

// Sweep начисляет все выплаты со сроком не позже now. Каждая выплата обрабатывается
// в своей транзакции; ошибка по одной не останавливает остальные. Повторный запуск безопасен.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	res := SweepResult{Credited: decimal.Zero}
	var due []models.DailyPayout
	err := e.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		due, err = tx.ListDuePayouts(now, 0)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("list due payouts: %w", err)
	}

	for _, p := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var outcome payoutOutcome
		var sellerID int64
		err := e.store.InTx(ctx, func(tx storage.Tx) error {
			o, err := tx.LockOrder(p.OrderID)
			if err != nil {
				return err
			}
			sellerID = o.SellerID
			outcome, err = e.settle(tx, o, p, now)
			return err
		})
		if err != nil {
			res.Failed++
			e.log.Error("выплата не обработана", zap.Int64("payout_id", p.ID), zap.Int64("order_id", p.OrderID), zap.Error(err))
			continue
		}
		switch outcome {
		case payoutCredited:
			res.Paid++
			res.Credited = res.Credited.Add(p.Amount)
			events.Emit(ctx, e.events, e.log, events.New(events.PayoutPaid, p.OrderID, sellerID).WithAmount(p.Amount))
		case payoutCancelled:
			res.Cancelled++
		default:
			res.Skipped++
		}
	}
	if len(due) > 0 {
		e.log.Info("проход выплат завершён",
			zap.Int("paid", res.Paid), zap.Int("cancelled", res.Cancelled),
			zap.Int("skipped", res.Skipped), zap.Int("failed", res.Failed),
			zap.String("credited", res.Credited.String()))
	}
	return res, nil
}

// SettleDue начисляет просроченные выплаты одного заказа внутри уже открытой транзакции.
// Вызывается перед завершением заказа, чтобы заработанные дни не были отменены.
func (e *Engine) SettleDue(tx storage.Tx, o *models.Order, now time.Time) (decimal.Decimal, error) {
	due, err := tx.ListDuePayouts(now, o.ID)
	if err != nil {
		return decimal.Zero, err
	}
	credited := decimal.Zero
	for _, p := range due {
		outcome, err := e.settle(tx, o, p, now)
		if err != nil {
			return decimal.Zero, err
		}
		if outcome == payoutCredited {
			credited = credited.Add(p.Amount)
		}
	}
	return credited, nil
}

type payoutOutcome int

const (
	payoutSkipped payoutOutcome = iota
	payoutCredited
	payoutCancelled
)

// settle переводит выплату pending -> paid с зачислением владельцу либо pending -> cancelled,
// если заказ уже не активен. Условное обновление статуса не даёт зачислить выплату дважды.
func (e *Engine) settle(tx storage.Tx, o *models.Order, p models.DailyPayout, now time.Time) (payoutOutcome, error) {
	if o.Status != models.StatusActive {
		err := tx.SetPayoutStatus(p.ID, models.PayoutPending, models.PayoutCancelled, now)
		if errors.Is(err, storage.ErrConflict) {
			return payoutSkipped, nil
		}
		return payoutCancelled, err
	}
	err := tx.SetPayoutStatus(p.ID, models.PayoutPending, models.PayoutPaid, now)
	if errors.Is(err, storage.ErrConflict) {
		return payoutSkipped, nil
	}
	if err != nil {
		return payoutSkipped, err
	}
	if err := ledger.Credit(tx, o.SellerID, p.Amount, true); err != nil {
		return payoutSkipped, err
	}
	return payoutCredited, nil
}

// PenaltyResult: итог штрафа за досрочное удаление.
type PenaltyResult struct {
	OrderID       int64
	BuyerID       int64
	SellerID      int64
	Earned        decimal.Decimal
	Penalty       decimal.Decimal
	CancelledDays int
}

// ApplyPenalty штрафует владельца за досрочное удаление поста: penalty = сумма выплаченных дней * ставка.
// Штраф переводится покупателю, оставшиеся выплаты отменяются, заказ становится violated.
// Если у владельца не хватает средств, возвращается ErrPenaltyNotApplied и ничего не меняется.
func (e *Engine) ApplyPenalty(ctx context.Context, orderID int64, now time.Time) (*PenaltyResult, error) {
	var res *PenaltyResult
	err := e.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := tx.LockOrder(orderID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("заказ", orderID)
		}
		if err != nil {
			return err
		}
		if err := models.CheckTransition(o.Status, models.StatusViolated); err != nil {
			return apperr.Conflict(err)
		}

		earned, err := tx.SumPayouts(o.ID, models.PayoutPaid)
		if err != nil {
			return err
		}
		penalty := earned.Mul(e.cfg.PenaltyRate).Round(2)

		parties, err := ledger.LockParties(tx, o.SellerID, o.BuyerID)
		if err != nil {
			return err
		}
		if seller := parties[o.SellerID]; seller.Balance.LessThan(penalty) {
			return fmt.Errorf("%w: баланс владельца %s, штраф %s", ErrPenaltyNotApplied, seller.Balance, penalty)
		}
		if err := ledger.Transfer(tx, o.SellerID, o.BuyerID, penalty); err != nil {
			return err
		}
		cancelled, err := tx.CancelPendingPayouts(o.ID)
		if err != nil {
			return err
		}

		from := o.Status
		if err := o.Transition(models.StatusViolated); err != nil {
			return apperr.Conflict(err)
		}
		o.IsViolated = true
		o.ViolatedAt = &now
		o.PenaltyAmount = penalty
		if err := tx.UpdateOrder(o, from); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return apperr.Conflict(err)
			}
			return err
		}
		if err := tx.RecordSlotViolation(o.SlotID, penalty); err != nil {
			return err
		}
		res = &PenaltyResult{
			OrderID:       o.ID,
			BuyerID:       o.BuyerID,
			SellerID:      o.SellerID,
			Earned:        earned,
			Penalty:       penalty,
			CancelledDays: cancelled,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Warn("штраф за досрочное удаление",
		zap.Int64("order_id", res.OrderID), zap.String("earned", res.Earned.String()),
		zap.String("penalty", res.Penalty.String()), zap.Int("cancelled_days", res.CancelledDays))
	events.Emit(ctx, e.events, e.log, events.New(events.OrderViolated, res.OrderID, res.SellerID).WithAmount(res.Penalty))
	return res, nil
}

// Payouts возвращает график выплат заказа.
func (e *Engine) Payouts(ctx context.Context, orderID int64) ([]models.DailyPayout, error) {
	var list []models.DailyPayout
	err := e.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		list, err = tx.ListPayouts(orderID)
		return err
	})
	return list, err
}
