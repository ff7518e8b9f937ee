// Package monitor следит за опубликованными размещениями: завершает заказы по сроку
// и штрафует владельца, если пост удалён раньше.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tgads_go/models"
	"tgads_go/pkg/notify"
	"tgads_go/pkg/orders"
	"tgads_go/pkg/settlement"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ContentHost удаляет посты и проверяет, на месте ли они.
// Probe возвращает ContentUnknown при любом неоднозначном ответе площадки.
type ContentHost interface {
	Remove(ctx context.Context, dest models.Destination, handle int) error
	Probe(ctx context.Context, dest models.Destination, handle int) (models.ContentState, error)
}

// Orders: операции над заказами, которые нужны монитору.
type Orders interface {
	Live(ctx context.Context, endBefore *time.Time) ([]orders.Placement, error)
	Complete(ctx context.Context, orderID int64) (*orders.Completion, error)
}

// Penalizer применяет штраф за досрочное удаление.
type Penalizer interface {
	ApplyPenalty(ctx context.Context, orderID int64, now time.Time) (*settlement.PenaltyResult, error)
}

type Monitor struct {
	orders   Orders
	penalty  Penalizer
	host     ContentHost
	notifier notify.Notifier
	limiter  *rate.Limiter
	log      *zap.Logger
	now      func() time.Time
}

// New создаёт монитор. probeDelay: минимальная пауза между проверками постов.
func New(o Orders, p Penalizer, host ContentHost, n notify.Notifier, probeDelay time.Duration, log *zap.Logger) *Monitor {
	limit := rate.Inf
	if probeDelay > 0 {
		limit = rate.Every(probeDelay)
	}
	return &Monitor{
		orders:   o,
		penalty:  p,
		host:     host,
		notifier: n,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log,
		now:      time.Now,
	}
}

// Report: итог одного прохода.
type Report struct {
	Completed int
	Violated  int
	Skipped   int // неоднозначная проверка или штраф не применён
	Failed    int
}

// Sweep выполняет один проход: сначала завершение по сроку, затем проверку постов.
// Ошибка одного заказа не прерывает проход.
func (m *Monitor) Sweep(ctx context.Context) (Report, error) {
	var rep Report
	now := m.now()
	if err := m.expire(ctx, now, &rep); err != nil {
		return rep, err
	}
	if err := m.probe(ctx, now, &rep); err != nil {
		return rep, err
	}
	if rep.Completed+rep.Violated+rep.Skipped+rep.Failed > 0 {
		m.log.Info("проход мониторинга",
			zap.Int("completed", rep.Completed), zap.Int("violated", rep.Violated),
			zap.Int("skipped", rep.Skipped), zap.Int("failed", rep.Failed))
	}
	return rep, nil
}

func (m *Monitor) expire(ctx context.Context, now time.Time, rep *Report) error {
	due, err := m.orders.Live(ctx, &now)
	if err != nil {
		return fmt.Errorf("выборка истёкших заказов: %w", err)
	}
	for _, p := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o := p.Order
		// пост удаляется в любом случае, сбой удаления не мешает завершению
		if err := m.host.Remove(ctx, p.Dest, *o.ContentHandle); err != nil {
			m.log.Warn("не удалось удалить пост по окончании срока", zap.Int64("order_id", o.ID), zap.Error(err))
		}
		res, err := m.orders.Complete(ctx, o.ID)
		if err != nil {
			rep.Failed++
			m.log.Error("завершение заказа", zap.Int64("order_id", o.ID), zap.Error(err))
			continue
		}
		if !res.Applied {
			continue
		}
		rep.Completed++
		notify.Send(ctx, m.notifier, m.log, o.SellerID,
			fmt.Sprintf("Размещение по заказу #%d завершено, пост удалён. Все выплаты начислены на баланс.", o.ID))
		notify.Send(ctx, m.notifier, m.log, o.BuyerID,
			fmt.Sprintf("Размещение по заказу #%d завершено. Оцените канал от 1 до 5.", o.ID))
	}
	return nil
}

func (m *Monitor) probe(ctx context.Context, now time.Time, rep *Report) error {
	live, err := m.orders.Live(ctx, nil)
	if err != nil {
		return fmt.Errorf("выборка активных заказов: %w", err)
	}
	for _, p := range live {
		o := p.Order
		if o.EndDate != nil && !o.EndDate.After(now) {
			continue
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		state, err := m.host.Probe(ctx, p.Dest, *o.ContentHandle)
		switch state {
		case models.ContentPresent:
			continue
		case models.ContentUnknown:
			rep.Skipped++
			m.log.Warn("проверка поста неоднозначна, пропуск", zap.Int64("order_id", o.ID), zap.Error(err))
			continue
		}

		res, err := m.penalty.ApplyPenalty(ctx, o.ID, now)
		if errors.Is(err, settlement.ErrPenaltyNotApplied) {
			rep.Skipped++
			m.log.Warn("штраф не применён, повтор на следующем проходе", zap.Int64("order_id", o.ID), zap.Error(err))
			continue
		}
		if err != nil {
			rep.Failed++
			m.log.Error("применение штрафа", zap.Int64("order_id", o.ID), zap.Error(err))
			continue
		}
		rep.Violated++
		notify.Send(ctx, m.notifier, m.log, res.SellerID,
			fmt.Sprintf("Пост по заказу #%d удалён раньше срока. Штраф %s $ списан с баланса, оставшиеся выплаты отменены.", o.ID, res.Penalty.StringFixed(2)))
		notify.Send(ctx, m.notifier, m.log, res.BuyerID,
			fmt.Sprintf("Пост по заказу #%d удалён раньше срока. На ваш баланс возвращено %s $.", o.ID, res.Penalty.StringFixed(2)))
	}
	return nil
}
