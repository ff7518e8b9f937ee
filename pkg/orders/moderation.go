package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/events"
	"tgads_go/pkg/storage"

	"go.uber.org/zap"
)

const maxCommentLen = 1000

// Approve публикует пост и запускает размещение: заказ становится active, создаётся график выплат.
// Повторное одобрение уже опубликованного заказа ничего не делает.
func (s *Service) Approve(ctx context.Context, sellerID, orderID int64) (*models.Order, error) {
	var (
		order *models.Order
		dest  models.Destination
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := ownedBy(o, sellerID, true); err != nil {
			return err
		}
		order = o
		if o.Status == models.StatusActive {
			return nil
		}
		if err := models.CheckTransition(o.Status, models.StatusActive); err != nil {
			return apperr.Conflict(err)
		}
		slot, err := tx.GetSlot(o.SlotID)
		if err != nil {
			return err
		}
		dest = slot.Destination()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order.Status == models.StatusActive {
		return order, nil
	}

	handle, err := s.host.Publish(ctx, dest, order.Content)
	if err != nil {
		return nil, apperr.External("публикация поста", err)
	}
	// Пост уже в канале: привязка к заказу или удаление не зависят от отмены запроса.
	rctx := context.WithoutCancel(ctx)
	if order.Placement == models.PlacementPin {
		if err := s.host.Pin(rctx, dest, handle); err != nil {
			s.log.Warn("не удалось закрепить пост", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}

	var duplicate bool
	err = s.store.InTx(rctx, func(tx storage.Tx) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if o.Status != models.StatusPaid {
			duplicate = true
			return nil
		}
		if err := o.Activate(handle, s.now()); err != nil {
			return apperr.Conflict(err)
		}
		if err := save(tx, o, models.StatusPaid); err != nil {
			return err
		}
		return s.settlement.CreateSchedule(tx, o)
	})
	if err != nil || duplicate {
		s.unpublish(rctx, dest, handle, orderID)
		if err != nil {
			return nil, err
		}
		return order, nil
	}

	s.log.Info("пост опубликован", zap.Int64("order_id", order.ID), zap.Int("handle", handle),
		zap.Timep("end_date", order.EndDate))
	s.emit(rctx, events.OrderActivated, order, sellerID)
	s.notify(rctx, order.BuyerID, fmt.Sprintf("Заказ #%d одобрен и опубликован. Размещение до %s.", order.ID, order.EndDate.Format("02.01.2006 15:04")))
	return order, nil
}

// unpublish убирает пост, который не удалось привязать к заказу.
func (s *Service) unpublish(ctx context.Context, dest models.Destination, handle int, orderID int64) {
	if err := s.host.Remove(ctx, dest, handle); err != nil {
		s.log.Error("не удалось удалить лишний пост", zap.Int64("order_id", orderID), zap.Int("handle", handle), zap.Error(err))
	}
}

// Reject отклоняет оплаченный заказ. Владелец ничего не получал, поэтому списаний нет.
func (s *Service) Reject(ctx context.Context, sellerID, orderID int64, reason string) (*models.Order, error) {
	var (
		order   *models.Order
		applied bool
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := ownedBy(o, sellerID, true); err != nil {
			return err
		}
		order = o
		if o.Status == models.StatusCancelled {
			return nil
		}
		if o.Status != models.StatusPaid {
			return apperr.Conflict(&models.TransitionError{From: o.Status, To: models.StatusCancelled})
		}
		applied = true
		return transition(tx, o, models.StatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	if applied {
		s.emit(ctx, events.OrderCancelled, order, sellerID)
		text := fmt.Sprintf("Владелец канала отклонил заказ #%d. Средства будут возвращены.", order.ID)
		if reason = strings.TrimSpace(reason); reason != "" {
			text += "\nПричина: " + reason
		}
		s.notify(ctx, order.BuyerID, text)
	}
	return order, nil
}

// Comment передаёт покупателю замечания владельца. Статус заказа не меняется.
func (s *Service) Comment(ctx context.Context, sellerID, orderID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.Validation("комментарий пуст")
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return apperr.Validation("комментарий длиннее %d символов", maxCommentLen)
	}
	var order *models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := tx.GetOrder(orderID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("заказ", orderID)
		}
		if err != nil {
			return err
		}
		if err := ownedBy(o, sellerID, true); err != nil {
			return err
		}
		if o.Status != models.StatusPaid {
			return apperr.Validation("комментировать можно только заказ на модерации")
		}
		order = o
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, order.BuyerID, fmt.Sprintf("Комментарий владельца к заказу #%d:\n%s", order.ID, text))
	return nil
}
