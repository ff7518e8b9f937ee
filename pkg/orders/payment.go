package orders

import (
	"context"
	"errors"
	"fmt"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/cryptopay"
	"tgads_go/pkg/events"
	"tgads_go/pkg/storage"

	"go.uber.org/zap"
)

// Pay выставляет счёт на сумму заказа с комиссией площадки.
// Если активный счёт уже есть, возвращается он.
func (s *Service) Pay(ctx context.Context, buyerID, orderID int64) (*models.Payment, error) {
	var (
		order  *models.Order
		active *models.Payment
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := payable(tx, buyerID, orderID)
		if err != nil {
			return err
		}
		order = o
		p, err := tx.LatestPayment(o.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if p != nil && p.Status == models.PaymentActive {
			active = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}

	amount := models.WithCommission(order.TotalPrice, s.cfg.CommissionRate)
	inv, err := s.gateway.CreateInvoice(ctx, amount, s.cfg.Currency,
		fmt.Sprintf("Реклама, заказ #%d", order.ID), fmt.Sprintf("order:%d", order.ID), s.cfg.InvoiceTTL)
	if err != nil {
		return nil, apperr.External("платёжный сервис", err)
	}

	payment := &models.Payment{
		OrderID:              order.ID,
		BuyerID:              order.BuyerID,
		Amount:               order.TotalPrice,
		AmountWithCommission: amount,
		Currency:             s.cfg.Currency,
		InvoiceID:            inv.ID,
		PayURL:               inv.PayURL,
		Status:               models.PaymentActive,
	}
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := payable(tx, buyerID, orderID); err != nil {
			return err
		}
		return tx.CreatePayment(payment)
	})
	if err != nil {
		s.dropInvoice(ctx, order.ID, inv.ID, err)
		return nil, err
	}
	s.log.Info("счёт выставлен", zap.Int64("order_id", order.ID), zap.Int64("invoice_id", inv.ID), zap.String("amount", amount.String()))
	return payment, nil
}

// dropInvoice удаляет счёт, который не удалось привязать к заказу.
func (s *Service) dropInvoice(ctx context.Context, orderID, invoiceID int64, cause error) {
	s.log.Warn("счёт не привязан к заказу", zap.Int64("order_id", orderID), zap.Int64("invoice_id", invoiceID), zap.Error(cause))
	if err := s.gateway.DeleteInvoice(context.WithoutCancel(ctx), invoiceID); err != nil {
		s.log.Error("не удалось удалить счёт", zap.Int64("order_id", orderID), zap.Int64("invoice_id", invoiceID), zap.Error(err))
	}
}

func payable(tx storage.Tx, buyerID, orderID int64) (*models.Order, error) {
	o, err := lockOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(o, buyerID, false); err != nil {
		return nil, err
	}
	if o.Status != models.StatusPending {
		return nil, apperr.Conflict(&models.TransitionError{From: o.Status, To: models.StatusPaid})
	}
	return o, nil
}

// ConfirmPayment сверяет последний счёт заказа с платёжным сервисом.
// Повторное подтверждение оплаченного заказа ничего не меняет и не шлёт уведомлений.
func (s *Service) ConfirmPayment(ctx context.Context, orderID int64) (*models.Order, error) {
	var (
		order   *models.Order
		payment *models.Payment
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := tx.GetOrder(orderID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("заказ", orderID)
		}
		if err != nil {
			return err
		}
		order = o
		p, err := tx.LatestPayment(orderID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("счёт заказа", orderID)
		}
		payment = p
		return err
	})
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentActive {
		return order, nil
	}

	status, err := s.gateway.InvoiceStatus(ctx, payment.InvoiceID)
	if err != nil {
		return nil, apperr.External("платёжный сервис", err)
	}

	switch status {
	case cryptopay.InvoicePaid:
		return s.markPaid(ctx, payment)
	case cryptopay.InvoiceExpired:
		err := s.store.InTx(ctx, func(tx storage.Tx) error {
			err := tx.SetPaymentStatus(payment.ID, models.PaymentActive, models.PaymentExpired, s.now())
			if errors.Is(err, storage.ErrConflict) {
				return nil
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		s.log.Info("счёт просрочен", zap.Int64("order_id", orderID), zap.Int64("invoice_id", payment.InvoiceID))
	}
	return order, nil
}

func (s *Service) markPaid(ctx context.Context, payment *models.Payment) (*models.Order, error) {
	var (
		order   *models.Order
		applied bool
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := lockOrder(tx, payment.OrderID)
		if err != nil {
			return err
		}
		order = o
		err = tx.SetPaymentStatus(payment.ID, models.PaymentActive, models.PaymentPaid, s.now())
		if errors.Is(err, storage.ErrConflict) {
			return nil
		}
		if err != nil {
			return err
		}
		if o.Status != models.StatusPending {
			s.log.Warn("оплата пришла для заказа не в статусе pending",
				zap.Int64("order_id", o.ID), zap.String("status", string(o.Status)))
			return nil
		}
		applied = true
		return transition(tx, o, models.StatusPaid)
	})
	if err != nil {
		return nil, err
	}
	if applied {
		s.log.Info("заказ оплачен", zap.Int64("order_id", order.ID))
		events.Emit(ctx, s.events, s.log, events.New(events.OrderPaid, order.ID, order.BuyerID).WithAmount(payment.AmountWithCommission))
		s.notify(ctx, order.BuyerID, fmt.Sprintf("Оплата заказа #%d получена. Пост отправлен владельцу канала на модерацию.", order.ID))
		s.notify(ctx, order.SellerID, fmt.Sprintf("Новый оплаченный заказ #%d на %d дн. Одобрите, отклоните или прокомментируйте пост.", order.ID, order.DurationDays))
	}
	return order, nil
}

// PollPayments подтверждает все активные счета. Ошибка по одному счёту не прерывает обход.
func (s *Service) PollPayments(ctx context.Context) (int, error) {
	var active []models.Payment
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		active, err = tx.ListActivePayments()
		return err
	})
	if err != nil {
		return 0, err
	}
	paid := 0
	for _, p := range active {
		if ctx.Err() != nil {
			return paid, ctx.Err()
		}
		o, err := s.ConfirmPayment(ctx, p.OrderID)
		if err != nil {
			s.log.Warn("проверка счёта не удалась", zap.Int64("order_id", p.OrderID), zap.Int64("invoice_id", p.InvoiceID), zap.Error(err))
			continue
		}
		if o.Status == models.StatusPaid {
			paid++
		}
	}
	return paid, nil
}
