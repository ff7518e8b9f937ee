package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/events"
	"tgads_go/pkg/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Completion: итог завершения размещения.
type Completion struct {
	Order    *models.Order
	Credited decimal.Decimal // начислено владельцу при завершении
	Applied  bool
}

// Complete завершает активный заказ. Созревшие выплаты начисляются в той же транзакции,
// чтобы отставший обход выплат не отменил уже заработанные дни.
func (s *Service) Complete(ctx context.Context, orderID int64) (*Completion, error) {
	res := &Completion{Credited: decimal.Zero}
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		res.Order = o
		if o.Status == models.StatusCompleted {
			return nil
		}
		if err := models.CheckTransition(o.Status, models.StatusCompleted); err != nil {
			return apperr.Conflict(err)
		}
		credited, err := s.settlement.SettleDue(tx, o, s.now())
		if err != nil {
			return err
		}
		res.Credited = credited
		res.Applied = true
		return transition(tx, o, models.StatusCompleted)
	})
	if err != nil {
		return nil, err
	}
	if res.Applied {
		s.log.Info("размещение завершено", zap.Int64("order_id", orderID), zap.String("credited", res.Credited.String()))
		s.emit(ctx, events.OrderCompleted, res.Order, res.Order.SellerID)
	}
	return res, nil
}

// DisputeInput: данные спора.
type DisputeInput struct {
	Reason   string          `json:"reason"`
	Evidence json.RawMessage `json:"evidence,omitempty"`
}

// Dispute переводит активный или завершённый заказ в спор. Открыть спор может покупатель или владелец.
func (s *Service) Dispute(ctx context.Context, partyID, orderID int64, in DisputeInput) (*models.Dispute, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, apperr.Validation("укажите причину спора")
	}
	if len(in.Evidence) > 0 && !json.Valid(in.Evidence) {
		return nil, apperr.Validation("доказательства должны быть корректным JSON")
	}
	var (
		order   *models.Order
		dispute *models.Dispute
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.BuyerID != partyID && o.SellerID != partyID {
			return apperr.NotFound("заказ", orderID)
		}
		if err := transition(tx, o, models.StatusDisputed); err != nil {
			return err
		}
		order = o
		dispute = &models.Dispute{
			OrderID:  o.ID,
			OpenedBy: partyID,
			Reason:   reason,
			Evidence: in.Evidence,
			Status:   models.DisputeOpen,
		}
		return tx.CreateDispute(dispute)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.OrderDisputed, order, partyID)
	other := order.SellerID
	if partyID == order.SellerID {
		other = order.BuyerID
	}
	s.notify(ctx, other, fmt.Sprintf("По заказу #%d открыт спор: %s", order.ID, reason))
	return dispute, nil
}

// ResolveInput: решение администратора по спору.
type ResolveInput struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes"`
}

// ResolveDispute фиксирует решение по спору. Балансы не меняются.
func (s *Service) ResolveDispute(ctx context.Context, adminID, disputeID int64, in ResolveInput) (*models.Dispute, error) {
	if !s.cfg.AdminIDs[adminID] {
		return nil, apperr.Forbidden("разбирать споры может только администратор")
	}
	if !models.ValidResolution(in.Resolution) {
		return nil, apperr.Validation("неизвестное решение %q", in.Resolution)
	}
	var (
		dispute *models.Dispute
		order   *models.Order
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		d, err := tx.GetDispute(disputeID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("спор", disputeID)
		}
		if err != nil {
			return err
		}
		if d.Status == models.DisputeResolved {
			return apperr.Conflict(fmt.Errorf("спор %d уже разрешён", d.ID))
		}
		now := s.now()
		d.Status = models.DisputeResolved
		d.Resolution = in.Resolution
		d.AdminNotes = strings.TrimSpace(in.Notes)
		d.ResolvedBy = &adminID
		d.ResolvedAt = &now
		if err := tx.UpdateDispute(d); err != nil {
			return err
		}
		dispute = d
		order, err = tx.GetOrder(d.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Спор по заказу #%d разрешён: %s", order.ID, dispute.Resolution)
	s.notify(ctx, order.BuyerID, text)
	s.notify(ctx, order.SellerID, text)
	return dispute, nil
}

// Rate сохраняет оценку покупателя после завершения заказа. Одна оценка на заказ.
func (s *Service) Rate(ctx context.Context, buyerID, orderID int64, rating int) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("оценка должна быть от 1 до 5")
	}
	var (
		review *models.Review
		order  *models.Order
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := tx.GetOrder(orderID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("заказ", orderID)
		}
		if err != nil {
			return err
		}
		if err := ownedBy(o, buyerID, false); err != nil {
			return err
		}
		if o.Status != models.StatusCompleted {
			return apperr.Validation("оценить можно только завершённый заказ")
		}
		order = o
		review = &models.Review{OrderID: o.ID, SlotID: o.SlotID, AuthorID: buyerID, Rating: rating}
		if err := tx.CreateReview(review); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apperr.Conflict(fmt.Errorf("заказ %d уже оценён", o.ID))
			}
			return err
		}
		return tx.RecordSlotReview(o.SlotID, rating)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, order.SellerID, fmt.Sprintf("Покупатель оценил размещение по заказу #%d: %d/5", order.ID, rating))
	return review, nil
}
