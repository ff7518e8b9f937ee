package orders

import (
	"context"
	"errors"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/events"
	"tgads_go/pkg/storage"
)

// CreateInput: данные нового заказа.
type CreateInput struct {
	BuyerID      int64            `json:"-"`
	SlotID       int64            `json:"slot_id"`
	Placement    models.Placement `json:"placement"`
	DurationDays int              `json:"duration_days"`
	Content      models.Content   `json:"content"`
}

// Create создаёт заказ по прайсу канала: стоимость = цена за день * число дней.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if err := validDuration(in.DurationDays); err != nil {
		return nil, err
	}
	if !in.Placement.Valid() {
		return nil, apperr.Validation("неизвестный тип размещения %q", in.Placement)
	}
	if err := in.Content.Validate(); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	var order *models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		slot, err := orderableSlot(tx, in.BuyerID, in.SlotID)
		if err != nil {
			return err
		}
		price := slot.PriceFor(in.Placement)
		if err := validPrice(price); err != nil {
			return apperr.Validation("владелец не указал цену для этого размещения")
		}
		order = &models.Order{
			BuyerID:      in.BuyerID,
			SlotID:       slot.ID,
			SellerID:     slot.OwnerID,
			Placement:    in.Placement,
			Content:      in.Content,
			DurationDays: in.DurationDays,
			PricePerDay:  price,
			TotalPrice:   models.TotalFor(price, in.DurationDays),
			Status:       models.StatusPending,
		}
		return tx.CreateOrder(order)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.OrderCreated, order, order.BuyerID)
	return order, nil
}

// orderableSlot проверяет покупателя и канал перед созданием заказа.
func orderableSlot(tx storage.Tx, buyerID, slotID int64) (*models.Slot, error) {
	if _, err := tx.GetParty(buyerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("пользователь", buyerID)
		}
		return nil, err
	}
	slot, err := tx.GetSlot(slotID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("канал", slotID)
	}
	if err != nil {
		return nil, err
	}
	if slot.Status != models.SlotActive {
		return nil, apperr.Validation("канал не принимает заказы")
	}
	if slot.OwnerID == buyerID {
		return nil, apperr.Validation("нельзя заказать рекламу в своём канале")
	}
	return slot, nil
}
