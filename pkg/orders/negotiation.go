package orders

import (
	"context"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/events"
	"tgads_go/pkg/storage"

	"github.com/shopspring/decimal"
)

// ProposeInput: предложение своей цены за день.
type ProposeInput struct {
	BuyerID      int64            `json:"-"`
	SlotID       int64            `json:"slot_id"`
	Placement    models.Placement `json:"placement"`
	DurationDays int              `json:"duration_days"`
	Price        decimal.Decimal  `json:"price"`
}

// Propose открывает торг: создаётся черновик заказа в статусе negotiating с ценой покупателя.
func (s *Service) Propose(ctx context.Context, in ProposeInput) (*models.Order, error) {
	if err := validDuration(in.DurationDays); err != nil {
		return nil, err
	}
	if !in.Placement.Valid() {
		return nil, apperr.Validation("неизвестный тип размещения %q", in.Placement)
	}
	if err := validPrice(in.Price); err != nil {
		return nil, err
	}
	price := in.Price.Round(2)

	var order *models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		slot, err := orderableSlot(tx, in.BuyerID, in.SlotID)
		if err != nil {
			return err
		}
		order = &models.Order{
			BuyerID:      in.BuyerID,
			SlotID:       slot.ID,
			SellerID:     slot.OwnerID,
			Placement:    in.Placement,
			DurationDays: in.DurationDays,
			PricePerDay:  price,
			TotalPrice:   models.TotalFor(price, in.DurationDays),
			BuyerPrice:   &price,
			Status:       models.StatusNegotiating,
		}
		if err := tx.CreateOrder(order); err != nil {
			return err
		}
		return tx.AddOffer(&models.Offer{OrderID: order.ID, Author: models.OfferByBuyer, Price: price})
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.OrderNegotiating, order, order.BuyerID)
	s.notify(ctx, order.SellerID, "Покупатель предлагает цену "+price.StringFixed(2)+" $/день за размещение. Примите, отклоните или предложите свою цену.")
	return order, nil
}

// Repropose заменяет цену покупателя новой.
func (s *Service) Repropose(ctx context.Context, buyerID, orderID int64, price decimal.Decimal) (*models.Order, error) {
	o, err := s.offer(ctx, buyerID, orderID, models.OfferByBuyer, price)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.SellerID, "Покупатель изменил предложение: "+price.StringFixed(2)+" $/день.")
	return o, nil
}

// Counter: встречная цена владельца. Каждое новое предложение перезаписывает предыдущее.
func (s *Service) Counter(ctx context.Context, sellerID, orderID int64, price decimal.Decimal) (*models.Order, error) {
	o, err := s.offer(ctx, sellerID, orderID, models.OfferBySeller, price)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.BuyerID, "Владелец канала предлагает цену "+price.StringFixed(2)+" $/день.")
	return o, nil
}

func (s *Service) offer(ctx context.Context, partyID, orderID int64, author models.OfferAuthor, price decimal.Decimal) (*models.Order, error) {
	if err := validPrice(price); err != nil {
		return nil, err
	}
	price = price.Round(2)
	var order *models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := lockDraft(tx, partyID, orderID, author == models.OfferBySeller)
		if err != nil {
			return err
		}
		if author == models.OfferBySeller {
			o.SellerPrice = &price
		} else {
			o.BuyerPrice = &price
		}
		o.AgreedPrice = nil
		o.PricePerDay = price
		o.TotalPrice = models.TotalFor(price, o.DurationDays)
		if err := transition(tx, o, models.StatusNegotiating); err != nil {
			return err
		}
		order = o
		return tx.AddOffer(&models.Offer{OrderID: o.ID, Author: author, Price: price})
	})
	return order, err
}

// AcceptOffer: владелец принимает цену покупателя.
func (s *Service) AcceptOffer(ctx context.Context, sellerID, orderID int64) (*models.Order, error) {
	o, err := s.agree(ctx, sellerID, orderID, true)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.BuyerID, "Владелец принял вашу цену "+o.AgreedPrice.StringFixed(2)+" $/день. Подготовьте пост и оплатите заказ.")
	return o, nil
}

// AcceptCounter: покупатель принимает встречную цену владельца.
func (s *Service) AcceptCounter(ctx context.Context, buyerID, orderID int64) (*models.Order, error) {
	o, err := s.agree(ctx, buyerID, orderID, false)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.SellerID, "Покупатель принял цену "+o.AgreedPrice.StringFixed(2)+" $/день.")
	return o, nil
}

func (s *Service) agree(ctx context.Context, partyID, orderID int64, asSeller bool) (*models.Order, error) {
	var order *models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := lockDraft(tx, partyID, orderID, asSeller)
		if err != nil {
			return err
		}
		// продавец принимает цену покупателя, покупатель: встречную цену продавца
		price := o.BuyerPrice
		if !asSeller {
			price = o.SellerPrice
		}
		if price == nil {
			return apperr.Validation("нет предложения, которое можно принять")
		}
		agreed := *price
		o.AgreedPrice = &agreed
		o.PricePerDay = agreed
		o.TotalPrice = models.TotalFor(agreed, o.DurationDays)
		order = o
		return transition(tx, o, models.StatusNegotiating)
	})
	return order, err
}

// RejectOffer: владелец отказывает, заказ отменяется. Деньги ещё не списывались.
func (s *Service) RejectOffer(ctx context.Context, sellerID, orderID int64) (*models.Order, error) {
	o, err := s.cancelDraft(ctx, sellerID, orderID, true)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.BuyerID, "Владелец канала отклонил ваше предложение по цене.")
	return o, nil
}

// WithdrawOffer: покупатель отказывается от торга.
func (s *Service) WithdrawOffer(ctx context.Context, buyerID, orderID int64) (*models.Order, error) {
	o, err := s.cancelDraft(ctx, buyerID, orderID, false)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.SellerID, "Покупатель отозвал предложение по цене.")
	return o, nil
}

func (s *Service) cancelDraft(ctx context.Context, partyID, orderID int64, asSeller bool) (*models.Order, error) {
	var order *models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := lockDraft(tx, partyID, orderID, asSeller)
		if err != nil {
			return err
		}
		order = o
		return transition(tx, o, models.StatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.OrderCancelled, order, partyID)
	return order, nil
}

// FinalizeInput: пост и срок для заказа по согласованной цене.
type FinalizeInput struct {
	DurationDays int            `json:"duration_days"`
	Content      models.Content `json:"content"`
}

// Finalize заменяет черновик торга новым заказом pending по согласованной цене.
// Черновик удаляется, журнал предложений переносится на новый заказ.
func (s *Service) Finalize(ctx context.Context, buyerID, draftID int64, in FinalizeInput) (*models.Order, error) {
	if err := validDuration(in.DurationDays); err != nil {
		return nil, err
	}
	if err := in.Content.Validate(); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	var order *models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		draft, err := lockDraft(tx, buyerID, draftID, false)
		if err != nil {
			return err
		}
		if draft.AgreedPrice == nil {
			return apperr.Validation("цена ещё не согласована")
		}
		offers, err := tx.ListOffers(draft.ID)
		if err != nil {
			return err
		}
		if err := tx.DeleteOrder(draft.ID); err != nil {
			return err
		}
		agreed := *draft.AgreedPrice
		order = &models.Order{
			BuyerID:      draft.BuyerID,
			SlotID:       draft.SlotID,
			SellerID:     draft.SellerID,
			Placement:    draft.Placement,
			Content:      in.Content,
			DurationDays: in.DurationDays,
			PricePerDay:  agreed,
			TotalPrice:   models.TotalFor(agreed, in.DurationDays),
			BuyerPrice:   draft.BuyerPrice,
			SellerPrice:  draft.SellerPrice,
			AgreedPrice:  &agreed,
			Status:       models.StatusPending,
		}
		if err := tx.CreateOrder(order); err != nil {
			return err
		}
		for _, of := range offers {
			of.OrderID = order.ID
			if err := tx.AddOffer(&of); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.OrderCreated, order, buyerID)
	return order, nil
}

// lockDraft блокирует черновик торга, проверяя участника и статус.
func lockDraft(tx storage.Tx, partyID, orderID int64, asSeller bool) (*models.Order, error) {
	o, err := lockOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(o, partyID, asSeller); err != nil {
		return nil, err
	}
	if o.Status != models.StatusNegotiating {
		return nil, apperr.Conflict(&models.TransitionError{From: o.Status, To: models.StatusNegotiating})
	}
	return o, nil
}
