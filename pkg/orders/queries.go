package orders

import (
	"context"
	"errors"
	"time"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/storage"
)

// Get возвращает заказ покупателю или владельцу канала.
func (s *Service) Get(ctx context.Context, partyID, orderID int64) (*models.Order, error) {
	var order *models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		order, err = visible(tx, partyID, orderID)
		return err
	})
	return order, err
}

func visible(tx storage.Tx, partyID, orderID int64) (*models.Order, error) {
	o, err := tx.GetOrder(orderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("заказ", orderID)
	}
	if err != nil {
		return nil, err
	}
	if o.BuyerID != partyID && o.SellerID != partyID {
		return nil, apperr.NotFound("заказ", orderID)
	}
	return o, nil
}

// List возвращает заказы участника, при необходимости только в указанных статусах.
func (s *Service) List(ctx context.Context, partyID int64, statuses ...models.OrderStatus) ([]models.Order, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, apperr.Validation("неизвестный статус %q", st)
		}
	}
	var list []models.Order
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		list, err = tx.ListOrders(storage.OrderFilter{PartyID: partyID, Statuses: statuses})
		return err
	})
	return list, err
}

// Offers: журнал предложений по цене.
func (s *Service) Offers(ctx context.Context, partyID, orderID int64) ([]models.Offer, error) {
	var list []models.Offer
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := visible(tx, partyID, orderID); err != nil {
			return err
		}
		var err error
		list, err = tx.ListOffers(orderID)
		return err
	})
	return list, err
}

// Payouts: график выплат заказа.
func (s *Service) Payouts(ctx context.Context, partyID, orderID int64) ([]models.DailyPayout, error) {
	if _, err := s.Get(ctx, partyID, orderID); err != nil {
		return nil, err
	}
	return s.settlement.Payouts(ctx, orderID)
}

// LatestPayment: последний счёт по заказу.
func (s *Service) LatestPayment(ctx context.Context, partyID, orderID int64) (*models.Payment, error) {
	var p *models.Payment
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := visible(tx, partyID, orderID); err != nil {
			return err
		}
		var err error
		p, err = tx.LatestPayment(orderID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("счёт заказа", orderID)
		}
		return err
	})
	return p, err
}

// Placement: опубликованный заказ вместе с каналом размещения.
type Placement struct {
	Order models.Order
	Dest  models.Destination
}

// Live возвращает активные опубликованные заказы. С endBefore: только те, чей срок истёк.
func (s *Service) Live(ctx context.Context, endBefore *time.Time) ([]Placement, error) {
	var out []Placement
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		list, err := tx.ListOrders(storage.OrderFilter{
			Statuses:  []models.OrderStatus{models.StatusActive},
			EndBefore: endBefore,
			Published: true,
		})
		if err != nil {
			return err
		}
		slots := make(map[int64]models.Destination)
		for _, o := range list {
			dest, ok := slots[o.SlotID]
			if !ok {
				slot, err := tx.GetSlot(o.SlotID)
				if err != nil {
					return err
				}
				dest = slot.Destination()
				slots[o.SlotID] = dest
			}
			out = append(out, Placement{Order: o, Dest: dest})
		}
		return nil
	})
	return out, err
}
