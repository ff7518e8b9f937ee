package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"tgads_go/models"

	"github.com/shopspring/decimal"
)

// Memory: хранилище в памяти процесса. Транзакции сериализуются общим мьютексом
// и работают над копией данных, которая подменяет основную только при успехе.
// Используется в тестах и при STORAGE=memory.
type Memory struct {
	mu   sync.Mutex
	data *memData
	Now  func() time.Time
}

type memData struct {
	seq         int64
	parties     map[int64]models.Party
	slots       map[int64]models.Slot
	orders      map[int64]models.Order
	offers      []models.Offer
	payments    map[int64]models.Payment
	payouts     map[int64]models.DailyPayout
	withdrawals map[int64]models.WithdrawalRequest
	reviews     map[int64]models.Review
	disputes    map[int64]models.Dispute
}

func NewMemory() *Memory {
	return &Memory{
		data: &memData{
			parties:     map[int64]models.Party{},
			slots:       map[int64]models.Slot{},
			orders:      map[int64]models.Order{},
			payments:    map[int64]models.Payment{},
			payouts:     map[int64]models.DailyPayout{},
			withdrawals: map[int64]models.WithdrawalRequest{},
			reviews:     map[int64]models.Review{},
			disputes:    map[int64]models.Dispute{},
		},
		Now: time.Now,
	}
}

func (m *Memory) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.clone()
	if err := fn(&memTx{d: work, now: m.Now}); err != nil {
		return err
	}
	m.data = work
	return nil
}

func (m *Memory) Close() error { return nil }

func (d *memData) clone() *memData {
	c := &memData{
		seq:         d.seq,
		parties:     make(map[int64]models.Party, len(d.parties)),
		slots:       make(map[int64]models.Slot, len(d.slots)),
		orders:      make(map[int64]models.Order, len(d.orders)),
		offers:      append([]models.Offer(nil), d.offers...),
		payments:    make(map[int64]models.Payment, len(d.payments)),
		payouts:     make(map[int64]models.DailyPayout, len(d.payouts)),
		withdrawals: make(map[int64]models.WithdrawalRequest, len(d.withdrawals)),
		reviews:     make(map[int64]models.Review, len(d.reviews)),
		disputes:    make(map[int64]models.Dispute, len(d.disputes)),
	}
	for k, v := range d.parties {
		c.parties[k] = v
	}
	for k, v := range d.slots {
		c.slots[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.payouts {
		c.payouts[k] = v
	}
	for k, v := range d.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range d.reviews {
		c.reviews[k] = v
	}
	for k, v := range d.disputes {
		c.disputes[k] = v
	}
	return c
}

type memTx struct {
	d   *memData
	now func() time.Time
}

func (t *memTx) nextID() int64 {
	t.d.seq++
	return t.d.seq
}

func (t *memTx) UpsertParty(p *models.Party) error {
	cur, ok := t.d.parties[p.ID]
	if !ok {
		cur = models.Party{ID: p.ID, CreatedAt: t.now()}
	}
	cur.Username = p.Username
	cur.FirstName = p.FirstName
	if p.AccessHash != 0 {
		cur.AccessHash = p.AccessHash
	}
	t.d.parties[p.ID] = cur
	*p = cur
	return nil
}

func (t *memTx) GetParty(id int64) (*models.Party, error) {
	p, ok := t.d.parties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) LockParty(id int64) (*models.Party, error) { return t.GetParty(id) }

func (t *memTx) AdjustParty(id int64, adj models.BalanceAdjustment) error {
	p, ok := t.d.parties[id]
	if !ok {
		return ErrNotFound
	}
	p.Balance = p.Balance.Add(adj.Balance)
	p.TotalEarned = p.TotalEarned.Add(adj.TotalEarned)
	p.TotalWithdrawn = p.TotalWithdrawn.Add(adj.TotalWithdrawn)
	t.d.parties[id] = p
	return nil
}

func (t *memTx) SumPendingWithdrawals(partyID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, w := range t.d.withdrawals {
		if w.PartyID == partyID && (w.Status == models.WithdrawalPending || w.Status == models.WithdrawalProcessing) {
			sum = sum.Add(w.AmountUSD)
		}
	}
	return sum, nil
}

func (t *memTx) CreateSlot(s *models.Slot) error {
	for _, cur := range t.d.slots {
		if cur.ChannelID == s.ChannelID {
			return ErrDuplicate
		}
	}
	s.ID = t.nextID()
	s.CreatedAt = t.now()
	t.d.slots[s.ID] = *s
	return nil
}

func (t *memTx) GetSlot(id int64) (*models.Slot, error) {
	s, ok := t.d.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (t *memTx) GetSlotByChannel(channelID int64) (*models.Slot, error) {
	for _, s := range t.d.slots {
		if s.ChannelID == channelID {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ListSlots(f SlotFilter) ([]models.Slot, error) {
	var list []models.Slot
	for _, s := range t.d.slots {
		if f.OwnerID != 0 && s.OwnerID != f.OwnerID {
			continue
		}
		if f.OnlyListed && (s.Status != models.SlotActive || s.Stats.IsSuspicious) {
			continue
		}
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (t *memTx) updateSlot(id int64, fn func(s *models.Slot)) error {
	s, ok := t.d.slots[id]
	if !ok {
		return ErrNotFound
	}
	fn(&s)
	t.d.slots[id] = s
	return nil
}

func (t *memTx) UpdateSlotPrices(id int64, standard, pinned decimal.Decimal) error {
	return t.updateSlot(id, func(s *models.Slot) {
		s.PriceStandard = standard
		s.PricePinned = pinned
	})
}

func (t *memTx) UpdateSlotStats(id int64, stats models.SlotStats) error {
	return t.updateSlot(id, func(s *models.Slot) { s.Stats = stats })
}

func (t *memTx) RecordSlotViolation(id int64, penalty decimal.Decimal) error {
	return t.updateSlot(id, func(s *models.Slot) {
		s.ViolationCount++
		s.TotalPenaltyAmount = s.TotalPenaltyAmount.Add(penalty)
	})
}

func (t *memTx) RecordSlotReview(id int64, rating int) error {
	return t.updateSlot(id, func(s *models.Slot) {
		s.AverageRating = (s.AverageRating*float64(s.TotalReviews) + float64(rating)) / float64(s.TotalReviews+1)
		s.TotalReviews++
		s.CompletedOrders++
	})
}

func (t *memTx) CreateOrder(o *models.Order) error {
	o.ID = t.nextID()
	o.CreatedAt = t.now()
	o.UpdatedAt = o.CreatedAt
	t.d.orders[o.ID] = *o
	return nil
}

func (t *memTx) GetOrder(id int64) (*models.Order, error) {
	o, ok := t.d.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (t *memTx) LockOrder(id int64) (*models.Order, error) { return t.GetOrder(id) }

func (t *memTx) UpdateOrder(o *models.Order, from models.OrderStatus) error {
	cur, ok := t.d.orders[o.ID]
	if !ok || cur.Status != from {
		return ErrConflict
	}
	o.UpdatedAt = t.now()
	o.CreatedAt = cur.CreatedAt
	t.d.orders[o.ID] = *o
	return nil
}

// DeleteOrder удаляет заказ и всё, что на него ссылается.
func (t *memTx) DeleteOrder(id int64) error {
	if _, ok := t.d.orders[id]; !ok {
		return ErrNotFound
	}
	delete(t.d.orders, id)
	for k, p := range t.d.payouts {
		if p.OrderID == id {
			delete(t.d.payouts, k)
		}
	}
	for k, p := range t.d.payments {
		if p.OrderID == id {
			delete(t.d.payments, k)
		}
	}
	for k, r := range t.d.reviews {
		if r.OrderID == id {
			delete(t.d.reviews, k)
		}
	}
	for k, d := range t.d.disputes {
		if d.OrderID == id {
			delete(t.d.disputes, k)
		}
	}
	offers := t.d.offers[:0]
	for _, o := range t.d.offers {
		if o.OrderID != id {
			offers = append(offers, o)
		}
	}
	t.d.offers = offers
	return nil
}

func (t *memTx) ListOrders(f OrderFilter) ([]models.Order, error) {
	var list []models.Order
	for _, o := range t.d.orders {
		if f.PartyID != 0 && o.BuyerID != f.PartyID && o.SellerID != f.PartyID {
			continue
		}
		if f.SlotID != 0 && o.SlotID != f.SlotID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, o.Status) {
			continue
		}
		if f.EndBefore != nil && (o.EndDate == nil || o.EndDate.After(*f.EndBefore)) {
			continue
		}
		if f.Published && o.ContentHandle == nil {
			continue
		}
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func hasStatus(list []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (t *memTx) AddOffer(o *models.Offer) error {
	o.ID = t.nextID()
	o.CreatedAt = t.now()
	t.d.offers = append(t.d.offers, *o)
	return nil
}

func (t *memTx) ListOffers(orderID int64) ([]models.Offer, error) {
	var list []models.Offer
	for _, o := range t.d.offers {
		if o.OrderID == orderID {
			list = append(list, o)
		}
	}
	return list, nil
}

func (t *memTx) CreatePayment(p *models.Payment) error {
	p.ID = t.nextID()
	p.CreatedAt = t.now()
	t.d.payments[p.ID] = *p
	return nil
}

func (t *memTx) LatestPayment(orderID int64) (*models.Payment, error) {
	var latest *models.Payment
	for _, p := range t.d.payments {
		if p.OrderID == orderID && (latest == nil || p.ID > latest.ID) {
			p := p
			latest = &p
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (t *memTx) ListActivePayments() ([]models.Payment, error) {
	var list []models.Payment
	for _, p := range t.d.payments {
		if p.Status == models.PaymentActive {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (t *memTx) SetPaymentStatus(id int64, from, to models.PaymentStatus, at time.Time) error {
	p, ok := t.d.payments[id]
	if !ok || p.Status != from {
		return ErrConflict
	}
	p.Status = to
	if to == models.PaymentPaid {
		p.PaidAt = &at
	}
	t.d.payments[id] = p
	return nil
}

func (t *memTx) CreatePayouts(payouts []models.DailyPayout) error {
	for _, cur := range t.d.payouts {
		for _, p := range payouts {
			if cur.OrderID == p.OrderID && cur.DayIndex == p.DayIndex {
				return ErrDuplicate
			}
		}
	}
	for i := range payouts {
		payouts[i].ID = t.nextID()
		t.d.payouts[payouts[i].ID] = payouts[i]
	}
	return nil
}

func (t *memTx) CountPayouts(orderID int64) (int, error) {
	n := 0
	for _, p := range t.d.payouts {
		if p.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ListPayouts(orderID int64) ([]models.DailyPayout, error) {
	var list []models.DailyPayout
	for _, p := range t.d.payouts {
		if p.OrderID == orderID {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DayIndex < list[j].DayIndex })
	return list, nil
}

func (t *memTx) ListDuePayouts(now time.Time, orderID int64) ([]models.DailyPayout, error) {
	var list []models.DailyPayout
	for _, p := range t.d.payouts {
		if p.Status != models.PayoutPending || p.ScheduledAt.After(now) {
			continue
		}
		if orderID != 0 && p.OrderID != orderID {
			continue
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].ScheduledAt.Equal(list[j].ScheduledAt) {
			return list[i].ScheduledAt.Before(list[j].ScheduledAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (t *memTx) SetPayoutStatus(id int64, from, to models.PayoutStatus, at time.Time) error {
	p, ok := t.d.payouts[id]
	if !ok || p.Status != from {
		return ErrConflict
	}
	p.Status = to
	if to == models.PayoutPaid {
		p.PaidAt = &at
	}
	t.d.payouts[id] = p
	return nil
}

func (t *memTx) CancelPendingPayouts(orderID int64) (int, error) {
	n := 0
	for k, p := range t.d.payouts {
		if p.OrderID == orderID && p.Status == models.PayoutPending {
			p.Status = models.PayoutCancelled
			t.d.payouts[k] = p
			n++
		}
	}
	return n, nil
}

func (t *memTx) SumPayouts(orderID int64, status models.PayoutStatus) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range t.d.payouts {
		if p.OrderID == orderID && p.Status == status {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (t *memTx) CreateWithdrawal(w *models.WithdrawalRequest) error {
	w.ID = t.nextID()
	w.CreatedAt = t.now()
	t.d.withdrawals[w.ID] = *w
	return nil
}

func (t *memTx) UpdateWithdrawal(w *models.WithdrawalRequest, from models.WithdrawalStatus) error {
	cur, ok := t.d.withdrawals[w.ID]
	if !ok || cur.Status != from {
		return ErrConflict
	}
	t.d.withdrawals[w.ID] = *w
	return nil
}

func (t *memTx) ListWithdrawals(partyID int64) ([]models.WithdrawalRequest, error) {
	var list []models.WithdrawalRequest
	for _, w := range t.d.withdrawals {
		if w.PartyID == partyID {
			list = append(list, w)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (t *memTx) CreateReview(r *models.Review) error {
	for _, cur := range t.d.reviews {
		if cur.OrderID == r.OrderID {
			return ErrDuplicate
		}
	}
	r.ID = t.nextID()
	r.CreatedAt = t.now()
	t.d.reviews[r.ID] = *r
	return nil
}

func (t *memTx) GetReviewByOrder(orderID int64) (*models.Review, error) {
	for _, r := range t.d.reviews {
		if r.OrderID == orderID {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateDispute(d *models.Dispute) error {
	d.ID = t.nextID()
	d.CreatedAt = t.now()
	t.d.disputes[d.ID] = *d
	return nil
}

func (t *memTx) GetDispute(id int64) (*models.Dispute, error) {
	d, ok := t.d.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (t *memTx) UpdateDispute(d *models.Dispute) error {
	if _, ok := t.d.disputes[d.ID]; !ok {
		return ErrNotFound
	}
	t.d.disputes[d.ID] = *d
	return nil
}

func (t *memTx) OwnerStats(ownerID int64) (*models.OwnerStats, error) {
	st := models.OwnerStats{OwnerID: ownerID, Earned: decimal.Zero, Penalties: decimal.Zero}
	for _, s := range t.d.slots {
		if s.OwnerID != ownerID {
			continue
		}
		st.Slots++
		st.Violations += s.ViolationCount
		st.Penalties = st.Penalties.Add(s.TotalPenaltyAmount)
	}
	for _, o := range t.d.orders {
		if o.SellerID != ownerID {
			continue
		}
		switch o.Status {
		case models.StatusActive:
			st.ActiveOrders++
		case models.StatusCompleted:
			st.CompletedOrders++
		}
	}
	for _, p := range t.d.payouts {
		o, ok := t.d.orders[p.OrderID]
		if ok && o.SellerID == ownerID && p.Status == models.PayoutPaid {
			st.Earned = st.Earned.Add(p.Amount)
		}
	}
	st.Net = st.Earned.Sub(st.Penalties)
	return &st, nil
}
