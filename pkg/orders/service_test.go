package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tgads_go/models"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/cryptopay"
	"tgads_go/pkg/events"
	"tgads_go/pkg/notify"
	"tgads_go/pkg/settlement"
	"tgads_go/pkg/storage"
)

const (
	sellerID = int64(100)
	buyerID  = int64(200)
	adminID  = int64(1)
)

type fakeGateway struct {
	mu       sync.Mutex
	next     int64
	amounts  map[int64]decimal.Decimal
	statuses map[int64]cryptopay.InvoiceStatus
	deleted  []int64
	err      error
	onCreate func()
}

func (g *fakeGateway) CreateInvoice(_ context.Context, amount decimal.Decimal, asset, _, _ string, _ time.Duration) (*cryptopay.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.next++
	g.amounts[g.next] = amount
	g.statuses[g.next] = cryptopay.InvoiceActive
	if g.onCreate != nil {
		g.onCreate()
	}
	return &cryptopay.Invoice{ID: g.next, Status: cryptopay.InvoiceActive, Asset: asset, Amount: amount, PayURL: "https://t.me/CryptoBot?start=inv"}, nil
}

func (g *fakeGateway) InvoiceStatus(_ context.Context, id int64) (cryptopay.InvoiceStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statuses[id], nil
}

func (g *fakeGateway) DeleteInvoice(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, id)
	return nil
}

func (g *fakeGateway) set(id int64, st cryptopay.InvoiceStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[id] = st
}

type fakeHost struct {
	mu        sync.Mutex
	next      int
	published []int
	pinned    []int
	removed   []int
	err       error
	onPublish func()
}

func (h *fakeHost) Publish(_ context.Context, _ models.Destination, _ models.Content) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return 0, h.err
	}
	h.next++
	h.published = append(h.published, h.next)
	if h.onPublish != nil {
		h.onPublish()
	}
	return h.next, nil
}

func (h *fakeHost) Pin(ctx context.Context, _ models.Destination, handle int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	h.pinned = append(h.pinned, handle)
	return nil
}

func (h *fakeHost) Remove(ctx context.Context, _ models.Destination, handle int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	h.removed = append(h.removed, handle)
	return nil
}

type fixture struct {
	store   *storage.Memory
	engine  *settlement.Engine
	svc     *Service
	gateway *fakeGateway
	host    *fakeHost
	notes   *notify.Recorder
	events  *events.Recorder
	slotID  int64
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   storage.NewMemory(),
		gateway: &fakeGateway{amounts: map[int64]decimal.Decimal{}, statuses: map[int64]cryptopay.InvoiceStatus{}},
		host:    &fakeHost{next: 500},
		notes:   &notify.Recorder{},
		events:  &events.Recorder{},
		clock:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.engine = settlement.NewEngine(f.store, settlement.Config{
		PenaltyRate: decimal.RequireFromString("0.5"),
		PayoutHour:  12,
		Location:    time.UTC,
	}, f.events, zap.NewNop())
	f.svc = NewService(Deps{
		Store:      f.store,
		Settlement: f.engine,
		Gateway:    f.gateway,
		Host:       f.host,
		Notifier:   f.notes,
		Events:     f.events,
		Log:        zap.NewNop(),
		Now:        func() time.Time { return f.clock },
	}, Config{
		CommissionRate: decimal.RequireFromString("0.03"),
		AdminIDs:       map[int64]bool{adminID: true},
	})

	require.NoError(t, f.store.InTx(context.Background(), func(tx storage.Tx) error {
		require.NoError(t, tx.UpsertParty(&models.Party{ID: sellerID, Username: "owner"}))
		require.NoError(t, tx.UpsertParty(&models.Party{ID: buyerID, Username: "buyer"}))
		slot := &models.Slot{
			ChannelID:     777,
			OwnerID:       sellerID,
			Title:         "Новости",
			PriceStandard: decimal.NewFromInt(10),
			PricePinned:   decimal.NewFromInt(25),
			Status:        models.SlotActive,
		}
		require.NoError(t, tx.CreateSlot(slot))
		f.slotID = slot.ID
		return nil
	}))
	return f
}

func (f *fixture) party(t *testing.T, id int64) *models.Party {
	t.Helper()
	var p *models.Party
	require.NoError(t, f.store.InTx(context.Background(), func(tx storage.Tx) error {
		var err error
		p, err = tx.GetParty(id)
		return err
	}))
	return p
}

func (f *fixture) order(t *testing.T, id int64) *models.Order {
	t.Helper()
	o, err := f.svc.Get(context.Background(), buyerID, id)
	require.NoError(t, err)
	return o
}

var content = models.Content{Text: "Лучший сервис доставки", ButtonText: "Открыть", ButtonURL: "https://example.com"}

// paidOrder создаёт заказ на days дней и доводит его до оплаты.
func (f *fixture) paidOrder(t *testing.T, days int) *models.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: days, Content: content})
	require.NoError(t, err)
	p, err := f.svc.Pay(ctx, buyerID, o.ID)
	require.NoError(t, err)
	f.gateway.set(p.InvoiceID, cryptopay.InvoicePaid)
	o, err = f.svc.ConfirmPayment(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, o.Status)
	return o
}

// TestCreateValidation проверяет срок, тип размещения, свой канал и расчёт стоимости.
func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, days := range []int{0, -1, 31} {
		_, err := f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: days, Content: content})
		require.ErrorIs(t, err, apperr.ErrValidation, "срок %d должен отклоняться", days)
	}

	_, err := f.svc.Create(ctx, CreateInput{BuyerID: sellerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 1, Content: content})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: 9999, Placement: models.PlacementPost, DurationDays: 1, Content: content})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	bad := content
	bad.ButtonURL = "javascript:alert(1)"
	_, err = f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 1, Content: bad})
	require.ErrorIs(t, err, apperr.ErrValidation)

	o, err := f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPin, DurationDays: 4, Content: content})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, "100", o.TotalPrice.String(), "закреп 25 $/день * 4")
	assert.Equal(t, []string{events.OrderCreated}, f.events.Types())
}

// TestEndToEndCompletion: 3 дня по 10 $, оплата, одобрение, три выплаты, завершение.
func TestEndToEndCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 3, Content: content})
	require.NoError(t, err)
	require.Equal(t, "30", o.TotalPrice.String())

	p, err := f.svc.Pay(ctx, buyerID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.9", p.AmountWithCommission.String(), "сумма с комиссией 3%")

	again, err := f.svc.Pay(ctx, buyerID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, p.InvoiceID, again.InvoiceID, "повторная оплата возвращает активный счёт")

	o, err = f.svc.ConfirmPayment(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, o.Status, "счёт ещё не оплачен")

	f.gateway.set(p.InvoiceID, cryptopay.InvoicePaid)
	o, err = f.svc.ConfirmPayment(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, o.Status)
	_, err = f.svc.ConfirmPayment(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, f.notes.For(sellerID), 1, "запрос на модерацию отправляется один раз")

	o, err = f.svc.Approve(ctx, sellerID, o.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, o.Status)
	require.NotNil(t, o.ContentHandle)
	assert.Equal(t, f.clock.AddDate(0, 0, 3), *o.EndDate)

	_, err = f.svc.Approve(ctx, sellerID, o.ID)
	require.NoError(t, err)
	assert.Len(t, f.host.published, 1, "повторное одобрение не публикует пост ещё раз")

	payouts, err := f.svc.Payouts(ctx, buyerID, o.ID)
	require.NoError(t, err)
	require.Len(t, payouts, 3)

	for day := 0; day < 3; day++ {
		at := time.Date(2026, 3, 1+day, 12, 0, 0, 0, time.UTC)
		res, err := f.engine.Sweep(ctx, at)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Paid, "день %d", day+1)
		assert.Equal(t, decimal.NewFromInt(int64(10*(day+1))).String(), f.party(t, sellerID).Balance.String())
	}

	f.clock = *o.EndDate
	done, err := f.svc.Complete(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, done.Applied)
	assert.True(t, done.Credited.IsZero(), "все дни уже выплачены обходом")
	assert.Equal(t, models.StatusCompleted, f.order(t, o.ID).Status)

	seller := f.party(t, sellerID)
	assert.Equal(t, "30", seller.Balance.String())
	assert.Equal(t, "30", seller.TotalEarned.String())
	assert.True(t, f.party(t, buyerID).Balance.IsZero())

	again2, err := f.svc.Complete(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, again2.Applied, "повторное завершение ничего не меняет")
}

// TestCompleteSettlesDuePayouts: завершение без обхода выплат начисляет все созревшие дни.
func TestCompleteSettlesDuePayouts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, 2)
	o, err := f.svc.Approve(ctx, sellerID, o.ID)
	require.NoError(t, err)

	f.clock = *o.EndDate
	done, err := f.svc.Complete(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "20", done.Credited.String())
	assert.Equal(t, "20", f.party(t, sellerID).TotalEarned.String())
}

// TestNegotiationRejected: покупатель предлагает 0.20 $ при цене 10 $, владелец отказывает.
func TestNegotiationRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.Propose(ctx, ProposeInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 3, Price: decimal.RequireFromString("0.20")})
	require.NoError(t, err)
	require.Equal(t, models.StatusNegotiating, o.Status)

	o, err = f.svc.RejectOffer(ctx, sellerID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, o.Status)
	assert.Len(t, f.notes.For(buyerID), 1, "покупатель получает уведомление об отказе")

	for _, id := range []int64{sellerID, buyerID} {
		p := f.party(t, id)
		assert.True(t, p.Balance.IsZero())
		assert.True(t, p.TotalEarned.IsZero())
	}

	_, err = f.svc.Counter(ctx, sellerID, o.ID, decimal.NewFromInt(5))
	require.ErrorIs(t, err, models.ErrIllegalTransition)
}

// TestNegotiationCounterAndFinalize: встречные предложения перезаписывают цену, журнал сохраняется,
// черновик заменяется заказом по согласованной цене.
func TestNegotiationCounterAndFinalize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.svc.Propose(ctx, ProposeInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 2, Price: decimal.NewFromInt(5)})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, buyerID, draft.ID, FinalizeInput{DurationDays: 2, Content: content})
	require.ErrorIs(t, err, apperr.ErrValidation, "без согласованной цены черновик не оформляется")

	_, err = f.svc.Counter(ctx, buyerID, draft.ID, decimal.NewFromInt(8))
	require.ErrorIs(t, err, apperr.ErrNotFound, "покупатель не может отвечать за владельца")

	_, err = f.svc.Counter(ctx, sellerID, draft.ID, decimal.NewFromInt(9))
	require.NoError(t, err)
	_, err = f.svc.Repropose(ctx, buyerID, draft.ID, decimal.NewFromInt(7))
	require.NoError(t, err)
	d, err := f.svc.Counter(ctx, sellerID, draft.ID, decimal.NewFromInt(8))
	require.NoError(t, err)
	assert.Equal(t, "8", d.SellerPrice.String())
	assert.Equal(t, "7", d.BuyerPrice.String())

	d, err = f.svc.AcceptCounter(ctx, buyerID, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, d.AgreedPrice)
	assert.Equal(t, "8", d.AgreedPrice.String())

	o, err := f.svc.Finalize(ctx, buyerID, draft.ID, FinalizeInput{DurationDays: 3, Content: content})
	require.NoError(t, err)
	assert.NotEqual(t, draft.ID, o.ID)
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, "24", o.TotalPrice.String())

	_, err = f.svc.Get(ctx, buyerID, draft.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound, "черновик удалён")

	offers, err := f.svc.Offers(ctx, buyerID, o.ID)
	require.NoError(t, err)
	require.Len(t, offers, 4)
	assert.Equal(t, models.OfferByBuyer, offers[0].Author)
	assert.Equal(t, models.OfferBySeller, offers[3].Author)
}

// TestAcceptOfferAndWithdraw проверяет принятие цены покупателя и отзыв предложения.
func TestAcceptOfferAndWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Propose(ctx, ProposeInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 1, Price: decimal.NewFromInt(6)})
	require.NoError(t, err)
	a, err = f.svc.AcceptOffer(ctx, sellerID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", a.AgreedPrice.String())

	_, err = f.svc.AcceptCounter(ctx, buyerID, a.ID)
	require.ErrorIs(t, err, apperr.ErrValidation, "встречной цены не было")

	b, err := f.svc.Propose(ctx, ProposeInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 1, Price: decimal.NewFromInt(6)})
	require.NoError(t, err)
	b, err = f.svc.WithdrawOffer(ctx, buyerID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, b.Status)
}

// TestExpiredInvoice: просроченный счёт помечается, заказ остаётся pending и можно выставить новый.
func TestExpiredInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 1, Content: content})
	require.NoError(t, err)
	p, err := f.svc.Pay(ctx, buyerID, o.ID)
	require.NoError(t, err)
	f.gateway.set(p.InvoiceID, cryptopay.InvoiceExpired)

	paid, err := f.svc.PollPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, paid)
	assert.Equal(t, models.StatusPending, f.order(t, o.ID).Status)

	p2, err := f.svc.Pay(ctx, buyerID, o.ID)
	require.NoError(t, err)
	assert.NotEqual(t, p.InvoiceID, p2.InvoiceID)
}

// TestPayGatewayFailure: сбой платёжного сервиса: повторяемая ошибка без записи счёта.
func TestPayGatewayFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 1, Content: content})
	require.NoError(t, err)

	f.gateway.err = errors.New("timeout")
	_, err = f.svc.Pay(ctx, buyerID, o.ID)
	require.ErrorIs(t, err, apperr.ErrExternal)
	assert.True(t, apperr.Retryable(err))

	_, err = f.svc.LatestPayment(ctx, buyerID, o.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// TestRejectIdempotent: отклонение оплаченного заказа отменяет его один раз.
func TestRejectIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, 2)

	_, err := f.svc.Reject(ctx, buyerID, o.ID, "")
	require.ErrorIs(t, err, apperr.ErrNotFound, "покупатель не модерирует")

	o, err = f.svc.Reject(ctx, sellerID, o.ID, "не по тематике")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, o.Status)
	before := len(f.notes.For(buyerID))

	_, err = f.svc.Reject(ctx, sellerID, o.ID, "не по тематике")
	require.NoError(t, err)
	assert.Len(t, f.notes.For(buyerID), before, "повторное отклонение без уведомления")

	_, err = f.svc.Approve(ctx, sellerID, o.ID)
	require.ErrorIs(t, err, models.ErrIllegalTransition)
	assert.Empty(t, f.host.published)
}

// TestApprovePublishFailure: сбой публикации оставляет заказ на модерации.
func TestApprovePublishFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, 1)

	f.host.err = errors.New("FLOOD_WAIT")
	_, err := f.svc.Approve(ctx, sellerID, o.ID)
	require.ErrorIs(t, err, apperr.ErrExternal)
	assert.Equal(t, models.StatusPaid, f.order(t, o.ID).Status)

	f.host.err = nil
	o, err = f.svc.Approve(ctx, sellerID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, o.Status)
}

// TestApproveSurvivesClientCancel: запрос отменён сразу после публикации,
// заказ всё равно становится active с привязанным постом и графиком выплат.
func TestApproveSurvivesClientCancel(t *testing.T) {
	f := newFixture(t)
	o := f.paidOrder(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.host.onPublish = cancel

	got, err := f.svc.Approve(ctx, sellerID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)

	stored := f.order(t, o.ID)
	assert.Equal(t, models.StatusActive, stored.Status)
	require.NotNil(t, stored.ContentHandle)
	assert.Equal(t, []int{*stored.ContentHandle}, f.host.published)
	assert.Empty(t, f.host.removed)

	payouts, err := f.engine.Payouts(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, payouts, 2)

	again, err := f.svc.Approve(context.Background(), sellerID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, again.Status)
	assert.Len(t, f.host.published, 1, "повторное одобрение не публикует второй пост")
}

// TestPayDropsOrphanInvoice: заказ ушёл из pending, пока выставлялся счёт;
// счёт удаляется, платёж не создаётся.
func TestPayDropsOrphanInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPost, DurationDays: 1, Content: content})
	require.NoError(t, err)

	f.gateway.onCreate = func() {
		require.NoError(t, f.store.InTx(ctx, func(tx storage.Tx) error {
			cur, err := tx.GetOrder(o.ID)
			if err != nil {
				return err
			}
			return transition(tx, cur, models.StatusCancelled)
		}))
	}
	_, err = f.svc.Pay(ctx, buyerID, o.ID)
	require.ErrorIs(t, err, models.ErrIllegalTransition)
	assert.Equal(t, []int64{1}, f.gateway.deleted)

	_, err = f.svc.LatestPayment(ctx, buyerID, o.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// TestApprovePin: закреп публикуется и закрепляется.
func TestApprovePin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, CreateInput{BuyerID: buyerID, SlotID: f.slotID, Placement: models.PlacementPin, DurationDays: 1, Content: content})
	require.NoError(t, err)
	p, err := f.svc.Pay(ctx, buyerID, o.ID)
	require.NoError(t, err)
	f.gateway.set(p.InvoiceID, cryptopay.InvoicePaid)
	_, err = f.svc.ConfirmPayment(ctx, o.ID)
	require.NoError(t, err)

	o, err = f.svc.Approve(ctx, sellerID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{*o.ContentHandle}, f.host.pinned)
}

// TestComment: комментарий уходит покупателю, статус не меняется.
func TestComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, 1)

	require.ErrorIs(t, f.svc.Comment(ctx, sellerID, o.ID, "   "), apperr.ErrValidation)
	require.NoError(t, f.svc.Comment(ctx, sellerID, o.ID, "Уберите ссылку из текста"))
	msgs := f.notes.For(buyerID)
	assert.Contains(t, msgs[len(msgs)-1], "Уберите ссылку")
	assert.Equal(t, models.StatusPaid, f.order(t, o.ID).Status)
}

// TestDisputeAndResolve: спор по активному заказу и решение администратора.
func TestDisputeAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, 2)

	_, err := f.svc.Dispute(ctx, buyerID, o.ID, DisputeInput{Reason: "пост изменён"})
	require.ErrorIs(t, err, models.ErrIllegalTransition, "спор только по активному или завершённому")

	_, err = f.svc.Approve(ctx, sellerID, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Dispute(ctx, 999, o.ID, DisputeInput{Reason: "x"})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	d, err := f.svc.Dispute(ctx, buyerID, o.ID, DisputeInput{Reason: "пост изменён", Evidence: []byte(`{"screenshot":"a.png"}`)})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeOpen, d.Status)
	assert.Equal(t, models.StatusDisputed, f.order(t, o.ID).Status)

	_, err = f.svc.ResolveDispute(ctx, buyerID, d.ID, ResolveInput{Resolution: models.ResolutionRefundBuyer})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.ResolveDispute(ctx, adminID, d.ID, ResolveInput{Resolution: "whatever"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	r, err := f.svc.ResolveDispute(ctx, adminID, d.ID, ResolveInput{Resolution: models.ResolutionSplit, Notes: "поровну"})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeResolved, r.Status)
	require.NotNil(t, r.ResolvedBy)
	assert.Equal(t, adminID, *r.ResolvedBy)

	_, err = f.svc.ResolveDispute(ctx, adminID, d.ID, ResolveInput{Resolution: models.ResolutionSplit})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.True(t, f.party(t, buyerID).Balance.IsZero(), "решение спора не двигает балансы")
}

// TestRate: одна оценка на завершённый заказ, рейтинг канала пересчитывается.
func TestRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.paidOrder(t, 1)
	o, err := f.svc.Approve(ctx, sellerID, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Rate(ctx, buyerID, o.ID, 5)
	require.ErrorIs(t, err, apperr.ErrValidation, "активный заказ нельзя оценить")

	f.clock = *o.EndDate
	_, err = f.svc.Complete(ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Rate(ctx, buyerID, o.ID, 6)
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Rate(ctx, buyerID, o.ID, 4)
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, buyerID, o.ID, 5)
	require.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, f.store.InTx(ctx, func(tx storage.Tx) error {
		slot, err := tx.GetSlot(f.slotID)
		require.NoError(t, err)
		assert.Equal(t, 1, slot.TotalReviews)
		assert.InDelta(t, 4.0, slot.AverageRating, 0.001)
		return nil
	}))
}

// TestLive возвращает только опубликованные активные заказы и фильтрует по сроку.
func TestLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	short := f.paidOrder(t, 1)
	long := f.paidOrder(t, 5)
	_, err := f.svc.Approve(ctx, sellerID, short.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, sellerID, long.ID)
	require.NoError(t, err)
	f.paidOrder(t, 2)

	all, err := f.svc.Live(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cutoff := f.clock.AddDate(0, 0, 2)
	expired, err := f.svc.Live(ctx, &cutoff)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, short.ID, expired[0].Order.ID)
	assert.Equal(t, int64(777), expired[0].Dest.ChannelID)
}
