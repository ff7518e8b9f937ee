package order

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"tgads_go/internal/httputil"
	"tgads_go/models"
	"tgads_go/pkg/cryptopay"
	"tgads_go/pkg/events"
	"tgads_go/pkg/notify"
	"tgads_go/pkg/orders"
	"tgads_go/pkg/settlement"
	"tgads_go/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	sellerID   = int64(100)
	buyerID    = int64(200)
	strangerID = int64(300)
)

type gateway struct {
	mu     sync.Mutex
	status map[int64]cryptopay.InvoiceStatus
}

func (g *gateway) CreateInvoice(_ context.Context, amount decimal.Decimal, asset, _, _ string, _ time.Duration) (*cryptopay.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := int64(len(g.status) + 1)
	g.status[id] = cryptopay.InvoiceActive
	return &cryptopay.Invoice{ID: id, Status: cryptopay.InvoiceActive, Asset: asset, Amount: amount, PayURL: "https://t.me/CryptoBot?start=IV1"}, nil
}

func (g *gateway) InvoiceStatus(_ context.Context, id int64) (cryptopay.InvoiceStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status[id], nil
}

func (g *gateway) DeleteInvoice(context.Context, int64) error { return nil }

type host struct{}

func (host) Publish(context.Context, models.Destination, models.Content) (int, error) {
	return 77, nil
}
func (host) Pin(context.Context, models.Destination, int) error    { return nil }
func (host) Remove(context.Context, models.Destination, int) error { return nil }

type env struct {
	router  *gin.Engine
	gateway *gateway
	slotID  int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := storage.NewMemory()
	e := &env{gateway: &gateway{status: map[int64]cryptopay.InvoiceStatus{}}}
	engine := settlement.NewEngine(store, settlement.Config{PenaltyRate: decimal.RequireFromString("0.5"), PayoutHour: 12, Location: time.UTC}, &events.Recorder{}, zap.NewNop())
	svc := orders.NewService(orders.Deps{
		Store:      store,
		Settlement: engine,
		Gateway:    e.gateway,
		Host:       host{},
		Notifier:   &notify.Recorder{},
		Events:     &events.Recorder{},
		Log:        zap.NewNop(),
	}, orders.Config{CommissionRate: decimal.RequireFromString("0.03")})

	require.NoError(t, store.InTx(context.Background(), func(tx storage.Tx) error {
		for _, id := range []int64{sellerID, buyerID, strangerID} {
			require.NoError(t, tx.UpsertParty(&models.Party{ID: id}))
		}
		slot := &models.Slot{ChannelID: 1, OwnerID: sellerID, Title: "Канал", PriceStandard: decimal.NewFromInt(10), PricePinned: decimal.NewFromInt(20), Status: models.SlotActive}
		require.NoError(t, tx.CreateSlot(slot))
		e.slotID = slot.ID
		return nil
	}))

	r := gin.New()
	group := r.Group("/orders", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.GetHeader("X-Party"), 10, 64)
		c.Set(httputil.PartyKey, id)
	})
	SetupRoutes(group, svc)
	e.router = r
	return e
}

func (e *env) do(t *testing.T, party int64, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Party", strconv.FormatInt(party, 10))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestOrderFlowOverHTTP(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, buyerID, http.MethodPost, "/orders", map[string]any{
		"slot_id": e.slotID, "placement": "post", "duration_days": 2,
		"content": map[string]any{"text": "Реклама"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Order](t, w)
	assert.Equal(t, models.StatusPending, created.Status)
	base := "/orders/" + strconv.FormatInt(created.ID, 10)

	w = e.do(t, buyerID, http.MethodPost, base+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payment := decode[models.Payment](t, w)
	assert.Equal(t, "20.6", payment.AmountWithCommission.String())

	w = e.do(t, buyerID, http.MethodGet, base+"/invoice/qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	e.gateway.mu.Lock()
	e.gateway.status[payment.InvoiceID] = cryptopay.InvoicePaid
	e.gateway.mu.Unlock()
	w = e.do(t, buyerID, http.MethodPost, base+"/confirm-payment", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusPaid, decode[models.Order](t, w).Status)

	w = e.do(t, buyerID, http.MethodPost, base+"/approve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "покупатель не модерирует")

	w = e.do(t, sellerID, http.MethodPost, base+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusActive, decode[models.Order](t, w).Status)

	w = e.do(t, sellerID, http.MethodPost, base+"/reject", map[string]string{"text": "поздно"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, buyerID, http.MethodGet, base+"/payouts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	payouts := decode[map[string][]models.DailyPayout](t, w)
	assert.Len(t, payouts["payouts"], 2)

	w = e.do(t, buyerID, http.MethodGet, "/orders?status=active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]models.Order](t, w)["orders"], 1)
}

func TestOrderErrorsOverHTTP(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, buyerID, http.MethodPost, "/orders", map[string]any{
		"slot_id": e.slotID, "placement": "post", "duration_days": 0,
		"content": map[string]any{"text": "Реклама"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decode[map[string]any](t, w)["kind"])

	w = e.do(t, buyerID, http.MethodGet, "/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, buyerID, http.MethodPost, "/orders", map[string]any{
		"slot_id": e.slotID, "placement": "post", "duration_days": 1,
		"content": map[string]any{"text": "Реклама"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/orders/" + strconv.FormatInt(decode[models.Order](t, w).ID, 10)

	assert.Equal(t, http.StatusNotFound, e.do(t, strangerID, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, buyerID, http.MethodGet, path+"/invoice/qr", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, strangerID, http.MethodPost, path+"/confirm-payment", nil).Code)
}

func TestNegotiationOverHTTP(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, buyerID, http.MethodPost, "/orders/negotiations", map[string]any{
		"slot_id": e.slotID, "placement": "post", "duration_days": 3, "price": "8",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode[models.Order](t, w)
	assert.Equal(t, models.StatusNegotiating, draft.Status)
	base := "/orders/" + strconv.FormatInt(draft.ID, 10)

	w = e.do(t, sellerID, http.MethodPost, base+"/counter", map[string]string{"price": "9"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, buyerID, http.MethodPost, base+"/accept-counter", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, buyerID, http.MethodPost, base+"/finalize", map[string]any{
		"duration_days": 3, "content": map[string]any{"text": "Реклама"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	final := decode[models.Order](t, w)
	assert.Equal(t, models.StatusPending, final.Status)
	assert.Equal(t, "27", final.TotalPrice.String())

	w = e.do(t, buyerID, http.MethodGet, "/orders/"+strconv.FormatInt(final.ID, 10)+"/offers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]models.Offer](t, w)["offers"], 2)

	assert.Equal(t, http.StatusNotFound, e.do(t, buyerID, http.MethodGet, base, nil).Code, "черновик удалён")
}
