package order

import (
	"net/http"
	"strings"

	"tgads_go/internal/httputil"
	"tgads_go/models"
	"tgads_go/pkg/orders"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// Handler обрабатывает HTTP-запросы, связанные с заказами
type Handler struct {
	Orders *orders.Service
}

func NewHandler(svc *orders.Service) *Handler {
	return &Handler{Orders: svc}
}

// CreateOrder создаёт заказ по прайсу канала
func (h *Handler) CreateOrder(c *gin.Context) {
	var in orders.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	in.BuyerID = httputil.Party(c)
	o, err := h.Orders.Create(c.Request.Context(), in)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// ListOrders возвращает заказы пользователя. ?status=active,completed ограничивает выборку.
func (h *Handler) ListOrders(c *gin.Context) {
	var statuses []models.OrderStatus
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, models.OrderStatus(s))
		}
	}
	list, err := h.Orders.List(c.Request.Context(), httputil.Party(c), statuses...)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), httputil.Party(c), id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) Offers(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	list, err := h.Orders.Offers(c.Request.Context(), httputil.Party(c), id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": list})
}

func (h *Handler) Payouts(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	list, err := h.Orders.Payouts(c.Request.Context(), httputil.Party(c), id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": list})
}

// Pay выставляет счёт или возвращает действующий
func (h *Handler) Pay(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Orders.Pay(c.Request.Context(), httputil.Party(c), id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ConfirmPayment проверяет оплату счёта у платёжного сервиса
func (h *Handler) ConfirmPayment(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Orders.Get(ctx, httputil.Party(c), id); err != nil {
		httputil.RespondError(c, err)
		return
	}
	o, err := h.Orders.ConfirmPayment(ctx, id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// InvoiceQR отдаёт PNG с QR-кодом ссылки на оплату
func (h *Handler) InvoiceQR(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Orders.LatestPayment(c.Request.Context(), httputil.Party(c), id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	if p.Status != models.PaymentActive || p.PayURL == "" {
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "счёт не активен"})
		return
	}
	png, err := qrcode.Encode(p.PayURL, qrcode.Medium, 256)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Approve публикует пост и запускает размещение
func (h *Handler) Approve(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Approve(c.Request.Context(), httputil.Party(c), id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type textInput struct {
	Text string `json:"text"`
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	var in textInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			httputil.BadRequest(c, "invalid data")
			return
		}
	}
	o, err := h.Orders.Reject(c.Request.Context(), httputil.Party(c), id, in.Text)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Comment передаёт покупателю замечание по посту
func (h *Handler) Comment(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	var in textInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	if err := h.Orders.Comment(c.Request.Context(), httputil.Party(c), id, in.Text); err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (h *Handler) Review(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Rating int `json:"rating"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	r, err := h.Orders.Rate(c.Request.Context(), httputil.Party(c), id, in.Rating)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) Dispute(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	var in orders.DisputeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	d, err := h.Orders.Dispute(c.Request.Context(), httputil.Party(c), id, in)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// ResolveDispute: решение администратора по спору
func (h *Handler) ResolveDispute(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	var in orders.ResolveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	d, err := h.Orders.ResolveDispute(c.Request.Context(), httputil.Party(c), id, in)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
