package withdrawal

import (
	"net/http"

	"tgads_go/internal/httputil"
	"tgads_go/pkg/apperr"
	"tgads_go/pkg/withdrawal"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler: расчёт и подтверждение вывода средств
type Handler struct {
	Processor *withdrawal.Processor
}

func NewHandler(p *withdrawal.Processor) *Handler {
	return &Handler{Processor: p}
}

type amountInput struct {
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Currency  string          `json:"currency"`
}

// Quote показывает суммы к выплате во всех доступных валютах
func (h *Handler) Quote(c *gin.Context) {
	var in amountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	q, err := h.Processor.Quote(c.Request.Context(), httputil.Party(c), in.AmountUSD)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Confirm выпускает чек и списывает баланс
func (h *Handler) Confirm(c *gin.Context) {
	var in amountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	req, err := h.Processor.Confirm(c.Request.Context(), httputil.Party(c), in.AmountUSD, in.Currency)
	if err != nil {
		if req != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(httputil.Status(err), gin.H{
				"error":      err.Error(),
				"kind":       string(apperr.KindOf(err)),
				"withdrawal": req,
			})
			return
		}
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.Processor.List(c.Request.Context(), httputil.Party(c))
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

// SetupRoutes регистрирует маршруты вывода средств
func SetupRoutes(r *gin.RouterGroup, p *withdrawal.Processor) {
	h := NewHandler(p)
	r.POST("/quote", h.Quote)
	r.POST("/confirm", h.Confirm)
	r.GET("", h.List)
}
