package slot

import (
	"net/http"

	"tgads_go/internal/httputil"
	"tgads_go/pkg/slots"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler обрабатывает HTTP-запросы, связанные с каналами
type Handler struct {
	Slots *slots.Service
}

func NewHandler(svc *slots.Service) *Handler {
	return &Handler{Slots: svc}
}

// Register подключает канал пользователя к площадке
func (h *Handler) Register(c *gin.Context) {
	var in struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	s, err := h.Slots.Register(c.Request.Context(), httputil.Party(c), in.Channel)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// List возвращает каталог; ?mine=true: каналы пользователя
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		list any
		err  error
	)
	if c.Query("mine") == "true" {
		list, err = h.Slots.Mine(ctx, httputil.Party(c))
	} else {
		list, err = h.Slots.Catalog(ctx)
	}
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": list})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	s, err := h.Slots.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// SetPrices меняет цены размещения
func (h *Handler) SetPrices(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Standard decimal.Decimal `json:"standard"`
		Pinned   decimal.Decimal `json:"pinned"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	s, err := h.Slots.SetPrices(c.Request.Context(), httputil.Party(c), id, in.Standard, in.Pinned)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Refresh пересчитывает аналитику канала
func (h *Handler) Refresh(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	s, err := h.Slots.RefreshStats(c.Request.Context(), httputil.Party(c), id)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
