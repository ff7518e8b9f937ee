package party

import (
	"net/http"

	"tgads_go/internal/httputil"
	"tgads_go/models"
	"tgads_go/pkg/ledger"

	"github.com/gin-gonic/gin"
)

// Handler: регистрация пользователя, баланс и статистика владельца
type Handler struct {
	Ledger *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{Ledger: svc}
}

// Register создаёт или обновляет профиль вызывающего
func (h *Handler) Register(c *gin.Context) {
	var in struct {
		Username   string `json:"username"`
		FirstName  string `json:"first_name"`
		AccessHash int64  `json:"access_hash"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	p, err := h.Ledger.Register(c.Request.Context(), models.Party{
		ID:         httputil.Party(c),
		Username:   in.Username,
		FirstName:  in.FirstName,
		AccessHash: in.AccessHash,
	})
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Me возвращает сводку баланса
func (h *Handler) Me(c *gin.Context) {
	b, err := h.Ledger.Balance(c.Request.Context(), httputil.Party(c))
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Stats возвращает статистику владельца по всем каналам
func (h *Handler) Stats(c *gin.Context) {
	s, err := h.Ledger.OwnerStats(c.Request.Context(), httputil.Party(c))
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// SetupRoutes регистрирует маршруты профиля
func SetupRoutes(r *gin.RouterGroup, svc *ledger.Service) {
	h := NewHandler(svc)
	r.POST("/register", h.Register)
	r.GET("/me", h.Me)
	r.GET("/stats", h.Stats)
}
