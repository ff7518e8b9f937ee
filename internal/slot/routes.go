package slot

import (
	"tgads_go/pkg/slots"

	"github.com/gin-gonic/gin"
)

// SetupRoutes регистрирует маршруты каналов
func SetupRoutes(r *gin.RouterGroup, svc *slots.Service) {
	h := NewHandler(svc)
	r.POST("", h.Register)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.PUT("/:id/prices", h.SetPrices)
	r.POST("/:id/refresh", h.Refresh)
}
