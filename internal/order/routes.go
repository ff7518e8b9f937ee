package order

import (
	"tgads_go/pkg/orders"

	"github.com/gin-gonic/gin"
)

// SetupRoutes регистрирует маршруты для работы с заказами
func SetupRoutes(r *gin.RouterGroup, svc *orders.Service) {
	h := NewHandler(svc)
	r.POST("", h.CreateOrder)
	r.GET("", h.ListOrders)
	r.GET("/:id", h.GetOrder)
	r.GET("/:id/offers", h.Offers)
	r.GET("/:id/payouts", h.Payouts)

	r.POST("/negotiations", h.Propose)
	r.POST("/:id/repropose", h.priced(svc.Repropose))
	r.POST("/:id/counter", h.priced(svc.Counter))
	r.POST("/:id/accept", h.simple(svc.AcceptOffer))
	r.POST("/:id/accept-counter", h.simple(svc.AcceptCounter))
	r.POST("/:id/reject-offer", h.simple(svc.RejectOffer))
	r.POST("/:id/withdraw-offer", h.simple(svc.WithdrawOffer))
	r.POST("/:id/finalize", h.Finalize)

	r.POST("/:id/pay", h.Pay)
	r.POST("/:id/confirm-payment", h.ConfirmPayment)
	r.GET("/:id/invoice/qr", h.InvoiceQR)

	r.POST("/:id/approve", h.Approve)
	r.POST("/:id/reject", h.Reject)
	r.POST("/:id/comment", h.Comment)

	r.POST("/:id/review", h.Review)
	r.POST("/:id/dispute", h.Dispute)
}

// SetupAdminRoutes регистрирует маршруты администратора
func SetupAdminRoutes(r *gin.RouterGroup, svc *orders.Service) {
	h := NewHandler(svc)
	r.POST("/disputes/:id/resolve", h.ResolveDispute)
}
