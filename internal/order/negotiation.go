package order

import (
	"context"
	"net/http"

	"tgads_go/internal/httputil"
	"tgads_go/models"
	"tgads_go/pkg/orders"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type priceInput struct {
	Price decimal.Decimal `json:"price"`
}

// Propose открывает торг по цене
func (h *Handler) Propose(c *gin.Context) {
	var in orders.ProposeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	in.BuyerID = httputil.Party(c)
	o, err := h.Orders.Propose(c.Request.Context(), in)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// priced оборачивает операцию торга, принимающую новую цену.
func (h *Handler) priced(op func(ctx context.Context, partyID, orderID int64, price decimal.Decimal) (*models.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httputil.IDParam(c, "id")
		if !ok {
			return
		}
		var in priceInput
		if err := c.ShouldBindJSON(&in); err != nil {
			httputil.BadRequest(c, "invalid data")
			return
		}
		o, err := op(c.Request.Context(), httputil.Party(c), id, in.Price)
		if err != nil {
			httputil.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// simple оборачивает операцию над заказом без тела запроса.
func (h *Handler) simple(op func(ctx context.Context, partyID, orderID int64) (*models.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httputil.IDParam(c, "id")
		if !ok {
			return
		}
		o, err := op(c.Request.Context(), httputil.Party(c), id)
		if err != nil {
			httputil.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// Finalize превращает согласованный торг в заказ к оплате
func (h *Handler) Finalize(c *gin.Context) {
	id, ok := httputil.IDParam(c, "id")
	if !ok {
		return
	}
	var in orders.FinalizeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httputil.BadRequest(c, "invalid data")
		return
	}
	o, err := h.Orders.Finalize(c.Request.Context(), httputil.Party(c), id, in)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}
