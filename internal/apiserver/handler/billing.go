package handler

import (
	"net/http"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/catalogpilot/catalogpilot/internal/common/dto"
	"github.com/gin-gonic/gin"
)

// Checkout starts a Stripe Checkout session for a paid plan
func (h *Handler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	sess, err := h.billing.Checkout(c.Request.Context(), companyID(c), middleware.CurrentUser(c).Email, database.Plan(req.Plan))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CheckoutResponse{SessionID: sess.ID, URL: sess.URL})
}

func (h *Handler) Downgrade(c *gin.Context) {
	company, err := h.billing.Downgrade(c.Request.Context(), companyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}
