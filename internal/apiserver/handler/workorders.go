package handler

import (
	"net/http"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/catalogpilot/catalogpilot/internal/common/dto"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListWorkOrders(c *gin.Context) {
	var q dto.WorkOrderListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	orders, err := h.workOrders.List(c.Request.Context(), companyID(c), q.Archived)
	if err != nil {
		h.fail(c, err)
		return
	}
	if orders == nil {
		orders = []*database.WorkOrder{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) CreateWorkOrder(c *gin.Context) {
	var req dto.CreateWorkOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.workOrders.Create(c.Request.Context(), companyID(c), middleware.CurrentUser(c).ID, req.Input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetWorkOrder(c *gin.Context) {
	order, err := h.workOrders.Get(c.Request.Context(), companyID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateWorkOrder merges content fields and applies an optional status change
func (h *Handler) UpdateWorkOrder(c *gin.Context) {
	var req dto.UpdateWorkOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.workOrders.Update(c.Request.Context(), companyID(c), c.Param("id"), req.Input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteWorkOrder deletes pending orders only
func (h *Handler) DeleteWorkOrder(c *gin.Context) {
	if err := h.workOrders.Delete(c.Request.Context(), companyID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ArchiveWorkOrder(c *gin.Context) {
	order, err := h.workOrders.Archive(c.Request.Context(), companyID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) UnarchiveWorkOrder(c *gin.Context) {
	order, err := h.workOrders.Unarchive(c.Request.Context(), companyID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UndoWorkOrder restores the prices recorded before execution
func (h *Handler) UndoWorkOrder(c *gin.Context) {
	order, err := h.workOrders.Undo(c.Request.Context(), companyID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
