package handler

import (
	"net/http"

	"github.com/catalogpilot/catalogpilot/internal/common/dto"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/gin-gonic/gin"
)

// ListProducts pages through the local catalog
func (h *Handler) ListProducts(c *gin.Context) {
	var q dto.ProductListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	filter := q.Filter()
	items, total, err := h.db.ListProducts(c.Request.Context(), companyID(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit})
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	product, err := h.db.GetProduct(c.Request.Context(), companyID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// UpdateProduct edits the product upstream, then locally
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Negative() {
		h.fail(c, errorx.ErrInvalidInput.WithMessage("prices and weight cannot be negative"))
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), companyID(c), id, req.Patch())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes the product from the local catalog only
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	if err := h.db.DeleteProduct(c.Request.Context(), companyID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SyncProducts pulls the catalog from BigCommerce
func (h *Handler) SyncProducts(c *gin.Context) {
	res, err := h.catalog.Sync(c.Request.Context(), companyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListCategories returns the flattened category paths
func (h *Handler) ListCategories(c *gin.Context) {
	paths, err := h.catalog.Categories(c.Request.Context(), companyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	c.JSON(http.StatusOK, dto.CategoriesResponse{Categories: paths})
}
