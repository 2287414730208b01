package handler

import (
	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/gin-gonic/gin"
)

// Register mounts every /api route
func (h *Handler) Register(r gin.IRouter, authn *middleware.Authenticator) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/session", h.Session)

	authed := api.Group("", authn.Authenticate())
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)
	authed.POST("/companies", h.CreateCompany)
	authed.POST("/invitations/:token/accept", h.AcceptInvitation)

	tenant := authed.Group("", middleware.RequireCompany(h.errs))
	managers := middleware.RequireRole(h.errs, database.RoleOwner, database.RoleAdmin)

	tenant.GET("/settings", h.GetSettings)
	tenant.POST("/settings", managers, h.SaveSettings)
	tenant.POST("/settings/test", managers, h.TestSettings)

	tenant.GET("/products", h.ListProducts)
	tenant.POST("/products/sync", h.SyncProducts)
	tenant.GET("/products/:id", h.GetProduct)
	tenant.PUT("/products/:id", h.UpdateProduct)
	tenant.DELETE("/products/:id", h.DeleteProduct)
	tenant.GET("/categories", h.ListCategories)

	tenant.GET("/work-orders", h.ListWorkOrders)
	tenant.POST("/work-orders", h.CreateWorkOrder)
	tenant.GET("/work-orders/:id", h.GetWorkOrder)
	tenant.PUT("/work-orders/:id", h.UpdateWorkOrder)
	tenant.DELETE("/work-orders/:id", h.DeleteWorkOrder)
	tenant.POST("/work-orders/:id/archive", h.ArchiveWorkOrder)
	tenant.POST("/work-orders/:id/unarchive", h.UnarchiveWorkOrder)
	tenant.POST("/work-orders/:id/undo", h.UndoWorkOrder)

	tenant.GET("/companies/users", managers, h.ListCompanyUsers)
	tenant.DELETE("/companies/users/:id", managers, h.DeactivateCompanyUser)

	tenant.GET("/invitations", managers, h.ListInvitations)
	tenant.POST("/invitations", managers, h.CreateInvitation)

	tenant.POST("/billing/checkout", managers, h.Checkout)
	tenant.POST("/billing/downgrade", managers, h.Downgrade)
}
