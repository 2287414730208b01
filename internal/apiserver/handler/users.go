package handler

import (
	"errors"
	"net/http"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) ListCompanyUsers(c *gin.Context) {
	users, err := h.db.ListCompanyUsers(c.Request.Context(), companyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if users == nil {
		users = []*database.User{}
	}
	c.JSON(http.StatusOK, users)
}

// DeactivateCompanyUser soft deletes a member. Owners cannot be deactivated
// and admins may only deactivate members.
func (h *Handler) DeactivateCompanyUser(c *gin.Context) {
	ctx := c.Request.Context()
	caller := middleware.CurrentUser(c)
	cid := companyID(c)
	targetID := c.Param("id")
	if targetID == caller.ID {
		h.fail(c, errorx.ErrInvalidInput.WithMessage("you cannot deactivate yourself"))
		return
	}

	target, err := h.db.GetUser(ctx, targetID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if target.CompanyID == nil || *target.CompanyID != cid {
		h.fail(c, errorx.ErrNotFound.WithMessagef("user %s is not in this company", targetID))
		return
	}
	if target.Role == database.RoleOwner || (caller.Role == database.RoleAdmin && target.Role == database.RoleAdmin) {
		h.fail(c, errorx.ErrForbidden)
		return
	}

	if err := h.db.DeactivateUser(ctx, cid, targetID); err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("user deactivated",
		zap.String("company_id", cid),
		zap.String("user_id", targetID),
		zap.String("by", caller.ID))
	c.Status(http.StatusNoContent)
}

// memberExists reports whether the email already belongs to a user of the company
func (h *Handler) memberExists(c *gin.Context, cid, email string) (bool, error) {
	u, err := h.db.GetUserByEmail(c.Request.Context(), email)
	if errors.Is(err, errorx.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.CompanyID != nil && *u.CompanyID == cid, nil
}
