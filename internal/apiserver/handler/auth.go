package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/catalogpilot/catalogpilot/internal/auth/jwt"
	"github.com/catalogpilot/catalogpilot/internal/common/dto"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Signup creates the Firebase account, the user and their company
func (h *Handler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)

	res, err := h.identity.SignUp(ctx, email, req.Password, strings.TrimSpace(req.FirstName+" "+req.LastName))
	if err != nil {
		h.fail(c, err)
		return
	}

	var user *database.User
	err = h.db.Transaction(ctx, func(ctx context.Context) error {
		u, err := h.db.UpsertUser(ctx, &database.User{
			ID:        res.LocalID,
			Email:     email,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
		})
		if err != nil {
			return err
		}
		company := &database.Company{Name: strings.TrimSpace(req.CompanyName)}
		if err := h.db.CreateCompanyForUser(ctx, company, u.ID); err != nil {
			return err
		}
		user, err = h.db.GetUser(ctx, u.ID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, http.StatusCreated, user)
}

// Login signs in with email and password
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	res, err := h.identity.SignInWithPassword(ctx, normalizeEmail(req.Email), req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.db.GetUser(ctx, res.LocalID)
	if errors.Is(err, errorx.ErrNotFound) {
		// the account was created outside the app
		first, last := splitName(res.DisplayName)
		user, err = h.db.UpsertUser(ctx, &database.User{ID: res.LocalID, Email: normalizeEmail(res.Email), FirstName: first, LastName: last})
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, http.StatusOK, user)
}

// Session exchanges a Firebase ID token obtained by the frontend
func (h *Handler) Session(c *gin.Context) {
	var req dto.SessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	id, err := h.identity.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	if id.Email == "" {
		h.fail(c, errorx.ErrInvalidInput.WithMessage("the identity token carries no email address"))
		return
	}

	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first == "" && last == "" {
		first, last = splitName(id.Name)
	}
	user, err := h.db.UpsertUser(ctx, &database.User{ID: id.UID, Email: normalizeEmail(id.Email), FirstName: first, LastName: last})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, http.StatusOK, user)
}

func (h *Handler) Logout(c *gin.Context) {
	if claims := middleware.CurrentClaims(c); claims != nil {
		if err := h.sessions.Delete(c.Request.Context(), claims.SessionID); err != nil {
			h.fail(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// Me returns the caller and their company
func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	resp := dto.MeResponse{User: user}
	if user.HasCompany() {
		company, err := h.db.GetCompany(c.Request.Context(), *user.CompanyID)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp.Company = company
	}
	c.JSON(http.StatusOK, resp)
}

// CreateCompany makes the caller the owner of a new company and reissues their token
func (h *Handler) CreateCompany(c *gin.Context) {
	var req dto.CreateCompanyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	if user.HasCompany() {
		h.fail(c, errorx.ErrAlreadyInCompany)
		return
	}

	company := &database.Company{Name: strings.TrimSpace(req.Name)}
	if err := h.db.CreateCompanyForUser(ctx, company, user.ID); err != nil {
		h.fail(c, err)
		return
	}
	h.reissue(c, http.StatusCreated, user.ID)
}

// reissue replaces the caller's session after their company or role changed
func (h *Handler) reissue(c *gin.Context, status int, userID string) {
	ctx := c.Request.Context()
	user, err := h.db.GetUser(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if claims := middleware.CurrentClaims(c); claims != nil {
		if err := h.sessions.Delete(ctx, claims.SessionID); err != nil {
			h.logger.Warn("failed to drop previous session", zap.String("user_id", userID), zap.Error(err))
		}
	}
	h.issue(c, status, user)
}

// issue creates a session and signs a token for it
func (h *Handler) issue(c *gin.Context, status int, user *database.User) {
	if !user.IsActive {
		h.fail(c, errorx.ErrUserInactive)
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessions.Create(ctx, user.ID, map[string]any{
		"userAgent": c.Request.UserAgent(),
		"ip":        c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	claims := jwt.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: sess.ID,
	}
	resp := dto.AuthResponse{User: user}
	if user.HasCompany() {
		claims.CompanyID = *user.CompanyID
		company, err := h.db.GetCompany(ctx, *user.CompanyID)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp.Company = company
	}

	token, err := h.jwt.GenerateToken(claims)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Token = token
	resp.ExpiresAt = h.now().UTC().Add(h.jwt.Duration())
	if sess.ExpiresAt.Before(resp.ExpiresAt) {
		resp.ExpiresAt = sess.ExpiresAt
	}

	h.logger.Info("session issued", zap.String("user_id", user.ID), zap.String("company_id", claims.CompanyID))
	c.JSON(status, resp)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// splitName splits a display name into first and last name
func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}
