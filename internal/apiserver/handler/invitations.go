package handler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/catalogpilot/catalogpilot/internal/common/dto"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/internal/mail"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const invitationSubject = "invitation_subject"

func invitationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func toInvitationResponse(inv *database.CompanyInvitation) dto.InvitationResponse {
	return dto.InvitationResponse{
		Email:      inv.Email,
		Role:       string(inv.Role),
		InvitedBy:  inv.InvitedBy,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		CreatedAt:  inv.CreatedAt,
	}
}

func (h *Handler) ListInvitations(c *gin.Context) {
	invs, err := h.db.ListInvitations(c.Request.Context(), companyID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]dto.InvitationResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvitationResponse(inv))
	}
	c.JSON(http.StatusOK, out)
}

// CreateInvitation stores the invitation and emails the accept link.
// A delivery failure is logged and reported in the response; the invitation stays valid.
func (h *Handler) CreateInvitation(c *gin.Context) {
	var req dto.CreateInvitationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	inviter := middleware.CurrentUser(c)
	cid := companyID(c)

	email := normalizeEmail(req.Email)
	member, err := h.memberExists(c, cid, email)
	if err != nil {
		h.fail(c, err)
		return
	}
	if member {
		h.fail(c, errorx.ErrConflict.WithMessagef("%s is already a member of this company", email))
		return
	}

	token, err := invitationToken()
	if err != nil {
		h.fail(c, fmt.Errorf("generate invitation token: %w", err))
		return
	}
	inv := &database.CompanyInvitation{
		Token:     token,
		CompanyID: cid,
		Email:     email,
		Role:      database.Role(req.Role),
		InvitedBy: inviter.ID,
		ExpiresAt: h.now().UTC().Add(h.invites.TTL),
	}
	if err := h.db.CreateInvitation(ctx, inv); err != nil {
		h.fail(c, err)
		return
	}

	company, err := h.db.GetCompany(ctx, cid)
	if err != nil {
		h.fail(c, err)
		return
	}

	inviterName := strings.TrimSpace(inviter.FirstName + " " + inviter.LastName)
	if inviterName == "" {
		inviterName = inviter.Email
	}
	subject := fmt.Sprintf("%s invited you to join %s", inviterName, company.Name)
	if h.tr != nil {
		subject, _ = h.tr.Translate(invitationSubject, h.lang(c), map[string]any{"Inviter": inviterName, "Company": company.Name})
	}

	sent := true
	err = h.mailer.SendInvitation(ctx, mail.Invitation{
		To:          inv.Email,
		Subject:     subject,
		CompanyName: company.Name,
		InviterName: inviterName,
		Role:        req.Role,
		AcceptURL:   h.acceptURL(token),
		ExpiresAt:   inv.ExpiresAt,
	})
	if err != nil {
		sent = false
		h.logger.Warn("failed to send invitation email",
			zap.String("company_id", cid),
			zap.String("email", inv.Email),
			zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"invitation": toInvitationResponse(inv),
		"emailSent":  sent,
	})
}

func (h *Handler) acceptURL(token string) string {
	base := strings.TrimRight(h.server.AppURL, "/")
	return base + "/invitations/" + url.PathEscape(token)
}

// AcceptInvitation moves the caller into the inviting company and reissues their token
func (h *Handler) AcceptInvitation(c *gin.Context) {
	user := middleware.CurrentUser(c)
	inv, err := h.db.RedeemInvitation(c.Request.Context(), c.Param("token"), user.ID, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("invitation accepted",
		zap.String("company_id", inv.CompanyID),
		zap.String("user_id", user.ID),
		zap.String("role", string(inv.Role)))
	h.reissue(c, http.StatusOK, user.ID)
}
