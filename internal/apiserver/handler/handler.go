// Package handler implements the REST endpoints of the apiserver.
package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/catalogpilot/catalogpilot/internal/auth/firebase"
	"github.com/catalogpilot/catalogpilot/internal/auth/jwt"
	"github.com/catalogpilot/catalogpilot/internal/billing"
	"github.com/catalogpilot/catalogpilot/internal/catalog"
	"github.com/catalogpilot/catalogpilot/internal/common/cnst"
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/internal/i18n"
	"github.com/catalogpilot/catalogpilot/internal/mail"
	"github.com/catalogpilot/catalogpilot/internal/session"
	"github.com/catalogpilot/catalogpilot/internal/workorder"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Identity is the subset of the Firebase client used by the auth endpoints
type Identity interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebase.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*firebase.SignInResult, error)
	SignUp(ctx context.Context, email, password, displayName string) (*firebase.SignInResult, error)
}

type Billing interface {
	Checkout(ctx context.Context, companyID, email string, plan database.Plan) (*billing.CheckoutSession, error)
	Downgrade(ctx context.Context, companyID string) (*database.Company, error)
}

// Deps lists everything the handlers need
type Deps struct {
	DB         database.Database
	JWT        *jwt.Service
	Sessions   session.Store
	Identity   Identity
	Catalog    *catalog.Service
	WorkOrders *workorder.Service
	Billing    Billing
	Mailer     mail.Mailer
	I18n       *i18n.I18n
	Errors     *errorx.ErrorHandler
	Server     config.ServerConfig
	Invites    config.InvitationConfig
	Logger     *zap.Logger
}

type Handler struct {
	db         database.Database
	jwt        *jwt.Service
	sessions   session.Store
	identity   Identity
	catalog    *catalog.Service
	workOrders *workorder.Service
	billing    Billing
	mailer     mail.Mailer
	tr         *i18n.I18n
	errs       *errorx.ErrorHandler
	server     config.ServerConfig
	invites    config.InvitationConfig
	logger     *zap.Logger
	now        func() time.Time
}

func New(d Deps) *Handler {
	return &Handler{
		db:         d.DB,
		jwt:        d.JWT,
		sessions:   d.Sessions,
		identity:   d.Identity,
		catalog:    d.Catalog,
		workOrders: d.WorkOrders,
		billing:    d.Billing,
		mailer:     d.Mailer,
		tr:         d.I18n,
		errs:       d.Errors,
		server:     d.Server,
		invites:    d.Invites,
		logger:     d.Logger.Named("handler"),
		now:        time.Now,
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.errs.HandleError(c, err)
}

// bindJSON reports binding failures as validation errors
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, errorx.ErrInvalidInput.WithMessage(err.Error()))
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		h.fail(c, errorx.ErrInvalidInput.WithMessage(err.Error()))
		return false
	}
	return true
}

func (h *Handler) productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, errorx.ErrInvalidInput.WithMessagef("invalid product id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func (h *Handler) lang(c *gin.Context) string {
	if lang := c.GetString(cnst.CtxLang); lang != "" {
		return lang
	}
	return cnst.LangDefault
}

func companyID(c *gin.Context) string {
	return middleware.CompanyID(c)
}
