package middleware

import (
	"errors"
	"strings"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/auth/jwt"
	"github.com/catalogpilot/catalogpilot/internal/common/cnst"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/internal/session"
	"github.com/gin-gonic/gin"
)

// Authenticator validates bearer tokens against the session store
// and loads the calling user.
type Authenticator struct {
	jwt      *jwt.Service
	sessions session.Store
	db       database.Database
	errs     *errorx.ErrorHandler
}

func NewAuthenticator(jwtService *jwt.Service, sessions session.Store, db database.Database, errs *errorx.ErrorHandler) *Authenticator {
	return &Authenticator{jwt: jwtService, sessions: sessions, db: db, errs: errs}
}

// Authenticate rejects requests without a live session
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, user, err := a.authenticate(c)
		if err != nil {
			a.errs.HandleError(c, err)
			return
		}
		c.Set(cnst.CtxClaims, claims)
		c.Set(cnst.CtxUser, user)
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context) (*jwt.Claims, *database.User, error) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, nil, errorx.ErrUnauthorized
	}

	claims, err := a.jwt.ValidateToken(token)
	if errors.Is(err, jwt.ErrExpiredToken) {
		return nil, nil, errorx.ErrSessionExpired
	}
	if err != nil {
		return nil, nil, errorx.ErrUnauthorized
	}

	ctx := c.Request.Context()
	sess, err := a.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, nil, errorx.ErrUnauthorized
	}

	user, err := a.db.GetUser(ctx, claims.UserID)
	if errors.Is(err, errorx.ErrNotFound) {
		return nil, nil, errorx.ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, errorx.ErrUserInactive
	}
	return claims, user, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireCompany rejects users that have not created or joined a company
func RequireCompany(errs *errorx.ErrorHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.HasCompany() {
			errs.HandleError(c, errorx.ErrNoCompany)
			return
		}
		c.Next()
	}
}

// RequireRole admits only the given roles
func RequireRole(errs *errorx.ErrorHandler, roles ...database.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user != nil {
			for _, r := range roles {
				if user.Role == r {
					c.Next()
					return
				}
			}
		}
		errs.HandleError(c, errorx.ErrForbidden)
	}
}

// CurrentUser returns the user loaded by Authenticate
func CurrentUser(c *gin.Context) *database.User {
	v, ok := c.Get(cnst.CtxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*database.User)
	return user
}

func CurrentClaims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(cnst.CtxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// CompanyID is the caller's company, empty when they have none
func CompanyID(c *gin.Context) string {
	if user := CurrentUser(c); user != nil && user.HasCompany() {
		return *user.CompanyID
	}
	return ""
}
