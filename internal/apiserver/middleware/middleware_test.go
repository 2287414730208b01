package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	jsvc "github.com/catalogpilot/catalogpilot/internal/auth/jwt"
	"github.com/catalogpilot/catalogpilot/internal/common/cnst"
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/internal/i18n"
	"github.com/catalogpilot/catalogpilot/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "this-is-a-very-long-secret-key-for-testing"

type authFixture struct {
	db       database.Database
	sessions session.Store
	jwt      *jsvc.Service
	router   *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sessions := session.NewDBStore(db, time.Hour, 0, zap.NewNop())
	js, err := jsvc.NewService(jsvc.Config{SecretKey: testSecret, Duration: time.Hour})
	require.NoError(t, err)
	tr, err := i18n.New("en", "")
	require.NoError(t, err)
	errs := errorx.NewErrorHandler(zap.NewNop(), tr)

	r := gin.New()
	r.Use(RequestID(), Language(tr))
	authed := r.Group("/", NewAuthenticator(js, sessions, db, errs).Authenticate())
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID, "sid": CurrentClaims(c).SessionID})
	})
	authed.GET("/company", RequireCompany(errs), func(c *gin.Context) {
		c.String(http.StatusOK, CompanyID(c))
	})
	authed.GET("/admin", RequireCompany(errs), RequireRole(errs, database.RoleOwner, database.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return &authFixture{db: db, sessions: sessions, jwt: js, router: r}
}

func (f *authFixture) login(t *testing.T, user *database.User) string {
	t.Helper()
	ctx := context.Background()
	_, err := f.db.UpsertUser(ctx, user)
	require.NoError(t, err)
	sess, err := f.sessions.Create(ctx, user.ID, nil)
	require.NoError(t, err)
	tok, err := f.jwt.GenerateToken(jsvc.Claims{UserID: user.ID, Email: user.Email, SessionID: sess.ID})
	require.NoError(t, err)
	return tok
}

func (f *authFixture) get(path, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		TraceID string `json:"traceId"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	return decodeError(t, w).Error.Code
}

func TestAuthenticate_Rejections(t *testing.T) {
	f := newAuthFixture(t)

	w := f.get("/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errorx.ErrUnauthorized.Code, errorCode(t, w))

	w = f.get("/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_SessionLifecycle(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.login(t, &database.User{ID: "u1", Email: "a@example.com", IsActive: true})

	w := f.get("/me", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"u1"`)

	claims, err := f.jwt.ValidateToken(tok)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Delete(context.Background(), claims.SessionID))

	w = f.get("/me", tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errorx.ErrSessionExpired.Code, errorCode(t, w))
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.login(t, &database.User{ID: "u1", Email: "a@example.com", IsActive: true})

	company := &database.Company{Name: "Acme"}
	require.NoError(t, f.db.CreateCompanyForUser(context.Background(), company, "u1"))
	require.NoError(t, f.db.DeactivateUser(context.Background(), company.ID, "u1"))

	w := f.get("/me", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errorx.ErrUserInactive.Code, errorCode(t, w))
}

func TestRequireCompanyAndRole(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	ownerTok := f.login(t, &database.User{ID: "owner", Email: "o@example.com", IsActive: true})
	memberTok := f.login(t, &database.User{ID: "member", Email: "m@example.com", IsActive: true})

	w := f.get("/company", ownerTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errorx.ErrNoCompany.Code, errorCode(t, w))

	company := &database.Company{Name: "Acme"}
	require.NoError(t, f.db.CreateCompanyForUser(ctx, company, "owner"))
	require.NoError(t, f.db.SetUserCompany(ctx, "member", company.ID, database.RoleMember))

	w = f.get("/company", ownerTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, company.ID, w.Body.String())

	assert.Equal(t, http.StatusNoContent, f.get("/admin", ownerTok).Code)
	w = f.get("/admin", memberTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, errorx.ErrForbidden.Code, errorCode(t, w))
}

func TestErrorMessagesAreLocalized(t *testing.T) {
	f := newAuthFixture(t)
	en := decodeError(t, f.get("/me", "", "Accept-Language", "en-US"))
	es := decodeError(t, f.get("/me", "", cnst.XLang, "es"))
	assert.Equal(t, "Authentication required", en.Error.Message)
	assert.Equal(t, "Se requiere autenticación", es.Error.Message)
}

func TestRequestID(t *testing.T) {
	f := newAuthFixture(t)
	w := f.get("/me", "", cnst.XRequestID, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(cnst.XRequestID))
	assert.Equal(t, "req-42", decodeError(t, w).Error.TraceID)

	w = f.get("/me", "")
	assert.Len(t, w.Header().Get(cnst.XRequestID), 36)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
