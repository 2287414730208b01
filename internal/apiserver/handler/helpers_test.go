package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/cache"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/middleware"
	"github.com/catalogpilot/catalogpilot/internal/auth/firebase"
	jsvc "github.com/catalogpilot/catalogpilot/internal/auth/jwt"
	"github.com/catalogpilot/catalogpilot/internal/bigcommerce"
	"github.com/catalogpilot/catalogpilot/internal/billing"
	"github.com/catalogpilot/catalogpilot/internal/catalog"
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/dto"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/internal/i18n"
	"github.com/catalogpilot/catalogpilot/internal/mail"
	"github.com/catalogpilot/catalogpilot/internal/session"
	"github.com/catalogpilot/catalogpilot/internal/workorder"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAccount struct {
	uid      string
	password string
	name     string
}

type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password, name string) (*firebase.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return nil, &errorx.ProviderError{Provider: errorx.ProviderFirebase, Code: "EMAIL_EXISTS", HTTPStatus: 400, Kind: errorx.ErrConflict}
	}
	uid := fmt.Sprintf("uid-%d", len(f.accounts)+1)
	f.accounts[email] = fakeAccount{uid: uid, password: password, name: name}
	return &firebase.SignInResult{IDToken: "id-" + uid, LocalID: uid, Email: email, DisplayName: name}, nil
}

func (f *fakeIdentity) SignInWithPassword(_ context.Context, email, password string) (*firebase.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return nil, &errorx.ProviderError{Provider: errorx.ProviderFirebase, Code: "INVALID_LOGIN_CREDENTIALS", HTTPStatus: 400, Kind: errorx.ErrUnauthorized}
	}
	return &firebase.SignInResult{IDToken: "id-" + acc.uid, LocalID: acc.uid, Email: email, DisplayName: acc.name}, nil
}

// VerifyIDToken accepts tokens of the form "valid|uid|email|name"
func (f *fakeIdentity) VerifyIDToken(_ context.Context, token string) (*firebase.Identity, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 4 || parts[0] != "valid" {
		return nil, &errorx.ProviderError{Provider: errorx.ProviderFirebase, Code: "INVALID_ID_TOKEN", HTTPStatus: 401, Kind: errorx.ErrUnauthorized}
	}
	return &firebase.Identity{UID: parts[1], Email: parts[2], Name: parts[3], EmailVerified: true}, nil
}

type fakeCatalog struct {
	mu         sync.Mutex
	categories []bigcommerce.Category
	products   []bigcommerce.Product
	updates    map[int64]bigcommerce.ProductUpdate
	err        error
}

func (f *fakeCatalog) Ping(context.Context) (*bigcommerce.StoreInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &bigcommerce.StoreInfo{ID: "1", Name: "Demo Store", Domain: "demo.example.com"}, nil
}

func (f *fakeCatalog) ListCategories(context.Context) ([]bigcommerce.Category, error) {
	return f.categories, f.err
}

func (f *fakeCatalog) ListProducts(context.Context) ([]bigcommerce.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*bigcommerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, &errorx.ProviderError{Provider: errorx.ProviderBigCommerce, Code: "NOT_FOUND", HTTPStatus: 404, Kind: errorx.ErrNotFound}
}

func (f *fakeCatalog) UpdateProduct(_ context.Context, id int64, upd bigcommerce.ProductUpdate) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = map[int64]bigcommerce.ProductUpdate{}
	}
	f.updates[id] = upd
	for i := range f.products {
		if f.products[i].ID != id {
			continue
		}
		if upd.RegularPrice != nil {
			f.products[i].Price = *upd.RegularPrice
		}
		if upd.SalePrice != nil {
			if upd.SalePrice.Valid {
				f.products[i].SalePrice = upd.SalePrice.Decimal
			} else {
				f.products[i].SalePrice = decimal.Zero
			}
		}
	}
	return nil
}

func (f *fakeCatalog) UpdateProductPrice(ctx context.Context, id int64, upd bigcommerce.PriceUpdate) error {
	return f.UpdateProduct(ctx, id, bigcommerce.ProductUpdate{PriceUpdate: upd})
}

func (f *fakeCatalog) UpdateVariantPrice(context.Context, int64, int64, bigcommerce.PriceUpdate) error {
	return f.err
}

type fakeFactory struct{ catalog *fakeCatalog }

func (f fakeFactory) For(bigcommerce.Credentials) bigcommerce.Catalog { return f.catalog }

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Invitation
	err  error
}

func (m *fakeMailer) SendInvitation(_ context.Context, inv mail.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, inv)
	return m.err
}

type fakeBilling struct {
	db    database.Database
	calls []database.Plan
}

func (b *fakeBilling) Downgrade(ctx context.Context, companyID string) (*database.Company, error) {
	if err := b.db.UpdateCompanyPlan(ctx, companyID, database.PlanFree); err != nil {
		return nil, err
	}
	return b.db.GetCompany(ctx, companyID)
}

func (b *fakeBilling) Checkout(_ context.Context, _, _ string, plan database.Plan) (*billing.CheckoutSession, error) {
	b.calls = append(b.calls, plan)
	if plan == database.PlanFree {
		return nil, errorx.ErrInvalidInput.WithMessage("the free plan needs no checkout")
	}
	return &billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"}, nil
}

type fixture struct {
	db       database.Database
	sessions session.Store
	identity *fakeIdentity
	store    *fakeCatalog
	mailer   *fakeMailer
	billing  *fakeBilling
	jwt      *jsvc.Service
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := database.NewDatabase(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sessions := session.NewDBStore(db, time.Hour, 0, logger)
	t.Cleanup(func() { _ = sessions.Close() })
	js, err := jsvc.NewService(jsvc.Config{SecretKey: "this-is-a-very-long-secret-key-for-testing", Duration: time.Hour})
	require.NoError(t, err)
	tr, err := i18n.New("en", "")
	require.NoError(t, err)
	errs := errorx.NewErrorHandler(logger, tr)

	store := &fakeCatalog{}
	catalogSvc := catalog.NewService(db, fakeFactory{catalog: store},
		cache.NewMultiLayerCache(cache.MultiLayerCacheConfig{}, logger),
		config.CatalogConfig{CategoryCacheTTL: time.Minute, CatchAllNames: []string{"Shop All"}}, nil, logger)

	f := &fixture{
		db:       db,
		sessions: sessions,
		identity: &fakeIdentity{accounts: map[string]fakeAccount{}},
		store:    store,
		mailer:   &fakeMailer{},
		billing:  &fakeBilling{db: db},
		jwt:      js,
	}
	h := New(Deps{
		DB:         db,
		JWT:        js,
		Sessions:   sessions,
		Identity:   f.identity,
		Catalog:    catalogSvc,
		WorkOrders: workorder.NewService(db, catalogSvc, logger),
		Billing:    f.billing,
		Mailer:     f.mailer,
		I18n:       tr,
		Errors:     errs,
		Server:     config.ServerConfig{AppURL: "https://app.example.com/"},
		Invites:    config.InvitationConfig{TTL: 7 * 24 * time.Hour},
		Logger:     logger,
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Language(tr))
	h.Register(r, middleware.NewAuthenticator(js, sessions, db, errs))
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// signup registers an owner and returns their auth response
func (f *fixture) signup(t *testing.T, email, company string) dto.AuthResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":       email,
		"password":    "secret123",
		"firstName":   "Ada",
		"lastName":    "Owner",
		"companyName": company,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.AuthResponse
	decode(t, w, &resp)
	return resp
}

// session signs in a user without a company
func (f *fixture) session(t *testing.T, uid, email string) dto.AuthResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/session", "", gin.H{"idToken": "valid|" + uid + "|" + email + "|Sam Member"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.AuthResponse
	decode(t, w, &resp)
	return resp
}

// connect saves BigCommerce settings for the owner's company
func (f *fixture) connect(t *testing.T, token string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/settings", token, gin.H{"storeHash": "abc123", "accessToken": "token-0123456789"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

type errorBody struct {
	Error struct {
		Code     string         `json:"code"`
		Message  string         `json:"message"`
		Category string         `json:"category"`
		Details  map[string]any `json:"details"`
	} `json:"error"`
}

func apiError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	decode(t, w, &body)
	return body
}
