package database

import (
	"context"
	"testing"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *gormDatabase {
	t.Helper()
	dbi, err := NewDatabase(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbi.Close() })
	return dbi.(*gormDatabase)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func seedCompany(t *testing.T, db *gormDatabase, userID string) *Company {
	t.Helper()
	ctx := context.Background()
	_, err := db.UpsertUser(ctx, &User{ID: userID, Email: userID + "@example.com"})
	require.NoError(t, err)
	c := &Company{Name: "Company of " + userID}
	require.NoError(t, db.CreateCompanyForUser(ctx, c, userID))
	return c
}

func TestNewDatabase_UnsupportedType(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
}

func TestTransaction_RollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(ctx context.Context) error {
		_, err := db.UpsertUser(ctx, &User{ID: "u1", Email: "u1@example.com"})
		require.NoError(t, err)
		return errorx.ErrConflict
	})
	assert.ErrorIs(t, err, errorx.ErrConflict)

	_, err = db.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := db.UpsertUser(ctx, &User{ID: "uid-1", Email: "a@example.com", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, RoleMember, u.Role)
	assert.True(t, u.IsActive)
	assert.False(t, u.HasCompany())

	c := &Company{Name: "Acme"}
	require.NoError(t, db.CreateCompanyForUser(ctx, c, "uid-1"))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, PlanFree, c.Plan)
	assert.Equal(t, 100, c.ProductLimit)

	// a later login refreshes identity only
	u, err = db.UpsertUser(ctx, &User{ID: "uid-1", Email: "new@example.com", FirstName: "Ada", LastName: "L"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, "L", u.LastName)
	require.True(t, u.HasCompany())
	assert.Equal(t, c.ID, *u.CompanyID)
	assert.Equal(t, RoleOwner, u.Role)

	byEmail, err := db.GetUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", byEmail.ID)

	// a second company for the same user is rejected without side effects
	err = db.CreateCompanyForUser(ctx, &Company{Name: "Other"}, "uid-1")
	assert.ErrorIs(t, err, errorx.ErrAlreadyInCompany)

	_, err = db.UpsertUser(ctx, &User{ID: "uid-2", Email: "new@example.com"})
	assert.ErrorIs(t, err, errorx.ErrConflict)

	users, err := db.ListCompanyUsers(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	assert.ErrorIs(t, db.DeactivateUser(ctx, "other-company", "uid-1"), errorx.ErrNotFound)
	require.NoError(t, db.DeactivateUser(ctx, c.ID, "uid-1"))
	u, err = db.GetUser(ctx, "uid-1")
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	assert.ErrorIs(t, db.SetUserCompany(ctx, "ghost", c.ID, RoleMember), errorx.ErrNotFound)
}

func TestCompanies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedCompany(t, db, "owner")

	require.NoError(t, db.UpdateCompanyPlan(ctx, c.ID, PlanPro))
	require.NoError(t, db.SetStripeCustomerID(ctx, c.ID, "cus_123"))
	got, err := db.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, PlanPro, got.Plan)
	assert.Equal(t, 10000, got.ProductLimit)
	assert.Equal(t, "cus_123", got.StripeCustomerID)

	assert.ErrorIs(t, db.UpdateCompanyPlan(ctx, c.ID, "gold"), errorx.ErrInvalidInput)
	assert.ErrorIs(t, db.UpdateCompanyPlan(ctx, "missing", PlanPro), errorx.ErrNotFound)
}

func TestAPISettings_Upsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetAPISettings(ctx, "c1")
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	first, err := db.SaveAPISettings(ctx, &APISettings{CompanyID: "c1", StoreHash: "abc", AccessToken: "t1"})
	require.NoError(t, err)
	require.NoError(t, db.TouchLastSync(ctx, "c1", time.Now()))

	second, err := db.SaveAPISettings(ctx, &APISettings{CompanyID: "c1", StoreHash: "def", AccessToken: "t2", ShowStock: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "def", second.StoreHash)
	assert.Equal(t, "t2", second.AccessToken)
	assert.True(t, second.ShowStock)
	assert.NotNil(t, second.LastSyncAt, "upsert keeps last sync time")

	var count int64
	require.NoError(t, db.db.Model(&APISettings{}).Where("company_id = ?", "c1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.SaveSession(ctx, &Session{ID: "live", UserID: "u", Data: map[string]any{"ip": "1.1.1.1"}, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, db.SaveSession(ctx, &Session{ID: "old", UserID: "u", ExpiresAt: now.Add(-time.Hour)}))

	s, err := db.GetSession(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", s.Data["ip"])

	_, err = db.GetSession(ctx, "old", now)
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	n, err := db.PurgeExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, db.DeleteSession(ctx, "live"))
	assert.ErrorIs(t, db.DeleteSession(ctx, "live"), errorx.ErrNotFound)
}
