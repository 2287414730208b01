package workorder

import (
	"context"
	"sync"
	"testing"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/bigcommerce"
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// fakeStore is an in-memory BigCommerce catalog
type fakeStore struct {
	mu       sync.Mutex
	products map[int64]*bigcommerce.Product
	failOn   map[int64]error
	writes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[int64]*bigcommerce.Product{
			1: {ID: 1, Name: "Bucket", Price: dec("100"), Variants: []bigcommerce.Variant{
				{ID: 11, ProductID: 1, Price: decimal.NewNullDecimal(dec("110"))},
			}},
			2: {ID: 2, Name: "Shovel", Price: dec("20"), SalePrice: dec("18")},
		},
		failOn: map[int64]error{},
	}
}

func (f *fakeStore) Ping(context.Context) (*bigcommerce.StoreInfo, error) {
	return &bigcommerce.StoreInfo{}, nil
}

func (f *fakeStore) ListCategories(context.Context) ([]bigcommerce.Category, error) { return nil, nil }

func (f *fakeStore) ListProducts(context.Context) ([]bigcommerce.Product, error) { return nil, nil }

func (f *fakeStore) GetProduct(_ context.Context, id int64) (*bigcommerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, &errorx.ProviderError{Provider: errorx.ProviderBigCommerce, Code: "NOT_FOUND", HTTPStatus: 404, Message: "product not found"}
	}
	cp := *p
	cp.Variants = append([]bigcommerce.Variant(nil), p.Variants...)
	return &cp, nil
}

func (f *fakeStore) UpdateProduct(ctx context.Context, id int64, upd bigcommerce.ProductUpdate) error {
	return f.UpdateProductPrice(ctx, id, upd.PriceUpdate)
}

func (f *fakeStore) UpdateProductPrice(_ context.Context, id int64, upd bigcommerce.PriceUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[id]; err != nil {
		return err
	}
	p := f.products[id]
	if upd.RegularPrice != nil {
		p.Price = *upd.RegularPrice
	}
	if upd.SalePrice != nil {
		p.SalePrice = upd.SalePrice.Decimal
	}
	f.writes++
	return nil
}

func (f *fakeStore) UpdateVariantPrice(_ context.Context, productID, variantID int64, upd bigcommerce.PriceUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[productID]; err != nil {
		return err
	}
	for i := range f.products[productID].Variants {
		v := &f.products[productID].Variants[i]
		if v.ID != variantID {
			continue
		}
		switch {
		case upd.InheritPrice:
			v.Price = decimal.NullDecimal{}
		case upd.RegularPrice != nil:
			v.Price = decimal.NewNullDecimal(*upd.RegularPrice)
		}
		if upd.SalePrice != nil {
			v.SalePrice = *upd.SalePrice
		}
	}
	f.writes++
	return nil
}

func (f *fakeStore) price(id int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Price
}

func (f *fakeStore) variant(productID, variantID int64) bigcommerce.Variant {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.products[productID].Variants {
		if v.ID == variantID {
			return v
		}
	}
	return bigcommerce.Variant{}
}

// start claims a pending order the way the executor does
func (f *fixture) start(t *testing.T, companyID, id string) {
	t.Helper()
	_, err := f.db.TransitionWorkOrder(context.Background(), companyID, id, database.Transition{
		From: database.StatusPending,
		To:   database.StatusExecuting,
	})
	require.NoError(t, err)
}

// fakeClients serves one store per connected company
type fakeClients struct {
	stores map[string]*fakeStore
}

func (c *fakeClients) Client(_ context.Context, companyID string) (bigcommerce.Catalog, error) {
	s, ok := c.stores[companyID]
	if !ok {
		return nil, errorx.ErrNotConnected
	}
	return s, nil
}

type fixture struct {
	db      database.Database
	svc     *Service
	clients *fakeClients
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	clients := &fakeClients{stores: map[string]*fakeStore{}}
	return &fixture{db: db, svc: NewService(db, clients, zap.NewNop()), clients: clients}
}

// company creates a company and, when connected, a fake store with mirrored products
func (f *fixture) company(t *testing.T, userID string, connected bool) (string, *fakeStore) {
	t.Helper()
	ctx := context.Background()
	_, err := f.db.UpsertUser(ctx, &database.User{ID: userID, Email: userID + "@example.com"})
	require.NoError(t, err)
	c := &database.Company{Name: userID + " inc"}
	require.NoError(t, f.db.CreateCompanyForUser(ctx, c, userID))
	if !connected {
		return c.ID, nil
	}

	store := newFakeStore()
	f.clients.stores[c.ID] = store
	require.NoError(t, f.db.ReplaceCatalog(ctx, c.ID, []*database.Product{
		{ID: 1, Name: "Bucket", RegularPrice: dec("100"), Status: database.ProductActive,
			Variants: []database.ProductVariant{{ID: 11, RegularPrice: dec("110")}}},
		{ID: 2, Name: "Shovel", RegularPrice: dec("20"), SalePrice: decimal.NewNullDecimal(dec("18")), Status: database.ProductActive},
	}))
	return c.ID, store
}

func priceUpdates() []database.ProductUpdate {
	return []database.ProductUpdate{
		{ProductID: 1, RegularPrice: decPtr("120"), VariantUpdates: []database.VariantUpdate{{VariantID: 11, RegularPrice: decPtr("130")}}},
		{ProductID: 2, SalePrice: decPtr("0")},
	}
}
