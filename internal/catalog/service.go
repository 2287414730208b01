// Package catalog keeps the local product mirror in step with BigCommerce.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/cache"
	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/bigcommerce"
	"github.com/catalogpilot/catalogpilot/internal/catalog/category"
	"github.com/catalogpilot/catalogpilot/internal/common/cnst"
	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/pkg/metrics"
	"github.com/catalogpilot/catalogpilot/pkg/trace"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ClientFactory returns a catalog client for one store
type ClientFactory interface {
	For(creds bigcommerce.Credentials) bigcommerce.Catalog
}

// SyncResult summarises one catalog sync
type SyncResult struct {
	Products   int       `json:"products"`
	Variants   int       `json:"variants"`
	Categories int       `json:"categories"`
	Upstream   int       `json:"upstream"`
	Truncated  bool      `json:"truncated"`
	SyncedAt   time.Time `json:"syncedAt"`
}

type Service struct {
	db        database.Database
	clients   ClientFactory
	cache     cache.Cache
	cacheTTL  time.Duration
	fallbacks category.Fallbacks
	catchAll  []string
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(db database.Database, clients ClientFactory, c cache.Cache, cfg config.CatalogConfig, m *metrics.Metrics, logger *zap.Logger) *Service {
	extra := make(category.Fallbacks, len(cfg.CategoryFallbacks))
	for _, fb := range cfg.CategoryFallbacks {
		extra[fb.ID] = category.Fallback{Name: fb.Name, ParentID: fb.ParentID}
	}
	return &Service{
		db:        db,
		clients:   clients,
		cache:     c,
		cacheTTL:  cfg.CategoryCacheTTL,
		fallbacks: category.DefaultFallbacks().Merge(extra),
		catchAll:  cfg.CatchAllNames,
		metrics:   m,
		logger:    logger.Named("catalog"),
		now:       time.Now,
	}
}

// Client returns the BigCommerce client for a company's saved credentials
func (s *Service) Client(ctx context.Context, companyID string) (bigcommerce.Catalog, error) {
	settings, err := s.db.GetAPISettings(ctx, companyID)
	if errors.Is(err, errorx.ErrNotFound) {
		return nil, errorx.ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	return s.clients.For(bigcommerce.Credentials{StoreHash: settings.StoreHash, AccessToken: settings.AccessToken}), nil
}

// TestConnection checks the saved credentials against the store
func (s *Service) TestConnection(ctx context.Context, companyID string) (*bigcommerce.StoreInfo, error) {
	client, err := s.Client(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return client.Ping(ctx)
}

// TestCredentials checks credentials that have not been saved yet
func (s *Service) TestCredentials(ctx context.Context, creds bigcommerce.Credentials) (*bigcommerce.StoreInfo, error) {
	return s.clients.For(creds).Ping(ctx)
}

func (s *Service) reconstructor(categories []bigcommerce.Category) *category.Reconstructor {
	cats := make([]category.Category, len(categories))
	for i, c := range categories {
		cats[i] = category.Category{ID: c.ID, Name: c.Name, ParentID: c.ParentID}
	}
	return category.NewReconstructor(cats, s.fallbacks, s.catchAll...)
}

// Sync replaces the company's products with the upstream catalog
func (s *Service) Sync(ctx context.Context, companyID string) (res *SyncResult, err error) {
	start := time.Now()
	span := trace.Start(ctx, cnst.TraceCatalog, "catalog.sync", attribute.String(cnst.AttrCompanyID, companyID))
	ctx = span.Ctx
	defer func() {
		status := metrics.SyncSuccess
		products := 0
		if err != nil {
			status = metrics.SyncError
		} else {
			products = res.Products
		}
		s.metrics.SyncDone(companyID, status, products, start)
		span.End(err)
	}()

	company, err := s.db.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	client, err := s.Client(ctx, companyID)
	if err != nil {
		return nil, err
	}

	var (
		categories []bigcommerce.Category
		upstream   []bigcommerce.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = client.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		upstream, err = client.ListProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	rec := s.reconstructor(categories)
	res = &SyncResult{Categories: len(categories), Upstream: len(upstream)}
	if company.ProductLimit > 0 && len(upstream) > company.ProductLimit {
		upstream = upstream[:company.ProductLimit]
		res.Truncated = true
	}

	now := s.now().UTC()
	products := make([]*database.Product, 0, len(upstream))
	for i := range upstream {
		p := toProduct(&upstream[i], rec, now)
		res.Variants += len(p.Variants)
		products = append(products, p)
	}

	err = s.db.Transaction(ctx, func(ctx context.Context) error {
		if err := s.db.ReplaceCatalog(ctx, companyID, products); err != nil {
			return err
		}
		return s.db.TouchLastSync(ctx, companyID, now)
	})
	if err != nil {
		return nil, err
	}
	res.Products = len(products)
	res.SyncedAt = now

	if s.cache != nil {
		if err := s.cache.Set(ctx, categoriesKey(companyID), rec.All(), s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache category paths", zap.String("company_id", companyID), zap.Error(err))
		}
	}
	s.logger.Info("catalog synced",
		zap.String("company_id", companyID),
		zap.Int("products", res.Products),
		zap.Int("variants", res.Variants),
		zap.Int("categories", res.Categories),
		zap.Bool("truncated", res.Truncated))
	return res, nil
}

func categoriesKey(companyID string) string {
	return "categories:" + companyID
}

// Categories returns the flattened category paths of the company's store
func (s *Service) Categories(ctx context.Context, companyID string) ([]string, error) {
	key := categoriesKey(companyID)
	if s.cache != nil {
		var paths []string
		if ok, err := s.cache.Get(ctx, key, &paths); err == nil && ok {
			return paths, nil
		} else if err != nil {
			s.logger.Warn("category cache lookup failed", zap.Error(err))
		}
	}

	client, err := s.Client(ctx, companyID)
	if err != nil {
		return nil, err
	}
	categories, err := client.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	paths := s.reconstructor(categories).All()
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, paths, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache category paths", zap.Error(err))
		}
	}
	return paths, nil
}

// InvalidateCategories drops the cached paths, e.g. after credentials change
func (s *Service) InvalidateCategories(ctx context.Context, companyID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, categoriesKey(companyID)); err != nil {
		s.logger.Warn("failed to drop category cache", zap.String("company_id", companyID), zap.Error(err))
	}
}

// UpdateProduct pushes an edit upstream first and then stores it locally.
// Category is local only.
func (s *Service) UpdateProduct(ctx context.Context, companyID string, id int64, patch database.ProductPatch) (*database.Product, error) {
	if patch.IsEmpty() {
		return nil, errorx.ErrInvalidInput.WithMessage("no product fields to update")
	}
	if _, err := s.db.GetProduct(ctx, companyID, id); err != nil {
		return nil, err
	}

	upd := bigcommerce.ProductUpdate{
		Name:           patch.Name,
		SKU:            patch.SKU,
		Description:    patch.Description,
		InventoryLevel: patch.Stock,
		Weight:         patch.Weight,
		PriceUpdate: bigcommerce.PriceUpdate{
			RegularPrice: patch.RegularPrice,
			SalePrice:    patch.SalePrice,
		},
	}
	if patch.Status != nil {
		visible := *patch.Status == database.ProductActive
		upd.IsVisible = &visible
	}
	if upstreamFields(upd) {
		client, err := s.Client(ctx, companyID)
		if err != nil {
			return nil, err
		}
		if err := client.UpdateProduct(ctx, id, upd); err != nil {
			return nil, err
		}
	}
	return s.db.UpdateProduct(ctx, companyID, id, patch)
}

func upstreamFields(u bigcommerce.ProductUpdate) bool {
	return u.Name != nil || u.SKU != nil || u.Description != nil || u.InventoryLevel != nil ||
		u.Weight != nil || u.IsVisible != nil || !u.PriceUpdate.IsEmpty()
}

func toProduct(p *bigcommerce.Product, rec *category.Reconstructor, now time.Time) *database.Product {
	out := &database.Product{
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		Description:  p.Description,
		Category:     rec.Best(p.Categories),
		RegularPrice: p.Price,
		Stock:        p.InventoryLevel,
		Weight:       p.Weight,
		Status:       database.ProductHidden,
		LastUpdated:  now,
	}
	if p.IsVisible {
		out.Status = database.ProductActive
	}
	if p.OnSale() {
		out.SalePrice = decimal.NewNullDecimal(p.SalePrice)
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		pv := database.ProductVariant{
			ID:           v.ID,
			SKU:          v.SKU,
			OptionValues: v.OptionsLabel(),
			RegularPrice: v.EffectivePrice(),
			Stock:        v.InventoryLevel,
			Weight:       v.Weight.Decimal,
		}
		if v.SalePrice.Valid && v.SalePrice.Decimal.IsPositive() {
			pv.SalePrice = v.SalePrice
		}
		out.Variants = append(out.Variants, pv)
	}
	return out
}
