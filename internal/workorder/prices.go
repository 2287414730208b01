package workorder

import (
	"context"
	"fmt"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/bigcommerce"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/shopspring/decimal"
)

// Clients resolves the BigCommerce client of a company
type Clients interface {
	Client(ctx context.Context, companyID string) (bigcommerce.Catalog, error)
}

// pricer applies work order prices upstream and mirrors them into the local catalog
type pricer struct {
	db      database.Database
	clients Clients
}

// snapshot reads the current upstream prices of everything the updates touch
func (p *pricer) snapshot(ctx context.Context, client bigcommerce.Catalog, updates []database.ProductUpdate) ([]database.PriceSnapshot, error) {
	fetched := make(map[int64]*bigcommerce.Product, len(updates))
	var out []database.PriceSnapshot
	for _, u := range updates {
		prod, ok := fetched[u.ProductID]
		if !ok {
			var err error
			if prod, err = client.GetProduct(ctx, u.ProductID); err != nil {
				return nil, err
			}
			fetched[u.ProductID] = prod
		}

		if u.RegularPrice != nil || u.SalePrice != nil {
			snap := database.PriceSnapshot{ProductID: prod.ID, RegularPrice: decimal.NewNullDecimal(prod.Price)}
			if prod.OnSale() {
				snap.SalePrice = decimal.NewNullDecimal(prod.SalePrice)
			}
			out = append(out, snap)
		}
		for _, vu := range u.VariantUpdates {
			v := findVariant(prod, vu.VariantID)
			if v == nil {
				return nil, errorx.ErrInvalidInput.WithMessagef("variant %d does not exist on product %d", vu.VariantID, u.ProductID)
			}
			snap := database.PriceSnapshot{
				ProductID:       prod.ID,
				VariantID:       v.ID,
				RegularPrice:    v.Price,
				CalculatedPrice: decimal.NewNullDecimal(v.EffectivePrice()),
			}
			if v.SalePrice.Valid && v.SalePrice.Decimal.IsPositive() {
				snap.SalePrice = v.SalePrice
			}
			out = append(out, snap)
		}
	}
	return out, nil
}

func findVariant(p *bigcommerce.Product, id int64) *bigcommerce.Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// saleChange maps a requested sale price to an upstream value; zero clears the sale
func saleChange(sale *decimal.Decimal) *decimal.NullDecimal {
	if sale == nil {
		return nil
	}
	nd := decimal.NullDecimal{}
	if sale.IsPositive() {
		nd = decimal.NewNullDecimal(*sale)
	}
	return &nd
}

// apply pushes every update upstream in order, mirroring each success locally
func (p *pricer) apply(ctx context.Context, client bigcommerce.Catalog, companyID string, updates []database.ProductUpdate) error {
	for _, u := range updates {
		if u.RegularPrice != nil || u.SalePrice != nil {
			change := bigcommerce.PriceUpdate{RegularPrice: u.RegularPrice, SalePrice: saleChange(u.SalePrice)}
			if err := client.UpdateProductPrice(ctx, u.ProductID, change); err != nil {
				return err
			}
			if err := p.db.UpdateProductPrices(ctx, companyID, u.ProductID, mirror(change)); err != nil {
				return err
			}
		}
		for _, vu := range u.VariantUpdates {
			change := bigcommerce.PriceUpdate{RegularPrice: vu.RegularPrice, SalePrice: saleChange(vu.SalePrice)}
			if change.IsEmpty() {
				continue
			}
			if err := client.UpdateVariantPrice(ctx, u.ProductID, vu.VariantID, change); err != nil {
				return err
			}
			if err := p.db.UpdateVariantPrices(ctx, companyID, u.ProductID, vu.VariantID, mirror(change)); err != nil {
				return err
			}
		}
	}
	return nil
}

// restore writes snapshot prices back upstream and locally. A variant that
// inherited the product price is nulled upstream and mirrored at its
// calculated price.
func (p *pricer) restore(ctx context.Context, client bigcommerce.Catalog, companyID string, snaps []database.PriceSnapshot) error {
	for _, s := range snaps {
		sale := s.SalePrice
		change := bigcommerce.PriceUpdate{SalePrice: &sale}
		if s.RegularPrice.Valid {
			regular := s.RegularPrice.Decimal
			change.RegularPrice = &regular
		}
		if s.VariantID == 0 {
			if err := client.UpdateProductPrice(ctx, s.ProductID, change); err != nil {
				return fmt.Errorf("restore product %d: %w", s.ProductID, err)
			}
			if err := p.db.UpdateProductPrices(ctx, companyID, s.ProductID, mirror(change)); err != nil {
				return err
			}
			continue
		}

		local := mirror(change)
		if !s.RegularPrice.Valid {
			change.InheritPrice = true
			calculated := s.CalculatedPrice.Decimal
			local.RegularPrice = &calculated
		}
		if err := client.UpdateVariantPrice(ctx, s.ProductID, s.VariantID, change); err != nil {
			return fmt.Errorf("restore variant %d of product %d: %w", s.VariantID, s.ProductID, err)
		}
		if err := p.db.UpdateVariantPrices(ctx, companyID, s.ProductID, s.VariantID, local); err != nil {
			return err
		}
	}
	return nil
}

// mirror is the local catalog counterpart of an upstream price update
func mirror(u bigcommerce.PriceUpdate) database.PriceChange {
	return database.PriceChange{RegularPrice: u.RegularPrice, SalePrice: u.SalePrice}
}
