package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"gorm.io/gorm"
)

const catalogBatchSize = 200

func (d *gormDatabase) ListProducts(ctx context.Context, companyID string, filter ProductFilter) ([]*Product, int64, error) {
	q := d.conn(ctx).Model(&Product{}).Where("company_id = ?", companyID)
	if filter.Category != "" {
		q = q.Where("(category = ? OR category LIKE ? ESCAPE '!')", filter.Category, escapeLike(filter.Category)+" > %")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(sku) LIKE ? ESCAPE '!')", pattern, pattern)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrapErr(err, "count products of company %s", companyID)
	}

	q = q.Order("name asc").Order("id asc")
	if filter.Limit > 0 {
		q = q.Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit)
	}
	var products []*Product
	if err := q.Find(&products).Error; err != nil {
		return nil, 0, wrapErr(err, "list products of company %s", companyID)
	}
	return products, total, nil
}

// escapeLike neutralises LIKE wildcards in user input, using ! as the escape character
func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}

func (d *gormDatabase) GetProduct(ctx context.Context, companyID string, id int64) (*Product, error) {
	var p Product
	db := d.conn(ctx)
	if err := db.Where("company_id = ? AND id = ?", companyID, id).First(&p).Error; err != nil {
		return nil, wrapErr(err, "product %d", id)
	}
	if err := db.Where("company_id = ? AND product_id = ?", companyID, id).
		Order("id asc").Find(&p.Variants).Error; err != nil {
		return nil, wrapErr(err, "variants of product %d", id)
	}
	return &p, nil
}

func (d *gormDatabase) UpdateProduct(ctx context.Context, companyID string, id int64, patch ProductPatch) (*Product, error) {
	fields := map[string]any{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.SKU != nil {
		fields["sku"] = *patch.SKU
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}
	if patch.RegularPrice != nil {
		fields["regular_price"] = *patch.RegularPrice
	}
	if patch.SalePrice != nil {
		fields["sale_price"] = *patch.SalePrice
	}
	if patch.Stock != nil {
		fields["stock"] = *patch.Stock
	}
	if patch.Weight != nil {
		fields["weight"] = *patch.Weight
	}
	if patch.Status != nil {
		fields["status"] = *patch.Status
	}

	err := d.Transaction(ctx, func(ctx context.Context) error {
		tx := d.conn(ctx)
		if err := tx.Where("company_id = ? AND id = ?", companyID, id).First(&Product{}).Error; err != nil {
			return wrapErr(err, "product %d", id)
		}
		if len(fields) == 0 {
			return nil
		}
		fields["last_updated"] = time.Now().UTC()
		return wrapErr(tx.Model(&Product{}).
			Where("company_id = ? AND id = ?", companyID, id).
			Updates(fields).Error, "update product %d", id)
	})
	if err != nil {
		return nil, err
	}
	return d.GetProduct(ctx, companyID, id)
}

func (d *gormDatabase) DeleteProduct(ctx context.Context, companyID string, id int64) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		tx := d.conn(ctx)
		res := tx.Where("company_id = ? AND id = ?", companyID, id).Delete(&Product{})
		if res.Error != nil {
			return wrapErr(res.Error, "delete product %d", id)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product %d: %w", id, errorx.ErrNotFound)
		}
		return wrapErr(tx.Where("company_id = ? AND product_id = ?", companyID, id).
			Delete(&ProductVariant{}).Error, "delete variants of product %d", id)
	})
}

func (d *gormDatabase) ReplaceCatalog(ctx context.Context, companyID string, products []*Product) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		tx := d.conn(ctx)
		if err := tx.Where("company_id = ?", companyID).Delete(&ProductVariant{}).Error; err != nil {
			return wrapErr(err, "clear variants of company %s", companyID)
		}
		if err := tx.Where("company_id = ?", companyID).Delete(&Product{}).Error; err != nil {
			return wrapErr(err, "clear products of company %s", companyID)
		}
		if len(products) == 0 {
			return nil
		}

		var variants []*ProductVariant
		for _, p := range products {
			p.CompanyID = companyID
			for i := range p.Variants {
				v := p.Variants[i]
				v.CompanyID = companyID
				v.ProductID = p.ID
				variants = append(variants, &v)
			}
		}
		if err := tx.CreateInBatches(products, catalogBatchSize).Error; err != nil {
			return wrapErr(err, "insert products of company %s", companyID)
		}
		if len(variants) > 0 {
			if err := tx.CreateInBatches(variants, catalogBatchSize).Error; err != nil {
				return wrapErr(err, "insert variants of company %s", companyID)
			}
		}
		return nil
	})
}

func (d *gormDatabase) UpdateProductPrices(ctx context.Context, companyID string, productID int64, prices PriceChange) error {
	fields := priceFields(prices)
	if len(fields) == 0 {
		return nil
	}
	fields["last_updated"] = time.Now().UTC()
	err := d.conn(ctx).Model(&Product{}).
		Where("company_id = ? AND id = ?", companyID, productID).
		Updates(fields).Error
	return wrapErr(err, "update prices of product %d", productID)
}

func (d *gormDatabase) UpdateVariantPrices(ctx context.Context, companyID string, productID, variantID int64, prices PriceChange) error {
	fields := priceFields(prices)
	if len(fields) == 0 {
		return nil
	}
	err := d.conn(ctx).Model(&ProductVariant{}).
		Where("company_id = ? AND product_id = ? AND id = ?", companyID, productID, variantID).
		Updates(fields).Error
	return wrapErr(err, "update prices of variant %d", variantID)
}

func priceFields(p PriceChange) map[string]any {
	fields := map[string]any{}
	if p.RegularPrice != nil {
		fields["regular_price"] = *p.RegularPrice
	}
	if p.SalePrice != nil {
		fields["sale_price"] = *p.SalePrice
	}
	return fields
}
