package database

import (
	"context"

	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
)

func (d *gormDatabase) CreateCompanyForUser(ctx context.Context, company *Company, userID string) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		tx := d.conn(ctx)
		if err := tx.Create(company).Error; err != nil {
			return wrapErr(err, "create company")
		}
		res := tx.Model(&User{}).
			Where("id = ? AND (company_id IS NULL OR company_id = '')", userID).
			Updates(map[string]any{"company_id": company.ID, "role": RoleOwner})
		if res.Error != nil {
			return wrapErr(res.Error, "assign owner %s", userID)
		}
		if res.RowsAffected == 0 {
			if _, err := d.GetUser(ctx, userID); err != nil {
				return err
			}
			return errorx.ErrAlreadyInCompany
		}
		return nil
	})
}

func (d *gormDatabase) GetCompany(ctx context.Context, id string) (*Company, error) {
	var company Company
	if err := d.conn(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return nil, wrapErr(err, "company %s", id)
	}
	return &company, nil
}

func (d *gormDatabase) UpdateCompanyPlan(ctx context.Context, id string, plan Plan) error {
	if !plan.Valid() {
		return errorx.ErrInvalidInput.WithMessagef("unknown plan %q", plan)
	}
	return d.updateCompany(ctx, id, map[string]any{"plan": plan, "product_limit": plan.ProductLimit()})
}

func (d *gormDatabase) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	return d.updateCompany(ctx, id, map[string]any{"stripe_customer_id": customerID})
}

func (d *gormDatabase) updateCompany(ctx context.Context, id string, fields map[string]any) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		tx := d.conn(ctx)
		if err := tx.Where("id = ?", id).First(&Company{}).Error; err != nil {
			return wrapErr(err, "company %s", id)
		}
		return wrapErr(tx.Model(&Company{}).Where("id = ?", id).Updates(fields).Error, "update company %s", id)
	})
}
