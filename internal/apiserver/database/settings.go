package database

import (
	"context"
	"time"

	"gorm.io/gorm/clause"
)

func (d *gormDatabase) GetAPISettings(ctx context.Context, companyID string) (*APISettings, error) {
	var s APISettings
	if err := d.conn(ctx).Where("company_id = ?", companyID).First(&s).Error; err != nil {
		return nil, wrapErr(err, "api settings of company %s", companyID)
	}
	return &s, nil
}

func (d *gormDatabase) SaveAPISettings(ctx context.Context, settings *APISettings) (*APISettings, error) {
	row := *settings
	row.ID = 0
	err := d.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"store_hash", "access_token", "client_id", "show_stock", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, wrapErr(err, "save api settings of company %s", settings.CompanyID)
	}
	return d.GetAPISettings(ctx, settings.CompanyID)
}

func (d *gormDatabase) TouchLastSync(ctx context.Context, companyID string, at time.Time) error {
	err := d.conn(ctx).Model(&APISettings{}).
		Where("company_id = ?", companyID).
		Update("last_sync_at", at.UTC()).Error
	return wrapErr(err, "touch last sync of company %s", companyID)
}
