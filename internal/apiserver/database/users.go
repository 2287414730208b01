package database

import (
	"context"
	"fmt"

	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"gorm.io/gorm/clause"
)

func (d *gormDatabase) UpsertUser(ctx context.Context, user *User) (*User, error) {
	if user.ID == "" {
		return nil, errorx.ErrInvalidInput.WithMessage("user id is required")
	}
	user.IsActive = true
	err := d.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return nil, wrapErr(err, "upsert user %s", user.ID)
	}
	return d.GetUser(ctx, user.ID)
}

func (d *gormDatabase) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	if err := d.conn(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrapErr(err, "user %s", id)
	}
	return &user, nil
}

func (d *gormDatabase) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := d.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrapErr(err, "user %s", email)
	}
	return &user, nil
}

func (d *gormDatabase) SetUserCompany(ctx context.Context, userID, companyID string, role Role) error {
	res := d.conn(ctx).Model(&User{}).Where("id = ?", userID).
		Updates(map[string]any{"company_id": companyID, "role": role})
	if res.Error != nil {
		return wrapErr(res.Error, "set company of user %s", userID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, errorx.ErrNotFound)
	}
	return nil
}

func (d *gormDatabase) ListCompanyUsers(ctx context.Context, companyID string) ([]*User, error) {
	var users []*User
	err := d.conn(ctx).Where("company_id = ?", companyID).Order("created_at asc").Find(&users).Error
	return users, wrapErr(err, "list users of company %s", companyID)
}

func (d *gormDatabase) DeactivateUser(ctx context.Context, companyID, userID string) error {
	res := d.conn(ctx).Model(&User{}).
		Where("company_id = ? AND id = ?", companyID, userID).
		Update("is_active", false)
	if res.Error != nil {
		return wrapErr(res.Error, "deactivate user %s", userID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, errorx.ErrNotFound)
	}
	return nil
}
