package database

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
)

func (d *gormDatabase) CreateInvitation(ctx context.Context, inv *CompanyInvitation) error {
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	return wrapErr(d.conn(ctx).Create(inv).Error, "create invitation for %s", inv.Email)
}

func (d *gormDatabase) GetInvitation(ctx context.Context, token string) (*CompanyInvitation, error) {
	var inv CompanyInvitation
	if err := d.conn(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, wrapErr(err, "invitation")
	}
	return &inv, nil
}

func (d *gormDatabase) ListInvitations(ctx context.Context, companyID string) ([]*CompanyInvitation, error) {
	var invs []*CompanyInvitation
	err := d.conn(ctx).Where("company_id = ?", companyID).Order("created_at desc").Find(&invs).Error
	return invs, wrapErr(err, "list invitations of company %s", companyID)
}

// RedeemInvitation claims the invitation with a conditional update so that
// only one of several concurrent redemptions succeeds. Owners of another
// company and existing members are rejected and the claim rolls back.
func (d *gormDatabase) RedeemInvitation(ctx context.Context, token, userID string, now time.Time) (*CompanyInvitation, error) {
	now = now.UTC()
	var redeemed *CompanyInvitation
	err := d.Transaction(ctx, func(ctx context.Context) error {
		tx := d.conn(ctx)
		res := tx.Model(&CompanyInvitation{}).
			Where("token = ? AND accepted_at IS NULL AND expires_at > ?", token, now).
			Update("accepted_at", now)
		if res.Error != nil {
			return wrapErr(res.Error, "redeem invitation")
		}
		if res.RowsAffected == 0 {
			inv, err := d.GetInvitation(ctx, token)
			if err != nil {
				return err
			}
			if inv.AcceptedAt != nil {
				return errorx.ErrInvitationAccepted
			}
			return errorx.ErrInvitationExpired
		}

		inv, err := d.GetInvitation(ctx, token)
		if err != nil {
			return err
		}
		user, err := d.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.HasCompany() {
			switch {
			case *user.CompanyID == inv.CompanyID:
				return errorx.ErrAlreadyInCompany
			case user.Role == RoleOwner:
				// leaving would orphan the owner's company
				return errorx.ErrOwnerCannotLeave
			}
		}
		if err := d.SetUserCompany(ctx, userID, inv.CompanyID, inv.Role); err != nil {
			return fmt.Errorf("join company: %w", err)
		}
		redeemed = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redeemed, nil
}
