package database

import (
	"context"
	"fmt"

	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"gorm.io/datatypes"
)

func (d *gormDatabase) CreateWorkOrder(ctx context.Context, order *WorkOrder) error {
	return wrapErr(d.conn(ctx).Create(order).Error, "create work order")
}

func (d *gormDatabase) GetWorkOrder(ctx context.Context, companyID, id string) (*WorkOrder, error) {
	var order WorkOrder
	if err := d.conn(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&order).Error; err != nil {
		return nil, wrapErr(err, "work order %s", id)
	}
	return &order, nil
}

func (d *gormDatabase) ListWorkOrders(ctx context.Context, companyID string, filter WorkOrderFilter) ([]*WorkOrder, error) {
	q := d.conn(ctx).Where("company_id = ?", companyID)
	if filter.Archived != nil {
		q = q.Where("archived = ?", *filter.Archived)
	}
	var orders []*WorkOrder
	err := q.Order("created_at desc").Order("id desc").Find(&orders).Error
	return orders, wrapErr(err, "list work orders of company %s", companyID)
}

func (d *gormDatabase) UpdateWorkOrder(ctx context.Context, companyID, id string, patch WorkOrderPatch) (*WorkOrder, error) {
	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.ProductUpdates != nil {
		fields["product_updates"] = datatypes.JSONSlice[ProductUpdate](patch.ProductUpdates)
	}
	if patch.ClearSchedule {
		fields["scheduled_at"] = nil
	} else if patch.ScheduledAt != nil {
		fields["scheduled_at"] = patch.ScheduledAt.UTC()
	}
	if patch.ExecuteImmediately != nil {
		fields["execute_immediately"] = *patch.ExecuteImmediately
	}

	err := d.Transaction(ctx, func(ctx context.Context) error {
		current, err := d.GetWorkOrder(ctx, companyID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPending {
			return fmt.Errorf("work order %s is %s: %w", id, current.Status, errorx.ErrWorkOrderNotPending)
		}
		if len(fields) == 0 {
			return nil
		}
		res := d.conn(ctx).Model(&WorkOrder{}).
			Where("company_id = ? AND id = ? AND status = ?", companyID, id, StatusPending).
			Updates(fields)
		if res.Error != nil {
			return wrapErr(res.Error, "update work order %s", id)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("work order %s: %w", id, errorx.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.GetWorkOrder(ctx, companyID, id)
}

func (d *gormDatabase) TransitionWorkOrder(ctx context.Context, companyID, id string, t Transition) (*WorkOrder, error) {
	fields := map[string]any{"status": t.To}
	if t.OriginalPrices != nil {
		fields["original_prices"] = datatypes.JSONSlice[PriceSnapshot](t.OriginalPrices)
	}
	if t.ExecutedAt != nil {
		fields["executed_at"] = t.ExecutedAt.UTC()
	}
	if t.UndoneAt != nil {
		fields["undone_at"] = t.UndoneAt.UTC()
	}
	if t.Error != nil {
		fields["error"] = *t.Error
	}

	res := d.conn(ctx).Model(&WorkOrder{}).
		Where("company_id = ? AND id = ? AND status = ?", companyID, id, t.From).
		Updates(fields)
	if res.Error != nil {
		return nil, wrapErr(res.Error, "transition work order %s", id)
	}
	if res.RowsAffected == 0 {
		current, err := d.GetWorkOrder(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("work order %s is %s, not %s: %w", id, current.Status, t.From, errorx.ErrConflict)
	}
	return d.GetWorkOrder(ctx, companyID, id)
}

func (d *gormDatabase) DeletePendingWorkOrder(ctx context.Context, companyID, id string) error {
	res := d.conn(ctx).
		Where("company_id = ? AND id = ? AND status = ?", companyID, id, StatusPending).
		Delete(&WorkOrder{})
	if res.Error != nil {
		return wrapErr(res.Error, "delete work order %s", id)
	}
	if res.RowsAffected == 0 {
		current, err := d.GetWorkOrder(ctx, companyID, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("work order %s is %s: %w", id, current.Status, errorx.ErrWorkOrderNotPending)
	}
	return nil
}

// SetWorkOrderArchived writes only the archived column, leaving updated_at alone
func (d *gormDatabase) SetWorkOrderArchived(ctx context.Context, companyID, id string, archived bool) (*WorkOrder, error) {
	err := d.conn(ctx).Model(&WorkOrder{}).
		Where("company_id = ? AND id = ?", companyID, id).
		UpdateColumn("archived", archived).Error
	if err != nil {
		return nil, wrapErr(err, "archive work order %s", id)
	}
	return d.GetWorkOrder(ctx, companyID, id)
}

func (d *gormDatabase) ListPendingWorkOrders(ctx context.Context) ([]*WorkOrder, error) {
	var orders []*WorkOrder
	err := d.conn(ctx).Where("status = ?", StatusPending).
		Order("created_at asc").Order("id asc").
		Find(&orders).Error
	return orders, wrapErr(err, "list pending work orders")
}
