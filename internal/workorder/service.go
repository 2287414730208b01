// Package workorder manages batched price change jobs and their execution.
package workorder

import (
	"context"
	"strings"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateInput holds the fields of a new work order
type CreateInput struct {
	Title              string
	ProductUpdates     []database.ProductUpdate
	ScheduledAt        *time.Time
	ExecuteImmediately bool
}

// UpdateInput is a partial update; nil fields are left unchanged.
// Content fields may only change while the order is pending.
type UpdateInput struct {
	Title              *string
	ProductUpdates     []database.ProductUpdate
	ScheduledAt        *time.Time
	ClearSchedule      bool
	ExecuteImmediately *bool
	Status             *database.WorkOrderStatus
}

func (in UpdateInput) hasContent() bool {
	return in.Title != nil || in.ProductUpdates != nil || in.ScheduledAt != nil ||
		in.ClearSchedule || in.ExecuteImmediately != nil
}

type Service struct {
	db     database.Database
	pricer *pricer
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db database.Database, clients Clients, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		pricer: &pricer{db: db, clients: clients},
		logger: logger.Named("workorder"),
		now:    time.Now,
	}
}

// ValidateUpdates checks the product updates of a work order
func ValidateUpdates(updates []database.ProductUpdate) error {
	if len(updates) == 0 {
		return errorx.ErrEmptyProductUpdates
	}
	for i, u := range updates {
		if u.ProductID <= 0 {
			return errorx.ErrInvalidInput.WithMessagef("productUpdates[%d]: productId must be positive", i)
		}
		if !u.HasPriceChange() {
			return errorx.ErrInvalidInput.WithMessagef("productUpdates[%d]: no new price for product %d", i, u.ProductID)
		}
		if negative(u.RegularPrice) || negative(u.SalePrice) {
			return errorx.ErrInvalidInput.WithMessagef("productUpdates[%d]: prices cannot be negative", i)
		}
		for j, v := range u.VariantUpdates {
			if v.VariantID <= 0 {
				return errorx.ErrInvalidInput.WithMessagef("productUpdates[%d].variantUpdates[%d]: variantId must be positive", i, j)
			}
			if negative(v.RegularPrice) || negative(v.SalePrice) {
				return errorx.ErrInvalidInput.WithMessagef("productUpdates[%d].variantUpdates[%d]: prices cannot be negative", i, j)
			}
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, companyID, userID string, in CreateInput) (*database.WorkOrder, error) {
	if err := ValidateUpdates(in.ProductUpdates); err != nil {
		return nil, err
	}
	order := &database.WorkOrder{
		CompanyID:          companyID,
		CreatedBy:          userID,
		Title:              strings.TrimSpace(in.Title),
		ProductUpdates:     in.ProductUpdates,
		ScheduledAt:        utc(in.ScheduledAt),
		ExecuteImmediately: in.ExecuteImmediately,
		Status:             database.StatusPending,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.db.CreateWorkOrder(ctx, order); err != nil {
		return nil, err
	}
	s.logger.Info("work order created",
		zap.String("company_id", companyID),
		zap.String("work_order_id", order.ID),
		zap.Int("products", len(order.ProductUpdates)),
		zap.Bool("immediate", order.ExecuteImmediately))
	return order, nil
}

func (s *Service) List(ctx context.Context, companyID string, archived *bool) ([]*database.WorkOrder, error) {
	return s.db.ListWorkOrders(ctx, companyID, database.WorkOrderFilter{Archived: archived})
}

func (s *Service) Get(ctx context.Context, companyID, id string) (*database.WorkOrder, error) {
	return s.db.GetWorkOrder(ctx, companyID, id)
}

// Update merges content fields, then applies a status change if one is given.
// Only the executor moves orders through executing, completed and failed;
// a requested undone status restores prices through Undo.
func (s *Service) Update(ctx context.Context, companyID, id string, in UpdateInput) (*database.WorkOrder, error) {
	if in.Status != nil {
		switch *in.Status {
		case database.StatusExecuting, database.StatusCompleted, database.StatusFailed:
			return nil, errorx.ErrInvalidTransition.WithMessagef("status %s is set by the executor", *in.Status)
		case database.StatusUndone:
			if in.hasContent() {
				return nil, errorx.ErrInvalidInput.WithMessage("an undo cannot be combined with content changes")
			}
			return s.Undo(ctx, companyID, id)
		}
	}
	if in.ProductUpdates != nil {
		if err := ValidateUpdates(in.ProductUpdates); err != nil {
			return nil, err
		}
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}

	var out *database.WorkOrder
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.db.GetWorkOrder(ctx, companyID, id)
		if err != nil {
			return err
		}
		out = current
		if in.hasContent() {
			out, err = s.db.UpdateWorkOrder(ctx, companyID, id, database.WorkOrderPatch{
				Title:              in.Title,
				ProductUpdates:     in.ProductUpdates,
				ScheduledAt:        utc(in.ScheduledAt),
				ClearSchedule:      in.ClearSchedule,
				ExecuteImmediately: in.ExecuteImmediately,
			})
			if err != nil {
				return err
			}
		}
		if in.Status != nil && *in.Status != out.Status {
			if err := CheckTransition(out.Status, *in.Status); err != nil {
				return err
			}
			out, err = s.db.TransitionWorkOrder(ctx, companyID, id, database.Transition{From: out.Status, To: *in.Status})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a pending order
func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	return s.db.DeletePendingWorkOrder(ctx, companyID, id)
}

func (s *Service) Archive(ctx context.Context, companyID, id string) (*database.WorkOrder, error) {
	return s.db.SetWorkOrderArchived(ctx, companyID, id, true)
}

func (s *Service) Unarchive(ctx context.Context, companyID, id string) (*database.WorkOrder, error) {
	return s.db.SetWorkOrderArchived(ctx, companyID, id, false)
}

// Pending returns every pending order of every company
func (s *Service) Pending(ctx context.Context) ([]*database.WorkOrder, error) {
	return s.db.ListPendingWorkOrders(ctx)
}

// Undo restores the prices recorded before a completed order ran.
// On upstream failure the order stays completed.
func (s *Service) Undo(ctx context.Context, companyID, id string) (*database.WorkOrder, error) {
	order, err := s.db.GetWorkOrder(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(order.Status, database.StatusUndone); err != nil {
		return nil, err
	}
	if len(order.OriginalPrices) == 0 {
		return nil, errorx.ErrInvalidTransition.WithMessage("work order has no recorded prices to restore")
	}

	client, err := s.pricer.clients.Client(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.pricer.restore(ctx, client, companyID, order.OriginalPrices); err != nil {
		s.logger.Warn("undo failed",
			zap.String("company_id", companyID),
			zap.String("work_order_id", id),
			zap.Error(err))
		return nil, err
	}

	now := s.now().UTC()
	order, err = s.db.TransitionWorkOrder(ctx, companyID, id, database.Transition{
		From:     database.StatusCompleted,
		To:       database.StatusUndone,
		UndoneAt: &now,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("work order undone", zap.String("company_id", companyID), zap.String("work_order_id", id))
	return order, nil
}

func negative(d *decimal.Decimal) bool {
	return d != nil && d.IsNegative()
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
