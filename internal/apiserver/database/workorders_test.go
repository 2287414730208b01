package database

import (
	"context"
	"testing"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(companyID, title string) *WorkOrder {
	return &WorkOrder{
		CompanyID:      companyID,
		CreatedBy:      "u1",
		Title:          title,
		ProductUpdates: []ProductUpdate{{ProductID: 1, RegularPrice: decPtr("10.00")}},
	}
}

func TestWorkOrders_CreateGetList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := newOrder("c1", "first")
	require.NoError(t, db.CreateWorkOrder(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, StatusPending, first.Status)

	time.Sleep(2 * time.Millisecond)
	second := newOrder("c1", "second")
	require.NoError(t, db.CreateWorkOrder(ctx, second))
	require.NoError(t, db.CreateWorkOrder(ctx, newOrder("c2", "other tenant")))

	got, err := db.GetWorkOrder(ctx, "c1", first.ID)
	require.NoError(t, err)
	require.Len(t, got.ProductUpdates, 1)
	assert.True(t, got.ProductUpdates[0].RegularPrice.Equal(dec("10")))

	_, err = db.GetWorkOrder(ctx, "c2", first.ID)
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	list, err := db.ListWorkOrders(ctx, "c1", WorkOrderFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title, "newest first")

	_, err = db.SetWorkOrderArchived(ctx, "c1", first.ID, true)
	require.NoError(t, err)
	archived := true
	list, err = db.ListWorkOrders(ctx, "c1", WorkOrderFilter{Archived: &archived})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestWorkOrders_ArchiveKeepsStatusAndTimestamps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	o := newOrder("c1", "t")
	require.NoError(t, db.CreateWorkOrder(ctx, o))
	before, err := db.GetWorkOrder(ctx, "c1", o.ID)
	require.NoError(t, err)

	archived, err := db.SetWorkOrderArchived(ctx, "c1", o.ID, true)
	require.NoError(t, err)
	assert.True(t, archived.Archived)
	assert.Equal(t, StatusPending, archived.Status)

	restored, err := db.SetWorkOrderArchived(ctx, "c1", o.ID, false)
	require.NoError(t, err)
	assert.False(t, restored.Archived)
	assert.Equal(t, before.Status, restored.Status)
	assert.True(t, before.UpdatedAt.Equal(restored.UpdatedAt))
	assert.True(t, before.CreatedAt.Equal(restored.CreatedAt))

	_, err = db.SetWorkOrderArchived(ctx, "c2", o.ID, true)
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestWorkOrders_Update(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	o := newOrder("c1", "t")
	require.NoError(t, db.CreateWorkOrder(ctx, o))

	title := "renamed"
	at := time.Now().Add(time.Hour).UTC()
	got, err := db.UpdateWorkOrder(ctx, "c1", o.ID, WorkOrderPatch{
		Title:          &title,
		ScheduledAt:    &at,
		ProductUpdates: []ProductUpdate{{ProductID: 2, SalePrice: decPtr("5")}, {ProductID: 3, RegularPrice: decPtr("6")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	require.NotNil(t, got.ScheduledAt)
	assert.WithinDuration(t, at, *got.ScheduledAt, time.Second)
	assert.Len(t, got.ProductUpdates, 2)

	got, err = db.UpdateWorkOrder(ctx, "c1", o.ID, WorkOrderPatch{ClearSchedule: true})
	require.NoError(t, err)
	assert.Nil(t, got.ScheduledAt)

	_, err = db.UpdateWorkOrder(ctx, "c2", o.ID, WorkOrderPatch{Title: &title})
	assert.ErrorIs(t, err, errorx.ErrNotFound)

	_, err = db.TransitionWorkOrder(ctx, "c1", o.ID, Transition{From: StatusPending, To: StatusExecuting})
	require.NoError(t, err)
	_, err = db.UpdateWorkOrder(ctx, "c1", o.ID, WorkOrderPatch{Title: &title})
	assert.ErrorIs(t, err, errorx.ErrWorkOrderNotPending)
}

func TestWorkOrders_TransitionIsConditional(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	o := newOrder("c1", "t")
	require.NoError(t, db.CreateWorkOrder(ctx, o))

	claimed, err := db.TransitionWorkOrder(ctx, "c1", o.ID, Transition{From: StatusPending, To: StatusExecuting})
	require.NoError(t, err)
	assert.Equal(t, StatusExecuting, claimed.Status)

	// a second claim loses
	_, err = db.TransitionWorkOrder(ctx, "c1", o.ID, Transition{From: StatusPending, To: StatusExecuting})
	assert.ErrorIs(t, err, errorx.ErrConflict)

	now := time.Now().UTC()
	done, err := db.TransitionWorkOrder(ctx, "c1", o.ID, Transition{
		From:           StatusExecuting,
		To:             StatusCompleted,
		ExecutedAt:     &now,
		OriginalPrices: []PriceSnapshot{{ProductID: 1, RegularPrice: decimal.NewNullDecimal(dec("12.00"))}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.ExecutedAt)
	require.Len(t, done.OriginalPrices, 1)
	assert.True(t, done.OriginalPrices[0].RegularPrice.Decimal.Equal(dec("12")))

	_, err = db.TransitionWorkOrder(ctx, "c1", "missing", Transition{From: StatusPending, To: StatusExecuting})
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestWorkOrders_DeletePendingOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	pending := newOrder("c1", "p")
	running := newOrder("c1", "r")
	require.NoError(t, db.CreateWorkOrder(ctx, pending))
	require.NoError(t, db.CreateWorkOrder(ctx, running))
	_, err := db.TransitionWorkOrder(ctx, "c1", running.ID, Transition{From: StatusPending, To: StatusExecuting})
	require.NoError(t, err)

	assert.ErrorIs(t, db.DeletePendingWorkOrder(ctx, "c2", pending.ID), errorx.ErrNotFound)
	require.NoError(t, db.DeletePendingWorkOrder(ctx, "c1", pending.ID))
	assert.ErrorIs(t, db.DeletePendingWorkOrder(ctx, "c1", pending.ID), errorx.ErrNotFound)
	assert.ErrorIs(t, db.DeletePendingWorkOrder(ctx, "c1", running.ID), errorx.ErrWorkOrderNotPending)
}

func TestWorkOrders_PendingSpansTenants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, b, c := newOrder("c1", "a"), newOrder("c2", "b"), newOrder("c3", "c")
	for _, o := range []*WorkOrder{a, b, c} {
		require.NoError(t, db.CreateWorkOrder(ctx, o))
	}
	_, err := db.TransitionWorkOrder(ctx, "c3", c.ID, Transition{From: StatusPending, To: StatusExecuting})
	require.NoError(t, err)

	pending, err := db.ListPendingWorkOrders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, o := range pending {
		assert.Equal(t, StatusPending, o.Status)
	}
	assert.ElementsMatch(t, []string{"c1", "c2"}, []string{pending[0].CompanyID, pending[1].CompanyID})
}

func TestWorkOrder_IsDue(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	assert.True(t, (&WorkOrder{ExecuteImmediately: true}).IsDue(now))
	assert.True(t, (&WorkOrder{ScheduledAt: &past}).IsDue(now))
	assert.True(t, (&WorkOrder{ScheduledAt: &now}).IsDue(now))
	assert.False(t, (&WorkOrder{ScheduledAt: &future}).IsDue(now))
	assert.False(t, (&WorkOrder{}).IsDue(now))
}
