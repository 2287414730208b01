package workorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/common/cnst"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/internal/i18n"
	"github.com/catalogpilot/catalogpilot/pkg/metrics"
	"github.com/catalogpilot/catalogpilot/pkg/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RunSummary counts what one executor pass did
type RunSummary struct {
	Pending   int
	Due       int
	Completed int
	Failed    int
	Skipped   int
}

// Executor runs due work orders one at a time
type Executor struct {
	db       database.Database
	pricer   *pricer
	tr       *i18n.I18n
	lang     string
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewExecutor(svc *Service, tr *i18n.I18n, lang string, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *Executor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Executor{
		db:       svc.db,
		pricer:   svc.pricer,
		tr:       tr,
		lang:     lang,
		interval: interval,
		metrics:  m,
		logger:   logger.Named("workorder.executor"),
		now:      time.Now,
	}
}

// RunOnce executes every pending order that is due
func (e *Executor) RunOnce(ctx context.Context) (RunSummary, error) {
	var sum RunSummary
	pending, err := e.db.ListPendingWorkOrders(ctx)
	if err != nil {
		return sum, err
	}
	sum.Pending = len(pending)

	now := e.now()
	for _, order := range pending {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		if !order.IsDue(now) {
			continue
		}
		sum.Due++
		switch e.execute(ctx, order) {
		case database.StatusCompleted:
			sum.Completed++
		case database.StatusFailed:
			sum.Failed++
		default:
			sum.Skipped++
		}
	}
	if sum.Due > 0 {
		e.logger.Info("executor pass finished",
			zap.Int("pending", sum.Pending),
			zap.Int("due", sum.Due),
			zap.Int("completed", sum.Completed),
			zap.Int("failed", sum.Failed),
			zap.Int("skipped", sum.Skipped))
	}
	return sum, nil
}

// execute claims and runs one order, returning its final status or "" when skipped
func (e *Executor) execute(ctx context.Context, order *database.WorkOrder) database.WorkOrderStatus {
	logger := e.logger.With(zap.String("company_id", order.CompanyID), zap.String("work_order_id", order.ID))

	_, err := e.db.TransitionWorkOrder(ctx, order.CompanyID, order.ID, database.Transition{
		From: database.StatusPending,
		To:   database.StatusExecuting,
	})
	if err != nil {
		if errors.Is(err, errorx.ErrConflict) || errors.Is(err, errorx.ErrNotFound) {
			logger.Debug("work order claimed elsewhere", zap.Error(err))
		} else {
			logger.Error("failed to claim work order", zap.Error(err))
		}
		return ""
	}

	start := time.Now()
	e.metrics.ExecutionStart()
	span := trace.Start(ctx, cnst.TraceWorkOrder, "workorder.execute",
		attribute.String(cnst.AttrCompanyID, order.CompanyID),
		attribute.String(cnst.AttrWorkOrderID, order.ID),
		attribute.Int(cnst.AttrProducts, len(order.ProductUpdates)))
	ctx = span.Ctx

	snaps, runErr := e.run(ctx, order)
	executedAt := e.now().UTC()
	t := database.Transition{
		From:           database.StatusExecuting,
		To:             database.StatusCompleted,
		OriginalPrices: snaps,
		ExecutedAt:     &executedAt,
	}
	if runErr != nil {
		msg := errorx.Describe(e.tr, runErr, e.lang)
		t.To = database.StatusFailed
		t.Error = &msg
		logger.Warn("work order failed", zap.Error(runErr))
	}

	// record the outcome even if ctx was cancelled mid-run
	if _, err := e.db.TransitionWorkOrder(context.WithoutCancel(ctx), order.CompanyID, order.ID, t); err != nil {
		logger.Error("failed to record work order outcome", zap.String("status", string(t.To)), zap.Error(err))
	}
	span.End(runErr)
	e.metrics.ExecutionDone(string(t.To), start)
	if runErr == nil {
		logger.Info("work order completed", zap.Int("prices", len(snaps)))
	}
	return t.To
}

func (e *Executor) run(ctx context.Context, order *database.WorkOrder) ([]database.PriceSnapshot, error) {
	client, err := e.pricer.clients.Client(ctx, order.CompanyID)
	if err != nil {
		return nil, err
	}
	snaps, err := e.pricer.snapshot(ctx, client, order.ProductUpdates)
	if err != nil {
		return nil, err
	}
	return snaps, e.pricer.apply(ctx, client, order.CompanyID, order.ProductUpdates)
}

// Start runs RunOnce on every tick until Stop is called
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	e.running = true

	go func(done chan struct{}) {
		defer close(done)
		e.logger.Info("executor started", zap.Duration("interval", e.interval))
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			if _, err := e.RunOnce(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error("executor pass failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				e.logger.Info("executor stopped")
				return
			case <-ticker.C:
			}
		}
	}(e.done)
}

// Stop cancels the loop and waits for the current pass to finish
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.cancel()
	done := e.done
	e.running = false
	e.mu.Unlock()
	<-done
}
