package dto

import (
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/workorder"
)

type CreateWorkOrderRequest struct {
	Title              string                   `json:"title" binding:"max=255"`
	ProductUpdates     []database.ProductUpdate `json:"productUpdates"`
	ScheduledAt        *time.Time               `json:"scheduledAt"`
	ExecuteImmediately bool                     `json:"executeImmediately"`
}

func (r CreateWorkOrderRequest) Input() workorder.CreateInput {
	return workorder.CreateInput{
		Title:              r.Title,
		ProductUpdates:     r.ProductUpdates,
		ScheduledAt:        r.ScheduledAt,
		ExecuteImmediately: r.ExecuteImmediately,
	}
}

// UpdateWorkOrderRequest is a partial update; omitted fields stay unchanged
type UpdateWorkOrderRequest struct {
	Title              *string                  `json:"title" binding:"omitempty,max=255"`
	ProductUpdates     []database.ProductUpdate `json:"productUpdates"`
	ScheduledAt        *time.Time               `json:"scheduledAt"`
	ClearSchedule      bool                     `json:"clearSchedule"`
	ExecuteImmediately *bool                    `json:"executeImmediately"`
	Status             *string                  `json:"status"`
}

func (r UpdateWorkOrderRequest) Input() workorder.UpdateInput {
	in := workorder.UpdateInput{
		Title:              r.Title,
		ProductUpdates:     r.ProductUpdates,
		ScheduledAt:        r.ScheduledAt,
		ClearSchedule:      r.ClearSchedule,
		ExecuteImmediately: r.ExecuteImmediately,
	}
	if r.Status != nil {
		s := database.WorkOrderStatus(*r.Status)
		in.Status = &s
	}
	return in
}

type WorkOrderListQuery struct {
	Archived *bool `form:"archived"`
}
