// Package schedule provides an action that resumes the execution at a computed date.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowrun/pkg/actions/params"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/robfig/cron/v3"
)

const (
	actionID        = "schedule"
	scheduledForKey = "scheduled_for"
)

type Action struct {
	At       time.Time
	Schedule cron.Schedule
}

func NewAction(config map[string]any) (*Action, error) {
	if expr := params.String(config, "cron", ""); expr != "" {
		schedule, err := cron.ParseStandard(expr)
		if err != nil {
			return nil, protocol.NewValidationError(actionID, fmt.Sprintf("invalid cron expression '%s': %v", expr, err))
		}

		return &Action{Schedule: schedule}, nil
	}

	at, err := params.Time(config, "at")
	if err != nil {
		return nil, protocol.NewValidationError(actionID, err.Error())
	}

	return &Action{At: at}, nil
}

func (a *Action) target(now time.Time) time.Time {
	if a.Schedule != nil {
		return a.Schedule.Next(now).UTC()
	}

	return a.At
}

func (a *Action) Run(_ context.Context, input protocol.ActionContext) (map[string]any, error) {
	return map[string]any{
		scheduledForKey: a.target(input.Services.Clock()).Format(time.RFC3339),
	}, nil
}

func (a *Action) MockRun(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	return a.Run(ctx, input)
}

// ClassifyInterrupt continues right away when the date already passed.
func (a *Action) ClassifyInterrupt(_ context.Context, input protocol.ActionContext, result map[string]any) (protocol.InterruptResult, error) {
	at, err := params.Time(result, scheduledForKey)
	if err != nil {
		return protocol.InterruptResult{}, protocol.NewRuntimeError(actionID, "invalid schedule", err)
	}

	if !at.After(input.Services.Clock()) {
		return protocol.Success(result), nil
	}

	return protocol.Scheduled(result, at), nil
}
