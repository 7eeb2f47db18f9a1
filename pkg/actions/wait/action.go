// Package wait provides a delay action.
package wait

import (
	"context"
	"time"

	"github.com/dukex/flowrun/pkg/actions/params"
	"github.com/dukex/flowrun/pkg/protocol"
)

const actionID = "wait"

// InlineThreshold is the longest wait held inside a dispatch. Anything longer
// is handed back to the runner as a scheduled wake so the worker is freed.
const InlineThreshold = 120 * time.Second

const resumeAtKey = "resume_at"

type Action struct {
	Duration time.Duration
}

func NewAction(config map[string]any) (*Action, error) {
	d, err := params.Duration(config, "duration")
	if err != nil {
		return nil, protocol.NewValidationError(actionID, err.Error())
	}

	return &Action{Duration: d}, nil
}

func (a *Action) Run(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	if a.Duration > InlineThreshold {
		resumeAt := input.Services.Clock().Add(a.Duration)

		return map[string]any{
			"duration":  a.Duration.String(),
			resumeAtKey: resumeAt.Format(time.RFC3339Nano),
		}, nil
	}

	timer := time.NewTimer(a.Duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, protocol.NewRuntimeError(actionID, "wait interrupted", ctx.Err())
	case <-timer.C:
	}

	return map[string]any{"duration": a.Duration.String(), "waited": true}, nil
}

func (a *Action) MockRun(context.Context, protocol.ActionContext) (map[string]any, error) {
	return map[string]any{"duration": a.Duration.String(), "waited": true}, nil
}

func (a *Action) ClassifyInterrupt(_ context.Context, _ protocol.ActionContext, result map[string]any) (protocol.InterruptResult, error) {
	if _, ok := result[resumeAtKey]; !ok {
		return protocol.Success(result), nil
	}

	at, err := params.Time(result, resumeAtKey)
	if err != nil {
		return protocol.InterruptResult{}, protocol.NewRuntimeError(actionID, "invalid resume time", err)
	}

	return protocol.Scheduled(result, at), nil
}
