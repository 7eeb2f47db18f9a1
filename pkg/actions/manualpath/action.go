// Package manualpath provides the human branching decision action.
package manualpath

import (
	"context"
	"fmt"
	"slices"

	"github.com/dukex/flowrun/pkg/actions/params"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

const actionID = "manual_path_decision"

type Option struct {
	EdgeID string `json:"edge_id"`
	Label  string `json:"label,omitempty"`
}

type Action struct {
	Message string
	Options []Option
}

func NewAction(config map[string]any) (*Action, error) {
	action := &Action{Message: params.String(config, "message", "Choose how the execution continues")}

	var rawOptions []any

	switch v := config["options"].(type) {
	case []any:
		rawOptions = v
	case []map[string]any:
		for _, entry := range v {
			rawOptions = append(rawOptions, entry)
		}
	}

	for i, raw := range rawOptions {
		entry, ok := raw.(map[string]any)
		if !ok || params.String(entry, "edge_id", "") == "" {
			return nil, protocol.NewValidationError(actionID, fmt.Sprintf("options[%d] needs an 'edge_id'", i))
		}

		action.Options = append(action.Options, Option{
			EdgeID: params.String(entry, "edge_id", ""),
			Label:  params.String(entry, "label", ""),
		})
	}

	return action, nil
}

func (a *Action) Run(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	out := a.output()

	err := input.Services.Notify(ctx, input.Notification(actionID, a.Message, out))
	if err != nil {
		input.Log().WarnContext(ctx, "Failed to send path decision notification", "error", err)
	}

	return out, nil
}

func (a *Action) MockRun(context.Context, protocol.ActionContext) (map[string]any, error) {
	return a.output(), nil
}

func (a *Action) ClassifyInterrupt(_ context.Context, _ protocol.ActionContext, result map[string]any) (protocol.InterruptResult, error) {
	return protocol.NeedsInput(result), nil
}

// ValidateResume requires a pathsToTake list drawn from the configured options.
func (a *Action) ValidateResume(_ context.Context, data map[string]any) error {
	chosen, ok := params.StringSlice(data, models.PathsToTakeKey)
	if !ok {
		return protocol.NewValidationError(actionID, "resume data must include '"+models.PathsToTakeKey+"'")
	}

	if len(a.Options) == 0 {
		return nil
	}

	allowed := make([]string, 0, len(a.Options))
	for _, option := range a.Options {
		allowed = append(allowed, option.EdgeID)
	}

	for _, edgeID := range chosen {
		if !slices.Contains(allowed, edgeID) {
			return protocol.NewValidationError(actionID, fmt.Sprintf("edge '%s' is not one of the options", edgeID))
		}
	}

	return nil
}

func (a *Action) output() map[string]any {
	options := make([]any, 0, len(a.Options))
	for _, option := range a.Options {
		options = append(options, map[string]any{"edge_id": option.EdgeID, "label": option.Label})
	}

	return map[string]any{
		"message": a.Message,
		"options": options,
	}
}
