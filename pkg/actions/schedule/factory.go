package schedule

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionFactory creates schedule actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "schedule"
}

func (*ActionFactory) Name() string {
	return "Schedule"
}

func (*ActionFactory) Description() string {
	return "Resumes the execution at a given date or at the next occurrence of a cron expression."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"at": map[string]any{
				"type":        "string",
				"description": "RFC 3339 timestamp. Dates in the past continue immediately.",
			},
			"cron": map[string]any{
				"type":        "string",
				"description": "Standard five field cron expression, e.g. \"0 9 * * MON\".",
			},
		},
		"oneOf": []any{
			map[string]any{"required": []string{"at"}},
			map[string]any{"required": []string{"cron"}},
		},
	}
}

func (*ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}
