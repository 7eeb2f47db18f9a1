// Package log provides an action that writes a message to the worker log.
package log

import (
	"context"
	"log/slog"

	"github.com/dukex/flowrun/pkg/protocol"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Action logs a message.
type Action struct {
	Message string
	Level   string
}

func NewAction(config map[string]any) *Action {
	message, _ := config["message"].(string)

	level, ok := config["level"].(string)
	if _, known := levels[level]; !ok || !known {
		level = "info"
	}

	return &Action{Message: message, Level: level}
}

func (a *Action) Run(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	logger := input.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Log(ctx, levels[a.Level], a.Message,
		"action", "log",
		"execution_id", input.ExecutionID,
		"node_id", input.NodeID,
	)

	return a.output(), nil
}

func (a *Action) MockRun(context.Context, protocol.ActionContext) (map[string]any, error) {
	return a.output(), nil
}

func (a *Action) output() map[string]any {
	return map[string]any{
		"message": a.Message,
		"level":   a.Level,
	}
}
