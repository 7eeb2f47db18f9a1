// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowrun/pkg/actions/conditionalpaths"
	"github.com/dukex/flowrun/pkg/actions/httprequest"
	logaction "github.com/dukex/flowrun/pkg/actions/log"
	"github.com/dukex/flowrun/pkg/actions/manualpath"
	"github.com/dukex/flowrun/pkg/actions/output"
	"github.com/dukex/flowrun/pkg/actions/pause"
	"github.com/dukex/flowrun/pkg/actions/schedule"
	"github.com/dukex/flowrun/pkg/actions/transform"
	"github.com/dukex/flowrun/pkg/actions/wait"
	"github.com/dukex/flowrun/pkg/actions/webhooklistener"
	"github.com/dukex/flowrun/pkg/registry"
)

func registerActionPlugins(ctx context.Context, reg *registry.Registry, pluginsPath string) error {
	actionPlugins, err := reg.LoadActionPlugins(ctx, pluginsPath)
	if err != nil {
		return fmt.Errorf("failed to load action plugins: %w", err)
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}

	return nil
}

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(transform.NewActionFactory())
	reg.RegisterAction(logaction.NewActionFactory())
	reg.RegisterAction(conditionalpaths.NewActionFactory())
	reg.RegisterAction(manualpath.NewActionFactory())
	reg.RegisterAction(pause.NewActionFactory())
	reg.RegisterAction(wait.NewActionFactory())
	reg.RegisterAction(schedule.NewActionFactory())
	reg.RegisterAction(webhooklistener.NewActionFactory())
	reg.RegisterAction(output.NewActionFactory())
}

// NewRegistry returns a registry holding the native actions plus any action
// plugins found under pluginsPath. Plugins may replace native actions.
func NewRegistry(ctx context.Context, log *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	registerNativeActions(reg)

	if pluginsPath != "" {
		err := registerActionPlugins(ctx, reg, pluginsPath)
		if err != nil {
			return nil, err
		}
	}

	return reg, nil
}
