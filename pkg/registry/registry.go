// Package registry keeps the catalog of node actions the runner can dispatch to.
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry maps action ids to their factories and compiled config schemas.
// Node config is a tagged union keyed by action id; each variant owns its schema.
type Registry struct {
	logger          *slog.Logger
	mu              sync.RWMutex
	actionFactories map[string]protocol.ActionFactory
	schemas         map[string]*gojsonschema.Schema
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log,
		actionFactories: make(map[string]protocol.ActionFactory),
		schemas:         make(map[string]*gojsonschema.Schema),
	}
}

// LoadActionPlugins loads action factories exported as the "Action" symbol
// from shared objects under {pluginsPath}/actions.
func (r *Registry) LoadActionPlugins(ctx context.Context, pluginsPath string) ([]protocol.ActionFactory, error) {
	return loadPlugin[protocol.ActionFactory](ctx, r.logger, pluginsPath, "Action")
}

// RegisterAction adds a factory, replacing any factory with the same id.
func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actionFactories[actionFactory.ID()] = actionFactory
	delete(r.schemas, actionFactory.ID())

	if schema := actionFactory.Schema(); len(schema) > 0 {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
		if err != nil {
			r.logger.Error("Invalid action schema, config validation disabled", "action_id", actionFactory.ID(), "error", err)

			return
		}

		r.schemas[actionFactory.ID()] = compiled
	}
}

// ActionFactory returns the factory registered under the given id.
func (r *Registry) ActionFactory(actionID string) (protocol.ActionFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.actionFactories[actionID]

	return factory, ok
}

// ActionFactories returns every registered factory sorted by id.
func (r *Registry) ActionFactories() []protocol.ActionFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.ActionFactory, 0, len(r.actionFactories))
	for _, factory := range r.actionFactories {
		factories = append(factories, factory)
	}

	sort.Slice(factories, func(i, j int) bool {
		return factories[i].ID() < factories[j].ID()
	})

	return factories
}

// ValidateConfig checks a resolved node config against the action's schema.
func (r *Registry) ValidateConfig(actionID string, config map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[actionID]
	r.mu.RUnlock()

	if !ok {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return protocol.NewValidationError(actionID, "config could not be validated: "+err.Error())
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}

	return protocol.NewValidationError(actionID, "invalid config: "+strings.Join(messages, "; "))
}

// CreateAction validates the config and creates an action instance.
func (r *Registry) CreateAction(ctx context.Context, actionID string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.ActionFactory(actionID)
	if !ok {
		return nil, protocol.NewValidationError(actionID, fmt.Sprintf("action '%s' not registered", actionID))
	}

	err := r.ValidateConfig(actionID, config)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = map[string]any{}
	}

	return factory.Create(ctx, config)
}

// HealthCheck reports whether any action is registered.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.actionFactories) == 0 {
		return "No actions registered", false
	}

	return fmt.Sprintf("%d actions registered", len(r.actionFactories)), true
}

func loadPlugin[T any](ctx context.Context, logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"

	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return []T{}, nil
	}

	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "*/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.InfoContext(ctx, "Loading plugins", "count", len(pluginPathList))

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("failed to lookup symbol %s in plugin %s: %w", symbolName, p, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s symbol %s has unexpected type %T", p, symbolName, v)
		}

		pluginList = append(pluginList, castV)

		l.InfoContext(ctx, "Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
