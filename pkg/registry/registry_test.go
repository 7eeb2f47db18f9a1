package registry

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAction struct {
	config map[string]any
}

func (a *fakeAction) Run(context.Context, protocol.ActionContext) (map[string]any, error) {
	return a.config, nil
}

func (a *fakeAction) MockRun(context.Context, protocol.ActionContext) (map[string]any, error) {
	return map[string]any{"mocked": true}, nil
}

type fakeFactory struct {
	id     string
	schema map[string]any
}

func (f *fakeFactory) ID() string             { return f.id }
func (f *fakeFactory) Name() string           { return "Fake " + f.id }
func (f *fakeFactory) Description() string    { return "fake action" }
func (f *fakeFactory) Schema() map[string]any { return f.schema }

func (f *fakeFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return &fakeAction{config: config}, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func messageSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"message"},
	}
}

func TestRegistry_RegisterAndCreateAction(t *testing.T) {
	r := newTestRegistry()
	r.RegisterAction(&fakeFactory{id: "fake", schema: messageSchema()})

	action, err := r.CreateAction(context.Background(), "fake", map[string]any{"message": "hi"})
	require.NoError(t, err)

	out, err := action.Run(context.Background(), protocol.ActionContext{})
	require.NoError(t, err)
	assert.Equal(t, "hi", out["message"])
}

func TestRegistry_CreateAction_InvalidConfig(t *testing.T) {
	r := newTestRegistry()
	r.RegisterAction(&fakeFactory{id: "fake", schema: messageSchema()})

	_, err := r.CreateAction(context.Background(), "fake", map[string]any{"message": 42})
	require.Error(t, err)
	assert.True(t, protocol.IsValidationError(err))

	_, err = r.CreateAction(context.Background(), "fake", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}

func TestRegistry_CreateAction_Unknown(t *testing.T) {
	r := newTestRegistry()

	_, err := r.CreateAction(context.Background(), "missing", map[string]any{})
	require.Error(t, err)
	assert.True(t, protocol.IsValidationError(err))
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_NoSchemaAcceptsAnything(t *testing.T) {
	r := newTestRegistry()
	r.RegisterAction(&fakeFactory{id: "loose"})

	require.NoError(t, r.ValidateConfig("loose", map[string]any{"anything": []int{1, 2}}))
	require.NoError(t, r.ValidateConfig("unknown", nil))
}

func TestRegistry_ActionFactoriesSorted(t *testing.T) {
	r := newTestRegistry()
	r.RegisterAction(&fakeFactory{id: "b"})
	r.RegisterAction(&fakeFactory{id: "a"})

	factories := r.ActionFactories()
	require.Len(t, factories, 2)
	assert.Equal(t, "a", factories[0].ID())
	assert.Equal(t, "b", factories[1].ID())
}

func TestRegistry_HealthCheck(t *testing.T) {
	r := newTestRegistry()

	msg, ok := r.HealthCheck()
	assert.False(t, ok)
	assert.Equal(t, "No actions registered", msg)

	r.RegisterAction(&fakeFactory{id: "a"})

	msg, ok = r.HealthCheck()
	assert.True(t, ok)
	assert.Equal(t, "1 actions registered", msg)
}

func TestRegistry_LoadActionPlugins_MissingDirectory(t *testing.T) {
	r := newTestRegistry()

	factories, err := r.LoadActionPlugins(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, factories)
}
