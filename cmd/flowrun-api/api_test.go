package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runtime, err := cmd.NewRuntime(context.Background(), logger, cmd.RuntimeConfig{
		DatabaseURL: "file://" + t.TempDir(),
		EventBus:    "gochannel",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, runtime.Close(context.Background()))
	})

	return NewAPI(logger, runtime, 0).App()
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "flowrun API", body)
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	status, _ := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)

	status, body := get(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)
	assert.Contains(t, body, "10 actions registered")
}

func TestAPI_Metrics(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/metrics")

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestAPI_NewAPIPoller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runtime := &cmd.Runtime{}

	assert.Nil(t, NewAPI(logger, runtime, 0).poller)
	assert.NotNil(t, NewAPI(logger, runtime, 1).poller)
}
