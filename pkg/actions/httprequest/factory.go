package httprequest

import (
	"context"

	"github.com/dukex/flowrun/pkg/protocol"
)

// ActionFactory creates HTTP request actions.
type ActionFactory struct{}

// NewActionFactory creates a new ActionFactory.
func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

// Create creates a new Action from the given configuration.
func (h *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

// ID returns the unique identifier for the action.
func (h *ActionFactory) ID() string {
	return "http_request"
}

// Name returns the name of the action.
func (h *ActionFactory) Name() string {
	return "HTTP Request"
}

// Description returns a brief description of the action.
func (h *ActionFactory) Description() string {
	return "Performs an HTTP request to a specified URL with optional headers and body."
}

// Schema returns the JSON schema for configuring this action.
func (h *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"title":       "URL",
				"type":        "string",
				"description": "The URL to send the HTTP request to. Supports templating with node outputs.",
				"examples": []string{
					"https://api.example.com/users",
					"https://api.example.com/users/{{ .nodes.get_user.body.id }}",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method to use",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers to include in the request. Values support templating.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"type":        []string{"string", "object", "array"},
				"description": "Request body. Objects and arrays are sent as JSON.",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     defaultTimeoutSeconds,
				"minimum":     1,
			},
			"retries": map[string]any{
				"type":        "object",
				"description": "Retry configuration for failed requests",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":        "integer",
						"description": "Number of retry attempts on failure",
						"default":     0,
						"minimum":     0,
						"maximum":     5, //nolint:mnd // schema bound
					},
					"delay": map[string]any{
						"type":        "integer",
						"description": "Delay between retry attempts in milliseconds",
						"default":     1000,  //nolint:mnd // schema default
						"minimum":     0,
						"maximum":     30000, //nolint:mnd // schema bound
					},
				},
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}
