// Package template resolves node configuration against execution data.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/flowrun/pkg/models"
)

// ExecutionData builds the data a node config template is rendered with.
//
//	.trigger    input data the execution was started with
//	.nodes      outputs of successful nodes keyed by node id
//	.execution  id, workflow_id and project_id
//	.vars       workflow variables
//	.env        process environment
func ExecutionData(execution *models.Execution, variables map[string]any) map[string]any {
	if variables == nil {
		variables = map[string]any{}
	}

	trigger := execution.TriggerData
	if trigger == nil {
		trigger = map[string]any{}
	}

	return map[string]any{
		"trigger": trigger,
		"nodes":   execution.Outputs(),
		"vars":    variables,
		"env":     getEnvVars(),
		"execution": map[string]any{
			"id":          execution.ID,
			"workflow_id": execution.WorkflowID,
			"project_id":  execution.ProjectID,
		},
	}
}

// ResolveConfig renders every templated string inside config. Strings without
// template actions are kept verbatim; maps and slices are walked recursively.
func ResolveConfig(config map[string]any, data any) (map[string]any, error) {
	resolved := make(map[string]any, len(config))

	for key, value := range config {
		v, err := resolveValue(value, data)
		if err != nil {
			return nil, fmt.Errorf("config field '%s': %w", key, err)
		}

		resolved[key] = v
	}

	return resolved, nil
}

func resolveValue(value any, data any) (any, error) {
	switch v := value.(type) {
	case string:
		if !NeedsTemplating(v) {
			return v, nil
		}

		return Render(v, data)
	case map[string]any:
		return ResolveConfig(v, data)
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			r, err := resolveValue(item, data)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}

			out[i] = r
		}

		return out, nil
	default:
		return value, nil
	}
}

// NeedsTemplating checks if a string contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// Render executes a template and coerces the result to JSON, number or bool when it parses as one.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
			"json": func(v any) (string, error) {
				b, err := json.Marshal(v)

				return string(b), err
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
