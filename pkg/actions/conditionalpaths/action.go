// Package conditionalpaths provides the automatic branching action.
package conditionalpaths

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/flowrun/pkg/actions/params"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	actionID = "conditional_paths"

	modeAll   = "all"
	modeFirst = "first"
)

// Path is an outgoing edge guarded by a condition.
type Path struct {
	EdgeID    string
	Condition any
}

// Action picks the outgoing edges to follow.
type Action struct {
	Paths   []Path
	Default []string
	Mode    string
}

func NewAction(config map[string]any) (*Action, error) {
	var rawPaths []any

	switch v := config["paths"].(type) {
	case []any:
		rawPaths = v
	case []map[string]any:
		for _, entry := range v {
			rawPaths = append(rawPaths, entry)
		}
	}

	if len(rawPaths) == 0 {
		return nil, protocol.NewValidationError(actionID, "missing required field 'paths'")
	}

	paths := make([]Path, 0, len(rawPaths))

	for i, raw := range rawPaths {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, protocol.NewValidationError(actionID, fmt.Sprintf("paths[%d] must be an object", i))
		}

		edgeID := params.String(entry, "edge_id", "")
		if edgeID == "" {
			return nil, protocol.NewValidationError(actionID, fmt.Sprintf("paths[%d] is missing 'edge_id'", i))
		}

		paths = append(paths, Path{EdgeID: edgeID, Condition: entry["condition"]})
	}

	defaults, _ := params.StringSlice(config, "default")

	mode := params.String(config, "mode", modeAll)
	if mode != modeAll && mode != modeFirst {
		return nil, protocol.NewValidationError(actionID, "mode must be 'all' or 'first'")
	}

	return &Action{Paths: paths, Default: defaults, Mode: mode}, nil
}

func (a *Action) Run(_ context.Context, _ protocol.ActionContext) (map[string]any, error) {
	taken := make([]string, 0, len(a.Paths))
	evaluated := make(map[string]any, len(a.Paths))

	for _, path := range a.Paths {
		ok, err := Evaluate(path.Condition)
		if err != nil {
			return nil, protocol.NewValidationError(actionID, fmt.Sprintf("condition for edge '%s': %v", path.EdgeID, err))
		}

		evaluated[path.EdgeID] = ok

		if ok {
			taken = append(taken, path.EdgeID)

			if a.Mode == modeFirst {
				break
			}
		}
	}

	if len(taken) == 0 && len(a.Default) > 0 {
		taken = append(taken, a.Default...)
	}

	return map[string]any{
		models.PathsToTakeKey: taken,
		"evaluated":           evaluated,
	}, nil
}

// MockRun takes the first declared path.
func (a *Action) MockRun(context.Context, protocol.ActionContext) (map[string]any, error) {
	return map[string]any{
		models.PathsToTakeKey: []string{a.Paths[0].EdgeID},
	}, nil
}

// Evaluate converts a resolved condition into a boolean. A missing or empty
// condition always holds.
func Evaluate(exp any) (bool, error) {
	if exp == nil {
		return true, nil
	}

	switch v := exp.(type) {
	case bool:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return true, nil
		}

		result, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("cannot convert string %q to boolean: %w", v, err)
		}

		return result, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", exp)
	}
}
