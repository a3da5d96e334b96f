package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	polarisErrors "github.com/harunnryd/polaris/internal/errors"
	"github.com/harunnryd/polaris/internal/logger"
	"github.com/harunnryd/polaris/internal/model/contract"
)

var errMalformedJSON = errors.New("arguments are not valid JSON")

type Runner struct {
	registry *Registry
}

func NewRunner(registry *Registry) *Runner {
	return &Runner{registry: registry}
}

func (r *Runner) Definitions() []contract.ToolDef {
	if r == nil || r.registry == nil {
		return nil
	}
	return r.registry.Definitions()
}

func (r *Runner) GetDescriptors() []ToolDescriptor {
	if r == nil || r.registry == nil {
		return nil
	}
	return r.registry.GetDescriptors()
}

// Execute dispatches one model tool call: Lookup -> Parse -> Validate -> Run.
// The result is the tool's JSON output as a string, ready for a tool message.
func (r *Runner) Execute(ctx context.Context, call *contract.ToolCall) (string, error) {
	t, ok := r.registry.Get(call.Name)
	if !ok {
		slog.Warn("Model requested unsupported tool", append(logger.Attrs(ctx), "tool", call.Name, "tool_call_id", call.ID)...)
		return "", polarisErrors.UnsupportedTool(call.Name)
	}
	name := NormalizeToolName(t.Name())

	input := json.RawMessage(strings.TrimSpace(call.Input))
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	if !json.Valid(input) {
		slog.Warn("Tool arguments are not valid JSON", append(logger.Attrs(ctx), "tool", name, "tool_call_id", call.ID)...)
		return "", polarisErrors.InvalidToolArgs(name, errMalformedJSON)
	}

	if err := ValidateInput(t.Parameters(), input); err != nil {
		slog.Warn("Tool input validation failed", append(logger.Attrs(ctx), "tool", name, "error", err)...)
		return "", polarisErrors.InvalidToolArgs(name, err)
	}

	start := time.Now()
	slog.Info("Executing tool", append(logger.Attrs(ctx), "tool", name, "tool_call_id", call.ID)...)

	result, err := t.Execute(ctx, input)

	duration := time.Since(start)
	if err != nil {
		slog.Error("Tool execution failed", append(logger.Attrs(ctx), "tool", name, "error", err, "category", polarisErrors.Category(err), "duration", duration)...)
		return "", err
	}

	slog.Info("Tool execution success", append(logger.Attrs(ctx), "tool", name, "duration", duration)...)
	if len(result) == 0 {
		return "null", nil
	}
	return string(result), nil
}
