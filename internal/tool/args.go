package tool

import (
	"bytes"
	"encoding/json"
	"strings"

	polarisErrors "github.com/harunnryd/polaris/internal/errors"
)

// DecodeArgs decodes a tool's JSON arguments into its typed argument struct.
func DecodeArgs[T any](toolName string, input json.RawMessage) (T, error) {
	var args T
	if err := json.Unmarshal(input, &args); err != nil {
		return args, polarisErrors.InvalidToolArgs(toolName, err)
	}
	return args, nil
}

// RequireString returns the trimmed value or a "Missing <field>." error.
func RequireString(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", polarisErrors.MissingArgument(field)
	}
	return trimmed, nil
}

// RequireObject rejects absent, null and empty JSON objects.
func RequireObject(field string, value json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, polarisErrors.MissingArgument(field)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || len(obj) == 0 {
		return nil, polarisErrors.MissingArgument(field)
	}
	return json.RawMessage(trimmed), nil
}
