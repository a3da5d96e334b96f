package tool

import (
	"encoding/json"
	"testing"
)

func TestValidateInput(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"content_type_uid": map[string]interface{}{
				"type": "string",
			},
			"limit": map[string]interface{}{
				"type": "integer",
			},
			"tags": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "string",
				},
			},
			"entry": map[string]interface{}{
				"type": "object",
			},
		},
		"required":             []string{"content_type_uid"},
		"additionalProperties": false,
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "Valid input",
			input:   `{"content_type_uid": "blog", "limit": 10, "tags": ["news"], "entry": {"title": "x"}}`,
			wantErr: false,
		},
		{
			name:    "Missing required field is left to the tool",
			input:   `{"limit": 5}`,
			wantErr: false,
		},
		{
			name:    "Null value is treated as absent",
			input:   `{"content_type_uid": null}`,
			wantErr: false,
		},
		{
			name:    "Invalid type (number vs string)",
			input:   `{"content_type_uid": 42}`,
			wantErr: true,
		},
		{
			name:    "Fractional integer",
			input:   `{"content_type_uid": "blog", "limit": 2.5}`,
			wantErr: true,
		},
		{
			name:    "Invalid array item type",
			input:   `{"content_type_uid": "blog", "tags": [123]}`,
			wantErr: true,
		},
		{
			name:    "Entry must be an object",
			input:   `{"content_type_uid": "blog", "entry": "title=x"}`,
			wantErr: true,
		},
		{
			name:    "Extra fields rejected when additionalProperties is false",
			input:   `{"content_type_uid": "blog", "extra": "field"}`,
			wantErr: true,
		},
		{
			name:    "Arguments must be an object",
			input:   `["blog"]`,
			wantErr: true,
		},
		{
			name:    "JSON null arguments",
			input:   `null`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(schema, json.RawMessage(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInput() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInputAllowsExtraFieldsByDefault(t *testing.T) {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}},
	}

	if err := ValidateInput(schema, json.RawMessage(`{"name": "Alice", "extra": true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
