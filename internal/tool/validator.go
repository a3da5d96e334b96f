package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValidateInput checks the JSON argument object against the tool's parameter
// schema. Only shape is checked here: property types and, when the schema sets
// additionalProperties to false, unknown keys. Presence and blankness of
// required values is left to each tool so the error can name the field.
func ValidateInput(schema map[string]interface{}, input json.RawMessage) error {
	var inputMap map[string]interface{}
	if err := json.Unmarshal(input, &inputMap); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	if inputMap == nil {
		return fmt.Errorf("arguments must be a JSON object")
	}

	return validateObject("", schema, inputMap)
}

func validateObject(path string, schema map[string]interface{}, input map[string]interface{}) error {
	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}
	strict := schema["additionalProperties"] == false

	for key, value := range input {
		fieldName := key
		if path != "" {
			fieldName = path + "." + key
		}

		propSchema, defined := properties[key]
		if !defined {
			if strict {
				return fmt.Errorf("unknown field: %s", fieldName)
			}
			continue
		}

		propSchemaMap, ok := propSchema.(map[string]interface{})
		if !ok {
			continue
		}

		if err := validateType(fieldName, propSchemaMap, value); err != nil {
			return err
		}
	}

	return nil
}

func validateType(fieldName string, schema map[string]interface{}, value interface{}) error {
	// Absent and null are the same to the tools; they report missing values themselves.
	if value == nil {
		return nil
	}

	expectedType, ok := schema["type"].(string)
	if !ok {
		return nil
	}

	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' expected string, got %s", fieldName, jsonType(value))
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field '%s' expected number, got %s", fieldName, jsonType(value))
		}
	case "integer":
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("field '%s' expected integer, got %s", fieldName, jsonType(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' expected boolean, got %s", fieldName, jsonType(value))
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected array, got %s", fieldName, jsonType(value))
		}
		if itemsSchema, ok := schema["items"].(map[string]interface{}); ok {
			for i, item := range arr {
				if err := validateType(fmt.Sprintf("%s[%d]", fieldName, i), itemsSchema, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected object, got %s", fieldName, jsonType(value))
		}
		return validateObject(fieldName, schema, obj)
	}

	return nil
}

func jsonType(value interface{}) string {
	switch v := value.(type) {
	case string:
		return "string"
	case float64:
		if v == math.Trunc(v) {
			return "integer"
		}
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
