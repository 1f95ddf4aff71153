package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// JSONSchema describes the variables a job worker accepts.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Default     interface{}         `json:"default,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Pattern     *string             `json:"pattern,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty"`
	MinItems    *int                `json:"minItems,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// Ptr is a helper for the optional schema bounds.
func Ptr[T any](v T) *T { return &v }

// ValidateInput validates decoded job variables against schema.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *Result {
	result := NewResult()

	for _, requiredField := range schema.Required {
		if v, exists := input[requiredField]; !exists || v == nil {
			result.Add(requiredField, "REQUIRED_FIELD_MISSING", "required field missing")
		}
	}

	for fieldName, value := range input {
		prop, exists := schema.Properties[fieldName]
		if !exists {
			if !schema.AdditionalProperties {
				result.Add(fieldName, "EXTRA_FIELD", "field not allowed in schema")
			}
			continue
		}
		if value == nil {
			continue
		}
		validateField(result, fieldName, value, prop)
	}

	return result
}

func validateField(result *Result, fieldName string, value interface{}, prop Property) {
	if err := validateType(value, prop.Type); err != nil {
		result.Add(fieldName, "INVALID_TYPE", err.Error())
		return
	}

	switch v := value.(type) {
	case string:
		if prop.MinLength != nil && len(v) < *prop.MinLength {
			result.Add(fieldName, "MIN_LENGTH_VIOLATION", fmt.Sprintf("value must be at least %d characters", *prop.MinLength))
		}
		if prop.MaxLength != nil && len(v) > *prop.MaxLength {
			result.Add(fieldName, "MAX_LENGTH_VIOLATION", fmt.Sprintf("value must be at most %d characters", *prop.MaxLength))
		}
		if prop.Pattern != nil {
			if matched, err := regexp.MatchString(*prop.Pattern, v); err != nil || !matched {
				result.Add(fieldName, "PATTERN_MISMATCH", fmt.Sprintf("value must match pattern %s", *prop.Pattern))
			}
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, v) {
			result.Add(fieldName, "INVALID_ENUM_VALUE", fmt.Sprintf("value must be one of %v", prop.Enum))
		}

	case float64:
		if prop.Minimum != nil && v < *prop.Minimum {
			result.Add(fieldName, "MINIMUM_VIOLATION", fmt.Sprintf("value must be >= %v", *prop.Minimum))
		}
		if prop.Maximum != nil && v > *prop.Maximum {
			result.Add(fieldName, "MAXIMUM_VIOLATION", fmt.Sprintf("value must be <= %v", *prop.Maximum))
		}

	case []interface{}:
		if prop.MinItems != nil && len(v) < *prop.MinItems {
			result.Add(fieldName, "MIN_ITEMS_VIOLATION", fmt.Sprintf("at least %d item(s) required", *prop.MinItems))
		}
		if prop.Items != nil {
			for i, item := range v {
				validateField(result, fmt.Sprintf("%s[%d]", fieldName, i), item, *prop.Items)
			}
		}

	case map[string]interface{}:
		if prop.Properties != nil {
			nested := ValidateInput(v, JSONSchema{
				Type:                 "object",
				Properties:           prop.Properties,
				Required:             prop.Required,
				AdditionalProperties: true,
			})
			result.Merge(fieldName, nested)
		}
	}
}

func validateType(value interface{}, expectedType string) error {
	ok := true
	switch expectedType {
	case "string":
		_, ok = value.(string)
	case "number":
		_, ok = value.(float64)
	case "integer":
		f, isFloat := value.(float64)
		ok = isFloat && f == float64(int64(f))
	case "boolean":
		_, ok = value.(bool)
	case "object":
		_, ok = value.(map[string]interface{})
	case "array":
		_, ok = value.([]interface{})
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", expectedType, value)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

var taskTypePattern = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)

// ValidateTaskTypeNaming checks the domain.subject.action naming convention
// used for job worker task types.
func ValidateTaskTypeNaming(taskType string) error {
	if !taskTypePattern.MatchString(taskType) {
		return fmt.Errorf("task type must follow format: domain.subject.action (e.g., catalog.status.transition)")
	}
	return nil
}

// GetSchemaFromJSON parses a JSONSchema from its JSON form.
func GetSchemaFromJSON(schemaJSON string) (JSONSchema, error) {
	var schema JSONSchema
	err := json.Unmarshal([]byte(schemaJSON), &schema)
	return schema, err
}
