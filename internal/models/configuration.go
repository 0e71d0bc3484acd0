package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueType identifies how a configuration value is interpreted.
type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeInteger ValueType = "integer"
	ValueTypeFloat   ValueType = "float"
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeJSON    ValueType = "json"
	ValueTypeList    ValueType = "list"

	// ValueTypeAuto asks the store to detect the type from the value's shape.
	ValueTypeAuto ValueType = "auto"
)

// SensitivePlaceholder replaces sensitive values in API responses.
const SensitivePlaceholder = "***HIDDEN***"

// Configuration is a runtime-tunable setting persisted in the database.
// Bootstrap settings (database, Redis connections, bind address) are
// deliberately not stored here.
type Configuration struct {
	ID            int         `json:"id" db:"id"`
	Key           string      `json:"key" db:"key"`
	Category      string      `json:"category" db:"category"`
	Description   string      `json:"description,omitempty" db:"description"`
	DisplayName   string      `json:"display_name,omitempty" db:"display_name"`
	HelpText      string      `json:"help_text,omitempty" db:"help_text"`
	Value         interface{} `json:"value" db:"value"`
	ValueType     ValueType   `json:"value_type" db:"value_type"`
	PreviousValue interface{} `json:"previous_value,omitempty" db:"previous_value"`
	IsSensitive   bool        `json:"is_sensitive" db:"is_sensitive"`
	IsReadonly    bool        `json:"is_readonly" db:"is_readonly"`
	IsSystem      bool        `json:"is_system" db:"is_system"`
	IsActive      bool        `json:"is_active" db:"is_active"`
	ChangedBy     string      `json:"changed_by,omitempty" db:"changed_by"`
	ChangeReason  string      `json:"change_reason,omitempty" db:"change_reason"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// ToResponse converts the configuration to an API response map.
// Sensitive values are replaced with a placeholder unless includeSensitive
// is set.
func (c *Configuration) ToResponse(includeSensitive bool) map[string]interface{} {
	result := map[string]interface{}{
		"key":          c.Key,
		"category":     c.Category,
		"description":  c.Description,
		"display_name": c.DisplayName,
		"help_text":    c.HelpText,
		"value_type":   c.ValueType,
		"is_sensitive": c.IsSensitive,
		"is_readonly":  c.IsReadonly,
		"is_system":    c.IsSystem,
		"changed_by":   c.ChangedBy,
		"updated_at":   c.UpdatedAt.Format(time.RFC3339),
	}

	if includeSensitive || !c.IsSensitive {
		result["value"] = c.Value
		result["previous_value"] = c.PreviousValue
	} else {
		result["value"] = SensitivePlaceholder
		result["previous_value"] = SensitivePlaceholder
	}

	return result
}

// DetectValueType infers the value type from a value's runtime shape.
// Precedence: boolean, integer, float, structured (list or map), string.
// A boolean is checked first so it is never mis-detected as an integer.
func DetectValueType(value interface{}) ValueType {
	switch v := value.(type) {
	case bool:
		return ValueTypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ValueTypeInteger
	case json.Number:
		if _, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return ValueTypeInteger
		}
		return ValueTypeFloat
	case float32, float64:
		return ValueTypeFloat
	case []interface{}:
		return ValueTypeList
	case map[string]interface{}:
		return ValueTypeJSON
	default:
		return ValueTypeString
	}
}

// EncodeValue serializes a configuration value for storage.
func EncodeValue(value interface{}) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(raw), nil
}

// DecodeValue deserializes a stored configuration value according to its
// declared type, so callers get a properly typed value back instead of the
// generic shapes JSON decoding produces.
func DecodeValue(raw string, valueType ValueType) (interface{}, error) {
	switch valueType {
	case ValueTypeBoolean:
		var v bool
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode boolean value: %w", err)
		}
		return v, nil
	case ValueTypeInteger:
		var v int64
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode integer value: %w", err)
		}
		return v, nil
	case ValueTypeFloat:
		var v float64
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode float value: %w", err)
		}
		return v, nil
	case ValueTypeString:
		var v string
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode string value: %w", err)
		}
		return v, nil
	default:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode value: %w", err)
		}
		return v, nil
	}
}

// CategoryPolicy controls whether a configuration category may be modified
// through the public API.
type CategoryPolicy int

const (
	CategoryMutable CategoryPolicy = iota
	CategoryReserved
)

// categoryPolicies is the single place reserved categories are declared.
// "system" holds internal process-bootstrap flags; "bootstrap" mirrors
// deployment settings that only exist in the environment.
var categoryPolicies = map[string]CategoryPolicy{
	"system":    CategoryReserved,
	"bootstrap": CategoryReserved,
}

// PolicyFor returns the mutation policy for a category. Unknown categories
// are mutable.
func PolicyFor(category string) CategoryPolicy {
	if policy, ok := categoryPolicies[category]; ok {
		return policy
	}
	return CategoryMutable
}

// IsReservedCategory reports whether a category is excluded from public
// mutation and listing.
func IsReservedCategory(category string) bool {
	return PolicyFor(category) == CategoryReserved
}
