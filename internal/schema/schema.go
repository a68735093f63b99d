// Package schema parses and enforces the per-source input schema: a
// declarative description of job parameters with types, required flags
// and bounds. Validation collects every violation before failing.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
)

type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
)

// Field describes one named parameter.
type Field struct {
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	MinLength   *int      `json:"minLength,omitempty"`
	MaxLength   *int      `json:"maxLength,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// InputSchema is the stored per-source schema document.
type InputSchema struct {
	Properties map[string]Field `json:"properties"`
	Required   []string         `json:"required"`
}

// Parse decodes a stored input_schema column. An empty document means
// "no constraints".
func Parse(raw []byte) (*InputSchema, error) {
	if len(raw) == 0 {
		return &InputSchema{}, nil
	}
	var s InputSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse input schema: %w", err)
	}
	return &s, nil
}

// Value is a validated, typed parameter value.
type Value struct {
	Kind FieldType
	Str  string
	Num  float64
	Bool bool
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case TypeNumber:
		return json.Marshal(v.Num)
	case TypeBoolean:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Str)
	}
}

// Params is the parameter bag after a successful validation.
type Params map[string]Value

// Validate checks params against the schema and returns the typed
// values plus every violation found. A nil/empty violation slice means
// the bag is valid.
func (s *InputSchema) Validate(params map[string]any) (Params, []string) {
	var violations []string

	for _, field := range s.Required {
		v, ok := params[field]
		if !ok || v == nil || v == "" {
			violations = append(violations, fmt.Sprintf("required field '%s' is missing", field))
		}
	}

	out := make(Params, len(params))
	for name, field := range s.Properties {
		raw, ok := params[name]
		if !ok || raw == nil || raw == "" {
			continue
		}
		val, errs := checkField(name, field, raw)
		if len(errs) > 0 {
			violations = append(violations, errs...)
			continue
		}
		out[name] = val
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return out, nil
}

func checkField(name string, field Field, raw any) (Value, []string) {
	var errs []string

	switch field.Type {
	case TypeString:
		str, ok := raw.(string)
		if !ok {
			return Value{}, []string{fmt.Sprintf("field '%s' must be a string", name)}
		}
		if field.MinLength != nil && len(str) < *field.MinLength {
			errs = append(errs, fmt.Sprintf("field '%s' is shorter than minimum length of %d", name, *field.MinLength))
		}
		if field.MaxLength != nil && len(str) > *field.MaxLength {
			errs = append(errs, fmt.Sprintf("field '%s' exceeds maximum length of %d", name, *field.MaxLength))
		}
		if field.Pattern != "" {
			re, err := regexp.Compile(field.Pattern)
			if err != nil || !re.MatchString(str) {
				errs = append(errs, fmt.Sprintf("field '%s' does not match pattern '%s'", name, field.Pattern))
			}
		}
		if len(field.Enum) > 0 && !contains(field.Enum, str) {
			errs = append(errs, fmt.Sprintf("field '%s' must be one of %v", name, field.Enum))
		}
		if len(errs) > 0 {
			return Value{}, errs
		}
		return Value{Kind: TypeString, Str: str}, nil

	case TypeNumber:
		num, ok := raw.(float64)
		if !ok {
			// ints survive some decoders
			if i, iok := raw.(int); iok {
				num, ok = float64(i), true
			}
		}
		if !ok {
			return Value{}, []string{fmt.Sprintf("field '%s' must be a number", name)}
		}
		if field.Minimum != nil && num < *field.Minimum {
			errs = append(errs, fmt.Sprintf("field '%s' is less than minimum value of %v", name, *field.Minimum))
		}
		if field.Maximum != nil && num > *field.Maximum {
			errs = append(errs, fmt.Sprintf("field '%s' exceeds maximum value of %v", name, *field.Maximum))
		}
		if len(errs) > 0 {
			return Value{}, errs
		}
		return Value{Kind: TypeNumber, Num: num}, nil

	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, []string{fmt.Sprintf("field '%s' must be a boolean", name)}
		}
		return Value{Kind: TypeBoolean, Bool: b}, nil

	default:
		// unknown declared type: accept as opaque string form
		return Value{Kind: TypeString, Str: fmt.Sprint(raw)}, nil
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
