package schema

import "sort"

// Param is the flattened parameter description returned by the
// lead-sources endpoint.
type Param struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Required    bool       `json:"required"`
	Description string     `json:"description,omitempty"`
	Default     any        `json:"default,omitempty"`
	Validation  Validation `json:"validation"`
}

type Validation struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Enum    []string `json:"enum,omitempty"`
}

// Flatten turns the schema document into a stable parameter list.
func (s *InputSchema) Flatten() []Param {
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}

	params := make([]Param, 0, len(s.Properties))
	for name, field := range s.Properties {
		typ := string(field.Type)
		if typ == "" {
			typ = string(TypeString)
		}
		params = append(params, Param{
			Name:        name,
			Type:        typ,
			Required:    required[name],
			Description: field.Description,
			Default:     field.Default,
			Validation: Validation{
				Min:     field.Minimum,
				Max:     field.Maximum,
				Pattern: field.Pattern,
				Enum:    field.Enum,
			},
		})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}
