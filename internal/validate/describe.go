package validate

// RuleInfo is the catalog view of a Rule.
type RuleInfo struct {
	Kind RuleKind `json:"kind" yaml:"kind"`
	Name string   `json:"name" yaml:"name"`
}

// FieldInfo is the catalog view of a Field.
type FieldInfo struct {
	Name     string     `json:"name" yaml:"name"`
	Required bool       `json:"required" yaml:"required"`
	Rules    []RuleInfo `json:"rules" yaml:"rules"`
}

// SchemaInfo is an inspectable description of a Schema, used by the
// /schemas endpoint and `agrictl schema`.
type SchemaInfo struct {
	Name        string      `json:"name" yaml:"name"`
	Fields      []FieldInfo `json:"fields" yaml:"fields"`
	Refinements []string    `json:"refinements,omitempty" yaml:"refinements,omitempty"`
}

// Describe returns the catalog view of s in field order.
func (s *Schema) Describe() SchemaInfo {
	info := SchemaInfo{Name: s.name, Fields: make([]FieldInfo, 0, len(s.fields))}
	for _, f := range s.fields {
		fi := FieldInfo{Name: f.Name, Required: f.Required, Rules: make([]RuleInfo, 0, len(f.Rules))}
		for _, r := range f.Rules {
			fi.Rules = append(fi.Rules, RuleInfo{Kind: r.Kind, Name: r.Name})
		}
		info.Fields = append(info.Fields, fi)
	}
	for _, r := range s.refinements {
		info.Refinements = append(info.Refinements, r.Name)
	}
	return info
}
