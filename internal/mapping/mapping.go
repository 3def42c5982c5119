package mapping

import (
	"errors"
	"fmt"

	"notionsync/internal/record"
)

const (
	TypeTitle    = "title"
	TypeRichText = "rich_text"
	TypeSelect   = "select"
	TypeDate     = "date"
)

// Property binds one Notion database property to a record field.
type Property struct {
	Name  string `yaml:"name"`
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// Mapping is the ordered set of properties written to Notion plus the
// subset of fields rewritten when a page already exists.
type Mapping struct {
	Properties   []Property `yaml:"properties"`
	UpdateFields []string   `yaml:"update_fields"`
}

func Default() Mapping {
	return Mapping{
		Properties: []Property{
			{Name: "Name", Field: "name", Type: TypeTitle},
			{Name: "UID", Field: record.FieldUID, Type: TypeRichText},
			{Name: "Status", Field: "status", Type: TypeSelect},
			{Name: "Reviewer Name", Field: "reviewer_name", Type: TypeRichText},
			{Name: "Review Date", Field: "review_date", Type: TypeDate},
			{Name: "Next Follow Up", Field: "next_follow_up", Type: TypeDate},
			{Name: "Date Added", Field: "date_added", Type: TypeDate},
			{Name: "Platform", Field: "platform", Type: TypeSelect},
			{Name: "Socials", Field: "socials", Type: TypeRichText},
		},
		UpdateFields: []string{"status", "platform", "socials", "reviewer_name", "review_date", "next_follow_up"},
	}
}

func (m Mapping) Validate() error {
	if len(m.Properties) == 0 {
		return errors.New("mapping has no properties")
	}
	names := make(map[string]bool, len(m.Properties))
	fields := make(map[string]bool, len(m.Properties))
	hasKey := false
	for _, p := range m.Properties {
		if p.Name == "" || p.Field == "" {
			return fmt.Errorf("mapping property %q: name and field are required", p.Name)
		}
		switch p.Type {
		case TypeTitle, TypeRichText, TypeSelect, TypeDate:
		default:
			return fmt.Errorf("mapping property %q: unsupported type %q", p.Name, p.Type)
		}
		if names[p.Name] {
			return fmt.Errorf("mapping property %q declared twice", p.Name)
		}
		names[p.Name] = true
		fields[p.Field] = true
		if p.Field == record.FieldUID && p.Type == TypeRichText {
			hasKey = true
		}
	}
	if !hasKey {
		return errors.New("mapping must bind the uid field to a rich_text property")
	}
	for _, f := range m.UpdateFields {
		if !fields[f] {
			return fmt.Errorf("update field %q is not mapped", f)
		}
	}
	return nil
}

// KeyProperty returns the Notion property holding the uid.
func (m Mapping) KeyProperty() string {
	for _, p := range m.Properties {
		if p.Field == record.FieldUID && p.Type == TypeRichText {
			return p.Name
		}
	}
	return ""
}

// CreateProperties formats every mapped field present on rec.
func (m Mapping) CreateProperties(rec record.Record) map[string]any {
	return m.Build(rec, nil)
}

// UpdateProperties formats only the update fields present on rec.
func (m Mapping) UpdateProperties(rec record.Record) map[string]any {
	return m.Build(rec, m.UpdateFields)
}

// Build builds a Notion properties payload. Absent and null fields are
// skipped, as are empty dates and selects. The uid is written trimmed. A
// non-empty only restricts the output to the named record fields.
func (m Mapping) Build(rec record.Record, only []string) map[string]any {
	var allow map[string]bool
	if len(only) > 0 {
		allow = make(map[string]bool, len(only))
		for _, f := range only {
			allow[f] = true
		}
	}

	props := make(map[string]any)
	for _, p := range m.Properties {
		if allow != nil && !allow[p.Field] {
			continue
		}
		value, ok := rec.String(p.Field)
		if !ok {
			continue
		}
		if p.Field == record.FieldUID {
			// Stored key must equal the lookup key.
			value = rec.UID()
		}
		if v := format(p.Type, value); v != nil {
			props[p.Name] = v
		}
	}
	return props
}

func format(propType, value string) map[string]any {
	switch propType {
	case TypeTitle:
		return map[string]any{"title": textContent(value)}
	case TypeRichText:
		return map[string]any{"rich_text": textContent(value)}
	case TypeSelect:
		if value == "" {
			return nil
		}
		return map[string]any{"select": map[string]string{"name": value}}
	case TypeDate:
		if value == "" {
			return nil
		}
		return map[string]any{"date": map[string]string{"start": value}}
	}
	return nil
}

func textContent(s string) []map[string]any {
	return []map[string]any{{"text": map[string]string{"content": s}}}
}
