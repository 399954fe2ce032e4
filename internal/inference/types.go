package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Schema is a logical schema as produced by schema inference: a mapping of
// logical table name to its definition. Physical identity is assigned later,
// when the registry materializes the tables.
type Schema map[string]TableDef

// TableDef describes a single logical table.
type TableDef struct {
	Fields      FieldMap `json:"fields"`
	Description string   `json:"description,omitempty"`
}

// FieldMap is a field-name → SQL-type-string mapping that preserves the order
// in which the fields were defined. Column order matters downstream: it drives
// the CREATE TABLE column layout, which in turn is what the positional insert
// fallback zips payloads against.
type FieldMap struct {
	names []string
	types map[string]string
}

// NewFieldMap builds a FieldMap from alternating name, type pairs.
func NewFieldMap(pairs ...string) FieldMap {
	fm := FieldMap{types: map[string]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		fm.Set(pairs[i], pairs[i+1])
	}
	return fm
}

// Set adds or replaces a field, keeping first-insertion order.
func (fm *FieldMap) Set(name, sqlType string) {
	if fm.types == nil {
		fm.types = map[string]string{}
	}
	if _, ok := fm.types[name]; !ok {
		fm.names = append(fm.names, name)
	}
	fm.types[name] = sqlType
}

// Get returns the SQL type string for a field.
func (fm FieldMap) Get(name string) (string, bool) {
	t, ok := fm.types[name]
	return t, ok
}

// Names returns the field names in definition order.
func (fm FieldMap) Names() []string {
	out := make([]string, len(fm.names))
	copy(out, fm.names)
	return out
}

// Len returns the number of fields.
func (fm FieldMap) Len() int {
	return len(fm.names)
}

// MarshalJSON writes the fields as a JSON object in definition order.
func (fm FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range fm.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fm.types[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving key order via token streaming.
func (fm *FieldMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields: expected JSON object, got %v", tok)
	}
	*fm = FieldMap{types: map[string]string{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", keyTok)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("fields: value for %q must be a SQL type string: %w", key, err)
		}
		fm.Set(key, val)
	}
	_, err = dec.Token() // closing brace
	return err
}

// Analysis is the result of AnalyzeRequest: whether enough information exists
// to build a module without asking the user anything further.
type Analysis struct {
	Understanding       string   `json:"understanding"`
	ClarifyingQuestions []string `json:"clarifying_questions"`
	ReadyToProceed      bool     `json:"ready_to_proceed"`
}

// UIDefinition describes how the platform renders CRUD forms and listings for
// a module's tables.
type UIDefinition struct {
	Title    string      `json:"title"`
	Layout   string      `json:"layout"`
	Sections []UISection `json:"sections"`
}

type UISection struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Type        string        `json:"type"` // "form" or "display"
	TargetTable string        `json:"target_table"`
	Components  []UIComponent `json:"components,omitempty"`
	Actions     []UIAction    `json:"actions,omitempty"`
	Filters     []UIFilter    `json:"filters,omitempty"`
}

type UIComponent struct {
	Type        string `json:"type"`
	Field       string `json:"field"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required"`
}

type UIAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Style  string `json:"style,omitempty"`
}

type UIFilter struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	OptionsFrom string `json:"options_from,omitempty"`
	TargetField string `json:"target_field"`
}

// Validate rejects schemas that downstream components cannot materialize.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema has no tables")
	}
	for name, def := range s {
		if name == "" {
			return fmt.Errorf("schema contains a table with an empty name")
		}
		if def.Fields.Len() == 0 {
			return fmt.Errorf("table %q has no fields", name)
		}
	}
	return nil
}
