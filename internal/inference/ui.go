package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/frier-sam/dynamic-saas/internal/llm"
	"go.uber.org/zap"
)

// UIEngine renders a UI definition for a logical schema: one form and one
// listing section per table. Like the schema engine it never fails outright;
// unusable model output degrades to a generator that applies the same widget
// mapping rules directly to the schema.
type UIEngine struct {
	client llm.Client
	logger *zap.Logger
}

func NewUIEngine(client llm.Client, logger *zap.Logger) *UIEngine {
	return &UIEngine{client: client, logger: logger}
}

const uiSystemPrompt = `You are a UI designer for a web-based SaaS platform.
Your task is to create UI definitions that will be rendered by our platform.

IMPORTANT CONTEXT:
1. We have a standardized UI system with forms and data display components
2. You are creating JSON definitions that our system will render into web forms
3. You need to map database fields to UI components
4. Each table should have its own add/edit form and data display section`

// InferUI produces a UI definition for the module's schema.
func (e *UIEngine) InferUI(ctx context.Context, moduleName string, schema Schema, description string) UIDefinition {
	if e.client == nil {
		return e.fallbackUI(moduleName, schema)
	}

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return e.fallbackUI(moduleName, schema)
	}

	prompt := fmt.Sprintf(`Create a UI definition for a module named "%s" with this database schema:

%s

Module description: %s

Output ONLY a JSON object with this structure:
{
    "title": "%s",
    "layout": "standard",
    "sections": [
        {
            "title": "Add [Table Name]",
            "description": "Form to add new records",
            "type": "form",
            "target_table": "actual_table_name_from_schema",
            "components": [
                {
                    "type": "text_input",
                    "field": "actual_db_field_name",
                    "label": "User Friendly Label",
                    "placeholder": "Enter value...",
                    "required": true
                }
            ],
            "actions": [
                {
                    "label": "Save",
                    "action": "save",
                    "style": "primary"
                }
            ]
        },
        {
            "title": "View [Table Name]",
            "type": "display",
            "target_table": "actual_table_name_from_schema"
        }
    ]
}

Rules:
1. Create a separate form section for EACH table in the schema
2. Create a display section for EACH table to view records
3. Use the ACTUAL database field names in the "field" property of components
4. Skip id, created_at, and updated_at fields in forms
5. Add appropriate UI components based on field data types
   - TEXT fields: text_input or textarea
   - INTEGER/REAL fields: number_input
   - BOOLEAN fields: checkbox
   - Foreign key fields (ending in _id): select component
6. Add filter controls for tables that have relationships`, moduleName, schemaJSON, description, moduleName)

	reply, err := e.client.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, uiSystemPrompt, 2000, 0.2)
	if err != nil {
		e.logger.Warn("ui inference call failed, using fallback", zap.Error(err))
		return e.fallbackUI(moduleName, schema)
	}

	raw, err := extractJSONObject(reply)
	if err != nil {
		e.logger.Warn("no JSON UI definition found in model response, using fallback")
		return e.fallbackUI(moduleName, schema)
	}
	var ui UIDefinition
	if err := json.Unmarshal([]byte(raw), &ui); err != nil {
		e.logger.Warn("failed to parse UI definition from model response, using fallback", zap.Error(err))
		return e.fallbackUI(moduleName, schema)
	}
	if len(ui.Sections) == 0 {
		e.logger.Warn("model returned UI definition with no sections, using fallback")
		return e.fallbackUI(moduleName, schema)
	}
	if ui.Title == "" {
		ui.Title = moduleName
	}
	if ui.Layout == "" {
		ui.Layout = "standard"
	}
	return ui
}

// skippedFormFields are platform-managed columns that never appear as inputs.
var skippedFormFields = map[string]struct{}{
	"id": {}, "created_at": {}, "updated_at": {},
}

// fallbackUI applies the widget mapping rules directly to the schema. Tables
// are emitted in name order so the output is deterministic.
func (e *UIEngine) fallbackUI(moduleName string, schema Schema) UIDefinition {
	tableNames := make([]string, 0, len(schema))
	for name := range schema {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	var sections []UISection
	for _, tableName := range tableNames {
		def := schema[tableName]

		var components []UIComponent
		for _, fieldName := range def.Fields.Names() {
			if _, skip := skippedFormFields[fieldName]; skip {
				continue
			}
			fieldType, _ := def.Fields.Get(fieldName)
			components = append(components, UIComponent{
				Type:        componentTypeFor(fieldName, fieldType),
				Field:       fieldName,
				Label:       fieldLabel(fieldName),
				Placeholder: "Enter " + strings.ReplaceAll(fieldName, "_", " "),
				Required:    strings.Contains(strings.ToUpper(fieldType), "NOT NULL"),
			})
		}

		if len(components) > 0 {
			sections = append(sections, UISection{
				Title:       "Add " + titleCase(tableName),
				Description: fmt.Sprintf("Add new %s records", tableName),
				Type:        "form",
				TargetTable: tableName,
				Components:  components,
				Actions: []UIAction{
					{Label: "Save", Action: "save", Style: "primary"},
				},
			})
		}
		sections = append(sections, UISection{
			Title:       "View " + titleCase(tableName),
			Type:        "display",
			TargetTable: tableName,
		})
	}

	return UIDefinition{
		Title:    moduleName,
		Layout:   "standard",
		Sections: sections,
	}
}

// componentTypeFor maps a SQL type string (and the _id naming convention)
// onto an input widget.
func componentTypeFor(fieldName, fieldType string) string {
	if strings.HasSuffix(fieldName, "_id") {
		return "select"
	}
	upper := strings.ToUpper(fieldType)
	switch {
	case strings.Contains(upper, "BOOLEAN"):
		return "checkbox"
	case strings.Contains(upper, "INTEGER") || strings.Contains(upper, "REAL"):
		return "number_input"
	default:
		return "text_input"
	}
}

func fieldLabel(fieldName string) string {
	return titleCase(strings.ReplaceAll(fieldName, "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
