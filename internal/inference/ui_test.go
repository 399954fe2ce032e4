package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestComponentTypeFor(t *testing.T) {
	tests := []struct {
		field    string
		sqlType  string
		expected string
	}{
		{"author_id", "INTEGER", "select"},
		{"done", "BOOLEAN", "checkbox"},
		{"quantity", "INTEGER NOT NULL", "number_input"},
		{"price", "REAL", "number_input"},
		{"title", "TEXT NOT NULL", "text_input"},
		{"notes", "TIMESTAMP", "text_input"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, componentTypeFor(tt.field, tt.sqlType),
			"field %s type %s", tt.field, tt.sqlType)
	}
}

func TestFallbackUISectionsPerTable(t *testing.T) {
	engine := NewUIEngine(nil, zap.NewNop())
	schema := Schema{
		"tasks": {
			Fields: NewFieldMap(
				"id", "INTEGER PRIMARY KEY AUTOINCREMENT",
				"title", "TEXT NOT NULL",
				"done", "BOOLEAN",
				"project_id", "INTEGER",
				"created_at", "TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
				"updated_at", "TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
			),
		},
		"projects": {
			Fields: NewFieldMap(
				"id", "INTEGER PRIMARY KEY AUTOINCREMENT",
				"name", "TEXT NOT NULL",
			),
		},
	}

	ui := engine.InferUI(context.Background(), "Task Tracker", schema, "tasks")

	assert.Equal(t, "Task Tracker", ui.Title)
	assert.Equal(t, "standard", ui.Layout)
	// A form and a display section per table, tables in name order.
	require.Len(t, ui.Sections, 4)
	assert.Equal(t, "form", ui.Sections[0].Type)
	assert.Equal(t, "projects", ui.Sections[0].TargetTable)
	assert.Equal(t, "display", ui.Sections[1].Type)
	assert.Equal(t, "projects", ui.Sections[1].TargetTable)
	assert.Equal(t, "form", ui.Sections[2].Type)
	assert.Equal(t, "tasks", ui.Sections[2].TargetTable)
	assert.Equal(t, "display", ui.Sections[3].Type)

	form := ui.Sections[2]
	fields := make(map[string]UIComponent, len(form.Components))
	for _, c := range form.Components {
		fields[c.Field] = c
	}
	// Platform-managed columns never get inputs.
	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "created_at")
	assert.NotContains(t, fields, "updated_at")

	assert.Equal(t, "text_input", fields["title"].Type)
	assert.True(t, fields["title"].Required)
	assert.Equal(t, "checkbox", fields["done"].Type)
	assert.False(t, fields["done"].Required)
	assert.Equal(t, "select", fields["project_id"].Type)
	assert.Equal(t, "Project Id", fields["project_id"].Label)
}

func TestFallbackUISkipsFormWithNoEditableFields(t *testing.T) {
	engine := NewUIEngine(nil, zap.NewNop())
	schema := Schema{
		"audit": {
			Fields: NewFieldMap(
				"id", "INTEGER PRIMARY KEY AUTOINCREMENT",
				"created_at", "TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
			),
		},
	}

	ui := engine.InferUI(context.Background(), "Audit", schema, "")

	require.Len(t, ui.Sections, 1)
	assert.Equal(t, "display", ui.Sections[0].Type)
}

func TestInferUIFallsBackOnModelFailure(t *testing.T) {
	schema := Schema{
		"items": {Fields: NewFieldMap("id", "INTEGER PRIMARY KEY AUTOINCREMENT", "name", "TEXT NOT NULL")},
	}

	for name, client := range map[string]stubClient{
		"error":       {err: errors.New("unavailable")},
		"no json":     {reply: "sorry, cannot do that"},
		"no sections": {reply: `{"title": "X", "layout": "standard", "sections": []}`},
	} {
		t.Run(name, func(t *testing.T) {
			engine := NewUIEngine(client, zap.NewNop())
			ui := engine.InferUI(context.Background(), "Inventory", schema, "items")
			assert.Equal(t, "Inventory", ui.Title)
			assert.NotEmpty(t, ui.Sections)
		})
	}
}

func TestInferUIAcceptsModelOutput(t *testing.T) {
	reply := "```json\n" + `{
		"title": "",
		"layout": "",
		"sections": [
			{"title": "Add Item", "type": "form", "target_table": "items",
			 "components": [{"type": "text_input", "field": "name", "label": "Name", "required": true}]}
		]
	}` + "\n```"
	engine := NewUIEngine(stubClient{reply: reply}, zap.NewNop())
	schema := Schema{
		"items": {Fields: NewFieldMap("id", "INTEGER PRIMARY KEY AUTOINCREMENT", "name", "TEXT NOT NULL")},
	}

	ui := engine.InferUI(context.Background(), "Inventory", schema, "items")

	// Missing title and layout are filled in, sections taken as-is.
	assert.Equal(t, "Inventory", ui.Title)
	assert.Equal(t, "standard", ui.Layout)
	require.Len(t, ui.Sections, 1)
	assert.Equal(t, "items", ui.Sections[0].TargetTable)
}
