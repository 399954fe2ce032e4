package registry

import (
	"testing"

	"github.com/frier-sam/dynamic-saas/internal/entity"
	"github.com/frier-sam/dynamic-saas/internal/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCRUD(t *testing.T) (*CRUD, *entity.Module) {
	t.Helper()
	r, _ := newTestRegistry(t)
	userID := newTestUser(t, r)
	module, err := r.CreateModule(userID, "notes", "", entity.ModuleTypeData)
	require.NoError(t, err)

	fields := inference.NewFieldMap(
		"id", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"title", "TEXT NOT NULL",
		"body", "TEXT",
	)
	_, err = r.CreateTableForModule(module, "entries", fields, "")
	require.NoError(t, err)

	return NewCRUD(r), module
}

func TestInsertAndQueryData(t *testing.T) {
	crud, module := newTestCRUD(t)

	id := crud.InsertData(module, "entries", map[string]any{
		"title": "first", "body": "hello",
	})
	assert.Equal(t, int64(1), id)

	rows := crud.QueryData(module, "entries", nil, "", nil, 0, "")
	require.Len(t, rows, 1)
	assert.Equal(t, "first", rows[0]["title"])

	rows = crud.QueryData(module, "entries", nil, "title = ?", []any{"first"}, 0, "")
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0]["body"])
	rows = crud.QueryData(module, "entries", nil, "title = ?", []any{"none"}, 0, "")
	assert.Empty(t, rows)
}

func TestInsertDataIgnoresUnknownKeys(t *testing.T) {
	crud, module := newTestCRUD(t)

	// One key matches a live column, the stray one is dropped.
	id := crud.InsertData(module, "entries", map[string]any{
		"title": "kept", "bogus_field": "dropped",
	})
	assert.Equal(t, int64(1), id)

	rows := crud.QueryData(module, "entries", nil, "", nil, 0, "")
	require.Len(t, rows, 1)
	assert.Equal(t, "kept", rows[0]["title"])
	assert.Nil(t, rows[0]["body"])
}

func TestInsertDataPositionalFallback(t *testing.T) {
	crud, module := newTestCRUD(t)

	// No key matches any live column. The payload keys are sorted and zipped
	// onto (id, title, body) in order.
	id := crud.InsertData(module, "entries", map[string]any{
		"a_first": 7, "b_second": "mapped title",
	})
	assert.Equal(t, int64(7), id)

	rows := crud.QueryData(module, "entries", nil, "id = ?", []any{int64(7)}, 0, "")
	require.Len(t, rows, 1)
	assert.Equal(t, "mapped title", rows[0]["title"])
}

func TestInsertDataPositionalFallbackRefusedWhenTooWide(t *testing.T) {
	crud, module := newTestCRUD(t)

	// Four unknown keys against three columns: nothing to zip safely.
	id := crud.InsertData(module, "entries", map[string]any{
		"a": 1, "b": 2, "c": 3, "d": 4,
	})
	assert.Equal(t, int64(-1), id)
}

func TestInsertDataUnknownTable(t *testing.T) {
	crud, module := newTestCRUD(t)
	assert.Equal(t, int64(-1), crud.InsertData(module, "missing", map[string]any{"title": "x"}))
}

func TestUpdateAndDeleteData(t *testing.T) {
	crud, module := newTestCRUD(t)

	id := crud.InsertData(module, "entries", map[string]any{"title": "v1"})
	require.Equal(t, int64(1), id)

	affected := crud.UpdateData(module, "entries", map[string]any{"title": "v2"}, "id = ?", []any{id})
	assert.Equal(t, int64(1), affected)

	rows := crud.QueryData(module, "entries", []string{"title"}, "id = ?", []any{id}, 0, "")
	require.Len(t, rows, 1)
	assert.Equal(t, "v2", rows[0]["title"])

	assert.Equal(t, int64(0), crud.DeleteData(module, "entries", "id = ?", []any{int64(99)}))
	assert.Equal(t, int64(1), crud.DeleteData(module, "entries", "id = ?", []any{id}))

	// Unknown tables collapse to sentinels, never errors.
	assert.Equal(t, int64(-1), crud.UpdateData(module, "missing", map[string]any{"x": 1}, "id = ?", []any{1}))
	assert.Equal(t, int64(-1), crud.DeleteData(module, "missing", "id = ?", []any{1}))
	assert.Empty(t, crud.QueryData(module, "missing", nil, "", nil, 0, ""))
}
