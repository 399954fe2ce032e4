package registry

import (
	"errors"
	"sort"
	"strings"

	"github.com/frier-sam/dynamic-saas/internal/entity"
	"gorm.io/gorm"

	"go.uber.org/zap"
)

// CRUD is the generic data surface over a module's dynamic tables. Callers
// address tables by their logical name; physical identity is resolved through
// the registry metadata and never accepted from outside. Failures follow the
// table store's sentinel convention (-1 / empty slice).
type CRUD struct {
	reg    *Registry
	logger *zap.Logger
}

func NewCRUD(reg *Registry) *CRUD {
	return &CRUD{reg: reg, logger: reg.logger}
}

// resolve maps a logical table name to its metadata record and snapshot.
func (c *CRUD) resolve(module *entity.Module, tableName string) (*entity.DynamicTable, entity.TableSnapshot, error) {
	var table entity.DynamicTable
	err := c.reg.db.Where("module_id = ? AND name = ?", module.ID, tableName).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logger.Warn("table not found for module",
				zap.String("table", tableName), zap.String("module", module.Name))
		}
		return nil, entity.TableSnapshot{}, err
	}
	snap, err := table.GetSnapshot()
	if err != nil {
		return nil, entity.TableSnapshot{}, err
	}
	return &table, snap, nil
}

// InsertData writes one row into a module's table and returns the new row id,
// or -1 on failure.
//
// The payload is untrusted: its keys may not match the table at all. The
// authoritative live column list is introspected first and the payload is
// reconciled against it in two steps. Keys that exactly match a live column
// are kept. If nothing matches and the payload has no more keys than the
// table has columns, the payload keys are sorted and zipped positionally onto
// the live column list. The positional step is a lossy, order-dependent last
// resort for payloads whose field names drifted from the schema; callers
// should not rely on it as a primary path.
func (c *CRUD) InsertData(module *entity.Module, tableName string, data map[string]any) int64 {
	_, snap, err := c.resolve(module, tableName)
	if err != nil {
		return -1
	}

	// Foreign-key values are passed through as-is; a reference to a table
	// that was never registered is worth a warning but not a rejection, the
	// column exists either way.
	for key, value := range data {
		if !strings.HasSuffix(key, "_id") || value == nil {
			continue
		}
		referenced := strings.TrimSuffix(key, "_id")
		var refTable entity.DynamicTable
		if findErr := c.reg.db.Where("module_id = ? AND name = ?", module.ID, referenced).
			First(&refTable).Error; findErr != nil {
			c.logger.Warn("referenced table not found for foreign key value",
				zap.String("field", key), zap.String("table", tableName))
		}
	}

	liveColumns := c.reg.store.ColumnNames(snap.PhysicalName)
	if len(liveColumns) == 0 {
		c.logger.Error("no columns found for table",
			zap.String("table", tableName), zap.String("physical", snap.PhysicalName))
		return -1
	}
	liveSet := make(map[string]struct{}, len(liveColumns))
	for _, col := range liveColumns {
		liveSet[col] = struct{}{}
	}

	valid := map[string]any{}
	for key, value := range data {
		if _, ok := liveSet[key]; ok {
			valid[key] = value
		}
	}

	if len(valid) == 0 && len(data) <= len(liveColumns) {
		keys := make([]string, 0, len(data))
		for key := range data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for i, key := range keys {
			valid[liveColumns[i]] = data[key]
		}
		c.logger.Warn("no payload keys matched live columns, using positional mapping",
			zap.String("table", tableName),
			zap.Strings("payload_keys", keys),
			zap.Strings("live_columns", liveColumns))
	}

	if len(valid) == 0 {
		payloadKeys := make([]string, 0, len(data))
		for key := range data {
			payloadKeys = append(payloadKeys, key)
		}
		sort.Strings(payloadKeys)
		c.logger.Error("no valid column mapping found for payload",
			zap.String("table", tableName),
			zap.Strings("live_columns", liveColumns),
			zap.Strings("payload_keys", payloadKeys))
		return -1
	}

	return c.reg.store.Insert(snap.PhysicalName, valid)
}

// QueryData reads rows from a module's table. where and orderBy are trusted
// raw fragments from internal callers (see tablestore.Store); params are
// bound. Returns an empty slice on failure.
func (c *CRUD) QueryData(module *entity.Module, tableName string, columns []string, where string, params []any, limit int, orderBy string) []map[string]any {
	_, snap, err := c.resolve(module, tableName)
	if err != nil {
		return []map[string]any{}
	}
	return c.reg.store.Select(snap.PhysicalName, columns, where, params, limit, orderBy)
}

// UpdateData updates rows matching the where fragment; returns the affected
// count or -1.
func (c *CRUD) UpdateData(module *entity.Module, tableName string, data map[string]any, where string, params []any) int64 {
	_, snap, err := c.resolve(module, tableName)
	if err != nil {
		return -1
	}
	return c.reg.store.Update(snap.PhysicalName, data, where, params)
}

// DeleteData deletes rows matching the where fragment; returns the affected
// count or -1.
func (c *CRUD) DeleteData(module *entity.Module, tableName string, where string, params []any) int64 {
	_, snap, err := c.resolve(module, tableName)
	if err != nil {
		return -1
	}
	return c.reg.store.Delete(snap.PhysicalName, where, params)
}
