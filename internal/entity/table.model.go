package entity

import (
	"encoding/json"

	"github.com/frier-sam/dynamic-saas/internal/inference"
	"gorm.io/gorm"
)

// DynamicTable binds a logical table name, unique within its module, to the
// physical table that backs it. The schema snapshot records the physical
// name, the field map and the foreign-key edges that were actually realized
// at creation time; the live table remains the source of truth for columns.
type DynamicTable struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"not null;uniqueIndex:idx_table_name_module"`
	Name        string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_table_name_module"`
	Description string `json:"description" gorm:"type:text"`
	Schema      string `json:"-" gorm:"type:text;default:'{}'"`
}

// ForeignKey is one realized foreign-key edge: Field references the id column
// of the physical table named in References.
type ForeignKey struct {
	Field      string `json:"field"`
	References string `json:"references"`
}

// TableSnapshot is the persisted schema record for one dynamic table.
type TableSnapshot struct {
	PhysicalName string             `json:"physical_name"`
	Fields       inference.FieldMap `json:"fields"`
	ForeignKeys  []ForeignKey       `json:"foreign_keys"`
}

// GetSnapshot returns the stored schema snapshot.
func (t *DynamicTable) GetSnapshot() (TableSnapshot, error) {
	var snap TableSnapshot
	if t.Schema == "" || t.Schema == "{}" {
		return snap, nil
	}
	err := json.Unmarshal([]byte(t.Schema), &snap)
	return snap, err
}

// SetSnapshot stores the schema snapshot.
func (t *DynamicTable) SetSnapshot(snap TableSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	t.Schema = string(data)
	return nil
}
