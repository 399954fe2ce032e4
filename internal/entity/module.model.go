package entity

import (
	"encoding/json"

	"github.com/frier-sam/dynamic-saas/internal/inference"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Module kinds. Custom is the default when the caller does not say otherwise.
const (
	ModuleTypeData      = "data"
	ModuleTypeForm      = "form"
	ModuleTypeReport    = "report"
	ModuleTypeDashboard = "dashboard"
	ModuleTypeCustom    = "custom"
)

// ValidModuleType reports whether t is one of the enumerated module kinds.
func ValidModuleType(t string) bool {
	switch t {
	case ModuleTypeData, ModuleTypeForm, ModuleTypeReport, ModuleTypeDashboard, ModuleTypeCustom:
		return true
	}
	return false
}

// Module is a user-owned workspace of dynamically created tables plus an
// optional generated UI. The numeric ID participates in physical table
// naming, so it must never be reused across modules.
type Module struct {
	gorm.Model
	Name         string         `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_module_name_user"`
	Description  string         `json:"description" gorm:"type:text"`
	UserID       uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_module_name_user"`
	ModuleType   string         `json:"module_type" gorm:"type:varchar(20);default:custom"`
	HasGUI       bool           `json:"has_gui" gorm:"column:has_gui;default:false"`
	Schema       string         `json:"-" gorm:"type:text;default:'{}'"`
	Config       string         `json:"-" gorm:"type:text;default:'{}'"`
	UIDefinition string         `json:"-" gorm:"column:ui_definition;type:text;default:'{}'"`
	Tables       []DynamicTable `json:"tables,omitempty" gorm:"foreignKey:ModuleID"`
	State        *ModuleState   `json:"state,omitempty" gorm:"foreignKey:ModuleID"`
}

// GetSchema returns the logical schema snapshot.
func (m *Module) GetSchema() (inference.Schema, error) {
	if m.Schema == "" || m.Schema == "{}" {
		return inference.Schema{}, nil
	}
	var schema inference.Schema
	if err := json.Unmarshal([]byte(m.Schema), &schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// SetSchema stores the logical schema snapshot.
func (m *Module) SetSchema(schema inference.Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	m.Schema = string(data)
	return nil
}

// GetUIDefinition returns the UI definition snapshot.
func (m *Module) GetUIDefinition() (inference.UIDefinition, error) {
	var ui inference.UIDefinition
	if m.UIDefinition == "" || m.UIDefinition == "{}" {
		return ui, nil
	}
	err := json.Unmarshal([]byte(m.UIDefinition), &ui)
	return ui, err
}

// SetUIDefinition stores the UI definition snapshot.
func (m *Module) SetUIDefinition(ui inference.UIDefinition) error {
	data, err := json.Marshal(ui)
	if err != nil {
		return err
	}
	m.UIDefinition = string(data)
	return nil
}

// GetConfig returns the free-form module configuration.
func (m *Module) GetConfig() (map[string]any, error) {
	cfg := map[string]any{}
	if m.Config == "" {
		return cfg, nil
	}
	err := json.Unmarshal([]byte(m.Config), &cfg)
	return cfg, err
}

// SetConfig stores the free-form module configuration.
func (m *Module) SetConfig(cfg map[string]any) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	m.Config = string(data)
	return nil
}
