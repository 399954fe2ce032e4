package entity

import (
	"time"

	"gorm.io/gorm"
)

// ModuleState tracks usage of a module.
type ModuleState struct {
	gorm.Model
	ModuleID     uint      `json:"module_id" gorm:"not null;uniqueIndex"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	LastAccessed time.Time `json:"last_accessed"`
	UsageCount   int       `json:"usage_count" gorm:"default:0"`
	StateData    string    `json:"-" gorm:"type:text;default:'{}'"`
}
