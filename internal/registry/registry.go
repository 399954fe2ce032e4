package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frier-sam/dynamic-saas/internal/entity"
	"github.com/frier-sam/dynamic-saas/internal/inference"
	"github.com/frier-sam/dynamic-saas/internal/sqlutil"
	"github.com/frier-sam/dynamic-saas/internal/tablestore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrModuleNotFound is returned when a module lookup misses.
var ErrModuleNotFound = errors.New("module not found")

// Registry owns the mapping of modules to logical tables and their physical
// identity. It is the only component that hands physical table names to the
// table store; everything above it speaks logical names. One Registry is
// constructed at startup and passed by reference, there is no ambient global
// state.
type Registry struct {
	db     *gorm.DB
	store  *tablestore.Store
	logger *zap.Logger
}

func New(db *gorm.DB, store *tablestore.Store, logger *zap.Logger) *Registry {
	return &Registry{db: db, store: store, logger: logger}
}

// PhysicalTableName derives the globally unique physical identity of a
// logical table: module_<module_id>_<sanitized_name>. The module id prefix
// guards against collisions when two modules pick the same logical name.
func PhysicalTableName(moduleID uint, logicalName string) (string, error) {
	safe, err := sqlutil.SanitizeIdentifier(logicalName)
	if err != nil {
		return "", fmt.Errorf("logical table name %q: %w", logicalName, err)
	}
	return fmt.Sprintf("module_%d_%s", moduleID, safe), nil
}

// CreateModule persists a new module with its default state record.
func (r *Registry) CreateModule(userID uuid.UUID, name, description, moduleType string) (*entity.Module, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("module name is required")
	}
	if moduleType == "" {
		moduleType = entity.ModuleTypeCustom
	}
	if !entity.ValidModuleType(moduleType) {
		return nil, fmt.Errorf("invalid module type %q", moduleType)
	}

	module := &entity.Module{
		Name:        name,
		Description: description,
		UserID:      userID,
		ModuleType:  moduleType,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(module).Error; err != nil {
			return err
		}
		state := &entity.ModuleState{ModuleID: module.ID, IsActive: true, LastAccessed: time.Now()}
		return tx.Create(state).Error
	})
	if err != nil {
		r.logger.Error("failed to create module", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	r.logger.Info("created module", zap.String("name", name), zap.Uint("module_id", module.ID))
	return module, nil
}

// CreateTableForModule materializes one logical table. Fields named <x>_id
// are candidate foreign keys: each is resolved against the logical tables
// already registered in the same module and either promoted to a real
// FOREIGN KEY constraint or dropped with a logged reason. Resolution is never
// deferred or retried, which makes creation order-sensitive: callers must
// create referenced tables before the tables that reference them.
//
// The metadata snapshot and the physical CREATE TABLE happen in a single
// transaction, so a failed physical create leaves no metadata behind.
func (r *Registry) CreateTableForModule(module *entity.Module, tableName string, fields inference.FieldMap, description string) (*entity.DynamicTable, error) {
	if fields.Len() == 0 {
		return nil, fmt.Errorf("table %q has no fields", tableName)
	}
	physicalName, err := PhysicalTableName(module.ID, tableName)
	if err != nil {
		return nil, err
	}

	table := &entity.DynamicTable{
		ModuleID:    module.ID,
		Name:        tableName,
		Description: description,
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		var constraints []string
		var foreignKeys []entity.ForeignKey

		for _, fieldName := range fields.Names() {
			if !strings.HasSuffix(fieldName, "_id") {
				continue
			}
			referenced := strings.TrimSuffix(fieldName, "_id")

			var refTable entity.DynamicTable
			findErr := tx.Where("module_id = ? AND name = ?", module.ID, referenced).First(&refTable).Error
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					r.logger.Warn("referenced table not found, creating field without constraint",
						zap.String("table", tableName),
						zap.String("field", fieldName),
						zap.String("referenced", referenced))
					continue
				}
				return findErr
			}

			snap, snapErr := refTable.GetSnapshot()
			if snapErr != nil {
				return fmt.Errorf("schema snapshot of %q: %w", referenced, snapErr)
			}
			safeField, fieldErr := sqlutil.SanitizeIdentifier(fieldName)
			if fieldErr != nil {
				return fmt.Errorf("field %q: %w", fieldName, fieldErr)
			}
			constraints = append(constraints,
				fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(id)", safeField, snap.PhysicalName))
			foreignKeys = append(foreignKeys, entity.ForeignKey{
				Field:      fieldName,
				References: snap.PhysicalName,
			})
		}

		if foreignKeys == nil {
			foreignKeys = []entity.ForeignKey{}
		}
		if err := table.SetSnapshot(entity.TableSnapshot{
			PhysicalName: physicalName,
			Fields:       fields,
			ForeignKeys:  foreignKeys,
		}); err != nil {
			return err
		}
		if err := tx.Create(table).Error; err != nil {
			return err
		}

		columns := make([]tablestore.ColumnDef, 0, fields.Len())
		for _, fieldName := range fields.Names() {
			fieldType, _ := fields.Get(fieldName)
			columns = append(columns, tablestore.ColumnDef{Name: fieldName, Type: fieldType})
		}
		if !r.store.WithTx(tx).CreateTable(physicalName, columns, constraints) {
			return fmt.Errorf("failed to create physical table %q", physicalName)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to create table for module",
			zap.String("table", tableName), zap.String("module", module.Name), zap.Error(err))
		return nil, err
	}

	r.logger.Info("created table for module",
		zap.String("table", tableName), zap.String("physical", physicalName),
		zap.String("module", module.Name))
	return table, nil
}

// GetModule fetches a module by id, scoped to its owner.
func (r *Registry) GetModule(userID uuid.UUID, moduleID uint) (*entity.Module, error) {
	var module entity.Module
	err := r.db.Preload("Tables").Preload("State").
		Where("id = ? AND user_id = ?", moduleID, userID).
		First(&module).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, err
	}
	return &module, nil
}

// GetModuleByName fetches a module by its (owner, name) identity.
func (r *Registry) GetModuleByName(userID uuid.UUID, name string) (*entity.Module, error) {
	var module entity.Module
	err := r.db.Preload("Tables").Preload("State").
		Where("name = ? AND user_id = ?", name, userID).
		First(&module).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, err
	}
	return &module, nil
}

// ListModules returns the user's modules, most recently updated first.
func (r *Registry) ListModules(userID uuid.UUID) ([]entity.Module, error) {
	var modules []entity.Module
	err := r.db.Preload("State").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&modules).Error
	return modules, err
}

// UpdateModuleUI stores a new UI definition and marks the module as having a
// generated UI.
func (r *Registry) UpdateModuleUI(module *entity.Module, ui inference.UIDefinition) error {
	if err := module.SetUIDefinition(ui); err != nil {
		return err
	}
	module.HasGUI = true
	if err := r.db.Save(module).Error; err != nil {
		r.logger.Error("failed to update module UI", zap.String("module", module.Name), zap.Error(err))
		return err
	}
	return nil
}

// RecordModuleUsage bumps the module's usage counter.
func (r *Registry) RecordModuleUsage(module *entity.Module) error {
	err := r.db.Model(&entity.ModuleState{}).
		Where("module_id = ?", module.ID).
		Updates(map[string]any{
			"usage_count":   gorm.Expr("usage_count + 1"),
			"last_accessed": time.Now(),
		}).Error
	if err != nil {
		r.logger.Error("failed to record module usage", zap.String("module", module.Name), zap.Error(err))
	}
	return err
}

// DeleteModule drops every physical table the module owns and then removes
// its metadata, all inside one transaction. Either everything goes or nothing
// does: a module row must never outlive its tables, and dropped tables must
// never leave orphaned metadata.
func (r *Registry) DeleteModule(module *entity.Module) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var tables []entity.DynamicTable
		if err := tx.Where("module_id = ?", module.ID).Find(&tables).Error; err != nil {
			return err
		}

		store := r.store.WithTx(tx)
		for _, table := range tables {
			snap, err := table.GetSnapshot()
			if err != nil {
				return fmt.Errorf("schema snapshot of %q: %w", table.Name, err)
			}
			if snap.PhysicalName == "" {
				continue
			}
			if !store.DropTable(snap.PhysicalName) {
				return fmt.Errorf("failed to drop physical table %q", snap.PhysicalName)
			}
		}

		if err := tx.Unscoped().Where("module_id = ?", module.ID).Delete(&entity.DynamicTable{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("module_id = ?", module.ID).Delete(&entity.ModuleState{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(module).Error
	})
	if err != nil {
		r.logger.Error("failed to delete module", zap.String("module", module.Name), zap.Error(err))
		return err
	}
	r.logger.Info("deleted module", zap.String("module", module.Name), zap.Uint("module_id", module.ID))
	return nil
}
