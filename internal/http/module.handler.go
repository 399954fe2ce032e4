package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/frier-sam/dynamic-saas/internal/appcontext"
	"github.com/frier-sam/dynamic-saas/internal/entity"
	"github.com/frier-sam/dynamic-saas/internal/inference"
	"github.com/frier-sam/dynamic-saas/internal/registry"
	"github.com/frier-sam/dynamic-saas/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requireModule resolves :moduleID for the authenticated user, writing the
// error response itself when resolution fails.
func requireModule(ctx *appcontext.Context, c *gin.Context) (*entity.Module, bool) {
	userID, err := utils.GetUserIDFromClaims(c)
	if err != nil {
		ctx.Logger.Error("Failed to get user ID from claims", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	moduleID, err := strconv.ParseUint(c.Param("moduleID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid module ID"})
		return nil, false
	}

	module, err := ctx.Registry.GetModule(userID, uint(moduleID))
	if err != nil {
		if errors.Is(err, registry.ErrModuleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
		} else {
			ctx.Logger.Error("Failed to fetch module", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch module"})
		}
		return nil, false
	}
	return module, true
}

func moduleSummary(module *entity.Module) gin.H {
	usageCount := 0
	if module.State != nil {
		usageCount = module.State.UsageCount
	}
	return gin.H{
		"id":          module.ID,
		"name":        module.Name,
		"description": module.Description,
		"module_type": module.ModuleType,
		"has_gui":     module.HasGUI,
		"created_at":  module.CreatedAt,
		"updated_at":  module.UpdatedAt,
		"usage_count": usageCount,
	}
}

func GetModules(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get user ID from claims", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		modules, err := ctx.Registry.ListModules(userID)
		if err != nil {
			ctx.Logger.Error("Failed to list modules", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list modules"})
			return
		}

		response := make([]gin.H, 0, len(modules))
		for i := range modules {
			response = append(response, moduleSummary(&modules[i]))
		}
		c.JSON(http.StatusOK, gin.H{"modules": response})
	}
}

type createModuleRequest struct {
	Name         string                  `json:"name" binding:"required"`
	Description  string                  `json:"description"`
	ModuleType   string                  `json:"module_type"`
	Schema       inference.Schema        `json:"schema"`
	UIDefinition *inference.UIDefinition `json:"ui_definition"`
	GenerateUI   bool                    `json:"generate_ui"`
	Context      map[string]string       `json:"context"`
}

// CreateModule builds a module either from an explicit schema payload or, when
// none is given, from the free-text description via schema inference. Tables
// are materialized parents-first so convention-named foreign keys resolve.
func CreateModule(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get user ID from claims", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req createModuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		schema := req.Schema
		inferred := false
		if len(schema) == 0 && req.Description != "" {
			schema = ctx.SchemaEngine.InferSchema(c.Request.Context(), req.Description, req.Context)
			inferred = true
		}

		module, err := ctx.Registry.CreateModule(userID, req.Name, req.Description, req.ModuleType)
		if err != nil {
			ctx.Logger.Error("Failed to create module", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating module"})
			return
		}

		tablesCreated := []string{}
		if len(schema) > 0 {
			if err := module.SetSchema(schema); err == nil {
				if err := ctx.DB.Save(module).Error; err != nil {
					ctx.Logger.Error("Failed to store module schema", zap.Error(err))
				}
			}

			for _, tableName := range registry.CreationOrder(schema) {
				def := schema[tableName]
				description := def.Description
				if description == "" {
					description = "Table for " + tableName
				}
				table, err := ctx.Registry.CreateTableForModule(module, tableName, def.Fields, description)
				if err != nil {
					ctx.Logger.Error("Failed to create table for module",
						zap.String("table", tableName), zap.Error(err))
					continue
				}
				tablesCreated = append(tablesCreated, table.Name)
			}
		}

		if req.UIDefinition != nil {
			if err := ctx.Registry.UpdateModuleUI(module, *req.UIDefinition); err != nil {
				ctx.Logger.Error("Failed to store UI definition", zap.Error(err))
			}
		} else if (req.GenerateUI || inferred) && len(schema) > 0 {
			ui := ctx.UIEngine.InferUI(c.Request.Context(), module.Name, schema, req.Description)
			if err := ctx.Registry.UpdateModuleUI(module, ui); err != nil {
				ctx.Logger.Error("Failed to store generated UI definition", zap.Error(err))
			}
		}

		response := moduleSummary(module)
		response["tables_created"] = tablesCreated
		c.JSON(http.StatusCreated, response)
	}
}

func GetModule(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := requireModule(ctx, c)
		if !ok {
			return
		}

		if err := ctx.Registry.RecordModuleUsage(module); err != nil {
			ctx.Logger.Warn("Failed to record module usage", zap.Error(err))
		}

		schema, err := module.GetSchema()
		if err != nil {
			ctx.Logger.Error("Failed to decode module schema", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode module schema"})
			return
		}

		tables := make([]gin.H, 0, len(module.Tables))
		for i := range module.Tables {
			table := &module.Tables[i]
			snap, err := table.GetSnapshot()
			if err != nil {
				ctx.Logger.Error("Failed to decode table schema",
					zap.String("table", table.Name), zap.Error(err))
				continue
			}
			tables = append(tables, gin.H{
				"id":          table.ID,
				"name":        table.Name,
				"description": table.Description,
				"schema":      snap,
				"created_at":  table.CreatedAt,
				"updated_at":  table.UpdatedAt,
			})
		}

		response := moduleSummary(module)
		response["schema"] = schema
		response["tables"] = tables
		if module.HasGUI {
			ui, err := module.GetUIDefinition()
			if err != nil {
				ctx.Logger.Error("Failed to decode UI definition", zap.Error(err))
			} else {
				response["ui_definition"] = ui
			}
		}
		c.JSON(http.StatusOK, response)
	}
}

type updateModuleRequest struct {
	Name         *string                 `json:"name"`
	Description  *string                 `json:"description"`
	ModuleType   *string                 `json:"module_type"`
	UIDefinition *inference.UIDefinition `json:"ui_definition"`
}

func UpdateModule(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := requireModule(ctx, c)
		if !ok {
			return
		}

		var req updateModuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.Name != nil {
			module.Name = *req.Name
		}
		if req.Description != nil {
			module.Description = *req.Description
		}
		if req.ModuleType != nil {
			if !entity.ValidModuleType(*req.ModuleType) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid module type"})
				return
			}
			module.ModuleType = *req.ModuleType
		}
		if req.UIDefinition != nil {
			if err := ctx.Registry.UpdateModuleUI(module, *req.UIDefinition); err != nil {
				ctx.Logger.Error("Failed to update module UI", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update module UI"})
				return
			}
		}

		if err := ctx.DB.Save(module).Error; err != nil {
			ctx.Logger.Error("Failed to update module", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update module"})
			return
		}

		c.JSON(http.StatusOK, moduleSummary(module))
	}
}

func DeleteModule(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := requireModule(ctx, c)
		if !ok {
			return
		}

		if err := ctx.Registry.DeleteModule(module); err != nil {
			ctx.Logger.Error("Failed to delete module", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting module"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type analyzeRequest struct {
	Description   string `json:"description" binding:"required"`
	QuestionCount int    `json:"question_count"`
}

// AnalyzeModuleRequest decides whether a module description needs one round
// of clarification before building.
func AnalyzeModuleRequest(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		analysis := ctx.SchemaEngine.AnalyzeRequest(c.Request.Context(), req.Description, req.QuestionCount)
		c.JSON(http.StatusOK, analysis)
	}
}

// GenerateModuleUI regenerates the UI definition from the module's stored
// schema and persists it.
func GenerateModuleUI(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := requireModule(ctx, c)
		if !ok {
			return
		}

		schema, err := module.GetSchema()
		if err != nil {
			ctx.Logger.Error("Failed to decode module schema", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode module schema"})
			return
		}
		if len(schema) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Module has no schema to generate a UI from"})
			return
		}

		ui := ctx.UIEngine.InferUI(c.Request.Context(), module.Name, schema, module.Description)
		if err := ctx.Registry.UpdateModuleUI(module, ui); err != nil {
			ctx.Logger.Error("Failed to store UI definition", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating UI"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ui_definition": ui,
			"message":       "UI generated successfully",
		})
	}
}
