package appcontext

import (
	"github.com/frier-sam/dynamic-saas/internal/inference"
	"github.com/frier-sam/dynamic-saas/internal/llm"
	"github.com/frier-sam/dynamic-saas/internal/registry"
	"github.com/frier-sam/dynamic-saas/internal/tablestore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context carries the shared application state: the metadata database, the
// dynamic table store, the module registry built on top of both, the
// inference engines and the logger. It is constructed once at startup and
// passed by reference into every handler.
type Context struct {
	DB     *gorm.DB
	Logger *zap.Logger

	LLM      llm.Client
	Store    *tablestore.Store
	Registry *registry.Registry
	CRUD     *registry.CRUD

	SchemaEngine *inference.SchemaEngine
	UIEngine     *inference.UIEngine
}
