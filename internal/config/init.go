package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/frier-sam/dynamic-saas/internal/appcontext"
	"github.com/frier-sam/dynamic-saas/internal/entity"
	"github.com/frier-sam/dynamic-saas/internal/inference"
	"github.com/frier-sam/dynamic-saas/internal/llm"
	"github.com/frier-sam/dynamic-saas/internal/registry"
	"github.com/frier-sam/dynamic-saas/internal/tablestore"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitContext assembles the shared application context: configuration from
// the environment, logger, database, table store, registry and inference
// engines.
func InitContext() (*appcontext.Context, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Warn("No .env file found, using environment variables")
	}

	logger, err := InitLogger()
	if err != nil {
		return nil, err
	}

	db, err := InitDB()
	if err != nil {
		return nil, err
	}

	// The module builder degrades to deterministic fallback inference when no
	// language-model credentials are configured.
	var client llm.Client
	openAIClient, err := llm.NewOpenAIClientFromEnv()
	if err != nil {
		logger.Warn("language model not configured, inference will use deterministic fallbacks", zap.Error(err))
	} else {
		client = openAIClient
	}

	store := tablestore.New(db, logger)
	reg := registry.New(db, store, logger)

	ctx := &appcontext.Context{
		DB:     db,
		Logger: logger,

		LLM:      client,
		Store:    store,
		Registry: reg,
		CRUD:     registry.NewCRUD(reg),

		SchemaEngine: inference.NewSchemaEngine(client, logger),
		UIEngine:     inference.NewUIEngine(client, logger),
	}

	return ctx, nil
}

// InitDB opens the backing database. A postgres:// or postgresql://
// DATABASE_URL selects the Postgres driver; anything else is treated as a
// SQLite file path, defaulting to dynamic_saas.db. Metadata entities are
// migrated on startup; dynamic module tables are created at runtime and never
// migrated here.
func InitDB() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")

	var db *gorm.DB
	var err error
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	} else {
		if dsn == "" {
			dsn = "dynamic_saas.db"
		}
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
		if err == nil {
			err = db.Exec("PRAGMA foreign_keys = ON").Error
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(&entity.User{}, &entity.Module{}, &entity.DynamicTable{}, &entity.ModuleState{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func InitLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
