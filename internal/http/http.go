package http

import (
	"github.com/frier-sam/dynamic-saas/internal/appcontext"
	"github.com/frier-sam/dynamic-saas/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

type APIService struct {
	engine  *gin.Engine
	context *appcontext.Context
}

func NewHTTPService(ctx *appcontext.Context) *APIService {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORSMiddleware())

	service := &APIService{
		engine:  engine,
		context: ctx,
	}
	service.setupRoutes()
	return service
}

func (h *APIService) Engine() *gin.Engine {
	return h.engine
}

func (h *APIService) setupRoutes() {
	v1 := h.engine.Group("/api/v1")
	h.setupAuthRoutes(v1)
	h.setupModuleRoutes(v1)
}

func (h *APIService) setupAuthRoutes(group *gin.RouterGroup) {
	auth := group.Group("/auth")

	auth.POST("/register", Register(h.context))
	auth.POST("/login", Login(h.context))
	auth.GET("/me", middleware.JWTAuthMiddleware(), GetUserInfo(h.context))
}

func (h *APIService) setupModuleRoutes(group *gin.RouterGroup) {
	modules := group.Group("/modules")
	modules.Use(middleware.JWTAuthMiddleware())

	modules.GET("/", GetModules(h.context))
	modules.POST("/", CreateModule(h.context))
	modules.POST("/analyze", AnalyzeModuleRequest(h.context))
	modules.GET("/:moduleID", GetModule(h.context))
	modules.PATCH("/:moduleID", UpdateModule(h.context))
	modules.DELETE("/:moduleID", DeleteModule(h.context))
	modules.POST("/:moduleID/generate_ui", GenerateModuleUI(h.context))

	modules.GET("/:moduleID/data/:tableName", QueryTableData(h.context))
	modules.POST("/:moduleID/data/:tableName", InsertTableData(h.context))
	modules.PUT("/:moduleID/data/:tableName/:recordID", UpdateTableRecord(h.context))
	modules.DELETE("/:moduleID/data/:tableName/:recordID", DeleteTableRecord(h.context))
}
