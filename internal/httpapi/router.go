package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangzx96/llm-workbench/internal/common"
	"github.com/huangzx96/llm-workbench/internal/config"
	"github.com/huangzx96/llm-workbench/internal/httpapi/handlers"
	"github.com/huangzx96/llm-workbench/internal/httpapi/middleware"
	"github.com/huangzx96/llm-workbench/internal/rag"
	"github.com/huangzx96/llm-workbench/internal/store/rabbitmq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, log *zap.Logger, cache rag.ResultCache, rabbit *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery(log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, log, cache, rabbit)

	r.GET("/ping", h.Ping)

	// auth
	r.POST("/login", h.Login)
	r.POST("/users", h.Register)
	r.GET("/quick-accounts", h.QuickLoginAccounts)

	// Chat and prompts are open to guests; a token scopes them to the user.
	open := r.Group("/")
	open.Use(middleware.OptionalAuth(cfg.JWTSecret))

	open.POST("/logout", h.Logout)

	open.GET("/modules", h.ListModules)
	open.POST("/modules/switch", h.SwitchModule)
	open.GET("/workbench", h.WorkbenchState)

	open.GET("/chat/models", h.ListChatModels)
	open.POST("/chat/sessions", h.CreateChatSession)
	open.POST("/chat/messages", h.SendChatMessage)
	open.POST("/chat/messages/async", h.SendChatMessageAsync)
	open.GET("/chat/jobs/:job_id", h.GetChatJob)
	open.GET("/chat/sessions/:session_id/messages", h.ListChatMessages)
	open.DELETE("/chat/sessions/:session_id/messages", h.ClearChatMessages)
	open.GET("/chat/sessions/:session_id/export", h.ExportChat)
	open.PUT("/chat/sessions/:session_id/model", h.UpdateChatModel)
	open.PATCH("/chat/sessions/:session_id/config", h.UpdateChatConfig)
	open.POST("/chat/sessions/:session_id/config/reset", h.ResetChatConfig)
	open.POST("/chat/sessions/:session_id/prompt", h.ApplyPromptToChat)

	open.GET("/prompts", h.ListPrompts)
	open.POST("/prompts", h.CreatePrompt)
	open.GET("/prompts/categories", h.ListPromptCategories)
	open.GET("/prompts/export", h.ExportPrompts)
	open.POST("/prompts/import", h.ImportPrompts)
	open.GET("/prompts/:id", h.GetPrompt)
	open.PUT("/prompts/:id", h.UpdatePrompt)
	open.DELETE("/prompts/:id", h.DeletePrompt)

	// RAG and agents need a logged-in user.
	authed := r.Group("/")
	authed.Use(middleware.AuthRequired(cfg.JWTSecret))

	authed.GET("/me", h.Me)
	authed.PATCH("/me/preferences", h.UpdatePreferences)

	authed.GET("/rag/knowledge-bases", h.ListKnowledgeBases)
	authed.POST("/rag/knowledge-bases", h.CreateKnowledgeBase)
	authed.POST("/rag/knowledge-bases/:kb_id/documents", h.UploadDocuments)
	authed.GET("/rag/documents", h.ListDocuments)
	authed.DELETE("/rag/documents/:doc_id", h.DeleteDocument)
	authed.POST("/rag/query", h.QueryKnowledge)

	authed.GET("/agents", h.ListAgents)
	authed.POST("/agents", h.CreateAgent)
	authed.GET("/agents/tools", h.ListAgentTools)
	authed.GET("/agents/templates", h.ListAgentTemplates)
	authed.POST("/agents/:agent_id/execute", h.ExecuteAgent)
	authed.GET("/agents/executions", h.ListAgentExecutions)

	return r
}
