package handlers

import (
	"sync"

	"github.com/huangzx96/llm-workbench/internal/agent"
	"github.com/huangzx96/llm-workbench/internal/chat"
	"github.com/huangzx96/llm-workbench/internal/config"
	"github.com/huangzx96/llm-workbench/internal/dispatch"
	"github.com/huangzx96/llm-workbench/internal/identity"
	"github.com/huangzx96/llm-workbench/internal/prompt"
	"github.com/huangzx96/llm-workbench/internal/rag"
	"github.com/huangzx96/llm-workbench/internal/store/rabbitmq"
	"github.com/huangzx96/llm-workbench/internal/workbench"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	Cfg config.Config
	Log *zap.Logger

	Users    *identity.Service
	ChatSvc  *chat.Service
	RAGSvc   *rag.Service
	AgentSvc *agent.Service
	Sessions *workbench.Manager

	// Rabbit is nil when no broker is configured; async chat is then refused.
	Rabbit *rabbitmq.Publisher

	// Prompt libraries are per user; guests share the zero id.
	mu      sync.Mutex
	prompts map[uint64]*prompt.Store
}

func NewHandler(db *gorm.DB, cfg config.Config, log *zap.Logger, cache rag.ResultCache, rabbit *rabbitmq.Publisher) *Handler {
	if log == nil {
		log = zap.NewNop()
	}

	d := dispatch.New(dispatch.Options{
		ChatLatencyMin: cfg.ChatLatencyMin,
		ChatLatencyMax: cfg.ChatLatencyMax,
		FixedLatency:   cfg.FixedLatency,
		FailureRate:    cfg.FailureRate,
	})

	return &Handler{
		Cfg:      cfg,
		Log:      log,
		Users:    identity.NewService(identity.NewRepo(db)),
		ChatSvc:  chat.NewService(chat.NewRepo(db), d),
		RAGSvc:   rag.NewService(d, log, rag.WithCache(cache, cfg.RAGCacheTTL)),
		AgentSvc: agent.NewService(d, log),
		Sessions: workbench.NewManager(workbench.NewRegistry()),
		Rabbit:   rabbit,
		prompts:  make(map[uint64]*prompt.Store),
	}
}

func (h *Handler) promptStore(userID uint64) *prompt.Store {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.prompts[userID]
	if !ok {
		st = prompt.NewStore()
		h.prompts[userID] = st
	}
	return st
}
