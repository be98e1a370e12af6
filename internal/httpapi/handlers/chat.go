package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangzx96/llm-workbench/internal/chat"
	"github.com/huangzx96/llm-workbench/internal/common"
	"go.uber.org/zap"
)

type createSessionReq struct {
	Model string `json:"model"`
}

func (h *Handler) CreateChatSession(c *gin.Context) {
	uid := userIDFromContext(c)

	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), uid, req.Model)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, gin.H{
		"session_id": sess.SessionID,
		"model":      sess.Model,
		"config":     sess.Config,
	})
}

type sendMessageReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid := userIDFromContext(c)

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	msg, err := h.ChatSvc.Send(c.Request.Context(), uid, req.SessionID, req.Message)
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, gin.H{
		"session_id": req.SessionID,
		"message":    msg,
	})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	uid := userIDFromContext(c)
	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, sessionID, limit, beforeID)
	if err != nil {
		failErr(c, err)
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	ok(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
		"pending":        h.ChatSvc.Pending(sessionID),
	})
}

func (h *Handler) ClearChatMessages(c *gin.Context) {
	uid := userIDFromContext(c)
	sessionID := c.Param("session_id")

	if err := h.ChatSvc.Clear(c.Request.Context(), uid, sessionID); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"session_id": sessionID, "cleared": true})
}

func (h *Handler) ExportChat(c *gin.Context) {
	uid := userIDFromContext(c)
	sessionID := c.Param("session_id")

	exp, err := h.ChatSvc.ExportSession(c.Request.Context(), uid, sessionID)
	if err != nil {
		failErr(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+chat.ExportFilename(time.Now())+`"`)
	c.JSON(http.StatusOK, exp)
}

func (h *Handler) ListChatModels(c *gin.Context) {
	ok(c, gin.H{"models": chat.Models()})
}

type updateModelReq struct {
	Model string `json:"model" binding:"required"`
}

func (h *Handler) UpdateChatModel(c *gin.Context) {
	uid := userIDFromContext(c)
	sessionID := c.Param("session_id")

	var req updateModelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.ChatSvc.UpdateModel(c.Request.Context(), uid, sessionID, req.Model); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"session_id": sessionID, "model": req.Model})
}

func (h *Handler) UpdateChatConfig(c *gin.Context) {
	uid := userIDFromContext(c)
	sessionID := c.Param("session_id")

	var patch chat.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	cfg, err := h.ChatSvc.UpdateConfig(c.Request.Context(), uid, sessionID, patch)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"session_id": sessionID, "config": cfg})
}

func (h *Handler) ResetChatConfig(c *gin.Context) {
	uid := userIDFromContext(c)
	sessionID := c.Param("session_id")

	cfg, err := h.ChatSvc.ResetConfig(c.Request.Context(), uid, sessionID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"session_id": sessionID, "config": cfg})
}

type applyPromptReq struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// ApplyPromptToChat installs a template's content as the session's system
// prompt.
func (h *Handler) ApplyPromptToChat(c *gin.Context) {
	uid := userIDFromContext(c)
	sessionID := c.Param("session_id")

	var req applyPromptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	tpl, err := h.promptStore(uid).Get(req.TemplateID)
	if err != nil {
		failErr(c, err)
		return
	}

	cfg, err := h.ChatSvc.ApplyPrompt(c.Request.Context(), uid, sessionID, tpl.Content)
	if err != nil {
		failErr(c, err)
		return
	}

	// Applying a prompt drops the caller back into the chat module.
	_ = h.Sessions.StateFor(uid).SwitchModule("chat")

	ok(c, gin.H{"session_id": sessionID, "config": cfg, "active_module": "chat"})
}

func (h *Handler) SendChatMessageAsync(c *gin.Context) {
	uid := userIDFromContext(c)

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if h.Rabbit == nil {
		fail(c, http.StatusServiceUnavailable, 50301, "async chat is not configured")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	if err := h.ChatSvc.ValidateSessionOwner(c.Request.Context(), uid, req.SessionID); err != nil {
		failErr(c, err)
		return
	}

	// Insert the user message up front so it always precedes the reply.
	if err := h.ChatSvc.InsertUserMessage(c.Request.Context(), uid, req.SessionID, req.Message); err != nil {
		failErr(c, err)
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		h.Log.Error("ulid failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &chat.Job{
		ID:             jobID,
		UserID:         uid,
		SessionID:      req.SessionID,
		Prompt:         req.Message,
		IdempotencyKey: idempoKeyPtr,
		Status:         chat.JobQueued,
	}

	created := true
	if idempoKeyPtr == nil {
		if err := h.ChatSvc.CreateJob(c.Request.Context(), j); err != nil {
			h.Log.Error("create job failed", zap.String("session_id", req.SessionID), zap.Error(err))
			fail(c, http.StatusInternalServerError, 50001, "internal error")
			return
		}
	} else {
		j, created, err = h.ChatSvc.CreateJobOrGetExisting(c.Request.Context(), j)
		if err != nil {
			h.Log.Error("create job failed", zap.String("session_id", req.SessionID), zap.Error(err))
			fail(c, http.StatusInternalServerError, 50001, "internal error")
			return
		}
	}

	if created {
		if err := h.Rabbit.PublishJob(c.Request.Context(), j.ID, j.SessionID); err != nil {
			h.Log.Error("publish job failed", zap.String("job_id", j.ID), zap.Error(err))
			fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	ok(c, gin.H{"job_id": j.ID})
}

func (h *Handler) GetChatJob(c *gin.Context) {
	uid := userIDFromContext(c)
	jobID := c.Param("job_id")
	if jobID == "" {
		fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.ChatSvc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		failErr(c, err)
		return
	}
	if j.UserID != uid {
		// hide existence
		fail(c, http.StatusNotFound, 40402, "job not found")
		return
	}

	ok(c, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"session_id":        j.SessionID,
			"status":            j.Status,
			"result_message_id": j.ResultMessageID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}
