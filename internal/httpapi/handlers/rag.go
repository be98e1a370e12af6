package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangzx96/llm-workbench/internal/rag"
)

func (h *Handler) ListKnowledgeBases(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}
	ok(c, gin.H{"knowledge_bases": h.RAGSvc.KnowledgeBases(uid)})
}

type createKBReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) CreateKnowledgeBase(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}

	var req createKBReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	kb, err := h.RAGSvc.CreateKB(uid, req.Name, req.Description)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"knowledge_base": kb})
}

func (h *Handler) ListDocuments(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}
	ok(c, gin.H{"documents": h.RAGSvc.Documents(uid)})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}
	if err := h.RAGSvc.DeleteDocument(uid, c.Param("doc_id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"deleted": true})
}

type uploadReq struct {
	Files []rag.FileInfo `json:"files" binding:"required"`
}

// UploadDocuments streams simulated ingestion progress over SSE, one event
// per progress tick, then a done event listing the new documents.
func (h *Handler) UploadDocuments(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}
	kbID := c.Param("kb_id")

	var req uploadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	ctx := c.Request.Context()
	progress, err := h.RAGSvc.Upload(ctx, uid, kbID, req.Files)
	if err != nil {
		failErr(c, err)
		return
	}

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)
	if !canFlush {
		fmt.Fprintf(c.Writer, "event: error\ndata: flusher not supported\n\n")
		return
	}

	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(b))
		flusher.Flush()
	}

	for {
		select {
		case p, more := <-progress:
			if !more {
				writeJSON("done", gin.H{
					"type":      "done",
					"documents": h.RAGSvc.Documents(uid),
				})
				return
			}
			writeJSON("progress", gin.H{
				"type":       "progress",
				"file_index": p.FileIndex,
				"file_name":  p.FileName,
				"percent":    p.Percent,
			})

		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) QueryKnowledge(c *gin.Context) {
	uid, okk := requireUserID(c)
	if !okk {
		return
	}

	var params rag.QueryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.RAGSvc.Query(c.Request.Context(), uid, params)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, res)
}
