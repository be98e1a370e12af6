package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangzx96/llm-workbench/internal/prompt"
)

func (h *Handler) ListPrompts(c *gin.Context) {
	store := h.promptStore(userIDFromContext(c))

	search := c.Query("search")
	category := c.Query("category")

	var templates []*prompt.Template
	if search == "" && (category == "" || category == prompt.CategoryAll) {
		templates = store.List()
	} else {
		templates = store.Filter(search, category)
	}

	ok(c, gin.H{"templates": templates})
}

func (h *Handler) ListPromptCategories(c *gin.Context) {
	ok(c, gin.H{"categories": h.promptStore(userIDFromContext(c)).Categories()})
}

func (h *Handler) CreatePrompt(c *gin.Context) {
	var in prompt.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	t, err := h.promptStore(userIDFromContext(c)).Create(in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"template": t})
}

func (h *Handler) GetPrompt(c *gin.Context) {
	t, err := h.promptStore(userIDFromContext(c)).Get(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"template": t})
}

func (h *Handler) UpdatePrompt(c *gin.Context) {
	var in prompt.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	t, err := h.promptStore(userIDFromContext(c)).Update(c.Param("id"), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"template": t})
}

func (h *Handler) DeletePrompt(c *gin.Context) {
	if err := h.promptStore(userIDFromContext(c)).Delete(c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"deleted": true})
}

// ImportPrompts accepts the raw export file as the request body.
func (h *Handler) ImportPrompts(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		fail(c, http.StatusBadRequest, 10001, "failed to read body")
		return
	}

	n, err := h.promptStore(userIDFromContext(c)).Import(raw)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"imported": n})
}

func (h *Handler) ExportPrompts(c *gin.Context) {
	raw, err := h.promptStore(userIDFromContext(c)).Export()
	if err != nil {
		failErr(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+prompt.ExportFilename(time.Now())+`"`)
	c.Data(http.StatusOK, "application/json", raw)
}
